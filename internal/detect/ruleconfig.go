package detect

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileOverrides mirrors the optional rules file. Only fields present in
// the file override the config; absent fields keep their values.
type fileOverrides struct {
	TravelSpeedHigh          *float64 `yaml:"travel_speed_high"`
	TravelSpeedCritical      *float64 `yaml:"travel_speed_critical"`
	PatchHighDays            *int     `yaml:"patch_high_days"`
	PatchCriticalDays        *int     `yaml:"patch_critical_days"`
	AllowedPorts             []int    `yaml:"allowed_ports"`
	DangerousPorts           []int    `yaml:"dangerous_ports"`
	FailedLoginCount         *int     `yaml:"failed_login_count"`
	FailedLoginWindowMinutes *int     `yaml:"failed_login_window_minutes"`
}

// ApplyFile overlays threshold overrides from a YAML file onto the
// config. Callers treat a bad file as a logged warning, not a fatal
// error, so a broken override never blocks a detection run.
func (c *Config) ApplyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}

	var o fileOverrides
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return fmt.Errorf("parse rules file %s: %w", path, err)
	}

	if o.TravelSpeedHigh != nil {
		c.TravelSpeedHigh = *o.TravelSpeedHigh
	}
	if o.TravelSpeedCritical != nil {
		c.TravelSpeedCritical = *o.TravelSpeedCritical
	}
	if o.PatchHighDays != nil {
		c.PatchHighDays = *o.PatchHighDays
	}
	if o.PatchCriticalDays != nil {
		c.PatchCriticalDays = *o.PatchCriticalDays
	}
	if len(o.AllowedPorts) > 0 {
		c.AllowedPorts = portSet(o.AllowedPorts...)
	}
	if len(o.DangerousPorts) > 0 {
		c.DangerousPorts = portSet(o.DangerousPorts...)
	}
	if o.FailedLoginCount != nil {
		c.FailedLoginCount = *o.FailedLoginCount
	}
	if o.FailedLoginWindowMinutes != nil {
		c.FailedLoginWindow = time.Duration(*o.FailedLoginWindowMinutes) * time.Minute
	}
	return nil
}
