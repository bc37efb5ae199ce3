// Package detect transforms raw events into alerts via a fixed set of
// independent, order-insensitive threshold rules: impossible travel,
// patch drift, open ports, and SIEM correlation. Rules are pure
// functions of the loaded event sets; their outputs are concatenated
// with no cross-rule suppression.
package detect

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/sentinel/internal/alert"
	"github.com/linnemanlabs/sentinel/internal/event"
)

// Config holds the detection thresholds. Speeds are km/h, patch windows
// are days.
type Config struct {
	TravelSpeedHigh     float64
	TravelSpeedCritical float64
	PatchHighDays       int
	PatchCriticalDays   int
	AllowedPorts        map[int]bool
	DangerousPorts      map[int]bool
	FailedLoginCount    int
	FailedLoginWindow   time.Duration

	// Now is the evaluation time source; defaults to time.Now.
	// Patch drift is measured against it and alert CreatedAt uses it.
	Now func() time.Time
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		TravelSpeedHigh:     500,
		TravelSpeedCritical: 1000,
		PatchHighDays:       30,
		PatchCriticalDays:   60,
		AllowedPorts:        portSet(22, 53, 80, 443, 445, 3306, 5432),
		DangerousPorts:      portSet(21, 23, 1433, 3389),
		FailedLoginCount:    5,
		FailedLoginWindow:   10 * time.Minute,
	}
}

func portSet(ports ...int) map[int]bool {
	m := make(map[int]bool, len(ports))
	for _, p := range ports {
		m[p] = true
	}
	return m
}

// Input carries the four loaded event sets.
type Input struct {
	Auth       []event.AuthEvent
	Hosts      []event.Host
	Flows      []event.FirewallFlow
	Correlated []event.CorrelationEvent
}

// Engine evaluates the rules over an Input.
type Engine struct {
	cfg     Config
	logger  log.Logger
	metrics *Metrics
}

// NewEngine creates a detection engine. metrics may be nil.
func NewEngine(cfg Config, logger log.Logger, m *Metrics) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{cfg: cfg, logger: logger, metrics: m}
}

// Run evaluates all rules and returns the concatenated alerts.
func (e *Engine) Run(ctx context.Context, in Input) []alert.Alert {
	start := time.Now()

	alerts := e.detectImpossibleTravel(in.Auth)
	alerts = append(alerts, e.detectPatchDrift(in.Hosts)...)
	alerts = append(alerts, e.detectOpenPorts(in.Flows)...)
	alerts = append(alerts, e.detectCorrelation(in.Correlated)...)

	if e.metrics != nil {
		for _, a := range alerts {
			e.metrics.AlertsTotal.WithLabelValues(string(a.Category), string(a.Severity)).Inc()
		}
		e.metrics.RunDuration.Observe(time.Since(start).Seconds())
	}

	e.logger.Info(ctx, "detection run complete",
		"alerts", len(alerts),
		"auth_events", len(in.Auth),
		"hosts", len(in.Hosts),
		"flows", len(in.Flows),
		"correlation_events", len(in.Correlated),
		"duration", time.Since(start).Seconds(),
	)
	return alerts
}
