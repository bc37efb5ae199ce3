// Sentinel's detection stage reads the raw event datasets, evaluates
// the threshold rules, and writes the alert set for the triage stage.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/linnemanlabs/go-core/cfg"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/metrics"
	v "github.com/linnemanlabs/go-core/version"

	sc "github.com/linnemanlabs/sentinel/internal/cfg"
	"github.com/linnemanlabs/sentinel/internal/detect"
	"github.com/linnemanlabs/sentinel/internal/event"
	"github.com/linnemanlabs/sentinel/internal/jsonstore"
)

const appName = "sentinel"
const component = "detect"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v.AppName = appName
	v.Component = component
	vi := v.Get()

	var (
		appCfg sc.Config
		logCfg log.Config
	)
	appCfg.RegisterFlags(flag.CommandLine)
	logCfg.RegisterFlags(flag.CommandLine)

	var (
		allowedPorts   string
		dangerousPorts string
		showVersion    bool
	)
	flag.StringVar(&allowedPorts, "allowed-ports", "", "comma-separated destination port whitelist (empty = built-in defaults)")
	flag.StringVar(&dangerousPorts, "dangerous-ports", "", "comma-separated high-severity destination ports (empty = built-in defaults)")
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")

	flag.Parse()
	if showVersion {
		fmt.Printf("%s (%s) %s (commit=%s, go=%s)\n", vi.AppName, vi.Component, vi.Version, vi.Commit, vi.GoVersion)
		return nil
	}

	cfg.FillFromEnv(flag.CommandLine, "SENTINEL_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := errors.Join(appCfg.Validate(), logCfg.Validate()); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	lg, err := log.New(logCfg.ToOptions(v.AppName))
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = lg.Sync() }()

	L := lg.With("component", vi.Component)
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "starting detection run",
		"version", vi.Version,
		"data_dir", appCfg.DataDir,
		"output", appCfg.AlertsPath(),
		"rules_file", appCfg.RulesFile,
	)

	detectCfg := detect.DefaultConfig()
	if appCfg.RulesFile != "" {
		if err := detectCfg.ApplyFile(appCfg.RulesFile); err != nil {
			// A broken override file never blocks a detection run.
			L.Warn(ctx, "ignoring rules file", "path", appCfg.RulesFile, "error", err)
		}
	}
	if err := applyPortFlags(&detectCfg, allowedPorts, dangerousPorts); err != nil {
		return err
	}

	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, component, &vi)
	detectMetrics := detect.NewMetrics(m.Registry())

	in, err := loadInput(ctx, L, appCfg.DataDir, detectMetrics)
	if err != nil {
		return err
	}

	engine := detect.NewEngine(detectCfg, L, detectMetrics)
	alerts := engine.Run(ctx, in)

	if err := jsonstore.Write(appCfg.AlertsPath(), alerts); err != nil {
		return fmt.Errorf("write alerts: %w", err)
	}

	L.Info(ctx, "alerts written", "path", appCfg.AlertsPath(), "count", len(alerts))
	return nil
}

// loadInput reads the four datasets. A missing or unreadable dataset is
// fatal; malformed rows are counted and skipped.
func loadInput(ctx context.Context, L log.Logger, dir string, m *detect.Metrics) (detect.Input, error) {
	var in detect.Input

	auth, skipped, err := event.LoadAuthEvents(filepath.Join(dir, "auth_events.csv"))
	if err != nil {
		return in, fmt.Errorf("auth events: %w", err)
	}
	logSkipped(ctx, L, m, "auth_events", len(auth), skipped)
	in.Auth = auth

	hosts, skipped, err := event.LoadHosts(filepath.Join(dir, "host_inventory.csv"))
	if err != nil {
		return in, fmt.Errorf("host inventory: %w", err)
	}
	logSkipped(ctx, L, m, "host_inventory", len(hosts), skipped)
	in.Hosts = hosts

	flows, skipped, err := event.LoadFirewallFlows(filepath.Join(dir, "firewall_logs.csv"))
	if err != nil {
		return in, fmt.Errorf("firewall logs: %w", err)
	}
	logSkipped(ctx, L, m, "firewall_logs", len(flows), skipped)
	in.Flows = flows

	corr, skipped, err := event.LoadCorrelationEvents(filepath.Join(dir, "correlation_events.json"))
	if err != nil {
		return in, fmt.Errorf("correlation events: %w", err)
	}
	logSkipped(ctx, L, m, "correlation_events", len(corr), skipped)
	in.Correlated = corr

	return in, nil
}

func logSkipped(ctx context.Context, L log.Logger, m *detect.Metrics, dataset string, loaded, skipped int) {
	if m != nil && skipped > 0 {
		m.RowsSkipped.WithLabelValues(dataset).Add(float64(skipped))
	}
	if skipped > 0 {
		L.Warn(ctx, "skipped malformed rows", "dataset", dataset, "loaded", loaded, "skipped", skipped)
		return
	}
	L.Info(ctx, "dataset loaded", "dataset", dataset, "rows", loaded)
}

func applyPortFlags(c *detect.Config, allowed, dangerous string) error {
	if allowed != "" {
		ports, err := sc.ParsePorts(allowed)
		if err != nil {
			return fmt.Errorf("allowed-ports: %w", err)
		}
		c.AllowedPorts = portMap(ports)
	}
	if dangerous != "" {
		ports, err := sc.ParsePorts(dangerous)
		if err != nil {
			return fmt.Errorf("dangerous-ports: %w", err)
		}
		c.DangerousPorts = portMap(ports)
	}
	return nil
}

func portMap(ports []int) map[int]bool {
	m := make(map[int]bool, len(ports))
	for _, p := range ports {
		m[p] = true
	}
	return m
}
