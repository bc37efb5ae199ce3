// Sentinel's triage stage enriches the alert set with risk scoring,
// feedback-adjusted confidence, and a reasoning narrative, then writes
// the triage set for the review server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linnemanlabs/go-core/cfg"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/metrics"
	v "github.com/linnemanlabs/go-core/version"

	"github.com/linnemanlabs/sentinel/internal/alert"
	sc "github.com/linnemanlabs/sentinel/internal/cfg"
	"github.com/linnemanlabs/sentinel/internal/feedback"
	"github.com/linnemanlabs/sentinel/internal/feedback/filestore"
	"github.com/linnemanlabs/sentinel/internal/feedback/pgstore"
	"github.com/linnemanlabs/sentinel/internal/jsonstore"
	"github.com/linnemanlabs/sentinel/internal/llm/claude"
	"github.com/linnemanlabs/sentinel/internal/notify/slack"
	"github.com/linnemanlabs/sentinel/internal/postgres"
	"github.com/linnemanlabs/sentinel/internal/triage"
)

const appName = "sentinel"
const component = "triage"

const waitPollInterval = 2 * time.Second

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

	var showVersion bool
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

	L.Info(ctx, "starting triage run",
		"version", vi.Version,
		"alerts", appCfg.AlertsPath(),
		"output", appCfg.TriagePath(),
		"reasoning", appCfg.ClaudeAPIKey != "",
		"min_samples", appCfg.FeedbackMinSamples,
	)

	// The detection stage may still be running; optionally wait for its
	// output instead of failing immediately.
	if appCfg.InputWaitSeconds > 0 {
		maxWait := time.Duration(appCfg.InputWaitSeconds) * time.Second
		if err := jsonstore.WaitForFile(ctx, appCfg.AlertsPath(), waitPollInterval, maxWait); err != nil {
			return fmt.Errorf("alert set: %w", err)
		}
	}
	if _, err := os.Stat(appCfg.AlertsPath()); err != nil {
		return fmt.Errorf("alert set %s not readable (run the detect stage first): %w", appCfg.AlertsPath(), err)
	}

	alerts, err := jsonstore.Read[alert.Alert](appCfg.AlertsPath())
	if err != nil {
		return fmt.Errorf("load alerts: %w", err)
	}

	// Feedback store selection mirrors the server so both see the same
	// history.
	var feedbackStore feedback.Store
	if appCfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, appCfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres pool: %w", err)
		}
		defer pool.Close()
		pgStore, err := pgstore.New(ctx, pool)
		if err != nil {
			return fmt.Errorf("pgstore init: %w", err)
		}
		feedbackStore = pgStore
		L.Info(ctx, "using postgres feedback store")
	} else {
		feedbackStore = filestore.New(appCfg.FeedbackPath())
	}

	history, err := feedbackStore.List(ctx)
	if err != nil {
		return fmt.Errorf("load feedback history: %w", err)
	}

	var provider triage.Provider
	if appCfg.ClaudeAPIKey != "" {
		provider = claude.New(
			appCfg.ClaudeAPIKey,
			appCfg.ClaudeModel,
			time.Duration(appCfg.ClaudeTimeoutSeconds)*time.Second,
			L,
		)
		L.Info(ctx, "initialized reasoning provider", "provider", "claude", "model", appCfg.ClaudeModel)
	} else {
		L.Warn(ctx, "no claude-api-key configured, every record uses the deterministic fallback")
	}

	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, component, &vi)
	triageMetrics := triage.NewMetrics(m.Registry())

	engine := triage.NewEngine(provider, appCfg.FeedbackMinSamples, L, triageMetrics)
	res := engine.Run(ctx, alerts, history)

	if err := jsonstore.Write(appCfg.TriagePath(), res.Records); err != nil {
		return fmt.Errorf("write triage set: %w", err)
	}
	L.Info(ctx, "triage set written", "path", appCfg.TriagePath(), "records", len(res.Records), "run_id", res.RunID)

	// Notification failures don't fail the run; the triage set is already
	// on disk.
	if appCfg.SlackWebhookURL != "" {
		if err := slack.New(appCfg.SlackWebhookURL).Send(ctx, res); err != nil {
			L.Error(ctx, err, "slack notification failed")
		}
	}
	return nil
}
