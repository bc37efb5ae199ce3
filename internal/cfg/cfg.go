package cfg

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Config adds application-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	DataDir               string
	OutputDir             string
	RulesFile             string
	FeedbackMinSamples    int
	InputWaitSeconds      int
	ClaudeAPIKey          string
	ClaudeModel           string
	ClaudeTimeoutSeconds  int
	DatabaseURL           string
	SlackWebhookURL       string
	ReviewToken           string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.DataDir, "data-dir", "data", "directory holding the input datasets")
	fs.StringVar(&c.OutputDir, "output-dir", "output", "directory for the alert, triage and feedback files")
	fs.StringVar(&c.RulesFile, "rules-file", "", "optional YAML file overriding detection thresholds")
	fs.IntVar(&c.FeedbackMinSamples, "feedback-min-samples", 1, "minimum feedback entries per category before confidence adjustment (>= 1)")
	fs.IntVar(&c.InputWaitSeconds, "input-wait-seconds", 0, "seconds to wait for the alerts file to appear before giving up (0 = no wait)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude reasoning provider (empty = deterministic fallback only)")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.IntVar(&c.ClaudeTimeoutSeconds, "claude-timeout-seconds", 30, "per-call timeout for the Claude API (1..300)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL for the feedback store (empty = file store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for run notifications")
	fs.StringVar(&c.ReviewToken, "review-token", "", "bearer token protecting the review API (empty = no auth)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("OUTPUT_DIR is required"))
	}

	if c.FeedbackMinSamples < 1 {
		errs = append(errs, fmt.Errorf("invalid FEEDBACK_MIN_SAMPLES %d (must be >= 1)", c.FeedbackMinSamples))
	}
	if c.InputWaitSeconds < 0 {
		errs = append(errs, fmt.Errorf("invalid INPUT_WAIT_SECONDS %d (must be >= 0)", c.InputWaitSeconds))
	}

	// The API key is optional, but when reasoning is on the model and
	// timeout must be usable.
	if c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required"))
	}
	if c.ClaudeTimeoutSeconds <= 0 || c.ClaudeTimeoutSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid CLAUDE_TIMEOUT_SECONDS %d (must be 1..300)", c.ClaudeTimeoutSeconds))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// AlertsPath is the detection stage's output file.
func (c *Config) AlertsPath() string {
	return filepath.Join(c.OutputDir, "alerts.json")
}

// TriagePath is the triage stage's output file.
func (c *Config) TriagePath() string {
	return filepath.Join(c.OutputDir, "triage.json")
}

// FeedbackPath is the feedback store file used when no database is
// configured.
func (c *Config) FeedbackPath() string {
	return filepath.Join(c.OutputDir, "feedback.json")
}

// ParsePorts parses a comma-separated port list ("22,53,443") into a
// sorted, deduplicated slice. Empty input yields nil.
func ParsePorts(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	seen := map[int]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil || p < 1 || p > 65535 {
			return nil, fmt.Errorf("invalid port %q (must be 1..65535)", part)
		}
		seen[p] = true
	}
	ports := make([]int, 0, len(seen))
	for p := range seen {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports, nil
}
