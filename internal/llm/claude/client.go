// Package claude implements the triage reasoning provider on top of the
// Anthropic Messages API.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sentinel/internal/triage"
)

const (
	defaultTimeout = 30 * time.Second
	maxTokens      = 1024
)

const systemPrompt = `You are a senior SOC analyst triaging security alerts.
For each alert you receive, assess the real-world risk and propose remediation.
Respond with a single JSON object, no prose around it, with these keys:
  "risk_score": integer 1-10,
  "summary": short analysis of what happened and why it matters,
  "remediation": array of concrete remediation steps,
  "impact": one sentence on operational impact of remediation.
Take prior analyst feedback into account: repeated rejections in a category
mean that category tends to produce false positives.`

// Client calls Claude to assess alerts. It satisfies triage.Provider.
type Client struct {
	api     anthropic.Client
	model   string
	timeout time.Duration
	logger  log.Logger
}

// New creates a Claude-backed provider. Extra request options are passed
// through to the SDK, which lets tests point the client at a local server.
func New(apiKey, model string, timeout time.Duration, logger log.Logger, opts ...option.RequestOption) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = log.Nop()
	}
	all := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(1),
	}, opts...)
	return &Client{
		api:     anthropic.NewClient(all...),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Assess sends one alert to the model and parses the structured verdict.
func (c *Client) Assess(ctx context.Context, req *triage.AssessRequest) (*triage.Assessment, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	user, err := userPrompt(req)
	if err != nil {
		return nil, err
	}

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude messages call: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("claude returned no text content (stop reason %q)", msg.StopReason)
	}

	c.logger.Info(ctx, "claude assessment received",
		"alert_id", req.Alert.ID,
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens,
	)
	return parseAssessment(text.String()), nil
}

// userPrompt renders the alert and its context for the model.
func userPrompt(req *triage.AssessRequest) (string, error) {
	alertJSON, err := json.MarshalIndent(req.Alert, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal alert: %w", err)
	}
	var b strings.Builder
	b.WriteString("Alert:\n")
	b.Write(alertJSON)
	fmt.Fprintf(&b, "\n\nRule-based baseline: risk %d/10, confidence %.2f", req.BaseRisk, req.BaseConfidence)
	if req.AdjustedConfidence != req.BaseConfidence {
		fmt.Fprintf(&b, " (adjusted to %.2f by analyst feedback)", req.AdjustedConfidence)
	}
	b.WriteString("\n\nAnalyst feedback history: ")
	b.WriteString(req.FeedbackSummary)
	return b.String(), nil
}

var (
	jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)
	riskScoreRe  = regexp.MustCompile(`(?i)risk[ _-]?score[^0-9]{0,5}(10|[1-9])`)
	bulletRe     = regexp.MustCompile(`^\s*(?:[-*]|\d+[.)])\s+(.+)$`)
)

// parseAssessment recovers a structured assessment from the model text.
// JSON is preferred, including JSON wrapped in a markdown fence; free
// text degrades to the whole reply as summary with best-effort risk and
// remediation extraction. It never fails: an unparseable reply is still
// a usable (if thin) assessment.
func parseAssessment(text string) *triage.Assessment {
	if raw := jsonObjectRe.FindString(text); raw != "" {
		var v struct {
			RiskScore   int      `json:"risk_score"`
			Summary     string   `json:"summary"`
			Remediation []string `json:"remediation"`
			Impact      string   `json:"impact"`
		}
		if err := json.Unmarshal([]byte(raw), &v); err == nil && v.Summary != "" {
			return &triage.Assessment{
				RiskScore:   v.RiskScore,
				Summary:     strings.TrimSpace(v.Summary),
				Remediation: v.Remediation,
				Impact:      strings.TrimSpace(v.Impact),
			}
		}
	}

	out := &triage.Assessment{Summary: strings.TrimSpace(text)}
	if m := riskScoreRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			out.RiskScore = n
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			out.Remediation = append(out.Remediation, strings.TrimSpace(m[1]))
		}
	}
	return out
}
