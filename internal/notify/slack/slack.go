// Package slack posts triage run summaries to Slack via incoming
// webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/sentinel/internal/alert"
	"github.com/linnemanlabs/sentinel/internal/triage"
)

const (
	maxListedAlerts = 5
	httpTimeout     = 10 * time.Second
)

// Notifier sends triage run summaries to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Send posts a run summary to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, res *triage.RunResult) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(res)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(res *triage.RunResult) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(res),
			{"type": "divider"},
			fieldsBlock(res),
			{"type": "divider"},
			topAlertsBlock(res),
			{"type": "divider"},
			contextBlock(res),
		},
	}
}

func headerBlock(res *triage.RunResult) map[string]any {
	text := fmt.Sprintf("%s Triage Run Complete: %d alerts", runEmoji(res), len(res.Records))

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(res *triage.RunResult) map[string]any {
	bySeverity := map[alert.Severity]int{}
	for i := range res.Records {
		bySeverity[res.Records[i].Alert.Severity]++
	}

	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Critical:* %d", bySeverity[alert.SeverityCritical]),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*High:* %d", bySeverity[alert.SeverityHigh]),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Medium:* %d", bySeverity[alert.SeverityMedium]),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Low:* %d", bySeverity[alert.SeverityLow]),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Fallback narratives:* %d", res.Fallbacks),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Feedback-adjusted:* %d", res.Adjusted),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

// topAlertsBlock lists the highest-risk records. The run result is
// already sorted by risk, so the first few records are the top ones.
func topAlertsBlock(res *triage.RunResult) map[string]any {
	if len(res.Records) == 0 {
		return map[string]any{
			"type": "section",
			"text": map[string]any{
				"type": "mrkdwn",
				"text": "_No alerts in this run._",
			},
		}
	}

	var b strings.Builder
	b.WriteString("*Top alerts*\n")
	for i, r := range res.Records {
		if i == maxListedAlerts {
			fmt.Fprintf(&b, "\n… and %d more", len(res.Records)-maxListedAlerts)
			break
		}
		fmt.Fprintf(&b, "\n%s *%d/10* `%s` %s • %s",
			severityEmoji(r.Alert.Severity), r.RiskScore, r.Alert.Category, r.Alert.Subject, r.Alert.ID)
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": b.String(),
		},
	}
}

func contextBlock(res *triage.RunResult) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("sentinel • run %s • %s", res.RunID, time.Now().UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func runEmoji(res *triage.RunResult) string {
	worst := alert.SeverityLow
	for i := range res.Records {
		if res.Records[i].Alert.Severity.Rank() > worst.Rank() {
			worst = res.Records[i].Alert.Severity
		}
	}
	return severityEmoji(worst)
}

func severityEmoji(s alert.Severity) string {
	switch s {
	case alert.SeverityCritical:
		return "\U0001f534" // red circle
	case alert.SeverityHigh:
		return "\U0001f7e1" // yellow circle
	case alert.SeverityMedium:
		return "\U0001f7e0" // orange circle
	default:
		return "\U0001f7e2" // green circle
	}
}
