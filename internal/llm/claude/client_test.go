package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/sentinel/internal/alert"
	"github.com/linnemanlabs/sentinel/internal/triage"
)

// messagesStub serves a canned Messages API response with the given text
// content.
func messagesStub(t *testing.T, text string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") == "" {
			t.Error("missing x-api-key header")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-test",
			"stop_reason": "end_turn",
			"content":     []map[string]any{{"type": "text", "text": text}},
			"usage":       map[string]any{"input_tokens": 100, "output_tokens": 50},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func assessRequest() *triage.AssessRequest {
	return &triage.AssessRequest{
		Alert: alert.Alert{
			ID:          "abc123",
			Category:    alert.CategoryImpossibleTravel,
			Severity:    alert.SeverityCritical,
			Subject:     "alice",
			Description: "login from two continents in five minutes",
			CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		BaseRisk:           9,
		BaseConfidence:     0.8,
		AdjustedConfidence: 0.8,
		FeedbackSummary:    "No prior analyst feedback on record.",
	}
}

func TestAssess_StructuredResponse(t *testing.T) {
	t.Parallel()

	srv := messagesStub(t, `{"risk_score": 9, "summary": "near-certain credential compromise",
		"remediation": ["disable account", "rotate credentials"],
		"impact": "user locked out until verified"}`)

	c := New("test-key", "claude-test", 5*time.Second, nil, option.WithBaseURL(srv.URL))
	got, err := c.Assess(context.Background(), assessRequest())
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if got.RiskScore != 9 {
		t.Errorf("risk = %d, want 9", got.RiskScore)
	}
	if got.Summary != "near-certain credential compromise" {
		t.Errorf("summary = %q", got.Summary)
	}
	if len(got.Remediation) != 2 || got.Remediation[0] != "disable account" {
		t.Errorf("remediation = %v", got.Remediation)
	}
	if got.Impact != "user locked out until verified" {
		t.Errorf("impact = %q", got.Impact)
	}
}

func TestAssess_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
	}))
	t.Cleanup(srv.Close)

	c := New("test-key", "claude-test", 5*time.Second, nil, option.WithBaseURL(srv.URL))
	if _, err := c.Assess(context.Background(), assessRequest()); err == nil {
		t.Fatal("expected error from 500 response")
	}
}

func TestAssess_RetriesOnceOnServerError(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"transient"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_retry",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-test",
			"stop_reason": "end_turn",
			"content":     []map[string]any{{"type": "text", "text": `{"risk_score": 5, "summary": "recovered after retry", "remediation": []}`}},
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	t.Cleanup(srv.Close)

	c := New("test-key", "claude-test", 5*time.Second, nil, option.WithBaseURL(srv.URL))
	got, err := c.Assess(context.Background(), assessRequest())
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if got.Summary != "recovered after retry" {
		t.Errorf("summary = %q", got.Summary)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("requests = %d, want 2 (one retry)", n)
	}
}

func TestAssess_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := New("test-key", "claude-test", 100*time.Millisecond, nil, option.WithBaseURL(srv.URL))
	start := time.Now()
	_, err := c.Assess(context.Background(), assessRequest())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Errorf("call did not respect timeout, took %v", time.Since(start))
	}
}

func TestUserPrompt(t *testing.T) {
	t.Parallel()

	req := assessRequest()
	req.AdjustedConfidence = 0.72
	req.FeedbackSummary = "impossible_travel: 0 approved / 2 rejected"

	got, err := userPrompt(req)
	if err != nil {
		t.Fatalf("userPrompt: %v", err)
	}
	for _, want := range []string{
		`"abc123"`,
		"two continents",
		"risk 9/10",
		"adjusted to 0.72",
		"0 approved / 2 rejected",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestParseAssessment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		risk    int
		summary string
		bullets int
	}{
		{
			name:    "bare json",
			text:    `{"risk_score": 7, "summary": "probable misconfiguration", "remediation": ["close port"]}`,
			risk:    7,
			summary: "probable misconfiguration",
			bullets: 1,
		},
		{
			name:    "fenced json",
			text:    "```json\n{\"risk_score\": 6, \"summary\": \"low urgency\", \"remediation\": []}\n```",
			risk:    6,
			summary: "low urgency",
		},
		{
			name:    "json with surrounding prose",
			text:    "Here is my assessment:\n{\"risk_score\": 8, \"summary\": \"exposed service\", \"remediation\": [\"patch\"]}\nLet me know if you need more.",
			risk:    8,
			summary: "exposed service",
			bullets: 1,
		},
		{
			name:    "free text",
			text:    "Risk Score: 7\nThis looks like brute forcing.\n- reset the password\n- enable lockout",
			risk:    7,
			summary: "Risk Score: 7\nThis looks like brute forcing.\n- reset the password\n- enable lockout",
			bullets: 2,
		},
		{
			name:    "free text numbered list",
			text:    "risk_score is 10 here.\n1. isolate host\n2) notify IR",
			risk:    10,
			summary: "risk_score is 10 here.\n1. isolate host\n2) notify IR",
			bullets: 2,
		},
		{
			name:    "no structure at all",
			text:    "I am unable to assess this alert.",
			summary: "I am unable to assess this alert.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := parseAssessment(tt.text)
			if got.RiskScore != tt.risk {
				t.Errorf("risk = %d, want %d", got.RiskScore, tt.risk)
			}
			if got.Summary != tt.summary {
				t.Errorf("summary = %q, want %q", got.Summary, tt.summary)
			}
			if len(got.Remediation) != tt.bullets {
				t.Errorf("remediation = %v, want %d entries", got.Remediation, tt.bullets)
			}
		})
	}
}
