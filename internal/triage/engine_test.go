package triage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/sentinel/internal/alert"
	"github.com/linnemanlabs/sentinel/internal/feedback"
)

// mockProvider implements Provider for testing.
type mockProvider struct {
	assessment *Assessment
	err        error
	calls      int
	lastReq    *AssessRequest
}

func (m *mockProvider) Assess(_ context.Context, req *AssessRequest) (*Assessment, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.assessment, nil
}

func testAlert(id string, c alert.Category, s alert.Severity) alert.Alert {
	return alert.Alert{
		ID:          id,
		Category:    c,
		Severity:    s,
		Subject:     "subject-" + id,
		Description: "test alert " + id,
		Evidence:    map[string]any{"key": "value"},
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRun_BaseMappingWithoutProvider(t *testing.T) {
	t.Parallel()

	engine := NewEngine(nil, 1, log.Nop(), nil)
	alerts := []alert.Alert{
		testAlert("a", alert.CategoryImpossibleTravel, alert.SeverityCritical),
		testAlert("b", alert.CategoryOpenPort, alert.SeverityMedium),
		testAlert("c", alert.CategoryPatchDrift, alert.SeverityLow),
	}

	res := engine.Run(context.Background(), alerts, nil)
	if len(res.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(res.Records))
	}

	byID := make(map[string]Record)
	for _, r := range res.Records {
		byID[r.Alert.ID] = r
	}
	cases := map[string]struct {
		risk int
		conf float64
	}{"a": {9, 0.8}, "b": {6, 0.6}, "c": {4, 0.5}}
	for id, want := range cases {
		r := byID[id]
		if r.RiskScore != want.risk || r.Confidence != want.conf {
			t.Errorf("%s: (risk, conf) = (%d, %v), want (%d, %v)", id, r.RiskScore, r.Confidence, want.risk, want.conf)
		}
		if r.FeedbackAdjusted {
			t.Errorf("%s: adjusted without history", id)
		}
	}
}

func TestRun_FallbackFullyPopulated(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{err: errors.New("simulated timeout")}
	engine := NewEngine(provider, 1, log.Nop(), nil)

	res := engine.Run(context.Background(), []alert.Alert{
		testAlert("a", alert.CategoryImpossibleTravel, alert.SeverityCritical),
	}, nil)

	r := res.Records[0]
	if !r.Fallback {
		t.Error("record should be flagged as fallback")
	}
	if r.Analysis == "" {
		t.Error("fallback narrative must be populated")
	}
	if len(r.Remediation) == 0 {
		t.Error("fallback remediation must be populated")
	}
	if r.RiskScore != 9 {
		t.Errorf("fallback risk = %d, want severity-consistent 9", r.RiskScore)
	}
	if !strings.Contains(r.Analysis, "test alert a") {
		t.Error("fallback narrative should embed the alert description")
	}
	if res.Fallbacks != 1 {
		t.Errorf("Fallbacks = %d, want 1", res.Fallbacks)
	}
}

func TestRun_NilProviderIsFallback(t *testing.T) {
	t.Parallel()

	res := NewEngine(nil, 1, log.Nop(), nil).Run(context.Background(), []alert.Alert{
		testAlert("a", alert.CategoryOpenPort, alert.SeverityHigh),
	}, nil)

	if !res.Records[0].Fallback {
		t.Error("reasoning disabled should still flag fallback for auditability")
	}
}

func TestRun_ProviderAssessmentApplied(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{assessment: &Assessment{
		RiskScore:   7,
		Summary:     "lateral movement precursor",
		Remediation: []string{"rotate credentials", "audit session logs"},
		Impact:      "low during maintenance window",
	}}
	engine := NewEngine(provider, 1, log.Nop(), nil)

	res := engine.Run(context.Background(), []alert.Alert{
		testAlert("a", alert.CategoryCorrelation, alert.SeverityCritical),
	}, nil)

	r := res.Records[0]
	if r.Fallback {
		t.Error("successful assessment must not be flagged fallback")
	}
	if r.RiskScore != 7 {
		t.Errorf("model risk override not applied: %d", r.RiskScore)
	}
	if !strings.Contains(r.Analysis, "lateral movement") || !strings.Contains(r.Analysis, "Operational impact") {
		t.Errorf("analysis = %q", r.Analysis)
	}
	if len(r.Remediation) != 2 {
		t.Errorf("remediation = %v", r.Remediation)
	}
	if provider.lastReq.FeedbackSummary != "No prior analyst feedback on record." {
		t.Errorf("feedback summary = %q", provider.lastReq.FeedbackSummary)
	}
}

func TestRun_ModelRiskOutOfBoundsIgnored(t *testing.T) {
	t.Parallel()

	for _, bad := range []int{0, -3, 11, 99} {
		provider := &mockProvider{assessment: &Assessment{RiskScore: bad, Summary: "s"}}
		res := NewEngine(provider, 1, log.Nop(), nil).Run(context.Background(), []alert.Alert{
			testAlert("a", alert.CategoryOpenPort, alert.SeverityHigh),
		}, nil)
		if res.Records[0].RiskScore != 8 {
			t.Errorf("risk %d accepted, base 8 should hold", bad)
		}
	}
}

func TestRun_RejectionsLowerConfidence(t *testing.T) {
	t.Parallel()

	a := testAlert("x", alert.CategoryImpossibleTravel, alert.SeverityHigh)
	engine := NewEngine(nil, 1, log.Nop(), nil)

	clean := engine.Run(context.Background(), []alert.Alert{a}, nil)
	history := []feedback.Entry{{
		AlertID:  "x",
		Category: alert.CategoryImpossibleTravel,
		Action:   feedback.ActionRejected,
		Reason:   "false positive - contractor travel",
	}}
	rerun := engine.Run(context.Background(), []alert.Alert{a}, history)

	if rerun.Records[0].Confidence >= clean.Records[0].Confidence {
		t.Errorf("rejection must lower confidence: %v -> %v",
			clean.Records[0].Confidence, rerun.Records[0].Confidence)
	}
	if !rerun.Records[0].FeedbackAdjusted {
		t.Error("adjusted flag not set")
	}
	if clean.Records[0].FeedbackAdjusted {
		t.Error("run without history must not be flagged adjusted")
	}
}

func TestRun_FeedbackScopedToCategory(t *testing.T) {
	t.Parallel()

	history := []feedback.Entry{{
		AlertID:  "other",
		Category: alert.CategoryPatchDrift,
		Action:   feedback.ActionRejected,
		Reason:   "planned freeze",
	}}
	res := NewEngine(nil, 1, log.Nop(), nil).Run(context.Background(), []alert.Alert{
		testAlert("a", alert.CategoryOpenPort, alert.SeverityHigh),
	}, history)

	r := res.Records[0]
	if r.FeedbackAdjusted || r.Confidence != 0.7 {
		t.Errorf("other-category feedback leaked: %+v", r)
	}
}

func TestRun_MinSamplesGate(t *testing.T) {
	t.Parallel()

	history := []feedback.Entry{
		{Category: alert.CategoryOpenPort, Action: feedback.ActionApproved, AlertID: "1", Reason: "r"},
		{Category: alert.CategoryOpenPort, Action: feedback.ActionApproved, AlertID: "2", Reason: "r"},
	}
	a := testAlert("a", alert.CategoryOpenPort, alert.SeverityHigh)

	gated := NewEngine(nil, 3, log.Nop(), nil).Run(context.Background(), []alert.Alert{a}, history)
	if gated.Records[0].FeedbackAdjusted {
		t.Error("below min samples should leave confidence unadjusted")
	}

	open := NewEngine(nil, 2, log.Nop(), nil).Run(context.Background(), []alert.Alert{a}, history)
	if !open.Records[0].FeedbackAdjusted {
		t.Error("at min samples the adjustment should apply")
	}
}

func TestRun_OrderingDeterministic(t *testing.T) {
	t.Parallel()

	alerts := []alert.Alert{
		testAlert("bbb", alert.CategoryOpenPort, alert.SeverityMedium),
		testAlert("aaa", alert.CategoryOpenPort, alert.SeverityMedium),
		testAlert("ccc", alert.CategoryPatchDrift, alert.SeverityCritical),
		testAlert("ddd", alert.CategoryCorrelation, alert.SeverityHigh),
	}
	engine := NewEngine(nil, 1, log.Nop(), nil)

	res := engine.Run(context.Background(), alerts, nil)
	var ids []string
	for _, r := range res.Records {
		ids = append(ids, r.Alert.ID)
	}
	want := []string{"ccc", "ddd", "aaa", "bbb"} // risk 9, 8, 6, 6; medium tie by ID
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order = %v, want %v", ids, want)
		}
	}

	// shuffle input, same output order
	res2 := engine.Run(context.Background(), []alert.Alert{alerts[3], alerts[0], alerts[2], alerts[1]}, nil)
	for i, r := range res2.Records {
		if r.Alert.ID != want[i] {
			t.Fatalf("input order leaked into output: %v", res2.Records)
		}
	}
}

func TestFeedbackSummary_Deterministic(t *testing.T) {
	t.Parallel()

	stats := map[alert.Category]feedback.Stats{
		alert.CategoryPatchDrift: {Approved: 1},
		alert.CategoryOpenPort:   {Rejected: 2},
	}
	got := feedbackSummary(stats)
	want := "open_port: 0 approved / 2 rejected; patch_drift: 1 approved / 0 rejected"
	if got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestFileSet_NotAvailable(t *testing.T) {
	t.Parallel()

	_, err := FileSet{Path: t.TempDir() + "/triage.json"}.Load(context.Background())
	if !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("want ErrNotAvailable, got %v", err)
	}
}
