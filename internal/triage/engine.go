package triage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/sentinel/internal/alert"
	"github.com/linnemanlabs/sentinel/internal/feedback"
)

// Engine turns a set of alerts plus the feedback history into the full
// triage set. It has no side effects: the caller owns the bulk write.
type Engine struct {
	provider   Provider // nil disables reasoning; every record uses the fallback
	minSamples int
	logger     log.Logger
	metrics    *Metrics
	now        func() time.Time
}

// NewEngine creates a triage engine. provider and metrics may be nil.
func NewEngine(provider Provider, minSamples int, logger log.Logger, m *Metrics) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		provider:   provider,
		minSamples: minSamples,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

// RunResult is a completed triage run.
type RunResult struct {
	RunID     string
	Records   []Record
	Fallbacks int
	Adjusted  int
}

// Run regenerates the triage set wholesale. Records come back sorted
// descending by risk score, ties broken by severity rank then alert ID,
// so identical input yields identical output.
func (e *Engine) Run(ctx context.Context, alerts []alert.Alert, history []feedback.Entry) *RunResult {
	start := time.Now()
	runID := ulid.Make().String()
	L := e.logger.With("run_id", runID)

	stats := feedback.Aggregate(history)
	summary := feedbackSummary(stats)

	res := &RunResult{RunID: runID, Records: make([]Record, 0, len(alerts))}
	for i := range alerts {
		rec := e.triageOne(ctx, L, runID, alerts[i], stats, summary)
		if rec.Fallback {
			res.Fallbacks++
		}
		if rec.FeedbackAdjusted {
			res.Adjusted++
		}
		res.Records = append(res.Records, rec)
	}

	sort.Slice(res.Records, func(i, j int) bool {
		a, b := res.Records[i], res.Records[j]
		if a.RiskScore != b.RiskScore {
			return a.RiskScore > b.RiskScore
		}
		if ar, br := a.Alert.Severity.Rank(), b.Alert.Severity.Rank(); ar != br {
			return ar > br
		}
		return a.Alert.ID < b.Alert.ID
	})

	if e.metrics != nil {
		e.metrics.RunsTotal.Inc()
		e.metrics.RunDuration.Observe(time.Since(start).Seconds())
		for _, r := range res.Records {
			e.metrics.RecordsTotal.WithLabelValues(string(r.Alert.Severity)).Inc()
		}
		e.metrics.FallbacksTotal.Add(float64(res.Fallbacks))
		e.metrics.AdjustedTotal.Add(float64(res.Adjusted))
	}

	L.Info(ctx, "triage run complete",
		"alerts", len(alerts),
		"fallbacks", res.Fallbacks,
		"feedback_adjusted", res.Adjusted,
		"feedback_entries", len(history),
		"duration", time.Since(start).Seconds(),
	)
	return res
}

func (e *Engine) triageOne(ctx context.Context, L log.Logger, runID string, a alert.Alert, stats map[alert.Category]feedback.Stats, summary string) Record {
	baseRisk, baseConf := baseRiskConfidence(a.Severity)
	conf, adjusted := stats[a.Category].AdjustConfidence(baseConf, e.minSamples)

	rec := Record{
		Alert:            a,
		RunID:            runID,
		RiskScore:        baseRisk,
		Confidence:       conf,
		FeedbackAdjusted: adjusted,
		CreatedAt:        e.now().UTC(),
	}

	assessment, err := e.assess(ctx, &AssessRequest{
		Alert:              a,
		BaseRisk:           baseRisk,
		BaseConfidence:     baseConf,
		AdjustedConfidence: conf,
		FeedbackSummary:    summary,
	})
	if err != nil {
		L.Warn(ctx, "reasoning unavailable, using fallback narrative",
			"alert_id", a.ID, "category", string(a.Category), "error", err)
		rec.Fallback = true
		rec.Analysis = fallbackNarrative(a)
		rec.Remediation = remediationFor(a.Category)
		return rec
	}

	// Severity and confidence are never model-controlled; the model may
	// only move the risk score, and only within bounds.
	if assessment.RiskScore >= 1 && assessment.RiskScore <= 10 {
		rec.RiskScore = assessment.RiskScore
	}
	rec.Analysis = assessment.Summary
	if assessment.Impact != "" {
		rec.Analysis += "\n\nOperational impact: " + assessment.Impact
	}
	rec.Remediation = assessment.Remediation
	if len(rec.Remediation) == 0 {
		rec.Remediation = remediationFor(a.Category)
	}
	return rec
}

var errNoProvider = fmt.Errorf("no reasoning provider configured")

func (e *Engine) assess(ctx context.Context, req *AssessRequest) (*Assessment, error) {
	if e.provider == nil {
		return nil, errNoProvider
	}
	start := time.Now()
	assessment, err := e.provider.Assess(ctx, req)
	if e.metrics != nil {
		e.metrics.LLMDuration.Observe(time.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		e.metrics.LLMCallsTotal.WithLabelValues(outcome).Inc()
	}
	return assessment, err
}

// feedbackSummary condenses the per-category stats into one line for
// the reasoning prompt, sorted by category for determinism.
func feedbackSummary(stats map[alert.Category]feedback.Stats) string {
	if len(stats) == 0 {
		return "No prior analyst feedback on record."
	}
	cats := make([]string, 0, len(stats))
	for c := range stats {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)

	parts := make([]string, 0, len(cats))
	for _, c := range cats {
		s := stats[alert.Category(c)]
		parts = append(parts, fmt.Sprintf("%s: %d approved / %d rejected", c, s.Approved, s.Rejected))
	}
	return strings.Join(parts, "; ")
}
