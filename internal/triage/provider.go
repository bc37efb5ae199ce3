package triage

import (
	"context"

	"github.com/linnemanlabs/sentinel/internal/alert"
)

// Provider is the interface for the external reasoning backend.
// Implementations must be time-bounded; any error degrades the engine
// to the deterministic fallback narrative.
type Provider interface {
	Assess(ctx context.Context, req *AssessRequest) (*Assessment, error)
}

// AssessRequest carries everything the reasoning call needs: the alert,
// the deterministic base numbers, and a condensed feedback summary for
// the alert's category.
type AssessRequest struct {
	Alert              alert.Alert
	BaseRisk           int
	BaseConfidence     float64
	AdjustedConfidence float64
	FeedbackSummary    string
}

// Assessment is the structured reasoning output. RiskScore 0 means the
// model did not provide one; the engine only accepts scores in 1..10.
type Assessment struct {
	RiskScore   int
	Summary     string
	Remediation []string
	Impact      string
}
