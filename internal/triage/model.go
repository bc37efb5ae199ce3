package triage

import (
	"time"

	"github.com/linnemanlabs/sentinel/internal/alert"
)

// Record is the enriched view of an alert for presentation. The whole
// set is regenerated on every run; records are never patched in place.
type Record struct {
	Alert            alert.Alert `json:"alert"`
	RunID            string      `json:"run_id"`
	RiskScore        int         `json:"risk_score"`
	Confidence       float64     `json:"confidence"`
	Analysis         string      `json:"analysis"`
	Remediation      []string    `json:"remediation"`
	FeedbackAdjusted bool        `json:"feedback_adjusted"`
	Fallback         bool        `json:"fallback"`
	CreatedAt        time.Time   `json:"created_at"`
}

// baseRiskConfidence is the fixed severity mapping. It is deliberately
// not model-derived so output stays reproducible when the reasoning
// service is unavailable.
func baseRiskConfidence(s alert.Severity) (risk int, confidence float64) {
	switch s {
	case alert.SeverityCritical:
		return 9, 0.8
	case alert.SeverityHigh:
		return 8, 0.7
	case alert.SeverityMedium:
		return 6, 0.6
	case alert.SeverityLow:
		return 4, 0.5
	default:
		return 5, 0.5
	}
}
