// Package alert defines the detection output model shared by the
// detection engine, the triage engine, and the review API.
package alert

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Severity is the ordered classification assigned by the rule that
// created an alert. It is fixed at creation and never mutated downstream.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordering of a severity, low=0 .. critical=3.
// Unknown values rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// Valid reports whether s is one of the four defined severities.
func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// Escalate returns the severity one level up, capped at critical.
func (s Severity) Escalate() Severity {
	switch s {
	case SeverityLow:
		return SeverityMedium
	case SeverityMedium:
		return SeverityHigh
	case SeverityHigh:
		return SeverityCritical
	default:
		return s
	}
}

// Category identifies the detection rule that produced an alert.
// The set is closed: every alert carries exactly one of these.
type Category string

const (
	CategoryImpossibleTravel Category = "impossible_travel"
	CategoryPatchDrift       Category = "patch_drift"
	CategoryOpenPort         Category = "open_port"
	CategoryCorrelation      Category = "correlation"
)

// Categories lists all defined categories in a stable order.
func Categories() []Category {
	return []Category{
		CategoryImpossibleTravel,
		CategoryPatchDrift,
		CategoryOpenPort,
		CategoryCorrelation,
	}
}

// Valid reports whether c is a defined category.
func (c Category) Valid() bool {
	switch c {
	case CategoryImpossibleTravel, CategoryPatchDrift, CategoryOpenPort, CategoryCorrelation:
		return true
	default:
		return false
	}
}

// Alert is a single detection result. Created exclusively by the
// detection engine; downstream stages treat it as immutable.
type Alert struct {
	ID          string         `json:"id"`
	Category    Category       `json:"category"`
	Severity    Severity       `json:"severity"`
	Subject     string         `json:"subject"`
	Description string         `json:"description"`
	Evidence    map[string]any `json:"evidence"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewID derives a stable alert identifier from the rule category, the
// primary subject, and the anchoring event timestamp. Re-running
// detection over identical input yields identical IDs.
func NewID(c Category, subject string, ts time.Time) string {
	sum := sha256.Sum256([]byte(string(c) + "|" + subject + "|" + ts.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:16])
}
