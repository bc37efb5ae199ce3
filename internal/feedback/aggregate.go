package feedback

import (
	"math"

	"github.com/linnemanlabs/sentinel/internal/alert"
)

// Adjustment bounds. Approvals nudge confidence up by 0.03 each, capped
// at +0.15; rejections nudge down by 0.04 each, capped at -0.20. The
// result is clamped to [0.05, 0.99].
const (
	approvalStep  = 0.03
	approvalCap   = 0.15
	rejectionStep = 0.04
	rejectionCap  = 0.20
	confidenceMin = 0.05
	confidenceMax = 0.99
)

// Stats aggregates verdict counts for one alert category.
type Stats struct {
	Approved int
	Rejected int
}

// Total is the sample size behind the stats.
func (s Stats) Total() int { return s.Approved + s.Rejected }

// ApprovalRatio is approved/total, or 0 with no history.
func (s Stats) ApprovalRatio() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(s.Approved) / float64(s.Total())
}

// AdjustConfidence applies the feedback nudge to a base confidence.
// Categories with fewer than minSamples verdicts leave the base
// untouched and report adjusted=false. The function is pure: the same
// stats and base always yield the same result.
func (s Stats) AdjustConfidence(base float64, minSamples int) (adjusted float64, wasAdjusted bool) {
	if minSamples < 1 {
		minSamples = 1
	}
	if s.Total() < minSamples {
		return base, false
	}

	var delta float64
	switch {
	case s.Approved > s.Rejected:
		delta = math.Min(approvalCap, float64(s.Approved)*approvalStep)
	case s.Rejected > s.Approved:
		delta = -math.Min(rejectionCap, float64(s.Rejected)*rejectionStep)
	}

	adjusted = base + delta
	if adjusted < confidenceMin {
		adjusted = confidenceMin
	}
	if adjusted > confidenceMax {
		adjusted = confidenceMax
	}
	return round2(adjusted), true
}

// Aggregate groups the full feedback sequence by alert category.
// Entries with an action outside the closed set are ignored rather than
// failing the aggregation.
func Aggregate(entries []Entry) map[alert.Category]Stats {
	stats := make(map[alert.Category]Stats)
	for _, e := range entries {
		s := stats[e.Category]
		switch e.Action {
		case ActionApproved:
			s.Approved++
		case ActionRejected:
			s.Rejected++
		default:
			continue
		}
		stats[e.Category] = s
	}
	return stats
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
