package alert

import (
	"testing"
	"time"
)

func TestNewID_Deterministic(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	a := NewID(CategoryImpossibleTravel, "alice", ts)
	b := NewID(CategoryImpossibleTravel, "alice", ts)
	if a != b {
		t.Errorf("same inputs produced different IDs: %q vs %q", a, b)
	}
	if len(a) != 32 {
		t.Errorf("ID length = %d, want 32 hex chars", len(a))
	}
}

func TestNewID_DistinctInputs(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	base := NewID(CategoryOpenPort, "10.0.0.5:8080", ts)

	if got := NewID(CategoryOpenPort, "10.0.0.5:8081", ts); got == base {
		t.Error("different subjects produced the same ID")
	}
	if got := NewID(CategoryCorrelation, "10.0.0.5:8080", ts); got == base {
		t.Error("different categories produced the same ID")
	}
	if got := NewID(CategoryOpenPort, "10.0.0.5:8080", ts.Add(time.Second)); got == base {
		t.Error("different timestamps produced the same ID")
	}
}

func TestNewID_TimezoneInsensitive(t *testing.T) {
	t.Parallel()

	utc := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	est := utc.In(time.FixedZone("EST", -5*3600))
	if NewID(CategoryPatchDrift, "db-01", utc) != NewID(CategoryPatchDrift, "db-01", est) {
		t.Error("same instant in different zones produced different IDs")
	}
}

func TestSeverityRank_Ordering(t *testing.T) {
	t.Parallel()

	ordered := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank() <= ordered[i-1].Rank() {
			t.Errorf("%s should rank above %s", ordered[i], ordered[i-1])
		}
	}
	if Severity("bogus").Rank() != -1 {
		t.Error("unknown severity should rank -1")
	}
}

func TestSeverityEscalate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want Severity
	}{
		{SeverityLow, SeverityMedium},
		{SeverityMedium, SeverityHigh},
		{SeverityHigh, SeverityCritical},
		{SeverityCritical, SeverityCritical},
	}
	for _, tc := range cases {
		if got := tc.in.Escalate(); got != tc.want {
			t.Errorf("Escalate(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestCategoryValid(t *testing.T) {
	t.Parallel()

	for _, c := range Categories() {
		if !c.Valid() {
			t.Errorf("%s should be valid", c)
		}
	}
	if Category("splunk_anomaly").Valid() {
		t.Error("undefined category should be invalid")
	}
}
