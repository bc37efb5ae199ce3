package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	RunsTotal      prometheus.Counter
	RunDuration    prometheus.Histogram
	RecordsTotal   *prometheus.CounterVec
	FallbacksTotal prometheus.Counter
	AdjustedTotal  prometheus.Counter
	LLMCallsTotal  *prometheus.CounterVec
	LLMDuration    prometheus.Histogram
}

// NewMetrics registers and returns triage metrics on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_triage_runs_total",
			Help: "Total triage runs.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_triage_run_duration_seconds",
			Help:    "Duration of triage runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s .. ~51s
		}),
		RecordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_triage_records_total",
			Help: "Triage records produced by alert severity.",
		}, []string{"severity"}),
		FallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_triage_fallbacks_total",
			Help: "Records that used the deterministic fallback narrative.",
		}),
		AdjustedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_triage_feedback_adjusted_total",
			Help: "Records whose confidence was adjusted by feedback history.",
		}),
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_llm_calls_total",
			Help: "Reasoning provider calls by outcome.",
		}, []string{"outcome"}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_llm_call_duration_seconds",
			Help:    "Duration of reasoning provider calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.RecordsTotal,
		m.FallbacksTotal,
		m.AdjustedTotal,
		m.LLMCallsTotal,
		m.LLMDuration,
	)
	return m
}
