package detect

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the detection subsystem.
type Metrics struct {
	AlertsTotal *prometheus.CounterVec
	RowsSkipped *prometheus.CounterVec
	RunDuration prometheus.Histogram
}

// NewMetrics registers and returns detection metrics on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_detect_alerts_total",
			Help: "Alerts emitted by rule category and severity.",
		}, []string{"category", "severity"}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_detect_rows_skipped_total",
			Help: "Malformed input rows skipped by dataset.",
		}, []string{"dataset"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_detect_run_duration_seconds",
			Help:    "Duration of detection runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms .. ~5s
		}),
	}

	reg.MustRegister(
		m.AlertsTotal,
		m.RowsSkipped,
		m.RunDuration,
	)
	return m
}
