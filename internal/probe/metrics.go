package probe

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/deixis/startup/internal/report"
)

// Metrics counts probe outcomes.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the probe metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "startup_probe_runs_total",
				Help: "Probe runs by kind and status",
			},
			[]string{"kind", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "startup_probe_duration_seconds",
				Help:    "Wall time of probed processes",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"kind"},
		),
	}
	reg.MustRegister(m.runs, m.duration)
	return m
}

func (m *Metrics) observe(r *report.RunResult) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(r.Kind), r.Status()).Inc()
	m.duration.WithLabelValues(string(r.Kind)).Observe(float64(r.DurationMS) / 1000)
}
