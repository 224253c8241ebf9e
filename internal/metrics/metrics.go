// Package metrics exposes authentication counters in Prometheus format. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	attempts      *prometheus.CounterVec
	directoryBind prometheus.Histogram
	restores      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Authentication attempts by strategy, status and reason.",
			},
			[]string{"strategy", "status", "reason"},
		),
		directoryBind: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "auth_directory_bind_seconds",
			Help:    "Duration of directory delegation round trips.",
			Buckets: prometheus.DefBuckets,
		}),
		restores: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_restores_total",
				Help: "Session restores by status.",
			},
			[]string{"status", "reason"},
		),
	}
	reg.MustRegister(m.attempts, m.directoryBind, m.restores)
	return m
}

func (m *Metrics) ObserveAttempt(strategy, status, reason string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(strategy, status, reason).Inc()
}

func (m *Metrics) ObserveDirectoryBind(d time.Duration) {
	if m == nil {
		return
	}
	m.directoryBind.Observe(d.Seconds())
}

func (m *Metrics) ObserveRestore(status, reason string) {
	if m == nil {
		return
	}
	m.restores.WithLabelValues(status, reason).Inc()
}
