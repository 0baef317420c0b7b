package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-wide Prometheus metrics shared across handlers.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	BindsApplied    prometheus.Counter
	BindsRejected   *prometheus.CounterVec
}

// New creates all shared Prometheus metrics against the given registerer.
// Tests pass a fresh registry; main passes the default one.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rollcall_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		BindsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_binds_applied_total",
			Help: "Total number of binding mutations applied",
		}),
		BindsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_binds_rejected_total",
			Help: "Total number of binding mutations rejected, by reason",
		}, []string{"reason"}),
	}
}

// IncrementBindsApplied increments the applied binding mutation counter by 1.
func (m *Metrics) IncrementBindsApplied() {
	m.BindsApplied.Inc()
}

// IncrementBindsRejected increments the rejection counter for a reason.
func (m *Metrics) IncrementBindsRejected(reason string) {
	m.BindsRejected.WithLabelValues(reason).Inc()
}
