package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit engine.
type Metrics struct {
	AuditsRun     prometheus.Counter
	AuditFailures prometheus.Counter
	AuditDuration prometheus.Histogram
	Discrepancies *prometheus.CounterVec
}

// New creates all audit metrics against the given registerer. Tests pass a
// fresh registry; main passes the default one.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AuditsRun: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_audits_run_total",
			Help: "Total number of completed audit runs",
		}),
		AuditFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_audit_failures_total",
			Help: "Total number of audit runs aborted by collaborator failures",
		}),
		AuditDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rollcall_audit_duration_seconds",
			Help:    "Wall-clock duration of audit runs",
			Buckets: prometheus.DefBuckets,
		}),
		Discrepancies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_audit_discrepancies_total",
			Help: "Discrepancies found per audit run, by category",
		}, []string{"category"}),
	}
}

// ObserveRun records one completed audit run.
func (m *Metrics) ObserveRun(d time.Duration) {
	m.AuditsRun.Inc()
	m.AuditDuration.Observe(d.Seconds())
}

// ObserveFailure records one aborted audit run.
func (m *Metrics) ObserveFailure() {
	m.AuditFailures.Inc()
}

// AddDiscrepancies records discrepancy counts for a category.
func (m *Metrics) AddDiscrepancies(category string, n int) {
	if n > 0 {
		m.Discrepancies.WithLabelValues(category).Add(float64(n))
	}
}
