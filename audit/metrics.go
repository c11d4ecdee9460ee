package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the audit queue counters
type Metrics struct {
	Dropped   prometheus.Counter
	Persisted prometheus.Counter
	Failed    prometheus.Counter
	Depth     prometheus.Gauge
}

// NewMetrics registers the audit metrics with reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "securityd_audit_dropped_total",
			Help: "Total number of audit events dropped because the queue was full or closed",
		}),
		Persisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "securityd_audit_persisted_total",
			Help: "Total number of audit events encrypted and appended to the trail",
		}),
		Failed: factory.NewCounter(prometheus.CounterOpts{
			Name: "securityd_audit_failed_total",
			Help: "Total number of audit events that could not be encrypted or persisted",
		}),
		Depth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "securityd_audit_queue_depth",
			Help: "Current depth of the audit queue",
		}),
	}
}
