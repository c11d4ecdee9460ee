package privacy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the privacy counters
type Metrics struct {
	ConsentDecisions *prometheus.CounterVec
	Deletions        prometheus.Counter
}

// NewMetrics registers the privacy metrics with reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConsentDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "securityd_privacy_consent_decisions_total",
				Help: "Total number of consent decisions recorded",
			},
			[]string{"granted"},
		),
		Deletions: factory.NewCounter(prometheus.CounterOpts{
			Name: "securityd_privacy_deleted_records_total",
			Help: "Total number of records deleted on behalf of data subjects",
		}),
	}
}
