package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the monitor counters
type Metrics struct {
	AccessEvents *prometheus.CounterVec
	Alerts       *prometheus.CounterVec
}

// NewMetrics registers the monitor metrics with reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AccessEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "securityd_monitor_access_events_total",
				Help: "Total number of monitored data access events",
			},
			[]string{"operation", "data_type"},
		),
		Alerts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "securityd_monitor_alerts_total",
				Help: "Total number of security alerts raised",
			},
			[]string{"type", "severity"},
		),
	}
}
