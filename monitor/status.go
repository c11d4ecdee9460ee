package monitor

import (
	"context"
	"time"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

// GetMonitoringStatus returns a point-in-time view of the monitor
func (m *Monitor) GetMonitoringStatus() types.MonitoringStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.MonitoringStatus{
		IsEnabled:         m.enabled,
		ActiveAlerts:      len(m.alerts),
		TotalAccessEvents: m.totalEvents,
		TrackedPatterns:   len(m.stats),
	}
}

// GetRecentAlerts returns up to limit alerts, newest first. A limit of zero
// or less returns every buffered alert.
func (m *Monitor) GetRecentAlerts(limit int) []types.SecurityAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.alerts) {
		limit = len(m.alerts)
	}
	out := make([]types.SecurityAlert, 0, limit)
	for i := len(m.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.alerts[i])
	}
	return out
}

// GetAccessStatistics returns a copy of the access counters keyed by "operation_dataType"
func (m *Monitor) GetAccessStatistics() map[string]types.AccessStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]types.AccessStats, len(m.stats))
	for k, v := range m.stats {
		out[k.String()] = *v
	}
	return out
}

// GetSecurityHealth scores the buffered alerts. Each high alert costs 20
// points, medium 10 and low 5, from a start of 100.
func (m *Monitor) GetSecurityHealth() types.SecurityHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	health := types.SecurityHealth{CheckedAt: m.clock.Now()}
	for _, a := range m.alerts {
		switch a.Severity {
		case types.AlertSeverityHigh:
			health.HighAlerts++
		case types.AlertSeverityMedium:
			health.MediumAlerts++
		default:
			health.LowAlerts++
		}
	}
	score := 100 - 20*health.HighAlerts - 10*health.MediumAlerts - 5*health.LowAlerts
	if score < 0 {
		score = 0
	}
	health.Score = score
	switch {
	case score < 50:
		health.Status = types.HealthCritical
	case score < 80:
		health.Status = types.HealthWarning
	default:
		health.Status = types.HealthGood
	}
	return health
}

// PruneAccessStats drops access counters not touched within the access
// retention and returns how many were removed. The maps are rebuilt and
// swapped in so readers never observe a partial sweep.
func (m *Monitor) PruneAccessStats(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.clock.Now().Add(-m.cfg.AccessRetention)
	stats := make(map[types.AccessKey]*types.AccessStats, len(m.stats))
	bursting := make(map[types.AccessKey]bool, len(m.bursting))
	for k, v := range m.stats {
		if v.LastAccess.Before(cutoff) {
			continue
		}
		stats[k] = v
		if m.bursting[k] {
			bursting[k] = true
		}
	}
	analysis := make(map[string]*types.AccessStats, len(m.analysis))
	for k, v := range m.analysis {
		if !v.LastAccess.Before(cutoff) {
			analysis[k] = v
		}
	}

	removed := len(m.stats) - len(stats)
	m.stats, m.bursting, m.analysis = stats, bursting, analysis
	if removed > 0 {
		m.logger.Debug().Int("removed", removed).Msg("Pruned stale access statistics")
	}
	return removed, nil
}

// PruneAlerts drops buffered alerts older than the alert retention
func (m *Monitor) PruneAlerts(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.clock.Now().Add(-m.cfg.AlertRetention)
	kept := make([]types.SecurityAlert, 0, len(m.alerts))
	for _, a := range m.alerts {
		if !a.Timestamp.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	removed := len(m.alerts) - len(kept)
	m.alerts = kept
	if removed > 0 {
		m.logger.Debug().Int("removed", removed).Msg("Pruned expired alerts")
	}
	return removed, nil
}

// Intervals returns the access and alert prune intervals
func (m *Monitor) Intervals() (access, alerts time.Duration) {
	return m.cfg.AccessPruneInterval, m.cfg.AlertPruneInterval
}
