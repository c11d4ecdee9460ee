package privacy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

// CheckGDPRCompliance reports processing of personal data without consent
// and an excessive retention period as violations. Compliance failures are
// returned as data, never as errors.
func (m *Manager) CheckGDPRCompliance(ctx context.Context) types.ComplianceReport {
	m.mu.Lock()
	history := append([]types.DataProcessingRecord(nil), m.history...)
	settings := m.settings
	m.mu.Unlock()

	now := m.clock.Now()
	report := types.ComplianceReport{
		Violations:      []string{},
		Recommendations: []string{},
		CheckedAt:       now,
	}

	reported := make(map[string]bool)
	stale := 0
	staleBefore := now.Add(-m.cfg.StaleRecordAge)
	for _, rec := range history {
		if rec.Timestamp.Before(staleBefore) {
			stale++
		}
		if rec.ConsentGiven || reported[rec.DataType] || !m.ContainsPersonalData(rec.DataType) {
			continue
		}
		reported[rec.DataType] = true
		report.Violations = append(report.Violations,
			fmt.Sprintf("Personal data of type '%s' processed without consent", rec.DataType))
	}

	if settings.DataRetentionDays > m.cfg.MaxRetentionDays {
		report.Violations = append(report.Violations,
			fmt.Sprintf("Data retention period of %d days exceeds the maximum of %d days",
				settings.DataRetentionDays, m.cfg.MaxRetentionDays))
	}

	if stale > 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Consider deleting %d processing records older than %d days",
				stale, int(m.cfg.StaleRecordAge/(24*time.Hour))))
	}
	if !settings.AnalyticsEnabled {
		report.Recommendations = append(report.Recommendations,
			"Analytics is disabled; usage data is not being collected")
	}

	report.IsCompliant = len(report.Violations) == 0
	m.audit.LogPrivacyComplianceCheck(ctx, CheckGDPR, report.IsCompliant,
		strings.Join(report.Violations, "; "))
	if !report.IsCompliant {
		m.logger.Warn().Strs("violations", report.Violations).Msg("GDPR compliance check failed")
	}
	return report
}

// RunComplianceSweep is the periodic form of CheckGDPRCompliance
func (m *Manager) RunComplianceSweep(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.CheckGDPRCompliance(ctx)
	return nil
}

// ComplianceInterval is the period of the compliance sweep
func (m *Manager) ComplianceInterval() time.Duration {
	return m.cfg.ComplianceInterval
}

// ExportUserData serializes settings, consents and the processing history.
// Writing the result anywhere is the caller's responsibility.
func (m *Manager) ExportUserData(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	export := types.UserDataExport{
		PrivacySettings:       m.settings,
		ConsentStatus:         make(map[string]bool, len(m.consents)),
		DataProcessingRecords: append([]types.DataProcessingRecord{}, m.history...),
		ExportedAt:            m.clock.Now(),
	}
	for k, v := range m.consents {
		export.ConsentStatus[k] = v
	}
	m.mu.Unlock()

	data, err := json.Marshal(export)
	if err != nil {
		return nil, fmt.Errorf("marshal user data export: %w", err)
	}

	m.audit.LogPrivacyComplianceCheck(ctx, CheckDataExport, true,
		fmt.Sprintf("records=%d bytes=%d", len(export.DataProcessingRecords), len(data)))
	m.monitor.MonitorDataAccess(ctx, "export", "user_data", len(export.DataProcessingRecords))
	return data, nil
}
