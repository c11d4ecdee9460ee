// Package monitor observes data access and raises security alerts when access
// patterns cross configured thresholds.
package monitor

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/audit"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/clock"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/interfaces"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/messaging"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

// Operations with dedicated checks
const (
	OperationExport = "export"
	OperationDelete = "delete"
	OperationStore  = "store"
)

// Options are the optional collaborators of a Monitor
type Options struct {
	Clock       interfaces.Clock
	Diagnostics interfaces.DiagnosticSink
	Registerer  prometheus.Registerer
	Logger      zerolog.Logger
}

// Monitor accumulates access statistics and raises alerts. All state is
// guarded by mu; alerts are dispatched after mu is released.
type Monitor struct {
	audit   interfaces.AuditLogger
	cfg     Config
	clock   interfaces.Clock
	diag    interfaces.DiagnosticSink
	logger  zerolog.Logger
	metrics *Metrics

	alertFeed  *messaging.Feed[types.SecurityAlert]
	accessFeed *messaging.Feed[types.DataAccessEvent]

	// metricTypes bounds the data_type label of the access metric
	metricTypes map[string]struct{}

	mu          sync.Mutex
	enabled     bool
	consent     interfaces.ConsentChecker
	stats       map[types.AccessKey]*types.AccessStats
	bursting    map[types.AccessKey]bool
	analysis    map[string]*types.AccessStats
	stored      map[string]int
	alerts      []types.SecurityAlert
	totalEvents int
}

// New creates an enabled monitor reporting to auditLogger
func New(auditLogger interfaces.AuditLogger, cfg Config, opts Options) (*Monitor, error) {
	if auditLogger == nil {
		return nil, fmt.Errorf("auditLogger is required for monitor.New")
	}
	opLogger := opts.Logger
	if opLogger.GetLevel() == zerolog.Disabled {
		opLogger = log.Logger
	}
	opLogger = opLogger.With().Str("component", "monitor").Logger()

	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	diag := opts.Diagnostics
	if diag == nil {
		diag = audit.NewZerologSink(opLogger)
	}

	metricTypes := make(map[string]struct{}, len(cfg.MetricDataTypes))
	for _, dt := range cfg.MetricDataTypes {
		metricTypes[dt] = struct{}{}
	}

	return &Monitor{
		audit:       auditLogger,
		cfg:         cfg.withDefaults(),
		clock:       clk,
		diag:        diag,
		logger:      opLogger,
		metrics:     NewMetrics(opts.Registerer),
		alertFeed:   messaging.NewFeed[types.SecurityAlert](),
		accessFeed:  messaging.NewFeed[types.DataAccessEvent](),
		enabled:     true,
		stats:       make(map[types.AccessKey]*types.AccessStats),
		bursting:    make(map[types.AccessKey]bool),
		analysis:    make(map[string]*types.AccessStats),
		stored:      make(map[string]int),
		metricTypes: metricTypes,
	}, nil
}

// SetConsentChecker sets the source of consent decisions for compliance checks
func (m *Monitor) SetConsentChecker(c interfaces.ConsentChecker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consent = c
}

// Alerts is the feed of raised alerts
func (m *Monitor) Alerts() *messaging.Feed[types.SecurityAlert] {
	return m.alertFeed
}

// AccessEvents is the feed of observed data access events
func (m *Monitor) AccessEvents() *messaging.Feed[types.DataAccessEvent] {
	return m.accessFeed
}

// Close closes the feeds
func (m *Monitor) Close() {
	m.alertFeed.Close()
	m.accessFeed.Close()
}

// EnableMonitoring turns the monitor on
func (m *Monitor) EnableMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
	m.logger.Info().Msg("Security monitoring enabled")
}

// DisableMonitoring turns the monitor off. No counters change and no alerts
// fire while disabled.
func (m *Monitor) DisableMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
	m.logger.Info().Msg("Security monitoring disabled")
}

func (m *Monitor) newAlert(now time.Time, typ types.AlertType, severity types.AlertSeverity, message string, md types.Metadata) types.SecurityAlert {
	return types.SecurityAlert{
		ID:        uuid.New().String(),
		Type:      typ,
		Severity:  severity,
		Message:   message,
		Timestamp: now,
		Metadata:  md,
	}
}

// MonitorDataAccess records an access and runs the access checks
func (m *Monitor) MonitorDataAccess(ctx context.Context, operation, dataType string, recordCount int) {
	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return
	}
	now := m.clock.Now()
	event := types.DataAccessEvent{
		Operation:   operation,
		DataType:    dataType,
		RecordCount: recordCount,
		Timestamp:   now,
	}
	alerts := m.recordAccessLocked(event)
	m.mu.Unlock()

	m.accessFeed.Publish(event)
	m.metrics.AccessEvents.WithLabelValues(operation, m.dataTypeLabel(dataType)).Inc()
	m.dispatch(ctx, alerts)
	m.audit.LogDataAccess(ctx, operation, dataType, recordCount)
}

func (m *Monitor) dataTypeLabel(dataType string) string {
	if _, ok := m.metricTypes[dataType]; ok {
		return dataType
	}
	return MetricOtherDataType
}

func (m *Monitor) recordAccessLocked(event types.DataAccessEvent) []types.SecurityAlert {
	key := types.AccessKey{Operation: event.Operation, DataType: event.DataType}
	st, ok := m.stats[key]
	if !ok {
		st = &types.AccessStats{}
		m.stats[key] = st
	}
	prev := st.LastAccess
	recent := st.Count > 0 && event.Timestamp.Sub(prev) < m.cfg.RapidAccessWindow
	st.Count++
	st.LastAccess = event.Timestamp
	m.totalEvents++

	var alerts []types.SecurityAlert
	md := types.NewMetadata(
		audit.FieldOperation, event.Operation,
		audit.FieldDataType, event.DataType,
		audit.FieldRecordCount, strconv.Itoa(event.RecordCount),
	)

	if !recent {
		delete(m.bursting, key)
	} else if st.Count > m.cfg.RapidAccessThreshold && !m.bursting[key] {
		m.bursting[key] = true
		alerts = append(alerts, m.newAlert(event.Timestamp, types.AlertSuspiciousAccess, types.AlertSeverityMedium,
			fmt.Sprintf("Rapid repeated %s access to %s (%d accesses)", event.Operation, event.DataType, st.Count),
			md.With("count", strconv.Itoa(st.Count))))
	}

	if event.Operation == OperationExport && event.RecordCount > m.cfg.LargeExportThreshold {
		alerts = append(alerts, m.newAlert(event.Timestamp, types.AlertLargeDataExport, types.AlertSeverityLow,
			fmt.Sprintf("Large export of %d %s records", event.RecordCount, event.DataType), md))
	}

	if event.Operation == OperationDelete && event.RecordCount > m.cfg.BulkDeletionThreshold {
		alerts = append(alerts, m.newAlert(event.Timestamp, types.AlertBulkDeletion, types.AlertSeverityHigh,
			fmt.Sprintf("Bulk deletion of %d %s records", event.RecordCount, event.DataType), md))
	}

	m.appendAlertsLocked(alerts)
	return alerts
}

// MonitorFileAnalysis checks a file name against the sensitive name patterns
// and counts repeated analysis of the same file.
func (m *Monitor) MonitorFileAnalysis(ctx context.Context, fileURL, analysisType string) {
	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return
	}
	now := m.clock.Now()
	name := strings.ToLower(path.Base(strings.ReplaceAll(fileURL, "\\", "/")))
	md := types.NewMetadata("file", fileURL, "analysisType", analysisType)

	var alerts []types.SecurityAlert
	pattern, sensitive := matchPattern(name, m.cfg.SensitiveNamePatterns)
	if sensitive {
		alerts = append(alerts, m.newAlert(now, types.AlertSensitiveFileAccess, types.AlertSeverityMedium,
			fmt.Sprintf("Analysis of potentially sensitive file %s", name),
			md.With("pattern", pattern)))
	}

	key := fileURL + "|" + analysisType
	st, ok := m.analysis[key]
	if !ok {
		st = &types.AccessStats{}
		m.analysis[key] = st
	}
	st.Count++
	st.LastAccess = now
	if st.Count == m.cfg.ExcessiveAnalysisThreshold+1 {
		alerts = append(alerts, m.newAlert(now, types.AlertExcessiveAnalysis, types.AlertSeverityLow,
			fmt.Sprintf("File %s analyzed more than %d times", name, m.cfg.ExcessiveAnalysisThreshold),
			md.With("count", strconv.Itoa(st.Count))))
	}
	m.appendAlertsLocked(alerts)
	m.mu.Unlock()

	if sensitive {
		m.audit.LogSensitiveDataDetected(ctx, "sensitive_file", fileURL)
	}
	m.dispatch(ctx, alerts)
}

func matchPattern(name string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if p != "" && strings.Contains(name, strings.ToLower(p)) {
			return p, true
		}
	}
	return "", false
}

// MonitorFileStorage adds recordCount to the stored total for dataType and
// alerts when the total passes the storage limit.
func (m *Monitor) MonitorFileStorage(ctx context.Context, dataType string, recordCount int) {
	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return
	}
	now := m.clock.Now()
	bucket := "stored_" + dataType
	total := m.stored[bucket] + recordCount
	m.stored[bucket] = total

	var alerts []types.SecurityAlert
	if total > m.cfg.StorageLimit {
		alerts = append(alerts, m.newAlert(now, types.AlertStorageLimit, types.AlertSeverityMedium,
			fmt.Sprintf("Stored %s records (%d) exceed the limit of %d", dataType, total, m.cfg.StorageLimit),
			types.NewMetadata(audit.FieldDataType, dataType, "total", strconv.Itoa(total))))
	}
	m.appendAlertsLocked(alerts)
	m.mu.Unlock()

	m.dispatch(ctx, alerts)
	m.MonitorDataAccess(ctx, OperationStore, dataType, recordCount)
}

// MonitorDataDeletion reports a deletion and lowers the stored total
func (m *Monitor) MonitorDataDeletion(ctx context.Context, dataType string, recordCount int) {
	m.mu.Lock()
	if m.enabled {
		bucket := "stored_" + dataType
		if remaining := m.stored[bucket] - recordCount; remaining > 0 {
			m.stored[bucket] = remaining
		} else {
			delete(m.stored, bucket)
		}
	}
	m.mu.Unlock()

	m.MonitorDataAccess(ctx, OperationDelete, dataType, recordCount)
}

// ValidatePrivacyCompliance reports whether processing dataType is allowed.
// Personal data needs recorded consent. A violation raises a high severity
// alert. The check is always written to the audit trail while enabled.
func (m *Monitor) ValidatePrivacyCompliance(ctx context.Context, dataType string, containsPersonalData bool) bool {
	m.mu.Lock()
	consent := m.consent
	enabled := m.enabled
	m.mu.Unlock()

	compliant := !containsPersonalData || (consent != nil && consent.HasConsent(dataType))
	if !enabled {
		return compliant
	}

	details := fmt.Sprintf("dataType=%s personalData=%t", dataType, containsPersonalData)
	if !compliant {
		m.mu.Lock()
		alert := m.newAlert(m.clock.Now(), types.AlertPrivacyViolation, types.AlertSeverityHigh,
			fmt.Sprintf("Personal data of type %s processed without consent", dataType),
			types.NewMetadata(audit.FieldDataType, dataType))
		m.appendAlertsLocked([]types.SecurityAlert{alert})
		m.mu.Unlock()
		m.dispatch(ctx, []types.SecurityAlert{alert})
	}
	m.audit.LogPrivacyComplianceCheck(ctx, "data_processing", compliant, details)
	return compliant
}

// appendAlertsLocked adds alerts to the recent buffer, evicting the oldest
func (m *Monitor) appendAlertsLocked(alerts []types.SecurityAlert) {
	if len(alerts) == 0 {
		return
	}
	m.alerts = append(m.alerts, alerts...)
	if over := len(m.alerts) - m.cfg.MaxRecentAlerts; over > 0 {
		kept := make([]types.SecurityAlert, m.cfg.MaxRecentAlerts)
		copy(kept, m.alerts[over:])
		m.alerts = kept
	}
}

// dispatch publishes alerts outside the lock
func (m *Monitor) dispatch(ctx context.Context, alerts []types.SecurityAlert) {
	for _, alert := range alerts {
		m.alertFeed.Publish(alert)
		m.metrics.Alerts.WithLabelValues(string(alert.Type), alert.Severity.String()).Inc()

		fields := append(types.NewMetadata("alertId", alert.ID, "alertType", string(alert.Type)), alert.Metadata...)
		switch alert.Severity {
		case types.AlertSeverityHigh:
			m.diag.Emit(types.SeverityError, alert.Message, fields)
			m.audit.LogSecurityViolation(ctx, string(alert.Type), alert.Message)
		case types.AlertSeverityMedium:
			m.diag.Emit(types.SeverityWarning, alert.Message, fields)
		default:
			m.diag.Emit(types.SeverityInfo, alert.Message, fields)
		}
	}
}
