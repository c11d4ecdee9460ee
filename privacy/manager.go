// Package privacy keeps consent decisions and the data processing history, and
// runs deletion, export and GDPR compliance checks over them.
package privacy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

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

// ErrStorage wraps failures of the data or settings store
var ErrStorage = errors.New("privacy storage error")

// Compliance check names written to the audit trail
const (
	CheckConsentRequest        = "consent_request"
	CheckConsentGiven          = "consent_given"
	CheckConsentRevoked        = "consent_revoked"
	CheckSettingsUpdate        = "settings_update"
	CheckDeletionStarted       = "data_deletion_started"
	CheckDeletionCompleted     = "data_deletion_completed"
	CheckDeletionFailed        = "data_deletion_failed"
	CheckRightToBeForgotten    = "right_to_be_forgotten_started"
	CheckRightToBeForgottenEnd = "right_to_be_forgotten_completed"
	CheckGDPR                  = "gdpr"
	CheckDataExport            = "data_export"
)

// Options are the optional collaborators of a Manager
type Options struct {
	Settings    interfaces.SettingsStore
	Clock       interfaces.Clock
	Diagnostics interfaces.DiagnosticSink
	Registerer  prometheus.Registerer
	Logger      zerolog.Logger
}

// Manager tracks consent and processing history. All state is guarded by mu;
// calls into the monitor and audit logger happen after mu is released.
type Manager struct {
	monitor       interfaces.SecurityMonitor
	audit         interfaces.AuditLogger
	data          interfaces.DataStore
	settingsStore interfaces.SettingsStore
	cfg           Config
	clock         interfaces.Clock
	diag          interfaces.DiagnosticSink
	logger        zerolog.Logger
	metrics       *Metrics
	consentFeed   *messaging.Feed[types.ConsentRequest]

	// pending tracks deletions started by RevokeConsent
	pending sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	settings types.PrivacySettings
	consents map[string]bool
	history  []types.DataProcessingRecord
}

// NewManager creates a manager and loads stored settings when a settings store is given
func NewManager(ctx context.Context, monitor interfaces.SecurityMonitor, auditLogger interfaces.AuditLogger, data interfaces.DataStore, cfg Config, opts Options) (*Manager, error) {
	if monitor == nil {
		return nil, fmt.Errorf("monitor is required for NewManager")
	}
	if auditLogger == nil {
		return nil, fmt.Errorf("auditLogger is required for NewManager")
	}
	if data == nil {
		return nil, fmt.Errorf("data store is required for NewManager")
	}
	opLogger := opts.Logger
	if opLogger.GetLevel() == zerolog.Disabled {
		opLogger = log.Logger
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	cfg = cfg.withDefaults()
	opLogger = opLogger.With().Str("component", "privacy").Logger()
	diag := opts.Diagnostics
	if diag == nil {
		diag = audit.NewZerologSink(opLogger)
	}

	m := &Manager{
		monitor:       monitor,
		audit:         auditLogger,
		data:          data,
		settingsStore: opts.Settings,
		cfg:           cfg,
		clock:         clk,
		diag:          diag,
		logger:        opLogger,
		metrics:       NewMetrics(opts.Registerer),
		consentFeed:   messaging.NewFeed[types.ConsentRequest](),
		settings:      cfg.Defaults,
		consents:      make(map[string]bool),
	}

	if m.settingsStore != nil {
		stored, ok, err := m.settingsStore.LoadSettings(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: load settings: %w", ErrStorage, err)
		}
		if ok {
			m.settings = stored
		}
	}
	return m, nil
}

// ConsentRequests is the feed notified when consent for a new data type is needed
func (m *Manager) ConsentRequests() *messaging.Feed[types.ConsentRequest] {
	return m.consentFeed
}

// Close waits for pending deletions and closes the consent feed. Consent
// revoked after Close no longer starts a deletion.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.Wait()
	m.consentFeed.Close()
}

// Wait blocks until deletions started by RevokeConsent have finished
func (m *Manager) Wait() {
	m.pending.Wait()
}

// GetSettings returns the current privacy settings
func (m *Manager) GetSettings() types.PrivacySettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// UpdateSettings replaces the settings and persists them
func (m *Manager) UpdateSettings(ctx context.Context, settings types.PrivacySettings) error {
	m.mu.Lock()
	m.settings = settings
	m.mu.Unlock()

	var err error
	if m.settingsStore != nil {
		if saveErr := m.settingsStore.SaveSettings(ctx, settings); saveErr != nil {
			err = fmt.Errorf("%w: save settings: %w", ErrStorage, saveErr)
		}
	}
	m.audit.LogPrivacyComplianceCheck(ctx, CheckSettingsUpdate, err == nil,
		fmt.Sprintf("analytics=%t crashReporting=%t retentionDays=%d dataSharing=%t explicitConsent=%t",
			settings.AnalyticsEnabled, settings.CrashReportingEnabled, settings.DataRetentionDays,
			settings.AllowDataSharing, settings.RequireExplicitConsent))
	return err
}

// HasConsent reports whether consent is recorded as granted for dataType
func (m *Manager) HasConsent(dataType string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consents[dataType]
}

// RequestConsent returns the recorded decision for dataType. Without one it
// notifies consent request subscribers and records a provisional decision:
// granted when dataType starts with one of the auto-grant prefixes.
func (m *Manager) RequestConsent(ctx context.Context, dataType, purpose string) bool {
	m.mu.Lock()
	if granted, ok := m.consents[dataType]; ok {
		m.mu.Unlock()
		return granted
	}
	provisional := hasAnyPrefix(dataType, m.cfg.AutoGrantPrefixes)
	m.consents[dataType] = provisional
	m.mu.Unlock()

	m.consentFeed.Publish(types.ConsentRequest{
		DataType:    dataType,
		Purpose:     purpose,
		Provisional: provisional,
		RequestedAt: m.clock.Now(),
	})
	m.metrics.ConsentDecisions.WithLabelValues(strconv.FormatBool(provisional)).Inc()
	m.audit.LogPrivacyComplianceCheck(ctx, CheckConsentRequest, provisional,
		fmt.Sprintf("dataType=%s purpose=%s provisional=%t", dataType, purpose, provisional))
	return provisional
}

// GiveConsent records an explicit grant for dataType
func (m *Manager) GiveConsent(ctx context.Context, dataType, purpose string) {
	m.mu.Lock()
	m.consents[dataType] = true
	m.mu.Unlock()

	m.metrics.ConsentDecisions.WithLabelValues("true").Inc()
	m.audit.LogPrivacyComplianceCheck(ctx, CheckConsentGiven, true,
		fmt.Sprintf("dataType=%s purpose=%s", dataType, purpose))
}

// RevokeConsent records a refusal for dataType and deletes its data in the background
func (m *Manager) RevokeConsent(ctx context.Context, dataType string) {
	m.mu.Lock()
	m.consents[dataType] = false
	closed := m.closed
	if !closed {
		m.pending.Add(1)
	}
	m.mu.Unlock()

	m.metrics.ConsentDecisions.WithLabelValues("false").Inc()
	if closed {
		m.diag.Emit(types.SeverityWarning, "Deletion after consent revocation skipped, privacy manager closed",
			types.NewMetadata("dataType", dataType))
		return
	}
	m.audit.LogPrivacyComplianceCheck(ctx, CheckConsentRevoked, true, "dataType="+dataType)

	bg := context.WithoutCancel(ctx)
	go func() {
		defer m.pending.Done()
		if _, err := m.PerformDataDeletion(bg, dataType); err != nil {
			m.logger.Error().Err(err).Str("dataType", dataType).Msg("Deletion after consent revocation failed")
		}
	}()
}

// GetConsentStatus returns a copy of the consent table
func (m *Manager) GetConsentStatus() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.consents))
	for k, v := range m.consents {
		out[k] = v
	}
	return out
}

// GetProcessingHistory returns a copy of the processing history, oldest first
func (m *Manager) GetProcessingHistory() []types.DataProcessingRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.DataProcessingRecord(nil), m.history...)
}

// RecordDataProcessing appends a processing record, dropping the oldest past
// the history limit, and validates it with the monitor.
func (m *Manager) RecordDataProcessing(ctx context.Context, dataType, operation, purpose string) {
	m.mu.Lock()
	rec := types.DataProcessingRecord{
		ID:           uuid.New().String(),
		DataType:     dataType,
		Operation:    operation,
		Purpose:      purpose,
		Timestamp:    m.clock.Now(),
		ConsentGiven: m.consents[dataType],
	}
	if len(m.history) >= m.cfg.HistoryLimit {
		over := len(m.history) - m.cfg.HistoryLimit + 1
		n := copy(m.history, m.history[over:])
		clear(m.history[n:])
		m.history = m.history[:n]
	}
	m.history = append(m.history, rec)
	m.mu.Unlock()

	if !m.monitor.ValidatePrivacyCompliance(ctx, dataType, m.ContainsPersonalData(dataType)) {
		m.logger.Warn().
			Str("dataType", dataType).
			Str("operation", operation).
			Str("purpose", purpose).
			Msg("Data processing without required consent")
	}
}

// ContainsPersonalData reports whether dataType names personal data
func (m *Manager) ContainsPersonalData(dataType string) bool {
	lower := strings.ToLower(dataType)
	for _, p := range m.cfg.PersonalDataPatterns {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// PerformDataDeletion deletes every record of dataType through the data
// store. On failure the in-memory history is left unchanged.
func (m *Manager) PerformDataDeletion(ctx context.Context, dataType string) (int, error) {
	m.audit.LogPrivacyComplianceCheck(ctx, CheckDeletionStarted, true, "dataType="+dataType)

	deleted, err := m.data.DeleteAll(ctx, dataType)
	if err != nil {
		m.audit.LogPrivacyComplianceCheck(ctx, CheckDeletionFailed, false,
			fmt.Sprintf("dataType=%s error=%v", dataType, err))
		return 0, fmt.Errorf("%w: delete %s: %w", ErrStorage, dataType, err)
	}

	m.monitor.MonitorDataDeletion(ctx, dataType, deleted)
	m.metrics.Deletions.Add(float64(deleted))

	m.mu.Lock()
	kept := m.history[:0]
	for _, rec := range m.history {
		if rec.DataType != dataType {
			kept = append(kept, rec)
		}
	}
	clear(m.history[len(kept):])
	m.history = kept
	m.mu.Unlock()

	m.audit.LogPrivacyComplianceCheck(ctx, CheckDeletionCompleted, true,
		fmt.Sprintf("dataType=%s deleted=%d", dataType, deleted))
	return deleted, nil
}

// PerformRightToBeForgotten deletes every data type present in the history,
// resets settings to defaults and clears the consent table.
func (m *Manager) PerformRightToBeForgotten(ctx context.Context) error {
	m.audit.LogPrivacyComplianceCheck(ctx, CheckRightToBeForgotten, true, "")

	m.mu.Lock()
	seen := make(map[string]struct{})
	for _, rec := range m.history {
		seen[rec.DataType] = struct{}{}
	}
	m.mu.Unlock()
	dataTypes := make([]string, 0, len(seen))
	for dt := range seen {
		dataTypes = append(dataTypes, dt)
	}
	sort.Strings(dataTypes)

	var errs []error
	for _, dt := range dataTypes {
		if _, err := m.PerformDataDeletion(ctx, dt); err != nil {
			errs = append(errs, err)
		}
	}

	m.mu.Lock()
	m.settings = m.cfg.Defaults
	m.consents = make(map[string]bool)
	settings := m.settings
	m.mu.Unlock()

	if m.settingsStore != nil {
		if err := m.settingsStore.SaveSettings(ctx, settings); err != nil {
			errs = append(errs, fmt.Errorf("%w: save settings: %w", ErrStorage, err))
		}
	}

	err := errors.Join(errs...)
	m.audit.LogPrivacyComplianceCheck(ctx, CheckRightToBeForgottenEnd, err == nil,
		fmt.Sprintf("dataTypes=%d failures=%d", len(dataTypes), len(errs)))
	return err
}
