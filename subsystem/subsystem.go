// Package subsystem assembles the encryption service, the audit logger, the
// security monitor and the privacy manager into one unit with a single
// start and shutdown path.
package subsystem

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/audit"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/clock"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/config"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/coordinator"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/encryption"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/interfaces"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/kms"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/messaging"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/messaging/nats"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/monitor"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/privacy"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/store/memory"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

// Maintenance loop identifiers
const (
	ProcessAccessPrune     = "monitor.access_prune"
	ProcessAlertPrune      = "monitor.alert_prune"
	ProcessComplianceSweep = "privacy.compliance_sweep"
)

var (
	ErrAlreadyStarted = errors.New("subsystem already started")
	ErrStopped        = errors.New("subsystem has been shut down")
	ErrNoAuditReader  = errors.New("audit sink cannot be read back")
)

// Deps are the collaborators of a Subsystem. Nil stores fall back to the
// in-memory implementations.
type Deps struct {
	Secrets     interfaces.SecretStore
	LogSink     interfaces.PersistentLogSink
	Data        interfaces.DataStore
	Settings    interfaces.SettingsStore
	Diagnostics interfaces.DiagnosticSink

	// KMS wraps every secret written to Secrets when set
	KMS interfaces.KMSProvider

	// Publisher receives alerts, consent requests and access events when set
	Publisher nats.JSONPublisher

	Clock      interfaces.Clock
	Registerer prometheus.Registerer
	Logger     zerolog.Logger

	// Closers release connections opened for the stores, in reverse order on Shutdown
	Closers []func(ctx context.Context) error
}

// Subsystem owns the four components and their maintenance loops
type Subsystem struct {
	Encryption *encryption.Service
	Audit      *audit.Logger
	Monitor    *monitor.Monitor
	Privacy    *privacy.Manager

	cfg         *config.Config
	sink        interfaces.PersistentLogSink
	coordinator *coordinator.Coordinator
	bridge      *nats.Bridge
	closers     []func(ctx context.Context) error
	logger      zerolog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
}

// New wires the components in dependency order: encryption, audit, monitor,
// privacy. When the audit sink can be read back the chain resumes from its
// last record.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*Subsystem, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required for subsystem.New")
	}

	opLogger := deps.Logger
	if opLogger.GetLevel() == zerolog.Disabled {
		opLogger = log.Logger
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	secrets := deps.Secrets
	if secrets == nil {
		secrets = memory.NewSecretStore()
	}
	if deps.KMS != nil {
		secrets = kms.NewWrappingSecretStore(secrets, deps.KMS)
	}
	data := deps.Data
	if data == nil {
		data = memory.NewDataStore()
	}
	settings := deps.Settings
	if settings == nil {
		settings = memory.NewSettingsStore()
	}

	var sink interfaces.PersistentLogSink
	if cfg.Audit.Persist {
		sink = deps.LogSink
		if sink == nil {
			sink = memory.NewLogSink()
		}
	}

	enc, err := encryption.NewService(secrets, encryption.Config{
		Account:   cfg.Encryption.Account,
		Algorithm: cfg.Encryption.Algorithm,
	}, clk, opLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption service: %w", err)
	}

	head, err := resumeHead(ctx, enc, sink)
	if err != nil {
		opLogger.Warn().Err(err).Msg("Audit trail could not be resumed, starting a new chain segment")
		head = nil
	}

	auditLogger, err := audit.NewLogger(enc, sink, cfg.Audit.Config, audit.Options{
		Diagnostics: deps.Diagnostics,
		Clock:       clk,
		Registerer:  deps.Registerer,
		Logger:      opLogger,
		Head:        head,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create audit logger: %w", err)
	}

	mon, err := monitor.New(auditLogger, cfg.Monitor, monitor.Options{
		Clock:       clk,
		Diagnostics: deps.Diagnostics,
		Registerer:  deps.Registerer,
		Logger:      opLogger,
	})
	if err != nil {
		_ = auditLogger.Close(ctx)
		return nil, fmt.Errorf("failed to create security monitor: %w", err)
	}

	priv, err := privacy.NewManager(ctx, mon, auditLogger, data, cfg.Privacy, privacy.Options{
		Settings:    settings,
		Clock:       clk,
		Diagnostics: deps.Diagnostics,
		Registerer:  deps.Registerer,
		Logger:      opLogger,
	})
	if err != nil {
		mon.Close()
		_ = auditLogger.Close(ctx)
		return nil, fmt.Errorf("failed to create privacy manager: %w", err)
	}
	mon.SetConsentChecker(priv)

	s := &Subsystem{
		Encryption:  enc,
		Audit:       auditLogger,
		Monitor:     mon,
		Privacy:     priv,
		cfg:         cfg,
		sink:        sink,
		coordinator: coordinator.NewCoordinator(clk, opLogger),
		closers:     deps.Closers,
		logger:      opLogger.With().Str("component", "subsystem").Logger(),
	}
	if deps.Publisher != nil {
		s.bridge = nats.NewBridge(deps.Publisher, cfg.NATS.SubjectPrefix)
	}
	return s, nil
}

// resumeHead returns the last persisted record, or nil when there is none
func resumeHead(ctx context.Context, dec interfaces.Encryptor, sink interfaces.PersistentLogSink) (*types.AuditRecord, error) {
	reader, ok := sink.(interfaces.LogReader)
	if !ok {
		return nil, nil
	}
	records, err := audit.ReadTrail(ctx, dec, reader)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	last := records[len(records)-1]
	return &last, nil
}

// Start loads the key, records the start in the audit trail and launches the
// maintenance loops and event forwarding. The loops run until ctx is done or
// Shutdown is called.
func (s *Subsystem) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return ErrAlreadyStarted
	}

	status, err := s.Encryption.GetOrCreateKey(ctx)
	if err != nil {
		return fmt.Errorf("failed to load encryption key: %w", err)
	}
	if !s.Encryption.ValidateIntegrity(ctx) {
		return fmt.Errorf("encryption integrity check failed")
	}

	accessInterval, alertInterval := s.Monitor.Intervals()
	if err := s.coordinator.StartLoop(ctx, ProcessAccessPrune, accessInterval, func(ctx context.Context) error {
		_, err := s.Monitor.PruneAccessStats(ctx)
		return err
	}); err != nil {
		return err
	}
	if err := s.coordinator.StartLoop(ctx, ProcessAlertPrune, alertInterval, func(ctx context.Context) error {
		_, err := s.Monitor.PruneAlerts(ctx)
		return err
	}); err != nil {
		return err
	}
	if err := s.coordinator.StartLoop(ctx, ProcessComplianceSweep, s.Privacy.ComplianceInterval(), s.Privacy.RunComplianceSweep); err != nil {
		return err
	}

	if s.bridge != nil {
		nats.Forward(ctx, s.bridge, s.Monitor.Alerts(), messaging.SubjectSecurityAlerts)
		nats.Forward(ctx, s.bridge, s.Privacy.ConsentRequests(), messaging.SubjectConsentRequests)
		nats.Forward(ctx, s.bridge, s.Monitor.AccessEvents(), messaging.SubjectAccessEvents)
	}

	s.Audit.Log(ctx, types.SeverityInfo, types.CategorySubsystemLifecycle, "Security subsystem started", types.NewMetadata(
		"algorithm", string(status.Algorithm),
		"keyVersion", strconv.Itoa(status.Version),
		"fingerprint", status.Fingerprint,
	))
	s.started = true
	s.logger.Info().
		Str("algorithm", string(status.Algorithm)).
		Str("fingerprint", status.Fingerprint).
		Bool("forwarding", s.bridge != nil).
		Msg("Security subsystem started")
	return nil
}

// RotateKey replaces the encryption key and records the rotation, with the
// previous and new fingerprints, in the audit trail. Records persisted before
// the rotation cannot be read back afterwards.
func (s *Subsystem) RotateKey(ctx context.Context) (types.KeyStatus, error) {
	prev := s.Encryption.Status()
	if !prev.Loaded {
		loaded, err := s.Encryption.GetOrCreateKey(ctx)
		if err == nil {
			prev = loaded
		}
	}

	// Drain queued events while they can still be sealed with the old key
	if err := s.Audit.Flush(ctx); err != nil {
		return types.KeyStatus{}, fmt.Errorf("failed to flush audit trail before rotation: %w", err)
	}

	next, err := s.Encryption.RotateKey(ctx)
	if err != nil {
		s.Audit.Log(ctx, types.SeverityError, types.CategoryKeyRotation, "Encryption key rotation failed", types.NewMetadata(
			"fingerprint", prev.Fingerprint,
			"error", err.Error(),
		))
		return types.KeyStatus{}, err
	}

	s.Audit.Log(ctx, types.SeverityWarning, types.CategoryKeyRotation, "Encryption key rotated", types.NewMetadata(
		"previousFingerprint", prev.Fingerprint,
		"previousVersion", strconv.Itoa(prev.Version),
		"fingerprint", next.Fingerprint,
		"version", strconv.Itoa(next.Version),
	))
	return next, nil
}

// VerifyAuditTrail flushes the queue, reads back every persisted record and
// verifies the hash chain
func (s *Subsystem) VerifyAuditTrail(ctx context.Context) (types.ChainReport, error) {
	reader, ok := s.sink.(interfaces.LogReader)
	if !ok {
		return types.ChainReport{}, ErrNoAuditReader
	}
	if err := s.Audit.Flush(ctx); err != nil {
		return types.ChainReport{}, err
	}
	records, err := audit.ReadTrail(ctx, s.Encryption, reader)
	if err != nil {
		return types.ChainReport{}, err
	}
	return audit.VerifyChain(records), nil
}

// Processes lists the maintenance loops
func (s *Subsystem) Processes() []*coordinator.Process {
	return s.coordinator.ListProcesses()
}

// Shutdown stops the loops and the forwarding, waits for pending deletions,
// closes the monitor feeds and drains the audit queue before releasing the
// store connections. Calling it again is a no-op.
func (s *Subsystem) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	var errs []error
	if err := s.coordinator.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("coordinator: %w", err))
	}
	if s.bridge != nil {
		s.bridge.Stop()
	}
	s.Privacy.Close()
	s.Monitor.Close()

	if started {
		s.Audit.Log(ctx, types.SeverityInfo, types.CategorySubsystemLifecycle, "Security subsystem stopped", nil)
	}
	if err := s.Audit.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("audit: %w", err))
	}

	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	s.logger.Info().Msg("Security subsystem stopped")
	return errors.Join(errs...)
}
