package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/clock"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/interfaces"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

const (
	DefaultQueueSize              = 1024
	DefaultPersistTimeout         = 5 * time.Second
	DefaultMaxMessageLength       = 4096
	DefaultMaxMetadataValueLength = 1024
)

// ErrClosed is returned by Flush once the logger has been closed
var ErrClosed = errors.New("audit logger closed")

// Config holds the audit queue settings
type Config struct {
	QueueSize              int           `mapstructure:"queue_size"`
	PersistTimeout         time.Duration `mapstructure:"persist_timeout"`
	MaxMessageLength       int           `mapstructure:"max_message_length"`
	MaxMetadataValueLength int           `mapstructure:"max_metadata_value_length"`
}

// Options are the optional collaborators of a Logger
type Options struct {
	// Diagnostics receives every event immediately. Defaults to a ZerologSink.
	Diagnostics interfaces.DiagnosticSink
	Clock       interfaces.Clock
	Registerer  prometheus.Registerer
	Logger      zerolog.Logger

	// Head continues an existing chain instead of starting a new segment
	Head *types.AuditRecord
}

type job struct {
	event *types.AuditEvent
	flush chan struct{}
}

// Logger enqueues audit events and persists them from a single worker.
// The worker hash chains each event, encrypts the record and appends it to the sink.
type Logger struct {
	enc     interfaces.Encryptor
	sink    interfaces.PersistentLogSink
	diag    interfaces.DiagnosticSink
	clock   interfaces.Clock
	logger  zerolog.Logger
	metrics *Metrics
	cfg     Config

	// mu guards closed and sends on queue
	mu     sync.RWMutex
	closed bool
	queue  chan job
	done   chan struct{}

	// headMu guards the chain head written by the worker
	headMu   sync.Mutex
	index    int64
	lastHash string
}

// NewLogger creates a logger and starts its worker. A nil sink keeps events
// in the diagnostic sink only.
func NewLogger(enc interfaces.Encryptor, sink interfaces.PersistentLogSink, cfg Config, opts Options) (*Logger, error) {
	if enc == nil && sink != nil {
		return nil, fmt.Errorf("encryptor is required when a persistent sink is configured")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = DefaultPersistTimeout
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}
	if cfg.MaxMetadataValueLength <= 0 {
		cfg.MaxMetadataValueLength = DefaultMaxMetadataValueLength
	}

	opLogger := opts.Logger
	if opLogger.GetLevel() == zerolog.Disabled {
		opLogger = log.Logger
	}
	opLogger = opLogger.With().Str("component", "audit").Logger()

	diag := opts.Diagnostics
	if diag == nil {
		diag = NewZerologSink(opLogger)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	l := &Logger{
		enc:     enc,
		sink:    sink,
		diag:    diag,
		clock:   clk,
		logger:  opLogger,
		metrics: NewMetrics(opts.Registerer),
		cfg:     cfg,
		queue:   make(chan job, cfg.QueueSize),
		done:    make(chan struct{}),
	}
	if opts.Head != nil {
		l.index = opts.Head.Index
		l.lastHash = opts.Head.Hash
	}

	go l.run()
	return l, nil
}

// Log builds an event, emits it to the diagnostic sink and enqueues it for
// persistence. It never waits for encryption or I/O. When the queue is full
// the event is dropped and the drop is reported as a diagnostic error.
func (l *Logger) Log(ctx context.Context, severity types.Severity, category types.Category, message string, metadata types.Metadata) {
	event := l.newEvent(ctx, severity, category, message, metadata)

	fields := make(types.Metadata, 0, len(event.Metadata)+2)
	fields = append(fields, types.Field{Key: "auditId", Value: event.ID}, types.Field{Key: "category", Value: string(category)})
	fields = append(fields, event.Metadata...)
	l.diag.Emit(severity, event.Message, fields)

	if l.sink == nil {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.metrics.Dropped.Inc()
		return
	}
	select {
	case l.queue <- job{event: event}:
		l.metrics.Depth.Inc()
	default:
		l.metrics.Dropped.Inc()
		l.diag.Emit(types.SeverityError, "Audit queue full, event dropped", types.NewMetadata(
			"auditId", event.ID,
			"category", string(category),
			"queueSize", strconv.Itoa(l.cfg.QueueSize),
		))
	}
}

func (l *Logger) newEvent(ctx context.Context, severity types.Severity, category types.Category, message string, metadata types.Metadata) *types.AuditEvent {
	md := make(types.Metadata, 0, len(metadata)+len(contextKeys))
	for _, f := range metadata {
		md = append(md, types.Field{Key: f.Key, Value: truncate(f.Value, l.cfg.MaxMetadataValueLength)})
	}
	md = enrich(ctx, md)

	return &types.AuditEvent{
		ID:        uuid.New().String(),
		Timestamp: l.clock.Now().UTC(),
		Severity:  severity,
		Category:  category,
		Message:   truncate(message, l.cfg.MaxMessageLength),
		Metadata:  md,
	}
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Flush blocks until every event enqueued before the call has been persisted
func (l *Logger) Flush(ctx context.Context) error {
	if l.sink == nil {
		return nil
	}
	barrier := make(chan struct{})

	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return ErrClosed
	}
	select {
	case l.queue <- job{flush: barrier}:
		l.mu.RUnlock()
	case <-ctx.Done():
		l.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops intake and waits for the queue to drain or ctx to expire.
// Events logged after Close only reach the diagnostic sink.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		pending := len(l.queue)
		l.logger.Warn().Int("pending", pending).Msg("Audit queue not drained before shutdown")
		return fmt.Errorf("audit drain interrupted with %d pending events: %w", pending, ctx.Err())
	}
}

// Head returns the index and hash of the last persisted record
func (l *Logger) Head() (int64, string) {
	l.headMu.Lock()
	defer l.headMu.Unlock()
	return l.index, l.lastHash
}

func (l *Logger) run() {
	defer close(l.done)
	for j := range l.queue {
		if j.flush != nil {
			close(j.flush)
			continue
		}
		l.metrics.Depth.Dec()
		l.persist(j.event)
	}
}

func (l *Logger) persist(event *types.AuditEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.PersistTimeout)
	defer cancel()

	index, prev := l.Head()
	rec := types.AuditRecord{
		Index:    index + 1,
		PrevHash: prev,
		Event:    *event,
	}
	hash, err := chainHash(rec.PrevHash, rec.Index, rec.Event)
	if err != nil {
		l.fail(event, "Failed to encode audit event", err)
		return
	}
	rec.Hash = hash

	blob, err := json.Marshal(rec)
	if err != nil {
		l.fail(event, "Failed to encode audit record", err)
		return
	}
	sealed, err := l.enc.Encrypt(ctx, blob)
	if err != nil {
		l.fail(event, "Failed to encrypt audit event", err)
		return
	}
	if err := l.sink.Append(ctx, sealed); err != nil {
		l.fail(event, "Failed to persist audit event", err)
		return
	}

	l.headMu.Lock()
	l.index = rec.Index
	l.lastHash = rec.Hash
	l.headMu.Unlock()
	l.metrics.Persisted.Inc()
}

func (l *Logger) fail(event *types.AuditEvent, msg string, err error) {
	l.metrics.Failed.Inc()
	l.diag.Emit(types.SeverityError, msg, types.NewMetadata(
		"auditId", event.ID,
		"category", string(event.Category),
		"error", err.Error(),
	))
}
