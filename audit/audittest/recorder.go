// Package audittest wires a real audit logger to in-memory stores so that
// other packages can assert on the events they produce.
package audittest

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/audit"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/encryption"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/interfaces"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/store/memory"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

// Line is one diagnostic emission
type Line struct {
	Severity types.Severity
	Message  string
	Fields   types.Metadata
}

// Diagnostics records diagnostic lines
type Diagnostics struct {
	mu    sync.Mutex
	lines []Line
}

// Emit implements interfaces.DiagnosticSink
func (d *Diagnostics) Emit(severity types.Severity, message string, fields types.Metadata) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines = append(d.lines, Line{Severity: severity, Message: message, Fields: fields})
}

// Lines returns a copy of every recorded line
func (d *Diagnostics) Lines() []Line {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Line(nil), d.lines...)
}

// Recorder is an audit logger whose trail can be read back in tests
type Recorder struct {
	Logger      *audit.Logger
	Encryption  *encryption.Service
	Sink        *memory.LogSink
	Diagnostics *Diagnostics
}

// New creates a recorder closed at test cleanup
func New(t testing.TB, clk interfaces.Clock) *Recorder {
	t.Helper()
	enc, err := encryption.NewService(memory.NewSecretStore(), encryption.Config{}, clk, zerolog.Nop())
	if err != nil {
		t.Fatalf("encryption service: %v", err)
	}
	sink := memory.NewLogSink()
	diag := &Diagnostics{}
	logger, err := audit.NewLogger(enc, sink, audit.Config{}, audit.Options{
		Diagnostics: diag,
		Clock:       clk,
		Registerer:  prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("audit logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close(context.Background()) })

	return &Recorder{Logger: logger, Encryption: enc, Sink: sink, Diagnostics: diag}
}

// Events flushes the logger and returns every persisted event in order
func (r *Recorder) Events(t testing.TB) []types.AuditEvent {
	t.Helper()
	ctx := context.Background()
	if err := r.Logger.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	recs, err := audit.ReadTrail(ctx, r.Encryption, r.Sink)
	if err != nil {
		t.Fatalf("read trail: %v", err)
	}
	events := make([]types.AuditEvent, len(recs))
	for i, rec := range recs {
		events[i] = rec.Event
	}
	return events
}

// ByCategory returns the persisted events of one category
func (r *Recorder) ByCategory(t testing.TB, category types.Category) []types.AuditEvent {
	t.Helper()
	var out []types.AuditEvent
	for _, ev := range r.Events(t) {
		if ev.Category == category {
			out = append(out, ev)
		}
	}
	return out
}

// Matching returns the persisted events whose metadata contains every pair in kv
func (r *Recorder) Matching(t testing.TB, kv ...string) []types.AuditEvent {
	t.Helper()
	want := types.NewMetadata(kv...)
	var out []types.AuditEvent
	for _, ev := range r.Events(t) {
		ok := true
		for _, f := range want {
			if v, found := ev.Metadata.Get(f.Key); !found || v != f.Value {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, ev)
		}
	}
	return out
}
