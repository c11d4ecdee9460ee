package audit

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

func chainOf(t *testing.T, n int) (*fixture, []types.AuditRecord) {
	t.Helper()
	f := newFixture(t, Config{})
	for i := 0; i < n; i++ {
		f.logger.LogDataAccess(context.Background(), "read", "notes", i)
	}
	return f, f.records(t)
}

func TestVerifyChainDetectsModifiedEvent(t *testing.T) {
	_, recs := chainOf(t, 4)
	recs[1].Event.Message = "rewritten"

	report := VerifyChain(recs)
	assert.False(t, report.OK)
	assert.Equal(t, int64(2), report.BrokenIndex)
}

func TestVerifyChainDetectsRemovedRecord(t *testing.T) {
	_, recs := chainOf(t, 4)
	recs = append(recs[:2], recs[3:]...)

	report := VerifyChain(recs)
	assert.False(t, report.OK)
	assert.Equal(t, int64(4), report.BrokenIndex)
}

func TestVerifyChainDetectsReorder(t *testing.T) {
	_, recs := chainOf(t, 3)
	recs[1], recs[2] = recs[2], recs[1]

	assert.False(t, VerifyChain(recs).OK)
}

func TestVerifyChainEmpty(t *testing.T) {
	report := VerifyChain(nil)
	assert.True(t, report.OK)
	assert.Equal(t, 0, report.Total)
}

func TestChainContinuesFromHead(t *testing.T) {
	f, first := chainOf(t, 3)
	require.NoError(t, f.logger.Close(context.Background()))
	head := first[len(first)-1]

	next, err := NewLogger(f.enc, f.sink, Config{}, Options{Diagnostics: f.diag, Clock: f.clock, Registerer: prometheus.NewRegistry(), Head: &head})
	require.NoError(t, err)
	next.LogSecurityViolation(context.Background(), "replay", "detected")
	require.NoError(t, next.Close(context.Background()))

	all, err := ReadTrail(context.Background(), f.enc, f.sink)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, int64(4), all[3].Index)

	report := VerifyChain(all)
	assert.True(t, report.OK, report.Errors)
	assert.Equal(t, all[3].Hash, report.LastHash)
}

func TestNewSegmentVerifies(t *testing.T) {
	f, first := chainOf(t, 2)
	require.NoError(t, f.logger.Close(context.Background()))

	next, err := NewLogger(f.enc, f.sink, Config{}, Options{Diagnostics: f.diag, Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	next.LogDataAccess(context.Background(), "read", "notes", 1)
	require.NoError(t, next.Close(context.Background()))

	all, err := ReadTrail(context.Background(), f.enc, f.sink)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, first[0].Hash, all[0].Hash)
	assert.Equal(t, int64(1), all[2].Index)
	assert.True(t, VerifyChain(all).OK)
}

func TestDecodeRecordWrongKey(t *testing.T) {
	f, _ := chainOf(t, 1)
	_, err := f.enc.RotateKey(context.Background())
	require.NoError(t, err)

	_, err = ReadTrail(context.Background(), f.enc, f.sink)
	assert.Error(t, err)
}
