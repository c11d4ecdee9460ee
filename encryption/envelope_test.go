package encryption

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	svc, _ := newTestService(t, types.AlgorithmAES256GCM)
	ctx := context.Background()

	md := types.EnvelopeMetadata{
		Version:   "1",
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		DataType:  "user_profile",
	}
	ct, err := svc.EncryptWithMetadata(ctx, []byte(`{"name":"x"}`), md)
	require.NoError(t, err)

	gotMD, payload, err := svc.DecryptWithMetadata(ctx, ct)
	require.NoError(t, err)
	assert.Equal(t, md, gotMD)
	assert.Equal(t, []byte(`{"name":"x"}`), payload)
}

func TestEnvelopeEmptyPayload(t *testing.T) {
	svc, _ := newTestService(t, types.AlgorithmAES256GCM)
	ctx := context.Background()

	ct, err := svc.EncryptWithMetadata(ctx, nil, types.EnvelopeMetadata{Version: "1", DataType: "x"})
	require.NoError(t, err)
	md, payload, err := svc.DecryptWithMetadata(ctx, ct)
	require.NoError(t, err)
	assert.Equal(t, "x", md.DataType)
	assert.Empty(t, payload)
}

func TestEnvelopeInconsistentLength(t *testing.T) {
	svc, _ := newTestService(t, types.AlgorithmAES256GCM)
	ctx := context.Background()

	tests := []struct {
		name  string
		plain []byte
	}{
		{"shorter than prefix", []byte{0, 1}},
		{"length beyond buffer", append(binary.BigEndian.AppendUint32(nil, 100), []byte("{}")...)},
		{"metadata not json", append(binary.BigEndian.AppendUint32(nil, 3), []byte("abcdef")...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, err := svc.Encrypt(ctx, tt.plain)
			require.NoError(t, err)
			_, _, err = svc.DecryptWithMetadata(ctx, ct)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestEnvelopeTampered(t *testing.T) {
	svc, _ := newTestService(t, types.AlgorithmAES256GCM)
	ctx := context.Background()

	ct, err := svc.EncryptWithMetadata(ctx, []byte("payload"), types.EnvelopeMetadata{Version: "1"})
	require.NoError(t, err)
	ct[len(ct)-1] ^= 0x80

	_, _, err = svc.DecryptWithMetadata(ctx, ct)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}
