package kms

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/interfaces"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/store/memory"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

func newWrappingStore(t *testing.T) (*WrappingSecretStore, *memory.SecretStore) {
	t.Helper()
	p, err := NewProvider(context.Background(), Config{
		Type: types.ProviderAead,
		Aead: &AeadConfig{KeyBase64: testAeadKey(), KeyID: "root-1"},
	})
	require.NoError(t, err)
	inner := memory.NewSecretStore()
	return NewWrappingSecretStore(inner, p), inner
}

func TestWrappingSecretStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, inner := newWrappingStore(t)
	secret := bytes.Repeat([]byte{0xA5}, 32)

	require.NoError(t, store.Put(ctx, "securityd.encryption.key", secret))

	raw, err := inner.Get(ctx, "securityd.encryption.key")
	require.NoError(t, err)
	assert.False(t, bytes.Contains(raw, secret), "inner store must not hold the plaintext secret")

	got, err := store.Get(ctx, "securityd.encryption.key")
	require.NoError(t, err)
	assert.Equal(t, secret, got)
}

func TestWrappingSecretStoreUpdate(t *testing.T) {
	ctx := context.Background()
	store, _ := newWrappingStore(t)

	err := store.Update(ctx, "missing", []byte("secret"))
	assert.ErrorIs(t, err, interfaces.ErrSecretNotFound)

	require.NoError(t, store.Put(ctx, "acct", []byte("first")))
	require.NoError(t, store.Update(ctx, "acct", []byte("second")))
	got, err := store.Get(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestWrappingSecretStoreErrors(t *testing.T) {
	ctx := context.Background()
	store, inner := newWrappingStore(t)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrSecretNotFound)

	require.NoError(t, inner.Put(ctx, "plain", []byte{0xff, 0xff, 0xff}))
	_, err = store.Get(ctx, "plain")
	assert.ErrorIs(t, err, ErrUnwrap)
}

func TestWrappingSecretStoreRejectsForeignRootKey(t *testing.T) {
	ctx := context.Background()
	store, inner := newWrappingStore(t)
	require.NoError(t, store.Put(ctx, "acct", []byte("secret")))

	other := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x42}, 32))
	p, err := NewProvider(ctx, Config{
		Type: types.ProviderAead,
		Aead: &AeadConfig{KeyBase64: other, KeyID: "root-1"},
	})
	require.NoError(t, err)

	_, err = NewWrappingSecretStore(inner, p).Get(ctx, "acct")
	assert.ErrorIs(t, err, ErrUnwrap)
}
