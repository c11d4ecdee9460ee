package main

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/kms/credentials/symmetric"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func bootstrapKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i * 7)
	}
	return key
}

func TestSealCredential(t *testing.T) {
	t.Setenv("SECURITYD_ENCRYPTION_BOOTSTRAP_KEY", base64.StdEncoding.EncodeToString(bootstrapKey()))

	out, err := execute(t, "", "seal-credential", "s3cr3t")
	require.NoError(t, err)
	sealed := strings.TrimSpace(out)
	assert.True(t, symmetric.IsSealed(sealed))

	enc, err := symmetric.NewEncryption(bootstrapKey())
	require.NoError(t, err)
	plain, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", plain)
}

func TestSealCredentialFromStdin(t *testing.T) {
	t.Setenv("SECURITYD_ENCRYPTION_BOOTSTRAP_KEY", base64.StdEncoding.EncodeToString(bootstrapKey()))

	out, err := execute(t, "from-stdin\n", "seal-credential")
	require.NoError(t, err)

	enc, err := symmetric.NewEncryption(bootstrapKey())
	require.NoError(t, err)
	plain, err := enc.Decrypt(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "from-stdin", plain)
}

func TestSealCredentialRequiresBootstrapKey(t *testing.T) {
	t.Setenv("SECURITYD_ENCRYPTION_BOOTSTRAP_KEY", "")
	_, err := execute(t, "", "seal-credential", "x")
	assert.ErrorIs(t, err, errNoBootstrapKey)
}

func TestSelfTestOnMemoryBackend(t *testing.T) {
	out, err := execute(t, "", "selftest")
	require.NoError(t, err)
	assert.Contains(t, out, "integrity:  ok")
	assert.Contains(t, out, "audit:      ok")
	assert.Contains(t, out, "all checks passed")
}

func TestRotateKey(t *testing.T) {
	out, err := execute(t, "", "rotate-key")
	require.NoError(t, err)
	assert.Contains(t, out, "(version 2)")
}

func TestInvalidConfigFails(t *testing.T) {
	t.Setenv("SECURITYD_STORAGE_BACKEND", "sqlite")
	_, err := execute(t, "", "selftest")
	assert.Error(t, err)
}
