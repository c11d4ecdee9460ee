package redis

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/interfaces"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSecretStore(t *testing.T) {
	mr, client := setupTestRedis(t)
	s := NewStore(client, "")
	ctx := context.Background()

	_, err := s.Get(ctx, "acct")
	assert.ErrorIs(t, err, interfaces.ErrSecretNotFound)
	assert.ErrorIs(t, s.Update(ctx, "acct", []byte("x")), interfaces.ErrSecretNotFound)

	require.NoError(t, s.Put(ctx, "acct", []byte{0x00, 0x01, 0xff}))
	assert.True(t, mr.Exists("securityd:secret:acct"))

	require.NoError(t, s.Update(ctx, "acct", []byte{0x02}))
	got, err := s.Get(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, got)
}

func TestAuditListKeepsOrder(t *testing.T) {
	_, client := setupTestRedis(t)
	s := NewStore(client, "test:")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, []byte(fmt.Sprintf("blob-%d", i))))
	}
	blobs, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, blobs, 5)
	assert.Equal(t, []byte("blob-0"), blobs[0])
	assert.Equal(t, []byte("blob-4"), blobs[4])
}

func TestDeleteAllOnlyRemovesOneDataType(t *testing.T) {
	mr, client := setupTestRedis(t)
	s := NewStore(client, "")
	ctx := context.Background()

	for i := 0; i < 1200; i++ {
		require.NoError(t, mr.Set(s.DataKey("notes", fmt.Sprint(i)), "x"))
	}
	require.NoError(t, mr.Set(s.DataKey("user_profile", "1"), "x"))

	n, err := s.DeleteAll(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, 1200, n)
	assert.True(t, mr.Exists(s.DataKey("user_profile", "1")))
	assert.Equal(t, []string{s.DataKey("user_profile", "1")}, mr.Keys())

	n, err = s.DeleteAll(ctx, "notes")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteAllRemovesEveryRecordAcrossScanPages(t *testing.T) {
	mr, client := setupTestRedis(t)
	s := NewStore(client, "tenant:")
	ctx := context.Background()

	for i := 0; i < 1200; i++ {
		require.NoError(t, mr.Set(s.DataKey("user_profile", fmt.Sprint(i)), "x"))
	}

	n, err := s.DeleteAll(ctx, "user_profile")
	require.NoError(t, err)
	assert.Equal(t, 1200, n)
	assert.Empty(t, mr.Keys())
}

func TestSettings(t *testing.T) {
	_, client := setupTestRedis(t)
	s := NewStore(client, "")
	ctx := context.Background()

	_, ok, err := s.LoadSettings(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	want := types.DefaultPrivacySettings()
	want.DataRetentionDays = 90
	require.NoError(t, s.SaveSettings(ctx, want))

	got, ok, err := s.LoadSettings(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}
