package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore(t *testing.T) {
	store, _ := newTestRedisStore(t)
	exerciseStore(t, store)
}

func TestRedisStorePrefixesAndExpires(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "userRoles:u:null", []byte(`[]`), time.Minute))
	require.True(t, mr.Exists("tenantguard:userRoles:u:null"))

	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Get(ctx, "userRoles:u:null")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewRedisStoreValidation(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{})
	require.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisStore(context.Background(), RedisConfig{Address: addr, Timeout: 200 * time.Millisecond})
	require.Error(t, err)
}
