package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*FingerprintCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFingerprintCache(client, ttl), mr
}

func TestFingerprintCacheSeenRemember(t *testing.T) {
	cache, mr := newTestCache(t, time.Hour)
	ctx := context.Background()

	seen, err := cache.Seen(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, cache.Remember(ctx, "abc"))
	seen, err = cache.Seen(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, seen)

	assert.True(t, mr.Exists("ledger:fp:abc"))
	assert.Equal(t, time.Hour, mr.TTL("ledger:fp:abc"))
}

func TestFingerprintCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Remember(ctx, "abc"))
	mr.FastForward(2 * time.Minute)

	seen, err := cache.Seen(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestFingerprintCacheNoTTL(t *testing.T) {
	cache, mr := newTestCache(t, 0)

	require.NoError(t, cache.Remember(context.Background(), "abc"))
	assert.Equal(t, time.Duration(0), mr.TTL("ledger:fp:abc"))
}

func TestFingerprintCacheIgnoresEmpty(t *testing.T) {
	cache, mr := newTestCache(t, time.Hour)

	require.NoError(t, cache.Remember(context.Background(), ""))
	assert.Empty(t, mr.Keys())
}

func TestFingerprintCacheServerDown(t *testing.T) {
	cache, mr := newTestCache(t, time.Hour)
	mr.Close()

	_, err := cache.Seen(context.Background(), "abc")
	assert.Error(t, err)
	assert.Error(t, cache.Remember(context.Background(), "abc"))
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	mr.Close()
	_, err = Connect(context.Background(), mr.Addr())
	assert.Error(t, err)
}
