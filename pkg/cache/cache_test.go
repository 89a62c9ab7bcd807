package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	Total   int      `json:"total"`
	Metrics []string `json:"metrics"`
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, NewRedisCacheFromClient(client, "omni")
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc, err := NewMemoryCache(WithMemoryMaxSize(10))
	require.NoError(t, err)

	require.NoError(t, mc.Set(ctx, "k", report{Total: 3, Metrics: []string{"spend"}}, time.Minute))
	got, err := GetTyped[report](ctx, mc, "k")
	require.NoError(t, err)
	assert.Equal(t, report{Total: 3, Metrics: []string{"spend"}}, got)

	assert.ErrorIs(t, mc.Get(ctx, "missing", &got), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc, err := NewMemoryCache(WithMemoryMaxTTL(time.Minute))
	require.NoError(t, err)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "short", 1, 10*time.Second))
	require.NoError(t, mc.Set(ctx, "forever", 2, 0))

	now = now.Add(30 * time.Second)
	var v int
	assert.ErrorIs(t, mc.Get(ctx, "short", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "forever", &v))
	assert.Equal(t, 2, v)

	// MaxTTL caps entries stored without expiration
	now = now.Add(time.Minute)
	assert.ErrorIs(t, mc.Get(ctx, "forever", &v), ErrCacheMiss)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc, err := NewMemoryCache(WithMemoryMaxSize(2))
	require.NoError(t, err)

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &v))
	assert.Equal(t, 2, mc.Len())
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc, err := NewMemoryCache()
	require.NoError(t, err)
	for _, k := range []string{"analytics:t1:anomalies:x", "analytics:t1:health:y", "analytics:t2:health:y"} {
		require.NoError(t, mc.Set(ctx, k, 1, 0))
	}

	require.NoError(t, mc.DeleteByPattern(ctx, PrefixPattern("analytics:t1:")))
	assert.Equal(t, 1, mc.Len())
	var v int
	assert.NoError(t, mc.Get(ctx, "analytics:t2:health:y", &v))

	assert.Error(t, mc.DeleteByPattern(ctx, "analytics:["))
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	srv, rc := newRedis(t)

	require.NoError(t, rc.Set(ctx, "analytics:t1:health:abc", report{Total: 7}, time.Minute))
	assert.True(t, srv.Exists("omni:analytics:t1:health:abc"))

	got, err := GetTyped[report](ctx, rc, "analytics:t1:health:abc")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Total)

	srv.FastForward(2 * time.Minute)
	_, err = GetTyped[report](ctx, rc, "analytics:t1:health:abc")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	srv, rc := newRedis(t)
	for i := 0; i < 2*scanBatch+20; i++ {
		require.NoError(t, rc.Set(ctx, JoinKey("analytics", "t1", "op", i), i, 0))
	}
	require.NoError(t, rc.Set(ctx, "analytics:t2:op:1", 1, 0))

	require.NoError(t, rc.DeleteByPattern(ctx, PrefixPattern("analytics:t1:")))
	assert.Equal(t, []string{"omni:analytics:t2:op:1"}, srv.Keys())

	require.NoError(t, rc.Delete(ctx, "analytics:t2:op:1"))
	assert.Empty(t, srv.Keys())
}

func TestLayeredCacheBackfillsMemory(t *testing.T) {
	ctx := context.Background()
	srv, rc := newRedis(t)
	lc, err := NewLayeredCache(rc, WithLayeredMemorySize(10), WithLayeredMemoryTTL(time.Minute))
	require.NoError(t, err)

	// written by another replica
	require.NoError(t, rc.Set(ctx, "k", report{Total: 1}, time.Hour))
	got, err := GetTyped[report](ctx, lc, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, 1, lc.memCache.Len())

	// served from L1 while Redis is down
	srv.Close()
	got, err = GetTyped[report](ctx, lc, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Total)
}

func TestLayeredCacheDeleteByPatternClearsBothLayers(t *testing.T) {
	ctx := context.Background()
	srv, rc := newRedis(t)
	lc, err := NewLayeredCache(rc)
	require.NoError(t, err)

	require.NoError(t, lc.Set(ctx, "analytics:t1:a", 1, time.Hour))
	require.NoError(t, lc.Set(ctx, "analytics:t2:a", 2, time.Hour))
	require.NoError(t, lc.DeleteByPattern(ctx, "analytics:t1:*"))

	var v int
	assert.ErrorIs(t, lc.Get(ctx, "analytics:t1:a", &v), ErrCacheMiss)
	assert.NoError(t, lc.Get(ctx, "analytics:t2:a", &v))
	assert.Equal(t, []string{"omni:analytics:t2:a"}, srv.Keys())
}

func TestHashKeyIsStable(t *testing.T) {
	assert.Equal(t, HashKey(`{"a":1}`), HashKey(`{"a":1}`))
	assert.NotEqual(t, HashKey(`{"a":1}`), HashKey(`{"a":2}`))
	assert.Len(t, HashKey("x"), 32)
	assert.Equal(t, "analytics:t1", JoinKey("analytics", "t1"))
}
