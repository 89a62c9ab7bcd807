package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OmniTrackIQ/internal/domain/models"
	pkgcache "OmniTrackIQ/pkg/cache"
)

type countingMetrics struct {
	mu            sync.Mutex
	hits, misses  int
	invalidations []string
}

func (m *countingMetrics) RecordLatency(string, float64) {}
func (m *countingMetrics) RecordError(string)            {}
func (m *countingMetrics) RecordLedgerRows(string, int)  {}
func (m *countingMetrics) RecordCacheResult(_ string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}
func (m *countingMetrics) RecordInvalidation(ledger string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidations = append(m.invalidations, ledger)
}

type params struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func redisStore(t *testing.T) (*miniredis.Miniredis, pkgcache.Service) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, pkgcache.NewRedisCacheFromClient(client, "")
}

func TestFetchCachesPerTenantAndParams(t *testing.T) {
	ctx := context.Background()
	_, store := redisStore(t)
	m := &countingMetrics{}
	rc := NewResultCache(store, time.Minute, m, nil)

	var calls int32
	compute := func(context.Context) (models.AnomalySummary, error) {
		atomic.AddInt32(&calls, 1)
		return models.AnomalySummary{Total: 4}, nil
	}

	p := params{From: "2024-05-01", To: "2024-05-31"}
	for i := 0; i < 3; i++ {
		got, err := Fetch(ctx, rc, "t1", "anomalies", p, compute)
		require.NoError(t, err)
		assert.Equal(t, 4, got.Total)
	}
	assert.EqualValues(t, 1, calls)
	assert.Equal(t, 2, m.hits)
	assert.Equal(t, 1, m.misses)

	_, err := Fetch(ctx, rc, "t2", "anomalies", p, compute)
	require.NoError(t, err)
	_, err = Fetch(ctx, rc, "t1", "anomalies", params{From: "2024-05-02", To: "2024-05-31"}, compute)
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls)
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	_, store := redisStore(t)
	rc := NewResultCache(store, time.Minute, nil, nil)

	boom := errors.New("ledger down")
	_, err := Fetch(ctx, rc, "t1", "health", params{}, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	got, err := Fetch(ctx, rc, "t1", "health", params{}, func(context.Context) (int, error) { return 9, nil })
	require.NoError(t, err)
	assert.Equal(t, 9, got)
}

func TestFetchSurvivesStoreOutage(t *testing.T) {
	ctx := context.Background()
	srv, store := redisStore(t)
	rc := NewResultCache(store, time.Minute, nil, nil)
	srv.Close()

	got, err := Fetch(ctx, rc, "t1", "alerts", params{}, func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestFetchDisabled(t *testing.T) {
	var calls int
	compute := func(context.Context) (int, error) { calls++; return calls, nil }
	for _, rc := range []*ResultCache{nil, NewResultCache(nil, time.Minute, nil, nil)} {
		_, err := Fetch(context.Background(), rc, "t1", "op", params{}, compute)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
	assert.NoError(t, (*ResultCache)(nil).InvalidateTenant(context.Background(), "t1", "orders"))
}

func TestInvalidateTenant(t *testing.T) {
	ctx := context.Background()
	srv, store := redisStore(t)
	m := &countingMetrics{}
	rc := NewResultCache(store, time.Minute, m, nil)

	for _, tenant := range []string{"t1", "t2"} {
		_, err := Fetch(ctx, rc, tenant, "insights", params{}, func(context.Context) (int, error) { return 1, nil })
		require.NoError(t, err)
	}
	require.Len(t, srv.Keys(), 2)

	require.NoError(t, rc.InvalidateTenant(ctx, "t1", "orders"))
	keys := srv.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "analytics:t2:insights:")
	assert.Equal(t, []string{"orders"}, m.invalidations)

	// a wildcard tenant would wipe everyone
	assert.ErrorIs(t, rc.InvalidateTenant(ctx, "*", "orders"), ErrInvalidTenant)
	assert.ErrorIs(t, rc.InvalidateTenant(ctx, "", "orders"), ErrInvalidTenant)
	assert.Len(t, srv.Keys(), 1)
}

func TestKeyShape(t *testing.T) {
	k, err := Key("t1", "anomalies", params{From: "a"})
	require.NoError(t, err)
	assert.Regexp(t, `^analytics:t1:anomalies:[0-9a-f]{32}$`, k)
	assert.Equal(t, "analytics:t1:*", TenantPattern("t1"))
}
