package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowPerTenantBurst(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 3, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("t1"))
	}
	assert.False(t, l.Allow("t1"))
	assert.True(t, l.Allow("t2"), "tenants have separate buckets")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("t1"))
	assert.False(t, l.Allow("t1"))
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	var nilLimiter *Limiter
	assert.True(t, nilLimiter.Allow("t1"))

	l := New(0, 0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("t1"))
	}
	assert.Equal(t, 0, l.Tenants())
}

func TestSweepDropsIdleTenants(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	l := New(10, 10, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("idle")
	now = now.Add(50 * time.Second)
	l.Allow("active")
	now = now.Add(20 * time.Second)

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Tenants())
}
