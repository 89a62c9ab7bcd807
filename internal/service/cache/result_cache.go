package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"OmniTrackIQ/internal/domain/repository"
	pkgcache "OmniTrackIQ/pkg/cache"
	"OmniTrackIQ/pkg/logger"
)

const keyPrefix = "analytics"

// ErrInvalidTenant rejects tenant ids that would widen an invalidation pattern.
var ErrInvalidTenant = errors.New("invalid tenant id")

// ResultCache stores computed analytics results per tenant. Failures of the
// backing store are logged and never reach the caller.
type ResultCache struct {
	store   pkgcache.Service
	ttl     time.Duration
	metrics repository.Metrics
	log     *logger.Logger
	group   singleflight.Group
}

// NewResultCache returns a cache over store. A nil store disables caching.
func NewResultCache(store pkgcache.Service, ttl time.Duration, metrics repository.Metrics, log *logger.Logger) *ResultCache {
	if log == nil {
		log = logger.Nop()
	}
	return &ResultCache{store: store, ttl: ttl, metrics: metrics, log: log}
}

// Enabled reports whether results are cached at all.
func (rc *ResultCache) Enabled() bool {
	return rc != nil && rc.store != nil && rc.ttl > 0
}

// Key is analytics:{tenant}:{op}:{hash(params)}.
func Key(tenantID, op string, params any) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode cache params: %w", err)
	}
	return pkgcache.JoinKey(keyPrefix, tenantID, op, pkgcache.HashKey(string(raw))), nil
}

// TenantPattern matches every cached result of a tenant.
func TenantPattern(tenantID string) string {
	return pkgcache.PrefixPattern(pkgcache.JoinKey(keyPrefix, tenantID, ""))
}

// Fetch returns the cached result for (tenant, op, params) or computes and
// stores it. Concurrent misses for the same key share one computation.
func Fetch[T any](ctx context.Context, rc *ResultCache, tenantID, op string, params any, compute func(context.Context) (T, error)) (T, error) {
	if !rc.Enabled() {
		return compute(ctx)
	}
	key, err := Key(tenantID, op, params)
	if err != nil {
		rc.log.Warn("cache key", logger.String("op", op), logger.Error(err))
		return compute(ctx)
	}

	var cached T
	switch err := rc.store.Get(ctx, key, &cached); {
	case err == nil:
		rc.record(op, true)
		return cached, nil
	case !errors.Is(err, pkgcache.ErrCacheMiss):
		rc.log.Warn("cache read failed", logger.String("key", key), logger.Error(err))
	}
	rc.record(op, false)

	v, err, _ := rc.group.Do(key, func() (any, error) {
		out, err := compute(ctx)
		if err != nil {
			return out, err
		}
		if err := rc.store.Set(ctx, key, out, rc.ttl); err != nil {
			rc.log.Warn("cache write failed", logger.String("key", key), logger.Error(err))
		}
		return out, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// InvalidateTenant drops every cached result of the tenant.
func (rc *ResultCache) InvalidateTenant(ctx context.Context, tenantID, ledger string) error {
	if !rc.Enabled() {
		return nil
	}
	if tenantID == "" || strings.ContainsAny(tenantID, "*?[]\\:") {
		return fmt.Errorf("invalidate tenant %q: %w", tenantID, ErrInvalidTenant)
	}
	if err := rc.store.DeleteByPattern(ctx, TenantPattern(tenantID)); err != nil {
		return fmt.Errorf("invalidate tenant %s: %w", tenantID, err)
	}
	if rc.metrics != nil {
		rc.metrics.RecordInvalidation(ledger)
	}
	rc.log.Debug("tenant cache invalidated", logger.String("tenant", tenantID), logger.String("ledger", ledger))
	return nil
}

func (rc *ResultCache) record(op string, hit bool) {
	if rc.metrics != nil {
		rc.metrics.RecordCacheResult(op, hit)
	}
}
