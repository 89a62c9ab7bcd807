package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domrepo "OmniTrackIQ/internal/domain/repository"
	"OmniTrackIQ/internal/service/cache"
	pkgkafka "OmniTrackIQ/pkg/kafka"
	applogger "OmniTrackIQ/pkg/logger"
)

// LedgerChanged is published whenever rows of a tenant's ledger change.
type LedgerChanged struct {
	TenantID string    `json:"tenant_id"`
	Ledger   string    `json:"ledger"` // spend or orders
	At       time.Time `json:"at,omitempty"`
}

// LedgerEventsHandler drops cached results of tenants whose ledgers changed.
type LedgerEventsHandler struct {
	topic   string
	cache   *cache.ResultCache
	metrics domrepo.Metrics
	log     *applogger.Logger
}

func NewLedgerEventsHandler(topic string, rc *cache.ResultCache, metrics domrepo.Metrics, log *applogger.Logger) *LedgerEventsHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &LedgerEventsHandler{topic: topic, cache: rc, metrics: metrics, log: log}
}

func (h *LedgerEventsHandler) Topic() string { return h.topic }

// Handle invalidates the tenant. Malformed events are logged and skipped;
// only cache failures are returned so the consumer retries them.
func (h *LedgerEventsHandler) Handle(ctx context.Context, b []byte) error {
	var ev LedgerChanged
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("ledger_event_unmarshal")
		h.log.Warn("ledger event dropped", applogger.Error(err))
		return nil
	}
	if ev.TenantID == "" {
		h.metrics.RecordError("ledger_event_invalid")
		h.log.Warn("ledger event without tenant dropped", applogger.String("ledger", ev.Ledger))
		return nil
	}
	if ev.Ledger == "" {
		ev.Ledger = "unknown"
	}
	err := h.cache.InvalidateTenant(ctx, ev.TenantID, ev.Ledger)
	if errors.Is(err, cache.ErrInvalidTenant) {
		h.metrics.RecordError("ledger_event_invalid")
		h.log.Warn("ledger event dropped", applogger.String("tenant", ev.TenantID), applogger.Error(err))
		return nil
	}
	if err != nil {
		h.metrics.RecordError("cache_invalidate")
		return fmt.Errorf("ledger event: %w", err)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*LedgerEventsHandler)(nil)
