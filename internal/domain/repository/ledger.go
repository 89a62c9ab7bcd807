package repository

import (
	"context"
	"errors"

	"OmniTrackIQ/internal/domain/models"
)

// ErrLedgerUnavailable wraps every failure to read a ledger. Callers surface it
// unchanged; nothing in the analytics path retries.
var ErrLedgerUnavailable = errors.New("ledger unavailable")

// SpendLedger provides read-only access to ad-spend rows.
// q.Channel is advisory: channel matching happens after normalization in the
// aggregator, so stores return every channel of the tenant.
type SpendLedger interface {
	SpendRows(ctx context.Context, q models.LedgerQuery) ([]models.SpendRecord, error)
}

// OrderLedger provides read-only access to order rows.
type OrderLedger interface {
	OrderRows(ctx context.Context, q models.LedgerQuery) ([]models.OrderRecord, error)
}

// Ledger is the full storage collaborator of the analytics engine.
type Ledger interface {
	SpendLedger
	OrderLedger
	Health(ctx context.Context) error
	Close() error
}
