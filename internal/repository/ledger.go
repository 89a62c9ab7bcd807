package repository

import (
	"fmt"
	"time"

	"OmniTrackIQ/internal/domain/models"
	domrepo "OmniTrackIQ/internal/domain/repository"
)

const (
	ledgerSpend  = "spend"
	ledgerOrders = "orders"
)

// bounds returns the inclusive first day and the exclusive end of q.
// Orders carry timestamps, so the last day is covered up to midnight.
func bounds(q models.LedgerQuery) (time.Time, time.Time) {
	r := q.Range()
	return r.From, r.To.AddDate(0, 0, 1)
}

// checkQuery rejects queries without a tenant. An inverted range is valid
// and reads nothing.
func checkQuery(q models.LedgerQuery) (empty bool, err error) {
	if q.TenantID == "" {
		return false, fmt.Errorf("%w: tenant id is required", models.ErrInvalidParameter)
	}
	return q.To.Before(q.From), nil
}

func unavailable(ledger, stage string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", domrepo.ErrLedgerUnavailable, ledger, stage, err)
}
