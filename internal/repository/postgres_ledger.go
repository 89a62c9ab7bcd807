package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"OmniTrackIQ/internal/domain/models"
	applogger "OmniTrackIQ/pkg/logger"
	pkgpg "OmniTrackIQ/pkg/postgres"
	"OmniTrackIQ/pkg/util"
)

const pgSpendQuery = `
	SELECT tenant_id, channel, campaign_id, COALESCE(campaign_name, ''), date,
	       cost::float8, impressions, clicks, conversions
	FROM ad_spend
	WHERE tenant_id = $1 AND date >= $2 AND date < $3
	ORDER BY date, channel, campaign_id`

const pgOrderQuery = `
	SELECT tenant_id, order_id, order_datetime, total_amount::float8, currency,
	       COALESCE(channel, ''), COALESCE(utm_source, ''), COALESCE(utm_campaign, ''), COALESCE(customer_id, '')
	FROM orders
	WHERE tenant_id = $1 AND order_datetime >= $2 AND order_datetime < $3
	ORDER BY order_datetime, order_id`

// PGLedger reads the spend and order ledgers from Postgres.
type PGLedger struct {
	pool pkgpg.Pool
	l    *applogger.Logger
}

func NewPGLedger(pool pkgpg.Pool, l *applogger.Logger) *PGLedger {
	if l == nil {
		l = applogger.Nop()
	}
	return &PGLedger{pool: pool, l: l}
}

func (s *PGLedger) SpendRows(ctx context.Context, q models.LedgerQuery) ([]models.SpendRecord, error) {
	empty, err := checkQuery(q)
	if err != nil || empty {
		return nil, err
	}
	start := time.Now()
	from, until := bounds(q)

	rows, err := s.pool.Query(ctx, pgSpendQuery, q.TenantID, from, until)
	if err != nil {
		s.l.Error("postgres spend_rows query error", applogger.String("tenant", q.TenantID), applogger.Error(err))
		return nil, unavailable(ledgerSpend, "query", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.SpendRecord, error) {
		var r models.SpendRecord
		err := row.Scan(&r.TenantID, &r.Channel, &r.CampaignID, &r.CampaignName, &r.Date,
			&r.Cost, &r.Impressions, &r.Clicks, &r.Conversions)
		r.Date = util.StartOfDay(r.Date)
		return r, err
	})
	if err != nil {
		s.l.Error("postgres spend_rows scan error", applogger.String("tenant", q.TenantID), applogger.Error(err))
		return nil, unavailable(ledgerSpend, "scan", err)
	}
	s.l.Debug("postgres spend_rows ok",
		applogger.String("tenant", q.TenantID),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *PGLedger) OrderRows(ctx context.Context, q models.LedgerQuery) ([]models.OrderRecord, error) {
	empty, err := checkQuery(q)
	if err != nil || empty {
		return nil, err
	}
	start := time.Now()
	from, until := bounds(q)

	rows, err := s.pool.Query(ctx, pgOrderQuery, q.TenantID, from, until)
	if err != nil {
		s.l.Error("postgres order_rows query error", applogger.String("tenant", q.TenantID), applogger.Error(err))
		return nil, unavailable(ledgerOrders, "query", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.OrderRecord, error) {
		var r models.OrderRecord
		err := row.Scan(&r.TenantID, &r.OrderID, &r.DateTime, &r.TotalAmount, &r.Currency,
			&r.Channel, &r.UTMSource, &r.Campaign, &r.CustomerID)
		r.DateTime = r.DateTime.UTC()
		return r, err
	})
	if err != nil {
		s.l.Error("postgres order_rows scan error", applogger.String("tenant", q.TenantID), applogger.Error(err))
		return nil, unavailable(ledgerOrders, "scan", err)
	}
	s.l.Debug("postgres order_rows ok",
		applogger.String("tenant", q.TenantID),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *PGLedger) Health(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return unavailable("postgres", "ping", err)
	}
	return nil
}

func (s *PGLedger) Close() error {
	s.pool.Close()
	return nil
}
