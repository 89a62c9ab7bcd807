package repository

import (
	"context"
	"database/sql"
	"time"

	"OmniTrackIQ/internal/domain/models"
	pkgch "OmniTrackIQ/pkg/clickhouse"
	applogger "OmniTrackIQ/pkg/logger"
	"OmniTrackIQ/pkg/util"
)

const chSpendQuery = `
	SELECT tenant_id, channel, campaign_id, campaign_name, date,
	       toFloat64(cost), impressions, clicks, conversions
	FROM ad_spend FINAL
	WHERE tenant_id = ? AND date >= ? AND date < ?
	ORDER BY date ASC, channel ASC, campaign_id ASC
`

const chOrderQuery = `
	SELECT tenant_id, order_id, order_datetime, toFloat64(total_amount),
	       currency, channel, utm_source, utm_campaign, customer_id
	FROM orders FINAL
	WHERE tenant_id = ? AND order_datetime >= ? AND order_datetime < ?
	ORDER BY order_datetime ASC, order_id ASC
`

// CHLedger reads the spend and order ledgers from ClickHouse.
type CHLedger struct {
	client *pkgch.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewCHLedger(ch *pkgch.Client, l *applogger.Logger) *CHLedger {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHLedger{client: ch, db: ch.DB(), l: l}
}

func (s *CHLedger) SpendRows(ctx context.Context, q models.LedgerQuery) ([]models.SpendRecord, error) {
	empty, err := checkQuery(q)
	if err != nil || empty {
		return nil, err
	}
	start := time.Now()
	from, until := bounds(q)

	rows, err := s.db.QueryContext(ctx, chSpendQuery, q.TenantID, from, until)
	if err != nil {
		s.l.Error("clickhouse spend_rows query error",
			applogger.String("tenant", q.TenantID),
			applogger.Error(err),
		)
		return nil, unavailable(ledgerSpend, "query", err)
	}
	defer rows.Close()

	out := make([]models.SpendRecord, 0, 256)
	for rows.Next() {
		var r models.SpendRecord
		var impressions, clicks uint64
		if err := rows.Scan(&r.TenantID, &r.Channel, &r.CampaignID, &r.CampaignName, &r.Date,
			&r.Cost, &impressions, &clicks, &r.Conversions); err != nil {
			s.l.Error("clickhouse spend_rows scan error",
				applogger.String("tenant", q.TenantID),
				applogger.Error(err),
			)
			return nil, unavailable(ledgerSpend, "scan", err)
		}
		r.Impressions, r.Clicks = int64(impressions), int64(clicks)
		r.Date = util.StartOfDay(r.Date)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		s.l.Error("clickhouse spend_rows rows error",
			applogger.String("tenant", q.TenantID),
			applogger.Error(err),
		)
		return nil, unavailable(ledgerSpend, "rows", err)
	}
	s.l.Debug("clickhouse spend_rows ok",
		applogger.String("tenant", q.TenantID),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHLedger) OrderRows(ctx context.Context, q models.LedgerQuery) ([]models.OrderRecord, error) {
	empty, err := checkQuery(q)
	if err != nil || empty {
		return nil, err
	}
	start := time.Now()
	from, until := bounds(q)

	rows, err := s.db.QueryContext(ctx, chOrderQuery, q.TenantID, from, until)
	if err != nil {
		s.l.Error("clickhouse order_rows query error",
			applogger.String("tenant", q.TenantID),
			applogger.Error(err),
		)
		return nil, unavailable(ledgerOrders, "query", err)
	}
	defer rows.Close()

	out := make([]models.OrderRecord, 0, 1024)
	for rows.Next() {
		var r models.OrderRecord
		if err := rows.Scan(&r.TenantID, &r.OrderID, &r.DateTime, &r.TotalAmount,
			&r.Currency, &r.Channel, &r.UTMSource, &r.Campaign, &r.CustomerID); err != nil {
			s.l.Error("clickhouse order_rows scan error",
				applogger.String("tenant", q.TenantID),
				applogger.Error(err),
			)
			return nil, unavailable(ledgerOrders, "scan", err)
		}
		r.DateTime = r.DateTime.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		s.l.Error("clickhouse order_rows rows error",
			applogger.String("tenant", q.TenantID),
			applogger.Error(err),
		)
		return nil, unavailable(ledgerOrders, "rows", err)
	}
	s.l.Debug("clickhouse order_rows ok",
		applogger.String("tenant", q.TenantID),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHLedger) Health(ctx context.Context) error {
	if err := s.client.Health(ctx); err != nil {
		return unavailable("clickhouse", "ping", err)
	}
	return nil
}

func (s *CHLedger) Close() error { return s.client.Close() }
