package aggregator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/pkg/util"
)

// bucket accumulates one (date[, channel]) cell. Money is summed as decimals
// so long windows give the same totals regardless of row order.
type bucket struct {
	spend       decimal.Decimal
	revenue     decimal.Decimal
	impressions int64
	clicks      int64
	conversions decimal.Decimal
	orders      int64
}

func (b *bucket) addSpend(r models.SpendRecord) {
	b.spend = b.spend.Add(decimal.NewFromFloat(r.Cost))
	b.impressions += r.Impressions
	b.clicks += r.Clicks
	b.conversions = b.conversions.Add(decimal.NewFromFloat(r.Conversions))
}

func (b *bucket) addOrder(o models.OrderRecord) {
	b.revenue = b.revenue.Add(decimal.NewFromFloat(o.TotalAmount))
	b.orders++
}

func (b *bucket) point(tenantID string, day time.Time, channel string) models.DailyMetricPoint {
	return models.DailyMetricPoint{
		TenantID:    tenantID,
		Date:        day,
		Channel:     channel,
		Spend:       b.spend.InexactFloat64(),
		Impressions: b.impressions,
		Clicks:      b.clicks,
		Conversions: b.conversions.InexactFloat64(),
		Revenue:     b.revenue.InexactFloat64(),
		Orders:      b.orders,
	}
}

func spendChannel(r models.SpendRecord) string {
	if ch := models.NormalizeChannel(r.Channel); ch != "" {
		return ch
	}
	return models.DefaultChannel
}

// Days lists every calendar day of r, empty when r is inverted.
func Days(r models.DateRange) []time.Time {
	return util.EachDay(r.From, r.To)
}

// BuildDailySeries joins the two ledgers into one dense series over q's window.
// When q.Channel is set only rows whose normalized channel matches are kept.
func BuildDailySeries(q models.LedgerQuery, spend []models.SpendRecord, orders []models.OrderRecord) []models.DailyMetricPoint {
	days := Days(q.Range())
	if len(days) == 0 {
		return []models.DailyMetricPoint{}
	}
	filter := models.NormalizeChannel(q.Channel)

	cells := make(map[time.Time]*bucket, len(days))
	for _, d := range days {
		cells[d] = &bucket{}
	}
	for _, r := range spend {
		if filter != "" && spendChannel(r) != filter {
			continue
		}
		if b, ok := cells[util.StartOfDay(r.Date)]; ok {
			b.addSpend(r)
		}
	}
	for _, o := range orders {
		if filter != "" && o.InferredChannel() != filter {
			continue
		}
		if b, ok := cells[util.StartOfDay(o.DateTime)]; ok {
			b.addOrder(o)
		}
	}

	out := make([]models.DailyMetricPoint, len(days))
	for i, d := range days {
		out[i] = cells[d].point(q.TenantID, d, filter)
	}
	return out
}

// BuildChannelSeries splits the same aggregation by normalized channel. Every
// channel seen on either ledger gets a dense series; channels are sorted by name.
func BuildChannelSeries(q models.LedgerQuery, spend []models.SpendRecord, orders []models.OrderRecord) []models.ChannelSeries {
	days := Days(q.Range())
	if len(days) == 0 {
		return []models.ChannelSeries{}
	}
	filter := models.NormalizeChannel(q.Channel)
	index := make(map[time.Time]int, len(days))
	for i, d := range days {
		index[d] = i
	}

	grid := make(map[string][]bucket)
	cell := func(channel string, day time.Time) *bucket {
		i, ok := index[util.StartOfDay(day)]
		if !ok {
			return nil
		}
		row, ok := grid[channel]
		if !ok {
			row = make([]bucket, len(days))
			grid[channel] = row
		}
		return &row[i]
	}

	for _, r := range spend {
		ch := spendChannel(r)
		if filter != "" && ch != filter {
			continue
		}
		if b := cell(ch, r.Date); b != nil {
			b.addSpend(r)
		}
	}
	for _, o := range orders {
		ch := o.InferredChannel()
		if filter != "" && ch != filter {
			continue
		}
		if b := cell(ch, o.DateTime); b != nil {
			b.addOrder(o)
		}
	}

	channels := make([]string, 0, len(grid))
	for ch := range grid {
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	out := make([]models.ChannelSeries, 0, len(channels))
	for _, ch := range channels {
		row := grid[ch]
		points := make([]models.DailyMetricPoint, len(days))
		for i, d := range days {
			points[i] = row[i].point(q.TenantID, d, ch)
		}
		out = append(out, models.ChannelSeries{Channel: ch, Points: points})
	}
	return out
}

// SpendByChannel totals spend per normalized channel over the window.
func SpendByChannel(q models.LedgerQuery, spend []models.SpendRecord) map[string]float64 {
	r := q.Range()
	totals := make(map[string]decimal.Decimal)
	for _, s := range spend {
		d := util.StartOfDay(s.Date)
		if d.Before(r.From) || d.After(r.To) {
			continue
		}
		ch := spendChannel(s)
		totals[ch] = totals[ch].Add(decimal.NewFromFloat(s.Cost))
	}
	out := make(map[string]float64, len(totals))
	for ch, v := range totals {
		out[ch] = v.InexactFloat64()
	}
	return out
}
