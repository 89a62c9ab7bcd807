package attribution

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/services/stats"
	"OmniTrackIQ/pkg/util"
)

// DefaultLookbackDays bounds how far back touchpoints are collected.
const DefaultLookbackDays = 30

// Engine splits order revenue across the touchpoints that preceded it.
type Engine struct {
	lookbackDays int
}

// NewEngine returns an Engine with the given default lookback in days.
func NewEngine(lookbackDays int) *Engine {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &Engine{lookbackDays: lookbackDays}
}

// LookbackDays is the engine's default lookback.
func (e *Engine) LookbackDays() int { return e.lookbackDays }

// Journeys indexes the tagged orders of each customer in chronological order.
type Journeys map[string][]models.OrderRecord

// NewJourneys builds the index from every order that can serve as a touchpoint.
func NewJourneys(history []models.OrderRecord) Journeys {
	j := make(Journeys)
	for _, o := range history {
		if o.CustomerID == "" || !o.HasChannelTag() {
			continue
		}
		j[o.CustomerID] = append(j[o.CustomerID], o)
	}
	for _, list := range j {
		sort.SliceStable(list, func(a, b int) bool {
			if !list[a].DateTime.Equal(list[b].DateTime) {
				return list[a].DateTime.Before(list[b].DateTime)
			}
			return list[a].OrderID < list[b].OrderID
		})
	}
	return j
}

// Touchpoints returns the customer's tagged orders in [t-lookback, t], the
// converting order included. With none, a single synthetic touchpoint carries
// the order's own channel.
func (j Journeys) Touchpoints(order models.OrderRecord, lookbackDays int) []models.Touchpoint {
	from := order.DateTime.AddDate(0, 0, -lookbackDays)
	var out []models.Touchpoint
	if order.CustomerID != "" {
		for _, o := range j[order.CustomerID] {
			if o.DateTime.Before(from) || o.DateTime.After(order.DateTime) {
				continue
			}
			out = append(out, models.Touchpoint{
				Channel:   o.InferredChannel(),
				Campaign:  o.Campaign,
				Timestamp: o.DateTime,
			})
		}
	} else if order.HasChannelTag() {
		out = append(out, models.Touchpoint{
			Channel:   order.InferredChannel(),
			Campaign:  order.Campaign,
			Timestamp: order.DateTime,
		})
	}
	if len(out) == 0 {
		out = append(out, models.Touchpoint{
			Channel:   order.InferredChannel(),
			Campaign:  order.Campaign,
			Timestamp: order.DateTime,
			Synthetic: true,
		})
	}
	return out
}

type credit struct {
	revenue     decimal.Decimal
	conversions decimal.Decimal
}

type campaignKey struct {
	channel  string
	campaign string
}

// ledger holds the credited totals of one model run.
type ledger struct {
	channels    map[string]*credit
	campaigns   map[campaignKey]*credit
	orders      int
	revenue     decimal.Decimal
	touchpoints int
}

func (l *ledger) add(channel, campaign string, amount decimal.Decimal, weight float64) {
	w := decimal.NewFromFloat(weight)
	c, ok := l.channels[channel]
	if !ok {
		c = &credit{}
		l.channels[channel] = c
	}
	c.revenue = c.revenue.Add(amount.Mul(w))
	c.conversions = c.conversions.Add(w)
	if campaign == "" {
		return
	}
	k := campaignKey{channel, campaign}
	cc, ok := l.campaigns[k]
	if !ok {
		cc = &credit{}
		l.campaigns[k] = cc
	}
	cc.revenue = cc.revenue.Add(amount.Mul(w))
	cc.conversions = cc.conversions.Add(w)
}

// Input is the order data of one attribution run.
type Input struct {
	Period       models.DateRange
	Orders       []models.OrderRecord // converting orders inside Period
	History      []models.OrderRecord // orders from Period.From-lookback to Period.To, Orders included
	Spend        map[string]float64
	LookbackDays int
	Channel      string
}

func (in Input) lookback(def int) int {
	if in.LookbackDays > 0 {
		return in.LookbackDays
	}
	return def
}

func (e *Engine) run(in Input, model models.AttributionModel) *ledger {
	l := &ledger{
		channels:  make(map[string]*credit),
		campaigns: make(map[campaignKey]*credit),
	}
	history := in.History
	if history == nil {
		history = in.Orders
	}
	journeys := NewJourneys(history)
	lookback := in.lookback(e.lookbackDays)
	for _, o := range in.Orders {
		tps := journeys.Touchpoints(o, lookback)
		weights := Weights(model, len(tps))
		amount := decimal.NewFromFloat(o.TotalAmount)
		for i, tp := range tps {
			l.add(tp.Channel, tp.Campaign, amount, weights[i])
		}
		l.orders++
		l.revenue = l.revenue.Add(amount)
		l.touchpoints += len(tps)
	}
	return l
}

// Report attributes the orders of in under model.
func (e *Engine) Report(in Input, model models.AttributionModel) models.AttributionReport {
	l := e.run(in, model)
	total := l.revenue.InexactFloat64()
	filter := models.NormalizeChannel(in.Channel)

	report := models.AttributionReport{
		Period:       in.Period,
		Model:        model,
		LookbackDays: in.lookback(e.lookbackDays),
		Channels:     []models.ChannelAttribution{},
		Campaigns:    []models.CampaignAttribution{},
		TotalRevenue: stats.Round(total, 2),
		TotalOrders:  l.orders,
	}

	names := make(map[string]bool, len(l.channels)+len(in.Spend))
	for ch := range l.channels {
		names[ch] = true
	}
	for ch := range in.Spend {
		names[ch] = true
	}
	for ch := range names {
		if filter != "" && ch != filter {
			continue
		}
		var revenue, conversions float64
		if c, ok := l.channels[ch]; ok {
			revenue = c.revenue.InexactFloat64()
			conversions = c.conversions.InexactFloat64()
		}
		spend := in.Spend[ch]
		report.TotalSpend += spend
		report.Channels = append(report.Channels, models.ChannelAttribution{
			Channel:               ch,
			AttributedRevenue:     stats.Round(revenue, 2),
			AttributedConversions: stats.Round(conversions, 4),
			Spend:                 stats.Round(spend, 2),
			ROAS:                  stats.Round(stats.SafeDiv(revenue, spend), 4),
			CPA:                   stats.Round(stats.SafeDiv(spend, conversions), 2),
			RevenueShare:          stats.Round(stats.SafeDiv(revenue, total)*100, 2),
		})
	}
	sort.Slice(report.Channels, func(i, j int) bool {
		a, b := report.Channels[i], report.Channels[j]
		if a.AttributedRevenue != b.AttributedRevenue {
			return a.AttributedRevenue > b.AttributedRevenue
		}
		return a.Channel < b.Channel
	})
	report.TotalSpend = stats.Round(report.TotalSpend, 2)

	for k, c := range l.campaigns {
		if filter != "" && k.channel != filter {
			continue
		}
		report.Campaigns = append(report.Campaigns, models.CampaignAttribution{
			Channel:               k.channel,
			Campaign:              k.campaign,
			AttributedRevenue:     stats.Round(c.revenue.InexactFloat64(), 2),
			AttributedConversions: stats.Round(c.conversions.InexactFloat64(), 4),
		})
	}
	sort.Slice(report.Campaigns, func(i, j int) bool {
		a, b := report.Campaigns[i], report.Campaigns[j]
		if a.AttributedRevenue != b.AttributedRevenue {
			return a.AttributedRevenue > b.AttributedRevenue
		}
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		return a.Campaign < b.Campaign
	})

	if l.orders > 0 {
		report.AverageTouchpoints = stats.Round(float64(l.touchpoints)/float64(l.orders), 2)
		report.Message = fmt.Sprintf("%d orders attributed with %s", l.orders, model)
	} else {
		report.Message = "No orders in the selected period"
	}
	return report
}

// Compare runs every distinct model over the same orders.
func (e *Engine) Compare(in Input) models.ModelComparison {
	filter := models.NormalizeChannel(in.Channel)
	out := models.ModelComparison{
		Period:   in.Period,
		Models:   models.ComparableModels,
		Channels: []models.ChannelModelComparison{},
	}

	runs := make(map[models.AttributionModel]*ledger, len(models.ComparableModels))
	names := make(map[string]bool)
	for _, m := range models.ComparableModels {
		l := e.run(in, m)
		runs[m] = l
		for ch := range l.channels {
			names[ch] = true
		}
		out.TotalOrders = l.orders
		out.TotalRevenue = stats.Round(l.revenue.InexactFloat64(), 2)
	}

	for ch := range names {
		if filter != "" && ch != filter {
			continue
		}
		row := models.ChannelModelComparison{
			Channel: ch,
			Credits: make(map[models.AttributionModel]models.ModelCredit, len(runs)),
		}
		values := make([]float64, 0, len(runs))
		for _, m := range models.ComparableModels {
			l := runs[m]
			var revenue, conversions float64
			if c, ok := l.channels[ch]; ok {
				revenue = c.revenue.InexactFloat64()
				conversions = c.conversions.InexactFloat64()
			}
			row.Credits[m] = models.ModelCredit{
				AttributedRevenue:     stats.Round(revenue, 2),
				AttributedConversions: stats.Round(conversions, 4),
				RevenueShare:          stats.Round(stats.SafeDiv(revenue, l.revenue.InexactFloat64())*100, 2),
			}
			values = append(values, revenue)
		}
		row.SpreadPercent = stats.Round(spread(values), 2)
		out.Channels = append(out.Channels, row)
	}
	sort.Slice(out.Channels, func(i, j int) bool {
		a := out.Channels[i].Credits[models.ModelLinear].AttributedRevenue
		b := out.Channels[j].Credits[models.ModelLinear].AttributedRevenue
		if a != b {
			return a > b
		}
		return out.Channels[i].Channel < out.Channels[j].Channel
	})

	if out.TotalOrders == 0 {
		out.Message = "No orders in the selected period"
	} else {
		out.Message = fmt.Sprintf("%d orders compared across %d models", out.TotalOrders, len(out.Models))
	}
	return out
}

// spread is (max-min)/mean as a percentage.
func spread(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return stats.SafeDiv(hi-lo, stats.Mean(values)) * 100
}

// HistoryFrom is the earliest order time needed to attribute orders from from.
func HistoryFrom(from time.Time, lookbackDays int) time.Time {
	return util.StartOfDay(from).AddDate(0, 0, -lookbackDays)
}
