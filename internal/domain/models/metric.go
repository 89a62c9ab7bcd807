package models

import (
	"encoding/json"
	"strings"
	"time"

	"OmniTrackIQ/pkg/util"
)

// DateLayout is the calendar-day format used on every analytics boundary.
const DateLayout = "2006-01-02"

// DefaultChannel is assigned to orders that carry no attribution tags.
const DefaultChannel = "direct"

// SpendRecord is one row of the ad-spend ledger.
type SpendRecord struct {
	TenantID     string
	Channel      string
	CampaignID   string
	CampaignName string
	Date         time.Time
	Cost         float64
	Impressions  int64
	Clicks       int64
	Conversions  float64
}

// OrderRecord is one row of the order ledger.
type OrderRecord struct {
	TenantID    string
	OrderID     string
	DateTime    time.Time
	TotalAmount float64
	Currency    string
	Channel     string
	UTMSource   string
	Campaign    string
	CustomerID  string
}

// InferredChannel returns the canonical channel an order is credited to.
// utm_source wins over the platform channel; untagged orders are "direct".
func (o OrderRecord) InferredChannel() string {
	if ch := NormalizeChannel(o.UTMSource); ch != "" {
		return ch
	}
	if ch := NormalizeChannel(o.Channel); ch != "" {
		return ch
	}
	return DefaultChannel
}

// HasChannelTag reports whether the order carries any attribution tag.
func (o OrderRecord) HasChannelTag() bool {
	return NormalizeChannel(o.UTMSource) != "" || NormalizeChannel(o.Channel) != ""
}

var channelAliases = map[string]string{
	"facebook":      "meta",
	"fb":            "meta",
	"instagram":     "meta",
	"ig":            "meta",
	"meta_ads":      "meta",
	"facebook_ads":  "meta",
	"google":        "google_ads",
	"googleads":     "google_ads",
	"adwords":       "google_ads",
	"tiktok_ads":    "tiktok",
	"bing":          "microsoft_ads",
	"bing_ads":      "microsoft_ads",
	"linkedin_ads":  "linkedin",
	"newsletter":    "email",
	"klaviyo":       "email",
	"organic":       "organic_search",
	"seo":           "organic_search",
	"(direct)":      DefaultChannel,
	"(none)":        DefaultChannel,
	"direct_visit":  DefaultChannel,
	"pinterest_ads": "pinterest",
}

// NormalizeChannel maps platform and utm spellings onto one canonical key so
// spend rows and order rows join on the same channel.
func NormalizeChannel(raw string) string {
	ch := strings.ToLower(strings.TrimSpace(raw))
	ch = strings.ReplaceAll(ch, " ", "_")
	ch = strings.ReplaceAll(ch, "-", "_")
	if alias, ok := channelAliases[ch]; ok {
		return alias
	}
	return ch
}

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Days returns the number of calendar days in the range, 0 when inverted.
func (r DateRange) Days() int {
	from, to := util.StartOfDay(r.From), util.StartOfDay(r.To)
	if from.After(to) {
		return 0
	}
	return int(to.Sub(from).Hours()/24) + 1
}

// MarshalJSON renders both bounds as plain dates.
func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		From string `json:"from"`
		To   string `json:"to"`
		Days int    `json:"days"`
	}{r.From.Format(DateLayout), r.To.Format(DateLayout), r.Days()})
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (r *DateRange) UnmarshalJSON(b []byte) error {
	var raw struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	from, err := time.Parse(DateLayout, raw.From)
	if err != nil {
		return err
	}
	to, err := time.Parse(DateLayout, raw.To)
	if err != nil {
		return err
	}
	r.From, r.To = from, to
	return nil
}

// LedgerQuery scopes a ledger read and the aggregation built from it.
type LedgerQuery struct {
	TenantID string
	From     time.Time
	To       time.Time
	Channel  string
}

// Range returns the query window as a DateRange.
func (q LedgerQuery) Range() DateRange {
	return DateRange{From: util.StartOfDay(q.From), To: util.StartOfDay(q.To)}
}

// DailyMetricPoint is one day of joined spend and order activity.
// Only ground-truth fields are stored; ratios are always recomputed.
type DailyMetricPoint struct {
	TenantID    string
	Date        time.Time
	Channel     string
	CampaignID  string
	Spend       float64
	Impressions int64
	Clicks      int64
	Conversions float64
	Revenue     float64
	Orders      int64
}

// ROAS is revenue over spend, 0 when nothing was spent.
func (p DailyMetricPoint) ROAS() float64 { return ratio(p.Revenue, p.Spend) }

// CTR is clicks over impressions as a percentage.
func (p DailyMetricPoint) CTR() float64 {
	return ratio(float64(p.Clicks), float64(p.Impressions)) * 100
}

// CPC is spend per click.
func (p DailyMetricPoint) CPC() float64 { return ratio(p.Spend, float64(p.Clicks)) }

// CPA is spend per conversion.
func (p DailyMetricPoint) CPA() float64 { return ratio(p.Spend, p.Conversions) }

// AOV is revenue per order.
func (p DailyMetricPoint) AOV() float64 { return ratio(p.Revenue, float64(p.Orders)) }

// Value extracts a single metric from the point.
func (p DailyMetricPoint) Value(m Metric) float64 {
	switch m {
	case MetricSpend:
		return p.Spend
	case MetricRevenue:
		return p.Revenue
	case MetricROAS:
		return p.ROAS()
	case MetricConversions:
		return p.Conversions
	case MetricOrders:
		return float64(p.Orders)
	case MetricClicks:
		return float64(p.Clicks)
	case MetricImpressions:
		return float64(p.Impressions)
	case MetricCTR:
		return p.CTR()
	case MetricCPC:
		return p.CPC()
	case MetricCPA:
		return p.CPA()
	default:
		return 0
	}
}

// MarshalJSON emits ground-truth fields plus freshly computed ratios.
func (p DailyMetricPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date        string  `json:"date"`
		Channel     string  `json:"channel,omitempty"`
		CampaignID  string  `json:"campaign_id,omitempty"`
		Spend       float64 `json:"spend"`
		Impressions int64   `json:"impressions"`
		Clicks      int64   `json:"clicks"`
		Conversions float64 `json:"conversions"`
		Revenue     float64 `json:"revenue"`
		Orders      int64   `json:"orders"`
		ROAS        float64 `json:"roas"`
		CTR         float64 `json:"ctr"`
		CPC         float64 `json:"cpc"`
		CPA         float64 `json:"cpa"`
	}{
		Date:        p.Date.Format(DateLayout),
		Channel:     p.Channel,
		CampaignID:  p.CampaignID,
		Spend:       p.Spend,
		Impressions: p.Impressions,
		Clicks:      p.Clicks,
		Conversions: p.Conversions,
		Revenue:     p.Revenue,
		Orders:      p.Orders,
		ROAS:        p.ROAS(),
		CTR:         p.CTR(),
		CPC:         p.CPC(),
		CPA:         p.CPA(),
	})
}

// ChannelSeries is a dense daily series for a single channel.
type ChannelSeries struct {
	Channel string             `json:"channel"`
	Points  []DailyMetricPoint `json:"points"`
}

// Totals sums the series into a single point dated at its last day.
func Totals(points []DailyMetricPoint) DailyMetricPoint {
	var t DailyMetricPoint
	for _, p := range points {
		t.Spend += p.Spend
		t.Impressions += p.Impressions
		t.Clicks += p.Clicks
		t.Conversions += p.Conversions
		t.Revenue += p.Revenue
		t.Orders += p.Orders
		t.Date = p.Date
		t.TenantID = p.TenantID
		t.Channel = p.Channel
	}
	return t
}

// Values projects a metric out of a series.
func Values(points []DailyMetricPoint, m Metric) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value(m)
	}
	return out
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
