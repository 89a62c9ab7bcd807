package anomaly

import (
	"fmt"
	"sort"
	"time"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/services/stats"
	"OmniTrackIQ/pkg/util"
)

// dominantShare is the share of deviation above which one channel is named
// as the driver.
const dominantShare = 60.0

var relatedMetrics = map[models.Metric][]models.Metric{
	models.MetricRevenue:     {models.MetricOrders, models.MetricSpend, models.MetricROAS},
	models.MetricSpend:       {models.MetricClicks, models.MetricImpressions, models.MetricCPC, models.MetricROAS},
	models.MetricROAS:        {models.MetricRevenue, models.MetricSpend},
	models.MetricConversions: {models.MetricClicks, models.MetricSpend, models.MetricCPA},
	models.MetricOrders:      {models.MetricRevenue, models.MetricConversions},
	models.MetricClicks:      {models.MetricImpressions, models.MetricCTR, models.MetricSpend},
	models.MetricImpressions: {models.MetricClicks, models.MetricSpend},
	models.MetricCTR:         {models.MetricClicks, models.MetricImpressions},
	models.MetricCPC:         {models.MetricSpend, models.MetricClicks},
	models.MetricCPA:         {models.MetricSpend, models.MetricConversions},
}

// Explain breaks the movement of one metric on one day down by channel and
// lists the same-day movement of related metrics.
func (d *Detector) Explain(series []models.DailyMetricPoint, channels []models.ChannelSeries, date time.Time, m models.Metric, sens models.Sensitivity) models.AnomalyExplanation {
	date = util.StartOfDay(date)
	out := models.AnomalyExplanation{
		Date:             date,
		Metric:           m,
		ChannelBreakdown: []models.ChannelDeviation{},
		RelatedMetrics:   []models.RelatedMovement{},
		ProbableCauses:   []string{},
	}
	idx := indexOf(series, date)
	if idx < 0 {
		out.Message = fmt.Sprintf("%s is outside the analysed window", date.Format(models.DateLayout))
		return out
	}
	if len(series) < MinDays {
		out.Message = fmt.Sprintf("Not enough data to explain anomalies: need at least %d days, got %d", MinDays, len(series))
		return out
	}

	for _, a := range d.DetectMetric(series, m, sens) {
		if a.Date.Equal(date) {
			out.Anomaly = &a
			break
		}
	}

	out.ChannelBreakdown = channelBreakdown(channels, idx, m)
	out.RelatedMetrics = related(series, idx, m)
	out.ProbableCauses = causes(out, series[idx])

	if out.Anomaly == nil {
		out.Message = fmt.Sprintf("No anomaly detected for %s on %s", m, date.Format(models.DateLayout))
	} else {
		out.Message = out.Anomaly.Description
	}
	return out
}

func indexOf(series []models.DailyMetricPoint, date time.Time) int {
	for i, p := range series {
		if util.StartOfDay(p.Date).Equal(date) {
			return i
		}
	}
	return -1
}

// trailingMean averages up to stats.BaselineWindow values before i, zeros included,
// so per-channel expectations add up to the total.
func trailingMean(values []float64, i int) float64 {
	start := i - stats.BaselineWindow
	if start < 0 {
		start = 0
	}
	return stats.Mean(values[start:i])
}

func channelBreakdown(channels []models.ChannelSeries, idx int, m models.Metric) []models.ChannelDeviation {
	out := make([]models.ChannelDeviation, 0, len(channels))
	totalAbs := 0.0
	for _, ch := range channels {
		if idx >= len(ch.Points) {
			continue
		}
		values := models.Values(ch.Points, m)
		expected := trailingMean(values, idx)
		value := values[idx]
		if value == 0 && expected == 0 {
			continue
		}
		change := value - expected
		totalAbs += abs(change)
		out = append(out, models.ChannelDeviation{
			Channel:       ch.Channel,
			Value:         stats.Round(value, 4),
			ExpectedValue: stats.Round(expected, 4),
			Change:        change,
			ChangePercent: stats.Round(stats.PercentChange(value, expected), 2),
		})
	}
	for i := range out {
		out[i].ShareOfDeviation = stats.Round(stats.SafeDiv(abs(out[i].Change), totalAbs)*100, 2)
		out[i].Change = stats.Round(out[i].Change, 4)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return abs(out[i].Change) > abs(out[j].Change)
	})
	return out
}

func related(series []models.DailyMetricPoint, idx int, m models.Metric) []models.RelatedMovement {
	list := relatedMetrics[m]
	out := make([]models.RelatedMovement, 0, len(list))
	for _, r := range list {
		values := models.Values(series, r)
		start := idx - stats.BaselineWindow
		if start < 0 {
			start = 0
		}
		expected := stats.NewBaseline(values[start:idx]).Mean
		out = append(out, models.RelatedMovement{
			Metric:        r,
			Value:         stats.Round(values[idx], 4),
			ExpectedValue: stats.Round(expected, 4),
			ChangePercent: stats.Round(stats.PercentChange(values[idx], expected), 2),
		})
	}
	return out
}

func movement(list []models.RelatedMovement, m models.Metric) (float64, bool) {
	for _, r := range list {
		if r.Metric == m {
			return r.ChangePercent, true
		}
	}
	return 0, false
}

// causes applies simple heuristics over the breakdown and related metrics.
func causes(e models.AnomalyExplanation, day models.DailyMetricPoint) []string {
	var out []string
	if len(e.ChannelBreakdown) > 0 && e.ChannelBreakdown[0].ShareOfDeviation >= dominantShare {
		top := e.ChannelBreakdown[0]
		out = append(out, fmt.Sprintf("%s accounts for %.0f%% of the movement (%+.1f%% vs its baseline)",
			top.Channel, top.ShareOfDeviation, top.ChangePercent))
	}

	value := day.Value(e.Metric)
	if value == 0 {
		out = append(out, "No data recorded for the day: check tracking, data sync or paused campaigns")
	}

	up := e.Anomaly != nil && e.Anomaly.Type == models.AnomalySpike
	down := e.Anomaly != nil && e.Anomaly.Type != models.AnomalySpike

	switch e.Metric {
	case models.MetricRevenue:
		orders, _ := movement(e.RelatedMetrics, models.MetricOrders)
		spend, _ := movement(e.RelatedMetrics, models.MetricSpend)
		switch {
		case (up || down) && abs(orders) < 10:
			out = append(out, "Order count is steady, so average order value moved: check pricing, promotions or large orders")
		case down && abs(spend) < 10:
			out = append(out, "Fewer orders at normal spend: check site availability, checkout or conversion tracking")
		case up && spend > 20:
			out = append(out, "Revenue rose with spend: recent budget increase is converting")
		}
	case models.MetricSpend:
		if up {
			out = append(out, "Budget change, bid strategy update or new campaign launch")
		}
		if down {
			out = append(out, "Campaigns paused, budget exhausted or a billing issue on the ad account")
		}
	case models.MetricROAS:
		spend, _ := movement(e.RelatedMetrics, models.MetricSpend)
		revenue, _ := movement(e.RelatedMetrics, models.MetricRevenue)
		if down && spend > revenue {
			out = append(out, "Spend grew faster than revenue: new spend is landing on weaker audiences")
		}
		if up && revenue > spend {
			out = append(out, "Revenue grew faster than spend: efficiency improved")
		}
	case models.MetricCPA, models.MetricCPC:
		if up {
			out = append(out, "Auction costs rose: check competition, targeting changes or creative fatigue")
		}
	case models.MetricConversions, models.MetricOrders:
		clicks, ok := movement(e.RelatedMetrics, models.MetricClicks)
		if down && ok && clicks > -10 {
			out = append(out, "Traffic is steady but conversions fell: check landing pages and conversion tracking")
		}
	case models.MetricClicks, models.MetricImpressions, models.MetricCTR:
		if down {
			out = append(out, "Reach dropped: check ad approvals, budgets and audience size")
		}
	}

	if len(out) == 0 {
		out = append(out, "No single driver identified; the movement is spread across channels")
	}
	return out
}
