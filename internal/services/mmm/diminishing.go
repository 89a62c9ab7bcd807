package mmm

import (
	"fmt"
	"sort"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/services/stats"
)

// MinQuartileDays is the number of spend days needed for four buckets.
const MinQuartileDays = 8

// DiminishingReturns buckets a channel's spend days into quartiles and
// reports how efficiency falls as daily spend grows.
func (o *Optimizer) DiminishingReturns(period models.DateRange, series models.ChannelSeries) models.DiminishingReturns {
	out := models.DiminishingReturns{
		Period:    period,
		Channel:   series.Channel,
		Quartiles: []models.SpendQuartile{},
	}
	active := activeDays(series.Points)
	if len(active) < MinQuartileDays {
		out.Message = fmt.Sprintf("Not enough spend days for %s: need at least %d, got %d", series.Channel, MinQuartileDays, len(active))
		return out
	}

	sorted := append([]models.DailyMetricPoint(nil), active...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Spend < sorted[j].Spend })
	n := len(sorted)
	for q := 0; q < 4; q++ {
		bucket := sorted[q*n/4 : (q+1)*n/4]
		t := models.Totals(bucket)
		out.Quartiles = append(out.Quartiles, models.SpendQuartile{
			Quartile:   q + 1,
			Days:       len(bucket),
			MinSpend:   stats.Round(bucket[0].Spend, 2),
			MaxSpend:   stats.Round(bucket[len(bucket)-1].Spend, 2),
			AvgSpend:   stats.Round(t.Spend/float64(len(bucket)), 2),
			AvgRevenue: stats.Round(t.Revenue/float64(len(bucket)), 2),
			ROAS:       stats.Round(t.ROAS(), 4),
		})
	}

	first, last := out.Quartiles[0].ROAS, out.Quartiles[3].ROAS
	if first > 0 {
		out.EfficiencyDropPercent = stats.Round((first-last)/first*100, 2)
	}
	out.SaturationLevel = stats.Round(o.saturation.EstimateSaturation(series.Points), 2)

	best := out.Quartiles[0]
	for _, q := range out.Quartiles[1:] {
		if q.ROAS > best.ROAS {
			best = q
		}
	}
	out.RecommendedMinSpend = best.MinSpend
	out.RecommendedMaxSpend = best.MaxSpend

	switch {
	case out.EfficiencyDropPercent >= 30:
		out.Message = fmt.Sprintf("Strong diminishing returns: ROAS falls %.1f%% from the lowest to the highest spend days", out.EfficiencyDropPercent)
	case out.EfficiencyDropPercent >= 10:
		out.Message = fmt.Sprintf("Moderate diminishing returns: ROAS falls %.1f%% at higher spend", out.EfficiencyDropPercent)
	default:
		out.Message = "Efficiency holds up at higher spend levels; room to scale"
	}
	return out
}
