package incrementality

import (
	"fmt"
	"sort"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/services/stats"
)

// DefaultBaselineRate applies to channels without a known organic rate.
const DefaultBaselineRate = 0.25

const baselineMethodology = "heuristic organic baseline rate per channel"

// share of a channel's conversions that would have happened without it
var organicRates = map[string]float64{
	models.DefaultChannel: 0.80,
	"organic_search":      0.70,
	"email":               0.40,
	"google_ads":          0.35,
	"meta":                0.20,
	"tiktok":              0.15,
}

// BaselineRate returns the organic baseline share for channel.
func BaselineRate(channel string) float64 {
	if r, ok := organicRates[models.NormalizeChannel(channel)]; ok {
		return r
	}
	return DefaultBaselineRate
}

// Baseline splits each channel's conversions into organic and incremental parts.
func (a *Analyzer) Baseline(period models.DateRange, channels []models.ChannelSeries) models.BaselineReport {
	out := models.BaselineReport{Period: period, Channels: []models.BaselineEstimate{}}
	for _, s := range channels {
		t := Summarize(period, s.Points)
		if t.Conversions == 0 && t.Spend == 0 {
			continue
		}
		rate := BaselineRate(s.Channel)
		base := t.Conversions * rate
		incRevenue := t.Revenue * (1 - rate)
		out.Channels = append(out.Channels, models.BaselineEstimate{
			Channel:                s.Channel,
			Period:                 period,
			TotalConversions:       t.Conversions,
			TotalRevenue:           stats.Round(t.Revenue, 2),
			Spend:                  stats.Round(t.Spend, 2),
			BaselineRate:           rate,
			BaselineConversions:    stats.Round(base, 2),
			IncrementalConversions: stats.Round(t.Conversions-base, 2),
			IncrementalRevenue:     stats.Round(incRevenue, 2),
			IncrementalROAS:        stats.Round(stats.SafeDiv(incRevenue, t.Spend), 4),
			Methodology:            baselineMethodology,
		})
		out.TotalConversions += t.Conversions
		out.BaselineConversions += base
	}
	sort.SliceStable(out.Channels, func(i, j int) bool {
		if out.Channels[i].IncrementalConversions != out.Channels[j].IncrementalConversions {
			return out.Channels[i].IncrementalConversions > out.Channels[j].IncrementalConversions
		}
		return out.Channels[i].Channel < out.Channels[j].Channel
	})
	out.IncrementalConversions = stats.Round(out.TotalConversions-out.BaselineConversions, 2)
	out.BaselineConversions = stats.Round(out.BaselineConversions, 2)

	if len(out.Channels) == 0 {
		out.Message = "No conversions in the selected period"
		return out
	}
	out.Message = fmt.Sprintf("An estimated %.1f%% of conversions are incremental",
		stats.SafeDiv(out.IncrementalConversions, out.TotalConversions)*100)
	return out
}
