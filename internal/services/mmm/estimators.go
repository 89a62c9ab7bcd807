package mmm

import (
	"sort"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/domain/service"
	"OmniTrackIQ/internal/services/stats"
)

// Defaults of the heuristic strategies.
const (
	DefaultDiscount     = 0.9
	DefaultRecentWindow = 7

	minSaturationDays = 6
	unknownSaturation = 50.0
)

var (
	_ service.MarginalResponseEstimator = HeuristicMarginalResponse{}
	_ service.SaturationEstimator       = ThirdsSaturation{}
)

// HeuristicMarginalResponse discounts realized ROAS. When day-over-day spend
// and revenue changes move together, the recent window's ROAS is discounted
// instead of the whole period's.
type HeuristicMarginalResponse struct {
	Discount     float64
	RecentWindow int
}

// DefaultMarginalResponse is the conservative 0.9 proxy over the last 7 spend days.
func DefaultMarginalResponse() HeuristicMarginalResponse {
	return HeuristicMarginalResponse{Discount: DefaultDiscount, RecentWindow: DefaultRecentWindow}
}

func (h HeuristicMarginalResponse) EstimateMarginalResponse(series []models.DailyMetricPoint) float64 {
	roas := models.Totals(series).ROAS()
	active := activeDays(series)
	if len(active) < h.RecentWindow || h.RecentWindow < 2 {
		return roas * h.Discount
	}
	spend := models.Values(active, models.MetricSpend)
	revenue := models.Values(active, models.MetricRevenue)
	if stats.Pearson(stats.Diff(spend), stats.Diff(revenue)) <= 0 {
		return roas * h.Discount
	}
	recent := active[len(active)-h.RecentWindow:]
	return models.Totals(recent).ROAS() * h.Discount
}

// ThirdsSaturation compares the ROAS of the highest-spend third of days with
// the lowest-spend third. Equal efficiency reads as 0, none left at the top as 100.
type ThirdsSaturation struct{}

func (ThirdsSaturation) EstimateSaturation(series []models.DailyMetricPoint) float64 {
	active := activeDays(series)
	n := len(active)
	if n < minSaturationDays {
		return unknownSaturation
	}
	sorted := append([]models.DailyMetricPoint(nil), active...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Spend < sorted[j].Spend })
	third := n / 3
	low := models.Totals(sorted[:third]).ROAS()
	high := models.Totals(sorted[n-third:]).ROAS()
	if low == 0 {
		if high > 0 {
			return 0
		}
		return unknownSaturation
	}
	ratio := high / low
	if ratio > 1 {
		ratio = 1
	}
	if ratio < 0 {
		ratio = 0
	}
	return (1 - ratio) * 100
}

func activeDays(series []models.DailyMetricPoint) []models.DailyMetricPoint {
	out := make([]models.DailyMetricPoint, 0, len(series))
	for _, p := range series {
		if p.Spend > 0 {
			out = append(out, p)
		}
	}
	return out
}
