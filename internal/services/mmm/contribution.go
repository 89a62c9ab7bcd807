package mmm

import (
	"fmt"
	"sort"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/domain/service"
	"OmniTrackIQ/internal/services/stats"
)

// Optimizer estimates channel efficiency and proposes spend allocations.
type Optimizer struct {
	marginal   service.MarginalResponseEstimator
	saturation service.SaturationEstimator
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithMarginalResponse swaps the marginal ROAS strategy.
func WithMarginalResponse(e service.MarginalResponseEstimator) Option {
	return func(o *Optimizer) { o.marginal = e }
}

// WithSaturation swaps the saturation strategy.
func WithSaturation(e service.SaturationEstimator) Option {
	return func(o *Optimizer) { o.saturation = e }
}

// NewOptimizer returns an Optimizer with the heuristic strategies unless overridden.
func NewOptimizer(opts ...Option) *Optimizer {
	o := &Optimizer{
		marginal:   DefaultMarginalResponse(),
		saturation: ThirdsSaturation{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Efficiency grades a channel from fixed thresholds.
func Efficiency(roas, marginal, saturation float64) models.EfficiencyRating {
	switch {
	case roas >= 4 && saturation < 50:
		return models.EfficiencyExcellent
	case roas >= 2.5 && marginal >= 1:
		return models.EfficiencyGood
	case roas >= 1:
		return models.EfficiencyAverage
	}
	return models.EfficiencyPoor
}

// contribute scores every channel with spend or revenue. Shares are in percent.
func (o *Optimizer) contribute(channels []models.ChannelSeries) []models.ChannelContribution {
	var totalSpend, totalRevenue float64
	totals := make([]models.DailyMetricPoint, len(channels))
	for i, ch := range channels {
		totals[i] = models.Totals(ch.Points)
		totalSpend += totals[i].Spend
		totalRevenue += totals[i].Revenue
	}

	out := make([]models.ChannelContribution, 0, len(channels))
	for i, ch := range channels {
		t := totals[i]
		if t.Spend == 0 && t.Revenue == 0 {
			continue
		}
		c := models.ChannelContribution{
			Channel:      ch.Channel,
			Spend:        t.Spend,
			Revenue:      t.Revenue,
			Conversions:  t.Conversions,
			ROAS:         t.ROAS(),
			CPA:          t.CPA(),
			RevenueShare: stats.SafeDiv(t.Revenue, totalRevenue) * 100,
			SpendShare:   stats.SafeDiv(t.Spend, totalSpend) * 100,
			ActiveDays:   len(activeDays(ch.Points)),
		}
		if t.Spend > 0 {
			c.MarginalROAS = o.marginal.EstimateMarginalResponse(ch.Points)
			c.SaturationLevel = o.saturation.EstimateSaturation(ch.Points)
		}
		c.EfficiencyRating = Efficiency(c.ROAS, c.MarginalROAS, c.SaturationLevel)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Channel < out[j].Channel
	})
	return out
}

func roundContribution(c models.ChannelContribution) models.ChannelContribution {
	c.Spend = stats.Round(c.Spend, 2)
	c.Revenue = stats.Round(c.Revenue, 2)
	c.Conversions = stats.Round(c.Conversions, 2)
	c.ROAS = stats.Round(c.ROAS, 4)
	c.CPA = stats.Round(c.CPA, 2)
	c.MarginalROAS = stats.Round(c.MarginalROAS, 4)
	c.SaturationLevel = stats.Round(c.SaturationLevel, 2)
	c.RevenueShare = stats.Round(c.RevenueShare, 2)
	c.SpendShare = stats.Round(c.SpendShare, 2)
	return c
}

// Contribution reports each channel's realized and marginal efficiency.
func (o *Optimizer) Contribution(period models.DateRange, channels []models.ChannelSeries) models.ContributionAnalysis {
	out := models.ContributionAnalysis{Period: period, Channels: []models.ChannelContribution{}}
	for _, c := range o.contribute(channels) {
		out.TotalSpend += c.Spend
		out.TotalRevenue += c.Revenue
		out.Channels = append(out.Channels, roundContribution(c))
	}
	out.OverallROAS = stats.Round(stats.SafeDiv(out.TotalRevenue, out.TotalSpend), 4)
	out.TotalSpend = stats.Round(out.TotalSpend, 2)
	out.TotalRevenue = stats.Round(out.TotalRevenue, 2)
	if len(out.Channels) == 0 {
		out.Message = "No channel activity in the selected period"
		return out
	}
	out.TopChannel = out.Channels[0].Channel
	out.Message = fmt.Sprintf("%s drives %.1f%% of revenue", out.TopChannel, out.Channels[0].RevenueShare)
	return out
}
