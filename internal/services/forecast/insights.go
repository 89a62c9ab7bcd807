package forecast

import (
	"fmt"
	"math"
	"sort"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/services/stats"
)

const (
	trendInsightPercent = 10.0
	strongTrendPercent  = 30.0
	weakCorrelation     = 0.3
	strongCorrelation   = 0.7
	overPerformer       = 1.5
	underPerformer      = 0.5
	forecastHorizon     = 7
)

// Report sections, in the order they are produced.
const (
	SectionTrend       = "trend"
	SectionCorrelation = "correlation"
	SectionForecast    = "forecast"
	SectionChannels    = "channel_performance"
)

var trendMetrics = []models.Metric{
	models.MetricRevenue, models.MetricROAS, models.MetricConversions, models.MetricSpend, models.MetricCPA,
}

// Insights derives trend, correlation, forecast and channel findings. Sections
// whose minimum window is not met are left out.
func (e *Engine) Insights(series []models.DailyMetricPoint, channels []models.ChannelSeries) models.InsightReport {
	report := models.InsightReport{
		Period:   period(series),
		Insights: []models.Insight{},
		Sections: []string{},
	}
	if len(series) < MinTrendDays {
		report.Message = fmt.Sprintf("Not enough data for insights: need at least %d days, got %d", MinTrendDays, len(series))
		return report
	}

	report.Sections = append(report.Sections, SectionTrend)
	report.Insights = append(report.Insights, trendInsights(series)...)

	if len(series) >= MinForecastDays {
		report.Sections = append(report.Sections, SectionCorrelation, SectionForecast)
		if in, ok := correlationInsight(series); ok {
			report.Insights = append(report.Insights, in)
		}
		report.Forecast = ForecastSeries(series, models.MetricRevenue, forecastHorizon)
		if in, ok := forecastInsight(series, report.Forecast); ok {
			report.Insights = append(report.Insights, in)
		}
	}

	if ch := channelInsights(channels); len(ch) > 0 {
		report.Sections = append(report.Sections, SectionChannels)
		report.Insights = append(report.Insights, ch...)
	}

	sort.SliceStable(report.Insights, func(i, j int) bool {
		return report.Insights[i].Priority.Rank() > report.Insights[j].Priority.Rank()
	})
	if len(report.Insights) == 0 {
		report.Message = "No notable changes in this period"
	} else {
		report.Message = fmt.Sprintf("%d insights generated", len(report.Insights))
	}
	return report
}

func trendInsights(series []models.DailyMetricPoint) []models.Insight {
	var out []models.Insight
	for _, m := range trendMetrics {
		t := Trend(models.Values(series, m), ShortWindow)
		if math.Abs(t) < trendInsightPercent {
			continue
		}
		adverse := (t < 0) != m.HigherIsWorse()
		priority := models.SeverityLow
		if adverse {
			priority = models.SeverityMedium
			if math.Abs(t) >= strongTrendPercent {
				priority = models.SeverityHigh
			}
		}
		dir := "up"
		if t < 0 {
			dir = "down"
		}
		in := models.Insight{
			Type:        models.InsightTrend,
			Priority:    priority,
			Title:       fmt.Sprintf("%s trending %s %.1f%%", m.Label(), dir, math.Abs(t)),
			Description: fmt.Sprintf("%s moved %+.1f%% over the last %d days based on a linear fit", m.Label(), t, ShortWindow),
			Metric:      m,
			Value:       stats.Round(t, 2),
		}
		if adverse {
			in.Recommendation = fmt.Sprintf("Review recent changes affecting %s before the trend compounds", m.Label())
		} else {
			in.Recommendation = fmt.Sprintf("Identify what is driving %s and scale it", m.Label())
		}
		out = append(out, in)
	}
	return out
}

func correlationInsight(series []models.DailyMetricPoint) (models.Insight, bool) {
	spend := models.Values(series, models.MetricSpend)
	revenue := models.Values(series, models.MetricRevenue)
	if stats.SampleStdDev(spend) == 0 || stats.SampleStdDev(revenue) == 0 {
		return models.Insight{}, false
	}
	r := stats.Pearson(spend, revenue)
	switch {
	case r < weakCorrelation:
		return models.Insight{
			Type:           models.InsightCorrelation,
			Priority:       models.SeverityMedium,
			Title:          "Spend and revenue are weakly coupled",
			Description:    fmt.Sprintf("Daily spend and revenue correlate at r=%.2f; extra spend is not clearly turning into revenue", r),
			Metric:         models.MetricSpend,
			Value:          stats.Round(r, 3),
			Recommendation: "Check attribution and audience overlap before raising budgets",
		}, true
	case r >= strongCorrelation:
		return models.Insight{
			Type:        models.InsightCorrelation,
			Priority:    models.SeverityLow,
			Title:       "Revenue follows spend closely",
			Description: fmt.Sprintf("Daily spend and revenue correlate at r=%.2f", r),
			Metric:      models.MetricRevenue,
			Value:       stats.Round(r, 3),
		}, true
	}
	return models.Insight{}, false
}

func forecastInsight(series []models.DailyMetricPoint, points []models.ForecastPoint) (models.Insight, bool) {
	if len(points) == 0 {
		return models.Insight{}, false
	}
	recent := stats.Sum(stats.Tail(models.Values(series, models.MetricRevenue), forecastHorizon))
	projected := 0.0
	for _, p := range points {
		projected += p.Value
	}
	change := stats.PercentChange(projected, recent)
	priority := models.SeverityLow
	if change <= -15 {
		priority = models.SeverityMedium
	}
	return models.Insight{
		Type:        models.InsightForecast,
		Priority:    priority,
		Title:       fmt.Sprintf("Revenue projected at %.2f over the next %d days", projected, len(points)),
		Description: fmt.Sprintf("%+.1f%% against the last %d days", change, forecastHorizon),
		Metric:      models.MetricRevenue,
		Value:       stats.Round(projected, 2),
	}, true
}

type channelROAS struct {
	channel string
	roas    float64
}

func channelInsights(channels []models.ChannelSeries) []models.Insight {
	var active []channelROAS
	for _, ch := range channels {
		t := models.Totals(ch.Points)
		if t.Spend > 0 {
			active = append(active, channelROAS{channel: ch.Channel, roas: t.ROAS()})
		}
	}
	if len(active) < 2 {
		return nil
	}
	sum := 0.0
	for _, a := range active {
		sum += a.roas
	}
	avg := sum / float64(len(active))
	if avg == 0 {
		return nil
	}

	var out []models.Insight
	var best, worst *channelROAS
	for i := range active {
		a := &active[i]
		switch {
		case a.roas > avg*overPerformer:
			out = append(out, models.Insight{
				Type:           models.InsightChannel,
				Priority:       models.SeverityLow,
				Title:          fmt.Sprintf("%s is outperforming", a.channel),
				Description:    fmt.Sprintf("ROAS %.2f vs %.2f cross-channel average", a.roas, avg),
				Metric:         models.MetricROAS,
				Channel:        a.channel,
				Value:          stats.Round(a.roas, 2),
				Recommendation: "Test higher budgets while watching marginal returns",
			})
			if best == nil || a.roas > best.roas {
				best = a
			}
		case a.roas < avg*underPerformer:
			out = append(out, models.Insight{
				Type:           models.InsightChannel,
				Priority:       models.SeverityMedium,
				Title:          fmt.Sprintf("%s is underperforming", a.channel),
				Description:    fmt.Sprintf("ROAS %.2f vs %.2f cross-channel average", a.roas, avg),
				Metric:         models.MetricROAS,
				Channel:        a.channel,
				Value:          stats.Round(a.roas, 2),
				Recommendation: "Audit targeting and creatives or reduce budget",
			})
			if worst == nil || a.roas < worst.roas {
				worst = a
			}
		}
	}
	if best != nil && worst != nil {
		out = append(out, models.Insight{
			Type:           models.InsightBudgetShift,
			Priority:       models.SeverityMedium,
			Title:          fmt.Sprintf("Shift budget from %s to %s", worst.channel, best.channel),
			Description:    fmt.Sprintf("%s returns %.2f per unit spent against %.2f on %s", best.channel, best.roas, worst.roas, worst.channel),
			Metric:         models.MetricROAS,
			Channel:        best.channel,
			Value:          stats.Round(best.roas-worst.roas, 2),
			Recommendation: fmt.Sprintf("Move 10-20%% of %s spend to %s and re-measure after a week", worst.channel, best.channel),
		})
	}
	return out
}
