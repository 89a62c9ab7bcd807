package forecast

import (
	"fmt"
	"math"
	"sort"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/services/stats"
)

// AlertThreshold is the trend percentage that breaches a metric's risk limit.
// Negative values breach from above, positive ones from below.
type AlertThreshold struct {
	Metric  models.Metric
	Percent float64
}

// DefaultAlertThresholds are checked in order.
var DefaultAlertThresholds = []AlertThreshold{
	{models.MetricRevenue, -15},
	{models.MetricROAS, -10},
	{models.MetricConversions, -15},
	{models.MetricSpend, 25},
	{models.MetricCPA, 20},
}

func (t AlertThreshold) breached(pct float64) bool {
	if t.Percent < 0 {
		return pct <= t.Percent
	}
	return pct >= t.Percent
}

// steeper reports whether a moves further in the threshold's direction than b.
func (t AlertThreshold) steeper(a, b float64) bool {
	if t.Percent < 0 {
		return a < b
	}
	return a > b
}

// Alerts projects daysAhead days and flags metrics heading past their limits.
func (e *Engine) Alerts(series []models.DailyMetricPoint, daysAhead int) models.AlertReport {
	report := models.AlertReport{
		Period:    period(series),
		DaysAhead: daysAhead,
		Alerts:    []models.PredictiveAlert{},
	}
	if len(series) < MinForecastDays {
		report.Message = fmt.Sprintf("Not enough data for predictive alerts: need at least %d days, got %d", MinForecastDays, len(series))
		return report
	}

	for _, th := range DefaultAlertThresholds {
		if a, ok := evaluate(series, th, daysAhead); ok {
			report.Alerts = append(report.Alerts, a)
		}
	}
	sort.SliceStable(report.Alerts, func(i, j int) bool {
		return report.Alerts[i].RiskLevel.Rank() > report.Alerts[j].RiskLevel.Rank()
	})
	if len(report.Alerts) == 0 {
		report.Message = "No metrics are trending toward risk thresholds"
	} else {
		report.Message = fmt.Sprintf("%d metrics at risk over the next %d days", len(report.Alerts), daysAhead)
	}
	return report
}

func evaluate(series []models.DailyMetricPoint, th AlertThreshold, daysAhead int) (models.PredictiveAlert, bool) {
	values := models.Values(series, th.Metric)
	t7 := Trend(values, ShortWindow)
	t14 := Trend(values, LongWindow)
	current := stats.Mean(stats.Tail(values, ShortWindow))
	projection := Project(values, daysAhead)
	forecast := 0.0
	if len(projection) > 0 {
		forecast = projection[len(projection)-1]
	}
	delta := stats.PercentChange(forecast, current)
	accelerating := th.steeper(t7, t14)

	var risk models.Severity
	switch {
	case th.breached(t14) && accelerating:
		risk = models.SeverityCritical
	case th.breached(t14):
		risk = models.SeverityHigh
	case th.breached(t7) || th.breached(delta):
		risk = models.SeverityMedium
	default:
		return models.PredictiveAlert{}, false
	}

	dir := "decline"
	if th.Percent > 0 {
		dir = "rise"
	}
	msg := fmt.Sprintf("%s is on track to %s: %+.1f%% over 14 days, %+.1f%% over 7 days", th.Metric.Label(), dir, t14, t7)
	if accelerating && risk != models.SeverityMedium {
		msg += ", and the move is accelerating"
	}
	return models.PredictiveAlert{
		Metric:                th.Metric,
		RiskLevel:             risk,
		Trend7d:               stats.Round(t7, 2),
		Trend14d:              stats.Round(t14, 2),
		Accelerating:          accelerating,
		CurrentValue:          stats.Round(current, 4),
		ForecastValue:         stats.Round(forecast, 4),
		ForecastChangePercent: stats.Round(delta, 2),
		Message:               msg,
		Recommendation:        recommendation(th.Metric, math.Abs(t14)),
	}, true
}

func recommendation(m models.Metric, magnitude float64) string {
	urgency := "Monitor closely"
	if magnitude >= 30 {
		urgency = "Act now"
	}
	switch m {
	case models.MetricRevenue, models.MetricConversions:
		return urgency + ": review campaign delivery, site conversion and recent changes"
	case models.MetricROAS:
		return urgency + ": cut spend on the least efficient campaigns"
	case models.MetricSpend:
		return urgency + ": check budgets and pacing against plan"
	case models.MetricCPA:
		return urgency + ": tighten targeting and refresh creatives"
	}
	return urgency
}
