package forecast

import (
	"fmt"
	"math"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/services/stats"
)

// Score cut-offs for the health status.
const (
	healthyScore = 70
	warningScore = 40

	smoothedDays = 14
)

// HealthStatusFor maps a 0..100 score to a status.
func HealthStatusFor(score int) models.HealthStatus {
	switch {
	case score >= healthyScore:
		return models.HealthHealthy
	case score >= warningScore:
		return models.HealthWarning
	}
	return models.HealthCritical
}

// Health compares the last 7 days of each metric with the 7 before them.
func (e *Engine) Health(series []models.DailyMetricPoint, metrics []models.Metric) models.HealthReport {
	report := models.HealthReport{
		Period:  period(series),
		Status:  models.HealthHealthy,
		Metrics: []models.MetricHealth{},
	}
	if len(series) < MinTrendDays {
		report.Message = fmt.Sprintf("Not enough data for health scoring: need at least %d days, got %d", MinTrendDays, len(series))
		return report
	}
	if len(metrics) == 0 {
		metrics = models.AllMetrics
	}

	recentFrom := lastDays(series, ShortWindow)
	total := 0
	for _, m := range metrics {
		values := models.Values(series, m)
		h := models.MetricHealth{
			Metric:       m,
			CurrentValue: stats.Round(stats.Mean(stats.Tail(values, ShortWindow)), 4),
			TrendPercent: stats.Round(Trend(values, ShortWindow), 2),
		}
		if len(values) >= 2*ShortWindow {
			prev := values[len(values)-2*ShortWindow : len(values)-ShortWindow]
			h.PreviousValue = stats.Round(stats.Mean(prev), 4)
			h.ChangePercent = stats.Round(stats.PercentChange(h.CurrentValue, h.PreviousValue), 2)
		}
		for _, a := range e.detector.DetectMetric(series, m, models.SensitivityMedium) {
			if !a.Date.Before(recentFrom) && a.IsConcerning {
				h.RecentAnomalies++
			}
		}
		smoothed := stats.MovingAverage(values, ShortWindow)
		smoothed = stats.Tail(smoothed, smoothedDays)
		h.Smoothed = make([]float64, len(smoothed))
		for i, v := range smoothed {
			h.Smoothed[i] = stats.Round(v, 4)
		}
		h.HealthScore = healthScore(m, h)
		h.Status = HealthStatusFor(h.HealthScore)
		total += h.HealthScore
		report.Metrics = append(report.Metrics, h)
	}

	report.OverallScore = int(math.Round(float64(total) / float64(len(report.Metrics))))
	report.Status = HealthStatusFor(report.OverallScore)

	critical := 0
	for _, h := range report.Metrics {
		if h.Status == models.HealthCritical {
			critical++
		}
	}
	switch {
	case critical > 0:
		report.Message = fmt.Sprintf("%d metrics in critical state", critical)
	case report.Status == models.HealthHealthy:
		report.Message = "All tracked metrics are within normal ranges"
	default:
		report.Message = "Some metrics are drifting from their recent levels"
	}
	return report
}

// healthScore starts at 100 and deducts for adverse change, adverse trend and
// recent concerning anomalies.
func healthScore(m models.Metric, h models.MetricHealth) int {
	sign := 1.0
	if m.HigherIsWorse() {
		sign = -1
	}
	score := 100.0
	if c := sign * h.ChangePercent; c < 0 {
		score -= math.Min(40, -c)
	}
	if t := sign * h.TrendPercent; t < 0 {
		score -= math.Min(30, -t*0.5)
	}
	score -= math.Min(30, float64(h.RecentAnomalies)*10)
	if score < 0 {
		score = 0
	}
	return int(math.Round(score))
}
