package forecast

import (
	"time"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/services/anomaly"
	"OmniTrackIQ/internal/services/stats"
)

// Window lengths, in days.
const (
	ShortWindow     = 7
	LongWindow      = 14
	MinTrendDays    = ShortWindow
	MinForecastDays = LongWindow
)

// Engine computes trends, forecasts and the reports built on them.
type Engine struct {
	detector *anomaly.Detector
}

// NewEngine returns an Engine that counts recent anomalies with detector.
func NewEngine(detector *anomaly.Detector) *Engine {
	if detector == nil {
		detector = anomaly.NewDetector()
	}
	return &Engine{detector: detector}
}

// Trend is the OLS slope over the last n values as a percentage of their mean.
func Trend(values []float64, n int) float64 {
	return stats.TrendPercent(values, n)
}

// Project extrapolates the weighted moving average of the last 7 values by the
// daily trend rate of the last 14. Element k-1 is the value k days ahead.
func Project(values []float64, daysAhead int) []float64 {
	if daysAhead <= 0 || len(values) == 0 {
		return nil
	}
	base := stats.WeightedMovingAverage(values, stats.ForecastWeights)
	rate := stats.DailyTrendRate(values, LongWindow)
	out := make([]float64, daysAhead)
	for k := 1; k <= daysAhead; k++ {
		v := base * (1 + rate*float64(k))
		if v < 0 {
			v = 0
		}
		out[k-1] = v
	}
	return out
}

// ForecastSeries dates a projection of metric m after the last day of series.
func ForecastSeries(series []models.DailyMetricPoint, m models.Metric, daysAhead int) []models.ForecastPoint {
	if len(series) == 0 {
		return nil
	}
	last := series[len(series)-1].Date
	values := Project(models.Values(series, m), daysAhead)
	out := make([]models.ForecastPoint, len(values))
	for i, v := range values {
		out[i] = models.ForecastPoint{Date: last.AddDate(0, 0, i+1), Value: stats.Round(v, 2)}
	}
	return out
}

func period(series []models.DailyMetricPoint) models.DateRange {
	if len(series) == 0 {
		return models.DateRange{}
	}
	return models.DateRange{From: series[0].Date, To: series[len(series)-1].Date}
}

func lastDays(series []models.DailyMetricPoint, n int) time.Time {
	if len(series) < n {
		return series[0].Date
	}
	return series[len(series)-n].Date
}
