package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OmniTrackIQ/internal/domain/models"
)

// 2024-03-04 is a Monday.
var start = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func series(spend, revenue []float64) []models.DailyMetricPoint {
	out := make([]models.DailyMetricPoint, len(revenue))
	for i := range revenue {
		out[i] = models.DailyMetricPoint{
			TenantID: "t1",
			Date:     start.AddDate(0, 0, i),
			Spend:    spend[i],
			Revenue:  revenue[i],
		}
	}
	return out
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestRevenueSpikeScenario(t *testing.T) {
	s := series(repeat(100, 7), []float64{100, 100, 100, 100, 100, 100, 1000})
	report := NewDetector().Detect(s, []models.Metric{models.MetricRevenue}, models.SensitivityMedium)

	require.Len(t, report.Anomalies, 1)
	a := report.Anomalies[0]
	assert.Equal(t, start.AddDate(0, 0, 6), a.Date)
	assert.Equal(t, models.AnomalySpike, a.Type)
	assert.Equal(t, models.SeverityCritical, a.Severity)
	assert.True(t, a.IsConcerning)
	assert.InDelta(t, 900.0, a.DeviationPercent, 0.01)
	assert.InDelta(t, 100.0, a.ExpectedValue, 1e-9)
	require.NotNil(t, a.ZScore)
	assert.InDelta(t, 90.0, *a.ZScore, 1e-6)
	assert.Equal(t, 2.0, report.Threshold)
	assert.Equal(t, 1, report.Summary.Concerning)
}

func TestFlatSeriesHasNoAnomalies(t *testing.T) {
	for _, sens := range []models.Sensitivity{models.SensitivityLow, models.SensitivityMedium, models.SensitivityHigh} {
		s := make([]models.DailyMetricPoint, 30)
		for i := range s {
			s[i] = models.DailyMetricPoint{
				Date: start.AddDate(0, 0, i), Spend: 33.3, Revenue: 101.7, Clicks: 41,
				Impressions: 900, Conversions: 3, Orders: 3,
			}
		}
		report := NewDetector().Detect(s, nil, sens)
		assert.Empty(t, report.Anomalies, "sensitivity %s", sens)
		assert.Equal(t, "No anomalies detected", report.Message)
	}
}

func TestShortSeriesReturnsMessage(t *testing.T) {
	s := series(repeat(10, 6), repeat(10, 6))
	report := NewDetector().Detect(s, nil, models.SensitivityMedium)
	assert.Empty(t, report.Anomalies)
	assert.Contains(t, report.Message, "at least 7 days")
}

func TestZeroValueRule(t *testing.T) {
	revenue := append(repeat(100, 7), 0)
	s := series(repeat(50, 8), revenue)
	anomalies := NewDetector().DetectMetric(s, models.MetricRevenue, models.SensitivityLow)

	require.Len(t, anomalies, 1)
	assert.Equal(t, models.AnomalyZeroValue, anomalies[0].Type)
	assert.Equal(t, models.SeverityHigh, anomalies[0].Severity)
	assert.True(t, anomalies[0].IsConcerning)
	assert.Equal(t, -100.0, anomalies[0].DeviationPercent)
}

func TestZeroValueIgnoredForSmallBaseline(t *testing.T) {
	revenue := append(repeat(5, 7), 0)
	s := series(repeat(5, 8), revenue)
	anomalies := NewDetector().DetectMetric(s, models.MetricRevenue, models.SensitivityHigh)
	require.Len(t, anomalies, 1)
	assert.Equal(t, models.AnomalyDrop, anomalies[0].Type, "below the floor a zero is scored like any other drop")
}

func TestSensitivityLabelIsInverted(t *testing.T) {
	// baseline mean 100, sd ~10.95; 120 sits at z ~1.83
	revenue := []float64{90, 110, 90, 110, 90, 110, 120}
	s := series(repeat(10, 7), revenue)
	d := NewDetector()

	assert.Len(t, d.DetectMetric(s, models.MetricRevenue, models.SensitivityHigh), 1)
	assert.Empty(t, d.DetectMetric(s, models.MetricRevenue, models.SensitivityMedium))
	assert.Empty(t, d.DetectMetric(s, models.MetricRevenue, models.SensitivityLow))
}

func TestHigherIsWorseFlipsConcern(t *testing.T) {
	spend := []float64{90, 110, 90, 110, 90, 110, 125}
	s := series(spend, repeat(100, 7))
	anomalies := NewDetector().DetectMetric(s, models.MetricSpend, models.SensitivityMedium)
	require.Len(t, anomalies, 1)
	assert.Equal(t, models.AnomalySpike, anomalies[0].Type)
	assert.True(t, anomalies[0].IsConcerning)

	revenue := []float64{90, 110, 90, 110, 90, 110, 125}
	s = series(repeat(100, 7), revenue)
	anomalies = NewDetector().DetectMetric(s, models.MetricRevenue, models.SensitivityMedium)
	require.Len(t, anomalies, 1)
	assert.Equal(t, models.SeverityMedium, anomalies[0].Severity)
	assert.False(t, anomalies[0].IsConcerning, "a moderate revenue spike is good news")

	revenue = []float64{90, 110, 90, 110, 90, 110, 75}
	s = series(repeat(100, 7), revenue)
	anomalies = NewDetector().DetectMetric(s, models.MetricRevenue, models.SensitivityMedium)
	require.Len(t, anomalies, 1)
	assert.Equal(t, models.AnomalyDrop, anomalies[0].Type)
	assert.True(t, anomalies[0].IsConcerning)
}

func TestSeverityBands(t *testing.T) {
	assert.Equal(t, models.SeverityCritical, SeverityFor(3))
	assert.Equal(t, models.SeverityHigh, SeverityFor(-2.7))
	assert.Equal(t, models.SeverityMedium, SeverityFor(2))
	assert.Equal(t, models.SeverityLow, SeverityFor(1.6))
}

func TestAnomaliesSortedNewestFirst(t *testing.T) {
	revenue := []float64{100, 100, 100, 100, 100, 100, 1000, 100, 100, 0}
	s := series(repeat(100, 10), revenue)
	report := NewDetector().Detect(s, []models.Metric{models.MetricRevenue}, models.SensitivityMedium)
	require.Len(t, report.Anomalies, 2)
	assert.True(t, report.Anomalies[0].Date.After(report.Anomalies[1].Date))
	assert.Equal(t, models.AnomalyZeroValue, report.Anomalies[0].Type)
}
