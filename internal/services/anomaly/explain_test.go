package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OmniTrackIQ/internal/domain/models"
)

func channelSeries(name string, spend, revenue []float64) models.ChannelSeries {
	points := series(spend, revenue)
	for i := range points {
		points[i].Channel = name
	}
	return models.ChannelSeries{Channel: name, Points: points}
}

func TestExplainNamesDominantChannel(t *testing.T) {
	google := channelSeries("google_ads", repeat(50, 8), []float64{300, 300, 300, 300, 300, 300, 300, 40})
	meta := channelSeries("meta", repeat(50, 8), []float64{100, 100, 100, 100, 100, 100, 100, 90})

	total := make([]models.DailyMetricPoint, 8)
	for i := range total {
		total[i] = google.Points[i]
		total[i].Channel = ""
		total[i].Spend += meta.Points[i].Spend
		total[i].Revenue += meta.Points[i].Revenue
		total[i].Orders = 4
	}

	e := NewDetector().Explain(total, []models.ChannelSeries{google, meta}, start.AddDate(0, 0, 7), models.MetricRevenue, models.SensitivityMedium)

	require.NotNil(t, e.Anomaly)
	assert.Equal(t, models.AnomalyDrop, e.Anomaly.Type)
	require.Len(t, e.ChannelBreakdown, 2)
	assert.Equal(t, "google_ads", e.ChannelBreakdown[0].Channel)
	assert.InDelta(t, -260.0, e.ChannelBreakdown[0].Change, 1e-9)
	assert.InDelta(t, 260.0/270.0*100, e.ChannelBreakdown[0].ShareOfDeviation, 0.01)
	assert.Contains(t, e.ProbableCauses[0], "google_ads")

	require.NotEmpty(t, e.RelatedMetrics)
	assert.Equal(t, models.MetricOrders, e.RelatedMetrics[0].Metric)
}

func TestExplainWithoutAnomaly(t *testing.T) {
	total := series(repeat(10, 8), repeat(100, 8))
	e := NewDetector().Explain(total, nil, start.AddDate(0, 0, 7), models.MetricRevenue, models.SensitivityMedium)
	assert.Nil(t, e.Anomaly)
	assert.Contains(t, e.Message, "No anomaly detected")
	assert.NotEmpty(t, e.ProbableCauses)
}

func TestExplainOutsideWindow(t *testing.T) {
	total := series(repeat(10, 8), repeat(100, 8))
	e := NewDetector().Explain(total, nil, start.AddDate(0, 1, 0), models.MetricRevenue, models.SensitivityMedium)
	assert.Nil(t, e.Anomaly)
	assert.Contains(t, e.Message, "outside the analysed window")
}

func TestTrendsGroupsByWeek(t *testing.T) {
	// two flat weeks then a week with two spikes
	revenue := repeat(100, 21)
	revenue[16] = 1000
	revenue[19] = 900
	s := series(repeat(100, 21), revenue)

	trends := NewDetector().Trends(s, []models.Metric{models.MetricRevenue}, models.SensitivityMedium)
	require.Len(t, trends.Weeks, 3)
	assert.Equal(t, start, trends.Weeks[0].WeekStart)
	assert.Equal(t, 0, trends.Weeks[0].Total)
	assert.Equal(t, 2, trends.Weeks[2].Spikes)
	assert.Equal(t, 2, trends.TotalAnomalies)
	assert.Equal(t, "increasing", trends.Direction)
	require.Len(t, trends.MostAffectedMetrics, 1)
	assert.Equal(t, models.MetricRevenue, trends.MostAffectedMetrics[0].Metric)
}

func TestDirection(t *testing.T) {
	weeks := func(totals ...int) []models.WeeklyAnomalyCount {
		out := make([]models.WeeklyAnomalyCount, len(totals))
		for i, n := range totals {
			out[i].Total = n
		}
		return out
	}
	assert.Equal(t, "stable", direction(weeks(3)))
	assert.Equal(t, "decreasing", direction(weeks(5, 5, 1, 1)))
	assert.Equal(t, "stable", direction(weeks(4, 4, 4, 4)))
	assert.Equal(t, "increasing", direction(weeks(0, 0, 1)))
}
