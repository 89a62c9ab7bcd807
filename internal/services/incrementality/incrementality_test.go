package incrementality

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OmniTrackIQ/internal/domain/models"
)

func day(d int) time.Time { return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC) }

func window(from, to int) models.DateRange { return models.DateRange{From: day(from), To: day(to)} }

func period(days int, spend, conversions, revenue float64, clicks int64) models.PeriodMetrics {
	return models.PeriodMetrics{Days: days, Spend: spend, Conversions: conversions, Revenue: revenue, Clicks: clicks}
}

// series spreads orders, spend and revenue evenly over [from, to].
func series(channel string, from, to int, orders int64, spend, revenue float64) models.ChannelSeries {
	n := to - from + 1
	s := models.ChannelSeries{Channel: channel}
	for i := 0; i < n; i++ {
		o := orders / int64(n)
		if int64(i) < orders%int64(n) {
			o++
		}
		s.Points = append(s.Points, models.DailyMetricPoint{
			Date: day(from + i), Channel: channel, Orders: o,
			Spend: spend / float64(n), Revenue: revenue / float64(n),
		})
	}
	return s
}

func TestControlWindow(t *testing.T) {
	got := ControlWindow(window(8, 14))
	assert.Equal(t, day(1), got.From)
	assert.Equal(t, day(7), got.To)
	assert.Equal(t, 7, got.Days())

	assert.Equal(t, models.DateRange{}, ControlWindow(window(14, 8)))
}

func TestSummarizeCountsOrdersInsideWindow(t *testing.T) {
	s := series("meta", 1, 14, 28, 1400, 2800)
	got := Summarize(window(8, 14), s.Points)
	assert.Equal(t, 7, got.Days)
	assert.Equal(t, 14.0, got.Conversions)
	assert.InDelta(t, 700.0, got.Spend, 1e-9)
	assert.InDelta(t, 1400.0, got.Revenue, 1e-9)
}

func TestAnalyzeLift(t *testing.T) {
	a := NewAnalyzer()
	r := a.Analyze("meta", period(7, 700, 50, 5000, 0), period(7, 700, 20, 2000, 0))

	assert.InDelta(t, 150.0, r.ConversionLiftPercent, 0.01)
	assert.InDelta(t, 30.0, r.IncrementalConversions, 0.01)
	assert.InDelta(t, 150.0, r.RevenueLiftPercent, 0.01)
	assert.InDelta(t, 3000.0, r.IncrementalRevenue, 0.01)
	assert.Equal(t, 0.0, r.IncrementalSpend)
	assert.Equal(t, 0.0, r.IncrementalROAS, "spend did not increase")
	assert.Greater(t, r.ZScore, 3.0)
	assert.Equal(t, 0.999, r.StatisticalSignificance)
	assert.True(t, r.IsSignificant)
	assert.Contains(t, r.Interpretation, "meta drove a 150.0% conversion lift")
}

func TestAnalyzeNormalizesByWindowLength(t *testing.T) {
	a := NewAnalyzer()
	// 14-day control at the same daily rate means no lift
	r := a.Analyze("google_ads", period(7, 1400, 35, 3500, 0), period(14, 1400, 70, 7000, 0))
	assert.Equal(t, 0.0, r.ConversionLiftPercent)
	assert.InDelta(t, 700.0, r.IncrementalSpend, 1e-9)
	assert.InDelta(t, 0.0, r.IncrementalROAS, 1e-9)
	assert.False(t, r.IsSignificant)
	assert.Contains(t, r.Interpretation, "not statistically significant")
}

func TestAnalyzeIncrementalROAS(t *testing.T) {
	r := NewAnalyzer().Analyze("tiktok", period(7, 1400, 40, 4200, 0), period(7, 700, 20, 2100, 0))
	assert.InDelta(t, 700.0, r.IncrementalSpend, 1e-9)
	assert.InDelta(t, 2100.0, r.IncrementalRevenue, 1e-9)
	assert.InDelta(t, 3.0, r.IncrementalROAS, 1e-9)
}

func TestAnalyzeZeroControl(t *testing.T) {
	r := NewAnalyzer().Analyze("email", period(7, 0, 10, 500, 0), period(7, 0, 0, 0, 0))
	assert.Equal(t, 0.0, r.ConversionLiftPercent)
	assert.Equal(t, 10.0, r.IncrementalConversions)
	assert.Contains(t, r.Interpretation, "lift is undefined")
}

func TestSignificanceUsesClicksWhenPresent(t *testing.T) {
	z, conf := Significance(period(7, 0, 100, 0, 1000), period(7, 0, 50, 0, 1000))
	assert.InDelta(t, 4.245, z, 0.01)
	assert.Equal(t, 0.999, conf)

	// more orders than clicks falls back to the Poisson comparison
	zp, _ := Significance(period(7, 0, 50, 0, 10), period(7, 0, 20, 0, 10))
	want := (50.0/7 - 20.0/7) / math.Sqrt(5*(2.0/7))
	assert.InDelta(t, want, zp, 1e-9)
}

func TestSignificanceInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := NewAnalyzer()
	for i := 0; i < 500; i++ {
		test := period(1+rng.Intn(30), 0, float64(rng.Intn(200)), 0, int64(rng.Intn(3)*rng.Intn(5000)))
		control := period(1+rng.Intn(30), 0, float64(rng.Intn(200)), 0, int64(rng.Intn(3)*rng.Intn(5000)))
		r := a.Analyze("x", test, control)
		assert.GreaterOrEqual(t, r.StatisticalSignificance, 0.0)
		assert.LessOrEqual(t, r.StatisticalSignificance, 1.0)
		assert.Equal(t, r.StatisticalSignificance >= SignificanceLevel, r.IsSignificant)
		assert.False(t, math.IsNaN(r.ZScore))
	}

	// more test conversions never lowers confidence
	prev := 0.0
	for c := 20.0; c <= 80; c += 5 {
		_, conf := Significance(period(7, 0, c, 0, 0), period(7, 0, 20, 0, 0))
		assert.GreaterOrEqual(t, conf, prev)
		prev = conf
	}
}

func TestBaseline(t *testing.T) {
	channels := []models.ChannelSeries{
		series("direct", 1, 10, 100, 0, 10000),
		series("meta", 1, 10, 50, 1000, 5000),
		series("pinterest", 1, 10, 0, 0, 0),
	}
	out := NewAnalyzer().Baseline(window(1, 10), channels)
	require.Len(t, out.Channels, 2)

	meta := out.Channels[0]
	assert.Equal(t, "meta", meta.Channel)
	assert.Equal(t, 0.2, meta.BaselineRate)
	assert.Equal(t, 10.0, meta.BaselineConversions)
	assert.Equal(t, 40.0, meta.IncrementalConversions)
	assert.Equal(t, 4000.0, meta.IncrementalRevenue)
	assert.Equal(t, 4.0, meta.IncrementalROAS)

	direct := out.Channels[1]
	assert.Equal(t, 80.0, direct.BaselineConversions)
	assert.Equal(t, 0.0, direct.IncrementalROAS)

	assert.Equal(t, 150.0, out.TotalConversions)
	assert.Equal(t, 90.0, out.BaselineConversions)
	assert.Equal(t, 60.0, out.IncrementalConversions)
	assert.Contains(t, out.Message, "40.0%")
}

func TestBaselineRate(t *testing.T) {
	assert.Equal(t, 0.7, BaselineRate("organic"))
	assert.Equal(t, 0.35, BaselineRate("Google"))
	assert.Equal(t, 0.8, BaselineRate("(direct)"))
	assert.Equal(t, DefaultBaselineRate, BaselineRate("snapchat"))
}

func TestSampleSize(t *testing.T) {
	n := SampleSize(0.02, 0.1, 1.96, 0.84)
	assert.InDelta(t, 80588, n, 1)
	assert.Greater(t, SampleSize(0.02, 0.05, 1.96, 0.84), n)
	assert.Greater(t, SampleSize(0.02, 0.1, 2.576, 0.84), n)
	assert.Equal(t, 0, SampleSize(0, 0.1, 1.96, 0.84))
}

func TestHoldoutDesign(t *testing.T) {
	a := NewAnalyzer()
	history := models.PeriodMetrics{Days: 10, Clicks: 100000, Conversions: 2000, Spend: 5000}

	out, err := a.HoldoutDesign(HoldoutParams{Channel: "meta"}, history)
	require.NoError(t, err)
	assert.Equal(t, 0.02, out.BaselineConversionRate)
	assert.Equal(t, 0.95, out.Confidence)
	assert.Equal(t, 0.8, out.Power)
	assert.Equal(t, 10000.0, out.DailyTraffic)
	assert.Equal(t, 81, out.RequiredDays)
	assert.Equal(t, 81, out.RecommendedDurationDays)
	assert.True(t, out.Feasible)
	assert.Equal(t, 4050.0, out.EstimatedSpendAtRisk)

	// high volume still runs for the minimum duration
	big := history
	big.Clicks *= 100
	big.Conversions *= 100
	out, err = a.HoldoutDesign(HoldoutParams{Channel: "meta"}, big)
	require.NoError(t, err)
	assert.Equal(t, 1, out.RequiredDays)
	assert.Equal(t, MinTestDays, out.RecommendedDurationDays)
}

func TestHoldoutDesignLowTraffic(t *testing.T) {
	a := NewAnalyzer()
	out, err := a.HoldoutDesign(HoldoutParams{Channel: "email"}, models.PeriodMetrics{Days: 10, Clicks: 1000, Conversions: 20})
	require.NoError(t, err)
	assert.False(t, out.Feasible)
	assert.Equal(t, MaxTestDays, out.RecommendedDurationDays)

	out, err = a.HoldoutDesign(HoldoutParams{Channel: "email"}, models.PeriodMetrics{})
	require.NoError(t, err)
	assert.False(t, out.Feasible)
	assert.Equal(t, DefaultConversionRate, out.BaselineConversionRate)
	assert.Contains(t, out.Recommendation, "No recent traffic")
}

func TestHoldoutDesignValidation(t *testing.T) {
	a := NewAnalyzer()
	_, err := a.HoldoutDesign(HoldoutParams{Confidence: 97}, models.PeriodMetrics{})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
	_, err = a.HoldoutDesign(HoldoutParams{Power: 70}, models.PeriodMetrics{})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
	_, err = a.HoldoutDesign(HoldoutParams{HoldoutPercent: 60}, models.PeriodMetrics{})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestLift(t *testing.T) {
	testSeries := []models.ChannelSeries{
		series("meta", 8, 14, 50, 700, 5000),
		series("email", 8, 14, 21, 0, 1000),
		series("tiktok", 8, 14, 0, 0, 0),
	}
	controlSeries := []models.ChannelSeries{
		series("meta", 1, 7, 20, 700, 2000),
		series("email", 1, 7, 20, 0, 1000),
	}
	out := NewAnalyzer().Lift(window(8, 14), window(1, 7), testSeries, controlSeries)
	require.Len(t, out.Channels, 2)
	assert.Equal(t, "meta", out.Channels[0].Channel)
	assert.InDelta(t, 150.0, out.Channels[0].ConversionLiftPercent, 0.01)
	assert.Equal(t, "email", out.Channels[1].Channel)
	assert.False(t, out.Channels[1].IsSignificant)
	assert.Equal(t, 1, out.SignificantCount)
	assert.Equal(t, "meta", out.TopChannel)
}

func TestLiftNoActivity(t *testing.T) {
	out := NewAnalyzer().Lift(window(8, 14), window(1, 7), nil, nil)
	assert.Empty(t, out.Channels)
	assert.Contains(t, out.Message, "No channel activity")
}
