package incrementality

import (
	"fmt"
	"math"
	"sort"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/services/stats"
	"OmniTrackIQ/pkg/util"
)

// SignificanceLevel is the confidence an effect needs to count as real.
const SignificanceLevel = 0.95

// Analyzer compares test and control windows of channel activity.
type Analyzer struct{}

// NewAnalyzer returns an Analyzer.
func NewAnalyzer() *Analyzer { return &Analyzer{} }

// ControlWindow is the window of equal length that ends the day before test starts.
func ControlWindow(test models.DateRange) models.DateRange {
	days := test.Days()
	if days == 0 {
		return models.DateRange{}
	}
	from := util.StartOfDay(test.From)
	return models.DateRange{From: from.AddDate(0, 0, -days), To: from.AddDate(0, 0, -1)}
}

// Summarize totals the points that fall inside period. Conversions count orders.
func Summarize(period models.DateRange, points []models.DailyMetricPoint) models.PeriodMetrics {
	out := models.PeriodMetrics{Period: period, Days: period.Days()}
	from, to := util.StartOfDay(period.From), util.StartOfDay(period.To)
	for _, p := range points {
		d := util.StartOfDay(p.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		out.Spend += p.Spend
		out.Revenue += p.Revenue
		out.Conversions += float64(p.Orders)
		out.Clicks += p.Clicks
	}
	return out
}

// Significance tests whether the test window's conversion rate differs from
// the control's. With clicks on both sides it is a pooled two-proportion
// z-test on conversion per click; otherwise daily counts are compared under
// a pooled Poisson rate.
func Significance(test, control models.PeriodMetrics) (z, confidence float64) {
	z = proportionZ(test, control)
	if math.IsNaN(z) {
		z = poissonZ(test, control)
	}
	return z, stats.ZToConfidence(z)
}

func proportionZ(test, control models.PeriodMetrics) float64 {
	n1, n2 := float64(test.Clicks), float64(control.Clicks)
	if n1 <= 0 || n2 <= 0 {
		return math.NaN()
	}
	p1, p2 := test.Conversions/n1, control.Conversions/n2
	pooled := (test.Conversions + control.Conversions) / (n1 + n2)
	// orders can outnumber channel clicks; a proportion test no longer applies
	if pooled <= 0 || pooled >= 1 || p1 > 1 || p2 > 1 {
		return math.NaN()
	}
	se := math.Sqrt(pooled * (1 - pooled) * (1/n1 + 1/n2))
	if se == 0 {
		return 0
	}
	return (p1 - p2) / se
}

func poissonZ(test, control models.PeriodMetrics) float64 {
	d1, d2 := float64(test.Days), float64(control.Days)
	if d1 <= 0 || d2 <= 0 {
		return 0
	}
	lambda := (test.Conversions + control.Conversions) / (d1 + d2)
	if lambda <= 0 {
		return 0
	}
	se := math.Sqrt(lambda * (1/d1 + 1/d2))
	return (test.Conversions/d1 - control.Conversions/d2) / se
}

// Analyze measures the lift of test over control for one channel. Per-day rates
// make windows of different length comparable.
func (a *Analyzer) Analyze(channel string, test, control models.PeriodMetrics) models.IncrementalityResult {
	out := models.IncrementalityResult{
		Channel:       channel,
		TestPeriod:    roundPeriod(test),
		ControlPeriod: roundPeriod(control),
	}
	days := float64(test.Days)

	convDelta := test.ConversionsPerDay() - control.ConversionsPerDay()
	revDelta := test.RevenuePerDay() - control.RevenuePerDay()
	spendDelta := test.SpendPerDay() - control.SpendPerDay()

	out.ConversionLiftPercent = stats.Round(stats.PercentChange(test.ConversionsPerDay(), control.ConversionsPerDay()), 2)
	out.RevenueLiftPercent = stats.Round(stats.PercentChange(test.RevenuePerDay(), control.RevenuePerDay()), 2)
	out.IncrementalConversions = stats.Round(convDelta*days, 2)
	out.IncrementalRevenue = stats.Round(revDelta*days, 2)
	out.IncrementalSpend = stats.Round(spendDelta*days, 2)
	if spendDelta > 0 {
		out.IncrementalROAS = stats.Round(revDelta/spendDelta, 4)
	}

	z, confidence := Significance(test, control)
	out.ZScore = stats.Round(z, 4)
	out.StatisticalSignificance = confidence
	out.IsSignificant = confidence >= SignificanceLevel
	out.Interpretation = interpret(out, control)
	return out
}

func interpret(r models.IncrementalityResult, control models.PeriodMetrics) string {
	pct := r.StatisticalSignificance * 100
	switch {
	case control.Days == 0:
		return "Control window is empty; lift cannot be measured"
	case control.Conversions == 0 && r.TestPeriod.Conversions == 0:
		return "No conversions in either window"
	case control.Conversions == 0:
		return fmt.Sprintf("Control window had no conversions; %s added %.0f conversions but lift is undefined", r.Channel, r.IncrementalConversions)
	case r.IsSignificant && r.ConversionLiftPercent > 0:
		return fmt.Sprintf("%s drove a %.1f%% conversion lift (%.1f%% confidence)", r.Channel, r.ConversionLiftPercent, pct)
	case r.IsSignificant && r.ConversionLiftPercent < 0:
		return fmt.Sprintf("Conversions fell %.1f%% during the test (%.1f%% confidence); review %s targeting", -r.ConversionLiftPercent, pct, r.Channel)
	case r.IsSignificant:
		return "No change in conversions"
	}
	return fmt.Sprintf("Lift of %.1f%% is not statistically significant (%.1f%% confidence); extend the test or raise volume", r.ConversionLiftPercent, pct)
}

func roundPeriod(p models.PeriodMetrics) models.PeriodMetrics {
	p.Spend = stats.Round(p.Spend, 2)
	p.Revenue = stats.Round(p.Revenue, 2)
	p.Conversions = stats.Round(p.Conversions, 2)
	return p
}

// Lift runs Analyze for every channel with activity in the test window.
func (a *Analyzer) Lift(test, control models.DateRange, testSeries, controlSeries []models.ChannelSeries) models.ConversionLiftAnalysis {
	out := models.ConversionLiftAnalysis{
		TestPeriod:    test,
		ControlPeriod: control,
		Channels:      []models.IncrementalityResult{},
	}
	controls := make(map[string][]models.DailyMetricPoint, len(controlSeries))
	for _, s := range controlSeries {
		controls[s.Channel] = s.Points
	}
	for _, s := range testSeries {
		t := Summarize(test, s.Points)
		if t.Spend == 0 && t.Conversions == 0 {
			continue
		}
		r := a.Analyze(s.Channel, t, Summarize(control, controls[s.Channel]))
		if r.IsSignificant {
			out.SignificantCount++
		}
		out.Channels = append(out.Channels, r)
	}
	sort.SliceStable(out.Channels, func(i, j int) bool {
		if out.Channels[i].ConversionLiftPercent != out.Channels[j].ConversionLiftPercent {
			return out.Channels[i].ConversionLiftPercent > out.Channels[j].ConversionLiftPercent
		}
		return out.Channels[i].Channel < out.Channels[j].Channel
	})

	if len(out.Channels) == 0 {
		out.Message = "No channel activity in the test window"
		return out
	}
	for _, r := range out.Channels {
		if r.IsSignificant && r.ConversionLiftPercent > 0 {
			out.TopChannel = r.Channel
			break
		}
	}
	if out.TopChannel == "" {
		out.Message = fmt.Sprintf("None of %d channels shows a significant positive lift", len(out.Channels))
	} else {
		out.Message = fmt.Sprintf("%d of %d channels show a significant lift; %s leads", out.SignificantCount, len(out.Channels), out.TopChannel)
	}
	return out
}
