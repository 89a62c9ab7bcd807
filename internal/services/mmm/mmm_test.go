package mmm

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/domain/service"
)

var start = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

func chseries(name string, spend, revenue []float64) models.ChannelSeries {
	points := make([]models.DailyMetricPoint, len(spend))
	for i := range spend {
		points[i] = models.DailyMetricPoint{
			Date: start.AddDate(0, 0, i), Channel: name, Spend: spend[i], Revenue: revenue[i],
			Conversions: revenue[i] / 50,
		}
	}
	return models.ChannelSeries{Channel: name, Points: points}
}

func flat(name string, spendPerDay, revenuePerDay float64, days int) models.ChannelSeries {
	spend := make([]float64, days)
	revenue := make([]float64, days)
	for i := range spend {
		spend[i], revenue[i] = spendPerDay, revenuePerDay
	}
	return chseries(name, spend, revenue)
}

func ptr(v float64) *float64 { return &v }

func sumRecommended(o models.BudgetOptimization) float64 {
	total := 0.0
	for _, r := range o.Recommendations {
		total += r.RecommendedSpend
	}
	return total
}

func byChannel(o models.BudgetOptimization, ch string) models.AllocationRecommendation {
	for _, r := range o.Recommendations {
		if r.Channel == ch {
			return r
		}
	}
	return models.AllocationRecommendation{}
}

func TestMaximizeROASReallocation(t *testing.T) {
	channels := []models.ChannelSeries{
		flat("a", 100, 500, 10),
		flat("b", 100, 200, 10),
		flat("c", 100, 50, 10),
	}
	out, err := NewOptimizer().Optimize(models.DateRange{}, channels, 3000, models.GoalMaximizeROAS, nil)
	require.NoError(t, err)
	require.Len(t, out.Recommendations, 3)

	a, c := byChannel(out, "a"), byChannel(out, "c")
	assert.Equal(t, 1000.0, a.CurrentSpend)
	assert.Greater(t, a.RecommendedSpend, 1000.0)
	assert.Less(t, c.RecommendedSpend, 1000.0)
	assert.InDelta(t, 3000.0, sumRecommended(out), 1e-6)
	assert.LessOrEqual(t, sumRecommended(out), 3000.0+1e-6)
	assert.InDelta(t, 2000.0, a.RecommendedSpend, 1e-6)
}

func TestOptimizeRespectsConstraints(t *testing.T) {
	channels := []models.ChannelSeries{
		flat("a", 100, 500, 10),
		flat("b", 100, 200, 10),
		flat("c", 100, 50, 10),
	}
	cons := map[string]models.ChannelConstraint{
		"a": {MaxSpend: ptr(1200)},
		"b": {Fixed: ptr(700)},
		"c": {MinSpend: ptr(400)},
	}
	out, err := NewOptimizer().Optimize(models.DateRange{}, channels, 3000, models.GoalBalanced, cons)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, byChannel(out, "a").RecommendedSpend)
	assert.Equal(t, 700.0, byChannel(out, "b").RecommendedSpend)
	assert.InDelta(t, 1100.0, byChannel(out, "c").RecommendedSpend, 1e-6)
	assert.LessOrEqual(t, sumRecommended(out), 3000.0+1e-6)
}

func TestOptimizeCapsWhenMaxesTooLow(t *testing.T) {
	channels := []models.ChannelSeries{flat("a", 100, 500, 10), flat("b", 100, 200, 10)}
	cons := map[string]models.ChannelConstraint{"a": {MaxSpend: ptr(500)}, "b": {MaxSpend: ptr(300)}}
	out, err := NewOptimizer().Optimize(models.DateRange{}, channels, 3000, models.GoalMaximizeRevenue, cons)
	require.NoError(t, err)
	assert.InDelta(t, 800.0, out.AllocatedBudget, 1e-9)
	assert.Contains(t, out.Message, "Constraints cap allocation")
}

func TestOptimizeRejectsInfeasibleConstraints(t *testing.T) {
	channels := []models.ChannelSeries{flat("a", 100, 500, 10), flat("b", 100, 200, 10)}
	o := NewOptimizer()

	_, err := o.Optimize(models.DateRange{}, channels, 1000, models.GoalBalanced,
		map[string]models.ChannelConstraint{"a": {Fixed: ptr(800)}, "b": {Fixed: ptr(300)}})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	_, err = o.Optimize(models.DateRange{}, channels, 1000, models.GoalBalanced,
		map[string]models.ChannelConstraint{"a": {Fixed: ptr(800)}, "b": {MinSpend: ptr(300)}})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	_, err = o.Optimize(models.DateRange{}, channels, 1000, models.GoalBalanced,
		map[string]models.ChannelConstraint{"a": {MinSpend: ptr(300), MaxSpend: ptr(100)}})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	_, err = o.Optimize(models.DateRange{}, channels, 0, models.GoalBalanced, nil)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestOptimizeRejectsAliasedConstraints(t *testing.T) {
	channels := []models.ChannelSeries{flat("meta", 100, 500, 10), flat("google", 100, 200, 10)}
	o := NewOptimizer()

	for range 20 {
		_, err := o.Optimize(models.DateRange{}, channels, 2000, models.GoalMaximizeROAS,
			map[string]models.ChannelConstraint{
				"facebook": {MaxSpend: ptr(100)},
				"meta":     {MinSpend: ptr(1500)},
			})
		require.ErrorIs(t, err, models.ErrInvalidParameter)
		assert.ErrorContains(t, err, "duplicate constraint for meta")
	}
}

func TestOptimizeInvariantsUnderRandomConstraints(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	names := []string{"a", "b", "c", "d", "e"}
	goals := []models.OptimizationGoal{models.GoalMaximizeRevenue, models.GoalMaximizeROAS, models.GoalMinimizeCPA, models.GoalBalanced}
	o := NewOptimizer()

	for iter := 0; iter < 300; iter++ {
		var channels []models.ChannelSeries
		for _, n := range names {
			days := 5 + rng.Intn(20)
			spend := make([]float64, days)
			revenue := make([]float64, days)
			for i := range spend {
				spend[i] = float64(rng.Intn(500))
				revenue[i] = spend[i] * rng.Float64() * 6
			}
			channels = append(channels, chseries(n, spend, revenue))
		}
		budget := 100 + rng.Float64()*20000
		cons := map[string]models.ChannelConstraint{}
		remaining := budget
		for _, n := range names {
			switch rng.Intn(4) {
			case 0:
				v := rng.Float64() * remaining / 3
				remaining -= v
				cons[n] = models.ChannelConstraint{Fixed: &v}
			case 1:
				lo := rng.Float64() * remaining / 3
				remaining -= lo
				hi := lo + rng.Float64()*budget
				cons[n] = models.ChannelConstraint{MinSpend: &lo, MaxSpend: &hi}
			case 2:
				hi := rng.Float64() * budget
				cons[n] = models.ChannelConstraint{MaxSpend: &hi}
			}
		}
		goal := goals[rng.Intn(len(goals))]
		out, err := o.Optimize(models.DateRange{}, channels, budget, goal, cons)
		require.NoError(t, err)

		assert.LessOrEqual(t, sumRecommended(out), budget+1e-6, "iter %d", iter)
		for _, r := range out.Recommendations {
			c, ok := cons[r.Channel]
			if !ok {
				continue
			}
			if c.Fixed != nil {
				assert.Equal(t, *c.Fixed, r.RecommendedSpend, "iter %d fixed %s", iter, r.Channel)
				continue
			}
			if c.MinSpend != nil {
				assert.GreaterOrEqual(t, r.RecommendedSpend, *c.MinSpend, "iter %d min %s", iter, r.Channel)
			}
			if c.MaxSpend != nil {
				assert.LessOrEqual(t, r.RecommendedSpend, *c.MaxSpend, "iter %d max %s", iter, r.Channel)
			}
		}
	}
}

func TestOptimizeAllZeroScoresFollowsCurrentSpend(t *testing.T) {
	channels := []models.ChannelSeries{flat("a", 300, 0, 10), flat("b", 100, 0, 10)}
	out, err := NewOptimizer().Optimize(models.DateRange{}, channels, 800, models.GoalMaximizeROAS, nil)
	require.NoError(t, err)
	assert.InDelta(t, 600.0, byChannel(out, "a").RecommendedSpend, 1e-6)
	assert.InDelta(t, 200.0, byChannel(out, "b").RecommendedSpend, 1e-6)
}

func TestEfficiencyLookup(t *testing.T) {
	assert.Equal(t, models.EfficiencyExcellent, Efficiency(4, 0, 49))
	assert.Equal(t, models.EfficiencyGood, Efficiency(4, 1, 60))
	assert.Equal(t, models.EfficiencyAverage, Efficiency(2.5, 0.9, 10))
	assert.Equal(t, models.EfficiencyPoor, Efficiency(0.99, 5, 0))
}

func TestHeuristicMarginalResponse(t *testing.T) {
	h := DefaultMarginalResponse()

	short := flat("a", 100, 400, 5)
	assert.InDelta(t, 3.6, h.EstimateMarginalResponse(short.Points), 1e-9)

	// uncorrelated changes fall back to the discounted period ROAS
	assert.InDelta(t, 3.6, h.EstimateMarginalResponse(flat("a", 100, 400, 14).Points), 1e-9)

	// revenue follows spend: recent window ROAS is used
	spend := []float64{100, 120, 90, 130, 100, 140, 110, 150, 120, 160}
	revenue := make([]float64, len(spend))
	for i, s := range spend {
		revenue[i] = s * 2
		if i >= 3 {
			revenue[i] = s * 3
		}
	}
	got := h.EstimateMarginalResponse(chseries("a", spend, revenue).Points)
	assert.InDelta(t, 2.7, got, 1e-9)
}

func TestThirdsSaturation(t *testing.T) {
	s := ThirdsSaturation{}
	assert.Equal(t, 50.0, s.EstimateSaturation(flat("a", 100, 300, 5).Points))
	assert.InDelta(t, 0.0, s.EstimateSaturation(flat("a", 100, 300, 9).Points), 1e-9)

	spend := []float64{10, 20, 30, 40, 50, 60}
	revenue := []float64{50, 100, 60, 80, 50, 60} // low third ROAS 5, high third ROAS 1
	assert.InDelta(t, 80.0, s.EstimateSaturation(chseries("a", spend, revenue).Points), 1e-9)

	zeroLow := chseries("a", spend, []float64{0, 0, 10, 10, 10, 10})
	assert.Equal(t, 0.0, s.EstimateSaturation(zeroLow.Points))
}

func TestStrategiesAreSwappable(t *testing.T) {
	o := NewOptimizer(
		WithMarginalResponse(service.MarginalResponseFunc(func([]models.DailyMetricPoint) float64 { return 7 })),
		WithSaturation(service.SaturationFunc(func([]models.DailyMetricPoint) float64 { return 10 })),
	)
	out := o.Contribution(models.DateRange{}, []models.ChannelSeries{flat("a", 100, 500, 3)})
	require.Len(t, out.Channels, 1)
	assert.Equal(t, 7.0, out.Channels[0].MarginalROAS)
	assert.Equal(t, 10.0, out.Channels[0].SaturationLevel)
	assert.Equal(t, models.EfficiencyExcellent, out.Channels[0].EfficiencyRating)
}

func TestContribution(t *testing.T) {
	channels := []models.ChannelSeries{
		flat("meta", 100, 150, 10),
		flat("google_ads", 100, 450, 10),
		flat("direct", 0, 200, 10),
		flat("idle", 0, 0, 10),
	}
	out := NewOptimizer().Contribution(models.DateRange{}, channels)
	require.Len(t, out.Channels, 3)
	assert.Equal(t, "google_ads", out.TopChannel)
	assert.Equal(t, 2000.0, out.TotalSpend)
	assert.Equal(t, 8000.0, out.TotalRevenue)
	assert.Equal(t, 4.0, out.OverallROAS)
	assert.Equal(t, 56.25, out.Channels[0].RevenueShare)
	assert.Equal(t, 50.0, out.Channels[0].SpendShare)
	assert.Equal(t, 10, out.Channels[0].ActiveDays)
	assert.Equal(t, 0.0, out.Channels[1].MarginalROAS, "direct has no spend")
}

func TestScenarios(t *testing.T) {
	channels := []models.ChannelSeries{flat("a", 100, 500, 10), flat("b", 100, 100, 10)}
	out, err := NewOptimizer().Scenarios(models.DateRange{}, channels, map[string]map[string]float64{
		"shift_to_a": {"a": 1500, "b": 500},
		"cut_all":    {"a": 0, "b": 0},
	})
	require.NoError(t, err)
	require.Len(t, out.Scenarios, 3)
	assert.Equal(t, BaselineScenario, out.Scenarios[0].Name)
	assert.Equal(t, 6000.0, out.Scenarios[0].ProjectedRevenue)
	// revenue cannot fall below zero; a: 5000-1000*4.5, b: 1000-1000*0.9
	assert.Equal(t, "cut_all", out.Scenarios[1].Name)
	assert.InDelta(t, 600.0, out.Scenarios[1].ProjectedRevenue, 1e-6)

	shift := out.Scenarios[2]
	// a: 5000 + 500*4.5; b: 1000 - 500*0.9
	assert.InDelta(t, 7250+550, shift.ProjectedRevenue, 1e-6)
	assert.Equal(t, "shift_to_a", out.BestScenario)
	assert.InDelta(t, 1800, shift.RevenueChange, 1e-6)
}

func TestScenariosValidation(t *testing.T) {
	channels := []models.ChannelSeries{flat("a", 100, 500, 10)}
	_, err := NewOptimizer().Scenarios(models.DateRange{}, channels, map[string]map[string]float64{"baseline": {"a": 1}})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
	_, err = NewOptimizer().Scenarios(models.DateRange{}, channels, map[string]map[string]float64{"x": {"a": -1}})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
	_, err = NewOptimizer().Scenarios(models.DateRange{}, channels, map[string]map[string]float64{"x": {"facebook": 100, "meta": 900}})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestDiminishingReturns(t *testing.T) {
	spend := make([]float64, 16)
	revenue := make([]float64, 16)
	for i := range spend {
		spend[i] = float64(50 + 25*i)
		revenue[i] = 100 * math.Sqrt(spend[i])
	}
	out := NewOptimizer().DiminishingReturns(models.DateRange{}, chseries("meta", spend, revenue))
	require.Len(t, out.Quartiles, 4)
	for _, q := range out.Quartiles {
		assert.Equal(t, 4, q.Days)
	}
	assert.Greater(t, out.Quartiles[0].ROAS, out.Quartiles[3].ROAS)
	assert.Greater(t, out.EfficiencyDropPercent, 30.0)
	assert.Equal(t, out.Quartiles[0].MinSpend, out.RecommendedMinSpend)
	assert.Equal(t, out.Quartiles[0].MaxSpend, out.RecommendedMaxSpend)
	assert.Contains(t, out.Message, "Strong diminishing returns")
}

func TestDiminishingReturnsNeedsEightDays(t *testing.T) {
	out := NewOptimizer().DiminishingReturns(models.DateRange{}, flat("meta", 100, 100, 7))
	assert.Empty(t, out.Quartiles)
	assert.Contains(t, out.Message, "at least 8")
}
