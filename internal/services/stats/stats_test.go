package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanAndStdDev(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 2.5, Mean([]float64{1, 2, 3, 4}))

	assert.Equal(t, 0.0, SampleStdDev([]float64{5}))
	assert.InDelta(t, 1.2909944, SampleStdDev([]float64{1, 2, 3, 4}), 1e-6)
	assert.Equal(t, 0.0, SampleStdDev([]float64{7, 7, 7}))
}

func TestLinearSlope(t *testing.T) {
	assert.InDelta(t, 2.0, LinearSlope([]float64{1, 3, 5, 7}), 1e-9)
	assert.InDelta(t, 0.0, LinearSlope([]float64{4, 4, 4}), 1e-9)
	assert.Equal(t, 0.0, LinearSlope([]float64{9}))
}

func TestTrendPercent(t *testing.T) {
	// slope 10 over mean 130 across 7 days
	values := []float64{100, 110, 120, 130, 140, 150, 160}
	assert.InDelta(t, 10.0/130.0*100*7, TrendPercent(values, 7), 1e-9)

	// only the tail counts
	longer := append([]float64{1000, 0, 1000}, values...)
	assert.InDelta(t, TrendPercent(values, 7), TrendPercent(longer, 7), 1e-9)

	assert.Equal(t, 0.0, TrendPercent([]float64{0, 0, 0}, 3))
	assert.Equal(t, 0.0, TrendPercent([]float64{5}, 7))
}

func TestWeightedMovingAverage(t *testing.T) {
	flat := []float64{10, 10, 10, 10, 10, 10, 10}
	assert.InDelta(t, 10.0, WeightedMovingAverage(flat, ForecastWeights), 1e-9)

	values := []float64{0, 0, 0, 0, 0, 0, 16}
	assert.InDelta(t, 4.0, WeightedMovingAverage(values, ForecastWeights), 1e-9)

	// shorter than the weights: uses the most recent 2 weights (3, 4)
	assert.InDelta(t, (1*3+2*4)/7.0, WeightedMovingAverage([]float64{1, 2}, ForecastWeights), 1e-9)
	assert.Equal(t, 0.0, WeightedMovingAverage(nil, ForecastWeights))
}

func TestPearson(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 1.0, Pearson(xs, []float64{2, 4, 6, 8, 10}), 1e-9)
	assert.InDelta(t, -1.0, Pearson(xs, []float64{5, 4, 3, 2, 1}), 1e-9)
	assert.Equal(t, 0.0, Pearson(xs, []float64{3, 3, 3, 3, 3}))
	assert.Equal(t, 0.0, Pearson([]float64{1}, []float64{1}))
}

func TestDiff(t *testing.T) {
	assert.Equal(t, []float64{1, -2, 5}, Diff([]float64{1, 2, 0, 5}))
	assert.Nil(t, Diff([]float64{1}))
}

func TestZToConfidenceLadder(t *testing.T) {
	tests := []struct {
		z    float64
		want float64
	}{
		{3.5, 0.999},
		{-3.5, 0.999},
		{2.6, 0.99},
		{2.0, 0.95},
		{1.7, 0.90},
		{1.3, 0.80},
		{0, 0.5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ZToConfidence(tt.z), 1e-9, "z=%v", tt.z)
	}
	// 1.96 itself is not above the 0.95 rung
	assert.InDelta(t, 0.90, ZToConfidence(1.96), 1e-9)
	assert.Equal(t, 0.5, ZToConfidence(math.NaN()))
}

func TestZToConfidenceMonotoneAndBounded(t *testing.T) {
	prev := -1.0
	for z := 0.0; z <= 5; z += 0.01 {
		c := ZToConfidence(z)
		require.GreaterOrEqual(t, c, prev, "z=%v", z)
		require.GreaterOrEqual(t, c, 0.0)
		require.LessOrEqual(t, c, 1.0)
		prev = c
	}
}

func TestQuantile(t *testing.T) {
	xs := []float64{4, 1, 3, 2}
	assert.Equal(t, 1.0, Quantile(xs, 0))
	assert.Equal(t, 4.0, Quantile(xs, 1))
	assert.InDelta(t, 2.5, Quantile(xs, 0.5), 1e-9)
	assert.Equal(t, []float64{4, 1, 3, 2}, xs, "input must not be reordered")
	assert.Equal(t, 0.0, Quantile(nil, 0.5))
}

func TestSafeHelpers(t *testing.T) {
	assert.Equal(t, 0.0, SafeDiv(5, 0))
	assert.Equal(t, 2.5, SafeDiv(5, 2))
	assert.Equal(t, 0.0, PercentChange(10, 0))
	assert.InDelta(t, 50.0, PercentChange(15, 10), 1e-9)
	assert.Equal(t, 1.23, Round(1.2349, 2))
}

func TestMovingAverage(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	sma := MovingAverage(values, 7)
	require.NotEmpty(t, sma)
	assert.InDelta(t, 5.0, sma[len(sma)-1], 1e-9)

	assert.Nil(t, MovingAverage([]float64{1, 2}, 7))
	assert.Equal(t, values, MovingAverage(values, 1))
}

func TestBaselineFallbackOnFlatWindow(t *testing.T) {
	b := NewBaseline([]float64{100, 100, 100, 100, 100, 100})
	assert.True(t, b.Fallback)
	assert.InDelta(t, 10.0, b.StdDev, 1e-9)
	assert.InDelta(t, 90.0, b.ZScore(1000), 1e-9)
	assert.InDelta(t, 0.0, b.ZScore(100), 1e-9)

	// repeating decimals must not produce float-noise spread
	tiny := NewBaseline([]float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1})
	assert.True(t, tiny.Fallback)
	assert.InDelta(t, 0.0, tiny.ZScore(0.1), 1e-6)
}

func TestBaselineIgnoresZeros(t *testing.T) {
	b := NewBaseline([]float64{0, 10, 0, 20, 30})
	assert.Equal(t, 3, b.N)
	assert.InDelta(t, 20.0, b.Mean, 1e-9)

	empty := NewBaseline([]float64{0, 0, 0})
	assert.False(t, empty.Usable())
	assert.Equal(t, 0.0, empty.ZScore(50))
}

func TestTrailingBaseline(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = float64(i + 1)
	}
	b, ok := TrailingBaseline(values, 29)
	require.True(t, ok)
	assert.Equal(t, BaselineWindow, b.N)
	assert.InDelta(t, Mean(values[8:29]), b.Mean, 1e-9)

	_, ok = TrailingBaseline(values, 4)
	assert.False(t, ok, "four prior days are not enough")
	_, ok = TrailingBaseline(values, 0)
	assert.False(t, ok)
}
