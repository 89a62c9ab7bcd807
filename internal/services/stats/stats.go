package stats

import (
	"math"
	"sort"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
)

// ForecastWeights are the weighted-moving-average weights, oldest first.
var ForecastWeights = []float64{1, 1, 2, 2, 3, 3, 4}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Sum adds up xs.
func Sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

// SampleStdDev returns the n-1 standard deviation, 0 with fewer than 2 values.
func SampleStdDev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	mean := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// LinearSlope is the ordinary least-squares slope of ys against x = 0..n-1.
func LinearSlope(ys []float64) float64 {
	n := float64(len(ys))
	if n < 2 {
		return 0
	}
	xMean := (n - 1) / 2
	yMean := Mean(ys)
	num, den := 0.0, 0.0
	for i, y := range ys {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// Tail returns the last n values, or all of xs when shorter.
func Tail(xs []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

// TrendPercent expresses the slope over the last n values as a percentage of
// their mean, scaled to the whole window: slope / mean * 100 * n.
func TrendPercent(values []float64, n int) float64 {
	window := Tail(values, n)
	if len(window) < 2 {
		return 0
	}
	mean := Mean(window)
	if mean == 0 {
		return 0
	}
	return LinearSlope(window) / mean * 100 * float64(n)
}

// DailyTrendRate is the slope over the last n values relative to their mean.
func DailyTrendRate(values []float64, n int) float64 {
	window := Tail(values, n)
	mean := Mean(window)
	if len(window) < 2 || mean == 0 {
		return 0
	}
	return LinearSlope(window) / mean
}

// WeightedMovingAverage weights the trailing values by weights, which are
// ordered oldest first. Shorter series use the most recent weights.
func WeightedMovingAverage(values, weights []float64) float64 {
	if len(values) == 0 || len(weights) == 0 {
		return 0
	}
	window := Tail(values, len(weights))
	w := weights[len(weights)-len(window):]
	num, den := 0.0, 0.0
	for i, v := range window {
		num += v * w[i]
		den += w[i]
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// Pearson returns the correlation coefficient of xs and ys over their common
// prefix, 0 when either side has no variance.
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if n < 2 {
		return 0
	}
	xm, ym := Mean(xs[:n]), Mean(ys[:n])
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := xs[i]-xm, ys[i]-ym
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}

// Diff returns day-over-day differences, one shorter than xs.
func Diff(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		out[i-1] = xs[i] - xs[i-1]
	}
	return out
}

// ZToConfidence maps |z| onto the fixed confidence ladder. Below 1.28 the
// value is interpolated linearly from 0.5 at z=0 up to 0.8.
func ZToConfidence(z float64) float64 {
	z = math.Abs(z)
	switch {
	case math.IsNaN(z):
		return 0.5
	case z > 3:
		return 0.999
	case z > 2.58:
		return 0.99
	case z > 1.96:
		return 0.95
	case z > 1.645:
		return 0.90
	case z > 1.28:
		return 0.80
	}
	return 0.5 + 0.3*z/1.28
}

// PercentChange is (current - previous) / previous * 100, 0 on a zero base.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// SafeDiv returns num/den, or 0 when den is 0.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Quantile returns the q-th quantile (0..1) with linear interpolation.
func Quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Round rounds to the given number of decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}

// MovingAverage smooths values with a simple moving average. The result is
// aligned to the end of the input and starts once a full period is seen.
func MovingAverage(values []float64, period int) []float64 {
	if period <= 1 {
		return append([]float64(nil), values...)
	}
	if len(values) < period {
		return nil
	}
	sma := trend.NewSmaWithPeriod[float64](period)
	return helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
}
