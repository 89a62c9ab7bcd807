package stats

// Baseline window limits used by the anomaly detector.
const (
	BaselineWindow     = 21
	MinBaselineNonZero = 5
	stdDevFallbackRate = 0.10
	flatTolerance      = 1e-9
)

// Baseline is the mean and spread of a trailing window of observations.
type Baseline struct {
	Mean     float64
	StdDev   float64
	N        int
	Fallback bool
}

// NewBaseline summarises the non-zero values of window. When they have no
// spread, StdDev falls back to 10% of the mean so z-scores stay finite.
func NewBaseline(window []float64) Baseline {
	nonZero := make([]float64, 0, len(window))
	for _, v := range window {
		if v != 0 {
			nonZero = append(nonZero, v)
		}
	}
	b := Baseline{
		Mean:   Mean(nonZero),
		StdDev: SampleStdDev(nonZero),
		N:      len(nonZero),
	}
	// float noise on a flat window must not read as spread
	if b.StdDev <= flatTolerance*abs(b.Mean) {
		b.StdDev = abs(b.Mean) * stdDevFallbackRate
		b.Fallback = true
	}
	return b
}

// TrailingBaseline builds the baseline for values[i] from up to
// BaselineWindow prior values. ok is false when fewer than
// MinBaselineNonZero of them are non-zero.
func TrailingBaseline(values []float64, i int) (Baseline, bool) {
	if i <= 0 || i > len(values) {
		return Baseline{}, false
	}
	start := i - BaselineWindow
	if start < 0 {
		start = 0
	}
	b := NewBaseline(values[start:i])
	return b, b.N >= MinBaselineNonZero
}

// Usable reports whether z-scores can be computed against the baseline.
func (b Baseline) Usable() bool {
	return b.N >= MinBaselineNonZero && b.StdDev > 0
}

// ZScore is (value - mean) / stddev, 0 when the baseline has no spread at all.
func (b Baseline) ZScore(value float64) float64 {
	// float noise on a flat window must not read as spread
	if b.StdDev <= flatTolerance*abs(b.Mean) {
		return 0
	}
	return (value - b.Mean) / b.StdDev
}

// DeviationPercent is the relative distance of value from the mean.
func (b Baseline) DeviationPercent(value float64) float64 {
	return PercentChange(value, b.Mean)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
