package incrementality

import (
	"fmt"
	"math"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/services/stats"
)

// Holdout design defaults and bounds.
const (
	DefaultMinDetectableLift = 0.10
	DefaultConfidence        = 95
	DefaultPower             = 80
	DefaultHoldoutPercent    = 10.0
	DefaultConversionRate    = 0.02

	MinTestDays = 14
	MaxTestDays = 90
)

// two-sided critical values
var confidenceZ = map[int]float64{90: 1.645, 95: 1.96, 99: 2.576}

var powerZ = map[int]float64{80: 0.84, 90: 1.28}

// HoldoutParams configures a holdout design. Zero values take the defaults.
type HoldoutParams struct {
	Channel           string
	MinDetectableLift float64 // relative, 0.1 = 10%
	Confidence        int     // percent
	Power             int     // percent
	HoldoutPercent    float64
}

func (p HoldoutParams) withDefaults() HoldoutParams {
	if p.MinDetectableLift == 0 {
		p.MinDetectableLift = DefaultMinDetectableLift
	}
	if p.Confidence == 0 {
		p.Confidence = DefaultConfidence
	}
	if p.Power == 0 {
		p.Power = DefaultPower
	}
	if p.HoldoutPercent == 0 {
		p.HoldoutPercent = DefaultHoldoutPercent
	}
	return p
}

// SampleSize is the per-group size of a two-proportion test detecting a
// relative lift mde over baseline rate p.
func SampleSize(p, mde, zAlpha, zBeta float64) int {
	p2 := p * (1 + mde)
	if p2 >= 1 {
		p2 = 0.999
	}
	diff := p2 - p
	if diff <= 0 {
		return 0
	}
	variance := p*(1-p) + p2*(1-p2)
	return int(math.Ceil(math.Pow(zAlpha+zBeta, 2) * variance / (diff * diff)))
}

// HoldoutDesign sizes a holdout test for a channel from its recent history.
// The baseline rate is conversions per click, or DefaultConversionRate without clicks.
func (a *Analyzer) HoldoutDesign(params HoldoutParams, history models.PeriodMetrics) (models.HoldoutTestDesign, error) {
	params = params.withDefaults()
	zAlpha, ok := confidenceZ[params.Confidence]
	if !ok {
		return models.HoldoutTestDesign{}, fmt.Errorf("%w: confidence must be 90, 95 or 99", models.ErrInvalidParameter)
	}
	zBeta, ok := powerZ[params.Power]
	if !ok {
		return models.HoldoutTestDesign{}, fmt.Errorf("%w: power must be 80 or 90", models.ErrInvalidParameter)
	}
	if params.MinDetectableLift < 0 || math.IsNaN(params.MinDetectableLift) {
		return models.HoldoutTestDesign{}, fmt.Errorf("%w: minimum detectable effect must be positive", models.ErrInvalidParameter)
	}
	if params.HoldoutPercent < 0 || params.HoldoutPercent > 50 {
		return models.HoldoutTestDesign{}, fmt.Errorf("%w: holdout_percent must be within (0, 50]", models.ErrInvalidParameter)
	}

	rate := DefaultConversionRate
	traffic := 0.0
	if history.Days > 0 {
		traffic = float64(history.Clicks) / float64(history.Days)
		if r := stats.SafeDiv(history.Conversions, float64(history.Clicks)); r > 0 && r < 1 {
			rate = r
		} else if history.Clicks == 0 && history.Conversions > 0 {
			// no click data: back traffic out of conversions at the default rate
			traffic = history.ConversionsPerDay() / rate
		}
	}

	out := models.HoldoutTestDesign{
		Channel:                 params.Channel,
		BaselineConversionRate:  stats.Round(rate, 4),
		MinimumDetectableEffect: params.MinDetectableLift,
		Confidence:              float64(params.Confidence) / 100,
		Power:                   float64(params.Power) / 100,
		HoldoutPercent:          params.HoldoutPercent,
		DailyTraffic:            stats.Round(traffic, 2),
		SampleSizePerGroup:      SampleSize(rate, params.MinDetectableLift, zAlpha, zBeta),
	}

	holdoutDaily := traffic * params.HoldoutPercent / 100
	if holdoutDaily <= 0 {
		out.RecommendedDurationDays = MinTestDays
		out.Recommendation = fmt.Sprintf("No recent traffic for %s; a holdout test cannot reach %d users per group", params.Channel, out.SampleSizePerGroup)
		return out, nil
	}
	out.RequiredDays = int(math.Ceil(float64(out.SampleSizePerGroup) / holdoutDaily))
	out.RecommendedDurationDays = min(max(out.RequiredDays, MinTestDays), MaxTestDays)
	out.Feasible = out.RequiredDays <= MaxTestDays
	out.EstimatedSpendAtRisk = stats.Round(history.SpendPerDay()*params.HoldoutPercent/100*float64(out.RecommendedDurationDays), 2)

	if out.Feasible {
		out.Recommendation = fmt.Sprintf("Hold out %.0f%% of %s traffic for %d days to detect a %.0f%% lift at %d%% confidence",
			params.HoldoutPercent, params.Channel, out.RecommendedDurationDays, params.MinDetectableLift*100, params.Confidence)
	} else {
		out.Recommendation = fmt.Sprintf("Needs %d days at the current volume; raise the holdout share or accept a larger detectable effect", out.RequiredDays)
	}
	return out, nil
}
