package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidParameter marks input rejected before any computation runs.
var ErrInvalidParameter = errors.New("invalid parameter")

func invalid(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, a...))
}

// Metric names a measurable series of a DailyMetricPoint.
type Metric string

const (
	MetricSpend       Metric = "spend"
	MetricRevenue     Metric = "revenue"
	MetricROAS        Metric = "roas"
	MetricConversions Metric = "conversions"
	MetricOrders      Metric = "orders"
	MetricClicks      Metric = "clicks"
	MetricImpressions Metric = "impressions"
	MetricCTR         Metric = "ctr"
	MetricCPC         Metric = "cpc"
	MetricCPA         Metric = "cpa"
)

// AllMetrics lists every metric in report order.
var AllMetrics = []Metric{
	MetricRevenue, MetricSpend, MetricROAS, MetricConversions, MetricOrders,
	MetricClicks, MetricImpressions, MetricCTR, MetricCPC, MetricCPA,
}

// HigherIsWorse reports whether growth in the metric is unfavourable.
func (m Metric) HigherIsWorse() bool {
	switch m {
	case MetricSpend, MetricCPC, MetricCPA:
		return true
	}
	return false
}

// Label is the display name of the metric.
func (m Metric) Label() string {
	switch m {
	case MetricROAS:
		return "ROAS"
	case MetricCTR:
		return "CTR"
	case MetricCPC:
		return "CPC"
	case MetricCPA:
		return "CPA"
	}
	s := string(m)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllMetrics {
		if m == known {
			return m, nil
		}
	}
	return "", invalid("unknown metric %q", s)
}

// ParseMetrics validates a comma-separated metric list; empty means all.
func ParseMetrics(csv string) ([]Metric, error) {
	if strings.TrimSpace(csv) == "" {
		return AllMetrics, nil
	}
	parts := strings.Split(csv, ",")
	out := make([]Metric, 0, len(parts))
	seen := make(map[Metric]bool, len(parts))
	for _, p := range parts {
		m, err := ParseMetric(p)
		if err != nil {
			return nil, err
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out, nil
}

// Sensitivity is the user-facing anomaly sensitivity label.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// Threshold returns the |z| cut-off for the label. "low" maps to the highest
// threshold, so it reports fewer and larger anomalies.
func (s Sensitivity) Threshold() float64 {
	switch s {
	case SensitivityLow:
		return 2.5
	case SensitivityHigh:
		return 1.5
	default:
		return 2.0
	}
}

// ParseSensitivity validates a sensitivity label; empty means medium.
func ParseSensitivity(s string) (Sensitivity, error) {
	switch v := Sensitivity(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return SensitivityMedium, nil
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
		return v, nil
	}
	return "", invalid("unknown sensitivity %q", s)
}

// AnomalyType classifies the direction of an anomaly.
type AnomalyType string

const (
	AnomalySpike     AnomalyType = "spike"
	AnomalyDrop      AnomalyType = "drop"
	AnomalyZeroValue AnomalyType = "zero_value"
)

// Severity grades anomalies and alerts.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from low (0) to critical (3).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	}
	return 0
}

// AttributionModel is a credit-splitting policy.
type AttributionModel string

const (
	ModelFirstTouch    AttributionModel = "first_touch"
	ModelLastTouch     AttributionModel = "last_touch"
	ModelLinear        AttributionModel = "linear"
	ModelTimeDecay     AttributionModel = "time_decay"
	ModelPositionBased AttributionModel = "position_based"
	// ModelDataDriven currently credits like ModelLinear.
	ModelDataDriven AttributionModel = "data_driven"
)

// ComparableModels are the distinct policies run by a model comparison.
var ComparableModels = []AttributionModel{
	ModelFirstTouch, ModelLastTouch, ModelLinear, ModelTimeDecay, ModelPositionBased,
}

// ParseAttributionModel validates a model name; empty means last_touch.
func ParseAttributionModel(s string) (AttributionModel, error) {
	switch v := AttributionModel(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ModelLastTouch, nil
	case ModelFirstTouch, ModelLastTouch, ModelLinear, ModelTimeDecay, ModelPositionBased, ModelDataDriven:
		return v, nil
	}
	return "", invalid("unknown attribution model %q", s)
}

// OptimizationGoal selects the allocation ranking score.
type OptimizationGoal string

const (
	GoalMaximizeRevenue OptimizationGoal = "maximize_revenue"
	GoalMaximizeROAS    OptimizationGoal = "maximize_roas"
	GoalMinimizeCPA     OptimizationGoal = "minimize_cpa"
	GoalBalanced        OptimizationGoal = "balanced"
)

// ParseOptimizationGoal validates a goal; empty means balanced.
func ParseOptimizationGoal(s string) (OptimizationGoal, error) {
	switch v := OptimizationGoal(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return GoalBalanced, nil
	case GoalMaximizeRevenue, GoalMaximizeROAS, GoalMinimizeCPA, GoalBalanced:
		return v, nil
	}
	return "", invalid("unknown optimization goal %q", s)
}

// ValidateRange rejects malformed windows at the request boundary.
func ValidateRange(r DateRange) error {
	if r.From.IsZero() || r.To.IsZero() {
		return invalid("date_from and date_to are required")
	}
	return nil
}
