package models

// PeriodMetrics are the totals of one test or control window.
type PeriodMetrics struct {
	Period      DateRange `json:"period"`
	Days        int       `json:"days"`
	Spend       float64   `json:"spend"`
	Conversions float64   `json:"conversions"`
	Revenue     float64   `json:"revenue"`
	Clicks      int64     `json:"clicks"`
}

// ConversionsPerDay normalizes conversions by window length.
func (p PeriodMetrics) ConversionsPerDay() float64 { return ratio(p.Conversions, float64(p.Days)) }

// RevenuePerDay normalizes revenue by window length.
func (p PeriodMetrics) RevenuePerDay() float64 { return ratio(p.Revenue, float64(p.Days)) }

// SpendPerDay normalizes spend by window length.
func (p PeriodMetrics) SpendPerDay() float64 { return ratio(p.Spend, float64(p.Days)) }

// IncrementalityResult compares a test window against its control.
type IncrementalityResult struct {
	Channel                 string        `json:"channel"`
	TestPeriod              PeriodMetrics `json:"test_period"`
	ControlPeriod           PeriodMetrics `json:"control_period"`
	ConversionLiftPercent   float64       `json:"conversion_lift_percent"`
	RevenueLiftPercent      float64       `json:"revenue_lift_percent"`
	IncrementalConversions  float64       `json:"incremental_conversions"`
	IncrementalRevenue      float64       `json:"incremental_revenue"`
	IncrementalSpend        float64       `json:"incremental_spend"`
	IncrementalROAS         float64       `json:"incremental_roas"`
	ZScore                  float64       `json:"z_score"`
	StatisticalSignificance float64       `json:"statistical_significance"`
	IsSignificant           bool          `json:"is_significant"`
	Interpretation          string        `json:"interpretation"`
}

// BaselineEstimate splits a channel's conversions into organic and incremental.
type BaselineEstimate struct {
	Channel                string    `json:"channel"`
	Period                 DateRange `json:"period"`
	TotalConversions       float64   `json:"total_conversions"`
	TotalRevenue           float64   `json:"total_revenue"`
	Spend                  float64   `json:"spend"`
	BaselineRate           float64   `json:"baseline_rate"`
	BaselineConversions    float64   `json:"baseline_conversions"`
	IncrementalConversions float64   `json:"incremental_conversions"`
	IncrementalRevenue     float64   `json:"incremental_revenue"`
	IncrementalROAS        float64   `json:"incremental_roas"`
	Methodology            string    `json:"methodology"`
}

// BaselineReport is the result of estimate_baseline_conversions.
type BaselineReport struct {
	Period                 DateRange          `json:"period"`
	Channels               []BaselineEstimate `json:"channels"`
	TotalConversions       float64            `json:"total_conversions"`
	BaselineConversions    float64            `json:"baseline_conversions"`
	IncrementalConversions float64            `json:"incremental_conversions"`
	Message                string             `json:"message,omitempty"`
}

// HoldoutTestDesign is the result of get_holdout_test_design.
type HoldoutTestDesign struct {
	Channel                 string  `json:"channel"`
	BaselineConversionRate  float64 `json:"baseline_conversion_rate"`
	MinimumDetectableEffect float64 `json:"minimum_detectable_effect"`
	Confidence              float64 `json:"confidence"`
	Power                   float64 `json:"power"`
	HoldoutPercent          float64 `json:"holdout_percent"`
	DailyTraffic            float64 `json:"daily_traffic"`
	SampleSizePerGroup      int     `json:"sample_size_per_group"`
	RequiredDays            int     `json:"required_days"`
	RecommendedDurationDays int     `json:"recommended_duration_days"`
	EstimatedSpendAtRisk    float64 `json:"estimated_spend_at_risk"`
	Feasible                bool    `json:"feasible"`
	Recommendation          string  `json:"recommendation"`
}

// ConversionLiftAnalysis is the result of get_conversion_lift_analysis.
type ConversionLiftAnalysis struct {
	TestPeriod       DateRange              `json:"test_period"`
	ControlPeriod    DateRange              `json:"control_period"`
	Channels         []IncrementalityResult `json:"channels"`
	SignificantCount int                    `json:"significant_count"`
	TopChannel       string                 `json:"top_channel,omitempty"`
	Message          string                 `json:"message,omitempty"`
}
