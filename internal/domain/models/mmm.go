package models

// EfficiencyRating grades a channel's spend efficiency.
type EfficiencyRating string

const (
	EfficiencyExcellent EfficiencyRating = "excellent"
	EfficiencyGood      EfficiencyRating = "good"
	EfficiencyAverage   EfficiencyRating = "average"
	EfficiencyPoor      EfficiencyRating = "poor"
)

// ChannelContribution describes a channel's realized and marginal efficiency.
type ChannelContribution struct {
	Channel          string           `json:"channel"`
	Spend            float64          `json:"spend"`
	Revenue          float64          `json:"revenue"`
	Conversions      float64          `json:"conversions"`
	ROAS             float64          `json:"roas"`
	CPA              float64          `json:"cpa"`
	MarginalROAS     float64          `json:"marginal_roas"`
	SaturationLevel  float64          `json:"saturation_level"`
	EfficiencyRating EfficiencyRating `json:"efficiency_rating"`
	RevenueShare     float64          `json:"revenue_share"`
	SpendShare       float64          `json:"spend_share"`
	ActiveDays       int              `json:"active_days"`
}

// ContributionAnalysis is the result of get_channel_contribution_analysis.
type ContributionAnalysis struct {
	Period       DateRange             `json:"period"`
	Channels     []ChannelContribution `json:"channels"`
	TotalSpend   float64               `json:"total_spend"`
	TotalRevenue float64               `json:"total_revenue"`
	OverallROAS  float64               `json:"overall_roas"`
	TopChannel   string                `json:"top_channel,omitempty"`
	Message      string                `json:"message,omitempty"`
}

// ChannelConstraint bounds a channel's recommended spend. Fixed wins over
// MinSpend and MaxSpend.
type ChannelConstraint struct {
	MinSpend *float64 `json:"min_spend,omitempty"`
	MaxSpend *float64 `json:"max_spend,omitempty"`
	Fixed    *float64 `json:"fixed,omitempty"`
}

// AllocationRecommendation proposes a channel's next-period spend.
type AllocationRecommendation struct {
	Channel          string  `json:"channel"`
	CurrentSpend     float64 `json:"current_spend"`
	RecommendedSpend float64 `json:"recommended_spend"`
	Change           float64 `json:"change"`
	ChangePercent    float64 `json:"change_percent"`
	ExpectedRevenue  float64 `json:"expected_revenue"`
	Score            float64 `json:"score"`
	Rationale        string  `json:"rationale"`
}

// BudgetOptimization is the result of get_budget_optimization.
type BudgetOptimization struct {
	Period           DateRange                  `json:"period"`
	Goal             OptimizationGoal           `json:"goal"`
	TotalBudget      float64                    `json:"total_budget"`
	AllocatedBudget  float64                    `json:"allocated_budget"`
	Recommendations  []AllocationRecommendation `json:"recommendations"`
	CurrentRevenue   float64                    `json:"current_revenue"`
	ProjectedRevenue float64                    `json:"projected_revenue"`
	ProjectedROAS    float64                    `json:"projected_roas"`
	Message          string                     `json:"message,omitempty"`
}

// ScenarioChannel is one channel's projection inside a scenario.
type ScenarioChannel struct {
	Channel          string  `json:"channel"`
	Spend            float64 `json:"spend"`
	ProjectedRevenue float64 `json:"projected_revenue"`
	ProjectedROAS    float64 `json:"projected_roas"`
}

// Scenario is the projection of one named spend map.
type Scenario struct {
	Name                 string            `json:"name"`
	TotalSpend           float64           `json:"total_spend"`
	ProjectedRevenue     float64           `json:"projected_revenue"`
	ProjectedROAS        float64           `json:"projected_roas"`
	RevenueChange        float64           `json:"revenue_change"`
	RevenueChangePercent float64           `json:"revenue_change_percent"`
	Channels             []ScenarioChannel `json:"channels"`
}

// ScenarioAnalysis is the result of get_scenario_analysis.
type ScenarioAnalysis struct {
	Period       DateRange  `json:"period"`
	Scenarios    []Scenario `json:"scenarios"`
	BestScenario string     `json:"best_scenario"`
	Message      string     `json:"message,omitempty"`
}

// SpendQuartile is one spend bucket of a channel's daily observations.
type SpendQuartile struct {
	Quartile   int     `json:"quartile"`
	Days       int     `json:"days"`
	MinSpend   float64 `json:"min_spend"`
	MaxSpend   float64 `json:"max_spend"`
	AvgSpend   float64 `json:"avg_spend"`
	AvgRevenue float64 `json:"avg_revenue"`
	ROAS       float64 `json:"roas"`
}

// DiminishingReturns is the result of get_diminishing_returns_analysis.
type DiminishingReturns struct {
	Period                DateRange       `json:"period"`
	Channel               string          `json:"channel"`
	Quartiles             []SpendQuartile `json:"quartiles"`
	EfficiencyDropPercent float64         `json:"efficiency_drop_percent"`
	SaturationLevel       float64         `json:"saturation_level"`
	RecommendedMinSpend   float64         `json:"recommended_min_daily_spend"`
	RecommendedMaxSpend   float64         `json:"recommended_max_daily_spend"`
	Message               string          `json:"message,omitempty"`
}
