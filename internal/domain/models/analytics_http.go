package models

import (
	"time"
)

// Requests for analytics HTTP endpoints. The tenant is resolved by middleware
// and never read from the payload.

type AnomalyRequest struct {
	DateFrom    string `query:"date_from" json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo      string `query:"date_to" json:"date_to" validate:"required,datetime=2006-01-02"`
	Channel     string `query:"channel" json:"channel" validate:"omitempty,max=64"`
	Sensitivity string `query:"sensitivity" json:"sensitivity" default:"medium" validate:"oneof=low medium high"`
	Metrics     string `query:"metrics" json:"metrics" validate:"omitempty,max=256"`
}

type ExplainAnomalyRequest struct {
	DateFrom    string `query:"date_from" json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo      string `query:"date_to" json:"date_to" validate:"required,datetime=2006-01-02"`
	Date        string `query:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Metric      string `query:"metric" json:"metric" validate:"required,oneof=spend revenue roas conversions orders clicks impressions ctr cpc cpa"`
	Sensitivity string `query:"sensitivity" json:"sensitivity" default:"medium" validate:"oneof=low medium high"`
}

type HealthRequest struct {
	DateFrom string `query:"date_from" json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo   string `query:"date_to" json:"date_to" validate:"required,datetime=2006-01-02"`
	Channel  string `query:"channel" json:"channel" validate:"omitempty,max=64"`
	Metrics  string `query:"metrics" json:"metrics" validate:"omitempty,max=256"`
}

type InsightsRequest struct {
	DateFrom string `query:"date_from" json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo   string `query:"date_to" json:"date_to" validate:"required,datetime=2006-01-02"`
	Channel  string `query:"channel" json:"channel" validate:"omitempty,max=64"`
}

type AlertsRequest struct {
	DateFrom  string `query:"date_from" json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo    string `query:"date_to" json:"date_to" validate:"required,datetime=2006-01-02"`
	Channel   string `query:"channel" json:"channel" validate:"omitempty,max=64"`
	DaysAhead int    `query:"days_ahead" json:"days_ahead" default:"7" validate:"gte=1,lte=30"`
}

type OverviewRequest struct {
	DateFrom    string `query:"date_from" json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo      string `query:"date_to" json:"date_to" validate:"required,datetime=2006-01-02"`
	Channel     string `query:"channel" json:"channel" validate:"omitempty,max=64"`
	Sensitivity string `query:"sensitivity" json:"sensitivity" default:"medium" validate:"oneof=low medium high"`
}

type AttributionRequest struct {
	DateFrom     string `query:"date_from" json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo       string `query:"date_to" json:"date_to" validate:"required,datetime=2006-01-02"`
	Channel      string `query:"channel" json:"channel" validate:"omitempty,max=64"`
	Model        string `query:"model" json:"model" default:"last_touch" validate:"oneof=first_touch last_touch linear time_decay position_based data_driven"`
	LookbackDays int    `query:"lookback_days" json:"lookback_days" validate:"omitempty,gte=1,lte=180"`
}

type CompareModelsRequest struct {
	DateFrom     string `query:"date_from" json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo       string `query:"date_to" json:"date_to" validate:"required,datetime=2006-01-02"`
	Channel      string `query:"channel" json:"channel" validate:"omitempty,max=64"`
	LookbackDays int    `query:"lookback_days" json:"lookback_days" validate:"omitempty,gte=1,lte=180"`
}

type ContributionRequest struct {
	DateFrom string `query:"date_from" json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo   string `query:"date_to" json:"date_to" validate:"required,datetime=2006-01-02"`
	Channel  string `query:"channel" json:"channel" validate:"omitempty,max=64"`
}

type OptimizeRequest struct {
	DateFrom    string                       `json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo      string                       `json:"date_to" validate:"required,datetime=2006-01-02"`
	TotalBudget float64                      `json:"total_budget" validate:"required,gt=0"`
	Goal        string                       `json:"goal" default:"balanced" validate:"oneof=maximize_revenue maximize_roas minimize_cpa balanced"`
	Constraints map[string]ChannelConstraint `json:"constraints"`
}

type ScenarioRequest struct {
	DateFrom  string                        `json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo    string                        `json:"date_to" validate:"required,datetime=2006-01-02"`
	Scenarios map[string]map[string]float64 `json:"scenarios" validate:"required,min=1,max=20"`
}

type DiminishingReturnsRequest struct {
	DateFrom string `query:"date_from" json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo   string `query:"date_to" json:"date_to" validate:"required,datetime=2006-01-02"`
	Channel  string `query:"channel" json:"channel" validate:"required,max=64"`
}

type IncrementalityRequest struct {
	TestFrom    string `query:"test_from" json:"test_from" validate:"required,datetime=2006-01-02"`
	TestTo      string `query:"test_to" json:"test_to" validate:"required,datetime=2006-01-02"`
	ControlFrom string `query:"control_from" json:"control_from" validate:"omitempty,datetime=2006-01-02"`
	ControlTo   string `query:"control_to" json:"control_to" validate:"omitempty,datetime=2006-01-02"`
	Channel     string `query:"channel" json:"channel" validate:"required,max=64"`
}

type BaselineRequest struct {
	DateFrom string `query:"date_from" json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo   string `query:"date_to" json:"date_to" validate:"required,datetime=2006-01-02"`
	Channel  string `query:"channel" json:"channel" validate:"omitempty,max=64"`
}

type HoldoutDesignRequest struct {
	DateFrom          string  `query:"date_from" json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo            string  `query:"date_to" json:"date_to" validate:"required,datetime=2006-01-02"`
	Channel           string  `query:"channel" json:"channel" validate:"required,max=64"`
	MinDetectableLift float64 `query:"mde" json:"mde" default:"0.1" validate:"gt=0,lte=2"`
	Confidence        int     `query:"confidence" json:"confidence" default:"95" validate:"oneof=90 95 99"`
	Power             int     `query:"power" json:"power" default:"80" validate:"oneof=80 90"`
	HoldoutPercent    float64 `query:"holdout_percent" json:"holdout_percent" default:"10" validate:"gt=0,lte=50"`
}

type LiftRequest struct {
	TestFrom    string `query:"test_from" json:"test_from" validate:"required,datetime=2006-01-02"`
	TestTo      string `query:"test_to" json:"test_to" validate:"required,datetime=2006-01-02"`
	ControlFrom string `query:"control_from" json:"control_from" validate:"omitempty,datetime=2006-01-02"`
	ControlTo   string `query:"control_to" json:"control_to" validate:"omitempty,datetime=2006-01-02"`
}

// ParseWindow converts validated date strings into a DateRange.
func ParseWindow(from, to string) (DateRange, error) {
	f, err := time.Parse(DateLayout, from)
	if err != nil {
		return DateRange{}, invalid("date_from: %v", err)
	}
	t, err := time.Parse(DateLayout, to)
	if err != nil {
		return DateRange{}, invalid("date_to: %v", err)
	}
	return DateRange{From: f, To: t}, nil
}

// ParseOptionalWindow returns nil when both bounds are empty.
func ParseOptionalWindow(from, to string) (*DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, invalid("control_from and control_to must be given together")
	}
	r, err := ParseWindow(from, to)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
