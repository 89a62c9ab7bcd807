package models

import "time"

// HealthStatus grades a metric's recent behaviour.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// MetricHealth summarises one metric over the trailing weeks.
type MetricHealth struct {
	Metric          Metric       `json:"metric"`
	CurrentValue    float64      `json:"current_value"`
	PreviousValue   float64      `json:"previous_value"`
	ChangePercent   float64      `json:"change_percent"`
	TrendPercent    float64      `json:"trend_percent"`
	RecentAnomalies int          `json:"recent_anomalies"`
	Status          HealthStatus `json:"status"`
	HealthScore     int          `json:"health_score"`
	Smoothed        []float64    `json:"smoothed"`
}

// HealthReport is the result of get_metric_health.
type HealthReport struct {
	Period       DateRange      `json:"period"`
	Channel      string         `json:"channel,omitempty"`
	OverallScore int            `json:"overall_score"`
	Status       HealthStatus   `json:"status"`
	Metrics      []MetricHealth `json:"metrics"`
	Message      string         `json:"message,omitempty"`
}

// ForecastPoint is one projected day.
type ForecastPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// InsightType categorises generated insights.
type InsightType string

const (
	InsightTrend       InsightType = "trend"
	InsightCorrelation InsightType = "correlation"
	InsightForecast    InsightType = "forecast"
	InsightChannel     InsightType = "channel_performance"
	InsightBudgetShift InsightType = "budget_shift"
)

// Insight is a single human-readable finding.
type Insight struct {
	Type           InsightType `json:"type"`
	Priority       Severity    `json:"priority"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Metric         Metric      `json:"metric,omitempty"`
	Channel        string      `json:"channel,omitempty"`
	Value          float64     `json:"value"`
	Recommendation string      `json:"recommendation,omitempty"`
}

// InsightReport is the result of generate_insights.
type InsightReport struct {
	Period   DateRange       `json:"period"`
	Insights []Insight       `json:"insights"`
	Forecast []ForecastPoint `json:"forecast,omitempty"`
	Sections []string        `json:"sections"`
	Message  string          `json:"message,omitempty"`
}

// PredictiveAlert is a forward-looking risk on one metric.
type PredictiveAlert struct {
	Metric                Metric   `json:"metric"`
	RiskLevel             Severity `json:"risk_level"`
	Trend7d               float64  `json:"trend_7d"`
	Trend14d              float64  `json:"trend_14d"`
	Accelerating          bool     `json:"accelerating"`
	CurrentValue          float64  `json:"current_value"`
	ForecastValue         float64  `json:"forecast_value"`
	ForecastChangePercent float64  `json:"forecast_change_percent"`
	Message               string   `json:"message"`
	Recommendation        string   `json:"recommendation"`
}

// AlertReport is the result of get_predictive_alerts.
type AlertReport struct {
	Period    DateRange         `json:"period"`
	DaysAhead int               `json:"days_ahead"`
	Alerts    []PredictiveAlert `json:"alerts"`
	Message   string            `json:"message,omitempty"`
}

// Overview combines the monitoring reports of one window.
type Overview struct {
	Period    DateRange         `json:"period"`
	Anomalies *AnomalyReport    `json:"anomalies,omitempty"`
	Health    *HealthReport     `json:"health,omitempty"`
	Insights  *InsightReport    `json:"insights,omitempty"`
	Alerts    *AlertReport      `json:"alerts,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}
