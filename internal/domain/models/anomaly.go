package models

import "time"

// Anomaly is a single flagged day for one metric.
type Anomaly struct {
	Date             time.Time   `json:"date"`
	Metric           Metric      `json:"metric"`
	Type             AnomalyType `json:"type"`
	Severity         Severity    `json:"severity"`
	Value            float64     `json:"value"`
	ExpectedValue    float64     `json:"expected_value"`
	ZScore           *float64    `json:"z_score,omitempty"`
	DeviationPercent float64     `json:"deviation_percent"`
	IsConcerning     bool        `json:"is_concerning"`
	Description      string      `json:"description"`
}

// AnomalySummary counts a report's anomalies.
type AnomalySummary struct {
	Total      int                 `json:"total"`
	Concerning int                 `json:"concerning"`
	BySeverity map[Severity]int    `json:"by_severity"`
	ByMetric   map[Metric]int      `json:"by_metric"`
	ByType     map[AnomalyType]int `json:"by_type"`
}

// AnomalyReport is the result of detect_anomalies.
type AnomalyReport struct {
	Period      DateRange      `json:"period"`
	Channel     string         `json:"channel,omitempty"`
	Sensitivity Sensitivity    `json:"sensitivity"`
	Threshold   float64        `json:"threshold"`
	Anomalies   []Anomaly      `json:"anomalies"`
	Summary     AnomalySummary `json:"summary"`
	Message     string         `json:"message,omitempty"`
}

// WeeklyAnomalyCount groups anomalies by ISO week.
type WeeklyAnomalyCount struct {
	WeekStart  time.Time `json:"week_start"`
	Total      int       `json:"total"`
	Spikes     int       `json:"spikes"`
	Drops      int       `json:"drops"`
	ZeroValues int       `json:"zero_values"`
	Concerning int       `json:"concerning"`
}

// MetricCount pairs a metric with an anomaly count.
type MetricCount struct {
	Metric Metric `json:"metric"`
	Count  int    `json:"count"`
}

// AnomalyTrends is the result of get_anomaly_trends.
type AnomalyTrends struct {
	Period              DateRange            `json:"period"`
	Weeks               []WeeklyAnomalyCount `json:"weeks"`
	MostAffectedMetrics []MetricCount        `json:"most_affected_metrics"`
	TotalAnomalies      int                  `json:"total_anomalies"`
	Direction           string               `json:"direction"`
	Message             string               `json:"message,omitempty"`
}

// ChannelDeviation is one channel's share of an anomalous movement.
type ChannelDeviation struct {
	Channel          string  `json:"channel"`
	Value            float64 `json:"value"`
	ExpectedValue    float64 `json:"expected_value"`
	Change           float64 `json:"change"`
	ChangePercent    float64 `json:"change_percent"`
	ShareOfDeviation float64 `json:"share_of_deviation"`
}

// RelatedMovement is a same-day change in another metric.
type RelatedMovement struct {
	Metric        Metric  `json:"metric"`
	Value         float64 `json:"value"`
	ExpectedValue float64 `json:"expected_value"`
	ChangePercent float64 `json:"change_percent"`
}

// AnomalyExplanation is the result of explain_anomaly.
type AnomalyExplanation struct {
	Date             time.Time          `json:"date"`
	Metric           Metric             `json:"metric"`
	Anomaly          *Anomaly           `json:"anomaly,omitempty"`
	ChannelBreakdown []ChannelDeviation `json:"channel_breakdown"`
	RelatedMetrics   []RelatedMovement  `json:"related_metrics"`
	ProbableCauses   []string           `json:"probable_causes"`
	Message          string             `json:"message,omitempty"`
}
