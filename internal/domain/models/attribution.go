package models

import "time"

// Touchpoint is one tagged interaction preceding a conversion.
type Touchpoint struct {
	Channel   string    `json:"channel"`
	Campaign  string    `json:"campaign,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Synthetic bool      `json:"synthetic,omitempty"`
}

// ChannelAttribution is the per-channel roll-up of credited orders.
type ChannelAttribution struct {
	Channel               string  `json:"channel"`
	AttributedRevenue     float64 `json:"attributed_revenue"`
	AttributedConversions float64 `json:"attributed_conversions"`
	Spend                 float64 `json:"spend"`
	ROAS                  float64 `json:"roas"`
	CPA                   float64 `json:"cpa"`
	RevenueShare          float64 `json:"revenue_share"`
}

// CampaignAttribution is the per-campaign roll-up of credited orders.
type CampaignAttribution struct {
	Channel               string  `json:"channel"`
	Campaign              string  `json:"campaign"`
	AttributedRevenue     float64 `json:"attributed_revenue"`
	AttributedConversions float64 `json:"attributed_conversions"`
}

// AttributionReport is the result of get_attribution_report.
type AttributionReport struct {
	Period             DateRange             `json:"period"`
	Model              AttributionModel      `json:"model"`
	LookbackDays       int                   `json:"lookback_days"`
	Channels           []ChannelAttribution  `json:"channels"`
	Campaigns          []CampaignAttribution `json:"campaigns"`
	TotalRevenue       float64               `json:"total_revenue"`
	TotalOrders        int                   `json:"total_orders"`
	TotalSpend         float64               `json:"total_spend"`
	AverageTouchpoints float64               `json:"average_touchpoints"`
	Message            string                `json:"message,omitempty"`
}

// ModelCredit is one channel's credit under one model.
type ModelCredit struct {
	AttributedRevenue     float64 `json:"attributed_revenue"`
	AttributedConversions float64 `json:"attributed_conversions"`
	RevenueShare          float64 `json:"revenue_share"`
}

// ChannelModelComparison lists a channel's credit under each model.
type ChannelModelComparison struct {
	Channel       string                           `json:"channel"`
	Credits       map[AttributionModel]ModelCredit `json:"credits"`
	SpreadPercent float64                          `json:"spread_percent"`
}

// ModelComparison is the result of compare_attribution_models.
type ModelComparison struct {
	Period       DateRange                `json:"period"`
	Models       []AttributionModel       `json:"models"`
	Channels     []ChannelModelComparison `json:"channels"`
	TotalRevenue float64                  `json:"total_revenue"`
	TotalOrders  int                      `json:"total_orders"`
	Message      string                   `json:"message,omitempty"`
}
