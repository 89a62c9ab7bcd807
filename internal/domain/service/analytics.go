package service

import (
	"OmniTrackIQ/internal/domain/models"
)

// MarginalResponseEstimator estimates the ROAS of the next unit of spend on a
// channel from its daily series. Implementations must be pure.
type MarginalResponseEstimator interface {
	EstimateMarginalResponse(series []models.DailyMetricPoint) float64
}

// SaturationEstimator scores how saturated a channel is, from 0 (none) to 100.
type SaturationEstimator interface {
	EstimateSaturation(series []models.DailyMetricPoint) float64
}

// MarginalResponseFunc adapts a plain function to MarginalResponseEstimator.
type MarginalResponseFunc func(series []models.DailyMetricPoint) float64

func (f MarginalResponseFunc) EstimateMarginalResponse(series []models.DailyMetricPoint) float64 {
	return f(series)
}

// SaturationFunc adapts a plain function to SaturationEstimator.
type SaturationFunc func(series []models.DailyMetricPoint) float64

func (f SaturationFunc) EstimateSaturation(series []models.DailyMetricPoint) float64 {
	return f(series)
}
