package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"OmniTrackIQ/internal/domain/models"
	domrepo "OmniTrackIQ/internal/domain/repository"
	"OmniTrackIQ/internal/service/metrics"
	"OmniTrackIQ/internal/usecase"
	xhttp "OmniTrackIQ/pkg/http"
	"OmniTrackIQ/pkg/http/middleware"
	xlogger "OmniTrackIQ/pkg/logger"
)

const basePath = "/api/v1/analytics"

// AnalyticsHandler exposes the analytics use cases over Echo.
type AnalyticsHandler struct {
	logger         *xlogger.Logger
	anomalies      *usecase.AnomalyUseCase
	attribution    *usecase.AttributionUseCase
	mix            *usecase.MixUseCase
	incrementality *usecase.IncrementalityUseCase
	limiter        middleware.Allower
}

func NewAnalyticsHandler(
	logger *xlogger.Logger,
	anomalies *usecase.AnomalyUseCase,
	attribution *usecase.AttributionUseCase,
	mix *usecase.MixUseCase,
	incrementality *usecase.IncrementalityUseCase,
	limiter middleware.Allower,
) *AnalyticsHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &AnalyticsHandler{
		logger:         logger,
		anomalies:      anomalies,
		attribution:    attribution,
		mix:            mix,
		incrementality: incrementality,
		limiter:        limiter,
	}
}

func (h *AnalyticsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group(basePath, middleware.Tenant())
	if h.limiter != nil {
		g.Use(middleware.RateLimit(h.limiter, func(route string) {
			metrics.RateLimited.WithLabelValues(route).Inc()
		}))
	}

	g.GET("/anomalies", serve(h, usecase.OpDetectAnomalies, h.anomalies.DetectAnomalies))
	g.GET("/anomalies/trends", serve(h, usecase.OpAnomalyTrends, h.anomalies.AnomalyTrends))
	g.GET("/anomalies/explain", serve(h, usecase.OpExplainAnomaly, h.anomalies.ExplainAnomaly))
	g.GET("/health", serve(h, usecase.OpMetricHealth, h.anomalies.MetricHealth))
	g.GET("/insights", serve(h, usecase.OpInsights, h.anomalies.Insights))
	g.GET("/alerts", serve(h, usecase.OpPredictiveAlerts, h.anomalies.PredictiveAlerts))
	g.GET("/overview", serve(h, usecase.OpOverview, h.anomalies.Overview))

	g.GET("/attribution", serve(h, usecase.OpAttributionReport, h.attribution.Report))
	g.GET("/attribution/compare", serve(h, usecase.OpCompareModels, h.attribution.CompareModels))

	g.GET("/mmm/contribution", serve(h, usecase.OpChannelContribution, h.mix.Contribution))
	g.POST("/mmm/optimize", serve(h, usecase.OpBudgetOptimization, h.mix.OptimizeBudget))
	g.POST("/mmm/scenarios", serve(h, usecase.OpScenarioAnalysis, h.mix.Scenarios))
	g.GET("/mmm/diminishing-returns", serve(h, usecase.OpDiminishingReturns, h.mix.DiminishingReturns))

	g.GET("/incrementality", serve(h, usecase.OpIncrementality, h.incrementality.Analyze))
	g.GET("/incrementality/baseline", serve(h, usecase.OpBaselineConversions, h.incrementality.Baseline))
	g.GET("/incrementality/holdout-design", serve(h, usecase.OpHoldoutDesign, h.incrementality.HoldoutDesign))
	g.GET("/incrementality/lift", serve(h, usecase.OpConversionLift, h.incrementality.ConversionLift))
}

// serve binds and validates Req, runs call for the request's tenant and
// writes the envelope.
func serve[Req, Res any](h *AnalyticsHandler, endpoint string, call func(context.Context, string, Req) (Res, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		status := http.StatusOK
		defer func() { metrics.Observe(endpoint, start, status) }()

		req := new(Req)
		if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
			status = http.StatusBadRequest
			return xhttp.BadRequestResponse(c, verr)
		}

		tenantID := middleware.GetTenantID(c)
		res, err := call(c.Request().Context(), tenantID, *req)
		if err != nil {
			appErr := toAppError(err)
			status = appErr.Status
			if status >= http.StatusInternalServerError {
				h.logger.Error("analytics request failed",
					xlogger.String("endpoint", endpoint),
					xlogger.String("tenant", tenantID),
					xlogger.Error(err),
				)
			} else {
				h.logger.Debug("analytics request rejected",
					xlogger.String("endpoint", endpoint),
					xlogger.String("tenant", tenantID),
					xlogger.Error(err),
				)
			}
			return xhttp.AppErrorResponse(c, appErr)
		}
		if c.Request().Method == http.MethodGet {
			c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
		}
		return xhttp.SuccessResponse(c, res)
	}
}

// toAppError maps use case errors onto HTTP statuses.
func toAppError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrInvalidParameter):
		return xhttp.NewAppError("ERR_INVALID_PARAMETER", "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, domrepo.ErrLedgerUnavailable):
		return xhttp.ServiceUnavailableError("analytics data is temporarily unavailable").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "analytics request timed out", http.StatusGatewayTimeout).WithError(err)
	}
	return xhttp.InternalError("analytics computation failed").WithError(err)
}
