package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/services/aggregator"
	"OmniTrackIQ/internal/services/anomaly"
	"OmniTrackIQ/internal/services/forecast"
)

// AnomalyUseCase serves anomaly detection and the trend reports built on it.
type AnomalyUseCase struct {
	*Base
	detector *anomaly.Detector
	forecast *forecast.Engine
}

func NewAnomalyUseCase(base *Base, detector *anomaly.Detector, fc *forecast.Engine) *AnomalyUseCase {
	if detector == nil {
		detector = anomaly.NewDetector()
	}
	if fc == nil {
		fc = forecast.NewEngine(detector)
	}
	return &AnomalyUseCase{Base: base, detector: detector, forecast: fc}
}

// series reads the window and returns the dense daily series of q.
func (uc *AnomalyUseCase) series(ctx context.Context, q models.LedgerQuery) ([]models.DailyMetricPoint, rows, error) {
	r, err := uc.read(ctx, q)
	if err != nil {
		return nil, rows{}, err
	}
	return aggregator.BuildDailySeries(q, r.spend, r.orders), r, nil
}

func (uc *AnomalyUseCase) DetectAnomalies(ctx context.Context, tenantID string, req models.AnomalyRequest) (models.AnomalyReport, error) {
	return run(ctx, uc.Base, tenantID, OpDetectAnomalies, req, func(ctx context.Context) (models.AnomalyReport, error) {
		w, err := uc.window(req.DateFrom, req.DateTo)
		if err != nil {
			return models.AnomalyReport{}, err
		}
		metrics, err := models.ParseMetrics(req.Metrics)
		if err != nil {
			return models.AnomalyReport{}, err
		}
		sens, err := models.ParseSensitivity(req.Sensitivity)
		if err != nil {
			return models.AnomalyReport{}, err
		}
		series, _, err := uc.series(ctx, query(tenantID, w, req.Channel))
		if err != nil {
			return models.AnomalyReport{}, err
		}
		return uc.detector.Detect(series, metrics, sens), nil
	})
}

func (uc *AnomalyUseCase) AnomalyTrends(ctx context.Context, tenantID string, req models.AnomalyRequest) (models.AnomalyTrends, error) {
	return run(ctx, uc.Base, tenantID, OpAnomalyTrends, req, func(ctx context.Context) (models.AnomalyTrends, error) {
		w, err := uc.window(req.DateFrom, req.DateTo)
		if err != nil {
			return models.AnomalyTrends{}, err
		}
		metrics, err := models.ParseMetrics(req.Metrics)
		if err != nil {
			return models.AnomalyTrends{}, err
		}
		sens, err := models.ParseSensitivity(req.Sensitivity)
		if err != nil {
			return models.AnomalyTrends{}, err
		}
		series, _, err := uc.series(ctx, query(tenantID, w, req.Channel))
		if err != nil {
			return models.AnomalyTrends{}, err
		}
		return uc.detector.Trends(series, metrics, sens), nil
	})
}

// ExplainAnomaly breaks one (date, metric) point down by channel.
func (uc *AnomalyUseCase) ExplainAnomaly(ctx context.Context, tenantID string, req models.ExplainAnomalyRequest) (models.AnomalyExplanation, error) {
	return run(ctx, uc.Base, tenantID, OpExplainAnomaly, req, func(ctx context.Context) (models.AnomalyExplanation, error) {
		w, err := uc.window(req.DateFrom, req.DateTo)
		if err != nil {
			return models.AnomalyExplanation{}, err
		}
		date, err := time.Parse(models.DateLayout, req.Date)
		if err != nil {
			return models.AnomalyExplanation{}, fmt.Errorf("%w: date: %v", models.ErrInvalidParameter, err)
		}
		m, err := models.ParseMetric(req.Metric)
		if err != nil {
			return models.AnomalyExplanation{}, err
		}
		sens, err := models.ParseSensitivity(req.Sensitivity)
		if err != nil {
			return models.AnomalyExplanation{}, err
		}
		q := query(tenantID, w, "")
		series, r, err := uc.series(ctx, q)
		if err != nil {
			return models.AnomalyExplanation{}, err
		}
		channels := aggregator.BuildChannelSeries(q, r.spend, r.orders)
		return uc.detector.Explain(series, channels, date, m, sens), nil
	})
}

func (uc *AnomalyUseCase) MetricHealth(ctx context.Context, tenantID string, req models.HealthRequest) (models.HealthReport, error) {
	return run(ctx, uc.Base, tenantID, OpMetricHealth, req, func(ctx context.Context) (models.HealthReport, error) {
		w, err := uc.window(req.DateFrom, req.DateTo)
		if err != nil {
			return models.HealthReport{}, err
		}
		metrics, err := models.ParseMetrics(req.Metrics)
		if err != nil {
			return models.HealthReport{}, err
		}
		series, _, err := uc.series(ctx, query(tenantID, w, req.Channel))
		if err != nil {
			return models.HealthReport{}, err
		}
		return uc.forecast.Health(series, metrics), nil
	})
}

func (uc *AnomalyUseCase) Insights(ctx context.Context, tenantID string, req models.InsightsRequest) (models.InsightReport, error) {
	return run(ctx, uc.Base, tenantID, OpInsights, req, func(ctx context.Context) (models.InsightReport, error) {
		w, err := uc.window(req.DateFrom, req.DateTo)
		if err != nil {
			return models.InsightReport{}, err
		}
		q := query(tenantID, w, req.Channel)
		series, r, err := uc.series(ctx, q)
		if err != nil {
			return models.InsightReport{}, err
		}
		return uc.forecast.Insights(series, aggregator.BuildChannelSeries(q, r.spend, r.orders)), nil
	})
}

func (uc *AnomalyUseCase) PredictiveAlerts(ctx context.Context, tenantID string, req models.AlertsRequest) (models.AlertReport, error) {
	return run(ctx, uc.Base, tenantID, OpPredictiveAlerts, req, func(ctx context.Context) (models.AlertReport, error) {
		w, err := uc.window(req.DateFrom, req.DateTo)
		if err != nil {
			return models.AlertReport{}, err
		}
		series, _, err := uc.series(ctx, query(tenantID, w, req.Channel))
		if err != nil {
			return models.AlertReport{}, err
		}
		return uc.forecast.Alerts(series, req.DaysAhead), nil
	})
}

// Overview runs the four monitoring reports concurrently. A failing section
// is reported under Errors and leaves the others intact.
func (uc *AnomalyUseCase) Overview(ctx context.Context, tenantID string, req models.OverviewRequest) (models.Overview, error) {
	w, err := uc.window(req.DateFrom, req.DateTo)
	if err != nil {
		return models.Overview{}, err
	}
	out := models.Overview{Period: w}

	var (
		mu       sync.Mutex
		firstErr error
	)
	fail := func(section string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
		if out.Errors == nil {
			out.Errors = make(map[string]string)
		}
		out.Errors[section] = err.Error()
	}

	var g errgroup.Group
	g.Go(func() error {
		r, err := uc.DetectAnomalies(ctx, tenantID, models.AnomalyRequest{
			DateFrom: req.DateFrom, DateTo: req.DateTo, Channel: req.Channel, Sensitivity: req.Sensitivity,
		})
		if err != nil {
			fail("anomalies", err)
			return nil
		}
		out.Anomalies = &r
		return nil
	})
	g.Go(func() error {
		r, err := uc.MetricHealth(ctx, tenantID, models.HealthRequest{
			DateFrom: req.DateFrom, DateTo: req.DateTo, Channel: req.Channel,
		})
		if err != nil {
			fail("health", err)
			return nil
		}
		out.Health = &r
		return nil
	})
	g.Go(func() error {
		r, err := uc.Insights(ctx, tenantID, models.InsightsRequest{
			DateFrom: req.DateFrom, DateTo: req.DateTo, Channel: req.Channel,
		})
		if err != nil {
			fail("insights", err)
			return nil
		}
		out.Insights = &r
		return nil
	})
	g.Go(func() error {
		r, err := uc.PredictiveAlerts(ctx, tenantID, models.AlertsRequest{
			DateFrom: req.DateFrom, DateTo: req.DateTo, Channel: req.Channel, DaysAhead: forecast.ShortWindow,
		})
		if err != nil {
			fail("alerts", err)
			return nil
		}
		out.Alerts = &r
		return nil
	})
	_ = g.Wait()

	// nothing to show when every section failed
	if len(out.Errors) == 4 {
		return models.Overview{}, firstErr
	}
	return out, nil
}
