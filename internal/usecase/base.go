package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"OmniTrackIQ/internal/domain/models"
	domrepo "OmniTrackIQ/internal/domain/repository"
	"OmniTrackIQ/internal/service/cache"
	applogger "OmniTrackIQ/pkg/logger"
)

// Operation names, shared by cache keys, metrics and spans.
const (
	OpDetectAnomalies     = "detect_anomalies"
	OpAnomalyTrends       = "get_anomaly_trends"
	OpExplainAnomaly      = "explain_anomaly"
	OpMetricHealth        = "get_metric_health"
	OpInsights            = "generate_insights"
	OpPredictiveAlerts    = "get_predictive_alerts"
	OpOverview            = "get_overview"
	OpAttributionReport   = "get_attribution_report"
	OpCompareModels       = "compare_attribution_models"
	OpChannelContribution = "get_channel_contribution_analysis"
	OpBudgetOptimization  = "get_budget_optimization"
	OpScenarioAnalysis    = "get_scenario_analysis"
	OpDiminishingReturns  = "get_diminishing_returns_analysis"
	OpIncrementality      = "analyze_incrementality"
	OpBaselineConversions = "estimate_baseline_conversions"
	OpHoldoutDesign       = "get_holdout_test_design"
	OpConversionLift      = "get_conversion_lift_analysis"
)

const tracerName = "OmniTrackIQ/internal/usecase"

// Config bounds the work one request may ask for.
type Config struct {
	MaxWindowDays int
}

// Base holds the collaborators every analytics use case shares.
type Base struct {
	ledger  domrepo.Ledger
	cache   *cache.ResultCache
	metrics domrepo.Metrics
	log     *applogger.Logger
	tracer  trace.Tracer
	cfg     Config
}

func NewBase(ledger domrepo.Ledger, rc *cache.ResultCache, metrics domrepo.Metrics, log *applogger.Logger, cfg Config) *Base {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &Base{
		ledger:  ledger,
		cache:   rc,
		metrics: metrics,
		log:     log,
		tracer:  otel.Tracer(tracerName),
		cfg:     cfg,
	}
}

// Cache exposes the result cache for invalidation.
func (b *Base) Cache() *cache.ResultCache { return b.cache }

// rows is one read of both ledgers.
type rows struct {
	spend  []models.SpendRecord
	orders []models.OrderRecord
}

// read loads both ledgers for q concurrently. Failures surface as
// ErrLedgerUnavailable unless the query itself was invalid.
func (b *Base) read(ctx context.Context, q models.LedgerQuery) (rows, error) {
	ctx, span := b.tracer.Start(ctx, "ledger.read", trace.WithAttributes(
		attribute.String("tenant", q.TenantID),
		attribute.String("from", q.From.Format(models.DateLayout)),
		attribute.String("to", q.To.Format(models.DateLayout)),
	))
	defer span.End()

	var out rows
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := b.ledger.SpendRows(gctx, q)
		if err != nil {
			return err
		}
		out.spend = r
		return nil
	})
	g.Go(func() error {
		r, err := b.ledger.OrderRows(gctx, q)
		if err != nil {
			return err
		}
		out.orders = r
		return nil
	})
	if err := g.Wait(); err != nil {
		if !errors.Is(err, domrepo.ErrLedgerUnavailable) && !errors.Is(err, models.ErrInvalidParameter) {
			err = fmt.Errorf("%w: %w", domrepo.ErrLedgerUnavailable, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger read failed")
		b.log.Error("ledger read failed",
			applogger.String("tenant", q.TenantID),
			applogger.Error(err),
		)
		return rows{}, err
	}

	b.metrics.RecordLedgerRows("spend", len(out.spend))
	b.metrics.RecordLedgerRows("orders", len(out.orders))
	span.SetAttributes(
		attribute.Int("spend_rows", len(out.spend)),
		attribute.Int("order_rows", len(out.orders)),
	)
	b.log.Debug("ledger read",
		applogger.String("tenant", q.TenantID),
		applogger.Int("spend_rows", len(out.spend)),
		applogger.Int("order_rows", len(out.orders)),
	)
	return out, nil
}

// window parses and bounds a request window.
func (b *Base) window(from, to string) (models.DateRange, error) {
	r, err := models.ParseWindow(from, to)
	if err != nil {
		return models.DateRange{}, err
	}
	if b.cfg.MaxWindowDays > 0 && r.Days() > b.cfg.MaxWindowDays {
		return models.DateRange{}, fmt.Errorf("%w: window of %d days exceeds the limit of %d",
			models.ErrInvalidParameter, r.Days(), b.cfg.MaxWindowDays)
	}
	return r, nil
}

// run executes one operation through the result cache with a span, latency
// and error accounting around it.
func run[T any](ctx context.Context, b *Base, tenantID, op string, params any, compute func(context.Context) (T, error)) (T, error) {
	ctx, span := b.tracer.Start(ctx, "analytics."+op, trace.WithAttributes(
		attribute.String("tenant", tenantID),
		attribute.String("operation", op),
	))
	defer span.End()

	start := time.Now()
	out, err := cache.Fetch(ctx, b.cache, tenantID, op, params, compute)
	b.metrics.RecordLatency(op, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.metrics.RecordError(ErrorKind(err))
	}
	return out, err
}

// ErrorKind classifies err for metrics and HTTP mapping.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidParameter):
		return "invalid_parameter"
	case errors.Is(err, domrepo.ErrLedgerUnavailable):
		return "ledger_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "internal"
}

func query(tenantID string, r models.DateRange, channel string) models.LedgerQuery {
	return models.LedgerQuery{TenantID: tenantID, From: r.From, To: r.To, Channel: channel}
}

type nopMetrics struct{}

func (nopMetrics) RecordLatency(string, float64)  {}
func (nopMetrics) RecordError(string)             {}
func (nopMetrics) RecordLedgerRows(string, int)   {}
func (nopMetrics) RecordCacheResult(string, bool) {}
func (nopMetrics) RecordInvalidation(string)      {}
