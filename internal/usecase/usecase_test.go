package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OmniTrackIQ/internal/domain/models"
	domrepo "OmniTrackIQ/internal/domain/repository"
	"OmniTrackIQ/internal/service/cache"
	"OmniTrackIQ/internal/services/incrementality"
	pkgcache "OmniTrackIQ/pkg/cache"
)

// memLedger serves fixed rows, filtered by tenant and window like the SQL stores.
type memLedger struct {
	mu      sync.Mutex
	spend   []models.SpendRecord
	orders  []models.OrderRecord
	err     error
	queries []models.LedgerQuery
}

func (l *memLedger) record(q models.LedgerQuery) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queries = append(l.queries, q)
	return l.err
}

func (l *memLedger) SpendRows(_ context.Context, q models.LedgerQuery) ([]models.SpendRecord, error) {
	if err := l.record(q); err != nil {
		return nil, err
	}
	r := q.Range()
	var out []models.SpendRecord
	for _, s := range l.spend {
		if s.TenantID == q.TenantID && !s.Date.Before(r.From) && !s.Date.After(r.To) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (l *memLedger) OrderRows(_ context.Context, q models.LedgerQuery) ([]models.OrderRecord, error) {
	if err := l.record(q); err != nil {
		return nil, err
	}
	r := q.Range()
	until := r.To.AddDate(0, 0, 1)
	var out []models.OrderRecord
	for _, o := range l.orders {
		if o.TenantID == q.TenantID && !o.DateTime.Before(r.From) && o.DateTime.Before(until) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (l *memLedger) Health(context.Context) error { return l.err }
func (l *memLedger) Close() error                 { return nil }

func (l *memLedger) reads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queries)
}

var _ domrepo.Ledger = (*memLedger)(nil)

const tenant = "acme"

func may(d int) time.Time { return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC) }

// fixture: 28 days of steady meta and google spend and orders, with a revenue
// spike on May 28 driven by meta.
func fixture() *memLedger {
	l := &memLedger{}
	n := 0
	order := func(d int, source string, amount float64) {
		n++
		l.orders = append(l.orders, models.OrderRecord{
			TenantID:    tenant,
			OrderID:     fmt.Sprintf("o-%d", n),
			DateTime:    may(d).Add(12 * time.Hour),
			TotalAmount: amount,
			UTMSource:   source,
			CustomerID:  fmt.Sprintf("c-%d", n),
		})
	}
	for d := 1; d <= 28; d++ {
		l.spend = append(l.spend,
			models.SpendRecord{TenantID: tenant, Channel: "facebook", CampaignID: "fb-1", Date: may(d), Cost: 100, Clicks: 200, Impressions: 10000},
			models.SpendRecord{TenantID: tenant, Channel: "google", CampaignID: "g-1", Date: may(d), Cost: 50, Clicks: 100, Impressions: 5000},
		)
		order(d, "facebook", 100)
		order(d, "facebook", 100)
		order(d, "google", 100)
	}
	for i := 0; i < 10; i++ {
		order(28, "facebook", 100)
	}
	// another tenant's rows never leak
	l.orders = append(l.orders, models.OrderRecord{TenantID: "other", OrderID: "x", DateTime: may(28), TotalAmount: 1e6, UTMSource: "facebook"})
	return l
}

func newBase(t *testing.T, l domrepo.Ledger, withCache bool) *Base {
	t.Helper()
	var rc *cache.ResultCache
	if withCache {
		store, err := pkgcache.NewMemoryCache()
		require.NoError(t, err)
		rc = cache.NewResultCache(store, time.Minute, nil, nil)
	}
	return NewBase(l, rc, nil, nil, Config{MaxWindowDays: 366})
}

func TestDetectAnomaliesFindsSpikeAndCaches(t *testing.T) {
	l := fixture()
	uc := NewAnomalyUseCase(newBase(t, l, true), nil, nil)
	req := models.AnomalyRequest{DateFrom: "2024-05-01", DateTo: "2024-05-28", Metrics: "revenue"}

	report, err := uc.DetectAnomalies(context.Background(), tenant, req)
	require.NoError(t, err)
	require.NotEmpty(t, report.Anomalies)
	top := report.Anomalies[0]
	assert.Equal(t, models.MetricRevenue, top.Metric)
	assert.Equal(t, models.AnomalySpike, top.Type)
	assert.True(t, top.Date.Equal(may(28)))
	assert.Equal(t, 1300.0, top.Value)
	reads := l.reads()
	assert.Equal(t, 2, reads, "one spend and one order read")

	again, err := uc.DetectAnomalies(context.Background(), tenant, req)
	require.NoError(t, err)
	assert.Equal(t, reads, l.reads(), "served from cache")
	assert.Equal(t, report.Summary.Total, again.Summary.Total)
	assert.True(t, again.Anomalies[0].Date.Equal(may(28)))
}

func TestInvalidParametersNeverReadTheLedger(t *testing.T) {
	l := fixture()
	uc := NewAnomalyUseCase(newBase(t, l, false), nil, nil)
	ctx := context.Background()

	_, err := uc.DetectAnomalies(ctx, tenant, models.AnomalyRequest{DateFrom: "2024-05-01", DateTo: "2024-05-28", Metrics: "revenue,likes"})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
	_, err = uc.ExplainAnomaly(ctx, tenant, models.ExplainAnomalyRequest{DateFrom: "2024-05-01", DateTo: "2024-05-28", Date: "28/05/2024", Metric: "revenue"})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
	_, err = uc.MetricHealth(ctx, tenant, models.HealthRequest{DateFrom: "2022-01-01", DateTo: "2024-05-28"})
	assert.ErrorIs(t, err, models.ErrInvalidParameter, "window limit")
	assert.Equal(t, 0, l.reads())
}

func TestLedgerFailureIsUnavailable(t *testing.T) {
	l := fixture()
	l.err = errors.New("connection refused")
	uc := NewAnomalyUseCase(newBase(t, l, true), nil, nil)

	_, err := uc.Insights(context.Background(), tenant, models.InsightsRequest{DateFrom: "2024-05-01", DateTo: "2024-05-28"})
	assert.ErrorIs(t, err, domrepo.ErrLedgerUnavailable)
	assert.Equal(t, "ledger_unavailable", ErrorKind(err))

	// failures are not cached
	l.err = nil
	_, err = uc.Insights(context.Background(), tenant, models.InsightsRequest{DateFrom: "2024-05-01", DateTo: "2024-05-28"})
	assert.NoError(t, err)
}

func TestInvertedWindowIsEmpty(t *testing.T) {
	uc := NewAnomalyUseCase(newBase(t, fixture(), false), nil, nil)
	report, err := uc.DetectAnomalies(context.Background(), tenant, models.AnomalyRequest{DateFrom: "2024-05-28", DateTo: "2024-05-01"})
	require.NoError(t, err)
	assert.Empty(t, report.Anomalies)
	assert.NotEmpty(t, report.Message)
}

func TestExplainAnomalyBreaksDownByChannel(t *testing.T) {
	uc := NewAnomalyUseCase(newBase(t, fixture(), false), nil, nil)
	out, err := uc.ExplainAnomaly(context.Background(), tenant, models.ExplainAnomalyRequest{
		DateFrom: "2024-05-01", DateTo: "2024-05-28", Date: "2024-05-28", Metric: "revenue",
	})
	require.NoError(t, err)
	require.NotNil(t, out.Anomaly)
	require.NotEmpty(t, out.ChannelBreakdown)
	assert.Equal(t, "meta", out.ChannelBreakdown[0].Channel)
}

func TestHealthAlertsAndTrends(t *testing.T) {
	uc := NewAnomalyUseCase(newBase(t, fixture(), false), nil, nil)
	ctx := context.Background()

	health, err := uc.MetricHealth(ctx, tenant, models.HealthRequest{DateFrom: "2024-05-01", DateTo: "2024-05-28", Metrics: "spend,roas"})
	require.NoError(t, err)
	require.Len(t, health.Metrics, 2)
	assert.Equal(t, models.MetricSpend, health.Metrics[0].Metric)

	alerts, err := uc.PredictiveAlerts(ctx, tenant, models.AlertsRequest{DateFrom: "2024-05-01", DateTo: "2024-05-28", DaysAhead: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, alerts.DaysAhead)

	trends, err := uc.AnomalyTrends(ctx, tenant, models.AnomalyRequest{DateFrom: "2024-05-01", DateTo: "2024-05-28"})
	require.NoError(t, err)
	assert.NotEmpty(t, trends.Weeks)
}

func TestOverviewReportsSectionErrors(t *testing.T) {
	uc := NewAnomalyUseCase(newBase(t, fixture(), false), nil, nil)
	ctx := context.Background()

	out, err := uc.Overview(ctx, tenant, models.OverviewRequest{DateFrom: "2024-05-01", DateTo: "2024-05-28", Sensitivity: "extreme"})
	require.NoError(t, err)
	assert.Nil(t, out.Anomalies)
	assert.Contains(t, out.Errors["anomalies"], "sensitivity")
	assert.NotNil(t, out.Health)
	assert.NotNil(t, out.Insights)
	assert.NotNil(t, out.Alerts)

	l := fixture()
	l.err = errors.New("down")
	_, err = NewAnomalyUseCase(newBase(t, l, false), nil, nil).Overview(ctx, tenant, models.OverviewRequest{DateFrom: "2024-05-01", DateTo: "2024-05-28"})
	assert.ErrorIs(t, err, domrepo.ErrLedgerUnavailable)
}

func TestAttributionUsesLookbackHistory(t *testing.T) {
	l := &memLedger{orders: []models.OrderRecord{
		{TenantID: tenant, OrderID: "o1", CustomerID: "c1", DateTime: may(2), TotalAmount: 80, UTMSource: "google"},
		{TenantID: tenant, OrderID: "o2", CustomerID: "c1", DateTime: may(20), TotalAmount: 100, UTMSource: "facebook"},
	}}
	uc := NewAttributionUseCase(newBase(t, l, false), nil)

	report, err := uc.Report(context.Background(), tenant, models.AttributionRequest{DateFrom: "2024-05-15", DateTo: "2024-05-28", Model: "linear"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalOrders)
	assert.Equal(t, 100.0, report.TotalRevenue)
	credit := map[string]float64{}
	for _, c := range report.Channels {
		credit[c.Channel] = c.AttributedRevenue
	}
	assert.Equal(t, map[string]float64{"google_ads": 50, "meta": 50}, credit)

	l.mu.Lock()
	first := l.queries[0]
	l.mu.Unlock()
	assert.True(t, first.From.Equal(may(15).AddDate(0, 0, -30)), "history reaches back one lookback")

	short, err := uc.Report(context.Background(), tenant, models.AttributionRequest{DateFrom: "2024-05-15", DateTo: "2024-05-28", Model: "linear", LookbackDays: 7})
	require.NoError(t, err)
	require.Len(t, short.Channels, 1)
	assert.Equal(t, "meta", short.Channels[0].Channel)

	cmp, err := uc.CompareModels(context.Background(), tenant, models.CompareModelsRequest{DateFrom: "2024-05-15", DateTo: "2024-05-28"})
	require.NoError(t, err)
	assert.NotEmpty(t, cmp.Channels)
}

func TestMixOperations(t *testing.T) {
	uc := NewMixUseCase(newBase(t, fixture(), false), nil)
	ctx := context.Background()

	contrib, err := uc.Contribution(ctx, tenant, models.ContributionRequest{DateFrom: "2024-05-01", DateTo: "2024-05-28"})
	require.NoError(t, err)
	assert.Equal(t, "meta", contrib.TopChannel)

	limit := 500.0
	opt, err := uc.OptimizeBudget(ctx, tenant, models.OptimizeRequest{
		DateFrom: "2024-05-01", DateTo: "2024-05-28", TotalBudget: 3000, Goal: "balanced",
		Constraints: map[string]models.ChannelConstraint{"google": {MaxSpend: &limit}},
	})
	require.NoError(t, err)
	total := 0.0
	for _, r := range opt.Recommendations {
		total += r.RecommendedSpend
		if r.Channel == "google_ads" {
			assert.LessOrEqual(t, r.RecommendedSpend, limit)
		}
	}
	assert.LessOrEqual(t, total, 3000+1e-6)

	_, err = uc.OptimizeBudget(ctx, tenant, models.OptimizeRequest{DateFrom: "2024-05-01", DateTo: "2024-05-28", TotalBudget: 100, Goal: "win"})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	sc, err := uc.Scenarios(ctx, tenant, models.ScenarioRequest{
		DateFrom: "2024-05-01", DateTo: "2024-05-28",
		Scenarios: map[string]map[string]float64{"more_meta": {"facebook": 4000}},
	})
	require.NoError(t, err)
	require.Len(t, sc.Scenarios, 2)
	assert.Equal(t, "baseline", sc.Scenarios[0].Name)

	dr, err := uc.DiminishingReturns(ctx, tenant, models.DiminishingReturnsRequest{DateFrom: "2024-05-01", DateTo: "2024-05-28", Channel: "fb"})
	require.NoError(t, err)
	assert.Equal(t, "meta", dr.Channel)
	assert.Len(t, dr.Quartiles, 4)

	none, err := uc.DiminishingReturns(ctx, tenant, models.DiminishingReturnsRequest{DateFrom: "2024-05-01", DateTo: "2024-05-28", Channel: "snapchat"})
	require.NoError(t, err)
	assert.Empty(t, none.Quartiles)
	assert.NotEmpty(t, none.Message)
}

func TestIncrementalityDefaultsControlWindow(t *testing.T) {
	l := fixture()
	uc := NewIncrementalityUseCase(newBase(t, l, false), nil)
	ctx := context.Background()

	res, err := uc.Analyze(ctx, tenant, models.IncrementalityRequest{TestFrom: "2024-05-22", TestTo: "2024-05-28", Channel: "facebook"})
	require.NoError(t, err)
	assert.Equal(t, "meta", res.Channel)
	assert.Equal(t, 24.0, res.TestPeriod.Conversions)
	assert.Equal(t, 14.0, res.ControlPeriod.Conversions)
	assert.Greater(t, res.ConversionLiftPercent, 0.0)

	l.mu.Lock()
	q := l.queries[len(l.queries)-1]
	l.mu.Unlock()
	assert.True(t, q.From.Equal(may(15)), "one read covers the control window")
	assert.True(t, q.To.Equal(may(28)))

	_, err = uc.Analyze(ctx, tenant, models.IncrementalityRequest{TestFrom: "2024-05-22", TestTo: "2024-05-28", ControlFrom: "2024-05-01", Channel: "meta"})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	lift, err := uc.ConversionLift(ctx, tenant, models.LiftRequest{TestFrom: "2024-05-22", TestTo: "2024-05-28"})
	require.NoError(t, err)
	require.Len(t, lift.Channels, 2)
	assert.Equal(t, "meta", lift.Channels[0].Channel, "ordered by lift")

	base, err := uc.Baseline(ctx, tenant, models.BaselineRequest{DateFrom: "2024-05-01", DateTo: "2024-05-28"})
	require.NoError(t, err)
	assert.Len(t, base.Channels, 2)

	design, err := uc.HoldoutDesign(ctx, tenant, models.HoldoutDesignRequest{DateFrom: "2024-05-01", DateTo: "2024-05-28", Channel: "google"})
	require.NoError(t, err)
	assert.Equal(t, "google_ads", design.Channel)
	assert.GreaterOrEqual(t, design.RecommendedDurationDays, incrementality.MinTestDays)
}

func TestLedgerEventsHandlerInvalidatesTenant(t *testing.T) {
	l := fixture()
	base := newBase(t, l, true)
	uc := NewAnomalyUseCase(base, nil, nil)
	h := NewLedgerEventsHandler("ledger.changed", base.Cache(), nil, nil)
	ctx := context.Background()
	req := models.HealthRequest{DateFrom: "2024-05-01", DateTo: "2024-05-28"}

	_, err := uc.MetricHealth(ctx, tenant, req)
	require.NoError(t, err)
	_, err = uc.MetricHealth(ctx, tenant, req)
	require.NoError(t, err)
	assert.Equal(t, 2, l.reads())

	require.NoError(t, h.Handle(ctx, []byte(`{"tenant_id":"acme","ledger":"orders"}`)))
	_, err = uc.MetricHealth(ctx, tenant, req)
	require.NoError(t, err)
	assert.Equal(t, 4, l.reads(), "recomputed after invalidation")

	assert.NoError(t, h.Handle(ctx, []byte(`not json`)))
	assert.NoError(t, h.Handle(ctx, []byte(`{"ledger":"orders"}`)))
	assert.NoError(t, h.Handle(ctx, []byte(`{"tenant_id":"*"}`)))
	assert.Equal(t, "ledger.changed", h.Topic())
}
