package usecase

import (
	"context"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/services/aggregator"
	"OmniTrackIQ/internal/services/incrementality"
)

// IncrementalityUseCase compares test and control windows and designs
// holdout tests.
type IncrementalityUseCase struct {
	*Base
	analyzer *incrementality.Analyzer
}

func NewIncrementalityUseCase(base *Base, analyzer *incrementality.Analyzer) *IncrementalityUseCase {
	if analyzer == nil {
		analyzer = incrementality.NewAnalyzer()
	}
	return &IncrementalityUseCase{Base: base, analyzer: analyzer}
}

// windows resolves the test window and its control, which defaults to the
// preceding period of equal length.
func (uc *IncrementalityUseCase) windows(req testControl) (test, control models.DateRange, err error) {
	test, err = uc.window(req.testFrom, req.testTo)
	if err != nil {
		return
	}
	c, err := models.ParseOptionalWindow(req.controlFrom, req.controlTo)
	if err != nil {
		return
	}
	if c == nil {
		control = incrementality.ControlWindow(test)
	} else {
		control = *c
	}
	return
}

type testControl struct {
	testFrom, testTo, controlFrom, controlTo string
}

// covering spans both windows so one ledger read serves them.
func covering(a, b models.DateRange) models.DateRange {
	out := a
	if b.From.IsZero() || b.Days() == 0 {
		return out
	}
	if out.Days() == 0 {
		return b
	}
	if b.From.Before(out.From) {
		out.From = b.From
	}
	if b.To.After(out.To) {
		out.To = b.To
	}
	return out
}

func (uc *IncrementalityUseCase) Analyze(ctx context.Context, tenantID string, req models.IncrementalityRequest) (models.IncrementalityResult, error) {
	return run(ctx, uc.Base, tenantID, OpIncrementality, req, func(ctx context.Context) (models.IncrementalityResult, error) {
		test, control, err := uc.windows(testControl{req.TestFrom, req.TestTo, req.ControlFrom, req.ControlTo})
		if err != nil {
			return models.IncrementalityResult{}, err
		}
		r, err := uc.read(ctx, query(tenantID, covering(test, control), req.Channel))
		if err != nil {
			return models.IncrementalityResult{}, err
		}
		testPoints := aggregator.BuildDailySeries(query(tenantID, test, req.Channel), r.spend, r.orders)
		controlPoints := aggregator.BuildDailySeries(query(tenantID, control, req.Channel), r.spend, r.orders)
		return uc.analyzer.Analyze(
			models.NormalizeChannel(req.Channel),
			incrementality.Summarize(test, testPoints),
			incrementality.Summarize(control, controlPoints),
		), nil
	})
}

func (uc *IncrementalityUseCase) Baseline(ctx context.Context, tenantID string, req models.BaselineRequest) (models.BaselineReport, error) {
	return run(ctx, uc.Base, tenantID, OpBaselineConversions, req, func(ctx context.Context) (models.BaselineReport, error) {
		w, err := uc.window(req.DateFrom, req.DateTo)
		if err != nil {
			return models.BaselineReport{}, err
		}
		q := query(tenantID, w, req.Channel)
		r, err := uc.read(ctx, q)
		if err != nil {
			return models.BaselineReport{}, err
		}
		return uc.analyzer.Baseline(w, aggregator.BuildChannelSeries(q, r.spend, r.orders)), nil
	})
}

// HoldoutDesign sizes a holdout test from the channel's recent traffic.
func (uc *IncrementalityUseCase) HoldoutDesign(ctx context.Context, tenantID string, req models.HoldoutDesignRequest) (models.HoldoutTestDesign, error) {
	return run(ctx, uc.Base, tenantID, OpHoldoutDesign, req, func(ctx context.Context) (models.HoldoutTestDesign, error) {
		w, err := uc.window(req.DateFrom, req.DateTo)
		if err != nil {
			return models.HoldoutTestDesign{}, err
		}
		q := query(tenantID, w, req.Channel)
		r, err := uc.read(ctx, q)
		if err != nil {
			return models.HoldoutTestDesign{}, err
		}
		history := incrementality.Summarize(w, aggregator.BuildDailySeries(q, r.spend, r.orders))
		return uc.analyzer.HoldoutDesign(incrementality.HoldoutParams{
			Channel:           models.NormalizeChannel(req.Channel),
			MinDetectableLift: req.MinDetectableLift,
			Confidence:        req.Confidence,
			Power:             req.Power,
			HoldoutPercent:    req.HoldoutPercent,
		}, history)
	})
}

func (uc *IncrementalityUseCase) ConversionLift(ctx context.Context, tenantID string, req models.LiftRequest) (models.ConversionLiftAnalysis, error) {
	return run(ctx, uc.Base, tenantID, OpConversionLift, req, func(ctx context.Context) (models.ConversionLiftAnalysis, error) {
		test, control, err := uc.windows(testControl{req.TestFrom, req.TestTo, req.ControlFrom, req.ControlTo})
		if err != nil {
			return models.ConversionLiftAnalysis{}, err
		}
		r, err := uc.read(ctx, query(tenantID, covering(test, control), ""))
		if err != nil {
			return models.ConversionLiftAnalysis{}, err
		}
		testSeries := aggregator.BuildChannelSeries(query(tenantID, test, ""), r.spend, r.orders)
		controlSeries := aggregator.BuildChannelSeries(query(tenantID, control, ""), r.spend, r.orders)
		return uc.analyzer.Lift(test, control, testSeries, controlSeries), nil
	})
}
