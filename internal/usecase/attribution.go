package usecase

import (
	"context"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/services/aggregator"
	"OmniTrackIQ/internal/services/attribution"
)

// AttributionUseCase credits order revenue to channels.
type AttributionUseCase struct {
	*Base
	engine *attribution.Engine
}

func NewAttributionUseCase(base *Base, engine *attribution.Engine) *AttributionUseCase {
	if engine == nil {
		engine = attribution.NewEngine(0)
	}
	return &AttributionUseCase{Base: base, engine: engine}
}

// input reads the window plus the lookback history its orders need.
func (uc *AttributionUseCase) input(ctx context.Context, tenantID, from, to, channel string, lookback int) (attribution.Input, error) {
	w, err := uc.window(from, to)
	if err != nil {
		return attribution.Input{}, err
	}
	if lookback <= 0 {
		lookback = uc.engine.LookbackDays()
	}

	q := query(tenantID, w, channel)
	histQ := q
	histQ.From = attribution.HistoryFrom(w.From, lookback)
	if w.To.Before(w.From) {
		histQ.From = w.From
	}
	r, err := uc.read(ctx, histQ)
	if err != nil {
		return attribution.Input{}, err
	}

	until := w.To.AddDate(0, 0, 1)
	orders := make([]models.OrderRecord, 0, len(r.orders))
	for _, o := range r.orders {
		if !o.DateTime.Before(w.From) && o.DateTime.Before(until) {
			orders = append(orders, o)
		}
	}
	return attribution.Input{
		Period:       w,
		Orders:       orders,
		History:      r.orders,
		Spend:        aggregator.SpendByChannel(q, r.spend),
		LookbackDays: lookback,
		Channel:      channel,
	}, nil
}

func (uc *AttributionUseCase) Report(ctx context.Context, tenantID string, req models.AttributionRequest) (models.AttributionReport, error) {
	return run(ctx, uc.Base, tenantID, OpAttributionReport, req, func(ctx context.Context) (models.AttributionReport, error) {
		model, err := models.ParseAttributionModel(req.Model)
		if err != nil {
			return models.AttributionReport{}, err
		}
		in, err := uc.input(ctx, tenantID, req.DateFrom, req.DateTo, req.Channel, req.LookbackDays)
		if err != nil {
			return models.AttributionReport{}, err
		}
		return uc.engine.Report(in, model), nil
	})
}

func (uc *AttributionUseCase) CompareModels(ctx context.Context, tenantID string, req models.CompareModelsRequest) (models.ModelComparison, error) {
	return run(ctx, uc.Base, tenantID, OpCompareModels, req, func(ctx context.Context) (models.ModelComparison, error) {
		in, err := uc.input(ctx, tenantID, req.DateFrom, req.DateTo, req.Channel, req.LookbackDays)
		if err != nil {
			return models.ModelComparison{}, err
		}
		return uc.engine.Compare(in), nil
	})
}
