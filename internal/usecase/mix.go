package usecase

import (
	"context"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/services/aggregator"
	"OmniTrackIQ/internal/services/mmm"
)

// MixUseCase serves the media-mix reports: contribution, budget allocation,
// scenarios and diminishing returns.
type MixUseCase struct {
	*Base
	optimizer *mmm.Optimizer
}

func NewMixUseCase(base *Base, optimizer *mmm.Optimizer) *MixUseCase {
	if optimizer == nil {
		optimizer = mmm.NewOptimizer()
	}
	return &MixUseCase{Base: base, optimizer: optimizer}
}

func (uc *MixUseCase) channels(ctx context.Context, tenantID, from, to, channel string) (models.DateRange, []models.ChannelSeries, error) {
	w, err := uc.window(from, to)
	if err != nil {
		return models.DateRange{}, nil, err
	}
	q := query(tenantID, w, channel)
	r, err := uc.read(ctx, q)
	if err != nil {
		return models.DateRange{}, nil, err
	}
	return w, aggregator.BuildChannelSeries(q, r.spend, r.orders), nil
}

func (uc *MixUseCase) Contribution(ctx context.Context, tenantID string, req models.ContributionRequest) (models.ContributionAnalysis, error) {
	return run(ctx, uc.Base, tenantID, OpChannelContribution, req, func(ctx context.Context) (models.ContributionAnalysis, error) {
		w, channels, err := uc.channels(ctx, tenantID, req.DateFrom, req.DateTo, req.Channel)
		if err != nil {
			return models.ContributionAnalysis{}, err
		}
		return uc.optimizer.Contribution(w, channels), nil
	})
}

func (uc *MixUseCase) OptimizeBudget(ctx context.Context, tenantID string, req models.OptimizeRequest) (models.BudgetOptimization, error) {
	return run(ctx, uc.Base, tenantID, OpBudgetOptimization, req, func(ctx context.Context) (models.BudgetOptimization, error) {
		goal, err := models.ParseOptimizationGoal(req.Goal)
		if err != nil {
			return models.BudgetOptimization{}, err
		}
		w, channels, err := uc.channels(ctx, tenantID, req.DateFrom, req.DateTo, "")
		if err != nil {
			return models.BudgetOptimization{}, err
		}
		return uc.optimizer.Optimize(w, channels, req.TotalBudget, goal, req.Constraints)
	})
}

func (uc *MixUseCase) Scenarios(ctx context.Context, tenantID string, req models.ScenarioRequest) (models.ScenarioAnalysis, error) {
	return run(ctx, uc.Base, tenantID, OpScenarioAnalysis, req, func(ctx context.Context) (models.ScenarioAnalysis, error) {
		w, channels, err := uc.channels(ctx, tenantID, req.DateFrom, req.DateTo, "")
		if err != nil {
			return models.ScenarioAnalysis{}, err
		}
		return uc.optimizer.Scenarios(w, channels, req.Scenarios)
	})
}

// DiminishingReturns analyses one channel. A channel without activity in the
// window gets an empty series and the engine's not-enough-data message.
func (uc *MixUseCase) DiminishingReturns(ctx context.Context, tenantID string, req models.DiminishingReturnsRequest) (models.DiminishingReturns, error) {
	return run(ctx, uc.Base, tenantID, OpDiminishingReturns, req, func(ctx context.Context) (models.DiminishingReturns, error) {
		w, channels, err := uc.channels(ctx, tenantID, req.DateFrom, req.DateTo, req.Channel)
		if err != nil {
			return models.DiminishingReturns{}, err
		}
		series := models.ChannelSeries{Channel: models.NormalizeChannel(req.Channel)}
		for _, cs := range channels {
			if cs.Channel == series.Channel {
				series = cs
				break
			}
		}
		return uc.optimizer.DiminishingReturns(w, series), nil
	})
}
