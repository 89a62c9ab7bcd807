package mmm

import (
	"fmt"
	"math"
	"sort"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/services/stats"
)

// epsilon is the smallest amount of budget worth distributing.
const epsilon = 1e-9

func invalidf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", models.ErrInvalidParameter, fmt.Sprintf(format, a...))
}

type slot struct {
	contribution models.ChannelContribution
	score        float64
	min          float64
	max          float64 // +Inf when unbounded
	fixed        bool
	alloc        float64
}

func (s *slot) headroom() float64 { return s.max - s.alloc }

// GoalScore ranks a channel under goal. maxROAS normalizes the balanced score.
func GoalScore(goal models.OptimizationGoal, c models.ChannelContribution, maxROAS float64) float64 {
	switch goal {
	case models.GoalMaximizeRevenue:
		return c.Revenue
	case models.GoalMaximizeROAS:
		return math.Max(0, c.MarginalROAS)
	case models.GoalMinimizeCPA:
		if c.Conversions <= 0 || c.CPA <= 0 {
			return 0
		}
		return 1 / c.CPA
	default:
		return 0.4*stats.SafeDiv(c.ROAS, maxROAS) +
			0.3*(1-c.SaturationLevel/100) +
			0.3*c.RevenueShare/100
	}
}

// normalizeConstraints keys constraints by canonical channel and validates them.
func normalizeConstraints(budget float64, in map[string]models.ChannelConstraint) (map[string]models.ChannelConstraint, error) {
	out := make(map[string]models.ChannelConstraint, len(in))
	var fixedSum, minSum float64
	for raw, c := range in {
		ch := models.NormalizeChannel(raw)
		if ch == "" {
			return nil, invalidf("constraint with empty channel name")
		}
		// aliases such as facebook and meta share one canonical channel
		if _, dup := out[ch]; dup {
			return nil, invalidf("duplicate constraint for %s", ch)
		}
		for name, v := range map[string]*float64{"min_spend": c.MinSpend, "max_spend": c.MaxSpend, "fixed": c.Fixed} {
			if v != nil && (*v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0)) {
				return nil, invalidf("%s for %s must be a non-negative number", name, ch)
			}
		}
		if c.MinSpend != nil && c.MaxSpend != nil && *c.MinSpend > *c.MaxSpend {
			return nil, invalidf("min_spend exceeds max_spend for %s", ch)
		}
		switch {
		case c.Fixed != nil:
			fixedSum += *c.Fixed
		case c.MinSpend != nil:
			minSum += *c.MinSpend
		}
		out[ch] = c
	}
	if fixedSum > budget {
		return nil, invalidf("fixed spends (%.2f) exceed total_budget (%.2f)", fixedSum, budget)
	}
	if fixedSum+minSum > budget {
		return nil, invalidf("fixed and minimum spends (%.2f) exceed total_budget (%.2f)", fixedSum+minSum, budget)
	}
	return out, nil
}

// Optimize splits totalBudget across channels under goal and constraints.
// The allocation never exceeds the budget and always honours the constraints.
func (o *Optimizer) Optimize(period models.DateRange, channels []models.ChannelSeries, totalBudget float64, goal models.OptimizationGoal, constraints map[string]models.ChannelConstraint) (models.BudgetOptimization, error) {
	if totalBudget <= 0 || math.IsNaN(totalBudget) || math.IsInf(totalBudget, 0) {
		return models.BudgetOptimization{}, invalidf("total_budget must be positive")
	}
	cons, err := normalizeConstraints(totalBudget, constraints)
	if err != nil {
		return models.BudgetOptimization{}, err
	}

	out := models.BudgetOptimization{
		Period:          period,
		Goal:            goal,
		TotalBudget:     totalBudget,
		Recommendations: []models.AllocationRecommendation{},
	}

	known := make(map[string]bool)
	var contribs []models.ChannelContribution
	for _, c := range o.contribute(channels) {
		if c.Spend > 0 {
			contribs = append(contribs, c)
			known[c.Channel] = true
		}
	}
	for ch := range cons {
		if !known[ch] {
			contribs = append(contribs, models.ChannelContribution{Channel: ch, EfficiencyRating: models.EfficiencyPoor})
		}
	}
	if len(contribs) == 0 {
		out.Message = "No channels with spend in the selected period"
		return out, nil
	}

	maxROAS := 0.0
	for _, c := range contribs {
		maxROAS = math.Max(maxROAS, c.ROAS)
	}
	slots := make([]*slot, len(contribs))
	for i, c := range contribs {
		s := &slot{contribution: c, score: GoalScore(goal, c, maxROAS), max: math.Inf(1)}
		if k, ok := cons[c.Channel]; ok {
			if k.Fixed != nil {
				s.fixed = true
				s.min, s.max = *k.Fixed, *k.Fixed
			} else {
				if k.MinSpend != nil {
					s.min = *k.MinSpend
				}
				if k.MaxSpend != nil {
					s.max = *k.MaxSpend
				}
			}
		}
		slots[i] = s
	}
	// best score first; ties keep the revenue order from contribute
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].score > slots[j].score })

	allocate(slots, totalBudget)

	var allocated, projected, current float64
	for _, s := range slots {
		c := s.contribution
		change := s.alloc - c.Spend
		expected := math.Max(0, c.Revenue+change*c.MarginalROAS)
		allocated += s.alloc
		projected += expected
		current += c.Revenue
		out.Recommendations = append(out.Recommendations, models.AllocationRecommendation{
			Channel:          c.Channel,
			CurrentSpend:     stats.Round(c.Spend, 2),
			RecommendedSpend: s.alloc,
			Change:           stats.Round(change, 2),
			ChangePercent:    stats.Round(stats.PercentChange(s.alloc, c.Spend), 2),
			ExpectedRevenue:  stats.Round(expected, 2),
			Score:            stats.Round(s.score, 4),
			Rationale:        rationale(goal, s, change),
		})
	}
	sort.SliceStable(out.Recommendations, func(i, j int) bool {
		return out.Recommendations[i].RecommendedSpend > out.Recommendations[j].RecommendedSpend
	})
	out.AllocatedBudget = allocated
	out.CurrentRevenue = stats.Round(current, 2)
	out.ProjectedRevenue = stats.Round(projected, 2)
	out.ProjectedROAS = stats.Round(stats.SafeDiv(projected, allocated), 4)
	if allocated < totalBudget-0.01 {
		out.Message = fmt.Sprintf("Constraints cap allocation at %.2f of %.2f", allocated, totalBudget)
	} else {
		out.Message = fmt.Sprintf("Budget allocated across %d channels for %s", len(slots), goal)
	}
	return out, nil
}

// allocate places fixed spends, reserves minimums, then fills the remainder in
// proportion to score, clamped at each maximum. Slots must be sorted by score.
func allocate(slots []*slot, budget float64) {
	remaining := budget
	for _, s := range slots {
		s.alloc = s.min
		remaining -= s.min
	}

	weights := make([]float64, len(slots))
	positive := false
	for i, s := range slots {
		if !s.fixed && s.score > 0 {
			weights[i] = s.score
			positive = true
		}
	}
	if !positive {
		// nothing to rank by: follow current spend, then split evenly
		for i, s := range slots {
			if !s.fixed {
				weights[i] = s.contribution.Spend
				positive = positive || weights[i] > 0
			}
		}
		if !positive {
			for i, s := range slots {
				if !s.fixed {
					weights[i] = 1
				}
			}
		}
	}

	// water-fill: redistribute what capped channels cannot absorb
	for remaining > epsilon {
		sum := 0.0
		for i, s := range slots {
			if weights[i] > 0 && s.headroom() > epsilon {
				sum += weights[i]
			}
		}
		if sum == 0 {
			break
		}
		placed := 0.0
		pool := remaining
		for i, s := range slots {
			if weights[i] <= 0 || s.headroom() <= epsilon {
				continue
			}
			share := pool * weights[i] / sum
			if room := s.headroom(); share >= room {
				share = room
				s.alloc = s.max
			} else {
				s.alloc += share
			}
			placed += share
		}
		remaining -= placed
		if placed <= epsilon {
			break
		}
	}

	// leftover goes down the ranking to whoever still has headroom
	for _, s := range slots {
		if remaining <= epsilon {
			break
		}
		if s.fixed {
			continue
		}
		room := s.headroom()
		if room <= 0 {
			continue
		}
		if remaining >= room {
			s.alloc = s.max
			remaining -= room
		} else {
			s.alloc += remaining
			remaining = 0
		}
	}

	// float drift must never push the total past the budget
	total := 0.0
	for _, s := range slots {
		total += s.alloc
	}
	if over := total - budget; over > 0 {
		for _, s := range slots {
			if s.fixed {
				continue
			}
			cut := math.Min(over, s.alloc-s.min)
			s.alloc -= cut
			over -= cut
			if over <= 0 {
				break
			}
		}
	}
}

func rationale(goal models.OptimizationGoal, s *slot, change float64) string {
	c := s.contribution
	switch {
	case s.fixed:
		return "Spend fixed by constraint"
	case s.alloc == s.max && change > 0:
		return fmt.Sprintf("Capped at max_spend; %s efficiency, marginal ROAS %.2f", c.EfficiencyRating, c.MarginalROAS)
	case s.alloc == s.min && s.min > 0 && change < 0:
		return "Held at min_spend despite lower ranking"
	case change > 0:
		return fmt.Sprintf("Increase: ranks well for %s (ROAS %.2f, marginal %.2f, saturation %.0f%%)", goal, c.ROAS, c.MarginalROAS, c.SaturationLevel)
	case change < 0:
		return fmt.Sprintf("Decrease: weaker for %s (ROAS %.2f, marginal %.2f, saturation %.0f%%)", goal, c.ROAS, c.MarginalROAS, c.SaturationLevel)
	}
	return "Keep current spend"
}
