package mmm

import (
	"fmt"
	"math"
	"sort"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/services/stats"
)

// BaselineScenario is the current allocation, always part of a scenario analysis.
const BaselineScenario = "baseline"

// Scenarios projects revenue for each named spend map using marginal ROAS.
// Channels a scenario leaves out keep their current spend.
func (o *Optimizer) Scenarios(period models.DateRange, channels []models.ChannelSeries, scenarios map[string]map[string]float64) (models.ScenarioAnalysis, error) {
	out := models.ScenarioAnalysis{Period: period, Scenarios: []models.Scenario{}}

	contribs := o.contribute(channels)
	index := make(map[string]models.ChannelContribution, len(contribs))
	current := make(map[string]float64, len(contribs))
	for _, c := range contribs {
		index[c.Channel] = c
		current[c.Channel] = c.Spend
	}

	names := make([]string, 0, len(scenarios))
	plans := make(map[string]map[string]float64, len(scenarios))
	for name, spends := range scenarios {
		if name == BaselineScenario {
			return out, invalidf("scenario name %q is reserved", BaselineScenario)
		}
		plan := make(map[string]float64, len(current)+len(spends))
		for ch, v := range current {
			plan[ch] = v
		}
		seen := make(map[string]bool, len(spends))
		for raw, v := range spends {
			ch := models.NormalizeChannel(raw)
			if ch == "" {
				return out, invalidf("scenario %q has an empty channel name", name)
			}
			if seen[ch] {
				return out, invalidf("scenario %q sets %s more than once", name, ch)
			}
			seen[ch] = true
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return out, invalidf("scenario %q: spend for %s must be a non-negative number", name, ch)
			}
			plan[ch] = v
		}
		names = append(names, name)
		plans[name] = plan
	}
	sort.Strings(names)

	baseline := project(BaselineScenario, current, index)
	out.Scenarios = append(out.Scenarios, baseline)
	for _, name := range names {
		s := project(name, plans[name], index)
		s.RevenueChange = stats.Round(s.ProjectedRevenue-baseline.ProjectedRevenue, 2)
		s.RevenueChangePercent = stats.Round(stats.PercentChange(s.ProjectedRevenue, baseline.ProjectedRevenue), 2)
		out.Scenarios = append(out.Scenarios, s)
	}

	best := out.Scenarios[0]
	for _, s := range out.Scenarios[1:] {
		if s.ProjectedRevenue > best.ProjectedRevenue {
			best = s
		}
	}
	out.BestScenario = best.Name
	if best.Name == BaselineScenario {
		out.Message = "No scenario beats the current allocation"
	} else {
		out.Message = fmt.Sprintf("%s projects %.2f more revenue than the current allocation", best.Name, best.RevenueChange)
	}
	return out, nil
}

func project(name string, plan map[string]float64, index map[string]models.ChannelContribution) models.Scenario {
	s := models.Scenario{Name: name, Channels: make([]models.ScenarioChannel, 0, len(plan))}
	for ch, spend := range plan {
		c := index[ch]
		revenue := math.Max(0, c.Revenue+(spend-c.Spend)*c.MarginalROAS)
		s.TotalSpend += spend
		s.ProjectedRevenue += revenue
		s.Channels = append(s.Channels, models.ScenarioChannel{
			Channel:          ch,
			Spend:            stats.Round(spend, 2),
			ProjectedRevenue: stats.Round(revenue, 2),
			ProjectedROAS:    stats.Round(stats.SafeDiv(revenue, spend), 4),
		})
	}
	sort.Slice(s.Channels, func(i, j int) bool { return s.Channels[i].Channel < s.Channels[j].Channel })
	s.ProjectedROAS = stats.Round(stats.SafeDiv(s.ProjectedRevenue, s.TotalSpend), 4)
	s.TotalSpend = stats.Round(s.TotalSpend, 2)
	s.ProjectedRevenue = stats.Round(s.ProjectedRevenue, 2)
	return s
}
