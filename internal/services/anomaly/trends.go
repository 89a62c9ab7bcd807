package anomaly

import (
	"fmt"
	"sort"
	"time"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/pkg/util"
)

const (
	directionIncreasing = "increasing"
	directionDecreasing = "decreasing"
	directionStable     = "stable"

	// relative change between half-period averages treated as a shift
	directionTolerance = 0.2
	topAffectedMetrics = 5
)

// Trends rolls detected anomalies up by ISO week.
func (d *Detector) Trends(series []models.DailyMetricPoint, metrics []models.Metric, sens models.Sensitivity) models.AnomalyTrends {
	out := models.AnomalyTrends{
		Weeks:               []models.WeeklyAnomalyCount{},
		MostAffectedMetrics: []models.MetricCount{},
		Direction:           directionStable,
	}
	if len(series) > 0 {
		out.Period = models.DateRange{From: series[0].Date, To: series[len(series)-1].Date}
	}
	report := d.Detect(series, metrics, sens)
	if len(series) < MinDays {
		out.Message = report.Message
		return out
	}

	weeks := make(map[time.Time]*models.WeeklyAnomalyCount)
	var order []time.Time
	for _, p := range series {
		ws := util.WeekStart(p.Date)
		if _, ok := weeks[ws]; !ok {
			weeks[ws] = &models.WeeklyAnomalyCount{WeekStart: ws}
			order = append(order, ws)
		}
	}
	for _, a := range report.Anomalies {
		w, ok := weeks[util.WeekStart(a.Date)]
		if !ok {
			continue
		}
		w.Total++
		switch a.Type {
		case models.AnomalySpike:
			w.Spikes++
		case models.AnomalyDrop:
			w.Drops++
		case models.AnomalyZeroValue:
			w.ZeroValues++
		}
		if a.IsConcerning {
			w.Concerning++
		}
	}
	for _, ws := range order {
		out.Weeks = append(out.Weeks, *weeks[ws])
	}

	for m, n := range report.Summary.ByMetric {
		out.MostAffectedMetrics = append(out.MostAffectedMetrics, models.MetricCount{Metric: m, Count: n})
	}
	sort.Slice(out.MostAffectedMetrics, func(i, j int) bool {
		a, b := out.MostAffectedMetrics[i], out.MostAffectedMetrics[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Metric < b.Metric
	})
	if len(out.MostAffectedMetrics) > topAffectedMetrics {
		out.MostAffectedMetrics = out.MostAffectedMetrics[:topAffectedMetrics]
	}

	out.TotalAnomalies = report.Summary.Total
	out.Direction = direction(out.Weeks)
	out.Message = fmt.Sprintf("%d anomalies across %d weeks, trend %s", out.TotalAnomalies, len(out.Weeks), out.Direction)
	return out
}

// direction compares the average weekly count of the first half of the weeks
// with the second half.
func direction(weeks []models.WeeklyAnomalyCount) string {
	if len(weeks) < 2 {
		return directionStable
	}
	mid := len(weeks) / 2
	first, second := 0.0, 0.0
	for _, w := range weeks[:mid] {
		first += float64(w.Total)
	}
	for _, w := range weeks[mid:] {
		second += float64(w.Total)
	}
	first /= float64(mid)
	second /= float64(len(weeks) - mid)

	switch {
	case first == 0 && second == 0:
		return directionStable
	case first == 0:
		return directionIncreasing
	case second > first*(1+directionTolerance):
		return directionIncreasing
	case second < first*(1-directionTolerance):
		return directionDecreasing
	}
	return directionStable
}
