package anomaly

import (
	"fmt"
	"sort"

	"OmniTrackIQ/internal/domain/models"
	"OmniTrackIQ/internal/services/stats"
)

// MinDays is the shortest series the detector will scan.
const MinDays = 7

// zeroValueFloor is the baseline mean above which a zero reading is suspicious.
const zeroValueFloor = 10.0

// Severity bands on |z|.
const (
	criticalZ = 3.0
	highZ     = 2.5
	mediumZ   = 2.0
)

// Detector flags spikes, drops and zero readings against a trailing baseline.
type Detector struct{}

// NewDetector returns a Detector.
func NewDetector() *Detector { return &Detector{} }

// SeverityFor grades |z| on the fixed bands.
func SeverityFor(z float64) models.Severity {
	if z < 0 {
		z = -z
	}
	switch {
	case z >= criticalZ:
		return models.SeverityCritical
	case z >= highZ:
		return models.SeverityHigh
	case z >= mediumZ:
		return models.SeverityMedium
	}
	return models.SeverityLow
}

// concerning reports whether a move hurts the business: a drop on a normal
// metric, a spike on a higher-is-worse one, or any critical deviation.
func concerning(m models.Metric, t models.AnomalyType, sev models.Severity) bool {
	switch t {
	case models.AnomalyZeroValue:
		return true
	case models.AnomalySpike:
		if m.HigherIsWorse() {
			return true
		}
	case models.AnomalyDrop:
		if !m.HigherIsWorse() {
			return true
		}
	}
	return sev == models.SeverityCritical
}

// DetectMetric scans one metric of a dense daily series. Series shorter than
// MinDays yield nil.
func (d *Detector) DetectMetric(series []models.DailyMetricPoint, m models.Metric, sens models.Sensitivity) []models.Anomaly {
	if len(series) < MinDays {
		return nil
	}
	values := models.Values(series, m)
	threshold := sens.Threshold()

	var out []models.Anomaly
	for i := 1; i < len(values); i++ {
		b, ok := stats.TrailingBaseline(values, i)
		if !ok {
			continue
		}
		v := values[i]
		if v == 0 && b.Mean > zeroValueFloor {
			z := b.ZScore(v)
			out = append(out, models.Anomaly{
				Date:             series[i].Date,
				Metric:           m,
				Type:             models.AnomalyZeroValue,
				Severity:         models.SeverityHigh,
				Value:            0,
				ExpectedValue:    stats.Round(b.Mean, 2),
				ZScore:           roundPtr(z),
				DeviationPercent: -100,
				IsConcerning:     true,
				Description:      fmt.Sprintf("%s dropped to zero against an expected %.2f", m.Label(), b.Mean),
			})
			continue
		}
		if !b.Usable() {
			continue
		}
		z := b.ZScore(v)
		if abs(z) < threshold {
			continue
		}
		typ := models.AnomalyDrop
		if z > 0 {
			typ = models.AnomalySpike
		}
		sev := SeverityFor(z)
		dev := b.DeviationPercent(v)
		out = append(out, models.Anomaly{
			Date:             series[i].Date,
			Metric:           m,
			Type:             typ,
			Severity:         sev,
			Value:            stats.Round(v, 4),
			ExpectedValue:    stats.Round(b.Mean, 4),
			ZScore:           roundPtr(z),
			DeviationPercent: stats.Round(dev, 2),
			IsConcerning:     concerning(m, typ, sev),
			Description:      describe(m, typ, v, b.Mean, dev),
		})
	}
	return out
}

// Detect runs every requested metric and builds the report.
func (d *Detector) Detect(series []models.DailyMetricPoint, metrics []models.Metric, sens models.Sensitivity) models.AnomalyReport {
	report := models.AnomalyReport{
		Sensitivity: sens,
		Threshold:   sens.Threshold(),
		Anomalies:   []models.Anomaly{},
		Summary:     summarize(nil),
	}
	if len(series) > 0 {
		report.Period = models.DateRange{From: series[0].Date, To: series[len(series)-1].Date}
	}
	if len(series) < MinDays {
		report.Message = fmt.Sprintf("Not enough data for anomaly detection: need at least %d days, got %d", MinDays, len(series))
		return report
	}
	if len(metrics) == 0 {
		metrics = models.AllMetrics
	}
	for _, m := range metrics {
		report.Anomalies = append(report.Anomalies, d.DetectMetric(series, m, sens)...)
	}
	SortAnomalies(report.Anomalies, metrics)
	report.Summary = summarize(report.Anomalies)
	switch {
	case report.Summary.Total == 0:
		report.Message = "No anomalies detected"
	case report.Summary.Concerning > 0:
		report.Message = fmt.Sprintf("%d anomalies detected, %d need attention", report.Summary.Total, report.Summary.Concerning)
	default:
		report.Message = fmt.Sprintf("%d anomalies detected", report.Summary.Total)
	}
	return report
}

// SortAnomalies orders newest first, then by severity, then by metric order.
func SortAnomalies(list []models.Anomaly, order []models.Metric) {
	rank := make(map[models.Metric]int, len(order))
	for i, m := range order {
		rank[m] = i
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		return rank[a.Metric] < rank[b.Metric]
	})
}

func summarize(list []models.Anomaly) models.AnomalySummary {
	s := models.AnomalySummary{
		BySeverity: map[models.Severity]int{},
		ByMetric:   map[models.Metric]int{},
		ByType:     map[models.AnomalyType]int{},
	}
	for _, a := range list {
		s.Total++
		if a.IsConcerning {
			s.Concerning++
		}
		s.BySeverity[a.Severity]++
		s.ByMetric[a.Metric]++
		s.ByType[a.Type]++
	}
	return s
}

func describe(m models.Metric, t models.AnomalyType, value, expected, dev float64) string {
	verb := "dropped"
	if t == models.AnomalySpike {
		verb = "spiked"
	}
	return fmt.Sprintf("%s %s to %.2f, %.1f%% from the expected %.2f", m.Label(), verb, value, dev, expected)
}

func roundPtr(z float64) *float64 {
	v := stats.Round(z, 3)
	return &v
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
