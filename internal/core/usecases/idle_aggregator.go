package usecases

import "github.com/samirrijal/fieldtrace/internal/core/domain"

// IdleAggregator maps detected stops to heatmap weights and alert severity
// tiers. Pure: called per render or per alert cycle, persists nothing.
type IdleAggregator struct{}

// NewIdleAggregator creates an aggregator.
func NewIdleAggregator() *IdleAggregator {
	return &IdleAggregator{}
}

// Weight converts a stop duration to a heat intensity: a linear ramp capped
// at one hour.
func (a *IdleAggregator) Weight(durationMinutes float64) float64 {
	w := durationMinutes / 60
	if w > 1 {
		return 1
	}
	if w < 0 {
		return 0
	}
	return w
}

// Severity classifies a heat weight into the alerting tiers.
func (a *IdleAggregator) Severity(weight float64) domain.IdleSeverity {
	switch {
	case weight > 0.5:
		return domain.SeverityHigh
	case weight > 0.25:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// HeatSamples converts stops into weighted heatmap points.
func (a *IdleAggregator) HeatSamples(stops []domain.Stop) []domain.IdleHeatSample {
	samples := make([]domain.IdleHeatSample, 0, len(stops))
	for _, s := range stops {
		samples = append(samples, domain.IdleHeatSample{
			Lat:    s.Lat,
			Lng:    s.Lng,
			Weight: a.Weight(s.DurationMinutes),
		})
	}
	return samples
}

// Alerts builds idle alerts for the given employee's stops.
func (a *IdleAggregator) Alerts(employeeID string, stops []domain.Stop) []domain.IdleAlert {
	alerts := make([]domain.IdleAlert, 0, len(stops))
	for _, s := range stops {
		w := a.Weight(s.DurationMinutes)
		alerts = append(alerts, domain.IdleAlert{
			EmployeeID: employeeID,
			Stop:       s,
			Weight:     w,
			Severity:   a.Severity(w),
		})
	}
	return alerts
}
