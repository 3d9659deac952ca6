package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
	"github.com/samirrijal/fieldtrace/internal/core/ports"
	"github.com/samirrijal/fieldtrace/internal/core/usecases"
	"github.com/samirrijal/fieldtrace/internal/pkg/metrics"
)

// IdleAlertActivities holds the activity implementations for the idle
// alerting workflow.
type IdleAlertActivities struct {
	Employees  ports.EmployeeRepository
	Routes     ports.RouteSampleRepository
	StopEvents ports.StopEventRepository
	Detector   *usecases.StopDetector
	Aggregator *usecases.IdleAggregator
	Publisher  ports.EventPublisher
}

// ListEmployeeIDs returns the IDs of all known employees.
func (a *IdleAlertActivities) ListEmployeeIDs(ctx context.Context) ([]string, error) {
	employees, err := a.Employees.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	ids := make([]string, 0, len(employees))
	for _, e := range employees {
		ids = append(ids, e.ID)
	}
	return ids, nil
}

// DetectStops recomputes an employee's stops for one day from raw samples.
func (a *IdleAlertActivities) DetectStops(ctx context.Context, employeeID string, date time.Time) ([]domain.Stop, error) {
	samples, err := a.Routes.ListByDate(ctx, employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("list route samples for %s: %w", employeeID, err)
	}
	stops := a.Detector.DetectStops(samples)
	metrics.StopsDetected.Add(float64(len(stops)))
	return stops, nil
}

// PersistStops writes the detected stops as precomputed stop events, so the
// read path can serve them without recomputing.
func (a *IdleAlertActivities) PersistStops(ctx context.Context, employeeID string, stops []domain.Stop) error {
	if len(stops) == 0 {
		return nil
	}
	if err := a.StopEvents.InsertBatch(ctx, employeeID, stops); err != nil {
		return fmt.Errorf("persist stop events for %s: %w", employeeID, err)
	}
	return nil
}

// PublishAlerts emits an idle alert per stop that crosses the medium tier.
func (a *IdleAlertActivities) PublishAlerts(ctx context.Context, employeeID string, stops []domain.Stop) (int, error) {
	published := 0
	for _, alert := range a.Aggregator.Alerts(employeeID, stops) {
		if alert.Severity == domain.SeverityLow {
			continue
		}
		al := alert
		if err := a.Publisher.PublishIdleAlert(ctx, &al); err != nil {
			return published, fmt.Errorf("publish idle alert for %s: %w", employeeID, err)
		}
		metrics.IdleAlertsPublished.WithLabelValues(string(alert.Severity)).Inc()
		published++
	}
	return published, nil
}
