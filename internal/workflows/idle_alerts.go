package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
)

// IdleAlertInput is the input for the idle alerting workflow.
type IdleAlertInput struct {
	// Date is the calendar day to analyze, in YYYY-MM-DD. Empty means
	// the current day at workflow start.
	Date string
	// EmployeeIDs restricts the sweep; empty means every known employee.
	EmployeeIDs []string
}

// IdleAlertWorkflow reconstructs every employee's stops for one day,
// persists them as stop events, and publishes alerts for the stops long
// enough to matter. One employee failing does not abort the sweep.
func IdleAlertWorkflow(ctx workflow.Context, input IdleAlertInput) error {
	logger := workflow.GetLogger(ctx)

	date := input.Date
	if date == "" {
		date = workflow.Now(ctx).UTC().Format("2006-01-02")
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return err
	}

	logger.Info("Starting idle alert sweep", "date", date)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	employeeIDs := input.EmployeeIDs
	if len(employeeIDs) == 0 {
		if err := workflow.ExecuteActivity(ctx, "ListEmployeeIDs").Get(ctx, &employeeIDs); err != nil {
			return err
		}
	}

	totalAlerts := 0
	for _, id := range employeeIDs {
		var stops []domain.Stop
		if err := workflow.ExecuteActivity(ctx, "DetectStops", id, day).Get(ctx, &stops); err != nil {
			logger.Warn("stop detection failed, skipping employee", "employee_id", id, "error", err)
			continue
		}
		if len(stops) == 0 {
			continue
		}

		if err := workflow.ExecuteActivity(ctx, "PersistStops", id, stops).Get(ctx, nil); err != nil {
			logger.Warn("persisting stops failed", "employee_id", id, "error", err)
		}

		var published int
		if err := workflow.ExecuteActivity(ctx, "PublishAlerts", id, stops).Get(ctx, &published); err != nil {
			logger.Warn("publishing alerts failed", "employee_id", id, "error", err)
			continue
		}
		totalAlerts += published
	}

	logger.Info("Idle alert sweep finished", "date", date, "employees", len(employeeIDs), "alerts", totalAlerts)
	return nil
}
