package ports

import (
	"context"
	"time"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
)

// EmployeeRepository persists employees.
type EmployeeRepository interface {
	Upsert(ctx context.Context, emp *domain.Employee) error
	GetByID(ctx context.Context, id string) (*domain.Employee, error)
	List(ctx context.Context) ([]domain.Employee, error)
}

// TaskRepository persists tasks and their geofence targets.
type TaskRepository interface {
	Upsert(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	// ActiveTask returns the employee's currently assigned task, or nil.
	ActiveTask(ctx context.Context, employeeID string) (*domain.Task, error)
	// AssignTarget creates a new immutable geofence target for a task.
	AssignTarget(ctx context.Context, taskID string, target domain.GeofenceTarget) error
}

// PunchRepository persists punch-in records.
type PunchRepository interface {
	// ActivePunch returns the open punch for an employee-task pair, or nil.
	ActivePunch(ctx context.Context, employeeID, taskID string) (*domain.PunchRecord, error)
	// PunchIn opens a punch record at the given time.
	PunchIn(ctx context.Context, employeeID, taskID string, at time.Time) (*domain.PunchRecord, error)
	PunchOut(ctx context.Context, employeeID, taskID string, at time.Time) error
}

// RouteSampleRepository persists the historical trail.
type RouteSampleRepository interface {
	Insert(ctx context.Context, employeeID string, sample *domain.RouteSample) error
	// ListByDate returns the employee's samples for one calendar day,
	// ordered by time ascending.
	ListByDate(ctx context.Context, employeeID string, date time.Time) ([]domain.RouteSample, error)
}

// StopEventRepository reads stop events precomputed by the backend, the
// alternative to recomputing stops from raw samples.
type StopEventRepository interface {
	ListByDate(ctx context.Context, employeeID string, date time.Time) ([]domain.Stop, error)
	InsertBatch(ctx context.Context, employeeID string, stops []domain.Stop) error
}
