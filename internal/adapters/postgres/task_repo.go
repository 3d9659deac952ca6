package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
)

// TaskRepo implements ports.TaskRepository. Geofence targets are stored as
// PostGIS geography points next to the task row; a NULL target means the
// task has no customer address yet.
type TaskRepo struct {
	db *DB
}

func NewTaskRepo(db *DB) *TaskRepo {
	return &TaskRepo{db: db}
}

func (r *TaskRepo) Upsert(ctx context.Context, task *domain.Task) error {
	var lat, lon, radius interface{}
	if task.Target != nil {
		lat, lon, radius = task.Target.Lat, task.Target.Lon, task.Target.RadiusMeters
	}
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO tasks (id, employee_id, title, target, target_radius_m, created_at)
		VALUES ($1, $2, $3,
			CASE WHEN $4::float8 IS NULL THEN NULL
			     ELSE ST_SetSRID(ST_MakePoint($5, $4), 4326)::geography END,
			$6, COALESCE($7, now()))
		ON CONFLICT (id) DO UPDATE SET
			employee_id = EXCLUDED.employee_id,
			title = EXCLUDED.title,
			target = EXCLUDED.target,
			target_radius_m = EXCLUDED.target_radius_m
	`, task.ID, task.EmployeeID, task.Title, lat, lon, radius, nilIfZeroTime(task.CreatedAt))
	return err
}

func (r *TaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	return r.queryOne(ctx, `
		SELECT id, employee_id, title,
			ST_Y(target::geometry), ST_X(target::geometry), target_radius_m,
			created_at
		FROM tasks WHERE id = $1
	`, id)
}

// ActiveTask returns the newest task assigned to the employee, or nil.
func (r *TaskRepo) ActiveTask(ctx context.Context, employeeID string) (*domain.Task, error) {
	return r.queryOne(ctx, `
		SELECT id, employee_id, title,
			ST_Y(target::geometry), ST_X(target::geometry), target_radius_m,
			created_at
		FROM tasks
		WHERE employee_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, employeeID)
}

// AssignTarget replaces the task's geofence target with a new one.
func (r *TaskRepo) AssignTarget(ctx context.Context, taskID string, target domain.GeofenceTarget) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE tasks
		SET target = ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography,
		    target_radius_m = $3
		WHERE id = $4
	`, target.Lat, target.Lon, target.RadiusMeters, taskID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("task not found: " + taskID)
	}
	return nil
}

func (r *TaskRepo) queryOne(ctx context.Context, query string, arg interface{}) (*domain.Task, error) {
	var task domain.Task
	var lat, lon, radius *float64
	err := r.db.Pool.QueryRow(ctx, query, arg).Scan(
		&task.ID, &task.EmployeeID, &task.Title, &lat, &lon, &radius, &task.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lat != nil && lon != nil {
		task.Target = &domain.GeofenceTarget{
			GeoPoint: domain.GeoPoint{Lat: *lat, Lon: *lon},
		}
		if radius != nil {
			task.Target.RadiusMeters = *radius
		}
	}
	return &task, nil
}

func nilIfZeroTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
