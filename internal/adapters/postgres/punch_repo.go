package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
)

// PunchRepo implements ports.PunchRepository. At most one open punch exists
// per employee-task pair, enforced by a partial unique index.
type PunchRepo struct {
	db *DB
}

func NewPunchRepo(db *DB) *PunchRepo {
	return &PunchRepo{db: db}
}

func (r *PunchRepo) ActivePunch(ctx context.Context, employeeID, taskID string) (*domain.PunchRecord, error) {
	var rec domain.PunchRecord
	err := r.db.Pool.QueryRow(ctx, `
		SELECT employee_id, task_id, punch_in_time, punch_out_time
		FROM punches
		WHERE employee_id = $1 AND task_id = $2 AND punch_out_time IS NULL
	`, employeeID, taskID).Scan(&rec.EmployeeID, &rec.TaskID, &rec.PunchInTime, &rec.PunchOut)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// PunchIn opens a punch record. A concurrent duplicate hits the partial
// unique index and is treated as already punched in.
func (r *PunchRepo) PunchIn(ctx context.Context, employeeID, taskID string, at time.Time) (*domain.PunchRecord, error) {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO punches (employee_id, task_id, punch_in_time)
		VALUES ($1, $2, $3)
		ON CONFLICT (employee_id, task_id) WHERE punch_out_time IS NULL DO NOTHING
	`, employeeID, taskID, at)
	if err != nil {
		return nil, err
	}
	return r.ActivePunch(ctx, employeeID, taskID)
}

func (r *PunchRepo) PunchOut(ctx context.Context, employeeID, taskID string, at time.Time) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE punches SET punch_out_time = $3
		WHERE employee_id = $1 AND task_id = $2 AND punch_out_time IS NULL
	`, employeeID, taskID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("no open punch for " + employeeID + "/" + taskID)
	}
	return nil
}
