package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
)

// EmployeeRepo implements ports.EmployeeRepository.
type EmployeeRepo struct {
	db *DB
}

func NewEmployeeRepo(db *DB) *EmployeeRepo {
	return &EmployeeRepo{db: db}
}

func (r *EmployeeRepo) Upsert(ctx context.Context, emp *domain.Employee) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO employees (id, name, role, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role
	`, emp.ID, emp.Name, emp.Role, nilIfZeroTime(emp.CreatedAt))
	return err
}

func (r *EmployeeRepo) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	var emp domain.Employee
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, role, created_at FROM employees WHERE id = $1
	`, id).Scan(&emp.ID, &emp.Name, &emp.Role, &emp.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

func (r *EmployeeRepo) List(ctx context.Context) ([]domain.Employee, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, role, created_at FROM employees ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []domain.Employee
	for rows.Next() {
		var emp domain.Employee
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.Role, &emp.CreatedAt); err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}
