package postgres

import (
	"context"
	"time"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
)

// RouteSampleRepo implements ports.RouteSampleRepository. Samples are stored
// as PostGIS geography points, one row per accepted reading.
type RouteSampleRepo struct {
	db *DB
}

func NewRouteSampleRepo(db *DB) *RouteSampleRepo {
	return &RouteSampleRepo{db: db}
}

func (r *RouteSampleRepo) Insert(ctx context.Context, employeeID string, sample *domain.RouteSample) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO route_samples (employee_id, time, location, address)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, $5)
	`, employeeID, sample.Time, sample.Lon, sample.Lat, nilIfEmpty(sample.Address))
	return err
}

func (r *RouteSampleRepo) ListByDate(ctx context.Context, employeeID string, date time.Time) ([]domain.RouteSample, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT time,
			ST_Y(location::geometry) as lat,
			ST_X(location::geometry) as lon,
			COALESCE(address, '')
		FROM route_samples
		WHERE employee_id = $1 AND time >= $2::date AND time < $2::date + 1
		ORDER BY time ASC
	`, employeeID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []domain.RouteSample
	for rows.Next() {
		var s domain.RouteSample
		if err := rows.Scan(&s.Time, &s.Lat, &s.Lon, &s.Address); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
