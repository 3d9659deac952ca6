package postgres

import (
	"context"
	"time"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
)

// StopEventRepo implements ports.StopEventRepository for stops precomputed
// by the alerting pipeline.
type StopEventRepo struct {
	db *DB
}

func NewStopEventRepo(db *DB) *StopEventRepo {
	return &StopEventRepo{db: db}
}

func (r *StopEventRepo) ListByDate(ctx context.Context, employeeID string, date time.Time) ([]domain.Stop, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT start_time, end_time, duration_minutes,
			ST_Y(location::geometry) as lat,
			ST_X(location::geometry) as lng,
			COALESCE(address, '')
		FROM stop_events
		WHERE employee_id = $1 AND start_time >= $2::date AND start_time < $2::date + 1
		ORDER BY start_time ASC
	`, employeeID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stops []domain.Stop
	for rows.Next() {
		var s domain.Stop
		if err := rows.Scan(&s.StartTime, &s.EndTime, &s.DurationMinutes, &s.Lat, &s.Lng, &s.Address); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

func (r *StopEventRepo) InsertBatch(ctx context.Context, employeeID string, stops []domain.Stop) error {
	for _, s := range stops {
		_, err := r.db.Pool.Exec(ctx, `
			INSERT INTO stop_events (employee_id, start_time, end_time, duration_minutes, location, address)
			VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography, $7)
			ON CONFLICT (employee_id, start_time) DO UPDATE SET
				end_time = EXCLUDED.end_time,
				duration_minutes = EXCLUDED.duration_minutes,
				address = EXCLUDED.address
		`, employeeID, s.StartTime, s.EndTime, s.DurationMinutes, s.Lng, s.Lat, nilIfEmpty(s.Address))
		if err != nil {
			return err
		}
	}
	return nil
}
