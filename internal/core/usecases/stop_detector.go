package usecases

import (
	"time"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
	"github.com/samirrijal/fieldtrace/internal/pkg/geospatial"
)

// Stationarity thresholds: an employee who stays within StopDistanceMeters
// of the same spot for at least StopMinMinutes produces a Stop.
const (
	DefaultStopDistanceMeters = 20.0
	DefaultStopMinMinutes     = 20.0
)

// StopDetectorConfig holds the stationarity thresholds. Zero values fall
// back to the defaults above.
type StopDetectorConfig struct {
	StopDistanceMeters float64
	StopMinMinutes     float64
}

// StopDetector segments a day's ordered route samples into stationary
// intervals. Pure and deterministic: same input, same output, no state
// kept across calls.
type StopDetector struct {
	cfg StopDetectorConfig
}

// NewStopDetector creates a detector with the given thresholds.
func NewStopDetector(cfg StopDetectorConfig) *StopDetector {
	if cfg.StopDistanceMeters <= 0 {
		cfg.StopDistanceMeters = DefaultStopDistanceMeters
	}
	if cfg.StopMinMinutes <= 0 {
		cfg.StopMinMinutes = DefaultStopMinMinutes
	}
	return &StopDetector{cfg: cfg}
}

// DetectStops walks consecutive sample pairs. A run of pairs closer than the
// distance threshold accumulates; once its elapsed time reaches the minimum,
// a stop opens, anchored at the run's first sample. Genuine movement closes
// the stop at the last stationary sample. A run still open at the end of the
// sequence closes at the final sample.
//
// Fewer than two samples produce no stops.
func (d *StopDetector) DetectStops(samples []domain.RouteSample) []domain.Stop {
	if len(samples) < 2 {
		return nil
	}

	var stops []domain.Stop
	anchor := -1 // index of the current stationary run's first sample
	open := false

	for i := 1; i < len(samples); i++ {
		prev, curr := samples[i-1], samples[i]
		dist := geospatial.Haversine(prev.Lat, prev.Lon, curr.Lat, curr.Lon)

		if dist < d.cfg.StopDistanceMeters {
			if anchor == -1 {
				anchor = i - 1
			}
			if curr.Time.Sub(samples[anchor].Time).Minutes() >= d.cfg.StopMinMinutes {
				open = true
			}
			continue
		}

		// Movement detected: close an open stop at the last stationary sample.
		if open {
			stops = append(stops, d.closeStop(samples[anchor], prev.Time))
		}
		anchor = -1
		open = false
	}

	if open {
		stops = append(stops, d.closeStop(samples[anchor], samples[len(samples)-1].Time))
	}

	return stops
}

func (d *StopDetector) closeStop(start domain.RouteSample, end time.Time) domain.Stop {
	return domain.Stop{
		StartTime:       start.Time,
		EndTime:         end,
		DurationMinutes: end.Sub(start.Time).Minutes(),
		Lat:             start.Lat,
		Lng:             start.Lon,
		Address:         start.Address,
	}
}
