package usecases_test

import (
	"math"
	"testing"
	"time"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
	"github.com/samirrijal/fieldtrace/internal/core/usecases"
)

var trackStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// sampleAt builds a route sample offset north by the given meters.
func sampleAt(meters float64, minutes float64) domain.RouteSample {
	return domain.RouteSample{
		GeoPoint: domain.GeoPoint{Lat: 28.6139 + meters/111320.0, Lon: 77.2090},
		Time:     trackStart.Add(time.Duration(minutes * float64(time.Minute))),
	}
}

func TestDetectStops_BelowTimeThreshold(t *testing.T) {
	det := usecases.NewStopDetector(usecases.StopDetectorConfig{})

	// Stationary for 19 minutes within 15m: no stop.
	samples := []domain.RouteSample{
		sampleAt(0, 0),
		sampleAt(5, 6),
		sampleAt(10, 13),
		sampleAt(5, 19),
	}

	stops := det.DetectStops(samples)
	if len(stops) != 0 {
		t.Fatalf("expected no stops for 19 minutes, got %d", len(stops))
	}
}

func TestDetectStops_AtTimeThreshold(t *testing.T) {
	det := usecases.NewStopDetector(usecases.StopDetectorConfig{})

	// Stationary for 22 minutes within a 10m circle: exactly one stop.
	samples := []domain.RouteSample{
		sampleAt(0, 0),
		sampleAt(4, 5),
		sampleAt(8, 11),
		sampleAt(2, 17),
		sampleAt(6, 22),
	}

	stops := det.DetectStops(samples)
	if len(stops) != 1 {
		t.Fatalf("expected exactly one stop, got %d", len(stops))
	}
	if math.Abs(stops[0].DurationMinutes-22) > 1 {
		t.Errorf("expected duration ~22 minutes, got %.2f", stops[0].DurationMinutes)
	}
	if !stops[0].StartTime.Equal(trackStart) {
		t.Errorf("stop must anchor at the run's first sample, got %s", stops[0].StartTime)
	}
}

func TestDetectStops_MovementClosesStop(t *testing.T) {
	det := usecases.NewStopDetector(usecases.StopDetectorConfig{})

	// 25 stationary minutes, then a sample 25m away. The stop must end at
	// the last stationary sample, not at the moved-to sample.
	samples := []domain.RouteSample{
		sampleAt(0, 0),
		sampleAt(5, 8),
		sampleAt(10, 16),
		sampleAt(5, 25),
		sampleAt(30, 27), // 25m jump from the previous sample
	}

	stops := det.DetectStops(samples)
	if len(stops) != 1 {
		t.Fatalf("expected one stop, got %d", len(stops))
	}
	wantEnd := trackStart.Add(25 * time.Minute)
	if !stops[0].EndTime.Equal(wantEnd) {
		t.Errorf("expected end %s, got %s", wantEnd, stops[0].EndTime)
	}
	if math.Abs(stops[0].DurationMinutes-25) > 0.01 {
		t.Errorf("expected 25 minutes, got %.2f", stops[0].DurationMinutes)
	}
}

func TestDetectStops_OpenStopClosesAtEnd(t *testing.T) {
	det := usecases.NewStopDetector(usecases.StopDetectorConfig{})

	samples := []domain.RouteSample{
		sampleAt(0, 0),
		sampleAt(3, 10),
		sampleAt(6, 21),
		sampleAt(3, 30),
	}

	stops := det.DetectStops(samples)
	if len(stops) != 1 {
		t.Fatalf("expected one stop, got %d", len(stops))
	}
	if !stops[0].EndTime.Equal(trackStart.Add(30 * time.Minute)) {
		t.Errorf("open stop must close at the last sample, got %s", stops[0].EndTime)
	}
}

func TestDetectStops_TwoSeparateStops(t *testing.T) {
	det := usecases.NewStopDetector(usecases.StopDetectorConfig{})

	samples := []domain.RouteSample{
		sampleAt(0, 0),
		sampleAt(5, 12),
		sampleAt(8, 25), // first stop: 25 min
		sampleAt(500, 35),
		sampleAt(505, 50),
		sampleAt(502, 60), // second stop: 25 min at ~500m north
	}

	stops := det.DetectStops(samples)
	if len(stops) != 2 {
		t.Fatalf("expected two stops, got %d", len(stops))
	}
	if stops[0].Lat >= stops[1].Lat {
		t.Errorf("stops out of order or collapsed: %+v", stops)
	}
}

func TestDetectStops_ShortSequences(t *testing.T) {
	det := usecases.NewStopDetector(usecases.StopDetectorConfig{})

	if got := det.DetectStops(nil); len(got) != 0 {
		t.Errorf("nil input: expected empty, got %v", got)
	}
	if got := det.DetectStops([]domain.RouteSample{sampleAt(0, 0)}); len(got) != 0 {
		t.Errorf("single sample: expected empty, got %v", got)
	}
}

func TestDetectStops_Deterministic(t *testing.T) {
	det := usecases.NewStopDetector(usecases.StopDetectorConfig{})

	samples := []domain.RouteSample{
		sampleAt(0, 0),
		sampleAt(5, 12),
		sampleAt(8, 25),
		sampleAt(500, 35),
	}

	a := det.DetectStops(samples)
	b := det.DetectStops(samples)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("stop %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestDetectStops_CustomThresholds(t *testing.T) {
	det := usecases.NewStopDetector(usecases.StopDetectorConfig{
		StopDistanceMeters: 50,
		StopMinMinutes:     5,
	})

	samples := []domain.RouteSample{
		sampleAt(0, 0),
		sampleAt(40, 3),
		sampleAt(10, 6),
	}

	stops := det.DetectStops(samples)
	if len(stops) != 1 {
		t.Fatalf("expected one stop with relaxed thresholds, got %d", len(stops))
	}
}
