package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
	"github.com/samirrijal/fieldtrace/internal/core/ports"
	"github.com/samirrijal/fieldtrace/internal/pkg/resource"
)

// StopSource selects where a day's stops come from.
type StopSource string

const (
	// StopSourceEvents reads stop events precomputed by the backend.
	StopSourceEvents StopSource = "events"
	// StopSourceRecompute reconstructs stops from the raw route samples.
	StopSourceRecompute StopSource = "recompute"
)

const routeCacheTTL = 60 // seconds

// RouteHistoryService serves the historical views: the day's trail, its
// reconstructed stops, and the idle heatmap derived from them.
//
// The geocoder is loaded lazily; address annotation is best effort and a
// geocoding failure never fails the request. cache may be nil, in which case
// every read goes to the repository.
type RouteHistoryService struct {
	routes     ports.RouteSampleRepository
	stopEvents ports.StopEventRepository
	detector   *StopDetector
	agg        *IdleAggregator
	cache      ports.CacheService
	geocoder   *resource.Loader[ports.Geocoder]
	log        *slog.Logger
}

// NewRouteHistoryService wires the history views.
func NewRouteHistoryService(
	routes ports.RouteSampleRepository,
	stopEvents ports.StopEventRepository,
	detector *StopDetector,
	agg *IdleAggregator,
	cache ports.CacheService,
	geocoder *resource.Loader[ports.Geocoder],
	log *slog.Logger,
) *RouteHistoryService {
	return &RouteHistoryService{
		routes:     routes,
		stopEvents: stopEvents,
		detector:   detector,
		agg:        agg,
		cache:      cache,
		geocoder:   geocoder,
		log:        log,
	}
}

// GetRoute returns the employee's trail for one calendar day, oldest first.
func (s *RouteHistoryService) GetRoute(ctx context.Context, employeeID string, date time.Time) ([]domain.RouteSample, error) {
	key := fmt.Sprintf("route:%s:%s", employeeID, date.Format("2006-01-02"))
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil && raw != nil {
			var samples []domain.RouteSample
			if err := json.Unmarshal(raw, &samples); err == nil {
				return samples, nil
			}
		}
	}

	samples, err := s.routes.ListByDate(ctx, employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("list route samples: %w", err)
	}

	if s.cache != nil {
		if raw, err := json.Marshal(samples); err == nil {
			_ = s.cache.Set(ctx, key, raw, routeCacheTTL)
		}
	}
	return samples, nil
}

// GetStops returns the employee's stops for one day from the chosen source.
// The events source falls back to recomputation when the backend has no
// precomputed stops for that day.
func (s *RouteHistoryService) GetStops(ctx context.Context, employeeID string, date time.Time, source StopSource) ([]domain.Stop, error) {
	var stops []domain.Stop

	if source == StopSourceEvents {
		events, err := s.stopEvents.ListByDate(ctx, employeeID, date)
		if err != nil {
			return nil, fmt.Errorf("list stop events: %w", err)
		}
		stops = events
	}

	if len(stops) == 0 {
		samples, err := s.GetRoute(ctx, employeeID, date)
		if err != nil {
			return nil, err
		}
		stops = s.detector.DetectStops(samples)
	}

	s.annotateAddresses(ctx, stops)
	return stops, nil
}

// Heatmap returns the day's stops as weighted heat points.
func (s *RouteHistoryService) Heatmap(ctx context.Context, employeeID string, date time.Time) ([]domain.IdleHeatSample, error) {
	stops, err := s.GetStops(ctx, employeeID, date, StopSourceRecompute)
	if err != nil {
		return nil, err
	}
	return s.agg.HeatSamples(stops), nil
}

// annotateAddresses fills in missing stop addresses. Failures leave the
// address empty; coordinates are always present.
func (s *RouteHistoryService) annotateAddresses(ctx context.Context, stops []domain.Stop) {
	if s.geocoder == nil {
		return
	}

	var gc ports.Geocoder
	for i := range stops {
		if stops[i].Address != "" {
			continue
		}
		if gc == nil {
			var err error
			gc, err = s.geocoder.Get(ctx)
			if err != nil {
				s.log.Warn("geocoder unavailable, serving stops without addresses", "error", err)
				return
			}
		}
		addr, err := gc.ReverseGeocode(ctx, stops[i].Lat, stops[i].Lng)
		if err != nil {
			s.log.Debug("reverse geocode failed", "lat", stops[i].Lat, "lng", stops[i].Lng, "error", err)
			continue
		}
		stops[i].Address = addr
	}
}
