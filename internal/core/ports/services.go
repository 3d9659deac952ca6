package ports

import (
	"context"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
)

// PositionEvent is one inbound device reading for an employee.
type PositionEvent struct {
	EmployeeID string          `json:"employee_id"`
	Position   domain.Position `json:"position"`
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishPosition(ctx context.Context, ev *PositionEvent) error
	PublishLiveUpdate(ctx context.Context, up *domain.LiveUpdate) error
	PublishIdleAlert(ctx context.Context, alert *domain.IdleAlert) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribePositions(ctx context.Context, handler func(ctx context.Context, ev *PositionEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// TrackErrorKind classifies failures of a position source. Each kind maps to
// a distinct human message; callers report these, they never crash on them.
type TrackErrorKind string

const (
	ErrKindPermissionDenied    TrackErrorKind = "PERMISSION_DENIED"
	ErrKindPositionUnavailable TrackErrorKind = "POSITION_UNAVAILABLE"
	ErrKindTimeout             TrackErrorKind = "TIMEOUT"
	ErrKindUnsupported         TrackErrorKind = "UNSUPPORTED"
)

// Message returns the human-readable message for the error kind.
func (k TrackErrorKind) Message() string {
	switch k {
	case ErrKindPermissionDenied:
		return "Location permission denied. Enable location access to start tracking."
	case ErrKindPositionUnavailable:
		return "Current position is unavailable. Check GPS signal and try again."
	case ErrKindTimeout:
		return "Timed out waiting for a location fix."
	case ErrKindUnsupported:
		return "Location tracking is not supported on this device."
	default:
		return "Unknown location error."
	}
}

// Subscription is a handle on an active position watch.
type Subscription interface {
	Unsubscribe() error
}

// PositionSource abstracts a platform geolocation watch: a continuous,
// asynchronous stream of readings for one employee's device.
type PositionSource interface {
	Watch(employeeID string, onUpdate func(domain.Position), onError func(TrackErrorKind)) (Subscription, error)
}

// Geocoder resolves a coordinate to a human-readable address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}
