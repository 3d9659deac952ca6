package usecases

import (
	"errors"
	"sync"
	"time"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
	"github.com/samirrijal/fieldtrace/internal/core/ports"
	"github.com/samirrijal/fieldtrace/internal/pkg/geospatial"
)

// ErrAlreadyTracking is returned by Start while a watch is active.
var ErrAlreadyTracking = errors.New("tracking already active, stop the current session first")

// TrackerConfig holds the sampling thresholds. Zero values fall back to the
// documented defaults.
type TrackerConfig struct {
	MinMovementMeters float64       // forward a sample only after this much movement (default 10)
	MaxSampleAge      time.Duration // drop samples older than this at arrival (default 30s)
	SampleTimeout     time.Duration // report TIMEOUT when no sample arrives for this long (default 10s)
}

func (c TrackerConfig) withDefaults() TrackerConfig {
	if c.MinMovementMeters <= 0 {
		c.MinMovementMeters = 10
	}
	if c.MaxSampleAge <= 0 {
		c.MaxSampleAge = 30 * time.Second
	}
	if c.SampleTimeout <= 0 {
		c.SampleTimeout = 10 * time.Second
	}
	return c
}

// LocationTracker owns one device position watch at a time. It filters the
// raw stream (staleness, jitter below the movement threshold) and hands the
// surviving samples to the caller one at a time, in arrival order.
//
// Source callbacks may fire from any goroutine; the tracker serializes them,
// so the caller's onUpdate never runs concurrently with itself.
type LocationTracker struct {
	source ports.PositionSource
	cfg    TrackerConfig
	now    func() time.Time

	mu     sync.Mutex
	handle *TrackingHandle
	last   *domain.Position
}

// NewLocationTracker creates a tracker over the given position source.
func NewLocationTracker(source ports.PositionSource, cfg TrackerConfig) *LocationTracker {
	return &LocationTracker{
		source: source,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
	}
}

// TrackingHandle is the caller's control over one active watch. Stop is safe
// to call any number of times from any goroutine.
type TrackingHandle struct {
	tracker  *LocationTracker
	sub      ports.Subscription
	stopOnce sync.Once
	done     chan struct{}
	kick     chan struct{}
}

// Stop tears down the watch. The first call unsubscribes and stops the
// watchdog; later calls do nothing.
func (h *TrackingHandle) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		if h.sub != nil {
			h.sub.Unsubscribe()
		}
		h.tracker.clearHandle(h)
	})
}

// Start opens a watch for the employee and streams filtered positions into
// onUpdate. Source failures and watchdog timeouts go to onError as
// classified kinds; the watch stays up across them.
//
// Only one watch may be active per tracker. Starting while one is active
// returns ErrAlreadyTracking.
func (t *LocationTracker) Start(employeeID string, onUpdate func(domain.Position), onError func(ports.TrackErrorKind)) (*TrackingHandle, error) {
	t.mu.Lock()
	if t.handle != nil {
		t.mu.Unlock()
		return nil, ErrAlreadyTracking
	}
	h := &TrackingHandle{
		tracker: t,
		done:    make(chan struct{}),
		kick:    make(chan struct{}, 1),
	}
	t.handle = h
	t.last = nil
	t.mu.Unlock()

	var cbMu sync.Mutex
	handleUpdate := func(pos domain.Position) {
		cbMu.Lock()
		defer cbMu.Unlock()

		select {
		case <-h.done:
			return
		default:
		}

		select {
		case h.kick <- struct{}{}:
		default:
		}

		if !t.accept(pos) {
			return
		}
		onUpdate(pos)
	}
	handleError := func(kind ports.TrackErrorKind) {
		cbMu.Lock()
		defer cbMu.Unlock()

		select {
		case <-h.done:
			return
		default:
		}
		onError(kind)
	}

	sub, err := t.source.Watch(employeeID, handleUpdate, handleError)
	if err != nil {
		t.clearHandle(h)
		return nil, err
	}
	h.sub = sub

	go t.watchdog(h, handleError)

	return h, nil
}

// GetLastPosition returns a copy of the last accepted position, or nil when
// none has passed the filters yet.
func (t *LocationTracker) GetLastPosition() *domain.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return nil
	}
	p := *t.last
	return &p
}

// accept applies the staleness and movement filters and records the sample
// when it passes.
func (t *LocationTracker) accept(pos domain.Position) bool {
	if !pos.Valid() {
		return false
	}
	if t.now().Sub(pos.Time) > t.cfg.MaxSampleAge {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.last != nil {
		moved := geospatial.Haversine(t.last.Lat, t.last.Lon, pos.Lat, pos.Lon)
		if moved < t.cfg.MinMovementMeters {
			return false
		}
	}
	p := pos
	t.last = &p
	return true
}

// watchdog reports a TIMEOUT whenever the source goes quiet for longer than
// the sample timeout. It keeps firing once per quiet interval until the
// stream resumes or the handle stops.
func (t *LocationTracker) watchdog(h *TrackingHandle, onError func(ports.TrackErrorKind)) {
	timer := time.NewTimer(t.cfg.SampleTimeout)
	defer timer.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-h.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(t.cfg.SampleTimeout)
		case <-timer.C:
			onError(ports.ErrKindTimeout)
			timer.Reset(t.cfg.SampleTimeout)
		}
	}
}

func (t *LocationTracker) clearHandle(h *TrackingHandle) {
	t.mu.Lock()
	if t.handle == h {
		t.handle = nil
	}
	t.mu.Unlock()
}
