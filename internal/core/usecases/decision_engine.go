package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
	"github.com/samirrijal/fieldtrace/internal/core/ports"
	"github.com/samirrijal/fieldtrace/internal/pkg/geospatial"
	"github.com/samirrijal/fieldtrace/internal/pkg/metrics"
)

// DecisionEngineConfig holds the engine thresholds. Zero values fall back to
// the documented defaults.
type DecisionEngineConfig struct {
	DefaultRadiusMeters float64       // geofence radius when the target has none (default 200)
	IdleAfter           time.Duration // how long without qualifying movement counts as idle (default 20m)
	MinMovementMeters   float64       // movement below this does not reset the idle timer (default 10)
}

func (c DecisionEngineConfig) withDefaults() DecisionEngineConfig {
	if c.DefaultRadiusMeters <= 0 {
		c.DefaultRadiusMeters = domain.DefaultGeofenceRadiusMeters
	}
	if c.IdleAfter <= 0 {
		c.IdleAfter = 20 * time.Minute
	}
	if c.MinMovementMeters <= 0 {
		c.MinMovementMeters = 10
	}
	return c
}

// EvaluateInput is one sample to decide on.
type EvaluateInput struct {
	EmployeeID string
	TaskID     string
	Position   domain.Position
	Target     *domain.GeofenceTarget // nil when the task has no customer address
}

// DecisionEngine is the authoritative function from (position, geofence
// target, punch state) to a Decision. It is the system of record for "can
// this employee do work right now"; every consumer renders its output as-is.
//
// Bad input never produces an error; it produces a Decision describing the
// problem. Errors are returned only for punch-store failures.
type DecisionEngine struct {
	punches ports.PunchRepository
	cfg     DecisionEngineConfig

	mu       sync.Mutex
	movement map[string]*movementState // employeeID|taskID
}

type movementState struct {
	last        domain.GeoPoint
	lastMovedAt time.Time
}

// NewDecisionEngine creates an engine backed by the given punch store.
func NewDecisionEngine(punches ports.PunchRepository, cfg DecisionEngineConfig) *DecisionEngine {
	return &DecisionEngine{
		punches:  punches,
		cfg:      cfg.withDefaults(),
		movement: make(map[string]*movementState),
	}
}

// Evaluate computes the canonical Decision for one sample.
//
// Entering the geofence without an active punch performs the punch-in
// transition (auto-punch). Re-entering while already punched in does nothing
// and yields the same WORKING decision, so feeding the same position twice
// is safe.
func (e *DecisionEngine) Evaluate(ctx context.Context, in EvaluateInput) (domain.Decision, error) {
	if !in.Position.Valid() || (in.Target != nil && !in.Target.GeoPoint.Valid()) {
		return blockedDecision(domain.StatusNotWorking, domain.BlockedInvalidLocation,
			"Location is invalid or unavailable; cannot verify site presence."), nil
	}

	if in.Target == nil {
		return blockedDecision(domain.StatusNotWorking, domain.BlockedNoTarget,
			"No customer address is assigned to this task."), nil
	}

	radius := in.Target.RadiusMeters
	if radius <= 0 {
		radius = e.cfg.DefaultRadiusMeters
	}

	dist := geospatial.Haversine(in.Position.Lat, in.Position.Lon, in.Target.Lat, in.Target.Lon)
	within := dist <= radius

	idleFor := e.trackMovement(in.EmployeeID, in.TaskID, in.Position)

	if !within {
		reason := domain.BlockedOutsideGeofence
		return domain.Decision{
			WorkStatus:         domain.StatusNotAtCustomer,
			DistanceToCustomer: &dist,
			WithinGeofence:     false,
			CanOperateTask:     false,
			BlockedReason:      &reason,
			Message:            fmt.Sprintf("You are %.0fm away; must be within %.0fm of the customer site.", dist, radius),
		}, nil
	}

	if idleFor >= e.cfg.IdleAfter {
		return domain.Decision{
			WorkStatus:         domain.StatusIdle,
			DistanceToCustomer: &dist,
			WithinGeofence:     true,
			CanOperateTask:     false,
			Message:            fmt.Sprintf("No movement for %.0f minutes at the customer site.", idleFor.Minutes()),
		}, nil
	}

	punch, err := e.punches.ActivePunch(ctx, in.EmployeeID, in.TaskID)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("active punch lookup: %w", err)
	}

	msg := fmt.Sprintf("Working at the customer site (%.0fm from the address).", dist)
	if punch == nil {
		if _, err := e.punches.PunchIn(ctx, in.EmployeeID, in.TaskID, in.Position.Time); err != nil {
			return domain.Decision{}, fmt.Errorf("auto punch-in: %w", err)
		}
		metrics.AutoPunchIns.Inc()
		msg = fmt.Sprintf("Punched in at the customer site, %.0fm from the address.", dist)
	}

	return domain.Decision{
		WorkStatus:         domain.StatusWorking,
		DistanceToCustomer: &dist,
		WithinGeofence:     true,
		CanOperateTask:     true,
		Message:            msg,
	}, nil
}

// trackMovement updates the per-pair movement state and returns how long the
// employee has been without qualifying movement, measured in event time.
func (e *DecisionEngine) trackMovement(employeeID, taskID string, pos domain.Position) time.Duration {
	key := employeeID + "|" + taskID

	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.movement[key]
	if !ok {
		e.movement[key] = &movementState{last: pos.GeoPoint, lastMovedAt: pos.Time}
		return 0
	}

	moved := geospatial.Haversine(st.last.Lat, st.last.Lon, pos.Lat, pos.Lon)
	if moved >= e.cfg.MinMovementMeters {
		st.last = pos.GeoPoint
		st.lastMovedAt = pos.Time
		return 0
	}

	return pos.Time.Sub(st.lastMovedAt)
}

func blockedDecision(status domain.WorkStatus, reason, msg string) domain.Decision {
	return domain.Decision{
		WorkStatus:     status,
		WithinGeofence: false,
		CanOperateTask: false,
		BlockedReason:  &reason,
		Message:        msg,
	}
}
