package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
	"github.com/samirrijal/fieldtrace/internal/core/ports"
	"github.com/samirrijal/fieldtrace/internal/pkg/metrics"
)

const (
	activeTaskCacheTTL = 60 // seconds
	employeeCacheTTL   = 300
)

// LiveTrackingService drives one position event through the full pipeline:
// resolve the employee and their active task, evaluate the decision, update
// the session store, persist the route sample, and publish the live update.
//
// Out-of-order events update nothing and publish nothing; the store's
// event-time ordering is the arbiter. cache may be nil, in which case every
// lookup goes to the repositories.
type LiveTrackingService struct {
	engine    *DecisionEngine
	store     *LiveSessionStore
	employees ports.EmployeeRepository
	tasks     ports.TaskRepository
	routes    ports.RouteSampleRepository
	cache     ports.CacheService
	pub       ports.EventPublisher
	log       *slog.Logger
}

// NewLiveTrackingService wires the pipeline.
func NewLiveTrackingService(
	engine *DecisionEngine,
	store *LiveSessionStore,
	employees ports.EmployeeRepository,
	tasks ports.TaskRepository,
	routes ports.RouteSampleRepository,
	cache ports.CacheService,
	pub ports.EventPublisher,
	log *slog.Logger,
) *LiveTrackingService {
	return &LiveTrackingService{
		engine:    engine,
		store:     store,
		employees: employees,
		tasks:     tasks,
		routes:    routes,
		cache:     cache,
		pub:       pub,
		log:       log,
	}
}

// HandlePosition processes one inbound sample. Returning an error means the
// event should be redelivered; dropped stale or out-of-order samples return
// nil because redelivery cannot fix them.
func (s *LiveTrackingService) HandlePosition(ctx context.Context, ev *ports.PositionEvent) error {
	if ev == nil || ev.EmployeeID == "" {
		return errors.New("position event without employee id")
	}
	metrics.PositionsIngested.Inc()
	if !ev.Position.Valid() {
		metrics.PositionsDropped.WithLabelValues("invalid").Inc()
		s.log.Warn("dropping invalid position sample", "employee_id", ev.EmployeeID)
		return nil
	}

	emp, err := s.resolveEmployee(ctx, ev.EmployeeID)
	if err != nil {
		return fmt.Errorf("resolve employee %s: %w", ev.EmployeeID, err)
	}

	task, err := s.resolveActiveTask(ctx, ev.EmployeeID)
	if err != nil {
		return fmt.Errorf("resolve active task for %s: %w", ev.EmployeeID, err)
	}

	var taskID string
	var target *domain.GeofenceTarget
	if task != nil {
		taskID = task.ID
		target = task.Target
	}

	decision, err := s.engine.Evaluate(ctx, EvaluateInput{
		EmployeeID: ev.EmployeeID,
		TaskID:     taskID,
		Position:   ev.Position,
		Target:     target,
	})
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", ev.EmployeeID, err)
	}
	metrics.DecisionsEvaluated.WithLabelValues(string(decision.WorkStatus)).Inc()

	status := statusFor(decision)
	patch := TrackedPatch{
		Position: &ev.Position,
		Status:   &status,
		Decision: &decision,
	}
	if emp != nil {
		patch.Name = &emp.Name
		patch.Role = &emp.Role
	}
	if !s.store.Upsert(ev.EmployeeID, patch) {
		metrics.PositionsDropped.WithLabelValues("out_of_order").Inc()
		s.log.Debug("dropped out-of-order sample",
			"employee_id", ev.EmployeeID, "sample_time", ev.Position.Time)
		return nil
	}

	sample := domain.RouteSample{GeoPoint: ev.Position.GeoPoint, Time: ev.Position.Time}
	if err := s.routes.Insert(ctx, ev.EmployeeID, &sample); err != nil {
		return fmt.Errorf("persist route sample: %w", err)
	}

	up := &domain.LiveUpdate{
		ID:       ev.EmployeeID,
		Lat:      ev.Position.Lat,
		Lng:      ev.Position.Lon,
		Status:   status,
		Decision: decision,
	}
	if emp != nil {
		up.Name = emp.Name
		up.Role = emp.Role
	}
	if err := s.pub.PublishLiveUpdate(ctx, up); err != nil {
		return fmt.Errorf("publish live update: %w", err)
	}
	return nil
}

// Snapshot returns the current live records, sorted by employee id.
func (s *LiveTrackingService) Snapshot() []domain.TrackedEmployee {
	return s.store.GetAll()
}

// Employee returns one live record, or nil if the employee was never seen.
func (s *LiveTrackingService) Employee(employeeID string) *domain.TrackedEmployee {
	return s.store.Get(employeeID)
}

// SweepOffline marks stale sessions OFFLINE and returns how many changed.
func (s *LiveTrackingService) SweepOffline(staleAfter time.Duration) int {
	n := s.store.SweepOffline(staleAfter, time.Now())
	if n > 0 {
		metrics.SessionsSweptOffline.Add(float64(n))
		s.log.Info("marked stale sessions offline", "count", n)
	}
	return n
}

func statusFor(d domain.Decision) domain.EmployeeStatus {
	if d.WorkStatus == domain.StatusIdle {
		return domain.EmployeeIdle
	}
	return domain.EmployeeOnline
}

// resolveEmployee reads through the cache; a miss falls back to the
// repository and refills it. An unknown employee is not an error, the record
// simply carries no name.
func (s *LiveTrackingService) resolveEmployee(ctx context.Context, employeeID string) (*domain.Employee, error) {
	key := "employee:" + employeeID
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil && raw != nil {
			var emp domain.Employee
			if err := json.Unmarshal(raw, &emp); err == nil {
				return &emp, nil
			}
		}
	}

	emp, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if emp != nil && s.cache != nil {
		if raw, err := json.Marshal(emp); err == nil {
			_ = s.cache.Set(ctx, key, raw, employeeCacheTTL)
		}
	}
	return emp, nil
}

func (s *LiveTrackingService) resolveActiveTask(ctx context.Context, employeeID string) (*domain.Task, error) {
	key := "task:active:" + employeeID
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil && raw != nil {
			var task domain.Task
			if err := json.Unmarshal(raw, &task); err == nil {
				return &task, nil
			}
		}
	}

	task, err := s.tasks.ActiveTask(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if task != nil && s.cache != nil {
		if raw, err := json.Marshal(task); err == nil {
			_ = s.cache.Set(ctx, key, raw, activeTaskCacheTTL)
		}
	}
	return task, nil
}
