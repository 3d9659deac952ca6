package usecases_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
	"github.com/samirrijal/fieldtrace/internal/core/ports"
	"github.com/samirrijal/fieldtrace/internal/core/usecases"
)

// --- Mocks ---

type mockEmployeeRepo struct {
	upsertFn  func(ctx context.Context, emp *domain.Employee) error
	getByIDFn func(ctx context.Context, id string) (*domain.Employee, error)
	listFn    func(ctx context.Context) ([]domain.Employee, error)
}

func (m *mockEmployeeRepo) Upsert(ctx context.Context, emp *domain.Employee) error {
	return m.upsertFn(ctx, emp)
}
func (m *mockEmployeeRepo) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockEmployeeRepo) List(ctx context.Context) ([]domain.Employee, error) {
	return m.listFn(ctx)
}

type mockTaskRepo struct {
	upsertFn       func(ctx context.Context, task *domain.Task) error
	getByIDFn      func(ctx context.Context, id string) (*domain.Task, error)
	activeTaskFn   func(ctx context.Context, employeeID string) (*domain.Task, error)
	assignTargetFn func(ctx context.Context, taskID string, target domain.GeofenceTarget) error
}

func (m *mockTaskRepo) Upsert(ctx context.Context, task *domain.Task) error {
	return m.upsertFn(ctx, task)
}
func (m *mockTaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockTaskRepo) ActiveTask(ctx context.Context, employeeID string) (*domain.Task, error) {
	return m.activeTaskFn(ctx, employeeID)
}
func (m *mockTaskRepo) AssignTarget(ctx context.Context, taskID string, target domain.GeofenceTarget) error {
	return m.assignTargetFn(ctx, taskID, target)
}

type mockRouteRepo struct {
	insertFn     func(ctx context.Context, employeeID string, sample *domain.RouteSample) error
	listByDateFn func(ctx context.Context, employeeID string, date time.Time) ([]domain.RouteSample, error)
}

func (m *mockRouteRepo) Insert(ctx context.Context, employeeID string, sample *domain.RouteSample) error {
	return m.insertFn(ctx, employeeID, sample)
}
func (m *mockRouteRepo) ListByDate(ctx context.Context, employeeID string, date time.Time) ([]domain.RouteSample, error) {
	return m.listByDateFn(ctx, employeeID, date)
}

type memCache struct {
	data map[string][]byte
	hits int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := c.data[key]
	if !ok {
		return nil, nil
	}
	c.hits++
	return v, nil
}
func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.data[key] = value
	return nil
}
func (c *memCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

type mockPublisher struct {
	liveUpdates []*domain.LiveUpdate
	idleAlerts  []*domain.IdleAlert
}

func (m *mockPublisher) PublishPosition(ctx context.Context, ev *ports.PositionEvent) error {
	return nil
}
func (m *mockPublisher) PublishLiveUpdate(ctx context.Context, up *domain.LiveUpdate) error {
	m.liveUpdates = append(m.liveUpdates, up)
	return nil
}
func (m *mockPublisher) PublishIdleAlert(ctx context.Context, alert *domain.IdleAlert) error {
	m.idleAlerts = append(m.idleAlerts, alert)
	return nil
}
func (m *mockPublisher) PublishBroadcast(ctx context.Context, data []byte) error {
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Fixture ---

type liveFixture struct {
	svc    *usecases.LiveTrackingService
	store  *usecases.LiveSessionStore
	pub    *mockPublisher
	cache  *memCache
	routes []domain.RouteSample
	tasks  *mockTaskRepo
}

func newLiveFixture(t *testing.T) *liveFixture {
	t.Helper()

	f := &liveFixture{
		store: usecases.NewLiveSessionStore(),
		pub:   &mockPublisher{},
		cache: newMemCache(),
	}

	employees := &mockEmployeeRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Employee, error) {
			return &domain.Employee{ID: id, Name: "Asha", Role: "technician"}, nil
		},
	}
	f.tasks = &mockTaskRepo{
		activeTaskFn: func(ctx context.Context, employeeID string) (*domain.Task, error) {
			return &domain.Task{ID: "t1", EmployeeID: employeeID, Target: delhiTarget}, nil
		},
	}
	routes := &mockRouteRepo{
		insertFn: func(ctx context.Context, employeeID string, sample *domain.RouteSample) error {
			f.routes = append(f.routes, *sample)
			return nil
		},
	}

	engine := usecases.NewDecisionEngine(newMockPunchRepo(), usecases.DecisionEngineConfig{})
	f.svc = usecases.NewLiveTrackingService(
		engine, f.store, employees, f.tasks, routes, f.cache, f.pub, discardLogger())
	return f
}

// --- Tests ---

func TestHandlePosition_FullPipeline(t *testing.T) {
	f := newLiveFixture(t)

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	err := f.svc.HandlePosition(context.Background(), &ports.PositionEvent{
		EmployeeID: "e1",
		Position:   posAt(28.6145, 77.2090, now),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := f.svc.Employee("e1")
	if rec == nil {
		t.Fatal("expected session record")
	}
	if rec.Name != "Asha" || rec.Status != domain.EmployeeOnline {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.LastDecision == nil || rec.LastDecision.WorkStatus != domain.StatusWorking {
		t.Errorf("expected a WORKING decision in the store: %+v", rec.LastDecision)
	}

	if len(f.routes) != 1 {
		t.Fatalf("expected one persisted route sample, got %d", len(f.routes))
	}
	if len(f.pub.liveUpdates) != 1 {
		t.Fatalf("expected one live update, got %d", len(f.pub.liveUpdates))
	}
	up := f.pub.liveUpdates[0]
	if up.ID != "e1" || up.Decision.WorkStatus != domain.StatusWorking {
		t.Errorf("unexpected live update: %+v", up)
	}
}

func TestHandlePosition_OutOfOrderPublishesNothing(t *testing.T) {
	f := newLiveFixture(t)

	t2 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	if err := f.svc.HandlePosition(context.Background(), &ports.PositionEvent{
		EmployeeID: "e1", Position: posAt(28.6145, 77.2090, t2),
	}); err != nil {
		t.Fatalf("first: %v", err)
	}

	err := f.svc.HandlePosition(context.Background(), &ports.PositionEvent{
		EmployeeID: "e1", Position: posAt(28.6146, 77.2090, t2.Add(-time.Minute)),
	})
	if err != nil {
		t.Fatalf("stale sample must not be an error: %v", err)
	}

	if len(f.pub.liveUpdates) != 1 {
		t.Errorf("stale sample must not publish, got %d updates", len(f.pub.liveUpdates))
	}
	if len(f.routes) != 1 {
		t.Errorf("stale sample must not be persisted, got %d", len(f.routes))
	}
	if !f.svc.Employee("e1").LastPosition.Time.Equal(t2) {
		t.Error("store must keep the newer position")
	}
}

func TestHandlePosition_NoActiveTask(t *testing.T) {
	f := newLiveFixture(t)
	f.tasks.activeTaskFn = func(ctx context.Context, employeeID string) (*domain.Task, error) {
		return nil, nil
	}

	err := f.svc.HandlePosition(context.Background(), &ports.PositionEvent{
		EmployeeID: "e1", Position: posAt(28.6145, 77.2090, time.Now()),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := f.svc.Employee("e1")
	if rec.LastDecision.WorkStatus != domain.StatusNotWorking {
		t.Errorf("expected NOT_WORKING without a task, got %s", rec.LastDecision.WorkStatus)
	}
	if rec.LastDecision.BlockedReason == nil || *rec.LastDecision.BlockedReason != domain.BlockedNoTarget {
		t.Errorf("expected NO_TARGET, got %v", rec.LastDecision.BlockedReason)
	}
}

func TestHandlePosition_InvalidSampleDropped(t *testing.T) {
	f := newLiveFixture(t)

	err := f.svc.HandlePosition(context.Background(), &ports.PositionEvent{
		EmployeeID: "e1", Position: posAt(123.0, 77.2090, time.Now()),
	})
	if err != nil {
		t.Fatalf("invalid coordinates are dropped, not errored: %v", err)
	}
	if len(f.pub.liveUpdates) != 0 {
		t.Error("invalid sample must not publish")
	}

	if err := f.svc.HandlePosition(context.Background(), &ports.PositionEvent{EmployeeID: ""}); err == nil {
		t.Error("missing employee id must error")
	}
}

func TestHandlePosition_CachesTaskLookup(t *testing.T) {
	f := newLiveFixture(t)
	lookups := 0
	f.tasks.activeTaskFn = func(ctx context.Context, employeeID string) (*domain.Task, error) {
		lookups++
		return &domain.Task{ID: "t1", EmployeeID: employeeID, Target: delhiTarget}, nil
	}

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := f.svc.HandlePosition(context.Background(), &ports.PositionEvent{
			EmployeeID: "e1",
			Position:   posAt(28.6145, 77.2090, base.Add(time.Duration(i)*time.Minute)),
		})
		if err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
	}

	if lookups != 1 {
		t.Errorf("expected one repository lookup with a warm cache, got %d", lookups)
	}
}

func TestHandlePosition_NoCache(t *testing.T) {
	employees := &mockEmployeeRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Employee, error) {
			return &domain.Employee{ID: id, Name: "Asha", Role: "technician"}, nil
		},
	}
	tasks := &mockTaskRepo{
		activeTaskFn: func(ctx context.Context, employeeID string) (*domain.Task, error) {
			return &domain.Task{ID: "t1", EmployeeID: employeeID, Target: delhiTarget}, nil
		},
	}
	routes := &mockRouteRepo{
		insertFn: func(ctx context.Context, employeeID string, sample *domain.RouteSample) error {
			return nil
		},
	}
	engine := usecases.NewDecisionEngine(newMockPunchRepo(), usecases.DecisionEngineConfig{})
	svc := usecases.NewLiveTrackingService(
		engine, usecases.NewLiveSessionStore(), employees, tasks, routes,
		nil, &mockPublisher{}, discardLogger())

	err := svc.HandlePosition(context.Background(), &ports.PositionEvent{
		EmployeeID: "e1",
		Position:   posAt(28.6145, 77.2090, time.Now()),
	})
	if err != nil {
		t.Fatalf("pipeline must run without a cache: %v", err)
	}

	rec := svc.Employee("e1")
	if rec == nil || rec.Name != "Asha" {
		t.Fatalf("expected a resolved session record, got %+v", rec)
	}
	if rec.LastDecision == nil || rec.LastDecision.WorkStatus != domain.StatusWorking {
		t.Errorf("expected a WORKING decision, got %+v", rec.LastDecision)
	}
}

func TestSweepOffline_ThroughService(t *testing.T) {
	f := newLiveFixture(t)

	old := time.Now().Add(-10 * time.Minute)
	if err := f.svc.HandlePosition(context.Background(), &ports.PositionEvent{
		EmployeeID: "e1", Position: posAt(28.6145, 77.2090, old),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if n := f.svc.SweepOffline(5 * time.Minute); n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}
	if got := f.svc.Employee("e1").Status; got != domain.EmployeeOffline {
		t.Errorf("expected OFFLINE, got %s", got)
	}
}
