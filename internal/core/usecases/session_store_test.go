package usecases_test

import (
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
	"github.com/samirrijal/fieldtrace/internal/core/usecases"
)

func strPtr(s string) *string { return &s }

func positionAt(t time.Time) *domain.Position {
	return &domain.Position{GeoPoint: domain.GeoPoint{Lat: 28.61, Lon: 77.20}, Time: t}
}

func TestSessionStore_FirstSightDefaults(t *testing.T) {
	store := usecases.NewLiveSessionStore()

	ok := store.Upsert("e1", usecases.TrackedPatch{Name: strPtr("Asha")})
	if !ok {
		t.Fatal("first upsert must apply")
	}

	rec := store.Get("e1")
	if rec == nil {
		t.Fatal("expected record")
	}
	if rec.Status != domain.EmployeeOnline {
		t.Errorf("first sight defaults to ONLINE, got %s", rec.Status)
	}
	if rec.Name != "Asha" {
		t.Errorf("expected name Asha, got %q", rec.Name)
	}
}

func TestSessionStore_MergePreservesAbsentFields(t *testing.T) {
	store := usecases.NewLiveSessionStore()

	store.Upsert("e1", usecases.TrackedPatch{Name: strPtr("Asha"), Role: strPtr("technician")})
	store.Upsert("e1", usecases.TrackedPatch{Position: positionAt(time.Now())})

	rec := store.Get("e1")
	if rec.Name != "Asha" || rec.Role != "technician" {
		t.Errorf("absent patch fields must be preserved: %+v", rec)
	}
	if rec.LastPosition == nil {
		t.Error("position patch was lost")
	}
}

func TestSessionStore_OutOfOrderDropped(t *testing.T) {
	store := usecases.NewLiveSessionStore()

	t2 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	t1 := t2.Add(-time.Minute)

	store.Upsert("e1", usecases.TrackedPatch{Position: positionAt(t2)})

	working := domain.Decision{WorkStatus: domain.StatusWorking}
	ok := store.Upsert("e1", usecases.TrackedPatch{Position: positionAt(t1), Decision: &working})
	if ok {
		t.Error("older update must be dropped")
	}

	rec := store.Get("e1")
	if !rec.LastPosition.Time.Equal(t2) {
		t.Errorf("expected position at t2, got %s", rec.LastPosition.Time)
	}
	if rec.LastDecision != nil {
		t.Error("dropped update must not apply any of its fields")
	}
}

func TestSessionStore_GetUnknown(t *testing.T) {
	store := usecases.NewLiveSessionStore()
	if rec := store.Get("nobody"); rec != nil {
		t.Errorf("expected nil, got %+v", rec)
	}
}

func TestSessionStore_GetAllSorted(t *testing.T) {
	store := usecases.NewLiveSessionStore()
	store.Upsert("e3", usecases.TrackedPatch{})
	store.Upsert("e1", usecases.TrackedPatch{})
	store.Upsert("e2", usecases.TrackedPatch{})

	all := store.GetAll()
	if len(all) != 3 {
		t.Fatalf("expected 3, got %d", len(all))
	}
	if all[0].ID != "e1" || all[1].ID != "e2" || all[2].ID != "e3" {
		t.Errorf("expected sorted ids, got %v %v %v", all[0].ID, all[1].ID, all[2].ID)
	}
}

func TestSessionStore_SweepOffline(t *testing.T) {
	store := usecases.NewLiveSessionStore()

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	store.Upsert("stale", usecases.TrackedPatch{Position: positionAt(now.Add(-10 * time.Minute))})
	store.Upsert("fresh", usecases.TrackedPatch{Position: positionAt(now.Add(-1 * time.Minute))})

	changed := store.SweepOffline(5*time.Minute, now)
	if changed != 1 {
		t.Fatalf("expected 1 change, got %d", changed)
	}

	if got := store.Get("stale").Status; got != domain.EmployeeOffline {
		t.Errorf("stale employee should be OFFLINE, got %s", got)
	}
	if got := store.Get("fresh").Status; got != domain.EmployeeOnline {
		t.Errorf("fresh employee should stay ONLINE, got %s", got)
	}

	// The record is marked, never removed.
	if store.Get("stale") == nil {
		t.Error("offline entries must not be deleted")
	}

	// Sweeping again changes nothing.
	if changed := store.SweepOffline(5*time.Minute, now); changed != 0 {
		t.Errorf("second sweep should be a no-op, got %d", changed)
	}
}

func TestSessionStore_ConcurrentUpserts(t *testing.T) {
	store := usecases.NewLiveSessionStore()

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%5))
			store.Upsert(id, usecases.TrackedPatch{
				Position: positionAt(base.Add(time.Duration(i) * time.Second)),
			})
		}(i)
	}
	wg.Wait()

	if len(store.GetAll()) != 5 {
		t.Errorf("expected 5 employees, got %d", len(store.GetAll()))
	}
}
