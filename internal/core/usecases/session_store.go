package usecases

import (
	"sort"
	"sync"
	"time"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
)

// TrackedPatch is a partial update for one tracked employee. Nil fields are
// left untouched by Upsert.
type TrackedPatch struct {
	Name     *string
	Role     *string
	Position *domain.Position
	Status   *domain.EmployeeStatus
	Decision *domain.Decision
}

// LiveSessionStore is the process-wide keyed state for live tracking:
// latest position, status, and last decision per employee. Updated by
// inbound stream events, read by any number of consumer views.
//
// Locking is per employee key; there is no global write lock across
// employees. Entries are never deleted, only marked OFFLINE by SweepOffline.
type LiveSessionStore struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	mu  sync.Mutex
	rec domain.TrackedEmployee
}

// NewLiveSessionStore creates an empty store.
func NewLiveSessionStore() *LiveSessionStore {
	return &LiveSessionStore{entries: make(map[string]*sessionEntry)}
}

// Upsert merges a patch into the employee's record. Updates apply in event
// time: a patch whose position timestamp is older than the stored one is
// dropped entirely. That is expected network reordering, not an error.
// Returns whether the patch was applied.
//
// A first-seen employee starts ONLINE unless the patch says otherwise.
func (s *LiveSessionStore) Upsert(employeeID string, patch TrackedPatch) bool {
	e := s.entry(employeeID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if patch.Position != nil && e.rec.LastPosition != nil &&
		patch.Position.Time.Before(e.rec.LastPosition.Time) {
		return false
	}

	if e.rec.ID == "" {
		e.rec.ID = employeeID
		e.rec.Status = domain.EmployeeOnline
	}
	if patch.Name != nil {
		e.rec.Name = *patch.Name
	}
	if patch.Role != nil {
		e.rec.Role = *patch.Role
	}
	if patch.Position != nil {
		p := *patch.Position
		e.rec.LastPosition = &p
	}
	if patch.Status != nil {
		e.rec.Status = *patch.Status
	}
	if patch.Decision != nil {
		d := *patch.Decision
		e.rec.LastDecision = &d
	}
	e.rec.UpdatedAt = time.Now()
	return true
}

// Get returns a copy of the employee's record, or nil if never seen.
func (s *LiveSessionStore) Get(employeeID string) *domain.TrackedEmployee {
	s.mu.RLock()
	e, ok := s.entries[employeeID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.rec
	return &rec
}

// GetAll returns copies of all records, sorted by employee id for a stable
// UI order.
func (s *LiveSessionStore) GetAll() []domain.TrackedEmployee {
	s.mu.RLock()
	entries := make([]*sessionEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]domain.TrackedEmployee, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.rec)
		e.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SweepOffline marks employees with no position newer than the timeout as
// OFFLINE. Returns how many records changed.
func (s *LiveSessionStore) SweepOffline(staleAfter time.Duration, now time.Time) int {
	s.mu.RLock()
	entries := make([]*sessionEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	changed := 0
	for _, e := range entries {
		e.mu.Lock()
		last := e.rec.UpdatedAt
		if e.rec.LastPosition != nil {
			last = e.rec.LastPosition.Time
		}
		if e.rec.Status != domain.EmployeeOffline && now.Sub(last) >= staleAfter {
			e.rec.Status = domain.EmployeeOffline
			changed++
		}
		e.mu.Unlock()
	}
	return changed
}

func (s *LiveSessionStore) entry(employeeID string) *sessionEntry {
	s.mu.RLock()
	e, ok := s.entries[employeeID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[employeeID]; ok {
		return e
	}
	e = &sessionEntry{}
	s.entries[employeeID] = e
	return e
}
