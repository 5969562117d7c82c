// Package memory provides an in-memory leave.Store for tests and development.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// MEMORY STORE - Full-snapshot semantics, safe for concurrent use
// =============================================================================

type Store struct {
	mu        sync.RWMutex
	profiles  map[string]leave.Profile
	pending   []leave.PendingRequest
	events    []leave.EventEntry
	dayStatus map[string]map[string]string
}

func New() *Store {
	return &Store{
		profiles:  make(map[string]leave.Profile),
		dayStatus: make(map[string]map[string]string),
	}
}

// -----------------------------------------------------------------------------
// ProfileStore
// -----------------------------------------------------------------------------

func (s *Store) LoadProfiles(_ context.Context) (map[string]leave.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyProfiles(s.profiles), nil
}

func (s *Store) SaveProfiles(_ context.Context, profiles map[string]leave.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = copyProfiles(profiles)
	return nil
}

// copyProfiles deep-copies the audit slices so callers never share a
// backing array with the store.
func copyProfiles(in map[string]leave.Profile) map[string]leave.Profile {
	out := make(map[string]leave.Profile, len(in))
	for id, p := range in {
		if p.Audit != nil {
			audit := make([]leave.AuditEvent, len(p.Audit))
			copy(audit, p.Audit)
			p.Audit = audit
		}
		if p.SeniorityDate != nil {
			d := *p.SeniorityDate
			p.SeniorityDate = &d
		}
		out[id] = p
	}
	return out
}

// -----------------------------------------------------------------------------
// PendingStore
// -----------------------------------------------------------------------------

func (s *Store) LoadPending(_ context.Context) ([]leave.PendingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]leave.PendingRequest, len(s.pending))
	copy(out, s.pending)
	return out, nil
}

func (s *Store) AppendPending(_ context.Context, r leave.PendingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Type == "" {
		r.Type = leave.TypeVacation
	}
	r.Status = leave.StatusPending
	s.pending = append(s.pending, r)
	return nil
}

// RemovePending removes only the FIRST match, preserving accidental
// duplicates for callers to handle.
func (s *Store) RemovePending(_ context.Context, person, date string, typ leave.LeaveType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.pending {
		if r.Person == person && r.Date == date && strings.EqualFold(string(r.Type), string(typ)) {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// -----------------------------------------------------------------------------
// EventLog
// -----------------------------------------------------------------------------

func (s *Store) AppendEvent(_ context.Context, e leave.EventEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *Store) ListEvents(_ context.Context) ([]leave.EventEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]leave.EventEntry, len(s.events))
	copy(out, s.events)
	return out, nil
}

// -----------------------------------------------------------------------------
// DayStatusStore
// -----------------------------------------------------------------------------

func (s *Store) LoadDayStatus(_ context.Context) (map[string]map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyDayStatus(s.dayStatus), nil
}

func (s *Store) SaveDayStatus(_ context.Context, m map[string]map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dayStatus = copyDayStatus(m)
	return nil
}

func copyDayStatus(in map[string]map[string]string) map[string]map[string]string {
	out := make(map[string]map[string]string, len(in))
	for date, day := range in {
		cp := make(map[string]string, len(day))
		for person, status := range day {
			cp[person] = status
		}
		out[date] = cp
	}
	return out
}

var _ leave.Store = (*Store)(nil)
