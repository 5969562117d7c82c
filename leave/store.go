/*
store.go - Storage collaborator contracts

PURPOSE:
  The core is storage-agnostic. These four narrow interfaces are everything
  it consumes from durable storage. Snapshot interfaces (profiles, day
  status) are load/replace-all: any component may read the full snapshot,
  mutate it in memory, and persist the full snapshot back. No row-level
  persistence exists; an implementation may strengthen this with per-record
  locking or optimistic versioning without changing the contracts.

IMPLEMENTATIONS:
  - store/memory: in-memory, for tests and development
  - store/sqlite: durable, production

DURABILITY MODEL:
  Last-writer-wins full-record overwrite. Within a mutating operation the
  sequence is event-log append, ledger mutate, queue mutate, audit append;
  a later-step failure does not roll back earlier durable writes.
*/
package leave

import "context"

// ProfileStore owns the person profiles. Load returns an independent copy;
// Save replaces the whole snapshot.
type ProfileStore interface {
	LoadProfiles(ctx context.Context) (map[string]Profile, error)
	SaveProfiles(ctx context.Context, profiles map[string]Profile) error
}

// PendingStore holds the working set of un-decided vacation requests.
// RemovePending removes the FIRST entry matching (person, date, type) and
// reports whether anything was removed; duplicates added by mistake are
// preserved so callers can loop.
type PendingStore interface {
	LoadPending(ctx context.Context) ([]PendingRequest, error)
	AppendPending(ctx context.Context, r PendingRequest) error
	RemovePending(ctx context.Context, person, date string, typ LeaveType) (bool, error)
}

// EventLog is the append-only history of every request outcome.
// ListEvents returns a defensive copy; there is no update or delete.
type EventLog interface {
	AppendEvent(ctx context.Context, e EventEntry) error
	ListEvents(ctx context.Context) ([]EventEntry, error)
}

// DayStatusStore maps date -> person -> status label. Absent entries mean
// Available. Load returns an independent copy; Save replaces the snapshot.
type DayStatusStore interface {
	LoadDayStatus(ctx context.Context) (map[string]map[string]string, error)
	SaveDayStatus(ctx context.Context, m map[string]map[string]string) error
}

// Store bundles the four contracts for implementations that provide all of
// them behind one handle.
type Store interface {
	ProfileStore
	PendingStore
	EventLog
	DayStatusStore
}
