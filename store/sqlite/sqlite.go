/*
Package sqlite provides a SQLite-backed implementation of leave.Store.

PURPOSE:
  Implements all four persistence interfaces (ProfileStore, PendingStore,
  EventLog, DayStatusStore) using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  profiles:   Snapshot of every person's balances and metadata
  pending:    Working set of un-decided vacation days
  events:     Immutable, append-only request history
  day_status: Per-date, per-person roster labels

SNAPSHOT SEMANTICS:
  Profiles and day statuses are written as full snapshots inside a single
  transaction (DELETE then INSERT). The pending queue supports append and
  first-match removal; the event log supports append only - no UPDATE or
  DELETE statements ever touch the events table.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := leave.NewEngine(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: Interface definitions
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-ledger/leave"
)

// Store implements leave.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Profiles (full-snapshot writes)
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		rank TEXT NOT NULL DEFAULT '',
		squad TEXT NOT NULL DEFAULT '',
		call_sign TEXT NOT NULL DEFAULT '',
		sector TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		vacation_left TEXT NOT NULL DEFAULT '0',
		vacation_used_today TEXT NOT NULL DEFAULT '0',
		sick_left TEXT NOT NULL DEFAULT '0',
		sick_used_ytd TEXT NOT NULL DEFAULT '0',
		hours_per_day TEXT NOT NULL DEFAULT '0',
		seniority_date TEXT,
		over_cap_approved INTEGER NOT NULL DEFAULT 0,
		entitlement_days_year INTEGER NOT NULL DEFAULT 0,
		entitlement_hours_year TEXT NOT NULL DEFAULT '0',
		carryover_in TEXT NOT NULL DEFAULT '0',
		carryover_hours TEXT NOT NULL DEFAULT '0',
		min_required_hours INTEGER NOT NULL DEFAULT 0,
		supervisor_alert INTEGER NOT NULL DEFAULT 0,
		accrual_year INTEGER NOT NULL DEFAULT 0,
		sick_reset_year INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		audit_json TEXT NOT NULL DEFAULT '[]'
	);

	-- Pending queue (working set, first-match removal)
	CREATE TABLE IF NOT EXISTS pending (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		person TEXT NOT NULL,
		date TEXT NOT NULL,
		type TEXT NOT NULL,
		hours TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		handled_by TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_pending_person_date
		ON pending(person, date);

	-- Events (append-only history; never updated, never deleted)
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		person TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		call_sign TEXT NOT NULL DEFAULT '',
		sector TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		type TEXT NOT NULL,
		hours TEXT NOT NULL,
		status TEXT NOT NULL,
		handled_by TEXT NOT NULL DEFAULT '',
		timestamp TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_person_date
		ON events(person, date);
	CREATE INDEX IF NOT EXISTS idx_events_status
		ON events(status);

	-- Day statuses (full-snapshot writes)
	CREATE TABLE IF NOT EXISTS day_status (
		date TEXT NOT NULL,
		person TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (date, person)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PROFILE STORE
// =============================================================================

func (s *Store) LoadProfiles(ctx context.Context) (map[string]leave.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, rank, squad, call_sign, sector, role,
		       vacation_left, vacation_used_today, sick_left, sick_used_ytd,
		       hours_per_day, seniority_date, over_cap_approved,
		       entitlement_days_year, entitlement_hours_year, carryover_in,
		       carryover_hours, min_required_hours, supervisor_alert,
		       accrual_year, sick_reset_year, active, audit_json
		FROM profiles
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	out := make(map[string]leave.Profile)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (s *Store) SaveProfiles(ctx context.Context, profiles map[string]leave.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM profiles`); err != nil {
		return fmt.Errorf("failed to clear profiles: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO profiles
		(id, first_name, last_name, rank, squad, call_sign, sector, role,
		 vacation_left, vacation_used_today, sick_left, sick_used_ytd,
		 hours_per_day, seniority_date, over_cap_approved,
		 entitlement_days_year, entitlement_hours_year, carryover_in,
		 carryover_hours, min_required_hours, supervisor_alert,
		 accrual_year, sick_reset_year, active, audit_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range profiles {
		auditJSON, _ := json.Marshal(p.Audit)
		var seniority any
		if p.SeniorityDate != nil && !p.SeniorityDate.IsZero() {
			seniority = p.SeniorityDate.String()
		}
		_, err := stmt.ExecContext(ctx,
			p.ID, p.FirstName, p.LastName, p.Rank, p.Squad, p.CallSign, p.Sector, string(p.Role),
			p.VacationLeft.String(), p.VacationUsedToday.String(),
			p.SickLeft.String(), p.SickUsedYTD.String(),
			p.HoursPerDay.String(), seniority, boolInt(p.OverCapApproved),
			p.EntitlementDaysYear, p.EntitlementHoursYear.String(), p.CarryoverIn.String(),
			p.CarryoverHours.String(), p.MinRequiredHours, boolInt(p.SupervisorAlert),
			p.AccrualYear, p.SickResetYear, boolInt(p.Active), string(auditJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to insert profile %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

func scanProfile(rows *sql.Rows) (leave.Profile, error) {
	var p leave.Profile
	var role string
	var vacLeft, vacUsed, sickLeft, sickUsed, hoursDay, entHours, carryIn, carryHours string
	var seniority sql.NullString
	var overCap, alert, active int
	var auditJSON string

	err := rows.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Rank, &p.Squad, &p.CallSign, &p.Sector, &role,
		&vacLeft, &vacUsed, &sickLeft, &sickUsed,
		&hoursDay, &seniority, &overCap,
		&p.EntitlementDaysYear, &entHours, &carryIn,
		&carryHours, &p.MinRequiredHours, &alert,
		&p.AccrualYear, &p.SickResetYear, &active, &auditJSON,
	)
	if err != nil {
		return p, fmt.Errorf("failed to scan profile: %w", err)
	}

	p.Role = leave.Role(role)
	p.VacationLeft = parseDecimal(vacLeft)
	p.VacationUsedToday = parseDecimal(vacUsed)
	p.SickLeft = parseDecimal(sickLeft)
	p.SickUsedYTD = parseDecimal(sickUsed)
	p.HoursPerDay = parseDecimal(hoursDay)
	p.EntitlementHoursYear = parseDecimal(entHours)
	p.CarryoverIn = parseDecimal(carryIn)
	p.CarryoverHours = parseDecimal(carryHours)
	p.OverCapApproved = overCap != 0
	p.SupervisorAlert = alert != 0
	p.Active = active != 0

	if seniority.Valid && seniority.String != "" {
		if d, err := leave.ParseDate(seniority.String); err == nil {
			p.SeniorityDate = &d
		}
	}
	if auditJSON != "" {
		// A corrupt trail loses audit history, never the profile itself.
		_ = json.Unmarshal([]byte(auditJSON), &p.Audit)
	}
	return p, nil
}

// =============================================================================
// PENDING STORE
// =============================================================================

func (s *Store) LoadPending(ctx context.Context) ([]leave.PendingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT person, date, type, hours, note, status, handled_by
		FROM pending ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending: %w", err)
	}
	defer rows.Close()

	var out []leave.PendingRequest
	for rows.Next() {
		var r leave.PendingRequest
		var typ, status, hours string
		if err := rows.Scan(&r.Person, &r.Date, &typ, &hours, &r.Note, &status, &r.HandledBy); err != nil {
			return nil, fmt.Errorf("failed to scan pending: %w", err)
		}
		r.Type = leave.LeaveType(typ)
		r.Status = leave.EventStatus(status)
		r.Hours = parseDecimal(hours)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) AppendPending(ctx context.Context, r leave.PendingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Type == "" {
		r.Type = leave.TypeVacation
	}
	r.Status = leave.StatusPending

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending (person, date, type, hours, note, status, handled_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.Person, r.Date, string(r.Type), r.Hours.String(), r.Note, string(r.Status), r.HandledBy)
	if err != nil {
		return fmt.Errorf("failed to append pending: %w", err)
	}
	return nil
}

// RemovePending deletes only the oldest matching row, preserving accidental
// duplicates for callers to handle.
func (s *Store) RemovePending(ctx context.Context, person, date string, typ leave.LeaveType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM pending WHERE seq = (
			SELECT MIN(seq) FROM pending
			WHERE person = ? AND date = ? AND LOWER(type) = LOWER(?)
		)
	`, person, date, string(typ))
	if err != nil {
		return false, fmt.Errorf("failed to remove pending: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// =============================================================================
// EVENT LOG
// =============================================================================

func (s *Store) AppendEvent(ctx context.Context, e leave.EventEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events
		(id, person, name, call_sign, sector, date, type, hours, status,
		 handled_by, timestamp, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.Person, e.Name, e.CallSign, e.Sector, e.Date, string(e.Type),
		e.Hours.String(), string(e.Status), e.HandledBy, e.Timestamp, e.Note,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context) ([]leave.EventEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person, name, call_sign, sector, date, type, hours, status,
		       handled_by, timestamp, note
		FROM events ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []leave.EventEntry
	for rows.Next() {
		var e leave.EventEntry
		var typ, status, hours string
		err := rows.Scan(&e.ID, &e.Person, &e.Name, &e.CallSign, &e.Sector,
			&e.Date, &typ, &hours, &status, &e.HandledBy, &e.Timestamp, &e.Note)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = leave.LeaveType(typ)
		e.Status = leave.EventStatus(status)
		e.Hours = parseDecimal(hours)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// DAY STATUS STORE
// =============================================================================

func (s *Store) LoadDayStatus(ctx context.Context) (map[string]map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT date, person, status FROM day_status`)
	if err != nil {
		return nil, fmt.Errorf("failed to query day status: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]string)
	for rows.Next() {
		var date, person, status string
		if err := rows.Scan(&date, &person, &status); err != nil {
			return nil, fmt.Errorf("failed to scan day status: %w", err)
		}
		day := out[date]
		if day == nil {
			day = make(map[string]string)
			out[date] = day
		}
		day[person] = status
	}
	return out, rows.Err()
}

func (s *Store) SaveDayStatus(ctx context.Context, m map[string]map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM day_status`); err != nil {
		return fmt.Errorf("failed to clear day status: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO day_status (date, person, status) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for date, day := range m {
		for person, status := range day {
			// Available is the implicit default; storing it would only bloat
			// the snapshot.
			if status == "" || status == leave.DayAvailable {
				continue
			}
			if _, err := stmt.ExecContext(ctx, date, person, status); err != nil {
				return fmt.Errorf("failed to insert day status: %w", err)
			}
		}
	}

	return tx.Commit()
}

// =============================================================================
// HELPERS
// =============================================================================

// parseDecimal falls back to zero on corrupt data rather than failing the
// whole load.
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ leave.Store = (*Store)(nil)
