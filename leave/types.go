/*
Package leave implements the time-off ledger and workflow core for
shift-based personnel.

PURPOSE:
  This package contains the domain types and state machines for tracking
  employee time off: durable per-person balances, an append-only event log,
  a pending-request queue with an approval workflow, per-day roster status
  overrides, and annual accrual under a seniority-based entitlement policy.

KEY CONCEPTS IN THIS FILE (types.go):
  - Profile: durable record of one person's balances and metadata
  - PendingRequest: an un-decided vacation request awaiting approval
  - EventEntry: immutable history record for every request outcome
  - AuditEvent: structured per-person change record (bounded ring)
  - Actor: the resolved identity performing an operation

DESIGN PRINCIPLES:
  1. Precision: balances use decimal.Decimal, never float64
  2. History: the event log is the sole source of historical truth;
     the pending queue is a working set
  3. Best-effort durability: mutations are ordered (event, ledger, queue,
     audit) but never rolled back across stores

SEE ALSO:
  - workflow.go: submission / approval / denial / cancellation
  - overlay.go:  day-status override precedence
  - accrual.go:  annual entitlement and carryover
  - store.go:    storage collaborator contracts
*/
package leave

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// LEAVE TYPES AND STATUSES
// =============================================================================

type LeaveType string

const (
	TypeVacation LeaveType = "vacation"
	TypeSick     LeaveType = "sick"
)

// EventStatus is the lifecycle status recorded in the event log.
// Vacation runs pending -> approved|denied|cancelled (terminal).
// Sick enters the log already logged and never transitions.
type EventStatus string

const (
	StatusPending   EventStatus = "pending"
	StatusLogged    EventStatus = "logged"
	StatusApproved  EventStatus = "approved"
	StatusDenied    EventStatus = "denied"
	StatusCancelled EventStatus = "cancelled"
)

// =============================================================================
// ROLES AND ACTORS
// =============================================================================

type Role string

const (
	RoleUser       Role = "user"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
	RoleWebmaster  Role = "webmaster"
)

// Actor is the acting identity, already resolved by the auth layer.
// The core only uses it for scoping and audit attribution.
type Actor struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Squad string `json:"squad,omitempty"`
}

// CanDecide reports whether the role may approve or deny requests.
func (a Actor) CanDecide() bool {
	return a.Role == RoleAdmin || a.Role == RoleWebmaster || a.Role == RoleSupervisor
}

// IsAdmin reports whether the role has unscoped administrative authority.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleWebmaster
}

// =============================================================================
// DAY STATUS LABELS
// =============================================================================

const (
	// DayAvailable is the implicit default; a cleared override returns here.
	DayAvailable = "Available"

	// Protected labels: only the workflow engine writes these, via sick
	// submission or vacation approval. Override actions never touch them.
	DayVacation = "Vacation"
	DaySick     = "Sick"
)

// OverrideStatuses are the labels a supervisory override may set.
var OverrideStatuses = []string{
	"FMLA", "TDY", "Training", "Field Training", "Admin Leave", "Other",
}

// IsProtectedStatus reports whether a label is workflow-owned.
func IsProtectedStatus(s string) bool {
	return s == DayVacation || s == DaySick
}

// IsOverrideStatus reports whether a label may be set by an override action.
func IsOverrideStatus(s string) bool {
	for _, a := range OverrideStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// =============================================================================
// PROFILE - One durable record per person, owned by the ProfileStore
// =============================================================================

type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Rank      string `json:"rank"`
	Squad     string `json:"squad"`
	CallSign  string `json:"call_sign"`
	Sector    string `json:"sector"`
	Role      Role   `json:"role"`

	// Balances, in hours. Never negative as a result of a core mutation,
	// except vacation after approval (the ledger trusts the approver).
	VacationLeft      decimal.Decimal `json:"vacation_left"`
	VacationUsedToday decimal.Decimal `json:"vacation_used_today"`
	SickLeft          decimal.Decimal `json:"sick_left"`
	SickUsedYTD       decimal.Decimal `json:"sick_used_ytd"`

	// HoursPerDay is the person's daily-hours default (8 when unset).
	HoursPerDay decimal.Decimal `json:"hours_per_day"`

	// Accrual inputs and outputs.
	SeniorityDate        *Date           `json:"seniority_date,omitempty"`
	OverCapApproved      bool            `json:"over_cap_approved"`
	EntitlementDaysYear  int             `json:"entitlement_days_year"`
	EntitlementHoursYear decimal.Decimal `json:"entitlement_hours_year"`
	CarryoverIn          decimal.Decimal `json:"carryover_in"`
	CarryoverHours       decimal.Decimal `json:"carryover_hours"`
	MinRequiredHours     int             `json:"min_required_hours"`
	SupervisorAlert      bool            `json:"supervisor_alert"`
	AccrualYear          int             `json:"accrual_year"`
	SickResetYear        int             `json:"sick_reset_year"`

	// Active is a soft-delete flag; inactive persons keep history but are
	// excluded from every workflow scope.
	Active bool `json:"active"`

	// Audit is a bounded append-only trail; oldest events are evicted past
	// MaxAuditEvents. Truncation is accepted data loss, not a bug.
	Audit []AuditEvent `json:"audit,omitempty"`
}

// DisplayName is "Last, First" for rosters and aggregation rows.
func (p *Profile) DisplayName() string {
	switch {
	case p.LastName == "" && p.FirstName == "":
		return p.ID
	case p.FirstName == "":
		return p.LastName
	default:
		return p.LastName + ", " + p.FirstName
	}
}

// DailyHours returns the person's hours-per-day default, falling back to 8.
func (p *Profile) DailyHours() decimal.Decimal {
	if p.HoursPerDay.IsPositive() {
		return p.HoursPerDay
	}
	return decimal.NewFromInt(8)
}

// =============================================================================
// PENDING REQUEST - Working-set member of the pending queue
// =============================================================================

// PendingRequest is one un-decided vacation day. Sick requests never enter
// the queue; they resolve synchronously at submission.
type PendingRequest struct {
	Person    string          `json:"person"`
	Date      string          `json:"date"`
	Type      LeaveType       `json:"type"`
	Hours     decimal.Decimal `json:"hours"`
	Note      string          `json:"note,omitempty"`
	Status    EventStatus     `json:"status"`
	HandledBy string          `json:"handled_by,omitempty"`
}

// =============================================================================
// EVENT LOG ENTRY - Immutable, append-only history
// =============================================================================

type EventEntry struct {
	ID        string          `json:"id"`
	Person    string          `json:"person"`
	Name      string          `json:"name,omitempty"`
	CallSign  string          `json:"call_sign,omitempty"`
	Sector    string          `json:"sector,omitempty"`
	Date      string          `json:"date"`
	Type      LeaveType       `json:"type"`
	Hours     decimal.Decimal `json:"hours"`
	Status    EventStatus     `json:"status"`
	HandledBy string          `json:"handled_by,omitempty"`
	Timestamp string          `json:"timestamp"` // 2006-01-02 15:04:05
	Note      string          `json:"note,omitempty"`
}

// =============================================================================
// AUDIT EVENT - Structured per-person change record
// =============================================================================

type AuditEvent struct {
	Timestamp string         `json:"ts"` // 2006-01-02 15:04:05
	Actor     Actor          `json:"actor"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
}
