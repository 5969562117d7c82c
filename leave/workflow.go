/*
workflow.go - Request submission, duplicate detection, and the decision
state machine

PURPOSE:
  The Engine orchestrates every balance-mutating workflow:

  Submit:  expand dates, detect duplicates (confirmation-required result),
           then either deduct sick hours immediately (status "logged") or
           insert pending vacation days (status "pending").
  Decide:  approve (deduct on approval, no clamp) or deny a pending
           vacation day; both are terminal.
  Cancel:  self-service removal of a pending vacation day; balances are
           untouched since nothing was deducted while pending.

WRITE ORDERING:
  Within one mutating operation: event-log append, then ledger mutate,
  then queue mutate, then audit append. A later-step failure surfaces to
  the caller but earlier durable writes are NOT rolled back (best-effort
  durability, not transactions).

DUPLICATE DETECTION:
  A date counts as conflicting when it already appears for the person in
  either the event log or the pending queue. Without force, any conflict
  returns a confirmation-required result and nothing is written. A forced
  resubmission always creates new records; true deduplication is the
  caller's responsibility once confirmed.

SEE ALSO:
  - overlay.go: the Sick day-status entries written here are protected there
  - aggregate.go: groups the pending queue for administrative review
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine is the request workflow core. All fields are required except Log
// and Now, which default to the standard logger and wall clock.
type Engine struct {
	Profiles  ProfileStore
	Pending   PendingStore
	Events    EventLog
	DayStatus DayStatusStore

	Log *logrus.Logger
	Now func() time.Time
}

// NewEngine wires an Engine over a combined store.
func NewEngine(store Store) *Engine {
	return &Engine{
		Profiles:  store,
		Pending:   store,
		Events:    store,
		DayStatus: store,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) logger() *logrus.Logger {
	if e.Log != nil {
		return e.Log
	}
	return logrus.StandardLogger()
}

// activeProfile fetches a profile that is in workflow scope.
func activeProfile(profiles map[string]Profile, id string) (Profile, error) {
	p, ok := profiles[id]
	if !ok || !p.Active {
		return Profile{}, &NotFoundError{Kind: "profile", Person: id}
	}
	return p, nil
}

// handledBy is the "Last (Rank)" display recorded on event entries.
func handledBy(p *Profile) string {
	return fmt.Sprintf("%s (%s)", p.LastName, p.Rank)
}

func (e *Engine) newEvent(p *Profile, date Date, typ LeaveType, hours decimal.Decimal, status EventStatus, by, note string) EventEntry {
	return EventEntry{
		ID:        uuid.NewString(),
		Person:    p.ID,
		Name:      p.FirstName + " " + p.LastName,
		CallSign:  p.CallSign,
		Sector:    p.Sector,
		Date:      date.String(),
		Type:      typ,
		Hours:     hours,
		Status:    status,
		HandledBy: by,
		Timestamp: e.now().Format(TimestampFormat),
		Note:      note,
	}
}

// =============================================================================
// SUBMISSION
// =============================================================================

type SubmitInput struct {
	Type        LeaveType
	Start       string // YYYY-MM-DD
	End         string // optional; empty means single day
	HoursPerDay decimal.Decimal
	Note        string
	Force       bool // set on resubmission after a confirm-needed result
}

// SubmitResult reports either a created batch or a confirmation request.
// ConfirmNeeded is a structured outcome, not an error: the caller must
// resubmit the identical payload with Force set to proceed.
type SubmitResult struct {
	ConfirmNeeded    bool        `json:"confirm_needed"`
	ConflictingDates []string    `json:"conflicting_dates,omitempty"`
	Created          int         `json:"created"`
	Status           EventStatus `json:"status,omitempty"`
}

// Submit creates a time-off request batch for the acting person.
// Validation failures reject before any mutation.
func (e *Engine) Submit(ctx context.Context, actor Actor, in SubmitInput) (*SubmitResult, error) {
	if in.Type != TypeVacation && in.Type != TypeSick {
		return nil, &InvalidInputError{Field: "type", Reason: fmt.Sprintf("unknown leave type %q", in.Type)}
	}
	if !in.HoursPerDay.IsPositive() || in.HoursPerDay.GreaterThan(decimal.NewFromInt(24)) {
		return nil, &InvalidInputError{Field: "hours", Reason: "must be greater than 0 and at most 24"}
	}
	dates, err := ExpandDateStrings(in.Start, in.End)
	if err != nil {
		return nil, &InvalidInputError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}

	if !in.Force {
		if conflicts := e.conflictingDates(ctx, actor.ID, dates); len(conflicts) > 0 {
			return &SubmitResult{ConfirmNeeded: true, ConflictingDates: conflicts}, nil
		}
	}

	profiles, err := e.Profiles.LoadProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	p, err := activeProfile(profiles, actor.ID)
	if err != nil {
		return nil, err
	}

	var result *SubmitResult
	switch in.Type {
	case TypeSick:
		result, err = e.submitSick(ctx, &p, dates, in)
	default:
		result, err = e.submitVacation(ctx, &p, dates, in)
	}
	if err != nil {
		return nil, err
	}

	dateStrs := make([]string, len(dates))
	for i, d := range dates {
		dateStrs[i] = d.String()
	}
	auditAppend(&p, e.now(), actor, "request_submit", map[string]any{
		"type":          in.Type,
		"dates":         dateStrs,
		"hours_per_day": in.HoursPerDay.String(),
		"note":          in.Note,
		"status_effect": result.Status,
	})
	profiles[p.ID] = p
	if err := e.Profiles.SaveProfiles(ctx, profiles); err != nil {
		return nil, fmt.Errorf("save profiles: %w", err)
	}
	return result, nil
}

// conflictingDates returns the requested dates already on file for the
// person, in request order. Event log and pending queue both count.
// Storage read failures degrade to "no conflicts" rather than blocking.
func (e *Engine) conflictingDates(ctx context.Context, person string, dates []Date) []string {
	existing := make(map[string]bool)

	events, err := e.Events.ListEvents(ctx)
	if err != nil {
		e.logger().WithError(err).Warn("duplicate check: event log unavailable")
	}
	for _, ev := range events {
		if ev.Person == person {
			existing[ev.Date] = true
		}
	}

	pending, err := e.Pending.LoadPending(ctx)
	if err != nil {
		e.logger().WithError(err).Warn("duplicate check: pending queue unavailable")
	}
	for _, r := range pending {
		if r.Person == person {
			existing[r.Date] = true
		}
	}

	var conflicts []string
	for _, d := range dates {
		if existing[d.String()] {
			conflicts = append(conflicts, d.String())
		}
	}
	return conflicts
}

// submitSick resolves a sick batch synchronously: the whole batch must fit
// the remaining balance, then every day is logged, deducted, and marked
// Sick on the roster overlay.
func (e *Engine) submitSick(ctx context.Context, p *Profile, dates []Date, in SubmitInput) (*SubmitResult, error) {
	total := in.HoursPerDay.Mul(decimal.NewFromInt(int64(len(dates))))
	if total.GreaterThan(p.SickLeft) {
		return nil, &InsufficientBalanceError{Person: p.ID, Available: p.SickLeft, Requested: total}
	}

	statusMap, err := e.DayStatus.LoadDayStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("load day status: %w", err)
	}

	by := handledBy(p)
	for _, d := range dates {
		ev := e.newEvent(p, d, TypeSick, in.HoursPerDay, StatusLogged, by, in.Note)
		if err := e.Events.AppendEvent(ctx, ev); err != nil {
			return nil, fmt.Errorf("append event: %w", err)
		}
		p.SickLeft = p.SickLeft.Sub(in.HoursPerDay)
		p.SickUsedYTD = p.SickUsedYTD.Add(in.HoursPerDay)

		day := statusMap[d.String()]
		if day == nil {
			day = make(map[string]string)
			statusMap[d.String()] = day
		}
		day[p.ID] = DaySick
	}

	if err := e.DayStatus.SaveDayStatus(ctx, statusMap); err != nil {
		return nil, fmt.Errorf("save day status: %w", err)
	}
	return &SubmitResult{Created: len(dates), Status: StatusLogged}, nil
}

// submitVacation defers the balance check to approval: every day becomes a
// pending queue entry plus a pending event-log entry.
func (e *Engine) submitVacation(ctx context.Context, p *Profile, dates []Date, in SubmitInput) (*SubmitResult, error) {
	by := handledBy(p)
	for _, d := range dates {
		ev := e.newEvent(p, d, TypeVacation, in.HoursPerDay, StatusPending, by, in.Note)
		if err := e.Events.AppendEvent(ctx, ev); err != nil {
			return nil, fmt.Errorf("append event: %w", err)
		}
		if err := e.Pending.AppendPending(ctx, PendingRequest{
			Person: p.ID,
			Date:   d.String(),
			Type:   TypeVacation,
			Hours:  in.HoursPerDay,
			Note:   in.Note,
			Status: StatusPending,
		}); err != nil {
			return nil, fmt.Errorf("append pending: %w", err)
		}
	}
	return &SubmitResult{Created: len(dates), Status: StatusPending}, nil
}

// =============================================================================
// DECISION STATE MACHINE - pending -> {approved, denied, cancelled}
// =============================================================================

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDeny    Decision = "deny"
)

type DecisionResult struct {
	Status EventStatus     `json:"status"`
	Hours  decimal.Decimal `json:"hours"`
}

// Decide approves or denies the unique pending vacation request matching
// (target, date). Approval deducts the day's hours from vacation_left
// WITHOUT a zero floor: the ledger trusts the approver, and over-approval
// surfaces as a negative balance rather than being silently hidden.
func (e *Engine) Decide(ctx context.Context, actor Actor, target, date string, decision Decision) (*DecisionResult, error) {
	if decision != DecisionApprove && decision != DecisionDeny {
		return nil, &InvalidInputError{Field: "decision", Reason: fmt.Sprintf("unknown decision %q", decision)}
	}
	if _, err := ParseDate(date); err != nil {
		return nil, &InvalidInputError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	if !actor.CanDecide() {
		return nil, &OutOfScopeError{Actor: actor.ID, Target: target, Reason: "role may not decide requests"}
	}

	profiles, err := e.Profiles.LoadProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	p, err := activeProfile(profiles, target)
	if err != nil {
		return nil, err
	}
	if actor.Role == RoleSupervisor && p.Squad != actor.Squad {
		return nil, &OutOfScopeError{Actor: actor.ID, Target: target, Reason: "supervisors act on their own squad only"}
	}

	req, err := e.findPending(ctx, target, date)
	if err != nil {
		return nil, err
	}

	status := StatusDenied
	if decision == DecisionApprove {
		status = StatusApproved
	}

	actorBy := actor.ID
	if a, ok := profiles[actor.ID]; ok {
		actorBy = handledBy(&a)
	}
	ev := e.newEvent(&p, mustDate(date), TypeVacation, req.Hours, status, actorBy, req.Note)
	if err := e.Events.AppendEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}

	if status == StatusApproved {
		p.VacationLeft = p.VacationLeft.Sub(req.Hours)
		p.VacationUsedToday = p.VacationUsedToday.Add(req.Hours)
		profiles[p.ID] = p
		if err := e.Profiles.SaveProfiles(ctx, profiles); err != nil {
			return nil, fmt.Errorf("save profiles: %w", err)
		}
		if err := e.markVacationDay(ctx, target, date); err != nil {
			return nil, err
		}
	}

	removed, err := e.Pending.RemovePending(ctx, target, date, TypeVacation)
	if err != nil {
		return nil, fmt.Errorf("remove pending: %w", err)
	}
	if !removed {
		// Found above but gone now; a concurrent decision won the race.
		e.logger().WithFields(logrus.Fields{"person": target, "date": date}).
			Warn("pending request vanished before removal")
	}

	auditAppend(&p, e.now(), actor, "vacation_decision", map[string]any{
		"date":     date,
		"hours":    req.Hours.String(),
		"decision": status,
		"by":       actor.ID,
	})
	profiles[p.ID] = p
	if err := e.Profiles.SaveProfiles(ctx, profiles); err != nil {
		return nil, fmt.Errorf("save profiles: %w", err)
	}
	return &DecisionResult{Status: status, Hours: req.Hours}, nil
}

// markVacationDay writes the protected Vacation label for an approved day.
func (e *Engine) markVacationDay(ctx context.Context, person, date string) error {
	statusMap, err := e.DayStatus.LoadDayStatus(ctx)
	if err != nil {
		return fmt.Errorf("load day status: %w", err)
	}
	day := statusMap[date]
	if day == nil {
		day = make(map[string]string)
		statusMap[date] = day
	}
	day[person] = DayVacation
	if err := e.DayStatus.SaveDayStatus(ctx, statusMap); err != nil {
		return fmt.Errorf("save day status: %w", err)
	}
	return nil
}

// findPending locates the first pending vacation entry for (person, date).
// Uniqueness per (person, date, type) is an invariant maintained by
// submission plus removal; it is not re-validated here.
func (e *Engine) findPending(ctx context.Context, person, date string) (*PendingRequest, error) {
	pending, err := e.Pending.LoadPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pending: %w", err)
	}
	for i := range pending {
		r := &pending[i]
		if r.Person == person && r.Date == date && r.Type == TypeVacation {
			return r, nil
		}
	}
	return nil, &NotFoundError{Kind: "pending request", Person: person, Date: date}
}

// mustDate is for dates already validated by ParseDate.
func mustDate(s string) Date {
	d, _ := ParseDate(s)
	return d
}

// =============================================================================
// CANCELLATION (self-service)
// =============================================================================

// Cancel removes the acting person's own pending vacation request for a
// date. Balances are untouched: nothing was deducted while pending.
func (e *Engine) Cancel(ctx context.Context, actor Actor, date string) error {
	if _, err := ParseDate(date); err != nil {
		return &InvalidInputError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}

	profiles, err := e.Profiles.LoadProfiles(ctx)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	p, err := activeProfile(profiles, actor.ID)
	if err != nil {
		return err
	}

	req, err := e.findPending(ctx, actor.ID, date)
	if err != nil {
		return err
	}
	if req.Status != StatusPending {
		return &NotFoundError{Kind: "pending request", Person: actor.ID, Date: date}
	}

	ev := e.newEvent(&p, mustDate(date), TypeVacation, req.Hours, StatusCancelled, handledBy(&p), req.Note)
	if err := e.Events.AppendEvent(ctx, ev); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	if _, err := e.Pending.RemovePending(ctx, actor.ID, date, TypeVacation); err != nil {
		return fmt.Errorf("remove pending: %w", err)
	}

	auditAppend(&p, e.now(), actor, "cancel_request", map[string]any{
		"date": date,
		"type": TypeVacation,
	})
	profiles[p.ID] = p
	if err := e.Profiles.SaveProfiles(ctx, profiles); err != nil {
		return fmt.Errorf("save profiles: %w", err)
	}
	return nil
}

// =============================================================================
// HISTORY QUERIES
// =============================================================================

type HistoryFilter struct {
	Person string
	Year   int
	Status EventStatus
	Type   LeaveType
}

// History returns event log entries matching the filter. Event log read
// failures degrade to an empty result; history views stay up even when
// storage is briefly unavailable.
func (e *Engine) History(ctx context.Context, f HistoryFilter) []EventEntry {
	events, err := e.Events.ListEvents(ctx)
	if err != nil {
		e.logger().WithError(err).Warn("history: event log unavailable")
		return nil
	}
	var out []EventEntry
	for _, ev := range events {
		if f.Person != "" && ev.Person != f.Person {
			continue
		}
		if f.Status != "" && ev.Status != f.Status {
			continue
		}
		if f.Type != "" && ev.Type != f.Type {
			continue
		}
		if f.Year != 0 {
			d, err := ParseDate(ev.Date)
			if err != nil || d.Year() != f.Year {
				continue
			}
		}
		out = append(out, ev)
	}
	return out
}

// =============================================================================
// NEW YEAR SICK RESET
// =============================================================================

// ResetSickUsage zeroes sick_used_ytd across all profiles when called on
// January 1. It is a no-op on any other day and idempotent within a year:
// each profile carries the year it was last reset for. Intended to run
// once per process lifetime at startup.
func (e *Engine) ResetSickUsage(ctx context.Context, now time.Time) (int, error) {
	if now.Month() != time.January || now.Day() != 1 {
		return 0, nil
	}
	profiles, err := e.Profiles.LoadProfiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("load profiles: %w", err)
	}
	reset := 0
	for id, p := range profiles {
		if p.SickResetYear == now.Year() {
			continue
		}
		p.SickUsedYTD = decimal.Zero
		p.SickResetYear = now.Year()
		profiles[id] = p
		reset++
	}
	if reset == 0 {
		return 0, nil
	}
	if err := e.Profiles.SaveProfiles(ctx, profiles); err != nil {
		return 0, fmt.Errorf("save profiles: %w", err)
	}
	e.logger().WithField("profiles", reset).Info("new year sick usage reset")
	return reset, nil
}
