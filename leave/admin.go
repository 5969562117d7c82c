/*
admin.go - Administrative profile mutations

Balance adjustments set an absolute value (clamped at zero) with a
required reason; archive neutralizes a person's operational fields while
retaining history; unarchive restores minimal sane defaults. Every
mutation is audited with a from/to diff.
*/
package leave

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// BalanceKind selects which balance an adjustment targets.
type BalanceKind string

const (
	BalanceVacation BalanceKind = "vacation"
	BalanceSick     BalanceKind = "sick"
)

// AdjustBalance sets the target's vacation or sick balance to an absolute
// value. Negative inputs are rejected; the ledger's non-negative invariant
// holds for manual corrections even though approvals may overdraw.
func (e *Engine) AdjustBalance(ctx context.Context, actor Actor, target string, kind BalanceKind, hours decimal.Decimal, reason string) error {
	if !actor.IsAdmin() {
		return &OutOfScopeError{Actor: actor.ID, Target: target, Reason: "balance adjustments are admin-only"}
	}
	if kind != BalanceVacation && kind != BalanceSick {
		return &InvalidInputError{Field: "kind", Reason: fmt.Sprintf("unknown balance %q", kind)}
	}
	if hours.IsNegative() {
		return &InvalidInputError{Field: "hours", Reason: "must not be negative"}
	}

	profiles, err := e.Profiles.LoadProfiles(ctx)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	p, ok := profiles[target]
	if !ok {
		return &NotFoundError{Kind: "profile", Person: target}
	}

	var before decimal.Decimal
	if kind == BalanceVacation {
		before, p.VacationLeft = p.VacationLeft, hours
	} else {
		before, p.SickLeft = p.SickLeft, hours
	}

	auditAppend(&p, e.now(), actor, "balance_adjust", map[string]any{
		"balance": kind,
		"from":    before.String(),
		"to":      hours.String(),
		"reason":  reason,
	})
	profiles[target] = p
	if err := e.Profiles.SaveProfiles(ctx, profiles); err != nil {
		return fmt.Errorf("save profiles: %w", err)
	}
	return nil
}

// Archive soft-deletes a person: operational fields are cleared and
// balances zeroed so the person disappears from rosters and workflow
// scopes, while audit and event history remain intact.
func (e *Engine) Archive(ctx context.Context, actor Actor, target string) error {
	if !actor.IsAdmin() {
		return &OutOfScopeError{Actor: actor.ID, Target: target, Reason: "archiving is admin-only"}
	}
	profiles, err := e.Profiles.LoadProfiles(ctx)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	p, ok := profiles[target]
	if !ok {
		return &NotFoundError{Kind: "profile", Person: target}
	}

	before := map[string]any{"active": p.Active, "rank": p.Rank, "squad": p.Squad}

	p.Active = false
	p.Rank = "Archived"
	p.Squad = ""
	p.CallSign = ""
	p.Sector = ""
	p.Role = RoleUser
	p.SeniorityDate = nil
	p.VacationLeft = decimal.Zero
	p.VacationUsedToday = decimal.Zero
	p.SickLeft = decimal.Zero
	p.SickUsedYTD = decimal.Zero

	after := map[string]any{"active": p.Active, "rank": p.Rank, "squad": p.Squad}
	auditAppend(&p, e.now(), actor, "archive", diffFields(before, after))
	profiles[target] = p
	if err := e.Profiles.SaveProfiles(ctx, profiles); err != nil {
		return fmt.Errorf("save profiles: %w", err)
	}
	return nil
}

// Unarchive restores an archived person with minimal sane defaults.
func (e *Engine) Unarchive(ctx context.Context, actor Actor, target string) error {
	if !actor.IsAdmin() {
		return &OutOfScopeError{Actor: actor.ID, Target: target, Reason: "archiving is admin-only"}
	}
	profiles, err := e.Profiles.LoadProfiles(ctx)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	p, ok := profiles[target]
	if !ok {
		return &NotFoundError{Kind: "profile", Person: target}
	}

	before := map[string]any{"active": p.Active, "rank": p.Rank}
	p.Active = true
	if p.Rank == "Archived" || p.Rank == "" {
		p.Rank = "Officer"
	}
	after := map[string]any{"active": p.Active, "rank": p.Rank}

	auditAppend(&p, e.now(), actor, "unarchive", diffFields(before, after))
	profiles[target] = p
	if err := e.Profiles.SaveProfiles(ctx, profiles); err != nil {
		return fmt.Errorf("save profiles: %w", err)
	}
	return nil
}
