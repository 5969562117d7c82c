/*
accrual.go - Annual vacation entitlement and carryover

PURPOSE:
  Once per target year, each active person's vacation balance is rebuilt:

    new_balance = clamped_carryover + entitlement_hours

  Entitlement days come from a seniority step table evaluated at Dec 31
  of the target year; carryover above 560h is clamped (unless over-cap
  approved) and raises a supervisor-attention flag; the carryover level
  also sets the minimum hours the person must use during the year.

IDEMPOTENT RE-RUN:
  The engine stamps each profile with the target year and the raw
  carryover-in it consumed. Re-running for the same year recomputes from
  that recorded carryover-in instead of the already-credited balance, so
  a second run never double-applies entitlement.
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// POLICY CONSTANTS
// =============================================================================

var (
	// CarryoverCapHours is the maximum carryover without special approval.
	CarryoverCapHours = decimal.NewFromInt(560)

	// minUseThresholdHours splits the minimum-use tiers.
	minUseThresholdHours = decimal.NewFromInt(240)
)

const (
	MinUseLowHours  = 40 // carryover <= 240h
	MinUseHighHours = 80 // carryover > 240h
)

// EntitlementDaysForYear maps whole years of service, evaluated at Dec 31
// of the target year, to annual vacation entitlement in days:
//
//	<1y -> 0, [1,5) -> 10, [5,10) -> 15, [10,15) -> 20,
//	15  -> 25, >15 -> 25 + (years - 15)
func EntitlementDaysForYear(seniority *Date, year int) int {
	yrs := YearsOfServiceAt(seniority, NewDate(year, time.December, 31))
	switch {
	case yrs < 1:
		return 0
	case yrs < 5:
		return 10
	case yrs < 10:
		return 15
	case yrs < 15:
		return 20
	case yrs == 15:
		return 25
	default:
		return 25 + (yrs - 15)
	}
}

// ApplyCarryover clamps a prior balance to the cap (unless over-cap is
// approved) and derives the minimum-use requirement. The supervisor flag
// is raised only when the cap actually clamped.
func ApplyCarryover(prior decimal.Decimal, overCapApproved bool) (out decimal.Decimal, minUse int, flag bool) {
	out = prior
	if out.GreaterThan(CarryoverCapHours) && !overCapApproved {
		out = CarryoverCapHours
		flag = true
	}
	minUse = MinUseLowHours
	if out.GreaterThan(minUseThresholdHours) {
		minUse = MinUseHighHours
	}
	return out, minUse, flag
}

// =============================================================================
// ACCRUAL ENGINE
// =============================================================================

type AccrualEngine struct {
	Profiles ProfileStore

	Log *logrus.Logger
	Now func() time.Time
}

func NewAccrualEngine(store Store) *AccrualEngine {
	return &AccrualEngine{Profiles: store}
}

type AccrualRunResult struct {
	Processed int `json:"processed"`
	Flagged   int `json:"flagged"`
}

// Run applies the annual accrual to every active profile for the target
// year and persists the snapshot once. Admin-scoped.
func (a *AccrualEngine) Run(ctx context.Context, actor Actor, targetYear int) (*AccrualRunResult, error) {
	if !actor.IsAdmin() {
		return nil, &OutOfScopeError{Actor: actor.ID, Target: "*", Reason: "accrual runs are admin-only"}
	}
	if targetYear < 1900 || targetYear > 3000 {
		return nil, &InvalidInputError{Field: "year", Reason: "implausible target year"}
	}

	profiles, err := a.Profiles.LoadProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	res := &AccrualRunResult{}
	now := a.now()
	for id, p := range profiles {
		if !p.Active {
			continue
		}
		a.apply(&p, actor, targetYear, now)
		profiles[id] = p
		res.Processed++
		if p.SupervisorAlert {
			res.Flagged++
		}
	}

	if err := a.Profiles.SaveProfiles(ctx, profiles); err != nil {
		return nil, fmt.Errorf("save profiles: %w", err)
	}
	a.log().WithFields(logrus.Fields{
		"year":      targetYear,
		"processed": res.Processed,
		"flagged":   res.Flagged,
	}).Info("accrual run complete")
	return res, nil
}

// apply computes and writes one person's accrual for the target year.
func (a *AccrualEngine) apply(p *Profile, actor Actor, targetYear int, now time.Time) {
	// Re-runs for the same year start from the recorded raw carryover-in,
	// not the already-credited balance.
	prior := p.VacationLeft
	if p.AccrualYear == targetYear {
		prior = p.CarryoverIn
	}

	entDays := EntitlementDaysForYear(p.SeniorityDate, targetYear)
	entHours := decimal.NewFromInt(int64(entDays)).Mul(p.DailyHours())

	carryOut, minUse, flag := ApplyCarryover(prior, p.OverCapApproved)

	p.AccrualYear = targetYear
	p.CarryoverIn = prior
	p.EntitlementDaysYear = entDays
	p.EntitlementHoursYear = entHours
	p.CarryoverHours = carryOut
	p.MinRequiredHours = minUse
	p.SupervisorAlert = flag // explicitly cleared when no longer triggered
	p.VacationLeft = carryOut.Add(entHours)

	auditAppend(p, now, actor, "accrual", map[string]any{
		"year":              targetYear,
		"entitlement_days":  entDays,
		"entitlement_hours": entHours.String(),
		"carryover_in":      prior.String(),
		"carryover_out":     carryOut.String(),
		"min_required":      minUse,
		"over_cap_approved": p.OverCapApproved,
		"supervisor_alert":  flag,
	})
}

func (a *AccrualEngine) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *AccrualEngine) log() *logrus.Logger {
	if a.Log != nil {
		return a.Log
	}
	return logrus.StandardLogger()
}
