/*
overlay.go - Per-day roster status overrides with protected precedence

PURPOSE:
  Supervisory actions annotate rosters with per-date, per-person status
  labels (Training, FMLA, Admin Leave, ...) or clear a date back to
  Available. The overlay never overrides workflow-owned labels: a date
  currently Vacation or Sick is silently skipped and counted separately.

SCOPE RULES:
  - Future dates only, within a bounded horizon (DefaultHorizonDays).
  - Supervisors act on their own squad; admin/webmaster are unscoped.

PREVIEW:
  Preview computes the exact per-date outcome of a proposed Set without
  mutating anything, under the same precedence rules. The two paths share
  evaluateDay so they can never disagree.
*/
package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultHorizonDays bounds how far forward an override may reach.
const DefaultHorizonDays = 30

// =============================================================================
// OVERLAY
// =============================================================================

// Overlay applies and previews day-status overrides.
type Overlay struct {
	Profiles  ProfileStore
	DayStatus DayStatusStore

	// HorizonDays overrides DefaultHorizonDays when positive.
	HorizonDays int

	Log *logrus.Logger
	Now func() time.Time
}

func NewOverlay(store Store) *Overlay {
	return &Overlay{Profiles: store, DayStatus: store}
}

func (o *Overlay) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Overlay) horizon() int {
	if o.HorizonDays > 0 {
		return o.HorizonDays
	}
	return DefaultHorizonDays
}

// SetResult reports the three disjoint per-batch outcomes.
type SetResult struct {
	Updated          int `json:"updated"`
	SkippedProtected int `json:"skipped_protected"`
	Unchanged        int `json:"unchanged"`
}

// Skipped is the combined not-updated count (protected plus already-equal).
func (r SetResult) Skipped() int { return r.SkippedProtected + r.Unchanged }

// DayPreview is the computed outcome for one date of a proposed override.
type DayPreview struct {
	Date       string `json:"date"`
	Current    string `json:"current_status"`
	WillChange bool   `json:"will_change"`
	Reason     string `json:"reason"` // vacation | sick | same | none
}

// =============================================================================
// SET
// =============================================================================

// Set applies a status override (or a clear back to Available) across an
// inclusive date range for the target person. Dates whose current status
// is protected are never altered.
func (o *Overlay) Set(ctx context.Context, actor Actor, target, start, end, status string) (*SetResult, error) {
	dates, err := o.checkScope(ctx, actor, target, start, end, status, false)
	if err != nil {
		return nil, err
	}

	statusMap, err := o.DayStatus.LoadDayStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("load day status: %w", err)
	}

	res := &SetResult{}
	for _, d := range dates {
		day := statusMap[d.String()]
		current := currentStatus(day, target)

		willChange, reason := evaluateDay(current, status)
		switch {
		case !willChange && (reason == "vacation" || reason == "sick"):
			res.SkippedProtected++
		case !willChange:
			res.Unchanged++
		default:
			if day == nil {
				day = make(map[string]string)
				statusMap[d.String()] = day
			}
			day[target] = status
			res.Updated++
		}
	}

	if res.Updated > 0 {
		if err := o.DayStatus.SaveDayStatus(ctx, statusMap); err != nil {
			return nil, fmt.Errorf("save day status: %w", err)
		}
	}

	o.audit(ctx, actor, target, start, end, status, res)
	return res, nil
}

// audit records the batch outcome on the target profile. Best effort: a
// failed audit write does not undo the applied overrides.
func (o *Overlay) audit(ctx context.Context, actor Actor, target, start, end, status string, res *SetResult) {
	profiles, err := o.Profiles.LoadProfiles(ctx)
	if err != nil {
		o.log().WithError(err).Warn("day status audit: profiles unavailable")
		return
	}
	p, ok := profiles[target]
	if !ok {
		return
	}
	if end == "" {
		end = start
	}
	auditAppend(&p, o.now(), actor, "day_status_update", map[string]any{
		"range":             map[string]any{"start": start, "end": end},
		"status":            status,
		"updated":           res.Updated,
		"skipped_protected": res.SkippedProtected,
		"unchanged":         res.Unchanged,
	})
	profiles[target] = p
	if err := o.Profiles.SaveProfiles(ctx, profiles); err != nil {
		o.log().WithError(err).Warn("day status audit: save failed")
	}
}

func (o *Overlay) log() *logrus.Logger {
	if o.Log != nil {
		return o.Log
	}
	return logrus.StandardLogger()
}

// =============================================================================
// PREVIEW
// =============================================================================

// Preview reports, per date, the current status and whether Set would
// change it, without mutating state. The requested range is clamped into
// the horizon instead of rejected, so a live UI can always render.
func (o *Overlay) Preview(ctx context.Context, actor Actor, target, start, end, status string) ([]DayPreview, error) {
	if status == "" {
		status = DayAvailable
	}
	dates, err := o.checkScope(ctx, actor, target, start, end, status, true)
	if err != nil {
		return nil, err
	}

	statusMap, err := o.DayStatus.LoadDayStatus(ctx)
	if err != nil {
		o.log().WithError(err).Warn("preview: day status unavailable")
		statusMap = map[string]map[string]string{}
	}

	out := make([]DayPreview, 0, len(dates))
	for _, d := range dates {
		current := currentStatus(statusMap[d.String()], target)
		willChange, reason := evaluateDay(current, status)
		out = append(out, DayPreview{
			Date:       d.String(),
			Current:    current,
			WillChange: willChange,
			Reason:     reason,
		})
	}
	return out, nil
}

// =============================================================================
// SHARED RULES
// =============================================================================

// checkScope validates the actor, target, status label, and date range,
// returning the expanded dates. With clamp set (preview), out-of-horizon
// ranges are trimmed; otherwise they are rejected.
func (o *Overlay) checkScope(ctx context.Context, actor Actor, target, start, end, status string, clamp bool) ([]Date, error) {
	if !actor.CanDecide() {
		return nil, &OutOfScopeError{Actor: actor.ID, Target: target, Reason: "role may not set day status"}
	}
	if status != DayAvailable && !IsOverrideStatus(status) {
		return nil, &InvalidInputError{Field: "status", Reason: fmt.Sprintf("%q is not an assignable status", status)}
	}

	profiles, err := o.Profiles.LoadProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	p, err := activeProfile(profiles, target)
	if err != nil {
		return nil, err
	}
	if actor.Role == RoleSupervisor && p.Squad != actor.Squad {
		return nil, &OutOfScopeError{Actor: actor.ID, Target: target, Reason: "supervisors update their own squad only"}
	}

	startD, err := ParseDate(start)
	if err != nil {
		return nil, &InvalidInputError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	endD := startD
	if end != "" {
		if d, err := ParseDate(end); err == nil {
			endD = d
		}
	}
	if endD.Before(startD) {
		endD = startD
	}

	today := DateOf(o.now())
	maxDay := today.AddDays(o.horizon())
	if clamp {
		if startD.Before(today) {
			startD = today
		}
		if endD.After(maxDay) {
			endD = maxDay
		}
		if endD.Before(startD) {
			return nil, nil
		}
	} else if startD.Before(today) || endD.After(maxDay) {
		return nil, &InvalidInputError{
			Field:  "date",
			Reason: fmt.Sprintf("dates must be between %s and %s", today, maxDay),
		}
	}

	return ExpandDateRange(startD, endD), nil
}

// currentStatus resolves the effective label for a (day, person) cell.
func currentStatus(day map[string]string, person string) string {
	s := strings.TrimSpace(day[person])
	if s == "" {
		return DayAvailable
	}
	return s
}

// evaluateDay is the single precedence rule shared by Set and Preview.
// Protected labels never change; otherwise a day changes iff the requested
// label differs from the current one.
func evaluateDay(current, requested string) (willChange bool, reason string) {
	if IsProtectedStatus(current) {
		return false, strings.ToLower(current)
	}
	if current == requested {
		return false, "same"
	}
	return true, "none"
}
