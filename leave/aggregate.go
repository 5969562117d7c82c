/*
aggregate.go - Contiguous-range grouping of the pending queue

PURPOSE:
  Administrators review pending vacation as ranges, not flat per-day rows.
  The aggregator sorts the queue by (person, type, hours-per-day, date),
  groups on the first three keys, and splits each group into maximal runs
  of calendar-consecutive dates. Per-day entries stay individually
  actionable: approval and denial remain per-date operations.

PROPERTY:
  Flattening every group's Days reproduces exactly the original pending
  set for that (person, type, hours) key, and two dates share a run iff
  consecutive sorted dates are exactly one day apart.
*/
package leave

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// RANGE GROUP - One contiguous run of pending days
// =============================================================================

type RangeGroup struct {
	Person      string           `json:"person"`
	Label       string           `json:"label"` // "Last, First"
	Rank        string           `json:"rank,omitempty"`
	CallSign    string           `json:"call_sign,omitempty"`
	Sector      string           `json:"sector,omitempty"`
	Type        LeaveType        `json:"type"`
	HoursPerDay decimal.Decimal  `json:"hours_per_day"`
	StartDate   string           `json:"start_date"`
	EndDate     string           `json:"end_date"`
	Days        []PendingRequest `json:"days"`
}

// Aggregator builds the administrative review view over the pending queue.
type Aggregator struct {
	Profiles ProfileStore
	Pending  PendingStore

	Log *logrus.Logger
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{Profiles: store, Pending: store}
}

// sortEntry pairs a queue entry with its parsed date. Unparseable dates
// sort last within their group.
type sortEntry struct {
	req    PendingRequest
	date   Date
	parsed bool
}

// AggregatePending returns the minimum number of contiguous-range rows
// representing the flat pending set, read-only. Supervisor actors see
// only their own squad. Read failures degrade to an empty view.
func (a *Aggregator) AggregatePending(ctx context.Context, actor Actor) []RangeGroup {
	pending, err := a.Pending.LoadPending(ctx)
	if err != nil {
		a.log().WithError(err).Warn("aggregate: pending queue unavailable")
		return nil
	}
	profiles, err := a.Profiles.LoadProfiles(ctx)
	if err != nil {
		a.log().WithError(err).Warn("aggregate: profiles unavailable")
		profiles = map[string]Profile{}
	}

	entries := make([]sortEntry, 0, len(pending))
	for _, r := range pending {
		// Sick never appears here; it is logged immediately at submission.
		if r.Type != TypeVacation || (r.Status != "" && r.Status != StatusPending) {
			continue
		}
		d, err := ParseDate(r.Date)
		entries = append(entries, sortEntry{req: r, date: d, parsed: err == nil})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		x, y := entries[i], entries[j]
		if x.req.Person != y.req.Person {
			return x.req.Person < y.req.Person
		}
		if x.req.Type != y.req.Type {
			return x.req.Type < y.req.Type
		}
		if c := x.req.Hours.Cmp(y.req.Hours); c != 0 {
			return c < 0
		}
		if x.parsed != y.parsed {
			return x.parsed // unparseable dates last
		}
		return x.date.Before(y.date)
	})

	var groups []RangeGroup
	var run []sortEntry

	flush := func() {
		if len(run) == 0 {
			return
		}
		first := run[0]
		p := profiles[first.req.Person]
		g := RangeGroup{
			Person:      first.req.Person,
			Label:       p.DisplayName(),
			Rank:        p.Rank,
			CallSign:    p.CallSign,
			Sector:      p.Sector,
			Type:        first.req.Type,
			HoursPerDay: first.req.Hours,
			StartDate:   first.req.Date,
			EndDate:     run[len(run)-1].req.Date,
			Days:        make([]PendingRequest, 0, len(run)),
		}
		if g.Label == "" {
			g.Label = first.req.Person
		}
		for _, e := range run {
			g.Days = append(g.Days, e.req)
		}
		groups = append(groups, g)
		run = nil
	}

	sameKey := func(a, b sortEntry) bool {
		return a.req.Person == b.req.Person &&
			a.req.Type == b.req.Type &&
			a.req.Hours.Equal(b.req.Hours)
	}

	for _, e := range entries {
		if len(run) > 0 {
			prev := run[len(run)-1]
			contiguous := sameKey(prev, e) && prev.parsed && e.parsed &&
				e.date.DaysSince(prev.date) == 1
			if !contiguous {
				flush()
			}
		}
		run = append(run, e)
	}
	flush()

	if actor.Role == RoleSupervisor && actor.Squad != "" {
		scoped := groups[:0]
		for _, g := range groups {
			if profiles[g.Person].Squad == actor.Squad {
				scoped = append(scoped, g)
			}
		}
		groups = scoped
	}
	return groups
}

func (a *Aggregator) log() *logrus.Logger {
	if a.Log != nil {
		return a.Log
	}
	return logrus.StandardLogger()
}
