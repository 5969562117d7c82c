package leave_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-ledger/leave"
	"github.com/warp/leave-ledger/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestAggregator(t *testing.T, profiles map[string]leave.Profile, pending []leave.PendingRequest) *leave.Aggregator {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	if err := store.SaveProfiles(ctx, profiles); err != nil {
		t.Fatalf("seed profiles: %v", err)
	}
	for _, r := range pending {
		if err := store.AppendPending(ctx, r); err != nil {
			t.Fatalf("seed pending: %v", err)
		}
	}
	return leave.NewAggregator(store)
}

func pendingDay(person, date string, hrs int64) leave.PendingRequest {
	return leave.PendingRequest{
		Person: person,
		Date:   date,
		Type:   leave.TypeVacation,
		Hours:  decimal.NewFromInt(hrs),
		Status: leave.StatusPending,
	}
}

var aggAdmin = leave.Actor{ID: "chief", Role: leave.RoleAdmin}

// =============================================================================
// CONTIGUITY TESTS
// =============================================================================

func TestAggregatePending_SplitsOnGap(t *testing.T) {
	// GIVEN: June 10-12 pending plus June 14 (one-day gap)
	// WHEN: Aggregating
	// THEN: Two groups; the gap breaks the run

	agg := newTestAggregator(t,
		map[string]leave.Profile{"pdoe": rosterProfile("pdoe", "A")},
		[]leave.PendingRequest{
			pendingDay("pdoe", "2025-06-10", 8),
			pendingDay("pdoe", "2025-06-11", 8),
			pendingDay("pdoe", "2025-06-12", 8),
			pendingDay("pdoe", "2025-06-14", 8),
		})

	groups := agg.AggregatePending(context.Background(), aggAdmin)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].StartDate != "2025-06-10" || groups[0].EndDate != "2025-06-12" {
		t.Errorf("first group: got %s..%s", groups[0].StartDate, groups[0].EndDate)
	}
	if len(groups[0].Days) != 3 {
		t.Errorf("first group: expected 3 days, got %d", len(groups[0].Days))
	}
	if groups[1].StartDate != "2025-06-14" || groups[1].EndDate != "2025-06-14" {
		t.Errorf("second group: got %s..%s", groups[1].StartDate, groups[1].EndDate)
	}
}

func TestAggregatePending_SplitsOnHoursChange(t *testing.T) {
	// Adjacent dates with different hours-per-day never share a range.
	agg := newTestAggregator(t,
		map[string]leave.Profile{"pdoe": rosterProfile("pdoe", "A")},
		[]leave.PendingRequest{
			pendingDay("pdoe", "2025-06-10", 8),
			pendingDay("pdoe", "2025-06-11", 4),
		})

	groups := agg.AggregatePending(context.Background(), aggAdmin)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
}

func TestAggregatePending_SeparatesPersons(t *testing.T) {
	agg := newTestAggregator(t,
		map[string]leave.Profile{
			"pdoe":  rosterProfile("pdoe", "A"),
			"other": rosterProfile("other", "A"),
		},
		[]leave.PendingRequest{
			pendingDay("pdoe", "2025-06-10", 8),
			pendingDay("other", "2025-06-11", 8),
		})

	groups := agg.AggregatePending(context.Background(), aggAdmin)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
}

func TestAggregatePending_FlattenReproducesQueue(t *testing.T) {
	// Flattening every group's days gives back exactly the pending set.
	in := []leave.PendingRequest{
		pendingDay("pdoe", "2025-06-10", 8),
		pendingDay("pdoe", "2025-06-11", 8),
		pendingDay("pdoe", "2025-06-20", 8),
		pendingDay("other", "2025-06-10", 4),
	}
	agg := newTestAggregator(t,
		map[string]leave.Profile{
			"pdoe":  rosterProfile("pdoe", "A"),
			"other": rosterProfile("other", "A"),
		}, in)

	groups := agg.AggregatePending(context.Background(), aggAdmin)

	seen := make(map[string]bool)
	total := 0
	for _, g := range groups {
		for _, d := range g.Days {
			seen[d.Person+"|"+d.Date] = true
			total++
		}
	}
	if total != len(in) {
		t.Fatalf("expected %d flattened days, got %d", len(in), total)
	}
	for _, r := range in {
		if !seen[r.Person+"|"+r.Date] {
			t.Errorf("missing %s %s after flatten", r.Person, r.Date)
		}
	}
}

func TestAggregatePending_UnparseableDatesSortLast(t *testing.T) {
	agg := newTestAggregator(t,
		map[string]leave.Profile{"pdoe": rosterProfile("pdoe", "A")},
		[]leave.PendingRequest{
			pendingDay("pdoe", "garbage", 8),
			pendingDay("pdoe", "2025-06-10", 8),
		})

	groups := agg.AggregatePending(context.Background(), aggAdmin)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	last := groups[len(groups)-1]
	if last.StartDate != "garbage" {
		t.Errorf("expected unparseable date in final group, got %s", last.StartDate)
	}
}

func TestAggregatePending_SupervisorSeesOwnSquadOnly(t *testing.T) {
	agg := newTestAggregator(t,
		map[string]leave.Profile{
			"pdoe":  rosterProfile("pdoe", "A"),
			"other": rosterProfile("other", "B"),
		},
		[]leave.PendingRequest{
			pendingDay("pdoe", "2025-06-10", 8),
			pendingDay("other", "2025-06-10", 8),
		})

	sgtA := leave.Actor{ID: "sgta", Role: leave.RoleSupervisor, Squad: "A"}
	groups := agg.AggregatePending(context.Background(), sgtA)
	if len(groups) != 1 {
		t.Fatalf("expected 1 scoped group, got %d", len(groups))
	}
	if groups[0].Person != "pdoe" {
		t.Errorf("expected squad A person, got %s", groups[0].Person)
	}
}

func TestAggregatePending_EmptyQueue(t *testing.T) {
	agg := newTestAggregator(t, map[string]leave.Profile{}, nil)
	groups := agg.AggregatePending(context.Background(), aggAdmin)
	if len(groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(groups))
	}
}
