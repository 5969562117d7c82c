package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-ledger/leave"
	"github.com/warp/leave-ledger/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T, profiles ...leave.Profile) (*leave.Engine, *memory.Store) {
	t.Helper()
	store := memory.New()
	m := make(map[string]leave.Profile, len(profiles))
	for _, p := range profiles {
		m[p.ID] = p
	}
	require.NoError(t, store.SaveProfiles(context.Background(), m))

	engine := leave.NewEngine(store)
	engine.Now = func() time.Time {
		return time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	}
	return engine, store
}

func officer(id, squad string, vacation, sick int64) leave.Profile {
	return leave.Profile{
		ID:           id,
		FirstName:    "Pat",
		LastName:     "Doe",
		Rank:         "Officer",
		Squad:        squad,
		Role:         leave.RoleUser,
		VacationLeft: decimal.NewFromInt(vacation),
		SickLeft:     decimal.NewFromInt(sick),
		HoursPerDay:  decimal.NewFromInt(8),
		Active:       true,
	}
}

func userActor(id string) leave.Actor {
	return leave.Actor{ID: id, Role: leave.RoleUser}
}

func hours(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// =============================================================================
// SICK SUBMISSION TESTS
// =============================================================================

func TestSubmit_Sick_DeductsImmediately(t *testing.T) {
	// GIVEN: 16h of sick balance
	// WHEN: Submitting two 8h sick days
	// THEN: Balance reaches 0, events are logged, days marked Sick

	engine, store := newTestEngine(t, officer("pdoe", "A", 80, 16))
	ctx := context.Background()

	res, err := engine.Submit(ctx, userActor("pdoe"), leave.SubmitInput{
		Type:        leave.TypeSick,
		Start:       "2025-06-10",
		End:         "2025-06-11",
		HoursPerDay: hours(8),
	})
	require.NoError(t, err)
	assert.False(t, res.ConfirmNeeded)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, leave.StatusLogged, res.Status)

	profiles, err := store.LoadProfiles(ctx)
	require.NoError(t, err)
	p := profiles["pdoe"]
	assert.True(t, p.SickLeft.IsZero(), "sick balance should be exhausted, got %s", p.SickLeft)
	assert.True(t, p.SickUsedYTD.Equal(hours(16)))

	events, err := store.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, leave.StatusLogged, ev.Status)
		assert.Equal(t, leave.TypeSick, ev.Type)
	}

	statusMap, err := store.LoadDayStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, leave.DaySick, statusMap["2025-06-10"]["pdoe"])
	assert.Equal(t, leave.DaySick, statusMap["2025-06-11"]["pdoe"])
}

func TestSubmit_Sick_InsufficientBalanceRejectsWholeBatch(t *testing.T) {
	// GIVEN: 8h of sick balance
	// WHEN: Submitting a two-day 8h batch (16h total)
	// THEN: The whole batch is rejected; nothing is written

	engine, store := newTestEngine(t, officer("pdoe", "A", 80, 8))
	ctx := context.Background()

	_, err := engine.Submit(ctx, userActor("pdoe"), leave.SubmitInput{
		Type:        leave.TypeSick,
		Start:       "2025-06-10",
		End:         "2025-06-11",
		HoursPerDay: hours(8),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, leave.ErrInsufficientBalance)

	profiles, _ := store.LoadProfiles(ctx)
	assert.True(t, profiles["pdoe"].SickLeft.Equal(hours(8)), "balance must be untouched")
	events, _ := store.ListEvents(ctx)
	assert.Empty(t, events)
}

// =============================================================================
// VACATION SUBMISSION TESTS
// =============================================================================

func TestSubmit_Vacation_QueuesWithoutDeduction(t *testing.T) {
	// GIVEN: An officer with vacation balance
	// WHEN: Submitting a three-day vacation request
	// THEN: Days become pending; the balance is untouched until approval

	engine, store := newTestEngine(t, officer("pdoe", "A", 80, 40))
	ctx := context.Background()

	res, err := engine.Submit(ctx, userActor("pdoe"), leave.SubmitInput{
		Type:        leave.TypeVacation,
		Start:       "2025-06-10",
		End:         "2025-06-12",
		HoursPerDay: hours(8),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, leave.StatusPending, res.Status)

	profiles, _ := store.LoadProfiles(ctx)
	assert.True(t, profiles["pdoe"].VacationLeft.Equal(hours(80)))

	pending, _ := store.LoadPending(ctx)
	assert.Len(t, pending, 3)

	events, _ := store.ListEvents(ctx)
	assert.Len(t, events, 3)
}

func TestSubmit_DuplicateRequiresConfirmation(t *testing.T) {
	// GIVEN: A pending request for June 10
	// WHEN: Submitting June 10-11 again without force
	// THEN: A confirm-needed result lists only the overlapping date

	engine, store := newTestEngine(t, officer("pdoe", "A", 80, 40))
	ctx := context.Background()

	_, err := engine.Submit(ctx, userActor("pdoe"), leave.SubmitInput{
		Type: leave.TypeVacation, Start: "2025-06-10", HoursPerDay: hours(8),
	})
	require.NoError(t, err)

	res, err := engine.Submit(ctx, userActor("pdoe"), leave.SubmitInput{
		Type: leave.TypeVacation, Start: "2025-06-10", End: "2025-06-11", HoursPerDay: hours(8),
	})
	require.NoError(t, err)
	assert.True(t, res.ConfirmNeeded)
	assert.Equal(t, []string{"2025-06-10"}, res.ConflictingDates)
	assert.Zero(t, res.Created)

	// Nothing new was written.
	pending, _ := store.LoadPending(ctx)
	assert.Len(t, pending, 1)
}

func TestSubmit_ForceBypassesDuplicateCheck(t *testing.T) {
	engine, store := newTestEngine(t, officer("pdoe", "A", 80, 40))
	ctx := context.Background()

	_, err := engine.Submit(ctx, userActor("pdoe"), leave.SubmitInput{
		Type: leave.TypeVacation, Start: "2025-06-10", HoursPerDay: hours(8),
	})
	require.NoError(t, err)

	res, err := engine.Submit(ctx, userActor("pdoe"), leave.SubmitInput{
		Type: leave.TypeVacation, Start: "2025-06-10", HoursPerDay: hours(8), Force: true,
	})
	require.NoError(t, err)
	assert.False(t, res.ConfirmNeeded)
	assert.Equal(t, 1, res.Created)

	pending, _ := store.LoadPending(ctx)
	assert.Len(t, pending, 2)
}

func TestSubmit_ValidationRejects(t *testing.T) {
	engine, _ := newTestEngine(t, officer("pdoe", "A", 80, 40))
	ctx := context.Background()

	tests := []struct {
		name string
		in   leave.SubmitInput
	}{
		{"unknown type", leave.SubmitInput{Type: "comp", Start: "2025-06-10", HoursPerDay: hours(8)}},
		{"zero hours", leave.SubmitInput{Type: leave.TypeVacation, Start: "2025-06-10"}},
		{"negative hours", leave.SubmitInput{Type: leave.TypeVacation, Start: "2025-06-10", HoursPerDay: hours(-8)}},
		{"over 24 hours", leave.SubmitInput{Type: leave.TypeVacation, Start: "2025-06-10", HoursPerDay: hours(25)}},
		{"bad date", leave.SubmitInput{Type: leave.TypeVacation, Start: "06/10/2025", HoursPerDay: hours(8)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Submit(ctx, userActor("pdoe"), tt.in)
			assert.ErrorIs(t, err, leave.ErrInvalidInput)
		})
	}
}

func TestSubmit_UnknownPersonRejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.Submit(context.Background(), userActor("ghost"), leave.SubmitInput{
		Type: leave.TypeVacation, Start: "2025-06-10", HoursPerDay: hours(8),
	})
	assert.ErrorIs(t, err, leave.ErrNotFound)
}

// =============================================================================
// DECISION TESTS
// =============================================================================

func submitOneDay(t *testing.T, engine *leave.Engine, person, date string) {
	t.Helper()
	_, err := engine.Submit(context.Background(), userActor(person), leave.SubmitInput{
		Type: leave.TypeVacation, Start: date, HoursPerDay: hours(8),
	})
	require.NoError(t, err)
}

func TestDecide_ApproveDeductsAndMarksDay(t *testing.T) {
	// GIVEN: A pending 8h vacation day and an 80h balance
	// WHEN: An admin approves it
	// THEN: Balance drops to 72h, the queue empties, the day reads Vacation

	engine, store := newTestEngine(t, officer("pdoe", "A", 80, 40))
	ctx := context.Background()
	submitOneDay(t, engine, "pdoe", "2025-06-10")

	res, err := engine.Decide(ctx, leave.Actor{ID: "chief", Role: leave.RoleAdmin}, "pdoe", "2025-06-10", leave.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, res.Status)
	assert.True(t, res.Hours.Equal(hours(8)))

	profiles, _ := store.LoadProfiles(ctx)
	assert.True(t, profiles["pdoe"].VacationLeft.Equal(hours(72)))
	assert.True(t, profiles["pdoe"].VacationUsedToday.Equal(hours(8)))

	pending, _ := store.LoadPending(ctx)
	assert.Empty(t, pending)

	statusMap, _ := store.LoadDayStatus(ctx)
	assert.Equal(t, leave.DayVacation, statusMap["2025-06-10"]["pdoe"])
}

func TestDecide_ApproveMayOverdraw(t *testing.T) {
	// GIVEN: A 4h balance and a pending 8h day
	// WHEN: Approving
	// THEN: The balance goes negative; the approver's call stands

	engine, store := newTestEngine(t, officer("pdoe", "A", 4, 40))
	ctx := context.Background()
	submitOneDay(t, engine, "pdoe", "2025-06-10")

	_, err := engine.Decide(ctx, leave.Actor{ID: "chief", Role: leave.RoleAdmin}, "pdoe", "2025-06-10", leave.DecisionApprove)
	require.NoError(t, err)

	profiles, _ := store.LoadProfiles(ctx)
	assert.True(t, profiles["pdoe"].VacationLeft.Equal(hours(-4)),
		"expected -4h, got %s", profiles["pdoe"].VacationLeft)
}

func TestDecide_DenyLeavesBalanceAlone(t *testing.T) {
	engine, store := newTestEngine(t, officer("pdoe", "A", 80, 40))
	ctx := context.Background()
	submitOneDay(t, engine, "pdoe", "2025-06-10")

	res, err := engine.Decide(ctx, leave.Actor{ID: "chief", Role: leave.RoleAdmin}, "pdoe", "2025-06-10", leave.DecisionDeny)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusDenied, res.Status)

	profiles, _ := store.LoadProfiles(ctx)
	assert.True(t, profiles["pdoe"].VacationLeft.Equal(hours(80)))

	pending, _ := store.LoadPending(ctx)
	assert.Empty(t, pending)
}

func TestDecide_TerminalDecisionsAreExclusive(t *testing.T) {
	// GIVEN: An approved request
	// WHEN: Trying to decide it again
	// THEN: Not found; the pending entry is gone

	engine, _ := newTestEngine(t, officer("pdoe", "A", 80, 40))
	ctx := context.Background()
	submitOneDay(t, engine, "pdoe", "2025-06-10")

	chief := leave.Actor{ID: "chief", Role: leave.RoleAdmin}
	_, err := engine.Decide(ctx, chief, "pdoe", "2025-06-10", leave.DecisionApprove)
	require.NoError(t, err)

	_, err = engine.Decide(ctx, chief, "pdoe", "2025-06-10", leave.DecisionDeny)
	assert.ErrorIs(t, err, leave.ErrNotFound)
}

func TestDecide_SupervisorScopedToOwnSquad(t *testing.T) {
	engine, _ := newTestEngine(t, officer("pdoe", "A", 80, 40))
	ctx := context.Background()
	submitOneDay(t, engine, "pdoe", "2025-06-10")

	sgtB := leave.Actor{ID: "sgtb", Role: leave.RoleSupervisor, Squad: "B"}
	_, err := engine.Decide(ctx, sgtB, "pdoe", "2025-06-10", leave.DecisionApprove)
	assert.ErrorIs(t, err, leave.ErrOutOfScope)

	sgtA := leave.Actor{ID: "sgta", Role: leave.RoleSupervisor, Squad: "A"}
	_, err = engine.Decide(ctx, sgtA, "pdoe", "2025-06-10", leave.DecisionApprove)
	assert.NoError(t, err)
}

func TestDecide_PlainUserRejected(t *testing.T) {
	engine, _ := newTestEngine(t, officer("pdoe", "A", 80, 40))
	submitOneDay(t, engine, "pdoe", "2025-06-10")

	_, err := engine.Decide(context.Background(), userActor("peer"), "pdoe", "2025-06-10", leave.DecisionApprove)
	assert.ErrorIs(t, err, leave.ErrOutOfScope)
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestCancel_RemovesOwnPendingWithoutBalanceChange(t *testing.T) {
	engine, store := newTestEngine(t, officer("pdoe", "A", 80, 40))
	ctx := context.Background()
	submitOneDay(t, engine, "pdoe", "2025-06-10")

	require.NoError(t, engine.Cancel(ctx, userActor("pdoe"), "2025-06-10"))

	profiles, _ := store.LoadProfiles(ctx)
	assert.True(t, profiles["pdoe"].VacationLeft.Equal(hours(80)))

	pending, _ := store.LoadPending(ctx)
	assert.Empty(t, pending)

	events, _ := store.ListEvents(ctx)
	require.Len(t, events, 2) // pending + cancelled
	assert.Equal(t, leave.StatusCancelled, events[1].Status)
}

func TestCancel_OnlyOwnRequests(t *testing.T) {
	// A cancel call acts on the caller's queue; another person's pending
	// day is invisible to it.
	engine, store := newTestEngine(t, officer("pdoe", "A", 80, 40), officer("other", "A", 80, 40))
	ctx := context.Background()
	submitOneDay(t, engine, "pdoe", "2025-06-10")

	err := engine.Cancel(ctx, userActor("other"), "2025-06-10")
	assert.ErrorIs(t, err, leave.ErrNotFound)

	pending, _ := store.LoadPending(ctx)
	assert.Len(t, pending, 1)
}

// =============================================================================
// HISTORY TESTS
// =============================================================================

func TestHistory_Filters(t *testing.T) {
	engine, _ := newTestEngine(t, officer("pdoe", "A", 80, 40), officer("other", "A", 80, 40))
	ctx := context.Background()

	submitOneDay(t, engine, "pdoe", "2025-06-10")
	submitOneDay(t, engine, "other", "2025-06-11")
	_, err := engine.Submit(ctx, userActor("pdoe"), leave.SubmitInput{
		Type: leave.TypeSick, Start: "2025-06-12", HoursPerDay: hours(8),
	})
	require.NoError(t, err)

	all := engine.History(ctx, leave.HistoryFilter{})
	assert.Len(t, all, 3)

	mine := engine.History(ctx, leave.HistoryFilter{Person: "pdoe"})
	assert.Len(t, mine, 2)

	sick := engine.History(ctx, leave.HistoryFilter{Type: leave.TypeSick})
	assert.Len(t, sick, 1)

	none := engine.History(ctx, leave.HistoryFilter{Year: 2024})
	assert.Empty(t, none)
}

// =============================================================================
// SICK RESET TESTS
// =============================================================================

func TestResetSickUsage_OnlyOnJanuaryFirst(t *testing.T) {
	engine, store := newTestEngine(t, officer("pdoe", "A", 80, 40))
	ctx := context.Background()

	profiles, _ := store.LoadProfiles(ctx)
	p := profiles["pdoe"]
	p.SickUsedYTD = hours(24)
	profiles["pdoe"] = p
	require.NoError(t, store.SaveProfiles(ctx, profiles))

	// Mid-year call is a no-op.
	n, err := engine.ResetSickUsage(ctx, time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, n)

	// January 1 resets.
	n, err = engine.ResetSickUsage(ctx, time.Date(2026, time.January, 1, 0, 5, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	profiles, _ = store.LoadProfiles(ctx)
	assert.True(t, profiles["pdoe"].SickUsedYTD.IsZero())

	// Second call the same day is idempotent.
	n, err = engine.ResetSickUsage(ctx, time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, n)
}

// =============================================================================
// ADMIN MUTATION TESTS
// =============================================================================

func TestAdjustBalance_SetsAbsoluteValue(t *testing.T) {
	engine, store := newTestEngine(t, officer("pdoe", "A", 80, 40))
	ctx := context.Background()
	chief := leave.Actor{ID: "chief", Role: leave.RoleAdmin}

	require.NoError(t, engine.AdjustBalance(ctx, chief, "pdoe", leave.BalanceVacation, hours(120), "payroll correction"))

	profiles, _ := store.LoadProfiles(ctx)
	assert.True(t, profiles["pdoe"].VacationLeft.Equal(hours(120)))

	// Negative values are rejected even for admins.
	err := engine.AdjustBalance(ctx, chief, "pdoe", leave.BalanceSick, hours(-1), "oops")
	assert.ErrorIs(t, err, leave.ErrInvalidInput)

	// Non-admins are rejected.
	err = engine.AdjustBalance(ctx, userActor("pdoe"), "pdoe", leave.BalanceVacation, hours(999), "self serve")
	assert.ErrorIs(t, err, leave.ErrOutOfScope)
}

func TestArchiveAndUnarchive(t *testing.T) {
	engine, store := newTestEngine(t, officer("pdoe", "A", 80, 40))
	ctx := context.Background()
	chief := leave.Actor{ID: "chief", Role: leave.RoleAdmin}

	require.NoError(t, engine.Archive(ctx, chief, "pdoe"))

	profiles, _ := store.LoadProfiles(ctx)
	p := profiles["pdoe"]
	assert.False(t, p.Active)
	assert.Equal(t, "Archived", p.Rank)
	assert.True(t, p.VacationLeft.IsZero())

	// Archived people are out of workflow scope.
	_, err := engine.Submit(ctx, userActor("pdoe"), leave.SubmitInput{
		Type: leave.TypeVacation, Start: "2025-06-10", HoursPerDay: hours(8),
	})
	assert.ErrorIs(t, err, leave.ErrNotFound)

	require.NoError(t, engine.Unarchive(ctx, chief, "pdoe"))
	profiles, _ = store.LoadProfiles(ctx)
	assert.True(t, profiles["pdoe"].Active)
	assert.Equal(t, "Officer", profiles["pdoe"].Rank)
}
