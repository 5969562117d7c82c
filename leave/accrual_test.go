package leave_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-ledger/leave"
	"github.com/warp/leave-ledger/store/memory"
)

// =============================================================================
// ENTITLEMENT TABLE TESTS
// =============================================================================

func TestEntitlementDaysForYear_StepTable(t *testing.T) {
	seniority := leave.NewDate(2010, time.January, 1)

	tests := []struct {
		name string
		year int
		want int
	}{
		{"under one year", 2010, 0},
		{"one year", 2011, 10},
		{"four years", 2014, 10},
		{"five years", 2015, 15},
		{"nine years", 2019, 15},
		{"ten years", 2020, 20},
		{"fourteen years", 2024, 20},
		{"fifteen years", 2025, 25},
		{"eighteen years", 2028, 28},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := leave.EntitlementDaysForYear(&seniority, tt.year); got != tt.want {
				t.Errorf("year %d: expected %d days, got %d", tt.year, tt.want, got)
			}
		})
	}
}

func TestEntitlementDaysForYear_EvaluatedAtDec31(t *testing.T) {
	// GIVEN: A December hire
	// WHEN: Computing entitlement for the anniversary year
	// THEN: The Dec 31 evaluation still counts the completed year

	seniority := leave.NewDate(2020, time.December, 31)
	if got := leave.EntitlementDaysForYear(&seniority, 2021); got != 10 {
		t.Errorf("expected 10 days for one completed year at Dec 31, got %d", got)
	}
}

func TestEntitlementDaysForYear_NilSeniority(t *testing.T) {
	if got := leave.EntitlementDaysForYear(nil, 2025); got != 0 {
		t.Errorf("expected 0 days for nil seniority, got %d", got)
	}
}

func TestEntitlementDaysForYear_Monotonic(t *testing.T) {
	// Entitlement never decreases as service grows.
	seniority := leave.NewDate(2000, time.July, 1)
	prev := -1
	for year := 2000; year <= 2040; year++ {
		got := leave.EntitlementDaysForYear(&seniority, year)
		if got < prev {
			t.Fatalf("entitlement decreased at year %d: %d -> %d", year, prev, got)
		}
		prev = got
	}
}

// =============================================================================
// CARRYOVER TESTS
// =============================================================================

func TestApplyCarryover(t *testing.T) {
	tests := []struct {
		name        string
		prior       int64
		overCap     bool
		wantOut     int64
		wantMinUse  int
		wantFlagged bool
	}{
		{"under cap low tier", 200, false, 200, leave.MinUseLowHours, false},
		{"exactly threshold", 240, false, 240, leave.MinUseLowHours, false},
		{"over threshold high tier", 300, false, 300, leave.MinUseHighHours, false},
		{"exactly at cap", 560, false, 560, leave.MinUseHighHours, false},
		{"over cap clamped", 600, false, 560, leave.MinUseHighHours, true},
		{"over cap approved", 600, true, 600, leave.MinUseHighHours, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, minUse, flagged := leave.ApplyCarryover(decimal.NewFromInt(tt.prior), tt.overCap)
			if !out.Equal(decimal.NewFromInt(tt.wantOut)) {
				t.Errorf("carryover: expected %d, got %s", tt.wantOut, out)
			}
			if minUse != tt.wantMinUse {
				t.Errorf("min use: expected %d, got %d", tt.wantMinUse, minUse)
			}
			if flagged != tt.wantFlagged {
				t.Errorf("flag: expected %v, got %v", tt.wantFlagged, flagged)
			}
		})
	}
}

// =============================================================================
// ACCRUAL RUN TESTS
// =============================================================================

func newAccrualFixture(t *testing.T, profiles ...leave.Profile) (*leave.AccrualEngine, *memory.Store) {
	t.Helper()
	store := memory.New()
	m := make(map[string]leave.Profile, len(profiles))
	for _, p := range profiles {
		m[p.ID] = p
	}
	if err := store.SaveProfiles(context.Background(), m); err != nil {
		t.Fatalf("seed profiles: %v", err)
	}
	return leave.NewAccrualEngine(store), store
}

func accrualProfile(id string, seniority leave.Date, balance int64) leave.Profile {
	sd := seniority
	return leave.Profile{
		ID:            id,
		LastName:      "Test",
		VacationLeft:  decimal.NewFromInt(balance),
		HoursPerDay:   decimal.NewFromInt(8),
		SeniorityDate: &sd,
		Active:        true,
	}
}

var adminActor = leave.Actor{ID: "chief", Role: leave.RoleAdmin}

func TestAccrualRun_CreditsEntitlementOnCarryover(t *testing.T) {
	// GIVEN: 14 years of service (20 days * 8h = 160h) and a 100h balance
	// WHEN: Running accrual for 2024
	// THEN: Balance becomes 100 + 160 = 260h

	engine, store := newAccrualFixture(t, accrualProfile("p1", leave.NewDate(2010, time.January, 1), 100))

	res, err := engine.Run(context.Background(), adminActor, 2024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Processed != 1 || res.Flagged != 0 {
		t.Fatalf("expected 1 processed 0 flagged, got %+v", res)
	}

	profiles, _ := store.LoadProfiles(context.Background())
	p := profiles["p1"]
	if !p.VacationLeft.Equal(decimal.NewFromInt(260)) {
		t.Errorf("expected 260h, got %s", p.VacationLeft)
	}
	if p.EntitlementDaysYear != 20 {
		t.Errorf("expected 20 entitlement days, got %d", p.EntitlementDaysYear)
	}
	if p.MinRequiredHours != leave.MinUseLowHours {
		t.Errorf("expected low min-use tier, got %d", p.MinRequiredHours)
	}
}

func TestAccrualRun_ClampsAndFlagsOverCap(t *testing.T) {
	// GIVEN: 600h carried into the run, no over-cap approval
	// WHEN: Running accrual
	// THEN: Carryover clamps to 560h, the flag raises, min-use is 80h

	engine, store := newAccrualFixture(t, accrualProfile("p1", leave.NewDate(2010, time.January, 1), 600))

	res, err := engine.Run(context.Background(), adminActor, 2024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Flagged != 1 {
		t.Fatalf("expected 1 flagged, got %d", res.Flagged)
	}

	profiles, _ := store.LoadProfiles(context.Background())
	p := profiles["p1"]
	if !p.CarryoverHours.Equal(decimal.NewFromInt(560)) {
		t.Errorf("expected 560h carryover, got %s", p.CarryoverHours)
	}
	if !p.VacationLeft.Equal(decimal.NewFromInt(720)) { // 560 + 160
		t.Errorf("expected 720h, got %s", p.VacationLeft)
	}
	if !p.SupervisorAlert {
		t.Error("expected supervisor alert")
	}
	if p.MinRequiredHours != leave.MinUseHighHours {
		t.Errorf("expected high min-use tier, got %d", p.MinRequiredHours)
	}
}

func TestAccrualRun_OverCapApprovedKeepsBalance(t *testing.T) {
	p := accrualProfile("p1", leave.NewDate(2010, time.January, 1), 700)
	p.OverCapApproved = true
	engine, store := newAccrualFixture(t, p)

	if _, err := engine.Run(context.Background(), adminActor, 2024); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	profiles, _ := store.LoadProfiles(context.Background())
	got := profiles["p1"]
	if !got.CarryoverHours.Equal(decimal.NewFromInt(700)) {
		t.Errorf("expected uncapped 700h carryover, got %s", got.CarryoverHours)
	}
	if got.SupervisorAlert {
		t.Error("approved over-cap must not raise the alert")
	}
}

func TestAccrualRun_RerunIsIdempotent(t *testing.T) {
	// GIVEN: A completed accrual run for 2024
	// WHEN: Running 2024 again
	// THEN: The balance is unchanged; entitlement is not double-credited

	engine, store := newAccrualFixture(t, accrualProfile("p1", leave.NewDate(2010, time.January, 1), 100))

	if _, err := engine.Run(context.Background(), adminActor, 2024); err != nil {
		t.Fatalf("first run: %v", err)
	}
	profiles, _ := store.LoadProfiles(context.Background())
	first := profiles["p1"].VacationLeft

	if _, err := engine.Run(context.Background(), adminActor, 2024); err != nil {
		t.Fatalf("second run: %v", err)
	}
	profiles, _ = store.LoadProfiles(context.Background())
	second := profiles["p1"].VacationLeft

	if !first.Equal(second) {
		t.Errorf("re-run changed balance: %s -> %s", first, second)
	}
}

func TestAccrualRun_SkipsInactiveProfiles(t *testing.T) {
	p := accrualProfile("gone", leave.NewDate(2010, time.January, 1), 100)
	p.Active = false
	engine, store := newAccrualFixture(t, p)

	res, err := engine.Run(context.Background(), adminActor, 2024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Processed != 0 {
		t.Errorf("expected 0 processed, got %d", res.Processed)
	}

	profiles, _ := store.LoadProfiles(context.Background())
	if !profiles["gone"].VacationLeft.Equal(decimal.NewFromInt(100)) {
		t.Error("inactive profile balance must not change")
	}
}

func TestAccrualRun_RequiresAdmin(t *testing.T) {
	engine, _ := newAccrualFixture(t, accrualProfile("p1", leave.NewDate(2010, time.January, 1), 100))

	_, err := engine.Run(context.Background(), leave.Actor{ID: "sgt", Role: leave.RoleSupervisor}, 2024)
	if err == nil {
		t.Fatal("expected out-of-scope error")
	}
	var scopeErr *leave.OutOfScopeError
	if !errors.As(err, &scopeErr) {
		t.Fatalf("expected OutOfScopeError, got %T", err)
	}
}

func TestAccrualRun_RejectsImplausibleYear(t *testing.T) {
	engine, _ := newAccrualFixture(t)
	if _, err := engine.Run(context.Background(), adminActor, 99); err == nil {
		t.Fatal("expected invalid input error")
	}
}
