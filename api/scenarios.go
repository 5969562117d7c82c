/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds the store with recognizable rosters so the API can be explored
  without hand-crafting profiles. Each scenario replaces the current
  profile snapshot; events, pending entries, and day statuses are left
  alone so loaded data composes with whatever the demo has produced.

SCENARIOS:
  patrol-squad:  A small two-squad roster with mixed seniority
  year-end:      High-carryover profiles that exercise the 560h cap

SEE ALSO:
  - handlers.go: Scenario endpoints
  - leave/accrual.go: Carryover cap the year-end scenario targets
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-ledger/leave"
)

// scenario couples metadata with its loader.
type scenario struct {
	ID          string
	Name        string
	Description string
	Load        func(ctx context.Context, store leave.Store) error
}

var scenarios = []scenario{
	{
		ID:          "patrol-squad",
		Name:        "Patrol Squad",
		Description: "Two squads, mixed seniority, healthy balances",
		Load:        loadPatrolSquad,
	},
	{
		ID:          "year-end",
		Name:        "Year End",
		Description: "High carryover balances near the 560h cap",
		Load:        loadYearEnd,
	},
}

// ListScenarios returns all demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario reports which scenario was loaded last, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": h.currentScenario})
}

// LoadScenario replaces the profile snapshot with a scenario roster.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	for _, s := range scenarios {
		if s.ID != req.ScenarioID {
			continue
		}
		if err := s.Load(r.Context(), h.Store); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
			return
		}
		h.currentScenario = s.ID
		writeJSON(w, http.StatusOK, map[string]string{"loaded": s.ID})
		return
	}
	writeError(w, http.StatusNotFound, "Unknown scenario", nil)
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

func demoProfile(id, first, last, rank, squad, callSign string, role leave.Role, seniority leave.Date, vacation, sick int64) leave.Profile {
	sd := seniority
	return leave.Profile{
		ID:            id,
		FirstName:     first,
		LastName:      last,
		Rank:          rank,
		Squad:         squad,
		CallSign:      callSign,
		Sector:        "North",
		Role:          role,
		VacationLeft:  decimal.NewFromInt(vacation),
		SickLeft:      decimal.NewFromInt(sick),
		HoursPerDay:   decimal.NewFromInt(8),
		SeniorityDate: &sd,
		Active:        true,
	}
}

func loadPatrolSquad(ctx context.Context, store leave.Store) error {
	profiles := map[string]leave.Profile{
		"jsmith":  demoProfile("jsmith", "Jane", "Smith", "Sergeant", "A", "1A12", leave.RoleSupervisor, leave.NewDate(2012, time.March, 5), 240, 180),
		"bjones":  demoProfile("bjones", "Bob", "Jones", "Officer", "A", "1A14", leave.RoleUser, leave.NewDate(2019, time.June, 17), 120, 96),
		"mlee":    demoProfile("mlee", "Min", "Lee", "Officer", "A", "1A16", leave.RoleUser, leave.NewDate(2023, time.January, 9), 80, 40),
		"kgarcia": demoProfile("kgarcia", "Karla", "Garcia", "Sergeant", "B", "1B12", leave.RoleSupervisor, leave.NewDate(2008, time.October, 1), 320, 220),
		"tnguyen": demoProfile("tnguyen", "Tam", "Nguyen", "Officer", "B", "1B15", leave.RoleUser, leave.NewDate(2016, time.April, 22), 160, 120),
		"admin":   demoProfile("admin", "Dana", "Price", "Lieutenant", "", "100", leave.RoleAdmin, leave.NewDate(2005, time.February, 14), 400, 300),
	}
	return store.SaveProfiles(ctx, profiles)
}

func loadYearEnd(ctx context.Context, store leave.Store) error {
	atCap := demoProfile("rcap", "Ray", "Capwell", "Officer", "A", "1A21", leave.RoleUser, leave.NewDate(2004, time.July, 2), 0, 150)
	atCap.VacationLeft = decimal.NewFromInt(600) // above the 560h carryover cap

	approved := demoProfile("oexempt", "Olive", "Exley", "Officer", "A", "1A22", leave.RoleUser, leave.NewDate(2001, time.May, 30), 0, 150)
	approved.VacationLeft = decimal.NewFromInt(700)
	approved.OverCapApproved = true

	low := demoProfile("lnew", "Lou", "Newton", "Officer", "B", "1B21", leave.RoleUser, leave.NewDate(2024, time.September, 8), 0, 60)
	low.VacationLeft = decimal.NewFromInt(24)

	profiles := map[string]leave.Profile{
		atCap.ID:    atCap,
		approved.ID: approved,
		low.ID:      low,
		"admin":     demoProfile("admin", "Dana", "Price", "Lieutenant", "", "100", leave.RoleAdmin, leave.NewDate(2005, time.February, 14), 400, 300),
	}
	return store.SaveProfiles(ctx, profiles)
}
