/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in the domain core, not in DTOs. DTOs are pure data
  carriers; handlers only translate shapes.

SEE ALSO:
  - handlers.go: Uses these types
  - leave/types.go: Domain model
*/
package api

import (
	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// SubmitRequest is the request body for submitting a time-off batch.
type SubmitRequest struct {
	Type        string  `json:"type"` // "vacation" or "sick"
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date,omitempty"`
	HoursPerDay float64 `json:"hours_per_day"`
	Note        string  `json:"note,omitempty"`
	Force       bool    `json:"force,omitempty"`
}

// DecideRequest is the request body for approving or denying one pending day.
type DecideRequest struct {
	Person   string `json:"person"`
	Date     string `json:"date"`
	Decision string `json:"decision"` // "approve" or "deny"
}

// CancelRequest is the request body for withdrawing one's own pending day.
type CancelRequest struct {
	Date string `json:"date"`
}

// DayStatusRequest is the request body for Set and Preview.
type DayStatusRequest struct {
	Person    string `json:"person"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date,omitempty"`
	Status    string `json:"status"` // override label, or "Available" to clear
}

// AccrualRequest triggers the annual accrual run.
type AccrualRequest struct {
	Year int `json:"year"`
}

// AdjustmentRequest sets an absolute balance with a required reason.
type AdjustmentRequest struct {
	Person  string  `json:"person"`
	Balance string  `json:"balance"` // "vacation" or "sick"
	Hours   float64 `json:"hours"`
	Reason  string  `json:"reason"`
}

// ProfileDTO represents one person in roster responses.
type ProfileDTO struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"` // "Last, First"
	Rank             string  `json:"rank,omitempty"`
	Squad            string  `json:"squad,omitempty"`
	CallSign         string  `json:"call_sign,omitempty"`
	Sector           string  `json:"sector,omitempty"`
	Role             string  `json:"role"`
	VacationLeft     float64 `json:"vacation_left"`
	SickLeft         float64 `json:"sick_left"`
	SickUsedYTD      float64 `json:"sick_used_ytd"`
	HoursPerDay      float64 `json:"hours_per_day"`
	MinRequiredHours int     `json:"min_required_hours"`
	SupervisorAlert  bool    `json:"supervisor_alert"`
	Active           bool    `json:"active"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toProfileDTO(p leave.Profile) ProfileDTO {
	return ProfileDTO{
		ID:               p.ID,
		Name:             p.DisplayName(),
		Rank:             p.Rank,
		Squad:            p.Squad,
		CallSign:         p.CallSign,
		Sector:           p.Sector,
		Role:             string(p.Role),
		VacationLeft:     p.VacationLeft.InexactFloat64(),
		SickLeft:         p.SickLeft.InexactFloat64(),
		SickUsedYTD:      p.SickUsedYTD.InexactFloat64(),
		HoursPerDay:      p.DailyHours().InexactFloat64(),
		MinRequiredHours: p.MinRequiredHours,
		SupervisorAlert:  p.SupervisorAlert,
		Active:           p.Active,
	}
}
