/*
handlers.go - HTTP API handlers for the leave ledger

PURPOSE:
  Exposes the leave workflow engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Requests:
    POST   /api/requests               Submit time-off batch
    POST   /api/requests/decide        Approve or deny one pending day
    POST   /api/requests/cancel        Withdraw one's own pending day
    GET    /api/requests/pending       Aggregated pending queue (ranges)

  History:
    GET    /api/history                Event log, filterable

  Day status:
    POST   /api/day-status             Apply override across a date range
    POST   /api/day-status/preview     Dry-run the same payload

  Admin:
    POST   /api/admin/accrual          Run annual accrual
    POST   /api/admin/adjustments      Absolute balance adjustment
    POST   /api/admin/archive/{id}     Soft-delete a person
    POST   /api/admin/unarchive/{id}   Restore an archived person

  Roster:
    GET    /api/profiles               List profiles
    GET    /api/profiles/{id}          One profile

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario

IDENTITY:
  The acting identity arrives pre-resolved in headers (X-Actor,
  X-Actor-Role, X-Actor-Squad). There is no authentication layer here;
  a gateway in front of this service owns that concern.

ERROR HANDLING:
  Domain errors map to HTTP status by sentinel:
  - 400: invalid input
  - 403: out of scope for the acting role
  - 404: person or pending request not found
  - 422: insufficient balance
  - 500: storage and other internal errors
  A confirmation-required submit is a 200 with confirm_needed set, not
  an error.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      leave.Store
	Engine     *leave.Engine
	Overlay    *leave.Overlay
	Aggregator *leave.Aggregator
	Accrual    *leave.AccrualEngine
	Log        *logrus.Logger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler wires a handler and its engines over the given store.
func NewHandler(store leave.Store, log *logrus.Logger) *Handler {
	engine := leave.NewEngine(store)
	engine.Log = log
	overlay := leave.NewOverlay(store)
	overlay.Log = log
	accrual := leave.NewAccrualEngine(store)
	accrual.Log = log
	agg := leave.NewAggregator(store)
	agg.Log = log

	return &Handler{
		Store:      store,
		Engine:     engine,
		Overlay:    overlay,
		Aggregator: agg,
		Accrual:    accrual,
		Log:        log,
	}
}

// actorFrom resolves the acting identity from request headers.
func actorFrom(r *http.Request) leave.Actor {
	role := leave.Role(r.Header.Get("X-Actor-Role"))
	switch role {
	case leave.RoleSupervisor, leave.RoleAdmin, leave.RoleWebmaster:
	default:
		role = leave.RoleUser
	}
	return leave.Actor{
		ID:    r.Header.Get("X-Actor"),
		Role:  role,
		Squad: r.Header.Get("X-Actor-Squad"),
	}
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// SubmitRequest creates a time-off batch for the acting person.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Engine.Submit(r.Context(), actorFrom(r), leave.SubmitInput{
		Type:        leave.LeaveType(req.Type),
		Start:       req.StartDate,
		End:         req.EndDate,
		HoursPerDay: decimal.NewFromFloat(req.HoursPerDay),
		Note:        req.Note,
		Force:       req.Force,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DecideRequest approves or denies one pending vacation day.
func (h *Handler) DecideRequest(w http.ResponseWriter, r *http.Request) {
	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Engine.Decide(r.Context(), actorFrom(r), req.Person, req.Date, leave.Decision(req.Decision))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CancelRequest withdraws the acting person's own pending vacation day.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Engine.Cancel(r.Context(), actorFrom(r), req.Date); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(leave.StatusCancelled)})
}

// ListPendingRequests returns the pending queue aggregated into
// contiguous ranges, scoped to the acting role.
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	groups := h.Aggregator.AggregatePending(r.Context(), actorFrom(r))
	if groups == nil {
		groups = []leave.RangeGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

// History returns event log entries, filterable by person, year, status
// and type query parameters.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := leave.HistoryFilter{
		Person: q.Get("person"),
		Status: leave.EventStatus(q.Get("status")),
		Type:   leave.LeaveType(q.Get("type")),
	}
	if y := q.Get("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		f.Year = year
	}

	events := h.Engine.History(r.Context(), f)
	if events == nil {
		events = []leave.EventEntry{}
	}
	writeJSON(w, http.StatusOK, events)
}

// =============================================================================
// DAY STATUS HANDLERS
// =============================================================================

// SetDayStatus applies an override label across a date range.
func (h *Handler) SetDayStatus(w http.ResponseWriter, r *http.Request) {
	var req DayStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	status := req.Status
	if status == "" {
		status = leave.DayAvailable
	}
	res, err := h.Overlay.Set(r.Context(), actorFrom(r), req.Person, req.StartDate, req.EndDate, status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PreviewDayStatus dry-runs the same payload as SetDayStatus.
func (h *Handler) PreviewDayStatus(w http.ResponseWriter, r *http.Request) {
	var req DayStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	days, err := h.Overlay.Preview(r.Context(), actorFrom(r), req.Person, req.StartDate, req.EndDate, req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if days == nil {
		days = []leave.DayPreview{}
	}
	writeJSON(w, http.StatusOK, days)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RunAccrual triggers the annual accrual for every active profile.
func (h *Handler) RunAccrual(w http.ResponseWriter, r *http.Request) {
	var req AccrualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Accrual.Run(r.Context(), actorFrom(r), req.Year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateAdjustment sets an absolute balance value with a reason.
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.Engine.AdjustBalance(r.Context(), actorFrom(r), req.Person,
		leave.BalanceKind(req.Balance), decimal.NewFromFloat(req.Hours), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "adjusted"})
}

// ArchiveProfile soft-deletes a person.
func (h *Handler) ArchiveProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Engine.Archive(r.Context(), actorFrom(r), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}

// UnarchiveProfile restores an archived person.
func (h *Handler) UnarchiveProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Engine.Unarchive(r.Context(), actorFrom(r), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

// =============================================================================
// ROSTER HANDLERS
// =============================================================================

// ListProfiles returns the roster, active first, sorted by display name.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Store.LoadProfiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load profiles", err)
		return
	}

	dtos := make([]ProfileDTO, 0, len(profiles))
	for _, p := range profiles {
		dtos = append(dtos, toProfileDTO(p))
	}
	sort.Slice(dtos, func(i, j int) bool {
		if dtos[i].Active != dtos[j].Active {
			return dtos[i].Active
		}
		return dtos[i].Name < dtos[j].Name
	})
	writeJSON(w, http.StatusOK, dtos)
}

// GetProfile returns a single profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	profiles, err := h.Store.LoadProfiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load profiles", err)
		return
	}
	p, ok := profiles[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Profile not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toProfileDTO(p))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func decodeBody(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps core sentinel errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, leave.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	case errors.Is(err, leave.ErrOutOfScope):
		writeError(w, http.StatusForbidden, "Out of scope", err)
	case errors.Is(err, leave.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, leave.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, "Insufficient balance", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
