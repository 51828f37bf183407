/*
handlers.go - HTTP API handlers for the attendance system

PURPOSE:
  Exposes the attendance service via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Users:
    GET    /api/users                    List all users
    POST   /api/users                    Create user
    GET    /api/users/{id}               Get user details
    DELETE /api/users/{id}               GDPR erasure
    GET    /api/users/{id}/export        GDPR data export

  Time tracking:
    POST   /api/users/{id}/checkin       Open a work interval
    POST   /api/users/{id}/checkout      Close it; places breaks, bills
    GET    /api/users/{id}/records       List intervals (from/to query)
    GET    /api/users/{id}/report        CSV timesheet (from/to query)
    PUT    /api/records/{id}             Edit interval boundaries
    GET    /api/records/{id}/breaks      List breaks
    POST   /api/records/{id}/breaks      Add manual break
    DELETE /api/breaks/{id}              Remove a break

  Policy:
    GET    /api/settings/policy          System break policy
    PUT    /api/settings/policy          Replace system break policy
    GET    /api/users/{id}/policy        User override (404 when none)
    PUT    /api/users/{id}/policy        Set user override
    DELETE /api/users/{id}/policy        Drop user override
    GET    /api/users/{id}/policy/resolved  Effective merged policy

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (double check-in, checkout without check-in)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/engine"
	"github.com/warp/attendance-engine/export"
	"github.com/warp/attendance-engine/factory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service       *attendance.Service
	Store         attendance.TxStore
	Timesheet     *export.Timesheet
	PolicyFactory *factory.PolicyFactory

	// now is swappable for tests; defaults to time.Now.
	now func() time.Time
}

// NewHandler creates a new handler on top of the given store.
func NewHandler(store attendance.TxStore) *Handler {
	return &Handler{
		Service:       attendance.NewService(store),
		Store:         store,
		Timesheet:     export.NewTimesheet(store),
		PolicyFactory: factory.NewPolicyFactory(),
		now:           time.Now,
	}
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users.
// GET /api/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUser creates a user.
// POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required", nil)
		return
	}

	user := &attendance.User{Username: req.Username, IsAdmin: req.IsAdmin}
	if err := h.Store.CreateUser(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(*user))
}

// GetUser returns one user.
// GET /api/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.Store.GetUser(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to load user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*user))
}

// ExportUser returns everything stored about a user.
// GET /api/users/{id}/export
func (h *Handler) ExportUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	bundle, err := h.Service.ExportUserData(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to export user data", err)
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "attendance-export-"+bundle.ExportID+".json"))
	writeJSON(w, http.StatusOK, bundle)
}

// EraseUser removes a user and all their data.
// DELETE /api/users/{id}
func (h *Handler) EraseUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.EraseUserData(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to erase user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TIME TRACKING HANDLERS
// =============================================================================

// CheckIn opens a work interval.
// POST /api/users/{id}/checkin
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	at, ok := h.clockTime(w, r)
	if !ok {
		return
	}

	rec, err := h.Service.CheckIn(r.Context(), id, at)
	if err != nil {
		writeDomainError(w, "Check-in failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecordDTO(*rec))
}

// CheckOut closes the open interval, placing statutory breaks and
// computing billable time.
// POST /api/users/{id}/checkout
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	at, ok := h.clockTime(w, r)
	if !ok {
		return
	}

	summary, err := h.Service.CheckOut(r.Context(), id, at)
	if err != nil {
		writeDomainError(w, "Checkout failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// ListRecords returns a user's work intervals, optionally bounded by
// from/to query parameters.
// GET /api/users/{id}/records
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rng, ok := queryRange(w, r)
	if !ok {
		return
	}

	records, err := h.Service.Records(r.Context(), id, rng)
	if err != nil {
		writeDomainError(w, "Failed to list records", err)
		return
	}

	dtos := make([]RecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Report streams the user's timesheet as CSV.
// GET /api/users/{id}/report
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rng, ok := queryRange(w, r)
	if !ok {
		return
	}

	// Resolve the user before any CSV bytes go out, so a bad ID still gets
	// a proper JSON 404.
	if _, err := h.Store.GetUser(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to export timesheet", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="timesheet.csv"`)
	if err := h.Timesheet.WriteCSV(r.Context(), w, id, rng); err != nil {
		writeDomainError(w, "Failed to export timesheet", err)
	}
}

// EditRecord changes an interval's boundaries and recomputes its breaks.
// PUT /api/records/{id}
func (h *Handler) EditRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req EditRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err := engine.ParseTimestamp(req.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid check_in", err)
		return
	}
	end, err := engine.ParseTimestamp(req.CheckOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid check_out", err)
		return
	}

	summary, err := h.Service.EditRecord(r.Context(), id, start, end)
	if err != nil {
		writeDomainError(w, "Failed to edit record", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// ListBreaks returns the breaks of one interval.
// GET /api/records/{id}/breaks
func (h *Handler) ListBreaks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	// 404 over an empty list for unknown intervals.
	if _, err := h.Service.Record(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to load record", err)
		return
	}

	breaks, err := h.Service.Breaks(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list breaks", err)
		return
	}

	dtos := make([]BreakDTO, len(breaks))
	for i, b := range breaks {
		dtos[i] = toBreakDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AddBreak records a manual break.
// POST /api/records/{id}/breaks
func (h *Handler) AddBreak(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req AddBreakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err := engine.ParseTimestamp(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start", err)
		return
	}
	end, err := engine.ParseTimestamp(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end", err)
		return
	}
	excluded := true
	if req.ExcludedFromBilling != nil {
		excluded = *req.ExcludedFromBilling
	}

	summary, err := h.Service.AddManualBreak(r.Context(), id, start, end, req.Description, excluded)
	if err != nil {
		writeDomainError(w, "Failed to add break", err)
		return
	}
	if summary == nil {
		// Interval still open; nothing to recompute yet.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// DeleteBreak removes a break and recomputes its interval.
// DELETE /api/breaks/{id}
func (h *Handler) DeleteBreak(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	summary, err := h.Service.DeleteBreak(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to delete break", err)
		return
	}
	if summary == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// GetSystemPolicy returns the system break policy.
// GET /api/settings/policy
func (h *Handler) GetSystemPolicy(w http.ResponseWriter, r *http.Request) {
	pol, err := h.Store.SystemPolicy(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to load policy", err)
		return
	}
	writeJSON(w, http.StatusOK, h.PolicyFactory.ToDocument(*pol))
}

// PutSystemPolicy replaces the system break policy. Out-of-range values
// are clamped, not rejected; the response shows what was stored.
// PUT /api/settings/policy
func (h *Handler) PutSystemPolicy(w http.ResponseWriter, r *http.Request) {
	var doc factory.PolicyDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	pol, notes, err := h.PolicyFactory.FromDocument(doc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid policy", err)
		return
	}
	if err := h.Store.SaveSystemPolicy(r.Context(), pol); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save policy", err)
		return
	}

	resp := struct {
		Policy     factory.PolicyDocument `json:"policy"`
		ClampNotes []string               `json:"clamp_notes,omitempty"`
	}{Policy: h.PolicyFactory.ToDocument(pol)}
	for _, n := range notes {
		resp.ClampNotes = append(resp.ClampNotes, n.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetUserPolicy returns the user's override, 404 when none is set.
// GET /api/users/{id}/policy
func (h *Handler) GetUserPolicy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ov, err := h.Store.UserPolicy(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load override", err)
		return
	}
	if ov == nil {
		writeError(w, http.StatusNotFound, "No policy override for user", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.PolicyFactory.OverrideToDocument(*ov))
}

// PutUserPolicy sets the user's override. Only fields present in the body
// override the system policy.
// PUT /api/users/{id}/policy
func (h *Handler) PutUserPolicy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.Store.GetUser(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to load user", err)
		return
	}

	var doc factory.PolicyDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	ov, err := h.PolicyFactory.ToOverride(doc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid policy override", err)
		return
	}
	if err := h.Store.SaveUserPolicy(r.Context(), id, *ov); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save override", err)
		return
	}
	writeJSON(w, http.StatusOK, h.PolicyFactory.OverrideToDocument(*ov))
}

// DeleteUserPolicy drops the user's override.
// DELETE /api/users/{id}/policy
func (h *Handler) DeleteUserPolicy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Store.DeleteUserPolicy(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete override", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetResolvedPolicy returns the effective policy for a user after merging
// and clamping.
// GET /api/users/{id}/policy/resolved
func (h *Handler) GetResolvedPolicy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	pol, notes, err := h.Service.ResolvedPolicy(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to resolve policy", err)
		return
	}

	resp := struct {
		Policy     factory.PolicyDocument `json:"policy"`
		ClampNotes []string               `json:"clamp_notes,omitempty"`
	}{Policy: h.PolicyFactory.ToDocument(pol)}
	for _, n := range notes {
		resp.ClampNotes = append(resp.ClampNotes, n.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

// clockTime reads the optional timestamp from a clock request body. Missing
// body or empty timestamp means "now".
func (h *Handler) clockTime(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	var req ClockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return time.Time{}, false
	}
	if req.Timestamp == "" {
		return h.now(), true
	}
	at, err := engine.ParseTimestamp(req.Timestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid timestamp", err)
		return time.Time{}, false
	}
	return at, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+name, err)
		return 0, false
	}
	return id, true
}

func queryRange(w http.ResponseWriter, r *http.Request) (attendance.DateRange, bool) {
	var rng attendance.DateRange
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := engine.ParseTimestamp(from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from", err)
			return rng, false
		}
		rng.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := engine.ParseTimestamp(to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to", err)
			return rng, false
		}
		rng.To = t
	}
	return rng, true
}

// writeDomainError maps service errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, attendance.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, attendance.ErrAlreadyCheckedIn),
		errors.Is(err, attendance.ErrNotCheckedIn):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, attendance.ErrInvalidInterval),
		errors.Is(err, attendance.ErrBreakOutsideInterval),
		errors.Is(err, engine.ErrNoPolicy),
		engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
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
