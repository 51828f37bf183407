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

TIMESTAMPS:
  Requests accept any of the tolerant formats engine.ParseTimestamp knows
  ("2006-01-02 15:04:05", T separator, fractional seconds, offsets).
  Responses always emit the canonical "2006-01-02 15:04:05".

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: PolicyDocument, reused for settings payloads
*/
package api

import (
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// CreateUserRequest is the request to create a user.
type CreateUserRequest struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// ClockRequest carries the timestamp for a check-in or check-out. An empty
// timestamp means "now".
type ClockRequest struct {
	Timestamp string `json:"timestamp,omitempty"`
}

// RecordDTO represents a work interval in API responses.
type RecordDTO struct {
	ID              int64   `json:"id"`
	UserID          int64   `json:"user_id"`
	CheckIn         string  `json:"check_in"`
	CheckOut        *string `json:"check_out,omitempty"`
	TotalMinutes    *int    `json:"total_minutes,omitempty"`
	BillableMinutes *int    `json:"billable_minutes,omitempty"`
	HasAutoBreaks   bool    `json:"has_auto_breaks"`
}

// EditRecordRequest is the request to change an interval's boundaries.
type EditRecordRequest struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

// BreakDTO represents a break in API responses.
type BreakDTO struct {
	ID                  int64  `json:"id"`
	WorkIntervalID      int64  `json:"work_interval_id"`
	Start               string `json:"start"`
	End                 string `json:"end"`
	Minutes             int    `json:"minutes"`
	ExcludedFromBilling bool   `json:"excluded_from_billing"`
	AutoDetected        bool   `json:"auto_detected"`
	Origin              string `json:"origin"`
	Description         string `json:"description,omitempty"`
}

// AddBreakRequest is the request to record a manual break. Excluded
// defaults to true when omitted.
type AddBreakRequest struct {
	Start               string `json:"start"`
	End                 string `json:"end"`
	Description         string `json:"description,omitempty"`
	ExcludedFromBilling *bool  `json:"excluded_from_billing,omitempty"`
}

// SummaryDTO reports one placement-and-billing run.
type SummaryDTO struct {
	IntervalID      int64    `json:"interval_id"`
	TotalMinutes    int      `json:"total_minutes"`
	BillableMinutes int      `json:"billable_minutes"`
	WorkTime        string   `json:"work_time"`
	HasAutoBreaks   bool     `json:"has_auto_breaks"`
	Diagnostics     []string `json:"diagnostics,omitempty"`
	ClampNotes      []string `json:"clamp_notes,omitempty"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toUserDTO(u attendance.User) UserDTO {
	return UserDTO{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}
}

func toRecordDTO(rec attendance.Record) RecordDTO {
	dto := RecordDTO{
		ID:              rec.ID,
		UserID:          rec.UserID,
		CheckIn:         engine.FormatTimestamp(rec.Start),
		BillableMinutes: rec.BillableMinutes,
		HasAutoBreaks:   rec.HasAutoBreaks,
	}
	if rec.End != nil {
		out := engine.FormatTimestamp(*rec.End)
		dto.CheckOut = &out
		total := rec.Minutes()
		dto.TotalMinutes = &total
	}
	return dto
}

func toBreakDTO(b engine.BreakInterval) BreakDTO {
	return BreakDTO{
		ID:                  b.ID,
		WorkIntervalID:      b.WorkIntervalID,
		Start:               engine.FormatTimestamp(b.Start),
		End:                 engine.FormatTimestamp(b.End),
		Minutes:             b.Minutes,
		ExcludedFromBilling: b.ExcludedFromBilling,
		AutoDetected:        b.AutoDetected,
		Origin:              string(b.Origin),
		Description:         b.Description,
	}
}

func toSummaryDTO(s *attendance.CheckoutSummary) SummaryDTO {
	dto := SummaryDTO{
		IntervalID:      s.IntervalID,
		TotalMinutes:    s.TotalMinutes,
		BillableMinutes: s.BillableMinutes,
		WorkTime:        s.WorkTime(),
		HasAutoBreaks:   s.HasAutoBreaks,
	}
	for _, d := range s.Diagnostics {
		dto.Diagnostics = append(dto.Diagnostics, d.String())
	}
	for _, n := range s.ClampNotes {
		dto.ClampNotes = append(dto.ClampNotes, n.String())
	}
	return dto
}
