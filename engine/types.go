/*
Package engine implements the break-placement and billable-time core.

PURPOSE:
  This package contains the pure business logic invoked at checkout time:
  given a completed work interval, the breaks already on record, and a
  resolved break policy, it decides how many statutory rest minutes are
  still owed under ArbZG §4, where in the day to place them, and what the
  final billable minutes are.

KEY CONCEPTS IN THIS FILE (types.go):
  - WorkInterval:  One check-in/check-out pair for one user
  - BreakInterval: A rest period inside a work interval (manual or auto)
  - BreakOrigin:   How a break came to exist (never inferred from text)
  - BreakDraft:    A break the engine wants persisted
  - PlacementResult: Removal + addition sets for one placement run

DESIGN PRINCIPLES:
  1. Purity: no I/O, no clocks, no logging. Diagnostics are returned as
     data for the caller to surface.
  2. Idempotence: the engine always recomputes the automatic contribution
     from scratch; prior auto breaks are marked for removal, never kept.
  3. Clamping: every produced break lies inside the work interval. A break
     that cannot be placed with positive duration is dropped with a
     diagnostic, never inserted.

USAGE:
  pol, _, err := engine.ResolvePolicy(userOverride, systemPolicy)
  res, err := engine.PlaceBreaks(interval, existing, pol)
  billable, err := engine.BillableMinutes(interval, applied)

SEE ALSO:
  - statutory.go: ArbZG §4 required-minutes thresholds
  - placement.go: Placement strategies
  - policy.go:    BreakPolicy and resolution/clamping
  - billing.go:   Billable-minutes calculation
*/
package engine

import "time"

// =============================================================================
// WORK INTERVAL - One check-in/check-out pair
// =============================================================================

// WorkInterval is a single attendance record. End is nil between check-in
// and check-out; placement and billing require a completed interval.
type WorkInterval struct {
	ID     int64
	UserID int64
	Start  time.Time
	End    *time.Time
}

// Complete reports whether the interval has a check-out time.
func (w WorkInterval) Complete() bool { return w.End != nil }

// Minutes returns the total worked minutes, or 0 for an open interval.
// Seconds are rounded to the nearest minute.
func (w WorkInterval) Minutes() int {
	if w.End == nil {
		return 0
	}
	return int(w.End.Sub(w.Start).Round(time.Minute) / time.Minute)
}

// =============================================================================
// BREAK INTERVAL - A rest period inside a work interval
// =============================================================================

// BreakOrigin records how a break came to exist. The origin is set at
// creation time and is the only way breaks are classified; description
// text is presentation only.
type BreakOrigin string

const (
	OriginManual          BreakOrigin = "manual"
	OriginAutoLunch       BreakOrigin = "auto_lunch"
	OriginAutoEndOfDay    BreakOrigin = "auto_end_of_day"
	OriginAutoDistributed BreakOrigin = "auto_distributed"
)

// BreakInterval is a persisted break belonging to one WorkInterval.
type BreakInterval struct {
	ID                  int64
	WorkIntervalID      int64
	Start               time.Time
	End                 time.Time
	Minutes             int
	ExcludedFromBilling bool
	AutoDetected        bool
	Origin              BreakOrigin
	Description         string
}

// BreakDraft is a break the engine asks the caller to persist. It carries
// no ID; the store assigns one on insert.
type BreakDraft struct {
	Start               time.Time
	End                 time.Time
	Minutes             int
	ExcludedFromBilling bool
	AutoDetected        bool
	Origin              BreakOrigin
	Description         string
}

// =============================================================================
// PLACEMENT RESULT - Removal + addition sets for one run
// =============================================================================

// PlacementResult is the full outcome of one placement run. The caller is
// expected to delete RemoveBreakIDs and insert BreaksToAdd within a single
// transaction; that pairing is what makes recomputation idempotent.
type PlacementResult struct {
	BreaksToAdd    []BreakDraft
	RemoveBreakIDs []int64
	Diagnostics    []Diagnostic
}

// HasAutoBreaks reports whether this run produced automatic breaks.
func (r PlacementResult) HasAutoBreaks() bool { return len(r.BreaksToAdd) > 0 }

// AddedMinutes returns the total minutes across BreaksToAdd.
func (r PlacementResult) AddedMinutes() int {
	total := 0
	for _, b := range r.BreaksToAdd {
		total += b.Minutes
	}
	return total
}

// =============================================================================
// DIAGNOSTICS - Non-fatal constraint reports
// =============================================================================

// DiagnosticCode identifies a class of placement compromise.
type DiagnosticCode string

const (
	// DiagTruncated: the required break did not fit the available window
	// and was shortened.
	DiagTruncated DiagnosticCode = "break_truncated"

	// DiagLunchFallback: the lunch window was unusable and an end-of-day
	// placement was used instead.
	DiagLunchFallback DiagnosticCode = "lunch_window_fallback"

	// DiagDistributedFallback: the interval was too short for the requested
	// break count and a single end-of-day break was placed instead.
	DiagDistributedFallback DiagnosticCode = "distributed_fallback"

	// DiagDropped: a break could not be placed with positive duration and
	// was omitted.
	DiagDropped DiagnosticCode = "break_dropped"
)

// Diagnostic reports a non-fatal placement compromise. Diagnostics never
// abort computation; they inform the caller/UI.
type Diagnostic struct {
	Code    DiagnosticCode
	Message string
}

func (d Diagnostic) String() string { return string(d.Code) + ": " + d.Message }
