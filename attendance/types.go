// Package attendance orchestrates check-in/check-out processing on top of
// the engine package: it resolves the break policy for a user, runs break
// placement, applies the resulting diff atomically, and keeps the persisted
// billing fields current. It also carries the GDPR data-subject operations
// (access, rectification, erasure) over the same store.
package attendance

import (
	"fmt"
	"time"

	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// USERS
// =============================================================================

// User owns work intervals and an optional policy override.
type User struct {
	ID       int64
	Username string
	IsAdmin  bool
}

// =============================================================================
// RECORDS - A work interval plus its persisted billing state
// =============================================================================

// Record is a work interval as the store keeps it: the interval itself plus
// the billing fields derived at checkout. BillableMinutes is nil until the
// interval is complete and processed.
type Record struct {
	engine.WorkInterval
	BillableMinutes *int
	HasAutoBreaks   bool
}

// CheckoutSummary reports one placement-and-billing run. HasAutoBreaks is
// true iff this run added automatic breaks; an idempotent re-run of an
// unchanged interval reports false while the record keeps its flag.
type CheckoutSummary struct {
	IntervalID      int64
	TotalMinutes    int
	BillableMinutes int
	HasAutoBreaks   bool
	Diagnostics     []engine.Diagnostic
	ClampNotes      []engine.ClampNote
}

// WorkTime renders billable minutes as H:MM for display.
func (c CheckoutSummary) WorkTime() string {
	return fmt.Sprintf("%d:%02d", c.BillableMinutes/60, c.BillableMinutes%60)
}

// DateRange bounds a listing query. Zero values mean unbounded.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}
