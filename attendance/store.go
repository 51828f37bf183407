/*
store.go - Persistence interface for attendance data

PURPOSE:
  Defines the interface between the attendance service and the database.
  Implementations: store/sqlite (production), attendance/store (in-memory
  for tests).

TRANSACTION CONTRACT:
  Everything the checkout flow writes - interval update, auto-break
  removal, auto-break insertion, billing fields - happens inside a single
  WithTx call. The engine returns explicit removal+addition sets precisely
  so the store can apply them atomically; a failed recomputation leaves
  the previous state untouched.

SEE ALSO:
  - service.go: The only consumer of TxStore
  - store/sqlite/sqlite.go: SQLite implementation
  - attendance/store/memory.go: In-memory implementation
*/
package attendance

import (
	"context"
	"errors"

	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrNotFound is returned for any missing user, interval or break.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyCheckedIn is returned when a user with an open interval
	// tries to check in again.
	ErrAlreadyCheckedIn = errors.New("user already checked in")

	// ErrNotCheckedIn is returned when checkout is requested without an
	// open interval.
	ErrNotCheckedIn = errors.New("user has no open interval")

	// ErrInvalidInterval is returned when an end time does not lie
	// strictly after the start time.
	ErrInvalidInterval = errors.New("interval end must be after start")

	// ErrBreakOutsideInterval is returned when a manual break does not fit
	// inside its work interval.
	ErrBreakOutsideInterval = errors.New("break outside work interval")
)

// =============================================================================
// STORE INTERFACES
// =============================================================================

// Store is the persistence surface the attendance service needs.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)

	// Work intervals
	CreateRecord(ctx context.Context, rec *Record) error
	GetRecord(ctx context.Context, id int64) (*Record, error)
	UpdateRecord(ctx context.Context, rec *Record) error
	ListRecords(ctx context.Context, userID int64, rng DateRange) ([]Record, error)
	// OpenRecord returns the user's interval without an end time, or
	// ErrNotFound.
	OpenRecord(ctx context.Context, userID int64) (*Record, error)

	// Breaks
	InsertBreaks(ctx context.Context, intervalID int64, drafts []engine.BreakDraft) error
	DeleteBreaks(ctx context.Context, ids []int64) error
	GetBreak(ctx context.Context, id int64) (*engine.BreakInterval, error)
	ListBreaks(ctx context.Context, intervalID int64) ([]engine.BreakInterval, error)

	// Break policy, two tiers. UserPolicy returns (nil, nil) when the user
	// has no override; SystemPolicy returns ErrNotFound before seeding.
	SystemPolicy(ctx context.Context) (*engine.BreakPolicy, error)
	SaveSystemPolicy(ctx context.Context, pol engine.BreakPolicy) error
	UserPolicy(ctx context.Context, userID int64) (*engine.PolicyOverride, error)
	SaveUserPolicy(ctx context.Context, userID int64, ov engine.PolicyOverride) error
	DeleteUserPolicy(ctx context.Context, userID int64) error

	// EraseUser removes the user and every interval, break and override
	// belonging to them. GDPR erasure; not reachable from the normal flow.
	EraseUser(ctx context.Context, userID int64) error
}

// TxStore wraps Store with transaction support. fn runs against a view of
// the store whose writes are committed iff fn returns nil.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
