/*
service.go - Check-in/check-out orchestration

PURPOSE:
  The one place where checkout processing happens. The historical system
  had this logic copied into several route handlers (checkout, attendance
  edit, manual entry), each drifting its own way; here every path that
  changes an interval or its breaks funnels into recompute().

FLOW (checkout, edit, manual break - identical tail):
  1. Load the record and every break on file
  2. Resolve the break policy (user override over system default)
  3. Run engine.PlaceBreaks
  4. Apply removal set + addition set, update billing, in one transaction

The service never logs; engine diagnostics and clamp notes are passed
through in the CheckoutSummary for the HTTP layer to surface.

SEE ALSO:
  - engine/placement.go: The placement algorithm
  - gdpr.go: Data-subject operations sharing the store
*/
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/attendance-engine/engine"
)

// Service coordinates attendance flows over a transactional store.
type Service struct {
	store TxStore
}

func NewService(store TxStore) *Service {
	return &Service{store: store}
}

// =============================================================================
// CHECK-IN / CHECK-OUT
// =============================================================================

// CheckIn opens a new work interval for the user. A user can have at most
// one open interval.
func (s *Service) CheckIn(ctx context.Context, userID int64, at time.Time) (*Record, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	open, err := s.store.OpenRecord(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if open != nil {
		return nil, fmt.Errorf("interval %d still open: %w", open.ID, ErrAlreadyCheckedIn)
	}

	rec := &Record{WorkInterval: engine.WorkInterval{UserID: userID, Start: at}}
	if err := s.store.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// CheckOut closes the user's open interval and runs break placement and
// billing for it.
func (s *Service) CheckOut(ctx context.Context, userID int64, at time.Time) (*CheckoutSummary, error) {
	rec, err := s.store.OpenRecord(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotCheckedIn
		}
		return nil, err
	}
	if !at.After(rec.Start) {
		return nil, ErrInvalidInterval
	}

	end := at
	rec.End = &end
	return s.recompute(ctx, rec)
}

// =============================================================================
// EDITS - Admin/owner corrections, recomputed idempotently
// =============================================================================

// EditRecord rewrites the boundaries of a completed interval and reruns
// placement and billing. Automatic breaks from the previous run are
// replaced, manual breaks are kept.
func (s *Service) EditRecord(ctx context.Context, id int64, start, end time.Time) (*CheckoutSummary, error) {
	if !end.After(start) {
		return nil, ErrInvalidInterval
	}

	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Start = start
	rec.End = &end
	return s.recompute(ctx, rec)
}

// AddManualBreak records a user-entered break and recomputes the interval:
// a manual break can shrink or void the automatic contribution.
func (s *Service) AddManualBreak(ctx context.Context, intervalID int64, start, end time.Time, description string, excluded bool) (*CheckoutSummary, error) {
	rec, err := s.store.GetRecord(ctx, intervalID)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, ErrInvalidInterval
	}
	if start.Before(rec.Start) || (rec.End != nil && end.After(*rec.End)) {
		return nil, ErrBreakOutsideInterval
	}

	draft := engine.BreakDraft{
		Start:               start,
		End:                 end,
		Minutes:             int(end.Sub(start).Round(time.Minute) / time.Minute),
		ExcludedFromBilling: excluded,
		AutoDetected:        false,
		Origin:              engine.OriginManual,
		Description:         description,
	}
	if err := s.store.InsertBreaks(ctx, intervalID, []engine.BreakDraft{draft}); err != nil {
		return nil, err
	}

	// An open interval cannot be placed or billed yet; the break alone is
	// recorded.
	if rec.End == nil {
		return nil, nil
	}
	return s.recompute(ctx, rec)
}

// DeleteBreak removes a break and recomputes its interval.
func (s *Service) DeleteBreak(ctx context.Context, breakID int64) (*CheckoutSummary, error) {
	b, err := s.store.GetBreak(ctx, breakID)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.GetRecord(ctx, b.WorkIntervalID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteBreaks(ctx, []int64{breakID}); err != nil {
		return nil, err
	}
	if rec.End == nil {
		return nil, nil
	}
	return s.recompute(ctx, rec)
}

// =============================================================================
// QUERIES
// =============================================================================

func (s *Service) Record(ctx context.Context, id int64) (*Record, error) {
	return s.store.GetRecord(ctx, id)
}

func (s *Service) Records(ctx context.Context, userID int64, rng DateRange) ([]Record, error) {
	return s.store.ListRecords(ctx, userID, rng)
}

func (s *Service) Breaks(ctx context.Context, intervalID int64) ([]engine.BreakInterval, error) {
	return s.store.ListBreaks(ctx, intervalID)
}

// ResolvedPolicy returns the effective policy for a user, with any clamp
// notes resolution produced.
func (s *Service) ResolvedPolicy(ctx context.Context, userID int64) (engine.BreakPolicy, []engine.ClampNote, error) {
	return s.resolvePolicy(ctx, s.store, userID)
}

// =============================================================================
// RECOMPUTATION - The shared tail of every mutating flow
// =============================================================================

func (s *Service) recompute(ctx context.Context, rec *Record) (*CheckoutSummary, error) {
	var summary *CheckoutSummary

	err := s.store.WithTx(ctx, func(st Store) error {
		pol, notes, err := s.resolvePolicy(ctx, st, rec.UserID)
		if err != nil {
			return err
		}

		existing, err := st.ListBreaks(ctx, rec.ID)
		if err != nil {
			return err
		}

		res, err := engine.PlaceBreaks(rec.WorkInterval, existing, pol)
		if err != nil {
			return err
		}

		if len(res.RemoveBreakIDs) > 0 {
			if err := st.DeleteBreaks(ctx, res.RemoveBreakIDs); err != nil {
				return err
			}
		}
		if len(res.BreaksToAdd) > 0 {
			if err := st.InsertBreaks(ctx, rec.ID, res.BreaksToAdd); err != nil {
				return err
			}
		}

		applied, err := st.ListBreaks(ctx, rec.ID)
		if err != nil {
			return err
		}

		billable, err := engine.BillableMinutes(rec.WorkInterval, applied)
		if err != nil {
			return err
		}

		anyAuto := false
		for _, b := range applied {
			if b.AutoDetected {
				anyAuto = true
				break
			}
		}

		rec.BillableMinutes = &billable
		rec.HasAutoBreaks = anyAuto
		if err := st.UpdateRecord(ctx, rec); err != nil {
			return err
		}

		summary = &CheckoutSummary{
			IntervalID:      rec.ID,
			TotalMinutes:    rec.Minutes(),
			BillableMinutes: billable,
			HasAutoBreaks:   res.HasAutoBreaks(),
			Diagnostics:     res.Diagnostics,
			ClampNotes:      notes,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Service) resolvePolicy(ctx context.Context, st Store, userID int64) (engine.BreakPolicy, []engine.ClampNote, error) {
	override, err := st.UserPolicy(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return engine.BreakPolicy{}, nil, err
	}

	system, err := st.SystemPolicy(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return engine.BreakPolicy{}, nil, err
	}

	return engine.ResolvePolicy(override, system)
}
