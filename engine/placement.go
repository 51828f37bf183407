/*
placement.go - Statutory break placement

PURPOSE:
  Decides where in a completed work day the still-missing statutory rest
  minutes go. This is the consolidation of what the historical route
  handlers (checkout, attendance edit, manual entry) each reimplemented
  with subtle differences: one algorithm, three strategies, deterministic
  output.

ALGORITHM:
  1. Require a completed interval; compute total worked minutes.
  2. Disabled policy: nothing to do.
  3. Determine the statutory requirement (0/30/45, strict thresholds).
  4. Mark ALL previously auto-detected breaks for removal. Only manual
     breaks count toward the requirement; the automatic contribution is
     recomputed from scratch every run. This is what makes an edited
     check-out time safe to reprocess.
  5. missing = required - manual minutes. Nothing missing: removal only.
  6. Dispatch to the configured strategy.

IDEMPOTENCE:
  Running placement, applying the result, and running it again yields an
  empty result: the automatic contribution is recomputed from scratch,
  then reconciled against the auto breaks on record - an identical
  recomputation becomes a no-op diff rather than a delete-and-reinsert.
  The caller applies removal+insert in one transaction.

CLAMPING:
  Every produced break satisfies start >= interval start and
  end <= interval end. Shortfalls are reported as diagnostics, never as
  errors and never as out-of-bounds intervals.

SEE ALSO:
  - statutory.go: Required-minutes thresholds
  - billing.go:   Consumes the applied breaks
*/
package engine

import (
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// ENTRY POINT
// =============================================================================

// PlaceBreaks computes the automatic breaks for a completed work interval.
// existing must contain every break currently recorded for the interval,
// manual and automatic. The only error conditions are an open interval and
// a nonsensical policy; fit problems degrade with diagnostics.
func PlaceBreaks(iv WorkInterval, existing []BreakInterval, pol BreakPolicy) (PlacementResult, error) {
	if !iv.Complete() {
		return PlacementResult{}, &IncompleteIntervalError{WorkIntervalID: iv.ID}
	}

	if !pol.ArbzgEnabled {
		return PlacementResult{}, nil
	}

	// Prior auto breaks are always replaced, never kept. Manual breaks are
	// the only ones that count toward the requirement.
	var res PlacementResult
	manualMinutes := 0
	for _, b := range existing {
		if b.AutoDetected {
			res.RemoveBreakIDs = append(res.RemoveBreakIDs, b.ID)
			continue
		}
		manualMinutes += b.Minutes
	}

	required := RequiredBreakMinutes(iv.Minutes())
	missing := required - manualMinutes
	if missing <= 0 {
		return res, nil
	}

	switch pol.Strategy {
	case StrategyEndOfDay:
		placeEndOfDay(&res, iv, missing, pol)
	case StrategyDistributed:
		placeDistributed(&res, iv, missing, pol)
	default:
		placeLunchPriority(&res, iv, missing, pol)
	}

	// Reconcile against the auto breaks already on record: when the
	// recomputation reproduces them exactly there is nothing to change, and
	// the caller gets a no-op diff instead of a delete-and-reinsert.
	if matchesExisting(res.BreaksToAdd, existing) {
		res.BreaksToAdd = nil
		res.RemoveBreakIDs = nil
	}

	return res, nil
}

// matchesExisting reports whether the drafted breaks are identical to the
// auto-detected breaks already recorded for the interval. Both sides are
// ordered by start time before comparison.
func matchesExisting(drafts []BreakDraft, existing []BreakInterval) bool {
	var autos []BreakInterval
	for _, b := range existing {
		if b.AutoDetected {
			autos = append(autos, b)
		}
	}
	if len(autos) != len(drafts) || len(drafts) == 0 {
		return false
	}

	sorted := make([]BreakDraft, len(drafts))
	copy(sorted, drafts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
	sort.Slice(autos, func(i, j int) bool { return autos[i].Start.Before(autos[j].Start) })

	for i, d := range sorted {
		a := autos[i]
		if !d.Start.Equal(a.Start) || !d.End.Equal(a.End) ||
			d.Minutes != a.Minutes || d.Origin != a.Origin ||
			d.ExcludedFromBilling != a.ExcludedFromBilling ||
			d.Description != a.Description {
			return false
		}
	}
	return true
}

// =============================================================================
// LUNCH PRIORITY - Default strategy
// =============================================================================

func placeLunchPriority(res *PlacementResult, iv WorkInterval, missing int, pol BreakPolicy) {
	lunchStart, lunchEnd := lunchWindowOn(iv.Start, pol.Lunch)

	overlapStart := maxTime(iv.Start, lunchStart)
	overlapEnd := minTime(*iv.End, lunchEnd)
	overlap := wholeMinutes(overlapStart, overlapEnd)

	if overlap <= 0 {
		res.diag(DiagLunchFallback,
			fmt.Sprintf("lunch window %s fully outside work interval, end-of-day fallback used", pol.Lunch))
		placeEndOfDay(res, iv, missing, pol)
		return
	}

	if overlap >= missing {
		// Center a single break of the full missing amount inside the
		// overlap.
		mid := overlapStart.Add(time.Duration(overlap) * time.Minute / 2)
		start := mid.Add(-time.Duration(missing) * time.Minute / 2)
		if start.Before(overlapStart) {
			start = overlapStart
		}
		end := start.Add(time.Duration(missing) * time.Minute)
		if end.After(overlapEnd) {
			end = overlapEnd
			start = end.Add(-time.Duration(missing) * time.Minute)
		}
		res.add(draftLunch(start, end, pol))
		return
	}

	// The overlap is too small for the whole requirement. With
	// consolidation preferred a split would defeat the point, so the full
	// amount moves to end of day in one piece.
	if pol.PreferConsolidated {
		res.diag(DiagLunchFallback,
			fmt.Sprintf("lunch overlap of %dm cannot hold %dm consolidated, end-of-day fallback used", overlap, missing))
		placeEndOfDay(res, iv, missing, pol)
		return
	}

	// Consume the entire overlap, then place the remainder in free room
	// outside the lunch break. Normally that is the end of the day; when
	// the interval ends inside the lunch window the tail would overlap the
	// lunch break, so the remainder goes before it instead. Excluded
	// minutes must never cover the same wall-clock span twice.
	res.add(draftLunch(overlapStart, overlapEnd, pol))
	remainder := missing - overlap
	if overlapEnd.Before(*iv.End) {
		placeTail(res, remainder, overlapEnd, *iv.End, pol)
	} else {
		placeTail(res, remainder, iv.Start, overlapStart, pol)
	}
}

// =============================================================================
// END OF DAY - Single break ending at check-out
// =============================================================================

func placeEndOfDay(res *PlacementResult, iv WorkInterval, missing int, pol BreakPolicy) {
	placeTail(res, missing, iv.Start, *iv.End, pol)
}

// placeTail places a single break of the missing amount ending at end and
// never starting before floor. The floor is what keeps the break out of
// room already occupied by another break.
func placeTail(res *PlacementResult, missing int, floor, end time.Time, pol BreakPolicy) {
	if missing <= 0 {
		return
	}

	start := end.Add(-time.Duration(missing) * time.Minute)
	if start.Before(floor) {
		start = floor
	}

	got := wholeMinutes(start, end)
	if got <= 0 {
		res.diag(DiagDropped,
			fmt.Sprintf("no room for a %dm break inside the work interval, break dropped", missing))
		return
	}
	if got < missing {
		res.diag(DiagTruncated,
			fmt.Sprintf("required break exceeds available window, truncated to %dm", got))
	}

	res.add(BreakDraft{
		Start:               start,
		End:                 end,
		Minutes:             got,
		ExcludedFromBilling: pol.ExcludeFromBilling,
		AutoDetected:        true,
		Origin:              OriginAutoEndOfDay,
		Description:         descEndOfDay,
	})
}

// =============================================================================
// DISTRIBUTED - Several breaks spread across the day
// =============================================================================

func placeDistributed(res *PlacementResult, iv WorkInterval, missing int, pol BreakPolicy) {
	total := iv.Minutes()

	if pol.PreferConsolidated {
		// One break of the full amount at the midpoint of the interval.
		mid := iv.Start.Add(time.Duration(total) * time.Minute / 2)
		start := mid.Add(-time.Duration(missing) * time.Minute / 2)
		end := start.Add(time.Duration(missing) * time.Minute)
		if start.Before(iv.Start) {
			start = iv.Start
			end = minTime(*iv.End, start.Add(time.Duration(missing)*time.Minute))
		}
		if end.After(*iv.End) {
			end = *iv.End
			start = maxTime(iv.Start, end.Add(-time.Duration(missing)*time.Minute))
		}
		got := wholeMinutes(start, end)
		if got <= 0 {
			res.diag(DiagDropped,
				fmt.Sprintf("no room for a %dm break inside the work interval, break dropped", missing))
			return
		}
		if got < missing {
			res.diag(DiagTruncated,
				fmt.Sprintf("required break exceeds available window, truncated to %dm", got))
		}
		res.add(BreakDraft{
			Start:               start,
			End:                 end,
			Minutes:             got,
			ExcludedFromBilling: pol.ExcludeFromBilling,
			AutoDetected:        true,
			Origin:              OriginAutoDistributed,
			Description:         descDistributed,
		})
		return
	}

	n := missing / pol.MinBreakMinutes
	if n < 1 {
		n = 1
	}
	if n > pol.MaxBreaksPerDay {
		n = pol.MaxBreaksPerDay
	}

	each := missing / n
	last := each + missing%n

	// The interval is split into n equal segments with one break centered
	// in each. If the segments cannot hold their breaks the whole day is
	// too short for spreading; fall back to a single end-of-day break.
	segment := total / n
	if segment <= last {
		res.diag(DiagDistributedFallback,
			fmt.Sprintf("work interval too short to spread %d breaks, end-of-day fallback used", n))
		placeEndOfDay(res, iv, missing, pol)
		return
	}

	for i := 0; i < n; i++ {
		size := each
		if i == n-1 {
			size = last
		}
		segStart := iv.Start.Add(time.Duration(i*segment) * time.Minute)
		mid := segStart.Add(time.Duration(segment) * time.Minute / 2)
		start := mid.Add(-time.Duration(size) * time.Minute / 2)
		end := start.Add(time.Duration(size) * time.Minute)
		if start.Before(iv.Start) {
			start = iv.Start
			end = start.Add(time.Duration(size) * time.Minute)
		}
		if end.After(*iv.End) {
			end = *iv.End
			start = maxTime(iv.Start, end.Add(-time.Duration(size)*time.Minute))
		}
		got := wholeMinutes(start, end)
		if got <= 0 {
			res.diag(DiagDropped,
				fmt.Sprintf("no room for a %dm break in segment %d, break dropped", size, i+1))
			continue
		}
		res.add(BreakDraft{
			Start:               start,
			End:                 end,
			Minutes:             got,
			ExcludedFromBilling: pol.ExcludeFromBilling,
			AutoDetected:        true,
			Origin:              OriginAutoDistributed,
			Description:         descDistributed,
		})
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// Break descriptions are presentation only; classification relies on
// Origin. Texts match what users of the original system are used to.
const (
	descLunch       = "Gesetzliche Mittagspause (ArbZG §4)"
	descEndOfDay    = "Automatische Pause gem. ArbZG §4"
	descDistributed = "Automatische Pause (verteilt) gem. ArbZG §4"
)

func draftLunch(start, end time.Time, pol BreakPolicy) BreakDraft {
	return BreakDraft{
		Start:               start,
		End:                 end,
		Minutes:             wholeMinutes(start, end),
		ExcludedFromBilling: pol.ExcludeFromBilling,
		AutoDetected:        true,
		Origin:              OriginAutoLunch,
		Description:         descLunch,
	}
}

func (r *PlacementResult) add(d BreakDraft) {
	r.BreaksToAdd = append(r.BreaksToAdd, d)
}

func (r *PlacementResult) diag(code DiagnosticCode, msg string) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Code: code, Message: msg})
}

// lunchWindowOn projects the wall-clock lunch window onto the calendar day
// of the given time.
func lunchWindowOn(day time.Time, w LunchWindow) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), w.StartHour, w.StartMinute, 0, 0, day.Location())
	end := time.Date(day.Year(), day.Month(), day.Day(), w.EndHour, w.EndMinute, 0, 0, day.Location())
	return start, end
}

func wholeMinutes(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(to.Sub(from).Round(time.Minute) / time.Minute)
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
