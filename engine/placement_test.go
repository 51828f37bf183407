package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func at(hour, min int) time.Time {
	return time.Date(2024, time.March, 4, hour, min, 0, 0, time.Local)
}

func interval(start, end time.Time) engine.WorkInterval {
	return engine.WorkInterval{ID: 1, UserID: 7, Start: start, End: &end}
}

func manualBreak(id int64, start, end time.Time) engine.BreakInterval {
	return engine.BreakInterval{
		ID:                  id,
		WorkIntervalID:      1,
		Start:               start,
		End:                 end,
		Minutes:             int(end.Sub(start) / time.Minute),
		ExcludedFromBilling: true,
		Origin:              engine.OriginManual,
	}
}

// apply turns a placement result into the break list a second run would see.
func apply(iv engine.WorkInterval, existing []engine.BreakInterval, res engine.PlacementResult) []engine.BreakInterval {
	removed := make(map[int64]bool)
	for _, id := range res.RemoveBreakIDs {
		removed[id] = true
	}

	var out []engine.BreakInterval
	for _, b := range existing {
		if !removed[b.ID] {
			out = append(out, b)
		}
	}
	next := int64(100)
	for _, d := range res.BreaksToAdd {
		out = append(out, engine.BreakInterval{
			ID:                  next,
			WorkIntervalID:      iv.ID,
			Start:               d.Start,
			End:                 d.End,
			Minutes:             d.Minutes,
			ExcludedFromBilling: d.ExcludedFromBilling,
			AutoDetected:        true,
			Origin:              d.Origin,
			Description:         d.Description,
		})
		next++
	}
	return out
}

func assertInsideInterval(t *testing.T, iv engine.WorkInterval, res engine.PlacementResult) {
	t.Helper()
	for _, d := range res.BreaksToAdd {
		assert.False(t, d.Start.Before(iv.Start), "break starts before check-in")
		assert.False(t, d.End.After(*iv.End), "break ends after check-out")
		assert.True(t, d.End.After(d.Start), "break has positive duration")
	}
}

// assertNonOverlapping checks that no two produced breaks share wall-clock
// time: every excluded minute must correspond to a distinct minute of rest.
func assertNonOverlapping(t *testing.T, res engine.PlacementResult) {
	t.Helper()
	for i, a := range res.BreaksToAdd {
		for _, b := range res.BreaksToAdd[i+1:] {
			assert.False(t, a.Start.Before(b.End) && b.Start.Before(a.End),
				"breaks %s-%s and %s-%s overlap",
				a.Start.Format("15:04"), a.End.Format("15:04"),
				b.Start.Format("15:04"), b.End.Format("15:04"))
		}
	}
}

// =============================================================================
// PRECONDITIONS
// =============================================================================

func TestPlaceBreaks_OpenInterval_Fails(t *testing.T) {
	iv := engine.WorkInterval{ID: 3, Start: at(9, 0)}
	_, err := engine.PlaceBreaks(iv, nil, engine.DefaultPolicy())
	assert.ErrorIs(t, err, engine.ErrIncompleteInterval)
}

func TestPlaceBreaks_ArbzgDisabled_NoOp(t *testing.T) {
	pol := engine.DefaultPolicy()
	pol.ArbzgEnabled = false

	res, err := engine.PlaceBreaks(interval(at(8, 0), at(18, 0)), nil, pol)
	require.NoError(t, err)
	assert.Empty(t, res.BreaksToAdd)
	assert.Empty(t, res.RemoveBreakIDs)
	assert.False(t, res.HasAutoBreaks())
}

func TestPlaceBreaks_UnderSixHours_NoBreak(t *testing.T) {
	res, err := engine.PlaceBreaks(interval(at(9, 0), at(15, 0)), nil, engine.DefaultPolicy())
	require.NoError(t, err)
	assert.Empty(t, res.BreaksToAdd)
}

func TestPlaceBreaks_ShortenedInterval_RemovesStaleAutoBreaks(t *testing.T) {
	// GIVEN: A previously processed day that was edited down to 5.5h
	// WHEN: Recomputing placement
	// THEN: The old auto break is removed and nothing new is added

	existing := []engine.BreakInterval{{
		ID: 42, WorkIntervalID: 1,
		Start: at(12, 30), End: at(13, 0), Minutes: 30,
		ExcludedFromBilling: true, AutoDetected: true,
		Origin: engine.OriginAutoLunch,
	}}

	res, err := engine.PlaceBreaks(interval(at(9, 0), at(14, 30)), existing, engine.DefaultPolicy())
	require.NoError(t, err)
	assert.Empty(t, res.BreaksToAdd)
	assert.Equal(t, []int64{42}, res.RemoveBreakIDs)
}

// =============================================================================
// SCENARIOS (lunch priority)
// =============================================================================

func TestPlaceBreaks_LunchDay_CenteredInWindow(t *testing.T) {
	// Scenario: 09:00-15:30 (390m) with the default 11:30-14:00 window.
	// The 30m break is centered in the window: 12:30-13:00.

	iv := interval(at(9, 0), at(15, 30))
	res, err := engine.PlaceBreaks(iv, nil, engine.DefaultPolicy())
	require.NoError(t, err)

	require.Len(t, res.BreaksToAdd, 1)
	b := res.BreaksToAdd[0]
	assert.Equal(t, at(12, 30), b.Start)
	assert.Equal(t, at(13, 0), b.End)
	assert.Equal(t, 30, b.Minutes)
	assert.Equal(t, engine.OriginAutoLunch, b.Origin)
	assert.True(t, b.AutoDetected)
	assert.True(t, b.ExcludedFromBilling)
	assert.True(t, res.HasAutoBreaks())
	assertInsideInterval(t, iv, res)

	billable, err := engine.BillableMinutes(iv, apply(iv, nil, res))
	require.NoError(t, err)
	assert.Equal(t, 360, billable)
}

func TestPlaceBreaks_EveningShift_EndOfDayFallback(t *testing.T) {
	// Scenario: 15:00-23:00 (8h), no lunch overlap. The break lands at the
	// very end of the day: 22:30-23:00.

	iv := interval(at(15, 0), at(23, 0))
	res, err := engine.PlaceBreaks(iv, nil, engine.DefaultPolicy())
	require.NoError(t, err)

	require.Len(t, res.BreaksToAdd, 1)
	b := res.BreaksToAdd[0]
	assert.Equal(t, at(22, 30), b.Start)
	assert.Equal(t, at(23, 0), b.End)
	assert.Equal(t, 30, b.Minutes)
	assert.Equal(t, engine.OriginAutoEndOfDay, b.Origin)

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, engine.DiagLunchFallback, res.Diagnostics[0].Code)
}

func TestPlaceBreaks_ExactlyNineHours_Owes30Not45(t *testing.T) {
	iv := interval(at(8, 0), at(17, 0)) // 540m exactly
	res, err := engine.PlaceBreaks(iv, nil, engine.DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, 30, res.AddedMinutes())
}

func TestPlaceBreaks_OverNineHours_Owes45(t *testing.T) {
	iv := interval(at(8, 0), at(17, 1)) // 541m
	res, err := engine.PlaceBreaks(iv, nil, engine.DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, 45, res.AddedMinutes())
	assertInsideInterval(t, iv, res)

	// Centered on the window midpoint 12:45.
	require.Len(t, res.BreaksToAdd, 1)
	b := res.BreaksToAdd[0]
	assert.Equal(t, time.Date(2024, time.March, 4, 12, 22, 30, 0, time.Local), b.Start)
	assert.Equal(t, time.Date(2024, time.March, 4, 13, 7, 30, 0, time.Local), b.End)
}

func TestPlaceBreaks_ManualBreakSufficient_NothingAdded(t *testing.T) {
	// Scenario: a manual 45m break already covers a 9h1m day.

	iv := interval(at(8, 0), at(17, 1))
	existing := []engine.BreakInterval{manualBreak(9, at(12, 0), at(12, 45))}

	res, err := engine.PlaceBreaks(iv, existing, engine.DefaultPolicy())
	require.NoError(t, err)
	assert.Empty(t, res.BreaksToAdd)
	assert.Empty(t, res.RemoveBreakIDs)
	assert.False(t, res.HasAutoBreaks())
}

func TestPlaceBreaks_ManualBreakPartial_TopUpOnly(t *testing.T) {
	// A 20m manual break on a >6h day leaves 10m to place automatically.

	iv := interval(at(9, 0), at(16, 0))
	existing := []engine.BreakInterval{manualBreak(5, at(10, 0), at(10, 20))}

	res, err := engine.PlaceBreaks(iv, existing, engine.DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, 10, res.AddedMinutes())
	assertInsideInterval(t, iv, res)
}

func TestPlaceBreaks_PartialLunchOverlap_RemainderAtEndOfDay(t *testing.T) {
	// GIVEN: 13:35-20:05 (390m): only 25m of the lunch window overlaps
	// WHEN: Placing with consolidation off
	// THEN: The overlap is fully consumed and 5m lands at end of day

	iv := interval(at(13, 35), at(20, 5))
	res, err := engine.PlaceBreaks(iv, nil, engine.DefaultPolicy())
	require.NoError(t, err)

	require.Len(t, res.BreaksToAdd, 2)
	lunch, tail := res.BreaksToAdd[0], res.BreaksToAdd[1]

	assert.Equal(t, at(13, 35), lunch.Start)
	assert.Equal(t, at(14, 0), lunch.End)
	assert.Equal(t, 25, lunch.Minutes)
	assert.Equal(t, engine.OriginAutoLunch, lunch.Origin)

	assert.Equal(t, at(20, 0), tail.Start)
	assert.Equal(t, at(20, 5), tail.End)
	assert.Equal(t, 5, tail.Minutes)
	assert.Equal(t, engine.OriginAutoEndOfDay, tail.Origin)

	assert.Equal(t, 30, res.AddedMinutes())
	assertInsideInterval(t, iv, res)
	assertNonOverlapping(t, res)
}

func TestPlaceBreaks_IntervalEndsInsideLunchWindow_RemainderBeforeLunch(t *testing.T) {
	// GIVEN: 05:30-11:55 (385m): the interval ends inside the lunch window,
	// so the lunch break abuts check-out and an end-of-day tail would sit
	// on top of it
	// WHEN: Placing with consolidation off
	// THEN: The 5m remainder goes immediately before the lunch break

	iv := interval(at(5, 30), at(11, 55))
	res, err := engine.PlaceBreaks(iv, nil, engine.DefaultPolicy())
	require.NoError(t, err)

	require.Len(t, res.BreaksToAdd, 2)
	lunch, rest := res.BreaksToAdd[0], res.BreaksToAdd[1]

	assert.Equal(t, at(11, 30), lunch.Start)
	assert.Equal(t, at(11, 55), lunch.End)
	assert.Equal(t, 25, lunch.Minutes)
	assert.Equal(t, engine.OriginAutoLunch, lunch.Origin)

	assert.Equal(t, at(11, 25), rest.Start)
	assert.Equal(t, at(11, 30), rest.End)
	assert.Equal(t, 5, rest.Minutes)

	assert.Equal(t, 30, res.AddedMinutes())
	assertInsideInterval(t, iv, res)
	assertNonOverlapping(t, res)
}

func TestPlaceBreaks_PartialLunchOverlap_ConsolidatedMovesWhole(t *testing.T) {
	// Same day, but consolidation preferred: no split, a single 30m break
	// at end of day plus a fallback diagnostic.

	pol := engine.DefaultPolicy()
	pol.PreferConsolidated = true

	iv := interval(at(13, 35), at(20, 5))
	res, err := engine.PlaceBreaks(iv, nil, pol)
	require.NoError(t, err)

	require.Len(t, res.BreaksToAdd, 1)
	b := res.BreaksToAdd[0]
	assert.Equal(t, at(19, 35), b.Start)
	assert.Equal(t, at(20, 5), b.End)
	assert.Equal(t, 30, b.Minutes)
	assert.Equal(t, engine.OriginAutoEndOfDay, b.Origin)

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, engine.DiagLunchFallback, res.Diagnostics[0].Code)
}

func TestPlaceBreaks_RemainderLogic_AppliesToFortyFiveTier(t *testing.T) {
	// The remainder split applies uniformly to both tiers, including >9h.
	// 13:45-23:00 (555m) owes 45m: 15m of lunch overlap plus 30m at the end.

	iv := interval(at(13, 45), at(23, 0))
	res, err := engine.PlaceBreaks(iv, nil, engine.DefaultPolicy())
	require.NoError(t, err)

	require.Len(t, res.BreaksToAdd, 2)
	assert.Equal(t, 15, res.BreaksToAdd[0].Minutes)
	assert.Equal(t, engine.OriginAutoLunch, res.BreaksToAdd[0].Origin)
	assert.Equal(t, 30, res.BreaksToAdd[1].Minutes)
	assert.Equal(t, engine.OriginAutoEndOfDay, res.BreaksToAdd[1].Origin)
	assert.Equal(t, 45, res.AddedMinutes())
}

// =============================================================================
// END OF DAY STRATEGY
// =============================================================================

func TestPlaceBreaks_EndOfDayStrategy_IgnoresLunchWindow(t *testing.T) {
	pol := engine.DefaultPolicy()
	pol.Strategy = engine.StrategyEndOfDay

	iv := interval(at(9, 0), at(15, 30))
	res, err := engine.PlaceBreaks(iv, nil, pol)
	require.NoError(t, err)

	require.Len(t, res.BreaksToAdd, 1)
	b := res.BreaksToAdd[0]
	assert.Equal(t, at(15, 0), b.Start)
	assert.Equal(t, at(15, 30), b.End)
	assert.Equal(t, engine.OriginAutoEndOfDay, b.Origin)
	assert.Empty(t, res.Diagnostics)
}

// =============================================================================
// DISTRIBUTED STRATEGY
// =============================================================================

func TestPlaceBreaks_DistributedConsolidated_MidpointBreak(t *testing.T) {
	pol := engine.DefaultPolicy()
	pol.Strategy = engine.StrategyDistributed
	pol.PreferConsolidated = true

	iv := interval(at(8, 0), at(16, 0)) // 480m, midpoint 12:00
	res, err := engine.PlaceBreaks(iv, nil, pol)
	require.NoError(t, err)

	require.Len(t, res.BreaksToAdd, 1)
	b := res.BreaksToAdd[0]
	assert.Equal(t, at(11, 45), b.Start)
	assert.Equal(t, at(12, 15), b.End)
	assert.Equal(t, 30, b.Minutes)
	assert.Equal(t, engine.OriginAutoDistributed, b.Origin)
}

func TestPlaceBreaks_DistributedSplit_EvenlySpaced(t *testing.T) {
	// GIVEN: A 9h1m day owing 45m, min duration 15m, max 3 breaks
	// WHEN: Distributing with consolidation off
	// THEN: Three 15m breaks, one centered in each third of the day

	pol := engine.DefaultPolicy()
	pol.Strategy = engine.StrategyDistributed

	iv := interval(at(8, 0), at(17, 1))
	res, err := engine.PlaceBreaks(iv, nil, pol)
	require.NoError(t, err)

	require.Len(t, res.BreaksToAdd, 3)
	assert.Equal(t, 45, res.AddedMinutes())
	assertInsideInterval(t, iv, res)

	for i, b := range res.BreaksToAdd {
		assert.Equal(t, engine.OriginAutoDistributed, b.Origin, "break %d", i)
		assert.Equal(t, 15, b.Minutes, "break %d", i)
	}

	// Later breaks start strictly after earlier ones end.
	for i := 1; i < len(res.BreaksToAdd); i++ {
		assert.True(t, res.BreaksToAdd[i].Start.After(res.BreaksToAdd[i-1].End))
	}
}

func TestPlaceBreaks_DistributedSplit_RemainderOnLastBreak(t *testing.T) {
	// 30m missing with a 20m minimum gives one break holding everything.

	pol := engine.DefaultPolicy()
	pol.Strategy = engine.StrategyDistributed
	pol.MinBreakMinutes = 20

	iv := interval(at(9, 0), at(16, 0))
	res, err := engine.PlaceBreaks(iv, nil, pol)
	require.NoError(t, err)

	require.Len(t, res.BreaksToAdd, 1)
	assert.Equal(t, 30, res.BreaksToAdd[0].Minutes)
}

// =============================================================================
// IDEMPOTENCE
// =============================================================================

func TestPlaceBreaks_Idempotent_SecondRunIsEmpty(t *testing.T) {
	// GIVEN: A first placement run whose result has been applied
	// WHEN: Running placement again with identical inputs
	// THEN: Both the addition and the removal sets are empty

	pol := engine.DefaultPolicy()
	cases := []struct {
		name string
		iv   engine.WorkInterval
	}{
		{"lunch day", interval(at(9, 0), at(15, 30))},
		{"evening shift", interval(at(15, 0), at(23, 0))},
		{"long day", interval(at(8, 0), at(17, 1))},
		{"partial overlap", interval(at(13, 35), at(20, 5))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			first, err := engine.PlaceBreaks(tc.iv, nil, pol)
			require.NoError(t, err)
			require.NotEmpty(t, first.BreaksToAdd)

			applied := apply(tc.iv, nil, first)

			second, err := engine.PlaceBreaks(tc.iv, applied, pol)
			require.NoError(t, err)
			assert.Empty(t, second.BreaksToAdd)
			assert.Empty(t, second.RemoveBreakIDs)
		})
	}
}

func TestPlaceBreaks_EditedInterval_ReplacesAutoBreaks(t *testing.T) {
	// GIVEN: An applied placement for a 6.5h day
	// WHEN: The check-out is edited to 9h1m and placement reruns
	// THEN: The stale auto break is removed and the new requirement placed

	pol := engine.DefaultPolicy()
	original := interval(at(9, 0), at(15, 30))
	first, err := engine.PlaceBreaks(original, nil, pol)
	require.NoError(t, err)
	applied := apply(original, nil, first)

	edited := interval(at(9, 0), at(18, 1))
	second, err := engine.PlaceBreaks(edited, applied, pol)
	require.NoError(t, err)

	assert.Equal(t, []int64{100}, second.RemoveBreakIDs)
	assert.Equal(t, 45, second.AddedMinutes())
	assertInsideInterval(t, edited, second)
}

func TestPlaceBreaks_StaleDescription_Refreshed(t *testing.T) {
	// GIVEN: An applied placement whose auto break carries outdated
	// description text (e.g. persisted before a wording change)
	// WHEN: Placement reruns on the unchanged interval
	// THEN: The break is replaced instead of reconciled to a no-op

	pol := engine.DefaultPolicy()
	iv := interval(at(9, 0), at(15, 30))
	first, err := engine.PlaceBreaks(iv, nil, pol)
	require.NoError(t, err)

	applied := apply(iv, nil, first)
	require.Len(t, applied, 1)
	applied[0].Description = "Automatisch eingetragene Pause"

	second, err := engine.PlaceBreaks(iv, applied, pol)
	require.NoError(t, err)

	assert.Equal(t, []int64{100}, second.RemoveBreakIDs)
	require.Len(t, second.BreaksToAdd, 1)
	assert.Equal(t, "Gesetzliche Mittagspause (ArbZG §4)", second.BreaksToAdd[0].Description)
}

// =============================================================================
// CLAMPING PROPERTY
// =============================================================================

func TestPlaceBreaks_NeverEscapesInterval(t *testing.T) {
	pols := []engine.BreakPolicy{engine.DefaultPolicy()}

	p := engine.DefaultPolicy()
	p.Strategy = engine.StrategyEndOfDay
	pols = append(pols, p)

	p = engine.DefaultPolicy()
	p.Strategy = engine.StrategyDistributed
	pols = append(pols, p)

	p = engine.DefaultPolicy()
	p.Strategy = engine.StrategyDistributed
	p.PreferConsolidated = true
	pols = append(pols, p)

	ivs := []engine.WorkInterval{
		interval(at(6, 1), at(12, 30)),
		interval(at(9, 0), at(15, 30)),
		interval(at(13, 35), at(20, 5)),
		interval(at(15, 0), at(23, 0)),
		interval(at(8, 0), at(20, 0)),
		interval(at(0, 0), at(6, 2)),
		interval(at(5, 30), at(11, 55)),
	}

	for _, pol := range pols {
		for _, iv := range ivs {
			res, err := engine.PlaceBreaks(iv, nil, pol)
			require.NoError(t, err)
			assertInsideInterval(t, iv, res)
			assertNonOverlapping(t, res)
		}
	}
}
