package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// HELPERS
// =============================================================================

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func strategyPtr(s engine.Strategy) *engine.Strategy { return &s }

func windowPtr(w engine.LunchWindow) *engine.LunchWindow { return &w }

// =============================================================================
// RESOLUTION
// =============================================================================

func TestResolvePolicy_BothAbsent_Fails(t *testing.T) {
	_, _, err := engine.ResolvePolicy(nil, nil)
	assert.ErrorIs(t, err, engine.ErrNoPolicy)
}

func TestResolvePolicy_NoOverride_SystemVerbatim(t *testing.T) {
	system := engine.DefaultPolicy()
	system.Strategy = engine.StrategyEndOfDay
	system.MaxBreaksPerDay = 2

	pol, notes, err := engine.ResolvePolicy(nil, &system)
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.Equal(t, system, pol)
}

func TestResolvePolicy_FieldByFieldFallback(t *testing.T) {
	// GIVEN: An override setting only strategy and min duration
	// WHEN: Resolving against the system default
	// THEN: Untouched fields keep the system values

	system := engine.DefaultPolicy()
	override := &engine.PolicyOverride{
		Strategy:        strategyPtr(engine.StrategyDistributed),
		MinBreakMinutes: intPtr(20),
	}

	pol, notes, err := engine.ResolvePolicy(override, &system)
	require.NoError(t, err)
	assert.Empty(t, notes)

	assert.Equal(t, engine.StrategyDistributed, pol.Strategy)
	assert.Equal(t, 20, pol.MinBreakMinutes)
	assert.Equal(t, system.Lunch, pol.Lunch)
	assert.Equal(t, system.MaxBreaksPerDay, pol.MaxBreaksPerDay)
	assert.Equal(t, system.ExcludeFromBilling, pol.ExcludeFromBilling)
}

func TestResolvePolicy_OverrideDisablesArbzg(t *testing.T) {
	system := engine.DefaultPolicy()
	override := &engine.PolicyOverride{ArbzgEnabled: boolPtr(false)}

	pol, _, err := engine.ResolvePolicy(override, &system)
	require.NoError(t, err)
	assert.False(t, pol.ArbzgEnabled)
}

// =============================================================================
// CLAMPING
// =============================================================================

func TestResolvePolicy_OutOfRange_SilentlyClamped(t *testing.T) {
	// GIVEN: An override with every numeric field out of range
	// WHEN: Resolving
	// THEN: Values are clamped to the nearest bound, one note per field,
	//       and no error is raised

	system := engine.DefaultPolicy()
	override := &engine.PolicyOverride{
		MinBreakMinutes:     intPtr(2),   // below 5
		MaxBreaksPerDay:     intPtr(12),  // above 5
		BreakSpacingMinutes: intPtr(600), // above 240
	}

	pol, notes, err := engine.ResolvePolicy(override, &system)
	require.NoError(t, err)

	assert.Equal(t, 5, pol.MinBreakMinutes)
	assert.Equal(t, 5, pol.MaxBreaksPerDay)
	assert.Equal(t, 240, pol.BreakSpacingMinutes)
	assert.Len(t, notes, 3)
}

func TestResolvePolicy_DegenerateLunchWindow_ReplacedWithDefault(t *testing.T) {
	system := engine.DefaultPolicy()
	override := &engine.PolicyOverride{
		Lunch: windowPtr(engine.LunchWindow{StartHour: 14, StartMinute: 0, EndHour: 11, EndMinute: 30}),
	}

	pol, notes, err := engine.ResolvePolicy(override, &system)
	require.NoError(t, err)

	assert.False(t, pol.Lunch.Degenerate())
	assert.Equal(t, engine.DefaultPolicy().Lunch, pol.Lunch)
	require.Len(t, notes, 1)
	assert.Equal(t, "lunch_window", notes[0].Field)
}

func TestResolvePolicy_UnknownStrategy_FallsBackToLunchPriority(t *testing.T) {
	system := engine.DefaultPolicy()
	override := &engine.PolicyOverride{Strategy: strategyPtr(engine.Strategy("psychic"))}

	pol, notes, err := engine.ResolvePolicy(override, &system)
	require.NoError(t, err)
	assert.Equal(t, engine.StrategyLunchPriority, pol.Strategy)
	require.Len(t, notes, 1)
	assert.Equal(t, "strategy", notes[0].Field)
}
