package engine

// =============================================================================
// STATUTORY REQUIREMENT - ArbZG §4 rest break thresholds
// =============================================================================

// Statutory thresholds and break amounts, in minutes. ArbZG §4 requires a
// 30 minute rest once worked time exceeds 6 hours and 45 minutes once it
// exceeds 9 hours. Both boundaries are strict: exactly 6 hours owes
// nothing, exactly 9 hours owes 30.
const (
	sixHours  = 6 * 60
	nineHours = 9 * 60

	breakOverSix  = 30
	breakOverNine = 45
)

// RequiredBreakMinutes returns the statutory rest minutes owed for a total
// worked duration. Derived, never stored.
func RequiredBreakMinutes(totalMinutes int) int {
	switch {
	case totalMinutes > nineHours:
		return breakOverNine
	case totalMinutes > sixHours:
		return breakOverSix
	default:
		return 0
	}
}
