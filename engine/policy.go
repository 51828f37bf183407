/*
policy.go - Break policy and two-tier resolution

PURPOSE:
  Defines the BreakPolicy value object and the resolver that merges a
  per-user override with the system-wide default. This replaces the old
  "settings row with user_id=0" convention: defaults are an explicit value,
  not a sentinel database row.

RESOLUTION:
  - No override: the system policy is used verbatim.
  - Override present: field-by-field fallback. Only fields the user
    actually set (non-nil pointers) shadow the system value.
  - Out-of-range numeric fields are silently clamped to the nearest valid
    bound; each clamp is reported as a ClampNote so an admin UI can
    surface it. Clamping never fails the call.
  - The only error is ErrNoPolicy: neither tier available.

BOUNDS:
  MinBreakMinutes   5..60
  MaxBreaksPerDay   1..5
  BreakSpacing      60..240 minutes
  Lunch window must end strictly after it starts; a degenerate window is
  replaced by the default (11:30-14:00).

SEE ALSO:
  - placement.go: Consumes the resolved policy
  - factory:      Builds policies from JSON/YAML documents
*/
package engine

import "fmt"

// =============================================================================
// STRATEGY - Where missing break minutes are placed
// =============================================================================

type Strategy string

const (
	// StrategyLunchPriority places breaks inside the lunch window when the
	// work period overlaps it, falling back to end of day.
	StrategyLunchPriority Strategy = "lunch_priority"

	// StrategyEndOfDay always places a single break ending at check-out.
	StrategyEndOfDay Strategy = "end_of_day"

	// StrategyDistributed spreads several smaller breaks evenly across the
	// work period.
	StrategyDistributed Strategy = "distributed"
)

func (s Strategy) Valid() bool {
	switch s {
	case StrategyLunchPriority, StrategyEndOfDay, StrategyDistributed:
		return true
	}
	return false
}

// =============================================================================
// LUNCH WINDOW - Time-of-day range for preferred placement
// =============================================================================

// LunchWindow is a wall-clock range, applied to the calendar day of the
// work interval's start.
type LunchWindow struct {
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

func (w LunchWindow) startMinutes() int { return w.StartHour*60 + w.StartMinute }
func (w LunchWindow) endMinutes() int   { return w.EndHour*60 + w.EndMinute }

// Degenerate reports whether the window is empty or inverted.
func (w LunchWindow) Degenerate() bool { return w.endMinutes() <= w.startMinutes() }

func (w LunchWindow) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.StartHour, w.StartMinute, w.EndHour, w.EndMinute)
}

// =============================================================================
// BREAK POLICY - Fully resolved configuration
// =============================================================================

// BreakPolicy is a complete, resolved configuration. Placement only ever
// sees this form; partial user settings exist only as PolicyOverride.
type BreakPolicy struct {
	ArbzgEnabled       bool
	Strategy           Strategy
	Lunch              LunchWindow
	PreferConsolidated bool
	MinBreakMinutes    int
	MaxBreaksPerDay    int
	// BreakSpacingMinutes is accepted, clamped and persisted for settings
	// round trips, but placement does not consult it yet: the distributed
	// strategy derives its spacing from the segment count.
	BreakSpacingMinutes int
	ExcludeFromBilling  bool
}

// PolicyOverride holds per-user settings. Nil fields fall back to the
// system policy field-by-field.
type PolicyOverride struct {
	ArbzgEnabled        *bool
	Strategy            *Strategy
	Lunch               *LunchWindow
	PreferConsolidated  *bool
	MinBreakMinutes     *int
	MaxBreaksPerDay     *int
	BreakSpacingMinutes *int
	ExcludeFromBilling  *bool
}

// DefaultPolicy returns the stock configuration: lunch-priority placement
// in an 11:30-14:00 window, ArbZG enforcement on, breaks excluded from
// billing.
func DefaultPolicy() BreakPolicy {
	return BreakPolicy{
		ArbzgEnabled:        true,
		Strategy:            StrategyLunchPriority,
		Lunch:               LunchWindow{StartHour: 11, StartMinute: 30, EndHour: 14, EndMinute: 0},
		PreferConsolidated:  false,
		MinBreakMinutes:     15,
		MaxBreaksPerDay:     3,
		BreakSpacingMinutes: 120,
		ExcludeFromBilling:  true,
	}
}

// Validation bounds for numeric policy fields.
const (
	minBreakMinutesLow  = 5
	minBreakMinutesHigh = 60
	maxBreaksPerDayLow  = 1
	maxBreaksPerDayHigh = 5
	breakSpacingLow     = 60
	breakSpacingHigh    = 240
)

// ClampNote records one silent range correction made during resolution.
type ClampNote struct {
	Field string
	Was   string
	Now   string
}

func (c ClampNote) String() string {
	return fmt.Sprintf("%s clamped from %s to %s", c.Field, c.Was, c.Now)
}

// =============================================================================
// RESOLUTION
// =============================================================================

// ResolvePolicy merges a per-user override into the system policy and
// normalizes the result. Returns ErrNoPolicy when both tiers are absent;
// never fails for a merely out-of-range value.
func ResolvePolicy(override *PolicyOverride, system *BreakPolicy) (BreakPolicy, []ClampNote, error) {
	if override == nil && system == nil {
		return BreakPolicy{}, nil, ErrNoPolicy
	}

	var pol BreakPolicy
	if system != nil {
		pol = *system
	} else {
		pol = DefaultPolicy()
	}

	if override != nil {
		if override.ArbzgEnabled != nil {
			pol.ArbzgEnabled = *override.ArbzgEnabled
		}
		if override.Strategy != nil {
			pol.Strategy = *override.Strategy
		}
		if override.Lunch != nil {
			pol.Lunch = *override.Lunch
		}
		if override.PreferConsolidated != nil {
			pol.PreferConsolidated = *override.PreferConsolidated
		}
		if override.MinBreakMinutes != nil {
			pol.MinBreakMinutes = *override.MinBreakMinutes
		}
		if override.MaxBreaksPerDay != nil {
			pol.MaxBreaksPerDay = *override.MaxBreaksPerDay
		}
		if override.BreakSpacingMinutes != nil {
			pol.BreakSpacingMinutes = *override.BreakSpacingMinutes
		}
		if override.ExcludeFromBilling != nil {
			pol.ExcludeFromBilling = *override.ExcludeFromBilling
		}
	}

	notes := normalize(&pol)
	return pol, notes, nil
}

// normalize clamps out-of-range fields in place and returns one note per
// correction.
func normalize(pol *BreakPolicy) []ClampNote {
	var notes []ClampNote

	clampInt := func(field string, v *int, lo, hi int) {
		was := *v
		if *v < lo {
			*v = lo
		} else if *v > hi {
			*v = hi
		}
		if *v != was {
			notes = append(notes, ClampNote{
				Field: field,
				Was:   fmt.Sprintf("%d", was),
				Now:   fmt.Sprintf("%d", *v),
			})
		}
	}

	clampInt("min_break_minutes", &pol.MinBreakMinutes, minBreakMinutesLow, minBreakMinutesHigh)
	clampInt("max_breaks_per_day", &pol.MaxBreaksPerDay, maxBreaksPerDayLow, maxBreaksPerDayHigh)
	clampInt("break_spacing_minutes", &pol.BreakSpacingMinutes, breakSpacingLow, breakSpacingHigh)

	if !pol.Strategy.Valid() {
		notes = append(notes, ClampNote{
			Field: "strategy",
			Was:   string(pol.Strategy),
			Now:   string(StrategyLunchPriority),
		})
		pol.Strategy = StrategyLunchPriority
	}

	if pol.Lunch.Degenerate() {
		def := DefaultPolicy().Lunch
		notes = append(notes, ClampNote{
			Field: "lunch_window",
			Was:   pol.Lunch.String(),
			Now:   def.String(),
		})
		pol.Lunch = def
	}

	return notes
}
