package engine

// =============================================================================
// BILLING - Billable minutes from worked time and excluded breaks
// =============================================================================

// BillableMinutes computes the billable minutes for a completed interval:
// total worked minutes minus every break flagged as excluded from billing,
// clamped at zero. Pure and total; the only failure is an open interval,
// for which billing is not yet computable.
func BillableMinutes(iv WorkInterval, all []BreakInterval) (int, error) {
	if !iv.Complete() {
		return 0, &IncompleteIntervalError{WorkIntervalID: iv.ID}
	}

	excluded := 0
	for _, b := range all {
		if b.ExcludedFromBilling {
			excluded += b.Minutes
		}
	}

	billable := iv.Minutes() - excluded
	if billable < 0 {
		billable = 0
	}
	return billable, nil
}
