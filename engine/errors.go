/*
errors.go - Centralized error types for the engine

PURPOSE:
  All engine error types in one place. The taxonomy is small on purpose:
  the engine only fails for unusable input (no policy, open interval,
  unparseable timestamp). Everything that is merely awkward - a break that
  does not fit, a lunch window outside the work day - degrades gracefully
  and comes back as a Diagnostic instead.

USAGE:
  if errors.Is(err, engine.ErrIncompleteInterval) {
      // checkout not finished yet; nothing to compute
  }

  var tsErr *engine.InvalidTimestampError
  if errors.As(err, &tsErr) {
      log.Printf("bad value %q", tsErr.Value)
  }

SEE ALSO:
  - placement.go: Raises ErrIncompleteInterval
  - policy.go:    Raises ErrNoPolicy
  - timeparse.go: Raises InvalidTimestampError
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoPolicy is returned when neither a user override nor a system
	// policy is available. The caller must supply defaults upstream.
	ErrNoPolicy = errors.New("no break policy available")

	// ErrIncompleteInterval is returned when placement or billing is
	// requested for a work interval without a check-out time.
	ErrIncompleteInterval = errors.New("work interval has no end time")

	// ErrInvalidTimestamp is returned when a persisted datetime string
	// matches none of the accepted formats.
	ErrInvalidTimestamp = errors.New("unparseable timestamp")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTimestampError reports the exact value that failed to parse.
// The engine never guesses at a malformed endpoint.
type InvalidTimestampError struct {
	Value string
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("unparseable timestamp %q", e.Value)
}

func (e *InvalidTimestampError) Unwrap() error { return ErrInvalidTimestamp }

// IncompleteIntervalError identifies which interval was still open.
type IncompleteIntervalError struct {
	WorkIntervalID int64
}

func (e *IncompleteIntervalError) Error() string {
	return fmt.Sprintf("work interval %d has no end time", e.WorkIntervalID)
}

func (e *IncompleteIntervalError) Unwrap() error { return ErrIncompleteInterval }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than a system fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrIncompleteInterval) ||
		errors.Is(err, ErrInvalidTimestamp)
}
