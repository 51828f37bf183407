/*
gdpr.go - Data-subject operations

PURPOSE:
  Implements the three GDPR requests the admin handles: access (a full
  export of everything stored about a user), rectification (interval edits
  already covered by Service.EditRecord) and erasure (hard delete of the
  user and all attendance data).

EXPORT FORMAT:
  The bundle is a plain struct with json tags; the HTTP layer serializes
  it as-is. Each bundle carries a UUID so a fulfilled request can be
  referenced in correspondence.
*/
package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// ACCESS - Full export of a user's stored data
// =============================================================================

// ExportBundle is everything the system stores about one user.
type ExportBundle struct {
	ExportID    string         `json:"export_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	User        User           `json:"user"`
	Intervals   []IntervalData `json:"intervals"`
	// PolicyOverride is nil when the user never changed their settings.
	PolicyOverride *engine.PolicyOverride `json:"policy_override,omitempty"`
}

// IntervalData pairs a record with its breaks.
type IntervalData struct {
	Record Record                 `json:"record"`
	Breaks []engine.BreakInterval `json:"breaks"`
}

// ExportUserData assembles the access-request bundle for a user.
func (s *Service) ExportUserData(ctx context.Context, userID int64) (*ExportBundle, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	records, err := s.store.ListRecords(ctx, userID, DateRange{})
	if err != nil {
		return nil, err
	}

	bundle := &ExportBundle{
		ExportID:    uuid.NewString(),
		GeneratedAt: time.Now(),
		User:        *user,
	}

	for _, rec := range records {
		breaks, err := s.store.ListBreaks(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		bundle.Intervals = append(bundle.Intervals, IntervalData{Record: rec, Breaks: breaks})
	}

	override, err := s.store.UserPolicy(ctx, userID)
	if err != nil {
		return nil, err
	}
	bundle.PolicyOverride = override

	return bundle, nil
}

// =============================================================================
// ERASURE - Hard delete
// =============================================================================

// EraseUserData removes the user and every interval, break and policy
// override belonging to them in one transaction. There is no soft delete;
// erasure requests are final.
func (s *Service) EraseUserData(ctx context.Context, userID int64) error {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(st Store) error {
		return st.EraseUser(ctx, userID)
	})
}
