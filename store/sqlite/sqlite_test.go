/*
sqlite_test.go - Persistence tests against a real SQLite database

Tests for:
- Round-tripping users, intervals, breaks and both policy tiers
- Transaction rollback via WithTx
- Cascading GDPR erasure
- Migration idempotence across reopens
*/
package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/engine"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func at(h, m int) time.Time {
	return time.Date(2024, 3, 4, h, m, 0, 0, time.Local)
}

func TestStore_RecordRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	user := &attendance.User{Username: "mwagner", IsAdmin: true}
	require.NoError(t, s.CreateUser(ctx, user))
	require.NotZero(t, user.ID)

	// Open interval first
	rec := &attendance.Record{
		WorkInterval: engine.WorkInterval{UserID: user.ID, Start: at(9, 0)},
	}
	require.NoError(t, s.CreateRecord(ctx, rec))

	open, err := s.OpenRecord(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, open.ID)
	assert.Nil(t, open.End)
	assert.True(t, open.Start.Equal(at(9, 0)))

	// Close it with billing fields
	end := at(15, 30)
	billable := 360
	rec.End = &end
	rec.BillableMinutes = &billable
	rec.HasAutoBreaks = true
	require.NoError(t, s.UpdateRecord(ctx, rec))

	_, err = s.OpenRecord(ctx, user.ID)
	assert.ErrorIs(t, err, attendance.ErrNotFound)

	got, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got.End)
	assert.True(t, got.End.Equal(end))
	require.NotNil(t, got.BillableMinutes)
	assert.Equal(t, 360, *got.BillableMinutes)
	assert.True(t, got.HasAutoBreaks)
}

func TestStore_ListRecordsByRange(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	user := &attendance.User{Username: "jdoe"}
	require.NoError(t, s.CreateUser(ctx, user))

	for day := 1; day <= 3; day++ {
		start := time.Date(2024, 3, day, 9, 0, 0, 0, time.Local)
		end := start.Add(8 * time.Hour)
		require.NoError(t, s.CreateRecord(ctx, &attendance.Record{
			WorkInterval: engine.WorkInterval{UserID: user.ID, Start: start, End: &end},
		}))
	}

	all, err := s.ListRecords(ctx, user.ID, attendance.DateRange{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := s.ListRecords(ctx, user.ID, attendance.DateRange{
		From: time.Date(2024, 3, 2, 0, 0, 0, 0, time.Local),
		To:   time.Date(2024, 3, 2, 23, 59, 0, 0, time.Local),
	})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, 2, some[0].Start.Day())
}

func TestStore_BreakRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	user := &attendance.User{Username: "mwagner"}
	require.NoError(t, s.CreateUser(ctx, user))
	end := at(15, 30)
	rec := &attendance.Record{
		WorkInterval: engine.WorkInterval{UserID: user.ID, Start: at(9, 0), End: &end},
	}
	require.NoError(t, s.CreateRecord(ctx, rec))

	require.NoError(t, s.InsertBreaks(ctx, rec.ID, []engine.BreakDraft{{
		Start:               at(12, 30),
		End:                 at(13, 0),
		Minutes:             30,
		ExcludedFromBilling: true,
		AutoDetected:        true,
		Origin:              engine.OriginAutoLunch,
		Description:         "Gesetzliche Mittagspause (ArbZG §4)",
	}}))

	breaks, err := s.ListBreaks(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, breaks, 1)
	b := breaks[0]
	assert.Equal(t, rec.ID, b.WorkIntervalID)
	assert.True(t, b.Start.Equal(at(12, 30)))
	assert.Equal(t, 30, b.Minutes)
	assert.Equal(t, engine.OriginAutoLunch, b.Origin)
	assert.True(t, b.AutoDetected)
	assert.True(t, b.ExcludedFromBilling)

	got, err := s.GetBreak(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, *got)

	require.NoError(t, s.DeleteBreaks(ctx, []int64{b.ID}))
	breaks, err = s.ListBreaks(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, breaks)
}

func TestStore_PolicyTiers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// System policy is absent until seeded
	_, err := s.SystemPolicy(ctx)
	assert.ErrorIs(t, err, attendance.ErrNotFound)

	pol := engine.DefaultPolicy()
	require.NoError(t, s.SaveSystemPolicy(ctx, pol))
	got, err := s.SystemPolicy(ctx)
	require.NoError(t, err)
	assert.Equal(t, pol, *got)

	// Saving again replaces, the table stays single-row
	pol.Strategy = engine.StrategyDistributed
	require.NoError(t, s.SaveSystemPolicy(ctx, pol))
	got, err = s.SystemPolicy(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.StrategyDistributed, got.Strategy)

	// User override: absent reads as (nil, nil)
	user := &attendance.User{Username: "mwagner"}
	require.NoError(t, s.CreateUser(ctx, user))
	ov, err := s.UserPolicy(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, ov)

	// Sparse override round trip
	enabled := false
	minBreak := 20
	require.NoError(t, s.SaveUserPolicy(ctx, user.ID, engine.PolicyOverride{
		ArbzgEnabled:    &enabled,
		MinBreakMinutes: &minBreak,
	}))
	ov, err = s.UserPolicy(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, ov)
	require.NotNil(t, ov.ArbzgEnabled)
	assert.False(t, *ov.ArbzgEnabled)
	require.NotNil(t, ov.MinBreakMinutes)
	assert.Equal(t, 20, *ov.MinBreakMinutes)
	assert.Nil(t, ov.Strategy)
	assert.Nil(t, ov.Lunch)

	require.NoError(t, s.DeleteUserPolicy(ctx, user.ID))
	ov, err = s.UserPolicy(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, ov)
}

func TestStore_WithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	user := &attendance.User{Username: "mwagner"}
	require.NoError(t, s.CreateUser(ctx, user))
	end := at(17, 0)
	rec := &attendance.Record{
		WorkInterval: engine.WorkInterval{UserID: user.ID, Start: at(9, 0), End: &end},
	}
	require.NoError(t, s.CreateRecord(ctx, rec))

	// GIVEN a transaction that writes a break and then fails
	boom := assert.AnError
	err := s.WithTx(ctx, func(st attendance.Store) error {
		if err := st.InsertBreaks(ctx, rec.ID, []engine.BreakDraft{{
			Start: at(12, 0), End: at(12, 30), Minutes: 30, Origin: engine.OriginManual,
		}}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// THEN nothing was persisted
	breaks, err := s.ListBreaks(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, breaks)
}

func TestStore_EraseUserCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	user := &attendance.User{Username: "mwagner"}
	require.NoError(t, s.CreateUser(ctx, user))
	end := at(15, 30)
	rec := &attendance.Record{
		WorkInterval: engine.WorkInterval{UserID: user.ID, Start: at(9, 0), End: &end},
	}
	require.NoError(t, s.CreateRecord(ctx, rec))
	require.NoError(t, s.InsertBreaks(ctx, rec.ID, []engine.BreakDraft{{
		Start: at(12, 0), End: at(12, 30), Minutes: 30, Origin: engine.OriginManual,
	}}))
	enabled := false
	require.NoError(t, s.SaveUserPolicy(ctx, user.ID, engine.PolicyOverride{ArbzgEnabled: &enabled}))

	require.NoError(t, s.EraseUser(ctx, user.ID))

	_, err := s.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, attendance.ErrNotFound)
	_, err = s.GetRecord(ctx, rec.ID)
	assert.ErrorIs(t, err, attendance.ErrNotFound)
	ov, err := s.UserPolicy(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, ov)

	assert.ErrorIs(t, s.EraseUser(ctx, user.ID), attendance.ErrNotFound)
}

func TestStore_MigrationsAreIdempotent(t *testing.T) {
	// GIVEN a database created by a previous run
	path := filepath.Join(t.TempDir(), "attendance.db")
	first, err := New(path)
	require.NoError(t, err)

	ctx := context.Background()
	user := &attendance.User{Username: "mwagner"}
	require.NoError(t, first.CreateUser(ctx, user))
	require.NoError(t, first.Close())

	// WHEN reopening it
	second, err := New(path)
	require.NoError(t, err)
	defer second.Close()

	// THEN migrations do not rerun and data survives
	got, err := second.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "mwagner", got.Username)
}

func TestStore_TolerantTimestampRead(t *testing.T) {
	// GIVEN a row written by an older deployment with a T separator and a
	// timezone offset
	ctx := context.Background()
	s := newTestStore(t)

	user := &attendance.User{Username: "mwagner"}
	require.NoError(t, s.CreateUser(ctx, user))
	_, err := s.db.Exec(
		`INSERT INTO work_intervals (user_id, check_in, check_out) VALUES (?, ?, ?)`,
		user.ID, "2024-03-04T09:00:00", "2024-03-04 15:30:00+02:00")
	require.NoError(t, err)

	// WHEN reading it back
	records, err := s.ListRecords(ctx, user.ID, attendance.DateRange{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	// THEN both variants parse to the same local times
	assert.True(t, records[0].Start.Equal(at(9, 0)))
	require.NotNil(t, records[0].End)
	assert.True(t, records[0].End.Equal(at(15, 30)))
}
