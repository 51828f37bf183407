/*
Package sqlite provides the SQLite-backed implementation of the attendance
storage interfaces.

PURPOSE:
  Implements attendance.TxStore using database/sql + mattn/go-sqlite3. The
  same statements port to PostgreSQL with minor dialect changes.

KEY TABLES:
  users:             Account records
  work_intervals:    One row per check-in (check_out NULL while open)
  breaks:            Manual and automatic breaks, FK to work_intervals
  policy_overrides:  Per-user break policy fields, all nullable
  system_policy:     Single-row system-wide default policy
  schema_migrations: Applied migration versions

MIGRATIONS:
  Versioned and applied once at startup inside a transaction. The old
  system altered tables lazily inside request handlers; that pattern is
  deliberately gone - New() either brings the schema fully up to date or
  fails.

DATETIME STORAGE:
  Timestamps are stored as naive local "YYYY-MM-DD HH:MM:SS" text. Reads
  go through engine.ParseTimestamp, which also accepts the variants older
  deployments wrote (T separator, fractional seconds, offsets).

WAL MODE:
  The database is opened with WAL (Write-Ahead Logging) and foreign keys
  on:
  - Multiple readers don't block
  - Single writer at a time
  - Break rows cascade when their interval or user goes away

USAGE:
  store, err := sqlite.New("./attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  svc := attendance.NewService(store)

SEE ALSO:
  - attendance/store.go: Interface definitions
  - attendance/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/engine"
)

// Store implements attendance.TxStore using SQLite.
type Store struct {
	db *sql.DB
	q  queries
}

var _ attendance.TxStore = (*Store)(nil)

// New opens (or creates) the database at dbPath and applies pending
// migrations. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, q: queries{db: db}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// MIGRATIONS - Versioned, applied once at startup
// =============================================================================

// migrations are applied in order; each entry runs at most once. Never
// edit a shipped entry, append a new one.
var migrations = []string{
	// v1: base schema
	`
	CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		is_admin INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE work_intervals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		check_in TEXT NOT NULL,
		check_out TEXT,
		billable_minutes INTEGER,
		has_auto_breaks INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX idx_work_intervals_user ON work_intervals(user_id, check_in);
	CREATE INDEX idx_work_intervals_open ON work_intervals(user_id) WHERE check_out IS NULL;

	CREATE TABLE breaks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		work_interval_id INTEGER NOT NULL REFERENCES work_intervals(id) ON DELETE CASCADE,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		excluded_from_billing INTEGER NOT NULL DEFAULT 1,
		auto_detected INTEGER NOT NULL DEFAULT 0,
		origin TEXT NOT NULL DEFAULT 'manual',
		description TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX idx_breaks_interval ON breaks(work_interval_id, start_time);
	`,

	// v2: break policy, two tiers
	`
	CREATE TABLE system_policy (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		arbzg_enabled INTEGER NOT NULL,
		strategy TEXT NOT NULL,
		lunch_start_hour INTEGER NOT NULL,
		lunch_start_minute INTEGER NOT NULL,
		lunch_end_hour INTEGER NOT NULL,
		lunch_end_minute INTEGER NOT NULL,
		prefer_consolidated INTEGER NOT NULL,
		min_break_minutes INTEGER NOT NULL,
		max_breaks_per_day INTEGER NOT NULL,
		break_spacing_minutes INTEGER NOT NULL,
		exclude_from_billing INTEGER NOT NULL
	);

	CREATE TABLE policy_overrides (
		user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		arbzg_enabled INTEGER,
		strategy TEXT,
		lunch_start_hour INTEGER,
		lunch_start_minute INTEGER,
		lunch_end_hour INTEGER,
		lunch_end_minute INTEGER,
		prefer_consolidated INTEGER,
		min_break_minutes INTEGER,
		max_breaks_per_day INTEGER,
		break_spacing_minutes INTEGER,
		exclude_from_billing INTEGER
	);
	`,
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`); err != nil {
		return err
	}

	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return err
	}

	for v := current; v < len(migrations); v++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, v+1); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn against a transactional view of the store. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(attendance.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&txStore{q: queries{db: tx}}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// txStore is the view handed to WithTx callbacks.
type txStore struct {
	q queries
}

var _ attendance.Store = (*txStore)(nil)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries carries every statement; it runs against either the pool or a
// transaction.
type queries struct {
	db dbtx
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, u *attendance.User) error {
	return s.q.createUser(ctx, u)
}

func (t *txStore) CreateUser(ctx context.Context, u *attendance.User) error {
	return t.q.createUser(ctx, u)
}

func (q queries) createUser(ctx context.Context, u *attendance.User) error {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO users (username, is_admin) VALUES (?, ?)`,
		u.Username, u.IsAdmin)
	if err != nil {
		return err
	}
	u.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetUser(ctx context.Context, id int64) (*attendance.User, error) {
	return s.q.getUser(ctx, id)
}

func (t *txStore) GetUser(ctx context.Context, id int64) (*attendance.User, error) {
	return t.q.getUser(ctx, id)
}

func (q queries) getUser(ctx context.Context, id int64) (*attendance.User, error) {
	var u attendance.User
	err := q.db.QueryRowContext(ctx,
		`SELECT id, username, is_admin FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.IsAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, attendance.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]attendance.User, error) {
	return s.q.listUsers(ctx)
}

func (t *txStore) ListUsers(ctx context.Context) ([]attendance.User, error) {
	return t.q.listUsers(ctx)
}

func (q queries) listUsers(ctx context.Context) ([]attendance.User, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, username, is_admin FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []attendance.User
	for rows.Next() {
		var u attendance.User
		if err := rows.Scan(&u.ID, &u.Username, &u.IsAdmin); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// =============================================================================
// WORK INTERVALS
// =============================================================================

func (s *Store) CreateRecord(ctx context.Context, rec *attendance.Record) error {
	return s.q.createRecord(ctx, rec)
}

func (t *txStore) CreateRecord(ctx context.Context, rec *attendance.Record) error {
	return t.q.createRecord(ctx, rec)
}

func (q queries) createRecord(ctx context.Context, rec *attendance.Record) error {
	var checkOut any
	if rec.End != nil {
		checkOut = engine.FormatTimestamp(*rec.End)
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO work_intervals (user_id, check_in, check_out, billable_minutes, has_auto_breaks)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.UserID, engine.FormatTimestamp(rec.Start), checkOut, rec.BillableMinutes, rec.HasAutoBreaks)
	if err != nil {
		return err
	}
	rec.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetRecord(ctx context.Context, id int64) (*attendance.Record, error) {
	return s.q.getRecord(ctx, id)
}

func (t *txStore) GetRecord(ctx context.Context, id int64) (*attendance.Record, error) {
	return t.q.getRecord(ctx, id)
}

func (q queries) getRecord(ctx context.Context, id int64) (*attendance.Record, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, user_id, check_in, check_out, billable_minutes, has_auto_breaks
		 FROM work_intervals WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, attendance.ErrNotFound
	}
	return rec, err
}

func (s *Store) UpdateRecord(ctx context.Context, rec *attendance.Record) error {
	return s.q.updateRecord(ctx, rec)
}

func (t *txStore) UpdateRecord(ctx context.Context, rec *attendance.Record) error {
	return t.q.updateRecord(ctx, rec)
}

func (q queries) updateRecord(ctx context.Context, rec *attendance.Record) error {
	var checkOut any
	if rec.End != nil {
		checkOut = engine.FormatTimestamp(*rec.End)
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE work_intervals
		 SET check_in = ?, check_out = ?, billable_minutes = ?, has_auto_breaks = ?
		 WHERE id = ?`,
		engine.FormatTimestamp(rec.Start), checkOut, rec.BillableMinutes, rec.HasAutoBreaks, rec.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return attendance.ErrNotFound
	}
	return nil
}

func (s *Store) ListRecords(ctx context.Context, userID int64, rng attendance.DateRange) ([]attendance.Record, error) {
	return s.q.listRecords(ctx, userID, rng)
}

func (t *txStore) ListRecords(ctx context.Context, userID int64, rng attendance.DateRange) ([]attendance.Record, error) {
	return t.q.listRecords(ctx, userID, rng)
}

func (q queries) listRecords(ctx context.Context, userID int64, rng attendance.DateRange) ([]attendance.Record, error) {
	query := `SELECT id, user_id, check_in, check_out, billable_minutes, has_auto_breaks
		 FROM work_intervals WHERE user_id = ?`
	args := []any{userID}
	if !rng.From.IsZero() {
		query += ` AND check_in >= ?`
		args = append(args, engine.FormatTimestamp(rng.From))
	}
	if !rng.To.IsZero() {
		query += ` AND check_in <= ?`
		args = append(args, engine.FormatTimestamp(rng.To))
	}
	query += ` ORDER BY check_in`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []attendance.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *Store) OpenRecord(ctx context.Context, userID int64) (*attendance.Record, error) {
	return s.q.openRecord(ctx, userID)
}

func (t *txStore) OpenRecord(ctx context.Context, userID int64) (*attendance.Record, error) {
	return t.q.openRecord(ctx, userID)
}

func (q queries) openRecord(ctx context.Context, userID int64) (*attendance.Record, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, user_id, check_in, check_out, billable_minutes, has_auto_breaks
		 FROM work_intervals WHERE user_id = ? AND check_out IS NULL`, userID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, attendance.ErrNotFound
	}
	return rec, err
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*attendance.Record, error) {
	var (
		rec      attendance.Record
		checkIn  string
		checkOut sql.NullString
		billable sql.NullInt64
	)
	if err := sc.Scan(&rec.ID, &rec.UserID, &checkIn, &checkOut, &billable, &rec.HasAutoBreaks); err != nil {
		return nil, err
	}

	start, err := engine.ParseTimestamp(checkIn)
	if err != nil {
		return nil, err
	}
	rec.Start = start

	if checkOut.Valid {
		end, err := engine.ParseTimestamp(checkOut.String)
		if err != nil {
			return nil, err
		}
		rec.End = &end
	}
	if billable.Valid {
		v := int(billable.Int64)
		rec.BillableMinutes = &v
	}
	return &rec, nil
}

// =============================================================================
// BREAKS
// =============================================================================

func (s *Store) InsertBreaks(ctx context.Context, intervalID int64, drafts []engine.BreakDraft) error {
	return s.q.insertBreaks(ctx, intervalID, drafts)
}

func (t *txStore) InsertBreaks(ctx context.Context, intervalID int64, drafts []engine.BreakDraft) error {
	return t.q.insertBreaks(ctx, intervalID, drafts)
}

func (q queries) insertBreaks(ctx context.Context, intervalID int64, drafts []engine.BreakDraft) error {
	for _, d := range drafts {
		if _, err := q.db.ExecContext(ctx,
			`INSERT INTO breaks (work_interval_id, start_time, end_time, duration_minutes,
			                     excluded_from_billing, auto_detected, origin, description)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			intervalID, engine.FormatTimestamp(d.Start), engine.FormatTimestamp(d.End),
			d.Minutes, d.ExcludedFromBilling, d.AutoDetected, string(d.Origin), d.Description); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeleteBreaks(ctx context.Context, ids []int64) error {
	return s.q.deleteBreaks(ctx, ids)
}

func (t *txStore) DeleteBreaks(ctx context.Context, ids []int64) error {
	return t.q.deleteBreaks(ctx, ids)
}

func (q queries) deleteBreaks(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if _, err := q.db.ExecContext(ctx, `DELETE FROM breaks WHERE id = ?`, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetBreak(ctx context.Context, id int64) (*engine.BreakInterval, error) {
	return s.q.getBreak(ctx, id)
}

func (t *txStore) GetBreak(ctx context.Context, id int64) (*engine.BreakInterval, error) {
	return t.q.getBreak(ctx, id)
}

func (q queries) getBreak(ctx context.Context, id int64) (*engine.BreakInterval, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, work_interval_id, start_time, end_time, duration_minutes,
		        excluded_from_billing, auto_detected, origin, description
		 FROM breaks WHERE id = ?`, id)
	b, err := scanBreak(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, attendance.ErrNotFound
	}
	return b, err
}

func (s *Store) ListBreaks(ctx context.Context, intervalID int64) ([]engine.BreakInterval, error) {
	return s.q.listBreaks(ctx, intervalID)
}

func (t *txStore) ListBreaks(ctx context.Context, intervalID int64) ([]engine.BreakInterval, error) {
	return t.q.listBreaks(ctx, intervalID)
}

func (q queries) listBreaks(ctx context.Context, intervalID int64) ([]engine.BreakInterval, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, work_interval_id, start_time, end_time, duration_minutes,
		        excluded_from_billing, auto_detected, origin, description
		 FROM breaks WHERE work_interval_id = ? ORDER BY start_time`, intervalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.BreakInterval
	for rows.Next() {
		b, err := scanBreak(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scanBreak(sc scanner) (*engine.BreakInterval, error) {
	var (
		b          engine.BreakInterval
		start, end string
		origin     string
	)
	if err := sc.Scan(&b.ID, &b.WorkIntervalID, &start, &end, &b.Minutes,
		&b.ExcludedFromBilling, &b.AutoDetected, &origin, &b.Description); err != nil {
		return nil, err
	}

	var err error
	if b.Start, err = engine.ParseTimestamp(start); err != nil {
		return nil, err
	}
	if b.End, err = engine.ParseTimestamp(end); err != nil {
		return nil, err
	}
	b.Origin = engine.BreakOrigin(origin)
	return &b, nil
}

// =============================================================================
// POLICY
// =============================================================================

const policyColumns = `arbzg_enabled, strategy, lunch_start_hour, lunch_start_minute,
	lunch_end_hour, lunch_end_minute, prefer_consolidated, min_break_minutes,
	max_breaks_per_day, break_spacing_minutes, exclude_from_billing`

func (s *Store) SystemPolicy(ctx context.Context) (*engine.BreakPolicy, error) {
	return s.q.systemPolicy(ctx)
}

func (t *txStore) SystemPolicy(ctx context.Context) (*engine.BreakPolicy, error) {
	return t.q.systemPolicy(ctx)
}

func (q queries) systemPolicy(ctx context.Context) (*engine.BreakPolicy, error) {
	var (
		pol      engine.BreakPolicy
		strategy string
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT `+policyColumns+` FROM system_policy WHERE id = 1`).
		Scan(&pol.ArbzgEnabled, &strategy,
			&pol.Lunch.StartHour, &pol.Lunch.StartMinute,
			&pol.Lunch.EndHour, &pol.Lunch.EndMinute,
			&pol.PreferConsolidated, &pol.MinBreakMinutes,
			&pol.MaxBreaksPerDay, &pol.BreakSpacingMinutes,
			&pol.ExcludeFromBilling)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, attendance.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	pol.Strategy = engine.Strategy(strategy)
	return &pol, nil
}

func (s *Store) SaveSystemPolicy(ctx context.Context, pol engine.BreakPolicy) error {
	return s.q.saveSystemPolicy(ctx, pol)
}

func (t *txStore) SaveSystemPolicy(ctx context.Context, pol engine.BreakPolicy) error {
	return t.q.saveSystemPolicy(ctx, pol)
}

func (q queries) saveSystemPolicy(ctx context.Context, pol engine.BreakPolicy) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO system_policy (id, `+policyColumns+`)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			arbzg_enabled = excluded.arbzg_enabled,
			strategy = excluded.strategy,
			lunch_start_hour = excluded.lunch_start_hour,
			lunch_start_minute = excluded.lunch_start_minute,
			lunch_end_hour = excluded.lunch_end_hour,
			lunch_end_minute = excluded.lunch_end_minute,
			prefer_consolidated = excluded.prefer_consolidated,
			min_break_minutes = excluded.min_break_minutes,
			max_breaks_per_day = excluded.max_breaks_per_day,
			break_spacing_minutes = excluded.break_spacing_minutes,
			exclude_from_billing = excluded.exclude_from_billing`,
		pol.ArbzgEnabled, string(pol.Strategy),
		pol.Lunch.StartHour, pol.Lunch.StartMinute,
		pol.Lunch.EndHour, pol.Lunch.EndMinute,
		pol.PreferConsolidated, pol.MinBreakMinutes,
		pol.MaxBreaksPerDay, pol.BreakSpacingMinutes,
		pol.ExcludeFromBilling)
	return err
}

func (s *Store) UserPolicy(ctx context.Context, userID int64) (*engine.PolicyOverride, error) {
	return s.q.userPolicy(ctx, userID)
}

func (t *txStore) UserPolicy(ctx context.Context, userID int64) (*engine.PolicyOverride, error) {
	return t.q.userPolicy(ctx, userID)
}

func (q queries) userPolicy(ctx context.Context, userID int64) (*engine.PolicyOverride, error) {
	var (
		ov       engine.PolicyOverride
		arbzg    sql.NullBool
		strategy sql.NullString
		lsh, lsm sql.NullInt64
		leh, lem sql.NullInt64
		cons     sql.NullBool
		minDur   sql.NullInt64
		maxBr    sql.NullInt64
		spacing  sql.NullInt64
		exclude  sql.NullBool
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT `+policyColumns+` FROM policy_overrides WHERE user_id = ?`, userID).
		Scan(&arbzg, &strategy, &lsh, &lsm, &leh, &lem, &cons, &minDur, &maxBr, &spacing, &exclude)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // no override is not an error
	}
	if err != nil {
		return nil, err
	}

	if arbzg.Valid {
		ov.ArbzgEnabled = &arbzg.Bool
	}
	if strategy.Valid {
		st := engine.Strategy(strategy.String)
		ov.Strategy = &st
	}
	if lsh.Valid && lsm.Valid && leh.Valid && lem.Valid {
		ov.Lunch = &engine.LunchWindow{
			StartHour:   int(lsh.Int64),
			StartMinute: int(lsm.Int64),
			EndHour:     int(leh.Int64),
			EndMinute:   int(lem.Int64),
		}
	}
	if cons.Valid {
		ov.PreferConsolidated = &cons.Bool
	}
	if minDur.Valid {
		v := int(minDur.Int64)
		ov.MinBreakMinutes = &v
	}
	if maxBr.Valid {
		v := int(maxBr.Int64)
		ov.MaxBreaksPerDay = &v
	}
	if spacing.Valid {
		v := int(spacing.Int64)
		ov.BreakSpacingMinutes = &v
	}
	if exclude.Valid {
		ov.ExcludeFromBilling = &exclude.Bool
	}
	return &ov, nil
}

func (s *Store) SaveUserPolicy(ctx context.Context, userID int64, ov engine.PolicyOverride) error {
	return s.q.saveUserPolicy(ctx, userID, ov)
}

func (t *txStore) SaveUserPolicy(ctx context.Context, userID int64, ov engine.PolicyOverride) error {
	return t.q.saveUserPolicy(ctx, userID, ov)
}

func (q queries) saveUserPolicy(ctx context.Context, userID int64, ov engine.PolicyOverride) error {
	var arbzg, strategy, lsh, lsm, leh, lem, cons, minDur, maxBr, spacing, exclude any
	if ov.ArbzgEnabled != nil {
		arbzg = *ov.ArbzgEnabled
	}
	if ov.Strategy != nil {
		strategy = string(*ov.Strategy)
	}
	if ov.Lunch != nil {
		lsh, lsm = ov.Lunch.StartHour, ov.Lunch.StartMinute
		leh, lem = ov.Lunch.EndHour, ov.Lunch.EndMinute
	}
	if ov.PreferConsolidated != nil {
		cons = *ov.PreferConsolidated
	}
	if ov.MinBreakMinutes != nil {
		minDur = *ov.MinBreakMinutes
	}
	if ov.MaxBreaksPerDay != nil {
		maxBr = *ov.MaxBreaksPerDay
	}
	if ov.BreakSpacingMinutes != nil {
		spacing = *ov.BreakSpacingMinutes
	}
	if ov.ExcludeFromBilling != nil {
		exclude = *ov.ExcludeFromBilling
	}

	_, err := q.db.ExecContext(ctx,
		`INSERT INTO policy_overrides (user_id, `+policyColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			arbzg_enabled = excluded.arbzg_enabled,
			strategy = excluded.strategy,
			lunch_start_hour = excluded.lunch_start_hour,
			lunch_start_minute = excluded.lunch_start_minute,
			lunch_end_hour = excluded.lunch_end_hour,
			lunch_end_minute = excluded.lunch_end_minute,
			prefer_consolidated = excluded.prefer_consolidated,
			min_break_minutes = excluded.min_break_minutes,
			max_breaks_per_day = excluded.max_breaks_per_day,
			break_spacing_minutes = excluded.break_spacing_minutes,
			exclude_from_billing = excluded.exclude_from_billing`,
		userID, arbzg, strategy, lsh, lsm, leh, lem, cons, minDur, maxBr, spacing, exclude)
	return err
}

func (s *Store) DeleteUserPolicy(ctx context.Context, userID int64) error {
	return s.q.deleteUserPolicy(ctx, userID)
}

func (t *txStore) DeleteUserPolicy(ctx context.Context, userID int64) error {
	return t.q.deleteUserPolicy(ctx, userID)
}

func (q queries) deleteUserPolicy(ctx context.Context, userID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM policy_overrides WHERE user_id = ?`, userID)
	return err
}

// =============================================================================
// ERASURE
// =============================================================================

func (s *Store) EraseUser(ctx context.Context, userID int64) error {
	return s.q.eraseUser(ctx, userID)
}

func (t *txStore) EraseUser(ctx context.Context, userID int64) error {
	return t.q.eraseUser(ctx, userID)
}

func (q queries) eraseUser(ctx context.Context, userID int64) error {
	// Intervals, breaks and overrides cascade from the user row.
	res, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return attendance.ErrNotFound
	}
	return nil
}
