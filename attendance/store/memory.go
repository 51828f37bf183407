// Package store provides an in-memory attendance.TxStore for tests and
// development. Transactions are simulated with a snapshot taken before the
// function runs and restored on error, mirroring commit/rollback.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	data *tables
}

type tables struct {
	users        map[int64]attendance.User
	records      map[int64]attendance.Record
	breaks       map[int64]engine.BreakInterval
	userPolicies map[int64]engine.PolicyOverride
	systemPolicy *engine.BreakPolicy

	nextUserID   int64
	nextRecordID int64
	nextBreakID  int64
}

func NewMemory() *Memory {
	return &Memory{data: newTables()}
}

func newTables() *tables {
	return &tables{
		users:        make(map[int64]attendance.User),
		records:      make(map[int64]attendance.Record),
		breaks:       make(map[int64]engine.BreakInterval),
		userPolicies: make(map[int64]engine.PolicyOverride),
		nextUserID:   1,
		nextRecordID: 1,
		nextBreakID:  1,
	}
}

var _ attendance.TxStore = (*Memory)(nil)

// =============================================================================
// USERS
// =============================================================================

func (m *Memory) CreateUser(_ context.Context, u *attendance.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.createUser(u)
}

func (t *tables) createUser(u *attendance.User) error {
	if u.ID == 0 {
		u.ID = t.nextUserID
		t.nextUserID++
	} else if u.ID >= t.nextUserID {
		t.nextUserID = u.ID + 1
	}
	t.users[u.ID] = *u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id int64) (*attendance.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getUser(id)
}

func (t *tables) getUser(id int64) (*attendance.User, error) {
	u, ok := t.users[id]
	if !ok {
		return nil, attendance.ErrNotFound
	}
	return &u, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]attendance.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.listUsers()
}

func (t *tables) listUsers() ([]attendance.User, error) {
	out := make([]attendance.User, 0, len(t.users))
	for _, u := range t.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// RECORDS
// =============================================================================

func (m *Memory) CreateRecord(_ context.Context, rec *attendance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.createRecord(rec)
}

func (t *tables) createRecord(rec *attendance.Record) error {
	rec.ID = t.nextRecordID
	t.nextRecordID++
	t.records[rec.ID] = *rec
	return nil
}

func (m *Memory) GetRecord(_ context.Context, id int64) (*attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getRecord(id)
}

func (t *tables) getRecord(id int64) (*attendance.Record, error) {
	rec, ok := t.records[id]
	if !ok {
		return nil, attendance.ErrNotFound
	}
	return &rec, nil
}

func (m *Memory) UpdateRecord(_ context.Context, rec *attendance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.updateRecord(rec)
}

func (t *tables) updateRecord(rec *attendance.Record) error {
	if _, ok := t.records[rec.ID]; !ok {
		return attendance.ErrNotFound
	}
	t.records[rec.ID] = *rec
	return nil
}

func (m *Memory) ListRecords(_ context.Context, userID int64, rng attendance.DateRange) ([]attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.listRecords(userID, rng)
}

func (t *tables) listRecords(userID int64, rng attendance.DateRange) ([]attendance.Record, error) {
	var out []attendance.Record
	for _, rec := range t.records {
		if rec.UserID == userID && rng.Contains(rec.Start) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *Memory) OpenRecord(_ context.Context, userID int64) (*attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.openRecord(userID)
}

func (t *tables) openRecord(userID int64) (*attendance.Record, error) {
	for _, rec := range t.records {
		if rec.UserID == userID && rec.End == nil {
			r := rec
			return &r, nil
		}
	}
	return nil, attendance.ErrNotFound
}

// =============================================================================
// BREAKS
// =============================================================================

func (m *Memory) InsertBreaks(_ context.Context, intervalID int64, drafts []engine.BreakDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.insertBreaks(intervalID, drafts)
}

func (t *tables) insertBreaks(intervalID int64, drafts []engine.BreakDraft) error {
	if _, ok := t.records[intervalID]; !ok {
		return attendance.ErrNotFound
	}
	for _, d := range drafts {
		b := engine.BreakInterval{
			ID:                  t.nextBreakID,
			WorkIntervalID:      intervalID,
			Start:               d.Start,
			End:                 d.End,
			Minutes:             d.Minutes,
			ExcludedFromBilling: d.ExcludedFromBilling,
			AutoDetected:        d.AutoDetected,
			Origin:              d.Origin,
			Description:         d.Description,
		}
		t.breaks[b.ID] = b
		t.nextBreakID++
	}
	return nil
}

func (m *Memory) DeleteBreaks(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.deleteBreaks(ids)
}

func (t *tables) deleteBreaks(ids []int64) error {
	for _, id := range ids {
		delete(t.breaks, id)
	}
	return nil
}

func (m *Memory) GetBreak(_ context.Context, id int64) (*engine.BreakInterval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getBreak(id)
}

func (t *tables) getBreak(id int64) (*engine.BreakInterval, error) {
	b, ok := t.breaks[id]
	if !ok {
		return nil, attendance.ErrNotFound
	}
	return &b, nil
}

func (m *Memory) ListBreaks(_ context.Context, intervalID int64) ([]engine.BreakInterval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.listBreaks(intervalID)
}

func (t *tables) listBreaks(intervalID int64) ([]engine.BreakInterval, error) {
	var out []engine.BreakInterval
	for _, b := range t.breaks {
		if b.WorkIntervalID == intervalID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// =============================================================================
// POLICY
// =============================================================================

func (m *Memory) SystemPolicy(_ context.Context) (*engine.BreakPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getSystemPolicy()
}

func (t *tables) getSystemPolicy() (*engine.BreakPolicy, error) {
	if t.systemPolicy == nil {
		return nil, attendance.ErrNotFound
	}
	pol := *t.systemPolicy
	return &pol, nil
}

func (m *Memory) SaveSystemPolicy(_ context.Context, pol engine.BreakPolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.systemPolicy = &pol
	return nil
}

func (m *Memory) UserPolicy(_ context.Context, userID int64) (*engine.PolicyOverride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getUserPolicy(userID)
}

func (t *tables) getUserPolicy(userID int64) (*engine.PolicyOverride, error) {
	ov, ok := t.userPolicies[userID]
	if !ok {
		return nil, nil
	}
	o := ov
	return &o, nil
}

func (m *Memory) SaveUserPolicy(_ context.Context, userID int64, ov engine.PolicyOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.userPolicies[userID] = ov
	return nil
}

func (m *Memory) DeleteUserPolicy(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data.userPolicies, userID)
	return nil
}

// =============================================================================
// GDPR ERASURE
// =============================================================================

func (m *Memory) EraseUser(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.eraseUser(userID)
}

func (t *tables) eraseUser(userID int64) error {
	if _, ok := t.users[userID]; !ok {
		return attendance.ErrNotFound
	}
	for id, rec := range t.records {
		if rec.UserID != userID {
			continue
		}
		for bid, b := range t.breaks {
			if b.WorkIntervalID == id {
				delete(t.breaks, bid)
			}
		}
		delete(t.records, id)
	}
	delete(t.userPolicies, userID)
	delete(t.users, userID)
	return nil
}

// =============================================================================
// TRANSACTIONS - Snapshot and restore
// =============================================================================

// WithTx runs fn against an unlocked view while the store lock is held.
// On error the pre-transaction snapshot is restored.
func (m *Memory) WithTx(_ context.Context, fn func(attendance.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(&txView{data: m.data}); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.records {
		c.records[k] = v
	}
	for k, v := range t.breaks {
		c.breaks[k] = v
	}
	for k, v := range t.userPolicies {
		c.userPolicies[k] = v
	}
	if t.systemPolicy != nil {
		pol := *t.systemPolicy
		c.systemPolicy = &pol
	}
	c.nextUserID = t.nextUserID
	c.nextRecordID = t.nextRecordID
	c.nextBreakID = t.nextBreakID
	return c
}

// txView delegates to the already-locked tables.
type txView struct {
	data *tables
}

var _ attendance.Store = (*txView)(nil)

func (v *txView) CreateUser(_ context.Context, u *attendance.User) error { return v.data.createUser(u) }
func (v *txView) GetUser(_ context.Context, id int64) (*attendance.User, error) {
	return v.data.getUser(id)
}
func (v *txView) ListUsers(_ context.Context) ([]attendance.User, error) { return v.data.listUsers() }

func (v *txView) CreateRecord(_ context.Context, rec *attendance.Record) error {
	return v.data.createRecord(rec)
}
func (v *txView) GetRecord(_ context.Context, id int64) (*attendance.Record, error) {
	return v.data.getRecord(id)
}
func (v *txView) UpdateRecord(_ context.Context, rec *attendance.Record) error {
	return v.data.updateRecord(rec)
}
func (v *txView) ListRecords(_ context.Context, userID int64, rng attendance.DateRange) ([]attendance.Record, error) {
	return v.data.listRecords(userID, rng)
}
func (v *txView) OpenRecord(_ context.Context, userID int64) (*attendance.Record, error) {
	return v.data.openRecord(userID)
}

func (v *txView) InsertBreaks(_ context.Context, intervalID int64, drafts []engine.BreakDraft) error {
	return v.data.insertBreaks(intervalID, drafts)
}
func (v *txView) DeleteBreaks(_ context.Context, ids []int64) error { return v.data.deleteBreaks(ids) }
func (v *txView) GetBreak(_ context.Context, id int64) (*engine.BreakInterval, error) {
	return v.data.getBreak(id)
}
func (v *txView) ListBreaks(_ context.Context, intervalID int64) ([]engine.BreakInterval, error) {
	return v.data.listBreaks(intervalID)
}

func (v *txView) SystemPolicy(_ context.Context) (*engine.BreakPolicy, error) {
	return v.data.getSystemPolicy()
}
func (v *txView) SaveSystemPolicy(_ context.Context, pol engine.BreakPolicy) error {
	v.data.systemPolicy = &pol
	return nil
}
func (v *txView) UserPolicy(_ context.Context, userID int64) (*engine.PolicyOverride, error) {
	return v.data.getUserPolicy(userID)
}
func (v *txView) SaveUserPolicy(_ context.Context, userID int64, ov engine.PolicyOverride) error {
	v.data.userPolicies[userID] = ov
	return nil
}
func (v *txView) DeleteUserPolicy(_ context.Context, userID int64) error {
	delete(v.data.userPolicies, userID)
	return nil
}

func (v *txView) EraseUser(_ context.Context, userID int64) error { return v.data.eraseUser(userID) }
