// Package store provides in-memory Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ehslabs/labledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	entities map[ledger.EntityID]ledger.Entity
	byKey    map[familyKey]ledger.EntityID
	history  map[ledger.EntityID][]ledger.HistoryEntry
}

type familyKey struct {
	Family string
	Key    string
}

func NewMemory() *Memory {
	return &Memory{
		entities: make(map[ledger.EntityID]ledger.Entity),
		byKey:    make(map[familyKey]ledger.EntityID),
		history:  make(map[ledger.EntityID][]ledger.HistoryEntry),
	}
}

func (m *Memory) GetEntity(_ context.Context, id ledger.EntityID) (ledger.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id)
}

func (m *Memory) getLocked(id ledger.EntityID) (ledger.Entity, error) {
	e, ok := m.entities[id]
	if !ok {
		return ledger.Entity{}, ledger.ErrNotFound
	}
	return e, nil
}

func (m *Memory) GetEntityByKey(_ context.Context, family ledger.Family, key string) (ledger.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getByKeyLocked(family, key)
}

func (m *Memory) getByKeyLocked(family ledger.Family, key string) (ledger.Entity, error) {
	id, ok := m.byKey[familyKey{Family: family.FamilyID(), Key: key}]
	if !ok {
		return ledger.Entity{}, ledger.ErrNotFound
	}
	return m.getLocked(id)
}

func (m *Memory) ListEntities(_ context.Context, family ledger.Family, includeInactive bool) ([]ledger.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(family, includeInactive)
}

func (m *Memory) listLocked(family ledger.Family, includeInactive bool) ([]ledger.Entity, error) {
	var result []ledger.Entity
	for _, e := range m.entities {
		if e.Family.FamilyID() != family.FamilyID() {
			continue
		}
		if !e.Active && !includeInactive {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Active != result[j].Active {
			return result[i].Active
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) InsertEntity(_ context.Context, e ledger.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(e)
}

func (m *Memory) insertLocked(e ledger.Entity) error {
	fk := familyKey{Family: e.Family.FamilyID(), Key: e.Key}
	if _, exists := m.byKey[fk]; exists {
		return &ledger.DuplicateKeyError{Family: e.Family, Key: e.Key}
	}
	if _, exists := m.entities[e.ID]; exists {
		return &ledger.DuplicateKeyError{Family: e.Family, Key: e.Key}
	}
	m.entities[e.ID] = e
	m.byKey[fk] = e.ID
	return nil
}

func (m *Memory) UpdateEntity(_ context.Context, e ledger.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(e)
}

func (m *Memory) updateLocked(e ledger.Entity) error {
	if _, ok := m.entities[e.ID]; !ok {
		return ledger.ErrNotFound
	}
	m.entities[e.ID] = e
	return nil
}

// AppendHistory adds entries to the log. Append-only: nothing in this
// type ever rewrites or drops a committed entry.
func (m *Memory) AppendHistory(_ context.Context, entries ...ledger.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(entries...)
}

func (m *Memory) appendLocked(entries ...ledger.HistoryEntry) error {
	for _, entry := range entries {
		m.history[entry.EntityID] = append(m.history[entry.EntityID], entry)
	}
	return nil
}

func (m *Memory) History(_ context.Context, id ledger.EntityID, limit int) ([]ledger.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.historyLocked(id, limit)
}

func (m *Memory) historyLocked(id ledger.EntityID, limit int) ([]ledger.HistoryEntry, error) {
	entries := m.history[id]
	// Newest first.
	result := make([]ledger.HistoryEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		result = append(result, entries[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *Memory) HistoryAsc(_ context.Context, id ledger.EntityID) ([]ledger.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.history[id]
	result := make([]ledger.HistoryEntry, len(entries))
	copy(result, entries)
	return result, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction. For the memory store this is
// simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snap := tm.snapshot()
	view := &txMemoryView{parent: tm}

	if err := fn(view); err != nil {
		tm.restore(snap)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	entities := make(map[ledger.EntityID]ledger.Entity, len(tm.entities))
	for k, v := range tm.entities {
		entities[k] = v
	}
	byKey := make(map[familyKey]ledger.EntityID, len(tm.byKey))
	for k, v := range tm.byKey {
		byKey[k] = v
	}
	history := make(map[ledger.EntityID][]ledger.HistoryEntry, len(tm.history))
	for k, v := range tm.history {
		history[k] = append([]ledger.HistoryEntry{}, v...)
	}
	return memorySnapshot{entities: entities, byKey: byKey, history: history}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.entities = s.entities
	tm.byKey = s.byKey
	tm.history = s.history
}

type memorySnapshot struct {
	entities map[ledger.EntityID]ledger.Entity
	byKey    map[familyKey]ledger.EntityID
	history  map[ledger.EntityID][]ledger.HistoryEntry
}

// txMemoryView operates on the parent's maps directly while the parent's
// lock is held; rollback is the parent restoring its snapshot.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) GetEntity(_ context.Context, id ledger.EntityID) (ledger.Entity, error) {
	return tv.parent.getLocked(id)
}

func (tv *txMemoryView) GetEntityByKey(_ context.Context, family ledger.Family, key string) (ledger.Entity, error) {
	return tv.parent.getByKeyLocked(family, key)
}

func (tv *txMemoryView) ListEntities(_ context.Context, family ledger.Family, includeInactive bool) ([]ledger.Entity, error) {
	return tv.parent.listLocked(family, includeInactive)
}

func (tv *txMemoryView) InsertEntity(_ context.Context, e ledger.Entity) error {
	return tv.parent.insertLocked(e)
}

func (tv *txMemoryView) UpdateEntity(_ context.Context, e ledger.Entity) error {
	return tv.parent.updateLocked(e)
}

func (tv *txMemoryView) AppendHistory(_ context.Context, entries ...ledger.HistoryEntry) error {
	return tv.parent.appendLocked(entries...)
}

func (tv *txMemoryView) History(_ context.Context, id ledger.EntityID, limit int) ([]ledger.HistoryEntry, error) {
	return tv.parent.historyLocked(id, limit)
}

func (tv *txMemoryView) HistoryAsc(_ context.Context, id ledger.EntityID) ([]ledger.HistoryEntry, error) {
	entries := tv.parent.history[id]
	result := make([]ledger.HistoryEntry, len(entries))
	copy(result, entries)
	return result, nil
}
