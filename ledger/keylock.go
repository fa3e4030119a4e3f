package ledger

import "sync"

// =============================================================================
// ENTITY LOCKS - Per-entity serialization
// =============================================================================

// entityLocks serializes mutating operations per entity id. The lock is
// held for the whole read-validate-write span so two concurrent quantity
// changes can never both observe the same "current" value. Different
// entities proceed in parallel; there is no cross-entity ordering.
//
// Locks are created on first use and never reclaimed. The set of live
// entities in one process is small enough that reclamation isn't worth
// the bookkeeping.
type entityLocks struct {
	mu    sync.Mutex
	locks map[EntityID]*sync.Mutex
}

func newEntityLocks() *entityLocks {
	return &entityLocks{locks: make(map[EntityID]*sync.Mutex)}
}

// lock acquires the mutex for id and returns its unlock function.
func (el *entityLocks) lock(id EntityID) func() {
	el.mu.Lock()
	m, ok := el.locks[id]
	if !ok {
		m = &sync.Mutex{}
		el.locks[id] = m
	}
	el.mu.Unlock()

	m.Lock()
	return m.Unlock
}
