/*
store.go - Persistence contracts for entities and history

PURPOSE:
  Defines the interface between the Service and the database. The Service
  is the only component that writes through these interfaces; nothing else
  in the repository touches an entity's quantity or its history directly.

CONTRACTUAL GUARANTEES the Service depends on:
  (a) The paired write in Create / UpdateFields / ChangeQuantity /
      Deactivate is atomic: either the entity row and its history rows are
      all durably written, or none are. That is what WithTx provides.
  (b) History rows, once committed, are never mutated or removed. The
      interface has no update or delete for history. Ever.

ERROR MAPPING:
  Implementations translate driver-level failures onto the sentinel errors
  in errors.go: key collisions onto ErrDuplicateKey, commit conflicts onto
  ErrConcurrentModification, anything else onto ErrStorageFailure.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory, for tests and dev
  - store/sqlite:           Production SQLite

SEE ALSO:
  - service.go: The sole writer
  - replay.go:  Reads history to verify the invariants
*/
package ledger

import "context"

// =============================================================================
// STORE - Entity reads/writes plus append-only history
// =============================================================================

type Store interface {
	// GetEntity returns the entity or ErrNotFound.
	GetEntity(ctx context.Context, id EntityID) (Entity, error)

	// GetEntityByKey looks up an entity by family + human key.
	GetEntityByKey(ctx context.Context, family Family, key string) (Entity, error)

	// ListEntities returns all entities of a family, active first,
	// newest first within each group.
	ListEntities(ctx context.Context, family Family, includeInactive bool) ([]Entity, error)

	// InsertEntity persists a new entity. Returns ErrDuplicateKey if the
	// human key is already used within the family.
	InsertEntity(ctx context.Context, e Entity) error

	// UpdateEntity overwrites the current-state row. The entity must exist.
	UpdateEntity(ctx context.Context, e Entity) error

	// AppendHistory appends entries to the log. Append-only: there is no
	// way to modify or remove a committed entry through this interface.
	AppendHistory(ctx context.Context, entries ...HistoryEntry) error

	// History returns up to limit entries for the entity, newest first.
	// limit <= 0 means no limit.
	History(ctx context.Context, id EntityID, limit int) ([]HistoryEntry, error)

	// HistoryAsc returns the full log oldest first, for replay.
	HistoryAsc(ctx context.Context, id EntityID) ([]HistoryEntry, error)
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic paired writes
// =============================================================================

// TxStore wraps Store with transaction support. The Service runs every
// mutation inside WithTx so the entity row and its history rows commit
// as one unit.
type TxStore interface {
	Store

	// WithTx executes fn against a transactional view of the store.
	// If fn returns an error the transaction is rolled back and no
	// partial state is left; otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
