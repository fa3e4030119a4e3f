/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore using SQLite. In production
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on the history table
  - No DELETE statements on the history table
  - The entities table is the only row that is ever rewritten

KEY TABLES:
  entities: Current-state record per tracked resource instance
  history:  Immutable log of every mutation

INDEXES:
  - idx_entities_family_key (UNIQUE): human key uniqueness per family,
    the database-level backstop for ErrDuplicateKey
  - idx_history_entity_at: history queries (hot path)

CONCURRENCY:
  A sync.RWMutex serializes writers at the store level; the per-entity
  ordering guarantee lives above this layer, in the ledger service.
  SQLite is opened in WAL mode so readers don't block.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions and contracts
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ehslabs/labledger/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	// history carries both a stable id and an insertion sequence (seq) so
	// same-timestamp rows replay in write order.
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		family TEXT NOT NULL,
		human_key TEXT NOT NULL,
		name TEXT NOT NULL,
		category TEXT,
		attributes_json TEXT,
		quantity TEXT NOT NULL,
		unit TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_family_key
		ON entities(family, human_key);
	CREATE INDEX IF NOT EXISTS idx_entities_family_active
		ON entities(family, active, created_at DESC);

	CREATE TABLE IF NOT EXISTS history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		entity_id TEXT NOT NULL REFERENCES entities(id),
		family TEXT NOT NULL,
		kind TEXT NOT NULL,
		field TEXT,
		old_value TEXT,
		new_value TEXT,
		delta TEXT,
		remaining TEXT,
		unit TEXT,
		reason TEXT,
		notes TEXT,
		actor_id TEXT NOT NULL,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_entity_at
		ON history(entity_id, seq DESC);
	CREATE INDEX IF NOT EXISTS idx_history_kind
		ON history(kind);
	`

	_, err := s.db.Exec(schema)
	return err
}

// queryer is satisfied by both *sql.DB and *sql.Tx so the same helpers
// serve direct calls and transactional views. Reads inside WithTx must go
// through the *sql.Tx, never back through the store's mutex.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ENTITY STORE (ledger.Store interface)
// =============================================================================

func (s *Store) GetEntity(ctx context.Context, id ledger.EntityID) (ledger.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEntity(ctx, s.db, id)
}

func getEntity(ctx context.Context, q queryer, id ledger.EntityID) (ledger.Entity, error) {
	row := q.QueryRowContext(ctx, selectEntity+" WHERE id = ?", id)
	return scanEntity(row)
}

func (s *Store) GetEntityByKey(ctx context.Context, family ledger.Family, key string) (ledger.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEntityByKey(ctx, s.db, family, key)
}

func getEntityByKey(ctx context.Context, q queryer, family ledger.Family, key string) (ledger.Entity, error) {
	row := q.QueryRowContext(ctx, selectEntity+" WHERE family = ? AND human_key = ?",
		family.FamilyID(), key)
	return scanEntity(row)
}

func (s *Store) ListEntities(ctx context.Context, family ledger.Family, includeInactive bool) ([]ledger.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEntities(ctx, s.db, family, includeInactive)
}

func listEntities(ctx context.Context, q queryer, family ledger.Family, includeInactive bool) ([]ledger.Entity, error) {
	query := selectEntity + " WHERE family = ?"
	if !includeInactive {
		query += " AND active = TRUE"
	}
	query += " ORDER BY active DESC, created_at DESC"

	rows, err := q.QueryContext(ctx, query, family.FamilyID())
	if err != nil {
		return nil, storageErr("list entities", err)
	}
	defer rows.Close()

	var entities []ledger.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (s *Store) InsertEntity(ctx context.Context, e ledger.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertEntity(ctx, s.db, e)
}

func insertEntity(ctx context.Context, q queryer, e ledger.Entity) error {
	attrsJSON, _ := json.Marshal(e.Attributes)

	_, err := q.ExecContext(ctx, `
		INSERT INTO entities
		(id, family, human_key, name, category, attributes_json, quantity, unit,
		 active, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Family.FamilyID(),
		e.Key,
		e.Name,
		e.Category,
		string(attrsJSON),
		e.Quantity.Value.String(),
		e.Quantity.Unit,
		e.Active,
		e.CreatedBy,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
		e.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &ledger.DuplicateKeyError{Family: e.Family, Key: e.Key}
		}
		return storageErr("insert entity", err)
	}
	return nil
}

func (s *Store) UpdateEntity(ctx context.Context, e ledger.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateEntity(ctx, s.db, e)
}

func updateEntity(ctx context.Context, q queryer, e ledger.Entity) error {
	attrsJSON, _ := json.Marshal(e.Attributes)

	res, err := q.ExecContext(ctx, `
		UPDATE entities
		SET name = ?, category = ?, attributes_json = ?, quantity = ?, unit = ?,
		    active = ?, updated_at = ?
		WHERE id = ?`,
		e.Name,
		e.Category,
		string(attrsJSON),
		e.Quantity.Value.String(),
		e.Quantity.Unit,
		e.Active,
		e.UpdatedAt.UTC().Format(time.RFC3339Nano),
		e.ID,
	)
	if err != nil {
		return storageErr("update entity", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// =============================================================================
// HISTORY STORE - Append-only. No UPDATE, no DELETE.
// =============================================================================

func (s *Store) AppendHistory(ctx context.Context, entries ...ledger.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendHistory(ctx, s.db, entries...)
}

func appendHistory(ctx context.Context, q queryer, entries ...ledger.HistoryEntry) error {
	for _, entry := range entries {
		_, err := q.ExecContext(ctx, `
			INSERT INTO history
			(id, entity_id, family, kind, field, old_value, new_value,
			 delta, remaining, unit, reason, notes, actor_id, at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ID,
			entry.EntityID,
			entry.Family.FamilyID(),
			entry.Kind,
			entry.Field,
			entry.OldValue,
			entry.NewValue,
			entry.Delta.Value.String(),
			entry.Remaining.Value.String(),
			entry.Delta.Unit,
			entry.Reason,
			entry.Notes,
			entry.ActorID,
			entry.At.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return storageErr("append history", err)
		}
	}
	return nil
}

func (s *Store) History(ctx context.Context, id ledger.EntityID, limit int) ([]ledger.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryHistory(ctx, s.db, id, limit, false)
}

func (s *Store) HistoryAsc(ctx context.Context, id ledger.EntityID) ([]ledger.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryHistory(ctx, s.db, id, 0, true)
}

func queryHistory(ctx context.Context, q queryer, id ledger.EntityID, limit int, asc bool) ([]ledger.HistoryEntry, error) {
	query := `
		SELECT id, entity_id, family, kind, field, old_value, new_value,
		       delta, remaining, unit, reason, notes, actor_id, at
		FROM history
		WHERE entity_id = ?`
	if asc {
		query += " ORDER BY seq ASC"
	} else {
		query += " ORDER BY seq DESC"
	}
	args := []any{id}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query history", err)
	}
	defer rows.Close()

	var entries []ledger.HistoryEntry
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// =============================================================================
// ROW SCANNING
// =============================================================================

const selectEntity = `
	SELECT id, family, human_key, name, category, attributes_json,
	       quantity, unit, active, created_by, created_at, updated_at
	FROM entities`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (ledger.Entity, error) {
	var (
		e         ledger.Entity
		familyID  string
		category  sql.NullString
		attrsJSON sql.NullString
		quantity  string
		unit      string
		createdAt string
		updatedAt string
	)

	err := row.Scan(
		&e.ID, &familyID, &e.Key, &e.Name, &category, &attrsJSON,
		&quantity, &unit, &e.Active, &e.CreatedBy, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ledger.ErrNotFound
	}
	if err != nil {
		return e, storageErr("scan entity", err)
	}

	e.Family = ledger.GetOrCreateFamily(familyID)
	e.Category = category.String
	e.Quantity = ledger.Quantity{Value: ledger.MustParseDecimal(quantity), Unit: ledger.Unit(unit)}
	if attrsJSON.Valid && attrsJSON.String != "" {
		json.Unmarshal([]byte(attrsJSON.String), &e.Attributes)
	}
	if e.Attributes == nil {
		e.Attributes = map[string]string{}
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return e, nil
}

func scanHistory(row rowScanner) (ledger.HistoryEntry, error) {
	var (
		entry     ledger.HistoryEntry
		familyID  string
		field     sql.NullString
		oldValue  sql.NullString
		newValue  sql.NullString
		delta     sql.NullString
		remaining sql.NullString
		unit      sql.NullString
		reason    sql.NullString
		notes     sql.NullString
		at        string
	)

	err := row.Scan(
		&entry.ID, &entry.EntityID, &familyID, &entry.Kind,
		&field, &oldValue, &newValue, &delta, &remaining, &unit,
		&reason, &notes, &entry.ActorID, &at,
	)
	if err != nil {
		return entry, storageErr("scan history", err)
	}

	entry.Family = ledger.GetOrCreateFamily(familyID)
	entry.Field = field.String
	entry.OldValue = oldValue.String
	entry.NewValue = newValue.String
	u := ledger.Unit(unit.String)
	entry.Delta = ledger.Quantity{Value: ledger.MustParseDecimal(delta.String), Unit: u}
	entry.Remaining = ledger.Quantity{Value: ledger.MustParseDecimal(remaining.String), Unit: u}
	entry.Reason = reason.String
	entry.Notes = notes.String
	entry.At, _ = time.Parse(time.RFC3339Nano, at)
	return entry, nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The entity row and
// its history rows commit as one unit or not at all.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}
	return nil
}

// txStore routes every call through the open *sql.Tx. It must not touch
// the parent's mutex: WithTx already holds it.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetEntity(ctx context.Context, id ledger.EntityID) (ledger.Entity, error) {
	return getEntity(ctx, ts.tx, id)
}

func (ts *txStore) GetEntityByKey(ctx context.Context, family ledger.Family, key string) (ledger.Entity, error) {
	return getEntityByKey(ctx, ts.tx, family, key)
}

func (ts *txStore) ListEntities(ctx context.Context, family ledger.Family, includeInactive bool) ([]ledger.Entity, error) {
	return listEntities(ctx, ts.tx, family, includeInactive)
}

func (ts *txStore) InsertEntity(ctx context.Context, e ledger.Entity) error {
	return insertEntity(ctx, ts.tx, e)
}

func (ts *txStore) UpdateEntity(ctx context.Context, e ledger.Entity) error {
	return updateEntity(ctx, ts.tx, e)
}

func (ts *txStore) AppendHistory(ctx context.Context, entries ...ledger.HistoryEntry) error {
	return appendHistory(ctx, ts.tx, entries...)
}

func (ts *txStore) History(ctx context.Context, id ledger.EntityID, limit int) ([]ledger.HistoryEntry, error) {
	return queryHistory(ctx, ts.tx, id, limit, false)
}

func (ts *txStore) HistoryAsc(ctx context.Context, id ledger.EntityID) ([]ledger.HistoryEntry, error) {
	return queryHistory(ctx, ts.tx, id, 0, true)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isBusyError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "database is locked") ||
		strings.Contains(err.Error(), "SQLITE_BUSY"))
}

// storageErr wraps driver failures onto the ledger error taxonomy so
// callers can classify with errors.Is.
func storageErr(op string, err error) error {
	if isBusyError(err) {
		return fmt.Errorf("%s: %w: %v", op, ledger.ErrConcurrentModification, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ledger.ErrStorageFailure, err)
}
