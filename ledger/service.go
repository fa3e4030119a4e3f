/*
service.go - The ledger service (sole writer)

PURPOSE:
  The Service is the only component permitted to mutate an entity's
  quantity or active flag. It enforces the create-then-append invariant,
  rejects operations that would drive quantity negative, and is the
  concurrency boundary for the whole engine.

OPERATION PIPELINE (every mutation):
  1. Permission gate  - role check, before any lock or store access
  2. Input validation - ErrInvalidArgument before touching state
  3. Per-entity lock  - serializes the read-validate-write span
  4. WithTx           - entity row + history rows commit atomically

CONCURRENCY:
  ChangeQuantity is the one operation with a real race: two concurrent
  calls must not both read the same "current" value and independently
  decide they are valid. The per-entity lock makes all mutations on one
  entity linearizable; different entities proceed in parallel.

FAILED ATTEMPTS LEAVE NO TRACE:
  A rejected delta produces no history entry. A cancelled context before
  commit rolls the transaction back. The log records what happened, never
  what was attempted.

SEE ALSO:
  - actor.go:  The permission gate and role table
  - store.go:  The atomicity contract this file leans on
  - replay.go: Independent verification of the invariants
*/
package ledger

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store TxStore
	clock Clock
	log   zerolog.Logger
	locks *entityLocks

	// newID is swappable in tests for deterministic ids.
	newID func() string
}

// NewService wires the service with its storage handle and clock.
// Dependencies are explicit constructor arguments; the engine keeps no
// process-wide state.
func NewService(store TxStore, clock Clock, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		clock: clock,
		log:   log.With().Str("component", "ledger").Logger(),
		locks: newEntityLocks(),
		newID: uuid.NewString,
	}
}

// =============================================================================
// CREATE
// =============================================================================

// CreateRequest describes a new entity. Key must be unique within Family;
// InitialQuantity must be >= 0.
type CreateRequest struct {
	Family          Family
	Key             string
	Name            string
	Category        string
	Attributes      map[string]string
	InitialQuantity Quantity
}

// Create inserts the entity and its "created" history entry as a single
// atomic unit. The created entry's snapshot equals the initial quantity.
func (s *Service) Create(ctx context.Context, req CreateRequest, actor Actor) (Entity, error) {
	if err := Authorize(actor, MinCreate, "create"); err != nil {
		return Entity{}, err
	}
	if req.Family == nil || strings.TrimSpace(req.Key) == "" || strings.TrimSpace(req.Name) == "" {
		return Entity{}, ErrInvalidArgument
	}
	if req.InitialQuantity.IsNegative() {
		return Entity{}, ErrInvalidArgument
	}

	now := s.clock.Now()
	entity := Entity{
		ID:         EntityID(s.newID()),
		Family:     req.Family,
		Key:        strings.TrimSpace(req.Key),
		Name:       req.Name,
		Category:   req.Category,
		Attributes: cloneAttrs(req.Attributes),
		Quantity:   req.InitialQuantity,
		Active:     true,
		CreatedBy:  actor.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.store.WithTx(ctx, func(tx Store) error {
		if _, err := tx.GetEntityByKey(ctx, req.Family, entity.Key); err == nil {
			return &DuplicateKeyError{Family: req.Family, Key: entity.Key}
		} else if !IsNotFound(err) {
			return err
		}
		if err := tx.InsertEntity(ctx, entity); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, HistoryEntry{
			ID:        EntryID(s.newID()),
			EntityID:  entity.ID,
			Family:    entity.Family,
			Kind:      ActionCreated,
			Delta:     entity.Quantity,
			Remaining: entity.Quantity,
			ActorID:   actor.ID,
			At:        now,
		})
	})
	if err != nil {
		return Entity{}, err
	}

	s.log.Info().
		Str("entity_id", string(entity.ID)).
		Str("family", entity.Family.FamilyID()).
		Str("key", entity.Key).
		Str("actor", string(actor.ID)).
		Msg("entity created")
	return entity, nil
}

// =============================================================================
// UPDATE FIELDS
// =============================================================================

// FieldUpdate carries the fields a caller wants to set. Nil pointers mean
// "leave unchanged"; an explicit empty string clears the field. Quantity
// is deliberately absent: ChangeQuantity is the only path that touches it.
type FieldUpdate struct {
	Name       *string
	Category   *string
	Attributes map[string]*string
}

// UpdateFields diffs the update against the stored entity and writes one
// field_updated history entry per differing field, atomically with the
// updated entity row. Identical values are skipped; if nothing differs the
// entity is returned unchanged with an empty change list and no history
// is written.
func (s *Service) UpdateFields(ctx context.Context, id EntityID, upd FieldUpdate, actor Actor) (Entity, []FieldChange, error) {
	if err := Authorize(actor, MinUpdate, "update_fields"); err != nil {
		return Entity{}, nil, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	var entity Entity
	var changes []FieldChange
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		entity, err = tx.GetEntity(ctx, id)
		if err != nil {
			return err
		}
		if !entity.Active {
			return ErrEntityInactive
		}

		entity, changes = applyFieldUpdate(entity, upd)
		if len(changes) == 0 {
			return nil
		}

		now := s.clock.Now()
		entity.UpdatedAt = now
		if err := tx.UpdateEntity(ctx, entity); err != nil {
			return err
		}

		entries := make([]HistoryEntry, len(changes))
		for i, c := range changes {
			entries[i] = HistoryEntry{
				ID:       EntryID(s.newID()),
				EntityID: entity.ID,
				Family:   entity.Family,
				Kind:     ActionFieldUpdated,
				Field:    c.Field,
				OldValue: c.Old,
				NewValue: c.New,
				ActorID:  actor.ID,
				At:       now,
			}
		}
		return tx.AppendHistory(ctx, entries...)
	})
	if err != nil {
		return Entity{}, nil, err
	}

	if len(changes) > 0 {
		s.log.Info().
			Str("entity_id", string(id)).
			Int("fields_changed", len(changes)).
			Str("actor", string(actor.ID)).
			Msg("fields updated")
	}
	return entity, changes, nil
}

// applyFieldUpdate returns the mutated entity and the list of fields that
// actually differed. No-op fields never appear in the result.
func applyFieldUpdate(e Entity, upd FieldUpdate) (Entity, []FieldChange) {
	var changes []FieldChange

	if upd.Name != nil && *upd.Name != e.Name {
		changes = append(changes, FieldChange{Field: "name", Old: e.Name, New: *upd.Name})
		e.Name = *upd.Name
	}
	if upd.Category != nil && *upd.Category != e.Category {
		changes = append(changes, FieldChange{Field: "category", Old: e.Category, New: *upd.Category})
		e.Category = *upd.Category
	}
	if len(upd.Attributes) > 0 {
		attrs := cloneAttrs(e.Attributes)
		for field, val := range upd.Attributes {
			if val == nil {
				continue
			}
			if old := attrs[field]; old != *val {
				changes = append(changes, FieldChange{Field: field, Old: old, New: *val})
				attrs[field] = *val
			}
		}
		e.Attributes = attrs
	}
	return e, changes
}

// =============================================================================
// CHANGE QUANTITY
// =============================================================================

// QuantityChange reports the before/after of a successful delta.
type QuantityChange struct {
	Old Quantity
	New Quantity
}

// ChangeQuantity applies a signed delta to the entity's quantity. This is
// the sole path by which quantity is ever mutated. A delta that would
// drive the quantity negative aborts with InsufficientQuantityError and
// writes nothing: the log contains no record of failed attempts.
func (s *Service) ChangeQuantity(ctx context.Context, id EntityID, delta Quantity, reason, notes string, actor Actor) (QuantityChange, error) {
	if err := Authorize(actor, MinQuantity, "change_quantity"); err != nil {
		return QuantityChange{}, err
	}
	if delta.IsZero() {
		return QuantityChange{}, ErrInvalidArgument
	}

	unlock := s.locks.lock(id)
	defer unlock()

	var change QuantityChange
	err := s.store.WithTx(ctx, func(tx Store) error {
		entity, err := tx.GetEntity(ctx, id)
		if err != nil {
			return err
		}
		if !entity.Active {
			return ErrEntityInactive
		}

		if delta.Unit == "" {
			delta.Unit = entity.Quantity.Unit
		}
		old := entity.Quantity
		next := old.Add(delta)
		if next.IsNegative() {
			return &InsufficientQuantityError{
				EntityID:  id,
				Available: old,
				Requested: delta.Neg(),
			}
		}

		now := s.clock.Now()
		entity.Quantity = next
		entity.UpdatedAt = now
		if err := tx.UpdateEntity(ctx, entity); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, HistoryEntry{
			ID:        EntryID(s.newID()),
			EntityID:  entity.ID,
			Family:    entity.Family,
			Kind:      ActionQuantityChanged,
			Delta:     delta,
			Remaining: next,
			Reason:    reason,
			Notes:     notes,
			ActorID:   actor.ID,
			At:        now,
		}); err != nil {
			return err
		}

		change = QuantityChange{Old: old, New: next}
		return nil
	})
	if err != nil {
		return QuantityChange{}, err
	}

	s.log.Info().
		Str("entity_id", string(id)).
		Str("delta", delta.Value.String()).
		Str("remaining", change.New.Value.String()).
		Str("reason", reason).
		Str("actor", string(actor.ID)).
		Msg("quantity changed")
	return change, nil
}

// =============================================================================
// DEACTIVATE
// =============================================================================

// Deactivate flips the active flag and appends a deactivated entry.
// Terminal: there is no reactivation through this interface, and an
// inactive entity accepts no further mutation.
func (s *Service) Deactivate(ctx context.Context, id EntityID, reason string, actor Actor) error {
	if err := Authorize(actor, MinDeactivate, "deactivate"); err != nil {
		return err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	err := s.store.WithTx(ctx, func(tx Store) error {
		entity, err := tx.GetEntity(ctx, id)
		if err != nil {
			return err
		}
		if !entity.Active {
			return ErrEntityInactive
		}

		now := s.clock.Now()
		entity.Active = false
		entity.UpdatedAt = now
		if err := tx.UpdateEntity(ctx, entity); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, HistoryEntry{
			ID:       EntryID(s.newID()),
			EntityID: entity.ID,
			Family:   entity.Family,
			Kind:     ActionDeactivated,
			Reason:   reason,
			ActorID:  actor.ID,
			At:       now,
		})
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("entity_id", string(id)).
		Str("actor", string(actor.ID)).
		Msg("entity deactivated")
	return nil
}

// =============================================================================
// READS
// =============================================================================

func (s *Service) Get(ctx context.Context, id EntityID, actor Actor) (Entity, error) {
	if err := Authorize(actor, MinRead, "get"); err != nil {
		return Entity{}, err
	}
	return s.store.GetEntity(ctx, id)
}

func (s *Service) GetByKey(ctx context.Context, family Family, key string, actor Actor) (Entity, error) {
	if err := Authorize(actor, MinRead, "get_by_key"); err != nil {
		return Entity{}, err
	}
	return s.store.GetEntityByKey(ctx, family, key)
}

func (s *Service) List(ctx context.Context, family Family, includeInactive bool, actor Actor) ([]Entity, error) {
	if err := Authorize(actor, MinRead, "list"); err != nil {
		return nil, err
	}
	return s.store.ListEntities(ctx, family, includeInactive)
}

// GetHistory returns up to limit entries, newest first. Read-only and
// idempotent: two calls with no intervening mutation return identical
// results.
func (s *Service) GetHistory(ctx context.Context, id EntityID, limit int, actor Actor) ([]HistoryEntry, error) {
	if err := Authorize(actor, MinRead, "get_history"); err != nil {
		return nil, err
	}
	if _, err := s.store.GetEntity(ctx, id); err != nil {
		return nil, err
	}
	return s.store.History(ctx, id, limit)
}

// VerifyHistory replays the entity's full log and checks it against the
// current state. See replay.go for what is verified.
func (s *Service) VerifyHistory(ctx context.Context, id EntityID, actor Actor) error {
	if err := Authorize(actor, MinRead, "verify_history"); err != nil {
		return err
	}
	entity, err := s.store.GetEntity(ctx, id)
	if err != nil {
		return err
	}
	entries, err := s.store.HistoryAsc(ctx, id)
	if err != nil {
		return err
	}
	return Verify(entity, entries)
}

func cloneAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
