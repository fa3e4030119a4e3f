package reagents

import (
	"context"

	"github.com/ehslabs/labledger/ledger"
)

// =============================================================================
// REAGENT SERVICE - Domain wrapper over the ledger engine
// =============================================================================

// Service exposes reagent-flavored operations. All invariants (atomic
// paired writes, non-negative volume, append-only history, role gating)
// come from the underlying ledger service; this wrapper only names things
// the way the lab does.
type Service struct {
	ledger *ledger.Service
}

func NewService(l *ledger.Service) *Service {
	return &Service{ledger: l}
}

// PrepareBatch records a newly prepared reagent batch. The batch number
// must be unique within its family; initial volume is in mL.
func (s *Service) PrepareBatch(ctx context.Context, family Family, batchNumber, name string, attrs Attributes, volumeML float64, actor ledger.Actor) (ledger.Entity, error) {
	return s.ledger.Create(ctx, ledger.CreateRequest{
		Family:          family,
		Key:             batchNumber,
		Name:            name,
		Attributes:      attrs.Map(),
		InitialQuantity: ledger.NewQuantity(volumeML, ledger.UnitMilliliters),
	}, actor)
}

// UseVolume draws volume from a batch. Fails with ErrInsufficientQuantity
// if more is drawn than remains.
func (s *Service) UseVolume(ctx context.Context, id ledger.EntityID, ml float64, reason, notes string, actor ledger.Actor) (ledger.QuantityChange, error) {
	delta := ledger.NewQuantity(ml, ledger.UnitMilliliters).Neg()
	return s.ledger.ChangeQuantity(ctx, id, delta, reason, notes, actor)
}

// AddVolume tops a batch up (e.g. combining partial preparations).
func (s *Service) AddVolume(ctx context.Context, id ledger.EntityID, ml float64, reason, notes string, actor ledger.Actor) (ledger.QuantityChange, error) {
	delta := ledger.NewQuantity(ml, ledger.UnitMilliliters)
	return s.ledger.ChangeQuantity(ctx, id, delta, reason, notes, actor)
}

// UpdateDetails edits descriptive fields. Unchanged fields are skipped and
// never pollute the history.
func (s *Service) UpdateDetails(ctx context.Context, id ledger.EntityID, upd ledger.FieldUpdate, actor ledger.Actor) (ledger.Entity, []ledger.FieldChange, error) {
	return s.ledger.UpdateFields(ctx, id, upd, actor)
}

// Discard permanently retires a batch (expired, contaminated, consumed).
// Requires manager role; the batch and its history remain readable.
func (s *Service) Discard(ctx context.Context, id ledger.EntityID, reason string, actor ledger.Actor) error {
	return s.ledger.Deactivate(ctx, id, reason, actor)
}

func (s *Service) Get(ctx context.Context, id ledger.EntityID, actor ledger.Actor) (ledger.Entity, error) {
	return s.ledger.Get(ctx, id, actor)
}

func (s *Service) List(ctx context.Context, family Family, includeDiscarded bool, actor ledger.Actor) ([]ledger.Entity, error) {
	return s.ledger.List(ctx, family, includeDiscarded, actor)
}

func (s *Service) History(ctx context.Context, id ledger.EntityID, limit int, actor ledger.Actor) ([]ledger.HistoryEntry, error) {
	return s.ledger.GetHistory(ctx, id, limit, actor)
}
