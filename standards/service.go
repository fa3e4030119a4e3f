package standards

import (
	"context"

	"github.com/ehslabs/labledger/ledger"
)

// =============================================================================
// STANDARDS SERVICE - Domain wrapper over the ledger engine
// =============================================================================

type Service struct {
	ledger *ledger.Service
}

func NewService(l *ledger.Service) *Service {
	return &Service{ledger: l}
}

// PrepareStandard records a newly prepared standard batch; volume in mL.
func (s *Service) PrepareStandard(ctx context.Context, family Family, batchNumber, name string, attrs Attributes, volumeML float64, actor ledger.Actor) (ledger.Entity, error) {
	return s.ledger.Create(ctx, ledger.CreateRequest{
		Family:          family,
		Key:             batchNumber,
		Name:            name,
		Category:        attrs.StandardType,
		Attributes:      attrs.Map(),
		InitialQuantity: ledger.NewQuantity(volumeML, ledger.UnitMilliliters),
	}, actor)
}

// UseVolume draws from a standard (calibration run, spike, QC check).
func (s *Service) UseVolume(ctx context.Context, id ledger.EntityID, ml float64, reason, notes string, actor ledger.Actor) (ledger.QuantityChange, error) {
	delta := ledger.NewQuantity(ml, ledger.UnitMilliliters).Neg()
	return s.ledger.ChangeQuantity(ctx, id, delta, reason, notes, actor)
}

// UpdateDetails edits descriptive fields, e.g. recording the verified
// concentration after analysis.
func (s *Service) UpdateDetails(ctx context.Context, id ledger.EntityID, upd ledger.FieldUpdate, actor ledger.Actor) (ledger.Entity, []ledger.FieldChange, error) {
	return s.ledger.UpdateFields(ctx, id, upd, actor)
}

// Discard permanently retires a standard batch. Requires manager role.
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
