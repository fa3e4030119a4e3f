package equipment

import (
	"context"

	"github.com/ehslabs/labledger/ledger"
)

// =============================================================================
// EQUIPMENT SERVICE - Domain wrapper over the ledger engine
// =============================================================================

type Service struct {
	ledger *ledger.Service
}

func NewService(l *ledger.Service) *Service {
	return &Service{ledger: l}
}

// RegisterInstrument records an instrument with its initial hours-until-
// service budget. The instrument tag (e.g. "ICP-01") is the human key.
func (s *Service) RegisterInstrument(ctx context.Context, family Family, tag, name string, attrs Attributes, hoursUntilService float64, actor ledger.Actor) (ledger.Entity, error) {
	return s.ledger.Create(ctx, ledger.CreateRequest{
		Family:          family,
		Key:             tag,
		Name:            name,
		Attributes:      attrs.Map(),
		InitialQuantity: ledger.NewQuantity(hoursUntilService, ledger.UnitHours),
	}, actor)
}

// LogRun consumes operating hours. An instrument that has exhausted its
// service budget rejects further runs until maintenance is recorded.
func (s *Service) LogRun(ctx context.Context, id ledger.EntityID, hours float64, reason, notes string, actor ledger.Actor) (ledger.QuantityChange, error) {
	delta := ledger.NewQuantity(hours, ledger.UnitHours).Neg()
	return s.ledger.ChangeQuantity(ctx, id, delta, reason, notes, actor)
}

// RecordService replenishes the hours budget after completed maintenance.
// Requires lab_tech or above per the lab's maintenance policy.
func (s *Service) RecordService(ctx context.Context, id ledger.EntityID, hours float64, workPerformed, notes string, actor ledger.Actor) (ledger.QuantityChange, error) {
	if err := ledger.Authorize(actor, ledger.RoleLabTech, "record_service"); err != nil {
		return ledger.QuantityChange{}, err
	}
	delta := ledger.NewQuantity(hours, ledger.UnitHours)
	return s.ledger.ChangeQuantity(ctx, id, delta, workPerformed, notes, actor)
}

// UpdateDetails edits descriptive fields (location, vendor, ...).
func (s *Service) UpdateDetails(ctx context.Context, id ledger.EntityID, upd ledger.FieldUpdate, actor ledger.Actor) (ledger.Entity, []ledger.FieldChange, error) {
	return s.ledger.UpdateFields(ctx, id, upd, actor)
}

// Retire permanently decommissions an instrument. Requires manager role.
func (s *Service) Retire(ctx context.Context, id ledger.EntityID, reason string, actor ledger.Actor) error {
	return s.ledger.Deactivate(ctx, id, reason, actor)
}

func (s *Service) Get(ctx context.Context, id ledger.EntityID, actor ledger.Actor) (ledger.Entity, error) {
	return s.ledger.Get(ctx, id, actor)
}

func (s *Service) List(ctx context.Context, family Family, includeRetired bool, actor ledger.Actor) ([]ledger.Entity, error) {
	return s.ledger.List(ctx, family, includeRetired, actor)
}

func (s *Service) History(ctx context.Context, id ledger.EntityID, limit int, actor ledger.Actor) ([]ledger.HistoryEntry, error) {
	return s.ledger.GetHistory(ctx, id, limit, actor)
}
