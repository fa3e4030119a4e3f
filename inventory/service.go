package inventory

import (
	"context"

	"github.com/ehslabs/labledger/ledger"
)

// =============================================================================
// INVENTORY SERVICE - Domain wrapper over the ledger engine
// =============================================================================

type Service struct {
	ledger *ledger.Service
}

func NewService(l *ledger.Service) *Service {
	return &Service{ledger: l}
}

// RegisterLot records a received chemical lot. Lot number is the human
// key, unique across the chemical inventory.
func (s *Service) RegisterLot(ctx context.Context, lotNumber, chemicalName, category string, attrs Attributes, quantity float64, unit ledger.Unit, actor ledger.Actor) (ledger.Entity, error) {
	return s.ledger.Create(ctx, ledger.CreateRequest{
		Family:          FamilyChemicals,
		Key:             lotNumber,
		Name:            chemicalName,
		Category:        category,
		Attributes:      attrs.Map(),
		InitialQuantity: ledger.NewQuantity(quantity, unit),
	}, actor)
}

// RecordUsage draws stock from a lot. The delta adopts the lot's own
// unit, so callers don't repeat it on every draw.
func (s *Service) RecordUsage(ctx context.Context, id ledger.EntityID, amount float64, reason, notes string, actor ledger.Actor) (ledger.QuantityChange, error) {
	return s.ledger.ChangeQuantity(ctx, id, ledger.NewQuantity(amount, "").Neg(), reason, notes, actor)
}

// Restock adds received stock to a lot.
func (s *Service) Restock(ctx context.Context, id ledger.EntityID, amount float64, reason, notes string, actor ledger.Actor) (ledger.QuantityChange, error) {
	return s.ledger.ChangeQuantity(ctx, id, ledger.NewQuantity(amount, ""), reason, notes, actor)
}

// UpdateDetails edits descriptive fields (location, hazard class, ...).
func (s *Service) UpdateDetails(ctx context.Context, id ledger.EntityID, upd ledger.FieldUpdate, actor ledger.Actor) (ledger.Entity, []ledger.FieldChange, error) {
	return s.ledger.UpdateFields(ctx, id, upd, actor)
}

// Dispose permanently retires a lot. Requires manager role.
func (s *Service) Dispose(ctx context.Context, id ledger.EntityID, reason string, actor ledger.Actor) error {
	return s.ledger.Deactivate(ctx, id, reason, actor)
}

func (s *Service) Get(ctx context.Context, id ledger.EntityID, actor ledger.Actor) (ledger.Entity, error) {
	return s.ledger.Get(ctx, id, actor)
}

func (s *Service) List(ctx context.Context, includeDisposed bool, actor ledger.Actor) ([]ledger.Entity, error) {
	return s.ledger.List(ctx, FamilyChemicals, includeDisposed, actor)
}

func (s *Service) History(ctx context.Context, id ledger.EntityID, limit int, actor ledger.Actor) ([]ledger.HistoryEntry, error) {
	return s.ledger.GetHistory(ctx, id, limit, actor)
}
