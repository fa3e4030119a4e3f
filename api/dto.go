/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupled from the internal
  domain model. Request types carry validation tags checked with
  go-playground/validator before any domain call.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/ehslabs/labledger/ledger"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateEntityRequest creates one tracked record (chemical lot, reagent
// batch, standard batch, instrument).
type CreateEntityRequest struct {
	Key             string            `json:"key" validate:"required"`
	Name            string            `json:"name" validate:"required"`
	Category        string            `json:"category"`
	Attributes      map[string]string `json:"attributes"`
	InitialQuantity float64           `json:"initial_quantity" validate:"gte=0"`
	Unit            string            `json:"unit" validate:"required"`
}

// UpdateEntityRequest edits descriptive fields. Absent fields are left
// unchanged; quantity is deliberately not editable here.
type UpdateEntityRequest struct {
	Name       *string            `json:"name,omitempty"`
	Category   *string            `json:"category,omitempty"`
	Attributes map[string]*string `json:"attributes,omitempty"`
}

// ChangeQuantityRequest applies a signed delta with a reason.
type ChangeQuantityRequest struct {
	Delta  float64 `json:"delta" validate:"required"`
	Reason string  `json:"reason" validate:"required"`
	Notes  string  `json:"notes"`
}

// DeactivateRequest retires a record permanently.
type DeactivateRequest struct {
	Reason string `json:"reason"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type EntityDTO struct {
	ID         string            `json:"id"`
	Family     string            `json:"family"`
	Key        string            `json:"key"`
	Name       string            `json:"name"`
	Category   string            `json:"category,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Quantity   float64           `json:"quantity"`
	Unit       string            `json:"unit"`
	Active     bool              `json:"active"`
	CreatedBy  string            `json:"created_by"`
	CreatedAt  string            `json:"created_at"`
	UpdatedAt  string            `json:"updated_at"`
}

type HistoryEntryDTO struct {
	ID        string  `json:"id"`
	EntityID  string  `json:"entity_id"`
	Kind      string  `json:"kind"`
	Field     string  `json:"field,omitempty"`
	OldValue  string  `json:"old_value,omitempty"`
	NewValue  string  `json:"new_value,omitempty"`
	Delta     float64 `json:"delta,omitempty"`
	Remaining float64 `json:"remaining,omitempty"`
	Reason    string  `json:"reason,omitempty"`
	Notes     string  `json:"notes,omitempty"`
	ActorID   string  `json:"actor_id"`
	At        string  `json:"at"`
}

type QuantityChangeDTO struct {
	OldQuantity float64 `json:"old_quantity"`
	NewQuantity float64 `json:"new_quantity"`
	Unit        string  `json:"unit"`
}

type UpdateResultDTO struct {
	Entity  EntityDTO `json:"entity"`
	Changed int       `json:"changed_fields"`
	NoOp    bool      `json:"no_changes"`
}

type FamilyDTO struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toEntityDTO(e ledger.Entity) EntityDTO {
	qty, _ := e.Quantity.Value.Float64()
	return EntityDTO{
		ID:         string(e.ID),
		Family:     e.Family.FamilyID(),
		Key:        e.Key,
		Name:       e.Name,
		Category:   e.Category,
		Attributes: e.Attributes,
		Quantity:   qty,
		Unit:       string(e.Quantity.Unit),
		Active:     e.Active,
		CreatedBy:  string(e.CreatedBy),
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  e.UpdatedAt.Format(time.RFC3339),
	}
}

func toHistoryDTO(h ledger.HistoryEntry) HistoryEntryDTO {
	delta, _ := h.Delta.Value.Float64()
	remaining, _ := h.Remaining.Value.Float64()
	return HistoryEntryDTO{
		ID:        string(h.ID),
		EntityID:  string(h.EntityID),
		Kind:      string(h.Kind),
		Field:     h.Field,
		OldValue:  h.OldValue,
		NewValue:  h.NewValue,
		Delta:     delta,
		Remaining: remaining,
		Reason:    h.Reason,
		Notes:     h.Notes,
		ActorID:   string(h.ActorID),
		At:        h.At.Format(time.RFC3339Nano),
	}
}
