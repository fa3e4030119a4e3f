/*
Package ledger provides the core record-keeping engine.

PURPOSE:
  This package contains the domain-agnostic types and algorithms for keeping
  a current-state record consistent with an append-only history of every
  change made to it. Whether the record is a chemical lot, a prepared
  reagent batch, a calibration standard, or an instrument service record,
  the same engine handles quantity tracking, field-change auditing, and
  role-gated mutation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Quantity: A non-negative magnitude with a unit (e.g. 500 ml, 2 kg)
  - Entity: The current-state record for one tracked resource instance
  - HistoryEntry: An immutable log row recording one state transition
  - Family: Type-safe identifier for a resource family

DESIGN PRINCIPLES:
  1. Immutability: History entries are never modified or deleted
  2. Precision: Uses decimal.Decimal to avoid floating-point drift
  3. Single writer: Quantity is mutated only through the Service
  4. Auditability: Every change carries actor, reason, and a snapshot

SEE ALSO:
  - service.go: The only component permitted to mutate an Entity
  - store.go: Persistence contracts the Service depends on
  - replay.go: Verifies history against the current state
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// QUANTITY - Magnitude with unit
// =============================================================================

type Quantity struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitMilliliters Unit = "ml"
	UnitLiters      Unit = "L"
	UnitGrams       Unit = "g"
	UnitKilograms   Unit = "kg"
	UnitCount       Unit = "count"
	UnitHours       Unit = "hours"
)

func NewQuantity(value float64, unit Unit) Quantity {
	return Quantity{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewQuantityFromInt(value int, unit Unit) Quantity {
	return Quantity{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (q Quantity) Zero() Quantity          { return Quantity{Value: decimal.Zero, Unit: q.Unit} }
func (q Quantity) Add(o Quantity) Quantity { return Quantity{Value: q.Value.Add(o.Value), Unit: q.Unit} }
func (q Quantity) Sub(o Quantity) Quantity { return Quantity{Value: q.Value.Sub(o.Value), Unit: q.Unit} }
func (q Quantity) Neg() Quantity           { return Quantity{Value: q.Value.Neg(), Unit: q.Unit} }
func (q Quantity) IsNegative() bool        { return q.Value.IsNegative() }
func (q Quantity) IsZero() bool            { return q.Value.IsZero() }
func (q Quantity) IsPositive() bool        { return q.Value.IsPositive() }
func (q Quantity) Equal(o Quantity) bool   { return q.Value.Equal(o.Value) }
func (q Quantity) String() string          { return q.Value.String() + " " + string(q.Unit) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntityID string
type ActorID string
type EntryID string

// Family identifies which resource family an entity belongs to.
// This is an interface so domain packages define their own concrete types.
// The ledger package has NO knowledge of specific families.
//
// Domain packages implement this:
//
//	// In reagents/types.go
//	type Family string
//	func (f Family) FamilyID() string     { return string(f) }
//	func (f Family) FamilyDomain() string { return "reagents" }
//	const FamilyMM Family = "mm_reagents"
type Family interface {
	// FamilyID returns the unique identifier for this resource family.
	FamilyID() string

	// FamilyDomain returns which domain this family belongs to.
	FamilyDomain() string
}

// =============================================================================
// ENTITY - Current-state record for one tracked resource instance
// =============================================================================

// Entity is the denormalized current state of one tracked resource
// (one chemical lot, one reagent batch, one instrument record).
//
// INVARIANTS (enforced by Service, verifiable via replay.go):
//   - Quantity is never negative
//   - Quantity equals the snapshot on the newest quantity-bearing history row
//   - Once Active is false, no further mutation is accepted
type Entity struct {
	ID     EntityID
	Family Family

	// Key is the human identifier (batch/lot number), unique within Family.
	Key      string
	Name     string
	Category string

	// Attributes carries family-specific descriptive fields
	// (preparation method, storage location, hazard class, ...).
	// Each edit is diffed field-by-field and logged.
	Attributes map[string]string

	Quantity Quantity
	Active   bool

	CreatedBy ActorID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attr returns the named attribute or "".
func (e *Entity) Attr(name string) string { return e.Attributes[name] }

// =============================================================================
// HISTORY ENTRY - Immutable record of one state transition
// =============================================================================

type ActionKind string

const (
	ActionCreated         ActionKind = "created"
	ActionFieldUpdated    ActionKind = "field_updated"
	ActionQuantityChanged ActionKind = "quantity_changed"
	ActionDeactivated     ActionKind = "deactivated"
)

// HistoryEntry records exactly one mutation of one Entity.
// Rows are append-only: never edited, never deleted.
type HistoryEntry struct {
	ID       EntryID
	EntityID EntityID
	Family   Family
	Kind     ActionKind

	// For ActionFieldUpdated: which field changed and both values as text.
	Field    string
	OldValue string
	NewValue string

	// For ActionQuantityChanged and ActionCreated: the signed delta and the
	// resulting quantity snapshot. Created entries carry delta == snapshot.
	Delta     Quantity
	Remaining Quantity

	Reason string
	Notes  string

	ActorID ActorID
	At      time.Time
}

// =============================================================================
// FIELD CHANGE - Diff between a stored entity and an update request
// =============================================================================

// FieldChange is one differing field detected by UpdateFields.
// Unchanged fields never produce a FieldChange and never reach the history.
type FieldChange struct {
	Field string
	Old   string
	New   string
}
