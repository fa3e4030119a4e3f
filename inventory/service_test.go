package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehslabs/labledger/inventory"
	"github.com/ehslabs/labledger/ledger"
	"github.com/ehslabs/labledger/ledger/store"
)

func newTestService() *inventory.Service {
	clock := ledger.NewManualClock(time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC))
	engine := ledger.NewService(store.NewTxMemory(), clock, zerolog.Nop())
	return inventory.NewService(engine)
}

var tech = ledger.Actor{ID: "tina", Role: ledger.RoleLabTech, Active: true}
var mgr = ledger.Actor{ID: "mark", Role: ledger.RoleManager, Active: true}

func TestRegisterLot_UsageAdoptsLotUnit(t *testing.T) {
	// GIVEN: A lot registered in grams
	// WHEN: Recording usage without naming a unit
	// THEN: The draw is applied in grams

	svc := newTestService()
	ctx := context.Background()

	lot, err := svc.RegisterLot(ctx, "LOT-88421", "Sodium hydroxide", "bases",
		inventory.Attributes{
			CASNumber:       "1310-73-2",
			StorageLocation: "Cabinet 3",
			HazardClass:     "corrosive",
		}, 500, ledger.UnitGrams, tech)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if lot.Attr(inventory.AttrCASNumber) != "1310-73-2" {
		t.Errorf("attributes not stored")
	}

	change, err := svc.RecordUsage(ctx, lot.ID, 25.5, "buffer prep", "", tech)
	if err != nil {
		t.Fatalf("usage failed: %v", err)
	}
	if change.New.Unit != ledger.UnitGrams {
		t.Errorf("expected unit g, got %q", change.New.Unit)
	}
	if !change.New.Equal(ledger.NewQuantity(474.5, ledger.UnitGrams)) {
		t.Errorf("expected 474.5 remaining, got %v", change.New.Value)
	}
}

func TestRecordUsage_CannotOverdrawLot(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	lot, err := svc.RegisterLot(ctx, "LOT-1", "Nitric acid 70%", "acids", inventory.Attributes{}, 100, ledger.UnitMilliliters, tech)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := svc.RecordUsage(ctx, lot.ID, 100.01, "overdraw", "", tech); !errors.Is(err, ledger.ErrInsufficientQuantity) {
		t.Fatalf("expected ErrInsufficientQuantity, got %v", err)
	}
}

func TestDuplicateLotNumberRejected(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.RegisterLot(ctx, "LOT-1", "Acetone", "solvents", inventory.Attributes{}, 1, ledger.UnitLiters, tech); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	_, err := svc.RegisterLot(ctx, "LOT-1", "Methanol", "solvents", inventory.Attributes{}, 1, ledger.UnitLiters, tech)
	if !errors.Is(err, ledger.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestDispose_RequiresManagerAndIsTerminal(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	lot, err := svc.RegisterLot(ctx, "LOT-1", "Old reagent", "misc", inventory.Attributes{}, 10, ledger.UnitGrams, tech)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.Dispose(ctx, lot.ID, "expired", tech); !errors.Is(err, ledger.ErrPermissionDenied) {
		t.Fatalf("lab_tech should not dispose, got %v", err)
	}
	if err := svc.Dispose(ctx, lot.ID, "expired", mgr); err != nil {
		t.Fatalf("dispose failed: %v", err)
	}
	if _, err := svc.Restock(ctx, lot.ID, 5, "late delivery", "", tech); !errors.Is(err, ledger.ErrEntityInactive) {
		t.Errorf("expected ErrEntityInactive, got %v", err)
	}

	entries, err := svc.History(ctx, lot.ID, 0, tech)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if entries[0].Kind != ledger.ActionDeactivated || entries[0].Reason != "expired" {
		t.Errorf("disposal should be logged with its reason, got %+v", entries[0])
	}
}
