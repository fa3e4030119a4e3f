package equipment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehslabs/labledger/equipment"
	"github.com/ehslabs/labledger/ledger"
	"github.com/ehslabs/labledger/ledger/store"
)

func newTestService() *equipment.Service {
	clock := ledger.NewManualClock(time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC))
	engine := ledger.NewService(store.NewTxMemory(), clock, zerolog.Nop())
	return equipment.NewService(engine)
}

var (
	user = ledger.Actor{ID: "uma", Role: ledger.RoleUser, Active: true}
	tech = ledger.Actor{ID: "tina", Role: ledger.RoleLabTech, Active: true}
	mgr  = ledger.Actor{ID: "mark", Role: ledger.RoleManager, Active: true}
)

func TestLogRun_ConsumesServiceBudget(t *testing.T) {
	// GIVEN: An instrument with 500 hours until scheduled service
	// WHEN: Logging runs
	// THEN: The budget draws down; exhausting it blocks further runs

	svc := newTestService()
	ctx := context.Background()

	inst, err := svc.RegisterInstrument(ctx, equipment.FamilyICPOES, "ICP-01", "ICP-OES spectrometer",
		equipment.Attributes{Model: "Optima 8300", SerialNumber: "SN-4471", Location: "Room 112"},
		500, tech)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	change, err := svc.LogRun(ctx, inst.ID, 8.5, "metals sequence 2025-03-01", "", tech)
	if err != nil {
		t.Fatalf("log run failed: %v", err)
	}
	if !change.New.Equal(ledger.NewQuantity(491.5, ledger.UnitHours)) {
		t.Errorf("expected 491.5 hours left, got %v", change.New.Value)
	}

	if _, err := svc.LogRun(ctx, inst.ID, 1000, "impossible run", "", tech); !errors.Is(err, ledger.ErrInsufficientQuantity) {
		t.Fatalf("exhausted budget should reject runs, got %v", err)
	}
}

func TestRecordService_RequiresLabTech(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	inst, err := svc.RegisterInstrument(ctx, equipment.FamilyHgAnalyzer, "HG-01", "Mercury analyzer",
		equipment.Attributes{}, 10, tech)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.RecordService(ctx, inst.ID, 200, "lamp replacement", "", user); !errors.Is(err, ledger.ErrPermissionDenied) {
		t.Fatalf("user should not record service, got %v", err)
	}

	change, err := svc.RecordService(ctx, inst.ID, 200, "lamp replacement", "vendor visit", tech)
	if err != nil {
		t.Fatalf("record service failed: %v", err)
	}
	if !change.New.Equal(ledger.NewQuantity(210, ledger.UnitHours)) {
		t.Errorf("expected budget 210 after service, got %v", change.New.Value)
	}

	entries, _ := svc.History(ctx, inst.ID, 1, tech)
	if entries[0].Reason != "lamp replacement" {
		t.Errorf("work performed should be recorded as the reason, got %q", entries[0].Reason)
	}
}

func TestRetire_Terminal(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	inst, err := svc.RegisterInstrument(ctx, equipment.FamilyFlameAA, "FAA-02", "Flame AA",
		equipment.Attributes{}, 100, tech)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.Retire(ctx, inst.ID, "decommissioned", mgr); err != nil {
		t.Fatalf("retire failed: %v", err)
	}
	if _, err := svc.LogRun(ctx, inst.ID, 1, "run on retired instrument", "", tech); !errors.Is(err, ledger.ErrEntityInactive) {
		t.Errorf("expected ErrEntityInactive, got %v", err)
	}

	listed, _ := svc.List(ctx, equipment.FamilyFlameAA, true, tech)
	if len(listed) != 1 || listed[0].Active {
		t.Errorf("retired instrument should list as inactive with include flag")
	}
}
