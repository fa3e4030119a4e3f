package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ehslabs/labledger/ledger"
	"github.com/ehslabs/labledger/ledger/store"
)

var memFamily = ledger.StringFamily{ID: "mem_family", Domain: "test"}

func memEntity(id, key string, qty float64) ledger.Entity {
	now := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	return ledger.Entity{
		ID:        ledger.EntityID(id),
		Family:    memFamily,
		Key:       key,
		Name:      "record " + key,
		Quantity:  ledger.NewQuantity(qty, ledger.UnitGrams),
		Active:    true,
		CreatedBy: "tina",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemory_InsertGetByIDAndKey(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	e := memEntity("id-1", "K-1", 10)
	if err := m.InsertEntity(ctx, e); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	byID, err := m.GetEntity(ctx, "id-1")
	if err != nil || byID.Key != "K-1" {
		t.Fatalf("get by id: %v %+v", err, byID)
	}
	byKey, err := m.GetEntityByKey(ctx, memFamily, "K-1")
	if err != nil || byKey.ID != "id-1" {
		t.Fatalf("get by key: %v %+v", err, byKey)
	}

	if _, err := m.GetEntity(ctx, "missing"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_DuplicateKeyRejected(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	if err := m.InsertEntity(ctx, memEntity("id-1", "K-1", 10)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	err := m.InsertEntity(ctx, memEntity("id-2", "K-1", 10))
	if !errors.Is(err, ledger.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestMemory_HistoryOrdering(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	base := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		err := m.AppendHistory(ctx, ledger.HistoryEntry{
			ID:       ledger.EntryID(fmt.Sprintf("h-%d", i)),
			EntityID: "id-1",
			Family:   memFamily,
			Kind:     ledger.ActionQuantityChanged,
			At:       base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	newest, _ := m.History(ctx, "id-1", 2)
	if len(newest) != 2 {
		t.Fatalf("expected 2, got %d", len(newest))
	}
	if !newest[0].At.After(newest[1].At) {
		t.Error("History must return newest first")
	}

	asc, _ := m.HistoryAsc(ctx, "id-1")
	if len(asc) != 4 {
		t.Fatalf("expected 4, got %d", len(asc))
	}
	for i := 1; i < len(asc); i++ {
		if asc[i].At.Before(asc[i-1].At) {
			t.Error("HistoryAsc must return oldest first")
		}
	}
}

func TestTxMemory_RollbackOnError(t *testing.T) {
	// GIVEN: A transaction that inserts an entity and history, then fails
	// WHEN: The callback returns an error
	// THEN: Neither the entity nor the history survives

	tm := store.NewTxMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	err := tm.WithTx(ctx, func(tx ledger.Store) error {
		if err := tx.InsertEntity(ctx, memEntity("id-1", "K-1", 10)); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, ledger.HistoryEntry{
			ID: "h-1", EntityID: "id-1", Family: memFamily, Kind: ledger.ActionCreated,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}

	if _, err := tm.GetEntity(ctx, "id-1"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("entity should be rolled back, got %v", err)
	}
	entries, _ := tm.History(ctx, "id-1", 0)
	if len(entries) != 0 {
		t.Errorf("history should be rolled back, got %d entries", len(entries))
	}
}

func TestTxMemory_CommitOnSuccess(t *testing.T) {
	tm := store.NewTxMemory()
	ctx := context.Background()

	err := tm.WithTx(ctx, func(tx ledger.Store) error {
		return tx.InsertEntity(ctx, memEntity("id-1", "K-1", 10))
	})
	if err != nil {
		t.Fatalf("tx failed: %v", err)
	}
	if _, err := tm.GetEntity(ctx, "id-1"); err != nil {
		t.Errorf("entity should be committed, got %v", err)
	}
}

func TestMemory_ListFiltersAndSorts(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	active := memEntity("id-1", "K-1", 10)
	inactive := memEntity("id-2", "K-2", 10)
	inactive.Active = false
	other := memEntity("id-3", "K-3", 10)
	other.Family = ledger.StringFamily{ID: "other", Domain: "test"}

	for _, e := range []ledger.Entity{active, inactive, other} {
		if err := m.InsertEntity(ctx, e); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	got, _ := m.ListEntities(ctx, memFamily, false)
	if len(got) != 1 || got[0].ID != "id-1" {
		t.Errorf("default list should hold only the active same-family entity, got %+v", got)
	}
	all, _ := m.ListEntities(ctx, memFamily, true)
	if len(all) != 2 {
		t.Errorf("expected 2 with include_inactive, got %d", len(all))
	}
	if len(all) == 2 && !all[0].Active {
		t.Error("active entities should sort before inactive")
	}
}
