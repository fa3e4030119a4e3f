package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ehslabs/labledger/ledger"
)

func ml(v float64) ledger.Quantity { return ledger.NewQuantity(v, ledger.UnitMilliliters) }

func entry(kind ledger.ActionKind, delta, remaining float64) ledger.HistoryEntry {
	return ledger.HistoryEntry{
		ID:        ledger.EntryID("e"),
		EntityID:  "ent-1",
		Family:    testFamily,
		Kind:      kind,
		Delta:     ml(delta),
		Remaining: ml(remaining),
		ActorID:   "tina",
		At:        time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestReplay_ValidSequence(t *testing.T) {
	entries := []ledger.HistoryEntry{
		entry(ledger.ActionCreated, 500, 500),
		entry(ledger.ActionQuantityChanged, -120, 380),
		entry(ledger.ActionFieldUpdated, 0, 0),
		entry(ledger.ActionQuantityChanged, 50, 430),
	}
	final, err := ledger.Replay(entries)
	if err != nil {
		t.Fatalf("valid sequence should replay: %v", err)
	}
	if !final.Equal(ml(430)) {
		t.Errorf("expected final 430, got %v", final.Value)
	}
}

func TestReplay_EmptyHistoryRejected(t *testing.T) {
	_, err := ledger.Replay(nil)
	if !errors.Is(err, ledger.ErrReplayDivergence) {
		t.Fatalf("expected divergence for empty history, got %v", err)
	}
}

func TestReplay_FirstEntryMustBeCreated(t *testing.T) {
	entries := []ledger.HistoryEntry{
		entry(ledger.ActionQuantityChanged, -10, 90),
	}
	_, err := ledger.Replay(entries)
	if !errors.Is(err, ledger.ErrReplayDivergence) {
		t.Fatalf("expected divergence, got %v", err)
	}
}

func TestReplay_SecondCreatedRejected(t *testing.T) {
	entries := []ledger.HistoryEntry{
		entry(ledger.ActionCreated, 100, 100),
		entry(ledger.ActionCreated, 100, 100),
	}
	if _, err := ledger.Replay(entries); !errors.Is(err, ledger.ErrReplayDivergence) {
		t.Fatalf("expected divergence, got %v", err)
	}
}

func TestReplay_SnapshotMismatchDetected(t *testing.T) {
	// The recorded snapshot disagrees with the running balance.
	entries := []ledger.HistoryEntry{
		entry(ledger.ActionCreated, 500, 500),
		entry(ledger.ActionQuantityChanged, -100, 350), // should be 400
	}
	_, err := ledger.Replay(entries)
	if !errors.Is(err, ledger.ErrReplayDivergence) {
		t.Fatalf("expected divergence, got %v", err)
	}
	var re *ledger.ReplayError
	if !errors.As(err, &re) {
		t.Fatal("expected *ReplayError")
	}
}

func TestReplay_NegativeBalanceDetected(t *testing.T) {
	entries := []ledger.HistoryEntry{
		entry(ledger.ActionCreated, 100, 100),
		entry(ledger.ActionQuantityChanged, -150, -50),
	}
	if _, err := ledger.Replay(entries); !errors.Is(err, ledger.ErrReplayDivergence) {
		t.Fatalf("expected divergence, got %v", err)
	}
}

func TestReplay_MutationAfterDeactivationDetected(t *testing.T) {
	entries := []ledger.HistoryEntry{
		entry(ledger.ActionCreated, 100, 100),
		entry(ledger.ActionDeactivated, 0, 0),
		entry(ledger.ActionQuantityChanged, -10, 90),
	}
	if _, err := ledger.Replay(entries); !errors.Is(err, ledger.ErrReplayDivergence) {
		t.Fatalf("expected divergence, got %v", err)
	}
}

func TestVerify_EntityQuantityMismatch(t *testing.T) {
	entity := ledger.Entity{
		ID:       "ent-1",
		Family:   testFamily,
		Quantity: ml(999),
		Active:   true,
	}
	entries := []ledger.HistoryEntry{
		entry(ledger.ActionCreated, 500, 500),
	}
	if err := ledger.Verify(entity, entries); !errors.Is(err, ledger.ErrReplayDivergence) {
		t.Fatalf("expected divergence, got %v", err)
	}

	entity.Quantity = ml(500)
	if err := ledger.Verify(entity, entries); err != nil {
		t.Fatalf("matching state should verify, got %v", err)
	}
}
