/*
replay.go - History replay and invariant verification

PURPOSE:
  The denormalized quantity on an Entity is convenient but redundant: the
  history log is the source of truth. Replaying the log must reproduce the
  current quantity exactly. This file implements that replay so the
  invariants are checkable at any time, for any entity.

WHAT IS VERIFIED:
  1. The log starts with exactly one "created" entry
  2. Summing deltas from the created snapshot reproduces every intermediate
     "remaining" snapshot (no drift, no lost updates)
  3. The balance never dips negative at any point in the replay
  4. No quantity or field mutation appears after a "deactivated" entry
  5. The final snapshot equals the entity's current quantity

SEE ALSO:
  - service.go: VerifyHistory exposes this as a read-only operation
*/
package ledger

import (
	"errors"
	"fmt"
)

// ErrReplayDivergence is returned when the history log does not reproduce
// the entity's current state. This indicates corruption or a write that
// bypassed the Service; it is never expected in normal operation.
var ErrReplayDivergence = errors.New("history replay diverges from current state")

// ReplayError pinpoints where the replay went wrong.
type ReplayError struct {
	EntityID EntityID
	EntryID  EntryID
	Detail   string
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay divergence on %s at entry %s: %s", e.EntityID, e.EntryID, e.Detail)
}

func (e *ReplayError) Unwrap() error { return ErrReplayDivergence }

// Replay walks the log oldest-first, applying each quantity-bearing delta
// and checking every recorded snapshot. It returns the final quantity.
func Replay(entries []HistoryEntry) (Quantity, error) {
	if len(entries) == 0 {
		return Quantity{}, &ReplayError{Detail: "empty history: missing created entry"}
	}
	first := entries[0]
	if first.Kind != ActionCreated {
		return Quantity{}, &ReplayError{EntityID: first.EntityID, EntryID: first.ID,
			Detail: fmt.Sprintf("log starts with %q, want %q", first.Kind, ActionCreated)}
	}

	balance := first.Remaining
	if balance.IsNegative() {
		return Quantity{}, &ReplayError{EntityID: first.EntityID, EntryID: first.ID,
			Detail: "created snapshot is negative"}
	}

	deactivated := false
	for _, entry := range entries[1:] {
		switch entry.Kind {
		case ActionCreated:
			return Quantity{}, &ReplayError{EntityID: entry.EntityID, EntryID: entry.ID,
				Detail: "second created entry"}
		case ActionQuantityChanged:
			if deactivated {
				return Quantity{}, &ReplayError{EntityID: entry.EntityID, EntryID: entry.ID,
					Detail: "quantity change after deactivation"}
			}
			balance = balance.Add(entry.Delta)
			if balance.IsNegative() {
				return Quantity{}, &ReplayError{EntityID: entry.EntityID, EntryID: entry.ID,
					Detail: fmt.Sprintf("balance went negative: %v", balance.Value)}
			}
			if !balance.Equal(entry.Remaining) {
				return Quantity{}, &ReplayError{EntityID: entry.EntityID, EntryID: entry.ID,
					Detail: fmt.Sprintf("snapshot %v does not match replayed balance %v",
						entry.Remaining.Value, balance.Value)}
			}
		case ActionFieldUpdated:
			if deactivated {
				return Quantity{}, &ReplayError{EntityID: entry.EntityID, EntryID: entry.ID,
					Detail: "field update after deactivation"}
			}
		case ActionDeactivated:
			deactivated = true
		default:
			return Quantity{}, &ReplayError{EntityID: entry.EntityID, EntryID: entry.ID,
				Detail: fmt.Sprintf("unknown action kind %q", entry.Kind)}
		}
	}
	return balance, nil
}

// Verify replays the log and checks the result against the entity.
func Verify(entity Entity, entries []HistoryEntry) error {
	final, err := Replay(entries)
	if err != nil {
		return err
	}
	if !final.Equal(entity.Quantity) {
		return &ReplayError{EntityID: entity.ID,
			Detail: fmt.Sprintf("replayed balance %v, entity has %v",
				final.Value, entity.Quantity.Value)}
	}
	return nil
}
