/*
errors.go - Centralized error taxonomy for the ledger engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Domain packages and the HTTP layer match on these with errors.Is/As.

ERROR CATEGORIES:
  1. Authorization errors - actor's role below the required minimum
  2. Validation errors    - business rule violations, bad input
  3. Store errors         - persistence-level failures

RETRY POLICY:
  ErrConcurrentModification and ErrStorageFailure are the only kinds a
  caller may retry without re-validating its input. Everything else means
  the request must be corrected or abandoned.

SEE ALSO:
  - service.go: Produces these errors
  - store.go:   Store implementations map driver errors onto these
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPermissionDenied is returned when the actor's role is below the
	// operation's required minimum. The gate runs before any store access,
	// so a denied call has no side effects.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when the referenced entity id does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateKey is returned when creating an entity whose human key
	// is already used within its resource family.
	ErrDuplicateKey = errors.New("duplicate human key")

	// ErrInvalidArgument is returned for malformed input, e.g. a negative
	// initial quantity or a zero delta.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEntityInactive is returned when mutating a deactivated entity.
	// Deactivation is terminal; inactive entities accept only reads.
	ErrEntityInactive = errors.New("entity is inactive")

	// ErrInsufficientQuantity is returned when a quantity delta would drive
	// the balance negative. The attempt leaves no trace in the history.
	ErrInsufficientQuantity = errors.New("insufficient quantity")

	// ErrConcurrentModification is returned on a retryable conflict
	// detected at commit time. Retry with a fresh read.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrStorageFailure is returned when the atomic paired write did not
	// complete. No partial state is left behind; safe to retry.
	ErrStorageFailure = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PermissionError reports which operation was denied and why.
type PermissionError struct {
	ActorID   ActorID
	Role      Role
	Required  Role
	Operation string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s requires role %q, actor %s has %q",
		e.Operation, e.Required, e.ActorID, e.Role)
}

func (e *PermissionError) Unwrap() error { return ErrPermissionDenied }

// InsufficientQuantityError provides details about a quantity shortage.
type InsufficientQuantityError struct {
	EntityID  EntityID
	Available Quantity
	Requested Quantity
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity on %s: available %v, requested %v",
		e.EntityID, e.Available.Value, e.Requested.Value)
}

func (e *InsufficientQuantityError) Unwrap() error { return ErrInsufficientQuantity }

// DuplicateKeyError reports a human-key collision within a family.
type DuplicateKeyError struct {
	Family Family
	Key    string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %q in family %s", e.Key, e.Family.FamilyID())
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry
// without re-validating business input.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrStorageFailure)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrEntityInactive) ||
		errors.Is(err, ErrInsufficientQuantity)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
