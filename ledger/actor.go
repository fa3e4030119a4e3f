/*
actor.go - Actors and the role hierarchy

PURPOSE:
  Identity plus a role drawn from a small ordered set. Every mutating
  Service operation is gated by a role check that runs strictly before
  any lock is taken or any store access happens.

ROLE HIERARCHY (total order):
  read_only(0) < user(1) < lab_tech(2) < manager(3) < admin(4)

  Higher roles inherit the permissions of lower roles. Checks are always
  monotonic: actor.Role.Satisfies(required). Never compare role strings
  directly.

PER-OPERATION MINIMUMS:
  Reads            read_only
  Create           user
  UpdateFields     user
  ChangeQuantity   user
  Deactivate       manager

SEE ALSO:
  - service.go: Calls Authorize at the top of every operation
  - errors.go:  PermissionError / ErrPermissionDenied
*/
package ledger

// =============================================================================
// ROLE - Ordered permission level
// =============================================================================

type Role string

const (
	RoleReadOnly Role = "read_only" // view-only access
	RoleUser     Role = "user"      // basic data entry and viewing
	RoleLabTech  Role = "lab_tech"  // lab operations, instrument records
	RoleManager  Role = "manager"   // management functions, disposal
	RoleAdmin    Role = "admin"     // full access
)

var roleLevels = map[Role]int{
	RoleReadOnly: 0,
	RoleUser:     1,
	RoleLabTech:  2,
	RoleManager:  3,
	RoleAdmin:    4,
}

// Level returns the role's position in the hierarchy. Unknown roles rank
// below read_only so a garbled role can never gain access.
func (r Role) Level() int {
	if lvl, ok := roleLevels[r]; ok {
		return lvl
	}
	return -1
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { _, ok := roleLevels[r]; return ok }

// Satisfies reports whether r grants at least the required level.
func (r Role) Satisfies(required Role) bool {
	return r.Level() >= required.Level() && required.Valid()
}

// ParseRole maps a stored string onto a Role, defaulting to read_only.
func ParseRole(s string) Role {
	r := Role(s)
	if r.Valid() {
		return r
	}
	return RoleReadOnly
}

// =============================================================================
// ACTOR - Authenticated identity performing an operation
// =============================================================================

type Actor struct {
	ID     ActorID
	Name   string
	Role   Role
	Active bool
}

// =============================================================================
// PERMISSION GATE
// =============================================================================

// Per-operation minimum roles. The original system's thresholds varied
// across resource families; this is the canonical table.
const (
	MinRead       = RoleReadOnly
	MinCreate     = RoleUser
	MinUpdate     = RoleUser
	MinQuantity   = RoleUser
	MinDeactivate = RoleManager
)

// Authorize checks the actor against the operation's required minimum.
// It is stateless and must be called before any store access so that a
// denied request has no side effects.
func Authorize(actor Actor, required Role, operation string) error {
	if actor.ID == "" || !actor.Active {
		return &PermissionError{ActorID: actor.ID, Role: actor.Role, Required: required, Operation: operation}
	}
	if !actor.Role.Satisfies(required) {
		return &PermissionError{ActorID: actor.ID, Role: actor.Role, Required: required, Operation: operation}
	}
	return nil
}
