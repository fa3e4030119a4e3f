/*
family.go - Resource family registration and lookup

PURPOSE:
  Provides a registry for domain packages to register their resource
  families. This enables deserialization from storage back to concrete
  types while keeping the ledger package domain-agnostic.

HOW IT WORKS:
  1. Domain packages define their Family implementations
  2. Domain packages register them on init()
  3. Storage and the HTTP layer use the registry to reconstruct types

USAGE:
  // In reagents/types.go
  func init() {
      ledger.RegisterFamily(FamilyMM)
      ledger.RegisterFamily(FamilyPb)
  }

  family := ledger.LookupFamily("mm_reagents")

SEE ALSO:
  - types.go: Family interface definition
  - reagents/types.go, standards/types.go: Implementations
*/
package ledger

import (
	"fmt"
	"sync"
)

// =============================================================================
// FAMILY REGISTRY
// =============================================================================

var (
	familyRegistry = make(map[string]Family)
	registryMu     sync.RWMutex
)

// RegisterFamily adds a resource family to the global registry.
// Call this from domain package init() functions.
func RegisterFamily(f Family) {
	registryMu.Lock()
	defer registryMu.Unlock()
	familyRegistry[f.FamilyID()] = f
}

// LookupFamily finds a registered family by ID. Returns nil if not found.
func LookupFamily(id string) Family {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return familyRegistry[id]
}

// MustLookupFamily finds a registered family or panics.
func MustLookupFamily(id string) Family {
	f := LookupFamily(id)
	if f == nil {
		panic(fmt.Sprintf("resource family not registered: %s", id))
	}
	return f
}

// ListFamilies returns all registered families.
func ListFamilies() []Family {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Family, 0, len(familyRegistry))
	for _, f := range familyRegistry {
		result = append(result, f)
	}
	return result
}

// ListFamiliesByDomain returns the families of one domain
// (e.g. all reagent families).
func ListFamiliesByDomain(domain string) []Family {
	registryMu.RLock()
	defer registryMu.RUnlock()
	var result []Family
	for _, f := range familyRegistry {
		if f.FamilyDomain() == domain {
			result = append(result, f)
		}
	}
	return result
}

// =============================================================================
// STRING FAMILY - For testing and fallback
// =============================================================================

// StringFamily is a simple string-based family.
// Use for testing, or as a fallback when the domain package isn't loaded.
type StringFamily struct {
	ID     string
	Domain string
}

func (f StringFamily) FamilyID() string     { return f.ID }
func (f StringFamily) FamilyDomain() string { return f.Domain }

// GetOrCreateFamily looks up a registered family, or falls back to a
// StringFamily with "unknown" domain. Use in deserialization.
func GetOrCreateFamily(id string) Family {
	if f := LookupFamily(id); f != nil {
		return f
	}
	return StringFamily{ID: id, Domain: "unknown"}
}
