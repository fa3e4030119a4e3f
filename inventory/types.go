// Package inventory implements chemical stock tracking on the ledger
// engine. One entity per chemical lot; the on-hand amount is the tracked
// quantity.
package inventory

import "github.com/ehslabs/labledger/ledger"

// =============================================================================
// CHEMICAL INVENTORY FAMILY
// =============================================================================

type Family string

func (f Family) FamilyID() string     { return string(f) }
func (f Family) FamilyDomain() string { return "inventory" }

var _ ledger.Family = Family("")

const FamilyChemicals Family = "chemicals"

func init() {
	ledger.RegisterFamily(FamilyChemicals)
}

// =============================================================================
// ATTRIBUTES
// =============================================================================

const (
	AttrCASNumber          = "cas_number"
	AttrManufacturer       = "manufacturer"
	AttrCatalogNumber      = "catalog_number"
	AttrContainerSize      = "container_size"
	AttrStorageLocation    = "storage_location"
	AttrStorageTemperature = "storage_temperature"
	AttrHazardClass        = "hazard_class"
	AttrSafetyNotes        = "safety_notes"
	AttrReceivedDate       = "received_date"
	AttrExpirationDate     = "expiration_date"
)

// Attributes is the typed attribute set for a chemical lot.
type Attributes struct {
	CASNumber          string
	Manufacturer       string
	CatalogNumber      string
	ContainerSize      string // e.g. "500ml", "1L", "100g"
	StorageLocation    string
	StorageTemperature string // room temp, 4C, -20C, ...
	HazardClass        string
	SafetyNotes        string
	ReceivedDate       string
	ExpirationDate     string
}

func (a Attributes) Map() map[string]string {
	m := make(map[string]string)
	put(m, AttrCASNumber, a.CASNumber)
	put(m, AttrManufacturer, a.Manufacturer)
	put(m, AttrCatalogNumber, a.CatalogNumber)
	put(m, AttrContainerSize, a.ContainerSize)
	put(m, AttrStorageLocation, a.StorageLocation)
	put(m, AttrStorageTemperature, a.StorageTemperature)
	put(m, AttrHazardClass, a.HazardClass)
	put(m, AttrSafetyNotes, a.SafetyNotes)
	put(m, AttrReceivedDate, a.ReceivedDate)
	put(m, AttrExpirationDate, a.ExpirationDate)
	return m
}

func put(m map[string]string, k, v string) {
	if v != "" {
		m[k] = v
	}
}
