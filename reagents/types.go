// Package reagents implements prepared-reagent tracking on the ledger
// engine. Each reagent batch is one ledger entity; its remaining volume is
// the tracked quantity and every preparation, use, and edit lands in the
// audit trail.
package reagents

import "github.com/ehslabs/labledger/ledger"

// =============================================================================
// REAGENT FAMILIES
// =============================================================================

// Family is the concrete resource family for the reagents domain.
// Implements ledger.Family.
type Family string

func (f Family) FamilyID() string     { return string(f) }
func (f Family) FamilyDomain() string { return "reagents" }

var _ ledger.Family = Family("")

// The reagent families tracked by the lab. Each used to be its own table
// with its own history table; they now share one engine.
const (
	FamilyMM      Family = "mm_reagents"   // metals by ICP-OES
	FamilyPb      Family = "pb_reagents"   // lead analysis
	FamilyTCLP    Family = "tclp_reagents" // toxicity characteristic leaching
	FamilyMercury Family = "hg_reagents"   // mercury analysis
)

func init() {
	ledger.RegisterFamily(FamilyMM)
	ledger.RegisterFamily(FamilyPb)
	ledger.RegisterFamily(FamilyTCLP)
	ledger.RegisterFamily(FamilyMercury)
}

// =============================================================================
// ATTRIBUTES - Descriptive fields carried on the entity
// =============================================================================

// Attribute names as they appear in the audit trail.
const (
	AttrConcentration     = "concentration"
	AttrPreparationMethod = "preparation_method"
	AttrChemicalsUsed     = "chemicals_used"
	AttrPreparationDate   = "preparation_date"
	AttrExpirationDate    = "expiration_date"
	AttrPHValue           = "ph_value"
	AttrStorageLocation   = "storage_location"
)

// Attributes is the typed attribute set for a reagent batch. Dates are
// ISO 8601 strings; the engine treats all attributes as opaque text.
type Attributes struct {
	Concentration     string
	PreparationMethod string
	ChemicalsUsed     string
	PreparationDate   string
	ExpirationDate    string
	PHValue           string
	StorageLocation   string
}

// Map flattens the attributes for entity creation, skipping empty fields.
func (a Attributes) Map() map[string]string {
	m := make(map[string]string)
	put(m, AttrConcentration, a.Concentration)
	put(m, AttrPreparationMethod, a.PreparationMethod)
	put(m, AttrChemicalsUsed, a.ChemicalsUsed)
	put(m, AttrPreparationDate, a.PreparationDate)
	put(m, AttrExpirationDate, a.ExpirationDate)
	put(m, AttrPHValue, a.PHValue)
	put(m, AttrStorageLocation, a.StorageLocation)
	return m
}

func put(m map[string]string, k, v string) {
	if v != "" {
		m[k] = v
	}
}
