// Package equipment implements instrument service-interval tracking on
// the ledger engine. One entity per instrument; the tracked quantity is
// the operating hours remaining until scheduled service. Run logs consume
// hours, completed maintenance replenishes them, and every event lands in
// the same audit trail as the rest of the lab's records.
package equipment

import "github.com/ehslabs/labledger/ledger"

// =============================================================================
// INSTRUMENT FAMILIES
// =============================================================================

type Family string

func (f Family) FamilyID() string     { return string(f) }
func (f Family) FamilyDomain() string { return "equipment" }

var _ ledger.Family = Family("")

const (
	FamilyICPOES     Family = "icp_oes"     // ICP-OES spectrometers
	FamilyFlameAA    Family = "flame_aa"    // flame AA instruments
	FamilyHgAnalyzer Family = "hg_analyzer" // mercury analyzers
)

func init() {
	ledger.RegisterFamily(FamilyICPOES)
	ledger.RegisterFamily(FamilyFlameAA)
	ledger.RegisterFamily(FamilyHgAnalyzer)
}

// =============================================================================
// ATTRIBUTES
// =============================================================================

const (
	AttrModel           = "instrument_model"
	AttrSerialNumber    = "serial_number"
	AttrLocation        = "location"
	AttrServiceInterval = "service_interval_hours"
	AttrLastServiceDate = "last_service_date"
	AttrServiceVendor   = "service_vendor"
	AttrNotes           = "notes"
)

// Attributes is the typed attribute set for an instrument record.
type Attributes struct {
	Model           string
	SerialNumber    string
	Location        string
	ServiceInterval string // hours between scheduled services
	LastServiceDate string
	ServiceVendor   string
	Notes           string
}

func (a Attributes) Map() map[string]string {
	m := make(map[string]string)
	put(m, AttrModel, a.Model)
	put(m, AttrSerialNumber, a.SerialNumber)
	put(m, AttrLocation, a.Location)
	put(m, AttrServiceInterval, a.ServiceInterval)
	put(m, AttrLastServiceDate, a.LastServiceDate)
	put(m, AttrServiceVendor, a.ServiceVendor)
	put(m, AttrNotes, a.Notes)
	return m
}

func put(m map[string]string, k, v string) {
	if v != "" {
		m[k] = v
	}
}
