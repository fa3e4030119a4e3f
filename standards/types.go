// Package standards implements calibration-standard tracking on the
// ledger engine. One entity per standard batch; remaining volume is the
// tracked quantity.
package standards

import "github.com/ehslabs/labledger/ledger"

// =============================================================================
// STANDARD FAMILIES
// =============================================================================

type Family string

func (f Family) FamilyID() string     { return string(f) }
func (f Family) FamilyDomain() string { return "standards" }

var _ ledger.Family = Family("")

const (
	FamilyMM      Family = "mm_standards"       // metals standards
	FamilyFlameAA Family = "flame_aa_standards" // flame atomic absorption
	FamilyMercury Family = "hg_standards"       // mercury standards
)

func init() {
	ledger.RegisterFamily(FamilyMM)
	ledger.RegisterFamily(FamilyFlameAA)
	ledger.RegisterFamily(FamilyMercury)
}

// =============================================================================
// ATTRIBUTES
// =============================================================================

const (
	AttrStandardType        = "standard_type" // QC, calibration, spike
	AttrTargetConcentration = "target_concentration"
	AttrActualConcentration = "actual_concentration"
	AttrMatrix              = "matrix" // DI water, 2% HNO3, ...
	AttrSourceMaterial      = "source_material"
	AttrDilutionFactor      = "dilution_factor"
	AttrPreparationDate     = "preparation_date"
	AttrExpirationDate      = "expiration_date"
	AttrCertificateNumber   = "certificate_number"
)

// Attributes is the typed attribute set for a standard batch.
type Attributes struct {
	StandardType        string
	TargetConcentration string // mg/L
	ActualConcentration string // verified concentration, if measured
	Matrix              string
	SourceMaterial      string
	DilutionFactor      string
	PreparationDate     string
	ExpirationDate      string
	CertificateNumber   string
}

func (a Attributes) Map() map[string]string {
	m := make(map[string]string)
	put(m, AttrStandardType, a.StandardType)
	put(m, AttrTargetConcentration, a.TargetConcentration)
	put(m, AttrActualConcentration, a.ActualConcentration)
	put(m, AttrMatrix, a.Matrix)
	put(m, AttrSourceMaterial, a.SourceMaterial)
	put(m, AttrDilutionFactor, a.DilutionFactor)
	put(m, AttrPreparationDate, a.PreparationDate)
	put(m, AttrExpirationDate, a.ExpirationDate)
	put(m, AttrCertificateNumber, a.CertificateNumber)
	return m
}

func put(m map[string]string, k, v string) {
	if v != "" {
		m[k] = v
	}
}
