package model

import (
	"fmt"

	"github.com/google/uuid"
)

// RefKind names the kind of reference file a build task loads.
type RefKind string

const (
	KindIPSF      RefKind = "ipsf"
	KindOPSF      RefKind = "opsf"
	KindICD10CM   RefKind = "icd10cm"
	KindICD10PCS  RefKind = "icd10pcs"
	KindCrosswalk RefKind = "crosswalk"
)

// AllRefKinds lists the reference file kinds in the order a build applies
// them when several are given.
var AllRefKinds = []RefKind{KindIPSF, KindOPSF, KindICD10CM, KindICD10PCS, KindCrosswalk}

// ParseRefKind validates a kind name from configuration or a flag.
func ParseRefKind(s string) (RefKind, error) {
	for _, k := range AllRefKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown reference kind %q", s)
}

// ProviderVariant returns the provider record variant a kind carries, or
// ok=false for the code conversion kinds.
func (k RefKind) ProviderVariant() (Variant, bool) {
	switch k {
	case KindIPSF:
		return Inpatient, true
	case KindOPSF:
		return Outpatient, true
	}
	return "", false
}

// RefFile identifies one reference file by content.
type RefFile struct {
	Kind   RefKind
	Source string
	SHA256 string
	Size   int64
}

// RefBatch is the parsed content of one reference file, applied to a sink as
// a unit.
type RefBatch struct {
	File         RefFile
	BatchID      uuid.UUID
	Providers    []ProviderRecord
	Conversions  []ConversionRow
	Equivalences []EquivalenceRow
}

// Len is the number of rows the batch carries.
func (b *RefBatch) Len() int {
	return len(b.Providers) + len(b.Conversions) + len(b.Equivalences)
}

// ApplyCounts reports how a batch merged into existing reference data.
type ApplyCounts struct {
	Added   int64
	Changed int64
	Same    int64
}
