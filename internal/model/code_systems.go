package model

import "fmt"

// CodeSystem identifies an ICD-10 code set. The numeric values match the
// code_type column of the conversion tables.
type CodeSystem int

const (
	DiagnosisCodes CodeSystem = 0 // ICD-10-CM
	ProcedureCodes CodeSystem = 1 // ICD-10-PCS
)

// CodeSystemInfo names a code system and the build kind that loads it.
type CodeSystemInfo struct {
	System CodeSystem
	Name   string // e.g. "ICD-10-CM"
	Kind   RefKind
}

// AllCodeSystems lists the supported code systems in canonical order.
var AllCodeSystems = []CodeSystemInfo{
	{System: DiagnosisCodes, Name: "ICD-10-CM", Kind: KindICD10CM},
	{System: ProcedureCodes, Name: "ICD-10-PCS", Kind: KindICD10PCS},
}

func (s CodeSystem) String() string {
	for _, info := range AllCodeSystems {
		if info.System == s {
			return info.Name
		}
	}
	return fmt.Sprintf("CodeSystem(%d)", int(s))
}

// CodeSystemByName returns the code system for a name such as "ICD-10-PCS"
// or a kind such as "icd10pcs".
func CodeSystemByName(name string) (CodeSystem, bool) {
	for _, info := range AllCodeSystems {
		if info.Name == name || string(info.Kind) == name {
			return info.System, true
		}
	}
	return 0, false
}
