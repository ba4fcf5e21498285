package model

import "time"

// ConversionRow is one previous→current pair from a CMS ICD-10 conversion
// table. Codes are stored without dots.
type ConversionRow struct {
	System        CodeSystem
	CurrentCode   string
	PreviousCode  string
	EffectiveDate time.Time
}

// ConversionColumns returns the ordered column names for COPY into
// ref.icd_conversions.
func ConversionColumns() []string {
	return []string{"code_type", "current_code", "previous_code", "effective_date", "ref_file_id"}
}

// CopyValues returns the row values in ConversionColumns order.
func (r *ConversionRow) CopyValues(refFileID int64) []any {
	return []any{int16(r.System), r.CurrentCode, r.PreviousCode, r.EffectiveDate, refFileID}
}

// EquivalenceRow is an explicit one-step crosswalk edge between two adjacent
// code set versions.
type EquivalenceRow struct {
	System        CodeSystem
	SourceVersion string
	SourceCode    string
	TargetVersion string
	TargetCode    string
	Default       bool
}

// EquivalenceColumns returns the ordered column names for COPY into
// ref.icd_equivalences.
func EquivalenceColumns() []string {
	return []string{"code_type", "source_version", "source_code", "target_version", "target_code", "is_default", "ref_file_id"}
}

// CopyValues returns the row values in EquivalenceColumns order.
func (r *EquivalenceRow) CopyValues(refFileID int64) []any {
	return []any{int16(r.System), r.SourceVersion, r.SourceCode, r.TargetVersion, r.TargetCode, r.Default, refFileID}
}
