package model

import (
	"fmt"
	"time"

	"github.com/gyeh/myelin/internal/normalize"
)

// Variant selects which provider specific file a record comes from.
type Variant string

const (
	Inpatient  Variant = "ipsf"
	Outpatient Variant = "opsf"
)

// AllVariants lists the provider record variants in canonical order.
var AllVariants = []Variant{Inpatient, Outpatient}

// ParseVariant accepts the subsystem names used in claim payloads and
// configuration files.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case Inpatient, Outpatient:
		return Variant(s), nil
	}
	return "", fmt.Errorf("unknown provider variant %q", s)
}

// ProviderRecord is implemented by InpatientProvider and OutpatientProvider
// (and pointers to them).
type ProviderRecord interface {
	Variant() Variant
	CCN() string
	NPI() string
	Effective() int
	Termination() int
}

// openTermination stands in for "not terminated". Provider files encode it
// as 0 or 19000101.
const openTermination = 20991231

// TerminationDay returns the last day a record is in force, or ok=false when
// the record is open-ended.
func TerminationDay(r ProviderRecord) (time.Time, bool) {
	v := r.Termination()
	if v == 0 || v == 19000101 || v >= openTermination {
		return time.Time{}, false
	}
	return normalize.FromDateInt(v)
}

// EffectiveDay returns the first day a record is in force.
func EffectiveDay(r ProviderRecord) (time.Time, bool) {
	return normalize.FromDateInt(r.Effective())
}

// RecordKey identifies a provider across file versions: its CCN, or its NPI
// when the record carries no CCN.
func RecordKey(r ProviderRecord) string {
	if ccn := normalize.CCN(r.CCN()); ccn != "" {
		return ccn
	}
	if npi := normalize.NPI(r.NPI()); npi != "" {
		return "npi:" + npi
	}
	return ""
}

// NewRecord returns a pointer to a zero record of the given variant.
func NewRecord(v Variant) (ProviderRecord, error) {
	switch v {
	case Inpatient:
		return &InpatientProvider{}, nil
	case Outpatient:
		return &OutpatientProvider{}, nil
	}
	return nil, fmt.Errorf("unknown provider variant %q", v)
}

// CloneRecord returns an independent pointer copy of r.
func CloneRecord(r ProviderRecord) ProviderRecord {
	switch p := r.(type) {
	case *InpatientProvider:
		c := *p
		return &c
	case InpatientProvider:
		return &p
	case *OutpatientProvider:
		c := *p
		return &c
	case OutpatientProvider:
		return &p
	}
	panic(fmt.Sprintf("model: unsupported provider record %T", r))
}

// CheckRecord reports why r cannot be stored: no identity or no valid
// effective date.
func CheckRecord(r ProviderRecord) error {
	key := RecordKey(r)
	if key == "" {
		return fmt.Errorf("%s record has neither ccn nor npi", r.Variant())
	}
	if _, ok := EffectiveDay(r); !ok {
		return fmt.Errorf("%s record %s: invalid effective_date %d", r.Variant(), key, r.Effective())
	}
	return nil
}
