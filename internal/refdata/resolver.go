package refdata

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gyeh/myelin/internal/claim"
	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/normalize"
)

// ErrReferenceDataNotFound is wrapped by every NotFoundError.
var ErrReferenceDataNotFound = errors.New("reference data not found")

// Identifier names a provider by CCN and/or NPI.
type Identifier struct {
	CCN string
	NPI string
}

// NewIdentifier normalizes both identifiers.
func NewIdentifier(ccn, npi string) Identifier {
	return Identifier{CCN: normalize.CCN(ccn), NPI: normalize.NPI(npi)}
}

// ProviderIdentifier reads a claim provider: other_id carries the CCN.
func ProviderIdentifier(p *claim.Provider) Identifier {
	if p == nil {
		return Identifier{}
	}
	return NewIdentifier(p.OtherID, p.NPI)
}

// IsZero reports an identifier with neither value.
func (id Identifier) IsZero() bool { return id.CCN == "" && id.NPI == "" }

func (id Identifier) String() string {
	switch {
	case id.CCN != "" && id.NPI != "":
		return fmt.Sprintf("ccn %s (npi %s)", id.CCN, id.NPI)
	case id.CCN != "":
		return "ccn " + id.CCN
	case id.NPI != "":
		return "npi " + id.NPI
	}
	return "<no identifier>"
}

// NotFoundError means no record of the variant is in force for the
// provider on the date.
type NotFoundError struct {
	Variant model.Variant
	ID      Identifier
	Date    time.Time
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s record for %s on %s", e.Variant, e.ID, e.Date.Format("2006-01-02"))
}

func (e *NotFoundError) Unwrap() error { return ErrReferenceDataNotFound }

// Holder publishes the current snapshot. Readers never block; Swap
// installs a new snapshot for subsequent reads.
type Holder struct {
	p atomic.Pointer[Snapshot]
}

// NewHolder publishes s.
func NewHolder(s *Snapshot) *Holder {
	h := &Holder{}
	h.p.Store(s)
	return h
}

// Load returns the current snapshot.
func (h *Holder) Load() *Snapshot { return h.p.Load() }

// Swap installs s and returns the previous snapshot.
func (h *Holder) Swap(s *Snapshot) *Snapshot { return h.p.Swap(s) }

// Resolver answers provider lookups against the holder's current snapshot.
type Resolver struct {
	holder *Holder
}

// NewResolver reads from h.
func NewResolver(h *Holder) *Resolver { return &Resolver{holder: h} }

// Resolve returns a copy of the record of variant v in force on date, with
// the override's attributes replaced. A zero override returns the stored
// record unchanged.
func (r *Resolver) Resolve(id Identifier, date time.Time, v model.Variant, override model.Override) (model.ProviderRecord, error) {
	id = NewIdentifier(id.CCN, id.NPI)
	if id.IsZero() {
		return nil, &NotFoundError{Variant: v, ID: id, Date: date}
	}
	snap := r.holder.Load()
	if snap == nil {
		return nil, &NotFoundError{Variant: v, ID: id, Date: date}
	}
	rec, ok := snap.lookup(v, id, date)
	if !ok {
		return nil, &NotFoundError{Variant: v, ID: id, Date: date}
	}
	if override.IsZero() {
		return model.CloneRecord(rec), nil
	}
	out, err := model.ApplyOverride(rec, override)
	if err != nil {
		return nil, fmt.Errorf("apply %s override for %s: %w", v, id, err)
	}
	return out, nil
}

// ResolveProvider resolves the claim provider's record for the claim's
// thru date, applying the provider's override for v.
func (r *Resolver) ResolveProvider(p *claim.Provider, thru time.Time, v model.Variant) (model.ProviderRecord, error) {
	var o model.Override
	if p != nil {
		o = p.AdditionalData.Override(v)
	}
	return r.Resolve(ProviderIdentifier(p), thru, v, o)
}
