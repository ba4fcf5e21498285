package icd

import (
	"fmt"

	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/normalize"
)

// Candidate is one possible target of an equivalence mapping.
type Candidate struct {
	Code    string
	Default bool
}

type edgeKey struct {
	system model.CodeSystem
	from   string
	to     string
	code   string
}

// Mapper holds single-step equivalence mappings between adjacent versions.
// It is immutable once built and safe for concurrent use.
type Mapper struct {
	cal   *Calendar
	edges map[edgeKey][]Candidate
}

// Calendar returns the calendar the mapper's versions belong to.
func (m *Mapper) Calendar() *Calendar { return m.cal }

// Len is the number of (code, step) entries.
func (m *Mapper) Len() int { return len(m.edges) }

// Candidates returns the targets of code for one step, in insertion order.
// listed is false when the mapper has no entry for the code at that step.
func (m *Mapper) Candidates(system model.CodeSystem, from, to, code string) (cands []Candidate, listed bool) {
	c, ok := m.edges[edgeKey{system, from, to, normalize.Code(code)}]
	if !ok {
		return nil, false
	}
	return append([]Candidate(nil), c...), true
}

// MapperBuilder accumulates edges. Adding the same edge twice is a no-op,
// so rebuilding from the same files yields the same mapper.
type MapperBuilder struct {
	cal   *Calendar
	edges map[edgeKey][]Candidate
}

// NewMapperBuilder starts an empty mapper over cal.
func NewMapperBuilder(cal *Calendar) *MapperBuilder {
	return &MapperBuilder{cal: cal, edges: make(map[edgeKey][]Candidate)}
}

// AddEdge records that code in version from may be expressed as target in
// version to. from and to must be adjacent.
func (b *MapperBuilder) AddEdge(system model.CodeSystem, from, code, to, target string, isDefault bool) error {
	if !b.cal.Adjacent(from, to) {
		return fmt.Errorf("mapping %s %s→%s: versions are not adjacent", code, from, to)
	}
	code, target = normalize.Code(code), normalize.Code(target)
	if code == "" || target == "" {
		return fmt.Errorf("mapping %s→%s: empty code", from, to)
	}
	k := edgeKey{system, from, to, code}
	for i, c := range b.edges[k] {
		if c.Code == target {
			b.edges[k][i].Default = c.Default || isDefault
			return nil
		}
	}
	b.edges[k] = append(b.edges[k], Candidate{Code: target, Default: isDefault})
	return nil
}

// AddEquivalence records an explicit crosswalk edge.
func (b *MapperBuilder) AddEquivalence(r model.EquivalenceRow) error {
	return b.AddEdge(r.System, r.SourceVersion, r.SourceCode, r.TargetVersion, r.TargetCode, r.Default)
}

// AddConversion records a CMS conversion table row in both directions. The
// row's effective date selects the version the current code belongs to
// (off-cycle dates fall inside a version); the previous code belongs to the
// version before it.
func (b *MapperBuilder) AddConversion(r model.ConversionRow) error {
	cur, ok := b.cal.VersionAt(r.EffectiveDate)
	if !ok {
		return fmt.Errorf("conversion %s: %s precedes the calendar", r.CurrentCode, r.EffectiveDate.Format("2006-01-02"))
	}
	prev, ok := b.cal.Previous(cur.Label)
	if !ok {
		return fmt.Errorf("conversion %s: version %s has no predecessor", r.CurrentCode, cur.Label)
	}
	if err := b.AddEdge(r.System, prev.Label, r.PreviousCode, cur.Label, r.CurrentCode, false); err != nil {
		return err
	}
	return b.AddEdge(r.System, cur.Label, r.CurrentCode, prev.Label, r.PreviousCode, false)
}

// Build freezes the accumulated edges.
func (b *MapperBuilder) Build() *Mapper {
	edges := make(map[edgeKey][]Candidate, len(b.edges))
	for k, v := range b.edges {
		edges[k] = append([]Candidate(nil), v...)
	}
	return &Mapper{cal: b.cal, edges: edges}
}
