package refdata

import (
	"bytes"
	"time"

	"github.com/google/uuid"

	"github.com/gyeh/myelin/internal/icd"
	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/normalize"
)

// Change is the effect of merging one record.
type Change int

const (
	Added Change = iota
	Changed
	Same
)

func (c Change) String() string {
	switch c {
	case Added:
		return "added"
	case Changed:
		return "changed"
	default:
		return "same"
	}
}

type recordKey struct {
	variant   model.Variant
	key       string
	effective int
}

type stored struct {
	rec  model.ProviderRecord
	hash []byte
}

// Builder accumulates reference data. Records are deduplicated by variant,
// provider identity and effective date; a record with new content replaces
// the stored one. Builder is not safe for concurrent use.
type Builder struct {
	id      uuid.UUID
	seq     uint64
	records map[recordKey]stored
	edges   *icd.MapperBuilder
}

// NewBuilder starts an empty builder whose mapper uses cal.
func NewBuilder(cal *icd.Calendar) *Builder {
	return &Builder{
		id:      uuid.New(),
		records: make(map[recordKey]stored),
		edges:   icd.NewMapperBuilder(cal),
	}
}

// Put merges one provider record.
func (b *Builder) Put(r model.ProviderRecord) (Change, error) {
	if err := model.CheckRecord(r); err != nil {
		return 0, err
	}
	k := recordKey{r.Variant(), model.RecordKey(r), r.Effective()}
	h := model.RecordHash(r)
	prev, ok := b.records[k]
	switch {
	case !ok:
		b.records[k] = stored{model.CloneRecord(r), h}
		return Added, nil
	case bytes.Equal(prev.hash, h):
		return Same, nil
	default:
		b.records[k] = stored{model.CloneRecord(r), h}
		return Changed, nil
	}
}

// AddConversion merges a CMS conversion table row into the mapper.
func (b *Builder) AddConversion(r model.ConversionRow) error { return b.edges.AddConversion(r) }

// AddEquivalence merges an explicit crosswalk edge into the mapper.
func (b *Builder) AddEquivalence(r model.EquivalenceRow) error { return b.edges.AddEquivalence(r) }

// Snapshot freezes the current contents. The builder stays usable; later
// changes do not affect snapshots already taken.
func (b *Builder) Snapshot() *Snapshot {
	b.seq++
	groupsCCN := make(map[indexKey][]model.ProviderRecord)
	groupsNPI := make(map[indexKey][]model.ProviderRecord)
	counts := make(map[model.Variant]int)
	for k, s := range b.records {
		counts[k.variant]++
		if ccn := normalize.CCN(s.rec.CCN()); ccn != "" {
			groupsCCN[indexKey{k.variant, ccn}] = append(groupsCCN[indexKey{k.variant, ccn}], s.rec)
		}
		if npi := normalize.NPI(s.rec.NPI()); npi != "" {
			groupsNPI[indexKey{k.variant, npi}] = append(groupsNPI[indexKey{k.variant, npi}], s.rec)
		}
	}
	snap := &Snapshot{
		id:      b.id,
		seq:     b.seq,
		builtAt: time.Now().UTC(),
		byCCN:   make(map[indexKey][]window, len(groupsCCN)),
		byNPI:   make(map[indexKey][]window, len(groupsNPI)),
		counts:  counts,
		mapper:  b.edges.Build(),
	}
	for k, recs := range groupsCCN {
		snap.byCCN[k] = buildWindows(recs)
	}
	for k, recs := range groupsNPI {
		snap.byNPI[k] = buildWindows(recs)
	}
	return snap
}

// Empty returns a snapshot with no data over cal.
func Empty(cal *icd.Calendar) *Snapshot {
	return NewBuilder(cal).Snapshot()
}
