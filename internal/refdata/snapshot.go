// Package refdata holds versioned provider reference data and resolves the
// record in force for a provider on a service date.
package refdata

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gyeh/myelin/internal/icd"
	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/normalize"
)

// window is the half-open interval [start, end) a record is in force. A
// zero end is open.
type window struct {
	start time.Time
	end   time.Time
	rec   model.ProviderRecord
}

func (w window) contains(d time.Time) bool {
	return !d.Before(w.start) && (w.end.IsZero() || d.Before(w.end))
}

type indexKey struct {
	variant model.Variant
	id      string
}

// Snapshot is an immutable view of the reference data. It is safe for
// concurrent use; a reload produces a new Snapshot.
type Snapshot struct {
	id      uuid.UUID
	seq     uint64
	builtAt time.Time
	byCCN   map[indexKey][]window
	byNPI   map[indexKey][]window
	counts  map[model.Variant]int
	mapper  *icd.Mapper
}

// ID identifies the build that produced the snapshot.
func (s *Snapshot) ID() uuid.UUID { return s.id }

// Seq increases with every snapshot taken from the same builder.
func (s *Snapshot) Seq() uint64 { return s.seq }

// BuiltAt is when the snapshot was frozen.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Records counts the stored provider records of variant v.
func (s *Snapshot) Records(v model.Variant) int { return s.counts[v] }

// Mapper returns the ICD equivalence mapper built alongside the providers.
func (s *Snapshot) Mapper() *icd.Mapper { return s.mapper }

// lookup finds the window containing date. CCN wins when both identifiers
// are given.
func (s *Snapshot) lookup(v model.Variant, id Identifier, date time.Time) (model.ProviderRecord, bool) {
	var ws []window
	switch {
	case id.CCN != "":
		ws = s.byCCN[indexKey{v, id.CCN}]
	case id.NPI != "":
		ws = s.byNPI[indexKey{v, id.NPI}]
	}
	d := normalize.Day(date)
	i := sort.Search(len(ws), func(i int) bool { return ws[i].start.After(d) })
	if i == 0 || !ws[i-1].contains(d) {
		return nil, false
	}
	return ws[i-1].rec, true
}

// History returns every stored record for the identifier, oldest first.
func (s *Snapshot) History(v model.Variant, id Identifier) []model.ProviderRecord {
	var ws []window
	if id.CCN != "" {
		ws = s.byCCN[indexKey{v, id.CCN}]
	} else {
		ws = s.byNPI[indexKey{v, id.NPI}]
	}
	out := make([]model.ProviderRecord, len(ws))
	for i, w := range ws {
		out[i] = model.CloneRecord(w.rec)
	}
	return out
}

// buildWindows orders records by effective date. Each window ends where the
// next record starts or the day after its own termination date, whichever
// comes first.
func buildWindows(recs []model.ProviderRecord) []window {
	type dated struct {
		start time.Time
		rec   model.ProviderRecord
	}
	ds := make([]dated, 0, len(recs))
	for _, r := range recs {
		start, ok := model.EffectiveDay(r)
		if !ok {
			continue
		}
		ds = append(ds, dated{start, r})
	}
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].start.Before(ds[j].start) })

	ws := make([]window, 0, len(ds))
	for i, d := range ds {
		w := window{start: d.start, rec: d.rec}
		if i+1 < len(ds) {
			w.end = ds[i+1].start
		}
		// A record terminated before its successor takes effect leaves a gap.
		if term, ok := model.TerminationDay(d.rec); ok {
			if stop := term.AddDate(0, 0, 1); w.end.IsZero() || stop.Before(w.end) {
				w.end = stop
			}
		}
		ws = append(ws, w)
	}
	return ws
}
