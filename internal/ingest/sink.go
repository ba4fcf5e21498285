package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/gyeh/myelin/internal/icd"
	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/refdata"
)

// Sink receives parsed reference files. Apply must be atomic: a batch is
// either merged completely or not at all.
type Sink interface {
	AlreadyApplied(ctx context.Context, sha256 string) (bool, error)
	Apply(ctx context.Context, batch *model.RefBatch) (model.ApplyCounts, error)
}

// Discarder is implemented by sinks that keep per-batch scratch state
// (staging rows) until the cleanup phase.
type Discarder interface {
	Discard(ctx context.Context, batchID uuid.UUID) (int64, error)
}

// MemorySink merges batches into an in-process snapshot and publishes each
// result through a Holder. Apply replays every previously applied batch into
// a fresh builder, so a failing batch leaves the published snapshot and the
// applied history untouched.
type MemorySink struct {
	cal    *icd.Calendar
	holder *refdata.Holder

	mu      sync.Mutex
	batches []*model.RefBatch
	applied map[string]bool
}

// NewMemorySink publishes into holder using cal for the code mapper.
func NewMemorySink(cal *icd.Calendar, holder *refdata.Holder) *MemorySink {
	return &MemorySink{cal: cal, holder: holder, applied: make(map[string]bool)}
}

// Holder returns the holder snapshots are published to.
func (s *MemorySink) Holder() *refdata.Holder { return s.holder }

func (s *MemorySink) AlreadyApplied(_ context.Context, sha256 string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied[sha256], nil
}

func (s *MemorySink) Apply(ctx context.Context, batch *model.RefBatch) (model.ApplyCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := refdata.NewBuilder(s.cal)
	for _, prev := range s.batches {
		if _, err := merge(b, prev); err != nil {
			return model.ApplyCounts{}, fmt.Errorf("replay %s: %w", prev.File.Source, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return model.ApplyCounts{}, err
	}
	counts, err := merge(b, batch)
	if err != nil {
		return model.ApplyCounts{}, err
	}

	if s.applied[batch.File.SHA256] {
		// forced re-apply; keep one copy in the history
		for i, prev := range s.batches {
			if prev.File.SHA256 == batch.File.SHA256 {
				s.batches = append(s.batches[:i], s.batches[i+1:]...)
				break
			}
		}
	}
	s.batches = append(s.batches, batch)
	s.applied[batch.File.SHA256] = true
	s.holder.Swap(b.Snapshot())
	return counts, nil
}

func merge(b *refdata.Builder, batch *model.RefBatch) (model.ApplyCounts, error) {
	var c model.ApplyCounts
	for _, r := range batch.Providers {
		ch, err := b.Put(r)
		if err != nil {
			return c, err
		}
		switch ch {
		case refdata.Added:
			c.Added++
		case refdata.Changed:
			c.Changed++
		default:
			c.Same++
		}
	}
	for _, r := range batch.Conversions {
		if err := b.AddConversion(r); err != nil {
			return c, err
		}
		c.Added++
	}
	for _, r := range batch.Equivalences {
		if err := b.AddEquivalence(r); err != nil {
			return c, err
		}
		c.Added++
	}
	return c, nil
}
