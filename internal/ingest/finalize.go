package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/myelin/internal/model"
)

// Finalize applies a staged batch to the sink as one unit.
func Finalize(ctx context.Context, log zerolog.Logger, sink Sink, batch *model.RefBatch) (model.ApplyCounts, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return model.ApplyCounts{}, err
	}

	counts, err := sink.Apply(ctx, batch)
	if err != nil {
		return model.ApplyCounts{}, fmt.Errorf("apply batch %s: %w", batch.BatchID, err)
	}

	log.Info().
		Int64("added", counts.Added).
		Int64("changed", counts.Changed).
		Int64("same", counts.Same).
		Dur("duration", time.Since(start)).
		Msg("batch applied")

	return counts, nil
}
