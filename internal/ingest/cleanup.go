package ingest

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Cleanup removes a downloaded source and, when sink keeps scratch rows,
// discards the batch's staging rows. Failures are logged, never returned.
func Cleanup(ctx context.Context, log zerolog.Logger, sink Sink, pf *PreflightResult, opts Options) {
	start := time.Now()

	if pf.Local.Temp {
		if err := os.Remove(pf.Local.Path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", pf.Local.Path).Msg("temp file cleanup failed (non-fatal)")
		}
	}

	d, ok := sink.(Discarder)
	if !ok || opts.KeepStaging {
		return
	}
	n, err := d.Discard(ctx, pf.BatchID)
	if err != nil {
		log.Warn().Err(err).Msg("staging cleanup failed (non-fatal)")
		return
	}
	log.Info().
		Int64("rows_deleted", n).
		Dur("duration", time.Since(start)).
		Msg("staging cleanup complete")
}
