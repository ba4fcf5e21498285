package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/myelin/internal/model"
)

// StageResult holds metrics from the staging phase.
type StageResult struct {
	RowsRead     int64
	RowsRejected int64
	Duration     time.Duration
}

// Stage parses the fetched file into a batch. Provider rows that cannot be
// stored are rejected and logged; a malformed conversion table fails the
// whole file.
func Stage(ctx context.Context, log zerolog.Logger, pf *PreflightResult) (*model.RefBatch, *StageResult, error) {
	start := time.Now()
	batch := &model.RefBatch{File: pf.File, BatchID: pf.BatchID}
	res := &StageResult{}

	var err error
	switch pf.Task.Kind {
	case model.KindIPSF, model.KindOPSF:
		v, _ := pf.Task.Kind.ProviderVariant()
		err = readProviders(ctx, pf.Local.Path, pf.Format, v, func(row int64, r model.ProviderRecord, rowErr error) {
			res.RowsRead++
			if rowErr == nil {
				rowErr = model.CheckRecord(r)
			}
			if rowErr != nil {
				res.RowsRejected++
				log.Warn().Err(rowErr).Int64("row", row).Msg("row rejected")
				return
			}
			batch.Providers = append(batch.Providers, r)
		})
	case model.KindICD10CM, model.KindICD10PCS:
		batch.Conversions, err = readConversionTable(pf.Local.Path, pf.Format, pf.Task.Kind)
		res.RowsRead = int64(len(batch.Conversions))
	case model.KindCrosswalk:
		batch.Equivalences, err = readCrosswalk(pf.Local.Path)
		res.RowsRead = int64(len(batch.Equivalences))
	default:
		err = fmt.Errorf("unknown reference kind %q", pf.Task.Kind)
	}
	res.Duration = time.Since(start)
	if err != nil {
		return nil, res, fmt.Errorf("stage %s: %w", pf.Format, err)
	}

	log.Info().
		Int64("rows_read", res.RowsRead).
		Int("rows_staged", batch.Len()).
		Int64("rows_rejected", res.RowsRejected).
		Str("duration", res.Duration.String()).
		Msg("staging complete")

	return batch, res, nil
}
