package db

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/myelin/internal/icd"
	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/refdata"
	embedsql "github.com/gyeh/myelin/internal/sql"
)

// Store keeps reference data in Postgres. It is an ingest sink: each file
// is applied in one transaction, provider records are merged on (variant,
// record key, effective date) and only rewritten when their content hash
// changes.
type Store struct {
	pool *pgxpool.Pool
	cal  *icd.Calendar
	log  zerolog.Logger
}

// NewStore wraps pool. cal places conversion rows and must match the
// calendar snapshots are loaded with.
func NewStore(pool *pgxpool.Pool, cal *icd.Calendar, log zerolog.Logger) *Store {
	return &Store{pool: pool, cal: cal, log: log}
}

// AlreadyApplied reports whether a file with this hash was applied.
func (s *Store) AlreadyApplied(ctx context.Context, sha256 string) (bool, error) {
	var status string
	err := s.pool.QueryRow(ctx, embedsql.LookupRefFile, sha256).Scan(&status)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup ref file: %w", err)
	}
	return status == "applied", nil
}

// Apply merges a batch in one transaction.
func (s *Store) Apply(ctx context.Context, batch *model.RefBatch) (model.ApplyCounts, error) {
	var counts model.ApplyCounts
	if err := s.checkEdges(batch); err != nil {
		return counts, err
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var fileID int64
		f := batch.File
		if err := tx.QueryRow(ctx, embedsql.RegisterRefFile, f.SHA256, string(f.Kind), f.Source, f.Size, batch.BatchID).Scan(&fileID); err != nil {
			return fmt.Errorf("register ref file: %w", err)
		}

		if len(batch.Providers) > 0 {
			c, err := s.mergeProviders(ctx, tx, batch, fileID)
			if err != nil {
				return err
			}
			counts = c
		}
		if len(batch.Conversions) > 0 {
			n, err := s.replaceConversions(ctx, tx, batch.Conversions, fileID)
			if err != nil {
				return err
			}
			counts.Added += n
		}
		if len(batch.Equivalences) > 0 {
			n, err := s.replaceEquivalences(ctx, tx, batch.Equivalences, fileID)
			if err != nil {
				return err
			}
			counts.Added += n
		}

		if _, err := tx.Exec(ctx, embedsql.MarkRefFileApplied, fileID); err != nil {
			return fmt.Errorf("mark applied: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.ApplyCounts{}, err
	}

	if len(batch.Providers) > 0 {
		if _, err := s.pool.Exec(ctx, embedsql.AnalyzeReference); err != nil {
			s.log.Warn().Err(err).Msg("analyze failed (non-fatal)")
		}
	}
	return counts, nil
}

// checkEdges rejects code rows the calendar cannot place, before anything
// is written.
func (s *Store) checkEdges(batch *model.RefBatch) error {
	if len(batch.Conversions) == 0 && len(batch.Equivalences) == 0 {
		return nil
	}
	mb := icd.NewMapperBuilder(s.cal)
	for _, r := range batch.Conversions {
		if err := mb.AddConversion(r); err != nil {
			return err
		}
	}
	for _, r := range batch.Equivalences {
		if err := mb.AddEquivalence(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) mergeProviders(ctx context.Context, tx pgx.Tx, batch *model.RefBatch, fileID int64) (model.ApplyCounts, error) {
	var counts model.ApplyCounts
	start := time.Now()

	staged, err := tx.CopyFrom(ctx,
		pgx.Identifier{"ref", "stage_provider_records"},
		model.StagingColumns(),
		newRecordSource(batch.Providers, batch.BatchID, fileID),
	)
	if err != nil {
		return counts, fmt.Errorf("stage copy: %w", err)
	}

	rows, err := tx.Query(ctx, embedsql.MergeProviderRecords, batch.BatchID)
	if err != nil {
		return counts, fmt.Errorf("merge provider records: %w", err)
	}
	for rows.Next() {
		var inserted bool
		if err := rows.Scan(&inserted); err != nil {
			rows.Close()
			return counts, fmt.Errorf("merge provider records: %w", err)
		}
		if inserted {
			counts.Added++
		} else {
			counts.Changed++
		}
	}
	if err := rows.Err(); err != nil {
		return counts, fmt.Errorf("merge provider records: %w", err)
	}

	var distinct int64
	if err := tx.QueryRow(ctx, embedsql.CountStagedDistinct, batch.BatchID).Scan(&distinct); err != nil {
		return counts, fmt.Errorf("count staged: %w", err)
	}
	counts.Same = distinct - counts.Added - counts.Changed

	s.log.Info().
		Int64("rows_staged", staged).
		Int64("added", counts.Added).
		Int64("changed", counts.Changed).
		Dur("duration", time.Since(start)).
		Msg("provider records merged")
	return counts, nil
}

func (s *Store) replaceConversions(ctx context.Context, tx pgx.Tx, rows []model.ConversionRow, fileID int64) (int64, error) {
	if _, err := tx.Exec(ctx, embedsql.DeleteFileConversions, fileID); err != nil {
		return 0, fmt.Errorf("clear conversions: %w", err)
	}
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"ref", "icd_conversions"},
		model.ConversionColumns(),
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return rows[i].CopyValues(fileID), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy conversions: %w", err)
	}
	return n, nil
}

func (s *Store) replaceEquivalences(ctx context.Context, tx pgx.Tx, rows []model.EquivalenceRow, fileID int64) (int64, error) {
	if _, err := tx.Exec(ctx, embedsql.DeleteFileEquivalences, fileID); err != nil {
		return 0, fmt.Errorf("clear equivalences: %w", err)
	}
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"ref", "icd_equivalences"},
		model.EquivalenceColumns(),
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return rows[i].CopyValues(fileID), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy equivalences: %w", err)
	}
	return n, nil
}

// Discard deletes a batch's staging rows.
func (s *Store) Discard(ctx context.Context, batchID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, embedsql.DeleteStagingBatch, batchID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// LoadSnapshot reads all stored reference data into a new snapshot.
func (s *Store) LoadSnapshot(ctx context.Context) (*refdata.Snapshot, error) {
	start := time.Now()
	b := refdata.NewBuilder(s.cal)

	rows, err := s.pool.Query(ctx, embedsql.SelectProviderRecords)
	if err != nil {
		return nil, fmt.Errorf("select provider records: %w", err)
	}
	var providers int
	for rows.Next() {
		var variant string
		var attrs []byte
		if err := rows.Scan(&variant, &attrs); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan provider record: %w", err)
		}
		rec, err := model.NewRecord(model.Variant(variant))
		if err != nil {
			rows.Close()
			return nil, err
		}
		if err := json.Unmarshal(attrs, rec); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decode %s record: %w", variant, err)
		}
		if _, err := b.Put(rec); err != nil {
			rows.Close()
			return nil, err
		}
		providers++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select provider records: %w", err)
	}

	rows, err = s.pool.Query(ctx, embedsql.SelectConversions)
	if err != nil {
		return nil, fmt.Errorf("select conversions: %w", err)
	}
	conversions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ConversionRow, error) {
		var r model.ConversionRow
		var sys int16
		err := row.Scan(&sys, &r.CurrentCode, &r.PreviousCode, &r.EffectiveDate)
		r.System = model.CodeSystem(sys)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("select conversions: %w", err)
	}
	for _, r := range conversions {
		if err := b.AddConversion(r); err != nil {
			return nil, err
		}
	}

	rows, err = s.pool.Query(ctx, embedsql.SelectEquivalences)
	if err != nil {
		return nil, fmt.Errorf("select equivalences: %w", err)
	}
	equivalences, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.EquivalenceRow, error) {
		var r model.EquivalenceRow
		var sys int16
		err := row.Scan(&sys, &r.SourceVersion, &r.SourceCode, &r.TargetVersion, &r.TargetCode, &r.Default)
		r.System = model.CodeSystem(sys)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("select equivalences: %w", err)
	}
	for _, r := range equivalences {
		if err := b.AddEquivalence(r); err != nil {
			return nil, err
		}
	}

	snap := b.Snapshot()
	s.log.Info().
		Int("providers", providers).
		Int("conversions", len(conversions)).
		Int("equivalences", len(equivalences)).
		Dur("duration", time.Since(start)).
		Msg("reference snapshot loaded")
	return snap, nil
}
