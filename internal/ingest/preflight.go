package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/normalize"
)

// PreflightResult holds all context resolved during the preflight phase.
type PreflightResult struct {
	Task Task
	// Local is the file parsed by the stage phase; a download when Temp.
	Local Fetched
	// Format is the file format derived from the source extension: csv,
	// parquet, txt or zip.
	Format string
	File   model.RefFile
	// BatchID tags everything this file contributes to the sink.
	BatchID uuid.UUID
	// Attempts counts Fetch calls, including the successful one. Requests
	// the HTTP client retried on its own are not counted.
	Attempts int
	// AlreadyApplied is true when the sink already holds this file's hash
	// and force mode is off.
	AlreadyApplied bool
}

var formatsByKind = map[model.RefKind][]string{
	model.KindIPSF:      {"csv", "parquet"},
	model.KindOPSF:      {"csv", "parquet"},
	model.KindICD10CM:   {"txt", "zip"},
	model.KindICD10PCS:  {"txt", "zip"},
	model.KindCrosswalk: {"csv"},
}

// Preflight checks the task, fetches its source with exponential backoff,
// hashes the local copy and asks the sink whether it was already applied.
func Preflight(ctx context.Context, log zerolog.Logger, sink Sink, f *Fetcher, task Task, opts Options) (*PreflightResult, error) {
	start := time.Now()

	if _, err := model.ParseRefKind(string(task.Kind)); err != nil {
		return nil, err
	}
	format := formatOf(task.Source)
	if !supports(task.Kind, format) {
		return nil, fmt.Errorf("%s files cannot be read from .%s (want one of %v)", task.Kind, format, formatsByKind[task.Kind])
	}

	pf := &PreflightResult{Task: task, Format: format, BatchID: uuid.New()}

	var local *Fetched
	op := func() error {
		pf.Attempts++
		var err error
		local, err = f.Fetch(ctx, task.Source)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 0
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Int("attempt", pf.Attempts).Dur("retry_in", wait).Msg("fetch failed, retrying")
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(opts.MaxAttempts-1)), ctx)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return pf, fmt.Errorf("preflight fetch: %w", err)
	}
	pf.Local = *local

	sha, err := normalize.FileHash(local.Path)
	if err != nil {
		return pf, fmt.Errorf("preflight hash: %w", err)
	}
	stat, err := os.Stat(local.Path)
	if err != nil {
		return pf, fmt.Errorf("preflight stat: %w", err)
	}
	pf.File = model.RefFile{Kind: task.Kind, Source: task.Source, SHA256: sha, Size: stat.Size()}

	applied, err := sink.AlreadyApplied(ctx, sha)
	if err != nil {
		return pf, fmt.Errorf("preflight lookup: %w", err)
	}
	pf.AlreadyApplied = applied && !opts.Force

	log.Info().
		Str("sha256", sha).
		Int64("bytes", stat.Size()).
		Int("attempts", pf.Attempts).
		Dur("duration", time.Since(start)).
		Msg("preflight complete")

	return pf, nil
}

func supports(k model.RefKind, format string) bool {
	for _, f := range formatsByKind[k] {
		if f == format {
			return true
		}
	}
	return false
}
