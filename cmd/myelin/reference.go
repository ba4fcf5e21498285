package main

import (
	"context"
	"errors"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/myelin/internal/db"
	"github.com/gyeh/myelin/internal/exitcode"
	"github.com/gyeh/myelin/internal/icd"
	"github.com/gyeh/myelin/internal/ingest"
	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/refdata"
)

func calendar() *icd.Calendar {
	cal, err := cfg.CodeCalendar()
	if err != nil {
		log.Error().Err(err).Msg("invalid code calendar")
		os.Exit(exitcode.UsageError)
	}
	return cal
}

func connect(ctx context.Context) *pgxpool.Pool {
	pool, err := db.NewPool(ctx, cfg.DSN, int32(cfg.Build.Concurrency)+2)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	return pool
}

func buildOptions() ingest.Options {
	f := ingest.NewFetcher(log, cfg.ObjectStore, cfg.Build.MaxAttempts-1)
	f.Dir = cfg.Build.TempDir
	return ingest.Options{
		Force:       cfg.Force,
		Concurrency: cfg.Build.Concurrency,
		MaxAttempts: cfg.Build.MaxAttempts,
		KeepStaging: cfg.KeepStaging,
		DryRun:      cfg.DryRun,
		Fetcher:     f,
	}
}

// openReference returns a holder over the current reference data: the
// Postgres store when a DSN is configured, else the configured sources
// built in memory. The returned func releases the connection pool.
func openReference(ctx context.Context) (*refdata.Holder, func()) {
	cal := calendar()
	if cfg.DSN != "" {
		pool := connect(ctx)
		snap, err := db.NewStore(pool, cal, log).LoadSnapshot(ctx)
		if err != nil {
			pool.Close()
			log.Error().Err(err).Msg("reference load failed")
			os.Exit(exitcode.RefDataError)
		}
		return refdata.NewHolder(snap), pool.Close
	}

	holder := refdata.NewHolder(refdata.Empty(cal))
	if len(cfg.Sources) == 0 {
		log.Warn().Msg("no dsn and no sources configured; reference data is empty")
		return holder, func() {}
	}
	sink := ingest.NewMemorySink(cal, holder)
	summary, err := ingest.Run(ctx, log, cfg.Sources, sink, buildOptions())
	if err != nil {
		log.Error().Err(err).Msg("reference build failed")
		os.Exit(buildExitCode(summary, err))
	}
	return holder, func() {}
}

// buildExitCode maps a failed build to an exit code. A build where some
// files applied is a partial success.
func buildExitCode(summary *model.BuildSummary, err error) int {
	if summary != nil && summary.FilesFailed > 0 && summary.FilesLoaded+summary.FilesSkipped > 0 {
		return exitcode.PartialSuccess
	}
	var pe *ingest.PipelineError
	if errors.As(err, &pe) && pe.Phase == "preflight" {
		return exitcode.ValidationError
	}
	return exitcode.RefDataError
}
