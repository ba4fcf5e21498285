package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gyeh/myelin/internal/model"
)

// PipelineError wraps an error with the phase and file where it occurred.
type PipelineError struct {
	Phase string
	File  string
	Err   error
}

func (e *PipelineError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s: %s", e.Phase, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Phase, e.File, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Task loads one reference file.
type Task struct {
	Kind   model.RefKind `yaml:"kind"`
	Source string        `yaml:"source"`
}

// Options tune a build run.
type Options struct {
	// Force re-applies files whose hash was already applied.
	Force bool
	// Concurrency bounds how many files are fetched and parsed at once.
	Concurrency int
	// MaxAttempts bounds fetch attempts per file.
	MaxAttempts int
	// KeepStaging skips discarding sink scratch rows after apply.
	KeepStaging bool
	// DryRun parses files without applying them.
	DryRun  bool
	Fetcher *Fetcher
}

func (o Options) withDefaults(log zerolog.Logger) Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Fetcher == nil {
		o.Fetcher = NewFetcher(log, ObjectStore{}, o.MaxAttempts-1)
	}
	return o
}

// Run executes every task: preflight → stage → finalize → cleanup. Files
// are fetched and parsed concurrently but applied to the sink in task order,
// so later files win when they restate a record. A failing file does not
// stop the others; the returned error joins every file failure.
func Run(ctx context.Context, log zerolog.Logger, tasks []Task, sink Sink, opts Options) (*model.BuildSummary, error) {
	totalStart := time.Now()
	opts = opts.withDefaults(log)

	summaries := make([]model.FileSummary, len(tasks))
	ready := make([]chan *stagedFile, len(tasks))
	for i := range ready {
		ready[i] = make(chan *stagedFile, 1)
	}

	// Applier: consumes staged files strictly in task order.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range tasks {
			if st := <-ready[i]; st != nil {
				finish(ctx, log, sink, opts, st, &summaries[i])
			}
		}
	}()

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			summaries[i] = model.FileSummary{Source: task.Source, Kind: string(task.Kind)}
			ready[i] <- prepare(ctx, log, sink, opts, task, &summaries[i])
			return nil
		})
	}
	_ = g.Wait()
	<-done

	summary := &model.BuildSummary{}
	var errs []error
	for _, fs := range summaries {
		summary.Add(fs)
		if fs.Err != nil {
			errs = append(errs, fs.Err)
		}
	}
	summary.DurationTotal = time.Since(totalStart)

	log.Info().
		Int("files_loaded", summary.FilesLoaded).
		Int("files_skipped", summary.FilesSkipped).
		Int("files_failed", summary.FilesFailed).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("build complete")

	return summary, errors.Join(errs...)
}

// stagedFile is a fetched and parsed file waiting for its turn to apply.
type stagedFile struct {
	pf    *PreflightResult
	batch *model.RefBatch
}

// prepare runs preflight and stage; it returns nil when the file is skipped
// or failed, with the outcome recorded in fs.
func prepare(ctx context.Context, log zerolog.Logger, sink Sink, opts Options, task Task, fs *model.FileSummary) *stagedFile {
	start := time.Now()
	flog := log.With().Str("kind", string(task.Kind)).Str("source", task.Source).Logger()

	flog.Info().Msg("starting preflight")
	pf, err := Preflight(ctx, flog, sink, opts.Fetcher, task, opts)
	if pf != nil {
		fs.Attempts = pf.Attempts
	}
	if err != nil {
		fs.Err = &PipelineError{Phase: "preflight", File: task.Source, Err: err}
		if pf != nil {
			Cleanup(ctx, flog, nil, pf, opts)
		}
		fs.Duration = time.Since(start)
		return nil
	}
	fs.FileSHA256 = pf.File.SHA256
	fs.BuildBatchID = pf.BatchID.String()

	if pf.AlreadyApplied {
		flog.Info().
			Str("sha256", pf.File.SHA256).
			Msg("file already applied, skipping (use --force to re-apply)")
		fs.Skipped = true
		Cleanup(ctx, flog, nil, pf, opts)
		fs.Duration = time.Since(start)
		return nil
	}

	flog.Info().Msg("starting staging")
	batch, res, err := Stage(ctx, flog, pf)
	if res != nil {
		fs.RowsRead = res.RowsRead
		fs.RowsRejected = res.RowsRejected
	}
	if err != nil {
		fs.Err = &PipelineError{Phase: "stage", File: task.Source, Err: err}
		Cleanup(ctx, flog, nil, pf, opts)
		fs.Duration = time.Since(start)
		return nil
	}
	fs.Duration = time.Since(start)
	return &stagedFile{pf: pf, batch: batch}
}

func finish(ctx context.Context, log zerolog.Logger, sink Sink, opts Options, st *stagedFile, fs *model.FileSummary) {
	start := time.Now()
	flog := log.With().Str("kind", string(st.pf.Task.Kind)).Str("source", st.pf.Task.Source).Logger()
	defer func() { fs.Duration += time.Since(start) }()

	if opts.DryRun {
		flog.Info().Int("rows", st.batch.Len()).Msg("dry run, not applying")
		Cleanup(ctx, flog, nil, st.pf, opts)
		return
	}

	flog.Info().Msg("finalizing")
	counts, err := Finalize(ctx, flog, sink, st.batch)
	Cleanup(ctx, flog, sink, st.pf, opts)
	if err != nil {
		fs.Err = &PipelineError{Phase: "finalize", File: st.pf.Task.Source, Err: err}
		return
	}
	fs.RowsAdded = counts.Added
	fs.RowsChanged = counts.Changed
	fs.RowsSame = counts.Same
}
