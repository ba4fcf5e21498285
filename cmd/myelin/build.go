package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyeh/myelin/internal/db"
	"github.com/gyeh/myelin/internal/exitcode"
	"github.com/gyeh/myelin/internal/ingest"
	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/refdata"
)

var (
	buildSources     []string
	buildConcurrency int
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Load reference files (provider files, ICD tables, crosswalks)",
	Long: "Fetches, parses and applies reference files in order. Files whose hash " +
		"was already applied are skipped unless --force is given. Without --dsn the " +
		"build runs in memory and only reports what it would load.",
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringArrayVar(&buildSources, "source", nil, "Reference file as kind=path-or-url (repeatable; replaces config sources)")
	f.BoolVar(&cfg.Force, "force", false, "Re-apply files whose SHA was already applied")
	f.BoolVar(&cfg.KeepStaging, "keep-staging", false, "Keep staging rows after apply")
	f.BoolVar(&cfg.DryRun, "dry-run", false, "Parse files without applying them")
	f.IntVar(&buildConcurrency, "concurrency", 0, "Files fetched and parsed at once (default from config)")
	rootCmd.AddCommand(buildCmd)
}

func parseSources(specs []string) ([]ingest.Task, error) {
	tasks := make([]ingest.Task, 0, len(specs))
	for _, s := range specs {
		kind, src, ok := strings.Cut(s, "=")
		if !ok || src == "" {
			return nil, fmt.Errorf("source %q: want kind=path", s)
		}
		k, err := model.ParseRefKind(kind)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", s, err)
		}
		tasks = append(tasks, ingest.Task{Kind: k, Source: src})
	}
	return tasks, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if buildConcurrency > 0 {
		cfg.Build.Concurrency = buildConcurrency
	}

	tasks := cfg.Sources
	if len(buildSources) > 0 {
		var err error
		if tasks, err = parseSources(buildSources); err != nil {
			log.Error().Err(err).Msg("invalid --source")
			os.Exit(exitcode.UsageError)
		}
	}
	if len(tasks) == 0 {
		log.Error().Msg("no sources: pass --source or list sources in --config")
		os.Exit(exitcode.UsageError)
	}

	cal := calendar()
	var sink ingest.Sink
	if cfg.DSN != "" {
		pool := connect(ctx)
		defer pool.Close()
		sink = db.NewStore(pool, cal, log)
	} else {
		log.Info().Msg("no dsn; building in memory")
		sink = ingest.NewMemorySink(cal, refdata.NewHolder(refdata.Empty(cal)))
	}

	summary, err := ingest.Run(ctx, log, tasks, sink, buildOptions())
	printSummary(summary)
	if err != nil {
		log.Error().Err(err).Msg("build failed")
		os.Exit(buildExitCode(summary, err))
	}
	return nil
}

func printSummary(s *model.BuildSummary) {
	if s == nil {
		return
	}
	for _, f := range s.Files {
		status := "applied"
		switch {
		case f.Err != nil:
			status = "failed"
		case f.Skipped:
			status = "skipped"
		}
		fmt.Printf("%-8s %-10s %s: read=%d rejected=%d added=%d changed=%d same=%d\n",
			status, f.Kind, f.Source, f.RowsRead, f.RowsRejected, f.RowsAdded, f.RowsChanged, f.RowsSame)
	}
	fmt.Printf("Build complete: %d loaded, %d skipped, %d failed (%.1fs)\n",
		s.FilesLoaded, s.FilesSkipped, s.FilesFailed, s.DurationTotal.Seconds())
}
