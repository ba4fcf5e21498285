package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/myelin/internal/exitcode"
	"github.com/gyeh/myelin/internal/ingest"
	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/refdata"
)

var planFile, planKind string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run validation and stats for one reference file (no writes)",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planFile, "file", "", "Path or URL of the reference file (required)")
	planCmd.Flags().StringVar(&planKind, "kind", "", "File kind: ipsf, opsf, icd10cm, icd10pcs or crosswalk (required)")
	_ = planCmd.MarkFlagRequired("file")
	_ = planCmd.MarkFlagRequired("kind")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	kind, err := model.ParseRefKind(planKind)
	if err != nil {
		log.Error().Err(err).Msg("invalid --kind")
		os.Exit(exitcode.UsageError)
	}

	cal := calendar()
	sink := ingest.NewMemorySink(cal, refdata.NewHolder(refdata.Empty(cal)))
	opts := buildOptions()
	task := ingest.Task{Kind: kind, Source: planFile}

	pf, err := ingest.Preflight(ctx, log, sink, opts.Fetcher, task, opts)
	if err != nil {
		if pf != nil {
			ingest.Cleanup(ctx, log, sink, pf, opts)
		}
		log.Error().Err(err).Msg("preflight failed")
		os.Exit(exitcode.ValidationError)
	}
	batch, res, err := ingest.Stage(ctx, log, pf)
	ingest.Cleanup(ctx, log, sink, pf, opts)
	if err != nil {
		log.Error().Err(err).Msg("parse failed")
		os.Exit(exitcode.ValidationError)
	}

	fmt.Println("=== myelin plan ===")
	fmt.Printf("File:       %s\n", planFile)
	fmt.Printf("Kind:       %s (%s)\n", kind, pf.Format)
	fmt.Printf("SHA-256:    %s\n", pf.File.SHA256)
	fmt.Printf("Size:       %d bytes\n", pf.File.Size)
	fmt.Printf("Rows read:  %d (%d rejected)\n", res.RowsRead, res.RowsRejected)

	switch {
	case len(batch.Providers) > 0:
		providers := make(map[string]struct{})
		first, last := 0, 0
		for _, r := range batch.Providers {
			providers[r.CCN()] = struct{}{}
			if e := r.Effective(); first == 0 || e < first {
				first = e
			}
			if e := r.Effective(); e > last {
				last = e
			}
		}
		fmt.Printf("Providers:  %d distinct CCNs\n", len(providers))
		fmt.Printf("Effective:  %d .. %d\n", first, last)
	case len(batch.Conversions) > 0:
		fmt.Printf("Conversions: %d rows\n", len(batch.Conversions))
	case len(batch.Equivalences) > 0:
		fmt.Printf("Equivalences: %d rows\n", len(batch.Equivalences))
	}

	if _, err := sink.Apply(ctx, batch); err != nil {
		fmt.Printf("Calendar check: FAILED (%v)\n", err)
		return nil
	}
	fmt.Println("Calendar check: OK")
	return nil
}
