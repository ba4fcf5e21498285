package main

import (
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/gyeh/myelin/internal/claim"
	"github.com/gyeh/myelin/internal/exitcode"
	"github.com/gyeh/myelin/internal/icd"
)

var (
	claimFile     string
	convertTarget string
	convertBilled string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run a claim through its requested modules and print the result",
	RunE:  runProcess,
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a claim's ICD-10 codes to another version",
	RunE:  runConvert,
}

func init() {
	processCmd.Flags().StringVar(&claimFile, "claim", "", "Path to claim JSON (required)")
	_ = processCmd.MarkFlagRequired("claim")

	f := convertCmd.Flags()
	f.StringVar(&claimFile, "claim", "", "Path to claim JSON (required)")
	f.StringVar(&convertTarget, "target", "", "Target code version (overrides the claim's icd_convert)")
	f.StringVar(&convertBilled, "billed", "", "Billed code version (default derived from the thru date)")
	_ = convertCmd.MarkFlagRequired("claim")

	rootCmd.AddCommand(processCmd, convertCmd)
}

func readClaim() *claim.Claim {
	data, err := os.ReadFile(claimFile)
	if err != nil {
		log.Error().Err(err).Msg("read claim failed")
		os.Exit(exitcode.UsageError)
	}
	c, err := claim.Decode(data)
	if err != nil {
		log.Error().Err(err).Msg("invalid claim")
		os.Exit(exitcode.ValidationError)
	}
	return c
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("encode output failed")
		os.Exit(exitcode.UsageError)
	}
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c := readClaim()

	holder, release := openReference(ctx)
	defer release()
	orch := newOrchestrator(holder)

	res, err := orch.Run(ctx, c)
	if err != nil {
		log.Error().Err(err).Str("claim_id", c.ClaimID).Msg("claim processing failed")
		os.Exit(exitCodeFor(err))
	}
	printJSON(res)

	if n := res.Failed(); n > 0 {
		log.Warn().Int("failed", n).Int("stages", len(res.Stages)).Msg("some stages failed")
		if n < len(res.Stages) {
			os.Exit(exitcode.PartialSuccess)
		}
		os.Exit(exitCodeFor(res.Stages[0].Err))
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c := readClaim()

	d, ok := icd.DirectiveFor(c)
	if convertTarget != "" {
		d, ok = icd.Directive{Mode: claim.ConvertAuto, Target: convertTarget}, true
		if convertBilled != "" {
			d.Mode, d.Billed = claim.ConvertManual, convertBilled
		}
	}
	if !ok {
		log.Error().Msg("claim has no icd_convert block; pass --target")
		os.Exit(exitcode.UsageError)
	}

	holder, release := openReference(ctx)
	defer release()

	cv, err := newOrchestrator(holder).Converter()
	if err != nil {
		log.Error().Err(err).Msg("converter unavailable")
		os.Exit(exitcode.RefDataError)
	}
	res, err := cv.GenerateClaimMappings(c, d)
	if err != nil {
		log.Error().Err(err).Msg("conversion failed")
		os.Exit(exitCodeFor(err))
	}
	printJSON(struct {
		Result *icd.Result  `json:"result"`
		Claim  *claim.Claim `json:"claim"`
	}{res, icd.ApplyMappings(c, res)})
	return nil
}
