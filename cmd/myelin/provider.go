package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyeh/myelin/internal/exitcode"
	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/normalize"
	"github.com/gyeh/myelin/internal/refdata"
)

var (
	providerVariant string
	providerCCN     string
	providerNPI     string
	providerDate    string
	providerHistory bool
)

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Look up the provider record in force on a date",
	RunE:  runProvider,
}

func init() {
	f := providerCmd.Flags()
	f.StringVar(&providerVariant, "variant", "ipsf", "Provider file variant: ipsf or opsf")
	f.StringVar(&providerCCN, "ccn", "", "CMS certification number")
	f.StringVar(&providerNPI, "npi", "", "National provider identifier")
	f.StringVar(&providerDate, "date", "", "Date as YYYY-MM-DD (default today)")
	f.BoolVar(&providerHistory, "history", false, "Print every stored record for the provider")
	rootCmd.AddCommand(providerCmd)
}

func runProvider(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	v, err := model.ParseVariant(providerVariant)
	if err != nil {
		log.Error().Err(err).Msg("invalid --variant")
		os.Exit(exitcode.UsageError)
	}
	id := refdata.NewIdentifier(providerCCN, providerNPI)
	if id.IsZero() {
		log.Error().Msg("--ccn or --npi is required")
		os.Exit(exitcode.UsageError)
	}
	date := time.Now().UTC()
	if providerDate != "" {
		if date, err = time.Parse("2006-01-02", providerDate); err != nil {
			log.Error().Err(err).Msg("invalid --date")
			os.Exit(exitcode.UsageError)
		}
	}

	holder, release := openReference(ctx)
	defer release()

	if providerHistory {
		printJSON(holder.Load().History(v, id))
		return nil
	}
	rec, err := refdata.NewResolver(holder).Resolve(id, normalize.Day(date), v, model.Override{})
	if err != nil {
		log.Error().Err(err).Msg("provider lookup failed")
		os.Exit(exitcode.RefDataError)
	}
	printJSON(rec)
	return nil
}
