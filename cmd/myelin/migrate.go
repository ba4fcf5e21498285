package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/myelin/internal/db"
	"github.com/gyeh/myelin/internal/exitcode"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or MYELIN_DSN is required")
		os.Exit(exitcode.UsageError)
	}

	pool := connect(ctx)
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, log); err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(exitcode.DBConnError)
	}

	log.Info().Msg("all migrations applied successfully")
	return nil
}
