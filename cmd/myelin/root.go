package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/myelin/internal/config"
	"github.com/gyeh/myelin/internal/exitcode"
	"github.com/gyeh/myelin/internal/logging"
)

var (
	cfg   = config.Defaults()
	log   zerolog.Logger
	flags config.Config
)

var rootCmd = &cobra.Command{
	Use:   "myelin",
	Short: "Claim mediation over grouper, editor and pricer engines",
	Long: "Routes healthcare claims through external grouper, editor and pricer engines, " +
		"resolving provider-specific data and converting ICD-10 codes between versions.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.DSN, "dsn", "", "Postgres connection string (or set MYELIN_DSN)")
	pf.StringVar(&flags.LogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&flags.LogLevel, "log-level", "info", "Log level")
	pf.StringVar(&flags.ConfigPath, "config", "", "Path to YAML config file")
}

// loadConfig layers defaults, the environment, the config file and finally
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command, _ []string) error {
	cfg.ApplyEnv()
	log = logging.Setup(cfg.LogFormat, cfg.LogLevel)

	if flags.ConfigPath != "" {
		cfg.ConfigPath = flags.ConfigPath
		if err := cfg.LoadFromFile(flags.ConfigPath); err != nil {
			log.Error().Err(err).Str("path", flags.ConfigPath).Msg("config load failed")
			os.Exit(exitcode.UsageError)
		}
	}

	pf := cmd.Flags()
	if pf.Changed("dsn") {
		cfg.DSN = flags.DSN
	}
	if pf.Changed("log-format") {
		cfg.LogFormat = flags.LogFormat
	}
	if pf.Changed("log-level") {
		cfg.LogLevel = flags.LogLevel
	}
	log = logging.Setup(cfg.LogFormat, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	return nil
}
