package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/config"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/logging"
)

// globalFlags override the environment for every subcommand.
type globalFlags struct {
	dev      bool
	logLevel string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "tribunal-bridge",
		Short:         "Bridge between scraping workers and tribunal portal browser extensions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVar(&flags.dev, "dev", false, "development mode (colored logs, debug level)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCmd(&flags),
		newSolveCmd(&flags),
	)
	return rootCmd
}

// setup loads configuration from the environment, applies flag overrides
// and builds the logger.
func setup(flags *globalFlags) (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if flags.dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}
