package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bcfeed/internal/config"
	"bcfeed/internal/logging"
)

var cfgPath string

// RootCmd is the base command for the bcfeed CLI.
var RootCmd = &cobra.Command{
	Use:   "bcfeed",
	Short: "Bandcamp release feed from your release-announcement emails",
	Long: `bcfeed scans Bandcamp "New release from ..." notification emails via
Gmail or IMAP and maintains a local, date-keyed release cache. Date ranges
are fetched at most once; only uncached gaps hit the mail provider.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(
		&cfgPath, "config", config.DefaultConfigPath(), "config file path",
	)
}

// loadApp loads configuration and builds the logger.
func loadApp() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}

	return cfg, log, nil
}
