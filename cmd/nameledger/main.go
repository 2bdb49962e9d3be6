package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"nameledger/internal/platform/config"
	"nameledger/internal/platform/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "nameledger",
	Short:         "Hierarchical name registry ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file to read (default nameledger.env when present)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(tokenCmd)

	quoteCmd.Flags().String("name", "", "label to price")
	quoteCmd.Flags().String("tld", "com", "top-level domain")
	quoteCmd.Flags().Int("term", 1, "term in years")
	quoteCmd.Flags().Uint64("base-fee", 0, "base fee (default from config)")
	quoteCmd.Flags().Uint64("multiplier", 0, "tld multiplier in hundredths (default from config seed)")
	_ = quoteCmd.MarkFlagRequired("name")

	tokenCmd.Flags().String("identity", "", "caller identity to embed as the subject")
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime (default from config)")
	_ = tokenCmd.MarkFlagRequired("identity")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and builds the process logger from it.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Format), nil
}
