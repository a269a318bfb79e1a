// Package cmd implements the reconciler command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoice-reconciliation-service/internal/config"
	engineerrors "invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Match invoice line items against bank statement transactions",
	Long: `reconciler pairs transactions extracted from invoice documents with
bank statement lines. Matching runs through an amount-bucketed candidate
index, per-pair similarity features, and either a trained scoring model
or a rule-based fallback, committing matches greedily one-to-one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		if logFormat != "" {
			loaded.LogFormat = logFormat
		}
		log, err := logger.New(&logger.Config{
			Level:  loaded.LogLevel,
			Format: loaded.LogFormat,
			Output: os.Stderr,
		})
		if err != nil {
			return engineerrors.ConfigurationError("log", loaded.LogLevel, err)
		}
		logger.SetGlobal(log)
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
}

// Execute runs the CLI and exits with a code derived from the error
// category.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if engineErr, ok := engineerrors.As(err); ok {
			os.Exit(engineErr.ExitCode())
		}
		os.Exit(1)
	}
}
