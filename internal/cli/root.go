// Package cli provides the command-line interface for labelpipe.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/junhyuk-choi/labelpipe/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	configFile string
	verbose    bool

	// Global config and logger cleanup
	cfg        config.Config
	logCleanup func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "labelpipe",
	Short: "Batch sentiment annotation for restaurant reviews",
	Long: `Labelpipe annotates restaurant review datasets with aspect-based
sentiment labels using an LLM classification service.

It preprocesses raw scraped reviews into clean parquet tables, then labels
them in rate-limited concurrent batches with retry, checkpointing and
crash-safe resume.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if configFile != "" {
			if err := cfg.MergeFile(configFile); err != nil {
				return err
			}
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)
		logCleanup = cleanup

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
