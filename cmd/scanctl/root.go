package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go-catfood-scanner/internal/config"
	"go-catfood-scanner/internal/logger"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "scanctl",
	Short: "Operate the cat-food scanner from the command line",
	Long: `scanctl runs the scan-and-recognize pipeline outside the API server.

  scanctl migrate                 Create or update the database schema
  scanctl catalogue search <q>    Search catalogue items
  scanctl catalogue add-item      Add a catalogue item
  scanctl run <photo>             Recognize a label photo and generate a report

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(migrateCmd, catalogueCmd, runCmd)
}

// loadConfig reads configuration and applies the log level
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)
	if verbose {
		logger.SetLevel("debug")
	}
	return cfg, nil
}
