// Package cmd holds the LPPLWatch CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"LPPLWatch/internal/di"
	"LPPLWatch/pkg/config"
	"LPPLWatch/pkg/server"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
	verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "lpplwatch",
	Short: "LPPLS bubble signal monitor",
	Long: `LPPLWatch fits the Log-Periodic Power Law Singularity model to daily price
history, aggregates multi-scale confidence, detects Top/Bottom signal clusters
and archives charts and an analyst report per instrument.

Commands:
    run       one batch over the configured tickers (or the given symbols)
    serve     HTTP API, optional periodic batches and run queue worker
    cleanup   apply archive retention only
    report    print the latest analyst report for a symbol`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config/config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd, serveCmd, cleanupCmd, reportCmd)
}

// initConfig loads the dotenv file, then the YAML config with env overrides.
func initConfig(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	c, err := config.LoadWithEnv(cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		c.Logger.Level = "debug"
	}
	cfg = c
	return nil
}

// withApp builds the application, runs fn with a context cancelled on
// SIGINT/SIGTERM, and releases every client afterwards.
func withApp(fn func(ctx context.Context, app *server.App) error) error {
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, app)
}
