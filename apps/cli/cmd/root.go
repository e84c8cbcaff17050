package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/testrig/packages/core/config"
	"github.com/abdul-hamid-achik/testrig/packages/db"
	"github.com/abdul-hamid-achik/testrig/packages/output"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	flagConfig  string
	flagDB      string
	flagNoColor bool
)

var rootCmd = &cobra.Command{
	Use:   "testrig",
	Short: "Inspect recorded test runs, steps and metrics.",
	Long: `testrig reads the results database written by instrumented test
suites and renders runs, execution step trees and custom metrics.
It can also export a run as JSON or JUnit XML for CI consumers.`,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitFailure)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Results database path (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(stepsCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the effective configuration from file plus flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	override := &config.Config{Database: flagDB}
	if flagNoColor {
		override.Log = &config.LogConfig{NoColor: config.BoolPtr(true)}
	}
	return cfg.Merge(override), nil
}

// openDB opens the configured results database.
func openDB() (*db.DB, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	d, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return d, cfg, nil
}

func consoleFormatter(cmd *cobra.Command, cfg *config.Config, verbose bool) *output.ConsoleFormatter {
	return output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithVerbose(verbose),
		output.WithNoColor(cfg.GetNoColor()),
	)
}
