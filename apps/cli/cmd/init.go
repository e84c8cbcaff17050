package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/testrig/packages/core/config"
	"github.com/abdul-hamid-achik/testrig/packages/db"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a results database and config file",
	Long: `Initialize testrig in the current directory.

This creates:
  - .testrig.yaml    - Configuration file
  - test_results.db  - SQLite results database with the full schema

Examples:
  testrig init
  testrig init --db results/ci.db
  testrig init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing config file")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if flagDB != "" {
		cfg.Database = flagDB
	}

	configFile := filepath.Join(cwd, ".testrig.yaml")
	if !forceInit {
		if _, err := os.Stat(configFile); err == nil {
			return fmt.Errorf("file already exists: %s (use --force to overwrite)", configFile)
		}
	}

	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	d, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Migrate(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", cfg.Database)

	fmt.Fprintf(cmd.OutOrStdout(), "\ntestrig initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Point your test suite at %s and run 'testrig runs' to inspect results.\n", cfg.Database)

	return nil
}
