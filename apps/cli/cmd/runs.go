package cmd

import (
	"github.com/spf13/cobra"
)

var runsVerbose bool

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded test runs",
	Long: `List all test runs in the results database, newest first.

Examples:
  testrig runs
  testrig runs --verbose`,
	RunE: runsCommand,
}

func init() {
	runsCmd.Flags().BoolVarP(&runsVerbose, "verbose", "v", false, "Show timing details")
}

func runsCommand(cmd *cobra.Command, args []string) error {
	d, cfg, err := openDB()
	if err != nil {
		return err
	}
	defer d.Close()

	runs, err := d.ListRuns(cmd.Context())
	if err != nil {
		return err
	}

	f := consoleFormatter(cmd, cfg, runsVerbose)
	f.FormatRuns(runs)
	return nil
}
