package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/testrig/packages/stats"
)

var (
	showVerbose bool
	showStats   bool
)

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run's executions and summary",
	Long: `Show every test execution recorded for a run, with a pass/fail
summary line. With --stats, a latency distribution of the completed
executions' durations is printed after the summary.

Examples:
  testrig show run_20240501_120000_abcd1234
  testrig show run_20240501_120000_abcd1234 --verbose --stats`,
	Args: cobra.ExactArgs(1),
	RunE: showCommand,
}

func init() {
	showCmd.Flags().BoolVarP(&showVerbose, "verbose", "v", false, "Show failure details")
	showCmd.Flags().BoolVar(&showStats, "stats", false, "Show execution latency percentiles")
}

func showCommand(cmd *cobra.Command, args []string) error {
	d, cfg, err := openDB()
	if err != nil {
		return err
	}
	defer d.Close()

	execs, err := d.ListExecutions(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	f := consoleFormatter(cmd, cfg, showVerbose)
	f.FormatExecutions(args[0], execs)

	if showStats {
		rec := stats.NewRecorder()
		for _, e := range execs {
			if e.EndTime != nil {
				rec.Record(time.Duration(e.Duration * float64(time.Second)))
			}
		}
		f.FormatLatency("Execution latency", rec.Snapshot())
	}
	return nil
}
