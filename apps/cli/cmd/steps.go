package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

var stepsVerbose bool

var stepsCmd = &cobra.Command{
	Use:   "steps <execution-id>",
	Short: "Show an execution's step tree",
	Long: `Show the hierarchical step tree recorded for one test execution.
Steps print with their hierarchical number and two spaces of indentation
per nesting level, the same layout the live step log uses.

Examples:
  testrig steps 42
  testrig steps 42 --verbose`,
	Args: cobra.ExactArgs(1),
	RunE: stepsCommand,
}

func init() {
	stepsCmd.Flags().BoolVarP(&stepsVerbose, "verbose", "v", false, "Show the function that opened each step")
}

func stepsCommand(cmd *cobra.Command, args []string) error {
	execID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return err
	}

	d, cfg, err := openDB()
	if err != nil {
		return err
	}
	defer d.Close()

	exec, err := d.GetExecution(cmd.Context(), execID)
	if err != nil {
		return err
	}
	steps, err := d.ListSteps(cmd.Context(), execID)
	if err != nil {
		return err
	}

	f := consoleFormatter(cmd, cfg, stepsVerbose)
	f.FormatSteps(exec, steps)
	return nil
}
