package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/testrig/packages/output"
)

var (
	exportFormat  string
	exportOut     string
	exportSchema  string
	exportSkipVal bool
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run as JSON or JUnit XML",
	Long: `Export one run, including its executions, steps and metrics.

JSON exports are validated against the built-in run export schema
before they are written; use --skip-validation to emit the document
regardless, or --schema to validate against your own JSON schema file
instead.

Examples:
  testrig export run_20240501_120000_abcd1234
  testrig export run_20240501_120000_abcd1234 --schema contract.json
  testrig export run_20240501_120000_abcd1234 --format junit -o results.xml`,
	Args: cobra.ExactArgs(1),
	RunE: exportCommand,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format: json or junit")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Write to file instead of stdout")
	exportCmd.Flags().StringVar(&exportSchema, "schema", "", "Validate against a JSON schema file instead of the built-in one")
	exportCmd.Flags().BoolVar(&exportSkipVal, "skip-validation", false, "Skip JSON schema validation")
}

func exportCommand(cmd *cobra.Command, args []string) error {
	d, _, err := openDB()
	if err != nil {
		return err
	}
	defer d.Close()

	writer := cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	switch exportFormat {
	case "json":
		export, err := output.BuildRunExport(cmd.Context(), d, args[0])
		if err != nil {
			return err
		}
		if !exportSkipVal {
			if exportSchema != "" {
				err = output.ValidateExportAgainst(export, exportSchema)
			} else {
				err = output.ValidateExport(export)
			}
			if err != nil {
				return err
			}
		}
		return output.NewJSONFormatter(output.JSONWithWriter(writer)).Write(export)
	case "junit":
		execs, err := d.ListExecutions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return output.NewJUnitFormatter(output.JUnitWithWriter(writer)).Write(args[0], execs)
	default:
		return fmt.Errorf("unknown export format %q (want json or junit)", exportFormat)
	}
}
