package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

var metricsPath string

var metricsCmd = &cobra.Command{
	Use:   "metrics <execution-id>",
	Short: "Show an execution's custom metrics",
	Long: `Show the custom metrics recorded for one test execution, in the
order they were first recorded.

With --path, query inside the metric document using gjson path syntax.
The document is an object keyed by metric name, so a path starts with
the metric name and may descend into structured values.

Examples:
  testrig metrics 42
  testrig metrics 42 --path login_duration_ms
  testrig metrics 42 --path 'cart.items.#'`,
	Args: cobra.ExactArgs(1),
	RunE: metricsCommand,
}

func init() {
	metricsCmd.Flags().StringVarP(&metricsPath, "path", "p", "", "gjson path into the metrics document")
}

func metricsCommand(cmd *cobra.Command, args []string) error {
	execID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return err
	}

	d, cfg, err := openDB()
	if err != nil {
		return err
	}
	defer d.Close()

	metrics, err := d.ListMetrics(cmd.Context(), execID)
	if err != nil {
		return err
	}

	if metricsPath == "" {
		f := consoleFormatter(cmd, cfg, false)
		f.FormatMetrics(metrics)
		return nil
	}

	// Stored values are already JSON, so the document can be assembled
	// directly without re-encoding them.
	var doc strings.Builder
	doc.WriteString("{")
	for i, m := range metrics {
		if i > 0 {
			doc.WriteString(",")
		}
		fmt.Fprintf(&doc, "%s:%s", strconv.Quote(m.Name), m.Value)
	}
	doc.WriteString("}")

	result := gjson.Get(doc.String(), metricsPath)
	if !result.Exists() {
		return fmt.Errorf("no value at path %q", metricsPath)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.String())
	return nil
}
