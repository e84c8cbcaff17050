package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/testrig/packages/db"
	"github.com/abdul-hamid-achik/testrig/packages/stats"
	"github.com/fatih/color"
)

// formatValue formats a metric value for display, truncating or summarizing
// large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func resultColor(result string) func(a ...any) string {
	switch result {
	case "passed", "xfailed":
		return color.New(color.FgGreen).SprintFunc()
	case "failed", "error":
		return color.New(color.FgRed).SprintFunc()
	case "skipped", "xpassed", "rerun":
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgWhite).SprintFunc()
	}
}

// FormatRuns renders the run list, newest first.
func (f *ConsoleFormatter) FormatRuns(runs []*db.RunRecord) {
	bold := color.New(color.Bold).SprintFunc()

	if len(runs) == 0 {
		fmt.Fprintf(f.writer, "No test runs recorded.\n")
		return
	}

	fmt.Fprintf(f.writer, "%s\n\n", bold("Test runs"))
	for _, r := range runs {
		status := resultColor(statusToResult(r.Status))(r.Status)
		fmt.Fprintf(f.writer, "  %s  %s  %s", r.RunID, status, r.TestType)
		if r.Environment != "" {
			fmt.Fprintf(f.writer, "  env=%s", r.Environment)
		}
		if r.Branch != "" {
			fmt.Fprintf(f.writer, "  branch=%s", r.Branch)
		}
		fmt.Fprintf(f.writer, "\n")
		if f.verbose {
			fmt.Fprintf(f.writer, "    started %s", r.StartTime.Format("2006-01-02 15:04:05"))
			if r.EndTime != nil {
				fmt.Fprintf(f.writer, ", took %.1fs", r.Duration)
			}
			fmt.Fprintf(f.writer, "\n")
		}
	}
	fmt.Fprintf(f.writer, "\n")
}

func statusToResult(status string) string {
	switch status {
	case "completed":
		return "passed"
	case "running":
		return "started"
	default:
		return status
	}
}

// FormatExecutions renders one run's executions and a pass/fail summary line.
func (f *ConsoleFormatter) FormatExecutions(runID string, execs []*db.ExecutionRow) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n\n", bold("Run: "+runID))

	var passed, failed, skipped int
	for _, e := range execs {
		symbol := green("✓")
		switch e.Result {
		case "passed", "xfailed":
			passed++
		case "skipped", "xpassed", "rerun":
			symbol = yellow("-")
			skipped++
		default:
			symbol = red("✗")
			failed++
		}

		fmt.Fprintf(f.writer, "  %s %s.%s %s\n", symbol, e.TestModule, e.TestFunction,
			cyan(fmt.Sprintf("(%.0fms)", e.Duration*1000)))

		if e.Failure != "" && f.verbose {
			for _, line := range strings.Split(strings.TrimRight(e.Failure, "\n"), "\n") {
				fmt.Fprintf(f.writer, "      %s\n", red(line))
			}
		}
	}

	fmt.Fprintf(f.writer, "\nTests: ")
	if passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", passed)))
	}
	if failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", failed)))
	}
	if skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", skipped)))
	}
	fmt.Fprintf(f.writer, "%d total\n\n", len(execs))
}

// FormatSteps renders an execution's step tree with hierarchical numbers and
// two spaces of indentation per nesting level.
func (f *ConsoleFormatter) FormatSteps(exec *db.ExecutionRow, steps []*db.StepRow) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n\n", bold(fmt.Sprintf("%s.%s", exec.TestModule, exec.TestFunction)))

	if len(steps) == 0 {
		fmt.Fprintf(f.writer, "  (no steps recorded)\n\n")
		return
	}

	for _, s := range steps {
		indent := strings.Repeat("  ", s.IndentLevel)
		fmt.Fprintf(f.writer, "  %s %s%s", cyan(s.HierarchicalNumber), indent, s.Content)
		if !s.Completed {
			fmt.Fprintf(f.writer, " %s", red("(incomplete)"))
		}
		if f.verbose && s.Function != "" {
			fmt.Fprintf(f.writer, "  [%s]", s.Function)
		}
		fmt.Fprintf(f.writer, "\n")
	}
	fmt.Fprintf(f.writer, "\n")
}

// FormatLatency renders a duration distribution summary, as collected from
// execution durations or retry attempts.
func (f *ConsoleFormatter) FormatLatency(label string, s stats.Summary) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	if s.Count == 0 {
		return
	}
	fmt.Fprintf(f.writer, "%s\n", bold(label))
	fmt.Fprintf(f.writer, "  count %d  min %s  mean %s  max %s\n",
		s.Count, s.Min, s.Mean.Round(time.Microsecond), s.Max)
	fmt.Fprintf(f.writer, "  %s %s  %s %s  %s %s\n",
		cyan("p50"), s.P50, cyan("p95"), s.P95, cyan("p99"), s.P99)
	fmt.Fprintf(f.writer, "\n")
}

// FormatMetrics renders an execution's custom metrics in recorded order.
// Values are stored as JSON and decoded for display.
func (f *ConsoleFormatter) FormatMetrics(metrics []*db.MetricRow) {
	bold := color.New(color.Bold).SprintFunc()

	if len(metrics) == 0 {
		fmt.Fprintf(f.writer, "No metrics recorded.\n")
		return
	}

	fmt.Fprintf(f.writer, "%s\n", bold("Metrics"))
	for _, m := range metrics {
		var v any
		if err := json.Unmarshal([]byte(m.Value), &v); err != nil {
			v = m.Value
		}
		fmt.Fprintf(f.writer, "  %s = %s\n", m.Name, formatValue(v, 100))
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("testrig"), version)
}
