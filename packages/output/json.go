package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/testrig/packages/db"
)

// RunExport is the complete JSON export of one test run
type RunExport struct {
	Run        ExportRun         `json:"run"`
	Executions []ExportExecution `json:"executions"`
	Summary    ExportSummary     `json:"summary"`
	ExportedAt string            `json:"exportedAt"`
}

// ExportRun holds the run-level fields
type ExportRun struct {
	RunID       string  `json:"runId"`
	TestType    string  `json:"testType"`
	Status      string  `json:"status"`
	Owner       string  `json:"owner,omitempty"`
	Environment string  `json:"environment,omitempty"`
	Branch      string  `json:"branch,omitempty"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime,omitempty"`
	Duration    float64 `json:"duration"`
}

// ExportExecution holds one test execution with its steps and metrics
type ExportExecution struct {
	TestModule   string         `json:"testModule"`
	TestFunction string         `json:"testFunction"`
	Result       string         `json:"result"`
	Failure      string         `json:"failure,omitempty"`
	FailureType  string         `json:"failureType,omitempty"`
	Duration     float64        `json:"duration"`
	Steps        []ExportStep   `json:"steps,omitempty"`
	Metrics      map[string]any `json:"metrics,omitempty"`
}

// ExportStep holds one recorded step
type ExportStep struct {
	StepID             string `json:"stepId"`
	SequenceNumber     int    `json:"sequenceNumber"`
	HierarchicalNumber string `json:"hierarchicalNumber"`
	IndentLevel        int    `json:"indentLevel"`
	Content            string `json:"content"`
	Function           string `json:"function,omitempty"`
	Completed          bool   `json:"completed"`
}

// ExportSummary counts executions by outcome
type ExportSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// BuildRunExport assembles the export document for runID from storage.
func BuildRunExport(ctx context.Context, d *db.DB, runID string) (*RunExport, error) {
	runs, err := d.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	var run *db.RunRecord
	for _, r := range runs {
		if r.RunID == runID {
			run = r
			break
		}
	}
	if run == nil {
		return nil, fmt.Errorf("run %s not found", runID)
	}

	execs, err := d.ListExecutions(ctx, runID)
	if err != nil {
		return nil, err
	}

	export := &RunExport{
		Run: ExportRun{
			RunID:       run.RunID,
			TestType:    run.TestType,
			Status:      run.Status,
			Owner:       run.Owner,
			Environment: run.Environment,
			Branch:      run.Branch,
			StartTime:   run.StartTime.Format(time.RFC3339Nano),
			Duration:    run.Duration,
		},
		Executions: make([]ExportExecution, 0, len(execs)),
		ExportedAt: time.Now().Format(time.RFC3339),
	}
	if run.EndTime != nil {
		export.Run.EndTime = run.EndTime.Format(time.RFC3339Nano)
	}

	for _, e := range execs {
		ee := ExportExecution{
			TestModule:   e.TestModule,
			TestFunction: e.TestFunction,
			Result:       e.Result,
			Failure:      e.Failure,
			FailureType:  e.FailureType,
			Duration:     e.Duration,
		}

		steps, err := d.ListSteps(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		for _, s := range steps {
			ee.Steps = append(ee.Steps, ExportStep{
				StepID:             s.StepID,
				SequenceNumber:     s.SequenceNumber,
				HierarchicalNumber: s.HierarchicalNumber,
				IndentLevel:        s.IndentLevel,
				Content:            s.Content,
				Function:           s.Function,
				Completed:          s.Completed,
			})
		}

		metrics, err := d.ListMetrics(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		if len(metrics) > 0 {
			ee.Metrics = make(map[string]any, len(metrics))
			for _, m := range metrics {
				var v any
				if err := json.Unmarshal([]byte(m.Value), &v); err != nil {
					v = m.Value
				}
				ee.Metrics[m.Name] = v
			}
		}

		switch e.Result {
		case "passed", "xfailed":
			export.Summary.Passed++
		case "skipped", "xpassed", "rerun":
			export.Summary.Skipped++
		default:
			export.Summary.Failed++
		}
		export.Summary.Total++
		export.Executions = append(export.Executions, ee)
	}

	return export, nil
}

// JSONFormatter writes a run export as indented JSON
type JSONFormatter struct {
	writer io.Writer
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

// Write encodes the export document to the formatter's writer.
func (f *JSONFormatter) Write(export *RunExport) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}
