package output

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/testrig/packages/db"
	"github.com/abdul-hamid-achik/testrig/packages/stats"
)

func seedRun(t *testing.T) (*db.DB, string) {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	ctx := context.Background()
	require.NoError(t, d.Migrate(ctx))

	runID := "run_20240501_120000_abcd1234"
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var loginID, checkoutID int64
	require.NoError(t, d.WithSession(ctx, func(s *db.Session) error {
		if _, err := s.InsertRun(&db.RunRecord{
			RunID: runID, TestType: "single", Status: "running",
			Owner: "alice", Environment: "staging", Branch: "main", StartTime: started,
		}); err != nil {
			return err
		}
		login := &db.ExecutionRow{
			TestRunID: runID, TestModule: "auth_test", TestFunction: "TestLogin",
			Result: "started", Environment: "staging", StartTime: started,
		}
		if loginID, err = s.InsertExecution(login); err != nil {
			return err
		}
		checkout := &db.ExecutionRow{
			TestRunID: runID, TestModule: "cart_test", TestFunction: "TestCheckout",
			Result: "started", Environment: "staging", StartTime: started,
		}
		if checkoutID, err = s.InsertExecution(checkout); err != nil {
			return err
		}
		if _, err := s.InsertStep(&db.StepRow{
			StepID: "step_1714564800000000_master_1", SequenceNumber: 1,
			HierarchicalNumber: "1", Content: "Opening login page",
			ExecutionID: loginID, TestFunction: "TestLogin", StartTime: started,
		}); err != nil {
			return err
		}
		if _, err := s.InsertStep(&db.StepRow{
			StepID: "step_1714564800000001_master_2", SequenceNumber: 2,
			HierarchicalNumber: "1.1", IndentLevel: 1, Content: "Submitting credentials",
			ExecutionID: loginID, TestFunction: "TestLogin", StartTime: started,
		}); err != nil {
			return err
		}
		if err := s.UpsertMetric(loginID, "login_duration_ms", "42"); err != nil {
			return err
		}
		if err := s.UpsertMetric(loginID, "user", `"alice"`); err != nil {
			return err
		}
		if err := s.FinishExecution(loginID, "passed", "", "",
			started.Add(time.Second), 1.0); err != nil {
			return err
		}
		if err := s.FinishExecution(checkoutID, "failed",
			"cart total mismatch\nexpected 3 items", "AssertionError",
			started.Add(2*time.Second), 2.0); err != nil {
			return err
		}
		return s.FinishRun(runID, "completed", started.Add(3*time.Second), 3.0)
	}))
	return d, runID
}

func TestBuildRunExport(t *testing.T) {
	d, runID := seedRun(t)
	ctx := context.Background()

	export, err := BuildRunExport(ctx, d, runID)
	require.NoError(t, err)

	assert.Equal(t, runID, export.Run.RunID)
	assert.Equal(t, "completed", export.Run.Status)
	assert.Equal(t, "alice", export.Run.Owner)

	require.Len(t, export.Executions, 2)
	login := export.Executions[0]
	assert.Equal(t, "auth_test", login.TestModule)
	assert.Equal(t, "passed", login.Result)
	require.Len(t, login.Steps, 2)
	assert.Equal(t, "1", login.Steps[0].HierarchicalNumber)
	assert.Equal(t, "1.1", login.Steps[1].HierarchicalNumber)
	assert.Equal(t, 1, login.Steps[1].IndentLevel)
	// Metric values come back decoded from their stored JSON.
	assert.Equal(t, float64(42), login.Metrics["login_duration_ms"])
	assert.Equal(t, "alice", login.Metrics["user"])

	checkout := export.Executions[1]
	assert.Equal(t, "failed", checkout.Result)
	assert.Equal(t, "AssertionError", checkout.FailureType)
	assert.Empty(t, checkout.Steps)

	assert.Equal(t, ExportSummary{Total: 2, Passed: 1, Failed: 1}, export.Summary)
}

func TestBuildRunExport_UnknownRun(t *testing.T) {
	d, _ := seedRun(t)

	_, err := BuildRunExport(context.Background(), d, "run_does_not_exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateExport(t *testing.T) {
	d, runID := seedRun(t)

	export, err := BuildRunExport(context.Background(), d, runID)
	require.NoError(t, err)
	assert.NoError(t, ValidateExport(export))
}

func TestValidateExportAgainst_UserSchema(t *testing.T) {
	d, runID := seedRun(t)

	export, err := BuildRunExport(context.Background(), d, runID)
	require.NoError(t, err)

	schemaPath := filepath.Join(t.TempDir(), "contract.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`{
		"type": "object",
		"required": ["run"],
		"properties": {
			"run": {
				"type": "object",
				"properties": {"owner": {"const": "alice"}}
			}
		}
	}`), 0644))
	assert.NoError(t, ValidateExportAgainst(export, schemaPath))

	strict := filepath.Join(t.TempDir(), "strict.json")
	require.NoError(t, os.WriteFile(strict, []byte(`{
		"type": "object",
		"properties": {
			"summary": {
				"type": "object",
				"properties": {"failed": {"const": 0}}
			}
		}
	}`), 0644))
	err = ValidateExportAgainst(export, strict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation")
}

func TestValidateExport_RejectsBadDocument(t *testing.T) {
	export := &RunExport{
		Run: ExportRun{RunID: "r1", TestType: "adhoc", Status: "completed", StartTime: "x"},
		Executions: []ExportExecution{
			{TestModule: "m", TestFunction: "f", Result: "exploded"},
		},
		ExportedAt: "now",
	}

	err := ValidateExport(export)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation")
}

func TestJSONFormatter_Write(t *testing.T) {
	d, runID := seedRun(t)

	export, err := BuildRunExport(context.Background(), d, runID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(JSONWithWriter(&buf)).Write(export))
	assert.Contains(t, buf.String(), `"runId": "`+runID+`"`)
	assert.Contains(t, buf.String(), `"hierarchicalNumber": "1.1"`)
}

func TestConsoleFormatter_FormatSteps(t *testing.T) {
	d, runID := seedRun(t)
	ctx := context.Background()

	execs, err := d.ListExecutions(ctx, runID)
	require.NoError(t, err)
	steps, err := d.ListSteps(ctx, execs[0].ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatSteps(execs[0], steps)

	out := buf.String()
	assert.Contains(t, out, "auth_test.TestLogin")
	assert.Contains(t, out, "  1 Opening login page")
	assert.Contains(t, out, "  1.1   Submitting credentials")
	// Neither step was marked completed in the seed data.
	assert.Contains(t, out, "(incomplete)")
}

func TestConsoleFormatter_FormatExecutions(t *testing.T) {
	d, runID := seedRun(t)

	execs, err := d.ListExecutions(context.Background(), runID)
	require.NoError(t, err)

	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))
	f.FormatExecutions(runID, execs)

	out := buf.String()
	assert.Contains(t, out, "✓ auth_test.TestLogin")
	assert.Contains(t, out, "✗ cart_test.TestCheckout")
	assert.Contains(t, out, "cart total mismatch")
	assert.Contains(t, out, "1 passed")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "2 total")
}

func TestConsoleFormatter_FormatMetrics(t *testing.T) {
	d, runID := seedRun(t)
	ctx := context.Background()

	execs, err := d.ListExecutions(ctx, runID)
	require.NoError(t, err)
	metrics, err := d.ListMetrics(ctx, execs[0].ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatMetrics(metrics)

	out := buf.String()
	assert.Contains(t, out, "login_duration_ms = 42")
	assert.Contains(t, out, "user = alice")
}

func TestJUnitFormatter_Write(t *testing.T) {
	d, runID := seedRun(t)

	execs, err := d.ListExecutions(context.Background(), runID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewJUnitFormatter(JUnitWithWriter(&buf)).Write(runID, execs))

	out := buf.String()
	assert.Contains(t, out, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, out, `tests="2"`)
	assert.Contains(t, out, `failures="1"`)
	assert.Contains(t, out, `<testsuite name="auth_test"`)
	assert.Contains(t, out, `classname="cart_test"`)
	assert.Contains(t, out, `type="AssertionError"`)
	assert.Contains(t, out, "cart total mismatch")
}

func TestConsoleFormatter_FormatLatency(t *testing.T) {
	rec := stats.NewRecorder()
	rec.Record(10 * time.Millisecond)
	rec.Record(20 * time.Millisecond)
	rec.Record(30 * time.Millisecond)

	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatLatency("Execution latency", rec.Snapshot())

	out := buf.String()
	assert.Contains(t, out, "Execution latency")
	assert.Contains(t, out, "count 3")
	assert.Contains(t, out, "p50")
	assert.Contains(t, out, "p99")

	// An empty distribution prints nothing.
	buf.Reset()
	f.FormatLatency("Execution latency", stats.NewRecorder().Snapshot())
	assert.Empty(t, buf.String())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "42", formatValue(42, 100))
	assert.Equal(t, "[array with 3 items]", formatValue([]any{1, 2, 3}, 100))
	assert.Equal(t, "{object with 1 keys}", formatValue(map[string]any{"a": 1}, 100))
	assert.Equal(t, "abcde...", formatValue("abcdefgh", 5))
}
