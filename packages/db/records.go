package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunRecord is a row in test_runs.
type RunRecord struct {
	ID          int64
	RunID       string
	TestType    string
	Status      string
	Owner       string
	Environment string
	Branch      string
	StartTime   time.Time
	EndTime     *time.Time
	Duration    float64
}

// ExecutionRow is a row in test_executions.
type ExecutionRow struct {
	ID           int64
	TestRunID    string
	TestModule   string
	TestFunction string
	Name         string
	Description  string
	Result       string
	Failure      string
	FailureType  string
	Environment  string
	StartTime    time.Time
	EndTime      *time.Time
	Duration     float64
}

// StepRow is a row in steps.
type StepRow struct {
	ID                 int64
	StepID             string
	SequenceNumber     int
	HierarchicalNumber string
	IndentLevel        int
	ParentStepID       *int64
	Function           string
	Content            string
	ExecutionID        int64
	TestFunction       string
	Completed          bool
	StartTime          time.Time
}

// MetricRow is a row in custom_metrics; Value holds JSON text.
type MetricRow struct {
	ID          int64
	ExecutionID int64
	Name        string
	Value       string
}

// ListRuns returns all test runs, newest first.
func (d *DB) ListRuns(ctx context.Context) ([]*RunRecord, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT id, test_run_id, test_type, status, owner, environment, branch,
		       start_time, end_time, duration
		FROM test_runs ORDER BY start_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []*RunRecord
	for rows.Next() {
		var r RunRecord
		var owner, env, branch sql.NullString
		var end sql.NullTime
		var dur sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.RunID, &r.TestType, &r.Status, &owner, &env,
			&branch, &r.StartTime, &end, &dur); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Owner = owner.String
		r.Environment = env.String
		r.Branch = branch.String
		if end.Valid {
			t := end.Time
			r.EndTime = &t
		}
		r.Duration = dur.Float64
		out = append(out, &r)
	}
	return out, rows.Err()
}

// ListExecutions returns the execution records of one run in start order.
func (d *DB) ListExecutions(ctx context.Context, runID string) ([]*ExecutionRow, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT id, test_run_id, test_module, test_function, name, description,
		       result, failure, failure_type, environment, start_time, end_time, duration
		FROM test_executions WHERE test_run_id = ? ORDER BY start_time, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing executions: %w", err)
	}
	defer rows.Close()
	return scanExecutions(rows)
}

// GetExecution loads one execution row by storage id.
func (d *DB) GetExecution(ctx context.Context, id int64) (*ExecutionRow, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT id, test_run_id, test_module, test_function, name, description,
		       result, failure, failure_type, environment, start_time, end_time, duration
		FROM test_executions WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("loading execution: %w", err)
	}
	defer rows.Close()

	execs, err := scanExecutions(rows)
	if err != nil {
		return nil, err
	}
	if len(execs) == 0 {
		return nil, fmt.Errorf("execution %d not found", id)
	}
	return execs[0], nil
}

func scanExecutions(rows *sql.Rows) ([]*ExecutionRow, error) {
	var out []*ExecutionRow
	for rows.Next() {
		var e ExecutionRow
		var name, desc, failure, ftype, env sql.NullString
		var end sql.NullTime
		var dur sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.TestRunID, &e.TestModule, &e.TestFunction,
			&name, &desc, &e.Result, &failure, &ftype, &env,
			&e.StartTime, &end, &dur); err != nil {
			return nil, fmt.Errorf("scanning execution: %w", err)
		}
		e.Name = name.String
		e.Description = desc.String
		e.Failure = failure.String
		e.FailureType = ftype.String
		e.Environment = env.String
		if end.Valid {
			t := end.Time
			e.EndTime = &t
		}
		e.Duration = dur.Float64
		out = append(out, &e)
	}
	return out, rows.Err()
}

// ListSteps returns an execution's steps in sequence order.
func (d *DB) ListSteps(ctx context.Context, executionID int64) ([]*StepRow, error) {
	return d.querySteps(ctx, `
		SELECT id, step_id, sequence_number, hierarchical_number, indent_level,
		       parent_step_id, step_function, content, execution_id,
		       test_function, completed, start_time
		FROM steps WHERE execution_id = ? ORDER BY sequence_number, id`, executionID)
}

// StepsAfter returns steps with a storage id above afterID, in id order.
// Used by the tail command to pick up newly persisted steps.
func (d *DB) StepsAfter(ctx context.Context, afterID int64) ([]*StepRow, error) {
	return d.querySteps(ctx, `
		SELECT id, step_id, sequence_number, hierarchical_number, indent_level,
		       parent_step_id, step_function, content, execution_id,
		       test_function, completed, start_time
		FROM steps WHERE id > ? ORDER BY id`, afterID)
}

// MaxStepRowID returns the highest step storage id, or 0 when there are none.
func (d *DB) MaxStepRowID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := d.sql.QueryRowContext(ctx, `SELECT MAX(id) FROM steps`).Scan(&id); err != nil {
		return 0, fmt.Errorf("reading max step id: %w", err)
	}
	return id.Int64, nil
}

func (d *DB) querySteps(ctx context.Context, query string, args ...any) ([]*StepRow, error) {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing steps: %w", err)
	}
	defer rows.Close()

	var out []*StepRow
	for rows.Next() {
		var s StepRow
		var parent sql.NullInt64
		if err := rows.Scan(&s.ID, &s.StepID, &s.SequenceNumber, &s.HierarchicalNumber,
			&s.IndentLevel, &parent, &s.Function, &s.Content, &s.ExecutionID,
			&s.TestFunction, &s.Completed, &s.StartTime); err != nil {
			return nil, fmt.Errorf("scanning step: %w", err)
		}
		if parent.Valid {
			p := parent.Int64
			s.ParentStepID = &p
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// ListMetrics returns an execution's custom metrics in insertion order.
func (d *DB) ListMetrics(ctx context.Context, executionID int64) ([]*MetricRow, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT id, execution_id, name, value
		FROM custom_metrics WHERE execution_id = ? ORDER BY id`, executionID)
	if err != nil {
		return nil, fmt.Errorf("listing metrics: %w", err)
	}
	defer rows.Close()

	var out []*MetricRow
	for rows.Next() {
		var m MetricRow
		var value sql.NullString
		if err := rows.Scan(&m.ID, &m.ExecutionID, &m.Name, &value); err != nil {
			return nil, fmt.Errorf("scanning metric: %w", err)
		}
		m.Value = value.String
		out = append(out, &m)
	}
	return out, rows.Err()
}
