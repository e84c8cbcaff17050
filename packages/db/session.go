package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Session is a transactional scope over the results database. It is handed
// out by WithSession and is only valid until the callback returns.
type Session struct {
	ctx context.Context
	tx  *sql.Tx
}

// WithSession runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise; fn's error is returned unchanged so
// callers never see bookkeeping errors in place of their own.
func (d *DB) WithSession(ctx context.Context, fn func(*Session) error) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&Session{ctx: ctx, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// InsertRun persists a test run row.
func (s *Session) InsertRun(r *RunRecord) (int64, error) {
	res, err := s.tx.ExecContext(s.ctx, `
		INSERT INTO test_runs
			(test_run_id, test_type, status, owner, environment, branch, start_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.TestType, r.Status, r.Owner, r.Environment, r.Branch, r.StartTime)
	if err != nil {
		return 0, fmt.Errorf("inserting test run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading test run id: %w", err)
	}
	r.ID = id
	return id, nil
}

// FinishRun records the terminal status and timing of a run.
func (s *Session) FinishRun(runID string, status string, endTime time.Time, duration float64) error {
	_, err := s.tx.ExecContext(s.ctx, `
		UPDATE test_runs SET status = ?, end_time = ?, duration = ?
		WHERE test_run_id = ?`,
		status, endTime, duration, runID)
	if err != nil {
		return fmt.Errorf("finishing test run: %w", err)
	}
	return nil
}

// InsertExecution persists an execution record and assigns its storage id.
func (s *Session) InsertExecution(e *ExecutionRow) (int64, error) {
	res, err := s.tx.ExecContext(s.ctx, `
		INSERT INTO test_executions
			(test_run_id, test_module, test_function, name, description,
			 result, failure, failure_type, environment, start_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TestRunID, e.TestModule, e.TestFunction, e.Name, e.Description,
		e.Result, e.Failure, e.FailureType, e.Environment, e.StartTime)
	if err != nil {
		return 0, fmt.Errorf("inserting execution: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading execution id: %w", err)
	}
	e.ID = id
	return id, nil
}

// FinishExecution records the terminal result of an execution.
func (s *Session) FinishExecution(id int64, result, failure, failureType string, endTime time.Time, duration float64) error {
	_, err := s.tx.ExecContext(s.ctx, `
		UPDATE test_executions
		SET result = ?, failure = ?, failure_type = ?, end_time = ?, duration = ?
		WHERE id = ?`,
		result, failure, failureType, endTime, duration, id)
	if err != nil {
		return fmt.Errorf("finishing execution: %w", err)
	}
	return nil
}

// InsertStep persists a step row and assigns its storage id without ending
// the transaction.
func (s *Session) InsertStep(r *StepRow) (int64, error) {
	var parent any
	if r.ParentStepID != nil {
		parent = *r.ParentStepID
	}
	res, err := s.tx.ExecContext(s.ctx, `
		INSERT INTO steps
			(step_id, sequence_number, hierarchical_number, indent_level,
			 parent_step_id, step_function, content, execution_id,
			 test_function, completed, start_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StepID, r.SequenceNumber, r.HierarchicalNumber, r.IndentLevel,
		parent, r.Function, r.Content, r.ExecutionID,
		r.TestFunction, r.Completed, r.StartTime)
	if err != nil {
		return 0, fmt.Errorf("inserting step: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading step id: %w", err)
	}
	r.ID = id
	return id, nil
}

// CountRootSteps returns how many root steps the execution already has.
func (s *Session) CountRootSteps(executionID int64) (int, error) {
	var n int
	err := s.tx.QueryRowContext(s.ctx, `
		SELECT COUNT(*) FROM steps
		WHERE execution_id = ? AND parent_step_id IS NULL`,
		executionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting root steps: %w", err)
	}
	return n, nil
}

// CountChildSteps returns how many children the given persisted step has.
func (s *Session) CountChildSteps(executionID, parentStepID int64) (int, error) {
	var n int
	err := s.tx.QueryRowContext(s.ctx, `
		SELECT COUNT(*) FROM steps
		WHERE execution_id = ? AND parent_step_id = ?`,
		executionID, parentStepID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting child steps: %w", err)
	}
	return n, nil
}

// MarkStepCompleted flips the completed flag for one step.
func (s *Session) MarkStepCompleted(id int64) error {
	_, err := s.tx.ExecContext(s.ctx, `UPDATE steps SET completed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking step completed: %w", err)
	}
	return nil
}

// DeleteSteps removes every step persisted for an execution. Retry
// coordination uses this in reset mode so the next attempt numbers its
// hierarchy from a clean slate.
func (s *Session) DeleteSteps(executionID int64) error {
	// Children reference parents within the same execution; clear the back
	// references first so the FK constraint holds mid-delete.
	if _, err := s.tx.ExecContext(s.ctx,
		`UPDATE steps SET parent_step_id = NULL WHERE execution_id = ?`, executionID); err != nil {
		return fmt.Errorf("unlinking steps: %w", err)
	}
	if _, err := s.tx.ExecContext(s.ctx,
		`DELETE FROM steps WHERE execution_id = ?`, executionID); err != nil {
		return fmt.Errorf("deleting steps: %w", err)
	}
	return nil
}

// UpsertMetric writes one custom metric, replacing any previous value under
// the same name for the execution (last write wins).
func (s *Session) UpsertMetric(executionID int64, name, valueJSON string) error {
	_, err := s.tx.ExecContext(s.ctx, `
		INSERT INTO custom_metrics (execution_id, name, value)
		VALUES (?, ?, ?)
		ON CONFLICT(execution_id, name) DO UPDATE SET value = excluded.value`,
		executionID, name, valueJSON)
	if err != nil {
		return fmt.Errorf("upserting metric %q: %w", name, err)
	}
	return nil
}
