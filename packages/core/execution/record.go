package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/testrig/packages/db"
)

// Record is one test execution: a single test function running once within
// a run. Its storage id scopes every step and metric persisted for it.
type Record struct {
	ID           int64
	TestRunID    string
	TestModule   string
	TestFunction string
	Name         string
	Description  string
	Environment  string

	Result      Result
	Failure     string
	FailureType string
	StartTime   time.Time
	EndTime     *time.Time
	Duration    float64

	metrics *MetricStore
}

// NewRecord creates an execution record for a test function within a run.
func NewRecord(run *Run, testModule, testFunction string) *Record {
	return &Record{
		TestRunID:    run.RunID,
		TestModule:   testModule,
		TestFunction: testFunction,
		Name:         testFunction,
		Environment:  run.Environment,
		Result:       ResultStarted,
		StartTime:    time.Now(),
		metrics:      NewMetricStore(),
	}
}

// SetLocation overrides the display name and description.
func (r *Record) SetLocation(name, description string) {
	if name != "" {
		r.Name = name
	}
	r.Description = description
}

// Metrics exposes the record's metric store.
func (r *Record) Metrics() *MetricStore {
	return r.metrics
}

// AddMetric stores a custom metric on the record.
func (r *Record) AddMetric(name string, value any) {
	r.metrics.Set(name, value)
}

// SetFailure records failure details ahead of End.
func (r *Record) SetFailure(message, failureType string) {
	r.Failure = message
	r.FailureType = failureType
}

// IsCompleted reports whether the execution reached a terminal result.
func (r *Record) IsCompleted() bool {
	return r.Result.IsCompleted()
}

// IsSuccessful reports whether the execution passed.
func (r *Record) IsSuccessful() bool {
	return r.Result.IsSuccessful()
}

// Persist inserts the execution row and assigns the storage id that step
// persistence keys on.
func (r *Record) Persist(ctx context.Context, d *db.DB) error {
	return d.WithSession(ctx, func(s *db.Session) error {
		id, err := s.InsertExecution(&db.ExecutionRow{
			TestRunID:    r.TestRunID,
			TestModule:   r.TestModule,
			TestFunction: r.TestFunction,
			Name:         r.Name,
			Description:  r.Description,
			Result:       string(r.Result),
			Environment:  r.Environment,
			StartTime:    r.StartTime,
		})
		if err != nil {
			return err
		}
		r.ID = id
		return nil
	})
}

// End marks the execution finished with the given result, then persists the
// terminal state and the collected metrics.
func (r *Record) End(ctx context.Context, d *db.DB, result Result) error {
	now := time.Now()
	r.EndTime = &now
	r.Duration = now.Sub(r.StartTime).Seconds()
	r.Result = result

	return d.WithSession(ctx, func(s *db.Session) error {
		if err := s.FinishExecution(r.ID, string(result), r.Failure, r.FailureType, now, r.Duration); err != nil {
			return err
		}
		return r.flushMetrics(s)
	})
}

// FlushMetrics persists the current metric values without ending the
// execution.
func (r *Record) FlushMetrics(ctx context.Context, d *db.DB) error {
	return d.WithSession(ctx, r.flushMetrics)
}

func (r *Record) flushMetrics(s *db.Session) error {
	for _, m := range r.metrics.All() {
		encoded, err := json.Marshal(m.Value)
		if err != nil {
			return fmt.Errorf("encoding metric %q: %w", m.Name, err)
		}
		if err := s.UpsertMetric(r.ID, m.Name, string(encoded)); err != nil {
			return err
		}
	}
	return nil
}
