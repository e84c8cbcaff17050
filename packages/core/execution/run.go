// Package execution tracks test runs and per-test execution records: who is
// running, which test is currently active on each worker, and the custom
// metrics collected along the way. It is the "current test execution"
// collaborator consumed by the step tracker.
package execution

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/testrig/packages/db"
)

// RunType describes how the test run was launched.
type RunType string

const (
	RunTypeSingle      RunType = "single"
	RunTypeCI          RunType = "ci"
	RunTypeDistributed RunType = "distributed"
)

// RunStatus is the lifecycle state of a test run.
type RunStatus string

const (
	RunStatusStarted   RunStatus = "started"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusError     RunStatus = "error"
)

// RunIDEnv names the environment variable a coordinating process uses to
// hand one shared run id to all workers.
const RunIDEnv = "TESTRIG_RUN_ID"

// Run represents one test run. In a distributed topology every worker
// process holds a Run with the same RunID, adopted from the environment.
type Run struct {
	RunID       string
	Type        RunType
	Status      RunStatus
	Owner       string
	Environment string
	Branch      string
	StartTime   time.Time
	EndTime     *time.Time
}

// RunOption configures NewRun.
type RunOption func(*Run)

func WithOwner(owner string) RunOption {
	return func(r *Run) { r.Owner = owner }
}

func WithEnvironment(env string) RunOption {
	return func(r *Run) { r.Environment = env }
}

func WithBranch(branch string) RunOption {
	return func(r *Run) { r.Branch = branch }
}

func WithRunType(t RunType) RunOption {
	return func(r *Run) { r.Type = t }
}

// NewRun creates a run. When TESTRIG_RUN_ID is set the id is adopted and
// the run is marked distributed; otherwise a fresh unique id is generated.
func NewRun(opts ...RunOption) *Run {
	r := &Run{
		Type:      RunTypeSingle,
		Status:    RunStatusStarted,
		StartTime: time.Now(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if id := os.Getenv(RunIDEnv); id != "" {
		r.RunID = id
		r.Type = RunTypeDistributed
	} else if r.RunID == "" {
		r.RunID = fmt.Sprintf("run_%s_%s",
			r.StartTime.Format("20060102_150405"),
			uuid.NewString()[:8])
	}
	return r
}

// Persist inserts the run row. Safe to call once per process; the RunID
// uniqueness constraint rejects duplicates, which distributed workers treat
// as "already registered by another worker".
func (r *Run) Persist(ctx context.Context, d *db.DB) error {
	return d.WithSession(ctx, func(s *db.Session) error {
		_, err := s.InsertRun(&db.RunRecord{
			RunID:       r.RunID,
			TestType:    string(r.Type),
			Status:      string(r.Status),
			Owner:       r.Owner,
			Environment: r.Environment,
			Branch:      r.Branch,
			StartTime:   r.StartTime,
		})
		return err
	})
}

// Finish marks the run terminal and records its duration.
func (r *Run) Finish(ctx context.Context, d *db.DB, status RunStatus) error {
	now := time.Now()
	r.Status = status
	r.EndTime = &now
	duration := now.Sub(r.StartTime).Seconds()
	return d.WithSession(ctx, func(s *db.Session) error {
		return s.FinishRun(r.RunID, string(status), now, duration)
	})
}
