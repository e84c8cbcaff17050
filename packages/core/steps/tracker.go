package steps

import (
	"context"
	"fmt"

	"github.com/abdul-hamid-achik/testrig/packages/core/execution"
	"github.com/abdul-hamid-achik/testrig/packages/db"
	"github.com/abdul-hamid-achik/testrig/packages/log"
)

// Tracker binds the sequence allocator, the results database, and the
// current-execution registry into the step-tracking engine. One Tracker is
// created per process and shared by all test bodies.
type Tracker struct {
	alloc      *Allocator
	db         *db.DB
	executions *execution.Registry
	logger     *log.Logger
}

// TrackerOption configures NewTracker.
type TrackerOption func(*Tracker)

// WithLogger directs step lines and diagnostics to l.
func WithLogger(l *log.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = l
	}
}

// WithAllocator injects a shared allocator.
func WithAllocator(a *Allocator) TrackerOption {
	return func(t *Tracker) {
		t.alloc = a
	}
}

// NewTracker creates a tracker over the given database and execution
// registry.
func NewTracker(d *db.DB, executions *execution.Registry, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		db:         d,
		executions: executions,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.alloc == nil {
		t.alloc = NewAllocator()
	}
	if t.logger == nil {
		t.logger = log.Default()
	}
	return t
}

// Allocator exposes the tracker's sequence allocator for harness cleanup.
func (t *Tracker) Allocator() *Allocator {
	return t.alloc
}

// ResetWorker clears the worker's sequence state, the logger's step
// counter, and the steps already persisted for the worker's current
// execution, so the next attempt numbers its hierarchy from a clean slate.
// Other workers' state and the current execution binding are untouched.
func (t *Tracker) ResetWorker(ctx context.Context, workerID string) error {
	t.alloc.Reset(workerID)
	t.logger.ResetStepCounter()

	rec := t.executions.Current(workerID)
	if rec == nil {
		return nil
	}
	return t.db.WithSession(ctx, func(s *db.Session) error {
		return s.DeleteSteps(rec.ID)
	})
}

// StepOption configures Begin.
type StepOption func(*Step)

// WithFunction overrides the captured caller function name.
func WithFunction(name string) StepOption {
	return func(s *Step) {
		s.Function = name
	}
}

// Scope is one entered step. End must be called on every exit path; Run
// does this for callers.
type Scope struct {
	tracker *Tracker
	step    *Step
	parent  *Step
	worker  string
	ended   bool
}

// Step returns the scope's step, nil when no execution was active.
func (sc *Scope) Step() *Step {
	if sc == nil {
		return nil
	}
	return sc.step
}

// Begin opens a step: it resolves the parent from the worker's current
// step, computes the hierarchical number against already-persisted
// siblings, persists the step, logs it, and makes it the worker's current
// step. When no execution is active it logs a warning and returns a no-op
// scope whose Step is nil; nested steps beneath a missing execution are
// skipped, not errors.
func (t *Tracker) Begin(ctx context.Context, content string, opts ...StepOption) (*Scope, error) {
	worker := WorkerID()

	rec := t.executions.Current(worker)
	if rec == nil {
		t.logger.Warn("no active test execution found for step", "step", content)
		return &Scope{tracker: t, worker: worker}, nil
	}

	parent := t.alloc.CurrentStep(worker)

	seq := t.alloc.NextSequence(worker)
	step := newStep(content, worker, seq)
	for _, opt := range opts {
		opt(step)
	}
	step.parent = parent
	step.ExecutionID = rec.ID
	step.TestFunction = rec.TestFunction

	err := t.db.WithSession(ctx, func(s *db.Session) error {
		step.IndentLevel = step.indentLevel()

		number, err := t.hierarchicalNumber(s, step)
		if err != nil {
			return err
		}
		step.HierarchicalNumber = number
		step.Content = step.cleanContent()

		parentID := (*int64)(nil)
		if parent != nil {
			parentID = &parent.ID
		}
		id, err := s.InsertStep(&db.StepRow{
			StepID:             step.StepID,
			SequenceNumber:     step.SequenceNumber,
			HierarchicalNumber: step.HierarchicalNumber,
			IndentLevel:        step.IndentLevel,
			ParentStepID:       parentID,
			Function:           step.Function,
			Content:            step.Content,
			ExecutionID:        step.ExecutionID,
			TestFunction:       step.TestFunction,
			Completed:          false,
			StartTime:          step.StartTime,
		})
		if err != nil {
			return err
		}
		// Children key their parent_step_id and sibling counts on this id,
		// and End updates the completed flag through it.
		step.ID = id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("starting step %q: %w", content, err)
	}

	t.logger.Step(step.HierarchicalNumber, step.IndentLevel, step.Content)
	t.alloc.SetCurrentStep(worker, step)

	return &Scope{tracker: t, step: step, parent: parent, worker: worker}, nil
}

// hierarchicalNumber computes the dotted number from persisted sibling
// counts: root steps count the execution's existing roots, children count
// the parent's existing children. Numbers are immutable once assigned.
func (t *Tracker) hierarchicalNumber(s *db.Session, step *Step) (string, error) {
	if step.parent == nil {
		count, err := s.CountRootSteps(step.ExecutionID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", count+1), nil
	}

	count, err := s.CountChildSteps(step.ExecutionID, step.parent.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%d", step.parent.HierarchicalNumber, count+1), nil
}

// End closes the scope. On a nil bodyErr the step is marked completed and
// the update persisted; a persistence error there is returned. On a non-nil
// bodyErr completion is attempted best-effort in a fresh session — a
// failure to persist it is logged and swallowed so bodyErr propagates
// unobstructed. On every path the worker's current step is restored to the
// parent this scope saw at Begin.
func (sc *Scope) End(ctx context.Context, bodyErr error) error {
	if sc == nil || sc.step == nil || sc.ended {
		return bodyErr
	}
	sc.ended = true
	t := sc.tracker

	defer t.alloc.SetCurrentStep(sc.worker, sc.parent)

	sc.step.Completed = true
	err := t.db.WithSession(ctx, func(s *db.Session) error {
		return s.MarkStepCompleted(sc.step.ID)
	})

	if bodyErr != nil {
		if err != nil {
			t.logger.Error("failed to complete step", "step", sc.step.StepID, "error", err)
		}
		return bodyErr
	}
	if err != nil {
		return fmt.Errorf("completing step %q: %w", sc.step.Content, err)
	}
	return nil
}

// Run opens a step, executes body with it, and closes the scope on every
// exit path including panics. body receives a nil *Step when no execution
// is active.
func (t *Tracker) Run(ctx context.Context, content string, body func(*Step) error) error {
	return t.run(ctx, content, nil, body)
}

// RunNamed is Run with an explicit function name for the step record.
func (t *Tracker) RunNamed(ctx context.Context, content, function string, body func(*Step) error) error {
	return t.run(ctx, content, []StepOption{WithFunction(function)}, body)
}

func (t *Tracker) run(ctx context.Context, content string, opts []StepOption, body func(*Step) error) error {
	sc, err := t.Begin(ctx, content, opts...)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			// Best-effort completion and parent restore, then let the
			// original panic continue.
			_ = sc.End(ctx, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	return sc.End(ctx, body(sc.Step()))
}
