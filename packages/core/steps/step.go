// Package steps is the hierarchical step-tracking engine. Test bodies open
// nested steps; each step gets a per-worker monotonic sequence number and a
// dotted hierarchical number (1, 1.1, 1.1.1, ...) resolved against the
// steps already persisted for the current execution, and is written to the
// results database as the hierarchy unfolds.
package steps

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"time"
)

// Step is one tracked unit of work.
type Step struct {
	// ID is the storage identifier, zero until persisted.
	ID int64

	// StepID is a process-unique token built from a microsecond timestamp,
	// the worker id, and the sequence number. It stays unique even if the
	// system clock repeats within a process.
	StepID string

	Content            string
	SequenceNumber     int
	HierarchicalNumber string
	IndentLevel        int
	Completed          bool
	StartTime          time.Time

	// Function is the name of the function that opened the step.
	Function string

	ExecutionID  int64
	TestFunction string

	// parent is a weak back-reference; the execution owns all steps.
	parent *Step
}

func newStep(content, workerID string, sequence int) *Step {
	return &Step{
		StepID:         fmt.Sprintf("step_%d_%s_%d", time.Now().UnixMicro(), workerID, sequence),
		Content:        content,
		SequenceNumber: sequence,
		StartTime:      time.Now(),
		Function:       callerFunction(),
	}
}

// Parent returns the step's parent, nil for root steps. Safe on a nil
// receiver so callers holding the no-execution sentinel need no checks.
func (s *Step) Parent() *Step {
	if s == nil {
		return nil
	}
	return s.parent
}

// Number returns the hierarchical number, empty on a nil receiver.
func (s *Step) Number() string {
	if s == nil {
		return ""
	}
	return s.HierarchicalNumber
}

// IsCompleted reports the completion flag, false on a nil receiver.
func (s *Step) IsCompleted() bool {
	if s == nil {
		return false
	}
	return s.Completed
}

// indentLevel is the depth of the step, counted by walking parent links.
func (s *Step) indentLevel() int {
	level := 0
	for p := s.parent; p != nil; p = p.parent {
		level++
	}
	return level
}

// cleanContent strips a stale "Step N:" prefix left over from a previous
// log pass, so stored content is stable across retries.
func (s *Step) cleanContent() string {
	pattern := regexp.MustCompile(fmt.Sprintf(`^Step %d:\s*`, s.SequenceNumber))
	return pattern.ReplaceAllString(s.Content, "")
}

// callerFunction walks the stack for the nearest frame outside this
// package and returns its bare function name. Naming only; correctness
// never depends on it.
func callerFunction() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.Contains(frame.Function, "/packages/core/steps.") {
			name := frame.Function
			if i := strings.LastIndex(name, "."); i >= 0 {
				name = name[i+1:]
			}
			return name
		}
		if !more {
			break
		}
	}
	return "unknown"
}
