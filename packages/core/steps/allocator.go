package steps

import (
	"os"
	"sync"
)

// WorkerEnv names the environment variable carrying the distributed worker
// id. Each worker process owns a disjoint sequence-numbering space, so no
// cross-process coordination is needed.
const WorkerEnv = "TESTRIG_WORKER"

// DefaultWorker is the worker id used when none is configured.
const DefaultWorker = "master"

// WorkerID resolves the current worker id from the environment.
func WorkerID() string {
	if id := os.Getenv(WorkerEnv); id != "" {
		return id
	}
	return DefaultWorker
}

// Allocator hands out monotonic step sequence numbers and tracks the
// currently open step, both keyed by worker id. One Allocator is created
// per process and injected into the Tracker; worker threads sharing a
// worker id contend on the internal lock, which is what keeps NextSequence
// free of lost updates.
type Allocator struct {
	mu      sync.Mutex
	lastSeq map[string]int
	current map[string]*Step
}

// NewAllocator returns an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{
		lastSeq: make(map[string]int),
		current: make(map[string]*Step),
	}
}

// NextSequence returns the next sequence number for a worker. Numbers start
// at 1 and are never reused within the process lifetime unless Reset is
// called for that worker.
func (a *Allocator) NextSequence(workerID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	next := a.lastSeq[workerID] + 1
	a.lastSeq[workerID] = next
	return next
}

// CurrentStep returns the step currently open for a worker, or nil. Lookup
// only; the caller does not take ownership.
func (a *Allocator) CurrentStep(workerID string) *Step {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current[workerID]
}

// SetCurrentStep replaces the worker's current step pointer. Passing nil
// clears it.
func (a *Allocator) SetCurrentStep(workerID string, s *Step) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s == nil {
		delete(a.current, workerID)
		return
	}
	a.current[workerID] = s
}

// Reset clears the counter and current step for one worker. Used between
// test cases and between retry attempts in reset mode.
func (a *Allocator) Reset(workerID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.lastSeq, workerID)
	delete(a.current, workerID)
}

// ResetAll clears state for every worker.
func (a *Allocator) ResetAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastSeq = make(map[string]int)
	a.current = make(map[string]*Step)
}

// ResetForTest clears all workers and re-seeds the given worker's counter
// at zero, so the next step it opens is numbered 1.
func (a *Allocator) ResetForTest(workerID string) {
	a.ResetAll()
	a.mu.Lock()
	a.lastSeq[workerID] = 0
	a.mu.Unlock()
}
