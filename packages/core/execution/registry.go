package execution

import "sync"

// Registry tracks the currently active execution per worker. Worker threads
// sharing a worker id see the same execution; distributed workers each hold
// their own registry in their own process.
type Registry struct {
	mu       sync.Mutex
	byWorker map[string]*Record
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byWorker: make(map[string]*Record)}
}

// Current returns the active execution for a worker, or nil.
func (r *Registry) Current(workerID string) *Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byWorker[workerID]
}

// Set makes rec the active execution for a worker. Passing nil clears it.
func (r *Registry) Set(workerID string, rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec == nil {
		delete(r.byWorker, workerID)
		return
	}
	r.byWorker[workerID] = rec
}

// Clear removes the worker's active execution.
func (r *Registry) Clear(workerID string) {
	r.Set(workerID, nil)
}
