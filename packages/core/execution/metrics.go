package execution

import (
	"sync"
	"time"
)

// Metric is one named value attached to a test execution.
type Metric struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// MetricStore holds the custom metrics of one execution. Writes overwrite
// by name (last write wins) while insertion order is preserved for stable
// output. Values are normalized at write time so a value read back from
// storage compares equal to the value that was stored.
type MetricStore struct {
	mu     sync.Mutex
	order  []string
	values map[string]any
}

// NewMetricStore returns an empty store.
func NewMetricStore() *MetricStore {
	return &MetricStore{values: make(map[string]any)}
}

// Set stores a value under name. nil is a valid value, distinct from a
// missing key.
func (m *MetricStore) Set(name string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.values[name]; !exists {
		m.order = append(m.order, name)
	}
	m.values[name] = NormalizeValue(value)
}

// Get returns the stored value and whether the key exists.
func (m *MetricStore) Get(name string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[name]
	return v, ok
}

// All returns the metrics in insertion order.
func (m *MetricStore) All() []Metric {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Metric, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, Metric{Name: name, Value: m.values[name]})
	}
	return out
}

// Len returns the number of stored metrics.
func (m *MetricStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// NormalizeValue prepares a metric value for storage. Timestamps become
// RFC 3339 strings, recursively through maps and slices, so equality after
// a storage round-trip does not depend on time zone representation.
func NormalizeValue(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.Format(time.RFC3339Nano)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = NormalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = NormalizeValue(item)
		}
		return out
	default:
		return value
	}
}
