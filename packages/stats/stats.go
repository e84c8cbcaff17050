// Package stats collects duration samples into HDR histograms for latency
// summaries of steps and retry attempts.
package stats

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Recorder aggregates duration samples. Safe for concurrent use.
type Recorder struct {
	mu sync.Mutex
	// 1us to 60s range, 3 significant digits
	hist *hdrhistogram.Histogram
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		hist: hdrhistogram.New(1, 60_000_000, 3),
	}
}

// Record adds one sample. Durations outside the histogram range are
// clamped by the histogram itself.
func (r *Recorder) Record(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.hist.RecordValue(d.Microseconds())
}

// Summary is a snapshot of the recorded distribution.
type Summary struct {
	Count int64
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
}

// Snapshot returns the current distribution.
func (r *Recorder) Snapshot() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return Summary{
		Count: r.hist.TotalCount(),
		Min:   us(r.hist.Min()),
		Max:   us(r.hist.Max()),
		Mean:  time.Duration(r.hist.Mean() * float64(time.Microsecond)),
		P50:   us(r.hist.ValueAtQuantile(50)),
		P95:   us(r.hist.ValueAtQuantile(95)),
		P99:   us(r.hist.ValueAtQuantile(99)),
	}
}

// Reset discards all samples.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hist.Reset()
}
