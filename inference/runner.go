// Package inference - Model execution behind a runtime-agnostic interface.
package inference

import (
	"context"
	"sync"
	"time"
)

// Runner executes a model on a flat input tensor and returns the flat output tensor.
type Runner interface {
	// Run executes one inference pass.
	Run(ctx context.Context, input []float32) ([]float32, error)
	// Close releases the runtime resources held by the runner.
	Close() error
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context, input []float32) ([]float32, error)

// Run calls f(ctx, input).
func (f RunnerFunc) Run(ctx context.Context, input []float32) ([]float32, error) {
	return f(ctx, input)
}

// Close is a no-op.
func (f RunnerFunc) Close() error {
	return nil
}

// Stats is a snapshot of the latency counters of a runner.
type Stats struct {
	// Count is the number of completed runs.
	Count int64 `json:"count"`
	// Total is the accumulated run time.
	Total time.Duration `json:"total"`
	// Last is the duration of the most recent run.
	Last time.Duration `json:"last"`
}

// Mean returns the average run duration, or zero when nothing has run.
func (s Stats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// FPS returns the throughput implied by the mean run duration.
func (s Stats) FPS() float64 {
	mean := s.Mean()
	if mean <= 0 {
		return 0
	}
	return float64(time.Second) / float64(mean)
}

// statsRecorder accumulates run durations.
type statsRecorder struct {
	mu    sync.RWMutex
	stats Stats
}

func (r *statsRecorder) record(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Count++
	r.stats.Total += d
	r.stats.Last = d
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

func (r *statsRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = Stats{}
}
