// Package scheduler implements the SampleScheduler: a bounded worker pool
// with memory-token admission control used to run crop-detection and
// noise-analysis sample probes concurrently without overrunning system
// memory.
package scheduler

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Sample is one unit of scheduled work: a single ffmpeg sample probe at a
// given position, tagged with the resolution category used to weight its
// memory cost.
type Sample struct {
	Position float64
	Category ResolutionCategory
}

// Work is a per-sample probe function. A non-nil error is treated as fatal
// and cancels the remaining batch (fail-fast); ok=false with a nil error
// means the sample yielded no usable result and is simply dropped.
type Work[T any] func(ctx context.Context, s Sample) (result T, ok bool, err error)

// Scheduler bounds concurrent sample probes by both a worker-count limit
// and a memory-token budget, failing the whole batch fast on the first
// fatal per-sample error.
type Scheduler struct {
	poolSize int
	memory   *MemoryTracker
}

// New builds a Scheduler. poolSize is clamped to
// min(runtime.NumCPU(), maxConcurrency); maxConcurrency<=0 leaves it at
// runtime.NumCPU().
func New(maxConcurrency int, memoryPerJobMB uint64) *Scheduler {
	pool := runtime.NumCPU()
	if maxConcurrency > 0 && maxConcurrency < pool {
		pool = maxConcurrency
	}
	return &Scheduler{
		poolSize: pool,
		memory:   NewMemoryTracker(memoryPerJobMB),
	}
}

// Run dispatches work over samples, returning the unordered slice of
// successful results. A fatal error from any worker cancels the batch's
// context and is returned; other in-flight workers observe ctx.Done and
// unwind via their own ctx checks.
func Run[T any](ctx context.Context, sched *Scheduler, samples []Sample, work Work[T]) ([]T, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sched.poolSize)

	results := make(chan T, len(samples))

	for _, sample := range samples {
		sample := sample
		g.Go(func() error {
			handle, err := sched.memory.Acquire(gctx, sample.Category.MemoryWeight())
			if err != nil {
				return err
			}
			defer handle.Release()

			result, ok, err := work(gctx, sample)
			if err != nil {
				return err
			}
			if ok {
				results <- result
			}
			return nil
		})
	}

	err := g.Wait()
	close(results)

	out := make([]T, 0, len(results))
	for r := range results {
		out = append(out, r)
	}

	if err != nil {
		return out, err
	}
	return out, nil
}
