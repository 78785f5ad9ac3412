package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/five82/drapto/internal/util"
)

// ResolutionCategory drives the per-sample memory weight used by the
// scheduler's admission-control budget.
type ResolutionCategory int

const (
	ResolutionSD ResolutionCategory = iota
	ResolutionHD
	ResolutionUHD
)

// MemoryWeight returns the token weight for a resolution category:
// SD=1, HD=2, UHD=4.
func (r ResolutionCategory) MemoryWeight() int64 {
	switch r {
	case ResolutionUHD:
		return 4
	case ResolutionHD:
		return 2
	default:
		return 1
	}
}

// CategoryForWidth classifies a video width into a resolution category,
// matching ParamPlanner's quality-tier thresholds.
func CategoryForWidth(width uint32) ResolutionCategory {
	switch {
	case width >= 3840:
		return ResolutionUHD
	case width >= 1920:
		return ResolutionHD
	default:
		return ResolutionSD
	}
}

const minMemoryPerJobMB = 256

// memoryRetryInterval is the sleep-poll period when no memory tokens are
// available.
const memoryRetryInterval = 100 * time.Millisecond

// MemoryTracker is the atomic, coarse-grained admission-control counter
// gating concurrent analysis probes under a memory budget sized from total
// system RAM. Release is expressed through a handle so callers can defer it
// and be certain the tokens come back even when a worker panics.
type MemoryTracker struct {
	inUse     int64
	maxTokens int64
}

// NewMemoryTracker builds a tracker capped at
// floor(0.75 * system_memory_mb / memory_per_job_mb), memory_per_job_mb
// floored to 256. When total memory cannot be determined, the
// tracker is conservative and allows exactly one token in flight.
func NewMemoryTracker(memoryPerJobMB uint64) *MemoryTracker {
	if memoryPerJobMB < minMemoryPerJobMB {
		memoryPerJobMB = minMemoryPerJobMB
	}

	totalMB := util.TotalMemoryBytes() / (1024 * 1024)
	if totalMB == 0 {
		return &MemoryTracker{maxTokens: 1}
	}

	available := float64(totalMB) * 0.75
	maxTokens := int64(available / float64(memoryPerJobMB))
	if maxTokens < 1 {
		maxTokens = 1
	}

	return &MemoryTracker{maxTokens: maxTokens}
}

// MemoryHandle is the guaranteed-on-exit scoping primitive for a memory
// acquisition: release it via `defer handle.Release()` immediately after a
// successful Acquire so that a panicking worker still relinquishes its
// tokens exactly once.
type MemoryHandle struct {
	tracker  *MemoryTracker
	weight   int64
	released int32
}

// Release returns the handle's tokens to the tracker. Safe to call more
// than once; only the first call has effect.
func (h *MemoryHandle) Release() {
	if h == nil {
		return
	}
	if atomic.CompareAndSwapInt32(&h.released, 0, 1) {
		atomic.AddInt64(&h.tracker.inUse, -h.weight)
	}
}

// Acquire blocks until `weight` memory tokens are available, sleep-polling
// every 100ms when the budget is exhausted, or until ctx is
// cancelled.
func (t *MemoryTracker) Acquire(ctx context.Context, weight int64) (*MemoryHandle, error) {
	for {
		current := atomic.LoadInt64(&t.inUse)
		if current+weight <= t.maxTokens {
			if atomic.CompareAndSwapInt64(&t.inUse, current, current+weight) {
				return &MemoryHandle{tracker: t, weight: weight}, nil
			}
			continue // lost the race, retry immediately
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(memoryRetryInterval):
		}
	}
}

// InUse reports the current token count, for tests and diagnostics.
func (t *MemoryTracker) InUse() int64 {
	return atomic.LoadInt64(&t.inUse)
}
