package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryTrackerAcquireRelease(t *testing.T) {
	tr := &MemoryTracker{maxTokens: 4}

	h1, err := tr.Acquire(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.InUse() != 2 {
		t.Errorf("expected InUse=2, got %d", tr.InUse())
	}

	h2, err := tr.Acquire(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.InUse() != 4 {
		t.Errorf("expected InUse=4, got %d", tr.InUse())
	}

	h1.Release()
	h1.Release() // double release must be a no-op
	if tr.InUse() != 2 {
		t.Errorf("expected InUse=2 after release, got %d", tr.InUse())
	}

	h2.Release()
	if tr.InUse() != 0 {
		t.Errorf("expected InUse=0, got %d", tr.InUse())
	}
}

func TestMemoryTrackerAcquireBlocksUntilAvailable(t *testing.T) {
	tr := &MemoryTracker{maxTokens: 1}

	h, err := tr.Acquire(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		h2, err := tr.Acquire(context.Background(), 1)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		h2.Release()
		close(done)
	}()

	time.Sleep(memoryRetryInterval * 2)
	h.Release()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second acquire never unblocked")
	}
}

func TestMemoryTrackerAcquireRespectsCancellation(t *testing.T) {
	tr := &MemoryTracker{maxTokens: 1}
	_, err := tr.Acquire(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = tr.Acquire(ctx, 1)
	if err == nil {
		t.Fatal("expected context deadline error, got nil")
	}
}

func TestCategoryForWidth(t *testing.T) {
	cases := []struct {
		width uint32
		want  ResolutionCategory
	}{
		{1280, ResolutionSD},
		{1920, ResolutionHD},
		{2560, ResolutionHD},
		{3840, ResolutionUHD},
		{7680, ResolutionUHD},
	}
	for _, c := range cases {
		if got := CategoryForWidth(c.width); got != c.want {
			t.Errorf("CategoryForWidth(%d) = %v, want %v", c.width, got, c.want)
		}
	}
}

func TestRunCollectsResultsAndDropsUnfulfilled(t *testing.T) {
	sched := &Scheduler{poolSize: 4, memory: &MemoryTracker{maxTokens: 8}}

	samples := []Sample{
		{Position: 0.1, Category: ResolutionSD},
		{Position: 0.2, Category: ResolutionSD},
		{Position: 0.3, Category: ResolutionSD},
	}

	results, err := Run(context.Background(), sched, samples, func(ctx context.Context, s Sample) (float64, bool, error) {
		if s.Position == 0.2 {
			return 0, false, nil // dropped, not an error
		}
		return s.Position, true, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %v", len(results), results)
	}
}

func TestRunFailsFastOnFatalError(t *testing.T) {
	sched := &Scheduler{poolSize: 2, memory: &MemoryTracker{maxTokens: 8}}

	samples := make([]Sample, 20)
	for i := range samples {
		samples[i] = Sample{Position: float64(i), Category: ResolutionSD}
	}

	var started int32
	boom := errors.New("boom")

	_, err := Run(context.Background(), sched, samples, func(ctx context.Context, s Sample) (int, bool, error) {
		atomic.AddInt32(&started, 1)
		if s.Position == 0 {
			return 0, false, boom
		}
		<-ctx.Done() // remaining samples unwind once the batch is cancelled
		return 0, false, ctx.Err()
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}
}
