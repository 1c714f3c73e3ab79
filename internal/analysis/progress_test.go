package analysis

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestTracker() *ProgressTracker {
	t := NewProgressTracker()
	t.stageDelay = time.Millisecond
	return t
}

func TestProgressTracker_TerminalSnapshot(t *testing.T) {
	tracker := newTestTracker()

	var mu sync.Mutex
	var last Progress
	tracker.Subscribe("a", func(p Progress) {
		mu.Lock()
		last = p
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tracker.Simulate(ctx, "a")
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done
	tracker.Finish("a")
	tracker.Unsubscribe("a")

	mu.Lock()
	defer mu.Unlock()
	if !last.Done() {
		t.Errorf("terminal snapshot incomplete: %+v", last)
	}
}

func TestProgressTracker_ConcurrentIDsIsolated(t *testing.T) {
	tracker := newTestTracker()

	var mu sync.Mutex
	counts := map[string]int{}
	tracker.Subscribe("a", func(Progress) {
		mu.Lock()
		counts["a"]++
		mu.Unlock()
	})

	// No subscription for "b": its snapshots must go nowhere.
	tracker.Finish("b")
	tracker.Finish("a")

	mu.Lock()
	defer mu.Unlock()
	if counts["a"] != 1 {
		t.Errorf("subscriber a received %d snapshots, want 1", counts["a"])
	}
	if counts["b"] != 0 {
		t.Errorf("unsubscribed id b received %d snapshots, want 0", counts["b"])
	}
}

func TestProgressTracker_UnsubscribeStopsDelivery(t *testing.T) {
	tracker := newTestTracker()

	calls := 0
	tracker.Subscribe("a", func(Progress) { calls++ })
	tracker.Finish("a")
	tracker.Unsubscribe("a")
	tracker.Finish("a")

	if calls != 1 {
		t.Errorf("callback ran %d times, want 1 (delivery must stop after unsubscribe)", calls)
	}
}

func TestNewProgress_AllPending(t *testing.T) {
	p := NewProgress()
	for name, status := range map[string]StageStatus{
		"orchestrator":  p.Orchestrator,
		"imaging":       p.Imaging,
		"lab":           p.Lab,
		"history":       p.History,
		"comprehensive": p.Comprehensive,
	} {
		if status != StagePending {
			t.Errorf("stage %s = %q, want pending", name, status)
		}
	}
	if p.Done() {
		t.Error("fresh progress must not be done")
	}
}
