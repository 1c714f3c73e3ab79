package analysis

import (
	"context"
	"sync"
	"time"
)

// StageStatus is the state of one pipeline stage.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageProcessing StageStatus = "processing"
	StageCompleted  StageStatus = "completed"
)

// Progress is a snapshot of the five-stage analysis pipeline. Stages complete
// left to right by convention; nothing mechanically enforces that order.
type Progress struct {
	Orchestrator  StageStatus `json:"orchestrator"`
	Imaging       StageStatus `json:"imaging"`
	Lab           StageStatus `json:"lab"`
	History       StageStatus `json:"history"`
	Comprehensive StageStatus `json:"comprehensive"`
}

// NewProgress returns a snapshot with every stage pending.
func NewProgress() Progress {
	return Progress{
		Orchestrator:  StagePending,
		Imaging:       StagePending,
		Lab:           StagePending,
		History:       StagePending,
		Comprehensive: StagePending,
	}
}

// Done reports whether every stage has completed.
func (p Progress) Done() bool {
	return p.Orchestrator == StageCompleted &&
		p.Imaging == StageCompleted &&
		p.Lab == StageCompleted &&
		p.History == StageCompleted &&
		p.Comprehensive == StageCompleted
}

// ProgressCallback receives progress snapshots for one analysis.
type ProgressCallback func(Progress)

// ProgressTracker fans progress snapshots out to per-analysis callbacks.
// Callbacks are keyed by a per-call random id so concurrent analyses do not
// observe each other's progress.
//
// The staged transitions are simulated with fixed delays: the only real
// asynchronous work is the single generation call, and the staged appearance
// exists to drive UI feedback, not to report true sub-task completion.
type ProgressTracker struct {
	mu         sync.Mutex
	subs       map[string]ProgressCallback
	stageDelay time.Duration
}

// NewProgressTracker constructs a tracker with the default stage delay.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		subs:       make(map[string]ProgressCallback),
		stageDelay: 800 * time.Millisecond,
	}
}

// Subscribe registers the callback for the given analysis id.
func (t *ProgressTracker) Subscribe(id string, cb ProgressCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs[id] = cb
}

// Unsubscribe removes the callback for the given analysis id. It must be
// called when the analysis finishes or fails, or the registration leaks.
func (t *ProgressTracker) Unsubscribe(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subs, id)
}

func (t *ProgressTracker) emit(id string, p Progress) {
	t.mu.Lock()
	cb := t.subs[id]
	t.mu.Unlock()
	if cb != nil {
		cb(p)
	}
}

// Simulate drives the staged snapshots for one analysis until the context is
// cancelled. It leaves the comprehensive stage processing; Finish emits the
// terminal snapshot once the real work is done.
func (t *ProgressTracker) Simulate(ctx context.Context, id string) {
	p := NewProgress()

	steps := []func(*Progress){
		func(p *Progress) { p.Orchestrator = StageProcessing },
		func(p *Progress) { p.Orchestrator = StageCompleted; p.Imaging = StageProcessing },
		func(p *Progress) { p.Imaging = StageCompleted; p.Lab = StageProcessing },
		func(p *Progress) { p.Lab = StageCompleted; p.History = StageProcessing },
		func(p *Progress) { p.History = StageCompleted; p.Comprehensive = StageProcessing },
	}

	for i, step := range steps {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(t.stageDelay):
			}
		}
		step(&p)
		t.emit(id, p)
	}

	<-ctx.Done()
}

// Finish emits the terminal all-completed snapshot for the given analysis.
func (t *ProgressTracker) Finish(id string) {
	t.emit(id, Progress{
		Orchestrator:  StageCompleted,
		Imaging:       StageCompleted,
		Lab:           StageCompleted,
		History:       StageCompleted,
		Comprehensive: StageCompleted,
	})
}
