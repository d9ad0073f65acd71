package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"rundash/internal/metrics"
	"rundash/internal/runs"
)

// SummaryFunc fetches one summary document by its store path.
type SummaryFunc func(ctx context.Context, path string) (*runs.Summary, error)

// Observer is told about every applied patch together with the snapshot it produced.
// Calls are serialized.
type Observer func(p Patch, next *State)

// Batch is one pass over a run index. It owns the aggregate state; everyone else
// reads snapshots.
type Batch struct {
	ID    string
	items []WorkItem

	mu      sync.RWMutex
	state   *State
	started bool

	latency *metrics.LatencyStats
	now     func() time.Time
	done    chan struct{}
}

// ItemsFromIndex turns index entries into work items, preserving order.
func ItemsFromIndex(idx *runs.Index) []WorkItem {
	if idx == nil {
		return nil
	}
	items := make([]WorkItem, 0, len(idx.Runs))
	for _, r := range idx.Runs {
		items = append(items, WorkItem{RunID: r.RunID, SummaryPath: r.SummaryPath})
	}
	return items
}

func NewBatch(items []WorkItem) *Batch {
	return newBatch(items, time.Now)
}

func newBatch(items []WorkItem, now func() time.Time) *Batch {
	id := uuid.NewString()
	return &Batch{
		ID:      id,
		items:   items,
		state:   NewState(id, items, now()),
		latency: metrics.NewLatencyStats(),
		now:     now,
		done:    make(chan struct{}),
	}
}

func (b *Batch) Items() []WorkItem {
	return b.items
}

// Snapshot returns the current state. The returned value must not be modified.
func (b *Batch) Snapshot() *State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Latency returns the batch's summary fetch latencies.
func (b *Batch) Latency() metrics.LatencySummary {
	return b.latency.Summary()
}

// Done is closed once every item has been attempted.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Run fetches every item with at most concurrency workers and folds each completion
// into the batch state. A batch can be run only once.
func (b *Batch) Run(ctx context.Context, concurrency int, fetch SummaryFunc, observe Observer) error {
	if b == nil {
		return fmt.Errorf("batch is nil")
	}
	if fetch == nil {
		return fmt.Errorf("summary func is nil")
	}

	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return fmt.Errorf("batch %s already started", b.ID)
	}
	b.started = true
	b.mu.Unlock()

	timed := func(ctx context.Context, it WorkItem) (*runs.Summary, error) {
		start := b.now()
		s, err := fetch(ctx, it.SummaryPath)
		b.latency.Record(b.now().Sub(start))
		return s, err
	}

	var applyErr error
	onUpdate := func(i int, res Result[*runs.Summary]) {
		p := Patch{Index: i, Result: res}
		b.mu.Lock()
		next, err := Apply(b.state, p)
		if err != nil {
			b.mu.Unlock()
			if applyErr == nil {
				applyErr = err
			}
			return
		}
		b.state = next
		b.mu.Unlock()

		if observe != nil {
			observe(p, next)
		}
	}

	err := Run(ctx, b.items, concurrency, timed, onUpdate)

	b.mu.Lock()
	b.state = b.state.Finish(b.now())
	b.mu.Unlock()
	close(b.done)

	if err != nil {
		return err
	}
	return applyErr
}
