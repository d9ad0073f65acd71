package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rundash/internal/store"
)

func collect[V any](t *testing.T, n int) (UpdateFunc[V], func() map[int][]Result[V]) {
	t.Helper()
	var mu sync.Mutex
	got := make(map[int][]Result[V], n)
	return func(i int, res Result[V]) {
			mu.Lock()
			defer mu.Unlock()
			got[i] = append(got[i], res)
		}, func() map[int][]Result[V] {
			mu.Lock()
			defer mu.Unlock()
			return got
		}
}

func TestRun_EachIndexUpdatedExactlyOnce(t *testing.T) {
	for _, n := range []int{1, 2, 7, 50} {
		for _, k := range []int{1, 2, 3, 6, 100} {
			t.Run(fmt.Sprintf("n=%d/k=%d", n, k), func(t *testing.T) {
				items := make([]int, n)
				for i := range items {
					items[i] = i
				}
				var calls atomic.Int64
				onUpdate, results := collect[int](t, n)

				err := Run(context.Background(), items, k, func(_ context.Context, v int) (int, error) {
					calls.Add(1)
					return v * 10, nil
				}, onUpdate)
				require.NoError(t, err)

				got := results()
				require.Len(t, got, n)
				for i := 0; i < n; i++ {
					require.Len(t, got[i], 1, "index %d", i)
					assert.Equal(t, Success, got[i][0].State)
					assert.Equal(t, i*10, got[i][0].Value)
				}
				assert.Equal(t, int64(n), calls.Load())
			})
		}
	}
}

func TestRun_EmptyItemsCompletesImmediately(t *testing.T) {
	var updates atomic.Int64
	err := Run(context.Background(), []WorkItem{}, 6, func(context.Context, WorkItem) (string, error) {
		t.Fatal("fetch must not be called")
		return "", nil
	}, func(int, Result[string]) {
		updates.Add(1)
	})
	require.NoError(t, err)
	assert.Zero(t, updates.Load())
}

func TestRun_InvalidArguments(t *testing.T) {
	fetch := func(context.Context, int) (int, error) { return 0, nil }
	update := func(int, Result[int]) {}

	require.ErrorContains(t, Run(context.Background(), []int{1}, 0, fetch, update), "concurrency must be >= 1")
	require.ErrorContains(t, Run(context.Background(), []int{1}, -3, fetch, update), "concurrency must be >= 1")
	require.ErrorContains(t, Run[int, int](context.Background(), []int{1}, 1, nil, update), "fetch func is nil")
	require.ErrorContains(t, Run(context.Background(), []int{1}, 1, fetch, nil), "update func is nil")
	var nilCtx context.Context
	require.ErrorContains(t, Run(nilCtx, []int{1}, 1, fetch, update), "context is nil")
}

func TestRun_ConcurrencyIsBounded(t *testing.T) {
	tests := []struct {
		name    string
		n, k    int
		wantMax int
	}{
		{name: "k below n", n: 20, k: 3, wantMax: 3},
		{name: "k above n", n: 4, k: 10, wantMax: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var active, peak atomic.Int64
			items := make([]int, tt.n)
			onUpdate, results := collect[int](t, tt.n)

			err := Run(context.Background(), items, tt.k, func(context.Context, int) (int, error) {
				cur := active.Add(1)
				for {
					p := peak.Load()
					if cur <= p || peak.CompareAndSwap(p, cur) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				active.Add(-1)
				return 1, nil
			}, onUpdate)
			require.NoError(t, err)

			assert.LessOrEqual(t, peak.Load(), int64(tt.wantMax))
			assert.Len(t, results(), tt.n)
		})
	}
}

func TestRun_FailureDoesNotBlockOtherItems(t *testing.T) {
	items := []WorkItem{
		{RunID: "A", SummaryPath: "runs/A/summary.json"},
		{RunID: "B", SummaryPath: "runs/B/summary.json"},
		{RunID: "C", SummaryPath: "runs/C/summary.json"},
	}
	var updates atomic.Int64
	onUpdate, results := collect[string](t, len(items))

	err := Run(context.Background(), items, 2, func(_ context.Context, it WorkItem) (string, error) {
		if it.RunID == "B" {
			return "", &store.StatusError{What: "summary", StatusCode: http.StatusNotFound, StatusText: "Not Found"}
		}
		return it.RunID, nil
	}, func(i int, res Result[string]) {
		updates.Add(1)
		onUpdate(i, res)
	})
	require.NoError(t, err)

	got := results()
	assert.Equal(t, int64(3), updates.Load())
	assert.Equal(t, Success, got[0][0].State)
	assert.Equal(t, "A", got[0][0].Value)
	assert.Equal(t, Failure, got[1][0].State)
	assert.Contains(t, got[1][0].Message, "404")
	assert.Equal(t, Success, got[2][0].State)
	assert.Equal(t, "C", got[2][0].Value)
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	onUpdate, results := collect[int](t, 3)
	err := Run(context.Background(), []int{0, 1, 2}, 3, func(_ context.Context, v int) (int, error) {
		if v == 1 {
			panic(errors.New("nil summary"))
		}
		return v, nil
	}, onUpdate)
	require.NoError(t, err)

	got := results()
	require.Len(t, got, 3)
	assert.Equal(t, Failure, got[1][0].State)
	assert.Equal(t, "panic: nil summary", got[1][0].Message)
	assert.Equal(t, Success, got[0][0].State)
	assert.Equal(t, Success, got[2][0].State)
}

func TestRun_UpdatesAreSerialized(t *testing.T) {
	var inUpdate atomic.Bool
	var overlaps atomic.Int64
	items := make([]int, 40)

	err := Run(context.Background(), items, 8, func(context.Context, int) (int, error) {
		return 0, nil
	}, func(int, Result[int]) {
		if !inUpdate.CompareAndSwap(false, true) {
			overlaps.Add(1)
			return
		}
		time.Sleep(100 * time.Microsecond)
		inUpdate.Store(false)
	})
	require.NoError(t, err)
	assert.Zero(t, overlaps.Load())
}

func TestRun_PullBasedRebalancing(t *testing.T) {
	// Item 0 blocks until every other item has been published. With static
	// partitioning across two workers this would deadlock; with a shared cursor the
	// second worker drains the rest of the batch.
	const n = 10
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	release := make(chan struct{})
	var order []int

	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), items, 2, func(_ context.Context, v int) (int, error) {
			if v == 0 {
				<-release
			}
			return v, nil
		}, func(i int, _ Result[int]) {
			order = append(order, i)
			if len(order) == n-1 {
				close(release)
			}
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run deadlocked: slow item blocked the rest of the batch")
	}
	require.Len(t, order, n)
	assert.Equal(t, 0, order[n-1], "slow item should complete last")
}

func TestRun_CancelledContextStillReportsEveryItem(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	onUpdate, results := collect[int](t, 5)
	err := Run(ctx, make([]int, 5), 2, func(ctx context.Context, _ int) (int, error) {
		return 0, ctx.Err()
	}, onUpdate)
	require.NoError(t, err)

	got := results()
	require.Len(t, got, 5)
	for i := 0; i < 5; i++ {
		require.Len(t, got[i], 1)
		assert.Equal(t, Failure, got[i][0].State)
		assert.Equal(t, context.Canceled.Error(), got[i][0].Message)
	}
}
