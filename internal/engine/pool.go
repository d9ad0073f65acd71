package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"rundash/internal/errmsg"
)

// ResultState is the lifecycle of one work item within a batch.
type ResultState int

const (
	Pending ResultState = iota
	Success
	Failure
)

func (s ResultState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return fmt.Sprintf("ResultState(%d)", int(s))
	}
}

// Result is the outcome of one work item: Pending, Success(Value) or Failure(Message).
type Result[V any] struct {
	State   ResultState
	Value   V
	Message string
}

func Succeeded[V any](v V) Result[V] {
	return Result[V]{State: Success, Value: v}
}

func Failed[V any](msg string) Result[V] {
	return Result[V]{State: Failure, Message: msg}
}

// FetchFunc fetches a single work item. It is called at most once per item.
type FetchFunc[T, V any] func(ctx context.Context, item T) (V, error)

// UpdateFunc receives the outcome of the item at index.
type UpdateFunc[V any] func(index int, res Result[V])

// Run fetches every item exactly once using at most concurrency workers.
//
// Semantics:
//   - Workers pull the next unclaimed index from a shared atomic cursor, so slow
//     items do not hold up the rest of the batch.
//   - onUpdate is called exactly once per item, in completion order. Calls are
//     serialized: onUpdate never runs concurrently with itself.
//   - A failing or panicking fetch becomes a Failure result for that item only.
//   - Run returns after every worker has exited. An empty batch returns immediately.
//   - ctx is handed to fetch; Run itself never abandons items, so a cancelled ctx
//     shows up as Failure results rather than missing updates.
//
// The only error returned is for invalid arguments.
func Run[T, V any](ctx context.Context, items []T, concurrency int, fetch FetchFunc[T, V], onUpdate UpdateFunc[V]) error {
	if ctx == nil {
		return errors.New("context is nil")
	}
	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}
	if fetch == nil {
		return errors.New("fetch func is nil")
	}
	if onUpdate == nil {
		return errors.New("update func is nil")
	}

	n := len(items)
	if n == 0 {
		return nil
	}

	var (
		cursor atomic.Int64
		mu     sync.Mutex
		wg     sync.WaitGroup
	)
	publish := func(i int, res Result[V]) {
		mu.Lock()
		defer mu.Unlock()
		onUpdate(i, res)
	}

	for w := 0; w < min(concurrency, n); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				// Claim before any blocking call.
				i := int(cursor.Add(1) - 1)
				if i >= n {
					return
				}
				publish(i, attempt(ctx, items[i], fetch))
			}
		}()
	}

	wg.Wait()
	return nil
}

func attempt[T, V any](ctx context.Context, item T, fetch FetchFunc[T, V]) (res Result[V]) {
	defer func() {
		if r := recover(); r != nil {
			res = Failed[V](errmsg.Message(errmsg.FromPanic(r)))
		}
	}()

	v, err := fetch(ctx, item)
	if err != nil {
		return Failed[V](errmsg.Message(err))
	}
	return Succeeded(v)
}
