// Package workpool runs independent tasks on a fixed number of goroutines and
// hands every task's outcome back to the caller.
package workpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// Result is the outcome of one task.
type Result[T, R any] struct {
	Index int
	Item  T
	Value R
	Err   error
}

// PanicError is reported for a task whose function panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Run starts workers goroutines that call fn for each item. One Result is
// sent per item, in completion order, and the channel is closed once all
// items are accounted for. When ctx is cancelled, items not yet started are
// reported with ctx's error.
func Run[T, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) (R, error)) <-chan Result[T, R] {
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan int, workers*2)
	results := make(chan Result[T, R], workers*2)

	wg := &sync.WaitGroup{}
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results <- call(ctx, i, items[i], fn)
			}
		}()
	}

	go func() {
		next := 0
	feed:
		for ; next < len(items); next++ {
			select {
			case jobs <- next:
			case <-ctx.Done():
				break feed
			}
		}
		close(jobs)
		wg.Wait()
		for ; next < len(items); next++ {
			results <- Result[T, R]{Index: next, Item: items[next], Err: ctx.Err()}
		}
		close(results)
	}()
	return results
}

// Collect drains a Run channel into a slice ordered by item index.
func Collect[T, R any](results <-chan Result[T, R], n int) []Result[T, R] {
	out := make([]Result[T, R], n)
	for r := range results {
		out[r.Index] = r
	}
	return out
}

func call[T, R any](ctx context.Context, i int, item T, fn func(context.Context, T) (R, error)) (res Result[T, R]) {
	res = Result[T, R]{Index: i, Item: item}
	defer func() {
		if p := recover(); p != nil {
			res.Err = &PanicError{Value: p, Stack: debug.Stack()}
		}
	}()
	res.Value, res.Err = fn(ctx, item)
	return res
}
