package workpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunDeliversEveryResult(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	var running, peak int32
	results := Collect(Run(context.Background(), 3, items, func(_ context.Context, n int) (int, error) {
		cur := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		if n == 4 {
			return 0, errors.New("four")
		}
		return n * n, nil
	}), len(items))

	for i, r := range results {
		if r.Index != i || r.Item != items[i] {
			t.Fatalf("result %d: %+v", i, r)
		}
		if items[i] == 4 {
			if r.Err == nil {
				t.Fatalf("expected error for item 4")
			}
			continue
		}
		if r.Err != nil || r.Value != items[i]*items[i] {
			t.Fatalf("result %d: %+v", i, r)
		}
	}
	if p := atomic.LoadInt32(&peak); p > 3 {
		t.Fatalf("peak concurrency %d exceeds pool size", p)
	}
}

func TestRunRecoversPanics(t *testing.T) {
	results := Collect(Run(context.Background(), 2, []string{"ok", "boom"}, func(_ context.Context, s string) (string, error) {
		if s == "boom" {
			panic("kaboom")
		}
		return s, nil
	}), 2)

	if results[0].Err != nil || results[0].Value != "ok" {
		t.Fatalf("first: %+v", results[0])
	}
	var perr *PanicError
	if !errors.As(results[1].Err, &perr) || perr.Value != "kaboom" || len(perr.Stack) == 0 {
		t.Fatalf("second: %+v", results[1])
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	items := make([]int, 50)
	var calls int32
	results := Collect(Run(ctx, 1, items, func(ctx context.Context, _ int) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, ctx.Err()
	}), len(items))
	for i, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Fatalf("result %d: %v", i, r.Err)
		}
	}
}

func TestRunEmpty(t *testing.T) {
	n := 0
	for range Run(context.Background(), 3, []int(nil), func(context.Context, int) (int, error) { return 0, nil }) {
		n++
	}
	if n != 0 {
		t.Fatalf("got %d results", n)
	}
}
