package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestForCoversEntireRange(t *testing.T) {
	n := 37
	counts := make([]int32, n)
	For(n, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&counts[i], 1)
		}
	})
	for i, c := range counts {
		if c != 1 {
			t.Fatalf("expected index %d to be processed once, got %d", i, c)
		}
	}
}

func TestForNoopOnNonPositive(t *testing.T) {
	called := false
	For(0, func(start, end int) {
		called = true
	})
	if called {
		t.Fatalf("expected callback to remain unused")
	}
}

func TestEachVisitsEveryIndex(t *testing.T) {
	var total int64
	err := Each(context.Background(), 50, func(i int) error {
		atomic.AddInt64(&total, int64(i))
		return nil
	})
	if err != nil {
		t.Fatalf("Each failed: %v", err)
	}
	if total != 49*50/2 {
		t.Fatalf("unexpected index sum %d", total)
	}
}

func TestEachReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := Each(context.Background(), 10, func(i int) error {
		if i == 3 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestEachStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls int32
	err := Each(ctx, 8, func(i int) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no calls after cancel, got %d", calls)
	}
}

func TestWorkersBounds(t *testing.T) {
	if w := Workers(1); w != 1 {
		t.Fatalf("expected 1 worker for a single item, got %d", w)
	}
	if w := Workers(0); w != 1 {
		t.Fatalf("expected at least one worker, got %d", w)
	}
}
