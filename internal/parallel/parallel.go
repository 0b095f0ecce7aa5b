package parallel

import (
	"context"
	"runtime"
	"sync"
)

// For splits [0, n) into contiguous chunks and runs fn over them on up to
// GOMAXPROCS goroutines. It returns once every chunk is done.
func For(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	workers := Workers(n)
	if workers <= 1 {
		fn(0, n)
		return
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// Each runs fn once per index in [0, n), stopping early when ctx is done.
// The first error by index order is returned; a cancelled context wins over
// errors from fn.
func Each(ctx context.Context, n int, fn func(i int) error) error {
	if n <= 0 {
		return ctx.Err()
	}
	errs := make([]error, n)
	For(n, func(start, end int) {
		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			errs[i] = fn(i)
		}
	})
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Workers reports how many goroutines For would use for n items.
func Workers(n int) int {
	return max(min(runtime.GOMAXPROCS(0), n), 1)
}
