package extractor

import (
	"context"
	"sync"
	"time"
)

// watcher runs until it produces a value, fails, or ctx is done.
// Watchers must return promptly once ctx is cancelled.
type watcher[T any] func(ctx context.Context) (T, error)

type outcome[T any] struct {
	value T
	err   error
}

// firstOf runs every watcher concurrently and returns whichever finishes first,
// success or failure. The losers are cancelled and waited for before returning,
// so no watcher outlives the call.
func firstOf[T any](ctx context.Context, watchers ...watcher[T]) (T, error) {
	var zero T
	if len(watchers) == 0 {
		return zero, ctx.Err()
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan outcome[T], len(watchers))
	var wg sync.WaitGroup
	for _, w := range watchers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := w(raceCtx)
			results <- outcome[T]{value: value, err: err}
		}()
	}

	first := <-results
	cancel()
	wg.Wait()

	return first.value, first.err
}

// poll calls check every interval until it reports done, returns an error, or ctx ends.
// The first check runs immediately.
func poll[T any](ctx context.Context, interval time.Duration, check func(ctx context.Context) (T, bool, error)) (T, error) {
	var zero T

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		value, done, err := check(ctx)
		if err != nil {
			return zero, err
		}
		if done {
			return value, nil
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}
}
