package gmxsdk

import (
	"context"
	"sync"
)

// defaultFanOutWorkers bounds concurrent registry and oracle reads.
const defaultFanOutWorkers = 4

// fanOut dispatches independent read-only calls across a bounded worker pool
// and waits for all of them. The calls have no ordering requirement among
// themselves, but the caller does not advance until every one has finished.
// The first error wins; later calls are skipped once the context is done or
// an error has been recorded.
func fanOut(ctx context.Context, limit int, fns ...func(context.Context) error) error {
	if limit <= 0 {
		limit = defaultFanOutWorkers
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, limit)

	for _, fn := range fns {
		mu.Lock()
		failed := firstErr != nil
		mu.Unlock()
		if failed || ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(fn func(context.Context) error) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := fn(ctx); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(fn)
	}

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
