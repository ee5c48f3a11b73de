package sync

import (
	"context"
	"runtime"
	"sync"
)

// Pool runs tasks on a bounded number of goroutines
type Pool struct {
	maxWorkers int
	semaphore  chan struct{}
}

// NewPool creates a worker pool. maxWorkers < 1 selects one worker per CPU.
func NewPool(maxWorkers int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = runtime.NumCPU()
	}
	return &Pool{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
	}
}

// Size returns the number of workers
func (p *Pool) Size() int {
	return p.maxWorkers
}

// Run calls fn for every index in [0, n) and waits for all calls to return.
// The first error cancels the context handed to the remaining calls, stops
// scheduling new ones, and is returned as is.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

schedule:
	for i := 0; i < n; i++ {
		// Acquire semaphore slot
		select {
		case p.semaphore <- struct{}{}:
		case <-ctx.Done():
			break schedule
		}
		if ctx.Err() != nil {
			<-p.semaphore
			break
		}

		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			defer func() { <-p.semaphore }()

			if err := fn(ctx, index); err != nil {
				fail(err)
			}
		}(i)
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if firstErr != nil {
		return firstErr
	}
	// parent cancellation without a task error
	return ctx.Err()
}
