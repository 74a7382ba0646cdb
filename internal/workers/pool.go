// Package workers offloads CPU-bound pipeline steps onto a bounded set of goroutines.
package workers

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many offloaded jobs run at once. Completion order across jobs is
// not defined.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool creates a pool running at most size jobs concurrently.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the concurrency bound.
func (p *Pool) Size() int {
	return p.size
}

type result[T any] struct {
	val T
	err error
}

// Run executes fn on a pool slot and waits for it. If ctx ends first Run returns
// ctx.Err(); the job keeps its slot until it finishes, so a stuck job cannot be
// overtaken by unbounded new work.
func Run[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	done := make(chan result[T], 1)
	go func() {
		defer p.sem.Release(1)
		v, err := fn(ctx)
		done <- result[T]{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
