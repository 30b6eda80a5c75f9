package concurrency

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	minParallel = 2
	maxParallel = 10
)

// Parallelism derives a concurrency limit from the hardware rating. Nested
// orchestrator calls get half the budget so a parent and its children cannot
// exhaust it together.
func Parallelism(rating float64, nested bool) int {
	n := minParallel + int(math.Round(rating*float64(maxParallel-minParallel)))
	if nested {
		n /= 2
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Semaphore bounds concurrent work.
type Semaphore struct {
	w    *semaphore.Weighted
	size int64
}

// NewSemaphore creates a semaphore admitting n holders.
func NewSemaphore(n int) *Semaphore {
	if n < 1 {
		n = 1
	}
	return &Semaphore{w: semaphore.NewWeighted(int64(n)), size: int64(n)}
}

// Acquire blocks until a slot is free or ctx ends.
func (s *Semaphore) Acquire(ctx context.Context) (func(), error) {
	if err := s.w.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { s.w.Release(1) }, nil
}

// Size returns the number of slots.
func (s *Semaphore) Size() int { return int(s.size) }

// Each runs fn for every index in [0, n) with at most limit calls in flight.
// Every call runs even when another fails; the first error is returned.
func Each(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}
	if limit < 1 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(ctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
