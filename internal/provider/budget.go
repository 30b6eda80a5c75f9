package provider

import (
	"context"
	"sync"
	"time"
)

// Budget is a sliding window request limiter that also reports how much of
// the window is in use.
type Budget struct {
	mu          sync.Mutex
	requests    []time.Time
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// NewBudget creates a budget admitting maxRequests per window.
func NewBudget(maxRequests int, window time.Duration) *Budget {
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &Budget{
		maxRequests: maxRequests,
		window:      window,
		requests:    make([]time.Time, 0, maxRequests),
		now:         time.Now,
	}
}

// prune drops requests outside the window. Callers hold mu.
func (b *Budget) prune(now time.Time) {
	cutoff := now.Add(-b.window)
	valid := b.requests[:0]
	for _, req := range b.requests {
		if req.After(cutoff) {
			valid = append(valid, req)
		}
	}
	b.requests = valid
}

// Wait blocks until a request fits the window, then records it.
func (b *Budget) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		now := b.now()
		b.prune(now)
		if len(b.requests) < b.maxRequests {
			b.requests = append(b.requests, now)
			b.mu.Unlock()
			return nil
		}
		// Add a small buffer to ensure the oldest request has expired.
		wait := b.window - now.Sub(b.requests[0]) + 10*time.Millisecond
		b.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Usage returns the share of the window in use, in [0, 1].
func (b *Budget) Usage() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune(b.now())
	u := float64(len(b.requests)) / float64(b.maxRequests)
	if u > 1 {
		u = 1
	}
	return u
}
