package provider

import (
	"context"
	"time"
)

// Base carries the request budget and request cache shared by provider
// implementations.
type Base struct {
	name   string
	budget *Budget
	cache  *RequestCache
}

// NewBase creates the shared state for a provider admitting limit requests
// per window and caching responses for ttl.
func NewBase(name string, limit int, window, ttl time.Duration) *Base {
	return &Base{
		name:   name,
		budget: NewBudget(limit, window),
		cache:  NewRequestCache(ttl),
	}
}

// Usage reports the budget in use.
func (b *Base) Usage() float64 {
	if b == nil {
		return 0
	}
	return b.budget.Usage()
}

// Cache returns the request cache.
func (b *Base) Cache() *RequestCache {
	return b.cache
}

// Call answers key from the request cache or runs fn within the budget.
// Successful results are cached. A transient failure purges every cached
// response sharing prefix so a retry starts from fresh upstream data.
func Call[T any](ctx context.Context, b *Base, key, prefix string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if cached, ok := b.cache.Get(key); ok {
		if v, ok := cached.(T); ok {
			cacheHits.WithLabelValues(b.name).Inc()
			return v, nil
		}
	}
	if err := b.budget.Wait(ctx); err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	observe(b.name, err, b.budget.Usage())
	if err != nil {
		if IsTransient(err) && prefix != "" {
			b.cache.Purge(prefix)
		}
		return zero, err
	}
	b.cache.Set(key, v)
	return v, nil
}
