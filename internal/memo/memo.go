// Package memo deduplicates work inside one top-level call. A Memo lives
// only as long as the call that created it.
package memo

import (
	"errors"

	csmap "github.com/mhmtszr/concurrent-swiss-map"
	"golang.org/x/sync/singleflight"
)

// ErrNotFound is returned for keys that were recorded as not found.
var ErrNotFound = errors.New("memo: not found")

type entry[T any] struct {
	value    T
	notFound bool
}

// Memo is a concurrent map of computed values keyed by request fingerprint.
// Concurrent Do calls for one key share a single computation.
type Memo[T any] struct {
	values *csmap.CsMap[string, entry[T]]
	group  singleflight.Group
}

// New creates an empty memo.
func New[T any]() *Memo[T] {
	return &Memo[T]{values: csmap.Create[string, entry[T]]()}
}

// Get returns the stored value. The second result reports presence; a key
// recorded as not found is present and yields ErrNotFound.
func (m *Memo[T]) Get(key string) (T, bool, error) {
	e, ok := m.values.Load(key)
	if !ok {
		var zero T
		return zero, false, nil
	}
	if e.notFound {
		return e.value, true, ErrNotFound
	}
	return e.value, true, nil
}

// Put stores a value.
func (m *Memo[T]) Put(key string, value T) {
	m.values.Store(key, entry[T]{value: value})
}

// PutNotFound records that key has no value so later lookups skip the work.
func (m *Memo[T]) PutNotFound(key string) {
	m.values.Store(key, entry[T]{notFound: true})
}

// Len returns the number of stored keys.
func (m *Memo[T]) Len() int {
	return m.values.Count()
}

// Do returns the stored value for key or computes it with fn. Returning
// ErrNotFound from fn records the key as not found; other errors are not
// stored so a later call retries.
func (m *Memo[T]) Do(key string, fn func() (T, error)) (T, error) {
	if v, ok, err := m.Get(key); ok {
		return v, err
	}
	res, err, _ := m.group.Do(key, func() (any, error) {
		if v, ok, err := m.Get(key); ok {
			return v, err
		}
		v, err := fn()
		switch {
		case errors.Is(err, ErrNotFound):
			m.PutNotFound(key)
		case err == nil:
			m.Put(key, v)
		}
		return v, err
	})
	v, _ := res.(T)
	return v, err
}
