// Package concurrency holds the locking and parallelism primitives shared by
// the orchestrators: a keyed mutex map behind a single global mutex, a
// hardware-sized semaphore and a bounded pool.
package concurrency

import (
	"strconv"
	"strings"
	"sync"

	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/cespare/xxhash/v2"
)

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex serializes work per key. The map of per-key mutexes is guarded
// by one mutex; entries are dropped once no goroutine holds or waits on them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

// Global is the process-wide keyed mutex used for record fingerprints.
var Global = NewKeyedMutex()

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock acquires the mutex for key and returns its release function. The
// release function is safe to call more than once.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()
			k.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}

// Len returns the number of keys currently installed.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// Fingerprint hashes the identity of a request into a stable key. Season is
// ignored unless the kind is a season, episode or pack.
func Fingerprint(ref media.Ref) string {
	var b strings.Builder
	b.WriteString(string(ref.Kind))
	for _, p := range media.IDProviders {
		b.WriteByte('|')
		b.WriteString(ref.IDs.Get(p))
	}
	b.WriteByte('|')
	b.WriteString(ref.IDs.Slug)
	if ref.IDs.Empty() {
		b.WriteByte('|')
		b.WriteString(strings.ToLower(strings.TrimSpace(ref.Title)))
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(ref.Year))
	}
	switch ref.Kind {
	case media.KindSeason:
		b.WriteString("|s")
		b.WriteString(strconv.Itoa(ref.Season))
	case media.KindEpisode:
		b.WriteString("|s")
		b.WriteString(strconv.Itoa(ref.Season))
		b.WriteString("e")
		b.WriteString(strconv.Itoa(ref.Episode))
	}
	return strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}
