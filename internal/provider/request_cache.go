package provider

import (
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// RequestCache holds raw provider responses for a short time so sub-requests
// that share an upstream call do not repeat it.
type RequestCache struct {
	cache *cache.Cache
}

// NewRequestCache creates a cache whose entries expire after ttl.
func NewRequestCache(ttl time.Duration) *RequestCache {
	return &RequestCache{cache: cache.New(ttl, 2*ttl)}
}

// Get returns the cached value for key.
func (r *RequestCache) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	return r.cache.Get(key)
}

// Set stores value under key with the default expiration.
func (r *RequestCache) Set(key string, value any) {
	if r == nil {
		return
	}
	r.cache.Set(key, value, cache.DefaultExpiration)
}

// Purge removes every entry whose key starts with prefix.
func (r *RequestCache) Purge(prefix string) int {
	if r == nil {
		return 0
	}
	removed := 0
	for key := range r.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			r.cache.Delete(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries.
func (r *RequestCache) Len() int {
	if r == nil {
		return 0
	}
	return r.cache.ItemCount()
}

// RequestKey builds a cache key for a sub-request. The provider name and
// entity identity form the purge prefix; extra parts distinguish upstream
// calls made for the same entity.
func RequestKey(provider string, request Request, extra ...string) string {
	_, id := request.IDs.Primary()
	if id == "" {
		id = strings.ToLower(strings.TrimSpace(request.Title)) + "|" + fmt.Sprint(request.Year)
	}
	parts := []string{
		provider,
		string(request.Kind),
		id,
		fmt.Sprintf("%d", request.Season),
		fmt.Sprintf("%d", request.Episode),
		request.Language,
	}
	parts = append(parts, extra...)
	return strings.Join(parts, ":")
}

// RequestPrefix returns the purge prefix shared by all keys for the
// request's entity.
func RequestPrefix(provider string, request Request) string {
	_, id := request.IDs.Primary()
	if id == "" {
		id = strings.ToLower(strings.TrimSpace(request.Title)) + "|" + fmt.Sprint(request.Year)
	}
	return provider + ":" + string(request.Kind) + ":" + id + ":"
}
