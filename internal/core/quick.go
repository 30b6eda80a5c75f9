package core

import (
	"github.com/Digital-Shane/metaweave/internal/cache"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

// Quick caps how much work a call does before returning. The zero value
// fetches every item that needs it in the foreground.
type Quick struct {
	limited    bool
	foreground int
	// background < 0 means unlimited.
	background int
}

// Full fetches everything that needs fetching before returning.
func Full() Quick { return Quick{} }

// Cached returns only cached items and refreshes the rest in the background.
func Cached() Quick { return Quick{limited: true, background: -1} }

// CachedOnly returns only cached items and skips the rest.
func CachedOnly() Quick { return Quick{limited: true} }

// Limit fetches at most |k| items in the foreground. The remaining items are
// refreshed in the background when k is positive and skipped otherwise.
func Limit(k int) Quick {
	if k < 0 {
		return Quick{limited: true, foreground: -k}
	}
	return Quick{limited: true, foreground: k, background: -1}
}

// Caps sets explicit foreground and background caps. A negative background
// cap is unlimited.
func Caps(foreground, background int) Quick {
	return Quick{limited: true, foreground: max(foreground, 0), background: background}
}

// Limited reports whether q caps the work of a call.
func (q Quick) Limited() bool { return q.limited }

// Options tune one orchestrator call.
type Options struct {
	Quick Quick
	// Detail overrides the configured detail level when set.
	Detail *provider.Detail
	// Force refreshes every item regardless of its cache status.
	Force bool

	// preferred names the listing an episode's season was taken from.
	preferred map[media.Number]string
}

// partition splits records into the indexes refreshed in the foreground
// and in the background. Cached items that are fresh need neither.
func partition(records []cache.Record, q Quick, force bool) (foreground, background []int, skipped int) {
	for i, rec := range records {
		if !force {
			switch rec.Status {
			case cache.StatusFresh:
				continue
			case cache.StatusStale, cache.StatusExternal:
				if !q.limited || q.background < 0 || len(background) < q.background {
					background = append(background, i)
				}
				continue
			}
		}
		switch {
		case !q.limited:
			foreground = append(foreground, i)
		case len(foreground) < q.foreground:
			foreground = append(foreground, i)
		case q.background < 0 || len(background) < q.background:
			background = append(background, i)
		default:
			skipped++
		}
	}
	return foreground, background, skipped
}
