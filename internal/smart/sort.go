package smart

import (
	"sort"

	"github.com/Digital-Shane/metaweave/internal/media"
)

// Sort names a list order.
type Sort string

const (
	// SortLocal keeps the maintained list order with finished and removed
	// items last.
	SortLocal Sort = "local"
	// SortGlobal orders by arrival: newest release first.
	SortGlobal Sort = "global"
	// SortRewatch puts the items used longest ago first.
	SortRewatch Sort = "rewatch"
	// SortUsed puts the most recently used items first.
	SortUsed       Sort = "used"
	SortRelease    Sort = "release"
	SortRating     Sort = "rating"
	SortPopularity Sort = "popularity"
)

// Apply sorts items in place. Every order is stable.
func Apply(items []*media.Entity, order Sort) {
	var less func(a, b *media.Entity) bool
	switch order {
	case SortLocal:
		less = func(a, b *media.Entity) bool { return rank(a) < rank(b) }
	case SortGlobal:
		less = func(a, b *media.Entity) bool { return arrival(a) > arrival(b) }
	case SortRewatch:
		less = func(a, b *media.Entity) bool { return used(a) < used(b) }
	case SortUsed:
		less = func(a, b *media.Entity) bool { return used(a) > used(b) }
	case SortRelease:
		less = func(a, b *media.Entity) bool { return a.ReleaseTime() > b.ReleaseTime() }
	case SortRating:
		less = func(a, b *media.Entity) bool { return a.Rating > b.Rating }
	case SortPopularity:
		less = func(a, b *media.Entity) bool { return a.Popularity > b.Popularity }
	default:
		return
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

func rank(e *media.Entity) int {
	switch {
	case e.Smart != nil && e.Smart.Removed:
		return 2
	case finished(e):
		return 1
	}
	return 0
}

// finished reports whether a progress item has nothing left to watch.
func finished(e *media.Entity) bool {
	if e.Smart == nil {
		return false
	}
	if e.Kind == media.KindShow {
		return e.Smart.Next == nil && e.Smart.Watched > 0
	}
	return e.Smart.Plays > 0 && e.Smart.Progress == 0
}

// arrival is the release time that brought e onto the arrivals list.
func arrival(e *media.Entity) int64 {
	if e.Smart != nil && e.Smart.Release > 0 {
		return e.Smart.Release
	}
	return e.ReleaseTime()
}

// used is the latest user interaction with e.
func used(e *media.Entity) int64 {
	var t int64
	for _, key := range []string{media.TimeWatched, media.TimePaused, media.TimeRated} {
		t = max(t, e.Time[key])
	}
	return t
}
