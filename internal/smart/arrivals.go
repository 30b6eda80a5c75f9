package smart

import (
	"context"
	"errors"
	"time"

	"github.com/Digital-Shane/metaweave/internal/cache"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

const (
	arrivalMonths = 12
	arrivalLimit  = 50
	bucketLimit   = 10
	// arrivalAge is how long an item stays on the list; it is kept as
	// removed for the same time again so it cannot return as new.
	arrivalAge = 365 * 24 * time.Hour
)

// stages are the release stages polled per media kind.
var stages = map[media.Kind][]string{
	media.KindMovie: {media.TimeTheatre, media.TimeDigital},
	media.KindShow:  {media.TimePremiere, provider.StageSeason},
}

// buckets are the cross-provider discover lists added to arrivals.
var buckets = []string{"recent", "worst"}

// Window is one dated release window.
type Window struct {
	Start time.Time
	End   time.Time
}

// Windows returns the monthly windows of the past n months, current month
// first.
func Windows(now time.Time, n int) []Window {
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]Window, n)
	for i := range out {
		start := month.AddDate(0, -i, 0)
		out[i] = Window{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Second)}
	}
	return out
}

// windowTimeout picks the timeout class of the i-th window: recent windows
// change often, old ones hardly at all.
func windowTimeout(i int) cache.Timeout {
	switch {
	case i == 0:
		return cache.TimeoutRefresh
	case i <= 3:
		return cache.TimeoutMedium
	}
	return cache.TimeoutExtended
}

type releaseArgs struct {
	Provider string     `json:"provider"`
	Media    media.Kind `json:"media"`
	Stage    string     `json:"stage"`
	Start    string     `json:"start"`
}

type bucketArgs struct {
	Provider string     `json:"provider"`
	Media    media.Kind `json:"media"`
	List     string     `json:"list"`
	Year     int        `json:"year"`
}

// Arrivals polls the dated release windows of every discovering provider,
// merges new titles into the stored list and ages out old ones.
func (s *Engine) Arrivals(ctx context.Context, kind media.Kind, opts Options) ([]*media.Entity, error) {
	kind = kind.Media()
	unlock := s.lock(ListArrivals, kind)
	defer unlock()

	current, _, err := s.Stored(ctx, ListArrivals, kind)
	if err != nil {
		return nil, err
	}
	found := s.poll(ctx, kind, opts.Force)
	now := s.o.Now()
	all := MergeArrivals(current, found, now)

	var visible []*media.Entity
	for _, e := range all {
		if !e.Smart.Removed {
			visible = append(visible, e)
		}
	}
	Apply(visible, SortGlobal)
	visible = s.hydrate(ctx, kind, visible, opts.Force)

	// Hydrated entities replace their list entries before storing.
	for i, e := range all {
		for _, v := range visible {
			if sameArrival(e, v) {
				all[i] = v
				break
			}
		}
	}
	if err := s.store(ctx, ListArrivals, kind, all); err != nil {
		s.logger.Error("storing arrivals list failed", "media", kind, "error", err)
	}
	return visible, nil
}

// poll collects the release windows and buckets of every provider.
func (s *Engine) poll(ctx context.Context, kind media.Kind, force bool) []*media.Entity {
	c := s.o.Cache()
	refresh := cache.RefreshBackground
	if force {
		refresh = cache.RefreshForeground
	}
	registry := s.o.Registry()
	now := s.o.Now()

	var out []*media.Entity
	for _, name := range registry.EnabledNames() {
		p, _ := registry.Get(name)
		d, ok := p.(provider.Discoverer)
		if !ok {
			continue
		}
		for _, stage := range stages[kind] {
			for i, w := range Windows(now, arrivalMonths) {
				args := releaseArgs{Provider: name, Media: kind, Stage: stage, Start: w.Start.Format(time.DateOnly)}
				items, err := cache.Call(ctx, c, "arrivals.release", args, windowTimeout(i), refresh, func(ctx context.Context) ([]*media.Entity, error) {
					items, err := d.Release(ctx, provider.ReleaseRequest{Media: kind, Stage: stage, Start: w.Start, End: w.End, Limit: arrivalLimit})
					if errors.Is(err, provider.ErrUnsupported) {
						return nil, nil
					}
					return items, err
				})
				if err != nil {
					s.logger.Debug("release window failed", "provider", name, "stage", stage, "start", args.Start, "error", err)
					continue
				}
				for _, e := range items {
					mark(e, stage)
				}
				out = append(out, items...)
			}
		}
		for _, list := range buckets {
			args := bucketArgs{Provider: name, Media: kind, List: list, Year: now.Year()}
			items, err := cache.Call(ctx, c, "arrivals.bucket", args, cache.TimeoutShort, refresh, func(ctx context.Context) ([]*media.Entity, error) {
				items, err := d.Discover(ctx, provider.DiscoverRequest{Media: kind, List: list, Years: [2]int{now.Year() - 1, now.Year()}, Limit: bucketLimit})
				if errors.Is(err, provider.ErrUnsupported) {
					return nil, nil
				}
				return items, err
			})
			if err != nil {
				s.logger.Debug("arrivals bucket failed", "provider", name, "list", list, "error", err)
				continue
			}
			for _, e := range items {
				mark(e, "")
			}
			out = append(out, items...)
		}
	}
	return out
}

// mark records the release time that brought e in: the stage's own time
// when the provider reported it, the release time otherwise.
func mark(e *media.Entity, stage string) {
	if e.Smart == nil {
		e.Smart = &media.Smart{}
	}
	if t := e.Time[stage]; stage != "" && t > 0 {
		e.Smart.Release = t
	} else if t := e.ReleaseTime(); t > 0 {
		e.Smart.Release = t
	}
}

// sameArrival matches arrivals by id and, for new seasons, season number.
func sameArrival(a, b *media.Entity) bool {
	return a.Season == b.Season && (a.IDs.Shares(b.IDs) || matches(a, b.IDs))
}

// MergeArrivals appends the found items missing from list and
// ages the list: items released over a year ago are marked removed and
// dropped once twice that old. Removed items are never added again.
func MergeArrivals(list, found []*media.Entity, now time.Time) []*media.Entity {
	out := make([]*media.Entity, 0, len(list)+len(found))
	for _, e := range list {
		if e.Smart == nil {
			e.Smart = &media.Smart{}
		}
		out = append(out, e)
	}
	for _, e := range found {
		if e.Smart == nil || e.Smart.Release > now.Unix() {
			continue
		}
		dup := false
		for _, known := range out {
			if sameArrival(known, e) {
				dup = true
				known.Smart.Release = max(known.Smart.Release, e.Smart.Release)
				known.IDs = known.IDs.Fill(e.IDs)
				break
			}
		}
		if dup {
			continue
		}
		e.Smart.Added = now.Unix()
		out = append(out, e)
	}

	cutoff := now.Add(-arrivalAge).Unix()
	purge := now.Add(-2 * arrivalAge).Unix()
	kept := out[:0]
	for _, e := range out {
		release := arrival(e)
		switch {
		case release > 0 && release < purge:
			continue
		case release > 0 && release < cutoff:
			e.Smart.Removed = true
		}
		kept = append(kept, e)
	}
	return kept
}
