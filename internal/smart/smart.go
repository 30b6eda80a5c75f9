// Package smart maintains the long-lived Progress, Arrivals and Quick lists.
// Lists are stored in reduced form in the persistent cache and expanded from
// the cached entities on read.
package smart

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/go-hclog"
	gocache "github.com/patrickmn/go-cache"

	"github.com/Digital-Shane/metaweave/internal/cache"
	"github.com/Digital-Shane/metaweave/internal/concurrency"
	"github.com/Digital-Shane/metaweave/internal/core"
	"github.com/Digital-Shane/metaweave/internal/hardware"
	"github.com/Digital-Shane/metaweave/internal/media"
)

// List names a smart list.
type List string

const (
	ListProgress List = "progress"
	ListArrivals List = "arrivals"
	ListQuick    List = "quick"
)

const (
	// reloadSpacing is the minimum time between two reloads of one list.
	reloadSpacing = 3 * time.Minute

	foregroundCap = 5
	backgroundCap = 20
	// lowEndFactor shrinks the fetch caps on weak hardware.
	lowEndFactor = 0.85
	defaultPage  = 20

	functionName = "smart"
)

// Engine builds and maintains smart lists on top of an orchestrator.
type Engine struct {
	o       *core.Orchestrator
	logger  hclog.Logger
	reloads *gocache.Cache
}

// New returns an engine using o for metadata.
func New(o *core.Orchestrator, logger hclog.Logger) *Engine {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Engine{
		o:       o,
		logger:  logger,
		reloads: gocache.New(reloadSpacing, 2*reloadSpacing),
	}
}

// Options tune a list build.
type Options struct {
	// Remove drops Progress items no longer in the playback history.
	Remove bool
	// Force refetches the first page of items even when cached.
	Force bool
}

type listKey struct {
	List  List       `json:"list"`
	Media media.Kind `json:"media"`
}

// TryReload claims the reload slot of (mode, media, content). It returns
// false while an earlier reload of the same key is less than three minutes
// old.
func (s *Engine) TryReload(mode string, kind media.Kind, content string) bool {
	key := fmt.Sprintf("%s/%s/%s", mode, kind.Media(), content)
	return s.reloads.Add(key, struct{}{}, gocache.DefaultExpiration) == nil
}

// Reload rebuilds a list with a forced playback sync and forced metadata for
// its first page. Reloads inside the spacing window return false and do
// nothing.
func (s *Engine) Reload(ctx context.Context, list List, kind media.Kind) (bool, error) {
	if !s.TryReload("reload", kind, string(list)) {
		s.logger.Debug("reload skipped", "list", list, "media", kind)
		return false, nil
	}
	var err error
	switch list {
	case ListProgress:
		if err = s.o.Playback().Refresh(ctx, kind.Media(), true); err != nil {
			return false, fmt.Errorf("refreshing playback: %w", err)
		}
		_, err = s.Progress(ctx, kind, Options{Remove: true, Force: true})
	case ListArrivals:
		_, err = s.Arrivals(ctx, kind, Options{Force: true})
	case ListQuick:
		_, err = s.Quick(ctx, kind)
	default:
		return false, fmt.Errorf("unknown list %q", list)
	}
	return err == nil, err
}

// Stored returns the reduced items of a list as last written.
func (s *Engine) Stored(ctx context.Context, list List, kind media.Kind) ([]*media.Entity, cache.Status, error) {
	return cache.Load[[]*media.Entity](ctx, s.o.Cache(), functionName, listKey{List: list, Media: kind.Media()})
}

func (s *Engine) lock(list List, kind media.Kind) func() {
	return concurrency.Global.Lock(fmt.Sprintf("smart:%s:%s", list, kind.Media()))
}

// store writes the reduced form of items.
func (s *Engine) store(ctx context.Context, list List, kind media.Kind, items []*media.Entity) error {
	reduced := make([]*media.Entity, len(items))
	for i, e := range items {
		reduced[i] = Reduce(e)
	}
	return cache.Store(ctx, s.o.Cache(), functionName, listKey{List: list, Media: kind.Media()}, reduced, cache.TimeoutLong, false)
}

// caps returns the foreground and background fetch caps for the hardware.
func caps(rating float64) (int, int) {
	fg, bg := foregroundCap, backgroundCap
	if hardware.LowEnd(rating) {
		fg = int(math.Floor(float64(fg) * lowEndFactor))
		bg = int(math.Floor(float64(bg) * lowEndFactor))
	}
	return max(fg, 1), bg
}

// hydrate replaces the reduced items with their cached entities. The first
// page may trigger a bounded number of fetches; the rest only reads the
// cache. Items keep their smart sub-record and playback times.
func (s *Engine) hydrate(ctx context.Context, kind media.Kind, items []*media.Entity, force bool) []*media.Entity {
	if len(items) == 0 {
		return items
	}
	page := s.o.Settings().PageSize()
	if page <= 0 {
		page = defaultPage
	}
	page = min(page, len(items))
	fg, bg := caps(s.o.Rating())

	head := refs(items[:page], kind)
	quick := core.Caps(fg, bg)
	if force {
		quick = core.Full()
	}
	found, err := s.o.Metadata(ctx, kind, head, core.Options{Quick: quick, Force: force})
	if err != nil {
		s.logger.Warn("metadata for smart list failed", "media", kind, "error", err)
	}
	if len(items) > page {
		rest, err := s.o.Metadata(ctx, kind, refs(items[page:], kind), core.Options{Quick: core.CachedOnly()})
		if err != nil {
			s.logger.Warn("cached metadata for smart list failed", "media", kind, "error", err)
		}
		found = append(found, rest...)
	}

	out := make([]*media.Entity, len(items))
	for i, item := range items {
		out[i] = item
		for _, full := range found {
			if matches(item, full.IDs) {
				out[i] = adopt(item, full)
				break
			}
		}
	}
	return out
}

func refs(items []*media.Entity, kind media.Kind) []media.Ref {
	out := make([]media.Ref, len(items))
	for i, e := range items {
		out[i] = media.Ref{Kind: kind, IDs: e.IDs, Title: e.Title, Year: e.Year}
	}
	return out
}

// matches reports whether item is the entity with ids, directly or through
// its legacy IMDb alias.
func matches(item *media.Entity, ids media.IDs) bool {
	if item.IDs.Shares(ids) {
		return true
	}
	return item.IMDbAlias != "" && item.IMDbAlias == ids.IMDb
}

// adopt returns full carrying the list state of item.
func adopt(item, full *media.Entity) *media.Entity {
	out := full.Clone()
	out.IDs = out.IDs.Fill(item.IDs)
	if item.Smart != nil {
		smart := *item.Smart
		out.Smart = &smart
	}
	for _, key := range []string{media.TimeWatched, media.TimeRated, media.TimePaused} {
		if t := item.Time[key]; t > 0 {
			out.SetTime(key, t)
		}
	}
	out.Season = item.Season
	out.Part, out.Fail, out.Pack = nil, 0, nil
	return out
}
