package smart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Digital-Shane/metaweave/internal/core"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/playback"
)

var progressFilter = playback.Filter{History: true, Progress: true}

// Progress merges the playback history into the stored Progress list,
// refreshes its metadata and, for shows, the next episode to watch.
func (s *Engine) Progress(ctx context.Context, kind media.Kind, opts Options) ([]*media.Entity, error) {
	kind = kind.Media()
	unlock := s.lock(ListProgress, kind)
	defer unlock()

	current, _, err := s.Stored(ctx, ListProgress, kind)
	if err != nil {
		return nil, err
	}
	history, err := s.o.Playback().Items(ctx, kind, progressFilter)
	if err != nil {
		return nil, fmt.Errorf("reading playback items: %w", err)
	}

	items := MergeProgress(current, history, opts.Remove, s.o.Now())
	items = s.hydrate(ctx, kind, items, opts.Force)
	if kind == media.KindShow {
		s.nextEpisodes(ctx, items)
	}
	Apply(items, SortLocal)

	if err := s.store(ctx, ListProgress, kind, items); err != nil {
		s.logger.Error("storing progress list failed", "media", kind, "error", err)
	}
	return items, nil
}

// MergeProgress merges history, most recent first, into list. Known items
// are updated in place; new ones are prepended in history order. With remove
// set, items missing from history are dropped.
func MergeProgress(list []*media.Entity, history []playback.Item, remove bool, now time.Time) []*media.Entity {
	seen := make([]bool, len(list))
	var fresh []*media.Entity
	for _, h := range history {
		at := -1
		for i, e := range list {
			if matches(e, h.IDs) {
				at = i
				break
			}
		}
		if at >= 0 {
			seen[at] = true
			update(list[at], h)
			continue
		}
		e := &media.Entity{Kind: h.Kind, IDs: h.IDs, Title: h.Title, Year: h.Year, Smart: &media.Smart{Added: now.Unix()}}
		update(e, h)
		fresh = append(fresh, e)
	}

	out := make([]*media.Entity, 0, len(fresh)+len(list))
	out = append(out, fresh...)
	for i, e := range list {
		if remove && !seen[i] {
			continue
		}
		out = append(out, e)
	}
	return out
}

// update copies the playback state of h onto e.
func update(e *media.Entity, h playback.Item) {
	e.IDs = e.IDs.Fill(h.IDs)
	if e.Title == "" {
		e.Title = h.Title
	}
	if e.Smart == nil {
		e.Smart = &media.Smart{}
	}
	e.Smart.Plays = h.Plays
	e.Smart.Progress = h.Progress
	e.SetTime(media.TimeWatched, h.Watched)
	e.SetTime(media.TimePaused, h.Paused)
	e.SetTime(media.TimeRated, h.Rated)
}

// nextEpisodes stores the next episode of every show on the first page and
// how many aired episodes remain from it.
func (s *Engine) nextEpisodes(ctx context.Context, items []*media.Entity) {
	page := min(max(s.o.Settings().PageSize(), 1), len(items))
	now := s.o.Now().Unix()
	for _, item := range items[:page] {
		show := media.Ref{Kind: media.KindShow, IDs: item.IDs, Title: item.Title, Year: item.Year}
		next, err := s.o.Episodes(ctx, core.EpisodeQuery{Show: show, Next: true}, core.Options{})
		if err != nil {
			if !errors.Is(err, core.ErrNoPack) {
				s.logger.Warn("next episode failed", "show", item.Title, "error", err)
			}
			continue
		}
		p, err := s.o.Pack(ctx, show, core.Options{})
		if err != nil {
			continue
		}
		if item.Smart == nil {
			item.Smart = &media.Smart{}
		}
		order := p.Order()
		item.Smart.Next, item.Smart.Remaining, item.Smart.Watched = nil, 0, len(order)
		if len(next) == 0 || next[0].Invalid {
			continue
		}
		n := media.Number{next[0].Season, next[0].Episode}
		item.Smart.Next = &n
		item.Smart.Watched = 0
		for _, ep := range order {
			std := ep.Standard()
			if std.Less(n) {
				item.Smart.Watched++
			} else if ep.Aired > 0 && ep.Aired <= now {
				item.Smart.Remaining++
			}
		}
	}
}
