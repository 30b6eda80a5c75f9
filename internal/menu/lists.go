package menu

import (
	"context"
	"fmt"

	"github.com/Digital-Shane/metaweave/internal/cache"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/playback"
	"github.com/Digital-Shane/metaweave/internal/smart"
)

// Progress shows the in-progress and watched items of the Progress list.
func (m *Menu) Progress(ctx context.Context, r Request) (Page, error) {
	return m.smartList(ctx, r, smart.ListProgress, smart.SortLocal)
}

// Arrivals shows recently released titles.
func (m *Menu) Arrivals(ctx context.Context, r Request) (Page, error) {
	return m.smartList(ctx, r, smart.ListArrivals, smart.SortGlobal)
}

// Quick shows the Quick picks. The list is not re-sorted by default.
func (m *Menu) Quick(ctx context.Context, r Request) (Page, error) {
	return m.smartList(ctx, r, smart.ListQuick, "")
}

// smartList reads a stored smart list. The list is rebuilt when it was
// never stored, when the menu has not rebuilt it within the reload spacing,
// or with a forced reload.
func (m *Menu) smartList(ctx context.Context, r Request, list smart.List, order smart.Sort) (Page, error) {
	kind := r.Media.Media()
	items, status, err := m.smart.Stored(ctx, list, kind)
	if err != nil {
		return Page{}, err
	}

	claimed := m.smart.TryReload("menu", kind, string(list))
	switch {
	case r.Force:
		if _, err := m.smart.Reload(ctx, list, kind); err != nil {
			return Page{}, err
		}
		items, _, err = m.smart.Stored(ctx, list, kind)
	case status == cache.StatusInvalid || claimed:
		items, err = m.build(ctx, list, kind)
	}
	if err != nil {
		return Page{}, fmt.Errorf("loading %s list: %w", list, err)
	}

	if r.Sort == "" {
		r.Sort = order
	}
	return m.present(ctx, r, items)
}

func (m *Menu) build(ctx context.Context, list smart.List, kind media.Kind) ([]*media.Entity, error) {
	switch list {
	case smart.ListProgress:
		return m.smart.Progress(ctx, kind, smart.Options{})
	case smart.ListArrivals:
		return m.smart.Arrivals(ctx, kind, smart.Options{})
	default:
		return m.smart.Quick(ctx, kind)
	}
}

// History shows watched items, most recently watched first.
func (m *Menu) History(ctx context.Context, r Request) (Page, error) {
	kind := r.Media.Media()
	watched, err := m.o.Playback().Items(ctx, kind, playback.Filter{History: true})
	if err != nil {
		return Page{}, fmt.Errorf("reading history: %w", err)
	}
	items := make([]*media.Entity, 0, len(watched))
	for _, it := range watched {
		e := &media.Entity{
			Kind:  kind,
			IDs:   it.IDs,
			Title: it.Title,
			Year:  it.Year,
			Smart: &media.Smart{Plays: it.Plays, Progress: it.Progress},
		}
		e.SetTime(media.TimeWatched, it.Watched)
		items = append(items, e)
	}
	return m.present(ctx, r, items)
}
