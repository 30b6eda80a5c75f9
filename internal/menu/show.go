package menu

import (
	"context"
	"fmt"

	"github.com/Digital-Shane/metaweave/internal/config"
	"github.com/Digital-Shane/metaweave/internal/core"
	"github.com/Digital-Shane/metaweave/internal/media"
)

// Season lists the seasons of r.Show in the order of its pack. The specials
// season is left out when specials are switched off.
func (m *Menu) Season(ctx context.Context, r Request) (Page, error) {
	show := r.Show
	show.Kind = media.KindShow
	p, err := m.o.Pack(ctx, show, core.Options{})
	if err != nil {
		return Page{}, fmt.Errorf("loading seasons: %w", err)
	}

	showIDs := show.IDs
	var refs []media.Ref
	var listed []*media.Entity
	for _, s := range p.Seasons {
		if s.Number == 0 && m.o.Settings().Specials() == config.SpecialsOff {
			continue
		}
		refs = append(refs, media.Ref{Kind: media.KindSeason, IDs: show.IDs, Title: show.Title, Year: show.Year, Season: s.Number})
		e := &media.Entity{Kind: media.KindSeason, IDs: s.IDs, ShowIDs: &showIDs, ShowTitle: p.Title, Title: s.Title, Season: s.Number}
		if e.Title == "" {
			e.Title = fmt.Sprintf("Season %d", s.Number)
		}
		listed = append(listed, e)
	}

	page := paginate(listed, r.Page, m.limit(r))
	if len(page.Items) == 0 {
		return page, nil
	}
	first := (page.Page - 1) * m.limit(r)
	entities, err := m.o.Metadata(ctx, media.KindSeason, refs[first:first+len(page.Items)], core.Options{Quick: core.Limit(len(page.Items))})
	if err != nil {
		return Page{}, err
	}
	for i, e := range page.Items {
		for _, full := range entities {
			if full.Season == e.Season {
				page.Items[i] = full
				break
			}
		}
	}
	return page, nil
}

// Episode lists a page of episodes of r.Show: one season when r.Season is
// set, otherwise the page of episodes starting at r.From.
func (m *Menu) Episode(ctx context.Context, r Request) (Page, error) {
	q := core.EpisodeQuery{Show: r.Show, Season: r.Season, From: r.From, Limit: m.limit(r)}
	q.Show.Kind = media.KindShow
	items, err := m.o.Episodes(ctx, q, core.Options{})
	if err != nil {
		return Page{}, fmt.Errorf("loading episodes: %w", err)
	}
	if r.Season != nil {
		return paginate(items, r.Page, m.limit(r)), nil
	}
	return Page{Items: items, Page: 1, Pages: 1, Total: len(items)}, nil
}

// Next returns the episode to watch after r.From, or after the last watched
// one. The boolean is false when the show is finished.
func (m *Menu) Next(ctx context.Context, r Request) (*media.Entity, bool, error) {
	q := core.EpisodeQuery{Show: r.Show, From: r.From, Next: true}
	q.Show.Kind = media.KindShow
	items, err := m.o.Episodes(ctx, q, core.Options{})
	if err != nil {
		return nil, false, err
	}
	if len(items) == 0 || items[0].Invalid {
		return nil, false, nil
	}
	return items[0], true, nil
}
