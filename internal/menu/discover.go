package menu

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/Digital-Shane/metaweave/internal/cache"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

// Lists pooled by Random.
var randomLists = []string{"popular", "trending", "anticipated"}

// listLimit is how many items a discover call asks a provider for.
const listLimit = 100

type discoverArgs struct {
	Provider string     `json:"provider"`
	Media    media.Kind `json:"media"`
	Kind     string     `json:"kind"`
	List     string     `json:"list,omitempty"`
	User     string     `json:"user,omitempty"`
	Query    string     `json:"query,omitempty"`
	Year     int        `json:"year,omitempty"`
	Genres   []string   `json:"genres,omitempty"`
	Years    [2]int     `json:"years,omitempty"`
}

// first asks the discovering providers in priority order and returns the
// first answer. Calls are cached with the quick timeout.
func (m *Menu) first(ctx context.Context, args discoverArgs, call func(context.Context, provider.Discoverer) ([]*media.Entity, error)) ([]*media.Entity, error) {
	registry := m.o.Registry()
	var errs []error
	for _, name := range registry.EnabledNames() {
		p, _ := registry.Get(name)
		d, ok := p.(provider.Discoverer)
		if !ok {
			continue
		}
		args.Provider = name
		items, err := cache.Call(ctx, m.o.Cache(), "menu."+args.Kind, args, cache.TimeoutQuick, cache.RefreshBackground, func(ctx context.Context) ([]*media.Entity, error) {
			return call(ctx, d)
		})
		if err == nil {
			return items, nil
		}
		if errors.Is(err, provider.ErrUnsupported) {
			continue
		}
		m.logger.Debug("discover call failed", "provider", name, "menu", args.Kind, "error", err)
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}

// Discover lists a named dynamic list of the first provider that has it.
func (m *Menu) Discover(ctx context.Context, r Request) (Page, error) {
	args := discoverArgs{Media: r.Media, Kind: "discover", List: r.List, Genres: r.Genres, Years: r.Years}
	items, err := m.first(ctx, args, func(ctx context.Context, d provider.Discoverer) ([]*media.Entity, error) {
		return d.Discover(ctx, provider.DiscoverRequest{Media: r.Media, List: r.List, Genres: r.Genres, Years: r.Years, Limit: listLimit})
	})
	if err != nil {
		return Page{}, fmt.Errorf("discovering %s %s: %w", r.List, r.Media, err)
	}
	return m.present(ctx, r, items)
}

// Search queries every discovering provider and merges the answers in
// provider priority order.
func (m *Menu) Search(ctx context.Context, r Request) (Page, error) {
	registry := m.o.Registry()
	var items []*media.Entity
	for _, d := range registry.Discoverers() {
		found, err := d.Search(ctx, r.Media, r.Query, r.Year)
		if err != nil {
			if !errors.Is(err, provider.ErrUnsupported) {
				m.logger.Debug("search failed", "query", r.Query, "error", err)
			}
			continue
		}
		items = append(items, found...)
	}
	return m.present(ctx, r, items)
}

// List shows a user or curated list.
func (m *Menu) List(ctx context.Context, r Request) (Page, error) {
	args := discoverArgs{Media: r.Media, Kind: "list", List: r.List, User: r.User}
	items, err := m.first(ctx, args, func(ctx context.Context, d provider.Discoverer) ([]*media.Entity, error) {
		return d.List(ctx, provider.ListRequest{Media: r.Media, User: r.User, Slug: r.List, Limit: listLimit})
	})
	if err != nil {
		return Page{}, fmt.Errorf("listing %s: %w", r.List, err)
	}
	return m.present(ctx, r, items)
}

// Person lists the titles of the person named by the query.
func (m *Menu) Person(ctx context.Context, r Request) (Page, error) {
	args := discoverArgs{Media: r.Media, Kind: "person", Query: r.Query}
	items, err := m.first(ctx, args, func(ctx context.Context, d provider.Discoverer) ([]*media.Entity, error) {
		return d.Person(ctx, r.Media, r.Query)
	})
	if err != nil {
		return Page{}, fmt.Errorf("listing titles of %s: %w", r.Query, err)
	}
	return m.present(ctx, r, items)
}

// Random pools the popular, trending and anticipated lists and returns a
// shuffled page of them.
func (m *Menu) Random(ctx context.Context, r Request) (Page, error) {
	var pool []*media.Entity
	for _, list := range randomLists {
		args := discoverArgs{Media: r.Media, Kind: "discover", List: list, Genres: r.Genres, Years: r.Years}
		items, err := m.first(ctx, args, func(ctx context.Context, d provider.Discoverer) ([]*media.Entity, error) {
			return d.Discover(ctx, provider.DiscoverRequest{Media: r.Media, List: list, Genres: r.Genres, Years: r.Years, Limit: listLimit})
		})
		if err != nil {
			m.logger.Debug("random pool list failed", "list", list, "error", err)
			continue
		}
		pool = append(pool, items...)
	}
	pool = m.filter(r, pool)
	seed := uint64(m.o.Now().UnixNano())
	rng := rand.New(rand.NewPCG(seed, seed>>32))
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	r.Sort, r.Page = "", 1
	return m.present(ctx, r, pool[:min(len(pool), m.limit(r))])
}
