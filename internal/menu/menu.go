// Package menu translates menu requests into orchestrator and smart-list
// calls and shapes the results into filtered, sorted pages.
package menu

import (
	"context"
	"slices"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/Digital-Shane/metaweave/internal/core"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/smart"
)

// Menu is the facade the CLI and any other front end build menus through.
type Menu struct {
	o      *core.Orchestrator
	smart  *smart.Engine
	logger hclog.Logger
}

// New returns a menu over o. A nil engine gets one built on o.
func New(o *core.Orchestrator, engine *smart.Engine, logger hclog.Logger) *Menu {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if engine == nil {
		engine = smart.New(o, logger.Named("smart"))
	}
	return &Menu{o: o, smart: engine, logger: logger}
}

// Smart returns the smart-list engine behind the menu.
func (m *Menu) Smart() *smart.Engine { return m.smart }

// Request describes one menu. Fields a menu type does not use are ignored.
type Request struct {
	Media media.Kind
	// List names a discover list ("trending", "popular", ...) or, with
	// User, a user list slug.
	List  string
	User  string
	Query string
	Year  int

	// Niche keeps only items tagged with it. Hidden niches are dropped
	// unless requested here.
	Niche  string
	Genres []string
	Years  [2]int

	Sort smart.Sort
	// Page is 1-based.
	Page  int
	Limit int

	// Show, Season and From select episode and season menus.
	Show   media.Ref
	Season *int
	From   *media.Number

	// Force refreshes smart lists before reading them.
	Force bool
}

// Page is one page of a menu.
type Page struct {
	Items []*media.Entity `json:"items"`
	Page  int             `json:"page"`
	Pages int             `json:"pages"`
	Total int             `json:"total"`
}

// More reports whether a following page exists.
func (p Page) More() bool { return p.Page < p.Pages }

func (m *Menu) limit(r Request) int {
	if r.Limit > 0 {
		return r.Limit
	}
	if n := m.o.Settings().PageSize(); n > 0 {
		return n
	}
	return 20
}

// present filters, sorts and pages items, then fetches the page through
// the orchestrator.
func (m *Menu) present(ctx context.Context, r Request, items []*media.Entity) (Page, error) {
	items = m.filter(r, items)
	if r.Sort != "" {
		smart.Apply(items, r.Sort)
	}
	page := paginate(items, r.Page, m.limit(r))
	hydrated, err := m.hydrate(ctx, page.Items)
	if err != nil {
		return Page{}, err
	}
	page.Items = hydrated
	return page, nil
}

func paginate(items []*media.Entity, page, size int) Page {
	if page < 1 {
		page = 1
	}
	out := Page{Page: page, Total: len(items), Pages: (len(items) + size - 1) / size}
	start := (page - 1) * size
	if start >= len(items) {
		return out
	}
	out.Items = items[start:min(start+size, len(items))]
	return out
}

// filter drops duplicates, removed smart items and hidden niches, and
// applies the niche, genre and year selections.
func (m *Menu) filter(r Request, items []*media.Entity) []*media.Entity {
	hidden := m.o.Settings().HiddenNiches()
	out := make([]*media.Entity, 0, len(items))
	for _, e := range items {
		switch {
		case e == nil, e.Invalid:
			continue
		case e.Smart != nil && e.Smart.Removed:
			continue
		case r.Niche != "" && !slices.Contains(e.Tags, r.Niche):
			continue
		case hides(e, hidden, r.Niche):
			continue
		case len(r.Genres) > 0 && !anyGenre(e, r.Genres):
			continue
		case r.Years[0] > 0 && e.Year > 0 && e.Year < r.Years[0]:
			continue
		case r.Years[1] > 0 && e.Year > r.Years[1]:
			continue
		}
		if duplicate(out, e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func hides(e *media.Entity, hidden []string, requested string) bool {
	for _, tag := range e.Tags {
		if tag != requested && slices.Contains(hidden, tag) {
			return true
		}
	}
	return false
}

func anyGenre(e *media.Entity, genres []string) bool {
	for _, g := range e.Genre {
		for _, want := range genres {
			if strings.EqualFold(g, want) {
				return true
			}
		}
	}
	return false
}

// duplicate compares seasons too so season arrivals of one show stay apart.
func duplicate(items []*media.Entity, e *media.Entity) bool {
	for _, known := range items {
		if known.Kind == e.Kind && known.Season == e.Season && known.Episode == e.Episode && known.IDs.Shares(e.IDs) {
			return true
		}
	}
	return false
}

// hydrate replaces page items with their full records. Items the cache
// cannot answer are fetched in the foreground; the rest keep their listing
// data. Smart fields and listing seasons survive.
func (m *Menu) hydrate(ctx context.Context, items []*media.Entity) ([]*media.Entity, error) {
	groups := make(map[media.Kind][]media.Ref)
	for _, e := range items {
		if e.Kind == media.KindMovie || e.Kind == media.KindShow || e.Kind == media.KindSet {
			groups[e.Kind] = append(groups[e.Kind], e.Ref())
		}
	}
	full := make(map[media.Kind][]*media.Entity, len(groups))
	for _, kind := range media.Kinds {
		refs := groups[kind]
		if len(refs) == 0 {
			continue
		}
		entities, err := m.o.Metadata(ctx, kind, refs, core.Options{Quick: core.Limit(len(refs))})
		if err != nil {
			return nil, err
		}
		full[kind] = entities
	}

	out := make([]*media.Entity, len(items))
	for i, e := range items {
		out[i] = e
		for _, f := range full[e.Kind] {
			if !f.IDs.Shares(e.IDs) {
				continue
			}
			merged := f.Clone()
			merged.IDs = merged.IDs.Fill(e.IDs)
			if e.Smart != nil {
				merged.Smart = e.Smart
			}
			if e.Season > 0 {
				merged.Season = e.Season
			}
			merged.Part, merged.Fail, merged.Pack = nil, 0, nil
			out[i] = merged
			break
		}
	}
	return out, nil
}
