package trakt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

var discoverLists = map[string]bool{
	"trending":    true,
	"popular":     true,
	"anticipated": true,
	"watched":     true,
	"played":      true,
	"collected":   true,
	"boxoffice":   true,
	"recommended": true,
}

func segment(kind media.Kind) (media.Kind, string, string, error) {
	switch kind.Media() {
	case media.KindMovie:
		return media.KindMovie, "movies", "movie", nil
	case media.KindShow:
		return media.KindShow, "shows", "show", nil
	}
	return "", "", "", fmt.Errorf("trakt: unsupported media %q", kind)
}

// Discover returns one of Trakt's dynamic lists.
func (p *Provider) Discover(ctx context.Context, request provider.DiscoverRequest) ([]*media.Entity, error) {
	if p.http == nil {
		return nil, provider.ErrNotConfigured
	}
	kind, plural, _, err := segment(request.Media)
	if err != nil {
		return nil, err
	}
	list := request.List
	if list == "" {
		list = "trending"
	}
	if !discoverLists[list] || (list == "boxoffice" && kind != media.KindMovie) {
		return nil, provider.Unsupported(providerName, "list "+list)
	}

	path := plural + "/" + list
	if list == "recommended" {
		if p.token == "" {
			return nil, provider.Unsupported(providerName, "recommendations without access token")
		}
		path = "recommendations/" + plural
	}

	query := url.Values{"extended": {"full"}}
	if request.Page > 0 {
		query.Set("page", strconv.Itoa(request.Page))
	}
	if request.Limit > 0 {
		query.Set("limit", strconv.Itoa(request.Limit))
	}
	if len(request.Genres) > 0 {
		query.Set("genres", strings.Join(request.Genres, ","))
	}
	if request.Years[0] > 0 {
		years := strconv.Itoa(request.Years[0])
		if request.Years[1] > request.Years[0] {
			years += "-" + strconv.Itoa(request.Years[1])
		}
		query.Set("years", years)
	}
	return p.items(ctx, kind, path, query, "")
}

// Search finds titles by name.
func (p *Provider) Search(ctx context.Context, kind media.Kind, text string, year int) ([]*media.Entity, error) {
	if p.http == nil {
		return nil, provider.ErrNotConfigured
	}
	kind, _, single, err := segment(kind)
	if err != nil {
		return nil, err
	}
	query := url.Values{"query": {text}, "extended": {"full"}}
	if year > 0 {
		query.Set("years", strconv.Itoa(year))
	}
	return p.items(ctx, kind, "search/"+single, query, "")
}

// List returns the items of a user list.
func (p *Provider) List(ctx context.Context, request provider.ListRequest) ([]*media.Entity, error) {
	if p.http == nil {
		return nil, provider.ErrNotConfigured
	}
	if request.User == "" || request.Slug == "" {
		return nil, provider.Invalid(providerName, "list request needs a user and a slug")
	}
	kind, _, single, err := segment(request.Media)
	if err != nil {
		return nil, err
	}
	query := url.Values{"extended": {"full"}}
	if request.Page > 0 {
		query.Set("page", strconv.Itoa(request.Page))
	}
	if request.Limit > 0 {
		query.Set("limit", strconv.Itoa(request.Limit))
	}
	path := fmt.Sprintf("users/%s/lists/%s/items/%s", url.PathEscape(request.User), url.PathEscape(request.Slug), single)
	return p.items(ctx, kind, path, query, "")
}

// Person returns the titles of the best matching person.
func (p *Provider) Person(ctx context.Context, kind media.Kind, name string) ([]*media.Entity, error) {
	if p.http == nil {
		return nil, provider.ErrNotConfigured
	}
	kind, plural, _, err := segment(kind)
	if err != nil {
		return nil, err
	}

	request := provider.Request{Kind: kind, Title: name}
	results, err := get[[]item](ctx, p, request, "search/person", url.Values{"query": {name}})
	if err != nil {
		return nil, err
	}
	var slug string
	for _, r := range results {
		if r.Person != nil && r.Person.IDs.Slug != "" {
			slug = r.Person.IDs.Slug
			break
		}
	}
	if slug == "" {
		return nil, provider.NotFound(providerName, "person %q not found", name)
	}

	credits, err := get[people](ctx, p, request, "people/"+slug+"/"+plural, url.Values{"extended": {"full"}})
	if err != nil {
		return nil, err
	}
	var out []*media.Entity
	seen := make(map[int]bool)
	add := func(c credit) {
		var e *media.Entity
		switch {
		case c.Movie != nil && !seen[c.Movie.IDs.Trakt]:
			seen[c.Movie.IDs.Trakt] = true
			e = c.Movie.entity()
		case c.Show != nil && !seen[c.Show.IDs.Trakt]:
			seen[c.Show.IDs.Trakt] = true
			e = c.Show.entity()
		}
		if e != nil {
			out = append(out, e)
		}
	}
	for _, c := range credits.Cast {
		add(c)
	}
	for _, crew := range credits.Crew {
		for _, c := range crew {
			add(c)
		}
	}
	return out, nil
}

// Release returns titles released between Start and End. Digital and
// physical movie releases come from the DVD calendar; shows use the new
// shows calendar.
func (p *Provider) Release(ctx context.Context, request provider.ReleaseRequest) ([]*media.Entity, error) {
	if p.http == nil {
		return nil, provider.ErrNotConfigured
	}
	kind, _, _, err := segment(request.Media)
	if err != nil {
		return nil, err
	}
	days := int(request.End.Sub(request.Start).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	if days > 33 {
		days = 33
	}
	start := request.Start.UTC().Format("2006-01-02")

	var path, key string
	switch {
	case kind == media.KindShow && request.Stage == provider.StageSeason:
		path, key = fmt.Sprintf("calendars/all/shows/premieres/%s/%d", start, days), media.TimePremiere
	case kind == media.KindShow:
		path, key = fmt.Sprintf("calendars/all/shows/new/%s/%d", start, days), media.TimePremiere
	case request.Stage == media.TimeDigital || request.Stage == media.TimePhysical:
		path, key = fmt.Sprintf("calendars/all/dvd/%s/%d", start, days), media.TimeDigital
	default:
		path, key = fmt.Sprintf("calendars/all/movies/%s/%d", start, days), media.TimeTheatre
	}
	items, err := p.items(ctx, kind, path, url.Values{"extended": {"full"}}, key)
	if err != nil {
		return nil, err
	}
	if request.Limit > 0 && len(items) > request.Limit {
		items = items[:request.Limit]
	}
	return items, nil
}

// items fetches a list endpoint whose elements are either bare objects or
// wrapped in an item envelope. Calendar release dates are stored under
// releaseKey.
func (p *Provider) items(ctx context.Context, kind media.Kind, path string, query url.Values, releaseKey string) ([]*media.Entity, error) {
	request := provider.Request{Kind: kind, Title: path}
	raw, err := get[[]json.RawMessage](ctx, p, request, path, query)
	if err != nil {
		return nil, err
	}

	out := make([]*media.Entity, 0, len(raw))
	for _, data := range raw {
		var wrapped item
		if err := json.Unmarshal(data, &wrapped); err != nil {
			continue
		}
		var e *media.Entity
		switch {
		case kind == media.KindMovie && wrapped.Movie != nil:
			e = wrapped.Movie.entity()
		case kind == media.KindShow && wrapped.Show != nil:
			e = wrapped.Show.entity()
		case kind == media.KindMovie:
			var m movie
			if json.Unmarshal(data, &m) == nil && m.IDs.Trakt > 0 {
				e = m.entity()
			}
		case kind == media.KindShow:
			var s show
			if json.Unmarshal(data, &s) == nil && s.IDs.Trakt > 0 {
				e = s.entity()
			}
		}
		if e == nil {
			continue
		}
		if wrapped.Episode != nil && kind == media.KindShow {
			e.Season = wrapped.Episode.Season
		}
		if releaseKey != "" {
			e.SetTime(releaseKey, media.ParseDate(wrapped.Released))
			e.SetTime(releaseKey, media.ParseDate(wrapped.FirstAired))
		}
		out = append(out, e)
	}
	return out, nil
}
