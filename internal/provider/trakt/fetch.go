package trakt

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

// get decodes path into a value of type T through the request cache.
func get[T any](ctx context.Context, p *Provider, request provider.Request, path string, query url.Values) (T, error) {
	key := provider.RequestKey(providerName, request, path+"?"+query.Encode())
	return provider.Call(ctx, p.Base, key, provider.RequestPrefix(providerName, request), func(ctx context.Context) (T, error) {
		var out T
		_, err := p.http.GetJSON(ctx, path, query, &out)
		return out, err
	})
}

var fullQuery = url.Values{"extended": {"full"}}

// Metadata runs one sub-request against Trakt.
func (p *Provider) Metadata(ctx context.Context, request provider.Request) (provider.Result, error) {
	if p.http == nil {
		return provider.Result{}, provider.ErrNotConfigured
	}

	switch request.Kind {
	case media.KindMovie:
		return p.movie(ctx, request)
	case media.KindShow:
		return p.show(ctx, request)
	case media.KindSeason:
		return p.season(ctx, request)
	case media.KindEpisode:
		return p.episode(ctx, request)
	case media.KindPack:
		return p.pack(ctx, request)
	}
	return provider.Result{}, provider.Unsupported(providerName, string(request.Kind))
}

func (p *Provider) movie(ctx context.Context, request provider.Request) (provider.Result, error) {
	id, err := p.resolve(ctx, media.KindMovie, request)
	if err != nil {
		return provider.Result{}, err
	}
	base := "movies/" + id

	var e *media.Entity
	switch request.Section {
	case provider.SectionSummary, provider.SectionRatings, "":
		m, err := get[movie](ctx, p, request, base, fullQuery)
		if err != nil {
			return provider.Result{}, err
		}
		e = m.entity()
	case provider.SectionPeople:
		ppl, err := get[people](ctx, p, request, base+"/people", nil)
		if err != nil {
			return provider.Result{}, err
		}
		e = p.stub(media.KindMovie, request, id)
		applyPeople(e, &ppl)
	case provider.SectionReleases:
		releases, err := get[[]release](ctx, p, request, base+"/releases", nil)
		if err != nil {
			return provider.Result{}, err
		}
		e = p.stub(media.KindMovie, request, id)
		applyReleases(e, releases, p.country)
	case provider.SectionStudios:
		studios, err := get[[]studio](ctx, p, request, base+"/studios", nil)
		if err != nil {
			return provider.Result{}, err
		}
		e = p.stub(media.KindMovie, request, id)
		for _, s := range studios {
			e.Studio = appendUnique(e.Studio, s.Name)
		}
	default:
		return provider.Result{}, provider.Unsupported(providerName, "movie "+string(request.Section))
	}
	return provider.Result{Complete: true, Entity: provider.Project(e, request.Section)}, nil
}

func (p *Provider) show(ctx context.Context, request provider.Request) (provider.Result, error) {
	id, err := p.resolve(ctx, media.KindShow, request)
	if err != nil {
		return provider.Result{}, err
	}
	base := "shows/" + id

	var e *media.Entity
	switch request.Section {
	case provider.SectionSummary, provider.SectionRatings, "":
		s, err := get[show](ctx, p, request, base, fullQuery)
		if err != nil {
			return provider.Result{}, err
		}
		e = s.entity()
	case provider.SectionPeople:
		ppl, err := get[people](ctx, p, request, base+"/people", nil)
		if err != nil {
			return provider.Result{}, err
		}
		e = p.stub(media.KindShow, request, id)
		applyPeople(e, &ppl)
	case provider.SectionStudios:
		studios, err := get[[]studio](ctx, p, request, base+"/studios", nil)
		if err != nil {
			return provider.Result{}, err
		}
		e = p.stub(media.KindShow, request, id)
		for _, s := range studios {
			e.Studio = appendUnique(e.Studio, s.Name)
		}
	default:
		return provider.Result{}, provider.Unsupported(providerName, "show "+string(request.Section))
	}
	return provider.Result{Complete: true, Entity: provider.Project(e, request.Section)}, nil
}

func (p *Provider) season(ctx context.Context, request provider.Request) (provider.Result, error) {
	id, err := p.resolve(ctx, media.KindShow, request)
	if err != nil {
		return provider.Result{}, err
	}
	showRequest := showScope(request)
	seasons, err := get[[]season](ctx, p, showRequest, "shows/"+id+"/seasons", fullQuery)
	if err != nil {
		return provider.Result{}, err
	}
	for i := range seasons {
		if seasons[i].Number == request.Season {
			return provider.Result{Complete: true, Entity: seasons[i].entity(p.showIDs(request, id))}, nil
		}
	}
	return provider.Result{}, provider.NotFound(providerName, "season %d not found", request.Season)
}

func (p *Provider) episode(ctx context.Context, request provider.Request) (provider.Result, error) {
	id, err := p.resolve(ctx, media.KindShow, request)
	if err != nil {
		return provider.Result{}, err
	}
	showIDs := p.showIDs(request, id)
	path := fmt.Sprintf("shows/%s/seasons/%d", id, request.Season)

	switch request.Section {
	case provider.SectionSeason:
		seasonRequest := showScope(request)
		seasonRequest.Season = request.Season
		episodes, err := get[[]episode](ctx, p, seasonRequest, path, fullQuery)
		if err != nil {
			return provider.Result{}, err
		}
		for i := range episodes {
			if episodes[i].Number == request.Episode {
				return provider.Result{Complete: true, Entity: episodes[i].entity(showIDs)}, nil
			}
		}
		return provider.Result{}, provider.NotFound(providerName, "episode S%02dE%02d not found", request.Season, request.Episode)
	case provider.SectionPeople:
		ppl, err := get[people](ctx, p, request, path+"/episodes/"+strconv.Itoa(request.Episode)+"/people", nil)
		if err != nil {
			return provider.Result{}, err
		}
		e := &media.Entity{Kind: media.KindEpisode, ShowIDs: &showIDs, Season: request.Season, Episode: request.Episode}
		applyPeople(e, &ppl)
		return provider.Result{Complete: true, Entity: e}, nil
	case provider.SectionSummary, provider.SectionRatings, "":
		ep, err := get[episode](ctx, p, request, path+"/episodes/"+strconv.Itoa(request.Episode), fullQuery)
		if err != nil {
			return provider.Result{}, err
		}
		return provider.Result{Complete: true, Entity: provider.Project(ep.entity(showIDs), request.Section)}, nil
	}
	return provider.Result{}, provider.Unsupported(providerName, "episode "+string(request.Section))
}

// pack lists every season with its episodes in one request.
func (p *Provider) pack(ctx context.Context, request provider.Request) (provider.Result, error) {
	id, err := p.resolve(ctx, media.KindShow, request)
	if err != nil {
		return provider.Result{}, err
	}
	seasons, err := get[[]season](ctx, p, showScope(request), "shows/"+id+"/seasons", url.Values{"extended": {"episodes,full"}})
	if err != nil {
		return provider.Result{}, err
	}
	if len(seasons) == 0 {
		return provider.Result{}, provider.NotFound(providerName, "show %s has no seasons", id)
	}

	doc := &media.PackDocument{Provider: providerName}
	for _, s := range seasons {
		ps := media.PackSeason{Number: s.Number, IDs: s.IDs.media(), Title: s.Title}
		for i := range s.Episodes {
			ps.Episodes = append(ps.Episodes, s.Episodes[i].pack())
		}
		doc.Seasons = append(doc.Seasons, ps)
	}
	return provider.Result{Complete: true, Document: doc}, nil
}

// resolve returns the path identifier for a movie or show: the Trakt id or
// slug when known, the IMDb id (accepted directly by Trakt), or the result
// of an id or title search.
func (p *Provider) resolve(ctx context.Context, kind media.Kind, request provider.Request) (string, error) {
	switch {
	case request.IDs.Trakt != "":
		return request.IDs.Trakt, nil
	case request.IDs.Slug != "":
		return request.IDs.Slug, nil
	case request.IDs.IMDb != "":
		return request.IDs.IMDb, nil
	}

	searchType := "movie"
	if kind == media.KindShow {
		searchType = "show"
	}
	searchRequest := provider.Request{Kind: kind, IDs: request.IDs, Title: request.Title, Year: request.Year}

	for _, source := range []string{media.ProviderTMDb, media.ProviderTVDb} {
		value := request.IDs.Get(source)
		if value == "" {
			continue
		}
		results, err := get[[]item](ctx, p, searchRequest, "search/"+source+"/"+value, url.Values{"type": {searchType}})
		if err != nil {
			return "", err
		}
		if id := firstTraktID(results, searchType); id != "" {
			return id, nil
		}
	}

	if request.Title != "" {
		query := url.Values{"query": {request.Title}}
		if request.Year > 0 {
			query.Set("years", strconv.Itoa(request.Year))
		}
		results, err := get[[]item](ctx, p, searchRequest, "search/"+searchType, query)
		if err != nil {
			return "", err
		}
		if id := firstTraktID(results, searchType); id != "" {
			return id, nil
		}
	}
	return "", provider.NotFound(providerName, "%s not found on trakt", kind)
}

func firstTraktID(results []item, searchType string) string {
	for _, r := range results {
		switch {
		case searchType == "movie" && r.Movie != nil && r.Movie.IDs.Trakt > 0:
			return strconv.Itoa(r.Movie.IDs.Trakt)
		case searchType == "show" && r.Show != nil && r.Show.IDs.Trakt > 0:
			return strconv.Itoa(r.Show.IDs.Trakt)
		}
	}
	return ""
}

// stub returns an identity-only entity for section responses that carry
// no identifiers of their own.
func (p *Provider) stub(kind media.Kind, request provider.Request, id string) *media.Entity {
	e := &media.Entity{Kind: kind, IDs: request.IDs, Title: request.Title, Year: request.Year}
	if _, err := strconv.Atoi(id); err == nil && e.IDs.Trakt == "" {
		e.IDs.Trakt = id
	}
	return e
}

func (p *Provider) showIDs(request provider.Request, id string) media.IDs {
	showIDs := request.IDs
	if _, err := strconv.Atoi(id); err == nil && showIDs.Trakt == "" {
		showIDs.Trakt = id
	}
	return showIDs
}

// showScope narrows a request to its show so season listings are shared
// between every season and episode request of the same show.
func showScope(request provider.Request) provider.Request {
	return provider.Request{Kind: media.KindShow, IDs: request.IDs, Title: request.Title, Year: request.Year, Language: request.Language}
}
