package tvdb

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tvdbapi "github.com/dashotv/tvdb"
	"github.com/dashotv/tvdb/openapi/models/operations"
	"github.com/dashotv/tvdb/openapi/models/shared"

	"github.com/Digital-Shane/metaweave/internal/image"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

// Metadata runs one sub-request against TVDB.
func (p *Provider) Metadata(ctx context.Context, request provider.Request) (provider.Result, error) {
	if p.client == nil || p.apiKey == "" {
		return provider.Result{}, provider.ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return provider.Result{}, err
	}

	var (
		e   *media.Entity
		err error
	)
	switch request.Kind {
	case media.KindMovie:
		e, err = p.fetchMovie(ctx, request)
	case media.KindShow:
		e, err = p.fetchShow(ctx, request)
	case media.KindSeason:
		e, err = p.fetchSeason(ctx, request)
	case media.KindEpisode:
		e, err = p.fetchEpisode(ctx, request)
	case media.KindPack:
		return p.fetchPack(ctx, request)
	default:
		return provider.Result{}, provider.Unsupported(providerName, string(request.Kind))
	}
	if err != nil {
		return provider.Result{}, err
	}
	return provider.Result{Complete: true, Entity: provider.Project(e, request.Section)}, nil
}

func (p *Provider) fetchMovie(ctx context.Context, request provider.Request) (*media.Entity, error) {
	id := parseInt64(request.IDs.TVDb)
	if id == 0 {
		record, err := p.search(ctx, request, "movie")
		if err != nil {
			return nil, err
		}
		id = record.ID
	}

	request.IDs.TVDb = formatID(id)
	key := provider.RequestKey(providerName, request, "extended")
	resp, err := provider.Call(ctx, p.Base, key, provider.RequestPrefix(providerName, request), func(ctx context.Context) (*tvdbapi.GetMovieExtendedResponse, error) {
		meta := operations.QueryParamMetaTranslations
		resp, err := p.client.GetMovieExtended(float64(id), &meta, nil)
		if err != nil {
			return nil, p.mapError(err)
		}
		if resp == nil || resp.Data == nil {
			return nil, provider.NotFound(providerName, "movie %d not found", id)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	movie := resp.Data
	e := &media.Entity{
		Kind:     media.KindMovie,
		IDs:      media.IDs{TVDb: formatID(id), IMDb: findRemoteID(movie.RemoteIds, "imdb"), TMDb: findRemoteID(movie.RemoteIds, "themoviedb")},
		Title:    pointerToString(movie.Name),
		Year:     media.YearOf(pointerToString(movie.Year)),
		Duration: int(deref(movie.Runtime)) * 60,
	}
	for _, g := range movie.Genres {
		if name := pointerToString(g.Name); name != "" {
			e.Genre = append(e.Genre, name)
		}
	}
	e.Voting.Set(providerName, scoreToRating(deref(movie.Score)), 0)
	p.addImage(e, media.ImagePoster, pointerToString(movie.Image))
	return e, nil
}

func (p *Provider) fetchShow(ctx context.Context, request provider.Request) (*media.Entity, error) {
	id, err := p.seriesID(ctx, request)
	if err != nil {
		return nil, err
	}
	resp, err := p.seriesExtended(ctx, id)
	if err != nil {
		return nil, err
	}
	series := resp.Data

	networks := make([]string, 0, 2)
	if series.OriginalNetwork != nil && pointerToString(series.OriginalNetwork.Name) != "" {
		networks = append(networks, pointerToString(series.OriginalNetwork.Name))
	}
	if series.LatestNetwork != nil && pointerToString(series.LatestNetwork.Name) != "" {
		latest := pointerToString(series.LatestNetwork.Name)
		if !stringSliceContains(networks, latest) {
			networks = append(networks, latest)
		}
	}

	e := &media.Entity{
		Kind:      media.KindShow,
		IDs: media.IDs{
			TVDb:   formatID(id),
			IMDb:   findRemoteID(series.RemoteIds, "imdb"),
			TMDb:   findRemoteID(series.RemoteIds, "themoviedb"),
			TVMaze: findRemoteID(series.RemoteIds, "tvmaze"),
		},
		Title:     pointerToString(series.Name),
		Plot:      pointerToString(series.Overview),
		Year:      media.YearOf(pointerToString(series.Year)),
		Premiered: pointerToString(series.FirstAired),
		Network:   networks,
		Duration:  int(deref(series.AverageRuntime)) * 60,
	}
	for _, g := range series.Genres {
		if name := pointerToString(g.Name); name != "" {
			e.Genre = append(e.Genre, name)
		}
	}
	if country := pointerToString(series.Country); country != "" {
		e.Country = []string{country}
	}
	if lang := pointerToString(series.OriginalLanguage); lang != "" {
		e.Language = []string{lang}
	}
	e.SetTime(media.TimePremiere, media.ParseDate(e.Premiered))
	e.Voting.Set(providerName, scoreToRating(deref(series.Score)), 0)
	p.addImage(e, media.ImagePoster, pointerToString(series.Image))
	return e, nil
}

func (p *Provider) seriesExtended(ctx context.Context, id int64) (*tvdbapi.GetSeriesExtendedResponse, error) {
	showRequest := provider.Request{Kind: media.KindShow, IDs: media.IDs{TVDb: formatID(id)}}
	key := provider.RequestKey(providerName, showRequest, "extended")
	return provider.Call(ctx, p.Base, key, provider.RequestPrefix(providerName, showRequest), func(ctx context.Context) (*tvdbapi.GetSeriesExtendedResponse, error) {
		meta := operations.GetSeriesExtendedQueryParamMetaTranslations
		resp, err := p.client.GetSeriesExtended(float64(id), &meta, nil)
		if err != nil {
			return nil, p.mapError(err)
		}
		if resp == nil || resp.Data == nil {
			return nil, provider.NotFound(providerName, "series %d not found", id)
		}
		return resp, nil
	})
}

func (p *Provider) fetchSeason(ctx context.Context, request provider.Request) (*media.Entity, error) {
	id, err := p.seriesID(ctx, request)
	if err != nil {
		return nil, err
	}
	episodes, err := p.episodes(ctx, id, request.Season, 0)
	if err != nil {
		return nil, err
	}
	if len(episodes) == 0 {
		return nil, provider.NotFound(providerName, "season %d not found", request.Season)
	}

	showIDs := media.IDs{TVDb: formatID(id)}
	e := &media.Entity{
		Kind:    media.KindSeason,
		ShowIDs: &showIDs,
		Season:  request.Season,
		Title:   fmt.Sprintf("Season %d", request.Season),
		Count:   &media.Count{Episode: len(episodes)},
	}
	if request.Season == 0 {
		e.Title = "Specials"
	}
	var first int64
	for _, ep := range episodes {
		if aired := media.ParseDate(pointerToString(ep.Aired)); aired > 0 && (first == 0 || aired < first) {
			first = aired
		}
	}
	e.SetTime(media.TimePremiere, first)
	e.Premiered = media.FormatDate(first)
	e.Year = media.YearOf(e.Premiered)
	return e, nil
}

func (p *Provider) fetchEpisode(ctx context.Context, request provider.Request) (*media.Entity, error) {
	id, err := p.seriesID(ctx, request)
	if err != nil {
		return nil, err
	}
	episodes, err := p.episodes(ctx, id, request.Season, request.Episode)
	if err != nil {
		return nil, err
	}
	for _, ep := range episodes {
		if int(deref(ep.Number)) == request.Episode && int(deref(ep.SeasonNumber)) == request.Season {
			return p.episodeToEntity(ep, id), nil
		}
	}
	return nil, provider.NotFound(providerName, "episode S%02dE%02d not found", request.Season, request.Episode)
}

// fetchPack lists every official episode of the series grouped by season.
func (p *Provider) fetchPack(ctx context.Context, request provider.Request) (provider.Result, error) {
	id, err := p.seriesID(ctx, request)
	if err != nil {
		return provider.Result{}, err
	}
	episodes, err := p.episodes(ctx, id, -1, 0)
	if err != nil {
		return provider.Result{}, err
	}
	if len(episodes) == 0 {
		return provider.Result{}, provider.NotFound(providerName, "series %d has no episodes", id)
	}

	bySeason := make(map[int]*media.PackSeason)
	for _, ep := range episodes {
		pe := toPackEpisode(ep)
		s, ok := bySeason[pe.Season]
		if !ok {
			s = &media.PackSeason{Number: pe.Season}
			bySeason[pe.Season] = s
		}
		s.Episodes = append(s.Episodes, pe)
	}

	doc := &media.PackDocument{Provider: providerName}
	for _, s := range bySeason {
		sort.Slice(s.Episodes, func(i, j int) bool { return s.Episodes[i].Episode < s.Episodes[j].Episode })
		doc.Seasons = append(doc.Seasons, *s)
	}
	sort.Slice(doc.Seasons, func(i, j int) bool { return doc.Seasons[i].Number < doc.Seasons[j].Number })
	return provider.Result{Complete: true, Document: doc}, nil
}

// episodes pages through the official episode order. A negative season
// lists the whole series; a zero episode lists the whole season.
func (p *Provider) episodes(ctx context.Context, id int64, season, episode int) ([]shared.EpisodeBaseRecord, error) {
	listRequest := provider.Request{Kind: media.KindPack, IDs: media.IDs{TVDb: formatID(id)}, Season: season, Episode: episode}
	key := provider.RequestKey(providerName, listRequest, "episodes")
	return provider.Call(ctx, p.Base, key, provider.RequestPrefix(providerName, listRequest), func(ctx context.Context) ([]shared.EpisodeBaseRecord, error) {
		req := operations.GetSeriesEpisodesRequest{
			ID:         float64(id),
			SeasonType: "official",
			Page:       0,
		}
		if season >= 0 {
			s := int64(season)
			req.Season = &s
		}
		if episode > 0 {
			e := int64(episode)
			req.EpisodeNumber = &e
		}

		var out []shared.EpisodeBaseRecord
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			resp, err := p.client.GetSeriesEpisodes(req)
			if err != nil {
				return nil, p.mapError(err)
			}
			if resp == nil || resp.Data == nil {
				break
			}
			out = append(out, resp.Data.Episodes...)
			if len(resp.Data.Episodes) < episodePageSize {
				break
			}
			req.Page++
		}
		return out, nil
	})
}

type searchRecord struct {
	ID   int64
	Name string
	Year string
}

func (p *Provider) seriesID(ctx context.Context, request provider.Request) (int64, error) {
	if id := parseInt64(request.IDs.TVDb); id > 0 {
		return id, nil
	}
	record, err := p.search(ctx, request, "series")
	if err != nil {
		return 0, err
	}
	return record.ID, nil
}

// search finds a series or movie by IMDb id when known, else by title.
func (p *Provider) search(ctx context.Context, request provider.Request, kind string) (*searchRecord, error) {
	query := strings.TrimSpace(request.Title)
	if request.IDs.IMDb != "" {
		query = request.IDs.IMDb
	}
	if query == "" {
		return nil, provider.Invalid(providerName, "%s fetch requires a title", kind)
	}

	searchRequest := provider.Request{Kind: request.Kind, Title: query, Year: request.Year}
	key := provider.RequestKey(providerName, searchRequest, "search", kind)
	resp, err := provider.Call(ctx, p.Base, key, "", func(ctx context.Context) (*tvdbapi.GetSearchResultsResponse, error) {
		req := operations.GetSearchResultsRequest{Query: &query}
		req.Type = &kind
		if request.Year > 0 && request.IDs.IMDb == "" {
			yf := float64(request.Year)
			req.Year = &yf
		}
		resp, err := p.client.GetSearchResults(req)
		return resp, p.mapError(err)
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, provider.NotFound(providerName, "no results found for %s: %s", kind, query)
	}

	for _, candidate := range resp.Data {
		r := toSearchRecord(candidate)
		if r.ID == 0 {
			continue
		}
		if strings.EqualFold(pointerToString(candidate.Type), kind) {
			return r, nil
		}
	}
	return nil, provider.NotFound(providerName, "%s not found: %s", kind, query)
}

func (p *Provider) episodeToEntity(ep shared.EpisodeBaseRecord, seriesID int64) *media.Entity {
	pe := toPackEpisode(ep)
	showIDs := media.IDs{TVDb: formatID(seriesID)}
	e := &media.Entity{
		Kind:     media.KindEpisode,
		IDs:      pe.IDs,
		ShowIDs:  &showIDs,
		Title:    pe.Title,
		Plot:     pointerToString(ep.Overview),
		Season:   pe.Season,
		Episode:  pe.Episode,
		Aired:    pointerToString(ep.Aired),
		Year:     media.YearOf(pointerToString(ep.Aired)),
		Duration: pe.Duration,
		Number:   &media.Numbering{Standard: media.NewNumber(pe.Season, pe.Episode)},
	}
	if pe.Absolute > 0 {
		e.Number.Absolute = media.NewNumber(1, pe.Absolute)
	}
	if pe.Season == 0 {
		e.Type = media.TypeSpecial
	}
	e.SetTime(media.TimeAired, pe.Aired)
	e.SetTime(media.TimePremiere, pe.Aired)
	p.addImage(e, media.ImageThumb, pointerToString(ep.Image))
	return e
}

func toPackEpisode(ep shared.EpisodeBaseRecord) media.PackEpisode {
	pe := media.PackEpisode{
		IDs:      media.IDs{TVDb: formatID(int64(deref(ep.ID)))},
		Title:    pointerToString(ep.Name),
		Season:   int(deref(ep.SeasonNumber)),
		Episode:  int(deref(ep.Number)),
		Absolute: int(deref(ep.AbsoluteNumber)),
		Aired:    media.ParseDate(pointerToString(ep.Aired)),
		Duration: int(deref(ep.Runtime)) * 60,
		After:    int(deref(ep.AirsAfterSeason)),
	}
	if season := int(deref(ep.AirsBeforeSeason)); season > 0 {
		pe.Before = media.NewNumber(season, int(deref(ep.AirsBeforeEpisode)))
	}
	return pe
}

func toSearchRecord(result shared.SearchResult) *searchRecord {
	id := parseInt64(pointerToString(result.TvdbID))
	if id == 0 {
		id = parseInt64(strings.TrimPrefix(strings.TrimPrefix(pointerToString(result.ID), "series-"), "movie-"))
	}

	name := firstNonEmptyString(pointerToString(result.Name), pointerToString(result.NameTranslated), pointerToString(result.Title))
	year := pointerToString(result.Year)

	return &searchRecord{ID: id, Name: name, Year: year}
}

// findRemoteID returns the id of the first remote source whose name contains
// source. Names are compared without case or spaces, so "TV Maze" matches
// "tvmaze".
func findRemoteID(ids []shared.RemoteID, source string) string {
	needle := strings.ToLower(strings.ReplaceAll(source, " ", ""))
	for _, remote := range ids {
		sourceName := strings.ToLower(strings.ReplaceAll(pointerToString(remote.SourceName), " ", ""))
		if strings.Contains(sourceName, needle) {
			return strings.TrimSpace(pointerToString(remote.ID))
		}
	}
	return ""
}

// scoreToRating folds the TVDB popularity score into a 0-10 scale. Scores
// are unbounded so anything past 100k counts as a perfect score.
func scoreToRating(score float64) float64 {
	if score <= 0 {
		return 0
	}
	rating := score / 10000
	if rating > 10 {
		rating = 10
	}
	v, _ := strconv.ParseFloat(strconv.FormatFloat(rating, 'f', 1, 64), 64)
	return v
}

func (p *Provider) addImage(e *media.Entity, role, path string) {
	if img, ok := p.images.Create(providerName, path, "", 0); ok {
		image.Add(e, role, img)
	}
}
