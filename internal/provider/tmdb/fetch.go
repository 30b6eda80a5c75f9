package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ryanbradynd05/go-tmdb"

	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

// Metadata runs one sub-request against TMDB. Every section of an entity is
// answered from the same upstream response, which the request cache shares.
func (p *Provider) Metadata(ctx context.Context, request provider.Request) (provider.Result, error) {
	if p.client == nil {
		return provider.Result{}, provider.ErrNotConfigured
	}

	var (
		e   *media.Entity
		err error
	)
	switch request.Kind {
	case media.KindMovie:
		e, err = p.fetchMovie(ctx, request)
	case media.KindSet:
		e, err = p.fetchSet(ctx, request)
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

// fetchMovie fetches movie metadata
func (p *Provider) fetchMovie(ctx context.Context, request provider.Request) (*media.Entity, error) {
	id, ok := parseID(request.IDs.TMDb)
	if !ok {
		found, err := p.searchMovieID(ctx, request)
		if err != nil {
			return nil, err
		}
		id = found
	}

	request.IDs.TMDb = formatID(id)
	key := provider.RequestKey(providerName, request, "info")
	movie, err := provider.Call(ctx, p.Base, key, provider.RequestPrefix(providerName, request), func(ctx context.Context) (*tmdb.Movie, error) {
		movie, err := p.client.GetMovieInfo(id, p.options(request))
		if err != nil {
			return nil, p.mapError(err)
		}
		if movie == nil {
			return nil, provider.NotFound(providerName, "movie %d not found", id)
		}
		return movie, nil
	})
	if err != nil {
		return nil, err
	}
	return p.movieToEntity(movie), nil
}

func (p *Provider) searchMovieID(ctx context.Context, request provider.Request) (int, error) {
	if request.Title == "" {
		return 0, provider.Invalid(providerName, "movie request without tmdb id or title")
	}
	options := p.options(request)
	if request.Year > 0 {
		options["year"] = strconv.Itoa(request.Year)
	}
	key := provider.RequestKey(providerName, request, "search")
	results, err := provider.Call(ctx, p.Base, key, "", func(ctx context.Context) (*tmdb.MovieSearchResults, error) {
		results, err := p.client.SearchMovie(request.Title, options)
		return results, p.mapError(err)
	})
	if err != nil {
		return 0, err
	}
	if results == nil || len(results.Results) == 0 {
		return 0, provider.NotFound(providerName, "no results found for movie: %s", request.Title)
	}
	return results.Results[0].ID, nil
}

// collection is the /collection/{id} response.
type collection struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	PosterPath   string `json:"poster_path"`
	BackdropPath string `json:"backdrop_path"`
	Parts        []struct {
		ID          int     `json:"id"`
		Title       string  `json:"title"`
		ReleaseDate string  `json:"release_date"`
		VoteAverage float64 `json:"vote_average"`
		VoteCount   int     `json:"vote_count"`
	} `json:"parts"`
}

// fetchSet fetches a movie collection. Collections are only addressable by
// TMDB id.
func (p *Provider) fetchSet(ctx context.Context, request provider.Request) (*media.Entity, error) {
	id, ok := parseID(request.IDs.TMDb)
	if !ok {
		return nil, provider.Invalid(providerName, "set request without tmdb id")
	}
	key := provider.RequestKey(providerName, request, "collection")
	c, err := provider.Call(ctx, p.Base, key, provider.RequestPrefix(providerName, request), func(ctx context.Context) (*collection, error) {
		var c collection
		query := url.Values{"api_key": {p.apiKey}, "language": {p.options(request)["language"]}}
		if _, err := p.http.GetJSON(ctx, fmt.Sprintf("collection/%d", id), query, &c); err != nil {
			return nil, err
		}
		return &c, nil
	})
	if err != nil {
		return nil, err
	}
	return p.collectionToEntity(c), nil
}

// fetchShow fetches TV show metadata
func (p *Provider) fetchShow(ctx context.Context, request provider.Request) (*media.Entity, error) {
	show, err := p.showInfo(ctx, request)
	if err != nil {
		return nil, err
	}
	return p.tvToEntity(show), nil
}

func (p *Provider) showInfo(ctx context.Context, request provider.Request) (*tmdb.TV, error) {
	showID, err := p.getShowID(ctx, request)
	if err != nil {
		return nil, err
	}
	showRequest := provider.Request{Kind: media.KindShow, IDs: media.IDs{TMDb: formatID(showID)}, Language: request.Language}
	key := provider.RequestKey(providerName, showRequest, "info")
	return provider.Call(ctx, p.Base, key, provider.RequestPrefix(providerName, showRequest), func(ctx context.Context) (*tmdb.TV, error) {
		options := p.options(request)
		options["append_to_response"] = "external_ids"
		show, err := p.client.GetTvInfo(showID, options)
		if err != nil {
			return nil, p.mapError(err)
		}
		if show == nil {
			return nil, provider.NotFound(providerName, "show %d not found", showID)
		}
		return show, nil
	})
}

// fetchSeason fetches season metadata
func (p *Provider) fetchSeason(ctx context.Context, request provider.Request) (*media.Entity, error) {
	showID, err := p.getShowID(ctx, request)
	if err != nil {
		return nil, err
	}
	season, err := p.seasonInfo(ctx, request, showID, request.Season)
	if err != nil {
		return nil, err
	}
	return p.seasonToEntity(season, showID), nil
}

func (p *Provider) seasonInfo(ctx context.Context, request provider.Request, showID, number int) (*tmdb.TvSeason, error) {
	seasonRequest := provider.Request{Kind: media.KindSeason, IDs: media.IDs{TMDb: formatID(showID)}, Season: number, Language: request.Language}
	key := provider.RequestKey(providerName, seasonRequest, "season")
	return provider.Call(ctx, p.Base, key, provider.RequestPrefix(providerName, seasonRequest), func(ctx context.Context) (*tmdb.TvSeason, error) {
		season, err := p.client.GetTvSeasonInfo(showID, number, p.options(request))
		if err != nil {
			return nil, p.mapError(err)
		}
		if season == nil {
			return nil, provider.NotFound(providerName, "season %d not found", number)
		}
		return season, nil
	})
}

// fetchEpisode fetches episode metadata
func (p *Provider) fetchEpisode(ctx context.Context, request provider.Request) (*media.Entity, error) {
	showID, err := p.getShowID(ctx, request)
	if err != nil {
		return nil, err
	}

	key := provider.RequestKey(providerName, request, "episode")
	episode, err := provider.Call(ctx, p.Base, key, provider.RequestPrefix(providerName, request), func(ctx context.Context) (*tmdb.TvEpisode, error) {
		episode, err := p.client.GetTvEpisodeInfo(showID, request.Season, request.Episode, p.options(request))
		if err != nil {
			return nil, p.mapError(err)
		}
		if episode == nil {
			return nil, provider.NotFound(providerName, "episode S%02dE%02d not found", request.Season, request.Episode)
		}
		return episode, nil
	})
	if err != nil {
		return nil, err
	}
	return p.episodeToEntity(episode, showID), nil
}

// fetchPack lists every season of the show. A missing specials season is
// not an error; any other failed season makes the document incomplete.
func (p *Provider) fetchPack(ctx context.Context, request provider.Request) (provider.Result, error) {
	show, err := p.showInfo(ctx, request)
	if err != nil {
		return provider.Result{}, err
	}

	doc := &media.PackDocument{Provider: providerName}
	complete := true
	for number := 0; number <= show.NumberOfSeasons; number++ {
		season, err := p.seasonInfo(ctx, request, show.ID, number)
		if err != nil {
			if ctx.Err() != nil {
				return provider.Result{}, ctx.Err()
			}
			if number == 0 && provider.IsNotFound(err) {
				continue
			}
			complete = false
			continue
		}
		doc.Seasons = append(doc.Seasons, seasonToPack(season))
	}
	if len(doc.Seasons) == 0 {
		return provider.Result{}, provider.NotFound(providerName, "show %d has no seasons", show.ID)
	}
	return provider.Result{Complete: complete, Document: doc, Entity: p.tvToEntity(show)}, nil
}

// getShowID gets the TMDB show ID from a request
func (p *Provider) getShowID(ctx context.Context, request provider.Request) (int, error) {
	if id, ok := parseID(request.IDs.TMDb); ok {
		return id, nil
	}
	if request.Title == "" {
		return 0, provider.Invalid(providerName, "show request without tmdb id or title")
	}

	showRequest := provider.Request{Kind: media.KindShow, Title: request.Title, Year: request.Year, Language: request.Language}
	key := provider.RequestKey(providerName, showRequest, "search")
	results, err := provider.Call(ctx, p.Base, key, "", func(ctx context.Context) (*tmdb.TvSearchResults, error) {
		options := p.options(request)
		if request.Year > 0 {
			options["first_air_date_year"] = strconv.Itoa(request.Year)
		}
		results, err := p.client.SearchTv(request.Title, options)
		return results, p.mapError(err)
	})
	if err != nil {
		return 0, err
	}
	if results == nil || len(results.Results) == 0 {
		return 0, provider.NotFound(providerName, "show not found: %s", request.Title)
	}
	return results.Results[0].ID, nil
}
