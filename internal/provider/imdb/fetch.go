package imdb

import (
	"context"
	"strconv"
	"strings"

	"github.com/Digital-Shane/omdb"

	"github.com/Digital-Shane/metaweave/internal/image"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

// Metadata runs one sub-request against OMDb.
func (p *Provider) Metadata(ctx context.Context, request provider.Request) (provider.Result, error) {
	if p.client == nil || p.apiKey == "" {
		return provider.Result{}, provider.ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return provider.Result{}, err
	}

	imdbID := strings.TrimSpace(request.IDs.IMDb)
	title := strings.TrimSpace(request.Title)
	if imdbID == "" && title == "" {
		return provider.Result{}, provider.Invalid(providerName, "%s fetch requires a title or an IMDb ID", request.Kind)
	}

	query := omdb.QueryData{Title: title, Plot: "full"}
	if request.Year > 0 {
		query.Year = strconv.Itoa(request.Year)
	}
	switch request.Kind {
	case media.KindMovie:
		query.SearchType = "movie"
	case media.KindShow:
		query.SearchType = "series"
	case media.KindSeason:
		query.Season = strconv.Itoa(request.Season)
		query.Plot = ""
	case media.KindEpisode:
		query.Season = strconv.Itoa(request.Season)
		query.Episode = strconv.Itoa(request.Episode)
	default:
		return provider.Result{}, provider.Unsupported(providerName, string(request.Kind))
	}

	key := provider.RequestKey(providerName, request)
	result, err := provider.Call(ctx, p.Base, key, provider.RequestPrefix(providerName, request), func(ctx context.Context) (any, error) {
		var (
			result any
			err    error
		)
		if imdbID != "" {
			query.ImdbID = imdbID
			result, err = p.client.SearchByImdbID(query)
		} else {
			result, err = p.client.SearchByTitle(query)
		}
		return result, p.mapError(err)
	})
	if err != nil {
		return provider.Result{}, err
	}

	var e *media.Entity
	switch r := result.(type) {
	case omdb.MovieResult:
		e = p.movieToEntity(r)
	case *omdb.MovieResult:
		e = p.movieToEntity(*r)
	case omdb.SeriesResult:
		e = p.seriesToEntity(r)
	case *omdb.SeriesResult:
		e = p.seriesToEntity(*r)
	case omdb.SeasonResult:
		e = p.seasonToEntity(&r, request)
	case *omdb.SeasonResult:
		e = p.seasonToEntity(r, request)
	case omdb.EpisodeResult:
		e = p.episodeToEntity(&r, request)
	case *omdb.EpisodeResult:
		e = p.episodeToEntity(r, request)
	}
	if e == nil || (e.Kind != request.Kind) {
		return provider.Result{}, provider.NotFound(providerName, "%s not found", request.Kind)
	}
	return provider.Result{Complete: true, Entity: provider.Project(e, request.Section)}, nil
}

func (p *Provider) movieToEntity(result omdb.MovieResult) *media.Entity {
	e := &media.Entity{
		Kind:      media.KindMovie,
		IDs:       media.IDs{IMDb: result.ImdbID},
		Title:     result.Title,
		Plot:      notAvailable(result.Plot),
		Year:      media.YearOf(omdb.FirstYear(result.Year)),
		Premiered: media.FormatDate(media.ParseDate(result.Released)),
		MPAA:      notAvailable(result.Rated),
		Duration:  parseRuntime(result.Runtime),
		Genre:     splitList(result.Genre),
		Language:  splitList(result.Language),
		Country:   splitList(result.Country),
		Director:  splitList(result.Director),
		Writer:    splitList(result.Writer),
	}
	e.SetTime(media.TimePremiere, media.ParseDate(result.Released))
	e.Voting.Set(providerName, float64(omdb.ParseRating(result.ImdbRating)), parseVotes(result.ImdbVotes))
	for i, name := range splitList(result.Actors) {
		e.Cast = append(e.Cast, media.Person{Name: name, Order: i})
	}
	if link := image.Link(providerName, result.Poster); link != "" {
		image.Add(e, media.ImagePoster, media.Image{Link: link, Provider: providerName})
	}
	return e
}

func (p *Provider) seriesToEntity(result omdb.SeriesResult) *media.Entity {
	e := &media.Entity{
		Kind:      media.KindShow,
		IDs:       media.IDs{IMDb: result.ImdbID},
		Title:     result.Title,
		Plot:      notAvailable(result.Plot),
		Year:      media.YearOf(omdb.FirstYear(result.Year)),
		Premiered: media.FormatDate(media.ParseDate(result.Released)),
		MPAA:      notAvailable(result.Rated),
		Duration:  parseRuntime(result.Runtime),
		Genre:     splitList(result.Genre),
		Language:  splitList(result.Language),
		Country:   splitList(result.Country),
		Creator:   splitList(result.Writer),
	}
	if seasons, err := strconv.Atoi(result.TotalSeasons); err == nil {
		e.Count = &media.Count{Season: seasons}
	}
	e.SetTime(media.TimePremiere, media.ParseDate(result.Released))
	e.Voting.Set(providerName, float64(omdb.ParseRating(result.ImdbRating)), parseVotes(result.ImdbVotes))
	for i, name := range splitList(result.Actors) {
		e.Cast = append(e.Cast, media.Person{Name: name, Order: i})
	}
	if link := image.Link(providerName, result.Poster); link != "" {
		image.Add(e, media.ImagePoster, media.Image{Link: link, Provider: providerName})
	}
	return e
}

func (p *Provider) seasonToEntity(resp *omdb.SeasonResult, request provider.Request) *media.Entity {
	showIDs := media.IDs{IMDb: request.IDs.IMDb}
	e := &media.Entity{
		Kind:      media.KindSeason,
		ShowIDs:   &showIDs,
		ShowTitle: resp.Title,
		Season:    request.Season,
		Year:      media.YearOf(omdb.FirstYearFromEpisodes(resp.Episodes)),
		Count:     &media.Count{Episode: len(resp.Episodes)},
	}
	return e
}

func (p *Provider) episodeToEntity(resp *omdb.EpisodeResult, request provider.Request) *media.Entity {
	showIDs := media.IDs{IMDb: resp.SeriesID}
	if showIDs.IMDb == "" {
		showIDs.IMDb = request.IDs.IMDb
	}
	e := &media.Entity{
		Kind:     media.KindEpisode,
		IDs:      media.IDs{IMDb: resp.ImdbID},
		ShowIDs:  &showIDs,
		Title:    resp.Title,
		Plot:     notAvailable(resp.Plot),
		Season:   request.Season,
		Episode:  request.Episode,
		Aired:    media.FormatDate(media.ParseDate(resp.Released)),
		Year:     media.YearOf(omdb.FirstYear(resp.Released)),
		Duration: parseRuntime(resp.Runtime),
		Genre:    splitList(resp.Genre),
		Language: splitList(resp.Language),
		Country:  splitList(resp.Country),
		Director: splitList(resp.Director),
		Writer:   splitList(resp.Writer),
		Number:   &media.Numbering{Standard: media.NewNumber(request.Season, request.Episode)},
	}
	if e.Year == 0 {
		e.Year = media.YearOf(media.FormatDate(media.ParseDate(resp.Released)))
	}
	e.SetTime(media.TimeAired, media.ParseDate(resp.Released))
	e.Voting.Set(providerName, float64(omdb.ParseRating(resp.ImdbRating)), parseVotes(resp.ImdbVotes))
	return e
}
