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

// Release stages map to TMDB release types.
var releaseTypes = map[string]string{
	media.TimePremiere: "1|2",
	media.TimeLimited:  "2",
	media.TimeTheatre:  "3",
	media.TimeDigital:  "4",
	media.TimePhysical: "5",
	media.TimeTV:       "6",
}

type listItem struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Overview     string  `json:"overview"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	Popularity   float64 `json:"popularity"`
	PosterPath   string  `json:"poster_path"`
}

type listPage struct {
	Page    int        `json:"page"`
	Results []listItem `json:"results"`
}

// Discover returns trending or popular titles.
func (p *Provider) Discover(ctx context.Context, request provider.DiscoverRequest) ([]*media.Entity, error) {
	kind, segment, err := mediaSegment(request.Media)
	if err != nil {
		return nil, err
	}

	var path string
	switch request.List {
	case "trending", "":
		path = "trending/" + segment + "/week"
	case "popular":
		path = segment + "/popular"
	case "top":
		path = segment + "/top_rated"
	case "recent", "worst":
		path = "discover/" + segment
	default:
		return nil, provider.Unsupported(providerName, "list "+request.List)
	}

	query := url.Values{"api_key": {p.apiKey}, "language": {p.language}}
	if request.Page > 1 {
		query.Set("page", strconv.Itoa(request.Page))
	}
	switch request.List {
	case "recent":
		query.Set("sort_by", "popularity.desc")
	case "worst":
		query.Set("sort_by", "vote_average.asc")
		query.Set("vote_count.gte", "100")
	}
	if request.Years[0] > 0 {
		field := "primary_release_date"
		if kind == media.KindShow {
			field = "first_air_date"
		}
		last := max(request.Years[1], request.Years[0])
		query.Set(field+".gte", fmt.Sprintf("%d-01-01", request.Years[0]))
		query.Set(field+".lte", fmt.Sprintf("%d-12-31", last))
	}
	return p.list(ctx, kind, path, query, request.Limit)
}

// Release returns titles released within the window at the given stage.
func (p *Provider) Release(ctx context.Context, request provider.ReleaseRequest) ([]*media.Entity, error) {
	kind, segment, err := mediaSegment(request.Media)
	if err != nil {
		return nil, err
	}

	query := url.Values{
		"api_key":  {p.apiKey},
		"language": {p.language},
		"sort_by":  {"popularity.desc"},
	}
	start, end := request.Start.Format("2006-01-02"), request.End.Format("2006-01-02")
	if kind == media.KindMovie {
		query.Set("release_date.gte", start)
		query.Set("release_date.lte", end)
		if types, ok := releaseTypes[request.Stage]; ok {
			query.Set("with_release_type", types)
		}
	} else {
		query.Set("first_air_date.gte", start)
		query.Set("first_air_date.lte", end)
	}
	return p.list(ctx, kind, "discover/"+segment, query, request.Limit)
}

// Search finds titles by name through the SDK.
func (p *Provider) Search(ctx context.Context, kind media.Kind, query string, year int) ([]*media.Entity, error) {
	if p.client == nil {
		return nil, provider.ErrNotConfigured
	}
	request := provider.Request{Kind: kind, Title: query, Year: year}
	options := p.options(request)

	switch kind {
	case media.KindMovie:
		if year > 0 {
			options["year"] = strconv.Itoa(year)
		}
		results, err := provider.Call(ctx, p.Base, provider.RequestKey(providerName, request, "search"), "", func(ctx context.Context) (*tmdb.MovieSearchResults, error) {
			results, err := p.client.SearchMovie(query, options)
			return results, p.mapError(err)
		})
		if err != nil || results == nil {
			return nil, err
		}
		out := make([]*media.Entity, 0, len(results.Results))
		for _, r := range results.Results {
			e := &media.Entity{
				Kind:       media.KindMovie,
				IDs:        media.IDs{TMDb: formatID(r.ID)},
				Title:      r.Title,
				Plot:       r.Overview,
				Year:       media.YearOf(r.ReleaseDate),
				Premiered:  r.ReleaseDate,
				Popularity: float64(r.Popularity),
			}
			e.Voting.Set(providerName, float64(r.VoteAverage), int(r.VoteCount))
			out = append(out, e)
		}
		return out, nil
	case media.KindShow:
		if year > 0 {
			options["first_air_date_year"] = strconv.Itoa(year)
		}
		results, err := provider.Call(ctx, p.Base, provider.RequestKey(providerName, request, "search"), "", func(ctx context.Context) (*tmdb.TvSearchResults, error) {
			results, err := p.client.SearchTv(query, options)
			return results, p.mapError(err)
		})
		if err != nil || results == nil {
			return nil, err
		}
		out := make([]*media.Entity, 0, len(results.Results))
		for _, r := range results.Results {
			e := &media.Entity{
				Kind:       media.KindShow,
				IDs:        media.IDs{TMDb: formatID(r.ID)},
				Title:      r.Name,
				Year:       media.YearOf(r.FirstAirDate),
				Premiered:  r.FirstAirDate,
				Country:    r.OriginCountry,
				Popularity: float64(r.Popularity),
			}
			e.Voting.Set(providerName, float64(r.VoteAverage), int(r.VoteCount))
			p.addImage(e, media.ImagePoster, r.PosterPath)
			out = append(out, e)
		}
		return out, nil
	}
	return nil, provider.Unsupported(providerName, "search for "+string(kind))
}

// List is not offered by TMDB without a user session.
func (p *Provider) List(ctx context.Context, request provider.ListRequest) ([]*media.Entity, error) {
	return nil, provider.Unsupported(providerName, "user lists")
}

// Person is not offered by TMDB.
func (p *Provider) Person(ctx context.Context, kind media.Kind, query string) ([]*media.Entity, error) {
	return nil, provider.Unsupported(providerName, "person lists")
}

func (p *Provider) list(ctx context.Context, kind media.Kind, path string, query url.Values, limit int) ([]*media.Entity, error) {
	if p.http == nil {
		return nil, provider.ErrNotConfigured
	}
	key := providerName + ":list:" + path + "?" + query.Encode()
	page, err := provider.Call(ctx, p.Base, key, "", func(ctx context.Context) (*listPage, error) {
		var page listPage
		if _, err := p.http.GetJSON(ctx, path, query, &page); err != nil {
			return nil, err
		}
		return &page, nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]*media.Entity, 0, len(page.Results))
	for _, item := range page.Results {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, p.listItemToEntity(kind, item))
	}
	return out, nil
}

func (p *Provider) listItemToEntity(kind media.Kind, item listItem) *media.Entity {
	title, date := item.Title, item.ReleaseDate
	if kind == media.KindShow {
		title, date = item.Name, item.FirstAirDate
	}
	e := &media.Entity{
		Kind:       kind,
		IDs:        media.IDs{TMDb: formatID(item.ID)},
		Title:      title,
		Plot:       item.Overview,
		Year:       media.YearOf(date),
		Premiered:  date,
		Popularity: item.Popularity,
	}
	e.SetTime(media.TimePremiere, media.ParseDate(date))
	e.Voting.Set(providerName, item.VoteAverage, item.VoteCount)
	p.addImage(e, media.ImagePoster, item.PosterPath)
	return e
}

func mediaSegment(kind media.Kind) (media.Kind, string, error) {
	switch kind.Media() {
	case media.KindMovie:
		return media.KindMovie, "movie", nil
	case media.KindShow:
		return media.KindShow, "tv", nil
	}
	return "", "", fmt.Errorf("tmdb: unsupported media %q", kind)
}
