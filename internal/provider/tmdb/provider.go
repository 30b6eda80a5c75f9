package tmdb

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ryanbradynd05/go-tmdb"

	"github.com/Digital-Shane/metaweave/internal/image"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

const (
	providerName   = media.ProviderTMDb
	defaultBaseURL = "https://api.themoviedb.org/3"
)

// Provider implements provider.Provider and provider.Discoverer for TMDB.
type Provider struct {
	*provider.Base

	client   TMDBClient
	http     *provider.HTTPClient
	images   image.Processor
	language string
	apiKey   string
}

// TMDBClient interface for testing (matches *tmdb.TMDb exactly)
type TMDBClient interface {
	SearchMovie(name string, options map[string]string) (*tmdb.MovieSearchResults, error)
	SearchTv(name string, options map[string]string) (*tmdb.TvSearchResults, error)
	GetMovieInfo(id int, options map[string]string) (*tmdb.Movie, error)
	GetTvInfo(id int, options map[string]string) (*tmdb.TV, error)
	GetTvSeasonInfo(showID, seasonID int, options map[string]string) (*tmdb.TvSeason, error)
	GetTvEpisodeInfo(showID, seasonNum, episodeNum int, options map[string]string) (*tmdb.TvEpisode, error)
}

// New creates a new TMDB provider instance
func New() *Provider {
	return &Provider{
		// 38 requests per 10 seconds
		Base:     provider.NewBase(providerName, 38, 10*time.Second, 10*time.Minute),
		images:   image.NewDefault(""),
		language: "en-US",
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return providerName
}

// Description returns the provider description
func (p *Provider) Description() string {
	return "The Movie Database (TMDB) provided metadata"
}

// Capabilities returns what this provider can do
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Kinds: []media.Kind{
			media.KindMovie,
			media.KindSet,
			media.KindShow,
			media.KindSeason,
			media.KindEpisode,
			media.KindPack,
		},
		Sections: []provider.Section{
			provider.SectionSummary,
			provider.SectionStudios,
			provider.SectionImages,
			provider.SectionRatings,
			provider.SectionPeople,
			provider.SectionParts,
			provider.SectionPack,
		},
		RequiresAuth: true,
		Priority:     100,
	}
}

// Configure applies configuration to the provider
func (p *Provider) Configure(config map[string]interface{}) error {
	apiKey, ok := config["api_key"].(string)
	if !ok || apiKey == "" {
		return fmt.Errorf("api_key is required")
	}
	p.apiKey = apiKey

	if language, ok := config["language"].(string); ok && language != "" {
		p.language = language
	}

	baseURL := defaultBaseURL
	if u, ok := config["base_url"].(string); ok && u != "" {
		baseURL = u
	}
	p.http = provider.NewHTTPClient(providerName, baseURL, 4, 4)
	p.images = image.NewDefault(p.language)

	if client, ok := config["client"].(TMDBClient); ok {
		p.client = client
	} else {
		p.client = tmdb.Init(tmdb.Config{APIKey: p.apiKey})
	}
	return nil
}

func (p *Provider) options(request provider.Request) map[string]string {
	lang := request.Language
	if lang == "" {
		lang = p.language
	}
	return map[string]string{"language": lang}
}

func (p *Provider) mapError(err error) error {
	return provider.MapError(providerName, err)
}

func formatID(id int) string {
	if id <= 0 {
		return ""
	}
	return strconv.Itoa(id)
}

func parseID(id string) (int, bool) {
	n, err := strconv.Atoi(id)
	return n, err == nil && n > 0
}
