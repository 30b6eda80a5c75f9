package tvdb

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tvdbapi "github.com/dashotv/tvdb"
	"github.com/dashotv/tvdb/openapi/models/operations"

	"github.com/Digital-Shane/metaweave/internal/image"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

const (
	providerName = media.ProviderTVDb
	// episodePageSize is the fixed page size of the episodes endpoint.
	episodePageSize = 500
)

// TVDBClient captures the dashotv client methods used by this provider.
type TVDBClient interface {
	GetSearchResults(request operations.GetSearchResultsRequest) (*tvdbapi.GetSearchResultsResponse, error)
	GetSeriesExtended(id float64, meta *operations.GetSeriesExtendedQueryParamMeta, short *bool) (*tvdbapi.GetSeriesExtendedResponse, error)
	GetMovieExtended(id float64, meta *operations.QueryParamMeta, short *bool) (*tvdbapi.GetMovieExtendedResponse, error)
	GetSeriesEpisodes(request operations.GetSeriesEpisodesRequest) (*tvdbapi.GetSeriesEpisodesResponse, error)
}

// Provider implements the provider.Provider interface for TVDB.
type Provider struct {
	*provider.Base

	client TVDBClient
	images image.Processor
	apiKey string
}

// New creates a new TVDB provider instance.
func New() *Provider {
	return &Provider{
		Base:   provider.NewBase(providerName, 100, 10*time.Second, 10*time.Minute),
		images: image.NewDefault(""),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// Description returns a human readable description of the provider.
func (p *Provider) Description() string {
	return "TheTVDB (TVDB) provided metadata"
}

// Capabilities returns what this provider can handle.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Kinds: []media.Kind{
			media.KindMovie,
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
			provider.SectionPack,
		},
		RequiresAuth: true,
		Priority:     95,
	}
}

// Configure applies configuration to the provider. A "client" entry
// replaces the logged-in SDK client.
func (p *Provider) Configure(config map[string]interface{}) error {
	apiKeyRaw, ok := config["api_key"].(string)
	if !ok {
		return fmt.Errorf("api_key is required")
	}

	apiKey := strings.TrimSpace(apiKeyRaw)
	if apiKey == "" {
		return fmt.Errorf("api_key is required")
	}

	if language, ok := config["language"].(string); ok && language != "" {
		p.images = image.NewDefault(language)
	}

	if client, ok := config["client"].(TVDBClient); ok {
		p.client = client
	} else {
		client, err := tvdbapi.Login(apiKey)
		if err != nil {
			return p.mapError(err)
		}
		p.client = client
	}
	p.apiKey = apiKey
	return nil
}

func (p *Provider) mapError(err error) error {
	return provider.MapError(providerName, err)
}

func deref[T any](value *T) T {
	var zero T
	if value == nil {
		return zero
	}
	return *value
}

func pointerToString(value *string) string {
	return strings.TrimSpace(deref(value))
}

func parseInt64(value string) int64 {
	parsed, _ := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	return parsed
}

func formatID(id int64) string {
	if id <= 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func firstNonEmptyString(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func stringSliceContains(values []string, value string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, value) {
			return true
		}
	}
	return false
}
