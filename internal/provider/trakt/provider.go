// Package trakt implements the Trakt provider. Trakt is the reference
// provider for ID consensus and official episode numbering.
package trakt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

const (
	providerName   = media.ProviderTrakt
	defaultBaseURL = "https://api.trakt.tv"
	apiVersion     = "2"
)

// Provider implements provider.Provider and provider.Discoverer for Trakt.
type Provider struct {
	*provider.Base

	http     *provider.HTTPClient
	clientID string
	token    string
	country  string
}

// New creates a new Trakt provider instance.
func New() *Provider {
	return &Provider{
		// 1000 GET requests per 5 minutes.
		Base:    provider.NewBase(providerName, 1000, 5*time.Minute, 10*time.Minute),
		country: "us",
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// Description returns a human readable description of the provider.
func (p *Provider) Description() string {
	return "Trakt.tv metadata, lists and calendars"
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
			provider.SectionPeople,
			provider.SectionReleases,
			provider.SectionStudios,
			provider.SectionRatings,
			provider.SectionSeason,
			provider.SectionPack,
		},
		RequiresAuth: true,
		Priority:     110,
	}
}

// Configure applies configuration to the provider. "api_key" is the Trakt
// client id; "access_token" enables user recommendations.
func (p *Provider) Configure(config map[string]interface{}) error {
	clientID, _ := config["api_key"].(string)
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return fmt.Errorf("api_key is required")
	}
	p.clientID = clientID

	if token, ok := config["access_token"].(string); ok {
		p.token = strings.TrimSpace(token)
	}
	if country, ok := config["country"].(string); ok && country != "" {
		p.country = strings.ToLower(country)
	}

	baseURL := defaultBaseURL
	if u, ok := config["base_url"].(string); ok && u != "" {
		baseURL = u
	}
	p.http = provider.NewHTTPClient(providerName, baseURL, 3, 10)
	p.http.SetHeader("trakt-api-version", apiVersion)
	p.http.SetHeader("trakt-api-key", p.clientID)
	p.http.SetHeader("Content-Type", "application/json")
	if p.token != "" {
		p.http.SetHeader("Authorization", "Bearer "+p.token)
	}
	return nil
}

// ids is the identifier block Trakt attaches to every object.
type ids struct {
	Trakt  int    `json:"trakt"`
	Slug   string `json:"slug"`
	IMDb   string `json:"imdb"`
	TMDb   int    `json:"tmdb"`
	TVDb   int    `json:"tvdb"`
	TVRage int    `json:"tvrage"`
}

func (i ids) media() media.IDs {
	return media.IDs{
		Trakt:  formatID(i.Trakt),
		Slug:   i.Slug,
		IMDb:   i.IMDb,
		TMDb:   formatID(i.TMDb),
		TVDb:   formatID(i.TVDb),
		TVRage: formatID(i.TVRage),
	}
}

func formatID(id int) string {
	if id <= 0 {
		return ""
	}
	return strconv.Itoa(id)
}
