package imdb

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/omdb"

	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

const providerName = media.ProviderIMDb

// Provider serves IMDb data through the OMDb API.
type Provider struct {
	*provider.Base

	client     *omdb.Client
	httpClient *http.Client
	apiKey     string
}

// New creates a new IMDb provider instance.
func New() *Provider {
	return &Provider{
		// The free OMDb tier allows 1000 requests a day.
		Base: provider.NewBase(providerName, 1000, 24*time.Hour, 30*time.Minute),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// Description returns a human readable description of the provider.
func (p *Provider) Description() string {
	return "IMDb ratings and credits via the Open Movie Database (OMDb)"
}

// Capabilities returns what this provider can handle.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Kinds: []media.Kind{
			media.KindMovie,
			media.KindShow,
			media.KindSeason,
			media.KindEpisode,
		},
		Sections: []provider.Section{
			provider.SectionSummary,
			provider.SectionRatings,
			provider.SectionPeople,
			provider.SectionReleases,
			provider.SectionImages,
		},
		RequiresAuth: true,
		Priority:     90,
	}
}

// Configure applies configuration to the provider.
func (p *Provider) Configure(config map[string]interface{}) error {
	apiKeyRaw, ok := config["api_key"].(string)
	if !ok {
		return fmt.Errorf("api_key is required")
	}

	apiKey := strings.TrimSpace(apiKeyRaw)
	if apiKey == "" {
		return fmt.Errorf("api_key is required")
	}

	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	p.apiKey = apiKey
	p.client = omdb.NewClient(p.apiKey, p.httpClient)

	return nil
}

func (p *Provider) mapError(err error) error {
	if err == nil {
		return nil
	}
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "missing omdb api key") {
		return &provider.ProviderError{Provider: providerName, Code: provider.CodeAuthFailed, Message: "OMDb authentication failed: " + err.Error()}
	}
	return provider.MapError(providerName, err)
}

// parseRuntime converts "169 min" to seconds.
func parseRuntime(value string) int {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0
	}
	minutes, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return minutes * 60
}

// parseVotes converts "1,234,567" to 1234567.
func parseVotes(value string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(value), ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// splitList splits an OMDb comma list, dropping "N/A".
func splitList(value string) []string {
	var out []string
	for _, v := range omdb.SplitAndTrim(value) {
		if v != "" && v != "N/A" {
			out = append(out, v)
		}
	}
	return out
}

func notAvailable(value string) string {
	if strings.TrimSpace(value) == "N/A" {
		return ""
	}
	return strings.TrimSpace(value)
}
