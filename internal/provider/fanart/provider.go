// Package fanart implements the fanart.tv artwork provider.
package fanart

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Digital-Shane/metaweave/internal/image"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

const (
	providerName   = media.ProviderFanart
	defaultBaseURL = "https://webservice.fanart.tv/v3"
)

// artwork is a single fanart.tv image.
type artwork struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Lang   string `json:"lang"`
	Likes  string `json:"likes"`
	Season string `json:"season"`
}

// roles maps fanart.tv keys to image roles.
var roles = map[string]string{
	"movieposter":     media.ImagePoster,
	"moviebackground": media.ImageFanart,
	"moviethumb":      media.ImageLandscape,
	"moviebanner":     media.ImageBanner,
	"hdmovielogo":     media.ImageClearLogo,
	"movielogo":       media.ImageClearLogo,
	"hdmovieclearart": media.ImageClearArt,
	"movieart":        media.ImageClearArt,
	"moviedisc":       media.ImageDisc,
	"tvposter":        media.ImagePoster,
	"showbackground":  media.ImageFanart,
	"tvthumb":         media.ImageLandscape,
	"tvbanner":        media.ImageBanner,
	"hdtvlogo":        media.ImageClearLogo,
	"clearlogo":       media.ImageClearLogo,
	"hdclearart":      media.ImageClearArt,
	"clearart":        media.ImageClearArt,
}

// seasonRoles are the show keys whose images carry a season number.
var seasonRoles = map[string]string{
	"seasonposter": media.ImagePoster,
	"seasonthumb":  media.ImageLandscape,
	"seasonbanner": media.ImageBanner,
}

// Provider serves artwork only.
type Provider struct {
	*provider.Base

	http   *provider.HTTPClient
	images image.Processor
	apiKey string
}

// New creates a new fanart.tv provider instance.
func New() *Provider {
	return &Provider{
		Base:   provider.NewBase(providerName, 100, time.Minute, time.Hour),
		images: image.NewDefault(""),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// Description returns the provider description.
func (p *Provider) Description() string {
	return "fanart.tv logos, clear art and backgrounds"
}

// Capabilities returns what this provider can do.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Kinds:        []media.Kind{media.KindMovie, media.KindShow, media.KindSeason},
		Sections:     []provider.Section{provider.SectionImages},
		RequiresAuth: true,
		Priority:     50,
	}
}

// Configure applies configuration to the provider.
func (p *Provider) Configure(config map[string]interface{}) error {
	apiKey, ok := config["api_key"].(string)
	if !ok || apiKey == "" {
		return fmt.Errorf("api_key is required")
	}
	p.apiKey = apiKey

	baseURL := defaultBaseURL
	if u, ok := config["base_url"].(string); ok && u != "" {
		baseURL = u
	}
	if language, ok := config["language"].(string); ok && language != "" {
		p.images = image.NewDefault(language)
	}
	p.http = provider.NewHTTPClient(providerName, baseURL, 2, 4)
	return nil
}

// Metadata returns the images of a movie, show or season. Movies are looked
// up by TMDb or IMDb id, shows by TVDb id.
func (p *Provider) Metadata(ctx context.Context, request provider.Request) (provider.Result, error) {
	if p.http == nil {
		return provider.Result{}, provider.ErrNotConfigured
	}
	if request.Section != provider.SectionImages {
		return provider.Result{}, provider.Unsupported(providerName, string(request.Section))
	}

	var path string
	switch request.Kind {
	case media.KindMovie:
		id := request.IDs.TMDb
		if id == "" {
			id = request.IDs.IMDb
		}
		if id == "" {
			return provider.Result{}, provider.Invalid(providerName, "movie request without tmdb or imdb id")
		}
		path = "movies/" + url.PathEscape(id)
	case media.KindShow, media.KindSeason:
		if request.IDs.TVDb == "" {
			return provider.Result{}, provider.Invalid(providerName, "show request without tvdb id")
		}
		path = "tv/" + url.PathEscape(request.IDs.TVDb)
	default:
		return provider.Result{}, provider.Unsupported(providerName, string(request.Kind))
	}

	scope := provider.Request{Kind: request.Kind.Media(), IDs: request.IDs}
	key := provider.RequestKey(providerName, scope, path)
	data, err := provider.Call(ctx, p.Base, key, provider.RequestPrefix(providerName, scope), func(ctx context.Context) (map[string][]artwork, error) {
		var raw map[string]any
		if _, err := p.http.GetJSON(ctx, path, url.Values{"api_key": {p.apiKey}}, &raw); err != nil {
			return nil, err
		}
		return decode(raw), nil
	})
	if err != nil {
		return provider.Result{}, err
	}

	e := &media.Entity{Kind: request.Kind, IDs: request.IDs, Season: request.Season}
	if request.Kind == media.KindSeason {
		e.IDs = media.IDs{}
		e.ShowIDs = &request.IDs
		p.addSeason(e, data, request.Season)
	} else {
		p.add(e, data)
	}
	p.images.Update(e)
	return provider.Result{Complete: true, Entity: e}, nil
}

func (p *Provider) add(e *media.Entity, data map[string][]artwork) {
	for key, role := range roles {
		for _, a := range data[key] {
			p.addImage(e, role, a)
		}
	}
}

func (p *Provider) addSeason(e *media.Entity, data map[string][]artwork, season int) {
	want := strconv.Itoa(season)
	for key, role := range seasonRoles {
		for _, a := range data[key] {
			if a.Season == want {
				p.addImage(e, role, a)
			}
		}
	}
}

func (p *Provider) addImage(e *media.Entity, role string, a artwork) {
	likes, _ := strconv.Atoi(a.Likes)
	lang := a.Lang
	if lang == "00" {
		lang = ""
	}
	if img, ok := p.images.Create(providerName, a.URL, lang, likes); ok {
		image.Add(e, role, img)
	}
}

// decode keeps the array-valued keys of a fanart.tv response. Scalar keys
// such as "name" and "tmdb_id" are dropped.
func decode(raw map[string]any) map[string][]artwork {
	out := make(map[string][]artwork)
	for key, value := range raw {
		list, ok := value.([]any)
		if !ok {
			continue
		}
		for _, v := range list {
			m, ok := v.(map[string]any)
			if !ok {
				continue
			}
			out[key] = append(out[key], artwork{
				ID:     str(m["id"]),
				URL:    str(m["url"]),
				Lang:   str(m["lang"]),
				Likes:  str(m["likes"]),
				Season: str(m["season"]),
			})
		}
	}
	return out
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}
