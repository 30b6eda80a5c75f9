package fanart

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

const showBody = `{
	"name": "Breaking Bad",
	"thetvdb_id": "81189",
	"hdtvlogo": [
		{"id": "1", "url": "https://assets.fanart.tv/logo-en.png", "lang": "en", "likes": "3"},
		{"id": "2", "url": "https://assets.fanart.tv/logo-de.png", "lang": "de", "likes": "9"}
	],
	"showbackground": [{"id": "3", "url": "https://assets.fanart.tv/bg.jpg", "lang": "00", "likes": "1"}],
	"seasonposter": [
		{"id": "4", "url": "https://assets.fanart.tv/s1.jpg", "lang": "en", "likes": "2", "season": "1"},
		{"id": "5", "url": "https://assets.fanart.tv/s2.jpg", "lang": "en", "likes": "2", "season": "2"}
	]
}`

func newTestProvider(t *testing.T) (*Provider, *int) {
	t.Helper()
	calls := new(int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		if r.URL.Query().Get("api_key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/tv/81189":
			fmt.Fprint(w, showBody)
		case "/movies/603":
			fmt.Fprint(w, `{"name":"The Matrix","hdmovielogo":[{"id":"9","url":"https://assets.fanart.tv/m.png","lang":"en","likes":"1"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	p := New()
	require.NoError(t, p.Configure(map[string]interface{}{"api_key": "key", "base_url": srv.URL, "language": "en"}))
	return p, calls
}

func TestMetadata(t *testing.T) {
	p, calls := newTestProvider(t)
	ctx := context.Background()

	show, err := p.Metadata(ctx, provider.Request{Kind: media.KindShow, Section: provider.SectionImages, IDs: media.IDs{TVDb: "81189"}})
	require.NoError(t, err)
	var logos []string
	for _, img := range show.Entity.Images[media.ImageClearLogo] {
		logos = append(logos, img.Link)
	}
	want := []string{"https://assets.fanart.tv/logo-en.png", "https://assets.fanart.tv/logo-de.png"}
	if diff := cmp.Diff(want, logos); diff != "" {
		t.Errorf("logo order mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "", show.Entity.Images[media.ImageFanart][0].Language)
	require.NotContains(t, show.Entity.Images, media.ImagePoster)

	season, err := p.Metadata(ctx, provider.Request{Kind: media.KindSeason, Section: provider.SectionImages, IDs: media.IDs{TVDb: "81189"}, Season: 2})
	require.NoError(t, err)
	require.Len(t, season.Entity.Images[media.ImagePoster], 1)
	require.Equal(t, "https://assets.fanart.tv/s2.jpg", season.Entity.Images[media.ImagePoster][0].Link)
	require.Equal(t, "81189", season.Entity.ShowIDs.TVDb)
	require.Equal(t, 1, *calls, "season images should reuse the show response")

	movie, err := p.Metadata(ctx, provider.Request{Kind: media.KindMovie, Section: provider.SectionImages, IDs: media.IDs{TMDb: "603", IMDb: "tt0133093"}})
	require.NoError(t, err)
	require.Len(t, movie.Entity.Images[media.ImageClearLogo], 1)
}

func TestMetadataErrors(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	tests := map[string]struct {
		request provider.Request
		check   func(error) bool
	}{
		"summary section": {
			request: provider.Request{Kind: media.KindMovie, Section: provider.SectionSummary, IDs: media.IDs{TMDb: "1"}},
			check:   func(err error) bool { return provider.Code(err) == provider.CodeUnsupported },
		},
		"show without tvdb": {
			request: provider.Request{Kind: media.KindShow, Section: provider.SectionImages, IDs: media.IDs{TMDb: "1"}},
			check:   func(err error) bool { return provider.Code(err) == provider.CodeInvalidRequest },
		},
		"unknown movie": {
			request: provider.Request{Kind: media.KindMovie, Section: provider.SectionImages, IDs: media.IDs{TMDb: "404"}},
			check:   provider.IsNotFound,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := p.Metadata(ctx, tc.request)
			require.Error(t, err)
			require.True(t, tc.check(err), "unexpected error %v", err)
		})
	}
}
