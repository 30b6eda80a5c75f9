package imdb

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(fn roundTripFunc) *http.Client {
	return &http.Client{Transport: fn}
}

func jsonResponse(status int, body string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp
}

const interstellar = `{
	"Title": "Interstellar",
	"Year": "2014",
	"Rated": "PG-13",
	"Released": "07 Nov 2014",
	"Runtime": "169 min",
	"Genre": "Adventure, Drama, Sci-Fi",
	"Director": "Christopher Nolan",
	"Writer": "Jonathan Nolan, Christopher Nolan",
	"Actors": "Matthew McConaughey, Anne Hathaway",
	"Plot": "A team of explorers travel through a wormhole in space.",
	"Language": "English",
	"Country": "United States, United Kingdom",
	"Poster": "N/A",
	"imdbRating": "8.6",
	"imdbVotes": "2,001,234",
	"imdbID": "tt0816692",
	"Type": "movie",
	"Response": "True"
}`

func TestConfigureRequiresAPIKey(t *testing.T) {
	prov := New()
	if err := prov.Configure(map[string]interface{}{}); err == nil {
		t.Fatal("expected error when api_key is missing")
	}
}

func TestFetchMovie(t *testing.T) {
	var calls atomic.Int32
	prov := New()
	prov.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return jsonResponse(200, interstellar), nil
	})

	if err := prov.Configure(map[string]interface{}{"api_key": "testing"}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	res, err := prov.Metadata(context.Background(), provider.Request{
		Kind:    media.KindMovie,
		Section: provider.SectionSummary,
		Title:   "Interstellar",
		Year:    2014,
	})
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	e := res.Entity

	if e.Title != "Interstellar" || e.Year != 2014 {
		t.Fatalf("entity = %q (%d), want Interstellar (2014)", e.Title, e.Year)
	}
	if e.IDs.IMDb != "tt0816692" {
		t.Fatalf("imdb id = %q, want tt0816692", e.IDs.IMDb)
	}
	if e.Duration != 169*60 {
		t.Fatalf("Duration = %d, want %d", e.Duration, 169*60)
	}
	if got := e.Voting.Votes[providerName]; got != 2001234 {
		t.Fatalf("votes = %d, want 2001234", got)
	}
	if diff := cmp.Diff([]string{"United States", "United Kingdom"}, e.Country); diff != "" {
		t.Fatalf("Country mismatch (-want +got):\n%s", diff)
	}
	if len(e.Images) != 0 {
		t.Fatalf("N/A poster produced images: %+v", e.Images)
	}

	res, err = prov.Metadata(context.Background(), provider.Request{
		Kind:    media.KindMovie,
		Section: provider.SectionPeople,
		Title:   "Interstellar",
		Year:    2014,
	})
	if err != nil {
		t.Fatalf("Metadata(people) error = %v", err)
	}
	if len(res.Entity.Cast) != 2 || res.Entity.Plot != "" {
		t.Fatalf("people section = %+v", res.Entity)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("upstream calls = %d, want 1", got)
	}
}

func TestFetchEpisode(t *testing.T) {
	prov := New()
	prov.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		if q.Get("Episode") == "1" {
			return jsonResponse(200, `{
                "Title": "Winter Is Coming",
                "Year": "2011",
                "Released": "17 Apr 2011",
                "Runtime": "62 min",
                "Genre": "Action, Adventure, Drama",
                "Plot": "Episode plot",
                "Language": "English",
                "Country": "United States",
                "imdbRating": "8.9",
                "imdbID": "tt1480055",
                "seriesID": "tt0944947",
                "Type": "episode",
                "Response": "True"
            }`), nil
		}
		return jsonResponse(200, `{"Response": "False", "Error": "Episode not found"}`), nil
	})

	if err := prov.Configure(map[string]interface{}{"api_key": "testing"}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	res, err := prov.Metadata(context.Background(), provider.Request{
		Kind:    media.KindEpisode,
		Title:   "Game of Thrones",
		Season:  1,
		Episode: 1,
		IDs:     media.IDs{IMDb: "tt0944947"},
	})
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	e := res.Entity

	if e.Title != "Winter Is Coming" {
		t.Fatalf("Title = %q, want Winter Is Coming", e.Title)
	}
	if e.Season != 1 || e.Episode != 1 {
		t.Fatalf("unexpected season/episode numbers: %d/%d", e.Season, e.Episode)
	}
	if e.Voting.Rating[providerName] == 0 {
		t.Fatal("expected rating to be parsed for episode")
	}
	if e.IDs.IMDb != "tt1480055" || e.ShowIDs.IMDb != "tt0944947" {
		t.Fatalf("ids = %+v / %+v", e.IDs, e.ShowIDs)
	}
	if e.Time[media.TimeAired] == 0 {
		t.Fatal("expected aired time")
	}

	_, err = prov.Metadata(context.Background(), provider.Request{
		Kind:    media.KindEpisode,
		Season:  1,
		Episode: 2,
		IDs:     media.IDs{IMDb: "tt0944947"},
	})
	if !provider.IsNotFound(err) {
		t.Fatalf("Metadata(missing) error = %v, want not found", err)
	}
}

func TestMetadataRequiresIdentity(t *testing.T) {
	prov := New()
	if err := prov.Configure(map[string]interface{}{"api_key": "testing"}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	_, err := prov.Metadata(context.Background(), provider.Request{Kind: media.KindMovie})
	if got := provider.Code(err); got != provider.CodeInvalidRequest {
		t.Fatalf("Code() = %q, want %q", got, provider.CodeInvalidRequest)
	}
}

func TestHelpers(t *testing.T) {
	t.Parallel()
	if got := parseRuntime("45 min"); got != 2700 {
		t.Errorf("parseRuntime() = %d", got)
	}
	if got := parseRuntime("N/A"); got != 0 {
		t.Errorf("parseRuntime(N/A) = %d", got)
	}
	if got := parseVotes("N/A"); got != 0 {
		t.Errorf("parseVotes(N/A) = %d", got)
	}
	if got := splitList("N/A"); got != nil {
		t.Errorf("splitList(N/A) = %v", got)
	}
}
