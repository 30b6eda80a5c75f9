package image

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Digital-Shane/metaweave/internal/media"
)

func TestLink(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		provider string
		path     string
		want     string
	}{
		"tmdb":     {provider: media.ProviderTMDb, path: "/abc.jpg", want: "https://image.tmdb.org/t/p/original/abc.jpg"},
		"tvdb":     {provider: media.ProviderTVDb, path: "banners/x.jpg", want: "https://artworks.thetvdb.com/banners/x.jpg"},
		"absolute": {provider: media.ProviderIMDb, path: "https://m.media-amazon.com/p.jpg", want: "https://m.media-amazon.com/p.jpg"},
		"na":       {provider: media.ProviderIMDb, path: "N/A", want: ""},
		"unknown":  {provider: "other", path: "/p.jpg", want: ""},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := Link(tc.provider, tc.path); got != tc.want {
				t.Errorf("Link() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDefaultUpdate(t *testing.T) {
	t.Parallel()

	d := &Default{Limit: 2, Language: "en-US"}
	e := &media.Entity{Images: map[string][]media.Image{
		media.ImagePoster: {
			{Link: "a", Language: "fr", Votes: 50},
			{Link: "b", Language: "en", Votes: 3},
			{Link: "b", Language: "en", Votes: 3},
			{Link: "c", Votes: 9},
		},
		media.ImageBanner: {{Link: ""}},
	}}
	d.Update(e)

	want := map[string][]media.Image{
		media.ImagePoster: {{Link: "c", Votes: 9}, {Link: "b", Language: "en", Votes: 3}},
	}
	if diff := cmp.Diff(want, e.Images); diff != "" {
		t.Errorf("Update() mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate(t *testing.T) {
	t.Parallel()
	d := NewDefault("")
	if _, ok := d.Create(media.ProviderTMDb, "", "", 0); ok {
		t.Error("Create() with empty path should fail")
	}
	img, ok := d.Create(media.ProviderTMDb, "/p.jpg", "en", 4)
	if !ok || img.Provider != media.ProviderTMDb || img.Votes != 4 {
		t.Errorf("Create() = %+v, %v", img, ok)
	}
}
