package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Digital-Shane/metaweave/internal/config"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/pack"
	"github.com/Digital-Shane/metaweave/internal/provider"
	"github.com/Digital-Shane/metaweave/internal/provider/providertest"
)

var (
	showKinds = []media.Kind{media.KindShow, media.KindSeason, media.KindEpisode, media.KindPack}
	premiere  = time.Date(2011, 4, 17, 21, 0, 0, 0, time.UTC)
)

func episodeID(season, episode int) string {
	return fmt.Sprintf("tt9%02d%03d", season, episode)
}

func aired(pos int) int64 {
	return premiere.AddDate(0, 0, 7*pos).Unix()
}

// listing builds a provider listing with consecutive seasons of the given
// sizes, airing weekly. Every provider uses the same episode ids.
func listing(name string, sizes ...int) *media.PackDocument {
	doc := &media.PackDocument{Provider: name}
	pos := 0
	for i, size := range sizes {
		s := media.PackSeason{Number: i + 1}
		for e := 1; e <= size; e++ {
			pos++
			s.Episodes = append(s.Episodes, media.PackEpisode{
				IDs:      media.IDs{IMDb: episodeID(i+1, e)},
				Title:    fmt.Sprintf("Episode %d", pos),
				Season:   i + 1,
				Episode:  e,
				Aired:    aired(pos),
				Duration: 3300,
			})
		}
		doc.Seasons = append(doc.Seasons, s)
	}
	return doc
}

func episodes(_ context.Context, r provider.Request) (provider.Result, error) {
	return provider.Result{Complete: true, Entity: &media.Entity{
		Kind:    media.KindEpisode,
		IDs:     media.IDs{IMDb: episodeID(r.Season, r.Episode)},
		Title:   fmt.Sprintf("S%02dE%02d", r.Season, r.Episode),
		Season:  r.Season,
		Episode: r.Episode,
	}}, nil
}

func showFakes(trakt, tvdb *media.PackDocument) []*providertest.Fake {
	tf := providertest.New(media.ProviderTrakt, providertest.Caps(110, showKinds,
		provider.SectionSummary, provider.SectionSeason, provider.SectionPack))
	tf.Document(trakt).Handle(media.KindEpisode, provider.SectionSeason, episodes)
	vf := providertest.New(media.ProviderTVDb, providertest.Caps(95, showKinds,
		provider.SectionSummary, provider.SectionPack))
	vf.Document(tvdb).Handle(media.KindEpisode, provider.SectionSummary, episodes)
	return []*providertest.Fake{tf, vf}
}

var thrones = media.Ref{Kind: media.KindShow, IDs: media.IDs{IMDb: "tt0944947"}, Title: "Game of Thrones", Year: 2011}

func thronesHarness(t *testing.T) *harness {
	sizes := []int{10, 10, 10, 10, 10, 10, 7, 6}
	return newHarness(t, showFakes(listing(media.ProviderTrakt, sizes...), listing(media.ProviderTVDb, sizes...)))
}

func numbers(entities []*media.Entity) []media.Number {
	var out []media.Number
	for _, e := range entities {
		out = append(out, media.Number{e.Season, e.Episode})
	}
	return out
}

func TestNextAfterFinalEpisode(t *testing.T) {
	t.Parallel()

	h := thronesHarness(t)
	got, err := h.o.Episodes(context.Background(), EpisodeQuery{Show: thrones, From: media.NewNumber(8, 6), Next: true}, Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].Invalid)
}

func TestNextFromHistory(t *testing.T) {
	t.Parallel()

	t0 := now.Add(-48 * time.Hour)
	tests := map[string]struct {
		watched     []media.Number
		discrepancy bool
		want        media.Number
		wantInvalid bool
	}{
		"unwatched show starts at the pilot": {want: media.Number{1, 1}},
		"continues after last watched":       {watched: []media.Number{{1, 1}}, want: media.Number{1, 2}},
		"finale moves to next season":        {watched: []media.Number{{1, 10}}, want: media.Number{2, 1}},
		"rewatch out of order is hidden": {
			watched:     []media.Number{{1, 3}, {1, 2}},
			discrepancy: true,
			wantInvalid: true,
		},
		"rewatch shown without discrepancy rule": {
			watched: []media.Number{{1, 3}, {1, 2}},
			want:    media.Number{1, 3},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			h := thronesHarness(t)
			h.cfg.Show.Discrepancy = tc.discrepancy
			for i, n := range tc.watched {
				h.history.Watch(media.KindShow, thrones.IDs, &n, t0.Add(time.Duration(i)*time.Hour))
			}
			got, err := h.o.Episodes(context.Background(), EpisodeQuery{Show: thrones, Next: true}, Options{})
			require.NoError(t, err)
			require.Len(t, got, 1)
			if tc.wantInvalid {
				require.True(t, got[0].Invalid)
				return
			}
			require.False(t, got[0].Invalid)
			require.Equal(t, tc.want, media.Number{got[0].Season, got[0].Episode})
			require.NotNil(t, got[0].Number)
			require.NotNil(t, got[0].Number.Sequential)
		})
	}
}

func TestNextSkipsUnairedEpisodes(t *testing.T) {
	t.Parallel()

	upcoming := now.AddDate(0, 1, 0).Unix()
	tests := map[string]struct {
		from        media.Number
		unaired     []media.Number
		airs        int64
		want        media.Number
		wantInvalid bool
	}{
		"future finale":           {from: media.Number{2, 9}, unaired: []media.Number{{2, 10}}, airs: upcoming, wantInvalid: true},
		"finale without air date": {from: media.Number{2, 9}, unaired: []media.Number{{2, 10}}, wantInvalid: true},
		"unaired premiere is passed over": {
			from:    media.Number{1, 10},
			unaired: []media.Number{{2, 1}},
			airs:    upcoming,
			want:    media.Number{2, 2},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			docs := []*media.PackDocument{listing(media.ProviderTrakt, 10, 10), listing(media.ProviderTVDb, 10, 10)}
			for _, doc := range docs {
				for _, n := range tc.unaired {
					doc.Seasons[n.Season()-1].Episodes[n.Episode()-1].Aired = tc.airs
				}
			}
			h := newHarness(t, showFakes(docs[0], docs[1]))

			got, err := h.o.Episodes(context.Background(), EpisodeQuery{Show: thrones, From: media.NewNumber(tc.from.Season(), tc.from.Episode()), Next: true}, Options{})
			require.NoError(t, err)
			require.Len(t, got, 1)
			if tc.wantInvalid {
				require.True(t, got[0].Invalid)
				return
			}
			require.False(t, got[0].Invalid)
			require.Equal(t, tc.want, media.Number{got[0].Season, got[0].Episode})
		})
	}
}

func TestSpecialPlacedBeforeExplicitEpisode(t *testing.T) {
	t.Parallel()

	trakt := listing(media.ProviderTrakt, 10, 10, 10)
	tvdb := listing(media.ProviderTVDb, 10, 10, 10)
	special := media.PackEpisode{
		IDs:     media.IDs{IMDb: episodeID(0, 1)},
		Title:   "Histories and Lore",
		Season:  0,
		Episode: 1,
		// Airs between S03E08 and S03E09.
		Aired: aired(28) + 3600,
	}
	trakt.Seasons = append([]media.PackSeason{{Number: 0, Episodes: []media.PackEpisode{special}}}, trakt.Seasons...)
	special.Before = media.NewNumber(3, 5)
	tvdb.Seasons = append([]media.PackSeason{{Number: 0, Episodes: []media.PackEpisode{special}}}, tvdb.Seasons...)

	h := newHarness(t, showFakes(trakt, tvdb))
	season := 3
	got, err := h.o.Episodes(context.Background(), EpisodeQuery{Show: thrones, Season: &season, Specials: config.SpecialsOn}, Options{})
	require.NoError(t, err)

	want := []media.Number{{3, 1}, {3, 2}, {3, 3}, {3, 4}, {0, 1}, {3, 5}, {3, 6}, {3, 7}, {3, 8}, {3, 9}, {3, 10}}
	require.Equal(t, want, numbers(got))
	require.True(t, got[4].Type.Has(media.TypeSpecial))
}

func TestSpecialsInterleaveByAirDate(t *testing.T) {
	t.Parallel()

	trakt := listing(media.ProviderTrakt, 10, 10)
	trakt.Seasons = append([]media.PackSeason{{Number: 0, Episodes: []media.PackEpisode{
		{IDs: media.IDs{IMDb: episodeID(0, 1)}, Title: "Winter Gathering", Season: 0, Episode: 1, Aired: aired(14) + 3600},
		{IDs: media.IDs{IMDb: episodeID(0, 2)}, Title: "Making of Season 2", Season: 0, Episode: 2, Aired: aired(16) + 3600},
		{IDs: media.IDs{IMDb: episodeID(0, 3)}, Title: "Reunion", Season: 0, Episode: 3, Aired: aired(400)},
	}}}, trakt.Seasons...)

	tests := map[string]struct {
		mode string
		want []media.Number
	}{
		"off": {mode: config.SpecialsOff, want: []media.Number{{2, 3}, {2, 4}, {2, 5}, {2, 6}, {2, 7}}},
		"on": {mode: config.SpecialsOn, want: []media.Number{
			{2, 3}, {2, 4}, {0, 1}, {2, 5}, {2, 6}, {0, 2}, {2, 7},
		}},
		"reduce drops extras": {mode: config.SpecialsReduce, want: []media.Number{
			{2, 3}, {2, 4}, {0, 1}, {2, 5}, {2, 6}, {2, 7},
		}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, showFakes(trakt, listing(media.ProviderTVDb, 10, 10)))
			got, err := h.o.Episodes(context.Background(), EpisodeQuery{
				Show:     thrones,
				From:     media.NewNumber(2, 3),
				Limit:    5,
				Specials: tc.mode,
			}, Options{})
			require.NoError(t, err)
			require.Equal(t, tc.want, numbers(got))
		})
	}
}

func TestEpisodeRange(t *testing.T) {
	t.Parallel()

	p, err := pack.Generate([]*media.PackDocument{listing(media.ProviderTrakt, 10, 10, 10)}, pack.Options{Now: now})
	require.NoError(t, err)

	tests := map[string]struct {
		start  media.Number
		size   int
		want   Range
		wantOK bool
	}{
		"spills into next season": {start: media.Number{1, 8}, size: 5, wantOK: true,
			want: Range{Start: media.Number{1, 8}, End: media.Number{2, 2}, Seasons: [2]int{1, 2}}},
		"page at season end reaches ahead": {start: media.Number{1, 10}, size: 1, wantOK: true,
			want: Range{Start: media.Number{1, 10}, End: media.Number{1, 10}, Seasons: [2]int{1, 2}}},
		"clipped at show end": {start: media.Number{3, 8}, size: 5, wantOK: true,
			want: Range{Start: media.Number{3, 8}, End: media.Number{3, 10}, Seasons: [2]int{3, 3}}},
		"gap moves to next episode": {start: media.Number{2, 11}, size: 2, wantOK: true,
			want: Range{Start: media.Number{3, 1}, End: media.Number{3, 2}, Seasons: [2]int{3, 3}}},
		"past the end": {start: media.Number{4, 1}, size: 5},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, ok := EpisodeRange(p, tc.start, tc.size)
			require.Equal(t, tc.wantOK, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestPackIsCachedAsEntity(t *testing.T) {
	t.Parallel()

	h := thronesHarness(t)
	ctx := context.Background()
	p, err := h.o.Pack(ctx, thrones, Options{})
	require.NoError(t, err)
	require.Equal(t, 73, p.Summary.Count.Episodes)

	for _, f := range h.registry.List() {
		fake, _ := h.registry.Get(f)
		fake.(*providertest.Fake).Reset()
	}
	again, err := h.o.Pack(ctx, thrones, Options{})
	require.NoError(t, err)
	numbering, ok := again.Lookup(pack.AxisSequential, 1, 21)
	require.True(t, ok)
	require.Equal(t, media.NewNumber(3, 1), numbering.Standard)
	for _, f := range h.registry.List() {
		fake, _ := h.registry.Get(f)
		require.Empty(t, fake.(*providertest.Fake).Calls())
	}
}
