package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/Digital-Shane/metaweave/internal/cache"
	"github.com/Digital-Shane/metaweave/internal/config"
	"github.com/Digital-Shane/metaweave/internal/hardware"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/playback"
	"github.com/Digital-Shane/metaweave/internal/provider"
	"github.com/Digital-Shane/metaweave/internal/provider/providertest"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	o        *Orchestrator
	cache    *cache.Cache
	cfg      *config.Config
	history  *playback.Store
	registry *provider.Registry
}

// newHarness registers and enables every fake. Pass disabled fakes to
// register them switched off.
func newHarness(t *testing.T, fakes []*providertest.Fake, disabled ...*providertest.Fake) *harness {
	t.Helper()
	c, err := cache.Open(cache.Options{
		Path:        filepath.Join(t.TempDir(), "cache.db"),
		Synchronous: true,
		Clock:       func() time.Time { return now },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	reg := provider.NewRegistry()
	for _, f := range fakes {
		require.NoError(t, reg.Register(f.Name(), f, f.Capabilities().Priority))
		require.NoError(t, reg.Enable(f.Name()))
	}
	for _, f := range disabled {
		require.NoError(t, reg.Register(f.Name(), f, f.Capabilities().Priority))
	}

	cfg := config.Default()
	history := playback.NewMemory()
	o, err := New(Config{
		Cache:    c,
		Registry: reg,
		Settings: &cfg,
		Playback: history,
		Hardware: hardware.Static(0.5),
		Clock:    func() time.Time { return now },
	})
	require.NoError(t, err)
	t.Cleanup(o.Wait)
	return &harness{o: o, cache: c, cfg: &cfg, history: history, registry: reg}
}

func (h *harness) status(t *testing.T, ref media.Ref) cache.Status {
	t.Helper()
	records, err := h.cache.Select(context.Background(), []media.Ref{ref})
	require.NoError(t, err)
	return records[0].Status
}

var movieKinds = []media.Kind{media.KindMovie}

func artwork(provider, role string) map[string][]media.Image {
	return map[string][]media.Image{role: {{Link: "https://img.example/" + provider + "/" + role + ".jpg"}}}
}

func matrixFakes() (trakt, tmdb, imdb, fanart *providertest.Fake) {
	trakt = providertest.New(media.ProviderTrakt, providertest.Caps(110, movieKinds,
		provider.SectionSummary, provider.SectionPeople, provider.SectionReleases, provider.SectionStudios))
	trakt.Entity(media.KindMovie, provider.SectionSummary, &media.Entity{
		Kind:  media.KindMovie,
		IDs:   media.IDs{IMDb: "tt0133093", TMDb: "603", Trakt: "481", Slug: "the-matrix-1999"},
		Title: "The Matrix",
		Year:  1999,
		Genre: []string{"action", "science-fiction"},
		Voting: media.Voting{
			Rating: map[string]float64{media.ProviderTrakt: 8.7},
			Votes:  map[string]int{media.ProviderTrakt: 60000},
		},
	})

	tmdb = providertest.New(media.ProviderTMDb, providertest.Caps(100, movieKinds,
		provider.SectionSummary, provider.SectionImages))
	tmdb.Entity(media.KindMovie, provider.SectionSummary, &media.Entity{
		Kind:  media.KindMovie,
		IDs:   media.IDs{IMDb: "tt0133093", TMDb: "603"},
		Title: "The Matrix",
		Plot:  "A hacker learns the truth about his reality.",
		Voting: media.Voting{
			Rating: map[string]float64{media.ProviderTMDb: 8.2},
			Votes:  map[string]int{media.ProviderTMDb: 25000},
		},
	})
	posters := artwork(media.ProviderTMDb, media.ImagePoster)
	posters[media.ImageFanart] = artwork(media.ProviderTMDb, media.ImageFanart)[media.ImageFanart]
	tmdb.Entity(media.KindMovie, provider.SectionImages, &media.Entity{
		Kind:   media.KindMovie,
		IDs:    media.IDs{TMDb: "603"},
		Images: posters,
	})

	imdb = providertest.New(media.ProviderIMDb, providertest.Caps(90, movieKinds, provider.SectionSummary))
	imdb.Entity(media.KindMovie, provider.SectionSummary, &media.Entity{
		Kind: media.KindMovie,
		IDs:  media.IDs{IMDb: "tt0133093"},
		Voting: media.Voting{
			Rating: map[string]float64{media.ProviderIMDb: 8.7},
			Votes:  map[string]int{media.ProviderIMDb: 2000000},
		},
	})

	fanart = providertest.New(media.ProviderFanart, providertest.Caps(50, movieKinds, provider.SectionImages))
	fanart.Entity(media.KindMovie, provider.SectionImages, &media.Entity{
		Kind:   media.KindMovie,
		IDs:    media.IDs{TMDb: "603"},
		Images: artwork(media.ProviderFanart, media.ImageClearLogo),
	})
	return trakt, tmdb, imdb, fanart
}

func extended() Options {
	d := provider.DetailExtended
	return Options{Detail: &d}
}

func TestResolveMovieByIMDb(t *testing.T) {
	t.Parallel()

	trakt, tmdb, imdb, fanart := matrixFakes()
	h := newHarness(t, []*providertest.Fake{trakt, tmdb, imdb, fanart})
	ref := media.Ref{IDs: media.IDs{IMDb: "tt0133093"}}

	got, err := h.o.Metadata(context.Background(), media.KindMovie, []media.Ref{ref}, extended())
	require.NoError(t, err)
	require.Len(t, got, 1)

	e := got[0]
	want := media.IDs{IMDb: "tt0133093", TMDb: "603", Trakt: "481", Slug: "the-matrix-1999"}
	if diff := cmp.Diff(want, e.IDs); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	require.NotEmpty(t, e.Images[media.ImagePoster])
	require.Contains(t, e.Voting.Rating, media.ProviderIMDb)
	require.Contains(t, e.Voting.Rating, media.ProviderTrakt)
	require.Equal(t, math.Round(e.Rating*10)/10, e.Rating)
	require.Nil(t, e.Part)

	ref.Kind = media.KindMovie
	require.Equal(t, cache.StatusFresh, h.status(t, ref))
}

func TestMetadataIsDeterministic(t *testing.T) {
	t.Parallel()

	run := func() *media.Entity {
		trakt, tmdb, imdb, fanart := matrixFakes()
		h := newHarness(t, []*providertest.Fake{trakt, tmdb, imdb, fanart})
		got, err := h.o.Metadata(context.Background(), media.KindMovie, []media.Ref{{IDs: media.IDs{IMDb: "tt0133093"}}}, extended())
		require.NoError(t, err)
		require.Len(t, got, 1)
		return got[0]
	}
	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Errorf("repeated runs differ (-first +second):\n%s", diff)
	}
}

func TestPartialRetryReusesCompleteProviders(t *testing.T) {
	t.Parallel()

	trakt, tmdb, _, fanart := matrixFakes()
	h := newHarness(t, []*providertest.Fake{trakt, tmdb}, fanart)
	ctx := context.Background()
	ref := media.Ref{Kind: media.KindMovie, IDs: media.IDs{IMDb: "tt0133093"}}

	got, err := h.o.Metadata(ctx, media.KindMovie, []media.Ref{ref}, Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.False(t, got[0].Part[media.ProviderFanart].Complete)
	require.True(t, got[0].Part[media.ProviderTrakt].Complete)
	require.Equal(t, 1, got[0].Fail)
	require.Equal(t, cache.StatusIncomplete, h.status(t, ref))

	require.NoError(t, h.registry.Enable(media.ProviderFanart))
	trakt.Reset()
	tmdb.Reset()

	got, err = h.o.Metadata(ctx, media.KindMovie, []media.Ref{ref}, Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Empty(t, trakt.Calls())
	require.Empty(t, tmdb.Calls())
	require.Len(t, fanart.Calls(), 1)
	require.Nil(t, got[0].Part)
	require.Zero(t, got[0].Fail)
	require.NotEmpty(t, got[0].Images[media.ImageClearLogo])
	require.Equal(t, "The Matrix", got[0].Title)
	require.Equal(t, cache.StatusFresh, h.status(t, ref))
}

func TestMissingImagesKeepRecordIncomplete(t *testing.T) {
	t.Parallel()

	trakt, tmdb, _, _ := matrixFakes()
	tmdb.Fail(media.KindMovie, provider.SectionImages, provider.NotFound(media.ProviderTMDb, "%s", "603"))
	h := newHarness(t, []*providertest.Fake{trakt, tmdb})
	ctx := context.Background()
	ref := media.Ref{Kind: media.KindMovie, IDs: media.IDs{IMDb: "tt0133093"}}

	for attempt := 1; attempt < maxFail; attempt++ {
		trakt.Reset()
		tmdb.Reset()
		got, err := h.o.Metadata(ctx, media.KindMovie, []media.Ref{ref}, Options{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Empty(t, got[0].Part.Incomplete())
		require.NotNil(t, got[0].Part)
		require.Equal(t, attempt, got[0].Fail)
		require.Equal(t, cache.StatusIncomplete, h.status(t, ref))
		require.Contains(t, tmdb.Sections(media.KindMovie), provider.SectionImages)
		if attempt > 1 {
			require.Empty(t, trakt.Calls())
		}
	}

	// The last retry gives up on the images.
	got, err := h.o.Metadata(ctx, media.KindMovie, []media.Ref{ref}, Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Nil(t, got[0].Part)
	require.Equal(t, maxFail, got[0].Fail)
	require.Equal(t, cache.StatusFresh, h.status(t, ref))

	trakt.Reset()
	tmdb.Reset()
	_, err = h.o.Metadata(ctx, media.KindMovie, []media.Ref{ref}, Options{})
	require.NoError(t, err)
	require.Empty(t, trakt.Calls())
	require.Empty(t, tmdb.Calls())
}

func TestTransientFailureMarksProviderIncomplete(t *testing.T) {
	t.Parallel()

	trakt, tmdb, _, _ := matrixFakes()
	tmdb.Fail(media.KindMovie, provider.SectionImages, &provider.ProviderError{Provider: media.ProviderTMDb, Code: provider.CodeRateLimited, Message: "slow down"})
	h := newHarness(t, []*providertest.Fake{trakt, tmdb})

	got, err := h.o.Metadata(context.Background(), media.KindMovie, []media.Ref{{IDs: media.IDs{IMDb: "tt0133093"}}}, Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, []string{media.ProviderTMDb}, got[0].Part.Incomplete())
	require.Len(t, h.o.Failures(), 1)
	require.Equal(t, provider.SectionImages, h.o.Failures()[0].Section)
}

func TestUnresolvableItemsAreDropped(t *testing.T) {
	t.Parallel()

	trakt := providertest.New(media.ProviderTrakt, providertest.Caps(110, movieKinds, provider.SectionSummary))
	h := newHarness(t, []*providertest.Fake{trakt})
	ref := media.Ref{Kind: media.KindMovie, Title: "No Such Film", Year: 2031}

	got, err := h.o.Metadata(context.Background(), media.KindMovie, []media.Ref{ref}, Options{})
	require.NoError(t, err)
	require.Empty(t, got)
	require.Equal(t, cache.StatusInvalid, h.status(t, ref))
	require.Equal(t, 1, h.o.Stats().Dropped)
}

func TestRepeatedRefsAreBuiltOnce(t *testing.T) {
	t.Parallel()

	matrix := media.Ref{IDs: media.IDs{IMDb: "tt0133093"}}
	missing := media.Ref{Title: "No Such Film", Year: 2031}

	tests := map[string]struct {
		ref         media.Ref
		fakes       func() []*providertest.Fake
		wantItems   int
		wantDropped int
	}{
		"duplicate ids": {
			ref: matrix,
			fakes: func() []*providertest.Fake {
				trakt, tmdb, imdb, fanart := matrixFakes()
				return []*providertest.Fake{trakt, tmdb, imdb, fanart}
			},
			wantItems: 3,
		},
		"unresolvable title": {
			ref: missing,
			fakes: func() []*providertest.Fake {
				return []*providertest.Fake{providertest.New(media.ProviderTrakt, providertest.Caps(110, movieKinds, provider.SectionSummary))}
			},
			wantDropped: 1,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			calls := func(n int) (int, *harness, []*media.Entity) {
				fakes := tc.fakes()
				h := newHarness(t, fakes)
				refs := make([]media.Ref, n)
				for i := range refs {
					refs[i] = tc.ref
				}
				got, err := h.o.Metadata(context.Background(), media.KindMovie, refs, extended())
				require.NoError(t, err)
				total := 0
				for _, f := range fakes {
					total += len(f.Calls())
				}
				return total, h, got
			}

			single, _, _ := calls(1)
			repeated, h, got := calls(3)
			require.Positive(t, single)
			require.Equal(t, single, repeated)
			require.Len(t, got, tc.wantItems)
			require.Equal(t, tc.wantDropped, h.o.Stats().Dropped)
			require.Equal(t, 3, h.o.Stats().Requested)
			for i := 1; i < len(got); i++ {
				if diff := cmp.Diff(got[0], got[i]); diff != "" {
					t.Errorf("repeated ref differs (-first +other):\n%s", diff)
				}
			}
		})
	}
}

func TestQuickModes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	refs := []media.Ref{{IDs: media.IDs{IMDb: "tt0133093"}}}

	tests := map[string]struct {
		quick     Quick
		wantItems int
		wantCalls bool
	}{
		"full fetches":        {quick: Full(), wantItems: 1, wantCalls: true},
		"cached only skips":   {quick: CachedOnly(), wantItems: 0},
		"limit one fetches":   {quick: Limit(1), wantItems: 1, wantCalls: true},
		"cached backgrounds":  {quick: Cached(), wantItems: 0, wantCalls: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			trakt, tmdb, _, _ := matrixFakes()
			h := newHarness(t, []*providertest.Fake{trakt, tmdb})
			got, err := h.o.Metadata(ctx, media.KindMovie, refs, Options{Quick: tc.quick})
			require.NoError(t, err)
			require.Len(t, got, tc.wantItems)
			h.o.Wait()
			require.Equal(t, tc.wantCalls, len(trakt.Calls()) > 0)
		})
	}
}

func TestPartition(t *testing.T) {
	t.Parallel()

	records := []cache.Record{
		{Status: cache.StatusInvalid},
		{Status: cache.StatusFresh},
		{Status: cache.StatusStale},
		{Status: cache.StatusIncomplete},
		{Status: cache.StatusInvalid},
		{Status: cache.StatusExternal},
	}
	tests := map[string]struct {
		quick          Quick
		force          bool
		wantForeground []int
		wantBackground []int
		wantSkipped    int
	}{
		"full":        {quick: Full(), wantForeground: []int{0, 3, 4}, wantBackground: []int{2, 5}},
		"cached":      {quick: Cached(), wantBackground: []int{0, 2, 3, 4, 5}},
		"cached only": {quick: CachedOnly(), wantSkipped: 3},
		"limit 2":     {quick: Limit(2), wantForeground: []int{0, 3}, wantBackground: []int{2, 4, 5}},
		"limit -1":    {quick: Limit(-1), wantForeground: []int{0}, wantSkipped: 2},
		"caps":        {quick: Caps(1, 1), wantForeground: []int{0}, wantBackground: []int{2}, wantSkipped: 2},
		"force":       {quick: Full(), force: true, wantForeground: []int{0, 1, 2, 3, 4, 5}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			fg, bg, skipped := partition(records, tc.quick, tc.force)
			require.Equal(t, tc.wantForeground, fg)
			require.Equal(t, tc.wantBackground, bg)
			require.Equal(t, tc.wantSkipped, skipped)
		})
	}
}

func TestDetailDowngrade(t *testing.T) {
	t.Parallel()

	sections := func(steps []planned) []string {
		var out []string
		for _, s := range steps {
			out = append(out, fmt.Sprintf("%s/%s", s.provider, s.section))
		}
		return out
	}

	tests := map[string]struct {
		usage float64
		want  []string
	}{
		"normal": {usage: 0.1, want: []string{
			"trakt/summary", "tmdb/summary", "trakt/studios", "trakt/releases", "tmdb/images", "fanart/images", "trakt/people", "imdb/summary",
		}},
		"trimmed": {usage: 0.85, want: []string{
			"trakt/summary", "tmdb/summary", "trakt/studios", "tmdb/images", "fanart/images", "imdb/summary",
		}},
		"essential": {usage: 0.97, want: []string{"trakt/summary", "tmdb/summary"}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			trakt, tmdb, imdb, fanart := matrixFakes()
			trakt.SetUsage(tc.usage)
			h := newHarness(t, []*providertest.Fake{trakt, tmdb, imdb, fanart})
			steps := h.o.plan(media.KindMovie, h.o.detail(extended()))
			require.Equal(t, tc.want, sections(steps))
		})
	}
}

func TestReloadRequiresFork(t *testing.T) {
	t.Parallel()

	trakt, tmdb, _, _ := matrixFakes()
	c, err := cache.Open(cache.Options{Path: filepath.Join(t.TempDir(), "cache.db"), Synchronous: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	reg := provider.NewRegistry()
	for _, f := range []*providertest.Fake{trakt, tmdb} {
		require.NoError(t, reg.Register(f.Name(), f, f.Capabilities().Priority))
		require.NoError(t, reg.Enable(f.Name()))
	}
	cfg := config.Default()
	shared, err := New(Config{Cache: c, Registry: reg, Settings: &cfg, Shared: true})
	require.NoError(t, err)

	refs := []media.Ref{{IDs: media.IDs{IMDb: "tt0133093"}}}
	_, err = shared.Reload(context.Background(), media.KindMovie, refs)
	require.True(t, errors.Is(err, ErrReloadOnSingleton))
	require.Empty(t, trakt.Calls())

	_, err = shared.Metadata(context.Background(), media.KindMovie, refs, Options{})
	require.NoError(t, err)
	trakt.Reset()

	got, err := shared.Fork().Reload(context.Background(), media.KindMovie, refs)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotEmpty(t, trakt.Calls())
}
