package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/Digital-Shane/metaweave/internal/media"
)

func TestMergeScalarsFollowPrecedence(t *testing.T) {
	t.Parallel()

	trakt := &media.Entity{Kind: media.KindMovie, IDs: media.IDs{Trakt: "481", IMDb: "tt0133093"}, Title: "The Matrix", Year: 1999}
	tmdb := &media.Entity{
		Kind:     media.KindMovie,
		IDs:      media.IDs{TMDb: "603", IMDb: "tt0133093"},
		Title:    "Matrix",
		Tagline:  "Welcome to the Real World.",
		Duration: 8160,
		Genre:    []string{"Action", "Sci-Fi"},
		Country:  []string{"US"},
	}
	imdb := &media.Entity{
		Kind:     media.KindMovie,
		IDs:      media.IDs{IMDb: "tt0133093"},
		Plot:     "A hacker learns the truth.",
		Genre:    []string{"Science Fiction", "action"},
		Country:  []string{"United States", "Australia"},
		Language: []string{"English"},
	}

	got := Merge(media.KindMovie, nil, []Source{
		{Provider: media.ProviderIMDb, Entity: imdb},
		{Provider: media.ProviderTMDb, Entity: tmdb},
		{Provider: media.ProviderTrakt, Entity: trakt},
	})

	require.Equal(t, "The Matrix", got.Title)
	require.Equal(t, "Welcome to the Real World.", got.Tagline)
	require.Equal(t, "A hacker learns the truth.", got.Plot)
	require.Equal(t, 8160, got.Duration)
	if diff := cmp.Diff(media.IDs{IMDb: "tt0133093", TMDb: "603", Trakt: "481"}, got.IDs); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Action", "Science Fiction"}, got.Genre); diff != "" {
		t.Errorf("genre mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"us", "au"}, got.Country); diff != "" {
		t.Errorf("country mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"en"}, got.Language); diff != "" {
		t.Errorf("language mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeDoesNotAlias(t *testing.T) {
	t.Parallel()

	src := &media.Entity{Kind: media.KindMovie, Title: "Heat", Genre: []string{"Crime"}, Number: &media.Numbering{}}
	got := Merge(media.KindMovie, nil, []Source{{Provider: media.ProviderTMDb, Entity: src}})
	got.Genre[0] = "Drama"
	got.Title = "Other"

	require.Equal(t, "Crime", src.Genre[0])
	require.Equal(t, "Heat", src.Title)
	require.NotSame(t, src.Number, got.Number)
}

func TestMergeLaunchTime(t *testing.T) {
	t.Parallel()

	theatrical := media.ParseDate("1999-03-31")
	digital := media.ParseDate("2001-01-01")
	limited := media.ParseDate("1999-03-24")

	a := &media.Entity{Kind: media.KindMovie}
	a.SetTime(media.TimeTheatre, theatrical)
	a.SetTime(media.TimeDigital, digital)
	b := &media.Entity{Kind: media.KindMovie}
	b.SetTime(media.TimeLimited, limited)
	b.SetTime(media.TimeTheatre, theatrical+86400)

	got := Merge(media.KindMovie, nil, []Source{
		{Provider: media.ProviderTrakt, Entity: a},
		{Provider: media.ProviderTMDb, Entity: b},
	})

	require.Equal(t, limited, got.Time[media.TimeLaunch])
	require.Equal(t, theatrical, got.Time[media.TimeTheatre])
	require.Equal(t, "1999-03-24", got.Premiered)
	require.Equal(t, 1999, got.Year)
}

func TestMergePreferredEpisodeProvider(t *testing.T) {
	t.Parallel()

	tvdb := &media.Entity{Kind: media.KindEpisode, Title: "Pilot (TVDB)", Season: 1, Episode: 1}
	trakt := &media.Entity{Kind: media.KindEpisode, Title: "Pilot", Season: 1, Episode: 1}
	sources := []Source{{Provider: media.ProviderTrakt, Entity: trakt}, {Provider: media.ProviderTVDb, Entity: tvdb}}

	require.Equal(t, "Pilot", Merge(media.KindEpisode, nil, sources).Title)
	require.Equal(t, "Pilot (TVDB)", Merge(media.KindEpisode, Precedence(media.KindEpisode, media.ProviderTVDb), sources).Title)
}

func TestMergeCastAndParts(t *testing.T) {
	t.Parallel()

	a := &media.Entity{
		Kind:  media.KindSet,
		Cast:  []media.Person{{Name: "Keanu Reeves"}, {Name: "Carrie-Anne Moss", Character: "Trinity"}},
		Parts: []media.IDs{{TMDb: "603"}, {TMDb: "604"}},
	}
	b := &media.Entity{
		Kind:  media.KindSet,
		Cast:  []media.Person{{Name: "Keanu Reeves", Character: "Neo"}, {Name: "Laurence Fishburne", Character: "Morpheus"}},
		Parts: []media.IDs{{TMDb: "603", IMDb: "tt0133093"}, {TMDb: "605"}},
	}

	got := Merge(media.KindSet, nil, []Source{{Provider: media.ProviderTMDb, Entity: a}, {Provider: media.ProviderTrakt, Entity: b}})

	wantCast := []media.Person{
		{Name: "Keanu Reeves", Character: "Neo"},
		{Name: "Carrie-Anne Moss", Character: "Trinity", Order: 1},
		{Name: "Laurence Fishburne", Character: "Morpheus", Order: 2},
	}
	if diff := cmp.Diff(wantCast, got.Cast); diff != "" {
		t.Errorf("cast mismatch (-want +got):\n%s", diff)
	}
	wantParts := []media.IDs{{TMDb: "603", IMDb: "tt0133093"}, {TMDb: "604"}, {TMDb: "605"}}
	if diff := cmp.Diff(wantParts, got.Parts); diff != "" {
		t.Errorf("parts mismatch (-want +got):\n%s", diff)
	}
}

func TestRating(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		voting    media.Voting
		wantValue float64
		wantVotes int
	}{
		"empty": {},
		"single provider": {
			voting:    media.Voting{Rating: map[string]float64{"imdb": 8.7}, Votes: map[string]int{"imdb": 2000000}},
			wantValue: 8.7,
			wantVotes: 2000000,
		},
		"few votes barely count": {
			voting: media.Voting{
				Rating: map[string]float64{"imdb": 8.0, "trakt": 2.0},
				Votes:  map[string]int{"imdb": 100000, "trakt": 1},
			},
			wantValue: 8.0,
			wantVotes: 100001,
		},
		"equal weights average": {
			voting: media.Voting{
				Rating: map[string]float64{"imdb": 8.0, "tmdb": 7.0},
				Votes:  map[string]int{"imdb": 250, "tmdb": 250},
			},
			wantValue: 7.5,
			wantVotes: 500,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			value, votes := Rating(tc.voting)
			require.Equal(t, tc.wantValue, value)
			require.Equal(t, tc.wantVotes, votes)
		})
	}
}

func TestRatingIsStableAcrossCalls(t *testing.T) {
	t.Parallel()

	// Weighted means that land next to a rounding boundary expose summation
	// order in the last bits.
	voting := media.Voting{
		Rating: map[string]float64{"imdb": 7.35, "tmdb": 7.25, "trakt": 7.45, "tvdb": 7.15, "anidb": 7.55, "mal": 7.05},
		Votes:  map[string]int{"imdb": 333, "tmdb": 777, "trakt": 111, "tvdb": 999, "anidb": 555, "mal": 12345},
	}
	first, votes := Rating(voting)
	require.Equal(t, 333+777+111+999+555+12345, votes)
	for i := 0; i < 200; i++ {
		got, _ := Rating(voting)
		require.Equal(t, first, got, "call %d", i)
	}
}

func TestImagesReversePrecedence(t *testing.T) {
	t.Parallel()

	fanart := &media.Entity{Images: map[string][]media.Image{
		media.ImagePoster:    {{Link: "f1"}, {Link: "shared"}},
		media.ImageClearLogo: {{Link: "logo"}},
	}}
	tmdb := &media.Entity{Images: map[string][]media.Image{
		media.ImagePoster: {{Link: "shared"}, {Link: "t1"}},
	}}

	got := Images([]Source{{Provider: media.ProviderTMDb, Entity: tmdb}, {Provider: media.ProviderFanart, Entity: fanart}})

	want := map[string][]media.Image{
		media.ImagePoster: {
			{Link: "f1", Provider: media.ProviderFanart},
			{Link: "shared", Provider: media.ProviderTMDb},
			{Link: "t1", Provider: media.ProviderTMDb},
		},
		media.ImageClearLogo: {{Link: "logo", Provider: media.ProviderFanart}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("images mismatch (-want +got):\n%s", diff)
	}
}

func TestPartial(t *testing.T) {
	t.Parallel()

	full := map[string][]media.Image{
		media.ImagePoster: {{Link: "p"}},
		media.ImageFanart: {{Link: "f"}},
	}
	tests := map[string]struct {
		entity *media.Entity
		want   bool
	}{
		"complete movie": {
			entity: &media.Entity{Kind: media.KindMovie, Images: full, Part: media.Part{"tmdb": {Complete: true}}},
		},
		"movie without fanart": {
			entity: &media.Entity{Kind: media.KindMovie, Images: map[string][]media.Image{media.ImagePoster: {{Link: "p"}}}},
			want:   true,
		},
		"incomplete provider": {
			entity: &media.Entity{Kind: media.KindShow, Images: full, Part: media.Part{"fanart": {}}},
			want:   true,
		},
		"season needs only a poster": {
			entity: &media.Entity{Kind: media.KindSeason, Images: map[string][]media.Image{media.ImagePoster: {{Link: "p"}}}},
		},
		"episode needs nothing": {
			entity: &media.Entity{Kind: media.KindEpisode},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Partial(tc.entity))
		})
	}
}

func TestCompanies(t *testing.T) {
	t.Parallel()

	studios, networks := Companies(
		[]string{"Warner Bros. Pictures", "HBO", "Sony Pictures Releasing"},
		[]string{"AMC", "Sony Pictures Television", "Local Access"},
	)
	if diff := cmp.Diff([]string{"Sony Pictures Television", "Warner Bros. Pictures"}, studios); diff != "" {
		t.Errorf("studios mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Local Access", "HBO", "AMC"}, networks); diff != "" {
		t.Errorf("networks mismatch (-want +got):\n%s", diff)
	}

	studios, _ = Companies([]string{"Buena Vista"}, nil)
	require.Equal(t, []string{"Buena Vista"}, studios)
}

func TestNiches(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		entity *media.Entity
		want   []string
	}{
		"anime by country": {
			entity: &media.Entity{Kind: media.KindShow, Genre: []string{"Animation"}, Country: []string{"jp"}},
			want:   []string{NicheAnime},
		},
		"kid movie": {
			entity: &media.Entity{Kind: media.KindMovie, MPAA: "G", Duration: 90 * 60},
			want:   []string{NicheKid},
		},
		"short teen movie": {
			entity: &media.Entity{Kind: media.KindMovie, MPAA: "pg-13", Duration: 20 * 60},
			want:   []string{NicheTeen, NicheShort},
		},
		"ended one season show": {
			entity: &media.Entity{Kind: media.KindShow, Status: "Ended", Count: &media.Count{Season: 1, Episode: 6}},
			want:   []string{NicheMini},
		},
		"special episode": {
			entity: &media.Entity{Kind: media.KindEpisode, Season: 0, Episode: 3},
			want:   []string{NicheSpecial},
		},
		"none": {
			entity: &media.Entity{Kind: media.KindMovie, MPAA: "R", Genre: []string{"Crime"}},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tc.want, Niches(tc.entity)); diff != "" {
				t.Errorf("niches mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
