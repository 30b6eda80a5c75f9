package smart

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/Digital-Shane/metaweave/internal/cache"
	"github.com/Digital-Shane/metaweave/internal/media"
)

func released(n int, age int) *media.Entity {
	e := movie(n)
	e.SetTime(media.TimeLaunch, days(age))
	e.SetTime(media.TimeTheatre, days(age))
	e.Smart = &media.Smart{Release: days(age)}
	return e
}

func TestWindows(t *testing.T) {
	t.Parallel()

	got := Windows(now, 12)
	require.Len(t, got, 12)
	require.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), got[0].Start)
	require.Equal(t, time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC), got[0].End)
	require.Equal(t, time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC), got[11].Start)

	var classes []cache.Timeout
	for i := range got[:6] {
		classes = append(classes, windowTimeout(i))
	}
	want := []cache.Timeout{cache.TimeoutRefresh, cache.TimeoutMedium, cache.TimeoutMedium, cache.TimeoutMedium, cache.TimeoutExtended, cache.TimeoutExtended}
	require.Equal(t, want, classes)
}

func TestMergeArrivals(t *testing.T) {
	t.Parallel()

	season := func(n, number, age int) *media.Entity {
		e := released(n, age)
		e.Kind = media.KindShow
		e.Season = number
		return e
	}
	removed := released(5, 400)
	removed.Smart.Removed = true

	tests := map[string]struct {
		list  []*media.Entity
		found []*media.Entity
		want  []string
		gone  []string
	}{
		"new items appended once": {
			list:  []*media.Entity{released(1, 10)},
			found: []*media.Entity{released(2, 5), released(1, 10), released(2, 5)},
			want:  []string{"Movie 1", "Movie 2"},
		},
		"unreleased items skipped": {
			found: []*media.Entity{released(3, -2)},
		},
		"seasons of one show are distinct": {
			found: []*media.Entity{season(7, 2, 30), season(7, 3, 3), season(7, 3, 3)},
			want:  []string{"Movie 7", "Movie 7"},
		},
		"old items marked removed and not re-added": {
			list:  []*media.Entity{removed},
			found: []*media.Entity{released(5, 400)},
			want:  []string{"Movie 5"},
			gone:  []string{"Movie 5"},
		},
		"ages past two years are purged": {
			list: []*media.Entity{released(6, 800), released(1, 10)},
			want: []string{"Movie 1"},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got := MergeArrivals(tc.list, tc.found, now)
			var all, gone []string
			for _, e := range got {
				all = append(all, e.Title)
				if e.Smart.Removed {
					gone = append(gone, e.Title)
				}
			}
			if diff := cmp.Diff(tc.want, all); diff != "" {
				t.Errorf("MergeArrivals() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.gone, gone); diff != "" {
				t.Errorf("removed mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestArrivalsFromReleaseWindows(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0.5)
	f.tmdb.Lists["release/"+media.TimeTheatre] = []*media.Entity{released(1, 3), released(2, 400)}
	f.tmdb.Lists["release/"+media.TimeDigital] = []*media.Entity{released(1, 3), released(3, 40)}
	f.tmdb.Lists["discover/recent"] = []*media.Entity{released(4, 20)}

	ctx := context.Background()
	got, err := f.engine.Arrivals(ctx, media.KindMovie, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"Movie 1", "Movie 4", "Movie 3"}, titles(got))
	require.Equal(t, "Plot of Movie 1", got[0].Plot)

	stored, _, err := f.engine.Stored(ctx, ListArrivals, media.KindMovie)
	require.NoError(t, err)
	require.Len(t, stored, 4)
	for _, e := range stored {
		require.Equal(t, e.Title == "Movie 2", e.Smart.Removed, e.Title)
	}

	// Windows are served from the cache until they expire.
	f.tmdb.Lists["release/"+media.TimeTheatre] = nil
	again, err := f.engine.Arrivals(ctx, media.KindMovie, Options{})
	require.NoError(t, err)
	require.Equal(t, titles(got), titles(again))
}
