package ids

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Digital-Shane/metaweave/internal/media"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		observed []media.IDs
		current  media.IDs
		want     media.IDs
		wantErr  error
	}{
		"majority wins over current": {
			observed: []media.IDs{{TMDb: "603"}, {TMDb: "603"}, {TMDb: "604"}},
			current:  media.IDs{TMDb: "604"},
			want:     media.IDs{TMDb: "603"},
		},
		"tie keeps current": {
			observed: []media.IDs{{TMDb: "1"}, {TMDb: "2"}},
			current:  media.IDs{TMDb: "1"},
			want:     media.IDs{TMDb: "1"},
		},
		"tie without current takes latest": {
			observed: []media.IDs{{TVDb: "10"}, {TVDb: "20"}},
			want:     media.IDs{TVDb: "20"},
		},
		"unobserved types keep current": {
			observed: []media.IDs{{Trakt: "481"}},
			current:  media.IDs{IMDb: "tt0133093"},
			want:     media.IDs{IMDb: "tt0133093", Trakt: "481"},
		},
		"show listing ids carried": {
			observed: []media.IDs{{TVDb: "81189", TVMaze: "169"}, {Trakt: "1388", TVRage: "18164"}},
			want:     media.IDs{TVDb: "81189", TVMaze: "169", Trakt: "1388", TVRage: "18164"},
		},
		"tvmaze alone resolves": {
			observed: []media.IDs{{TVMaze: "169"}},
			want:     media.IDs{TVMaze: "169"},
		},
		"nothing known": {
			wantErr: ErrUnresolvable,
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			r := New()
			for _, o := range tc.observed {
				r.Observe(o)
			}
			got, err := r.Resolve(tc.current)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Resolve() error = %v, want %v", err, tc.wantErr)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyKeepsRedirectedIMDbAlias(t *testing.T) {
	t.Parallel()

	r := New()
	r.Observe(media.IDs{IMDb: "tt0000002", Trakt: "1"})
	r.Observe(media.IDs{IMDb: "tt0000002", TMDb: "9"})

	e := &media.Entity{Kind: media.KindMovie, IDs: media.IDs{IMDb: "tt0000001"}}
	if err := r.Apply(e, media.IDs{IMDb: "tt0000001"}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	want := media.IDs{IMDb: "tt0000002", Trakt: "1", TMDb: "9"}
	if diff := cmp.Diff(want, e.IDs); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
	if e.IMDbAlias != "tt0000001" {
		t.Errorf("IMDbAlias = %q, want tt0000001", e.IMDbAlias)
	}
	if got := r.Count(media.ProviderIMDb, "tt0000002"); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}
