package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mattn/go-runewidth"

	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/menu"
)

func TestWriteTableAlignsDisplayWidth(t *testing.T) {
	var buf bytes.Buffer
	rows := [][]string{
		{"movie", "千と千尋の神隠し", "2001"},
		{"movie", "Heat", "1995"},
	}
	if err := writeTable(&buf, []string{"KIND", "TITLE", "YEAR"}, rows); err != nil {
		t.Fatalf("writeTable() unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	want := []string{
		"KIND   TITLE             YEAR",
		"movie  千と千尋の神隠し  2001",
		"movie  Heat              1995",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("writeTable() mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteTableTruncatesLongCells(t *testing.T) {
	var buf bytes.Buffer
	long := strings.Repeat("x", 80)
	if err := writeTable(&buf, []string{"TITLE", "YEAR"}, [][]string{{long, "2001"}}); err != nil {
		t.Fatalf("writeTable() unexpected error: %v", err)
	}
	row := strings.Split(buf.String(), "\n")[1]
	title := strings.Fields(row)[0]
	if got := runewidth.StringWidth(title); got != maxColumn {
		t.Errorf("truncated title width = %d, want %d", got, maxColumn)
	}
	if !strings.HasSuffix(title, "…") {
		t.Errorf("truncated title %q lacks the ellipsis", title)
	}
}

func TestEntityRow(t *testing.T) {
	show := media.IDs{TVDb: "81189"}
	tests := map[string]struct {
		entity *media.Entity
		want   []string
	}{
		"movie": {
			entity: &media.Entity{Kind: media.KindMovie, Title: "Heat", Year: 1995, Rating: 8.27, IDs: media.IDs{IMDb: "tt0113277", TMDb: "949"}},
			want:   []string{"movie", "Heat", "1995", "8.3", "tmdb:949 imdb:tt0113277"},
		},
		"episode": {
			entity: &media.Entity{Kind: media.KindEpisode, Title: "Pilot", Season: 1, Episode: 1, ShowIDs: &show},
			want:   []string{"episode", "S01E01 Pilot", "", "", ""},
		},
		"season": {
			entity: &media.Entity{Kind: media.KindSeason, Title: "Season 2", ShowTitle: "Breaking Bad", Season: 2},
			want:   []string{"season", "Breaking Bad: Season 2", "", "", ""},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, entityRow(tc.entity)); diff != "" {
				t.Errorf("entityRow() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrintPage(t *testing.T) {
	page := menu.Page{
		Items: []*media.Entity{{Kind: media.KindMovie, Title: "Heat", Year: 1995}},
		Page:  2,
		Pages: 3,
		Total: 41,
	}

	var buf bytes.Buffer
	if err := printPage(&buf, page); err != nil {
		t.Fatalf("printPage() unexpected error: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "Page 2 of 3 (41 items)\n") {
		t.Errorf("printPage() = %q, want the page footer", buf.String())
	}

	buf.Reset()
	if err := printPage(&buf, menu.Page{Page: 1, Pages: 1}); err != nil {
		t.Fatalf("printPage(empty) unexpected error: %v", err)
	}
	if got := buf.String(); got != "No results.\n" {
		t.Errorf("printPage(empty) = %q, want %q", got, "No results.\n")
	}
}
