package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/menu"
)

const maxColumn = 48

// writeTable prints rows under headers with columns padded to their display
// width. Cells wider than maxColumn are truncated.
func writeTable(w io.Writer, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := range row {
			if i >= len(widths) {
				break
			}
			row[i] = runewidth.Truncate(row[i], maxColumn, "…")
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}

	line := func(cells []string) string {
		var b strings.Builder
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			if i == len(cells)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		return strings.TrimRight(b.String(), " ")
	}

	if _, err := fmt.Fprintln(w, line(headers)); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, line(row)); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var entityHeaders = []string{"KIND", "TITLE", "YEAR", "RATING", "IDS"}

func entityRow(e *media.Entity) []string {
	title := e.Title
	switch e.Kind {
	case media.KindEpisode:
		title = fmt.Sprintf("%s %s", media.NewNumber(e.Season, e.Episode), e.Title)
	case media.KindSeason:
		if e.ShowTitle != "" {
			title = e.ShowTitle + ": " + e.Title
		}
	}
	year := ""
	if e.Year > 0 {
		year = strconv.Itoa(e.Year)
	}
	rating := ""
	if e.Rating > 0 {
		rating = strconv.FormatFloat(e.Rating, 'f', 1, 64)
	}
	return []string{string(e.Kind), title, year, rating, formatIDs(e.IDs)}
}

func formatIDs(ids media.IDs) string {
	var parts []string
	for _, p := range media.IDProviders {
		if v := ids.Get(p); v != "" {
			parts = append(parts, p+":"+v)
		}
	}
	return strings.Join(parts, " ")
}

// printEntities writes entities as a table, or as JSON with --json.
func printEntities(w io.Writer, entities []*media.Entity) error {
	if jsonOutput {
		if entities == nil {
			entities = []*media.Entity{}
		}
		return writeJSON(w, entities)
	}
	if len(entities) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	rows := make([][]string, 0, len(entities))
	for _, e := range entities {
		rows = append(rows, entityRow(e))
	}
	return writeTable(w, entityHeaders, rows)
}

// printPage writes a menu page followed by its position.
func printPage(w io.Writer, page menu.Page) error {
	if jsonOutput {
		return writeJSON(w, page)
	}
	if err := printEntities(w, page.Items); err != nil {
		return err
	}
	if page.Pages > 1 {
		_, err := fmt.Fprintf(w, "\nPage %d of %d (%d items)\n", page.Page, page.Pages, page.Total)
		return err
	}
	return nil
}
