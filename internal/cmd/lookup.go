package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/menu"
)

var movieCmd = &cobra.Command{
	Use:   "movie ID...",
	Short: "Show movie metadata",
	Long: `Look up one or more movies by identifier.

Identifiers are IMDb ids (tt0133093) or provider:value pairs such as
tmdb:603, trakt:481 or slug:the-matrix-1999. Results come from the cache
when fresh and are fetched from the enabled providers otherwise.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup(media.KindMovie),
}

var setCmd = &cobra.Command{
	Use:   "set ID...",
	Short: "Show collection metadata",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLookup(media.KindSet),
}

var showCmd = &cobra.Command{
	Use:   "show ID...",
	Short: "Show TV show metadata",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLookup(media.KindShow),
}

func runLookup(kind media.Kind) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		refs, err := parseRefs(kind, args)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			entities, err := a.o.Metadata(ctx, kind, refs, options())
			if err != nil {
				return err
			}
			if len(entities) < len(refs) {
				a.logger.Warn("some titles could not be resolved", "requested", len(refs), "found", len(entities))
			}
			return printEntities(a.out, entities)
		})
	}
}

var (
	seasonNumber int
	fromEpisode  string
	nextEpisode  bool
	pageNumber   int
	pageLimit    int
)

var seasonCmd = &cobra.Command{
	Use:   "season SHOW-ID",
	Short: "List the seasons of a show",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeason,
}

func runSeason(cmd *cobra.Command, args []string) error {
	show, err := parseRef(media.KindShow, args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		page, err := a.menu.Season(ctx, menu.Request{Show: show, Page: pageNumber, Limit: pageLimit, Force: force})
		if err != nil {
			return err
		}
		return printPage(a.out, page)
	})
}

var episodeCmd = &cobra.Command{
	Use:   "episode SHOW-ID",
	Short: "List episodes of a show",
	Long: `List the episodes of one season (--season), a page of episodes starting
at a coordinate (--from S02E05), or the next episode to watch (--next).
Without --from, --next continues after the last episode in your playback
history.`,
	Args: cobra.ExactArgs(1),
	RunE: runEpisode,
}

func runEpisode(cmd *cobra.Command, args []string) error {
	show, err := parseRef(media.KindShow, args[0])
	if err != nil {
		return err
	}
	r := menu.Request{Show: show, Page: pageNumber, Limit: pageLimit, Force: force}
	if fromEpisode != "" {
		if r.From, err = parseNumber(fromEpisode); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("season") {
		if nextEpisode {
			return fmt.Errorf("--season and --next cannot be combined")
		}
		n := seasonNumber
		r.Season = &n
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if nextEpisode {
			e, ok, err := a.menu.Next(ctx, r)
			if err != nil {
				return err
			}
			if !ok {
				_, err := fmt.Fprintln(a.out, "No next episode: the show is finished or has no episodes.")
				return err
			}
			return printEntities(a.out, []*media.Entity{e})
		}
		page, err := a.menu.Episode(ctx, r)
		if err != nil {
			return err
		}
		return printPage(a.out, page)
	})
}

var packCmd = &cobra.Command{
	Use:   "pack SHOW-ID",
	Short: "Show the season and episode layout of a show",
	Args:  cobra.ExactArgs(1),
	RunE:  runPack,
}

func runPack(cmd *cobra.Command, args []string) error {
	show, err := parseRef(media.KindShow, args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		p, err := a.o.Pack(ctx, show, options())
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(a.out, p)
		}
		rows := make([][]string, 0, len(p.Seasons))
		for _, s := range p.Seasons {
			rows = append(rows, []string{strconv.Itoa(s.Number), s.Provider, strconv.Itoa(len(s.Episodes)), s.Title})
		}
		if _, err := fmt.Fprintf(a.out, "%s (%s)\n\n", p.Title, formatIDs(p.IDs)); err != nil {
			return err
		}
		return writeTable(a.out, []string{"SEASON", "PROVIDER", "EPISODES", "TITLE"}, rows)
	})
}

func init() {
	for _, c := range []*cobra.Command{seasonCmd, episodeCmd} {
		c.Flags().IntVarP(&pageNumber, "page", "p", 1, "Page to show")
		c.Flags().IntVarP(&pageLimit, "limit", "n", 0, "Items per page (default from config)")
	}
	episodeCmd.Flags().IntVarP(&seasonNumber, "season", "s", 1, "Season to list")
	episodeCmd.Flags().StringVar(&fromEpisode, "from", "", "First episode, as S01E05 or 1x5")
	episodeCmd.Flags().BoolVar(&nextEpisode, "next", false, "Show the next episode to watch")

	rootCmd.AddCommand(movieCmd, setCmd, showCmd, seasonCmd, episodeCmd, packCmd)
}
