package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/menu"
	"github.com/Digital-Shane/metaweave/internal/smart"
)

// listFlags are shared by every menu command.
type listFlags struct {
	media  string
	genres []string
	years  string
	niche  string
	sort   string
	user   string
	year   int
}

var menuFlags listFlags

// request builds a menu request from the flags.
func (f listFlags) request() (menu.Request, error) {
	kind := media.Kind(strings.ToLower(f.media))
	if kind != media.KindMovie && kind != media.KindShow {
		return menu.Request{}, fmt.Errorf("--media must be movie or show: got %q", f.media)
	}
	years, err := parseYears(f.years)
	if err != nil {
		return menu.Request{}, err
	}
	order := smart.Sort(strings.ToLower(f.sort))
	switch order {
	case "", smart.SortLocal, smart.SortGlobal, smart.SortRewatch, smart.SortUsed,
		smart.SortRelease, smart.SortRating, smart.SortPopularity:
	default:
		return menu.Request{}, fmt.Errorf("unknown sort %q", f.sort)
	}
	return menu.Request{
		Media:  kind,
		Genres: f.genres,
		Years:  years,
		Niche:  f.niche,
		Sort:   order,
		User:   f.user,
		Year:   f.year,
		Page:   pageNumber,
		Limit:  pageLimit,
		Force:  force,
	}, nil
}

type menuFunc func(*menu.Menu, context.Context, menu.Request) (menu.Page, error)

// menuCommand builds a command that prints one page of a menu. fill copies
// positional arguments into the request.
func menuCommand(use, short string, args cobra.PositionalArgs, call menuFunc, fill func(*menu.Request, []string)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := menuFlags.request()
			if err != nil {
				return err
			}
			if fill != nil {
				fill(&r, args)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				page, err := call(a.menu, ctx, r)
				if err != nil {
					return err
				}
				return printPage(a.out, page)
			})
		},
	}
}

var (
	discoverCmd = menuCommand("discover LIST", "Browse a dynamic list such as trending, popular or anticipated",
		cobra.ExactArgs(1), (*menu.Menu).Discover, func(r *menu.Request, args []string) { r.List = args[0] })
	searchCmd = menuCommand("search QUERY...", "Search titles across providers",
		cobra.MinimumNArgs(1), (*menu.Menu).Search, func(r *menu.Request, args []string) { r.Query = strings.Join(args, " ") })
	listCmd = menuCommand("list SLUG", "Show a user or curated list",
		cobra.ExactArgs(1), (*menu.Menu).List, func(r *menu.Request, args []string) { r.List = args[0] })
	personCmd = menuCommand("person NAME...", "List the titles of a person",
		cobra.MinimumNArgs(1), (*menu.Menu).Person, func(r *menu.Request, args []string) { r.Query = strings.Join(args, " ") })
	randomCmd = menuCommand("random", "Draw random titles from the popular, trending and anticipated lists",
		cobra.NoArgs, (*menu.Menu).Random, nil)
	progressCmd = menuCommand("progress", "Titles you are watching, by recent activity",
		cobra.NoArgs, (*menu.Menu).Progress, nil)
	arrivalsCmd = menuCommand("arrivals", "New releases related to what you watch",
		cobra.NoArgs, (*menu.Menu).Arrivals, nil)
	quickCmd = menuCommand("quick", "A mix of progress and arrivals picks",
		cobra.NoArgs, (*menu.Menu).Quick, nil)
	historyCmd = menuCommand("history", "Titles in your playback history",
		cobra.NoArgs, (*menu.Menu).History, nil)
)

func init() {
	for _, c := range []*cobra.Command{discoverCmd, searchCmd, listCmd, personCmd, randomCmd, progressCmd, arrivalsCmd, quickCmd, historyCmd} {
		c.Flags().StringVarP(&menuFlags.media, "media", "m", "movie", "Media type: movie or show")
		c.Flags().StringSliceVarP(&menuFlags.genres, "genre", "g", nil, "Keep only these genres")
		c.Flags().StringVar(&menuFlags.years, "years", "", "Keep only this year or range, e.g. 1990-1999")
		c.Flags().StringVar(&menuFlags.niche, "niche", "", "Keep only titles of this niche, e.g. anime")
		c.Flags().StringVar(&menuFlags.sort, "sort", "", "Order: local, global, rewatch, used, release, rating or popularity")
		c.Flags().IntVarP(&pageNumber, "page", "p", 1, "Page to show")
		c.Flags().IntVarP(&pageLimit, "limit", "n", 0, "Items per page (default from config)")
		rootCmd.AddCommand(c)
	}
	listCmd.Flags().StringVarP(&menuFlags.user, "user", "u", "", "Owner of the list")
	searchCmd.Flags().IntVar(&menuFlags.year, "year", 0, "Release year")
}
