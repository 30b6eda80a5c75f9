package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/Digital-Shane/metaweave/internal/config"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/pack"
	"github.com/Digital-Shane/metaweave/internal/playback"
)

// ErrNoPack is returned when no provider could list the episodes of a show.
var ErrNoPack = errors.New("core: show has no episode listing")

// specialMargin is how far outside a page's air dates a special may air and
// still be interleaved by date.
const specialMargin = 60 * 24 * time.Hour

var extrasPattern = regexp.MustCompile(`(?i)behind the scenes|making of|featurette|recap|trailer|preview|blooper|deleted scene|interview|sneak peek|inside the episode`)

// EpisodeQuery selects the episodes of one show.
type EpisodeQuery struct {
	Show media.Ref
	// Season lists one whole season when set. Season 0 lists the specials.
	Season *int
	// From starts a page at this coordinate, the first episode by default.
	From *media.Number
	// Axis is the numbering Season and From are given in. Standard by
	// default.
	Axis pack.Axis
	// Limit is the page size. The configured page size by default.
	Limit int
	// Next returns only the episode following From, or following the last
	// watched one when From is unset.
	Next bool
	// Specials overrides the configured specials policy.
	Specials string
}

// Range is a page of standard episodes. Seasons spans every season the page
// touches plus the following one, so whole seasons can be fetched ahead.
type Range struct {
	Start   media.Number
	End     media.Number
	Seasons [2]int
}

// EpisodeRange returns the page of size episodes starting at the first
// standard episode at or after start. The boolean is false when nothing
// follows start.
func EpisodeRange(p *pack.Pack, start media.Number, size int) (Range, bool) {
	order := p.Order()
	if size < 1 {
		size = 1
	}
	first := -1
	for i, ep := range order {
		if !ep.Standard().Less(start) {
			first = i
			break
		}
	}
	if first < 0 {
		return Range{}, false
	}
	last := min(first+size, len(order)) - 1
	r := Range{Start: order[first].Standard(), End: order[last].Standard()}
	r.Seasons = [2]int{r.Start.Season(), r.End.Season()}
	if last+1 < len(order) {
		r.Seasons[1] = order[last+1].Standard().Season()
	}
	return r, true
}

// Episodes returns the episodes a query selects, with their numbering taken
// from the show's pack. When Next finds no following episode the result is a
// single entity with Invalid set.
func (o *Orchestrator) Episodes(ctx context.Context, q EpisodeQuery, opts Options) ([]*media.Entity, error) {
	p, err := o.Pack(ctx, q.Show, opts)
	if err != nil {
		return nil, err
	}
	if q.Axis == "" {
		q.Axis = pack.AxisStandard
	}
	mode := q.Specials
	if mode == "" {
		mode = o.settings.Specials()
	}

	if q.Next {
		return o.next(ctx, q, p, mode, opts)
	}

	var page []*pack.Episode
	switch {
	case q.Season != nil:
		season, ok := p.LookupSeason(q.Axis, *q.Season)
		if !ok && q.Axis == pack.AxisStandard {
			season, ok = p.Season(*q.Season)
		}
		if !ok {
			return nil, nil
		}
		for i := range season.Episodes {
			page = append(page, &season.Episodes[i])
		}
		if season.Number > 0 {
			page = interleave(p, page, mode, o.settings)
		} else if mode == config.SpecialsReduce {
			page = reduce(page, o.settings)
		}
	default:
		start := media.Number{1, 1}
		if q.From != nil {
			start, err = standard(p, q.Axis, *q.From)
			if err != nil {
				return nil, err
			}
		}
		limit := q.Limit
		if limit <= 0 {
			limit = o.settings.PageSize()
		}
		r, ok := EpisodeRange(p, start, limit)
		if !ok {
			return nil, nil
		}
		for _, ep := range p.Order() {
			n := ep.Standard()
			if !n.Less(r.Start) && !r.End.Less(n) {
				page = append(page, ep)
			}
		}
		page = interleave(p, page, mode, o.settings)
		o.prefetchSeasons(ctx, q.Show, r, opts)
	}
	return o.fetchEpisodes(ctx, q.Show, p, page, opts)
}

// Pack returns the decoded pack of a show.
func (o *Orchestrator) Pack(ctx context.Context, show media.Ref, opts Options) (*pack.Pack, error) {
	show.Kind = media.KindPack
	opts.Quick = Full()
	entities, err := o.Metadata(ctx, media.KindPack, []media.Ref{show}, opts)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 || len(entities[0].Pack) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPack, describe(show))
	}
	return pack.Decode(entities[0].Pack)
}

// standard translates an axis coordinate to the standard one.
func standard(p *pack.Pack, axis pack.Axis, n media.Number) (media.Number, error) {
	if axis == pack.AxisStandard || axis == pack.AxisUniversal {
		return n, nil
	}
	numbering, ok := p.Lookup(axis, n.Season(), n.Episode())
	if !ok || numbering.Standard == nil {
		return media.Number{}, fmt.Errorf("no %s episode %s", axis, n)
	}
	return *numbering.Standard, nil
}

// next resolves the episode following the current one. Without a starting
// coordinate the most recently watched episode is the current one and an
// unwatched show starts at its first episode.
func (o *Orchestrator) next(ctx context.Context, q EpisodeQuery, p *pack.Pack, mode string, opts Options) ([]*media.Entity, error) {
	history, err := o.playback.History(ctx, media.KindShow, q.Show.IDs, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("reading playback history: %w", err)
	}

	now := o.now().Unix()
	var current media.Number
	switch {
	case q.From != nil:
		current, err = standard(p, q.Axis, *q.From)
		if err != nil {
			return nil, err
		}
	case len(history) > 0:
		latest := history[0]
		for _, h := range history[1:] {
			if h.Watched > latest.Watched {
				latest = h
			}
		}
		current = media.Number{latest.Season, latest.Episode}
	default:
		for _, ep := range p.Order() {
			if released(ep, now) {
				return o.fetchEpisodes(ctx, q.Show, p, []*pack.Episode{ep}, opts)
			}
		}
		return []*media.Entity{invalid(q.Show)}, nil
	}

	specials := mode != config.SpecialsOff
	// Candidates that have not aired yet are passed over.
	var ep *pack.Episode
	following, ok := p.Next(current.Season(), current.Episode(), specials)
	for ok {
		if candidate, found := p.Episode(following); found && released(candidate, now) {
			ep = candidate
			break
		}
		following, ok = p.Next(following.Season(), following.Episode(), specials)
	}
	if ep == nil {
		return []*media.Entity{invalid(q.Show)}, nil
	}
	if o.settings.Discrepancy() && hidden(history, current, following) {
		return []*media.Entity{invalid(q.Show)}, nil
	}
	return o.fetchEpisodes(ctx, q.Show, p, []*pack.Episode{ep}, opts)
}

// released reports whether ep has a known air date at or before now.
func released(ep *pack.Episode, now int64) bool {
	return ep.Aired > 0 && ep.Aired <= now
}

// hidden reports whether the following episode was watched at least as often
// as the current one, which happens while rewatching out of order.
func hidden(history []playback.Episode, current, following media.Number) bool {
	plays := playback.Plays(history, following)
	return plays > 0 && plays >= playback.Plays(history, current)
}

func invalid(show media.Ref) *media.Entity {
	ids := show.IDs
	return &media.Entity{Kind: media.KindEpisode, ShowIDs: &ids, ShowTitle: show.Title, Invalid: true}
}

// interleave places the specials among a page of standard episodes. A
// special with an explicit placement goes exactly there; the rest go by air
// date when interleaving is on and after the page otherwise. Specials airing
// far outside the page are left out.
func interleave(p *pack.Pack, page []*pack.Episode, mode string, settings config.Settings) []*pack.Episode {
	if mode == config.SpecialsOff || len(page) == 0 {
		return page
	}
	specials := p.Specials()
	if mode == config.SpecialsReduce {
		specials = reduce(specials, settings)
	}
	if len(specials) == 0 {
		return page
	}

	index := make(map[media.Number]int, len(page))
	var first, last int64
	for i, ep := range page {
		index[ep.Standard()] = i
		if ep.Aired > 0 {
			if first == 0 || ep.Aired < first {
				first = ep.Aired
			}
			last = max(last, ep.Aired)
		}
	}
	// A season's final episode is on the page when the page ends the season.
	finale := make(map[int]int)
	order := p.Order()
	for i, ep := range order {
		n := ep.Standard()
		if i+1 == len(order) || order[i+1].Standard().Season() != n.Season() {
			if at, ok := index[n]; ok {
				finale[n.Season()] = at
			}
		}
	}

	before := make(map[int][]*pack.Episode)
	after := make(map[int][]*pack.Episode)
	var trailing []*pack.Episode
	margin := int64(specialMargin / time.Second)
	for _, sp := range specials {
		switch {
		case sp.Before != nil:
			if at, ok := index[*sp.Before]; ok {
				before[at] = append(before[at], sp)
			}
		case sp.After > 0:
			if at, ok := finale[sp.After]; ok {
				after[at] = append(after[at], sp)
			}
		case sp.Aired > 0 && first > 0 && sp.Aired >= first-margin && sp.Aired <= last+margin:
			if !settings.Interleave() {
				trailing = append(trailing, sp)
				continue
			}
			placed := false
			for i, ep := range page {
				if ep.Aired > sp.Aired {
					before[i] = append(before[i], sp)
					placed = true
					break
				}
			}
			if !placed {
				trailing = append(trailing, sp)
			}
		}
	}

	out := make([]*pack.Episode, 0, len(page)+len(specials))
	for i, ep := range page {
		out = append(out, sorted(before[i])...)
		out = append(out, ep)
		out = append(out, sorted(after[i])...)
	}
	return append(out, sorted(trailing)...)
}

func sorted(eps []*pack.Episode) []*pack.Episode {
	sort.SliceStable(eps, func(i, j int) bool { return eps[i].Standard().Less(eps[j].Standard()) })
	return eps
}

// reduce drops the specials the reduction settings exclude: extras,
// specials no reference listing knows and short ones.
func reduce(specials []*pack.Episode, settings config.Settings) []*pack.Episode {
	var out []*pack.Episode
	for _, sp := range specials {
		switch {
		case settings.ReduceExtras() && extrasPattern.MatchString(sp.Title):
		case settings.ReduceUnofficial() && !sp.Type.Has(media.TypeOfficial):
		case settings.ReduceShort() && sp.Duration > 0 && sp.Duration < settings.ShortSeconds():
		default:
			out = append(out, sp)
		}
	}
	return out
}

// fetchEpisodes resolves the page episodes through the orchestrator and
// decorates them with their pack numbering. Episodes no provider returned
// are built from the pack alone.
func (o *Orchestrator) fetchEpisodes(ctx context.Context, show media.Ref, p *pack.Pack, page []*pack.Episode, opts Options) ([]*media.Entity, error) {
	opts.preferred = make(map[media.Number]string)
	refs := make([]media.Ref, 0, len(page))
	for _, ep := range page {
		n := ep.Standard()
		if ep.Number.Standard == nil {
			continue
		}
		refs = append(refs, media.Ref{Kind: media.KindEpisode, IDs: show.IDs, Title: show.Title, Year: show.Year, Season: n.Season(), Episode: n.Episode()})
		if s, ok := p.Season(n.Season()); ok {
			opts.preferred[n] = s.Provider
		}
	}
	entities, err := o.Metadata(ctx, media.KindEpisode, refs, opts)
	if err != nil {
		return nil, err
	}
	found := make(map[media.Number]*media.Entity, len(entities))
	for _, e := range entities {
		found[media.Number{e.Season, e.Episode}] = e
	}

	showIDs := show.IDs
	out := make([]*media.Entity, 0, len(page))
	for _, ep := range page {
		if ep.Number.Standard == nil {
			continue
		}
		n := ep.Standard()
		e, ok := found[n]
		if !ok {
			e = &media.Entity{Kind: media.KindEpisode, IDs: ep.IDs, ShowIDs: &showIDs, ShowTitle: show.Title, Title: ep.Title, Season: n.Season(), Episode: n.Episode(), Duration: ep.Duration}
			if ep.Aired > 0 {
				e.SetTime(media.TimeAired, ep.Aired)
			}
		} else {
			e = e.Clone()
		}
		numbering := ep.Number.Clone()
		e.Number = &numbering
		e.Type = ep.Type
		out = append(out, e)
	}
	return out, nil
}

// prefetchSeasons warms the season records a page spans in the background.
func (o *Orchestrator) prefetchSeasons(ctx context.Context, show media.Ref, r Range, opts Options) {
	var refs []media.Ref
	for s := r.Seasons[0]; s <= r.Seasons[1]; s++ {
		refs = append(refs, media.Ref{Kind: media.KindSeason, IDs: show.IDs, Title: show.Title, Year: show.Year, Season: s})
	}
	opts.Quick = Cached()
	if _, err := o.Metadata(ctx, media.KindSeason, refs, opts); err != nil {
		o.logger.Debug("season prefetch failed", "show", describe(show), "error", err)
	}
}
