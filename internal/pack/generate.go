package pack

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Digital-Shane/metaweave/internal/match"
	"github.com/Digital-Shane/metaweave/internal/media"
)

// rank is the default provider order for season selection.
var rank = []string{media.ProviderTrakt, media.ProviderTVDb, media.ProviderTMDb, media.ProviderIMDb}

const (
	// tieMargin is the episode count difference below which seasons are
	// considered the same size.
	tieMargin = 3
	week      = 7 * 24 * 60 * 60
)

// Options tunes generation.
type Options struct {
	// Matcher compares titles. A fresh matcher is used when nil.
	Matcher *match.Matcher
	// Now decides which episodes count as aired. Defaults to time.Now.
	Now time.Time
}

func rankOf(provider string) int {
	for i, p := range rank {
		if p == provider {
			return i
		}
	}
	return len(rank)
}

// source is one provider listing prepared for generation.
type source struct {
	provider string
	seasons  []media.PackSeason
	flat     bool
	// offset holds the episode offset of seasons that continue the
	// numbering of the previous one.
	offset map[int]int
}

func (s *source) season(n int) (media.PackSeason, bool) {
	for _, season := range s.seasons {
		if season.Number == n {
			return season, true
		}
	}
	return media.PackSeason{}, false
}

func (s *source) count(n int) int {
	season, _ := s.season(n)
	return len(season.Episodes)
}

func (s *source) standardSeasons() []media.PackSeason {
	var out []media.PackSeason
	for _, season := range s.seasons {
		if season.Number > 0 && len(season.Episodes) > 0 {
			out = append(out, season)
		}
	}
	return out
}

// candidate is one provider episode with its standard coordinate on that
// provider and the coordinate the provider itself uses.
type candidate struct {
	provider string
	ep       media.PackEpisode
	std      media.Number
	orig     media.Number
	custom   bool
}

func (s *source) candidates(n int) []candidate {
	season, _ := s.season(n)
	off := s.offset[n]
	out := make([]candidate, 0, len(season.Episodes))
	for _, ep := range season.Episodes {
		c := candidate{
			provider: s.provider,
			ep:       ep,
			std:      media.Number{n, ep.Episode - off},
			orig:     media.Number{n, ep.Episode},
			custom:   s.offset != nil && n > 0,
		}
		if c.custom && c.ep.Absolute == 0 {
			c.ep.Absolute = ep.Episode
		}
		out = append(out, c)
	}
	return out
}

// normalize detects seasons that continue the episode numbering of the
// previous season and records their offset. Seasons that neither start at
// one nor continue are refused.
func (s *source) normalize() error {
	prevLast := 0
	for _, season := range s.seasons {
		if season.Number == 0 || len(season.Episodes) == 0 {
			continue
		}
		first := season.Episodes[0].Episode
		last := season.Episodes[len(season.Episodes)-1].Episode
		switch {
		case first <= 1:
		case prevLast > 0 && first == prevLast+1:
			if s.offset == nil {
				s.offset = make(map[int]int)
			}
			s.offset[season.Number] = prevLast
		default:
			return fmt.Errorf("%w: %s season %d starts at episode %d", ErrUnsupportedNumbering, s.provider, season.Number, first)
		}
		prevLast = last
	}
	return nil
}

func prepare(docs []*media.PackDocument) ([]*source, error) {
	var out []*source
	seen := make(map[string]bool)
	for _, d := range docs {
		if d == nil || len(d.Seasons) == 0 || seen[d.Provider] {
			continue
		}
		seen[d.Provider] = true
		s := &source{provider: d.Provider}
		for _, season := range d.Seasons {
			season.Episodes = append([]media.PackEpisode(nil), season.Episodes...)
			sort.SliceStable(season.Episodes, func(i, j int) bool {
				return season.Episodes[i].Episode < season.Episodes[j].Episode
			})
			s.seasons = append(s.seasons, season)
		}
		sort.SliceStable(s.seasons, func(i, j int) bool { return s.seasons[i].Number < s.seasons[j].Number })
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rankOf(out[i].provider), rankOf(out[j].provider)
		if ri != rj {
			return ri < rj
		}
		return out[i].provider < out[j].provider
	})

	for _, s := range out {
		if s.provider == media.ProviderTrakt {
			if err := s.normalize(); err != nil {
				return nil, err
			}
		}
	}
	markFlat(out)
	return out, nil
}

// markFlat flags listings that put the whole show in one season while
// another provider splits it into several.
func markFlat(sources []*source) {
	split := 0
	for _, s := range sources {
		if std := s.standardSeasons(); len(std) >= 2 {
			split = len(std[0].Episodes)
			break
		}
	}
	if split == 0 {
		return
	}
	for _, s := range sources {
		if std := s.standardSeasons(); len(std) == 1 && len(std[0].Episodes) > split+tieMargin {
			s.flat = true
		}
	}
}

// selectSource picks the listing a season is built from. Candidates are in
// rank order.
func selectSource(n int, cands []*source) *source {
	best := cands[0]
	if n == 0 {
		for _, c := range cands[1:] {
			if c.count(0) > best.count(0)+tieMargin {
				best = c
			}
		}
		return best
	}
	if best.count(n) <= 1 {
		for _, c := range cands[1:] {
			if c.count(n) > best.count(n)+tieMargin {
				best = c
			}
		}
	}
	return best
}

type node struct {
	Episode
	season    int
	providers map[string]bool
	absolute  int
	special   bool
	extra     bool
	custom    bool
	automatic bool
}

func (n *node) attach(c candidate) {
	n.providers[c.provider] = true
	n.IDs = n.IDs.Fill(c.ep.IDs)
	if n.Number.Provider == nil {
		n.Number.Provider = make(map[string]media.Number)
	}
	n.Number.Provider[c.provider] = c.orig
	if n.Title == "" {
		n.Title = c.ep.Title
	}
	if n.Aired == 0 {
		n.Aired = c.ep.Aired
	}
	if n.Duration == 0 {
		n.Duration = c.ep.Duration
	}
	if n.Before == nil && c.ep.Before != nil {
		b := *c.ep.Before
		n.Before = &b
	}
	if n.After == 0 {
		n.After = c.ep.After
	}
	if n.absolute == 0 && c.ep.Absolute > 0 {
		n.absolute = c.ep.Absolute
	}
	if c.std.Season() == 0 {
		n.special = true
	}
	if c.custom {
		n.custom = true
	}
}

type seasonBuild struct {
	Season
	nodes []*node
}

type generator struct {
	matcher   *match.Matcher
	sources   []*source
	reference string
	seasons   []*seasonBuild
	byNumber  map[int]*seasonBuild
	index     map[media.Number]*node
	automatic []*node
}

// Generate builds a pack from provider listings. Listings are ranked
// Trakt, TVDb, TMDb, IMDb; the highest ranked one present is the reference
// that decides which episodes are official.
func Generate(docs []*media.PackDocument, opts Options) (*Pack, error) {
	sources, err := prepare(docs)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, errors.New("no provider listings")
	}
	if opts.Matcher == nil {
		opts.Matcher = match.New()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	g := &generator{
		matcher:   opts.Matcher,
		sources:   sources,
		reference: sources[0].provider,
		byNumber:  make(map[int]*seasonBuild),
		index:     make(map[media.Number]*node),
	}
	g.build()
	g.sequence()
	for _, s := range sources {
		if s.flat {
			g.flatten(s)
		}
	}
	for _, sb := range g.seasons {
		for _, n := range sb.nodes {
			if n.absolute > 0 && n.Number.Absolute == nil {
				n.Number.Absolute = media.NewNumber(1, n.absolute)
			}
		}
	}

	p := g.pack()
	p.index()
	p.summarize(opts.Now)
	return p, nil
}

func (g *generator) build() {
	numbers := make(map[int]bool)
	for _, s := range g.sources {
		for _, season := range s.seasons {
			if len(season.Episodes) > 0 && (!s.flat || season.Number == 0) {
				numbers[season.Number] = true
			}
		}
	}
	ordered := make([]int, 0, len(numbers))
	for n := range numbers {
		ordered = append(ordered, n)
	}
	sort.Ints(ordered)

	for _, n := range ordered {
		var cands []*source
		for _, s := range g.sources {
			if (!s.flat || n == 0) && s.count(n) > 0 {
				cands = append(cands, s)
			}
		}
		sel := selectSource(n, cands)
		ps, _ := sel.season(n)
		sb := &seasonBuild{Season: Season{Number: n, Provider: sel.provider, IDs: ps.IDs, Title: ps.Title}}
		for _, c := range sel.candidates(n) {
			if g.index[c.std] != nil {
				continue
			}
			nd := g.newNode(c, false)
			sb.nodes = append(sb.nodes, nd)
			g.index[c.std] = nd
		}
		g.seasons = append(g.seasons, sb)
		g.byNumber[n] = sb
	}

	var pool []candidate
	for _, s := range g.sources {
		for _, ps := range s.seasons {
			if s.flat && ps.Number > 0 {
				continue
			}
			sb := g.byNumber[ps.Number]
			if sb == nil || sb.Provider == s.provider {
				continue
			}
			sb.IDs = sb.IDs.Fill(ps.IDs)
			if sb.Title == "" {
				sb.Title = ps.Title
			}
			for _, c := range s.candidates(ps.Number) {
				if n := g.index[c.std]; n != nil && !n.providers[c.provider] && g.same(n, c) {
					n.attach(c)
					continue
				}
				pool = append(pool, c)
			}
		}
	}

	for _, c := range pool {
		if n := g.find(c); n != nil {
			n.attach(c)
			continue
		}
		if g.index[c.std] != nil {
			// Discrepancy with the slot's owner; the less trusted listing loses.
			continue
		}
		n := g.newNode(c, true)
		sb := g.byNumber[c.std.Season()]
		sb.nodes = append(sb.nodes, n)
		g.index[c.std] = n
	}

	for _, sb := range g.seasons {
		sort.SliceStable(sb.nodes, func(i, j int) bool {
			return sb.nodes[i].Standard().Less(sb.nodes[j].Standard())
		})
	}
}

func (g *generator) newNode(c candidate, extra bool) *node {
	std := c.std
	n := &node{season: std.Season(), providers: make(map[string]bool), extra: extra}
	n.Number.Standard = &std
	n.attach(c)
	return n
}

func withinWeek(a, b int64) bool {
	if a == 0 || b == 0 {
		return true
	}
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= week
}

func (g *generator) titles(a, b string) bool {
	if a == "" || b == "" {
		return a == b
	}
	return g.matcher.Match(a, b)
}

// same reports whether c describes the episode already in its bucket.
func (g *generator) same(n *node, c candidate) bool {
	if n.IDs.Shares(c.ep.IDs) {
		return true
	}
	if n.season == 0 || c.std.Season() == 0 {
		return withinWeek(n.Aired, c.ep.Aired) && g.titles(n.Title, c.ep.Title)
	}
	if n.IDs.Conflicts(c.ep.IDs) {
		return g.titles(n.Title, c.ep.Title)
	}
	return true
}

func (g *generator) nodes() []*node {
	var out []*node
	for _, sb := range g.seasons {
		out = append(out, sb.nodes...)
	}
	return out
}

// find looks for the episode c describes in other buckets, by ID first and
// then by title within the same season before the rest of the show.
func (g *generator) find(c candidate) *node {
	all := g.nodes()
	for _, n := range all {
		if !n.providers[c.provider] && n.IDs.Shares(c.ep.IDs) {
			return n
		}
	}
	if c.ep.Title == "" {
		return nil
	}
	titled := func(n *node) bool {
		if n.providers[c.provider] || n.IDs.Conflicts(c.ep.IDs) {
			return false
		}
		if (n.season == 0 || c.std.Season() == 0) && !withinWeek(n.Aired, c.ep.Aired) {
			return false
		}
		return g.matcher.Match(n.Title, c.ep.Title)
	}
	for _, n := range all {
		if n.season == c.std.Season() && titled(n) {
			return n
		}
	}
	for _, n := range all {
		if n.season != c.std.Season() && titled(n) {
			return n
		}
	}
	return nil
}

// sequence numbers the standard episodes outside season 0.
func (g *generator) sequence() {
	seq := 0
	for _, sb := range g.seasons {
		if sb.Number == 0 {
			continue
		}
		for _, n := range sb.nodes {
			if n.extra && !n.providers[g.reference] {
				continue
			}
			seq++
			n.Number.Sequential = media.NewNumber(1, seq)
		}
	}
}

// flatten maps a single-season listing onto the split seasons. Episodes
// match by ID, then by sequential position when the titles agree, then by
// title, then by position alone. Leftovers become automatic episodes that
// only carry a sequential number.
func (g *generator) flatten(s *source) {
	bySeq := make(map[int]*node)
	all := g.nodes()
	for _, n := range all {
		if n.Number.Sequential != nil {
			bySeq[n.Number.Sequential.Episode()] = n
		}
	}

	for _, season := range s.standardSeasons() {
		for _, c := range s.candidates(season.Number) {
			pos := c.orig.Episode()
			n := g.findFlat(c, all, bySeq[pos])
			if n == nil {
				n = &node{providers: make(map[string]bool), automatic: true}
				n.Number.Sequential = media.NewNumber(1, pos)
				n.attach(c)
				n.absolute = 0
				g.automatic = append(g.automatic, n)
				continue
			}
			n.attach(c)
			if n.absolute == 0 || s.provider == g.reference {
				n.absolute = pos
			}
		}
	}
}

func (g *generator) findFlat(c candidate, all []*node, positional *node) *node {
	free := func(n *node) bool { return n != nil && !n.providers[c.provider] && !n.IDs.Conflicts(c.ep.IDs) }

	for _, n := range all {
		if !n.providers[c.provider] && n.IDs.Shares(c.ep.IDs) {
			return n
		}
	}
	if free(positional) && (positional.Title == "" || c.ep.Title == "" || g.matcher.Match(positional.Title, c.ep.Title)) {
		return positional
	}
	if c.ep.Title != "" {
		for _, n := range all {
			if free(n) && g.matcher.Match(n.Title, c.ep.Title) {
				return n
			}
		}
	}
	if free(positional) {
		return positional
	}
	return nil
}

func (g *generator) classify(n *node) media.EpisodeType {
	var t media.EpisodeType
	if n.Number.Standard != nil {
		t |= media.TypeStandard
		if n.providers[g.reference] {
			t |= media.TypeOfficial
		} else {
			t |= media.TypeUnofficial
		}
	}
	if n.automatic {
		t |= media.TypeAutomatic
	}
	if len(n.providers) == len(g.sources) {
		t |= media.TypeUniversal
	}
	if n.special || (n.Number.Standard != nil && n.season == 0) {
		t |= media.TypeSpecial
	}
	if n.Number.Sequential != nil {
		t |= media.TypeSequential
	}
	if n.Number.Absolute != nil {
		t |= media.TypeAbsolute
	}
	if n.custom {
		t |= media.TypeCustom
	}
	return t
}

func (g *generator) pack() *Pack {
	p := &Pack{Reference: g.reference}
	for _, s := range g.sources {
		p.Providers = append(p.Providers, s.provider)
		if s.flat {
			p.Flat = append(p.Flat, s.provider)
		}
	}
	for _, sb := range g.seasons {
		season := sb.Season
		season.Episodes = make([]Episode, 0, len(sb.nodes))
		for _, n := range sb.nodes {
			ep := n.Episode
			ep.Type = g.classify(n)
			season.Episodes = append(season.Episodes, ep)
		}
		p.Seasons = append(p.Seasons, season)
	}
	for _, n := range g.automatic {
		ep := n.Episode
		ep.Type = g.classify(n)
		p.Automatic = append(p.Automatic, ep)
	}
	return p
}

// index builds the lookup table. Where two episodes claim the same
// coordinate the official one wins; otherwise the first claim stands.
func (p *Pack) index() {
	p.Table = Lookup{
		Season:  make(map[Axis]map[int]int),
		Episode: make(map[Axis]map[int]map[int]Entry),
	}
	for i := range p.Seasons {
		for j := range p.Seasons[i].Episodes {
			p.indexEpisode(Entry{Season: i, Episode: j})
		}
	}
	for j := range p.Automatic {
		p.indexEpisode(Entry{Season: -1, Episode: j})
	}
}

func (p *Pack) indexEpisode(e Entry) {
	ep := p.at(e)
	if std := ep.Number.Standard; std != nil {
		p.claim(AxisUniversal, *std, e)
		if ep.Type.Has(media.TypeOfficial) {
			p.claim(AxisStandard, *std, e)
		}
	}
	if seq := ep.Number.Sequential; seq != nil {
		p.claim(AxisSequential, *seq, e)
	}
	if abs := ep.Number.Absolute; abs != nil {
		p.claim(AxisAbsolute, *abs, e)
	}
	for _, provider := range []string{media.ProviderIMDb, media.ProviderTMDb, media.ProviderTVDb, media.ProviderTrakt} {
		if n, ok := ep.Number.Provider[provider]; ok {
			p.claim(Axis(provider), n, e)
		}
	}
}

func (p *Pack) claim(axis Axis, n media.Number, e Entry) {
	seasons := p.Table.Episode[axis]
	if seasons == nil {
		seasons = make(map[int]map[int]Entry)
		p.Table.Episode[axis] = seasons
	}
	episodes := seasons[n.Season()]
	if episodes == nil {
		episodes = make(map[int]Entry)
		seasons[n.Season()] = episodes
	}
	if prev, ok := episodes[n.Episode()]; ok {
		if p.at(prev).Type.Has(media.TypeOfficial) || !p.at(e).Type.Has(media.TypeOfficial) {
			return
		}
	}
	episodes[n.Episode()] = e

	if e.Season < 0 {
		return
	}
	if p.Table.Season[axis] == nil {
		p.Table.Season[axis] = make(map[int]int)
	}
	if _, ok := p.Table.Season[axis][n.Season()]; !ok {
		p.Table.Season[axis][n.Season()] = e.Season
	}
}
