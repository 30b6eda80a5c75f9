// Package pack builds the canonical season/episode tree of a show from the
// listings of several providers, together with a lookup table that maps
// every numbering scheme onto it.
package pack

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Digital-Shane/metaweave/internal/media"
)

// ErrUnsupportedNumbering is returned for shows whose reference numbering
// cannot be normalized.
var ErrUnsupportedNumbering = errors.New("unsupported episode numbering")

// Axis names a numbering scheme lookups can be keyed by.
type Axis string

const (
	AxisUniversal  Axis = "universal"
	AxisStandard   Axis = "standard"
	AxisSequential Axis = "sequential"
	AxisAbsolute   Axis = "absolute"
	AxisIMDb       Axis = media.ProviderIMDb
	AxisTMDb       Axis = media.ProviderTMDb
	AxisTVDb       Axis = media.ProviderTVDb
	AxisTrakt      Axis = media.ProviderTrakt
)

// Axes lists every axis in lookup order.
var Axes = []Axis{AxisUniversal, AxisStandard, AxisSequential, AxisAbsolute, AxisIMDb, AxisTMDb, AxisTVDb, AxisTrakt}

// ParseAxis converts a name to an Axis.
func ParseAxis(name string) (Axis, error) {
	for _, a := range Axes {
		if string(a) == name {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown numbering axis %q", name)
}

// Episode is one canonical episode.
type Episode struct {
	IDs      media.IDs         `json:"ids"`
	Title    string            `json:"title,omitempty"`
	Number   media.Numbering   `json:"number"`
	Type     media.EpisodeType `json:"type"`
	Aired    int64             `json:"aired,omitempty"`
	Duration int               `json:"duration,omitempty"`
	Before   *media.Number     `json:"before,omitempty"`
	After    int               `json:"after,omitempty"`
}

// Standard returns the standard coordinate, or the zero Number for
// automatic episodes.
func (e *Episode) Standard() media.Number {
	if e.Number.Standard == nil {
		return media.Number{}
	}
	return *e.Number.Standard
}

// Season is one canonical season. Provider names the listing its episodes
// were taken from.
type Season struct {
	Number   int       `json:"number"`
	Provider string    `json:"provider"`
	IDs      media.IDs `json:"ids"`
	Title    string    `json:"title,omitempty"`
	Episodes []Episode `json:"episodes"`
	Summary  Summary   `json:"summary"`
}

// Entry locates an episode in a pack. Season -1 refers to the automatic
// episodes.
type Entry struct {
	Season  int `json:"season"`
	Episode int `json:"episode"`
}

// Lookup maps axis coordinates to episodes. Season maps an axis season
// number to a season index.
type Lookup struct {
	Season  map[Axis]map[int]int           `json:"season"`
	Episode map[Axis]map[int]map[int]Entry `json:"episode"`
}

// Pack is the canonical show listing.
type Pack struct {
	IDs       media.IDs `json:"ids"`
	Title     string    `json:"title,omitempty"`
	Providers []string  `json:"providers"`
	Reference string    `json:"reference"`
	Flat      []string  `json:"flat,omitempty"`
	Seasons   []Season  `json:"seasons"`
	Automatic []Episode `json:"automatic,omitempty"`
	Table     Lookup    `json:"lookup"`
	Summary   Summary   `json:"summary"`
}

// Encode serializes p for storage on a pack entity.
func (p *Pack) Encode() (json.RawMessage, error) {
	return json.Marshal(p)
}

// Decode restores a pack written by Encode.
func Decode(data []byte) (*Pack, error) {
	if len(data) == 0 {
		return nil, errors.New("empty pack")
	}
	var p Pack
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding pack: %w", err)
	}
	return &p, nil
}

func (p *Pack) at(e Entry) *Episode {
	if e.Season == -1 {
		if e.Episode < 0 || e.Episode >= len(p.Automatic) {
			return nil
		}
		return &p.Automatic[e.Episode]
	}
	if e.Season < 0 || e.Season >= len(p.Seasons) {
		return nil
	}
	s := &p.Seasons[e.Season]
	if e.Episode < 0 || e.Episode >= len(s.Episodes) {
		return nil
	}
	return &s.Episodes[e.Episode]
}

// Find returns the episode at the axis coordinate.
func (p *Pack) Find(axis Axis, season, episode int) (*Episode, bool) {
	e, ok := p.Table.Episode[axis][season][episode]
	if !ok {
		return nil, false
	}
	ep := p.at(e)
	return ep, ep != nil
}

// Lookup returns every numbering of the episode at the axis coordinate.
func (p *Pack) Lookup(axis Axis, season, episode int) (media.Numbering, bool) {
	ep, ok := p.Find(axis, season, episode)
	if !ok {
		return media.Numbering{}, false
	}
	return ep.Number.Clone(), true
}

// LookupSeason returns the season an axis season number falls in.
func (p *Pack) LookupSeason(axis Axis, season int) (*Season, bool) {
	i, ok := p.Table.Season[axis][season]
	if !ok || i < 0 || i >= len(p.Seasons) {
		return nil, false
	}
	return &p.Seasons[i], true
}

// Season returns the season with the standard number n.
func (p *Pack) Season(n int) (*Season, bool) {
	for i := range p.Seasons {
		if p.Seasons[i].Number == n {
			return &p.Seasons[i], true
		}
	}
	return nil, false
}

// Episode returns the episode at the standard coordinate.
func (p *Pack) Episode(n media.Number) (*Episode, bool) {
	return p.Find(AxisUniversal, n.Season(), n.Episode())
}

// Order returns the non-special standard episodes in viewing order.
func (p *Pack) Order() []*Episode {
	var out []*Episode
	for i := range p.Seasons {
		if p.Seasons[i].Number == 0 {
			continue
		}
		for j := range p.Seasons[i].Episodes {
			out = append(out, &p.Seasons[i].Episodes[j])
		}
	}
	return out
}

// Specials returns the episodes of season 0.
func (p *Pack) Specials() []*Episode {
	s, ok := p.Season(0)
	if !ok {
		return nil
	}
	out := make([]*Episode, len(s.Episodes))
	for i := range s.Episodes {
		out[i] = &s.Episodes[i]
	}
	return out
}

// specialsBefore returns the specials placed directly before n.
func (p *Pack) specialsBefore(n media.Number) []*Episode {
	s, ok := p.Season(0)
	if !ok {
		return nil
	}
	var out []*Episode
	for i := range s.Episodes {
		if b := s.Episodes[i].Before; b != nil && *b == n {
			out = append(out, &s.Episodes[i])
		}
	}
	return out
}

// Next returns the standard coordinate that follows (season, episode) in
// viewing order. With specials set, a special placed before the following
// episode comes first. The second result is false at the end of the show.
func (p *Pack) Next(season, episode int, specials bool) (media.Number, bool) {
	current := media.Number{season, episode}
	order := p.Order()

	var following *Episode
	if season == 0 {
		cur, ok := p.Episode(current)
		if !ok {
			return media.Number{}, false
		}
		switch {
		case cur.Before != nil:
			following, _ = p.Episode(*cur.Before)
		case cur.After > 0:
			for _, ep := range order {
				if ep.Standard().Season() > cur.After {
					following = ep
					break
				}
			}
		}
		if following == nil {
			return media.Number{}, false
		}
		if specials {
			// Later specials sharing the same placement come first.
			for _, sp := range p.specialsBefore(following.Standard()) {
				if sp.Standard().Episode() > episode {
					return sp.Standard(), true
				}
			}
		}
		return following.Standard(), true
	}

	for i, ep := range order {
		if ep.Standard() == current && i+1 < len(order) {
			following = order[i+1]
			break
		}
	}
	if following == nil {
		return media.Number{}, false
	}
	if specials {
		if sp := p.specialsBefore(following.Standard()); len(sp) > 0 {
			return sp[0].Standard(), true
		}
	}
	return following.Standard(), true
}
