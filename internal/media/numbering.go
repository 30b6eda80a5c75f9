package media

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Number is a [season, episode] coordinate.
type Number [2]int

// Season returns the season component.
func (n Number) Season() int { return n[0] }

// Episode returns the episode component.
func (n Number) Episode() int { return n[1] }

// Less orders coordinates by season, then episode.
func (n Number) Less(o Number) bool {
	if n[0] != o[0] {
		return n[0] < o[0]
	}
	return n[1] < o[1]
}

func (n Number) String() string {
	return fmt.Sprintf("S%02dE%02d", n[0], n[1])
}

// NewNumber returns a pointer to the coordinate [season, episode].
func NewNumber(season, episode int) *Number {
	n := Number{season, episode}
	return &n
}

// Numbering carries the three canonical numberings of an episode plus the
// coordinates each provider uses for it.
type Numbering struct {
	Standard   *Number           `json:"standard,omitempty"`
	Sequential *Number           `json:"sequential,omitempty"`
	Absolute   *Number           `json:"absolute,omitempty"`
	Provider   map[string]Number `json:"provider,omitempty"`
}

// Clone returns a deep copy of n.
func (n Numbering) Clone() Numbering {
	out := Numbering{}
	if n.Standard != nil {
		v := *n.Standard
		out.Standard = &v
	}
	if n.Sequential != nil {
		v := *n.Sequential
		out.Sequential = &v
	}
	if n.Absolute != nil {
		v := *n.Absolute
		out.Absolute = &v
	}
	if len(n.Provider) > 0 {
		out.Provider = make(map[string]Number, len(n.Provider))
		for k, v := range n.Provider {
			out.Provider[k] = v
		}
	}
	return out
}

// EpisodeType is a bit set classifying an episode.
type EpisodeType uint16

const (
	TypeStandard EpisodeType = 1 << iota
	TypeSequential
	TypeAbsolute
	TypeSpecial
	TypeOfficial
	TypeUnofficial
	TypeUniversal
	TypeAutomatic
	TypeCustom
)

var episodeTypeNames = []struct {
	flag EpisodeType
	name string
}{
	{TypeStandard, "standard"},
	{TypeSequential, "sequential"},
	{TypeAbsolute, "absolute"},
	{TypeSpecial, "special"},
	{TypeOfficial, "official"},
	{TypeUnofficial, "unofficial"},
	{TypeUniversal, "universal"},
	{TypeAutomatic, "automatic"},
	{TypeCustom, "custom"},
}

// Has reports whether every flag in f is set.
func (t EpisodeType) Has(f EpisodeType) bool { return t&f == f }

// Names returns the set flags in declaration order.
func (t EpisodeType) Names() []string {
	var names []string
	for _, n := range episodeTypeNames {
		if t.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	return names
}

func (t EpisodeType) String() string {
	return strings.Join(t.Names(), "|")
}

// MarshalJSON encodes the flags as a list of names.
func (t EpisodeType) MarshalJSON() ([]byte, error) {
	names := t.Names()
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

// UnmarshalJSON accepts the list form written by MarshalJSON.
func (t *EpisodeType) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*t = 0
	for _, name := range names {
		found := false
		for _, n := range episodeTypeNames {
			if n.name == name {
				*t |= n.flag
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown episode type %q", name)
		}
	}
	return nil
}
