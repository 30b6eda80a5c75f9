package media

// PackDocument is one provider's season/episode listing for a show. Pack
// generation consumes one document per provider.
type PackDocument struct {
	Provider string       `json:"provider"`
	Seasons  []PackSeason `json:"seasons"`
}

// PackSeason is a season within a provider listing.
type PackSeason struct {
	Number   int           `json:"number"`
	IDs      IDs           `json:"ids"`
	Title    string        `json:"title,omitempty"`
	Episodes []PackEpisode `json:"episodes"`
}

// PackEpisode is a single episode within a provider listing. Absolute is
// zero when the provider declares no absolute number. Before holds the
// TVDb airs-before coordinate and After the airs-after season, when set.
type PackEpisode struct {
	IDs      IDs     `json:"ids"`
	Title    string  `json:"title,omitempty"`
	Season   int     `json:"season"`
	Episode  int     `json:"episode"`
	Absolute int     `json:"absolute,omitempty"`
	Aired    int64   `json:"aired,omitempty"`
	Duration int     `json:"duration,omitempty"`
	Before   *Number `json:"before,omitempty"`
	After    int     `json:"after,omitempty"`
}

// EpisodeCount returns the number of episodes in the season.
func (s PackSeason) EpisodeCount() int { return len(s.Episodes) }

// Season returns the season with the given number.
func (d *PackDocument) Season(number int) (*PackSeason, bool) {
	if d == nil {
		return nil, false
	}
	for i := range d.Seasons {
		if d.Seasons[i].Number == number {
			return &d.Seasons[i], true
		}
	}
	return nil, false
}
