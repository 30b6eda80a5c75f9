package media

// Kind identifies which entity variant a record or request describes.
type Kind string

const (
	KindMovie   Kind = "movie"
	KindSet     Kind = "set"
	KindShow    Kind = "show"
	KindSeason  Kind = "season"
	KindEpisode Kind = "episode"
	KindPack    Kind = "pack"
)

// Kinds lists every entity kind in processing order.
var Kinds = []Kind{KindMovie, KindSet, KindShow, KindSeason, KindEpisode, KindPack}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindMovie, KindSet, KindShow, KindSeason, KindEpisode, KindPack:
		return true
	}
	return false
}

// Media returns the top-level media kind an entity belongs to. Seasons,
// episodes and packs all belong to shows; sets belong to movies.
func (k Kind) Media() Kind {
	switch k {
	case KindSet, KindMovie:
		return KindMovie
	case KindShow, KindSeason, KindEpisode, KindPack:
		return KindShow
	}
	return k
}

// Ref identifies an entity in a request. Season and Episode are only
// meaningful for season and episode kinds; season 0 holds specials.
type Ref struct {
	Kind    Kind   `json:"kind"`
	IDs     IDs    `json:"ids"`
	Title   string `json:"title,omitempty"`
	Year    int    `json:"year,omitempty"`
	Season  int    `json:"season,omitempty"`
	Episode int    `json:"episode,omitempty"`
}

// ShowRef returns the parent show reference of a season, episode or pack.
func (r Ref) ShowRef() Ref {
	return Ref{Kind: KindShow, IDs: r.IDs, Title: r.Title, Year: r.Year}
}
