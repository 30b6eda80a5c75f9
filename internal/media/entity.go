package media

import (
	"encoding/json"
	"sort"
	"time"
)

// Time keys used in Entity.Time.
const (
	TimeLaunch   = "launch"
	TimePremiere = "premiere"
	TimeLimited  = "limited"
	TimeTheatre  = "theatrical"
	TimeDigital  = "digital"
	TimePhysical = "physical"
	TimeTV       = "television"
	TimeAired    = "aired"
	TimeWatched  = "watched"
	TimeRated    = "rated"
	TimePaused   = "paused"
)

// Image roles.
const (
	ImagePoster    = "poster"
	ImageFanart    = "fanart"
	ImageLandscape = "landscape"
	ImageBanner    = "banner"
	ImageClearLogo = "clearlogo"
	ImageClearArt  = "clearart"
	ImageDisc      = "discart"
	ImageKeyArt    = "keyart"
	ImageThumb     = "thumb"
)

// Image is a single artwork link.
type Image struct {
	Link     string  `json:"link"`
	Provider string  `json:"provider,omitempty"`
	Language string  `json:"language,omitempty"`
	Votes    int     `json:"votes,omitempty"`
	Rating   float64 `json:"rating,omitempty"`
}

// Person is a cast or crew member.
type Person struct {
	Name      string `json:"name"`
	Character string `json:"character,omitempty"`
	Job       string `json:"job,omitempty"`
	Order     int    `json:"order,omitempty"`
}

// Voting holds per-provider ratings and vote counts.
type Voting struct {
	Rating map[string]float64 `json:"rating,omitempty"`
	Votes  map[string]int     `json:"votes,omitempty"`
}

// Count aggregates numbers attached to shows and seasons.
type Count struct {
	Season  int `json:"season,omitempty"`
	Episode int `json:"episode,omitempty"`
	Special int `json:"special,omitempty"`
	Aired   int `json:"aired,omitempty"`
}

// PartEntry records one provider's contribution to an entity.
type PartEntry struct {
	Complete bool            `json:"complete"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Part tracks per-provider completeness, keyed by provider name. An entity
// carries one only while it is awaiting another fetch.
type Part map[string]PartEntry

// Incomplete returns the providers whose contribution is partial, sorted.
func (p Part) Incomplete() []string {
	var out []string
	for name, entry := range p {
		if !entry.Complete {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Smart is the playback sub-record attached to smart list items.
type Smart struct {
	Next       *Number `json:"next,omitempty"`
	Watched    int     `json:"watched,omitempty"`
	Plays      int     `json:"plays,omitempty"`
	Progress   float64 `json:"progress,omitempty"`
	Removed    bool    `json:"removed,omitempty"`
	Added      int64   `json:"added,omitempty"`
	Release    int64   `json:"release,omitempty"`
	Remaining  int     `json:"remaining,omitempty"`
	Rewatching bool    `json:"rewatching,omitempty"`
	External   bool    `json:"external,omitempty"`
}

// Entity is the merged, persisted metadata record for every kind.
type Entity struct {
	Kind          Kind   `json:"kind"`
	IDs           IDs    `json:"ids"`
	IMDbAlias     string `json:"imdb_alias,omitempty"`
	ShowIDs       *IDs   `json:"show_ids,omitempty"`
	ShowTitle     string `json:"show_title,omitempty"`
	Title         string `json:"title,omitempty"`
	OriginalTitle string `json:"original_title,omitempty"`
	Tagline       string `json:"tagline,omitempty"`
	Plot          string `json:"plot,omitempty"`
	Year          int    `json:"year,omitempty"`
	Premiered     string `json:"premiered,omitempty"`
	Aired         string `json:"aired,omitempty"`
	Status        string `json:"status,omitempty"`
	MPAA          string `json:"mpaa,omitempty"`
	Homepage      string `json:"homepage,omitempty"`

	Genre    []string `json:"genre,omitempty"`
	Language []string `json:"language,omitempty"`
	Country  []string `json:"country,omitempty"`
	Studio   []string `json:"studio,omitempty"`
	Network  []string `json:"network,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	Time     map[string]int64 `json:"time,omitempty"`
	Duration int              `json:"duration,omitempty"`

	Rating     float64 `json:"rating,omitempty"`
	Votes      int     `json:"votes,omitempty"`
	Voting     Voting  `json:"voting,omitempty"`
	Popularity float64 `json:"popularity,omitempty"`

	Cast     []Person `json:"cast,omitempty"`
	Director []string `json:"director,omitempty"`
	Writer   []string `json:"writer,omitempty"`
	Creator  []string `json:"creator,omitempty"`

	Images map[string][]Image `json:"images,omitempty"`

	Season  int         `json:"season,omitempty"`
	Episode int         `json:"episode,omitempty"`
	Number  *Numbering  `json:"number,omitempty"`
	Type    EpisodeType `json:"type,omitempty"`
	Count   *Count      `json:"count,omitempty"`
	Parts   []IDs       `json:"parts,omitempty"`
	Part    Part        `json:"part,omitempty"`
	Fail    int         `json:"fail,omitempty"`
	Smart   *Smart      `json:"smart,omitempty"`
	Invalid bool        `json:"invalid,omitempty"`

	// Pack holds the encoded season/episode tree of pack entities.
	Pack json.RawMessage `json:"pack,omitempty"`
}

// Ref returns the request reference that identifies e.
func (e *Entity) Ref() Ref {
	r := Ref{Kind: e.Kind, IDs: e.IDs, Title: e.Title, Year: e.Year, Season: e.Season, Episode: e.Episode}
	if e.ShowIDs != nil && (e.Kind == KindSeason || e.Kind == KindEpisode || e.Kind == KindPack) {
		r.IDs = *e.ShowIDs
		r.Title = e.ShowTitle
	}
	return r
}

// Released reports whether the earliest known release time is before now.
func (e *Entity) Released(now time.Time) bool {
	t := e.ReleaseTime()
	return t > 0 && t <= now.Unix()
}

// ReleaseTime returns the launch time, or the premiere when no launch time
// is known.
func (e *Entity) ReleaseTime() int64 {
	if e.Time == nil {
		return 0
	}
	if t := e.Time[TimeLaunch]; t > 0 {
		return t
	}
	return e.Time[TimePremiere]
}

// Clone returns a deep copy of e through its JSON form.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		c := *e
		return &c
	}
	var out Entity
	if err := json.Unmarshal(data, &out); err != nil {
		c := *e
		return &c
	}
	return &out
}

// Set records a provider rating. Zero ratings are ignored.
func (v *Voting) Set(provider string, rating float64, votes int) {
	if rating <= 0 {
		return
	}
	if v.Rating == nil {
		v.Rating = make(map[string]float64)
	}
	if v.Votes == nil {
		v.Votes = make(map[string]int)
	}
	v.Rating[provider] = rating
	v.Votes[provider] = votes
}

// SetTime records a time value. Zero times are ignored.
func (e *Entity) SetTime(key string, ts int64) {
	if ts <= 0 {
		return
	}
	if e.Time == nil {
		e.Time = make(map[string]int64)
	}
	e.Time[key] = ts
}
