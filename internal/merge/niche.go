package merge

import (
	"strings"

	"github.com/Digital-Shane/metaweave/internal/media"
)

// Niche tags.
const (
	NicheAnime       = "anime"
	NicheKid         = "kid"
	NicheTeen        = "teen"
	NicheMini        = "mini"
	NicheShort       = "short"
	NicheSpecial     = "special"
	NicheSport       = "sport"
	NicheDocumentary = "documentary"
)

const shortMovieSeconds = 40 * 60

var (
	kidRatings  = []string{"G", "TV-Y", "TV-Y7", "TV-G"}
	teenRatings = []string{"PG-13", "TV-14"}
)

// Niches derives the niche tags of a merged entity.
func Niches(e *media.Entity) []string {
	var tags []string
	add := func(tag string, ok bool) {
		if ok {
			tags = append(tags, tag)
		}
	}

	genre := func(name string) bool {
		for _, g := range e.Genre {
			if strings.EqualFold(g, name) {
				return true
			}
		}
		return false
	}
	mpaa := strings.ToUpper(strings.TrimSpace(e.MPAA))

	add(NicheAnime, genre("anime") || (genre("animation") && contains(e.Country, "jp")))
	add(NicheKid, genre("children") || contains(kidRatings, mpaa))
	add(NicheTeen, contains(teenRatings, mpaa))
	add(NicheMini, e.Kind == media.KindShow && (genre("mini series") ||
		(e.Count != nil && e.Count.Season == 1 && e.Count.Episode > 0 && e.Count.Episode <= 10 && strings.EqualFold(e.Status, "ended"))))
	add(NicheShort, e.Kind == media.KindMovie && e.Duration > 0 && e.Duration < shortMovieSeconds)
	add(NicheSpecial, e.Kind == media.KindEpisode && (e.Season == 0 || e.Type.Has(media.TypeSpecial)))
	add(NicheSport, genre("sport"))
	add(NicheDocumentary, genre("documentary"))
	return tags
}
