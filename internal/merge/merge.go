// Package merge combines the partial entities returned by several providers
// into one record with a fixed rule per field.
package merge

import (
	"github.com/Digital-Shane/metaweave/internal/media"
)

// Source is one provider's contribution.
type Source struct {
	Provider string
	Entity   *media.Entity
}

// precedence lists providers from most to least trusted per kind.
var precedence = map[media.Kind][]string{
	media.KindMovie:   {media.ProviderTrakt, media.ProviderTMDb, media.ProviderIMDb, media.ProviderTVDb, media.ProviderFanart},
	media.KindSet:     {media.ProviderTMDb, media.ProviderFanart, media.ProviderTrakt},
	media.KindShow:    {media.ProviderTrakt, media.ProviderTVDb, media.ProviderTMDb, media.ProviderIMDb, media.ProviderFanart},
	media.KindSeason:  {media.ProviderTrakt, media.ProviderTVDb, media.ProviderTMDb, media.ProviderIMDb, media.ProviderFanart},
	media.KindEpisode: {media.ProviderTrakt, media.ProviderTVDb, media.ProviderTMDb, media.ProviderIMDb},
	media.KindPack:    {media.ProviderTrakt, media.ProviderTVDb, media.ProviderTMDb, media.ProviderIMDb},
}

// Precedence returns the provider order for kind. For episodes a preferred
// provider, usually the one the pack picked for the season, moves first.
func Precedence(kind media.Kind, preferred string) []string {
	base := precedence[kind]
	if preferred == "" {
		return append([]string(nil), base...)
	}
	out := []string{preferred}
	for _, p := range base {
		if p != preferred {
			out = append(out, p)
		}
	}
	return out
}

// order sorts sources by the provider order. Providers missing from order
// keep their relative position after the known ones.
func order(sources []Source, providers []string) []Source {
	rank := make(map[string]int, len(providers))
	for i, p := range providers {
		rank[p] = i
	}
	out := make([]Source, 0, len(sources))
	for _, p := range providers {
		for _, s := range sources {
			if s.Provider == p && s.Entity != nil {
				out = append(out, s)
			}
		}
	}
	for _, s := range sources {
		if _, ok := rank[s.Provider]; !ok && s.Entity != nil {
			out = append(out, s)
		}
	}
	return out
}

// Merge combines sources for kind in the given provider order. The result
// never aliases a source entity.
func Merge(kind media.Kind, providers []string, sources []Source) *media.Entity {
	if len(providers) == 0 {
		providers = Precedence(kind, "")
	}
	ordered := order(sources, providers)
	out := &media.Entity{Kind: kind}
	if len(ordered) == 0 {
		return out
	}

	for _, s := range ordered {
		e := s.Entity
		out.IDs = out.IDs.Fill(e.IDs)
		if e.ShowIDs != nil {
			if out.ShowIDs == nil {
				out.ShowIDs = &media.IDs{}
			}
			*out.ShowIDs = out.ShowIDs.Fill(*e.ShowIDs)
		}
		if out.IMDbAlias == "" {
			out.IMDbAlias = e.IMDbAlias
		}

		first(&out.ShowTitle, e.ShowTitle)
		first(&out.Title, e.Title)
		first(&out.OriginalTitle, e.OriginalTitle)
		first(&out.Tagline, e.Tagline)
		first(&out.Plot, e.Plot)
		first(&out.Status, e.Status)
		first(&out.MPAA, e.MPAA)
		first(&out.Homepage, e.Homepage)
		first(&out.Aired, e.Aired)
		if out.Year == 0 {
			out.Year = e.Year
		}
		if out.Duration == 0 {
			out.Duration = e.Duration
		}
		if out.Season == 0 {
			out.Season = e.Season
		}
		if out.Episode == 0 {
			out.Episode = e.Episode
		}
		if out.Number == nil && e.Number != nil {
			n := e.Number.Clone()
			out.Number = &n
		}
		out.Type |= e.Type
		if out.Count == nil && e.Count != nil {
			c := *e.Count
			out.Count = &c
		}
		if e.Popularity > out.Popularity {
			out.Popularity = e.Popularity
		}

		out.Genre = append(out.Genre, e.Genre...)
		out.Language = append(out.Language, e.Language...)
		out.Country = append(out.Country, e.Country...)
		out.Studio = append(out.Studio, e.Studio...)
		out.Network = append(out.Network, e.Network...)
		out.Director = union(out.Director, e.Director)
		out.Writer = union(out.Writer, e.Writer)
		out.Creator = union(out.Creator, e.Creator)
		out.Cast = cast(out.Cast, e.Cast)
		out.Parts = parts(out.Parts, e.Parts)

		for key, ts := range e.Time {
			if _, ok := out.Time[key]; !ok {
				out.SetTime(key, ts)
			}
		}
		for p, r := range e.Voting.Rating {
			if _, ok := out.Voting.Rating[p]; !ok {
				out.Voting.Set(p, r, e.Voting.Votes[p])
			}
		}
	}

	out.Genre = Genres(out.Genre)
	out.Language = Languages(out.Language)
	out.Country = Countries(out.Country)
	out.Studio, out.Network = Companies(out.Studio, out.Network)

	launch(out)
	out.Rating, out.Votes = Rating(out.Voting)
	out.Images = Images(ordered)
	out.Tags = Niches(out)
	return out
}

func first(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

// launch recomputes the launch time and the premiere date from the merged
// time map. Movies launch at their earliest public release; everything else
// at its premiere or first air date.
func launch(e *media.Entity) {
	var keys []string
	switch e.Kind {
	case media.KindMovie, media.KindSet:
		keys = []string{media.TimePremiere, media.TimeLimited, media.TimeTheatre, media.TimeDigital, media.TimePhysical, media.TimeTV}
	default:
		keys = []string{media.TimePremiere, media.TimeAired}
	}
	var ts int64
	for _, k := range keys {
		if v := e.Time[k]; v > 0 && (ts == 0 || v < ts) {
			ts = v
		}
	}
	if ts == 0 {
		return
	}
	e.SetTime(media.TimeLaunch, ts)
	e.Premiered = media.FormatDate(ts)
	if e.Year == 0 {
		e.Year = media.YearOf(e.Premiered)
	}
}

func union(dst, src []string) []string {
	for _, v := range src {
		if v != "" && !contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func cast(dst, src []media.Person) []media.Person {
	for _, p := range src {
		dup := false
		for i := range dst {
			if dst[i].Name == p.Name {
				if dst[i].Character == "" {
					dst[i].Character = p.Character
				}
				dup = true
				break
			}
		}
		if !dup && p.Name != "" {
			p.Order = len(dst)
			dst = append(dst, p)
		}
	}
	return dst
}

func parts(dst, src []media.IDs) []media.IDs {
	for _, p := range src {
		dup := false
		for i := range dst {
			if dst[i].Shares(p) {
				dst[i] = dst[i].Fill(p)
				dup = true
				break
			}
		}
		if !dup && !p.Empty() {
			dst = append(dst, p)
		}
	}
	return dst
}
