package trakt

import (
	"strings"

	"github.com/Digital-Shane/metaweave/internal/media"
)

// releaseTimes maps Trakt release types to entity time keys.
var releaseTimes = map[string]string{
	"premiere":   media.TimePremiere,
	"limited":    media.TimeLimited,
	"theatrical": media.TimeTheatre,
	"digital":    media.TimeDigital,
	"physical":   media.TimePhysical,
	"tv":         media.TimeTV,
}

func (m *movie) entity() *media.Entity {
	e := &media.Entity{
		Kind:      media.KindMovie,
		IDs:       m.IDs.media(),
		Title:     m.Title,
		Tagline:   m.Tagline,
		Plot:      m.Overview,
		Year:      m.Year,
		Premiered: m.Released,
		Status:    m.Status,
		Homepage:  m.Homepage,
		MPAA:      m.Certification,
		Duration:  m.Runtime * 60,
		Genre:     m.Genres,
		Language:  languages(m.Language, m.Languages),
	}
	if m.Country != "" {
		e.Country = []string{m.Country}
	}
	e.SetTime(media.TimePremiere, media.ParseDate(m.Released))
	e.Voting.Set(providerName, m.Rating, m.Votes)
	return e
}

func (s *show) entity() *media.Entity {
	e := &media.Entity{
		Kind:      media.KindShow,
		IDs:       s.IDs.media(),
		Title:     s.Title,
		Plot:      s.Overview,
		Year:      s.Year,
		Premiered: media.FormatDate(media.ParseDate(s.FirstAired)),
		Status:    s.Status,
		Homepage:  s.Homepage,
		MPAA:      s.Certification,
		Duration:  s.Runtime * 60,
		Genre:     s.Genres,
		Language:  languages(s.Language, s.Languages),
	}
	if s.Network != "" {
		e.Network = []string{s.Network}
	}
	if s.Country != "" {
		e.Country = []string{s.Country}
	}
	if s.AiredEpisodes > 0 {
		e.Count = &media.Count{Aired: s.AiredEpisodes}
	}
	e.SetTime(media.TimePremiere, media.ParseDate(s.FirstAired))
	e.Voting.Set(providerName, s.Rating, s.Votes)
	return e
}

func (s *season) entity(showIDs media.IDs) *media.Entity {
	e := &media.Entity{
		Kind:      media.KindSeason,
		IDs:       s.IDs.media(),
		ShowIDs:   &showIDs,
		Title:     s.Title,
		Plot:      s.Overview,
		Season:    s.Number,
		Premiered: media.FormatDate(media.ParseDate(s.FirstAired)),
		Count:     &media.Count{Episode: s.EpisodeCount, Aired: s.AiredEpisodes},
	}
	e.Year = media.YearOf(e.Premiered)
	if s.Network != "" {
		e.Network = []string{s.Network}
	}
	e.SetTime(media.TimePremiere, media.ParseDate(s.FirstAired))
	e.Voting.Set(providerName, s.Rating, s.Votes)
	return e
}

func (ep *episode) entity(showIDs media.IDs) *media.Entity {
	aired := media.ParseDate(ep.FirstAired)
	e := &media.Entity{
		Kind:     media.KindEpisode,
		IDs:      ep.IDs.media(),
		ShowIDs:  &showIDs,
		Title:    ep.Title,
		Plot:     ep.Overview,
		Season:   ep.Season,
		Episode:  ep.Number,
		Aired:    media.FormatDate(aired),
		Year:     media.YearOf(media.FormatDate(aired)),
		Duration: ep.Runtime * 60,
		Number:   &media.Numbering{Standard: media.NewNumber(ep.Season, ep.Number)},
		Type:     media.TypeStandard | media.TypeOfficial,
	}
	if ep.NumberAbs > 0 {
		e.Number.Absolute = media.NewNumber(1, ep.NumberAbs)
	}
	if ep.Season == 0 {
		e.Type = media.TypeSpecial | media.TypeOfficial
	}
	e.SetTime(media.TimeAired, aired)
	e.SetTime(media.TimePremiere, aired)
	e.Voting.Set(providerName, ep.Rating, ep.Votes)
	return e
}

func (ep *episode) pack() media.PackEpisode {
	return media.PackEpisode{
		IDs:      ep.IDs.media(),
		Title:    ep.Title,
		Season:   ep.Season,
		Episode:  ep.Number,
		Absolute: ep.NumberAbs,
		Aired:    media.ParseDate(ep.FirstAired),
		Duration: ep.Runtime * 60,
	}
}

// applyPeople copies cast and key crew onto e.
func applyPeople(e *media.Entity, p *people) {
	for i, c := range p.Cast {
		character := c.Character
		if character == "" && len(c.Characters) > 0 {
			character = strings.Join(c.Characters, " / ")
		}
		e.Cast = append(e.Cast, media.Person{Name: c.Person.Name, Character: character, Order: i})
	}
	for department, crew := range p.Crew {
		for _, c := range crew {
			jobs := c.Jobs
			if c.Job != "" {
				jobs = append(jobs, c.Job)
			}
			for _, job := range jobs {
				switch {
				case department == "directing" && job == "Director":
					e.Director = appendUnique(e.Director, c.Person.Name)
				case department == "writing" && (job == "Writer" || job == "Screenplay"):
					e.Writer = appendUnique(e.Writer, c.Person.Name)
				case department == "created by" || job == "Creator":
					e.Creator = appendUnique(e.Creator, c.Person.Name)
				}
			}
		}
	}
}

// applyReleases records the earliest date per release type, preferring the
// given country and filling gaps from every other country.
func applyReleases(e *media.Entity, releases []release, country string) {
	local := make(map[string]int64)
	global := make(map[string]int64)
	for _, r := range releases {
		key, ok := releaseTimes[r.ReleaseType]
		if !ok {
			continue
		}
		ts := media.ParseDate(r.ReleaseDate)
		if ts == 0 {
			continue
		}
		if strings.EqualFold(r.Country, country) {
			if cur, ok := local[key]; !ok || ts < cur {
				local[key] = ts
			}
			if r.Certification != "" && e.MPAA == "" {
				e.MPAA = r.Certification
			}
		}
		if cur, ok := global[key]; !ok || ts < cur {
			global[key] = ts
		}
	}
	for key, ts := range global {
		if t, ok := local[key]; ok {
			ts = t
		}
		e.SetTime(key, ts)
	}
}

func languages(primary string, all []string) []string {
	var out []string
	if primary != "" {
		out = append(out, primary)
	}
	for _, l := range all {
		out = appendUnique(out, l)
	}
	return out
}

func appendUnique(values []string, value string) []string {
	if value == "" {
		return values
	}
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}
