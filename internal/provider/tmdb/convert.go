package tmdb

import (
	"github.com/ryanbradynd05/go-tmdb"

	"github.com/Digital-Shane/metaweave/internal/image"
	"github.com/Digital-Shane/metaweave/internal/media"
)

func (p *Provider) addImage(e *media.Entity, role, path string) {
	if img, ok := p.images.Create(providerName, path, "", 0); ok {
		image.Add(e, role, img)
	}
}

func (p *Provider) movieToEntity(movie *tmdb.Movie) *media.Entity {
	e := &media.Entity{
		Kind:          media.KindMovie,
		IDs:           media.IDs{TMDb: formatID(movie.ID), IMDb: movie.ImdbID},
		Title:         movie.Title,
		OriginalTitle: movie.OriginalTitle,
		Tagline:       movie.Tagline,
		Plot:          movie.Overview,
		Year:          media.YearOf(movie.ReleaseDate),
		Premiered:     movie.ReleaseDate,
		Status:        movie.Status,
		Homepage:      movie.Homepage,
		Duration:      int(movie.Runtime) * 60,
		Popularity:    float64(movie.Popularity),
	}
	e.SetTime(media.TimePremiere, media.ParseDate(movie.ReleaseDate))
	e.Voting.Set(providerName, float64(movie.VoteAverage), int(movie.VoteCount))

	for _, g := range movie.Genres {
		e.Genre = append(e.Genre, g.Name)
	}
	for _, c := range movie.ProductionCompanies {
		e.Studio = append(e.Studio, c.Name)
	}
	if movie.OriginalLanguage != "" {
		e.Language = []string{movie.OriginalLanguage}
	}

	p.addImage(e, media.ImagePoster, movie.PosterPath)
	p.addImage(e, media.ImageFanart, movie.BackdropPath)
	return e
}

func (p *Provider) collectionToEntity(c *collection) *media.Entity {
	e := &media.Entity{
		Kind:  media.KindSet,
		IDs:   media.IDs{TMDb: formatID(c.ID)},
		Title: c.Name,
		Plot:  c.Overview,
	}
	var ratings, votes float64
	for _, part := range c.Parts {
		e.Parts = append(e.Parts, media.IDs{TMDb: formatID(part.ID)})
		released := media.ParseDate(part.ReleaseDate)
		if released > 0 && (e.Time == nil || released < e.Time[media.TimePremiere]) {
			e.SetTime(media.TimePremiere, released)
			e.Year = media.YearOf(part.ReleaseDate)
			e.Premiered = part.ReleaseDate
		}
		ratings += part.VoteAverage * float64(part.VoteCount)
		votes += float64(part.VoteCount)
	}
	if votes > 0 {
		e.Voting.Set(providerName, ratings/votes, int(votes))
	}
	p.addImage(e, media.ImagePoster, c.PosterPath)
	p.addImage(e, media.ImageFanart, c.BackdropPath)
	return e
}

func (p *Provider) tvToEntity(show *tmdb.TV) *media.Entity {
	e := &media.Entity{
		Kind:          media.KindShow,
		IDs:           media.IDs{TMDb: formatID(show.ID)},
		Title:         show.Name,
		OriginalTitle: show.OriginalName,
		Plot:          show.Overview,
		Year:          media.YearOf(show.FirstAirDate),
		Premiered:     show.FirstAirDate,
		Status:        show.Status,
		Homepage:      show.Homepage,
		Country:       show.OriginCountry,
		Popularity:    float64(show.Popularity),
		Count:         &media.Count{Season: show.NumberOfSeasons, Episode: show.NumberOfEpisodes},
	}
	if show.ExternalIDs != nil {
		e.IDs.IMDb = show.ExternalIDs.ImdbID
	}
	e.SetTime(media.TimePremiere, media.ParseDate(show.FirstAirDate))
	e.Voting.Set(providerName, float64(show.VoteAverage), int(show.VoteCount))
	if len(show.EpisodeRunTime) > 0 {
		e.Duration = show.EpisodeRunTime[0] * 60
	}

	for _, g := range show.Genres {
		e.Genre = append(e.Genre, g.Name)
	}
	for _, n := range show.Networks {
		e.Network = append(e.Network, n.Name)
	}
	for _, c := range show.ProductionCompanies {
		e.Studio = append(e.Studio, c.Name)
	}
	for _, c := range show.CreatedBy {
		e.Creator = append(e.Creator, c.Name)
	}
	if show.OriginalLanguage != "" {
		e.Language = []string{show.OriginalLanguage}
	}

	p.addImage(e, media.ImagePoster, show.PosterPath)
	p.addImage(e, media.ImageFanart, show.BackdropPath)
	return e
}

func (p *Provider) seasonToEntity(season *tmdb.TvSeason, showID int) *media.Entity {
	showIDs := media.IDs{TMDb: formatID(showID)}
	e := &media.Entity{
		Kind:      media.KindSeason,
		IDs:       media.IDs{TMDb: formatID(season.ID)},
		ShowIDs:   &showIDs,
		Title:     season.Name,
		Plot:      season.Overview,
		Season:    season.SeasonNumber,
		Premiered: season.AirDate,
		Year:      media.YearOf(season.AirDate),
		Count:     &media.Count{Episode: len(season.Episodes)},
	}
	e.SetTime(media.TimePremiere, media.ParseDate(season.AirDate))
	p.addImage(e, media.ImagePoster, season.PosterPath)
	return e
}

func (p *Provider) episodeToEntity(episode *tmdb.TvEpisode, showID int) *media.Entity {
	showIDs := media.IDs{TMDb: formatID(showID)}
	e := &media.Entity{
		Kind:    media.KindEpisode,
		IDs:     media.IDs{TMDb: formatID(episode.ID)},
		ShowIDs: &showIDs,
		Title:   episode.Name,
		Plot:    episode.Overview,
		Season:  episode.SeasonNumber,
		Episode: episode.EpisodeNumber,
		Aired:   episode.AirDate,
		Year:    media.YearOf(episode.AirDate),
		Number:  &media.Numbering{Standard: media.NewNumber(episode.SeasonNumber, episode.EpisodeNumber)},
	}
	e.SetTime(media.TimeAired, media.ParseDate(episode.AirDate))
	e.SetTime(media.TimePremiere, media.ParseDate(episode.AirDate))
	e.Voting.Set(providerName, float64(episode.VoteAverage), int(episode.VoteCount))
	if episode.SeasonNumber == 0 {
		e.Type = media.TypeSpecial
	}

	for i, s := range episode.GuestStars {
		e.Cast = append(e.Cast, media.Person{Name: s.Name, Order: i})
	}
	for _, c := range episode.Crew {
		switch c.Job {
		case "Director":
			e.Director = append(e.Director, c.Name)
		case "Writer", "Screenplay":
			e.Writer = append(e.Writer, c.Name)
		}
	}

	p.addImage(e, media.ImageThumb, episode.StillPath)
	return e
}

func seasonToPack(season *tmdb.TvSeason) media.PackSeason {
	out := media.PackSeason{
		Number: season.SeasonNumber,
		IDs:    media.IDs{TMDb: formatID(season.ID)},
		Title:  season.Name,
	}
	for _, ep := range season.Episodes {
		out.Episodes = append(out.Episodes, media.PackEpisode{
			IDs:     media.IDs{TMDb: formatID(ep.ID)},
			Title:   ep.Name,
			Season:  season.SeasonNumber,
			Episode: ep.EpisodeNumber,
			Aired:   media.ParseDate(ep.AirDate),
		})
	}
	return out
}
