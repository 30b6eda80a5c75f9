package provider

import "github.com/Digital-Shane/metaweave/internal/media"

// Project returns the part of e that a section is responsible for. Identity
// fields are always kept so results can be matched during merging. Summary
// and pack sections return e unchanged.
func Project(e *media.Entity, section Section) *media.Entity {
	if e == nil {
		return nil
	}
	switch section {
	case SectionSummary, SectionPack, SectionSeason, SectionEpisode, SectionParts:
		return e
	}

	out := &media.Entity{
		Kind:      e.Kind,
		IDs:       e.IDs,
		ShowIDs:   e.ShowIDs,
		ShowTitle: e.ShowTitle,
		Title:     e.Title,
		Year:      e.Year,
		Season:    e.Season,
		Episode:   e.Episode,
	}
	switch section {
	case SectionPeople:
		out.Cast = e.Cast
		out.Director = e.Director
		out.Writer = e.Writer
		out.Creator = e.Creator
	case SectionReleases:
		out.Time = e.Time
		out.MPAA = e.MPAA
		out.Premiered = e.Premiered
	case SectionStudios:
		out.Studio = e.Studio
		out.Network = e.Network
	case SectionImages:
		out.Images = e.Images
	case SectionRatings:
		out.Voting = e.Voting
		out.Rating = e.Rating
		out.Votes = e.Votes
	}
	return out
}
