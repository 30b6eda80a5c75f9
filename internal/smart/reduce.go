package smart

import "github.com/Digital-Shane/metaweave/internal/media"

// Reduce returns the list form of e: identifiers, titles, dates, ratings,
// the fields menus filter on and the smart sub-record. Everything else is
// read back from the cache when the list is expanded.
func Reduce(e *media.Entity) *media.Entity {
	if e == nil {
		return nil
	}
	out := &media.Entity{
		Kind:          e.Kind,
		IDs:           e.IDs,
		IMDbAlias:     e.IMDbAlias,
		Title:         e.Title,
		OriginalTitle: e.OriginalTitle,
		Year:          e.Year,
		Season:        e.Season,
		Rating:        e.Rating,
		Votes:         e.Votes,
		Popularity:    e.Popularity,
		MPAA:          e.MPAA,
		Country:       append([]string(nil), e.Country...),
		Language:      append([]string(nil), e.Language...),
		Genre:         append([]string(nil), e.Genre...),
		Tags:          append([]string(nil), e.Tags...),
	}
	if len(e.Time) > 0 {
		out.Time = make(map[string]int64, len(e.Time))
		for k, v := range e.Time {
			out.Time[k] = v
		}
	}
	if e.Smart != nil {
		smart := *e.Smart
		if smart.Next != nil {
			next := *smart.Next
			smart.Next = &next
		}
		out.Smart = &smart
	}
	return out
}
