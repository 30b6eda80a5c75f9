package pack

import (
	"sort"
	"time"

	"github.com/Digital-Shane/metaweave/internal/media"
)

// Durations aggregates episode runtimes in seconds.
type Durations struct {
	Total  int   `json:"total,omitempty"`
	Mean   int   `json:"mean,omitempty"`
	Min    int   `json:"min,omitempty"`
	Max    int   `json:"max,omitempty"`
	Values []int `json:"values,omitempty"`
}

// Counts splits episode counts by type. Episodes and Aired exclude
// specials, which are counted separately.
type Counts struct {
	Seasons       int `json:"seasons,omitempty"`
	Episodes      int `json:"episodes,omitempty"`
	Aired         int `json:"aired,omitempty"`
	Specials      int `json:"specials,omitempty"`
	AiredSpecials int `json:"aired_specials,omitempty"`
	Official      int `json:"official,omitempty"`
	Unofficial    int `json:"unofficial,omitempty"`
	Universal     int `json:"universal,omitempty"`
	Automatic     int `json:"automatic,omitempty"`
}

// Summary aggregates a season or a whole show. Year and Time hold the
// first and last values.
type Summary struct {
	Year     [2]int    `json:"year"`
	Time     [2]int64  `json:"time"`
	Duration Durations `json:"duration"`
	Count    Counts    `json:"count"`
}

type summarizer struct {
	now       int64
	summary   Summary
	durations []int
}

func (s *summarizer) add(ep *Episode) {
	c := &s.summary.Count
	switch {
	case ep.Type.Has(media.TypeAutomatic):
		c.Automatic++
		return
	case ep.Type.Has(media.TypeSpecial):
		c.Specials++
		if ep.Aired > 0 && ep.Aired <= s.now {
			c.AiredSpecials++
		}
		return
	}

	c.Episodes++
	if ep.Type.Has(media.TypeOfficial) {
		c.Official++
	}
	if ep.Type.Has(media.TypeUnofficial) {
		c.Unofficial++
	}
	if ep.Type.Has(media.TypeUniversal) {
		c.Universal++
	}
	if ep.Aired > 0 {
		if ep.Aired <= s.now {
			c.Aired++
		}
		if s.summary.Time[0] == 0 || ep.Aired < s.summary.Time[0] {
			s.summary.Time[0] = ep.Aired
		}
		if ep.Aired > s.summary.Time[1] {
			s.summary.Time[1] = ep.Aired
		}
	}
	if ep.Duration > 0 {
		s.durations = append(s.durations, ep.Duration)
	}
}

func (s *summarizer) finish() Summary {
	out := s.summary
	for i, ts := range out.Time {
		if ts > 0 {
			out.Year[i] = time.Unix(ts, 0).UTC().Year()
		}
	}
	if len(s.durations) == 0 {
		return out
	}
	d := &out.Duration
	d.Min, d.Max = s.durations[0], s.durations[0]
	for _, v := range s.durations {
		d.Total += v
		d.Min = min(d.Min, v)
		d.Max = max(d.Max, v)
		found := false
		for _, u := range d.Values {
			if u == v {
				found = true
				break
			}
		}
		if !found {
			d.Values = append(d.Values, v)
		}
	}
	d.Mean = d.Total / len(s.durations)
	sort.Ints(d.Values)
	return out
}

// summarize fills the season and show summaries.
func (p *Pack) summarize(now time.Time) {
	show := &summarizer{now: now.Unix()}
	for i := range p.Seasons {
		season := &summarizer{now: now.Unix()}
		for j := range p.Seasons[i].Episodes {
			ep := &p.Seasons[i].Episodes[j]
			season.add(ep)
			show.add(ep)
		}
		p.Seasons[i].Summary = season.finish()
		if p.Seasons[i].Number > 0 {
			show.summary.Count.Seasons++
		}
	}
	for i := range p.Automatic {
		show.add(&p.Automatic[i])
	}
	p.Summary = show.finish()
}
