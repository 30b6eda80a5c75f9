package cache

import "time"

// Timeout names a freshness class. Each class maps to a duration after which
// a record turns stale; records turn invalid after expiryFactor durations.
type Timeout string

const (
	TimeoutQuick    Timeout = "quick"
	TimeoutShort    Timeout = "short"
	TimeoutMedium   Timeout = "medium"
	TimeoutLong     Timeout = "long"
	TimeoutExtended Timeout = "extended"
	TimeoutRefresh  Timeout = "refresh"
	TimeoutBasic    Timeout = "basic"
)

const expiryFactor = 4

// DefaultDurations are used for classes missing from Options.Durations.
var DefaultDurations = map[Timeout]time.Duration{
	TimeoutQuick:    2 * time.Hour,
	TimeoutShort:    24 * time.Hour,
	TimeoutMedium:   3 * 24 * time.Hour,
	TimeoutLong:     7 * 24 * time.Hour,
	TimeoutExtended: 30 * 24 * time.Hour,
	TimeoutRefresh:  6 * time.Hour,
	TimeoutBasic:    90 * 24 * time.Hour,
}

// Status describes a selected record.
type Status string

const (
	StatusFresh      Status = "valid-fresh"
	StatusStale      Status = "valid-stale"
	StatusInvalid    Status = "invalid"
	StatusIncomplete Status = "incomplete"
	StatusExternal   Status = "external"
)

// Usable reports whether a record with this status carries data that may be
// returned to a caller without a foreground refresh.
func (s Status) Usable() bool {
	return s == StatusFresh || s == StatusStale || s == StatusExternal
}

// Refresh controls how a stale function record is renewed.
type Refresh int

const (
	RefreshForeground Refresh = iota
	RefreshBackground
	RefreshNone
)

func (c *Cache) duration(t Timeout) time.Duration {
	if d, ok := c.durations[t]; ok && d > 0 {
		return d
	}
	if d, ok := DefaultDurations[t]; ok {
		return d
	}
	return DefaultDurations[TimeoutMedium]
}

// age classifies a write time against a timeout class.
func (c *Cache) age(written time.Time, t Timeout) Status {
	elapsed := c.now().Sub(written)
	d := c.duration(t)
	switch {
	case elapsed < d:
		return StatusFresh
	case elapsed < d*expiryFactor:
		return StatusStale
	default:
		return StatusInvalid
	}
}
