package provider

import (
	"context"
	"time"

	"github.com/Digital-Shane/metaweave/internal/media"
)

// Detail controls how much data a provider is asked for.
type Detail int

const (
	DetailEssential Detail = iota
	DetailStandard
	DetailExtended
)

func (d Detail) String() string {
	switch d {
	case DetailEssential:
		return "essential"
	case DetailStandard:
		return "standard"
	case DetailExtended:
		return "extended"
	}
	return "unknown"
}

// ParseDetail converts a configuration value to a Detail, defaulting to
// standard.
func ParseDetail(s string) Detail {
	switch s {
	case "essential":
		return DetailEssential
	case "extended":
		return DetailExtended
	}
	return DetailStandard
}

// Section names one sub-request against a provider.
type Section string

const (
	SectionSummary  Section = "summary"
	SectionPeople   Section = "people"
	SectionReleases Section = "releases"
	SectionStudios  Section = "studios"
	SectionImages   Section = "images"
	SectionRatings  Section = "ratings"
	SectionSeason   Section = "season"
	SectionEpisode  Section = "episode"
	SectionPack     Section = "pack"
	SectionParts    Section = "parts"
)

// Provider is the uniform contract every metadata source implements.
type Provider interface {
	Name() string
	Description() string
	Capabilities() Capabilities

	Configure(config map[string]interface{}) error

	// Metadata runs one sub-request. A Result with Complete false carries
	// whatever partial data was gathered.
	Metadata(ctx context.Context, request Request) (Result, error)

	// Usage reports the share of the provider's request budget consumed in
	// the current window, in [0, 1].
	Usage() float64
}

// Capabilities describes what a provider can do.
type Capabilities struct {
	Kinds        []media.Kind
	Sections     []Section
	RequiresAuth bool
	Priority     int
}

// Supports reports whether the provider handles the kind and section.
func (c Capabilities) Supports(kind media.Kind, section Section) bool {
	kindOK := false
	for _, k := range c.Kinds {
		if k == kind {
			kindOK = true
			break
		}
	}
	if !kindOK {
		return false
	}
	for _, s := range c.Sections {
		if s == section {
			return true
		}
	}
	return false
}

// Request is a single provider sub-request. For seasons, episodes and packs
// IDs are the show identifiers.
type Request struct {
	Kind     media.Kind
	Section  Section
	IDs      media.IDs
	Title    string
	Year     int
	Season   int
	Episode  int
	Language string
	Detail   Detail
}

// Result is a provider response. Entity carries entity data; Document
// carries a pack listing for SectionPack.
type Result struct {
	Complete bool
	Entity   *media.Entity
	Document *media.PackDocument
}

// DiscoverRequest selects a dynamic list.
type DiscoverRequest struct {
	Media  media.Kind
	List   string
	Genres []string
	Years  [2]int
	Page   int
	Limit  int
}

// StageSeason selects shows whose new season premiered in the window. The
// other stages are the media release time keys.
const StageSeason = "season"

// ReleaseRequest selects titles released in a window at a release stage.
type ReleaseRequest struct {
	Media media.Kind
	Stage string
	Start time.Time
	End   time.Time
	Limit int
}

// ListRequest selects a user or curated list.
type ListRequest struct {
	Media media.Kind
	User  string
	Slug  string
	Page  int
	Limit int
}

// Discoverer is implemented by providers that expose dynamic lists. Only the
// menu facade and smart lists use it.
type Discoverer interface {
	Discover(ctx context.Context, request DiscoverRequest) ([]*media.Entity, error)
	Search(ctx context.Context, kind media.Kind, query string, year int) ([]*media.Entity, error)
	List(ctx context.Context, request ListRequest) ([]*media.Entity, error)
	Person(ctx context.Context, kind media.Kind, query string) ([]*media.Entity, error)
	Release(ctx context.Context, request ReleaseRequest) ([]*media.Entity, error)
}
