package media

import "strings"

// Provider names used as ID keys and part keys.
const (
	ProviderTrakt  = "trakt"
	ProviderTMDb   = "tmdb"
	ProviderTVDb   = "tvdb"
	ProviderIMDb   = "imdb"
	ProviderFanart = "fanart"
	ProviderTVMaze = "tvmaze"
	ProviderTVRage = "tvrage"
)

// IDProviders lists the ID kinds in lookup precedence. TVmaze and TVRage ids
// are only reported for shows, by way of the TVDb and Trakt listings.
var IDProviders = []string{ProviderTrakt, ProviderTMDb, ProviderTVDb, ProviderIMDb, ProviderTVMaze, ProviderTVRage}

// IDs holds the per-provider identifiers of an entity. Every value is kept
// as text; numeric providers are formatted in base 10.
type IDs struct {
	IMDb   string `json:"imdb,omitempty"`
	TMDb   string `json:"tmdb,omitempty"`
	TVDb   string `json:"tvdb,omitempty"`
	Trakt  string `json:"trakt,omitempty"`
	Slug   string `json:"slug,omitempty"`
	TVMaze string `json:"tvmaze,omitempty"`
	TVRage string `json:"tvrage,omitempty"`
}

// Get returns the identifier for the named provider.
func (i IDs) Get(provider string) string {
	switch provider {
	case ProviderIMDb:
		return i.IMDb
	case ProviderTMDb:
		return i.TMDb
	case ProviderTVDb:
		return i.TVDb
	case ProviderTrakt:
		return i.Trakt
	case ProviderTVMaze:
		return i.TVMaze
	case ProviderTVRage:
		return i.TVRage
	case "slug":
		return i.Slug
	}
	return ""
}

// Set assigns the identifier for the named provider.
func (i *IDs) Set(provider, value string) {
	value = strings.TrimSpace(value)
	switch provider {
	case ProviderIMDb:
		i.IMDb = value
	case ProviderTMDb:
		i.TMDb = value
	case ProviderTVDb:
		i.TVDb = value
	case ProviderTrakt:
		i.Trakt = value
	case ProviderTVMaze:
		i.TVMaze = value
	case ProviderTVRage:
		i.TVRage = value
	case "slug":
		i.Slug = value
	}
}

// Empty reports whether no identifier is known.
func (i IDs) Empty() bool {
	return i.IMDb == "" && i.TMDb == "" && i.TVDb == "" && i.Trakt == "" && i.Slug == "" &&
		i.TVMaze == "" && i.TVRage == ""
}

// Fill copies identifiers from other wherever i has none.
func (i IDs) Fill(other IDs) IDs {
	if i.IMDb == "" {
		i.IMDb = other.IMDb
	}
	if i.TMDb == "" {
		i.TMDb = other.TMDb
	}
	if i.TVDb == "" {
		i.TVDb = other.TVDb
	}
	if i.Trakt == "" {
		i.Trakt = other.Trakt
	}
	if i.Slug == "" {
		i.Slug = other.Slug
	}
	if i.TVMaze == "" {
		i.TVMaze = other.TVMaze
	}
	if i.TVRage == "" {
		i.TVRage = other.TVRage
	}
	return i
}

// Shares reports whether i and other carry an equal identifier for at least
// one provider.
func (i IDs) Shares(other IDs) bool {
	for _, p := range IDProviders {
		if v := i.Get(p); v != "" && v == other.Get(p) {
			return true
		}
	}
	return false
}

// Conflicts reports whether i and other carry different identifiers for the
// same provider.
func (i IDs) Conflicts(other IDs) bool {
	for _, p := range IDProviders {
		a, b := i.Get(p), other.Get(p)
		if a != "" && b != "" && a != b {
			return true
		}
	}
	return false
}

// Comparable reports whether i and other both carry an identifier for at
// least one common provider.
func (i IDs) Comparable(other IDs) bool {
	for _, p := range IDProviders {
		if i.Get(p) != "" && other.Get(p) != "" {
			return true
		}
	}
	return false
}

// Primary returns the first known identifier in precedence order together
// with its provider name.
func (i IDs) Primary() (string, string) {
	for _, p := range IDProviders {
		if v := i.Get(p); v != "" {
			return p, v
		}
	}
	if i.Slug != "" {
		return "slug", i.Slug
	}
	return "", ""
}
