package cmd

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Digital-Shane/metaweave/internal/media"
)

var (
	imdbPattern   = regexp.MustCompile(`^tt\d{5,}$`)
	numberPattern = regexp.MustCompile(`(?i)^s?(\d{1,4})\s*[ex](\d{1,4})$`)
)

// parseRef turns a command line identifier into a reference. Accepted forms
// are a bare IMDb id (tt0133093) and provider:value pairs such as tmdb:603,
// tvdb:81189, trakt:481 or slug:the-matrix-1999.
func parseRef(kind media.Kind, arg string) (media.Ref, error) {
	arg = strings.TrimSpace(arg)
	ref := media.Ref{Kind: kind}
	if imdbPattern.MatchString(arg) {
		ref.IDs.IMDb = arg
		return ref, nil
	}

	name, value, ok := strings.Cut(arg, ":")
	if !ok || value == "" {
		return ref, fmt.Errorf("unrecognized identifier %q: use tt…, tmdb:…, tvdb:…, trakt:… or slug:…", arg)
	}
	name = strings.ToLower(name)
	switch name {
	case media.ProviderIMDb:
		if !imdbPattern.MatchString(value) {
			return ref, fmt.Errorf("invalid IMDb id %q", value)
		}
	case media.ProviderTMDb, media.ProviderTVDb, media.ProviderTrakt:
		if _, err := strconv.ParseUint(value, 10, 64); err != nil {
			return ref, fmt.Errorf("invalid %s id %q", name, value)
		}
	case "slug":
	default:
		return ref, fmt.Errorf("unknown provider %q", name)
	}
	ref.IDs.Set(name, value)
	return ref, nil
}

func mediaKind(s string) media.Kind {
	return media.Kind(strings.ToLower(strings.TrimSpace(s)))
}

// parseRefs parses every argument.
func parseRefs(kind media.Kind, args []string) ([]media.Ref, error) {
	refs := make([]media.Ref, 0, len(args))
	for _, arg := range args {
		ref, err := parseRef(kind, arg)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// parseNumber reads an episode coordinate written as S01E05 or 1x5.
func parseNumber(s string) (*media.Number, error) {
	m := numberPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, fmt.Errorf("invalid episode %q: use S01E05 or 1x5", s)
	}
	season, _ := strconv.Atoi(m[1])
	episode, _ := strconv.Atoi(m[2])
	return media.NewNumber(season, episode), nil
}

// parseYears reads a year or an inclusive year range such as 1990-1999.
func parseYears(s string) ([2]int, error) {
	var out [2]int
	if s == "" {
		return out, nil
	}
	from, to, found := strings.Cut(s, "-")
	var err error
	if out[0], err = strconv.Atoi(strings.TrimSpace(from)); err != nil {
		return out, fmt.Errorf("invalid year range %q", s)
	}
	out[1] = out[0]
	if found {
		if out[1], err = strconv.Atoi(strings.TrimSpace(to)); err != nil || out[1] < out[0] {
			return out, fmt.Errorf("invalid year range %q", s)
		}
	}
	return out, nil
}
