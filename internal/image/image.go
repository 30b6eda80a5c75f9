// Package image builds artwork links and post-processes the image sets of
// merged entities.
package image

import (
	"sort"
	"strings"

	"github.com/Digital-Shane/metaweave/internal/media"
)

const (
	tmdbBase = "https://image.tmdb.org/t/p/original"
	tvdbBase = "https://artworks.thetvdb.com"
)

// Processor creates images from provider paths and tidies the image set of
// an entity after merging.
type Processor interface {
	Create(provider, path, language string, votes int) (media.Image, bool)
	Update(e *media.Entity)
}

// Link turns a provider path into an absolute URL. Absolute inputs are
// returned unchanged.
func Link(provider, path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == "N/A" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	switch provider {
	case media.ProviderTMDb:
		return tmdbBase + path
	case media.ProviderTVDb:
		return tvdbBase + path
	}
	return ""
}

// Default keeps at most Limit images per role, best voted first.
type Default struct {
	Limit int
	// Language, when set, moves images in that language (or with no
	// language) ahead of the rest.
	Language string
}

// NewDefault returns the default processor.
func NewDefault(language string) *Default {
	return &Default{Limit: 10, Language: language}
}

// Create builds an image for the provider path. The boolean is false when
// the path yields no link.
func (d *Default) Create(provider, path, language string, votes int) (media.Image, bool) {
	link := Link(provider, path)
	if link == "" {
		return media.Image{}, false
	}
	return media.Image{Link: link, Provider: provider, Language: language, Votes: votes}, true
}

// Update deduplicates every role by link, orders it and applies the limit.
// Empty roles are removed.
func (d *Default) Update(e *media.Entity) {
	if e == nil || len(e.Images) == 0 {
		return
	}
	for role, images := range e.Images {
		seen := make(map[string]bool, len(images))
		kept := images[:0:0]
		for _, img := range images {
			if img.Link == "" || seen[img.Link] {
				continue
			}
			seen[img.Link] = true
			kept = append(kept, img)
		}
		sort.SliceStable(kept, func(i, j int) bool {
			pi, pj := d.preferred(kept[i]), d.preferred(kept[j])
			if pi != pj {
				return pi
			}
			return kept[i].Votes > kept[j].Votes
		})
		if d.Limit > 0 && len(kept) > d.Limit {
			kept = kept[:d.Limit]
		}
		if len(kept) == 0 {
			delete(e.Images, role)
			continue
		}
		e.Images[role] = kept
	}
}

func (d *Default) preferred(img media.Image) bool {
	if d.Language == "" {
		return false
	}
	lang := strings.ToLower(img.Language)
	want := strings.ToLower(d.Language)
	if i := strings.IndexAny(want, "-_"); i > 0 {
		want = want[:i]
	}
	return lang == "" || strings.HasPrefix(lang, want)
}

// Add appends img to role on e.
func Add(e *media.Entity, role string, img media.Image) {
	if img.Link == "" {
		return
	}
	if e.Images == nil {
		e.Images = make(map[string][]media.Image)
	}
	e.Images[role] = append(e.Images[role], img)
}
