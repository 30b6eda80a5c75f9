package merge

import (
	"github.com/Digital-Shane/metaweave/internal/media"
)

// Images groups the images of ordered sources by role. A link reported by
// several providers is attributed to the most trusted one. Within a role
// providers appear in reverse trust order, so the most trusted images come
// last.
func Images(ordered []Source) map[string][]media.Image {
	type group struct {
		provider string
		images   []media.Image
	}
	roles := make(map[string][]group)
	seen := make(map[string]bool)

	for _, s := range ordered {
		for role, images := range s.Entity.Images {
			var kept []media.Image
			for _, img := range images {
				if img.Link == "" || seen[img.Link] {
					continue
				}
				seen[img.Link] = true
				if img.Provider == "" {
					img.Provider = s.Provider
				}
				kept = append(kept, img)
			}
			if len(kept) > 0 {
				roles[role] = append(roles[role], group{provider: s.Provider, images: kept})
			}
		}
	}
	if len(roles) == 0 {
		return nil
	}

	out := make(map[string][]media.Image, len(roles))
	for role, groups := range roles {
		for i := len(groups) - 1; i >= 0; i-- {
			out[role] = append(out[role], groups[i].images...)
		}
	}
	return out
}

// RequiredImages returns the roles whose absence marks an entity of kind
// partial.
func RequiredImages(kind media.Kind) []string {
	switch kind {
	case media.KindMovie, media.KindShow, media.KindSet:
		return []string{media.ImagePoster, media.ImageFanart}
	case media.KindSeason:
		return []string{media.ImagePoster}
	}
	return nil
}

// MissingImages returns the required roles e has no image for.
func MissingImages(e *media.Entity) []string {
	var out []string
	for _, role := range RequiredImages(e.Kind) {
		if len(e.Images[role]) == 0 {
			out = append(out, role)
		}
	}
	return out
}

// Partial reports whether e needs another fetch: a provider contribution is
// incomplete or a required image is missing.
func Partial(e *media.Entity) bool {
	return len(e.Part.Incomplete()) > 0 || len(MissingImages(e)) > 0
}
