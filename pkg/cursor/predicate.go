package cursor

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/marmos91/dittobrowse/pkg/folder"
)

// Predicate decides whether the cursor may land on an item.
type Predicate func(item *folder.ContentInfo) bool

// Media accepts image, video and audio items.
func Media() Predicate {
	return func(item *folder.ContentInfo) bool {
		return folder.IsMedia(item.Type)
	}
}

// Playable accepts media items plus items that can be shown through their
// thumbnail (see folder.PlayableThumbnail).
func Playable() Predicate {
	return func(item *folder.ContentInfo) bool {
		if folder.IsMedia(item.Type) {
			return true
		}
		_, ok := folder.PlayableThumbnail(*item)
		return ok
	}
}

// TypePrefix accepts items whose type starts with prefix, e.g. "image".
func TypePrefix(prefix string) Predicate {
	return func(item *folder.ContentInfo) bool {
		return strings.HasPrefix(item.Type, prefix)
	}
}

// Glob accepts items whose name matches a doublestar pattern such as
// "*.{jpg,png}". Matching is case-insensitive.
func Glob(pattern string) (Predicate, error) {
	pattern = strings.ToLower(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}
	return func(item *folder.ContentInfo) bool {
		ok, _ := doublestar.Match(pattern, strings.ToLower(item.Name))
		return ok
	}, nil
}

// And accepts items accepted by every predicate. nil predicates are ignored.
func And(preds ...Predicate) Predicate {
	return func(item *folder.ContentInfo) bool {
		for _, p := range preds {
			if p != nil && !p(item) {
				return false
			}
		}
		return true
	}
}

// Or accepts items accepted by at least one predicate.
func Or(preds ...Predicate) Predicate {
	return func(item *folder.ContentInfo) bool {
		for _, p := range preds {
			if p != nil && p(item) {
				return true
			}
		}
		return false
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(item *folder.ContentInfo) bool {
		return !p(item)
	}
}
