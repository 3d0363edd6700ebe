package chainpost

import "strings"

// Slugify converts free text into a URL-safe slug: lowercased, internal
// whitespace runs collapsed to single hyphens, all other characters outside
// [a-z0-9-] dropped. The empty string means the input had no usable
// characters; callers must treat that as ErrInvalidSlug.
//
// Slugify is idempotent: applying it to its own output is a no-op.
func Slugify(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), "-")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '-' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
