package penpost

import (
	"context"
	"strconv"
	"strings"
)

// fallbackSlug is the base used for titles with no letters or digits.
const fallbackSlug = "post"

// Slugify converts a title to a URL-safe slug: lowercase ASCII letters and
// digits, with every other run of characters collapsed into a single '-'
// and no leading or trailing '-'.
func Slugify(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// SlugChecker reports whether a slug is already used by a post.
type SlugChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// SlugResolver turns titles into slugs that no stored post uses yet.
type SlugResolver struct {
	posts SlugChecker
}

// NewSlugResolver returns a resolver that checks candidates against posts.
func NewSlugResolver(posts SlugChecker) *SlugResolver {
	return &SlugResolver{posts: posts}
}

// Resolve returns Slugify(title) if it is free, otherwise the first free
// of base-1, base-2, ... Each candidate costs one lookup. Lookup errors are
// returned as is.
func (r *SlugResolver) Resolve(ctx context.Context, title string) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = fallbackSlug
	}
	slug := base
	for n := 1; ; n++ {
		taken, err := r.posts.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(n)
	}
}
