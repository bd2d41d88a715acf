package domain

import (
	"strings"
	"unicode"

	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/id"
)

// MaxSlugLength caps slug length so URLs stay readable.
const MaxSlugLength = 48

// slugSuffixLength is how many random characters ResuffixSlug appends.
const slugSuffixLength = 4

// ErrSlugInvalid indicates a name that produces no usable slug.
var ErrSlugInvalid = apperrors.New(apperrors.CodeWorkspaceSlugInvalid, "workspace name produces an empty slug")

// Slugify derives a URL slug from a workspace name: lowercase, runs of
// non-alphanumerics collapse to single hyphens, trimmed to MaxSlugLength.
func Slugify(name string) (string, error) {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLower(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > MaxSlugLength {
		slug = strings.Trim(slug[:MaxSlugLength], "-")
	}
	if slug == "" {
		return "", ErrSlugInvalid
	}
	return slug, nil
}

// ResuffixSlug appends a fresh random suffix to a slug after a uniqueness
// conflict. The base is re-trimmed so the result stays within MaxSlugLength.
func ResuffixSlug(slug string, idGenerator func() (string, error)) (string, error) {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	suffixSource, err := idGenerator()
	if err != nil {
		return "", err
	}
	suffix := suffixSource
	if len(suffix) > slugSuffixLength {
		suffix = suffix[:slugSuffixLength]
	}

	base := strings.TrimRight(slug, "-")
	maxBase := MaxSlugLength - slugSuffixLength - 1
	if len(base) > maxBase {
		base = strings.TrimRight(base[:maxBase], "-")
	}
	if base == "" {
		return suffix, nil
	}
	return base + "-" + suffix, nil
}

// ValidSlug reports whether a caller-supplied slug matches the slug grammar.
func ValidSlug(slug string) bool {
	if slug == "" || len(slug) > MaxSlugLength {
		return false
	}
	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return false
	}
	for _, r := range slug {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
