package utils

import (
	"strings"

	"github.com/gosimple/slug"
)

// Slugify returns the URL slug for s ("Data Science & AI" -> "data-science-and-ai").
func Slugify(s string) string {
	return slug.Make(strings.TrimSpace(s))
}

// ValidSlug reports whether s is already a well-formed slug.
func ValidSlug(s string) bool {
	return slug.IsSlug(s)
}
