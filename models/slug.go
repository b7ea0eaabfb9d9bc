package models

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	slugPattern     = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	repeatedHyphens = regexp.MustCompile(`-{2,}`)
)

// Slugify derives a URL-safe slug from a title: lowercase, anything that is not a letter,
// digit, space or hyphen is dropped, whitespace becomes hyphens and hyphen runs collapse.
//
//	Slugify("Hello, World!") == "hello-world"
func Slugify(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			b.WriteByte('-')
		}
	}
	slug := repeatedHyphens.ReplaceAllString(b.String(), "-")
	return strings.Trim(slug, "-")
}

// IsValidSlug reports whether s is already in canonical slug form
func IsValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// reservedSlugs would be shadowed by fixed routes under /blog
var reservedSlugs = map[string]struct{}{
	"featured":   {},
	"categories": {},
	"tags":       {},
}

// IsReservedSlug reports whether s names a fixed listing route
func IsReservedSlug(s string) bool {
	_, ok := reservedSlugs[s]
	return ok
}

const wordsPerMinute = 200

// ReadingTimeMinutes estimates how long content takes to read, rounded up to whole minutes
func ReadingTimeMinutes(content string) int {
	words := len(strings.Fields(content))
	if words == 0 {
		return 0
	}
	return (words + wordsPerMinute - 1) / wordsPerMinute
}
