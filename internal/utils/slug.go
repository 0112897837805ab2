package utils

import (
	"regexp"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]+`)
var whitespace = regexp.MustCompile(`\s+`)
var multiDash = regexp.MustCompile(`-+`)

// Slugify lowercases input, drops characters that are not letters, digits,
// underscores, whitespace or hyphens, and joins words with single hyphens.
// Letters outside ASCII are kept so CJK titles still produce a slug.
func Slugify(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = nonSlugChars.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	s = multiDash.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	return s
}
