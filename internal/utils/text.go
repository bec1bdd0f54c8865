package utils

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var htmlStripper = bluemonday.StrictPolicy()

// StripHTML removes tags, decodes entities and collapses whitespace.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	return CollapseWhitespace(html.UnescapeString(htmlStripper.Sanitize(s)))
}

// CollapseWhitespace trims s and replaces every whitespace run with a
// single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}

	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}

// Slugify lowercases s and joins its alphanumeric words with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false

	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
		default:
			dash = true
		}
	}

	return b.String()
}

// ContainsFold reports whether any of fields contains term, ignoring case.
func ContainsFold(term string, fields ...string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
