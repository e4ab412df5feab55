// Package sanitize provides text sanitization for inbound message bodies.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

var typographic = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", `"`, "”", `"`,
	"–", " - ", "—", " - ",
	" ", " ",
)

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.ReplaceAll(result, "&lt;", "<")
	result = strings.ReplaceAll(result, "&gt;", ">")
	result = strings.ReplaceAll(result, "&amp;", "&")
	result = strings.ReplaceAll(result, "&quot;", "\"")
	result = strings.ReplaceAll(result, "&#39;", "'")
	// Re-strip after entity decode to catch encoded tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Message prepares an inbound chat body for storage and classification:
// HTML stripped, typographic punctuation folded to ASCII, whitespace collapsed.
func Message(s string) string {
	result := typographic.Replace(StripHTML(s))
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(result, " "))
}
