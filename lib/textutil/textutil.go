package textutil

import (
	"regexp"
	"strings"
)

var innerWhitespace = regexp.MustCompile(`\s+`)

// NormalizeVocab lowercases raw site vocabulary, trims surrounding
// whitespace and collapses inner runs so lookups against the closed
// vocabularies are insensitive to markup noise.
func NormalizeVocab(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	return innerWhitespace.ReplaceAllString(text, " ")
}

// CleanNumber strips the thousands separators and the leading rank marker
// the site renders on numeric stats ("#13", "914,411").
func CleanNumber(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, ",", "")
	return strings.TrimPrefix(text, "#")
}
