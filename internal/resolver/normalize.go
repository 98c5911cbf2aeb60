package resolver

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	spokenDotRe = regexp.MustCompile(`\s+dot\s+`)

	// fillerRe lists multi-word fillers before their prefixes so that
	// "open the" wins over "open". Bare "play" is kept because the play
	// branch keys on it.
	fillerRe = regexp.MustCompile(`\b(open the|open|go to|visit|website|site|web|please|launch|play on)\b`)

	disallowedRe = regexp.MustCompile(`[^a-z0-9 .\-]`)
	spaceRe      = regexp.MustCompile(`\s+`)
	dotRunRe     = regexp.MustCompile(`\.{2,}`)
	hyphenRunRe  = regexp.MustCompile(`-{2,}`)
)

// Normalize turns a spoken phrase into the cleaned phrase every resolution
// branch works on: lower-cased, spoken "dot" mapped to ".", filler words
// removed, characters outside [a-z0-9 .-] replaced by spaces, runs of dots
// or hyphens collapsed and whitespace collapsed.
func Normalize(phrase string) string {
	s := strings.ToLower(phrase)
	s = spokenDotRe.ReplaceAllString(s, ".")
	s = fillerRe.ReplaceAllString(s, " ")
	s = disallowedRe.ReplaceAllString(s, " ")
	s = dotRunRe.ReplaceAllString(s, ".")
	s = hyphenRunRe.ReplaceAllString(s, "-")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// sanitize collapses runs of dots and hyphens and trims them from both ends.
func sanitize(s string) string {
	s = dotRunRe.ReplaceAllString(s, ".")
	s = hyphenRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, ".-")
}

// escape percent-encodes s for use in a query value or path segment. Spaces
// become %20 in both positions.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// SearchURL returns the web search URL for q.
func SearchURL(q string) string {
	return "https://www.google.com/search?q=" + escape(q)
}
