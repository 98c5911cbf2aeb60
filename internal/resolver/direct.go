package resolver

import (
	"regexp"
	"strings"
)

var (
	schemeRe     = regexp.MustCompile(`(?i)^https?://`)
	domainTailRe = regexp.MustCompile(`(?i)[a-z0-9-]+\.[a-z]{2,}$`)
	trailingRe   = regexp.MustCompile(`[.-]+$`)
)

// DirectTarget sanitizes a raw destination string the way it is opened
// without resolution: runs of "." and "-" are collapsed, trailing "." and
// "-" trimmed, spoken "dot" mapped to "." and whitespace removed. URLs with
// an http(s) scheme are kept, domain-like strings get "https://" and
// anything else becomes a web search. An empty input yields "".
func DirectTarget(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = dotRunRe.ReplaceAllString(s, ".")
	s = hyphenRunRe.ReplaceAllString(s, "-")
	s = trailingRe.ReplaceAllString(s, "")
	s = spokenDotRe.ReplaceAllString(s, ".")
	s = spaceRe.ReplaceAllString(s, "")

	switch {
	case s == "":
		return ""
	case schemeRe.MatchString(s):
		return s
	case domainTailRe.MatchString(s):
		return "https://" + s
	default:
		return SearchURL(s)
	}
}
