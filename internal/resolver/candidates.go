package resolver

import (
	"slices"
	"strings"
)

// MaxCandidates bounds every candidate list.
const MaxCandidates = 12

var tlds = []string{".com", ".in", ".org", ".net", ".co.in"}

// guessBase picks the base name from the tokens of a cleaned phrase: the
// final token, or all tokens joined when the final token has two characters
// or fewer.
func guessBase(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	last := tokens[len(tokens)-1]
	if len(last) > 2 {
		return last
	}
	return strings.Join(tokens, "")
}

// Guesses generates domain guesses for base and the surrounding tokens. The
// variants are base, the concatenated tokens and the hyphenated tokens; each
// variant is combined with every TLD with and without "www.". The result is
// deduplicated, free of doubled hyphens and at most [MaxCandidates] long.
func Guesses(base string, tokens []string) []string {
	variants := []string{base, strings.Join(tokens, ""), strings.Join(tokens, "-")}
	for i, v := range variants {
		variants[i] = sanitize(v)
	}

	var out []string
	seen := make(map[string]bool)
	for _, tld := range tlds {
		for _, v := range variants {
			if v == "" {
				continue
			}
			for _, u := range []string{"https://" + v + tld, "https://www." + v + tld} {
				if seen[u] || strings.Contains(u, "--") {
					continue
				}
				seen[u] = true
				out = append(out, u)
				if len(out) == MaxCandidates {
					return out
				}
			}
		}
	}
	return out
}

// dedupCap removes duplicates keeping the first occurrence and truncates to
// [MaxCandidates].
func dedupCap(urls []string) []string {
	out := make([]string, 0, min(len(urls), MaxCandidates))
	for _, u := range urls {
		if u == "" || slices.Contains(out, u) {
			continue
		}
		out = append(out, u)
		if len(out) == MaxCandidates {
			break
		}
	}
	return out
}
