// Package resolver turns spoken destination phrases into ranked URL
// candidates.
//
// Resolution is pure and deterministic: the same phrase always yields the
// same [Resolution]. Opening the primary candidate and rendering the
// fallback list are left to the caller's capabilities.
//
// The pipeline tries, in order: an explicit domain in the phrase, a known
// service name, a "<query> on <platform>" music phrase, a bare "play <query>"
// phrase, generated domain guesses and finally a plain web search.
package resolver

import (
	"regexp"
	"strings"
)

// Kind identifies which branch of the pipeline produced a [Resolution].
type Kind int

const (
	// KindEmpty means nothing was left after normalization.
	KindEmpty Kind = iota
	KindDomain
	KindService
	KindMusic
	KindPlay
	KindGuess
	KindSearch
)

// String returns the lower-case kind name used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindDomain:
		return "domain"
	case KindService:
		return "service"
	case KindMusic:
		return "music"
	case KindPlay:
		return "play"
	case KindGuess:
		return "guess"
	case KindSearch:
		return "search"
	default:
		return "unknown"
	}
}

// EmptyPrompt is announced when a phrase normalizes to nothing.
const EmptyPrompt = "Which site should I open?"

// Resolution is the outcome of resolving one phrase.
type Resolution struct {
	Kind Kind

	// Cleaned is the normalized phrase.
	Cleaned string

	// Label names the destination in the fallback list.
	Label string

	// Candidates is the ranked URL list. Index 0 is the primary candidate;
	// the full list is offered as fallback. Never longer than
	// [MaxCandidates].
	Candidates []string

	// Announcement is what the assistant says before opening.
	Announcement string
}

// Primary returns the first candidate, or "" for [KindEmpty].
func (r Resolution) Primary() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0]
}

var (
	domainRe = regexp.MustCompile(`[a-z0-9-]+\.[a-z]{2,}(\.[a-z]{2,})?`)
	musicRe  = regexp.MustCompile(`(.+?)\s+(?:on|in)\s+(youtube music|youtube|spotify)`)
	playRe   = regexp.MustCompile(`^play\s+(.+)`)
)

// Resolve runs the resolution pipeline on phrase.
func Resolve(phrase string) Resolution {
	cleaned := Normalize(phrase)
	if cleaned == "" {
		return Resolution{Kind: KindEmpty, Announcement: EmptyPrompt}
	}

	if d := domainRe.FindString(cleaned); d != "" {
		if d = sanitize(d); d != "" {
			return Resolution{
				Kind:         KindDomain,
				Cleaned:      cleaned,
				Label:        cleaned,
				Candidates:   dedupCap([]string{"https://" + d, SearchURL(cleaned)}),
				Announcement: "Opening " + d,
			}
		}
	}

	for _, svc := range services {
		if !strings.Contains(cleaned, svc.name) {
			continue
		}
		tokens := strings.Fields(svc.name)
		base := strings.Join(tokens, "")
		return Resolution{
			Kind:         KindService,
			Cleaned:      cleaned,
			Label:        cleaned,
			Candidates:   dedupCap(append([]string{svc.url}, Guesses(base, tokens)...)),
			Announcement: "Opening " + svc.name,
		}
	}

	// Every platform is also a service, so this only fires for a platform
	// missing from the service table.
	if music := musicRe.FindStringSubmatch(cleaned); music != nil {
		q := strings.TrimSpace(strings.TrimPrefix(music[1], "play "))
		if q != "" && q != "play" {
			res := Play(q, Platform(music[2]))
			res.Cleaned = cleaned
			res.Announcement = "Searching " + q + " on " + Platform(music[2]).String()
			return res
		}
	}

	if m := playRe.FindStringSubmatch(cleaned); m != nil {
		q := strings.TrimSpace(m[1])
		return Resolution{
			Kind:         KindPlay,
			Cleaned:      cleaned,
			Label:        q,
			Candidates:   []string{YouTubeMusic.SearchURL(q), YouTube.SearchURL(q)},
			Announcement: "Searching " + q + " on " + YouTubeMusic.String(),
		}
	}

	tokens := strings.Fields(cleaned)
	base := guessBase(tokens)
	if guesses := Guesses(base, tokens); len(guesses) > 0 {
		if len(guesses) > MaxCandidates-1 {
			guesses = guesses[:MaxCandidates-1]
		}
		return Resolution{
			Kind:         KindGuess,
			Cleaned:      cleaned,
			Label:        cleaned,
			Candidates:   dedupCap(append(guesses, SearchURL(cleaned))),
			Announcement: "Attempting to open " + base,
		}
	}

	return Resolution{
		Kind:         KindSearch,
		Cleaned:      cleaned,
		Label:        cleaned,
		Candidates:   []string{SearchURL(cleaned)},
		Announcement: "Searching the web for " + cleaned,
	}
}

// Play builds a direct platform search for query without running the
// resolution pipeline. Spotify has no fallback; the two YouTube platforms
// fall back to each other.
func Play(query string, p Platform) Resolution {
	var candidates []string
	switch p {
	case Spotify:
		candidates = []string{Spotify.SearchURL(query)}
	case YouTubeMusic:
		candidates = []string{YouTubeMusic.SearchURL(query), YouTube.SearchURL(query)}
	default:
		p = YouTube
		candidates = []string{YouTube.SearchURL(query), YouTubeMusic.SearchURL(query)}
	}
	return Resolution{
		Kind:         KindMusic,
		Cleaned:      query,
		Label:        query,
		Candidates:   candidates,
		Announcement: "Playing " + query + " on " + p.String(),
	}
}
