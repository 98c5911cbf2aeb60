package resolver

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Open Example dot com", "example.com"},
		{"open the website please", ""},
		{"go to   Flipkart!", "flipkart"},
		{"visit my-blog..org", "my-blog.org"},
		{"launch web site", ""},
		{"play on youtube", "youtube"},
		{"play lofi beats", "play lofi beats"},
		{"website", ""},
		{"a---b", "a-b"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		phrase   string
		kind     Kind
		want     []string // full candidate list, when set
		primary  string
		announce string
	}{
		{
			name:     "explicit domain",
			phrase:   "open example.com",
			kind:     KindDomain,
			want:     []string{"https://example.com", "https://www.google.com/search?q=example.com"},
			announce: "Opening example.com",
		},
		{
			name:    "spoken dot domain",
			phrase:  "go to golang dot org",
			kind:    KindDomain,
			primary: "https://golang.org",
		},
		{
			name:    "www domain",
			phrase:  "visit www.example.com",
			kind:    KindDomain,
			primary: "https://www.example.com",
		},
		{
			name:     "known service",
			phrase:   "open flipkart",
			kind:     KindService,
			primary:  "https://www.flipkart.com",
			announce: "Opening flipkart",
		},
		{
			name:    "specific service wins",
			phrase:  "open youtube music",
			kind:    KindService,
			primary: "https://music.youtube.com",
		},
		{
			name:     "service wins over music phrase on spotify",
			phrase:   "lofi beats on spotify",
			kind:     KindService,
			primary:  "https://open.spotify.com",
			announce: "Opening spotify",
		},
		{
			name:     "service wins over music phrase on youtube music",
			phrase:   "play jazz in youtube music",
			kind:     KindService,
			primary:  "https://music.youtube.com",
			announce: "Opening youtube music",
		},
		{
			name:     "search naming a platform opens the service",
			phrase:   "search lofi on youtube",
			kind:     KindService,
			primary:  "https://www.youtube.com",
			announce: "Opening youtube",
		},
		{
			name:   "bare play",
			phrase: "play lofi beats",
			kind:   KindPlay,
			want: []string{
				"https://music.youtube.com/search?q=lofi%20beats",
				"https://www.youtube.com/results?search_query=lofi%20beats",
			},
			announce: "Searching lofi beats on YouTube Music",
		},
		{
			name:     "guess from last token",
			phrase:   "open my cool blog",
			kind:     KindGuess,
			primary:  "https://blog.com",
			announce: "Attempting to open blog",
		},
		{
			name:     "guess joins short last token",
			phrase:   "open bbc uk",
			kind:     KindGuess,
			primary:  "https://bbcuk.com",
			announce: "Attempting to open bbcuk",
		},
		{
			name:     "search when nothing is guessable",
			phrase:   "open - . -",
			kind:     KindSearch,
			want:     []string{"https://www.google.com/search?q=-%20.%20-"},
			announce: "Searching the web for - . -",
		},
		{
			name:     "empty",
			phrase:   "open the website please",
			kind:     KindEmpty,
			announce: EmptyPrompt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Resolve(tt.phrase)
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v (candidates %v)", got.Kind, tt.kind, got.Candidates)
			}
			if tt.want != nil {
				if diff := cmp.Diff(tt.want, got.Candidates); diff != "" {
					t.Errorf("Candidates mismatch (-want +got):\n%s", diff)
				}
			}
			if tt.primary != "" && got.Primary() != tt.primary {
				t.Errorf("Primary() = %q, want %q", got.Primary(), tt.primary)
			}
			if tt.announce != "" && got.Announcement != tt.announce {
				t.Errorf("Announcement = %q, want %q", got.Announcement, tt.announce)
			}
		})
	}
}

func TestResolve_ServiceFallbacks(t *testing.T) {
	t.Parallel()

	got := Resolve("open flipkart").Candidates
	want := []string{
		"https://www.flipkart.com",
		"https://flipkart.com",
		"https://flipkart.in",
		"https://www.flipkart.in",
		"https://flipkart.org",
		"https://www.flipkart.org",
		"https://flipkart.net",
		"https://www.flipkart.net",
		"https://flipkart.co.in",
		"https://www.flipkart.co.in",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_GuessKeepsSearch(t *testing.T) {
	t.Parallel()

	got := Resolve("open my cool blog").Candidates
	if len(got) != MaxCandidates {
		t.Fatalf("len = %d, want %d", len(got), MaxCandidates)
	}
	wantHead := []string{
		"https://blog.com",
		"https://www.blog.com",
		"https://mycoolblog.com",
		"https://www.mycoolblog.com",
		"https://my-cool-blog.com",
		"https://www.my-cool-blog.com",
		"https://blog.in",
	}
	if diff := cmp.Diff(wantHead, got[:len(wantHead)]); diff != "" {
		t.Errorf("head mismatch (-want +got):\n%s", diff)
	}
	if last := got[len(got)-1]; last != SearchURL("my cool blog") {
		t.Errorf("last candidate = %q, want web search", last)
	}
}

func TestResolve_CandidateInvariants(t *testing.T) {
	t.Parallel()

	phrases := []string{
		"open example.com",
		"open the new york times",
		"go to a b c d e f",
		"visit x--y",
		"launch stack overflow",
		"open github please",
		"play shape of you on spotify",
		"open my really long website name here",
		"visit something dot co dot in",
		"open ..--..",
		"play",
		"open 123 456",
	}
	for _, p := range phrases {
		first := Resolve(p)
		second := Resolve(p)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("Resolve(%q) not deterministic:\n%s", p, diff)
		}
		if len(first.Candidates) > MaxCandidates {
			t.Errorf("Resolve(%q): %d candidates, want <= %d", p, len(first.Candidates), MaxCandidates)
		}
		seen := map[string]bool{}
		for _, c := range first.Candidates {
			if seen[c] {
				t.Errorf("Resolve(%q): duplicate candidate %q", p, c)
			}
			seen[c] = true
			if strings.Contains(c, "--") {
				t.Errorf("Resolve(%q): candidate %q contains doubled hyphen", p, c)
			}
		}
		if first.Kind != KindEmpty && len(first.Candidates) == 0 {
			t.Errorf("Resolve(%q): kind %v with no candidates", p, first.Kind)
		}
	}
}

func TestPlay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		platform Platform
		want     []string
		announce string
	}{
		{Spotify, []string{"https://open.spotify.com/search/shape%20of%20you"}, "Playing shape of you on Spotify"},
		{YouTubeMusic, []string{
			"https://music.youtube.com/search?q=shape%20of%20you",
			"https://www.youtube.com/results?search_query=shape%20of%20you",
		}, "Playing shape of you on YouTube Music"},
		{YouTube, []string{
			"https://www.youtube.com/results?search_query=shape%20of%20you",
			"https://music.youtube.com/search?q=shape%20of%20you",
		}, "Playing shape of you on YouTube"},
	}
	for _, tt := range tests {
		t.Run(string(tt.platform), func(t *testing.T) {
			t.Parallel()
			got := Play("shape of you", tt.platform)
			if diff := cmp.Diff(tt.want, got.Candidates); diff != "" {
				t.Errorf("Candidates mismatch (-want +got):\n%s", diff)
			}
			if got.Announcement != tt.announce {
				t.Errorf("Announcement = %q, want %q", got.Announcement, tt.announce)
			}
		})
	}
}

func TestDirectTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"https://example.com/path", "https://example.com/path"},
		{"HTTP://Example.com", "HTTP://Example.com"},
		{"example..com-", "https://example.com"},
		{"example dot com", "https://example.com"},
		{"news.ycombinator.com", "https://news.ycombinator.com"},
		{"my notes", "https://www.google.com/search?q=mynotes"},
		{"---", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := DirectTarget(tt.in); got != tt.want {
				t.Errorf("DirectTarget(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()
	if got := KindGuess.String(); got != "guess" {
		t.Errorf("KindGuess.String() = %q", got)
	}
	if got := Kind(99).String(); got != "unknown" {
		t.Errorf("Kind(99).String() = %q", got)
	}
}
