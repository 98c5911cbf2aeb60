// Package mock provides recording test doubles for the capability ports.
//
// A single Recorder implements every capability and keeps the calls in the
// order they happened, so tests can assert both what the core did and in
// which sequence.
//
// Example:
//
//	rec := &mock.Recorder{}
//	caps := rec.Set()
//	interp := interpreter.New(caps, ...)
//	interp.HandleCommand(ctx, "open example.com")
//	rec.Opened() // []string{"https://example.com"}
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/MrWong99/shifra/pkg/capability"
)

// Compile-time interface checks.
var (
	_ capability.Speaker          = (*Recorder)(nil)
	_ capability.Notifier         = (*Recorder)(nil)
	_ capability.Opener           = (*Recorder)(nil)
	_ capability.FallbackRenderer = (*Recorder)(nil)
)

// Kind names the capability a recorded Call went to.
type Kind string

const (
	KindSpeak    Kind = "speak"
	KindNotify   Kind = "notify"
	KindOpen     Kind = "open"
	KindFallback Kind = "fallback"
)

// Call records a single capability invocation. Only the fields relevant to
// Kind are populated.
type Call struct {
	Kind Kind

	// Speak
	Utterance capability.Utterance

	// Notify
	Title string
	Body  string

	// Open
	URL    string
	NewTab bool

	// Fallback
	Label string
	URLs  []string
}

// Recorder is a mock implementation of every capability interface. It is safe
// for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

// Set returns a capability.Set with every member pointing at r.
func (r *Recorder) Set() capability.Set {
	return capability.Set{Speaker: r, Notifier: r, Opener: r, Renderer: r}
}

// Speak records the utterance.
func (r *Recorder) Speak(_ context.Context, u capability.Utterance) {
	r.record(Call{Kind: KindSpeak, Utterance: u})
}

// Notify records the notification.
func (r *Recorder) Notify(_ context.Context, title, body string) {
	r.record(Call{Kind: KindNotify, Title: title, Body: body})
}

// Open records the destination.
func (r *Recorder) Open(_ context.Context, url string, newTab bool) {
	r.record(Call{Kind: KindOpen, URL: url, NewTab: newTab})
}

// RenderFallback records a copy of the fallback list.
func (r *Recorder) RenderFallback(_ context.Context, label string, urls []string) {
	r.record(Call{Kind: KindFallback, Label: label, URLs: slices.Clone(urls)})
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

// Calls returns a copy of all recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Spoken returns the text of every Speak call in order.
func (r *Recorder) Spoken() []string {
	var out []string
	for _, c := range r.Calls() {
		if c.Kind == KindSpeak {
			out = append(out, c.Utterance.Text)
		}
	}
	return out
}

// LastSpoken returns the text of the most recent Speak call, or "".
func (r *Recorder) LastSpoken() string {
	spoken := r.Spoken()
	if len(spoken) == 0 {
		return ""
	}
	return spoken[len(spoken)-1]
}

// Opened returns the URL of every Open call in order.
func (r *Recorder) Opened() []string {
	var out []string
	for _, c := range r.Calls() {
		if c.Kind == KindOpen {
			out = append(out, c.URL)
		}
	}
	return out
}

// Notifications returns every Notify call in order.
func (r *Recorder) Notifications() []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Kind == KindNotify {
			out = append(out, c)
		}
	}
	return out
}

// Fallbacks returns every RenderFallback call in order.
func (r *Recorder) Fallbacks() []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Kind == KindFallback {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears all recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
