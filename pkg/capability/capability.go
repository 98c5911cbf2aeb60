// Package capability defines the side-effect ports the assistant core talks
// through: speech output, system notifications, opening destinations and
// rendering fallback links.
//
// Every capability is fire-and-forget. Implementations never return errors to
// the core; an unavailable device degrades to a silent no-op (optionally
// logged). This keeps every decision in the core testable without a browser
// or speaker attached.
package capability

import (
	"context"
	"sync/atomic"
)

// Utterance is a single piece of text to be spoken.
type Utterance struct {
	// Text is what should be said.
	Text string `json:"text"`

	// Locale is a BCP 47 language tag such as "en-IN".
	Locale string `json:"locale"`

	// Rate is the speaking rate multiplier; 1 is normal speed.
	Rate float64 `json:"rate"`

	// Pitch is the voice pitch multiplier; 1 is normal pitch.
	Pitch float64 `json:"pitch"`
}

// Voice holds the speech parameters applied to utterances that do not set
// their own.
type Voice struct {
	Locale string  `json:"locale" yaml:"locale"`
	Rate   float64 `json:"rate" yaml:"rate"`
	Pitch  float64 `json:"pitch" yaml:"pitch"`
}

// DefaultVoice is used when no voice is configured.
var DefaultVoice = Voice{Locale: "en-IN", Rate: 1, Pitch: 1}

// Apply fills the zero-valued speech parameters of u from v.
func (v Voice) Apply(u Utterance) Utterance {
	if u.Locale == "" {
		u.Locale = v.Locale
	}
	if u.Rate == 0 {
		u.Rate = v.Rate
	}
	if u.Pitch == 0 {
		u.Pitch = v.Pitch
	}
	return u
}

// Speaker produces best-effort voice output.
type Speaker interface {
	Speak(ctx context.Context, u Utterance)
}

// Notifier raises a best-effort system notification. It must be a silent
// no-op when notification permission is unavailable.
type Notifier interface {
	Notify(ctx context.Context, title, body string)
}

// Opener navigates to or opens url. newTab requests a new browser tab rather
// than replacing the current page.
type Opener interface {
	Open(ctx context.Context, url string, newTab bool)
}

// FallbackRenderer presents a ranked list of alternative destinations on a
// visual side channel.
type FallbackRenderer interface {
	RenderFallback(ctx context.Context, label string, urls []string)
}

// Set bundles the capabilities the core consumes. Nil members are treated as
// unavailable and silently skipped by the helper methods.
type Set struct {
	Speaker  Speaker
	Notifier Notifier
	Opener   Opener
	Renderer FallbackRenderer
}

// Speak forwards u to the configured Speaker, if any.
func (s Set) Speak(ctx context.Context, u Utterance) {
	if s.Speaker != nil {
		s.Speaker.Speak(ctx, u)
	}
}

// Notify forwards to the configured Notifier, if any.
func (s Set) Notify(ctx context.Context, title, body string) {
	if s.Notifier != nil {
		s.Notifier.Notify(ctx, title, body)
	}
}

// Open forwards to the configured Opener, if any.
func (s Set) Open(ctx context.Context, url string, newTab bool) {
	if s.Opener != nil && url != "" {
		s.Opener.Open(ctx, url, newTab)
	}
}

// RenderFallback forwards to the configured FallbackRenderer, if any.
func (s Set) RenderFallback(ctx context.Context, label string, urls []string) {
	if s.Renderer != nil && len(urls) > 0 {
		s.Renderer.RenderFallback(ctx, label, urls)
	}
}

// TunedSpeaker decorates a Speaker with a hot-swappable default [Voice]. The
// core emits plain text utterances and TunedSpeaker fills in locale, rate and
// pitch from the current settings.
type TunedSpeaker struct {
	next  Speaker
	voice atomic.Pointer[Voice]
}

// NewTunedSpeaker wraps next with the given default voice.
func NewTunedSpeaker(next Speaker, v Voice) *TunedSpeaker {
	ts := &TunedSpeaker{next: next}
	ts.SetVoice(v)
	return ts
}

// SetVoice replaces the default voice. Safe for concurrent use.
func (t *TunedSpeaker) SetVoice(v Voice) {
	t.voice.Store(&v)
}

// Voice returns the current default voice.
func (t *TunedSpeaker) Voice() Voice {
	return *t.voice.Load()
}

// Speak implements [Speaker].
func (t *TunedSpeaker) Speak(ctx context.Context, u Utterance) {
	if t.next == nil {
		return
	}
	t.next.Speak(ctx, t.voice.Load().Apply(u))
}

// Join returns a Set that forwards every call to each of sets in order.
// Nil members of the inputs are skipped.
func Join(sets ...Set) Set {
	m := multi(sets)
	return Set{Speaker: m, Notifier: m, Opener: m, Renderer: m}
}

type multi []Set

func (m multi) Speak(ctx context.Context, u Utterance) {
	for _, s := range m {
		s.Speak(ctx, u)
	}
}

func (m multi) Notify(ctx context.Context, title, body string) {
	for _, s := range m {
		s.Notify(ctx, title, body)
	}
}

func (m multi) Open(ctx context.Context, url string, newTab bool) {
	for _, s := range m {
		s.Open(ctx, url, newTab)
	}
}

func (m multi) RenderFallback(ctx context.Context, label string, urls []string) {
	for _, s := range m {
		s.RenderFallback(ctx, label, urls)
	}
}
