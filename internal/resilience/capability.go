package resilience

import (
	"context"
	"log/slog"

	"github.com/MrWong99/shifra/pkg/capability"
)

// TextSpeaker is a speech backend that reports delivery failures.
type TextSpeaker interface {
	SpeakText(ctx context.Context, u capability.Utterance) error
}

// NotificationSender is a notification backend that reports delivery
// failures.
type NotificationSender interface {
	SendNotification(ctx context.Context, title, body string) error
}

// Compile-time interface checks.
var (
	_ capability.Speaker  = (*SpeechFallback)(nil)
	_ capability.Notifier = (*NotifyFallback)(nil)
)

// SpeechFallback is a [capability.Speaker] that hands each utterance to the
// first healthy speech backend.
type SpeechFallback struct {
	group *FallbackGroup[TextSpeaker]
}

// NewSpeechFallback returns an empty SpeechFallback. Add backends with
// [SpeechFallback.Add]; with none added Speak is a no-op.
func NewSpeechFallback(cfg BreakerConfig) *SpeechFallback {
	return &SpeechFallback{group: NewFallbackGroup[TextSpeaker](cfg)}
}

// Add registers a speech backend after the ones already added.
func (s *SpeechFallback) Add(name string, backend TextSpeaker) {
	s.group.Add(name, backend)
}

// States reports the breaker state of every backend.
func (s *SpeechFallback) States() map[string]State { return s.group.States() }

// Speak implements [capability.Speaker]. Failure of every backend is logged
// and otherwise ignored.
func (s *SpeechFallback) Speak(ctx context.Context, u capability.Utterance) {
	if s.group.Len() == 0 {
		return
	}
	used, err := s.group.Execute(func(b TextSpeaker) error { return b.SpeakText(ctx, u) })
	if err != nil {
		slog.Warn("resilience: utterance not spoken", "text", u.Text, "err", err)
		return
	}
	slog.Debug("resilience: utterance spoken", "backend", used)
}

// NotifyFallback is a [capability.Notifier] that delivers each notification
// through the first healthy backend.
type NotifyFallback struct {
	group *FallbackGroup[NotificationSender]
}

// NewNotifyFallback returns an empty NotifyFallback.
func NewNotifyFallback(cfg BreakerConfig) *NotifyFallback {
	return &NotifyFallback{group: NewFallbackGroup[NotificationSender](cfg)}
}

// Add registers a notification backend after the ones already added.
func (n *NotifyFallback) Add(name string, backend NotificationSender) {
	n.group.Add(name, backend)
}

// States reports the breaker state of every backend.
func (n *NotifyFallback) States() map[string]State { return n.group.States() }

// Notify implements [capability.Notifier].
func (n *NotifyFallback) Notify(ctx context.Context, title, body string) {
	if n.group.Len() == 0 {
		return
	}
	used, err := n.group.Execute(func(b NotificationSender) error { return b.SendNotification(ctx, title, body) })
	if err != nil {
		slog.Warn("resilience: notification not delivered", "title", title, "err", err)
		return
	}
	slog.Debug("resilience: notification delivered", "backend", used)
}
