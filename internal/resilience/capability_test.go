package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MrWong99/shifra/pkg/capability"
)

type fakeBackend struct {
	err error

	mu     sync.Mutex
	spoken []string
	titles []string
}

func (f *fakeBackend) SpeakText(_ context.Context, u capability.Utterance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.spoken = append(f.spoken, u.Text)
	return nil
}

func (f *fakeBackend) SendNotification(_ context.Context, title, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.titles = append(f.titles, title)
	return nil
}

func TestSpeechFallback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	primary := &fakeBackend{err: errors.New("quota exceeded")}
	browser := &fakeBackend{}

	s := NewSpeechFallback(BreakerConfig{MaxFailures: 2})
	s.Add("openai", primary)
	s.Add("browser", browser)

	s.Speak(ctx, capability.Utterance{Text: "Alarm ringing"})
	s.Speak(ctx, capability.Utterance{Text: "Good morning sir!"})

	if len(browser.spoken) != 2 {
		t.Errorf("browser spoke %v, want both utterances", browser.spoken)
	}
	if got := s.States()["openai"]; got != StateOpen {
		t.Errorf("openai breaker = %v, want open", got)
	}
}

func TestSpeechFallback_AllFailedIsSilent(t *testing.T) {
	t.Parallel()

	s := NewSpeechFallback(BreakerConfig{})
	s.Speak(context.Background(), capability.Utterance{Text: "nobody hears this"})

	s.Add("browser", &fakeBackend{err: errors.New("no clients")})
	s.Speak(context.Background(), capability.Utterance{Text: "nobody hears this"})
}

func TestNotifyFallback(t *testing.T) {
	t.Parallel()

	browser := &fakeBackend{err: errors.New("no clients")}
	webhook := &fakeBackend{}

	n := NewNotifyFallback(BreakerConfig{})
	n.Add("bridge", browser)
	n.Add("discord", webhook)

	n.Notify(context.Background(), "Alarm", "tea")

	if len(webhook.titles) != 1 || webhook.titles[0] != "Alarm" {
		t.Errorf("webhook titles = %v, want [Alarm]", webhook.titles)
	}
	if _, ok := n.States()["bridge"]; !ok {
		t.Error("States() missing bridge")
	}
}
