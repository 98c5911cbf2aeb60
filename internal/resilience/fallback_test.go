package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestFallbackGroup_UsesFirstHealthy(t *testing.T) {
	t.Parallel()

	g := NewFallbackGroup[string](BreakerConfig{MaxFailures: 1, Cooldown: time.Hour})
	g.Add("openai", "openai")
	g.Add("browser", "browser")

	var tried []string
	used, err := g.Execute(func(v string) error {
		tried = append(tried, v)
		if v == "openai" {
			return errBackend
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if used != "browser" {
		t.Errorf("used = %q, want browser", used)
	}
	if len(tried) != 2 {
		t.Errorf("tried = %v, want both", tried)
	}

	// openai is now open and skipped without a call.
	tried = nil
	_, _ = g.Execute(func(v string) error {
		tried = append(tried, v)
		return nil
	})
	if len(tried) != 1 || tried[0] != "browser" {
		t.Errorf("tried = %v, want [browser]", tried)
	}
	if got := g.States()["openai"]; got != StateOpen {
		t.Errorf("openai state = %v, want open", got)
	}
}

func TestFallbackGroup_IgnoredErrorFallsThrough(t *testing.T) {
	t.Parallel()

	errIdle := errors.New("nobody listening")
	g := NewFallbackGroup[string](BreakerConfig{
		MaxFailures: 1,
		Cooldown:    time.Hour,
		IsFailure:   func(err error) bool { return !errors.Is(err, errIdle) },
	})
	g.Add("bridge", "bridge")
	g.Add("console", "console")

	for range 3 {
		used, err := g.Execute(func(v string) error {
			if v == "bridge" {
				return errIdle
			}
			return nil
		})
		if err != nil || used != "console" {
			t.Fatalf("Execute = %q, %v; want console", used, err)
		}
	}
	if got := g.States()["bridge"]; got != StateClosed {
		t.Errorf("bridge state = %v, want closed", got)
	}
}

func TestFallbackGroup_AllFailed(t *testing.T) {
	t.Parallel()

	g := NewFallbackGroup[int](BreakerConfig{})
	g.Add("one", 1)
	g.Add("two", 2)

	_, err := g.Execute(func(int) error { return errBackend })
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
	if !errors.Is(err, errBackend) {
		t.Errorf("err = %v, want wrapped backend error", err)
	}
}

func TestFallbackGroup_Empty(t *testing.T) {
	t.Parallel()

	g := NewFallbackGroup[int](BreakerConfig{})
	if _, err := g.Execute(func(int) error { return nil }); !errors.Is(err, ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
	if g.Len() != 0 {
		t.Errorf("Len() = %d, want 0", g.Len())
	}
}
