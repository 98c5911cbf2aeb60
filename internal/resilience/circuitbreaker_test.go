package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"
)

var errBackend = errors.New("backend down")

// fakeNow is a settable clock for breaker tests.
type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeNow() *fakeNow {
	return &fakeNow{t: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Add(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func fail() error    { return errBackend }
func succeed() error { return nil }

func TestBreaker_Defaults(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{Name: "speech"})
	if b.cfg.MaxFailures != 3 || b.cfg.Cooldown != 30*time.Second || b.cfg.Probes != 1 {
		t.Errorf("defaults = %+v", b.cfg)
	}
	if got := b.State(); got != StateClosed {
		t.Errorf("initial state = %v, want closed", got)
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{Name: "speech", MaxFailures: 2, Cooldown: time.Minute})

	if err := b.Execute(fail); !errors.Is(err, errBackend) {
		t.Fatalf("first call err = %v, want backend error", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state after one failure = %v, want closed", b.State())
	}
	_ = b.Execute(fail)
	if b.State() != StateOpen {
		t.Fatalf("state after two failures = %v, want open", b.State())
	}

	called := false
	err := b.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("fn called while open")
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{MaxFailures: 2})
	_ = b.Execute(fail)
	_ = b.Execute(succeed)
	_ = b.Execute(fail)
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed after interleaved success", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		probe func() error
		want  State
	}{
		{name: "success closes", probe: succeed, want: StateClosed},
		{name: "failure re-opens", probe: fail, want: StateOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			clk := newFakeNow()
			b := NewBreaker(BreakerConfig{MaxFailures: 1, Cooldown: 10 * time.Second, Now: clk.Now})
			_ = b.Execute(fail)

			clk.Add(9 * time.Second)
			if b.State() != StateOpen {
				t.Fatalf("state before cool-down = %v, want open", b.State())
			}
			clk.Add(time.Second)
			if b.State() != StateHalfOpen {
				t.Fatalf("state after cool-down = %v, want half-open", b.State())
			}

			_ = b.Execute(tt.probe)
			if got := b.State(); got != tt.want {
				t.Errorf("state after probe = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBreaker_HalfOpenLimitsProbes(t *testing.T) {
	t.Parallel()

	clk := newFakeNow()
	b := NewBreaker(BreakerConfig{MaxFailures: 1, Cooldown: time.Second, Probes: 1, Now: clk.Now})
	_ = b.Execute(fail)
	clk.Add(time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Go(func() {
		_ = b.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	})
	<-started

	if err := b.Execute(succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second probe err = %v, want ErrCircuitOpen", err)
	}
	close(release)
	wg.Wait()

	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed after successful probe", b.State())
	}
}

func TestBreaker_IgnoredErrorsAreNeutral(t *testing.T) {
	t.Parallel()

	errIdle := errors.New("nobody listening")
	isFailure := func(err error) bool { return !errors.Is(err, errIdle) }
	idle := func() error { return errIdle }

	t.Run("closed", func(t *testing.T) {
		t.Parallel()
		b := NewBreaker(BreakerConfig{MaxFailures: 2, Cooldown: time.Hour, IsFailure: isFailure})

		for range 5 {
			if err := b.Execute(idle); !errors.Is(err, errIdle) {
				t.Fatalf("err = %v, want the call's error", err)
			}
		}
		if b.State() != StateClosed {
			t.Fatalf("state after ignored errors = %v, want closed", b.State())
		}

		_ = b.Execute(fail)
		_ = b.Execute(idle)
		_ = b.Execute(fail)
		if b.State() != StateOpen {
			t.Errorf("state = %v, want open: ignored errors must not reset the count", b.State())
		}
	})

	t.Run("half-open", func(t *testing.T) {
		t.Parallel()
		clk := newFakeNow()
		b := NewBreaker(BreakerConfig{MaxFailures: 1, Cooldown: time.Second, Probes: 1, Now: clk.Now, IsFailure: isFailure})
		_ = b.Execute(fail)
		clk.Add(time.Second)

		_ = b.Execute(idle)
		if b.State() != StateHalfOpen {
			t.Fatalf("state after an ignored half-open call = %v, want half-open", b.State())
		}
		if err := b.Execute(succeed); err != nil {
			t.Fatalf("next half-open call err = %v, want the slot released", err)
		}
		if b.State() != StateClosed {
			t.Errorf("state = %v, want closed", b.State())
		}
	})
}

func TestBreaker_Reset(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{MaxFailures: 1, Cooldown: time.Hour})
	_ = b.Execute(fail)
	b.Reset()
	if b.State() != StateClosed {
		t.Errorf("state after Reset = %v, want closed", b.State())
	}
	if err := b.Execute(succeed); err != nil {
		t.Errorf("Execute after Reset: %v", err)
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()

	for s, want := range map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(9):      "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
