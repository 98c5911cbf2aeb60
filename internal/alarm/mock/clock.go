// Package mock provides a manually advanced [alarm.Clock] for tests.
//
// Timers created through Clock only fire when the test calls Advance, and
// they fire synchronously on the calling goroutine in deadline order:
//
//	clk := mock.NewClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
//	sched := alarm.NewScheduler(repo, caps, alarm.WithClock(clk))
//	sched.Add(ctx, alarm.Alarm{When: clk.Now().Add(time.Minute).UnixMilli()})
//	clk.Advance(time.Minute) // the alarm fires here
package mock

import (
	"slices"
	"sync"
	"time"

	"github.com/MrWong99/shifra/internal/alarm"
)

// Compile-time interface check.
var _ alarm.Clock = (*Clock)(nil)

// Clock is a fake clock. Safe for concurrent use.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*timer
}

type timer struct {
	clk      *Clock
	deadline time.Time
	seq      int
	f        func()
	done     bool
}

// NewClock returns a Clock set to now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now implements [alarm.Clock].
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc implements [alarm.Clock].
func (c *Clock) AfterFunc(d time.Duration, f func()) alarm.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &timer{clk: c, deadline: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Stop implements [alarm.Timer].
func (t *timer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.clk.timers = slices.DeleteFunc(t.clk.timers, func(o *timer) bool { return o == t })
	return true
}

// Advance moves the clock forward by d and runs every timer whose deadline
// is reached, earliest first. Callbacks run without the clock's lock held.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.done = true
		c.timers = slices.DeleteFunc(c.timers, func(o *timer) bool { return o == next })
		if next.deadline.After(c.now) {
			c.now = next.deadline
		}
		c.mu.Unlock()

		next.f()
	}
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *Clock) nextDueLocked(target time.Time) *timer {
	var next *timer
	for _, t := range c.timers {
		if t.deadline.After(target) {
			continue
		}
		if next == nil || t.deadline.Before(next.deadline) ||
			(t.deadline.Equal(next.deadline) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}
