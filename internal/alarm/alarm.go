// Package alarm implements persistent one-shot reminders.
//
// An [Alarm] is created by the command interpreter, persisted through a
// [Repository] and armed by the [Scheduler]. Each pending alarm has exactly
// one live timer. When the timer fires the scheduler speaks the label, raises
// a notification, optionally opens the alarm's URL and removes the alarm from
// the persisted set. Alarms survive restarts: [Scheduler.Restore] re-arms
// everything that was pending and fires overdue alarms immediately.
package alarm

import (
	"errors"
	"time"
)

// DefaultLabel is used for alarms created without a label.
const DefaultLabel = "Alarm"

// ErrNotFound is returned by [Scheduler.Cancel] when no pending alarm carries
// the requested id.
var ErrNotFound = errors.New("alarm: not found")

// Alarm is a single pending reminder. The JSON form is the persisted schema.
type Alarm struct {
	// ID is the creation time in Unix milliseconds plus a jitter in
	// [0, 1000). Unique among pending alarms.
	ID int64 `json:"id"`

	// When is the due time in Unix milliseconds.
	When int64 `json:"when"`

	// Label is spoken and shown when the alarm fires.
	Label string `json:"label"`

	// URL, when set, is opened in a new tab when the alarm fires.
	URL string `json:"url,omitempty"`
}

// Time returns the due time as a [time.Time].
func (a Alarm) Time() time.Time {
	return time.UnixMilli(a.When)
}

// Due reports whether a is due at now.
func (a Alarm) Due(now time.Time) bool {
	return a.When <= now.UnixMilli()
}
