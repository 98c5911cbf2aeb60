// Package timeparse turns spoken time expressions into absolute instants.
//
// Three forms are recognised, always tried in this order with the first match
// winning:
//
//  1. Relative: "in 10 minutes", "in 1 hour", "in 30 seconds".
//  2. Absolute: "at 6", "at 6:30", "at 6:30 pm", "at 12 am".
//  3. Clock: a bare "6:30" anywhere in the text.
//
// Absolute and clock forms resolve to today's date in the location of the
// reference instant and roll forward exactly one day when the result is not
// strictly in the future. All functions are pure; the caller supplies "now".
package timeparse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Form identifies which expression shape produced a result.
type Form int

const (
	// FormNone means no recognisable time expression was found.
	FormNone Form = iota

	// FormRelative is "in <N> <unit>".
	FormRelative

	// FormAbsolute is "at <H>[:<MM>] [am|pm]".
	FormAbsolute

	// FormClock is a bare "<H>:<MM>".
	FormClock
)

// String returns the lower-case name of the form.
func (f Form) String() string {
	switch f {
	case FormRelative:
		return "relative"
	case FormAbsolute:
		return "absolute"
	case FormClock:
		return "clock"
	default:
		return "none"
	}
}

var (
	relativeRe = regexp.MustCompile(`\bin\s+(\d+)\s*(second|minute|hour)s?\b`)
	absoluteRe = regexp.MustCompile(`\bat\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	clockRe    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

// timeExpr is a single relative or absolute/clock expression with nothing
// around it.
const timeExpr = `(?:in\s+\d+\s*(?:second|minute|hour)s?|(?:at\s+)?\d{1,2}(?::\d{2})?\s*(?:am|pm)?)`

var (
	timeOnlyRe    = regexp.MustCompile(`^` + timeExpr + `$`)
	leadingTimeRe = regexp.MustCompile(`^` + timeExpr + `\b`)
)

// IsTimeOnly reports whether s, ignoring case and surrounding space, is
// nothing but a time expression such as "6:30 pm", "at 7" or "in 5 minutes".
func IsTimeOnly(s string) bool {
	return timeOnlyRe.MatchString(strings.ToLower(strings.TrimSpace(s)))
}

// StartsWithTime reports whether s begins with a time expression, as in
// "6:30 to wake up".
func StartsWithTime(s string) bool {
	return leadingTimeRe.MatchString(strings.ToLower(strings.TrimSpace(s)))
}

// Parse resolves the first recognised time expression in text relative to
// now. ok is false when none of the three forms matches, or when a relative
// expression is present but its duration is out of range.
func Parse(text string, now time.Time) (when time.Time, form Form, ok bool) {
	text = strings.ToLower(text)
	if t, found, ok := relative(text, now); found {
		if !ok {
			return time.Time{}, FormNone, false
		}
		return t, FormRelative, true
	}
	if t, ok := Absolute(text, now); ok {
		return t, FormAbsolute, true
	}
	if t, ok := Clock(text, now); ok {
		return t, FormClock, true
	}
	return time.Time{}, FormNone, false
}

// Relative parses "in <N> (second|minute|hour)s?" and returns now + N units.
// Durations that do not fit a [time.Duration] are not a match.
func Relative(text string, now time.Time) (time.Time, bool) {
	t, _, ok := relative(text, now)
	return t, ok
}

// relative reports whether text contains a relative expression at all
// (found) and whether it resolved to a valid future instant (ok).
func relative(text string, now time.Time) (t time.Time, found, ok bool) {
	m := relativeRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, true, false
	}
	var unit time.Duration
	switch m[2] {
	case "second":
		unit = time.Second
	case "minute":
		unit = time.Minute
	case "hour":
		unit = time.Hour
	}
	if n > math.MaxInt64/int64(unit) {
		return time.Time{}, true, false
	}
	t = now.Add(time.Duration(n) * unit)
	if t.Before(now) {
		return time.Time{}, true, false
	}
	return t, true, true
}

// Absolute parses "at <H>[:<MM>] [am|pm]" using 12-hour arithmetic when a
// meridiem is present: pm adds 12 unless the hour is already 12, am turns 12
// into 0. Out-of-range hours or minutes are not a match.
func Absolute(text string, now time.Time) (time.Time, bool) {
	m := absoluteRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	minute := 0
	if m[2] != "" {
		if minute, err = strconv.Atoi(m[2]); err != nil {
			return time.Time{}, false
		}
	}
	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return nextOccurrence(now, hour, minute)
}

// Clock parses a bare "<H>:<MM>" in 24-hour terms.
func Clock(text string, now time.Time) (time.Time, bool) {
	m := clockRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	minute, err := strconv.Atoi(m[2])
	if err != nil {
		return time.Time{}, false
	}
	return nextOccurrence(now, hour, minute)
}

// nextOccurrence returns today's hour:minute in now's location, or the same
// wall time tomorrow when that is not strictly after now.
func nextOccurrence(now time.Time, hour, minute int) (time.Time, bool) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, false
	}
	y, mo, d := now.Date()
	t := time.Date(y, mo, d, hour, minute, 0, 0, now.Location())
	if !t.After(now) {
		t = time.Date(y, mo, d+1, hour, minute, 0, 0, now.Location())
	}
	return t, true
}
