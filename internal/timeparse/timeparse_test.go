package timeparse

import (
	"testing"
	"time"
)

// ref is 2026-03-14 10:15:00 UTC.
var ref = time.Date(2026, time.March, 14, 10, 15, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.March, day, hour, minute, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		want     time.Time
		wantForm Form
	}{
		{"relative minutes", "set alarm in 10 minutes", ref.Add(10 * time.Minute), FormRelative},
		{"relative singular", "set alarm in 1 hour", ref.Add(time.Hour), FormRelative},
		{"relative seconds no space", "set alarm in 30seconds", ref.Add(30 * time.Second), FormRelative},
		{"absolute pm later today", "set alarm at 6:30 pm", at(14, 18, 30), FormAbsolute},
		{"absolute am already passed", "set alarm at 6:30 am", at(15, 6, 30), FormAbsolute},
		{"absolute hour only", "set alarm at 11", at(14, 11, 0), FormAbsolute},
		{"absolute twelve pm stays noon", "set alarm at 12 pm", at(14, 12, 0), FormAbsolute},
		{"absolute twelve am is midnight", "set alarm at 12 am", at(15, 0, 0), FormAbsolute},
		{"absolute attached meridiem", "set alarm at 7pm", at(14, 19, 0), FormAbsolute},
		{"clock fallback", "set alarm 21:05", at(14, 21, 5), FormClock},
		{"clock rolls over", "set alarm 09:00", at(15, 9, 0), FormClock},
		{"relative wins over absolute", "set alarm in 5 minutes at 6 pm", ref.Add(5 * time.Minute), FormRelative},
		{"upper case input", "SET ALARM AT 6:30 PM", at(14, 18, 30), FormAbsolute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, form, ok := Parse(tt.text, ref)
			if !ok {
				t.Fatalf("Parse(%q): no match", tt.text)
			}
			if form != tt.wantForm {
				t.Errorf("form = %v, want %v", form, tt.wantForm)
			}
			if !got.Equal(tt.want) {
				t.Errorf("when = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParse_NoMatch(t *testing.T) {
	t.Parallel()

	for _, text := range []string{
		"set alarm",
		"set alarm tomorrow morning",
		"set alarm at 25:00",
		"set alarm 7:75",
		"set alarm for ten minutes",
	} {
		if got, form, ok := Parse(text, ref); ok {
			t.Errorf("Parse(%q) = %v (%v), want no match", text, got, form)
		}
	}
}

func TestAbsolute_ExactlyNowRollsForward(t *testing.T) {
	t.Parallel()

	got, ok := Absolute("at 10:15", ref)
	if !ok {
		t.Fatal("no match")
	}
	if want := at(15, 10, 15); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParse_AlwaysFuture(t *testing.T) {
	t.Parallel()

	// Every wall-clock minute of the day must resolve strictly after ref.
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m += 7 {
			text := "at " + time.Date(0, 1, 1, h, m, 0, 0, time.UTC).Format("15:04")
			got, _, ok := Parse(text, ref)
			if !ok {
				t.Fatalf("Parse(%q): no match", text)
			}
			if !got.After(ref) {
				t.Fatalf("Parse(%q) = %v, not after %v", text, got, ref)
			}
			if got.Sub(ref) > 24*time.Hour {
				t.Fatalf("Parse(%q) = %v, more than a day ahead", text, got)
			}
		}
	}
}

func TestForm_String(t *testing.T) {
	t.Parallel()

	for form, want := range map[Form]string{
		FormNone:     "none",
		FormRelative: "relative",
		FormAbsolute: "absolute",
		FormClock:    "clock",
	} {
		if got := form.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", form, got, want)
		}
	}
}

func TestParse_RelativeOutOfRange(t *testing.T) {
	t.Parallel()

	for _, text := range []string{
		"set alarm in 3000000 hours",
		"set alarm in 9223372036854775807 seconds",
		"set alarm in 99999999999999999999 minutes",
		"set alarm in 3000000 hours at 6 pm",
	} {
		if got, form, ok := Parse(text, ref); ok {
			t.Errorf("Parse(%q) = %v (%v), want no match", text, got, form)
		}
		if got, ok := Relative(text, ref); ok {
			t.Errorf("Relative(%q) = %v, want no match", text, got)
		}
	}

	got, ok := Relative("in 2562047 hours", ref)
	if !ok {
		t.Fatal("largest representable hour count rejected")
	}
	if !got.After(ref) {
		t.Errorf("Relative = %v, want after %v", got, ref)
	}
}

func TestIsTimeOnly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text       string
		only       bool
		startsWith bool
	}{
		{"6 pm", true, true},
		{"at 7", true, true},
		{"6:30", true, true},
		{" 7am ", true, true},
		{"in 5 minutes", true, true},
		{"6:30 to wake up", false, true},
		{"7 am tomorrow", false, true},
		{"wake up", false, false},
		{"call mom at 5", false, false},
		{"open github", false, false},
		{"10 things", false, true},
		{"", false, false},
	}
	for _, tt := range tests {
		if got := IsTimeOnly(tt.text); got != tt.only {
			t.Errorf("IsTimeOnly(%q) = %v, want %v", tt.text, got, tt.only)
		}
		if got := StartsWithTime(tt.text); got != tt.startsWith {
			t.Errorf("StartsWithTime(%q) = %v, want %v", tt.text, got, tt.startsWith)
		}
	}
}
