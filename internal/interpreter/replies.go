package interpreter

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/shifra/internal/alarm"
)

// Fixed replies.
const (
	ReplyEmpty    = "I did not understand. Please say again."
	ReplyHello    = "Hello sir! How can I help you?"
	ReplyIdentity = "I am Shifra, your virtual assistant made by Sahil."
	ReplyCreator  = "I was made by Sahil."
	ReplyNoAlarms = "You have no alarms set."
	ReplyBadTime  = "I could not understand the alarm time. Say set alarm at 6 30 AM, or set alarm in 10 minutes."
	ReplyFallback = "I did not understand that. Try: play <song> on YouTube, set alarm at 6 30 AM, or say open <website>."
)

const (
	alarmLayout = "Jan 2, 2006 3:04 PM"
	clockLayout = "03:04 PM"
	dateLayout  = "Monday, January 2, 2006"
)

// Greeting returns the session greeting for the local hour of now.
func Greeting(now time.Time) string {
	part := "evening"
	switch h := now.Hour(); {
	case h < 12:
		part = "morning"
	case h < 18:
		part = "afternoon"
	}
	return "Good " + part + " sir! I am Shifra. How can I help you?"
}

func alarmSetReply(a alarm.Alarm, loc *time.Location) string {
	return fmt.Sprintf("Alarm set for %s. Alarm id %d", a.Time().In(loc).Format(alarmLayout), a.ID)
}

func alarmListReply(alarms []alarm.Alarm, loc *time.Location) string {
	if len(alarms) == 0 {
		return ReplyNoAlarms
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You have %d alarms.", len(alarms))
	for _, a := range alarms {
		fmt.Fprintf(&b, " Alarm %d at %s, labeled %s.", a.ID, a.Time().In(loc).Format(alarmLayout), a.Label)
	}
	return b.String()
}
