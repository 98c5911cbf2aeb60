package interpreter

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/MrWong99/shifra/internal/alarm"
	"github.com/MrWong99/shifra/internal/resolver"
	"github.com/MrWong99/shifra/internal/timeparse"
)

// Rule names reported by [Interpreter.HandleCommand].
const (
	RuleEmpty       = "empty"
	RuleGreeting    = "greeting"
	RuleIdentity    = "identity"
	RulePlayOn      = "play-on-platform"
	RulePlay        = "play"
	RuleSetAlarm    = "set-alarm"
	RuleListAlarms  = "list-alarms"
	RuleCancelAlarm = "cancel-alarm"
	RuleOpenSite    = "open-site"
	RuleResolve     = "resolve"
	RuleTime        = "time"
	RuleDate        = "date"
	RuleCreator     = "creator"
	RuleFallback    = "fallback"
)

// Rule pairs a matcher with the action to run when it matches.
type Rule struct {
	// Name identifies the rule in logs, metrics and results.
	Name string

	// Match returns a non-nil slice when the rule applies to text. For regex
	// rules it is the submatch slice; containment rules return []string{text}.
	Match func(text string) []string

	// Action performs the command. m is the slice returned by Match.
	Action func(ctx context.Context, in *Interpreter, m []string)
}

func regex(re *regexp.Regexp) func(string) []string {
	return re.FindStringSubmatch
}

func contains(subs ...string) func(string) []string {
	return func(text string) []string {
		for _, s := range subs {
			if strings.Contains(text, s) {
				return []string{text}
			}
		}
		return nil
	}
}

var (
	playOnRe  = regexp.MustCompile(`play\s+(.+?)\s+(?:on|in)\s+(youtube music|youtube|spotify)`)
	playRe    = regexp.MustCompile(`^play\s+(.+)`)
	cancelRe  = regexp.MustCompile(`(?:cancel|delete|remove)\s+alarm\s+(\d{5,})`)
	openRe    = regexp.MustCompile(`^\s*(?:open|visit|go to|launch)\b`)
	genericRe = regexp.MustCompile(`^(?:play|open|visit|search)\b`)
	toForRe   = regexp.MustCompile(`\b(?:to|for)\s+`)
)

// defaultRules returns the rule table in priority order. The order is
// load-bearing: explicit play must win over generic resolution and alarm
// creation must win over the generic search catch-all.
func defaultRules() []Rule {
	return []Rule{
		{
			Name:  RuleGreeting,
			Match: contains("hello"),
			Action: func(ctx context.Context, in *Interpreter, _ []string) {
				in.say(ctx, ReplyHello)
			},
		},
		{
			Name:  RuleIdentity,
			Match: contains("who are you"),
			Action: func(ctx context.Context, in *Interpreter, _ []string) {
				in.say(ctx, ReplyIdentity)
			},
		},
		{
			Name:  RulePlayOn,
			Match: regex(playOnRe),
			Action: func(ctx context.Context, in *Interpreter, m []string) {
				in.open(ctx, resolver.Play(strings.TrimSpace(m[1]), resolver.Platform(m[2])))
			},
		},
		{
			Name: RulePlay,
			Match: func(text string) []string {
				if strings.Contains(text, "alarm") {
					return nil
				}
				return playRe.FindStringSubmatch(text)
			},
			Action: func(ctx context.Context, in *Interpreter, m []string) {
				song := strings.TrimSpace(m[1])
				res := resolver.Play(song, resolver.YouTubeMusic)
				res.Kind = resolver.KindPlay
				res.Announcement = "Searching " + song + " on " + resolver.YouTubeMusic.String()
				in.open(ctx, res)
			},
		},
		{
			Name: RuleSetAlarm,
			Match: func(text string) []string {
				if strings.HasPrefix(text, "set alarm") || strings.HasPrefix(text, "set an alarm") ||
					strings.Contains(text, "alarm in ") || strings.Contains(text, "alarm at ") {
					return []string{text}
				}
				return nil
			},
			Action: func(ctx context.Context, in *Interpreter, m []string) {
				in.setAlarm(ctx, m[0])
			},
		},
		{
			Name:  RuleListAlarms,
			Match: contains("list alarms", "show alarms", "what alarms"),
			Action: func(ctx context.Context, in *Interpreter, _ []string) {
				in.say(ctx, alarmListReply(in.alarms.List(), in.loc))
			},
		},
		{
			Name:  RuleCancelAlarm,
			Match: regex(cancelRe),
			Action: func(ctx context.Context, in *Interpreter, m []string) {
				in.cancelAlarm(ctx, m[1])
			},
		},
		{
			Name:  RuleOpenSite,
			Match: regex(openRe),
			Action: func(ctx context.Context, in *Interpreter, m []string) {
				in.resolve(ctx, m[0])
			},
		},
		{
			Name: RuleResolve,
			Match: func(text string) []string {
				if genericRe.MatchString(text) {
					return []string{text}
				}
				return contains("youtube", "spotify", ".com")(text)
			},
			Action: func(ctx context.Context, in *Interpreter, m []string) {
				in.resolve(ctx, m[0])
			},
		},
		{
			Name:  RuleTime,
			Match: contains("time"),
			Action: func(ctx context.Context, in *Interpreter, _ []string) {
				in.say(ctx, "The time is "+in.now().Format(clockLayout))
			},
		},
		{
			Name:  RuleDate,
			Match: contains("date"),
			Action: func(ctx context.Context, in *Interpreter, _ []string) {
				in.say(ctx, "Today is "+in.now().Format(dateLayout))
			},
		},
		{
			Name:  RuleCreator,
			Match: contains("who made you", "who created you"),
			Action: func(ctx context.Context, in *Interpreter, _ []string) {
				in.say(ctx, ReplyCreator)
			},
		},
	}
}

func (in *Interpreter) setAlarm(ctx context.Context, text string) {
	now := in.now()

	when, form, ok := timeparse.Parse(text, now)
	if !ok {
		in.say(ctx, ReplyBadTime)
		return
	}

	label := alarmLabel(text)
	var url string
	if label == "" {
		label = alarm.DefaultLabel
	} else if openRe.MatchString(label) {
		url = resolver.Resolve(label).Primary()
	}

	a := in.alarms.Add(ctx, alarm.Alarm{When: when.UnixMilli(), Label: label, URL: url})
	in.logger(ctx).Info("interpreter: alarm created", "id", a.ID, "form", form, "label", a.Label)
	in.say(ctx, alarmSetReply(a, in.loc))
}

// alarmLabel returns the text after the first "to" or "for" that does not
// begin with a time, so "for 6:30 to wake up" yields "wake up". It returns ""
// when every such tail is empty or starts with a time.
func alarmLabel(text string) string {
	for _, idx := range toForRe.FindAllStringIndex(text, -1) {
		candidate := strings.TrimSpace(text[idx[1]:])
		if candidate == "" || timeparse.StartsWithTime(candidate) {
			continue
		}
		return candidate
	}
	return ""
}

func (in *Interpreter) cancelAlarm(ctx context.Context, digits string) {
	id, err := strconv.ParseInt(digits, 10, 64)
	if err == nil {
		err = in.alarms.Cancel(ctx, id)
	}
	if err == nil {
		in.say(ctx, "Alarm "+digits+" canceled.")
		return
	}
	if !errors.Is(err, alarm.ErrNotFound) {
		in.logger(ctx).Warn("interpreter: cancel failed", "id", digits, "err", err)
	}
	in.say(ctx, "No alarm with id "+digits+" found.")
}
