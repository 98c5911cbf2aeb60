// Package interpreter dispatches transcribed utterances to actions.
//
// An [Interpreter] walks an ordered rule table and runs the first rule whose
// matcher accepts the lower-cased transcript. Rules either answer with a
// fixed reply, create, list or cancel alarms through the scheduler, or hand
// the phrase to the destination resolver. All effects go through the
// injected capabilities; HandleCommand itself only reports which rule fired.
package interpreter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/shifra/internal/alarm"
	"github.com/MrWong99/shifra/internal/observe"
	"github.com/MrWong99/shifra/internal/resolver"
	"github.com/MrWong99/shifra/pkg/capability"
)

// Alarms is the subset of [alarm.Scheduler] the interpreter needs.
type Alarms interface {
	Add(ctx context.Context, a alarm.Alarm) alarm.Alarm
	Cancel(ctx context.Context, id int64) error
	List() []alarm.Alarm
}

// Interpreter turns utterances into actions. It is safe for concurrent use
// as long as its Alarms implementation is.
type Interpreter struct {
	caps    capability.Set
	alarms  Alarms
	clock   func() time.Time
	loc     *time.Location
	metrics *observe.Metrics
	rules   []Rule
}

// Option configures an [Interpreter].
type Option func(*Interpreter)

// WithClock sets the source of the current time. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(in *Interpreter) { in.clock = now }
}

// WithLocation sets the location used to interpret and speak wall-clock
// times. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(in *Interpreter) { in.loc = loc }
}

// WithMetrics sets the metrics instance. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(in *Interpreter) { in.metrics = m }
}

// New creates an Interpreter using caps for every effect and alarms for
// alarm management.
func New(caps capability.Set, alarms Alarms, opts ...Option) *Interpreter {
	in := &Interpreter{
		caps:   caps,
		alarms: alarms,
		clock:  time.Now,
		loc:    time.Local,
		rules:  defaultRules(),
	}
	for _, o := range opts {
		o(in)
	}
	if in.metrics == nil {
		in.metrics = observe.DefaultMetrics()
	}
	if in.loc == nil {
		in.loc = time.Local
	}
	return in
}

// WithCapabilities returns a copy of in that sends its effects to caps. The
// copy shares the alarm scheduler, clock and metrics with in.
func (in *Interpreter) WithCapabilities(caps capability.Set) *Interpreter {
	c := *in
	c.caps = caps
	return &c
}

// Rules returns the names of the rules in priority order.
func (in *Interpreter) Rules() []string {
	names := make([]string, len(in.rules))
	for i, r := range in.rules {
		names[i] = r.Name
	}
	return names
}

// HandleCommand interprets one utterance and returns the name of the rule
// that handled it. Every input ends in a spoken response, including empty
// and unrecognised input.
func (in *Interpreter) HandleCommand(ctx context.Context, text string) string {
	start := time.Now()
	ctx, span := observe.StartCommandSpan(ctx, observe.Source(ctx), text)
	defer span.End()

	rule := in.dispatch(ctx, strings.ToLower(strings.TrimSpace(text)))

	in.metrics.RecordCommand(ctx, rule, time.Since(start).Seconds())
	in.logger(ctx).Debug("interpreter: command handled", "rule", rule, "source", observe.Source(ctx))
	return rule
}

func (in *Interpreter) dispatch(ctx context.Context, text string) string {
	if text == "" {
		in.say(ctx, ReplyEmpty)
		return RuleEmpty
	}
	for _, r := range in.rules {
		m := r.Match(text)
		if m == nil {
			continue
		}
		r.Action(ctx, in, m)
		return r.Name
	}
	in.say(ctx, ReplyFallback)
	return RuleFallback
}

// Greet speaks the time-of-day greeting.
func (in *Interpreter) Greet(ctx context.Context) {
	in.say(ctx, Greeting(in.now()))
}

func (in *Interpreter) now() time.Time {
	return in.clock().In(in.loc)
}

func (in *Interpreter) say(ctx context.Context, text string) {
	in.caps.Speak(ctx, capability.Utterance{Text: text})
}

// resolve runs the resolver pipeline on phrase and acts on the result.
func (in *Interpreter) resolve(ctx context.Context, phrase string) {
	in.open(ctx, resolver.Resolve(phrase))
}

// open announces res, opens its primary candidate in a new tab and renders
// the full candidate list as fallback.
func (in *Interpreter) open(ctx context.Context, res resolver.Resolution) {
	in.metrics.RecordResolution(ctx, res.Kind.String())
	if res.Announcement != "" {
		in.say(ctx, res.Announcement)
	}
	if res.Kind == resolver.KindEmpty {
		return
	}
	in.logger(ctx).Info("interpreter: opening destination",
		"kind", res.Kind.String(),
		"primary", res.Primary(),
		"candidates", len(res.Candidates),
	)
	in.caps.Open(ctx, res.Primary(), true)
	in.caps.RenderFallback(ctx, res.Label, res.Candidates)
}

func (in *Interpreter) logger(ctx context.Context) *slog.Logger {
	return observe.Logger(ctx)
}
