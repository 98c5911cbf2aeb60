package alarm

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/MrWong99/shifra/internal/observe"
	"github.com/MrWong99/shifra/internal/resolver"
	"github.com/MrWong99/shifra/pkg/capability"
)

// Fire triggers recorded in metrics and logs.
const (
	triggerTimer   = "timer"
	triggerOverdue = "overdue"
)

// Scheduler owns the set of pending alarms and their timers.
//
// Every state change, including timer callbacks, runs under one mutex, so
// scheduling, firing and cancellation behave as if they ran on a single
// thread. A timer callback that loses the race against [Scheduler.Cancel] or a
// re-arm finds its generation gone and does nothing. A firing alarm leaves
// the pending set under the mutex; its capability calls run after the mutex
// is released, so a slow speaker or webhook never stalls Add, Cancel or List.
//
// Persistence failures never surface to callers: they are logged, counted in
// [observe.Metrics.StoreErrors] and the in-memory state stays authoritative.
type Scheduler struct {
	repo    *Repository
	caps    capability.Set
	clock   Clock
	metrics *observe.Metrics
	jitter  func() int64

	mu      sync.Mutex
	pending []Alarm
	timers  map[int64]armed
	gen     uint64
}

type armed struct {
	timer Timer
	gen   uint64
}

// Option configures a [Scheduler].
type Option func(*Scheduler)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithMetrics sets the metrics instance. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithJitter replaces the id jitter source. f must return a value in
// [0, 1000).
func WithJitter(f func() int64) Option {
	return func(s *Scheduler) { s.jitter = f }
}

// NewScheduler creates an empty Scheduler. Call [Scheduler.Restore] to load
// persisted alarms.
func NewScheduler(repo *Repository, caps capability.Set, opts ...Option) *Scheduler {
	s := &Scheduler{
		repo:   repo,
		caps:   caps,
		clock:  SystemClock{},
		jitter: func() int64 { return rand.Int64N(1000) },
		timers: make(map[int64]armed),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Add registers a new alarm, persists the pending set and schedules it.
// A zero ID is replaced by a fresh unique id and an empty label by
// [DefaultLabel]. The stored alarm is returned. An alarm that is already due
// fires before Add returns.
func (s *Scheduler) Add(ctx context.Context, a Alarm) Alarm {
	var fired []Alarm
	defer func() { s.ring(ctx, fired) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == 0 {
		a.ID = s.newIDLocked()
	}
	if a.Label == "" {
		a.Label = DefaultLabel
	}

	s.trackLocked(ctx, a)
	s.metrics.AlarmsScheduled.Add(ctx, 1)
	s.persistLocked(ctx)
	fired = s.scheduleLocked(ctx, a, fired)

	slog.Info("alarm: added", "id", a.ID, "when", a.Time().Format(time.RFC3339), "label", a.Label)
	return a
}

// Schedule arms the timer for a. Alarms whose time has passed fire
// synchronously. Scheduling an id that already has a timer replaces it.
// a is added to the pending set if it is not already part of it.
func (s *Scheduler) Schedule(ctx context.Context, a Alarm) {
	var fired []Alarm
	defer func() { s.ring(ctx, fired) }()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackLocked(ctx, a)
	fired = s.scheduleLocked(ctx, a, fired)
}

// Cancel stops and removes the pending alarm with the given id and persists
// the change. It returns [ErrNotFound] when no such alarm is pending.
func (s *Scheduler) Cancel(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(id) < 0 {
		s.metrics.RecordAlarmCanceled(ctx, false)
		return ErrNotFound
	}
	s.disarmLocked(id)
	s.removeLocked(id)
	s.persistLocked(ctx)
	s.metrics.RecordAlarmCanceled(ctx, true)

	slog.Info("alarm: canceled", "id", id)
	return nil
}

// List returns a copy of the pending alarms in creation order.
func (s *Scheduler) List() []Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pending)
}

// Armed returns the number of live timers.
func (s *Scheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Restore loads the persisted alarms and schedules each of them. Overdue
// alarms fire immediately. A load failure is logged and the scheduler
// continues with an empty set. It returns the number of alarms loaded.
func (s *Scheduler) Restore(ctx context.Context) int {
	alarms, err := s.repo.Load(ctx)
	if err != nil {
		slog.Error("alarm: restore failed, starting empty", "err", err)
		s.metrics.RecordStoreError(ctx, "load")
		return 0
	}

	var fired []Alarm
	defer func() { s.ring(ctx, fired) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := make([]Alarm, 0, len(alarms))
	for _, a := range alarms {
		if s.indexLocked(a.ID) >= 0 || slices.ContainsFunc(loaded, func(o Alarm) bool { return o.ID == a.ID }) {
			slog.Warn("alarm: skipping duplicate stored alarm", "id", a.ID)
			continue
		}
		loaded = append(loaded, a)
	}
	for _, a := range loaded {
		s.trackLocked(ctx, a)
	}
	for _, a := range loaded {
		fired = s.scheduleLocked(ctx, a, fired)
	}

	slog.Info("alarm: restored", "count", len(loaded))
	return len(loaded)
}

// Stop cancels every live timer without touching the store. Pending alarms
// stay persisted and are re-armed by the next [Scheduler.Restore].
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.timers {
		s.disarmLocked(id)
	}
}

// scheduleLocked arms a, or takes it out of the pending set and appends it
// to fired when it is already due.
func (s *Scheduler) scheduleLocked(ctx context.Context, a Alarm, fired []Alarm) []Alarm {
	now := s.clock.Now()
	s.disarmLocked(a.ID)
	if a.Due(now) {
		if s.takeLocked(ctx, a, triggerOverdue) {
			fired = append(fired, a)
		}
		return fired
	}

	s.gen++
	gen := s.gen
	id := a.ID
	t := s.clock.AfterFunc(a.Time().Sub(now), func() { s.onTimer(id, gen) })
	s.timers[id] = armed{timer: t, gen: gen}
	return fired
}

func (s *Scheduler) onTimer(id int64, gen uint64) {
	ctx := context.Background()
	var fired []Alarm
	defer func() { s.ring(ctx, fired) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[id]
	if !ok || t.gen != gen {
		return
	}
	delete(s.timers, id)
	i := s.indexLocked(id)
	if i < 0 {
		return
	}
	a := s.pending[i]
	if s.takeLocked(ctx, a, triggerTimer) {
		fired = append(fired, a)
	}
}

// takeLocked disarms a and removes it from the pending set. It reports
// whether a was pending; only then may the caller ring it.
func (s *Scheduler) takeLocked(ctx context.Context, a Alarm, trigger string) bool {
	s.disarmLocked(a.ID)
	if !s.removeLocked(a.ID) {
		return false
	}
	s.metrics.RecordAlarmFired(ctx, trigger)
	slog.Info("alarm: firing", "id", a.ID, "label", a.Label, "trigger", trigger)
	return true
}

// ring runs the effects of each fired alarm, then persists the pending set.
// It must be called without s.mu held. A crash between the effects and the
// save re-fires the alarms on the next restore.
func (s *Scheduler) ring(ctx context.Context, fired []Alarm) {
	if len(fired) == 0 {
		return
	}
	for _, a := range fired {
		text, body := "Alarm ringing", DefaultLabel
		if a.Label != "" {
			text, body = "Alarm: "+a.Label, a.Label
		}
		s.caps.Speak(ctx, capability.Utterance{Text: text})
		s.caps.Notify(ctx, "Alarm", body)
		if a.URL != "" {
			s.caps.Open(ctx, resolver.DirectTarget(a.URL), true)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked(ctx)
}

// trackLocked adds a to the pending set, replacing an entry with the same id.
func (s *Scheduler) trackLocked(ctx context.Context, a Alarm) {
	if i := s.indexLocked(a.ID); i >= 0 {
		s.pending[i] = a
		return
	}
	s.pending = append(s.pending, a)
	s.metrics.PendingAlarms.Add(ctx, 1)
}

func (s *Scheduler) removeLocked(id int64) bool {
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.pending = slices.Delete(s.pending, i, i+1)
	return true
}

func (s *Scheduler) disarmLocked(id int64) {
	if t, ok := s.timers[id]; ok {
		t.timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) indexLocked(id int64) int {
	return slices.IndexFunc(s.pending, func(a Alarm) bool { return a.ID == id })
}

func (s *Scheduler) newIDLocked() int64 {
	base := s.clock.Now().UnixMilli()
	for {
		id := base + s.jitter()
		if id > 0 && s.indexLocked(id) < 0 {
			return id
		}
		base++
	}
}

func (s *Scheduler) persistLocked(ctx context.Context) {
	if err := s.repo.Save(ctx, s.pending); err != nil {
		slog.Warn("alarm: persisting pending alarms failed", "err", err)
		s.metrics.RecordStoreError(ctx, "save")
	}
}
