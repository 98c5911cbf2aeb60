// Package app wires all Shifra subsystems into a running application.
//
// The App struct owns the full lifecycle: New builds the store, the browser
// bridge, the speech and notification fallback chains, the alarm scheduler
// and the interpreter; Run serves HTTP (and optionally the console and the
// config watcher) until the context is done; Shutdown tears everything down
// in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithSpeechFactory, ...). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/shifra/internal/alarm"
	"github.com/MrWong99/shifra/internal/bridge"
	"github.com/MrWong99/shifra/internal/config"
	"github.com/MrWong99/shifra/internal/console"
	"github.com/MrWong99/shifra/internal/health"
	"github.com/MrWong99/shifra/internal/interpreter"
	"github.com/MrWong99/shifra/internal/mcpserver"
	"github.com/MrWong99/shifra/internal/observe"
	"github.com/MrWong99/shifra/internal/resilience"
	"github.com/MrWong99/shifra/pkg/capability"
	"github.com/MrWong99/shifra/pkg/kv"
)

const (
	readHeaderTimeout = 10 * time.Second
	drainTimeout      = 5 * time.Second
)

// App owns all subsystem lifetimes.
type App struct {
	cfg     *config.Config
	version string
	loc     *time.Location

	reg     *config.Registry
	metrics *observe.Metrics
	levels  *slog.LevelVar
	watcher *config.Watcher

	consoleIn  io.Reader
	consoleOut io.Writer

	speechFactories map[string]config.SpeechFactory
	notifyFactories map[string]config.NotifyFactory

	// Subsystems, initialised in New and torn down in Shutdown.
	store   kv.Store
	hub     *bridge.Hub
	speaker *capability.TunedSpeaker
	speech  *resilience.SpeechFallback
	notify  *resilience.NotifyFallback
	caps    capability.Set
	sched   *alarm.Scheduler
	interp  *interpreter.Interpreter
	mcp     *mcpserver.Server
	handler http.Handler
	server  *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// restoreOnce guards the alarm restore; see Run.
	restoreOnce sync.Once

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a key-value store instead of creating one from config.
// The caller keeps ownership; Shutdown does not close it.
func WithStore(s kv.Store) Option {
	return func(a *App) { a.store = s }
}

// WithSpeechFactory registers an additional speech backend, replacing any
// built-in of the same name.
func WithSpeechFactory(name string, f config.SpeechFactory) Option {
	return func(a *App) { a.speechFactories[name] = f }
}

// WithNotifyFactory registers an additional notification backend, replacing
// any built-in of the same name.
func WithNotifyFactory(name string, f config.NotifyFactory) Option {
	return func(a *App) { a.notifyFactories[name] = f }
}

// WithMetrics sets the metrics instance. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLevelVar hands New the variable backing the default logger's level so
// that config reloads can change it.
func WithLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.levels = v }
}

// WithWatcher makes Run poll w for config changes.
func WithWatcher(w *config.Watcher) Option {
	return func(a *App) { a.watcher = w }
}

// WithConsole overrides the console streams. Defaults to stdin and stdout.
func WithConsole(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.consoleIn = in
		a.consoleOut = out
	}
}

// WithVersion sets the version reported by /healthz and the MCP server.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. It opens the store
// but does not listen or restore alarms; see Run.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:             cfg,
		version:         "dev",
		consoleIn:       os.Stdin,
		consoleOut:      os.Stdout,
		speechFactories: make(map[string]config.SpeechFactory),
		notifyFactories: make(map[string]config.NotifyFactory),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	loc, err := cfg.LoadLocation()
	if err != nil {
		return nil, fmt.Errorf("app: load location: %w", err)
	}
	a.loc = loc

	// ── 1. Browser bridge ────────────────────────────────────────────────
	a.hub = bridge.NewHub(
		bridge.WithOriginPatterns(cfg.Server.AllowedOrigins...),
		bridge.WithGreeting(func() string { return interpreter.Greeting(time.Now().In(loc)) }),
		bridge.WithMetrics(a.metrics),
		bridge.WithOnConnect(a.restoreAlarms),
	)
	a.closers = append(a.closers, func() error {
		a.hub.Close()
		return nil
	})

	// ── 2. Backend registry ──────────────────────────────────────────────
	a.reg = config.NewRegistry()
	registerBuiltins(a.reg, a.hub)
	for name, f := range a.speechFactories {
		a.reg.RegisterSpeech(name, f)
	}
	for name, f := range a.notifyFactories {
		a.reg.RegisterNotify(name, f)
	}

	// ── 3. Store ─────────────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 4. Capabilities ──────────────────────────────────────────────────
	if err := a.initCapabilities(); err != nil {
		_ = a.closeAll()
		return nil, fmt.Errorf("app: init capabilities: %w", err)
	}
	a.caps = capability.Set{
		Speaker:  a.speaker,
		Notifier: a.notify,
		Opener:   a.hub,
		Renderer: a.hub,
	}
	if cfg.Console.Enabled {
		a.caps = capability.Join(a.caps, console.NewPrinter(a.consoleOut).Set())
	}

	// ── 5. Scheduler and interpreter ─────────────────────────────────────
	a.sched = alarm.NewScheduler(alarm.NewRepository(a.store), a.caps, alarm.WithMetrics(a.metrics))
	a.interp = interpreter.New(a.caps, a.sched,
		interpreter.WithLocation(loc),
		interpreter.WithMetrics(a.metrics),
	)

	// ── 6. HTTP surface ──────────────────────────────────────────────────
	a.initHTTP()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	store, err := a.reg.CreateStore(ctx, a.cfg.Store)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)
	slog.Info("app: store opened", "backend", a.cfg.Store.Backend)
	return nil
}

// initCapabilities builds the speech and notification fallback chains in
// config order, each backend behind its own circuit breaker.
func (a *App) initCapabilities() error {
	breaker := a.cfg.Resilience.Breaker()
	breaker.IsFailure = backendFailure

	a.speech = resilience.NewSpeechFallback(breaker)
	for _, entry := range a.cfg.Speech {
		b, err := a.reg.CreateSpeech(entry)
		if err != nil {
			return fmt.Errorf("speech backend %q: %w", entry.Name, err)
		}
		a.speech.Add(entry.Name, b)
	}

	a.notify = resilience.NewNotifyFallback(breaker)
	for _, entry := range a.cfg.Notify {
		b, err := a.reg.CreateNotify(entry)
		if err != nil {
			return fmt.Errorf("notify backend %q: %w", entry.Name, err)
		}
		a.notify.Add(entry.Name, b)
	}

	a.speaker = capability.NewTunedSpeaker(a.speech, a.cfg.Voice.Voice())
	return nil
}

func (a *App) initHTTP() {
	mux := http.NewServeMux()
	mux.Handle("/ws", a.hub.Handler(a.interp))
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(a.version, health.PingCheck("store", a.store)).Register(mux)

	if a.cfg.MCP.Enabled {
		a.mcp = mcpserver.New(a.interp, a.caps, a.sched, a.version, mcpserver.WithLocation(a.loc))
		mux.Handle("/mcp", a.mcp.Handler())
	}

	a.handler = observe.Middleware(a.metrics)(mux)
	a.server = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Interpreter returns the command interpreter.
func (a *App) Interpreter() *interpreter.Interpreter { return a.interp }

// Speaker returns the voice-tuned speaker at the head of the speech chain.
func (a *App) Speaker() *capability.TunedSpeaker { return a.speaker }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP until ctx is done. When the console is enabled, ending
// console input also ends Run. A nil error means a clean stop.
//
// Persisted alarms are restored once. If some configured backend can reach
// the user without a browser, Run restores them before serving. Otherwise
// the first bridge client triggers the restore, so alarms that fell due
// while Shifra was down ring for that client instead of for nobody.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen: %w", err)
	}

	restore := "first-client"
	if a.headless() {
		restore = "startup"
		a.restoreAlarms(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		drainCtx, done := context.WithTimeout(context.WithoutCancel(gctx), drainTimeout)
		defer done()
		if err := a.server.Shutdown(drainCtx); err != nil {
			slog.Warn("app: http drain incomplete", "err", err)
		}
		return nil
	})
	if a.cfg.Console.Enabled {
		g.Go(func() error {
			defer cancel()
			return console.Run(gctx, a.consoleIn, a.interp)
		})
	}
	if a.watcher != nil {
		g.Go(func() error { return a.watcher.Run(gctx) })
	}

	slog.Info("app: running",
		"addr", ln.Addr().String(),
		"alarm_restore", restore,
		"console", a.cfg.Console.Enabled,
		"mcp", a.cfg.MCP.Enabled,
	)
	return g.Wait()
}

// restoreAlarms loads the persisted alarms into the scheduler on its first
// call and does nothing afterwards. Overdue alarms fire from here.
func (a *App) restoreAlarms(ctx context.Context) {
	a.restoreOnce.Do(func() {
		n := a.sched.Restore(context.WithoutCancel(ctx))
		slog.Info("app: alarms restored", "count", n)
	})
}

// headless reports whether a fired alarm can reach the user with no bridge
// client connected.
func (a *App) headless() bool {
	if a.cfg.Console.Enabled {
		return true
	}
	for _, e := range a.cfg.Speech {
		if e.Name != "bridge" && e.Name != "openai" {
			return true
		}
	}
	for _, e := range a.cfg.Notify {
		if e.Name != "bridge" {
			return true
		}
	}
	return false
}

// Reload applies a config change. The log level and the default voice take
// effect immediately; other changes are logged as needing a restart. It is
// meant to be passed to [config.NewWatcher].
func (a *App) Reload(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.Empty() {
		return
	}
	if d.LogLevelChanged && a.levels != nil {
		a.levels.Set(d.NewLogLevel.Level())
		slog.Info("app: log level changed", "level", d.NewLogLevel)
	}
	if d.VoiceChanged {
		a.speaker.SetVoice(d.NewVoice.Voice())
		slog.Info("app: voice changed",
			"locale", d.NewVoice.Locale,
			"rate", d.NewVoice.Rate,
			"pitch", d.NewVoice.Pitch,
		)
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("app: config changes need a restart", "sections", d.RestartRequired)
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown stops the scheduler, closes the HTTP server, disconnects browser
// clients and closes the store. It is safe to call more than once; only the
// first call has effect.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		slog.Info("app: shutting down")
		a.sched.Stop()

		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}

		if err := a.closeAll(); err != nil {
			errs = append(errs, err)
		}

		slog.Info("app: shutdown complete")
	})
	return errors.Join(errs...)
}

// closeAll runs the closers in registration order.
func (a *App) closeAll() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
