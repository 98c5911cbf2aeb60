// Command shifra runs the Shifra voice assistant server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MrWong99/shifra/internal/app"
	"github.com/MrWong99/shifra/internal/config"
	"github.com/MrWong99/shifra/internal/observe"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "", "path to the YAML configuration file (empty: built-in defaults)")
	consoleMode := flag.Bool("console", false, "read commands from stdin in addition to the browser bridge")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	var application *app.App
	var watcher *config.Watcher
	var cfg *config.Config
	if *configPath == "" {
		var err error
		cfg, err = config.LoadFromReader(strings.NewReader(""))
		if err != nil {
			fmt.Fprintf(os.Stderr, "shifra: %v\n", err)
			return 1
		}
	} else {
		var err error
		watcher, err = config.NewWatcher(*configPath, func(old, new *config.Config) {
			application.Reload(old, new)
		})
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "shifra: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
			} else {
				fmt.Fprintf(os.Stderr, "shifra: %v\n", err)
			}
			return 1
		}
		cfg = watcher.Current()
	}
	if *consoleMode {
		cfg.Console.Enabled = true
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	levels := new(slog.LevelVar)
	levels.Set(cfg.Server.LogLevel.Level())
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levels})))

	slog.Info("shifra starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	printStartupSummary(cfg)

	opts := []app.Option{
		app.WithLevelVar(levels),
		app.WithVersion(version),
	}
	if watcher != nil {
		opts = append(opts, app.WithWatcher(watcher))
	}
	application, err = app.New(ctx, cfg, opts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	runErr := application.Run(ctx)
	if runErr != nil {
		slog.Error("run error", "err", runErr)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("stopping")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if runErr != nil {
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         Shifra: startup summary       ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Listen addr", cfg.Server.ListenAddr)
	printRow("Location", orDefault(cfg.Server.Location, "(host zone)"))
	printRow("Voice", fmt.Sprintf("%s %.2g/%.2g", cfg.Voice.Locale, cfg.Voice.Rate, cfg.Voice.Pitch))
	printRow("Store", string(cfg.Store.Backend))
	printRow("Speech", backendNames(cfg.Speech))
	printRow("Notify", backendNames(cfg.Notify))
	printRow("MCP", enabled(cfg.MCP.Enabled))
	printRow("Console", enabled(cfg.Console.Enabled))
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(kind, value string) {
	if len(value) > 19 {
		value = value[:16] + "..."
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

func backendNames(entries []config.BackendEntry) string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return strings.Join(names, " > ")
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "(disabled)"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
