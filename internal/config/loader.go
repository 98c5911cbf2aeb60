package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"
	_ "time/tzdata" // server.location must resolve on hosts without zoneinfo

	"gopkg.in/yaml.v3"
)

// KnownBackends lists the backend names shipped with Shifra per kind.
// Unknown names only produce a warning so that third-party backends can be
// registered at runtime.
var KnownBackends = map[string][]string{
	"speech": {"bridge", "openai"},
	"notify": {"bridge", "discord"},
}

// Load reads the YAML configuration file at path, applies defaults and
// validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. An empty document yields the default config.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg for coherence and returns all failures joined.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.Location != "" {
		if _, err := time.LoadLocation(cfg.Server.Location); err != nil {
			errs = append(errs, fmt.Errorf("server.location %q: %w", cfg.Server.Location, err))
		}
	}

	if cfg.Voice.Rate < 0.1 || cfg.Voice.Rate > 10 {
		errs = append(errs, fmt.Errorf("voice.rate %.2f is out of range [0.1, 10]", cfg.Voice.Rate))
	}
	if cfg.Voice.Pitch < 0 || cfg.Voice.Pitch > 2 {
		errs = append(errs, fmt.Errorf("voice.pitch %.2f is out of range [0, 2]", cfg.Voice.Pitch))
	}

	switch cfg.Store.Backend {
	case StoreFile:
		if cfg.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the file backend"))
		}
	case StorePostgres:
		if cfg.Store.PostgresDSN == "" {
			errs = append(errs, errors.New("store.postgres_dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is invalid; valid values: file, postgres", cfg.Store.Backend))
	}

	errs = append(errs, validateBackends("speech", cfg.Speech)...)
	errs = append(errs, validateBackends("notify", cfg.Notify)...)

	if cfg.Resilience.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("resilience.max_failures %d must not be negative", cfg.Resilience.MaxFailures))
	}
	if cfg.Resilience.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("resilience.cooldown %s must not be negative", cfg.Resilience.Cooldown))
	}

	return errors.Join(errs...)
}

func validateBackends(kind string, entries []BackendEntry) []error {
	var errs []error
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		prefix := fmt.Sprintf("%s[%d]", kind, i)
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if prev, ok := seen[e.Name]; ok {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of %s[%d]", prefix, e.Name, kind, prev))
		}
		seen[e.Name] = i

		switch {
		case kind == "speech" && e.Name == "openai" && e.APIKey == "":
			errs = append(errs, fmt.Errorf("%s: openai requires api_key", prefix))
		case kind == "notify" && e.Name == "discord" && (e.Options["webhook_id"] == "" || e.Options["webhook_token"] == ""):
			errs = append(errs, fmt.Errorf("%s: discord requires options.webhook_id and options.webhook_token", prefix))
		}

		if known := KnownBackends[kind]; !slices.Contains(known, e.Name) {
			slog.Warn("config: unknown backend name, may be a typo or a third-party backend",
				"kind", kind,
				"name", e.Name,
				"known", known,
			)
		}
	}
	return errs
}
