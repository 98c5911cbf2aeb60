package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrWong99/shifra/internal/bridge"
	"github.com/MrWong99/shifra/internal/config"
	"github.com/MrWong99/shifra/internal/resilience"
	"github.com/MrWong99/shifra/pkg/capability/discord"
	"github.com/MrWong99/shifra/pkg/capability/openaitts"
	"github.com/MrWong99/shifra/pkg/kv"
	"github.com/MrWong99/shifra/pkg/kv/file"
	"github.com/MrWong99/shifra/pkg/kv/postgres"
)

// BuiltinBackends lists the backend names New registers, per kind. Used for
// startup logging.
var BuiltinBackends = map[string][]string{
	"store":  {string(config.StoreFile), string(config.StorePostgres)},
	"speech": {"bridge", "openai"},
	"notify": {"bridge", "discord"},
}

// registerBuiltins registers every backend that ships with Shifra. The
// bridge backends deliver through hub.
func registerBuiltins(reg *config.Registry, hub *bridge.Hub) {
	reg.RegisterStore(config.StoreFile, func(_ context.Context, cfg config.StoreConfig) (kv.Store, error) {
		return file.New(cfg.Path), nil
	})
	reg.RegisterStore(config.StorePostgres, func(ctx context.Context, cfg config.StoreConfig) (kv.Store, error) {
		s, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	})

	reg.RegisterSpeech("bridge", func(config.BackendEntry) (resilience.TextSpeaker, error) {
		return hub, nil
	})
	reg.RegisterSpeech("openai", func(entry config.BackendEntry) (resilience.TextSpeaker, error) {
		opts, err := openaiOptions(entry)
		if err != nil {
			return nil, err
		}
		s, err := openaitts.New(entry.APIKey, hub, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	})

	reg.RegisterNotify("bridge", func(config.BackendEntry) (resilience.NotificationSender, error) {
		return hub, nil
	})
	reg.RegisterNotify("discord", func(entry config.BackendEntry) (resilience.NotificationSender, error) {
		n, err := discord.New(discord.Config{
			WebhookID:    entry.Options["webhook_id"],
			WebhookToken: entry.Options["webhook_token"],
			Username:     entry.Options["username"],
		})
		if err != nil {
			return nil, err
		}
		return n, nil
	})
}

// openaiOptions maps a speech entry onto openaitts options. Recognised
// Options keys are "timeout" (a duration) and "max_retries".
func openaiOptions(entry config.BackendEntry) ([]openaitts.Option, error) {
	var opts []openaitts.Option
	if entry.BaseURL != "" {
		opts = append(opts, openaitts.WithBaseURL(entry.BaseURL))
	}
	if entry.Model != "" {
		opts = append(opts, openaitts.WithModel(entry.Model))
	}
	if entry.Voice != "" {
		opts = append(opts, openaitts.WithVoice(entry.Voice))
	}
	if v := entry.Options["timeout"]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("openai: options.timeout: %w", err)
		}
		opts = append(opts, openaitts.WithTimeout(d))
	}
	if v := entry.Options["max_retries"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("openai: options.max_retries: %w", err)
		}
		opts = append(opts, openaitts.WithMaxRetries(n))
	}
	return opts, nil
}

// backendFailure reports whether err means a backend is broken. A backend
// with nobody connected to hear it is idle, not broken, so its breaker stays
// closed and the next client is served at once.
func backendFailure(err error) bool {
	return !errors.Is(err, bridge.ErrNoClients) && !errors.Is(err, openaitts.ErrNoListeners)
}
