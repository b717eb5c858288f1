package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/persona/pkg/config"
	"github.com/papercomputeco/persona/pkg/credentials"
	"github.com/papercomputeco/persona/pkg/eventstream"
	"github.com/papercomputeco/persona/pkg/eventstream/kafka"
	"github.com/papercomputeco/persona/pkg/eventstream/nop"
	"github.com/papercomputeco/persona/pkg/llm"
	"github.com/papercomputeco/persona/pkg/llm/provider"
	"github.com/papercomputeco/persona/pkg/persona"
	"github.com/papercomputeco/persona/pkg/session"
	"github.com/papercomputeco/persona/pkg/session/inmemory"
	"github.com/papercomputeco/persona/pkg/session/postgres"
	"github.com/papercomputeco/persona/pkg/session/redis"
	"github.com/papercomputeco/persona/pkg/session/sqlite"
)

// Session store backends.
const (
	storeMemory   = "memory"
	storeSQLite   = "sqlite"
	storePostgres = "postgres"
	storeRedis    = "redis"
)

// Event publishers.
const (
	eventsNone  = "none"
	eventsKafka = "kafka"
)

func newSessionStore(ctx context.Context, cfg config.SessionConfig, log *slog.Logger) (session.Store, error) {
	switch cfg.Store {
	case "", storeMemory:
		log.Info("using in-memory session store")
		return inmemory.NewStore(), nil

	case storeSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("sqlite session store requires session.sqlite_path")
		}
		store, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite session store: %w", err)
		}
		log.Info("using SQLite session store", "path", cfg.SQLitePath)
		return store, nil

	case storePostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("postgres session store requires session.postgres_dsn")
		}
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL session store: %w", err)
		}
		log.Info("using PostgreSQL session store")
		return store, nil

	case storeRedis:
		var ttl time.Duration
		if cfg.RedisTTL != "" {
			var err error
			ttl, err = time.ParseDuration(cfg.RedisTTL)
			if err != nil {
				return nil, fmt.Errorf("invalid session.redis_ttl %q: %w", cfg.RedisTTL, err)
			}
		}
		store, err := redis.NewStore(ctx, redis.Config{Addr: cfg.RedisAddr, TTL: ttl})
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis session store: %w", err)
		}
		log.Info("using Redis session store", "addr", cfg.RedisAddr, "ttl", ttl)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown session store: %q (supported: memory, sqlite, postgres, redis)", cfg.Store)
	}
}

// newPersonaSource returns the built-in persona, or a hot-reloaded prompt
// file when one is configured. The watcher stops with ctx.
func newPersonaSource(ctx context.Context, cfg config.PersonaConfig, log *slog.Logger) (persona.Source, error) {
	if cfg.PromptFile == "" {
		return persona.Default(), nil
	}

	src, err := persona.NewFileSource(cfg.PromptFile, log)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := src.Watch(ctx); err != nil {
			log.Warn("persona prompt watcher stopped", "path", cfg.PromptFile, "error", err)
		}
	}()

	log.Info("using persona prompt file", "path", cfg.PromptFile)
	return src, nil
}

// newCompleter resolves the model credential once. A missing credential is
// not fatal: the server still starts and reports each turn as misconfigured.
func newCompleter(ctx context.Context, cfg config.ModelConfig, configDir string, log *slog.Logger) (llm.Completer, error) {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	key, source, err := mgr.Resolve(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("resolving model credential: %w", err)
	}

	if key == "" {
		log.Warn("model API key not configured, chat requests will fail",
			"provider", cfg.Provider,
			"env", credentials.EnvVarForProvider(cfg.Provider),
		)
		return nil, nil
	}

	completer, err := provider.New(ctx, cfg.Provider, provider.Options{
		APIKey:  key,
		BaseURL: baseURLFor(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("creating model provider: %w", err)
	}

	log.Info("model configured",
		"provider", cfg.Provider,
		"model", cfg.Name,
		"credential", string(source),
	)
	return completer, nil
}

// baseURLFor drops the OpenRouter default base URL for other providers so
// they fall back to their own endpoints.
func baseURLFor(cfg config.ModelConfig) string {
	if cfg.Provider != provider.OpenRouter && cfg.BaseURL == config.NewDefaultConfig().Model.BaseURL {
		return ""
	}
	return cfg.BaseURL
}

func newPublisher(cfg config.EventsConfig, log *slog.Logger) (eventstream.Publisher, error) {
	switch cfg.Provider {
	case "", eventsNone:
		return nop.NewPublisher(), nil

	case eventsKafka:
		pub, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		log.Info("publishing turn events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
		return pub, nil

	default:
		return nil, fmt.Errorf("unknown events provider: %q (supported: none, kafka)", cfg.Provider)
	}
}
