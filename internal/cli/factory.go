package cli

import (
	"context"
	"fmt"
	"log/slog"

	"tasksync/internal/backend/googletasks"
	"tasksync/internal/backend/rest"
	"tasksync/internal/cache"
	"tasksync/internal/cache/sqlitekv"
	"tasksync/internal/config"
	"tasksync/internal/engine"
	"tasksync/internal/service"
)

// NewEngine is the EngineFactory used by the tasksync binary. It builds
// the gateway and the cache store named by cfg.Settings.
func NewEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Engine, func(), error) {
	gw, err := newGateway(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	store, closeFn, err := newStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	logger = logger.With(slog.String("backend", cfg.Settings.Backend), slog.String("cache", cfg.Settings.Cache))
	return engine.New(gw, cache.New(store), engine.WithLogger(logger)), closeFn, nil
}

func newGateway(ctx context.Context, cfg *config.Config) (service.Gateway, error) {
	switch cfg.Settings.Backend {
	case config.BackendREST:
		c, err := rest.New(ctx, rest.Options{
			BaseURL: cfg.Settings.ServerURL,
			Timeout: cfg.Settings.Timeout,
			Token:   cfg.Settings.Token,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendGoogleTasks:
		c, err := googletasks.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Settings.Backend)
	}
}

func newStore(cfg *config.Config) (cache.Store, func(), error) {
	switch cfg.Settings.Cache {
	case config.CacheFileBackend:
		return cache.NewFileStore(cfg.CachePath()), func() {}, nil
	case config.CacheSQLiteBackend:
		if err := cfg.EnsureDir(); err != nil {
			return nil, nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		db, err := sqlitekv.Open(cfg.CacheDBPath())
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache: %s", cfg.Settings.Cache)
	}
}
