// Package app wires configuration into the shared services used by the
// API server, the worker and the CLIs.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"dev/bravebird/signup-automation-go/pkg/cache"
	"dev/bravebird/signup-automation-go/pkg/config"
	"dev/bravebird/signup-automation-go/pkg/database"
	"dev/bravebird/signup-automation-go/pkg/frameworks"
	"dev/bravebird/signup-automation-go/pkg/generator"
	"dev/bravebird/signup-automation-go/pkg/llm"
	"dev/bravebird/signup-automation-go/pkg/scripts"
)

// App holds the services built from a Config
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     database.Store
	Cache     cache.Cache
	Generator *generator.Service
}

// Build connects the optional backends and creates the generator.
// An unreachable database or cache is logged and replaced by the in-memory
// store or no cache, so a bare environment still generates scripts.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	catalog, err := Catalog(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: log}
	a.Store = openStore(ctx, cfg.Database, log)
	a.Cache = openCache(ctx, cfg.Redis, log)

	a.Generator = generator.New(generator.Options{
		Catalog:         catalog,
		Providers:       Providers(cfg.LLM),
		DefaultProvider: cfg.LLM.Default,
		Cache:           a.Cache,
		Store:           a.Store,
		Writer:          scripts.NewWriter(cfg.Output.ScriptsDir),
		Logger:          log,
	})
	return a, nil
}

// Close releases the store and the cache
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn("failed to close cache", "error", err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn("failed to close database", "error", err)
		}
	}
}

// Catalog loads the framework catalogue, overlaying the configured YAML file
func Catalog(cfg *config.Config) (*frameworks.Catalog, error) {
	if cfg.Output.CatalogPath == "" {
		return frameworks.Default(), nil
	}
	c, err := frameworks.LoadCatalog(cfg.Output.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("frameworks file %s: %w", cfg.Output.CatalogPath, err)
	}
	return c, nil
}

// Providers creates a provider for every configured LLM backend
func Providers(cfg config.LLMConfig) map[string]llm.Provider {
	out := make(map[string]llm.Provider, len(cfg.Providers))
	for _, name := range llm.ProviderNames(cfg.Providers) {
		p, err := llm.NewProvider(cfg.Providers[name])
		if err != nil {
			continue
		}
		out[name] = p
	}
	return out
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) database.Store {
	if !cfg.Enabled() {
		log.Info("no database configured, keeping records in memory")
		return database.NewMemory()
	}

	store, err := database.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		log.Warn("failed to connect to database, keeping records in memory", "driver", cfg.Driver, "error", err)
		return database.NewMemory()
	}
	if err := store.Migrate(ctx); err != nil {
		log.Warn("failed to migrate database, keeping records in memory", "driver", cfg.Driver, "error", err)
		_ = store.Close()
		return database.NewMemory()
	}

	log.Info("database connected", "driver", cfg.Driver)
	return store
}

func openCache(ctx context.Context, cfg config.RedisConfig, log *slog.Logger) cache.Cache {
	if !cfg.Enabled() {
		return nil
	}

	c, err := cache.NewRedisCache(ctx, cache.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		TTL:      cfg.TTL,
	})
	if err != nil {
		log.Warn("failed to connect to redis, caching disabled", "addr", cfg.Addr, "error", err)
		return nil
	}

	log.Info("redis cache connected", "addr", cfg.Addr)
	return c
}
