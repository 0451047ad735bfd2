// Package app wires configuration, storage and services into one runnable unit.
// Both the HTTP server and the CLI build their services through it.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"agrimarket/core/catalog"
	"agrimarket/core/forecast"
	"agrimarket/core/market"
	"agrimarket/core/pricing"
	"agrimarket/core/transport"
	"agrimarket/db"
	"agrimarket/db/ingestion"
	"agrimarket/internal/config"
	"agrimarket/internal/logging"
)

// App holds the shared services
type App struct {
	Config  *config.Config
	Catalog *catalog.Catalog
	Store   db.Store

	// Prices is the store, fronted by a cache when one is configured
	Prices pricing.Query

	Resolver   *market.Resolver
	Estimator  *transport.Estimator
	Forecaster *forecast.Forecaster

	cache  *pricing.CachedQuery
	logger *zap.Logger
}

// New loads the catalog, opens the store and builds the services
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Named("app")
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	stats := cat.Stats()
	logger.Info("catalog loaded",
		zap.String("path", cfg.Catalog.Path),
		zap.Int("markets", stats.Total),
		zap.Int("regions", len(stats.ByRegion)),
	)

	store, err := db.Open(ctx, cfg.Database, logger.Named("db"))
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Catalog: cat,
		Store:   store,
		Prices:  store,
		logger:  logger,
	}

	if ttl := cfg.Database.CacheTTL(); ttl > 0 {
		a.cache = pricing.NewCachedQuery(store, pricing.CachePolicy{
			TTL:        ttl,
			MaxEntries: cfg.Database.CacheMaxEntries,
		})
		a.Prices = a.cache
	}

	a.Resolver = market.New(cat, a.Prices, market.ConfigFrom(cfg.Resolver), logger.Named("resolver"))
	a.Estimator = transport.New(cat, a.Prices, store, transport.ConfigFrom(cfg.Transport), logger.Named("transport"))
	a.Forecaster = forecast.New(a.Prices, forecast.NewSource(cfg.Forecast.Seed), forecast.ConfigFrom(cfg.Forecast), logger.Named("forecast"))

	return a, nil
}

// Seed runs the synthetic ingestion pipeline. replace clears existing prices first.
func (a *App) Seed(ctx context.Context, seed uint64, replace bool) (*ingestion.Report, error) {
	pipeline := ingestion.NewPipeline(ingestion.NewSyntheticFetcher(a.Catalog, seed), a.Store, a.logger.Named("ingestion"))
	pipeline.Replace = replace

	report, err := pipeline.Run(ctx)
	a.InvalidateCache()
	return report, err
}

// SeedIfEmpty seeds only when the store holds no prices. It returns a nil report otherwise.
func (a *App) SeedIfEmpty(ctx context.Context, seed uint64) (*ingestion.Report, error) {
	n, err := a.Store.CountPrices(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		a.logger.Info("price store already populated", zap.Int("prices", n))
		return nil, nil
	}
	return a.Seed(ctx, seed, false)
}

// InvalidateCache drops memoized price lookups
func (a *App) InvalidateCache() {
	if a.cache != nil {
		a.cache.Invalidate()
	}
}

// CacheStats reports cache counters; ok is false when caching is off
func (a *App) CacheStats() (stats pricing.CacheStats, ok bool) {
	if a.cache == nil {
		return pricing.CacheStats{}, false
	}
	return a.cache.Stats(), true
}

// Close waits for pending audit writes and closes the store
func (a *App) Close() error {
	a.Estimator.Flush()
	if err := a.Store.Close(); err != nil {
		return errors.Join(errors.New("close store"), err)
	}
	return nil
}
