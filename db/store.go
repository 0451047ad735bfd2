// Package db opens the configured price and audit store.
package db

import (
	"context"
	"time"

	"go.uber.org/zap"

	"agrimarket/core/pricing"
	"agrimarket/core/transport"
	"agrimarket/core/types"
	"agrimarket/db/memory"
	"agrimarket/db/postgres"
	"agrimarket/db/sqlite"
	"agrimarket/internal/config"
	apperrors "agrimarket/internal/errors"
)

// Store is the full persistence surface of the service
type Store interface {
	pricing.Query
	pricing.Analytics
	transport.AuditSink

	// InsertPrices stores observations and returns how many were written
	InsertPrices(ctx context.Context, obs []types.PriceObservation) (int, error)

	// DeletePrices removes every observation
	DeletePrices(ctx context.Context) error

	// CountPrices returns the number of stored observations
	CountPrices(ctx context.Context) (int, error)

	// ListTransports returns recent audit records, newest first. limit <= 0 returns all.
	ListTransports(ctx context.Context, limit int) ([]transport.Record, error)

	Close() error
}

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*postgres.Store)(nil)
)

// Open opens the store selected by cfg.Driver
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	start := time.Now()
	var (
		store Store
		err   error
	)
	switch cfg.Driver {
	case config.DriverMemory:
		store = memory.New()
	case config.DriverSQLite:
		store, err = sqlite.Open(ctx, cfg.Path)
	case config.DriverPostgres:
		store, err = postgres.Open(ctx, cfg.Postgres)
	default:
		return nil, apperrors.Config("database.driver", "unknown database driver "+cfg.Driver)
	}
	if err != nil {
		return nil, apperrors.Persistence("failed to open "+cfg.Driver+" store", err)
	}

	logger.Info("store opened",
		zap.String("driver", cfg.Driver),
		zap.Duration("duration", time.Since(start)),
	)
	return store, nil
}
