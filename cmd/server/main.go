// Package main - Entry point for the agrimarket HTTP server
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"agrimarket/api"
	"agrimarket/internal/app"
	"agrimarket/internal/config"
	"agrimarket/internal/logging"
	"agrimarket/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (json, yaml or toml)")
	addr := flag.String("addr", "", "listen address (overrides server.addr)")
	seed := flag.Uint64("seed", 0, "seed for synthetic prices when the store is empty (0 = random)")
	flag.Parse()

	if err := run(*configPath, *addr, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "agrimarket: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, addr string, seed uint64) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadAndValidate(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	if err := logging.Initialize(cfg.Logging); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Sync()
	logger := logging.Named("server")

	logger.Info("starting agrimarket",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("config", configPath),
		zap.String("driver", cfg.Database.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logging.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close failed", zap.Error(err))
		}
	}()

	if cfg.Database.SeedIfEmpty {
		if _, err := a.SeedIfEmpty(ctx, seed); err != nil {
			return fmt.Errorf("seed prices: %w", err)
		}
	}

	srv := api.NewServer(api.Deps{
		Catalog:    a.Catalog,
		Resolver:   a.Resolver,
		Estimator:  a.Estimator,
		Forecaster: a.Forecaster,
		Prices:     a.Prices,
		Analytics:  a.Store,
		Transports: a.Store,
		Logger:     logging.Named("api"),
	}, api.Options{
		Version:        version.Version,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	})
	httpServer := srv.HTTPServer(cfg.Server.Addr, cfg.Server.ReadTimeout(), cfg.Server.WriteTimeout())

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if d := cfg.Server.ShutdownTimeout(); d > 0 {
		return d
	}
	return 10 * time.Second
}
