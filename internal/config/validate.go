package config

import (
	"fmt"

	apperrors "agrimarket/internal/errors"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return apperrors.Config("server.addr", "server.addr is required")
	}
	if c.Server.RateLimitRPS < 0 {
		return apperrors.Config("server.rate_limit_rps", "server.rate_limit_rps must be >= 0")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1 {
		return apperrors.Config("server.rate_limit_burst", "server.rate_limit_burst must be >= 1 when rate limiting is enabled")
	}

	if err := c.Database.validate(); err != nil {
		return err
	}

	if c.Resolver.DefaultLimit < 1 {
		return apperrors.Config("resolver.default_limit", "resolver.default_limit must be >= 1")
	}
	if c.Resolver.MaxLimit < c.Resolver.DefaultLimit {
		return apperrors.Config("resolver.max_limit", fmt.Sprintf(
			"resolver.max_limit (%d) cannot be below default_limit (%d)", c.Resolver.MaxLimit, c.Resolver.DefaultLimit))
	}
	if c.Resolver.LookbackDays < 1 {
		return apperrors.Config("resolver.lookback_days", "resolver.lookback_days must be >= 1")
	}

	if c.Transport.RatePerKm < 0 {
		return apperrors.Config("transport.rate_per_km", "transport.rate_per_km must be >= 0")
	}
	if c.Transport.CommissionRate < 0 || c.Transport.CommissionRate >= 1 {
		return apperrors.Config("transport.commission_rate", "transport.commission_rate must be in [0, 1)")
	}
	if c.Transport.FallbackPrice < 0 {
		return apperrors.Config("transport.fallback_price", "transport.fallback_price must be >= 0")
	}
	if c.Transport.LookbackDays < 1 {
		return apperrors.Config("transport.lookback_days", "transport.lookback_days must be >= 1")
	}

	if c.Forecast.HistoryDays < 1 {
		return apperrors.Config("forecast.history_days", "forecast.history_days must be >= 1")
	}
	if c.Forecast.HorizonDays < 1 {
		return apperrors.Config("forecast.horizon_days", "forecast.horizon_days must be >= 1")
	}
	if c.Forecast.PriceFloor < 0 {
		return apperrors.Config("forecast.price_floor", "forecast.price_floor must be >= 0")
	}
	if c.Forecast.NoiseFraction < 0 || c.Forecast.NoiseFraction >= 1 {
		return apperrors.Config("forecast.noise_fraction", "forecast.noise_fraction must be in [0, 1)")
	}
	if c.Forecast.ConfidenceDecay < 0 {
		return apperrors.Config("forecast.confidence_decay", "forecast.confidence_decay must be >= 0")
	}

	return nil
}

func (d *DatabaseConfig) validate() error {
	if d.CacheTTLSeconds < 0 {
		return apperrors.Config("database.cache_ttl_seconds", "database.cache_ttl_seconds must be >= 0")
	}
	if d.CacheTTLSeconds > 0 && d.CacheMaxEntries < 1 {
		return apperrors.Config("database.cache_max_entries", "database.cache_max_entries must be >= 1 when caching is enabled")
	}

	switch d.Driver {
	case DriverMemory:
		return nil
	case DriverSQLite:
		if d.Path == "" {
			return apperrors.Config("database.path", "database.path is required for sqlite")
		}
		return nil
	case DriverPostgres:
		return d.Postgres.validate("database.postgres")
	default:
		return apperrors.Config("database.driver", fmt.Sprintf("unknown database.driver %q", d.Driver))
	}
}

func (p *PostgresConfig) validate(prefix string) error {
	if p.Host == "" {
		return apperrors.Config(prefix+".host", prefix+".host is required")
	}
	if p.Name == "" {
		return apperrors.Config(prefix+".name", prefix+".name is required")
	}
	if p.User == "" {
		return apperrors.Config(prefix+".user", prefix+".user is required")
	}
	if p.MaxConns < 1 {
		return apperrors.Config(prefix+".max_conns", prefix+".max_conns must be >= 1")
	}
	if p.MinConns < 0 {
		return apperrors.Config(prefix+".min_conns", prefix+".min_conns must be >= 0")
	}
	if p.MinConns > p.MaxConns {
		return apperrors.Config(prefix+".min_conns", fmt.Sprintf(
			"%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, p.MinConns, p.MaxConns))
	}
	return nil
}
