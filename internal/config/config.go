// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"agrimarket/internal/logging"
)

// Database drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version" yaml:"version" toml:"version"`

	// Server contains HTTP server configuration
	Server ServerConfig `json:"server" yaml:"server" toml:"server"`

	// Database contains price store configuration
	Database DatabaseConfig `json:"database" yaml:"database" toml:"database"`

	// Catalog contains market catalog configuration
	Catalog CatalogConfig `json:"catalog" yaml:"catalog" toml:"catalog"`

	// Resolver contains nearest-market configuration
	Resolver ResolverConfig `json:"resolver" yaml:"resolver" toml:"resolver"`

	// Transport contains transport-cost configuration
	Transport TransportConfig `json:"transport" yaml:"transport" toml:"transport"`

	// Forecast contains price forecast configuration
	Forecast ForecastConfig `json:"forecast" yaml:"forecast" toml:"forecast"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging" yaml:"logging" toml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	// Addr is the listen address
	Addr string `json:"addr" yaml:"addr" toml:"addr"`

	ReadTimeoutSeconds     int `json:"read_timeout_seconds" yaml:"read_timeout_seconds" toml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int `json:"write_timeout_seconds" yaml:"write_timeout_seconds" toml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds" toml:"shutdown_timeout_seconds"`

	// RateLimitRPS is the sustained request rate; 0 disables limiting
	RateLimitRPS float64 `json:"rate_limit_rps" yaml:"rate_limit_rps" toml:"rate_limit_rps"`

	// RateLimitBurst is the token bucket size
	RateLimitBurst int `json:"rate_limit_burst" yaml:"rate_limit_burst" toml:"rate_limit_burst"`
}

// DatabaseConfig contains price store settings
type DatabaseConfig struct {
	// Driver is one of memory, sqlite, postgres
	Driver string `json:"driver" yaml:"driver" toml:"driver"`

	// Path is the SQLite database file
	Path string `json:"path" yaml:"path" toml:"path"`

	// Postgres is used when Driver is postgres
	Postgres PostgresConfig `json:"postgres" yaml:"postgres" toml:"postgres"`

	// SeedIfEmpty fills an empty store with synthetic prices on startup
	SeedIfEmpty bool `json:"seed_if_empty" yaml:"seed_if_empty" toml:"seed_if_empty"`

	// CacheTTLSeconds memoizes price lookups; 0 disables the cache
	CacheTTLSeconds int `json:"cache_ttl_seconds" yaml:"cache_ttl_seconds" toml:"cache_ttl_seconds"`

	CacheMaxEntries int `json:"cache_max_entries" yaml:"cache_max_entries" toml:"cache_max_entries"`
}

// PostgresConfig holds connection settings for a Postgres price store
type PostgresConfig struct {
	Host     string `json:"host" yaml:"host" toml:"host"`
	Port     int    `json:"port" yaml:"port" toml:"port"`
	Name     string `json:"name" yaml:"name" toml:"name"`
	User     string `json:"user" yaml:"user" toml:"user"`
	Password string `json:"password" yaml:"password" toml:"password"`
	SSLMode  string `json:"sslmode" yaml:"sslmode" toml:"sslmode"`
	MaxConns int    `json:"max_conns" yaml:"max_conns" toml:"max_conns"`
	MinConns int    `json:"min_conns" yaml:"min_conns" toml:"min_conns"`
}

// CatalogConfig contains market catalog settings
type CatalogConfig struct {
	// Path replaces the built-in catalog with a JSON or YAML file
	Path string `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
}

// ResolverConfig contains nearest-market settings
type ResolverConfig struct {
	// DefaultLimit is used when a request does not set one
	DefaultLimit int `json:"default_limit" yaml:"default_limit" toml:"default_limit"`

	// MaxLimit caps the requested limit
	MaxLimit int `json:"max_limit" yaml:"max_limit" toml:"max_limit"`

	// LookbackDays bounds how old an enrichment price may be
	LookbackDays int `json:"lookback_days" yaml:"lookback_days" toml:"lookback_days"`

	// QueryTimeoutSeconds bounds each price lookup
	QueryTimeoutSeconds int `json:"query_timeout_seconds" yaml:"query_timeout_seconds" toml:"query_timeout_seconds"`
}

// TransportConfig contains transport-cost settings
type TransportConfig struct {
	// RatePerKm is the haulage cost per kilometre
	RatePerKm float64 `json:"rate_per_km" yaml:"rate_per_km" toml:"rate_per_km"`

	// CommissionRate is the market commission as a fraction of gross revenue
	CommissionRate float64 `json:"commission_rate" yaml:"commission_rate" toml:"commission_rate"`

	// FallbackPrice is used per quintal when no regional price exists
	FallbackPrice float64 `json:"fallback_price" yaml:"fallback_price" toml:"fallback_price"`

	LookbackDays        int `json:"lookback_days" yaml:"lookback_days" toml:"lookback_days"`
	QueryTimeoutSeconds int `json:"query_timeout_seconds" yaml:"query_timeout_seconds" toml:"query_timeout_seconds"`
	AuditTimeoutSeconds int `json:"audit_timeout_seconds" yaml:"audit_timeout_seconds" toml:"audit_timeout_seconds"`
}

// ForecastConfig contains price forecast settings
type ForecastConfig struct {
	HistoryDays      int     `json:"history_days" yaml:"history_days" toml:"history_days"`
	HorizonDays      int     `json:"horizon_days" yaml:"horizon_days" toml:"horizon_days"`
	DefaultBasePrice float64 `json:"default_base_price" yaml:"default_base_price" toml:"default_base_price"`
	PriceFloor       float64 `json:"price_floor" yaml:"price_floor" toml:"price_floor"`

	// NoiseFraction is the half-width of the uniform noise band relative to the base price
	NoiseFraction float64 `json:"noise_fraction" yaml:"noise_fraction" toml:"noise_fraction"`

	BaseConfidence  float64 `json:"base_confidence" yaml:"base_confidence" toml:"base_confidence"`
	ConfidenceDecay float64 `json:"confidence_decay" yaml:"confidence_decay" toml:"confidence_decay"`
	MinConfidence   float64 `json:"min_confidence" yaml:"min_confidence" toml:"min_confidence"`

	QueryTimeoutSeconds int `json:"query_timeout_seconds" yaml:"query_timeout_seconds" toml:"query_timeout_seconds"`

	// Seed fixes the noise sequence; 0 seeds from the clock
	Seed uint64 `json:"seed,omitempty" yaml:"seed,omitempty" toml:"seed,omitempty"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".agrimarket", "agrimarket.db")

	return &Config{
		Version: "1.0",
		Server: ServerConfig{
			Addr:                   ":8080",
			ReadTimeoutSeconds:     15,
			WriteTimeoutSeconds:    15,
			ShutdownTimeoutSeconds: 10,
			RateLimitRPS:           20,
			RateLimitBurst:         40,
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   dbPath,
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Name:     "agrimarket",
				User:     "agrimarket",
				SSLMode:  "prefer",
				MaxConns: 10,
				MinConns: 2,
			},
			SeedIfEmpty:     true,
			CacheTTLSeconds: 60,
			CacheMaxEntries: 10000,
		},
		Resolver: ResolverConfig{
			DefaultLimit:        5,
			MaxLimit:            50,
			LookbackDays:        7,
			QueryTimeoutSeconds: 3,
		},
		Transport: TransportConfig{
			RatePerKm:           12,
			CommissionRate:      0.03,
			FallbackPrice:       2000,
			LookbackDays:        7,
			QueryTimeoutSeconds: 3,
			AuditTimeoutSeconds: 5,
		},
		Forecast: ForecastConfig{
			HistoryDays:         30,
			HorizonDays:         7,
			DefaultBasePrice:    2000,
			PriceFloor:          500,
			NoiseFraction:       0.03,
			BaseConfidence:      85,
			ConfidenceDecay:     3,
			MinConfidence:       0,
			QueryTimeoutSeconds: 3,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file.
// A missing file yields the defaults. ${VAR} references are expanded from
// the environment before decoding.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	expanded := []byte(os.ExpandEnv(string(data)))

	config := Default()
	switch formatOf(path) {
	case formatYAML:
		err = yaml.Unmarshal(expanded, config)
	case formatTOML:
		err = toml.Unmarshal(expanded, config)
	default:
		err = json.Unmarshal(expanded, config)
	}
	if err != nil {
		return nil, err
	}

	return config, nil
}

// LoadAndValidate loads configuration and validates it.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch formatOf(path) {
	case formatYAML:
		data, err = yaml.Marshal(c)
	case formatTOML:
		data, err = toml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

type fileFormat int

const (
	formatJSON fileFormat = iota
	formatYAML
	formatTOML
)

// formatOf picks the codec from the file extension; anything unknown is JSON
func formatOf(path string) fileFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".toml":
		return formatTOML
	}
	return formatJSON
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// ReadTimeout returns the server read timeout
func (s ServerConfig) ReadTimeout() time.Duration { return seconds(s.ReadTimeoutSeconds) }

// WriteTimeout returns the server write timeout
func (s ServerConfig) WriteTimeout() time.Duration { return seconds(s.WriteTimeoutSeconds) }

// ShutdownTimeout returns the graceful shutdown budget
func (s ServerConfig) ShutdownTimeout() time.Duration { return seconds(s.ShutdownTimeoutSeconds) }

// QueryTimeout returns the per-lookup timeout
func (r ResolverConfig) QueryTimeout() time.Duration { return seconds(r.QueryTimeoutSeconds) }

// QueryTimeout returns the price lookup timeout
func (t TransportConfig) QueryTimeout() time.Duration { return seconds(t.QueryTimeoutSeconds) }

// AuditTimeout returns the audit write timeout
func (t TransportConfig) AuditTimeout() time.Duration { return seconds(t.AuditTimeoutSeconds) }

// QueryTimeout returns the history query timeout
func (f ForecastConfig) QueryTimeout() time.Duration { return seconds(f.QueryTimeoutSeconds) }

// CacheTTL returns the price lookup cache TTL
func (d DatabaseConfig) CacheTTL() time.Duration { return seconds(d.CacheTTLSeconds) }

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
