// Package postgres provides a price and audit store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agrimarket/core/pricing"
	"agrimarket/core/transport"
	"agrimarket/core/types"
	"agrimarket/internal/config"
)

// Store holds a connection pool
type Store struct {
	pool *pgxpool.Pool
}

// Open connects, pings and migrates
func Open(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Connect creates a single connection pool.
func Connect(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	connStr := BuildConnString(cfg)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Close closes the pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS prices (
		id            BIGSERIAL PRIMARY KEY,
		commodity     TEXT NOT NULL,
		commodity_key TEXT NOT NULL,
		region        TEXT NOT NULL,
		region_key    TEXT NOT NULL,
		market        TEXT NOT NULL,
		market_key    TEXT NOT NULL,
		price         DOUBLE PRECISION NOT NULL CHECK (price >= 0),
		unit          TEXT NOT NULL DEFAULT 'quintal',
		observed_at   TIMESTAMPTZ NOT NULL,
		observed_day  DATE NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_prices_market ON prices(commodity_key, market_key, observed_at);
	CREATE INDEX IF NOT EXISTS idx_prices_region ON prices(commodity_key, region_key, observed_at);
	CREATE INDEX IF NOT EXISTS idx_prices_day ON prices(commodity_key, observed_day);`,

	`CREATE TABLE IF NOT EXISTS transport_requests (
		id                    TEXT PRIMARY KEY,
		farmer_id             TEXT NOT NULL DEFAULT '',
		commodity             TEXT NOT NULL,
		quantity              DOUBLE PRECISION NOT NULL,
		source_lat            DOUBLE PRECISION NOT NULL,
		source_lon            DOUBLE PRECISION NOT NULL,
		destination_id        TEXT NOT NULL,
		destination_name      TEXT NOT NULL,
		destination_region    TEXT NOT NULL,
		destination_district  TEXT NOT NULL DEFAULT '',
		destination_lat       DOUBLE PRECISION NOT NULL,
		destination_lon       DOUBLE PRECISION NOT NULL,
		distance_km           DOUBLE PRECISION NOT NULL,
		price_per_quintal     DOUBLE PRECISION NOT NULL,
		price_source          TEXT NOT NULL,
		gross_revenue         DOUBLE PRECISION NOT NULL,
		transport_cost        DOUBLE PRECISION NOT NULL,
		commission            DOUBLE PRECISION NOT NULL,
		net_profit            DOUBLE PRECISION NOT NULL,
		profit_margin_percent DOUBLE PRECISION NOT NULL,
		created_at            TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transport_created ON transport_requests(created_at);`,
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return err
	}

	var version int
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		return err
	}

	for i := version; i < len(migrations); i++ {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, migrations[i]); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("migration v%d: %w", i+1, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, i+1); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("migration v%d: %w", i+1, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}

// where builds a filter on the normalized key columns with numbered placeholders
func where(c pricing.Criteria) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if c.Commodity != "" {
		add("commodity_key = $%d", pricing.Key(c.Commodity))
	}
	if c.Market != "" {
		add("market_key = $%d", pricing.Key(c.Market))
	}
	if c.Region != "" {
		add("region_key = $%d", pricing.Key(c.Region))
	}
	if !c.Since.IsZero() {
		add("observed_at >= $%d", c.Since)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) findOne(ctx context.Context, c pricing.Criteria, order string) (*types.PriceObservation, error) {
	clause, args := where(c)
	row := s.pool.QueryRow(ctx,
		"SELECT id, commodity, region, market, price, unit, observed_at FROM prices"+clause+" ORDER BY "+order+" LIMIT 1", args...)

	var (
		o    types.PriceObservation
		unit string
	)
	err := row.Scan(&o.ID, &o.Commodity, &o.Region, &o.Market, &o.Price, &unit, &o.ObservedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.Unit = types.Unit(unit)
	return &o, nil
}

// FindLatest implements pricing.Query
func (s *Store) FindLatest(ctx context.Context, c pricing.Criteria) (*types.PriceObservation, error) {
	return s.findOne(ctx, c, "observed_at DESC, id DESC")
}

// FindHighest implements pricing.Query
func (s *Store) FindHighest(ctx context.Context, c pricing.Criteria) (*types.PriceObservation, error) {
	return s.findOne(ctx, c, "price DESC, observed_at DESC")
}

// AggregateDaily implements pricing.Query
func (s *Store) AggregateDaily(ctx context.Context, commodity string, since time.Time) ([]types.DailyPrice, error) {
	clause, args := where(pricing.Criteria{Commodity: commodity, Since: since})
	rows, err := s.pool.Query(ctx, `
		SELECT to_char(observed_day, 'YYYY-MM-DD'), AVG(price)
		FROM prices`+clause+`
		GROUP BY observed_day
		ORDER BY observed_day`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []types.DailyPrice
	for rows.Next() {
		var d types.DailyPrice
		if err := rows.Scan(&d.Date, &d.MeanPrice); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// DailyHistory implements pricing.Analytics
func (s *Store) DailyHistory(ctx context.Context, commodity, region string, since time.Time) ([]types.DailyStat, error) {
	clause, args := where(pricing.Criteria{Commodity: commodity, Region: region, Since: since})
	rows, err := s.pool.Query(ctx, `
		SELECT to_char(observed_day, 'YYYY-MM-DD'), ROUND(AVG(price)::numeric, 2)::float8, MIN(price), MAX(price), COUNT(*)
		FROM prices`+clause+`
		GROUP BY observed_day
		ORDER BY observed_day`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []types.DailyStat
	for rows.Next() {
		var (
			d     types.DailyStat
			count int64
		)
		if err := rows.Scan(&d.Date, &d.AvgPrice, &d.MinPrice, &d.MaxPrice, &count); err != nil {
			return nil, err
		}
		d.Count = int(count)
		result = append(result, d)
	}
	return result, rows.Err()
}

// HighestPerRegion implements pricing.Analytics
func (s *Store) HighestPerRegion(ctx context.Context, commodity string, since time.Time) ([]types.RegionHigh, error) {
	clause, args := where(pricing.Criteria{Commodity: commodity, Since: since})
	rows, err := s.pool.Query(ctx, `
		SELECT region, price, market, unit, observed_at FROM (
			SELECT DISTINCT ON (region_key) region, price, market, unit, observed_at
			FROM prices`+clause+`
			ORDER BY region_key, price DESC, observed_at DESC
		) best
		ORDER BY price DESC, region ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []types.RegionHigh
	for rows.Next() {
		var (
			r    types.RegionHigh
			unit string
		)
		if err := rows.Scan(&r.Region, &r.HighestPrice, &r.Market, &unit, &r.ObservedAt); err != nil {
			return nil, err
		}
		r.Unit = types.Unit(unit)
		result = append(result, r)
	}
	return result, rows.Err()
}

// LatestDay implements pricing.Analytics. The filter placeholders are shared
// by the outer query and the subquery.
func (s *Store) LatestDay(ctx context.Context, commodity, region string) ([]types.PriceObservation, error) {
	clause, args := where(pricing.Criteria{Commodity: commodity, Region: region})
	if clause == "" {
		clause = " WHERE TRUE"
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, commodity, region, market, price, unit, observed_at FROM prices`+clause+`
			AND observed_day = (SELECT MAX(observed_day) FROM prices`+clause+`)
		ORDER BY price DESC, observed_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []types.PriceObservation
	for rows.Next() {
		var (
			o    types.PriceObservation
			unit string
		)
		if err := rows.Scan(&o.ID, &o.Commodity, &o.Region, &o.Market, &o.Price, &unit, &o.ObservedAt); err != nil {
			return nil, err
		}
		o.Unit = types.Unit(unit)
		result = append(result, o)
	}
	return result, rows.Err()
}

// InsertPrices writes observations with one pgx.Batch inside a transaction
func (s *Store) InsertPrices(ctx context.Context, obs []types.PriceObservation) (int, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, o := range obs {
		batch.Queue(`
			INSERT INTO prices (commodity, commodity_key, region, region_key, market, market_key, price, unit, observed_at, observed_day)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			o.Commodity, pricing.Key(o.Commodity),
			o.Region, pricing.Key(o.Region),
			o.Market, pricing.Key(o.Market),
			o.Price, string(o.Unit),
			o.ObservedAt.UTC(), o.ObservedAt.UTC().Truncate(24*time.Hour),
		)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	for range obs {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, err
		}
	}
	if err := results.Close(); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(obs), nil
}

// DeletePrices removes every observation
func (s *Store) DeletePrices(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM prices")
	return err
}

// CountPrices returns the number of observations
func (s *Store) CountPrices(ctx context.Context) (int, error) {
	var n int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM prices").Scan(&n)
	return int(n), err
}

// RecordTransport implements transport.AuditSink
func (s *Store) RecordTransport(ctx context.Context, r transport.Record) error {
	d := r.Destination
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transport_requests (
			id, farmer_id, commodity, quantity, source_lat, source_lon,
			destination_id, destination_name, destination_region, destination_district, destination_lat, destination_lon,
			distance_km, price_per_quintal, price_source, gross_revenue, transport_cost, commission,
			net_profit, profit_margin_percent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		r.ID, r.FarmerID, r.Commodity, r.Quantity, r.Source.Lat, r.Source.Lon,
		d.ID, d.Name, d.Region, d.District, d.Coordinates.Lat, d.Coordinates.Lon,
		r.DistanceKm, r.PricePerQuintal, string(r.PriceSource), r.GrossRevenue, r.TransportCost, r.Commission,
		r.NetProfit, r.ProfitMarginPercent, r.CreatedAt,
	)
	return err
}

// ListTransports returns recent records, newest first
func (s *Store) ListTransports(ctx context.Context, limit int) ([]transport.Record, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, farmer_id, commodity, quantity, source_lat, source_lon,
			destination_id, destination_name, destination_region, destination_district, destination_lat, destination_lon,
			distance_km, price_per_quintal, price_source, gross_revenue, transport_cost, commission,
			net_profit, profit_margin_percent, created_at
		FROM transport_requests
		ORDER BY created_at DESC
		LIMIT $1`, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []transport.Record
	for rows.Next() {
		var r transport.Record
		var source string
		d := &r.Destination
		err := rows.Scan(
			&r.ID, &r.FarmerID, &r.Commodity, &r.Quantity, &r.Source.Lat, &r.Source.Lon,
			&d.ID, &d.Name, &d.Region, &d.District, &d.Coordinates.Lat, &d.Coordinates.Lon,
			&r.DistanceKm, &r.PricePerQuintal, &source, &r.GrossRevenue, &r.TransportCost, &r.Commission,
			&r.NetProfit, &r.ProfitMarginPercent, &r.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		r.PriceSource = types.Provenance(source)
		result = append(result, r)
	}
	return result, rows.Err()
}
