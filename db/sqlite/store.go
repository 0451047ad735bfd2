// Package sqlite provides a price and audit store on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"agrimarket/core/pricing"
	"agrimarket/core/transport"
	"agrimarket/core/types"
)

// timeLayout is fixed-width so text comparison orders timestamps
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps a SQLite database connection
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
// ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if memory {
		// every pooled connection would otherwise get its own empty database
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{db: sqlDB}
	if err := s.migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	version := 0
	// a fresh database has no schema_version table yet
	_ = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS prices (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				commodity     TEXT NOT NULL,
				commodity_key TEXT NOT NULL,
				region        TEXT NOT NULL,
				region_key    TEXT NOT NULL,
				market        TEXT NOT NULL,
				market_key    TEXT NOT NULL,
				price         REAL NOT NULL CHECK (price >= 0),
				unit          TEXT NOT NULL DEFAULT 'quintal',
				observed_at   TEXT NOT NULL,
				observed_day  TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_prices_market ON prices(commodity_key, market_key, observed_at);
			CREATE INDEX IF NOT EXISTS idx_prices_region ON prices(commodity_key, region_key, observed_at);
			CREATE INDEX IF NOT EXISTS idx_prices_day ON prices(commodity_key, observed_day);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	if version < 2 {
		_, err := s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS transport_requests (
				id                    TEXT PRIMARY KEY,
				farmer_id             TEXT NOT NULL DEFAULT '',
				commodity             TEXT NOT NULL,
				quantity              REAL NOT NULL,
				source_lat            REAL NOT NULL,
				source_lon            REAL NOT NULL,
				destination_id        TEXT NOT NULL,
				destination_name      TEXT NOT NULL,
				destination_region    TEXT NOT NULL,
				destination_district  TEXT NOT NULL DEFAULT '',
				destination_lat       REAL NOT NULL,
				destination_lon       REAL NOT NULL,
				distance_km           REAL NOT NULL,
				price_per_quintal     REAL NOT NULL,
				price_source          TEXT NOT NULL,
				gross_revenue         REAL NOT NULL,
				transport_cost        REAL NOT NULL,
				commission            REAL NOT NULL,
				net_profit            REAL NOT NULL,
				profit_margin_percent REAL NOT NULL,
				created_at            TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_transport_created ON transport_requests(created_at);

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
	}

	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// where builds a filter on the normalized key columns
func where(c pricing.Criteria) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if c.Commodity != "" {
		conds = append(conds, "commodity_key = ?")
		args = append(args, pricing.Key(c.Commodity))
	}
	if c.Market != "" {
		conds = append(conds, "market_key = ?")
		args = append(args, pricing.Key(c.Market))
	}
	if c.Region != "" {
		conds = append(conds, "region_key = ?")
		args = append(args, pricing.Key(c.Region))
	}
	if !c.Since.IsZero() {
		conds = append(conds, "observed_at >= ?")
		args = append(args, formatTime(c.Since))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

const priceColumns = "id, commodity, region, market, price, unit, observed_at"

func (s *Store) findOne(ctx context.Context, c pricing.Criteria, order string) (*types.PriceObservation, error) {
	clause, args := where(c)
	row := s.db.QueryRowContext(ctx, "SELECT "+priceColumns+" FROM prices"+clause+" ORDER BY "+order+" LIMIT 1", args...)

	var (
		o        types.PriceObservation
		unit, at string
	)
	err := row.Scan(&o.ID, &o.Commodity, &o.Region, &o.Market, &o.Price, &unit, &at)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.Unit = types.Unit(unit)
	if o.ObservedAt, err = parseTime(at); err != nil {
		return nil, fmt.Errorf("parse observed_at: %w", err)
	}
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
	rows, err := s.db.QueryContext(ctx,
		"SELECT observed_day, AVG(price) FROM prices"+clause+" GROUP BY observed_day ORDER BY observed_day", args...)
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT observed_day, ROUND(AVG(price), 2), MIN(price), MAX(price), COUNT(*)
		FROM prices`+clause+`
		GROUP BY observed_day
		ORDER BY observed_day`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []types.DailyStat
	for rows.Next() {
		var d types.DailyStat
		if err := rows.Scan(&d.Date, &d.AvgPrice, &d.MinPrice, &d.MaxPrice, &d.Count); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// HighestPerRegion implements pricing.Analytics
func (s *Store) HighestPerRegion(ctx context.Context, commodity string, since time.Time) ([]types.RegionHigh, error) {
	clause, args := where(pricing.Criteria{Commodity: commodity, Since: since})
	rows, err := s.db.QueryContext(ctx, `
		SELECT region, price, market, unit, observed_at FROM (
			SELECT region, price, market, unit, observed_at,
				ROW_NUMBER() OVER (PARTITION BY region_key ORDER BY price DESC, observed_at DESC) AS rn
			FROM prices`+clause+`
		)
		WHERE rn = 1
		ORDER BY price DESC, region ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []types.RegionHigh
	for rows.Next() {
		var (
			r        types.RegionHigh
			unit, at string
		)
		if err := rows.Scan(&r.Region, &r.HighestPrice, &r.Market, &unit, &at); err != nil {
			return nil, err
		}
		r.Unit = types.Unit(unit)
		if r.ObservedAt, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("parse observed_at: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// LatestDay implements pricing.Analytics
func (s *Store) LatestDay(ctx context.Context, commodity, region string) ([]types.PriceObservation, error) {
	clause, args := where(pricing.Criteria{Commodity: commodity, Region: region})
	if clause == "" {
		clause = " WHERE 1 = 1"
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+priceColumns+` FROM prices`+clause+`
			AND observed_day = (SELECT MAX(observed_day) FROM prices`+clause+`)
		ORDER BY price DESC, observed_at DESC`, append(args, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []types.PriceObservation
	for rows.Next() {
		var (
			o        types.PriceObservation
			unit, at string
		)
		if err := rows.Scan(&o.ID, &o.Commodity, &o.Region, &o.Market, &o.Price, &unit, &at); err != nil {
			return nil, err
		}
		o.Unit = types.Unit(unit)
		if o.ObservedAt, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("parse observed_at: %w", err)
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

// InsertPrices writes observations in one transaction
func (s *Store) InsertPrices(ctx context.Context, obs []types.PriceObservation) (int, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO prices (commodity, commodity_key, region, region_key, market, market_key, price, unit, observed_at, observed_day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, o := range obs {
		_, err := stmt.ExecContext(ctx,
			o.Commodity, pricing.Key(o.Commodity),
			o.Region, pricing.Key(o.Region),
			o.Market, pricing.Key(o.Market),
			o.Price, string(o.Unit),
			formatTime(o.ObservedAt), o.ObservedAt.UTC().Format(types.DateLayout),
		)
		if err != nil {
			return 0, fmt.Errorf("insert price %s/%s: %w", o.Commodity, o.Market, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(obs), nil
}

// DeletePrices removes every observation
func (s *Store) DeletePrices(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM prices")
	return err
}

// CountPrices returns the number of observations
func (s *Store) CountPrices(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM prices").Scan(&n)
	return n, err
}

// RecordTransport implements transport.AuditSink
func (s *Store) RecordTransport(ctx context.Context, r transport.Record) error {
	d := r.Destination
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transport_requests (
			id, farmer_id, commodity, quantity, source_lat, source_lon,
			destination_id, destination_name, destination_region, destination_district, destination_lat, destination_lon,
			distance_km, price_per_quintal, price_source, gross_revenue, transport_cost, commission,
			net_profit, profit_margin_percent, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.FarmerID, r.Commodity, r.Quantity, r.Source.Lat, r.Source.Lon,
		d.ID, d.Name, d.Region, d.District, d.Coordinates.Lat, d.Coordinates.Lon,
		r.DistanceKm, r.PricePerQuintal, string(r.PriceSource), r.GrossRevenue, r.TransportCost, r.Commission,
		r.NetProfit, r.ProfitMarginPercent, formatTime(r.CreatedAt),
	)
	return err
}

// ListTransports returns recent records, newest first
func (s *Store) ListTransports(ctx context.Context, limit int) ([]transport.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, farmer_id, commodity, quantity, source_lat, source_lon,
			destination_id, destination_name, destination_region, destination_district, destination_lat, destination_lon,
			distance_km, price_per_quintal, price_source, gross_revenue, transport_cost, commission,
			net_profit, profit_margin_percent, created_at
		FROM transport_requests
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []transport.Record
	for rows.Next() {
		var r transport.Record
		var source, at string
		d := &r.Destination
		err := rows.Scan(
			&r.ID, &r.FarmerID, &r.Commodity, &r.Quantity, &r.Source.Lat, &r.Source.Lon,
			&d.ID, &d.Name, &d.Region, &d.District, &d.Coordinates.Lat, &d.Coordinates.Lon,
			&r.DistanceKm, &r.PricePerQuintal, &source, &r.GrossRevenue, &r.TransportCost, &r.Commission,
			&r.NetProfit, &r.ProfitMarginPercent, &at,
		)
		if err != nil {
			return nil, err
		}
		r.PriceSource = types.Provenance(source)
		if r.CreatedAt, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
