// Package ingestion - Price data ingestion pipeline
// Strictly separated from estimation: fetch → normalize → store
package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"agrimarket/core/types"
	"agrimarket/internal/logging"
)

// DefaultBatchSize is the number of observations written per insert call
const DefaultBatchSize = 500

// RawPrice represents a raw price record from a source
type RawPrice struct {
	Commodity  string
	Region     string
	Market     string
	Unit       string
	Price      string
	ObservedAt time.Time
}

// PriceFetcher fetches raw prices from a source
type PriceFetcher interface {
	// Source names the origin of the data
	Source() string

	// Fetch returns every raw record the source offers
	Fetch(ctx context.Context) ([]RawPrice, error)
}

// PriceSink stores normalized observations
type PriceSink interface {
	InsertPrices(ctx context.Context, obs []types.PriceObservation) (int, error)
	DeletePrices(ctx context.Context) error
}

// Report summarises one pipeline run
type Report struct {
	BatchID  string        `json:"batchId"`
	Source   string        `json:"source"`
	Fetched  int           `json:"fetched"`
	Rejected int           `json:"rejected"`
	Inserted int           `json:"inserted"`
	Duration time.Duration `json:"duration"`
}

// Pipeline orchestrates the full ingestion flow
type Pipeline struct {
	fetcher PriceFetcher
	sink    PriceSink
	logger  *zap.Logger

	// BatchSize bounds each insert call
	BatchSize int

	// Replace deletes existing observations before inserting
	Replace bool
}

// NewPipeline creates a new ingestion pipeline
func NewPipeline(fetcher PriceFetcher, sink PriceSink, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Named("ingestion")
	}
	return &Pipeline{
		fetcher:   fetcher,
		sink:      sink,
		logger:    logger,
		BatchSize: DefaultBatchSize,
	}
}

// Run fetches, normalizes and stores prices
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{
		BatchID: uuid.New().String(),
		Source:  p.fetcher.Source(),
	}

	// Fetch
	raw, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	report.Fetched = len(raw)

	// Normalize
	normalized, rejected := Normalize(raw)
	report.Rejected = len(rejected)
	for _, r := range rejected {
		p.logger.Debug("rejected price record",
			zap.String("batch_id", report.BatchID),
			zap.String("commodity", r.Record.Commodity),
			zap.String("market", r.Record.Market),
			zap.String("reason", r.Reason),
		)
	}

	// Store
	if p.Replace {
		if err := p.sink.DeletePrices(ctx); err != nil {
			return nil, fmt.Errorf("clear failed: %w", err)
		}
	}

	size := p.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	for i := 0; i < len(normalized); i += size {
		end := min(i+size, len(normalized))
		n, err := p.sink.InsertPrices(ctx, normalized[i:end])
		report.Inserted += n
		if err != nil {
			return report, fmt.Errorf("insert batch at %d: %w", i, err)
		}
	}

	report.Duration = time.Since(start)
	p.logger.Info("price ingestion complete",
		zap.String("batch_id", report.BatchID),
		zap.String("source", report.Source),
		zap.Int("fetched", report.Fetched),
		zap.Int("rejected", report.Rejected),
		zap.Int("inserted", report.Inserted),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// Rejection explains why a raw record was dropped
type Rejection struct {
	Record RawPrice
	Reason string
}

// Normalize trims names, defaults the unit to quintal and rounds prices to two decimals.
// Records with a missing name, an unknown unit, or an unparsable or negative price are rejected.
func Normalize(raw []RawPrice) ([]types.PriceObservation, []Rejection) {
	result := make([]types.PriceObservation, 0, len(raw))
	var rejected []Rejection

	for _, r := range raw {
		commodity := strings.TrimSpace(r.Commodity)
		region := strings.TrimSpace(r.Region)
		market := strings.TrimSpace(r.Market)
		if commodity == "" || region == "" || market == "" {
			rejected = append(rejected, Rejection{Record: r, Reason: "missing commodity, state or market"})
			continue
		}

		unit := types.Unit(strings.ToLower(strings.TrimSpace(r.Unit)))
		if unit == "" {
			unit = types.UnitQuintal
		}
		if !unit.IsValid() {
			rejected = append(rejected, Rejection{Record: r, Reason: "unknown unit " + r.Unit})
			continue
		}

		price, err := ParsePrice(r.Price)
		if err != nil {
			rejected = append(rejected, Rejection{Record: r, Reason: "unparsable price"})
			continue
		}
		if price.IsNegative() {
			rejected = append(rejected, Rejection{Record: r, Reason: "negative price"})
			continue
		}
		if r.ObservedAt.IsZero() {
			rejected = append(rejected, Rejection{Record: r, Reason: "missing date"})
			continue
		}

		result = append(result, types.PriceObservation{
			Commodity:  commodity,
			Region:     region,
			Market:     market,
			Price:      price.Round(2).InexactFloat64(),
			Unit:       unit,
			ObservedAt: r.ObservedAt.UTC(),
		})
	}

	return result, rejected
}

// ParsePrice parses a price string to decimal
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty price")
	}
	return decimal.NewFromString(s)
}
