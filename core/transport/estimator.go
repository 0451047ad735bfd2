// Package transport estimates the net proceeds of selling a load at a market.
package transport

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"agrimarket/core/catalog"
	"agrimarket/core/geo"
	"agrimarket/core/pricing"
	"agrimarket/core/types"
	"agrimarket/internal/config"
	apperrors "agrimarket/internal/errors"
	"agrimarket/internal/logging"
)

// Config holds the estimator rates
type Config struct {
	RatePerKm      float64
	CommissionRate float64
	FallbackPrice  float64
	LookbackDays   int
	QueryTimeout   time.Duration
	AuditTimeout   time.Duration
}

// DefaultConfig returns the standard rates
func DefaultConfig() Config {
	return ConfigFrom(config.Default().Transport)
}

// ConfigFrom converts file configuration
func ConfigFrom(c config.TransportConfig) Config {
	return Config{
		RatePerKm:      c.RatePerKm,
		CommissionRate: c.CommissionRate,
		FallbackPrice:  c.FallbackPrice,
		LookbackDays:   c.LookbackDays,
		QueryTimeout:   c.QueryTimeout(),
		AuditTimeout:   c.AuditTimeout(),
	}
}

// Request is a transport estimate request
type Request struct {
	Commodity           string
	Quantity            float64
	SourceLat           float64
	SourceLon           float64
	DestinationMarketID string

	// FarmerID is optional and only recorded in the audit log
	FarmerID string
}

// Estimate is the cost breakdown for one load. Quantity is in quintals.
type Estimate struct {
	ID          string       `json:"id"`
	Commodity   string       `json:"cropName"`
	Quantity    float64      `json:"quantity"`
	Unit        types.Unit   `json:"unit"`
	Destination types.Market `json:"destination"`

	DistanceKm          float64          `json:"distanceKm"`
	PricePerQuintal     float64          `json:"pricePerQuintal"`
	PriceSource         types.Provenance `json:"priceSource"`
	GrossRevenue        float64          `json:"grossRevenue"`
	TransportCost       float64          `json:"transportCost"`
	Commission          float64          `json:"commission"`
	CommissionRate      float64          `json:"commissionRate"`
	NetProfit           float64          `json:"netProfit"`
	ProfitMarginPercent float64          `json:"profitMarginPercent"`
}

// Estimator computes transport estimates and records them
type Estimator struct {
	catalog *catalog.Catalog
	prices  pricing.Query
	sink    AuditSink
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time

	wg sync.WaitGroup
}

// New creates an estimator. sink may be nil to skip auditing.
func New(cat *catalog.Catalog, prices pricing.Query, sink AuditSink, cfg Config, logger *zap.Logger) *Estimator {
	if logger == nil {
		logger = logging.Named("transport")
	}
	return &Estimator{
		catalog: cat,
		prices:  prices,
		sink:    sink,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Estimate computes the breakdown for req and schedules an audit write
func (e *Estimator) Estimate(ctx context.Context, req Request) (*Estimate, error) {
	commodity := strings.TrimSpace(req.Commodity)
	if commodity == "" {
		return nil, apperrors.Validation("cropName", "cropName is required")
	}
	if !(req.Quantity > 0) || math.IsInf(req.Quantity, 0) {
		return nil, apperrors.Validationf("quantity", "quantity must be a finite number greater than 0, got %g", req.Quantity)
	}
	source := geo.Point{Lat: req.SourceLat, Lon: req.SourceLon}
	if err := source.Validate("sourceLat", "sourceLon"); err != nil {
		return nil, err
	}
	destID := strings.TrimSpace(req.DestinationMarketID)
	if destID == "" {
		return nil, apperrors.Validation("destinationMandiId", "destinationMandiId is required")
	}

	dest, ok := e.catalog.Get(destID)
	if !ok {
		return nil, apperrors.NotFound("mandi", destID)
	}

	distance := geo.Round2(geo.Haversine(source, dest.Coordinates))
	price, priceSource := e.regionPrice(ctx, commodity, dest.Region)

	est := e.compute(distance, price, req.Quantity)
	est.ID = uuid.New().String()
	est.Commodity = commodity
	est.Quantity = req.Quantity
	est.Unit = types.UnitQuintal
	est.Destination = dest
	est.PriceSource = priceSource

	e.logger.Debug("transport estimated",
		zap.String("commodity", commodity),
		zap.String("destination", dest.ID),
		zap.Float64("distance_km", distance),
		zap.String("price_source", string(priceSource)),
		zap.Float64("net_profit", est.NetProfit),
	)

	e.audit(Record{
		ID:                  est.ID,
		FarmerID:            req.FarmerID,
		Commodity:           commodity,
		Quantity:            req.Quantity,
		Source:              source,
		Destination:         dest,
		DistanceKm:          est.DistanceKm,
		PricePerQuintal:     est.PricePerQuintal,
		PriceSource:         est.PriceSource,
		GrossRevenue:        est.GrossRevenue,
		TransportCost:       est.TransportCost,
		Commission:          est.Commission,
		NetProfit:           est.NetProfit,
		ProfitMarginPercent: est.ProfitMarginPercent,
		CreatedAt:           e.now().UTC(),
	})

	return est, nil
}

// compute does the money math. Every rounding is to whole currency units, half away from zero.
func (e *Estimator) compute(distanceKm, price, quantity float64) *Estimate {
	rate := decimal.NewFromFloat(e.cfg.RatePerKm)
	commissionRate := decimal.NewFromFloat(e.cfg.CommissionRate)

	transportCost := decimal.NewFromFloat(distanceKm).Mul(rate).Round(0)
	gross := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(quantity)).Round(0)
	commission := gross.Mul(commissionRate).Round(0)
	net := gross.Sub(transportCost).Sub(commission)

	margin := decimal.Zero
	if !gross.IsZero() {
		margin = net.Mul(decimal.NewFromInt(100)).Div(gross).Round(0)
	}

	return &Estimate{
		DistanceKm:          distanceKm,
		PricePerQuintal:     price,
		GrossRevenue:        gross.InexactFloat64(),
		TransportCost:       transportCost.InexactFloat64(),
		Commission:          commission.InexactFloat64(),
		CommissionRate:      e.cfg.CommissionRate,
		NetProfit:           net.InexactFloat64(),
		ProfitMarginPercent: margin.InexactFloat64(),
	}
}

// regionPrice returns the highest recent price in region, or the fallback price
func (e *Estimator) regionPrice(ctx context.Context, commodity, region string) (float64, types.Provenance) {
	if e.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.QueryTimeout)
		defer cancel()
	}

	obs, err := e.prices.FindHighest(ctx, pricing.Criteria{
		Commodity: commodity,
		Region:    region,
		Since:     pricing.Window(e.now(), e.cfg.LookbackDays),
	})
	if err != nil {
		e.logger.Warn("region price lookup failed, using fallback",
			zap.String("commodity", commodity),
			zap.String("region", region),
			zap.Error(err),
		)
		return e.cfg.FallbackPrice, types.ProvenanceFallback
	}
	if obs == nil {
		return e.cfg.FallbackPrice, types.ProvenanceFallback
	}
	return obs.Price, types.ProvenanceRegion
}

func (e *Estimator) audit(rec Record) {
	if e.sink == nil {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ctx := context.Background()
		if e.cfg.AuditTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.cfg.AuditTimeout)
			defer cancel()
		}

		if err := e.sink.RecordTransport(ctx, rec); err != nil {
			e.logger.Warn("failed to record transport estimate",
				zap.String("id", rec.ID),
				zap.Error(err),
			)
		}
	}()
}

// Flush waits for pending audit writes
func (e *Estimator) Flush() {
	e.wg.Wait()
}
