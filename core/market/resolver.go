// Package market ranks catalog markets by distance and enriches them with prices.
package market

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"agrimarket/core/catalog"
	"agrimarket/core/geo"
	"agrimarket/core/pricing"
	"agrimarket/core/types"
	"agrimarket/internal/config"
	apperrors "agrimarket/internal/errors"
	"agrimarket/internal/logging"
)

// Config holds resolver settings
type Config struct {
	DefaultLimit int
	MaxLimit     int
	LookbackDays int
	QueryTimeout time.Duration
}

// DefaultConfig returns the standard settings
func DefaultConfig() Config {
	return ConfigFrom(config.Default().Resolver)
}

// ConfigFrom converts file configuration
func ConfigFrom(c config.ResolverConfig) Config {
	return Config{
		DefaultLimit: c.DefaultLimit,
		MaxLimit:     c.MaxLimit,
		LookbackDays: c.LookbackDays,
		QueryTimeout: c.QueryTimeout(),
	}
}

// NearestRequest asks for the markets closest to a point.
// Limit 0 selects the configured default.
type NearestRequest struct {
	Lat       float64
	Lon       float64
	Commodity string
	Limit     int
}

// NearestResult is the ranked answer
type NearestResult struct {
	QueryPoint geo.Point            `json:"queryPoint"`
	Commodity  *string              `json:"cropName"`
	Markets    []types.RankedMarket `json:"mandis"`
}

// Resolver ranks markets from a catalog
type Resolver struct {
	catalog *catalog.Catalog
	prices  pricing.Query
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a resolver. prices may be nil when enrichment is not wanted.
func New(cat *catalog.Catalog, prices pricing.Query, cfg Config, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = logging.Named("resolver")
	}
	return &Resolver{
		catalog: cat,
		prices:  prices,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Nearest returns the closest markets to the request point, nearest first
func (r *Resolver) Nearest(ctx context.Context, req NearestRequest) (*NearestResult, error) {
	point := geo.Point{Lat: req.Lat, Lon: req.Lon}
	if err := point.Validate("lat", "lon"); err != nil {
		return nil, err
	}

	limit, err := r.limit(req.Limit)
	if err != nil {
		return nil, err
	}

	ranked := r.rank(point)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	result := &NearestResult{
		QueryPoint: point,
		Markets:    ranked,
	}

	commodity := strings.TrimSpace(req.Commodity)
	if commodity != "" {
		result.Commodity = &commodity
		r.enrich(ctx, commodity, ranked)
	}

	r.logger.Debug("ranked markets",
		zap.Float64("lat", point.Lat),
		zap.Float64("lon", point.Lon),
		zap.String("commodity", commodity),
		zap.Int("returned", len(ranked)),
	)

	return result, nil
}

func (r *Resolver) limit(requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, apperrors.Validationf("limit", "limit must be positive, got %d", requested)
	case requested == 0:
		return r.cfg.DefaultLimit, nil
	case r.cfg.MaxLimit > 0 && requested > r.cfg.MaxLimit:
		return r.cfg.MaxLimit, nil
	default:
		return requested, nil
	}
}

// rank sorts every catalog market by unrounded distance. Ties keep catalog order.
func (r *Resolver) rank(point geo.Point) []types.RankedMarket {
	markets := r.catalog.All()

	type scored struct {
		market types.Market
		km     float64
	}
	all := make([]scored, len(markets))
	for i, m := range markets {
		all[i] = scored{market: m, km: geo.Haversine(point, m.Coordinates)}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].km < all[j].km })

	ranked := make([]types.RankedMarket, len(all))
	for i, s := range all {
		km := geo.Round2(s.km)
		ranked[i] = types.RankedMarket{
			Market:     s.market,
			DistanceKm: km,
			Distance:   fmt.Sprintf("%.2f km", km),
		}
	}
	return ranked
}

// enrich attaches a price to each market in place. Lookup failures leave CropPrice nil.
func (r *Resolver) enrich(ctx context.Context, commodity string, ranked []types.RankedMarket) {
	if r.prices == nil {
		return
	}

	since := pricing.Window(r.now(), r.cfg.LookbackDays)

	var g errgroup.Group
	for i := range ranked {
		g.Go(func() error {
			ranked[i].CropPrice = r.lookup(ctx, commodity, ranked[i].Market, since)
			return nil
		})
	}
	_ = g.Wait()
}

// lookup tries the market's own latest price, then the region high.
// A failed or timed-out step counts as no data and moves on.
func (r *Resolver) lookup(ctx context.Context, commodity string, m types.Market, since time.Time) *types.PriceEnrichment {
	obs, err := r.find(ctx, r.prices.FindLatest, pricing.Criteria{
		Commodity: commodity,
		Market:    m.Name,
		Since:     since,
	})
	if err != nil {
		r.logger.Warn("market price lookup failed",
			zap.String("market", m.ID),
			zap.String("commodity", commodity),
			zap.Error(err),
		)
	}
	if obs != nil {
		return &types.PriceEnrichment{Price: obs.Price, Unit: obs.Unit, Source: types.ProvenanceMarket}
	}

	obs, err = r.find(ctx, r.prices.FindHighest, pricing.Criteria{
		Commodity: commodity,
		Region:    m.Region,
		Since:     since,
	})
	if err != nil {
		r.logger.Warn("region price lookup failed",
			zap.String("market", m.ID),
			zap.String("region", m.Region),
			zap.String("commodity", commodity),
			zap.Error(err),
		)
		return nil
	}
	if obs != nil {
		return &types.PriceEnrichment{Price: obs.Price, Unit: obs.Unit, Source: types.ProvenanceRegion}
	}
	return nil
}

type findFunc func(context.Context, pricing.Criteria) (*types.PriceObservation, error)

// find runs one lookup under its own query timeout
func (r *Resolver) find(ctx context.Context, fn findFunc, c pricing.Criteria) (*types.PriceObservation, error) {
	if r.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.QueryTimeout)
		defer cancel()
	}
	obs, err := fn(ctx, c)
	if err != nil {
		return nil, err
	}
	return obs, nil
}
