// Package forecast projects short-horizon commodity prices from recent history.
//
// The projection is a least-squares line through daily mean prices, anchored
// at the latest mean, with uniform noise and a confidence that decays by a
// fixed step per day.
package forecast

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"agrimarket/core/pricing"
	"agrimarket/core/types"
	"agrimarket/internal/config"
	apperrors "agrimarket/internal/errors"
	"agrimarket/internal/logging"
)

// Config holds forecast parameters
type Config struct {
	HistoryDays      int
	HorizonDays      int
	DefaultBasePrice float64
	PriceFloor       float64
	NoiseFraction    float64
	BaseConfidence   float64
	ConfidenceDecay  float64
	MinConfidence    float64
	QueryTimeout     time.Duration
}

// DefaultConfig returns the standard parameters
func DefaultConfig() Config {
	return ConfigFrom(config.Default().Forecast)
}

// ConfigFrom converts file configuration
func ConfigFrom(c config.ForecastConfig) Config {
	return Config{
		HistoryDays:      c.HistoryDays,
		HorizonDays:      c.HorizonDays,
		DefaultBasePrice: c.DefaultBasePrice,
		PriceFloor:       c.PriceFloor,
		NoiseFraction:    c.NoiseFraction,
		BaseConfidence:   c.BaseConfidence,
		ConfidenceDecay:  c.ConfidenceDecay,
		MinConfidence:    c.MinConfidence,
		QueryTimeout:     c.QueryTimeout(),
	}
}

// Forecaster produces price forecasts
type Forecaster struct {
	prices pricing.Query
	noise  NoiseSource
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New creates a forecaster. A nil noise source gets a clock-seeded PCG source.
func New(prices pricing.Query, noise NoiseSource, cfg Config, logger *zap.Logger) *Forecaster {
	if noise == nil {
		noise = NewSource(0)
	}
	if logger == nil {
		logger = logging.Named("forecast")
	}
	return &Forecaster{
		prices: prices,
		noise:  noise,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Forecast projects prices for commodity over the configured horizon
func (f *Forecaster) Forecast(ctx context.Context, commodity string) (*types.Forecast, error) {
	commodity = strings.TrimSpace(commodity)
	if commodity == "" {
		return nil, apperrors.Validation("cropName", "cropName is required")
	}

	now := f.now()
	history := f.history(ctx, commodity, pricing.Window(now, f.cfg.HistoryDays))

	base, slope := f.fit(history)

	predictions := make([]types.ForecastPoint, 0, f.cfg.HorizonDays)
	for day := 1; day <= f.cfg.HorizonDays; day++ {
		noise := (f.noise.Float64() - 0.5) * 2 * f.cfg.NoiseFraction * base
		price := math.Round(base + slope*float64(day) + noise)
		confidence := math.Round(f.cfg.BaseConfidence - f.cfg.ConfidenceDecay*float64(day))

		predictions = append(predictions, types.ForecastPoint{
			Date:           now.AddDate(0, 0, day).Format(types.DateLayout),
			PredictedPrice: math.Max(f.cfg.PriceFloor, price),
			Confidence:     math.Max(f.cfg.MinConfidence, confidence),
		})
	}

	f.logger.Debug("forecast computed",
		zap.String("commodity", commodity),
		zap.Int("history_days", len(history)),
		zap.Float64("base", base),
		zap.Float64("slope", slope),
	)

	return &types.Forecast{
		Commodity:   commodity,
		BasedOnDays: len(history),
		Trend:       types.TrendOf(slope),
		TrendValue:  math.Round(slope*100) / 100,
		Predictions: predictions,
	}, nil
}

// history loads the daily series. Failures degrade to an empty series.
func (f *Forecaster) history(ctx context.Context, commodity string, since time.Time) []types.DailyPrice {
	if f.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.QueryTimeout)
		defer cancel()
	}

	series, err := f.prices.AggregateDaily(ctx, commodity, since)
	if err != nil {
		f.logger.Warn("price history unavailable, forecasting from default",
			zap.String("commodity", commodity),
			zap.Error(err),
		)
		return nil
	}
	return series
}

// fit returns the anchor price and the per-day slope
func (f *Forecaster) fit(history []types.DailyPrice) (base, slope float64) {
	switch len(history) {
	case 0:
		return f.cfg.DefaultBasePrice, 0
	case 1:
		return history[0].MeanPrice, 0
	}

	ys := make([]float64, len(history))
	for i, d := range history {
		ys[i] = d.MeanPrice
	}
	return ys[len(ys)-1], Slope(ys)
}

// Slope is the ordinary least-squares slope of ys against their indexes 0..n-1.
// Fewer than two points have slope 0.
func Slope(ys []float64) float64 {
	n := float64(len(ys))
	if len(ys) < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
