// Package pricing provides the price query interfaces.
// The core reads price observations only through these interfaces.
package pricing

import (
	"context"
	"strings"
	"time"

	"agrimarket/core/types"
)

// Criteria selects price observations.
// Empty string fields are not filtered on; a zero Since means no lower bound.
type Criteria struct {
	Commodity string
	Market    string
	Region    string
	Since     time.Time
}

// Query is the read-only price service used by the core.
// A lookup that matches nothing returns nil, nil.
type Query interface {
	// FindLatest returns the most recent matching observation
	FindLatest(ctx context.Context, c Criteria) (*types.PriceObservation, error)

	// FindHighest returns the highest-priced matching observation
	FindHighest(ctx context.Context, c Criteria) (*types.PriceObservation, error)

	// AggregateDaily returns per-day mean prices for a commodity, ascending by date
	AggregateDaily(ctx context.Context, commodity string, since time.Time) ([]types.DailyPrice, error)
}

// Analytics provides the reporting queries behind the price endpoints
type Analytics interface {
	// HighestPerRegion returns the highest observation per region, price descending
	HighestPerRegion(ctx context.Context, commodity string, since time.Time) ([]types.RegionHigh, error)

	// DailyHistory returns per-day statistics, ascending by date.
	// An empty region covers all regions.
	DailyHistory(ctx context.Context, commodity, region string, since time.Time) ([]types.DailyStat, error)

	// LatestDay returns the observations of the most recent calendar day with data
	// for a commodity in a region, highest price first
	LatestDay(ctx context.Context, commodity, region string) ([]types.PriceObservation, error)
}

// Key normalizes a name for case-insensitive exact matching
func Key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Matches reports whether an observation satisfies the criteria
func (c Criteria) Matches(o *types.PriceObservation) bool {
	if c.Commodity != "" && Key(o.Commodity) != Key(c.Commodity) {
		return false
	}
	if c.Market != "" && Key(o.Market) != Key(c.Market) {
		return false
	}
	if c.Region != "" && Key(o.Region) != Key(c.Region) {
		return false
	}
	if !c.Since.IsZero() && o.ObservedAt.Before(c.Since) {
		return false
	}
	return true
}

// Window returns the start of a lookback window of days ending at now
func Window(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}
