// Package memory provides an in-process price and audit store.
// It backs tests and the memory driver; data is lost on Close.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"agrimarket/core/pricing"
	"agrimarket/core/transport"
	"agrimarket/core/types"
)

// Store is a goroutine-safe in-memory store
type Store struct {
	mu         sync.RWMutex
	prices     []types.PriceObservation
	transports []transport.Record
	nextID     int64

	// failWith, when set, is returned by every read
	failWith error
}

// New creates an empty store
func New() *Store {
	return &Store{}
}

// FailReads makes every subsequent read return err; nil restores normal reads
func (s *Store) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *Store) filter(c pricing.Criteria) ([]types.PriceObservation, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	var result []types.PriceObservation
	for i := range s.prices {
		if c.Matches(&s.prices[i]) {
			result = append(result, s.prices[i])
		}
	}
	return result, nil
}

// FindLatest implements pricing.Query
func (s *Store) FindLatest(ctx context.Context, c pricing.Criteria) (*types.PriceObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := s.filter(c)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	best := matches[0]
	for _, o := range matches[1:] {
		if o.ObservedAt.After(best.ObservedAt) {
			best = o
		}
	}
	return &best, nil
}

// FindHighest implements pricing.Query
func (s *Store) FindHighest(ctx context.Context, c pricing.Criteria) (*types.PriceObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := s.filter(c)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	best := matches[0]
	for _, o := range matches[1:] {
		if o.Price > best.Price {
			best = o
		}
	}
	return &best, nil
}

// AggregateDaily implements pricing.Query
func (s *Store) AggregateDaily(ctx context.Context, commodity string, since time.Time) ([]types.DailyPrice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := s.filter(pricing.Criteria{Commodity: commodity, Since: since})
	if err != nil {
		return nil, err
	}
	return pricing.DailyMeans(matches), nil
}

// HighestPerRegion implements pricing.Analytics
func (s *Store) HighestPerRegion(ctx context.Context, commodity string, since time.Time) ([]types.RegionHigh, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := s.filter(pricing.Criteria{Commodity: commodity, Since: since})
	if err != nil {
		return nil, err
	}
	return pricing.RegionHighs(matches), nil
}

// DailyHistory implements pricing.Analytics
func (s *Store) DailyHistory(ctx context.Context, commodity, region string, since time.Time) ([]types.DailyStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := s.filter(pricing.Criteria{Commodity: commodity, Region: region, Since: since})
	if err != nil {
		return nil, err
	}
	return pricing.DailyStats(matches), nil
}

// LatestDay implements pricing.Analytics
func (s *Store) LatestDay(ctx context.Context, commodity, region string) ([]types.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := s.filter(pricing.Criteria{Commodity: commodity, Region: region})
	if err != nil {
		return nil, err
	}
	return pricing.LatestDay(matches), nil
}

// InsertPrices appends observations and returns how many were stored
func (s *Store) InsertPrices(ctx context.Context, obs []types.PriceObservation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range obs {
		s.nextID++
		o.ID = s.nextID
		s.prices = append(s.prices, o)
	}
	return len(obs), nil
}

// DeletePrices removes every observation
func (s *Store) DeletePrices(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = nil
	return nil
}

// CountPrices returns the number of observations
func (s *Store) CountPrices(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prices), nil
}

// RecordTransport implements transport.AuditSink
func (s *Store) RecordTransport(ctx context.Context, rec transport.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transports = append(s.transports, rec)
	return nil
}

// ListTransports returns the most recent records first
func (s *Store) ListTransports(ctx context.Context, limit int) ([]transport.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]transport.Record, 0, len(s.transports))
	for i := len(s.transports) - 1; i >= 0; i-- {
		result = append(result, s.transports[i])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Close implements io.Closer
func (s *Store) Close() error {
	return nil
}
