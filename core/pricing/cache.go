// Package pricing - Query cache with TTL
// Stale prices are bounded by the TTL; entries are never refreshed in place.
package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"agrimarket/core/types"
)

// CachePolicy defines cache behavior
type CachePolicy struct {
	// TTL for entries
	TTL time.Duration

	// Max entries; the oldest entry is evicted when full
	MaxEntries int

	// FetchTimeout bounds a shared fetch, which runs detached from any one caller
	FetchTimeout time.Duration
}

// DefaultCachePolicy returns the default policy
func DefaultCachePolicy() CachePolicy {
	return CachePolicy{
		TTL:          time.Minute,
		MaxEntries:   10000,
		FetchTimeout: 10 * time.Second,
	}
}

// CacheStats holds cache statistics
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

type cacheEntry struct {
	value     interface{}
	createdAt time.Time
	expiresAt time.Time
}

// CachedQuery wraps a Query and memoizes results, including misses.
// Errors are never cached. Concurrent misses on one key share a single fetch,
// and a caller giving up does not cancel it for the others.
type CachedQuery struct {
	next   Query
	policy CachePolicy
	now    func() time.Time
	group  singleflight.Group

	mu      sync.Mutex
	entries map[string]*cacheEntry
	gen     uint64
	hits    int64
	misses  int64
}

// NewCachedQuery creates a caching decorator around next
func NewCachedQuery(next Query, policy CachePolicy) *CachedQuery {
	if policy.TTL <= 0 {
		policy.TTL = DefaultCachePolicy().TTL
	}
	if policy.MaxEntries <= 0 {
		policy.MaxEntries = DefaultCachePolicy().MaxEntries
	}
	if policy.FetchTimeout <= 0 {
		policy.FetchTimeout = DefaultCachePolicy().FetchTimeout
	}
	return &CachedQuery{
		next:    next,
		policy:  policy,
		now:     time.Now,
		entries: make(map[string]*cacheEntry),
	}
}

// FindLatest implements Query
func (q *CachedQuery) FindLatest(ctx context.Context, c Criteria) (*types.PriceObservation, error) {
	v, err := q.load(ctx, "latest|"+c.cacheKey(), func(fctx context.Context) (interface{}, error) {
		return q.next.FindLatest(fctx, c)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.PriceObservation), nil
}

// FindHighest implements Query
func (q *CachedQuery) FindHighest(ctx context.Context, c Criteria) (*types.PriceObservation, error) {
	v, err := q.load(ctx, "highest|"+c.cacheKey(), func(fctx context.Context) (interface{}, error) {
		return q.next.FindHighest(fctx, c)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.PriceObservation), nil
}

// AggregateDaily implements Query
func (q *CachedQuery) AggregateDaily(ctx context.Context, commodity string, since time.Time) ([]types.DailyPrice, error) {
	key := "daily|" + Criteria{Commodity: commodity, Since: since}.cacheKey()
	v, err := q.load(ctx, key, func(fctx context.Context) (interface{}, error) {
		return q.next.AggregateDaily(fctx, commodity, since)
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.DailyPrice), nil
}

// load returns the cached value for key or fetches and stores it.
// The fetch runs on a context detached from ctx; ctx only bounds the wait.
func (q *CachedQuery) load(ctx context.Context, key string, fetch func(context.Context) (interface{}, error)) (interface{}, error) {
	v, gen, ok := q.get(key)
	if ok {
		return v, nil
	}

	ch := q.group.DoChan(fmt.Sprintf("%d#%s", gen, key), func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.policy.FetchTimeout)
		defer cancel()

		v, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		q.put(key, v, gen)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops every entry. Call it after writing prices.
// Fetches already in flight do not repopulate the cache.
func (q *CachedQuery) Invalidate() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = make(map[string]*cacheEntry)
	q.gen++
}

// Stats returns cache statistics
func (q *CachedQuery) Stats() CacheStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return CacheStats{Entries: len(q.entries), Hits: q.hits, Misses: q.misses}
}

// get also returns the current generation so a fetch can be tied to it
func (q *CachedQuery) get(key string) (interface{}, uint64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[key]
	if !ok || q.now().After(e.expiresAt) {
		if ok {
			delete(q.entries, key)
		}
		q.misses++
		return nil, q.gen, false
	}
	q.hits++
	return e.value, q.gen, true
}

// put stores value unless the cache was invalidated since gen
func (q *CachedQuery) put(key string, value interface{}, gen uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if gen != q.gen {
		return
	}
	if len(q.entries) >= q.policy.MaxEntries {
		q.evictOldest()
	}
	now := q.now()
	q.entries[key] = &cacheEntry{value: value, createdAt: now, expiresAt: now.Add(q.policy.TTL)}
}

func (q *CachedQuery) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range q.entries {
		if oldestKey == "" || e.createdAt.Before(oldest) {
			oldestKey, oldest = k, e.createdAt
		}
	}
	delete(q.entries, oldestKey)
}

// cacheKey truncates Since to the minute so rolling windows share entries
func (c Criteria) cacheKey() string {
	since := ""
	if !c.Since.IsZero() {
		since = c.Since.UTC().Truncate(time.Minute).Format(time.RFC3339)
	}
	return fmt.Sprintf("%s|%s|%s|%s", Key(c.Commodity), Key(c.Market), Key(c.Region), since)
}
