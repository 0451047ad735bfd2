// Package catalog - Authoritative market catalog
// Defines the fixed list of markets the resolver ranks.
// The catalog is built once at startup and never mutated afterwards.
package catalog

import (
	"sort"
	"strings"

	"agrimarket/core/types"
	apperrors "agrimarket/internal/errors"
)

// Catalog is an immutable, ordered set of markets
type Catalog struct {
	markets []types.Market
	byID    map[string]int
}

// New builds a catalog from entries, keeping their order.
// Every entry must pass DefaultValidationRules and ids must be unique.
func New(entries []types.Market) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, apperrors.Config("catalog", "catalog has no markets")
	}

	c := &Catalog{
		markets: make([]types.Market, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}

	if errs := validate(entries, DefaultValidationRules()); len(errs) > 0 {
		return nil, apperrors.Wrap(apperrors.TypeConfig, "invalid catalog", errs[0]).
			WithContext("errors", len(errs))
	}

	for _, m := range entries {
		if _, dup := c.byID[m.ID]; dup {
			return nil, apperrors.Config("catalog", "duplicate market id "+m.ID)
		}
		c.byID[m.ID] = len(c.markets)
		c.markets = append(c.markets, m)
	}

	return c, nil
}

// All returns a copy of every market in catalog order
func (c *Catalog) All() []types.Market {
	out := make([]types.Market, len(c.markets))
	copy(out, c.markets)
	return out
}

// Get returns a market by id
func (c *Catalog) Get(id string) (types.Market, bool) {
	i, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return types.Market{}, false
	}
	return c.markets[i], true
}

// Len returns the number of markets
func (c *Catalog) Len() int {
	return len(c.markets)
}

// ByRegion returns the markets of one region, matched case-insensitively
func (c *Catalog) ByRegion(region string) []types.Market {
	want := strings.ToLower(strings.TrimSpace(region))
	var result []types.Market
	for _, m := range c.markets {
		if strings.ToLower(m.Region) == want {
			result = append(result, m)
		}
	}
	return result
}

// Regions returns the distinct region names, sorted
func (c *Catalog) Regions() []string {
	seen := make(map[string]bool)
	var result []string
	for _, m := range c.markets {
		if !seen[m.Region] {
			seen[m.Region] = true
			result = append(result, m.Region)
		}
	}
	sort.Strings(result)
	return result
}

// Stats returns catalog statistics
func (c *Catalog) Stats() Stats {
	stats := Stats{
		ByRegion: make(map[string]int),
	}
	for _, m := range c.markets {
		stats.Total++
		stats.ByRegion[m.Region]++
	}
	return stats
}

// Stats holds catalog statistics
type Stats struct {
	Total    int            `json:"total"`
	ByRegion map[string]int `json:"byRegion"`
}
