// Package catalog - Built-in market catalog
// Markets are registered region by region in the zone files.
package catalog

import (
	"agrimarket/core/geo"
	"agrimarket/core/types"
)

// Builder accumulates markets in registration order
type Builder struct {
	entries []types.Market
}

// Register adds a market
func (b *Builder) Register(id, name, region, district string, lat, lon float64) {
	b.entries = append(b.entries, types.Market{
		ID:          id,
		Name:        name,
		Region:      region,
		District:    district,
		Coordinates: geo.Point{Lat: lat, Lon: lon},
	})
}

// Entries returns the registered markets
func (b *Builder) Entries() []types.Market {
	return b.entries
}

// BuiltinEntries returns the default Indian market list
func BuiltinEntries() []types.Market {
	b := &Builder{}
	RegisterWest(b)
	RegisterNorth(b)
	RegisterSouth(b)
	RegisterEast(b)
	return b.Entries()
}

// Builtin returns the default catalog. It panics if the built-in data is invalid.
func Builtin() *Catalog {
	c, err := New(BuiltinEntries())
	if err != nil {
		panic("built-in catalog: " + err.Error())
	}
	return c
}
