// Package types defines core domain types shared across all layers.
// This package contains NO business logic - only type definitions.
package types

// Unit is the mass unit a price is quoted in
type Unit string

const (
	UnitKg      Unit = "kg"
	UnitQuintal Unit = "quintal"
	UnitTon     Unit = "ton"
)

// String returns the string representation of the unit
func (u Unit) String() string {
	return string(u)
}

// IsValid checks if the unit is one of the known units
func (u Unit) IsValid() bool {
	switch u {
	case UnitKg, UnitQuintal, UnitTon:
		return true
	default:
		return false
	}
}

// Provenance tags where an enriched price came from
type Provenance string

const (
	// ProvenanceMarket is an exact match on the market name
	ProvenanceMarket Provenance = "mandi"

	// ProvenanceRegion is the highest price in the market's region
	ProvenanceRegion Provenance = "state-level"

	// ProvenanceFallback is the configured default price
	ProvenanceFallback Provenance = "fallback"
)

// String returns the string representation of the provenance
func (p Provenance) String() string {
	return string(p)
}

// Trend labels the direction of a price forecast
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// TrendOf classifies a slope
func TrendOf(slope float64) Trend {
	switch {
	case slope > 0:
		return TrendRising
	case slope < 0:
		return TrendFalling
	default:
		return TrendStable
	}
}
