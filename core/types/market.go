package types

import "agrimarket/core/geo"

// Market is a regulated produce market (mandi) in the static catalog
type Market struct {
	// ID uniquely identifies the market
	ID string `json:"id" yaml:"id"`

	// Name is the display name, also used to match price records
	Name string `json:"name" yaml:"name"`

	// Region is the state the market belongs to
	Region string `json:"state" yaml:"state"`

	// District is the administrative district
	District string `json:"district" yaml:"district"`

	// Coordinates locate the market
	Coordinates geo.Point `json:"coordinates" yaml:"coordinates"`
}

// PriceEnrichment is a best-effort current price attached to a ranked market
type PriceEnrichment struct {
	Price  float64    `json:"price"`
	Unit   Unit       `json:"unit"`
	Source Provenance `json:"source"`
}

// RankedMarket is a market with its distance from a query point
type RankedMarket struct {
	Market

	// DistanceKm is rounded to two decimals
	DistanceKm float64 `json:"distanceKm"`

	// Distance is the human-readable distance
	Distance string `json:"distance"`

	// CropPrice is nil when no price data was found
	CropPrice *PriceEnrichment `json:"cropPrice"`
}
