// Package types - Pricing types
package types

import "time"

// PriceObservation is one recorded price for a commodity at a market
type PriceObservation struct {
	// ID is assigned by the store
	ID int64 `json:"id,omitempty"`

	// Commodity is the crop name, matched case-insensitively
	Commodity string `json:"cropName"`

	// Region is the state of the market
	Region string `json:"state"`

	// Market is the market name
	Market string `json:"mandiName"`

	// Price is per Unit and never negative
	Price float64 `json:"price"`

	// Unit is the mass unit of Price
	Unit Unit `json:"unit"`

	// ObservedAt is when the price was recorded
	ObservedAt time.Time `json:"date"`
}

// DailyPrice is the mean price of a commodity on one calendar day
type DailyPrice struct {
	// Date is formatted YYYY-MM-DD
	Date      string  `json:"date"`
	MeanPrice float64 `json:"avgPrice"`
}

// DailyStat summarises one calendar day of observations
type DailyStat struct {
	Date     string  `json:"date"`
	AvgPrice float64 `json:"avgPrice"`
	MinPrice float64 `json:"minPrice"`
	MaxPrice float64 `json:"maxPrice"`
	Count    int     `json:"count"`
}

// RegionHigh is the highest recent price of a commodity within one region
type RegionHigh struct {
	Region       string    `json:"state"`
	HighestPrice float64   `json:"highestPrice"`
	Market       string    `json:"mandiName"`
	Unit         Unit      `json:"unit"`
	ObservedAt   time.Time `json:"date"`
}

// DateLayout is the calendar-day format used for daily aggregates
const DateLayout = "2006-01-02"
