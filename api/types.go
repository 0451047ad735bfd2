// Package api - Request and response bodies
package api

import (
	"agrimarket/core/transport"
	"agrimarket/core/types"
)

// TransportRequest is the body of POST /api/transport/calculate.
// cropName is accepted as an alias of commodity.
type TransportRequest struct {
	Commodity          string   `json:"commodity"`
	CropName           string   `json:"cropName"`
	Quantity           *float64 `json:"quantity"`
	SourceLat          *float64 `json:"sourceLat"`
	SourceLon          *float64 `json:"sourceLon"`
	DestinationMandiID string   `json:"destinationMandiId"`
	FarmerID           string   `json:"farmerId,omitempty"`
}

// HealthResponse is returned by GET /api/health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Time    string `json:"time"`
	Markets int    `json:"markets"`
}

// VersionResponse is returned by GET /api/version
type VersionResponse struct {
	Version    string `json:"version"`
	Service    string `json:"service"`
	APIVersion string `json:"apiVersion"`
}

// MarketsResponse is returned by GET /api/markets
type MarketsResponse struct {
	Count   int            `json:"count"`
	Regions []string       `json:"states"`
	Markets []types.Market `json:"mandis"`
}

// HighestResponse is returned by GET /api/prices/highest
type HighestResponse struct {
	Commodity    string                  `json:"cropName"`
	LookbackDays int                     `json:"lookbackDays"`
	Price        *types.PriceObservation `json:"price"`
}

// RegionHighsResponse is returned by GET /api/prices/highest-regions
type RegionHighsResponse struct {
	Commodity    string             `json:"cropName"`
	LookbackDays int                `json:"lookbackDays"`
	Regions      []types.RegionHigh `json:"states"`
}

// HistoryResponse is returned by GET /api/prices/history/{commodity}
type HistoryResponse struct {
	Commodity string            `json:"cropName"`
	Region    string            `json:"state,omitempty"`
	Days      int               `json:"days"`
	History   []types.DailyStat `json:"history"`
}

// LocalPricesResponse is returned by GET /api/prices/local
type LocalPricesResponse struct {
	Commodity string                   `json:"cropName"`
	Region    string                   `json:"state"`
	Date      string                   `json:"date"`
	BestPrice *types.PriceObservation  `json:"bestPrice"`
	Markets   []types.PriceObservation `json:"allMandis"`
}

// TransportHistoryResponse is returned by GET /api/transport/history
type TransportHistoryResponse struct {
	Count   int                `json:"count"`
	Records []transport.Record `json:"records"`
}
