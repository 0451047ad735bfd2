package transport

import (
	"context"
	"time"

	"agrimarket/core/geo"
	"agrimarket/core/types"
)

// Record is the audit entry written for every successful estimate
type Record struct {
	ID          string       `json:"id"`
	FarmerID    string       `json:"farmerId,omitempty"`
	Commodity   string       `json:"cropName"`
	Quantity    float64      `json:"quantity"`
	Source      geo.Point    `json:"source"`
	Destination types.Market `json:"destination"`

	DistanceKm          float64          `json:"distanceKm"`
	PricePerQuintal     float64          `json:"pricePerQuintal"`
	PriceSource         types.Provenance `json:"priceSource"`
	GrossRevenue        float64          `json:"grossRevenue"`
	TransportCost       float64          `json:"transportCost"`
	Commission          float64          `json:"commission"`
	NetProfit           float64          `json:"netProfit"`
	ProfitMarginPercent float64          `json:"profitMarginPercent"`

	CreatedAt time.Time `json:"createdAt"`
}

// AuditSink persists transport records
type AuditSink interface {
	RecordTransport(ctx context.Context, rec Record) error
}
