package ingestion

import (
	"context"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"agrimarket/core/catalog"
)

// Commodity is a crop with its reference price per quintal
type Commodity struct {
	Name      string  `json:"name" yaml:"name"`
	BasePrice float64 `json:"basePrice" yaml:"base_price"`
}

// DefaultCommodities returns the crops the synthetic source generates
func DefaultCommodities() []Commodity {
	return []Commodity{
		{Name: "Wheat", BasePrice: 2100},
		{Name: "Rice", BasePrice: 2600},
		{Name: "Maize", BasePrice: 1800},
		{Name: "Cotton", BasePrice: 6200},
		{Name: "Soybean", BasePrice: 4100},
		{Name: "Onion", BasePrice: 1500},
		{Name: "Tomato", BasePrice: 2200},
		{Name: "Potato", BasePrice: 1200},
		{Name: "Sugarcane", BasePrice: 340},
		{Name: "Turmeric", BasePrice: 8500},
		{Name: "Chilli", BasePrice: 9000},
		{Name: "Groundnut", BasePrice: 5200},
	}
}

// SyntheticFetcher generates plausible daily prices for every catalog market.
// Each region gets a ±15% multiplier per commodity, each market ±4%, each day ±5%.
type SyntheticFetcher struct {
	Catalog     *catalog.Catalog
	Commodities []Commodity
	Days        int
	Seed        uint64
	Now         func() time.Time
}

// NewSyntheticFetcher creates a fetcher for 30 days of the default commodities
func NewSyntheticFetcher(cat *catalog.Catalog, seed uint64) *SyntheticFetcher {
	return &SyntheticFetcher{
		Catalog:     cat,
		Commodities: DefaultCommodities(),
		Days:        30,
		Seed:        seed,
		Now:         time.Now,
	}
}

// Source implements PriceFetcher
func (f *SyntheticFetcher) Source() string {
	return "synthetic"
}

// Fetch implements PriceFetcher
func (f *SyntheticFetcher) Fetch(ctx context.Context) ([]RawPrice, error) {
	seed := f.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))
	today := f.Now().UTC()

	regions := f.Catalog.Regions()
	records := make([]RawPrice, 0, len(f.Commodities)*f.Catalog.Len()*f.Days)

	for _, crop := range f.Commodities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, region := range regions {
			regionMult := 0.85 + rng.Float64()*0.30
			for _, m := range f.Catalog.ByRegion(region) {
				marketMult := 0.96 + rng.Float64()*0.08
				for day := 0; day < f.Days; day++ {
					dailyMult := 0.95 + rng.Float64()*0.10
					price := math.Round(crop.BasePrice * regionMult * marketMult * dailyMult)
					records = append(records, RawPrice{
						Commodity:  crop.Name,
						Region:     region,
						Market:     m.Name,
						Unit:       "quintal",
						Price:      strconv.FormatFloat(price, 'f', -1, 64),
						ObservedAt: today.AddDate(0, 0, -day),
					})
				}
			}
		}
	}

	return records, nil
}
