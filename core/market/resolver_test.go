package market

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrimarket/core/catalog"
	"agrimarket/core/geo"
	"agrimarket/core/pricing"
	"agrimarket/core/types"
	"agrimarket/db/memory"
	apperrors "agrimarket/internal/errors"
	"agrimarket/internal/logging"
)

// kmPerDegree is one degree of longitude on the equator
const kmPerDegree = math.Pi * geo.EarthRadiusKm / 180

func lineCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]types.Market{
		{ID: "C", Name: "Far Market", Region: "North", Coordinates: geo.Point{Lat: 0, Lon: 20 / kmPerDegree}},
		{ID: "A", Name: "Home Market", Region: "North", Coordinates: geo.Point{Lat: 0, Lon: 0}},
		{ID: "B", Name: "Near Market", Region: "South", Coordinates: geo.Point{Lat: 0, Lon: 10 / kmPerDegree}},
	})
	require.NoError(t, err)
	return c
}

func newResolver(t *testing.T, cat *catalog.Catalog, store *memory.Store) *Resolver {
	t.Helper()
	return New(cat, store, DefaultConfig(), logging.Nop())
}

func ids(markets []types.RankedMarket) []string {
	out := make([]string, len(markets))
	for i, m := range markets {
		out[i] = m.ID
	}
	return out
}

func TestNearest_OrdersByDistance(t *testing.T) {
	r := newResolver(t, lineCatalog(t), memory.New())

	res, err := r.Nearest(context.Background(), NearestRequest{Lat: 0, Lon: 0})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, ids(res.Markets))
	assert.Equal(t, 0.0, res.Markets[0].DistanceKm)
	assert.InDelta(t, 10, res.Markets[1].DistanceKm, 0.01)
	assert.InDelta(t, 20, res.Markets[2].DistanceKm, 0.01)
	assert.Equal(t, "0.00 km", res.Markets[0].Distance)
	assert.Nil(t, res.Commodity)
	for _, m := range res.Markets {
		assert.Nil(t, m.CropPrice)
	}
}

func TestNearest_TiesKeepCatalogOrder(t *testing.T) {
	cat, err := catalog.New([]types.Market{
		{ID: "east", Name: "East", Region: "R", Coordinates: geo.Point{Lat: 0, Lon: 1}},
		{ID: "west", Name: "West", Region: "R", Coordinates: geo.Point{Lat: 0, Lon: -1}},
		{ID: "north", Name: "North", Region: "R", Coordinates: geo.Point{Lat: 1, Lon: 0}},
	})
	require.NoError(t, err)
	r := newResolver(t, cat, memory.New())

	for i := 0; i < 5; i++ {
		res, err := r.Nearest(context.Background(), NearestRequest{})
		require.NoError(t, err)
		assert.Equal(t, []string{"east", "west"}, ids(res.Markets[:2]))
	}
}

func TestNearest_DefaultLimitTruncates(t *testing.T) {
	r := newResolver(t, catalog.Builtin(), memory.New())

	res, err := r.Nearest(context.Background(), NearestRequest{Lat: 18.52, Lon: 73.85})
	require.NoError(t, err)
	require.Len(t, res.Markets, 5)
	assert.Equal(t, "MH002", res.Markets[0].ID, "Pune APMC is nearest to Pune")

	for i := 1; i < len(res.Markets); i++ {
		assert.LessOrEqual(t, res.Markets[i-1].DistanceKm, res.Markets[i].DistanceKm)
	}
}

func TestNearest_LimitHandling(t *testing.T) {
	r := newResolver(t, lineCatalog(t), memory.New())
	ctx := context.Background()

	res, err := r.Nearest(ctx, NearestRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Markets, 2)

	res, err = r.Nearest(ctx, NearestRequest{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, res.Markets, 3, "limit above catalog size returns the whole catalog")

	_, err = r.Nearest(ctx, NearestRequest{Limit: -1})
	e, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "limit", e.Field)
}

func TestNearest_LimitClampedToMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLimit = 2
	r := New(lineCatalog(t), nil, cfg, logging.Nop())

	res, err := r.Nearest(context.Background(), NearestRequest{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, res.Markets, 2)
}

func TestNearest_InvalidCoordinates(t *testing.T) {
	r := newResolver(t, lineCatalog(t), memory.New())

	tests := []struct {
		name  string
		req   NearestRequest
		field string
	}{
		{"nan latitude", NearestRequest{Lat: math.NaN()}, "lat"},
		{"latitude above 90", NearestRequest{Lat: 90.5}, "lat"},
		{"infinite longitude", NearestRequest{Lon: math.Inf(-1)}, "lon"},
		{"longitude below -180", NearestRequest{Lon: -180.1}, "lon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Nearest(context.Background(), tt.req)
			e, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.TypeValidation, e.Type)
			assert.Equal(t, tt.field, e.Field)
		})
	}
}

func observation(commodity, region, market string, price float64, age time.Duration) types.PriceObservation {
	return types.PriceObservation{
		Commodity:  commodity,
		Region:     region,
		Market:     market,
		Price:      price,
		Unit:       types.UnitQuintal,
		ObservedAt: time.Now().Add(-age),
	}
}

func TestNearest_MarketPriceBeatsRegionPrice(t *testing.T) {
	store := memory.New()
	_, err := store.InsertPrices(context.Background(), []types.PriceObservation{
		observation("Wheat", "North", "Home Market", 2100, time.Hour),
		observation("Wheat", "North", "Other Market", 2500, time.Hour),
	})
	require.NoError(t, err)

	r := newResolver(t, lineCatalog(t), store)
	res, err := r.Nearest(context.Background(), NearestRequest{Commodity: "wheat"})
	require.NoError(t, err)
	require.NotNil(t, res.Commodity)
	assert.Equal(t, "wheat", *res.Commodity)

	home := res.Markets[0]
	require.Equal(t, "A", home.ID)
	require.NotNil(t, home.CropPrice)
	assert.Equal(t, 2100.0, home.CropPrice.Price)
	assert.Equal(t, types.ProvenanceMarket, home.CropPrice.Source)

	far := res.Markets[2]
	require.Equal(t, "C", far.ID)
	require.NotNil(t, far.CropPrice)
	assert.Equal(t, 2500.0, far.CropPrice.Price)
	assert.Equal(t, types.ProvenanceRegion, far.CropPrice.Source)

	near := res.Markets[1]
	assert.Nil(t, near.CropPrice, "no data in the South region")
}

func TestNearest_LatestMarketPriceWins(t *testing.T) {
	store := memory.New()
	_, err := store.InsertPrices(context.Background(), []types.PriceObservation{
		observation("Onion", "North", "Home Market", 1900, 3*24*time.Hour),
		observation("Onion", "North", "Home Market", 1500, 2*time.Hour),
		observation("Onion", "North", "Home Market", 9999, 30*24*time.Hour),
	})
	require.NoError(t, err)

	r := newResolver(t, lineCatalog(t), store)
	res, err := r.Nearest(context.Background(), NearestRequest{Commodity: "ONION", Limit: 1})
	require.NoError(t, err)
	require.NotNil(t, res.Markets[0].CropPrice)
	assert.Equal(t, 1500.0, res.Markets[0].CropPrice.Price)
}

func TestNearest_StaleDataIsIgnored(t *testing.T) {
	store := memory.New()
	_, err := store.InsertPrices(context.Background(), []types.PriceObservation{
		observation("Wheat", "North", "Home Market", 2100, 8*24*time.Hour),
	})
	require.NoError(t, err)

	r := newResolver(t, lineCatalog(t), store)
	res, err := r.Nearest(context.Background(), NearestRequest{Commodity: "Wheat"})
	require.NoError(t, err)
	for _, m := range res.Markets {
		assert.Nil(t, m.CropPrice, m.ID)
	}
}

func TestNearest_StoreErrorDegrades(t *testing.T) {
	store := memory.New()
	_, err := store.InsertPrices(context.Background(), []types.PriceObservation{
		observation("Wheat", "North", "Home Market", 2100, time.Hour),
	})
	require.NoError(t, err)
	store.FailReads(errors.New("timeout"))

	r := newResolver(t, lineCatalog(t), store)
	res, err := r.Nearest(context.Background(), NearestRequest{Commodity: "Wheat"})
	require.NoError(t, err)
	require.Len(t, res.Markets, 3)
	for _, m := range res.Markets {
		assert.Nil(t, m.CropPrice)
	}
}

// splitQuery fails or stalls market lookups and answers region lookups
type splitQuery struct {
	latestErr   error
	stallLatest bool
	highest     *types.PriceObservation
}

func (q *splitQuery) FindLatest(ctx context.Context, c pricing.Criteria) (*types.PriceObservation, error) {
	if q.stallLatest {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, q.latestErr
}

func (q *splitQuery) FindHighest(ctx context.Context, c pricing.Criteria) (*types.PriceObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return q.highest, nil
}

func (q *splitQuery) AggregateDaily(ctx context.Context, commodity string, since time.Time) ([]types.DailyPrice, error) {
	return nil, nil
}

func TestNearest_MarketLookupFailureFallsBackToRegion(t *testing.T) {
	q := &splitQuery{
		latestErr: errors.New("connection reset"),
		highest:   &types.PriceObservation{Price: 2500, Unit: types.UnitQuintal},
	}
	r := New(lineCatalog(t), q, DefaultConfig(), logging.Nop())

	res, err := r.Nearest(context.Background(), NearestRequest{Commodity: "Wheat"})
	require.NoError(t, err)
	for _, m := range res.Markets {
		require.NotNil(t, m.CropPrice, m.ID)
		assert.Equal(t, 2500.0, m.CropPrice.Price)
		assert.Equal(t, types.ProvenanceRegion, m.CropPrice.Source)
	}
}

func TestNearest_MarketTimeoutLeavesRegionItsOwnBudget(t *testing.T) {
	q := &splitQuery{
		stallLatest: true,
		highest:     &types.PriceObservation{Price: 1800, Unit: types.UnitQuintal},
	}
	cfg := DefaultConfig()
	cfg.QueryTimeout = 20 * time.Millisecond
	r := New(lineCatalog(t), q, cfg, logging.Nop())

	res, err := r.Nearest(context.Background(), NearestRequest{Commodity: "Wheat", Limit: 1})
	require.NoError(t, err)
	require.NotNil(t, res.Markets[0].CropPrice)
	assert.Equal(t, 1800.0, res.Markets[0].CropPrice.Price)
	assert.Equal(t, types.ProvenanceRegion, res.Markets[0].CropPrice.Source)
}
