package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrimarket/api/envelope"
	"agrimarket/core/catalog"
	"agrimarket/core/forecast"
	"agrimarket/core/geo"
	"agrimarket/core/market"
	"agrimarket/core/transport"
	"agrimarket/core/types"
	"agrimarket/db/memory"
	"agrimarket/internal/logging"
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []envelope.AuditEntry
}

func (a *recordingAudit) Log(entry envelope.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

type fixture struct {
	server    *Server
	store     *memory.Store
	estimator *transport.Estimator
	audit     *recordingAudit
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	cat, err := catalog.New([]types.Market{
		{ID: "A", Name: "Alpha Mandi", Region: "Maharashtra", Coordinates: geo.Point{Lat: 0, Lon: 0}},
		{ID: "B", Name: "Beta Mandi", Region: "Maharashtra", Coordinates: geo.Point{Lat: 0, Lon: 0.0899}},
		{ID: "C", Name: "Gamma Mandi", Region: "Gujarat", Coordinates: geo.Point{Lat: 0, Lon: 0.1799}},
	})
	require.NoError(t, err)

	store := memory.New()
	logger := logging.Nop()
	est := transport.New(cat, store, store, transport.DefaultConfig(), logger)
	audit := &recordingAudit{}

	srv := NewServer(Deps{
		Catalog:    cat,
		Resolver:   market.New(cat, store, market.DefaultConfig(), logger),
		Estimator:  est,
		Forecaster: forecast.New(store, forecast.FixedSource(0.5), forecast.DefaultConfig(), logger),
		Prices:     store,
		Analytics:  store,
		Transports: store,
		Logger:     logger,
		Audit:      audit,
	}, opts)

	return &fixture{server: srv, store: store, estimator: est, audit: audit}
}

func (f *fixture) seed(t *testing.T, obs ...types.PriceObservation) {
	t.Helper()
	_, err := f.store.InsertPrices(context.Background(), obs)
	require.NoError(t, err)
}

func (f *fixture) do(t *testing.T, method, target string, body interface{}) (*httptest.ResponseRecorder, envelope.Response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	var resp envelope.Response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

// decodeData re-decodes the envelope data into v
func decodeData(t *testing.T, resp envelope.Response, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func obs(commodity, region, mandi string, price float64, age time.Duration) types.PriceObservation {
	return types.PriceObservation{
		Commodity:  commodity,
		Region:     region,
		Market:     mandi,
		Price:      price,
		Unit:       types.UnitQuintal,
		ObservedAt: time.Now().Add(-age),
	}
}

func TestHealthAndVersion(t *testing.T) {
	f := newFixture(t, Options{Version: "1.2.3"})

	rec, resp := f.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	var health HealthResponse
	decodeData(t, resp, &health)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	assert.Equal(t, 3, health.Markets)

	_, resp = f.do(t, http.MethodGet, "/api/version", nil)
	var version VersionResponse
	decodeData(t, resp, &version)
	assert.Equal(t, "1.2.3", version.Version)
}

func TestMarkets(t *testing.T) {
	f := newFixture(t, Options{})

	_, resp := f.do(t, http.MethodGet, "/api/markets", nil)
	var all MarketsResponse
	decodeData(t, resp, &all)
	assert.Equal(t, 3, all.Count)
	assert.Equal(t, []string{"Gujarat", "Maharashtra"}, all.Regions)

	_, resp = f.do(t, http.MethodGet, "/api/markets?state=gujarat", nil)
	var filtered MarketsResponse
	decodeData(t, resp, &filtered)
	require.Len(t, filtered.Markets, 1)
	assert.Equal(t, "C", filtered.Markets[0].ID)
}

func TestNearby(t *testing.T) {
	f := newFixture(t, Options{})
	f.seed(t, obs("Onion", "Maharashtra", "alpha mandi", 2100, time.Hour))

	rec, resp := f.do(t, http.MethodGet, "/api/markets/nearby?lat=0&lon=0&cropName=Onion&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result market.NearestResult
	decodeData(t, resp, &result)
	require.Len(t, result.Markets, 2)
	assert.Equal(t, "A", result.Markets[0].ID)
	assert.Equal(t, "0.00 km", result.Markets[0].Distance)
	assert.Equal(t, "B", result.Markets[1].ID)
	require.NotNil(t, result.Commodity)
	assert.Equal(t, "Onion", *result.Commodity)

	require.NotNil(t, result.Markets[0].CropPrice)
	assert.Equal(t, 2100.0, result.Markets[0].CropPrice.Price)
	assert.Equal(t, types.ProvenanceMarket, result.Markets[0].CropPrice.Source)

	// B has no market price but shares the region
	require.NotNil(t, result.Markets[1].CropPrice)
	assert.Equal(t, types.ProvenanceRegion, result.Markets[1].CropPrice.Source)
}

func TestNearby_Validation(t *testing.T) {
	f := newFixture(t, Options{})

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"missing lat", "lon=0", "lat"},
		{"missing lon", "lat=0", "lon"},
		{"non-numeric lat", "lat=north&lon=0", "lat"},
		{"lat out of range", "lat=91&lon=0", "lat"},
		{"bad limit", "lat=0&lon=0&limit=five", "limit"},
		{"negative limit", "lat=0&lon=0&limit=-1", "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := f.do(t, http.MethodGet, "/api/markets/nearby?"+tt.query, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
			assert.Equal(t, tt.field, resp.Error.Field)
		})
	}
}

func TestTransport_Calculate(t *testing.T) {
	f := newFixture(t, Options{})

	body := map[string]interface{}{
		"cropName":           "Wheat",
		"quantity":           10,
		"sourceLat":          0,
		"sourceLon":          0.9,
		"destinationMandiId": "A",
		"farmerId":           "F-1",
	}
	rec, resp := f.do(t, http.MethodPost, "/api/transport/calculate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var est transport.Estimate
	decodeData(t, resp, &est)
	assert.Equal(t, "Wheat", est.Commodity)
	assert.Equal(t, types.ProvenanceFallback, est.PriceSource)
	assert.Equal(t, 2000.0, est.PricePerQuintal)
	assert.Equal(t, 20000.0, est.GrossRevenue)
	assert.Equal(t, 600.0, est.Commission)
	assert.InDelta(t, 100.08, est.DistanceKm, 0.01)

	f.estimator.Flush()
	rec, resp = f.do(t, http.MethodGet, "/api/transport/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history TransportHistoryResponse
	decodeData(t, resp, &history)
	require.Equal(t, 1, history.Count)
	assert.Equal(t, est.ID, history.Records[0].ID)
	assert.Equal(t, "F-1", history.Records[0].FarmerID)
}

func TestTransport_Errors(t *testing.T) {
	f := newFixture(t, Options{})

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
		field  string
	}{
		{"empty body", nil, http.StatusBadRequest, "VALIDATION_ERROR", "body"},
		{"not an object", "wheat", http.StatusBadRequest, "VALIDATION_ERROR", "body"},
		{"missing quantity", map[string]interface{}{"cropName": "Wheat", "sourceLat": 0, "sourceLon": 0, "destinationMandiId": "A"}, http.StatusBadRequest, "VALIDATION_ERROR", "quantity"},
		{"missing source", map[string]interface{}{"cropName": "Wheat", "quantity": 1, "sourceLon": 0, "destinationMandiId": "A"}, http.StatusBadRequest, "VALIDATION_ERROR", "sourceLat"},
		{"zero quantity", map[string]interface{}{"cropName": "Wheat", "quantity": 0, "sourceLat": 0, "sourceLon": 0, "destinationMandiId": "A"}, http.StatusBadRequest, "VALIDATION_ERROR", "quantity"},
		{"missing commodity", map[string]interface{}{"quantity": 1, "sourceLat": 0, "sourceLon": 0, "destinationMandiId": "A"}, http.StatusBadRequest, "VALIDATION_ERROR", "cropName"},
		{"unknown mandi", map[string]interface{}{"commodity": "Wheat", "quantity": 1, "sourceLat": 0, "sourceLon": 0, "destinationMandiId": "ZZ"}, http.StatusNotFound, "NOT_FOUND", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := f.do(t, http.MethodPost, "/api/transport/calculate", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.field, resp.Error.Field)
		})
	}
}

func TestTransport_UnknownMandiReportsID(t *testing.T) {
	f := newFixture(t, Options{})

	body := map[string]interface{}{"cropName": "Wheat", "quantity": 1, "sourceLat": 0, "sourceLon": 0, "destinationMandiId": "ZZ"}
	_, resp := f.do(t, http.MethodPost, "/api/transport/calculate", body)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ZZ", resp.Error.ID)
}

func TestForecast(t *testing.T) {
	f := newFixture(t, Options{})

	rec, resp := f.do(t, http.MethodGet, "/api/predict-price/Tomato", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fc types.Forecast
	decodeData(t, resp, &fc)
	assert.Equal(t, "Tomato", fc.Commodity)
	assert.Equal(t, 0, fc.BasedOnDays)
	assert.Equal(t, types.TrendStable, fc.Trend)
	require.Len(t, fc.Predictions, 7)
	for i, p := range fc.Predictions {
		assert.Equal(t, 2000.0, p.PredictedPrice)
		assert.Equal(t, 85.0-3*float64(i+1), p.Confidence)
	}
}

func TestPricesHighest(t *testing.T) {
	f := newFixture(t, Options{})
	f.seed(t,
		obs("Onion", "Maharashtra", "Alpha Mandi", 2100, time.Hour),
		obs("onion", "Gujarat", "Gamma Mandi", 2600, 2*time.Hour),
		obs("Onion", "Gujarat", "Gamma Mandi", 9000, 10*24*time.Hour),
	)

	rec, resp := f.do(t, http.MethodGet, "/api/prices/highest?commodity=ONION", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var highest HighestResponse
	decodeData(t, resp, &highest)
	require.NotNil(t, highest.Price)
	assert.Equal(t, 2600.0, highest.Price.Price)
	assert.Equal(t, 7, highest.LookbackDays)

	rec, resp = f.do(t, http.MethodGet, "/api/prices/highest?commodity=Garlic", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/prices/highest", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = f.do(t, http.MethodGet, "/api/prices/highest-regions?cropName=onion", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var regions RegionHighsResponse
	decodeData(t, resp, &regions)
	require.Len(t, regions.Regions, 2)
	assert.Equal(t, "Gujarat", regions.Regions[0].Region)
	assert.Equal(t, 2600.0, regions.Regions[0].HighestPrice)
	assert.Equal(t, "Maharashtra", regions.Regions[1].Region)
}

func TestPricesHistory(t *testing.T) {
	f := newFixture(t, Options{})
	f.seed(t,
		obs("Onion", "Maharashtra", "Alpha Mandi", 2000, 24*time.Hour),
		obs("Onion", "Gujarat", "Gamma Mandi", 3000, 24*time.Hour),
	)

	rec, resp := f.do(t, http.MethodGet, "/api/prices/history/onion", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history HistoryResponse
	decodeData(t, resp, &history)
	assert.Equal(t, 30, history.Days)
	require.Len(t, history.History, 1)
	assert.Equal(t, 2500.0, history.History[0].AvgPrice)
	assert.Equal(t, 2, history.History[0].Count)

	_, resp = f.do(t, http.MethodGet, "/api/prices/history/onion?state=gujarat", nil)
	decodeData(t, resp, &history)
	require.Len(t, history.History, 1)
	assert.Equal(t, 3000.0, history.History[0].AvgPrice)

	_, resp = f.do(t, http.MethodGet, "/api/prices/history/garlic", nil)
	decodeData(t, resp, &history)
	assert.Empty(t, history.History)
}

func TestPricesLocal(t *testing.T) {
	f := newFixture(t, Options{})
	day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	at := func(o types.PriceObservation, d time.Duration) types.PriceObservation {
		o.ObservedAt = day.Add(d)
		return o
	}
	f.seed(t,
		at(obs("Wheat", "Maharashtra", "Alpha Mandi", 2100, 0), 9*time.Hour),
		at(obs("Wheat", "Maharashtra", "Beta Mandi", 2350, 0), 11*time.Hour),
		at(obs("Wheat", "Maharashtra", "Alpha Mandi", 2900, 0), -15*time.Hour),
		at(obs("Wheat", "Gujarat", "Gamma Mandi", 3100, 0), 10*time.Hour),
	)

	rec, resp := f.do(t, http.MethodGet, "/api/prices/local?cropName=wheat&state=maharashtra", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var local LocalPricesResponse
	decodeData(t, resp, &local)
	assert.Equal(t, "2026-09-14", local.Date)
	require.NotNil(t, local.BestPrice)
	assert.Equal(t, 2350.0, local.BestPrice.Price)
	assert.Equal(t, "Beta Mandi", local.BestPrice.Market)
	require.Len(t, local.Markets, 2, "only the most recent day")
	assert.Equal(t, 2100.0, local.Markets[1].Price)

	rec, resp = f.do(t, http.MethodGet, "/api/prices/local?cropName=wheat", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "state", resp.Error.Field)

	rec, resp = f.do(t, http.MethodGet, "/api/prices/local?state=Gujarat", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cropName", resp.Error.Field)

	rec, resp = f.do(t, http.MethodGet, "/api/prices/local?cropName=wheat&state=Punjab", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)

	f.store.FailReads(assert.AnError)
	rec, _ = f.do(t, http.MethodGet, "/api/prices/local?cropName=wheat&state=maharashtra", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMandiPathAliases(t *testing.T) {
	f := newFixture(t, Options{})
	f.seed(t, obs("Onion", "Gujarat", "Gamma Mandi", 2600, time.Hour))

	rec, resp := f.do(t, http.MethodGet, "/api/mandis", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all MarketsResponse
	decodeData(t, resp, &all)
	assert.Equal(t, 3, all.Count)

	rec, resp = f.do(t, http.MethodGet, "/api/mandis/nearby?lat=0&lon=0&cropName=Onion", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var nearby market.NearestResult
	decodeData(t, resp, &nearby)
	require.Len(t, nearby.Markets, 3)
	assert.Equal(t, "A", nearby.Markets[0].ID)

	rec, resp = f.do(t, http.MethodGet, "/api/prices/highest-states?cropName=onion", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var regions RegionHighsResponse
	decodeData(t, resp, &regions)
	require.Len(t, regions.Regions, 1)
	assert.Equal(t, "Gujarat", regions.Regions[0].Region)
}

func TestStoreFailureIsInternal(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.FailReads(assert.AnError)

	rec, resp := f.do(t, http.MethodGet, "/api/prices/highest?commodity=onion", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", resp.Message)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t, Options{})

	rec, resp := f.do(t, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 2})

	for i := 0; i < 2; i++ {
		rec, _ := f.do(t, http.MethodGet, "/api/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec, resp := f.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", resp.Error.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRequestIDAndAudit(t *testing.T) {
	f := newFixture(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/markets/nearby?lon=0", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	assert.Equal(t, "req-42", entry.RequestID)
	assert.Equal(t, http.StatusBadRequest, entry.Status)
	assert.Equal(t, "/api/markets/nearby", entry.Path)
	assert.False(t, entry.Success)
}

func TestRecoverFromPanic(t *testing.T) {
	audit := &recordingAudit{}
	h := withAudit(audit, withRecover(logging.Nop(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, http.StatusInternalServerError, audit.entries[0].Status)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, Options{})

	rec, _ := f.do(t, http.MethodOptions, "/api/transport/calculate", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
