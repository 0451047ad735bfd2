// Package api - Route handlers
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"agrimarket/core/market"
	"agrimarket/core/pricing"
	"agrimarket/core/transport"
	"agrimarket/core/types"
	apperrors "agrimarket/internal/errors"
)

const maxBodyBytes = 1 << 20

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "healthy",
		Version: s.opts.Version,
		Time:    s.now().UTC().Format(time.RFC3339),
	}
	if s.deps.Catalog != nil {
		resp.Markets = s.deps.Catalog.Len()
	}
	writeOK(w, "service is running", resp)
}

// handleVersion handles GET /api/version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeOK(w, "", VersionResponse{
		Version:    s.opts.Version,
		Service:    "agrimarket",
		APIVersion: "v1",
	})
}

// handleMarkets handles GET /api/markets[?state=]
func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	markets := s.deps.Catalog.All()
	if region := queryAlias(r.URL.Query(), "state", "region"); region != "" {
		markets = s.deps.Catalog.ByRegion(region)
	}
	writeOK(w, "mandis retrieved", MarketsResponse{
		Count:   len(markets),
		Regions: s.deps.Catalog.Regions(),
		Markets: markets,
	})
}

// handleNearby handles GET /api/markets/nearby?lat&lon&commodity&limit
func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := requiredFloat(q, "lat")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	lon, err := requiredFloat(q, "lon")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := optionalInt(q, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.deps.Resolver.Nearest(r.Context(), market.NearestRequest{
		Lat:       lat,
		Lon:       lon,
		Commodity: queryAlias(q, "commodity", "cropName"),
		Limit:     limit,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, "nearest mandis found", result)
}

// handleTransport handles POST /api/transport/calculate
func (s *Server) handleTransport(w http.ResponseWriter, r *http.Request) {
	var body TransportRequest
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}

	req := transport.Request{
		Commodity:           firstNonEmpty(body.Commodity, body.CropName),
		DestinationMarketID: body.DestinationMandiID,
		FarmerID:            body.FarmerID,
	}
	if body.Quantity == nil {
		s.fail(w, r, apperrors.Validation("quantity", "quantity is required"))
		return
	}
	if body.SourceLat == nil {
		s.fail(w, r, apperrors.Validation("sourceLat", "sourceLat is required"))
		return
	}
	if body.SourceLon == nil {
		s.fail(w, r, apperrors.Validation("sourceLon", "sourceLon is required"))
		return
	}
	req.Quantity = *body.Quantity
	req.SourceLat = *body.SourceLat
	req.SourceLon = *body.SourceLon

	est, err := s.deps.Estimator.Estimate(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, "transport cost calculated", est)
}

// handleTransportHistory handles GET /api/transport/history?limit=
func (s *Server) handleTransportHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := optionalInt(r.URL.Query(), "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	switch {
	case limit < 0:
		s.fail(w, r, apperrors.Validationf("limit", "limit must not be negative, got %d", limit))
		return
	case limit == 0:
		limit = s.opts.DefaultHistoryLimit
	case limit > s.opts.MaxHistoryLimit:
		limit = s.opts.MaxHistoryLimit
	}

	records := []transport.Record{}
	if s.deps.Transports != nil {
		listed, err := s.deps.Transports.ListTransports(r.Context(), limit)
		if err != nil {
			s.fail(w, r, apperrors.Persistence("listing transport records", err))
			return
		}
		if listed != nil {
			records = listed
		}
	}
	writeOK(w, "transport history retrieved", TransportHistoryResponse{
		Count:   len(records),
		Records: records,
	})
}

// handleForecast handles GET /api/predict-price/{commodity}
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	fc, err := s.deps.Forecaster.Forecast(r.Context(), r.PathValue("commodity"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, "price forecast generated", fc)
}

// handleHighest handles GET /api/prices/highest?commodity=
func (s *Server) handleHighest(w http.ResponseWriter, r *http.Request) {
	commodity, err := requiredCommodity(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	obs, err := s.deps.Prices.FindHighest(r.Context(), pricing.Criteria{
		Commodity: commodity,
		Since:     pricing.Window(s.now(), s.opts.HighestLookbackDays),
	})
	if err != nil {
		s.fail(w, r, apperrors.Persistence("finding highest price", err))
		return
	}
	if obs == nil {
		s.fail(w, r, apperrors.NotFound("price data", commodity))
		return
	}
	writeOK(w, "highest price found", HighestResponse{
		Commodity:    commodity,
		LookbackDays: s.opts.HighestLookbackDays,
		Price:        obs,
	})
}

// handleHighestRegions handles GET /api/prices/highest-regions?commodity=
func (s *Server) handleHighestRegions(w http.ResponseWriter, r *http.Request) {
	commodity, err := requiredCommodity(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	highs, err := s.deps.Analytics.HighestPerRegion(r.Context(), commodity, pricing.Window(s.now(), s.opts.HighestLookbackDays))
	if err != nil {
		s.fail(w, r, apperrors.Persistence("finding regional highs", err))
		return
	}
	if highs == nil {
		highs = []types.RegionHigh{}
	}
	writeOK(w, "state-wise highest prices retrieved", RegionHighsResponse{
		Commodity:    commodity,
		LookbackDays: s.opts.HighestLookbackDays,
		Regions:      highs,
	})
}

// handleHistory handles GET /api/prices/history/{commodity}?state=
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	commodity := strings.TrimSpace(r.PathValue("commodity"))
	if commodity == "" {
		s.fail(w, r, apperrors.Validation("cropName", "cropName is required"))
		return
	}
	region := queryAlias(r.URL.Query(), "state", "region")

	stats, err := s.deps.Analytics.DailyHistory(r.Context(), commodity, region, pricing.Window(s.now(), s.opts.HistoryDays))
	if err != nil {
		s.fail(w, r, apperrors.Persistence("loading price history", err))
		return
	}
	if stats == nil {
		stats = []types.DailyStat{}
	}
	writeOK(w, "price history retrieved", HistoryResponse{
		Commodity: commodity,
		Region:    region,
		Days:      s.opts.HistoryDays,
		History:   stats,
	})
}

// handleLocal handles GET /api/prices/local?commodity=&state=
func (s *Server) handleLocal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	commodity, err := requiredCommodity(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	region := queryAlias(q, "state", "region")
	if region == "" {
		s.fail(w, r, apperrors.Validation("state", "state is required"))
		return
	}

	prices, err := s.deps.Analytics.LatestDay(r.Context(), commodity, region)
	if err != nil {
		s.fail(w, r, apperrors.Persistence("loading local prices", err))
		return
	}
	if len(prices) == 0 {
		s.fail(w, r, apperrors.NotFound("price data", commodity+" in "+region))
		return
	}
	writeOK(w, "local mandi prices retrieved", LocalPricesResponse{
		Commodity: commodity,
		Region:    region,
		Date:      prices[0].ObservedAt.UTC().Format(types.DateLayout),
		BestPrice: &prices[0],
		Markets:   prices,
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, apperrors.NotFound("route", r.Method+" "+r.URL.Path))
}

// Input helpers

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.Validation("body", "request body is required")
		}
		return apperrors.Validationf("body", "invalid JSON body: %v", err)
	}
	return nil
}

func queryAlias(q url.Values, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

func requiredCommodity(q url.Values) (string, error) {
	commodity := queryAlias(q, "commodity", "cropName")
	if commodity == "" {
		return "", apperrors.Validation("cropName", "cropName is required")
	}
	return commodity, nil
}

func requiredFloat(q url.Values, name string) (float64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, apperrors.Validationf(name, "%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.Validationf(name, "%s must be a number, got %q", name, raw)
	}
	return v, nil
}

func optionalInt(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Validationf(name, "%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
