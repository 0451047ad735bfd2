// Package api - Thin HTTP layer over the market, transport and forecast services.
// Handlers parse input, call a service and serialize the result. No pricing logic lives here.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"agrimarket/api/envelope"
	"agrimarket/core/catalog"
	"agrimarket/core/forecast"
	"agrimarket/core/market"
	"agrimarket/core/pricing"
	"agrimarket/core/transport"
	apperrors "agrimarket/internal/errors"
	"agrimarket/internal/logging"
)

// TransportLister lists recorded transport estimates, newest first
type TransportLister interface {
	ListTransports(ctx context.Context, limit int) ([]transport.Record, error)
}

// Deps are the services the server delegates to
type Deps struct {
	Catalog    *catalog.Catalog
	Resolver   *market.Resolver
	Estimator  *transport.Estimator
	Forecaster *forecast.Forecaster

	// Prices and Analytics back the /api/prices routes
	Prices    pricing.Query
	Analytics pricing.Analytics

	// Transports may be nil, in which case the history route returns an empty list
	Transports TransportLister

	Logger *zap.Logger
	Audit  envelope.AuditLogger
}

// Options tune the HTTP layer
type Options struct {
	Version string

	// RateLimitRPS of 0 disables rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// HighestLookbackDays bounds the /api/prices/highest* routes
	HighestLookbackDays int

	// HistoryDays bounds /api/prices/history
	HistoryDays int

	// DefaultHistoryLimit and MaxHistoryLimit bound /api/transport/history
	DefaultHistoryLimit int
	MaxHistoryLimit     int
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		Version:             "dev",
		HighestLookbackDays: 7,
		HistoryDays:         30,
		DefaultHistoryLimit: 20,
		MaxHistoryLimit:     100,
	}
}

// Server is the API server
type Server struct {
	deps    Deps
	opts    Options
	mux     *http.ServeMux
	handler http.Handler
	logger  *zap.Logger
	now     func() time.Time
}

// NewServer creates a server and registers its routes
func NewServer(deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Named("api")
	}
	audit := deps.Audit
	if audit == nil {
		audit = &envelope.ZapAuditLogger{Logger: logger}
	}

	defaults := DefaultOptions()
	if opts.HighestLookbackDays <= 0 {
		opts.HighestLookbackDays = defaults.HighestLookbackDays
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = defaults.HistoryDays
	}
	if opts.DefaultHistoryLimit <= 0 {
		opts.DefaultHistoryLimit = defaults.DefaultHistoryLimit
	}
	if opts.MaxHistoryLimit <= 0 {
		opts.MaxHistoryLimit = defaults.MaxHistoryLimit
	}
	if opts.Version == "" {
		opts.Version = defaults.Version
	}

	s := &Server{
		deps:   deps,
		opts:   opts,
		mux:    http.NewServeMux(),
		logger: logger,
		now:    time.Now,
	}
	s.registerRoutes()

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), burst)
	}

	// Outermost first: id, audit, recover, cors, rate limit, routes
	var h http.Handler = s.mux
	h = withRateLimit(limiter, h)
	h = withCORS(h)
	h = withRecover(logger, h)
	h = withAudit(audit, h)
	h = withRequestID(h)
	s.handler = h

	return s
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/version", s.handleVersion)

	s.mux.HandleFunc("GET /api/markets", s.handleMarkets)
	s.mux.HandleFunc("GET /api/markets/nearby", s.handleNearby)

	s.mux.HandleFunc("POST /api/transport/calculate", s.handleTransport)
	s.mux.HandleFunc("GET /api/transport/history", s.handleTransportHistory)

	s.mux.HandleFunc("GET /api/predict-price/{commodity}", s.handleForecast)

	s.mux.HandleFunc("GET /api/prices/highest", s.handleHighest)
	s.mux.HandleFunc("GET /api/prices/highest-regions", s.handleHighestRegions)
	s.mux.HandleFunc("GET /api/prices/history/{commodity}", s.handleHistory)
	s.mux.HandleFunc("GET /api/prices/local", s.handleLocal)

	// Paths used by the original mandi client
	s.mux.HandleFunc("GET /api/mandis", s.handleMarkets)
	s.mux.HandleFunc("GET /api/mandis/nearby", s.handleNearby)
	s.mux.HandleFunc("GET /api/prices/highest-states", s.handleHighestRegions)

	s.mux.HandleFunc("/", s.handleNotFound)
}

// Handler returns the routes wrapped in middleware
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// HTTPServer builds an http.Server for addr with the given timeouts
func (s *Server) HTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		ErrorLog:          zap.NewStdLog(s.logger),
	}
}

func writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeOK(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, envelope.OK(message, data), http.StatusOK)
}

func writeError(w http.ResponseWriter, err error) {
	resp, status := envelope.Fail(err)
	writeJSON(w, resp, status)
}

// fail logs server-side failures before writing the envelope
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if envelope.StatusFor(errorType(err)) >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
	}
	writeError(w, err)
}

func errorType(err error) apperrors.Type {
	if e, ok := apperrors.As(err); ok {
		return e.Type
	}
	return apperrors.TypeInternal
}
