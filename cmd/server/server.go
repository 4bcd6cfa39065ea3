package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/yourorg/mandi-compare/internal/catalog"
	"github.com/yourorg/mandi-compare/internal/config"
	"github.com/yourorg/mandi-compare/internal/engine"
	"github.com/yourorg/mandi-compare/internal/evaluate"
	"github.com/yourorg/mandi-compare/internal/model"
	"github.com/yourorg/mandi-compare/internal/otel"
	"github.com/yourorg/mandi-compare/internal/security"
	"golang.org/x/time/rate"
)

const version = "1.0.0"

// startTime records when the service was initialized for uptime reporting
var startTime = time.Now()

type ctxKey int

const requestIDKey ctxKey = iota

// Server serves comparisons and catalog lookups over HTTP
type Server struct {
	config    *config.Config
	snapshot  *catalog.Snapshot
	engine    *engine.Engine
	server    *http.Server
	metrics   *serverMetrics
	sealer    *security.Sealer
	rateLimit *rate.Limiter
}

// serverMetrics holds Prometheus metrics for the server
type serverMetrics struct {
	registry          *prometheus.Registry
	requestCounter    *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	comparisons       *prometheus.CounterVec
	ineligibleMarkets *prometheus.CounterVec
	bestProfit        *prometheus.GaugeVec
}

// registerMetrics sets up Prometheus metrics collection on a dedicated registry
func registerMetrics() *serverMetrics {
	m := &serverMetrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mandi_requests_total",
				Help: "Total number of requests processed",
			},
			[]string{"status", "endpoint"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mandi_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		comparisons: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mandi_comparisons_total",
				Help: "Total number of completed comparisons",
			},
			[]string{"crop", "outcome"},
		),
		ineligibleMarkets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mandi_ineligible_markets_total",
				Help: "Markets excluded from comparisons",
			},
			[]string{"reason"},
		),
		bestProfit: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mandi_best_net_profit",
				Help: "Net profit of the best market in the last comparison",
			},
			[]string{"crop"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.requestCounter,
		m.requestDuration,
		m.comparisons,
		m.ineligibleMarkets,
		m.bestProfit,
	)

	return m
}

// apiResponse is the envelope for every JSON response
type apiResponse struct {
	RequestID  string      `json:"requestId"`
	StatusCode int         `json:"statusCode"`
	Status     string      `json:"status"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// compareRequest accepts the quantity as either a JSON number or string
type compareRequest struct {
	Crop     string      `json:"crop"`
	Quantity json.Number `json:"quantity"`
	Unit     string      `json:"unit"`
	Vehicle  string      `json:"vehicle"`
	Location string      `json:"location"`
}

// NewServer creates a server over the given catalog snapshot
func NewServer(cfg *config.Config, snapshot *catalog.Snapshot) *Server {
	s := &Server{
		config:   cfg,
		snapshot: snapshot,
	}

	if cfg.EnableMetrics {
		s.metrics = registerMetrics()
	}

	s.engine = engine.New(snapshot,
		engine.WithThresholds(cfg.Impact),
		engine.WithParallelism(cfg.Parallelism),
		engine.WithIneligibleObserver(s.observeIneligible),
	)

	if cfg.RateLimitRPS > 0 {
		s.rateLimit = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
		logrus.Infof("Rate limiting initialized: %v req/s, burst: %d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	if cfg.SealResults {
		sealer, err := security.NewSealer()
		if err != nil {
			logrus.Warnf("Failed to initialize result sealing: %v", err)
		} else {
			s.sealer = sealer
		}
	}

	logrus.WithFields(logrus.Fields{
		"port":           cfg.Port,
		"timeout":        cfg.RequestTimeout,
		"parallelism":    cfg.Parallelism,
		"metrics":        cfg.EnableMetrics,
		"sealing":        s.sealer != nil,
		"catalog_digest": snapshot.Digest(),
		"markets":        len(snapshot.Markets()),
	}).Info("Server initialized")

	return s
}

// Handler builds the HTTP routing tree
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/compare", s.handleCompare)
	mux.HandleFunc("GET /api/v1/crops", s.handleCrops)
	mux.HandleFunc("GET /api/v1/vehicles", s.handleVehicles)
	mux.HandleFunc("GET /api/v1/locations", s.handleLocations)
	mux.HandleFunc("GET /api/v1/locations/{id}/markets", s.handleLocationMarkets)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	return s.withRequestID(s.withRateLimit(mux))
}

// Start begins the HTTP server and sets up graceful shutdown
func (s *Server) Start() {
	s.server = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Server starting on port %s", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server shutdown failed: %v", err)
	}

	logrus.Info("Server stopped")
}

// withRequestID propagates the caller's X-Request-ID or assigns a new one
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// withRateLimit rejects API requests beyond the configured rate. Health and
// metrics endpoints are never limited.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimit != nil && isAPIPath(r.URL.Path) && !s.rateLimit.Allow() {
			s.errorResponse(w, r, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// routeLabel is the matched route pattern, bounded for use as a metric label
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	return r.Pattern
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}

// handleCompare runs a profitability comparison
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if s.metrics != nil {
		defer func() {
			s.metrics.requestDuration.WithLabelValues(routeLabel(r)).Observe(time.Since(start).Seconds())
		}()
	}

	ctx, span := otel.Tracer().Start(r.Context(), "http.compare")
	defer span.End()

	var body compareRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.errorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	req := model.TripRequest{
		Crop:     body.Crop,
		Quantity: body.Quantity.String(),
		Unit:     body.Unit,
		Vehicle:  body.Vehicle,
		Location: body.Location,
	}

	result, err := s.engine.EvaluateMarkets(ctx, req)
	if err != nil {
		otel.RecordError(ctx, err)
		switch {
		case errors.Is(err, model.ErrInvalidInput):
			s.errorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			s.errorResponse(w, r, http.StatusGatewayTimeout, "Comparison timed out")
		default:
			s.errorResponse(w, r, http.StatusInternalServerError, "Comparison failed")
		}
		return
	}

	if s.metrics != nil {
		outcome := "ranked"
		if result.NoEligibleMarkets {
			outcome = "no_eligible_markets"
		} else {
			s.metrics.bestProfit.WithLabelValues(result.Crop.Type).Set(result.BestMarket.NetProfit)
		}
		s.metrics.comparisons.WithLabelValues(result.Crop.Type, outcome).Inc()
	}

	var data interface{} = result
	if s.sealer != nil {
		envelope, err := s.sealer.Seal(result, s.snapshot.Digest())
		if err != nil {
			logrus.Warnf("Failed to seal result: %v", err)
		} else {
			data = envelope
		}
	}

	s.jsonResponse(w, r, data)
}

func (s *Server) handleCrops(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, r, s.snapshot.Crops())
}

func (s *Server) handleVehicles(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, r, s.snapshot.Vehicles())
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, r, s.snapshot.Locations())
}

// handleLocationMarkets lists the markets reachable from a location
func (s *Server) handleLocationMarkets(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.snapshot.Location(id); !ok {
		s.errorResponse(w, r, http.StatusNotFound, "Unknown location "+id)
		return
	}

	markets := s.snapshot.MarketsForLocation(id)
	if markets == nil {
		markets = []model.Market{}
	}
	s.jsonResponse(w, r, markets)
}

// handleHealth is a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":    "OK",
		"version":   version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus provides detailed service status information
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "operational",
		"uptime":  time.Since(startTime).String(),
		"version": version,
		"catalog": map[string]interface{}{
			"digest":    s.snapshot.Digest(),
			"crops":     len(s.snapshot.Crops()),
			"vehicles":  len(s.snapshot.Vehicles()),
			"locations": len(s.snapshot.Locations()),
			"markets":   len(s.snapshot.Markets()),
		},
		"configuration": map[string]interface{}{
			"parallelism":     s.config.Parallelism,
			"impact_high":     s.config.Impact.High,
			"impact_medium":   s.config.Impact.Medium,
			"rate_limit_rps":  s.config.RateLimitRPS,
			"request_timeout": s.config.RequestTimeout.String(),
			"metrics_enabled": s.config.EnableMetrics,
			"sealing_enabled": s.sealer != nil,
		},
	}

	if s.sealer != nil {
		status["signer"] = s.sealer.Address()
	}

	s.writeJSON(w, r, http.StatusOK, status)
}

// handleMetrics exposes Prometheus metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		http.Error(w, "Metrics disabled", http.StatusServiceUnavailable)
		return
	}

	promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// observeIneligible counts markets the engine left out of a comparison
func (s *Server) observeIneligible(o evaluate.Outcome) {
	if s.metrics != nil {
		s.metrics.ineligibleMarkets.WithLabelValues(o.Reason.String()).Inc()
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, r *http.Request, data interface{}) {
	ok := s.writeJSON(w, r, http.StatusOK, apiResponse{
		RequestID:  requestID(r),
		StatusCode: http.StatusOK,
		Status:     "success",
		Data:       data,
	})
	if ok && s.metrics != nil {
		s.metrics.requestCounter.WithLabelValues("success", routeLabel(r)).Inc()
	}
}

// errorResponse returns a formatted error response
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errorMsg string) {
	logrus.WithFields(logrus.Fields{
		"request_id": requestID(r),
		"path":       r.URL.Path,
		"status":     statusCode,
	}).Warn(errorMsg)

	if s.metrics != nil {
		s.metrics.requestCounter.WithLabelValues("error", routeLabel(r)).Inc()
	}

	s.writeJSON(w, r, statusCode, apiResponse{
		RequestID:  requestID(r),
		StatusCode: statusCode,
		Status:     "error",
		Error:      errorMsg,
	})
}

// writeJSON encodes v before touching the response so that an encoding
// failure still yields a 500 envelope. It reports whether v was written.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, v interface{}) bool {
	body, err := json.Marshal(v)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"request_id": requestID(r),
			"path":       r.URL.Path,
		}).Errorf("Failed to encode response: %v", err)

		if statusCode == http.StatusInternalServerError {
			http.Error(w, "Internal server error", statusCode)
			return false
		}
		s.errorResponse(w, r, http.StatusInternalServerError, "Failed to encode response")
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(append(body, '\n')); err != nil {
		logrus.WithField("request_id", requestID(r)).Debugf("Failed to write response: %v", err)
	}
	return true
}
