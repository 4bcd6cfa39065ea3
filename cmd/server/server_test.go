package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/mandi-compare/internal/catalog"
	"github.com/yourorg/mandi-compare/internal/config"
	"github.com/yourorg/mandi-compare/internal/insight"
	"github.com/yourorg/mandi-compare/internal/model"
	"github.com/yourorg/mandi-compare/internal/security"
)

type testEnvelope struct {
	RequestID  string          `json:"requestId"`
	StatusCode int             `json:"statusCode"`
	Status     string          `json:"status"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

func testConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		RequestTimeout: 5 * time.Second,
		LogLevel:       "info",
		LogFormat:      "text",
		Impact:         insight.DefaultThresholds(),
		EnableMetrics:  true,
	}
}

func testServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()

	snap, err := catalog.Build(catalog.Document{
		Locations: []model.Location{{ID: "L1", Name: "Village One"}, {ID: "L2", Name: "Village Two"}},
		Vehicles:  []model.Vehicle{{Type: "tractor", Name: "Tractor", RatePerKm: 20}},
		Crops: []model.Crop{
			{Type: "wheat", Name: "Wheat", ShelfLife: 180},
			{Type: "saffron", Name: "Saffron", ShelfLife: 365},
		},
		Markets: []model.Market{
			{ID: "M1", Name: "Market One", Prices: map[string]float64{"wheat": 2000}, HandlingCharges: 500},
			{ID: "M2", Name: "Market Two", Prices: map[string]float64{"wheat": 2300}, HandlingCharges: 400},
			{ID: "M3", Name: "Market Three", Prices: map[string]float64{"wheat": 2600}},
		},
		Distances: map[string]float64{"L1_M1": 50, "L1_M2": 120, "L2_M3": 15},
	})
	require.NoError(t, err)

	return NewServer(cfg, snap)
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env testEnvelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

const wheatBody = `{"crop":"wheat","quantity":"10","unit":"quintal","vehicle":"tractor","location":"L1"}`

func TestCompare_Success(t *testing.T) {
	h := testServer(t, testConfig()).Handler()

	rec, env := do(t, h, http.MethodPost, "/api/v1/compare", wheatBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", env.Status)
	assert.NotEmpty(t, env.RequestID)
	assert.Equal(t, env.RequestID, rec.Header().Get("X-Request-ID"))

	var result model.ProfitabilityResult
	require.NoError(t, json.Unmarshal(env.Data, &result))

	require.Len(t, result.Markets, 2)
	assert.Equal(t, "M2", result.Markets[0].ID)
	assert.Equal(t, 20200.0, result.Markets[0].NetProfit)
	assert.Equal(t, 18500.0, result.Markets[1].NetProfit)
	assert.Equal(t, "M2", result.BestMarket.ID)
	assert.Equal(t, "M1", result.NearestMarket.ID)
	assert.Equal(t, 1700.0, result.PotentialSavings)
}

func TestCompare_NumericQuantity(t *testing.T) {
	h := testServer(t, testConfig()).Handler()

	body := `{"crop":"wheat","quantity":1,"unit":"ton","vehicle":"tractor","location":"L1"}`
	rec, env := do(t, h, http.MethodPost, "/api/v1/compare", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var result model.ProfitabilityResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 10.0, result.QuantityInQuintals)
}

func TestCompare_BadRequests(t *testing.T) {
	h := testServer(t, testConfig()).Handler()

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"crop":`},
		{name: "unknown field", body: `{"crop":"wheat","colour":"red"}`},
		{name: "unknown crop", body: `{"crop":"rice","quantity":"10","unit":"quintal","vehicle":"tractor","location":"L1"}`},
		{name: "unknown location", body: `{"crop":"wheat","quantity":"10","unit":"quintal","vehicle":"tractor","location":"L9"}`},
		{name: "bad unit", body: `{"crop":"wheat","quantity":"10","unit":"bushel","vehicle":"tractor","location":"L1"}`},
		{name: "zero quantity", body: `{"crop":"wheat","quantity":"0","unit":"quintal","vehicle":"tractor","location":"L1"}`},
		{name: "missing quantity", body: `{"crop":"wheat","unit":"quintal","vehicle":"tractor","location":"L1"}`},
		{name: "quantity overflows", body: `{"crop":"wheat","quantity":1e400,"unit":"quintal","vehicle":"tractor","location":"L1"}`},
		{name: "quantity underflows", body: `{"crop":"wheat","quantity":1e-400,"unit":"quintal","vehicle":"tractor","location":"L1"}`},
		{name: "quantity string overflows", body: `{"crop":"wheat","quantity":"1e400","unit":"ton","vehicle":"tractor","location":"L1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPost, "/api/v1/compare", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "error", env.Status)
			assert.NotEmpty(t, env.Error)
			assert.NotEmpty(t, env.RequestID)
		})
	}
}

func TestCompare_UnencodableResult(t *testing.T) {
	h := testServer(t, testConfig()).Handler()

	// finite quantity, but revenue overflows to +Inf which JSON cannot carry
	body := `{"crop":"wheat","quantity":"1e307","unit":"quintal","vehicle":"tractor","location":"L1"}`
	rec, env := do(t, h, http.MethodPost, "/api/v1/compare", body)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, http.StatusInternalServerError, env.StatusCode)
	assert.Equal(t, "Failed to encode response", env.Error)
	assert.NotEmpty(t, env.RequestID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	metrics := rec.Body.String()
	assert.Contains(t, metrics, `mandi_requests_total{endpoint="POST /api/v1/compare",status="error"} 1`)
	assert.NotContains(t, metrics, `status="success"`)
}

func TestCompare_NoEligibleMarkets(t *testing.T) {
	h := testServer(t, testConfig()).Handler()

	body := `{"crop":"saffron","quantity":"2","unit":"quintal","vehicle":"tractor","location":"L1"}`
	rec, env := do(t, h, http.MethodPost, "/api/v1/compare", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, true, result["noEligibleMarkets"])
	assert.Equal(t, []interface{}{}, result["mandis"])
	assert.Nil(t, result["bestMandi"])
}

func TestCompare_MethodNotAllowed(t *testing.T) {
	h := testServer(t, testConfig()).Handler()

	rec, _ := do(t, h, http.MethodGet, "/api/v1/compare", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCompare_Sealed(t *testing.T) {
	cfg := testConfig()
	cfg.SealResults = true
	s := testServer(t, cfg)
	require.NotNil(t, s.sealer)

	rec, env := do(t, s.Handler(), http.MethodPost, "/api/v1/compare", wheatBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var sealed security.Envelope
	require.NoError(t, json.Unmarshal(env.Data, &sealed))
	assert.Equal(t, s.snapshot.Digest(), sealed.CatalogDigest)
	assert.NoError(t, security.Verify(&sealed, s.sealer.Address()))
}

func TestCatalogEndpoints(t *testing.T) {
	h := testServer(t, testConfig()).Handler()

	tests := []struct {
		path  string
		count int
	}{
		{path: "/api/v1/crops", count: 2},
		{path: "/api/v1/vehicles", count: 1},
		{path: "/api/v1/locations", count: 2},
		{path: "/api/v1/locations/L1/markets", count: 2},
		{path: "/api/v1/locations/L2/markets", count: 1},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, env := do(t, h, http.MethodGet, tt.path, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var items []json.RawMessage
			require.NoError(t, json.Unmarshal(env.Data, &items))
			assert.Len(t, items, tt.count)
		})
	}

	rec, env := do(t, h, http.MethodGet, "/api/v1/locations/L9/markets", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", env.Status)
}

func TestRequestIDPropagation(t *testing.T) {
	h := testServer(t, testConfig()).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/crops", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "abc-123", env.RequestID)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	h := testServer(t, cfg).Handler()

	rec, _ := do(t, h, http.MethodGet, "/api/v1/crops", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, h, http.MethodGet, "/api/v1/crops", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Rate limit exceeded", env.Error)

	rec, _ = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndStatus(t *testing.T) {
	s := testServer(t, testConfig())
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"OK"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "operational", status["status"])
	cat, ok := status["catalog"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, s.snapshot.Digest(), cat["digest"])
	assert.Equal(t, 3.0, cat["markets"])
}

func TestMetrics(t *testing.T) {
	h := testServer(t, testConfig()).Handler()

	do(t, h, http.MethodPost, "/api/v1/compare", wheatBody)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `mandi_comparisons_total{crop="wheat",outcome="ranked"} 1`)
	assert.Contains(t, body, `mandi_ineligible_markets_total{reason="missing_distance"} 1`)
	assert.Contains(t, body, `mandi_best_net_profit{crop="wheat"} 20200`)
}

func TestMetrics_DurationCoversErrors(t *testing.T) {
	h := testServer(t, testConfig()).Handler()

	do(t, h, http.MethodPost, "/api/v1/compare", `{"crop":`)
	do(t, h, http.MethodPost, "/api/v1/compare", `{"crop":"rice","quantity":"1","unit":"quintal","vehicle":"tractor","location":"L1"}`)
	do(t, h, http.MethodPost, "/api/v1/compare", wheatBody)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mandi_request_duration_seconds_count{endpoint="POST /api/v1/compare"} 3`)
}

func TestMetrics_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.EnableMetrics = false
	h := testServer(t, cfg).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
