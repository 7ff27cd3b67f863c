package httpapi_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sentinel/internal/config"
	"sentinel/internal/engine"
	"sentinel/internal/httpapi"
)

func testConfig() config.Config {
	var cfg config.Config
	cfg.Auth.JWTSecret = "test-secret"
	cfg.RateLimits.Position = config.RateLimitConfig{Rate: 1000, Burst: 1000}
	cfg.RateLimits.GeofencingAdmin = config.RateLimitConfig{Rate: 1000, Burst: 1000}
	cfg.Ingestion.MaxClockSkew = 60 * time.Second
	cfg.Consent.AnonymizationKey = "k"
	cfg.Alert.RingBufferSize = 100
	cfg.Alert.DedupWindow = time.Millisecond
	return cfg
}

func TestRouter_HealthEndpointIsUnauthenticated(t *testing.T) {
	e := engine.New(testConfig(), nil, nil)
	r := httpapi.NewRouter(e)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRouter_PositionWithoutAuthIsRejected(t *testing.T) {
	e := engine.New(testConfig(), nil, nil)
	r := httpapi.NewRouter(e)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/position", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRouter_ZoneCreateWithoutAuthIsRejected(t *testing.T) {
	e := engine.New(testConfig(), nil, nil)
	r := httpapi.NewRouter(e)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/geofencing/zones/circular", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRouter_MetricsEndpointServesPrometheusFormat(t *testing.T) {
	e := engine.New(testConfig(), nil, nil)
	r := httpapi.NewRouter(e)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
