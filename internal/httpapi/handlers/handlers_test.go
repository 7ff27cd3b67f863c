// README: Shared test helpers for handler tests (stub token verifier,
// request builder).
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"

	"sentinel/internal/config"
	"sentinel/internal/hub"
	"sentinel/internal/infra"
	"sentinel/internal/modules/alert"
	"sentinel/internal/modules/consent"
	"sentinel/internal/modules/ingestion"
	"sentinel/internal/modules/tourist"
	"sentinel/internal/modules/zone"
	"sentinel/internal/ratelimit"
)

type stubVerifier struct {
	principal *infra.Principal
	err       error
}

func (s *stubVerifier) Verify(_ context.Context, _ string) (*infra.Principal, error) {
	return s.principal, s.err
}

func doRequest(r *gin.Engine, method, path string, body any, authHeader string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func testPipeline() (*ingestion.Pipeline, *tourist.Store) {
	limiter := ratelimit.New(config.RateLimitsConfig{
		Position: config.RateLimitConfig{Rate: 1000, Burst: 1000},
	})
	gate := consent.New("k", 2)
	gate.SetConsent("tourist-1", consent.Record{LocationSharing: true, ConsentGiven: true})
	tourists := tourist.NewStore()
	zones := zone.NewRegistry()
	alerts := alert.New(10, time.Millisecond)
	h := hub.New()
	return ingestion.New(limiter, gate, tourists, zones, alerts, h, nil, nil, time.Minute), tourists
}

func init() {
	gin.SetMode(gin.TestMode)
}
