package ratelimit

import (
	"math"
	"testing"

	"sentinel/internal/config"
	"sentinel/internal/types"
)

func testConfig() config.RateLimitsConfig {
	return config.RateLimitsConfig{
		General:         config.RateLimitConfig{Rate: 1, Burst: 2},
		Auth:            config.RateLimitConfig{Rate: 0.01, Burst: 1},
		Position:        config.RateLimitConfig{Rate: 1, Burst: 3},
		SOS:             config.RateLimitConfig{Rate: 1, Burst: 5},
		GeofencingAdmin: config.RateLimitConfig{Rate: 1, Burst: 1},
	}
}

func TestLimiter_AllowsUpToBurst(t *testing.T) {
	l := New(testConfig())
	for i := 0; i < 3; i++ {
		if err := l.Allow("t1", ClassPosition); err != nil {
			t.Fatalf("attempt %d: expected allow, got %v", i, err)
		}
	}
	if err := l.Allow("t1", ClassPosition); err == nil {
		t.Fatal("expected 4th attempt to be rate limited")
	}
}

func TestLimiter_RejectionCarriesRetryAfter(t *testing.T) {
	l := New(testConfig())
	_ = l.Allow("t1", ClassAuth)
	err := l.Allow("t1", ClassAuth)
	if err == nil {
		t.Fatal("expected rejection")
	}
	if types.KindOf(err) != types.KindRateLimited {
		t.Fatalf("expected KindRateLimited, got %v", types.KindOf(err))
	}
	// Auth refills at 0.01 tokens/s, so the hint is 1/0.01 = 100 seconds.
	if e, ok := err.(*types.Error); !ok || math.Abs(e.RetryAfterSeconds-100) > 1e-9 {
		t.Fatalf("expected a retry-after hint of 100s, got %+v", err)
	}
}

func TestLimiter_BucketsAreIndependentPerClass(t *testing.T) {
	l := New(testConfig())
	for i := 0; i < 1; i++ {
		if err := l.Allow("t1", ClassGeofencingAdmin); err != nil {
			t.Fatalf("expected allow: %v", err)
		}
	}
	if err := l.Allow("t1", ClassGeofencingAdmin); err == nil {
		t.Fatal("expected geofencing_admin bucket exhausted")
	}
	if err := l.Allow("t1", ClassSOS); err != nil {
		t.Fatalf("expected sos bucket unaffected by geofencing_admin exhaustion: %v", err)
	}
}

func TestLimiter_BucketsAreIndependentPerPrincipal(t *testing.T) {
	l := New(testConfig())
	if err := l.Allow("t1", ClassGeofencingAdmin); err != nil {
		t.Fatalf("expected allow: %v", err)
	}
	if err := l.Allow("t1", ClassGeofencingAdmin); err == nil {
		t.Fatal("expected t1's bucket exhausted")
	}
	if err := l.Allow("t2", ClassGeofencingAdmin); err != nil {
		t.Fatalf("expected t2 unaffected by t1's exhaustion: %v", err)
	}
}
