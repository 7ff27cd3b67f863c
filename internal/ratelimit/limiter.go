// Package ratelimit enforces per-principal, per-endpoint-class request
// budgets with golang.org/x/time/rate token buckets.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"

	"sentinel/internal/config"
	"sentinel/internal/types"
)

// Class names one of the endpoint groups that gets its own rate budget.
// Each principal gets an independent bucket per class, so exhausting
// the position-update budget never blocks that same principal's SOS calls.
type Class string

const (
	ClassGeneral         Class = "general"
	ClassAuth            Class = "auth"
	ClassPosition        Class = "position"
	ClassSOS             Class = "sos"
	ClassGeofencingAdmin Class = "geofencing_admin"
)

type bucketKey struct {
	principal types.ID
	class     Class
}

// Limiter holds one token bucket per (principal, class) pair, created
// lazily on first use and never evicted.
type Limiter struct {
	mu      sync.Mutex
	buckets map[bucketKey]*rate.Limiter
	limits  map[Class]config.RateLimitConfig
}

func New(cfg config.RateLimitsConfig) *Limiter {
	return &Limiter{
		buckets: make(map[bucketKey]*rate.Limiter),
		limits: map[Class]config.RateLimitConfig{
			ClassGeneral:         cfg.General,
			ClassAuth:            cfg.Auth,
			ClassPosition:        cfg.Position,
			ClassSOS:             cfg.SOS,
			ClassGeofencingAdmin: cfg.GeofencingAdmin,
		},
	}
}

// Allow reports whether principal may make one more request in class right
// now. On rejection it returns the error the HTTP layer surfaces directly,
// carrying a retry-after hint derived from the bucket's refill rate.
func (l *Limiter) Allow(principal types.ID, class Class) error {
	b := l.bucketFor(principal, class)
	if b.Allow() {
		return nil
	}
	limit := l.limits[class]
	retryAfter := 1.0
	if limit.Rate > 0 {
		retryAfter = 1.0 / limit.Rate
	}
	return types.RateLimitedError(retryAfter)
}

func (l *Limiter) bucketFor(principal types.ID, class Class) *rate.Limiter {
	key := bucketKey{principal: principal, class: class}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if ok {
		return b
	}
	limit := l.limits[class]
	b = rate.NewLimiter(rate.Limit(limit.Rate), limit.Burst)
	l.buckets[key] = b
	return b
}
