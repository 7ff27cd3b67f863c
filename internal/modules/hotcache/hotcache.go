// Package hotcache keeps every tourist's latest live position in Redis GEO,
// letting "who is near this point right now" queries run without touching
// the history store. It runs in degraded mode when
// Redis is unreachable: writes and reads fail with a DependencyUnavailable
// error instead of panicking, so the ingestion pipeline can choose to
// proceed without the cache rather than reject the position entirely.
package hotcache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"sentinel/internal/types"
)

const (
	liveGeoKey      = "sentinel:live_positions"
	seenAtKeyPrefix = "sentinel:live_seen_at:"
	liveTTL         = 15 * time.Minute
)

type Cache struct {
	redis *redis.Client
}

func New(client *redis.Client) *Cache {
	return &Cache{redis: client}
}

// SetPosition records a tourist's latest position and refreshes its TTL.
// Live positions expire on their own if a tourist stops reporting, so a
// dropped session never lingers in "nearby" queries.
func (c *Cache) SetPosition(ctx context.Context, id types.ID, p types.Point, at time.Time) error {
	pipe := c.redis.Pipeline()
	pipe.GeoAdd(ctx, liveGeoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	})
	pipe.Set(ctx, seenAtKeyPrefix+string(id), at.UTC().Format(time.RFC3339), liveTTL)
	_, err := pipe.Exec(ctx)
	return wrapUnavailable(err)
}

// RemovePosition drops a tourist from the live cache, used on trip end or
// consent withdrawal.
func (c *Cache) RemovePosition(ctx context.Context, id types.ID) error {
	pipe := c.redis.Pipeline()
	pipe.ZRem(ctx, liveGeoKey, string(id))
	pipe.Del(ctx, seenAtKeyPrefix+string(id))
	_, err := pipe.Exec(ctx)
	return wrapUnavailable(err)
}

// Nearby returns tourist IDs within radiusMeters of p, nearest first.
func (c *Cache) Nearby(ctx context.Context, p types.Point, radiusMeters float64) ([]types.ID, error) {
	results, err := c.redis.GeoSearch(ctx, liveGeoKey, &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusMeters,
		RadiusUnit: "m",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	// The GEO set member itself has no TTL; only the seen-at key expires, so
	// a member whose seen-at key is gone is treated as expired.
	pipe := c.redis.Pipeline()
	seen := make([]*redis.IntCmd, len(results))
	for i, r := range results {
		seen[i] = pipe.Exists(ctx, seenAtKeyPrefix+r)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, wrapUnavailable(err)
	}
	ids := make([]types.ID, 0, len(results))
	for i, r := range results {
		if seen[i].Val() > 0 {
			ids = append(ids, types.ID(r))
		}
	}
	return ids, nil
}

func wrapUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return types.NewError(types.KindDependencyUnavailable, "hotcache: %v", err)
}
