package hotcache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"sentinel/internal/types"
)

func setupTestCache(t *testing.T) *Cache {
	t.Helper()

	addr := os.Getenv("SENTINEL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SENTINEL_TEST_REDIS_ADDR not set; skipping Redis-backed hotcache tests")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	return New(client)
}

func TestCache_SetAndFindNearby(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	if err := c.SetPosition(ctx, "t1", types.Point{Lat: 28.6139, Lng: 77.2090}, time.Now()); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	t.Cleanup(func() { c.RemovePosition(ctx, "t1") })

	ids, err := c.Nearby(ctx, types.Point{Lat: 28.6139, Lng: 77.2090}, 1000)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	found := false
	for _, id := range ids {
		if id == "t1" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected t1 in nearby results, got %v", ids)
	}
}

func TestCache_RemovePosition(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	if err := c.SetPosition(ctx, "t2", types.Point{Lat: 0, Lng: 0}, time.Now()); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if err := c.RemovePosition(ctx, "t2"); err != nil {
		t.Fatalf("RemovePosition: %v", err)
	}
	ids, err := c.Nearby(ctx, types.Point{Lat: 0, Lng: 0}, 1000)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	for _, id := range ids {
		if id == "t2" {
			t.Errorf("expected t2 removed from nearby results")
		}
	}
}
