// Package engine wires every module into one explicit, passed-around value.
// There is deliberately no package-level mutable state anywhere in this
// module: handlers and background tickers all take an *Engine.
package engine

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"sentinel/internal/config"
	"sentinel/internal/hub"
	"sentinel/internal/infra"
	"sentinel/internal/modules/alert"
	"sentinel/internal/modules/consent"
	"sentinel/internal/modules/history"
	"sentinel/internal/modules/hotcache"
	"sentinel/internal/modules/ingestion"
	"sentinel/internal/modules/sos"
	"sentinel/internal/modules/tourist"
	"sentinel/internal/modules/zone"
	"sentinel/internal/ratelimit"
)

// Engine is the fully wired application: every module a handler or
// background job might need, constructed once at startup.
type Engine struct {
	Config     config.Config
	Zones      *zone.Registry
	ZoneStore  *zone.Store
	Tourists   *tourist.Store
	Limiter    *ratelimit.Limiter
	Consent    *consent.Gate
	Alerts     *alert.Engine
	Hub        *hub.Hub
	History    *history.Store
	Hotcache   *hotcache.Cache
	Ingestion  *ingestion.Pipeline
	SOS        *sos.Gateway
	TokenVerif infra.TokenVerifier
}

// New constructs an Engine from already-connected infrastructure handles.
// It does not itself dial the database or Redis: see cmd/sentinel-api for
// that, so this constructor stays unit-testable with nil handles for
// components a given test doesn't exercise.
func New(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Engine {
	e := &Engine{Config: cfg}

	e.Zones = zone.NewRegistry()
	e.Tourists = tourist.NewStore()
	e.Limiter = ratelimit.New(cfg.RateLimits)
	e.Consent = consent.New(cfg.Consent.AnonymizationKey, cfg.Consent.CoordinateRoundingDecimals)
	e.Alerts = alert.New(cfg.Alert.RingBufferSize, cfg.Alert.DedupWindow)
	e.Hub = hub.New()
	e.TokenVerif = infra.NewJWTVerifier(cfg.Auth.JWTSecret)

	if db != nil {
		e.ZoneStore = zone.NewStore(db)
		e.History = history.NewStore(db)
	}
	if redisClient != nil {
		e.Hotcache = hotcache.New(redisClient)
	}

	e.Ingestion = ingestion.New(
		e.Limiter, e.Consent, e.Tourists, e.Zones, e.Alerts, e.Hub,
		e.History, e.Hotcache, cfg.Ingestion.MaxClockSkew,
	)
	e.SOS = sos.NewGateway(e.Tourists, e.Alerts, e.Hub)

	e.Hub.SetIngester(e.Ingestion)
	e.Hub.SetTourists(e.Tourists)

	return e
}

// RestoreZones loads persisted zones from ZoneStore into the live registry.
// Called once at startup; a failure is non-fatal (the engine starts with
// an empty registry and logs) since zones can always be re-registered by
// an authority.
func (e *Engine) RestoreZones(ctx context.Context) error {
	if e.ZoneStore == nil {
		return nil
	}
	zones, err := e.ZoneStore.LoadAll(ctx)
	if err != nil {
		return err
	}
	for _, z := range zones {
		// Tombstones are restored too: they stay out of the live snapshot,
		// and the zone compactor can still reclaim them and their rows.
		if err := e.Zones.Restore(ctx, z); err != nil {
			return err
		}
	}
	return nil
}

// RunBackgroundJobs starts the zone tombstone compactor and the history
// retention compactor, each in its own goroutine running until ctx is
// cancelled, and returns immediately.
func (e *Engine) RunBackgroundJobs(ctx context.Context) {
	go e.runZoneCompactor(ctx, time.Hour, 24*time.Hour)
	if e.History != nil {
		defaultRetentionDays := int(e.Config.HistoryRetention / (24 * time.Hour))
		go e.History.RunCompactor(ctx, time.Hour, defaultRetentionDays)
	}
}

func (e *Engine) runZoneCompactor(ctx context.Context, interval, tombstoneGrace time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := e.Zones.CompactTombstones(tombstoneGrace)
			if len(removed) > 0 && e.ZoneStore != nil {
				if err := e.ZoneStore.DeleteCompacted(ctx, removed); err != nil {
					log.Printf("[degraded] zone compaction: failed to purge %d rows: %v", len(removed), err)
				}
			}
		}
	}
}
