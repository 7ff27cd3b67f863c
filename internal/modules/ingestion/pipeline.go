// Package ingestion wires one reported position through every gate and
// evaluator this engine runs before it is considered accepted: principal
// check, rate limit, timestamp validation, consent, derived-motion scoring, geofence
// evaluation, alerting, subscriber fan-out, and history persistence.
package ingestion

import (
	"context"
	"errors"
	"log"
	"time"

	"sentinel/internal/geo"
	"sentinel/internal/hub"
	"sentinel/internal/metrics"
	"sentinel/internal/modules/alert"
	"sentinel/internal/modules/consent"
	"sentinel/internal/modules/geofence"
	"sentinel/internal/modules/history"
	"sentinel/internal/modules/hotcache"
	"sentinel/internal/modules/tourist"
	"sentinel/internal/modules/zone"
	"sentinel/internal/ratelimit"
	"sentinel/internal/types"
)

// Pipeline holds every collaborator a position update passes through. It
// is constructed once at startup (see internal/engine) and has no mutable
// state of its own beyond what its collaborators already own.
type Pipeline struct {
	limiter  *ratelimit.Limiter
	consent  *consent.Gate
	tourists *tourist.Store
	zones    *zone.Registry
	alerts   *alert.Engine
	hub      *hub.Hub
	history  *history.Store
	hotcache *hotcache.Cache
	maxSkew  time.Duration
}

// ErrStaleSample is returned when a reported sample is dated before the
// tourist's last accepted fix by no more than the allowed clock skew: the
// pipeline dropped it silently rather than reject the request outright. A
// sample further behind than that is rejected with KindInvalidInput instead.
var ErrStaleSample = errors.New("stale or duplicate position sample")

func New(
	limiter *ratelimit.Limiter,
	consentGate *consent.Gate,
	tourists *tourist.Store,
	zones *zone.Registry,
	alerts *alert.Engine,
	h *hub.Hub,
	historyStore *history.Store,
	hc *hotcache.Cache,
	maxSkew time.Duration,
) *Pipeline {
	return &Pipeline{
		limiter:  limiter,
		consent:  consentGate,
		tourists: tourists,
		zones:    zones,
		alerts:   alerts,
		hub:      h,
		history:  historyStore,
		hotcache: hc,
		maxSkew:  maxSkew,
	}
}

// Ingest runs one reported position through the full pipeline. A nil error
// means the position was accepted. The silent-drop case for a stale fix is
// reported back as ErrStaleSample, a distinguishable error the caller does
// not treat as a client failure.
func (p *Pipeline) Ingest(ctx context.Context, principal types.ID, u PositionUpdate) error {
	start := time.Now()
	defer func() {
		metrics.IngestDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	}()

	if principal != u.TouristID {
		metrics.PositionsDroppedTotal.WithLabelValues("unauthorized").Inc()
		return types.NewError(types.KindUnauthorized, "cannot report a position on behalf of another tourist")
	}

	if err := p.limiter.Allow(principal, ratelimit.ClassPosition); err != nil {
		metrics.PositionsDroppedTotal.WithLabelValues("rate_limited").Inc()
		return err
	}

	if err := checkFuture(u.ReportedAt, p.maxSkew); err != nil {
		metrics.PositionsDroppedTotal.WithLabelValues("invalid_input").Inc()
		return err
	}

	anonymize, err := p.consent.Allow(u.TouristID)
	if err != nil {
		metrics.PositionsDroppedTotal.WithLabelValues("consent_required").Inc()
		return err
	}

	accepted := false
	stale := false
	var res geofence.Result
	var d derived
	var touristName string

	p.tourists.WithLock(u.TouristID, func(st *tourist.State) {
		if !st.LastSeenAt.IsZero() && u.ReportedAt.Before(st.LastSeenAt) {
			gap := st.LastSeenAt.Sub(u.ReportedAt)
			if gap > p.maxSkew {
				stale = true // reported explicitly as an error below, not a silent drop
				return
			}
			// A small regression (GPS jitter, reordering in flight) is
			// dropped silently rather than regressing derived state.
			return
		}

		if st.LastPosition != nil {
			d.hasPrevious = true
			d.distanceMeters = geo.Distance(*st.LastPosition, u.Position)
			d.timeGapSeconds = u.ReportedAt.Sub(st.LastSeenAt).Seconds()
			if d.timeGapSeconds > 0 {
				d.speedMS = d.distanceMeters / d.timeGapSeconds
			}
			d.headingDegrees = geo.Bearing(*st.LastPosition, u.Position)
		}

		res = geofence.Evaluate(p.zones, u.Position, st.ActiveZoneIDs)
		st.ActiveZoneIDs = res.Contained
		st.LastPosition = &u.Position
		st.LastSeenAt = u.ReportedAt
		if u.Name != "" {
			st.Name = u.Name
		}
		if st.Status != tourist.StatusSOS {
			inRestricted := false
			for _, z := range res.ContainedZones {
				if z.Variant == zone.VariantRestricted {
					inRestricted = true
					break
				}
			}
			if inRestricted {
				st.Status = tourist.StatusRisk
			} else {
				st.Status = tourist.StatusSafe
			}
		}
		touristName = st.Name
		accepted = true
	})

	if stale {
		metrics.PositionsDroppedTotal.WithLabelValues("clock_skew").Inc()
		return types.NewError(types.KindInvalidInput, "reported_at regresses past the last accepted fix by more than the allowed clock skew")
	}
	if !accepted {
		metrics.PositionsDroppedTotal.WithLabelValues("stale_sample").Inc()
		return ErrStaleSample
	}
	metrics.PositionsIngestedTotal.Inc()

	anomalous := d.isAnomalous(u.Accuracy)
	quality := qualityScore(u.Accuracy, d)

	emitted := p.alerts.EmitTransitions(u.TouristID, touristName, u.Position, res)
	p.fanOut(u.TouristID, touristName, u.Position, u.Accuracy, u.ReportedAt, res, emitted)

	if p.hotcache != nil {
		if err := p.hotcache.SetPosition(ctx, u.TouristID, u.Position, u.ReportedAt); err != nil {
			metrics.HotcacheDegradedTotal.Inc()
			log.Printf("[degraded] ingestion: hotcache write failed for tourist %s: %v", u.TouristID, err)
		}
	}

	if p.history != nil {
		recordID := u.TouristID
		position := u.Position
		name := touristName
		if anonymize {
			recordID = types.ID(p.consent.Pseudonymize(u.TouristID))
			position = p.consent.Generalize(position)
			name = consent.TruncateName(name)
		}
		go p.history.AppendBestEffort(context.Background(), history.Record{
			TouristID:        recordID,
			Name:             name,
			Position:         position,
			Accuracy:         u.Accuracy,
			ClientReportedAt: u.ReportedAt,
			ServerRecordedAt: time.Now(),
			SpeedMS:          d.speedMS,
			HeadingDegrees:   d.headingDegrees,
			DistanceMeters:   d.distanceMeters,
			TimeGapSeconds:   d.timeGapSeconds,
			Quality:          quality,
			Anomalous:        anomalous,
			SnapshotVersion:  res.SnapshotVersion,
			Anonymized:       anonymize,
			RetentionDays:    p.consent.RetentionDays(u.TouristID),
		})
	}

	return nil
}

// IngestPosition adapts the hub's inbound position:update verb to Ingest,
// always treating the session's own principal as the reporting tourist:
// impersonation over the subscription socket is not supported any more than
// it is over the HTTP ingestion endpoint.
func (p *Pipeline) IngestPosition(ctx context.Context, touristID types.ID, lat, lng, accuracy float64, reportedAt time.Time) error {
	return p.Ingest(ctx, touristID, PositionUpdate{
		TouristID:  touristID,
		Position:   types.Point{Lat: lat, Lng: lng},
		ReportedAt: reportedAt,
		Accuracy:   accuracy,
	})
}

func (p *Pipeline) fanOut(touristID types.ID, touristName string, position types.Point, accuracy float64, reportedAt time.Time, res geofence.Result, alerts []alert.Alert) {
	locEv := hub.Event{
		Type:      hub.EventLocationChanged,
		TouristID: touristID,
		Name:      touristName,
		Lat:       position.Lat,
		Lon:       position.Lng,
		Accuracy:  accuracy,
		Timestamp: reportedAt,
	}
	p.hub.Broadcast(hub.RoomWatch(touristID), locEv)
	p.hub.Broadcast(hub.RoomAuthorities, locEv)

	status := &hub.ZoneStatus{}
	for _, z := range res.ContainedZones {
		switch z.Variant {
		case zone.VariantRestricted:
			status.InRestricted = true
			status.RestrictedZones = append(status.RestrictedZones, z.ID)
		case zone.VariantSafe:
			status.InSafe = true
			status.SafeZones = append(status.SafeZones, z.ID)
		}
	}
	statusEv := hub.Event{Type: hub.EventZoneStatus, TouristID: touristID, ZoneStatus: status, Timestamp: reportedAt}
	p.hub.Broadcast(hub.RoomUser(touristID), statusEv)

	for i := range alerts {
		a := alerts[i]
		alertEv := hub.Event{Type: hub.EventAlert, TouristID: touristID, Name: touristName, Alert: &a, Timestamp: a.CreatedAt}
		p.hub.Broadcast(hub.RoomUser(touristID), alertEv)
		p.hub.Broadcast(hub.RoomWatch(touristID), alertEv)
		p.hub.Broadcast(hub.RoomAuthorities, alertEv)
	}
}

// checkFuture rejects a reported timestamp that is more than maxSkew ahead
// of this server's clock, independent of any per-tourist ordering state.
func checkFuture(reportedAt time.Time, maxSkew time.Duration) error {
	if reportedAt.IsZero() {
		return types.NewError(types.KindInvalidInput, "reported_at is required")
	}
	if ahead := reportedAt.Sub(time.Now()); ahead > maxSkew {
		return types.NewError(types.KindInvalidInput, "reported_at is %s ahead of the server clock", ahead)
	}
	return nil
}
