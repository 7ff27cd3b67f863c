// Package alert turns geofence transitions and SOS events into alert
// records, deduplicating bursts and retaining a bounded in-memory history.
package alert

import (
	"time"

	"sentinel/internal/modules/geofence"
	"sentinel/internal/modules/zone"
	"sentinel/internal/types"
)

type Kind string

const (
	KindGeofenceBreach Kind = "geofence_breach"
	KindSafeZoneExit   Kind = "safe_zone_exit"
	KindSOSTriggered   Kind = "sos_triggered"
	KindSOSResolved    Kind = "sos_resolved"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert is one emitted safety event.
type Alert struct {
	ID          types.ID
	TouristID   types.ID
	TouristName string
	ZoneID      types.ID // empty for SOS alerts
	ZoneName    string
	Kind        Kind
	Severity    Severity
	Position    types.Point
	Description string
	CreatedAt   time.Time
}

// alertForTransition implements the two alert-worthy geofence edges:
// entering a restricted zone is always alert-worthy, with severity taken
// from the zone; exiting a safe zone is alert-worthy only when the tourist's
// new containment set no longer has any safe zone left to fall back on. The
// opposite edges — entering a safe zone, exiting a restricted zone — are
// informational and never alert.
func alertForTransition(tr geofence.Transition, stillInSafeZone bool) (Kind, Severity, bool) {
	switch {
	case tr.Zone.Variant == zone.VariantRestricted && tr.Entered:
		return KindGeofenceBreach, escalate(tr.Zone.Severity), true
	case tr.Zone.Variant == zone.VariantSafe && !tr.Entered && !stillInSafeZone:
		return KindSafeZoneExit, SeverityMedium, true
	default:
		return "", "", false
	}
}

func escalate(zoneSeverity zone.Severity) Severity {
	switch zoneSeverity {
	case zone.SeverityHigh:
		return SeverityHigh
	case zone.SeverityMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
