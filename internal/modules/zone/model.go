// Package zone implements the geofencing zone registry: authority-
// managed polygons that the ingestion pipeline evaluates every reported
// position against.
package zone

import (
	"time"

	"sentinel/internal/geo"
	"sentinel/internal/types"
)

// Variant distinguishes how a zone's boundary should be treated by alerting.
type Variant string

const (
	VariantRestricted Variant = "restricted" // entering is itself an alert condition
	VariantSafe       Variant = "safe"       // exiting is the alert condition
)

// Severity ranks the urgency an alert engine should assign to transitions
// against this zone.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Zone is one authority-managed geofence. Geometry is immutable after
// creation: an update that needs new geometry creates a new zone and retires
// the old one, so that a snapshot's polygon never changes under an in-flight
// evaluation.
type Zone struct {
	ID          types.ID
	Name        string
	Description string
	Variant     Variant
	Severity    Severity
	Geometry    geo.Polygon
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// DeletedAt marks a tombstoned zone. A tombstoned zone is excluded from
	// the live snapshot but kept until the next compaction run so in-flight
	// history records that reference it still resolve.
	DeletedAt *time.Time
}

func (z *Zone) deleted() bool {
	return z.DeletedAt != nil
}
