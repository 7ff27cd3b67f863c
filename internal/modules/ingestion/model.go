package ingestion

import (
	"time"

	"sentinel/internal/types"
)

// PositionUpdate is one reported sample from a tourist's device.
type PositionUpdate struct {
	TouristID types.ID
	// Name is the tourist's current display name, as reported alongside the
	// position; kept on tourist.State so alerts can carry a name without a
	// separate profile lookup.
	Name     string
	Position types.Point
	// ReportedAt is the client-supplied capture time. Ordering for a given
	// tourist is derived from this field, not from any client-assigned
	// counter: a sample dated earlier than the tourist's last accepted
	// sample by no more than the clock-skew tolerance is dropped silently
	// rather than regressing derived state; one dated further back is
	// rejected as invalid input.
	ReportedAt time.Time
	// Accuracy is the device-reported horizontal accuracy in meters, used
	// to derive a quality score; zero means unknown.
	Accuracy float64
}

// derived holds the values computed from one update relative to the
// tourist's previous accepted fix, feeding both the quality score and the
// anomalous-fix flag.
type derived struct {
	distanceMeters float64
	timeGapSeconds float64
	speedMS        float64
	headingDegrees float64
	hasPrevious    bool
}

const (
	anomalousSpeedMS       = 50.0   // sustained speed above this is implausible for a tourist on foot or in traffic
	anomalousAccuracyM     = 1000.0 // a fix this imprecise is not useful for geofencing
	anomalousDistanceM     = 10000.0
	anomalousTimeGapSecond = 3600.0
)

// isAnomalous flags a fix whose derived motion or reported accuracy falls
// outside what a real device report should look like.
func (d derived) isAnomalous(accuracyMeters float64) bool {
	if accuracyMeters > anomalousAccuracyM {
		return true
	}
	if !d.hasPrevious {
		return false
	}
	return d.speedMS > anomalousSpeedMS ||
		d.distanceMeters > anomalousDistanceM ||
		d.timeGapSeconds > anomalousTimeGapSecond
}

// qualityScore implements the confidence scoring formula: start at full
// confidence and subtract a fixed penalty per condition that makes this fix
// less trustworthy, floored and capped to [0,1].
func qualityScore(accuracyMeters float64, d derived) float64 {
	score := 1.0

	switch {
	case accuracyMeters > 100:
		score -= 0.3
	case accuracyMeters >= 50:
		score -= 0.1
	}

	if d.hasPrevious {
		const kmhToMS = 1000.0 / 3600.0
		if d.speedMS > 200*kmhToMS {
			score -= 0.5
		}
		if d.timeGapSeconds > 3600 {
			score -= 0.2
		}
		if d.distanceMeters > 50000 {
			score -= 0.4
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
