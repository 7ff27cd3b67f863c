package alert

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"sentinel/internal/metrics"
	"sentinel/internal/modules/geofence"
	"sentinel/internal/modules/zone"
	"sentinel/internal/types"
)

// nowFunc is overridden in tests to make the dedup window deterministic.
var nowFunc = time.Now

// dedupKey identifies a repeatable alert condition: the same tourist
// crossing the same zone edge again within the dedup window is suppressed,
// since GPS jitter near a boundary would otherwise fire an alert per
// sample.
type dedupKey struct {
	touristID types.ID
	zoneID    types.ID
	kind      Kind
}

// Engine holds the bounded alert history ring and the dedup window state.
// A single Engine is created at startup and shared by every ingestion
// worker; its internal lock is held only long enough to append or check a
// dedup entry.
type Engine struct {
	mu          sync.Mutex
	ring        []Alert
	head        int
	size        int
	cap         int
	dedupWindow time.Duration
	lastEmitted map[dedupKey]time.Time
}

func New(ringBufferSize int, dedupWindow time.Duration) *Engine {
	if ringBufferSize <= 0 {
		ringBufferSize = 1000
	}
	return &Engine{
		ring:        make([]Alert, ringBufferSize),
		cap:         ringBufferSize,
		dedupWindow: dedupWindow,
		lastEmitted: make(map[dedupKey]time.Time),
	}
}

// EmitTransitions converts the geofence edges in res into alerts, applying
// the two alert-worthy rules (enter-restricted, exit-safe-with-none-left)
// and the dedup window. Returns only the alerts that were actually recorded
// (not suppressed by dedup, and not dropped by the rule guard).
func (e *Engine) EmitTransitions(touristID types.ID, touristName string, position types.Point, res geofence.Result) []Alert {
	stillInSafeZone := false
	for _, z := range res.ContainedZones {
		if z.Variant == zone.VariantSafe {
			stillInSafeZone = true
			break
		}
	}

	var emitted []Alert
	for _, tr := range res.Transitions {
		kind, severity, ok := alertForTransition(tr, stillInSafeZone)
		if !ok {
			continue
		}
		a := Alert{
			ID:          types.ID(uuid.NewString()),
			TouristID:   touristID,
			TouristName: touristName,
			ZoneID:      tr.Zone.ID,
			ZoneName:    tr.Zone.Name,
			Kind:        kind,
			Severity:    severity,
			Position:    position,
			CreatedAt:   nowFunc(),
		}
		if e.recordIfNotDuplicate(a) {
			emitted = append(emitted, a)
			metrics.AlertsRaisedTotal.WithLabelValues(string(a.Kind), string(a.Severity)).Inc()
		}
	}
	return emitted
}

// EmitSOS records an SOS alert unconditionally: SOS is never deduplicated,
// since each trigger or resolution is a distinct, deliberate signal.
func (e *Engine) EmitSOS(touristID types.ID, touristName string, position types.Point, kind Kind, description string) Alert {
	a := Alert{
		ID:          types.ID(uuid.NewString()),
		TouristID:   touristID,
		TouristName: touristName,
		Kind:        kind,
		Severity:    SeverityHigh,
		Position:    position,
		Description: description,
		CreatedAt:   nowFunc(),
	}
	e.mu.Lock()
	e.append(a)
	e.mu.Unlock()
	metrics.AlertsRaisedTotal.WithLabelValues(string(a.Kind), string(a.Severity)).Inc()
	return a
}

func (e *Engine) recordIfNotDuplicate(a Alert) bool {
	key := dedupKey{touristID: a.TouristID, zoneID: a.ZoneID, kind: a.Kind}

	e.mu.Lock()
	defer e.mu.Unlock()

	if last, ok := e.lastEmitted[key]; ok && a.CreatedAt.Sub(last) < e.dedupWindow {
		return false
	}
	e.lastEmitted[key] = a.CreatedAt
	e.append(a)
	return true
}

// append is called with mu held.
func (e *Engine) append(a Alert) {
	e.ring[e.head] = a
	e.head = (e.head + 1) % e.cap
	if e.size < e.cap {
		e.size++
	}
}

// Recent returns up to limit of the most recently recorded alerts, newest
// first. limit <= 0 returns the full retained history.
func (e *Engine) Recent(limit int) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	if limit <= 0 || limit > e.size {
		limit = e.size
	}
	out := make([]Alert, limit)
	for i := 0; i < limit; i++ {
		idx := (e.head - 1 - i + e.cap*2) % e.cap
		out[i] = e.ring[idx]
	}
	return out
}
