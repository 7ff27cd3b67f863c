// Package tourist holds per-tourist live state: last known position, the
// zones currently containing them, and a derived safety status. State is
// sharded across locks so high-frequency position updates for different
// tourists never contend.
package tourist

import (
	"time"

	"sentinel/internal/types"
)

// Status is derived, never set directly by a caller except for SOS, which
// is injected by the external SOS system: SOS resolution is an explicit
// state transition, not a deletion.
type Status string

const (
	StatusSafe Status = "safe"
	StatusRisk Status = "risk"
	StatusSOS  Status = "sos"
)

// State is one tourist's live snapshot. ActiveZoneIDs is the set of zones
// containing the tourist as of the last accepted position, which the
// geofence evaluator diffs the next position's containment set against.
// LastSeenAt doubles as the ordering reference for the next reported
// position: a position dated earlier than LastSeenAt is out of order.
type State struct {
	ID             types.ID
	Name           string
	LastPosition   *types.Point
	LastSeenAt     time.Time
	Status         Status
	ActiveZoneIDs  map[types.ID]struct{}
	SOSTriggeredAt *time.Time
}

func newState(id types.ID) *State {
	return &State{ID: id, Status: StatusSafe, ActiveZoneIDs: make(map[types.ID]struct{})}
}

// clone returns a deep-enough copy for safe hand-off to a caller: the
// ActiveZoneIDs set and LastPosition pointer are copied so a caller cannot
// mutate the store's internal state.
func (s *State) clone() *State {
	out := *s
	out.ActiveZoneIDs = make(map[types.ID]struct{}, len(s.ActiveZoneIDs))
	for id := range s.ActiveZoneIDs {
		out.ActiveZoneIDs[id] = struct{}{}
	}
	if s.LastPosition != nil {
		p := *s.LastPosition
		out.LastPosition = &p
	}
	return &out
}
