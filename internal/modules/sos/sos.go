// Package sos exposes the narrow interface this engine needs from an
// external SOS system: notification of a trigger and a resolution, nothing
// else. SOS case management (audio/photo evidence, response teams,
// incident numbers) is out of scope here; this package only updates
// tracking state and fans out the two events.
package sos

import (
	"time"

	"sentinel/internal/hub"
	"sentinel/internal/modules/alert"
	"sentinel/internal/modules/tourist"
	"sentinel/internal/types"
)

// Gateway is the injection point an external SOS system calls into. SOS
// resolution is an explicit state transition recorded on the tourist, never
// a deletion of the trigger event — the alert history must stay intact for
// later review.
type Gateway struct {
	tourists *tourist.Store
	alerts   *alert.Engine
	hub      *hub.Hub
}

func NewGateway(tourists *tourist.Store, alerts *alert.Engine, h *hub.Hub) *Gateway {
	return &Gateway{tourists: tourists, alerts: alerts, hub: h}
}

// Trigger marks a tourist as in SOS status and raises a high-severity alert,
// fanning it out to both the tourist's own session and every authority
// watching them.
func (g *Gateway) Trigger(touristID types.ID, description string) alert.Alert {
	now := time.Now()
	var name string
	var position types.Point
	g.tourists.WithLock(touristID, func(st *tourist.State) {
		st.Status = tourist.StatusSOS
		st.SOSTriggeredAt = &now
		name = st.Name
		if st.LastPosition != nil {
			position = *st.LastPosition
		}
	})

	a := g.alerts.EmitSOS(touristID, name, position, alert.KindSOSTriggered, description)

	ev := hub.Event{Type: hub.EventAlert, TouristID: touristID, Name: name, Alert: &a, Timestamp: now}
	g.hub.Broadcast(hub.RoomUser(touristID), ev)
	g.hub.Broadcast(hub.RoomWatch(touristID), ev)
	g.hub.Broadcast(hub.RoomAuthorities, ev)
	return a
}

// Resolve clears SOS status back to a derived status (safe, pending the
// next geofence evaluation) without deleting the trigger's history, and
// records its own alert so the resolution is itself an auditable event.
func (g *Gateway) Resolve(touristID types.ID, description string) alert.Alert {
	now := time.Now()
	var name string
	var position types.Point
	g.tourists.WithLock(touristID, func(st *tourist.State) {
		st.Status = tourist.StatusSafe
		name = st.Name
		if st.LastPosition != nil {
			position = *st.LastPosition
		}
	})

	a := g.alerts.EmitSOS(touristID, name, position, alert.KindSOSResolved, description)

	ev := hub.Event{Type: hub.EventAlert, TouristID: touristID, Name: name, Alert: &a, Timestamp: now}
	g.hub.Broadcast(hub.RoomUser(touristID), ev)
	g.hub.Broadcast(hub.RoomWatch(touristID), ev)
	g.hub.Broadcast(hub.RoomAuthorities, ev)
	return a
}
