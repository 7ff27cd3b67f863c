package hub

import (
	"time"

	"sentinel/internal/modules/alert"
	"sentinel/internal/types"
)

// EventType enumerates every message the hub can push to a subscriber.
// Using a typed enum instead of separate callback registrations keeps fan-
// out a single switch instead of a separate callback registration per
// event kind.
type EventType string

const (
	// EventLocationChanged is pushed to a tourist's watch room and to
	// authorities on every accepted position, and once immediately on
	// watch:start with the tourist's last known position.
	EventLocationChanged EventType = "location:changed"
	// EventAlert carries any raised alert (geofence breach, safe-zone exit,
	// SOS trigger or resolution) — the verb is generic, the alert's Kind
	// field distinguishes the condition.
	EventAlert EventType = "alert"
	// EventZoneStatus is pushed to a tourist's own session after each
	// accepted position, summarizing which zones currently contain them.
	EventZoneStatus EventType = "zone_status"
	// EventErrorMsg is pushed back to the sender when an inbound message
	// could not be processed.
	EventErrorMsg EventType = "error"
)

// ZoneStatus summarizes a tourist's current zone containment, pushed after
// every accepted position so a client can render restricted/safe status
// without separately polling the geofencing API.
type ZoneStatus struct {
	InRestricted    bool       `json:"in_restricted"`
	InSafe          bool       `json:"in_safe"`
	RestrictedZones []types.ID `json:"restricted_zones,omitempty"`
	SafeZones       []types.ID `json:"safe_zones,omitempty"`
}

// Event is the wire payload broadcast to one or more rooms. Fields unused by
// a given Type are omitted from the JSON encoding, except tourist_id and
// timestamp, which are always encoded.
type Event struct {
	Type      EventType    `json:"type"`
	TouristID types.ID     `json:"tourist_id"`
	Name      string       `json:"name,omitempty"`
	Lat       float64      `json:"lat,omitempty"`
	Lon       float64      `json:"lon,omitempty"`
	Accuracy  float64      `json:"accuracy,omitempty"`
	Timestamp time.Time    `json:"timestamp,omitempty"`
	Alert     *alert.Alert `json:"alert,omitempty"`
	ZoneStatus *ZoneStatus `json:"zone_status,omitempty"`
	Message   string       `json:"message,omitempty"`
}

// RoomWatch returns the room name a given tourist's position/alert fan-out
// goes to ("watch:<tourist>").
func RoomWatch(touristID types.ID) string { return "watch:" + string(touristID) }

// RoomUser returns the private room for a tourist's own session.
func RoomUser(touristID types.ID) string { return "user:" + string(touristID) }

// RoomAuthorities is the single shared room every authority session joins.
const RoomAuthorities = "authorities"
