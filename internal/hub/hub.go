// Package hub implements the bidirectional subscription layer:
// long-lived websocket sessions joined to rooms, receiving at-most-once
// fan-out of position and alert events. There is no package-level mutable
// state; one Hub is constructed at startup and threaded through explicitly
// rather than reached via a package-level global.
package hub

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sentinel/internal/metrics"
	"sentinel/internal/modules/tourist"
	"sentinel/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Authorization happens before the upgrade (see httpapi), so the origin
	// check here is deliberately permissive; this engine is not browser-
	// cookie-authenticated.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PositionIngester is the narrow slice of the ingestion pipeline the hub
// needs for inbound position:update messages. Defined here rather than
// imported from the ingestion package to avoid a cycle: ingestion already
// imports hub to publish outbound events.
type PositionIngester interface {
	IngestPosition(ctx context.Context, touristID types.ID, lat, lng, accuracy float64, reportedAt time.Time) error
}

// Session is one subscriber's live connection, identified by the principal
// and role that authenticated it. Role gates which inbound verbs this
// session may issue: watch:start/watch:stop are an authority's verbs, and
// a tourist session sending either is refused rather than silently
// honored.
type Session struct {
	PrincipalID types.ID
	Role        string
	conn        *websocket.Conn
	send        chan Event
	hub         *Hub
}

// Hub tracks every live session and the rooms they belong to. Delivery is
// at-most-once: a slow or disconnected subscriber drops events rather than
// blocking the broadcaster.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
	rooms    map[string]map[*Session]struct{}

	ingester PositionIngester
	tourists *tourist.Store
}

func New() *Hub {
	return &Hub{
		sessions: make(map[*Session]struct{}),
		rooms:    make(map[string]map[*Session]struct{}),
	}
}

// SetIngester wires the position:update inbound verb to the ingestion
// pipeline. Called once from startup wiring after both the Hub and the
// pipeline exist, since the pipeline itself depends on the Hub for outbound
// fan-out.
func (h *Hub) SetIngester(p PositionIngester) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ingester = p
}

// SetTourists wires the tourist store the hub consults to answer watch:start
// with the subject's last known position.
func (h *Hub) SetTourists(t *tourist.Store) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tourists = t
}

// Upgrade promotes an HTTP request to a websocket session owned by
// principalID and role, registers it with the hub, and starts its
// read/write pumps. It returns once the session's pumps have exited
// (connection closed).
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request, principalID types.ID, role string, rooms ...string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	s := &Session{PrincipalID: principalID, Role: role, conn: conn, send: make(chan Event, sendBufferSize), hub: h}
	h.register(s, rooms)
	defer h.unregister(s)

	go s.writePump()
	s.readPump()
	return nil
}

func (h *Hub) register(s *Session, rooms []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s] = struct{}{}
	for _, room := range rooms {
		if h.rooms[room] == nil {
			h.rooms[room] = make(map[*Session]struct{})
		}
		h.rooms[room][s] = struct{}{}
	}
	metrics.HubSessionsGauge.Set(float64(len(h.sessions)))
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, s)
	for room, members := range h.rooms {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(s.send)
	s.conn.Close()
	metrics.HubSessionsGauge.Set(float64(len(h.sessions)))
}

// Join adds an already-registered session to an additional room, used when
// an authority starts watching a specific tourist mid-session.
func (h *Hub) Join(s *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Session]struct{})
	}
	h.rooms[room][s] = struct{}{}
}

// Leave removes s from room, the symmetric counterpart to Join used for
// watch:stop. A no-op if s was never a member.
func (h *Hub) Leave(s *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.rooms[room]
	if members == nil {
		return
	}
	delete(members, s)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Broadcast delivers ev to every session in room. A session whose send
// buffer is full is skipped for this event rather than blocking every other
// subscriber in the room.
func (h *Hub) Broadcast(room string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.rooms[room] {
		select {
		case s.send <- ev:
		default:
			log.Printf("hub: dropping event for session principal=%s room=%s: send buffer full", s.PrincipalID, room)
		}
	}
}

// SessionCount reports how many sessions are currently connected, for
// metrics.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// inboundMessage is the wire shape for every client-to-server verb.
type inboundMessage struct {
	Type      string    `json:"type"`
	TouristID types.ID  `json:"tourist_id"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	inboundPositionUpdate = "position:update"
	inboundWatchStart     = "watch:start"
	inboundWatchStop      = "watch:stop"
)

// handleInbound dispatches one parsed client message. position:update is
// handed to the ingester asynchronously so a slow ingest never stalls the
// read pump and therefore the pong deadline; watch:start/stop join or leave
// the room that later broadcasts carry that tourist's updates to.
func (h *Hub) handleInbound(s *Session, msg inboundMessage) {
	switch msg.Type {
	case inboundPositionUpdate:
		h.mu.RLock()
		ingester := h.ingester
		h.mu.RUnlock()
		if ingester == nil {
			s.sendError("position updates are not accepted on this connection")
			return
		}
		go func() {
			reportedAt := msg.Timestamp
			if reportedAt.IsZero() {
				reportedAt = time.Now()
			}
			if err := ingester.IngestPosition(context.Background(), s.PrincipalID, msg.Lat, msg.Lon, msg.Accuracy, reportedAt); err != nil {
				s.sendError(err.Error())
			}
		}()

	case inboundWatchStart:
		if s.Role != "authority" {
			s.sendError("watch:start requires an authority role")
			return
		}
		if msg.TouristID == "" {
			s.sendError("watch:start requires tourist_id")
			return
		}
		h.Join(s, RoomWatch(msg.TouristID))

		h.mu.RLock()
		store := h.tourists
		h.mu.RUnlock()
		if store == nil {
			return
		}
		if st := store.Get(msg.TouristID); st != nil && st.LastPosition != nil {
			select {
			case s.send <- Event{
				Type:      EventLocationChanged,
				TouristID: msg.TouristID,
				Name:      st.Name,
				Lat:       st.LastPosition.Lat,
				Lon:       st.LastPosition.Lng,
				Timestamp: st.LastSeenAt,
			}:
			default:
			}
		}

	case inboundWatchStop:
		if s.Role != "authority" {
			s.sendError("watch:stop requires an authority role")
			return
		}
		if msg.TouristID == "" {
			s.sendError("watch:stop requires tourist_id")
			return
		}
		h.Leave(s, RoomWatch(msg.TouristID))

	default:
		s.sendError("unrecognized message type: " + msg.Type)
	}
}

// sendError pushes an EventErrorMsg back to this session, dropping it
// silently if the send buffer is full rather than blocking the read pump.
func (s *Session) sendError(message string) {
	select {
	case s.send <- Event{Type: EventErrorMsg, Message: message, Timestamp: time.Now()}:
	default:
	}
}

func (s *Session) readPump() {
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError("malformed message")
			continue
		}
		s.hub.handleInbound(s, msg)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-s.send:
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
