package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sentinel/internal/hub"
	"sentinel/internal/httpapi/middleware"
	"sentinel/internal/types"
)

type HubHandler struct {
	hub *hub.Hub
}

func NewHubHandler(h *hub.Hub) *HubHandler {
	return &HubHandler{hub: h}
}

// Subscribe handles GET /subscribe: an authenticated caller opens a
// long-lived websocket session. Authorities join the shared authorities
// room plus whatever per-tourist watch rooms they request via ?watch=;
// a tourist subscribing to their own feed joins only their own user room.
func (h *HubHandler) Subscribe(c *gin.Context) {
	principalID := middleware.CallerID(c)
	rooms := []string{hub.RoomUser(principalID)}
	if middleware.CallerRole(c) == "authority" {
		rooms = append(rooms, hub.RoomAuthorities)
		for _, watched := range c.QueryArray("watch") {
			rooms = append(rooms, hub.RoomWatch(types.ID(watched)))
		}
	}

	if err := h.hub.Upgrade(c.Writer, c.Request, principalID, middleware.CallerRole(c), rooms...); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
	}
}
