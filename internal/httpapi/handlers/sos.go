package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sentinel/internal/httpapi/middleware"
	"sentinel/internal/modules/sos"
	"sentinel/internal/types"
)

// SOSHandler is the narrow ingress point the external SOS subsystem calls
// through to notify this engine of a trigger or resolution. SOS case
// management — evidence, response teams, incident numbers — has its own
// CRUD surface elsewhere and is not implemented here.
type SOSHandler struct {
	gateway *sos.Gateway
}

func NewSOSHandler(gateway *sos.Gateway) *SOSHandler {
	return &SOSHandler{gateway: gateway}
}

type sosRequest struct {
	Description string `json:"description"`
}

// Trigger handles POST /sos/trigger, called by the caller's own device (a
// panic button) to raise a high-severity alert for the authenticated
// principal.
func (h *SOSHandler) Trigger(c *gin.Context) {
	var req sosRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		writeError(c, types.NewError(types.KindInvalidInput, "malformed request body"))
		return
	}
	touristID := middleware.CallerID(c)
	a := h.gateway.Trigger(touristID, req.Description)
	writeJSON(c, http.StatusAccepted, a)
}

// Resolve handles POST /sos/resolve once a trigger has been responded to.
// The tourist resolved is always the authenticated principal: the request
// body carries only a description, not a tourist id.
func (h *SOSHandler) Resolve(c *gin.Context) {
	var req sosRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		writeError(c, types.NewError(types.KindInvalidInput, "malformed request body"))
		return
	}
	touristID := middleware.CallerID(c)
	a := h.gateway.Resolve(touristID, req.Description)
	writeJSON(c, http.StatusOK, a)
}
