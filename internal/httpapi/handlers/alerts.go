package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sentinel/internal/modules/alert"
)

type AlertHandler struct {
	alerts *alert.Engine
}

func NewAlertHandler(alerts *alert.Engine) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 1000
)

// List handles GET /geofencing/alerts?limit=N, returning the most recent
// alerts newest-first.
func (h *AlertHandler) List(c *gin.Context) {
	limit := defaultAlertLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}
	writeJSON(c, http.StatusOK, h.alerts.Recent(limit))
}
