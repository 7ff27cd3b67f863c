// README: Position ingestion and live-lookup handlers.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sentinel/internal/httpapi/middleware"
	"sentinel/internal/modules/ingestion"
	"sentinel/internal/modules/tourist"
	"sentinel/internal/types"
)

type PositionHandler struct {
	pipeline *ingestion.Pipeline
	tourists *tourist.Store
}

func NewPositionHandler(p *ingestion.Pipeline, tourists *tourist.Store) *PositionHandler {
	return &PositionHandler{pipeline: p, tourists: tourists}
}

// positionRequest mirrors the documented wire body: flat lat/lon fields,
// optional accuracy, a required client timestamp.
type positionRequest struct {
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Accuracy   float64   `json:"accuracy"`
	ReportedAt time.Time `json:"timestamp" binding:"required"`
}

func (r positionRequest) toPoint() types.Point {
	return types.Point{Lat: r.Lat, Lng: r.Lon}
}

// Report handles POST /position: a tourist's device reporting its current
// location.
func (h *PositionHandler) Report(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, types.NewError(types.KindInvalidInput, "%v", err))
		return
	}

	touristID := middleware.CallerID(c)
	err := h.pipeline.Ingest(c.Request.Context(), touristID, ingestion.PositionUpdate{
		TouristID:  touristID,
		Name:       middleware.CallerName(c),
		Position:   req.toPoint(),
		ReportedAt: req.ReportedAt,
		Accuracy:   req.Accuracy,
	})
	if err == ingestion.ErrStaleSample {
		// Stale samples are accepted silently from the client's point of
		// view: the device should not retry or treat this as a failure.
		writeJSON(c, http.StatusOK, gin.H{"status": "dropped_stale"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

// liveFix is one tourist's entry in the GET /position/live map.
type liveFix struct {
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Status     string    `json:"status"`
	ReportedAt time.Time `json:"reported_at"`
}

// Live handles GET /position/live: an authority-only snapshot of every
// currently tracked tourist's latest accepted fix, read straight from the
// live state store rather than history, since an authority responding to
// an incident needs the current position, not an audit trail.
func (h *PositionHandler) Live(c *gin.Context) {
	states := h.tourists.All()
	out := make(map[types.ID]liveFix, len(states))
	for _, st := range states {
		if st.LastPosition == nil {
			continue
		}
		out[st.ID] = liveFix{
			Lat:        st.LastPosition.Lat,
			Lon:        st.LastPosition.Lng,
			Status:     string(st.Status),
			ReportedAt: st.LastSeenAt,
		}
	}
	writeJSON(c, http.StatusOK, out)
}
