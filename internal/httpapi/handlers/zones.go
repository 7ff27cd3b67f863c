// README: Geofencing zone administration handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sentinel/internal/geo"
	"sentinel/internal/modules/zone"
	"sentinel/internal/types"
)

type ZoneHandler struct {
	registry *zone.Registry
	store    *zone.Store
}

func NewZoneHandler(registry *zone.Registry, store *zone.Store) *ZoneHandler {
	return &ZoneHandler{registry: registry, store: store}
}

// polygonZoneRequest is the body shape for restricted and safe zones, which
// are always authored as an explicit boundary: {name, coordinates, alertLevel,
// description?}.
type polygonZoneRequest struct {
	Name        string        `json:"name" binding:"required"`
	Description string        `json:"description"`
	AlertLevel  zone.Severity `json:"alertLevel" binding:"required"`
	Coordinates [][2]float64  `json:"coordinates" binding:"required"`
}

// circularZoneRequest is the body shape for circular zones, authored as a
// center point and a radius rather than a vertex list: {name, center,
// radius, type, alertLevel, description?}.
type circularZoneRequest struct {
	Name        string        `json:"name" binding:"required"`
	Description string        `json:"description"`
	Type        zone.Variant  `json:"type" binding:"required"`
	AlertLevel  zone.Severity `json:"alertLevel" binding:"required"`
	Center      [2]float64    `json:"center" binding:"required"`
	Radius      float64       `json:"radius" binding:"required"`
}

func toPolygon(verts [][2]float64) geo.Polygon {
	points := make([]types.Point, len(verts))
	for i, v := range verts {
		points[i] = types.Point{Lng: v[0], Lat: v[1]}
	}
	return geo.Polygon{Vertices: points}
}

func (h *ZoneHandler) createPolygon(c *gin.Context, variant zone.Variant) {
	var req polygonZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, types.NewError(types.KindInvalidInput, "%v", err))
		return
	}

	z := &zone.Zone{
		ID:          types.ID(uuid.NewString()),
		Name:        req.Name,
		Description: req.Description,
		Variant:     variant,
		Severity:    req.AlertLevel,
		Geometry:    toPolygon(req.Coordinates),
	}
	h.create(c, z)
}

// CreateRestricted handles POST /geofencing/zones/restricted: a polygon
// whose entry is itself an alert condition.
func (h *ZoneHandler) CreateRestricted(c *gin.Context) {
	h.createPolygon(c, zone.VariantRestricted)
}

// CreateSafe handles POST /geofencing/zones/safe: a polygon whose exit
// (with no other safe zone remaining containing the tourist) is the alert
// condition.
func (h *ZoneHandler) CreateSafe(c *gin.Context) {
	h.createPolygon(c, zone.VariantSafe)
}

// CreateCircular handles POST /geofencing/zones/circular: a center+radius
// zone of either variant, normalized to a polygon before storage.
func (h *ZoneHandler) CreateCircular(c *gin.Context) {
	var req circularZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, types.NewError(types.KindInvalidInput, "%v", err))
		return
	}

	center := types.Point{Lng: req.Center[0], Lat: req.Center[1]}
	polygon, err := geo.NormalizeCircle(center, req.Radius)
	if err != nil {
		writeError(c, types.NewError(types.KindInvalidGeometry, "%v", err))
		return
	}

	z := &zone.Zone{
		ID:          types.ID(uuid.NewString()),
		Name:        req.Name,
		Description: req.Description,
		Variant:     req.Type,
		Severity:    req.AlertLevel,
		Geometry:    polygon,
	}
	h.create(c, z)
}

func (h *ZoneHandler) create(c *gin.Context, z *zone.Zone) {
	if err := h.registry.Create(c.Request.Context(), z); err != nil {
		writeError(c, err)
		return
	}
	if h.store != nil {
		go h.store.Upsert(c.Request.Context(), z)
	}
	writeJSON(c, http.StatusCreated, z)
}

// List handles GET /geofencing/zones, grouping the live snapshot by variant
// so a caller never needs to filter a flat list client-side.
func (h *ZoneHandler) List(c *gin.Context) {
	zones := h.registry.Current().Zones
	restricted := make([]*zone.Zone, 0, len(zones))
	safe := make([]*zone.Zone, 0, len(zones))
	for _, z := range zones {
		switch z.Variant {
		case zone.VariantRestricted:
			restricted = append(restricted, z)
		case zone.VariantSafe:
			safe = append(safe, z)
		}
	}
	writeJSON(c, http.StatusOK, gin.H{"restricted": restricted, "safe": safe})
}

func (h *ZoneHandler) Update(c *gin.Context) {
	id := types.ID(c.Param("id"))
	var patch struct {
		Name        *string        `json:"name,omitempty"`
		Description *string        `json:"description,omitempty"`
		Severity    *zone.Severity `json:"severity,omitempty"`
		Active      *bool          `json:"active,omitempty"`
	}
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, types.NewError(types.KindInvalidInput, "%v", err))
		return
	}

	var updated *zone.Zone
	err := h.registry.Update(c.Request.Context(), id, func(z *zone.Zone) error {
		if patch.Name != nil {
			z.Name = *patch.Name
		}
		if patch.Description != nil {
			z.Description = *patch.Description
		}
		if patch.Severity != nil {
			z.Severity = *patch.Severity
		}
		if patch.Active != nil {
			z.Active = *patch.Active
		}
		updated = z
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if h.store != nil && updated != nil {
		go h.store.Upsert(c.Request.Context(), updated)
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

func (h *ZoneHandler) Delete(c *gin.Context) {
	id := types.ID(c.Param("id"))
	if err := h.registry.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	if h.store != nil {
		if z, err := h.registry.Get(id); err == nil {
			go h.store.Upsert(c.Request.Context(), z)
		}
	}
	c.Status(http.StatusNoContent)
}
