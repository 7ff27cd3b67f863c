// README: HTTP router registration.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sentinel/internal/engine"
	"sentinel/internal/httpapi/handlers"
	"sentinel/internal/httpapi/middleware"
	"sentinel/internal/metrics"
	"sentinel/internal/ratelimit"
)

func NewRouter(e *engine.Engine) http.Handler {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	positionHandler := handlers.NewPositionHandler(e.Ingestion, e.Tourists)
	zoneHandler := handlers.NewZoneHandler(e.Zones, e.ZoneStore)
	alertHandler := handlers.NewAlertHandler(e.Alerts)
	hubHandler := handlers.NewHubHandler(e.Hub)
	sosHandler := handlers.NewSOSHandler(e.SOS)

	auth := middleware.Auth(e.TokenVerif)
	requireAuthority := middleware.RequireRole("authority")

	// Position rate limiting happens inside the ingestion pipeline itself
	// (ratelimit.ClassPosition), not here, since ingestion.Pipeline.Ingest
	// is also called directly by non-HTTP callers in tests.
	r.POST("/position", auth, positionHandler.Report)
	r.GET("/position/live", auth, requireAuthority, positionHandler.Live)
	r.GET("/subscribe", auth, hubHandler.Subscribe)

	sosGroup := r.Group("/sos", auth, classLimit(e, ratelimit.ClassSOS))
	sosGroup.POST("/trigger", sosHandler.Trigger)
	sosGroup.POST("/resolve", sosHandler.Resolve)

	admin := r.Group("/geofencing", auth, classLimit(e, ratelimit.ClassGeofencingAdmin))
	admin.POST("/zones/restricted", requireAuthority, zoneHandler.CreateRestricted)
	admin.POST("/zones/safe", requireAuthority, zoneHandler.CreateSafe)
	admin.POST("/zones/circular", requireAuthority, zoneHandler.CreateCircular)
	admin.GET("/zones", zoneHandler.List)
	admin.PATCH("/zones/:id", requireAuthority, zoneHandler.Update)
	admin.DELETE("/zones/:id", requireAuthority, zoneHandler.Delete)
	admin.GET("/alerts", requireAuthority, alertHandler.List)

	return r
}

// classLimit applies the rate-limit class for the authenticated caller
// before the handler runs.
func classLimit(e *engine.Engine, class ratelimit.Class) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := middleware.CallerID(c)
		if err := e.Limiter.Allow(principal, class); err != nil {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}
