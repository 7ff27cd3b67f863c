// README: Auth middleware verifies the bearer token and stashes the caller
// identity on the gin context, backed by infra.TokenVerifier.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sentinel/internal/infra"
	"sentinel/internal/types"
)

const (
	callerIDKey   = "caller_id"
	callerRoleKey = "caller_role"
	callerNameKey = "caller_name"
)

func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		principal, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(callerIDKey, principal.ID)
		c.Set(callerRoleKey, principal.Role)
		c.Set(callerNameKey, principal.Name)
		c.Next()
	}
}

// RequireRole aborts the request unless the authenticated caller has role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CallerRole(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: " + role + " role required"})
			return
		}
		c.Next()
	}
}

func CallerID(c *gin.Context) types.ID {
	v, _ := c.Get(callerIDKey)
	id, _ := v.(types.ID)
	return id
}

func CallerRole(c *gin.Context) string {
	v, _ := c.Get(callerRoleKey)
	s, _ := v.(string)
	return s
}

func CallerName(c *gin.Context) string {
	v, _ := c.Get(callerNameKey)
	s, _ := v.(string)
	return s
}
