// README: Shared JSON response and error-mapping helpers: one mapping keyed
// on types.Kind so every handler in this package shares it instead of
// re-switching per package error type.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sentinel/internal/types"
)

type errorResponse struct {
	Error      string  `json:"error"`
	RetryAfter float64 `json:"retry_after_seconds,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, err error) {
	kind := types.KindOf(err)
	status := statusForKind(kind)

	resp := errorResponse{Error: err.Error()}
	if e, ok := err.(*types.Error); ok && e.Kind == types.KindRateLimited {
		resp.RetryAfter = e.RetryAfterSeconds
		c.Header("Retry-After", formatSeconds(e.RetryAfterSeconds))
	}
	c.JSON(status, resp)
}

func statusForKind(k types.Kind) int {
	switch k {
	case types.KindUnauthenticated:
		return http.StatusUnauthorized
	case types.KindUnauthorized:
		return http.StatusForbidden
	case types.KindRateLimited:
		return http.StatusTooManyRequests
	case types.KindInvalidInput, types.KindInvalidGeometry:
		return http.StatusBadRequest
	case types.KindConsentRequired:
		return http.StatusForbidden
	case types.KindNotFound:
		return http.StatusNotFound
	case types.KindConflict:
		return http.StatusConflict
	case types.KindDependencyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func formatSeconds(s float64) string {
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(int(s + 0.5))
}
