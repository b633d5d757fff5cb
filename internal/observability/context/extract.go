package context

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// RequestIDFromGin reads the request id assigned by the logging
// middleware, falling back to the gin key for handlers that run before
// the context propagation step.
func RequestIDFromGin(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if ctx := c.Request.Context(); ctx != nil {
		if value := RequestIDFromContext(ctx); value != "" {
			return value
		}
	}
	if value := strings.TrimSpace(c.GetString("request_id")); value != "" {
		return value
	}
	return ""
}
