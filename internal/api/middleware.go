package api

import (
	"net/http"

	"slimechat/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// RequireKey gates privileged endpoints behind the shared API key supplied in
// the "key" header. Plain string comparison, matching the credential contract.
func RequireKey(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("key")
		if apiKey == "" || provided != apiKey {
			c.Error(errors.NewUnauthorizedError("invalid or missing API key"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CORS allows the configured browser origins to reach the API and the
// websocket endpoint.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowed["*"] || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, key, X-Request-ID")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
