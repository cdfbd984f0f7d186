package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andrescris/shopfront/pkg/console"
)

const (
	APIKeyHeader    = "X-API-KEY"
	SessionIDHeader = "X-Session-ID"

	consoleKey = "console"
)

// APIKeyAuthMiddleware checks the static API key. With an empty key every
// request passes.
func APIKeyAuthMiddleware(requiredAPIKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if requiredAPIKey == "" {
			c.Next()
			return
		}
		clientKey := c.GetHeader(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(clientKey), []byte(requiredAPIKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing API Key."})
			return
		}
		c.Next()
	}
}

// ConsoleSessionMiddleware resolves X-Session-ID to an open console and
// stores it in the context.
func ConsoleSessionMiddleware(registry *console.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(SessionIDHeader)
		if sessionID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Session-ID header is required."})
			return
		}
		cons, err := registry.Get(sessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Unknown or expired console session."})
			return
		}
		c.Set(consoleKey, cons)
		c.Next()
	}
}

// RequireSignedIn lets the request through only when the console's gate is
// authenticated. Must run after ConsoleSessionMiddleware.
func RequireSignedIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		cons, ok := Console(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Console session missing from context."})
			return
		}
		if err := cons.RequireAuth(); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Sign in to use the editor.", "state": cons.Gate.State()})
			return
		}
		c.Next()
	}
}

// Console returns the console stored by ConsoleSessionMiddleware.
func Console(c *gin.Context) (*console.Console, bool) {
	v, ok := c.Get(consoleKey)
	if !ok {
		return nil, false
	}
	cons, ok := v.(*console.Console)
	return cons, ok
}
