package delivery

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TokenAuthMiddleware enforces the shared-secret header on every request.
func TokenAuthMiddleware(apiToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Auth-Token")
		if provided == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "X-Auth-Token header required"})
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiToken)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		c.Next()
	}
}
