package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderUserID carries the acting user's id. Authentication is handled
// upstream; this service trusts the header.
const HeaderUserID = "X-User-ID"

const userIDKey = "userID"

// Identity copies X-User-ID into the Gin context. A missing or blank header
// leaves the request anonymous.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(HeaderUserID)); id != "" {
			c.Set(userIDKey, id)
		}
		c.Next()
	}
}

// UserID returns the caller id set by Identity, or "" when anonymous.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
