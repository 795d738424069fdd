package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/backend/internal/auth"
	"github.com/classpulse/backend/pkg/response"
)

const (
	// ContextUserID is the key for the authenticated user id in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for the authenticated role in gin context.
	ContextUserRole = "user_role"
)

// JWT returns a middleware that validates the bearer token and sets the
// authenticated user id and role in context. The token itself is issued by
// the external identity service.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}
