package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/inr99/academy/internal/auth"
	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role := auth.CurrentRole(c)
		if role == "" {
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin allows ADMIN only.
func RequireAdmin() gin.HandlerFunc { return RequireRole(models.RoleAdmin) }

// RequireHost allows INSTRUCTOR and ADMIN.
func RequireHost() gin.HandlerFunc { return RequireRole(models.RoleInstructor, models.RoleAdmin) }
