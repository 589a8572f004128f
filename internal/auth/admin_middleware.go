package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"moodiary/backend/internal/models"
)

var errUnknownUser = errors.New("token subject does not exist")

// RequireRole lets the request through when the principal holds any of roles.
// It must be used AFTER AuthMiddleware.
func RequireRole(roles ...models.RoleName) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			// This should not happen if AuthMiddleware is used before it
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}
		for _, role := range roles {
			if principal.HasRole(role) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": string(roles[0]) + " access required"})
	}
}

// AdminMiddleware creates a gin middleware to check for admin role.
func AdminMiddleware() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}
