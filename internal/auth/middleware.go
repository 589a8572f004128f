package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"moodiary/backend/internal/logger"
	"moodiary/backend/internal/models"
	"moodiary/backend/internal/relations"
	"moodiary/backend/pkg/jwt"
)

const (
	userIDKey    = "userID"
	principalKey = "principal"
)

// RoleSource loads the current role set of a user.
type RoleSource interface {
	UserExists(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
	RoleNames(ctx context.Context, tx *gorm.DB, id uint) ([]models.RoleName, error)
}

// Authenticator turns bearer tokens into a relations.Principal on the gin context.
type Authenticator struct {
	secret string
	users  RoleSource
	log    *logger.Logger
}

func NewAuthenticator(secret string, users RoleSource, log *logger.Logger) *Authenticator {
	return &Authenticator{secret: secret, users: users, log: log.With("component", "auth")}
}

// AuthMiddleware rejects requests without a valid token for an existing user.
func (a *Authenticator) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
			return
		}
		principal, err := a.resolve(c.Request.Context(), tokenString)
		if err != nil {
			a.log.Debug("token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		setPrincipal(c, principal)
		c.Next()
	}
}

// OptionalAuthMiddleware inspects for a token and sets the principal if present and valid,
// but does not fail if the token is missing or invalid.
func (a *Authenticator) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := extractToken(c); tokenString != "" {
			if principal, err := a.resolve(c.Request.Context(), tokenString); err == nil {
				setPrincipal(c, principal)
			}
		}
		c.Next()
	}
}

func (a *Authenticator) resolve(ctx context.Context, tokenString string) (relations.Principal, error) {
	userID, err := jwt.ParseToken(a.secret, tokenString)
	if err != nil {
		return relations.Principal{}, err
	}
	exists, err := a.users.UserExists(ctx, nil, userID)
	if err != nil {
		return relations.Principal{}, err
	}
	if !exists {
		return relations.Principal{}, errUnknownUser
	}
	roles, err := a.users.RoleNames(ctx, nil, userID)
	if err != nil {
		return relations.Principal{}, err
	}
	return relations.Principal{UserID: userID, Roles: roles}, nil
}

// extractToken reads the bearer header, falling back to the token query parameter used by EventSource clients.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return c.Query("token")
}

func setPrincipal(c *gin.Context, p relations.Principal) {
	c.Set(userIDKey, p.UserID)
	c.Set(principalKey, p)
}

// CurrentPrincipal returns the principal set by AuthMiddleware.
func CurrentPrincipal(c *gin.Context) (relations.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return relations.Principal{}, false
	}
	p, ok := v.(relations.Principal)
	return p, ok
}
