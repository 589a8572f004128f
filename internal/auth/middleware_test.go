package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"moodiary/backend/internal/logger"
	"moodiary/backend/internal/models"
	"moodiary/backend/pkg/jwt"
)

const secret = "test-secret"

type fakeUsers map[uint][]models.RoleName

func (f fakeUsers) UserExists(_ context.Context, _ *gorm.DB, id uint) (bool, error) {
	_, ok := f[id]
	return ok, nil
}

func (f fakeUsers) RoleNames(_ context.Context, _ *gorm.DB, id uint) ([]models.RoleName, error) {
	return f[id], nil
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	a := NewAuthenticator(secret, fakeUsers{1: {models.RoleUser}, 2: {models.RoleAdmin}}, logger.Nop())

	r := gin.New()
	r.GET("/me", a.AuthMiddleware(), func(c *gin.Context) {
		p, _ := CurrentPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"id": p.UserID})
	})
	r.GET("/admin", a.AuthMiddleware(), AdminMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/maybe", a.OptionalAuthMiddleware(), func(c *gin.Context) {
		_, ok := CurrentPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})
	return r
}

func get(t *testing.T, r *gin.Engine, path string, userID uint) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if userID != 0 {
		token, err := jwt.GenerateToken(secret, userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusUnauthorized, get(t, r, "/me", 0).Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, r, "/me", 99).Code, "deleted users lose access")

	w := get(t, r, "/me", 1)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1}`, w.Body.String())

	token, err := jwt.GenerateToken(secret, 1)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me?token="+token, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "query token is accepted for event streams")
}

func TestAdminMiddleware(t *testing.T) {
	r := newRouter()
	assert.Equal(t, http.StatusForbidden, get(t, r, "/admin", 1).Code)
	assert.Equal(t, http.StatusNoContent, get(t, r, "/admin", 2).Code)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	r := newRouter()
	assert.JSONEq(t, `{"authenticated":false}`, get(t, r, "/maybe", 0).Body.String())
	assert.JSONEq(t, `{"authenticated":true}`, get(t, r, "/maybe", 1).Body.String())
}
