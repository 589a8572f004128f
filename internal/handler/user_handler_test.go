package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodiary/backend/internal/models"
	"moodiary/backend/pkg/jwt"
)

func TestRegisterLoginAndMe(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/v1/auth/register", 0, RegisterInput{
		Username: "ana", Email: "Ana@Example.com", Password: "password123", FullName: "Ana Diaz",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	userID, err := jwt.ParseToken(testSecret, decode[TokenResponse](t, w).Token)
	require.NoError(t, err)

	w = s.do(http.MethodPost, "/api/v1/auth/register", 0, RegisterInput{
		Username: "ana", Email: "other@example.com", Password: "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/login", 0, LoginInput{Login: "ana", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodPost, "/api/v1/auth/login", 0, LoginInput{Login: "nobody", Password: "password123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/login", 0, LoginInput{Login: "ana@example.com", Password: "password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode[TokenResponse](t, w).Token)

	var stored models.User
	require.NoError(t, s.db.First(&stored, userID).Error)
	assert.NotNil(t, stored.LastLoginAt, "login stamps the last login time")

	w = s.do(http.MethodGet, "/api/v1/users/me", userID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	me := decode[ProfileResponse](t, w)
	assert.Equal(t, "ana", me.Username)
	assert.Equal(t, "ana@example.com", me.Email)
	assert.Equal(t, []models.RoleName{models.RoleUser}, me.Roles)
}

func TestRegisterValidatesInput(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/v1/auth/register", 0, RegisterInput{Username: "bo", Email: "not-an-email", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int64(0), s.count(&models.User{}, "1 = 1"))
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/v1/auth/register", 0, RegisterInput{Username: "cyd", Email: "cyd@example.com", Password: "password123"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, s.db.Model(&models.User{}).Where("username = ?", "cyd").Update("status", models.UserStatusDisabled).Error)

	w = s.do(http.MethodPost, "/api/v1/auth/login", 0, LoginInput{Login: "cyd", Password: "password123"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/users/me", 0, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/users/me", 999, nil).Code, "token for a deleted user")
}
