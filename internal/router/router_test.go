package router

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "moodiary/backend/docs"
	"moodiary/backend/internal/auth"
	"moodiary/backend/internal/database"
	"moodiary/backend/internal/directory"
	"moodiary/backend/internal/handler"
	"moodiary/backend/internal/hub"
	"moodiary/backend/internal/logger"
	"moodiary/backend/internal/models"
	"moodiary/backend/internal/observability"
	"moodiary/backend/internal/relations"
	"moodiary/backend/pkg/jwt"
)

const secret = "router-secret"

func newEngine(t *testing.T) (*gin.Engine, uint) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "router.sqlite"), nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	u := models.User{Username: "plain", Email: "plain@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)

	dir := directory.New(db)
	events := hub.NewHub(logger.Nop())
	metrics := observability.NewMetrics()
	svc := relations.NewService(db, dir, dir, relations.Options{
		Logger:   logger.Nop(),
		Metrics:  relations.NewMetrics(metrics.Registry),
		Notifier: events,
	})

	engine := New(Deps{
		Handler:        handler.New(db, svc, dir, events, secret, logger.Nop()),
		Auth:           auth.NewAuthenticator(secret, dir, logger.Nop()),
		Metrics:        metrics,
		Log:            logger.Nop(),
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	return engine, u.ID
}

func serve(t *testing.T, r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPingCarriesRequestID(t *testing.T) {
	r, _ := newEngine(t)

	w := serve(t, r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w = serve(t, r, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-Id"))
}

func TestRoleGroups(t *testing.T) {
	r, plain := newEngine(t)
	token, err := jwt.GenerateToken(secret, plain)
	require.NoError(t, err)

	for path, want := range map[string]int{
		"/api/v1/users/me":           http.StatusOK,
		"/api/v1/mentor/mentees":     http.StatusForbidden,
		"/api/v1/counsellor/clients": http.StatusForbidden,
		"/api/v1/admin/users":        http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		assert.Equal(t, want, serve(t, r, req).Code, path)
	}

	assert.Equal(t, http.StatusUnauthorized, serve(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/mentor/mentees", nil)).Code)
}

func TestMetricsEndpointCountsRoutes(t *testing.T) {
	r, _ := newEngine(t)

	serve(t, r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	serve(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))

	w := serve(t, r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `http_requests_total{method="GET",route="/ping",status="200"} 1`), body)
	assert.True(t, strings.Contains(body, `route="/api/v1/users/me",status="401"`), body)
	assert.True(t, strings.Contains(body, "go_goroutines"), "runtime collectors are registered")
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newEngine(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/users/me", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := serve(t, r, req)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSwaggerDocument(t *testing.T) {
	r, _ := newEngine(t)

	w := serve(t, r, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/mentor/mentees/{id}/attention")
}
