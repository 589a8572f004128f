package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"moodiary/backend/internal/auth"
	"moodiary/backend/internal/database"
	"moodiary/backend/internal/directory"
	"moodiary/backend/internal/hub"
	"moodiary/backend/internal/logger"
	"moodiary/backend/internal/models"
	"moodiary/backend/internal/relations"
	"moodiary/backend/pkg/jwt"
)

const testSecret = "handler-secret"

type server struct {
	t      *testing.T
	db     *gorm.DB
	h      *Handler
	events *hub.Hub
	engine *gin.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "handler.sqlite"), nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	dir := directory.New(db)
	events := hub.NewHub(logger.Nop())
	svc := relations.NewService(db, dir, dir, relations.Options{Logger: logger.Nop(), Notifier: events})
	h := New(db, svc, dir, events, testSecret, logger.Nop())
	authn := auth.NewAuthenticator(testSecret, dir, logger.Nop())

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/auth/register", h.RegisterUser)
	api.POST("/auth/login", h.LoginUser)

	users := api.Group("/users", authn.AuthMiddleware())
	users.GET("/me", h.GetMe)
	users.GET("/me/relations", h.GetRelations)
	users.GET("/me/requests", h.GetPendingRequests)
	users.GET("/me/events", h.StreamEvents)
	users.POST("/:id/request", h.SendRequest)
	users.POST("/:id/accept", h.AcceptRequest)
	users.POST("/:id/reject", h.RejectRequest)
	users.DELETE("/:id/relation", h.RemoveRelation)

	mentor := api.Group("/mentor", authn.AuthMiddleware(), auth.RequireRole(models.RoleMentor))
	mentor.GET("/mentees", h.ListMentees)
	mentor.GET("/mentees/:id", h.GetMentee)
	mentor.PUT("/mentees/:id/notes", h.UpdateMenteeNotes)
	mentor.POST("/mentees/:id/reviewed", h.MarkMenteeReviewed)
	mentor.PUT("/mentees/:id/attention", h.SetMenteeAttention)

	counsellor := api.Group("/counsellor", authn.AuthMiddleware(), auth.RequireRole(models.RoleCounsellor))
	counsellor.GET("/clients", h.ListClients)
	counsellor.GET("/clients/:id", h.GetClient)
	counsellor.PUT("/clients/:id/priority", h.SetClientPriority)
	counsellor.POST("/clients/:id/sessions", h.ScheduleSession)

	admin := api.Group("/admin/users", authn.AuthMiddleware(), auth.AdminMiddleware())
	admin.GET("", h.ListUsers)
	admin.PUT("/:id/roles", h.UpdateUserRoles)
	admin.DELETE("/:id", h.DeleteUser)
	admin.GET("/:id/mentees", h.GetUserMentees)
	admin.PUT("/:id/mentees", h.AssignMentees)
	admin.GET("/:id/clients", h.GetUserClients)
	admin.PUT("/:id/clients", h.AssignClients)

	return &server{t: t, db: db, h: h, events: events, engine: r}
}

// user creates a user holding roles directly in the database.
func (s *server) user(name string, roles ...models.RoleName) uint {
	s.t.Helper()
	u := models.User{Username: name, Email: name + "@example.com", FullName: name, PasswordHash: "x"}
	require.NoError(s.t, s.db.Create(&u).Error)
	for _, r := range roles {
		var role models.Role
		require.NoError(s.t, s.db.Where("name = ?", r).First(&role).Error)
		require.NoError(s.t, s.db.Create(&models.UserRole{UserID: u.ID, RoleID: role.ID}).Error)
	}
	return u.ID
}

func (s *server) do(method, path string, as uint, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.doCtx(context.Background(), method, path, as, body)
}

func (s *server) doCtx(ctx context.Context, method, path string, as uint, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf).WithContext(ctx)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != 0 {
		token, err := jwt.GenerateToken(testSecret, as)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *server) count(model interface{}, query string, args ...interface{}) int64 {
	s.t.Helper()
	var n int64
	require.NoError(s.t, s.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}
