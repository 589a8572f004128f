// Package handler exposes the relationship engine over HTTP.
package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"moodiary/backend/internal/apperr"
	"moodiary/backend/internal/auth"
	"moodiary/backend/internal/directory"
	"moodiary/backend/internal/hub"
	"moodiary/backend/internal/logger"
	"moodiary/backend/internal/relations"
)

// Handler holds the collaborators shared by every route.
type Handler struct {
	db        *gorm.DB
	svc       *relations.Service
	users     *directory.Directory
	hub       *hub.Hub
	jwtSecret string
	log       *logger.Logger
}

func New(db *gorm.DB, svc *relations.Service, users *directory.Directory, events *hub.Hub, jwtSecret string, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		db:        db,
		svc:       svc,
		users:     users,
		hub:       events,
		jwtSecret: jwtSecret,
		log:       log.With("component", "handler"),
	}
}

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// MessageResponse is returned by endpoints with nothing else to report.
type MessageResponse struct {
	Message string `json:"message" example:"Request sent successfully"`
}

// fail renders err with the status its kind maps to.
func (h *Handler) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func (h *Handler) principal(c *gin.Context) (relations.Principal, bool) {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User not authenticated"})
	}
	return p, ok
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid user ID"})
		return 0, false
	}
	return uint(id), true
}

// bindOptionalJSON binds the body when one was sent. An empty body leaves dst untouched.
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return false
	}
	return true
}
