package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"moodiary/backend/internal/models"
)

// PriorityInput sets or clears the priority flag of a client.
type PriorityInput struct {
	Priority *bool `json:"priority" binding:"required" example:"true"`
}

// SessionInput schedules a counselling session.
type SessionInput struct {
	SessionDate time.Time `json:"session_date" binding:"required" example:"2026-01-02T15:04:05Z"`
	SessionType string    `json:"session_type" binding:"required,max=50" example:"video"`
	Notes       string    `json:"notes" example:"Intake"`
}

// ListClients godoc
// @Summary      List clients
// @Description  Counsellor dashboard. Priority clients first, then those with a session in the next 24 hours.
// @Tags         counsellor
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   relations.SubjectSummary
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /counsellor/clients [get]
func (h *Handler) ListClients(c *gin.Context) {
	h.listSubjects(c, models.TypeCounsellor)
}

// GetClient godoc
// @Summary      Get client details
// @Description  Profile, counsellor notes, journal activity and upcoming sessions of one client.
// @Tags         counsellor
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Client User ID"
// @Success      200  {object}  relations.SubjectDetail
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Not your client"
// @Router       /counsellor/clients/{id} [get]
func (h *Handler) GetClient(c *gin.Context) {
	h.subjectDetails(c, models.TypeCounsellor)
}

// UpdateClientNotes godoc
// @Summary      Update client notes
// @Tags         counsellor
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int         true  "Client User ID"
// @Param        input  body      NotesInput  true  "Notes"
// @Success      200    {object}  MessageResponse
// @Failure      400    {object}  ErrorResponse
// @Failure      403    {object}  ErrorResponse
// @Router       /counsellor/clients/{id}/notes [put]
func (h *Handler) UpdateClientNotes(c *gin.Context) {
	h.saveNotes(c, models.TypeCounsellor)
}

// SetClientPriority godoc
// @Summary      Set client priority
// @Tags         counsellor
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int            true  "Client User ID"
// @Param        input  body      PriorityInput  true  "Priority"
// @Success      200    {object}  MessageResponse
// @Failure      400    {object}  ErrorResponse
// @Failure      403    {object}  ErrorResponse
// @Router       /counsellor/clients/{id}/priority [put]
func (h *Handler) SetClientPriority(c *gin.Context) {
	var input PriorityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	h.setFlag(c, models.TypeCounsellor, *input.Priority, "Priority updated")
}

// ScheduleSession godoc
// @Summary      Schedule a session
// @Tags         counsellor
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int           true  "Client User ID"
// @Param        input  body      SessionInput  true  "Session"
// @Success      201    {object}  relations.Session
// @Failure      400    {object}  ErrorResponse
// @Failure      403    {object}  ErrorResponse
// @Router       /counsellor/clients/{id}/sessions [post]
func (h *Handler) ScheduleSession(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	clientID, ok := idParam(c)
	if !ok {
		return
	}
	var input SessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	session, err := h.svc.ScheduleSession(c.Request.Context(), p, clientID, input.SessionDate, input.SessionType, input.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}
