package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"moodiary/backend/internal/hub"
	"moodiary/backend/internal/models"
	"moodiary/backend/internal/relations"
)

const sseKeepAlive = 25 * time.Second

// RelationInput carries the optional relationship type of a request or acceptance.
type RelationInput struct {
	RelationshipType models.RelationshipType `json:"relationship_type" example:"friend"`
}

// GetRelations godoc
// @Summary      Get user relations
// @Description  Lists every edge the current user is part of, in either direction.
// @Tags         relationships
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by status (pending, accepted)"
// @Param        type    query     string  false  "Filter by type (friend, mentor, counsellor, family)"
// @Success      200     {array}   relations.Edge
// @Failure      400     {object}  ErrorResponse
// @Failure      401     {object}  ErrorResponse
// @Router       /users/me/relations [get]
func (h *Handler) GetRelations(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	filter := relations.EdgeFilter{
		Status: models.RelationshipStatus(c.Query("status")),
		Type:   models.RelationshipType(c.Query("type")),
	}
	edges, err := h.svc.ListEdges(c.Request.Context(), p.UserID, filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	if edges == nil {
		edges = []relations.Edge{}
	}
	c.JSON(http.StatusOK, edges)
}

// GetPendingRequests godoc
// @Summary      Get pending requests
// @Description  Lists pending edges split into received and sent.
// @Tags         relationships
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  relations.Pending
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me/requests [get]
func (h *Handler) GetPendingRequests(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	pending, err := h.svc.PendingRequests(c.Request.Context(), p.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if pending.Received == nil {
		pending.Received = []relations.Edge{}
	}
	if pending.Sent == nil {
		pending.Sent = []relations.Edge{}
	}
	c.JSON(http.StatusOK, pending)
}

// SendRequest godoc
// @Summary      Send relationship request
// @Description  Sends a pending request of the given type (friend by default) to another user.
// @Tags         relationships
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int            true   "Target User ID"
// @Param        input  body      RelationInput  false  "Relationship type"
// @Success      201    {object}  relations.Edge
// @Failure      400    {object}  ErrorResponse
// @Failure      401    {object}  ErrorResponse
// @Failure      404    {object}  ErrorResponse "Target user not found"
// @Failure      409    {object}  ErrorResponse "Relation already exists"
// @Failure      500    {object}  ErrorResponse
// @Router       /users/{id}/request [post]
func (h *Handler) SendRequest(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	targetID, ok := idParam(c)
	if !ok {
		return
	}
	var input RelationInput
	if !bindOptionalJSON(c, &input) {
		return
	}

	edge, err := h.svc.RequestEdge(c.Request.Context(), p, targetID, input.RelationshipType)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, edge)
}

// AcceptRequest godoc
// @Summary      Accept relationship request
// @Description  Accepts a pending request from another user, optionally overriding its type.
// @Tags         relationships
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int            true   "Requesting User ID"
// @Param        input  body      RelationInput  false  "Type override"
// @Success      200    {object}  relations.Edge
// @Failure      400    {object}  ErrorResponse
// @Failure      401    {object}  ErrorResponse
// @Failure      404    {object}  ErrorResponse "Request not found"
// @Failure      500    {object}  ErrorResponse
// @Router       /users/{id}/accept [post]
func (h *Handler) AcceptRequest(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	requesterID, ok := idParam(c)
	if !ok {
		return
	}
	var input RelationInput
	if !bindOptionalJSON(c, &input) {
		return
	}
	var override *models.RelationshipType
	if input.RelationshipType != "" {
		override = &input.RelationshipType
	}

	edge, err := h.svc.AcceptEdge(c.Request.Context(), p, requesterID, override)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, edge)
}

// RejectRequest godoc
// @Summary      Reject relationship request
// @Description  Deletes a pending request sent to the current user. Rejecting nothing succeeds.
// @Tags         relationships
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Requesting User ID"
// @Success      200  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/reject [post]
func (h *Handler) RejectRequest(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	requesterID, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.svc.RejectEdge(c.Request.Context(), p, requesterID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Request rejected"})
}

// RemoveRelation godoc
// @Summary      Remove relation
// @Description  Cancels a sent request or removes an accepted edge, whichever side created it.
// @Tags         relationships
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      200  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/relation [delete]
func (h *Handler) RemoveRelation(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	targetID, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.svc.RemoveEdge(c.Request.Context(), p, targetID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Relation removed"})
}

// StreamEvents godoc
// @Summary      Stream relationship events
// @Description  Server-sent events for requests, acceptances and removals that involve the current user.
// @Description  EventSource clients may pass the token as the token query parameter.
// @Tags         relationships
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me/events [get]
func (h *Handler) StreamEvents(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	client := hub.NewClient()
	h.hub.Subscribe(p.UserID, client)
	defer h.hub.Unsubscribe(p.UserID, client)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	c.SSEvent("ready", gin.H{"user_id": p.UserID})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, open := <-client:
			if !open {
				return false
			}
			c.SSEvent("message", string(msg))
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}
