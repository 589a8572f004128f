package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moodiary/backend/internal/models"
)

// AttentionInput sets or clears the needs-attention flag of a mentee.
type AttentionInput struct {
	NeedsAttention *bool `json:"needs_attention" binding:"required" example:"true"`
}

// ListMentees godoc
// @Summary      List mentees
// @Description  Mentor dashboard. Flagged mentees first, then the most recently active.
// @Tags         mentor
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   relations.SubjectSummary
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /mentor/mentees [get]
func (h *Handler) ListMentees(c *gin.Context) {
	h.listSubjects(c, models.TypeMentor)
}

// GetMentee godoc
// @Summary      Get mentee details
// @Description  Profile, mentor notes and recent journal activity of one mentee.
// @Tags         mentor
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Mentee User ID"
// @Success      200  {object}  relations.SubjectDetail
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Not your mentee"
// @Router       /mentor/mentees/{id} [get]
func (h *Handler) GetMentee(c *gin.Context) {
	h.subjectDetails(c, models.TypeMentor)
}

// UpdateMenteeNotes godoc
// @Summary      Update mentee notes
// @Tags         mentor
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int         true  "Mentee User ID"
// @Param        input  body      NotesInput  true  "Notes"
// @Success      200    {object}  MessageResponse
// @Failure      400    {object}  ErrorResponse
// @Failure      403    {object}  ErrorResponse
// @Router       /mentor/mentees/{id}/notes [put]
func (h *Handler) UpdateMenteeNotes(c *gin.Context) {
	h.saveNotes(c, models.TypeMentor)
}

// MarkMenteeReviewed godoc
// @Summary      Mark mentee reviewed
// @Description  Clears the needs-attention flag.
// @Tags         mentor
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Mentee User ID"
// @Success      200  {object}  MessageResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /mentor/mentees/{id}/reviewed [post]
func (h *Handler) MarkMenteeReviewed(c *gin.Context) {
	h.setFlag(c, models.TypeMentor, false, "Mentee marked as reviewed")
}

// SetMenteeAttention godoc
// @Summary      Set mentee attention flag
// @Tags         mentor
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int             true  "Mentee User ID"
// @Param        input  body      AttentionInput  true  "Flag"
// @Success      200    {object}  MessageResponse
// @Failure      400    {object}  ErrorResponse
// @Failure      403    {object}  ErrorResponse
// @Router       /mentor/mentees/{id}/attention [put]
func (h *Handler) SetMenteeAttention(c *gin.Context) {
	var input AttentionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	message := "Attention flag cleared"
	if *input.NeedsAttention {
		message = "Mentee flagged for attention"
	}
	h.setFlag(c, models.TypeMentor, *input.NeedsAttention, message)
}
