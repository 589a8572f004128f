package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moodiary/backend/internal/models"
	"moodiary/backend/internal/relations"
)

// NotesInput replaces the notes an elevated user keeps about a subject.
type NotesInput struct {
	Notes string `json:"notes" binding:"max=10000" example:"Doing better this week"`
}

func (h *Handler) listSubjects(c *gin.Context, kind models.RelationshipType) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	subjects, err := h.svc.ListSubjects(c.Request.Context(), p, kind)
	if err != nil {
		h.fail(c, err)
		return
	}
	if subjects == nil {
		subjects = []relations.SubjectSummary{}
	}
	c.JSON(http.StatusOK, subjects)
}

func (h *Handler) subjectDetails(c *gin.Context, kind models.RelationshipType) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	subjectID, ok := idParam(c)
	if !ok {
		return
	}
	detail, err := h.svc.SubjectDetails(c.Request.Context(), p, kind, subjectID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) saveNotes(c *gin.Context, kind models.RelationshipType) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	subjectID, ok := idParam(c)
	if !ok {
		return
	}
	var input NotesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.svc.SaveNotes(c.Request.Context(), p, kind, subjectID, input.Notes); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Notes saved"})
}

func (h *Handler) setFlag(c *gin.Context, kind models.RelationshipType, flag bool, message string) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	subjectID, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.svc.SetFlag(c.Request.Context(), p, kind, subjectID, flag); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: message})
}
