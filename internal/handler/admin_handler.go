package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"moodiary/backend/internal/directory"
	"moodiary/backend/internal/models"
	"moodiary/backend/internal/relations"
)

// AdminUserResponse is one row of the admin user list.
type AdminUserResponse struct {
	directory.UserSummary
	Status models.UserStatus `json:"status"`
	Roles  []models.RoleName `json:"roles"`
}

// RolesInput replaces a user's role set.
type RolesInput struct {
	Roles []string `json:"roles" binding:"required" example:"user,mentor"`
}

// RolesResponse reports the ledger rows created per elevated role.
type RolesResponse struct {
	Roles      []models.RoleName               `json:"roles"`
	Backfilled map[models.RelationshipType]int `json:"backfilled"`
}

// MenteesInput is the complete desired mentee set of a mentor.
type MenteesInput struct {
	MenteeIDs []uint `json:"mentee_ids" binding:"required"`
}

// ClientsInput is the complete desired client set of a counsellor.
type ClientsInput struct {
	ClientIDs []uint `json:"client_ids" binding:"required"`
}

func adminUserOf(u models.User) AdminUserResponse {
	roles := make([]models.RoleName, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, r.Name)
	}
	return AdminUserResponse{UserSummary: directory.Summarize(u), Status: u.Status, Roles: roles}
}

// ListUsers godoc
// @Summary      List users
// @Description  Searches users by username, full name or email with pagination.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        q      query     string  false  "Search query"
// @Param        page   query     int     false  "Page number" default(1)
// @Param        limit  query     int     false  "Items per page" default(20)
// @Success      200    {object}  PaginatedResponse[AdminUserResponse]
// @Failure      401    {object}  ErrorResponse
// @Failure      403    {object}  ErrorResponse
// @Router       /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	page, limit := pageParams(c)

	query := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if q := strings.ToLower(strings.TrimSpace(c.Query("q"))); q != "" {
		like := "%" + q + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}

	result, err := Paginate[models.User](query, page, limit, func(db *gorm.DB) *gorm.DB {
		return db.Preload("Roles").Order("id")
	})
	if err != nil {
		h.log.Error("list users failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve users"})
		return
	}

	rows := make([]AdminUserResponse, 0, len(result.Data))
	for _, u := range result.Data {
		rows = append(rows, adminUserOf(u))
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(rows, result.Meta.TotalItems, page, limit))
}

// UpdateUserRoles godoc
// @Summary      Replace user roles
// @Description  Replaces the role set. Granting mentor or counsellor backfills that ledger from accepted edges.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int         true  "User ID"
// @Param        input  body      RolesInput  true  "Roles"
// @Success      200    {object}  RolesResponse
// @Failure      400    {object}  ErrorResponse
// @Failure      403    {object}  ErrorResponse
// @Failure      404    {object}  ErrorResponse
// @Router       /admin/users/{id}/roles [put]
func (h *Handler) UpdateUserRoles(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	userID, ok := idParam(c)
	if !ok {
		return
	}
	var input RolesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	backfilled, err := h.svc.SetRoles(c.Request.Context(), p, userID, input.Roles)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, RolesResponse{Roles: relations.ParseRoles(input.Roles), Backfilled: backfilled})
}

// DeleteUser godoc
// @Summary      Delete user
// @Description  Removes the user and every row that references them in one transaction.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	userID, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteUser(c.Request.Context(), p, userID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "User deleted"})
}

func (h *Handler) adminSubjects(c *gin.Context, kind models.RelationshipType) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	ownerID, ok := idParam(c)
	if !ok {
		return
	}
	subjects, err := h.svc.AdminListSubjects(c.Request.Context(), p, ownerID, kind)
	if err != nil {
		h.fail(c, err)
		return
	}
	if subjects == nil {
		subjects = []directory.UserSummary{}
	}
	c.JSON(http.StatusOK, subjects)
}

func (h *Handler) reassign(c *gin.Context, kind models.RelationshipType, subjects []uint) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	ownerID, ok := idParam(c)
	if !ok {
		return
	}
	result, err := h.svc.ReassignSubjects(c.Request.Context(), p, ownerID, subjects, kind)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetUserMentees godoc
// @Summary      List a mentor's mentees
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Mentor User ID"
// @Success      200  {array}   directory.UserSummary
// @Failure      403  {object}  ErrorResponse
// @Router       /admin/users/{id}/mentees [get]
func (h *Handler) GetUserMentees(c *gin.Context) {
	h.adminSubjects(c, models.TypeMentor)
}

// AssignMentees godoc
// @Summary      Replace a mentor's mentees
// @Description  Links every listed mentee and unlinks the rest, atomically.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int           true  "Mentor User ID"
// @Param        input  body      MenteesInput  true  "Mentee IDs"
// @Success      200    {object}  relations.ReassignResult
// @Failure      400    {object}  ErrorResponse
// @Failure      404    {object}  ErrorResponse
// @Router       /admin/users/{id}/mentees [put]
func (h *Handler) AssignMentees(c *gin.Context) {
	var input MenteesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	h.reassign(c, models.TypeMentor, input.MenteeIDs)
}

// GetUserClients godoc
// @Summary      List a counsellor's clients
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Counsellor User ID"
// @Success      200  {array}   directory.UserSummary
// @Failure      403  {object}  ErrorResponse
// @Router       /admin/users/{id}/clients [get]
func (h *Handler) GetUserClients(c *gin.Context) {
	h.adminSubjects(c, models.TypeCounsellor)
}

// AssignClients godoc
// @Summary      Replace a counsellor's clients
// @Description  Links every listed client and unlinks the rest, atomically.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int           true  "Counsellor User ID"
// @Param        input  body      ClientsInput  true  "Client IDs"
// @Success      200    {object}  relations.ReassignResult
// @Failure      400    {object}  ErrorResponse
// @Failure      404    {object}  ErrorResponse
// @Router       /admin/users/{id}/clients [put]
func (h *Handler) AssignClients(c *gin.Context) {
	var input ClientsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	h.reassign(c, models.TypeCounsellor, input.ClientIDs)
}
