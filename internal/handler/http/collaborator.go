package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jacksonwyt/byldur-sub000/internal/service"
)

// CollaboratorHandler exposes project access management.
type CollaboratorHandler struct {
	collabService *service.CollaboratorService
}

func NewCollaboratorHandler(collabService *service.CollaboratorService) *CollaboratorHandler {
	if collabService == nil {
		panic("CollaboratorService cannot be nil for CollaboratorHandler")
	}
	return &CollaboratorHandler{collabService: collabService}
}

type InviteRequest struct {
	Username string `json:"username" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// Invite handles POST /api/projects/:projectId/collaborators.
func (h *CollaboratorHandler) Invite(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	info, err := h.collabService.Invite(c.Request.Context(), userID, c.Param("projectId"), req.Username, req.Role)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, info)
}

// List handles GET /api/projects/:projectId/collaborators.
func (h *CollaboratorHandler) List(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	infos, err := h.collabService.List(c.Request.Context(), userID, c.Param("projectId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"collaborators": infos})
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateRole handles PATCH /api/projects/:projectId/collaborators/:userId.
func (h *CollaboratorHandler) UpdateRole(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID")
		return
	}
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if err := h.collabService.UpdateRole(c.Request.Context(), userID, c.Param("projectId"), uint(targetID), req.Role); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Role updated"})
}

// Remove handles DELETE /api/projects/:projectId/collaborators/:userId.
func (h *CollaboratorHandler) Remove(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.collabService.Remove(c.Request.Context(), userID, c.Param("projectId"), uint(targetID)); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Collaborator removed"})
}
