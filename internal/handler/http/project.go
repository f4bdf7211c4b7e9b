package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
	"github.com/jacksonwyt/byldur-sub000/internal/service"
)

// ProjectHandler exposes project CRUD, the content save endpoint and
// version history.
type ProjectHandler struct {
	projectService *service.ProjectService
}

func NewProjectHandler(projectService *service.ProjectService) *ProjectHandler {
	if projectService == nil {
		panic("ProjectService cannot be nil for ProjectHandler")
	}
	return &ProjectHandler{projectService: projectService}
}

type CreateProjectRequest struct {
	Name        string          `json:"name" binding:"required,max=255"`
	Description string          `json:"description" binding:"omitempty,max=2000"`
	Content     *domain.Content `json:"content" binding:"omitempty"`
}

// Create handles POST /api/projects.
func (h *ProjectHandler) Create(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	var initial domain.Content
	if req.Content != nil {
		initial = *req.Content
	}

	project, err := h.projectService.Create(c.Request.Context(), userID, req.Name, req.Description, initial)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, project)
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	projects, err := h.projectService.ListOwned(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"projects": projects})
}

// Get handles GET /api/projects/:projectId.
func (h *ProjectHandler) Get(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	project, err := h.projectService.Get(c.Request.Context(), userID, c.Param("projectId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, project)
}

type UpdateProjectRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	IsPublic    *bool   `json:"is_public"`
}

// Update handles PATCH /api/projects/:projectId. Metadata only; the
// content endpoint is the single write path for content.
func (h *ProjectHandler) Update(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	project, err := h.projectService.UpdateMeta(c.Request.Context(), userID, c.Param("projectId"), service.MetaUpdate{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, project)
}

// Delete handles DELETE /api/projects/:projectId.
func (h *ProjectHandler) Delete(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	if err := h.projectService.Delete(c.Request.Context(), userID, c.Param("projectId")); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Project deleted"})
}

// SaveContentRequest carries the whole document. The pointer checks
// key presence only: an all-empty Content is a valid save (the user
// cleared the canvas), and whether it is a no-op is decided by the
// content comparison, not by binding.
type SaveContentRequest struct {
	Content *domain.Content `json:"content" binding:"required"`
}

// SaveContent handles PUT /api/projects/:projectId/content. This is the
// debounced save pipeline's target: identical content is accepted as a
// no-op and the version only moves when the content really changed.
func (h *ProjectHandler) SaveContent(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	var req SaveContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	project, err := h.projectService.UpdateContent(c.Request.Context(), userID, c.Param("projectId"), *req.Content)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, project)
}

// Publish handles POST /api/projects/:projectId/publish.
func (h *ProjectHandler) Publish(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	project, err := h.projectService.Publish(c.Request.Context(), userID, c.Param("projectId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, project)
}

// ListVersions handles GET /api/projects/:projectId/versions.
func (h *ProjectHandler) ListVersions(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			ErrorResponse(c, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}
	versions, err := h.projectService.ListVersions(c.Request.Context(), userID, c.Param("projectId"), limit)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"versions": versions})
}

// RestoreVersion handles POST /api/projects/:projectId/versions/:versionId/restore.
func (h *ProjectHandler) RestoreVersion(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	versionID, err := strconv.ParseUint(c.Param("versionId"), 10, 32)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid version ID")
		return
	}

	project, err := h.projectService.RestoreVersion(c.Request.Context(), userID, c.Param("projectId"), uint(versionID))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	logrus.WithFields(logrus.Fields{
		"project_id": c.Param("projectId"),
		"version_id": versionID,
		"user_id":    userID,
	}).Info("Version restored")
	SuccessResponse(c, http.StatusOK, project)
}
