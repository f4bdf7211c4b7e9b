package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
	"github.com/jacksonwyt/byldur-sub000/internal/repository"
	"github.com/jacksonwyt/byldur-sub000/internal/repository/mocks"
	"github.com/jacksonwyt/byldur-sub000/internal/service"
)

func newSaveContentRouter(projectRepo *mocks.ProjectRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewProjectService(projectRepo, new(mocks.CollaboratorRepository), new(mocks.StateRepository), nil, 100, "https://sites.example.com")
	handler := NewProjectHandler(svc)

	router := gin.New()
	router.PUT("/api/projects/:projectId/content", func(c *gin.Context) {
		c.Set("user_id", uint(1))
		handler.SaveContent(c)
	})
	return router
}

func TestProjectHandler_SaveContent_EmptyContentAccepted(t *testing.T) {
	projectRepo := new(mocks.ProjectRepository)
	owned := &domain.Project{ID: 7, PublicID: "pub-7", OwnerID: 1, Version: 4}
	projectRepo.On("FindByPublicID", mock.Anything, "pub-7").Return(owned, nil)
	projectRepo.On("UpdateContent", mock.Anything, uint(7), domain.Content{}).
		Return(&repository.ContentUpdateResult{Project: owned, Snapshotted: true}, nil)

	router := newSaveContentRouter(projectRepo)

	// A cleared canvas saves an all-empty document. That must reach the
	// content comparison, not die in request binding.
	body := `{"content":{"html":"","css":"","js":""}}`
	req := httptest.NewRequest(http.MethodPut, "/api/projects/pub-7/content", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	projectRepo.AssertExpectations(t)
}

func TestProjectHandler_SaveContent_MissingContentKeyRejected(t *testing.T) {
	projectRepo := new(mocks.ProjectRepository)
	router := newSaveContentRouter(projectRepo)

	req := httptest.NewRequest(http.MethodPut, "/api/projects/pub-7/content", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	projectRepo.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything, mock.Anything)
}
