package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
)

func TestAPI_SaveContent(t *testing.T) {
	var gotAuth, gotMethod, gotPath string
	var gotBody struct {
		Content domain.Content `json:"content"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(Project{ID: "pub-1", Version: 8})
	}))
	defer srv.Close()

	api := NewAPI(srv.URL, "tok-123")
	project, err := api.SaveContent(context.Background(), "pub-1", domain.Content{HTML: "<p>x</p>"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/projects/pub-1/content", gotPath)
	assert.Equal(t, "<p>x</p>", gotBody.Content.HTML)
	assert.Equal(t, 8, project.Version)
}

func TestAPI_ErrorResponseDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "You do not have permission to perform this action"})
	}))
	defer srv.Close()

	api := NewAPI(srv.URL, "tok")
	_, err := api.GetProject(context.Background(), "pub-1")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "permission")
}

func TestAPI_ErrorWithoutBodyFallsBackToStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	api := NewAPI(srv.URL, "tok")
	_, err := api.GetProject(context.Background(), "pub-1")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestAPI_ListCollaborators(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/pub-1/collaborators", r.URL.Path)
		json.NewEncoder(w).Encode(map[string][]Collaborator{
			"collaborators": {
				{UserID: 2, Username: "bob", Role: "editor"},
				{UserID: 3, Username: "carol", Role: "viewer"},
			},
		})
	}))
	defer srv.Close()

	api := NewAPI(srv.URL, "tok")
	collabs, err := api.ListCollaborators(context.Background(), "pub-1")
	require.NoError(t, err)
	require.Len(t, collabs, 2)
	assert.Equal(t, "bob", collabs[0].Username)
}

func TestAPI_RemoveCollaborator(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]string{"message": "Collaborator removed"})
	}))
	defer srv.Close()

	api := NewAPI(srv.URL, "tok")
	require.NoError(t, api.RemoveCollaborator(context.Background(), "pub-1", 42))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/api/projects/pub-1/collaborators/42", gotPath)
}

func TestAPI_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	api := NewAPI(srv.URL, "tok")
	_, err := api.GetProject(ctx, "pub-1")
	assert.ErrorIs(t, err, context.Canceled)
}
