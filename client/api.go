package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
)

// Project is the backend's project representation as the client
// consumes it.
type Project struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Version      int            `json:"version"`
	IsPublic     bool           `json:"is_public"`
	PublishedURL string         `json:"published_url,omitempty"`
	Content      domain.Content `json:"content"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Collaborator is one entry of the project's collaborator list.
type Collaborator struct {
	UserID      uint   `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// APIError carries a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// API is the REST client for everything outside the relay: content
// saves, project reads and collaborator management.
type API struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// NewAPI creates a client for the backend at baseURL, authenticating
// with the given bearer token.
func NewAPI(baseURL, token string) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// SaveContent is the save pipeline's write: PUT the whole document. The
// response carries the authoritative version, which does not move when
// the server judged the content unchanged.
func (a *API) SaveContent(ctx context.Context, projectID string, content domain.Content) (*Project, error) {
	body := map[string]domain.Content{"content": content}
	var project Project
	if err := a.do(ctx, http.MethodPut, "/api/projects/"+projectID+"/content", body, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// GetProject fetches a project with its current content.
func (a *API) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var project Project
	if err := a.do(ctx, http.MethodGet, "/api/projects/"+projectID, nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// ListCollaborators fetches the project's collaborator list.
func (a *API) ListCollaborators(ctx context.Context, projectID string) ([]Collaborator, error) {
	var resp struct {
		Collaborators []Collaborator `json:"collaborators"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/projects/"+projectID+"/collaborators", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Collaborators, nil
}

// InviteCollaborator adds a user to the project by username.
func (a *API) InviteCollaborator(ctx context.Context, projectID, username, role string) (*Collaborator, error) {
	body := map[string]string{"username": username, "role": role}
	var collab Collaborator
	if err := a.do(ctx, http.MethodPost, "/api/projects/"+projectID+"/collaborators", body, &collab); err != nil {
		return nil, err
	}
	return &collab, nil
}

// RemoveCollaborator revokes a user's access to the project.
func (a *API) RemoveCollaborator(ctx context.Context, projectID string, userID uint) error {
	return a.do(ctx, http.MethodDelete, fmt.Sprintf("/api/projects/%s/collaborators/%d", projectID, userID), nil, nil)
}

func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
