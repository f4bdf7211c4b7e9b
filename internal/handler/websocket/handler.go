// Package websocket upgrades authenticated connections and hands them
// to the hub.
package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jacksonwyt/byldur-sub000/internal/hub"
	"github.com/jacksonwyt/byldur-sub000/internal/service"
)

// WebSocketHandler validates project access and upgrades the request.
type WebSocketHandler struct {
	upgrader       websocket.Upgrader
	hub            *hub.Hub
	projectService *service.ProjectService
}

func NewWebSocketHandler(h *hub.Hub, projectService *service.ProjectService) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if projectService == nil {
		panic("ProjectService cannot be nil for WebSocketHandler")
	}
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// TODO: restrict origins once the editor's deploy origins are fixed
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		hub:            h,
		projectService: projectService,
	}
}

// HandleConnection serves GET /ws/projects/:projectId. The auth
// middleware must have run; the optional userName query parameter sets
// the display name shown in presence lists.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		ErrorJSON(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		ErrorJSON(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	publicID := c.Param("projectId")
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "project_id": publicID})

	project, canEdit, err := h.projectService.Access(c.Request.Context(), userID, publicID)
	if err != nil {
		switch err {
		case service.ErrProjectNotFound:
			ErrorJSON(c, http.StatusNotFound, "Project not found")
		case service.ErrForbidden:
			ErrorJSON(c, http.StatusForbidden, "No access to this project")
		default:
			logCtx.WithError(err).Error("WS Handler: Failed to validate project access")
			ErrorJSON(c, http.StatusInternalServerError, "Failed to validate project")
		}
		return
	}

	displayName := c.Query("userName")
	if displayName == "" {
		displayName = "Anonymous"
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}

	client := hub.NewClient(h.hub, conn, project.ID, userID, displayName, canEdit)
	registerMsg := hub.HubMessage{Type: "register", ProjectID: project.ID, Client: client}
	if !h.hub.QueueMessage(registerMsg) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		conn.Close()
		return
	}
	client.Run()
	logCtx.WithField("conn_id", client.ConnID()).Info("WS Handler: Client connected")
}

func ErrorJSON(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}
