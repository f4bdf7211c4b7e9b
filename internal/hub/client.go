package hub

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client is one websocket connection attached to the Hub.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	projectID   uint
	userID      uint
	displayName string
	connID      string
	canEdit     bool
	send        chan []byte
}

// NewClient wraps an upgraded websocket connection. The connection ID
// is minted here and identifies this connection in presence entries and
// relay frames.
func NewClient(h *Hub, conn *websocket.Conn, projectID, userID uint, displayName string, canEdit bool) *Client {
	return &Client{
		hub:         h,
		conn:        conn,
		projectID:   projectID,
		userID:      userID,
		displayName: displayName,
		connID:      uuid.NewString(),
		canEdit:     canEdit,
		send:        make(chan []byte, 256),
	}
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

func (c *Client) ProjectID() uint     { return c.projectID }
func (c *Client) UserID() uint        { return c.userID }
func (c *Client) DisplayName() string { return c.displayName }
func (c *Client) ConnID() string      { return c.connID }
func (c *Client) CanEdit() bool       { return c.canEdit }

// ReadPump pumps frames from the websocket into the Hub's channel. It
// runs in its own goroutine and requests unregistration on exit.
func (c *Client) ReadPump() {
	defer func() {
		unregister := HubMessage{Type: msgUnregister, ProjectID: c.projectID, Client: c}
		select {
		case c.hub.messageChan <- unregister:
		case <-time.After(1 * time.Second):
			logrus.WithFields(logrus.Fields{"conn_id": c.connID, "project_id": c.projectID}).
				Warn("Timeout sending unregister message to Hub channel")
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"conn_id": c.connID, "project_id": c.projectID})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("Websocket read error (unexpected close)")
			} else {
				logCtx.Debug("Websocket connection closed")
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		frame := HubMessage{
			Type:      msgFrame,
			ProjectID: c.projectID,
			Client:    c,
			RawData:   message,
		}
		select {
		case c.hub.messageChan <- frame:
		default:
			logrus.WithFields(logrus.Fields{"conn_id": c.connID, "project_id": c.projectID}).
				Warn("Hub message channel full, dropping client frame")
		}
	}
}

// WritePump pumps frames from the send channel to the websocket and
// keeps the connection alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The Hub closed the channel during unregister.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithFields(logrus.Fields{"conn_id": c.connID, "project_id": c.projectID}).
					WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}
