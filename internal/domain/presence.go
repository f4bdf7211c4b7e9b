package domain

import "time"

// CursorPosition is a collaborator's last reported cursor or selection
// location on the canvas. Best effort: updates may be dropped while the
// relay is disconnected and are never retried.
type CursorPosition struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	ElementID string `json:"element_id,omitempty"`
}

// PresenceEntry is one connected collaborator on a project. The
// canonical presence set lives in Redis keyed by connection; clients
// hold a read-only mirror refreshed by users:update frames.
type PresenceEntry struct {
	ConnID      string          `json:"conn_id"`
	UserID      uint            `json:"user_id"`
	DisplayName string          `json:"display_name"`
	Cursor      *CursorPosition `json:"cursor,omitempty"`
	JoinedAt    time.Time       `json:"joined_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
