package domain

import (
	"encoding/json"
	"time"
)

// Relay event names. The client sends EventChangeSend and
// EventCursorUpdate; the server pushes EventUsersUpdate (full presence
// list replace, never a diff) and EventChangeReceive (one change).
const (
	EventChangeSend    = "changes:send"
	EventChangeReceive = "changes:receive"
	EventCursorUpdate  = "cursor:update"
	EventUsersUpdate   = "users:update"
)

// Change describes a single edit made on the canvas. The relay treats
// the payload as opaque: it is fanned out as received, with no merging
// or reordering. Receivers ignore kinds they do not recognize.
type Change struct {
	Kind      string          `json:"kind"`
	TargetID  string          `json:"target_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	UserID    uint            `json:"user_id,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// Envelope is the JSON frame exchanged over the relay websocket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals data into a relay frame.
func NewEnvelope(event string, data interface{}) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw}, nil
}

// RelayFrame is what cross-node fan-out publishes on Redis: the wire
// envelope plus the origin connection so no node delivers a change back
// to its sender.
type RelayFrame struct {
	OriginConnID string   `json:"origin_conn_id"`
	Envelope     Envelope `json:"envelope"`
}
