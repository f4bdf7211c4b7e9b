// Package hub coordinates the live relay: per-project client sets,
// presence bookkeeping, and fan-out of change frames across nodes via
// the state repository's pub/sub channel.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
	"github.com/jacksonwyt/byldur-sub000/internal/repository"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Change payloads carry
	// serialized canvas elements, so this is generous.
	maxMessageSize = 64 * 1024
)

// Hub message types carried on the internal channel.
const (
	msgRegister   = "register"
	msgUnregister = "unregister"
	msgFrame      = "frame"
)

// HubMessage is the unit of work on the Hub's internal channel.
type HubMessage struct {
	Type      string
	ProjectID uint
	Client    *Client
	RawData   []byte // raw websocket frame, only for msgFrame
}

// Hub maintains the set of connected clients per project and runs the
// relay. All register/unregister bookkeeping happens on a single
// goroutine draining messageChan; incoming frames are processed
// concurrently since the relay imposes no ordering beyond the pub/sub
// channel's own.
type Hub struct {
	messageChan chan HubMessage
	done        chan struct{}
	stopOnce    sync.Once

	// map[projectID]map[*Client]bool
	projects   map[uint]map[*Client]bool
	projectsMu sync.RWMutex

	// active relay subscriptions, owned by the Run goroutine
	subs map[uint]func()

	stateRepo repository.StateRepository
}

// NewHub creates a Hub backed by the given live-state repository.
func NewHub(stateRepo repository.StateRepository) *Hub {
	if stateRepo == nil {
		panic("StateRepository cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		done:        make(chan struct{}),
		projects:    make(map[uint]map[*Client]bool),
		subs:        make(map[uint]func()),
		stateRepo:   stateRepo,
	}
}

// Run drains the Hub's message channel until Stop is called. It should
// run in its own goroutine.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running")

	for {
		select {
		case msg := <-h.messageChan:
			switch msg.Type {
			case msgRegister:
				h.registerClient(msg.Client)
			case msgUnregister:
				h.unregisterClient(msg.Client)
			case msgFrame:
				// Frames carry no ordering guarantee, so they are
				// handled off the main loop.
				go h.handleFrame(msg)
			default:
				log.Warnf("Received unknown hub message type: %s", msg.Type)
			}
		case <-h.done:
			// Tear down every remaining relay subscription.
			for projectID, stop := range h.subs {
				stop()
				delete(h.subs, projectID)
			}
			log.Info("Hub stopped")
			return
		}
	}
}

// Stop shuts the Hub down. Registered clients' send channels are left
// to their write pumps; callers should close connections first.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// QueueMessage puts a message on the Hub's channel without blocking.
// Returns false when the channel is full, or the Hub has stopped, and
// the message was dropped.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithFields(logrus.Fields{
			"message_type": msg.Type,
			"project_id":   msg.ProjectID,
		}).Warn("Hub message channel full, dropping message")
		return false
	}
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to register a nil client")
		return
	}
	projectID := client.ProjectID()
	logCtx := logrus.WithFields(logrus.Fields{
		"project_id": projectID,
		"user_id":    client.UserID(),
		"conn_id":    client.ConnID(),
	})

	h.projectsMu.Lock()
	first := false
	if _, ok := h.projects[projectID]; !ok {
		h.projects[projectID] = make(map[*Client]bool)
		first = true
	}
	h.projects[projectID][client] = true
	h.projectsMu.Unlock()

	ctx := context.Background()
	if first {
		frames, stop, err := h.stateRepo.SubscribeRelay(ctx, projectID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to subscribe to relay channel")
		} else {
			h.subs[projectID] = stop
			go h.relayLoop(projectID, frames)
		}
	}

	now := time.Now()
	entry := domain.PresenceEntry{
		ConnID:      client.ConnID(),
		UserID:      client.UserID(),
		DisplayName: client.DisplayName(),
		JoinedAt:    now,
		UpdatedAt:   now,
	}
	if err := h.stateRepo.AddPresence(ctx, projectID, entry); err != nil {
		logCtx.WithError(err).Error("Failed to record presence")
	}
	h.publishPresence(ctx, projectID)
	logCtx.Info("Client registered to Hub")
}

func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to unregister a nil client")
		return
	}
	projectID := client.ProjectID()
	logCtx := logrus.WithFields(logrus.Fields{
		"project_id": projectID,
		"user_id":    client.UserID(),
		"conn_id":    client.ConnID(),
	})

	h.projectsMu.Lock()
	empty := false
	if clients, ok := h.projects[projectID]; ok {
		if _, present := clients[client]; present {
			delete(clients, client)
			// Closing send ends the client's write pump. Removal from
			// the map above guarantees this happens at most once.
			close(client.send)
		}
		if len(clients) == 0 {
			delete(h.projects, projectID)
			empty = true
		}
	}
	h.projectsMu.Unlock()

	ctx := context.Background()
	if err := h.stateRepo.RemovePresence(ctx, projectID, client.ConnID()); err != nil {
		logCtx.WithError(err).Warn("Failed to remove presence entry")
	}

	// Publish even when this node has no clients left: other nodes may
	// still be serving the project.
	h.publishPresence(ctx, projectID)

	if empty {
		if stop, ok := h.subs[projectID]; ok {
			stop()
			delete(h.subs, projectID)
			logCtx.Info("Last client left, relay subscription stopped")
		}
	}
	logCtx.Info("Client unregistered from Hub")
}

// handleFrame processes one raw frame from a client connection.
func (h *Hub) handleFrame(msg HubMessage) {
	ctx := context.Background()
	logCtx := logrus.WithFields(logrus.Fields{
		"project_id": msg.ProjectID,
		"user_id":    msg.Client.UserID(),
		"conn_id":    msg.Client.ConnID(),
	})

	var env domain.Envelope
	if err := json.Unmarshal(msg.RawData, &env); err != nil {
		logCtx.WithError(err).Warn("Dropping malformed relay frame")
		return
	}

	switch env.Event {
	case domain.EventChangeSend:
		h.handleChange(ctx, msg.Client, env, logCtx)
	case domain.EventCursorUpdate:
		h.handleCursor(ctx, msg.Client, env, logCtx)
	default:
		// Unknown events are ignored so older clients stay compatible.
		logCtx.WithField("event", env.Event).Debug("Ignoring unknown relay event")
	}
}

func (h *Hub) handleChange(ctx context.Context, client *Client, env domain.Envelope, logCtx *logrus.Entry) {
	if !client.CanEdit() {
		logCtx.Warn("Viewer attempted to broadcast a change, dropped")
		return
	}

	var change domain.Change
	if err := json.Unmarshal(env.Data, &change); err != nil {
		logCtx.WithError(err).Warn("Dropping malformed change payload")
		return
	}
	change.UserID = client.UserID()
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now()
	}

	out, err := domain.NewEnvelope(domain.EventChangeReceive, change)
	if err != nil {
		logCtx.WithError(err).Error("Failed to build change envelope")
		return
	}
	frame := domain.RelayFrame{OriginConnID: client.ConnID(), Envelope: out}
	if err := h.stateRepo.PublishRelay(ctx, client.ProjectID(), frame); err != nil {
		// The change is gone for everyone not yet connected; there is
		// no backlog to replay it from. Durable state still lands via
		// the sender's own save pipeline.
		logCtx.WithError(err).Error("Failed to publish change frame")
	}
}

func (h *Hub) handleCursor(ctx context.Context, client *Client, env domain.Envelope, logCtx *logrus.Entry) {
	var cursor domain.CursorPosition
	if err := json.Unmarshal(env.Data, &cursor); err != nil {
		logCtx.WithError(err).Debug("Dropping malformed cursor payload")
		return
	}
	// Best effort: a lost cursor update is corrected by the next one.
	if err := h.stateRepo.SetCursor(ctx, client.ProjectID(), client.ConnID(), &cursor); err != nil {
		logCtx.WithError(err).Debug("Failed to store cursor position")
		return
	}
	h.publishPresence(ctx, client.ProjectID())
}

// publishPresence pushes the full presence list for a project through
// the relay. Receivers replace their mirror wholesale.
func (h *Hub) publishPresence(ctx context.Context, projectID uint) {
	entries, err := h.stateRepo.ListPresence(ctx, projectID)
	if err != nil {
		logrus.WithField("project_id", projectID).WithError(err).Error("Failed to list presence")
		return
	}
	env, err := domain.NewEnvelope(domain.EventUsersUpdate, entries)
	if err != nil {
		logrus.WithField("project_id", projectID).WithError(err).Error("Failed to build presence envelope")
		return
	}
	// Empty origin: presence frames go to every connection, the actor
	// included.
	frame := domain.RelayFrame{Envelope: env}
	if err := h.stateRepo.PublishRelay(ctx, projectID, frame); err != nil {
		logrus.WithField("project_id", projectID).WithError(err).Error("Failed to publish presence frame")
	}
}

// relayLoop delivers subscribed frames to the local clients of one
// project. It exits when the subscription's stop function closes the
// frame channel.
func (h *Hub) relayLoop(projectID uint, frames <-chan domain.RelayFrame) {
	for frame := range frames {
		h.deliverLocal(projectID, frame)
	}
	logrus.WithField("project_id", projectID).Debug("Relay loop exited")
}

// deliverLocal fans a frame out to local clients, skipping the origin
// connection so a sender never echoes its own change.
func (h *Hub) deliverLocal(projectID uint, frame domain.RelayFrame) {
	h.projectsMu.RLock()
	clients := h.projects[projectID]
	recipients := make([]*Client, 0, len(clients))
	for client := range clients {
		if frame.OriginConnID != "" && client.ConnID() == frame.OriginConnID {
			continue
		}
		recipients = append(recipients, client)
	}
	h.projectsMu.RUnlock()

	if len(recipients) == 0 {
		return
	}
	payload, err := json.Marshal(frame.Envelope)
	if err != nil {
		logrus.WithField("project_id", projectID).WithError(err).Error("Failed to marshal relay envelope")
		return
	}
	for _, client := range recipients {
		select {
		case client.send <- payload:
		default:
			// A slow consumer loses this frame. It is not queued; the
			// read pump's deadline handling will eventually drop the
			// connection if it stays stuck.
			logrus.WithFields(logrus.Fields{
				"project_id": projectID,
				"conn_id":    client.ConnID(),
			}).Warn("Client send channel full, frame dropped")
		}
	}
}
