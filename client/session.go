package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
)

// SessionState is the relay connection's lifecycle state.
type SessionState int

const (
	SessionDisconnected SessionState = iota
	SessionConnecting
	SessionConnected
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionDisconnected:
		return "disconnected"
	case SessionConnecting:
		return "connecting"
	case SessionConnected:
		return "connected"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrSessionClosed is returned for operations on a closed session.
var ErrSessionClosed = errors.New("session is closed")

const (
	defaultReconnectBase = 500 * time.Millisecond
	defaultReconnectMax  = 30 * time.Second
	sessionPingPeriod    = 30 * time.Second
)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithBackoff overrides the reconnect backoff bounds.
func WithBackoff(base, max time.Duration) SessionOption {
	return func(s *Session) {
		if base > 0 {
			s.backoffBase = base
		}
		if max > 0 {
			s.backoffMax = max
		}
	}
}

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) SessionOption {
	return func(s *Session) { s.dialer = d }
}

// Session is the relay client. It owns one websocket at a time, a FIFO
// queue of changes made while disconnected, and a read-only mirror of
// the project's presence list.
//
// Changes sent while disconnected are queued and replayed in order,
// once each, after the next successful connect. Cursor updates are
// best effort and never queue. No server-side backlog exists: changes
// broadcast while this client was away are gone, and durable state is
// recovered through a project reload, not the relay.
type Session struct {
	wsBaseURL string
	token     string
	userName  string
	dialer    *websocket.Dialer
	rec       *Reconciler

	backoffBase time.Duration
	backoffMax  time.Duration

	mu         sync.Mutex
	state      SessionState
	projectID  string
	conn       *websocket.Conn
	pending    []domain.Change
	presence   []domain.PresenceEntry
	attempts   int
	generation int
	reconnect  *time.Timer
}

// NewSession creates a session against the relay at wsBaseURL (e.g.
// "ws://localhost:8080"). Incoming changes go to rec.
func NewSession(wsBaseURL, token, userName string, rec *Reconciler, opts ...SessionOption) *Session {
	if rec == nil {
		panic("Reconciler cannot be nil for Session")
	}
	s := &Session{
		wsBaseURL:   wsBaseURL,
		token:       token,
		userName:    userName,
		dialer:      websocket.DefaultDialer,
		rec:         rec,
		backoffBase: defaultReconnectBase,
		backoffMax:  defaultReconnectMax,
		state:       SessionDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to a project's relay. Opening a different project
// tears the previous session state down completely, its pending queue
// included. A failed dial schedules reconnection and returns the
// error.
func (s *Session) Open(projectID string) error {
	s.mu.Lock()
	if s.state == SessionClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	// Full teardown of whatever came before.
	s.generation++
	gen := s.generation
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.pending = nil
	s.presence = nil
	s.attempts = 0
	s.projectID = projectID
	s.state = SessionConnecting
	s.mu.Unlock()

	return s.dial(gen)
}

// Close ends the session permanently.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionClosed {
		return
	}
	s.generation++
	s.state = SessionClosed
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.pending = nil
	s.presence = nil
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Presence returns a copy of the presence mirror. Empty while
// disconnected.
func (s *Session) Presence() []domain.PresenceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PresenceEntry, len(s.presence))
	copy(out, s.presence)
	return out
}

// PendingCount reports how many changes wait for the next connect.
func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// SendChange broadcasts a change, or queues it while disconnected. The
// returned bool reports whether the change was queued rather than
// sent.
func (s *Session) SendChange(change domain.Change) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case SessionClosed:
		return false, ErrSessionClosed
	case SessionConnected:
		if err := s.writeChangeLocked(change); err != nil {
			// The read loop will notice the dead transport; keep the
			// change for replay.
			s.pending = append(s.pending, change)
			return true, nil
		}
		return false, nil
	default:
		s.pending = append(s.pending, change)
		return true, nil
	}
}

// UpdateCursor broadcasts the cursor position. Dropped silently unless
// connected; stale positions are worthless, so nothing queues.
func (s *Session) UpdateCursor(cursor domain.CursorPosition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionConnected || s.conn == nil {
		return
	}
	env, err := domain.NewEnvelope(domain.EventCursorUpdate, cursor)
	if err != nil {
		return
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return
	}
	_ = s.conn.WriteMessage(websocket.TextMessage, raw)
}

// --- connection management ---

func (s *Session) dial(gen int) error {
	s.mu.Lock()
	if s.generation != gen || s.state == SessionClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	projectID := s.projectID
	s.mu.Unlock()

	endpoint := fmt.Sprintf("%s/ws/projects/%s?token=%s&userName=%s",
		s.wsBaseURL, projectID, url.QueryEscape(s.token), url.QueryEscape(s.userName))
	conn, _, err := s.dialer.Dial(endpoint, nil)
	if err != nil {
		logrus.WithField("project_id", projectID).WithError(err).Warn("Relay dial failed")
		s.scheduleReconnect(gen)
		return err
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		conn.Close()
		return ErrSessionClosed
	}
	s.conn = conn
	s.state = SessionConnected
	s.attempts = 0
	replay := s.pending
	s.pending = nil
	s.mu.Unlock()

	go s.readLoop(gen, conn)
	go s.pingLoop(gen, conn)

	// Replay queued changes in order, once each, through the normal
	// send path. A failure re-queues the remainder for the next
	// connect.
	for i, change := range replay {
		s.mu.Lock()
		if s.generation != gen || s.state != SessionConnected {
			s.pending = append(replay[i:], s.pending...)
			s.mu.Unlock()
			return nil
		}
		if err := s.writeChangeLocked(change); err != nil {
			s.pending = append(replay[i:], s.pending...)
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()
	}
	logrus.WithFields(logrus.Fields{
		"project_id": projectID,
		"replayed":   len(replay),
	}).Info("Relay connected")
	return nil
}

// writeChangeLocked sends one changes:send frame. Callers hold s.mu.
func (s *Session) writeChangeLocked(change domain.Change) error {
	if s.conn == nil {
		return errors.New("no connection")
	}
	env, err := domain.NewEnvelope(domain.EventChangeSend, change)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, raw)
}

func (s *Session) readLoop(gen int, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.handleDrop(gen, conn)
			return
		}
		var env domain.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			logrus.WithError(err).Warn("Ignoring malformed relay frame")
			continue
		}
		switch env.Event {
		case domain.EventUsersUpdate:
			var entries []domain.PresenceEntry
			if err := json.Unmarshal(env.Data, &entries); err != nil {
				logrus.WithError(err).Warn("Ignoring malformed presence frame")
				continue
			}
			s.mu.Lock()
			if s.generation == gen {
				// Full replace; the server never sends diffs.
				s.presence = entries
			}
			s.mu.Unlock()
		case domain.EventChangeReceive:
			var change domain.Change
			if err := json.Unmarshal(env.Data, &change); err != nil {
				logrus.WithError(err).Warn("Ignoring malformed change frame")
				continue
			}
			s.rec.OnRemoteChange(change)
		default:
			logrus.WithField("event", env.Event).Debug("Ignoring unknown relay event")
		}
	}
}

func (s *Session) pingLoop(gen int, conn *websocket.Conn) {
	ticker := time.NewTicker(sessionPingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		s.mu.Lock()
		stale := s.generation != gen || s.conn != conn
		s.mu.Unlock()
		if stale {
			return
		}
		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
			return
		}
	}
}

// handleDrop reacts to a transport loss: clear the presence mirror,
// mark disconnected, schedule a reconnect.
func (s *Session) handleDrop(gen int, conn *websocket.Conn) {
	conn.Close()
	s.mu.Lock()
	if s.generation != gen || s.state == SessionClosed {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.presence = nil
	s.state = SessionDisconnected
	projectID := s.projectID
	s.mu.Unlock()

	logrus.WithField("project_id", projectID).Warn("Relay connection lost")
	s.scheduleReconnect(gen)
}

func (s *Session) scheduleReconnect(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.state == SessionClosed {
		return
	}
	delay := s.backoffBase << s.attempts
	if delay > s.backoffMax || delay <= 0 {
		delay = s.backoffMax
	}
	s.attempts++
	s.state = SessionConnecting
	s.reconnect = time.AfterFunc(delay, func() {
		_ = s.dial(gen)
	})
}
