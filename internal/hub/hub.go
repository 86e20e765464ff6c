// Package hub tracks the live WebSocket sessions and routes outbound
// messages to them.
package hub

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/op/go-logging"

	"github.com/Rooney-Eli/gorilla-groove/internal/domain"
)

var log = logging.MustGetLogger("hub")

// ErrBufferFull is returned when a session's send buffer is full.
var ErrBufferFull = errors.New("send buffer full")

// errSessionClosed marks an enqueue on an already-closed session.
var errSessionClosed = errors.New("session closed")

// Session is one live connection. User and device are bound once at
// handshake and never change for the session's lifetime.
type Session struct {
	ID               string
	UserID           int64
	DeviceIdentifier string
	Conn             *websocket.Conn
	Send             chan []byte

	mu     sync.Mutex
	closed bool
}

// enqueue hands a message to the session's write pump without blocking.
func (s *Session) enqueue(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionClosed
	}
	select {
	case s.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close marks the session closed, stops its write pump and closes the
// underlying socket. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	alreadyClosed := s.closed
	if !s.closed {
		s.closed = true
		close(s.Send)
	}
	s.mu.Unlock()

	if !alreadyClosed && s.Conn != nil {
		s.Conn.Close()
	}
}

// IsOpen reports whether the session can still accept messages.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Hub is the registry of live sessions.
type Hub struct {
	mu             sync.RWMutex
	sessions       map[string]*Session
	sendBufferSize int
}

// NewHub creates an empty registry. sendBufferSize bounds each session's
// outbound queue.
func NewHub(sendBufferSize int) *Hub {
	if sendBufferSize <= 0 {
		sendBufferSize = 256
	}
	return &Hub{
		sessions:       make(map[string]*Session),
		sendBufferSize: sendBufferSize,
	}
}

// NewSession creates a session for an upgraded connection. The session is
// not live until Register is called.
func (h *Hub) NewSession(conn *websocket.Conn, userID int64, deviceIdentifier string) *Session {
	return &Session{
		ID:               uuid.New().String(),
		UserID:           userID,
		DeviceIdentifier: deviceIdentifier,
		Conn:             conn,
		Send:             make(chan []byte, h.sendBufferSize),
	}
}

// Register adds a session to the live set.
func (h *Hub) Register(session *Session) {
	h.mu.Lock()
	h.sessions[session.ID] = session
	h.mu.Unlock()
	log.Infof("session %s registered (user %d, device %s)", session.ID, session.UserID, session.DeviceIdentifier)
}

// Unregister removes a session from the live set and closes it.
func (h *Hub) Unregister(session *Session) {
	h.mu.Lock()
	delete(h.sessions, session.ID)
	h.mu.Unlock()
	session.Close()
	log.Infof("session %s unregistered (user %d)", session.ID, session.UserID)
}

// Broadcast sends a message to every open session except the excluded one.
// The live set is snapshotted at the moment of the call; sessions joining
// mid-broadcast miss this message and catch up through their join replay.
func (h *Hub) Broadcast(data []byte, excludingID string) {
	for _, session := range h.snapshot() {
		if session.ID == excludingID {
			continue
		}
		h.SendIfOpen(session, data)
	}
}

// SendIfOpen delivers a message to one session on a best-effort basis. A
// closed session drops the message silently; a session with a full buffer
// is disconnected so a stalled reader cannot pin broker memory.
func (h *Hub) SendIfOpen(session *Session, data []byte) {
	err := session.enqueue(data)
	switch {
	case err == nil:
	case errors.Is(err, ErrBufferFull):
		log.Warningf("session %s send buffer full, disconnecting", session.ID)
		if session.Conn != nil {
			session.Conn.Close()
		}
	default:
		log.Infof("could not send message to closed session %s", session.ID)
	}
}

// FindByDeviceIdentifier returns the open session bound to the given device
// identifier, or ErrTargetOffline if that device is not connected.
func (h *Hub) FindByDeviceIdentifier(deviceIdentifier string) (*Session, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, session := range h.sessions {
		if session.DeviceIdentifier == deviceIdentifier && session.IsOpen() {
			return session, nil
		}
	}
	return nil, domain.ErrTargetOffline
}

// Sessions returns a point-in-time copy of the live set.
func (h *Hub) Sessions() []*Session {
	return h.snapshot()
}

// Count returns the number of live sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) snapshot() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, session := range h.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}
