// Package hub tracks the live websocket membership and relays messages
// between members with best-effort delivery.
package hub

import (
	"crypto/subtle"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// CloseAuthFailure is the application close code sent to connections that
// present a bad token.
const CloseAuthFailure = 4001

// Conn is the transport surface the hub needs from a connection.
// *websocket.Conn satisfies it; tests use in-memory fakes.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Member is one admitted connection.
type Member struct {
	ID   uuid.UUID
	conn Conn
	mu   sync.Mutex // gorilla allows one concurrent writer per conn
}

func (m *Member) send(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn.WriteMessage(messageType, data)
}

// Hub owns the membership set and fans messages out to it.
type Hub struct {
	token string
	log   *slog.Logger

	mu      sync.Mutex
	members map[*Member]struct{}
}

// New creates a hub admitting connections that present token.
func New(token string, log *slog.Logger) *Hub {
	return &Hub{
		token:   token,
		log:     log.With("component", "hub"),
		members: make(map[*Member]struct{}),
	}
}

// Admit checks the presented token in constant time. On a match the
// connection joins the membership; on a mismatch it is closed with
// CloseAuthFailure and never joins.
func (h *Hub) Admit(conn Conn, token string) (*Member, bool) {
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) != 1 {
		reason := websocket.FormatCloseMessage(CloseAuthFailure, "invalid token")
		_ = conn.WriteMessage(websocket.CloseMessage, reason)
		_ = conn.Close()
		h.log.Warn("connection rejected", "close_code", CloseAuthFailure)
		return nil, false
	}
	m := &Member{ID: uuid.New(), conn: conn}
	h.mu.Lock()
	h.members[m] = struct{}{}
	size := len(h.members)
	h.mu.Unlock()
	h.log.Info("member admitted", "member", m.ID, "members", size)
	return m, true
}

// Remove drops the member and closes its connection. Calling it again for
// the same member is a no-op.
func (h *Hub) Remove(m *Member) {
	h.mu.Lock()
	_, present := h.members[m]
	if present {
		delete(h.members, m)
	}
	size := len(h.members)
	h.mu.Unlock()
	if !present {
		return
	}
	_ = m.conn.Close()
	h.log.Info("member removed", "member", m.ID, "members", size)
}

// Broadcast delivers a text message to every member except exclude.
// Delivery is independent per recipient: a member whose send fails is
// removed and the broadcast continues. The membership is snapshotted up
// front, so members joining mid-broadcast are not included.
func (h *Hub) Broadcast(data []byte, exclude *Member) {
	h.mu.Lock()
	snapshot := make([]*Member, 0, len(h.members))
	for m := range h.members {
		if m == exclude {
			continue
		}
		snapshot = append(snapshot, m)
	}
	h.mu.Unlock()

	for _, m := range snapshot {
		if err := m.send(websocket.TextMessage, data); err != nil {
			h.log.Warn("send failed, removing member", "member", m.ID, "error", err)
			h.Remove(m)
		}
	}
}

// Relay reads inbound text frames from the member and rebroadcasts each to
// everyone else. It returns when the connection dies; the member is removed
// on the way out.
func (h *Hub) Relay(m *Member) {
	defer h.Remove(m)
	for {
		messageType, data, err := m.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		h.Broadcast(data, m)
	}
}

// Size reports the current member count.
func (h *Hub) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.members)
}
