package alert

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSSession represents one connected UI shell
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// a stuck shell connection must not stall the event loop
	_ = s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return s.conn.WriteJSON(msg)
}

// WSRegistry holds the connected UI sessions and fans messages out to all
// of them. Usually there is one session; a second appears briefly when the
// shell reconnects after an interruption.
type WSRegistry struct {
	log      *slog.Logger
	mu       sync.RWMutex
	sessions map[*WSSession]struct{}
}

func NewWSRegistry(log *slog.Logger) *WSRegistry {
	if log == nil {
		log = slog.Default()
	}
	return &WSRegistry{log: log, sessions: make(map[*WSSession]struct{})}
}

func (r *WSRegistry) Add(conn *websocket.Conn) *WSSession {
	s := &WSSession{conn: conn}
	r.mu.Lock()
	r.sessions[s] = struct{}{}
	r.mu.Unlock()
	return s
}

func (r *WSRegistry) Remove(s *WSSession) {
	r.mu.Lock()
	delete(r.sessions, s)
	r.mu.Unlock()
	_ = s.conn.Close()
}

// Push implements Sink. A session that fails to write is dropped; the
// shell re-syncs from GET /state on reconnect.
func (r *WSRegistry) Push(msg Message) error {
	r.mu.RLock()
	sessions := make([]*WSSession, 0, len(r.sessions))
	for s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()
	for _, s := range sessions {
		if err := s.Send(msg); err != nil {
			r.log.Warn("ws send error, dropping session", "error", err)
			r.Remove(s)
		}
	}
	return nil
}
