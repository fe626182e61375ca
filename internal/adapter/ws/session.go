package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/adilzhm/tably/internal/auth"
	"github.com/adilzhm/tably/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Device browsers connect from the store's own frontend; origin
	// policy is enforced at the edge.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Session is one connected socket. UserID and Role are nil for
// anonymous (customer device) sessions.
type Session struct {
	ID     string
	UserID *int64
	Role   *domain.Role

	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	done   chan struct{}
	closed bool
}

func newSession(conn *websocket.Conn, claims *auth.Claims) *Session {
	s := &Session{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
	if claims != nil {
		s.UserID = &claims.UserID
		s.Role = roleOf(claims.Role)
	}
	return s
}

// trySend queues a frame without blocking. A closed session or a full
// buffer (the client stopped reading) returns false and the caller
// prunes the session.
func (s *Session) trySend(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// close marks the session closed and signals the pumps. The send
// channel is never closed: a broadcast racing a disconnect may still
// hold a reference to it, and sending on a closed channel panics. The
// closed flag makes trySend refuse instead.
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ServeHTTP upgrades the connection. A bearer credential may be passed
// as a ?token= query parameter; a valid one tags the session with
// identity and role, anything else connects as anonymous.
func (h *Hub) ServeHTTP(secret []byte, pingInterval time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var claims *auth.Claims
		if tokenStr := r.URL.Query().Get("token"); tokenStr != "" {
			if c, err := auth.Verify(tokenStr, secret); err == nil {
				claims = c
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Error("ws_upgrade_failed", "Failed to upgrade connection", "", nil, err)
			return
		}

		session := newSession(conn, claims)
		h.register(session)
		h.logger.Debug("session_connected", "Socket session registered", "", map[string]any{
			"session_id": session.ID,
			"anonymous":  claims == nil,
		})

		go h.writePump(session, pingInterval)
		go h.readPump(session, pingInterval)
	}
}

// writePump drains the send buffer and probes liveness with a ping
// every interval. A write failure ends the session.
func (h *Hub) writePump(s *Session, pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		h.unregister(s)
	}()

	for {
		select {
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-s.done:
			s.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump consumes the connection so control frames are processed. A
// session that misses one whole probe cycle blows its read deadline and
// is terminated.
func (h *Hub) readPump(s *Session, pingInterval time.Duration) {
	defer h.unregister(s)

	pongWait := pingInterval + pingInterval/2
	s.conn.SetReadLimit(1024)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
