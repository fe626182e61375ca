// Package ws is the process-wide socket registry: browser and device
// sessions tagged with an optional identity and role at connect time,
// targeted broadcast, and a ping-based liveness probe that bounds
// registry growth from abandoned connections.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/adilzhm/tably/internal/adapter/logger"
	"github.com/adilzhm/tably/internal/domain"
	"github.com/adilzhm/tably/internal/interfaces"
)

// envelope is the frame written to sockets.
type envelope struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
	closed   bool
	logger   logger.Logger
}

func NewHub(lgr logger.Logger) *Hub {
	return &Hub{
		sessions: make(map[*Session]struct{}),
		logger:   lgr,
	}
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.close()
		return
	}
	h.sessions[s] = struct{}{}
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; ok {
		delete(h.sessions, s)
		s.close()
	}
}

// Broadcast writes the topic/payload envelope to every session matching
// the targeting and returns the number of sessions written to. Sessions
// whose send buffer is gone or full are pruned.
func (h *Hub) Broadcast(topic string, payload []byte, targeting interfaces.Targeting) int {
	frame, err := json.Marshal(envelope{Topic: topic, Data: payload})
	if err != nil {
		return 0
	}

	h.mu.RLock()
	matched := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		if s.matches(targeting) {
			matched = append(matched, s)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range matched {
		if s.trySend(frame) {
			delivered++
		} else {
			h.logger.Debug("session_pruned", "Dropping unresponsive session", "", map[string]any{
				"session_id": s.ID,
			})
			h.unregister(s)
		}
	}
	return delivered
}

// Len reports the current number of registered sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Shutdown closes every session and refuses new registrations.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.sessions {
		delete(h.sessions, s)
		s.close()
	}
}

// matches applies the targeting rules: anonymousOnly short-circuits
// everything, then userIDs, then roles; the zero targeting matches all.
func (s *Session) matches(t interfaces.Targeting) bool {
	if t.AnonymousOnly {
		return s.UserID == nil
	}
	if len(t.UserIDs) > 0 {
		if s.UserID == nil {
			return false
		}
		for _, id := range t.UserIDs {
			if *s.UserID == id {
				return true
			}
		}
		return false
	}
	if len(t.Roles) > 0 {
		if s.Role == nil {
			return false
		}
		for _, r := range t.Roles {
			if *s.Role == r {
				return true
			}
		}
		return false
	}
	return true
}

var _ interfaces.SocketRegistry = (*Hub)(nil)

// roleOf is a helper for handlers constructing sessions.
func roleOf(r domain.Role) *domain.Role { return &r }
