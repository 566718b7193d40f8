package ws

import (
	"log/slog"
	"sync"

	"roomchat/chat"
	"roomchat/observability"
)

// Hub tracks live sessions and the room groups they subscribed to. It is
// the delivery mechanism behind the messaging core, group membership here
// follows the core's registry, never the other way around.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	groups   map[string]map[string]*Session
	log      *slog.Logger
}

var _ chat.Transport = (*Hub)(nil)

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		groups:   make(map[string]map[string]*Session),
		log:      log,
	}
}

func (h *Hub) Add(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.sessions[s.ID]; ok {
		old.CloseWithReason(4000, "session replaced")
	}
	h.sessions[s.ID] = s

	observability.ConnectionsActive.Inc()
}

// Remove drops the session and its group subscriptions. Emits and
// broadcasts after removal simply no longer reach it.
func (h *Hub) Remove(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[connID]; !ok {
		return
	}
	delete(h.sessions, connID)

	for roomID, group := range h.groups {
		delete(group, connID)
		if len(group) == 0 {
			delete(h.groups, roomID)
		}
	}

	observability.ConnectionsActive.Dec()
}

func (h *Hub) Emit(connID, event string, payload any) {
	msg, err := encodeFrame(event, payload)
	if err != nil {
		h.log.Error("Failed to encode frame", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	session, ok := h.sessions[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	if !session.TrySend(msg) {
		h.log.Warn("Delivery failed", "event", event, "connection", connID)
	}
}

// BroadcastToRoom delivers to the snapshot of the group taken when it is
// called. Members joining mid-broadcast are not guaranteed the frame.
func (h *Hub) BroadcastToRoom(roomID, event string, payload any, excludeConn string) {
	msg, err := encodeFrame(event, payload)
	if err != nil {
		h.log.Error("Failed to encode frame", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	group := h.groups[roomID]
	receivers := make([]*Session, 0, len(group))
	for connID, session := range group {
		if connID == excludeConn {
			continue
		}
		receivers = append(receivers, session)
	}
	h.mu.RUnlock()

	for _, session := range receivers {
		if session.TrySend(msg) {
			observability.BroadcastsDeliveredTotal.Inc()
		} else {
			observability.BroadcastsDroppedTotal.Inc()
		}
	}
}

func (h *Hub) JoinGroup(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[connID]
	if !ok {
		return
	}
	if h.groups[roomID] == nil {
		h.groups[roomID] = make(map[string]*Session)
	}
	h.groups[roomID][connID] = session
}

func (h *Hub) LeaveGroup(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[roomID]
	if !ok {
		return
	}
	delete(group, connID)
	if len(group) == 0 {
		delete(h.groups, roomID)
	}
}

func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, session := range h.sessions {
		session.Close()
	}
}
