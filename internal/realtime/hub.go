package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
	sendBuffer   = 64
)

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EventPublisher publishes a session event to every instance.
type EventPublisher interface {
	PublishSessionEvent(sessionID uuid.UUID, event string, payload []byte) error
}

// EventSubscriber subscribes to a session's events from every instance.
type EventSubscriber interface {
	SubscribeSession(sessionID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains session_id -> set of connections and broadcasts events.
// With Redis configured, events go through pub/sub so every instance delivers them once.
type Hub struct {
	sessions map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func()
	pending  map[uuid.UUID]bool // subscriptions being set up outside the lock
	mu       sync.RWMutex
	logger   *zap.Logger
	pub      EventPublisher
	sub      EventSubscriber
}

// NewHub creates a new WebSocket hub. pub and sub may be nil for a single instance.
func NewHub(logger *zap.Logger, pub EventPublisher, sub EventSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		sessions: make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		pending:  make(map[uuid.UUID]bool),
		logger:   logger,
		pub:      pub,
		sub:      sub,
	}
}

// Register adds a client to a session room. The first client starts the Redis subscription,
// which is set up without holding the hub lock.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.sessions[c.SessionID] == nil {
		h.sessions[c.SessionID] = make(map[string]*Client)
	}
	h.sessions[c.SessionID][c.ID] = c
	count := len(h.sessions[c.SessionID])
	subscribe := h.sub != nil && h.subs[c.SessionID] == nil && !h.pending[c.SessionID]
	if subscribe {
		h.pending[c.SessionID] = true
	}
	h.mu.Unlock()

	if subscribe {
		h.subscribe(c.SessionID)
	}
	h.broadcastValue(c.SessionID, EventViewerCount, map[string]int{"count": count})
	h.logger.Debug("client subscribed", zap.String("client_id", c.ID), zap.String("session_id", c.SessionID.String()))
}

// subscribe starts the Redis subscription for a session. On failure the next Register retries,
// and Publish keeps delivering to local clients in the meantime.
func (h *Hub) subscribe(sessionID uuid.UUID) {
	cancel, err := h.sub.SubscribeSession(sessionID, func(event string, payload []byte) {
		h.broadcast(sessionID, event, payload)
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, sessionID)
	if err != nil {
		h.logger.Warn("session subscribe failed", zap.String("session_id", sessionID.String()), zap.Error(err))
		return
	}
	if len(h.sessions[sessionID]) == 0 {
		// every client left, or the hub closed, while subscribing
		cancel()
		return
	}
	h.subs[sessionID] = cancel
}

// Unregister removes a client and closes its send channel. The last client cancels the subscription.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	count := -1
	if m, ok := h.sessions[c.SessionID]; ok {
		if _, present := m[c.ID]; present {
			delete(m, c.ID)
			close(c.send)
		}
		count = len(m)
		if count == 0 {
			delete(h.sessions, c.SessionID)
			if cancel, ok := h.subs[c.SessionID]; ok {
				cancel()
				delete(h.subs, c.SessionID)
			}
		}
	}
	h.mu.Unlock()

	if count > 0 {
		h.broadcastValue(c.SessionID, EventViewerCount, map[string]int{"count": count})
	}
	h.logger.Debug("client unsubscribed", zap.String("client_id", c.ID), zap.String("session_id", c.SessionID.String()))
}

// Publish delivers an event to every client watching the session on any instance.
// Local clients are served directly unless this instance holds a Redis subscription for the session.
func (h *Hub) Publish(sessionID uuid.UUID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("marshal session event", zap.String("event", event), zap.Error(err))
		return
	}
	viaRedis := false
	if h.pub != nil {
		if err := h.pub.PublishSessionEvent(sessionID, event, data); err != nil {
			h.logger.Warn("redis publish failed, delivering locally", zap.String("event", event), zap.Error(err))
		} else {
			viaRedis = h.subscribed(sessionID)
		}
	}
	if !viaRedis {
		h.broadcast(sessionID, event, data)
	}
}

func (h *Hub) subscribed(sessionID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subs[sessionID] != nil
}

func (h *Hub) broadcastValue(sessionID uuid.UUID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.broadcast(sessionID, event, data)
}

// broadcast sends to local clients only. Slow clients drop messages rather than block the hub.
func (h *Hub) broadcast(sessionID uuid.UUID, event string, data []byte) {
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.sessions[sessionID] {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("client buffer full, dropping event", zap.String("client_id", c.ID), zap.String("event", event))
		}
	}
}

// ViewerCount returns the number of local connections watching a session.
func (h *Hub) ViewerCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Close disconnects every client and cancels all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, clients := range h.sessions {
		for _, c := range clients {
			close(c.send)
		}
		delete(h.sessions, id)
	}
	for id, cancel := range h.subs {
		cancel()
		delete(h.subs, id)
	}
}
