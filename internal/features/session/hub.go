package session

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// Notifier delivers session messages to whoever is listening.
type Notifier interface {
	Publish(msg Message)
}

type subscriber struct {
	conn *websocket.Conn
	send chan Message
}

// Hub fans session messages out to websocket subscribers. Each subscriber
// has its own buffered queue; a slow subscriber loses messages rather than
// blocking the session.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		logger: logger,
	}
}

func (h *Hub) Publish(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[msg.SessionID] {
		select {
		case sub.send <- msg:
		default:
			h.logger.Warn("websocket subscriber queue full, dropping message",
				zap.String("session_id", msg.SessionID),
				zap.String("type", string(msg.Type)))
		}
	}
}

// Serve registers conn for sessionID and pumps messages to it until the
// client disconnects.
func (h *Hub) Serve(sessionID string, conn *websocket.Conn) {
	sub := &subscriber{conn: conn, send: make(chan Message, 64)}
	h.add(sessionID, sub)
	defer h.remove(sessionID, sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			// Clients only listen; reads detect the disconnect.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case msg := <-sub.send:
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("websocket write failed", zap.String("session_id", sessionID), zap.Error(err))
				return
			}
		}
	}
}

// Subscribers returns the number of listeners of a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

func (h *Hub) add(sessionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*subscriber]struct{})
	}
	h.subs[sessionID][sub] = struct{}{}
}

func (h *Hub) remove(sessionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[sessionID], sub)
	if len(h.subs[sessionID]) == 0 {
		delete(h.subs, sessionID)
	}
}
