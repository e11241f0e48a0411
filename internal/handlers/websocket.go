package handlers

import (
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"nuuko/internal/store"
)

// changeEvent is pushed to every connected client when a collection changes.
type changeEvent struct {
	Type string `json:"type"`
}

// client is one connected websocket with a buffered write channel so a slow
// reader cannot block the hub.
type client struct {
	id    string
	conn  *websocket.Conn
	send  chan changeEvent
	close chan struct{}
}

// Hub pushes storage change events to connected clients. It subscribes to
// the store once; every local or foreign change fans out to all clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub creates a hub wired to the store's change feed.
func NewHub(s *store.Store) *Hub {
	h := &Hub{clients: make(map[string]*client)}
	s.SubscribeChanges(h.broadcast)
	return h
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(changeType string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, cl := range h.clients {
		select {
		case cl.send <- changeEvent{Type: changeType}:
		default:
			// Drop the event for a client whose buffer is full; it will
			// re-sync on its next read anyway.
		}
	}
}

// Handle serves one websocket connection until the peer goes away.
func (h *Hub) Handle(c *websocket.Conn) {
	cl := &client{
		id:    uuid.NewString(),
		conn:  c,
		send:  make(chan changeEvent, 16),
		close: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[cl.id] = cl
	h.mu.Unlock()
	log.Printf("🔌 [WS] Client connected (%s, %d total)", cl.id, h.Count())

	defer func() {
		h.mu.Lock()
		delete(h.clients, cl.id)
		h.mu.Unlock()
		close(cl.close)
		log.Printf("🔌 [WS] Client disconnected (%s, %d total)", cl.id, h.Count())
	}()

	go h.writeLoop(cl)

	// Read loop: the client sends nothing meaningful, but reading is what
	// detects disconnects and answers pings.
	c.SetReadDeadline(time.Now().Add(120 * time.Second))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
		c.SetReadDeadline(time.Now().Add(120 * time.Second))
	}
}

func (h *Hub) writeLoop(cl *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-cl.close:
			return
		case event := <-cl.send:
			if err := cl.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			if err := cl.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}
