package stubserver

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"agora/internal/channel"
)

// wsClient wraps one socket connection. gorilla allows a single concurrent
// writer, so every write goes through the client's mutex.
type wsClient struct {
	userID string
	conn   *websocket.Conn
	mu     sync.Mutex
}

func (c *wsClient) send(frame channel.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(frame)
}

// Hub tracks the live socket connections per user.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[*wsClient]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{users: make(map[string]map[*wsClient]bool)}
}

// Add registers a connection for a user.
func (h *Hub) Add(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.users[client.userID]; !ok {
		h.users[client.userID] = make(map[*wsClient]bool)
	}
	h.users[client.userID][client] = true
}

// Remove unregisters a connection.
func (h *Hub) Remove(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.users[client.userID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.users, client.userID)
		}
	}
}

// SendToUser pushes an event frame to every connection of a user. Dead
// connections are dropped.
func (h *Hub) SendToUser(userID, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("hub: encode %s: %v", event, err)
		return
	}
	frame := channel.Frame{Type: event, Payload: raw}

	h.mu.RLock()
	snapshot := make([]*wsClient, 0, len(h.users[userID]))
	for client := range h.users[userID] {
		snapshot = append(snapshot, client)
	}
	h.mu.RUnlock()

	for _, client := range snapshot {
		if err := client.send(frame); err != nil {
			log.Printf("websocket write error: %v", err)
			client.conn.Close()
			h.Remove(client)
		}
	}
}
