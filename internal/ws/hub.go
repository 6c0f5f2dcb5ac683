// Package ws pushes notifications to connected websocket clients.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/models"
)

// sendBuffer is how many frames a slow client may fall behind before
// frames are dropped for it.
const sendBuffer = 64

// Client is one websocket connection. A user may hold several.
type Client struct {
	UserID int
	Conn   *websocket.Conn
	Send   chan []byte
}

// Event is the frame sent for each notification.
type Event struct {
	Type         string              `json:"type"`
	Notification models.Notification `json:"notification"`
}

// Hub tracks online clients by user and fans notifications out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[int]map[*Client]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{clients: make(map[int]map[*Client]struct{}), logger: logger}
}

func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.UserID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
}

// Remove unregisters c and closes its Send channel.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.UserID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.Send)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
}

func (h *Hub) Online(userID int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// Notify queues n for every connection of userID. It never blocks; a
// client whose buffer is full misses the frame and can catch up through
// the notifications endpoint.
func (h *Hub) Notify(userID int, n models.Notification) {
	data, err := json.Marshal(Event{Type: "notification", Notification: n})
	if err != nil {
		h.logger.Error("encode notification", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.Send <- data:
		default:
			h.logger.Warn("websocket client lagging, frame dropped", zap.Int("u_id", userID))
		}
	}
}
