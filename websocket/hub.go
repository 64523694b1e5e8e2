package websocket

import (
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Client struct {
	UserID uuid.UUID
	Conn   Conn

	writeMu sync.Mutex
}

func (c *Client) send(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(v)
}

// Event is the envelope pushed to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

// Hub tracks one live connection per user. A newer connection replaces the old one.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	mu       sync.RWMutex
	clients  map[uuid.UUID]*Client
	done     chan struct{}
	stopOnce sync.Once
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[uuid.UUID]*Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			log.Printf("Client registered: %s", client.UserID)
			h.mu.Lock()
			if old, ok := h.clients[client.UserID]; ok && old != client {
				_ = old.Conn.Close()
			}
			h.clients[client.UserID] = client
			h.mu.Unlock()
		case client := <-h.Unregister:
			log.Printf("Client unregistered: %s", client.UserID)
			h.remove(client)
		case <-h.done:
			h.mu.Lock()
			for id, c := range h.clients {
				_ = c.Conn.Close()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) Stop() { h.stopOnce.Do(func() { close(h.done) }) }

// register hands client to Run. It reports false once the hub has stopped.
func (h *Hub) register(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.clients[client.UserID]; ok && current == client {
		delete(h.clients, client.UserID)
	}
}

func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// Publish sends an event to the user's live connection and reports whether it was
// delivered. A failed write drops the connection.
func (h *Hub) Publish(userID uuid.UUID, eventType string, payload any) bool {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	err := client.send(Event{Type: eventType, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		log.Printf("Error sending %s to client %s: %v", eventType, userID, err)
		_ = client.Conn.Close()
		h.remove(client)
		return false
	}
	return true
}

// Serve registers an authenticated connection and blocks reading from it until it
// closes. Clients only send keepalive pings; other frames are ignored.
func (h *Hub) Serve(userID uuid.UUID, c *websocket.Conn) {
	client := &Client{UserID: userID, Conn: c}
	if !h.register(client) {
		_ = c.Close()
		return
	}
	defer func() {
		h.unregister(client)
		_ = c.Close()
	}()

	for {
		var frame struct {
			Type string `json:"type"`
		}
		if err := c.ReadJSON(&frame); err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket closed for client %s: %v", userID, err)
			} else {
				log.Printf("WebSocket read error for client %s: %v", userID, err)
			}
			return
		}
		if frame.Type == "ping" {
			_ = client.send(Event{Type: "pong", SentAt: time.Now().UTC()})
		}
	}
}
