package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"violation-dashboard/models"
)

// WebSocketHub manages dashboard client connections and broadcasts freshly
// detected violations to all of them.
type WebSocketHub struct {
	clients    map[*WebSocketClient]bool
	broadcast  chan models.BroadcastMessage
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	mutex      sync.RWMutex
}

// WebSocketClient represents one connected dashboard.
type WebSocketClient struct {
	hub    *WebSocketHub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

// NewWebSocketHub creates a new WebSocket hub.
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*WebSocketClient]bool),
		broadcast:  make(chan models.BroadcastMessage),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
	}
}

// Start runs the hub loop.
func (h *WebSocketHub) Start() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("INFO: WebSocket client registered for user %s", client.userID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			log.Printf("INFO: WebSocket client unregistered for user %s", client.userID)

		case message := <-h.broadcast:
			data := h.serializeMessage(message)
			var stalled []*WebSocketClient
			h.mutex.RLock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Client cannot keep up; drop it rather than
					// block the broadcast.
					stalled = append(stalled, client)
				}
			}
			h.mutex.RUnlock()
			for _, client := range stalled {
				h.dropClient(client)
			}
		}
	}
}

func (h *WebSocketHub) dropClient(client *WebSocketClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// Stop disconnects every client.
func (h *WebSocketHub) Stop() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// RegisterClient attaches a new connection to the hub.
func (h *WebSocketHub) RegisterClient(conn *websocket.Conn, userID string) {
	client := &WebSocketClient{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// BroadcastViolations pushes a batch of new violations to every client.
func (h *WebSocketHub) BroadcastViolations(batch models.ViolationBatch) {
	h.broadcast <- models.BroadcastMessage{
		Type:      "violations",
		Data:      batch,
		Timestamp: time.Now(),
	}
}

// GetConnectedClientsCount returns the number of connected clients.
func (h *WebSocketHub) GetConnectedClientsCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *WebSocketHub) serializeMessage(message models.BroadcastMessage) []byte {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("ERROR: Failed to serialize message: %v", err)
		return []byte("{}")
	}
	return data
}

// readPump drains the connection so pings and closes are handled.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ERROR: WebSocket read error for user %s: %v", c.userID, err)
			}
			break
		}
	}
}

// writePump delivers broadcasts and keeps the connection alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
