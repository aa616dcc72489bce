package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Hub maintains active WebSocket connections and pushes workspace events
type Hub struct {
	// Registered clients (session ID -> Client)
	clients map[string]*Client

	// Outbound messages addressed to a session
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	// Mutex for thread-safe client map access
	mu sync.RWMutex
}

// Message represents a message for the connection of one session
type Message struct {
	SessionID string
	Data      interface{}
}

// Envelope is the JSON frame every pushed event is wrapped in
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if prev, ok := h.clients[client.SessionID]; ok && prev != client {
				// A reconnect replaces the old socket of the same session
				close(prev.send)
			}
			h.clients[client.SessionID] = client
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Printf("✅ [WEBSOCKET] Client CONNECTED")
			log.Printf("   Session ID: %s", client.SessionID)
			log.Printf("   User ID: %s", client.UserID)
			log.Printf("   Role: %s", client.UserRole)
			log.Printf("   Total connected clients: %d", count)
			log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.SessionID]; ok && current == client {
				delete(h.clients, client.SessionID)
				close(client.send)
				client.detach()
				log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
				log.Printf("🔴 [WEBSOCKET] Client DISCONNECTED")
				log.Printf("   Session ID: %s", client.SessionID)
				log.Printf("   User ID: %s", client.UserID)
				log.Printf("   Remaining connected clients: %d", len(h.clients))
				log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message.Data)
			if err != nil {
				log.Printf("❌ Failed to marshal message: %v", err)
				continue
			}
			h.mu.Lock()
			if client, ok := h.clients[message.SessionID]; ok {
				select {
				case client.send <- data:
				default:
					// Client buffer full, disconnect
					close(client.send)
					delete(h.clients, message.SessionID)
					log.Printf("⚠️ Client buffer full, disconnecting: %s", message.SessionID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToSession queues data for the connection of one workspace
func (h *Hub) BroadcastToSession(sessionID string, data interface{}) {
	select {
	case h.broadcast <- &Message{SessionID: sessionID, Data: data}:
	case <-h.done:
	}
}

// BroadcastToRole sends a message to all connected users with a specific role
func (h *Hub) BroadcastToRole(role string, data interface{}) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		log.Printf("❌ Failed to marshal broadcast message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, client := range h.clients {
		if client.UserRole == role {
			select {
			case client.send <- dataBytes:
				sent++
			default:
			}
		}
	}
	log.Printf("📤 Broadcast to role '%s': sent to %d clients", role, sent)
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsSessionConnected checks if a workspace currently has a socket
func (h *Hub) IsSessionConnected(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[sessionID]
	return ok
}
