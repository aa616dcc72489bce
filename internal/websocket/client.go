package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gasdash-backend/internal/listquery"
	"gasdash-backend/internal/workspace"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 2048
)

// Client is the socket of one dashboard workspace
type Client struct {
	SessionID string
	UserID    string
	UserRole  string
	conn      *websocket.Conn
	hub       *Hub
	send      chan []byte
	ws        *workspace.Workspace

	debounce   time.Duration
	mu         sync.Mutex
	debouncers map[string]*listquery.Debouncer
}

// IncomingMessage represents a message from the client
type IncomingMessage struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// ViewCommand drives a list view from the browser. Action is one of
// search, filter, sort or page.
type ViewCommand struct {
	View   string `json:"view"`
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`
	Field  string `json:"field,omitempty"`
	Value  string `json:"value,omitempty"`
	Page   int    `json:"page,omitempty"`
}

// NewClient creates a new WebSocket client
func NewClient(sessionID, userID, userRole string, conn *websocket.Conn, hub *Hub, ws *workspace.Workspace, debounce time.Duration) *Client {
	return &Client{
		SessionID:  sessionID,
		UserID:     userID,
		UserRole:   userRole,
		conn:       conn,
		hub:        hub,
		send:       make(chan []byte, 256),
		ws:         ws,
		debounce:   debounce,
		debouncers: make(map[string]*listquery.Debouncer),
	}
}

// attach routes workspace events to this socket
func (c *Client) attach() {
	c.ws.SetNotifier(func(msgType string, payload any) {
		c.hub.BroadcastToSession(c.SessionID, Envelope{Type: msgType, Data: payload})
	})
}

// detach stops workspace pushes and pending searches. Called by the hub
// when this client is unregistered.
func (c *Client) detach() {
	c.ws.SetNotifier(nil)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.debouncers {
		d.Stop()
	}
}

func (c *Client) reply(msgType string, data interface{}) {
	c.hub.BroadcastToSession(c.SessionID, Envelope{Type: msgType, Data: data})
}

// ReadPump pumps messages from the WebSocket connection to the workspace
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		c.handle(message)
	}
}

// handle dispatches one inbound frame
func (c *Client) handle(message []byte) {
	var msg IncomingMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Invalid message format: %v", err)
		return
	}

	switch msg.Type {
	case "ping":
		c.reply("pong", map[string]interface{}{"timestamp": time.Now().Format(time.RFC3339)})

	case "search", "view":
		var cmd ViewCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			c.reply("error", map[string]string{"error": "invalid view command"})
			return
		}
		if msg.Type == "search" {
			cmd.Action = "search"
		}
		c.handleView(cmd)

	default:
		log.Printf("⚠️ Unknown message type from %s: %s", c.SessionID, msg.Type)
	}
}

// handleView applies a list view transition. Search text is debounced per
// view; other transitions render immediately.
func (c *Client) handleView(cmd ViewCommand) {
	view, err := c.ws.View(cmd.View)
	if err != nil {
		c.reply("error", map[string]string{"error": err.Error(), "view": cmd.View})
		return
	}

	switch cmd.Action {
	case "search":
		c.debouncer(cmd.View).Do(func() {
			view.SetSearch(cmd.Text)
			c.push(cmd.View)
		})
		return
	case "filter":
		view.SetFilter(cmd.Field, cmd.Value)
	case "sort":
		view.SortBy(cmd.Field)
	case "page":
		view.SetPage(cmd.Page)
	case "", "render":
	default:
		c.reply("error", map[string]string{"error": "unknown view action: " + cmd.Action})
		return
	}
	c.push(cmd.View)
}

func (c *Client) push(name string) {
	if err := c.ws.PushView(name); err != nil {
		log.Printf("❌ Failed to push view %s: %v", name, err)
	}
}

func (c *Client) debouncer(view string) *listquery.Debouncer {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.debouncers[view]
	if !ok {
		d = listquery.NewDebouncer(c.debounce)
		c.debouncers[view] = d
	}
	return d
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON frame per websocket message
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
