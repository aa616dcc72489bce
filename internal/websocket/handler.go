package websocket

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"gasdash-backend/internal/middleware"
)

// NewUpgrader allows the configured origins; "*" allows any
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					return true
				}
			}
			log.Printf("❌ WebSocket origin rejected: %s", origin)
			return false
		},
	}
}

// HandleWebSocket upgrades the connection of a signed-in workspace. The
// token comes from ?token= since browsers cannot set headers on sockets.
func HandleWebSocket(hub *Hub, secret string, workspaces middleware.WorkspaceLookup, upgrader websocket.Upgrader, debounce time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var claims middleware.UserClaims
		if tokenString := r.URL.Query().Get("token"); tokenString != "" {
			var err error
			claims, err = middleware.ParseToken(secret, tokenString)
			if err != nil {
				log.Printf("❌ Invalid token in query parameter: %v", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		} else {
			// Fallback: Get user from context (set by Auth middleware)
			var ok bool
			claims, ok = middleware.GetUserFromContext(r)
			if !ok {
				log.Println("❌ No user in context for WebSocket connection")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		ws, ok := workspaces.Get(claims.SessionID)
		if !ok || ws.Principal() == nil {
			log.Printf("❌ WebSocket for unknown or signed-out session %s", claims.SessionID)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// Upgrade HTTP connection to WebSocket
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("❌ WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(claims.SessionID, claims.UserID, string(ws.Principal().Role), conn, hub, ws, debounce)

		// Register client
		hub.register <- client
		client.attach()

		// Start pumps in separate goroutines
		go client.WritePump()
		go client.ReadPump()

		// Initial state so the page can render without a round trip
		client.reply("session_changed", ws.Session.Snapshot())

		log.Printf("✅ WebSocket connection established for user: %s (%s)", claims.Email, claims.UserID)
	}
}
