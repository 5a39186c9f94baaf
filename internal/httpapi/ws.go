package httpapi

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/easynet-world/easy-mcp-server/pkg/logging"
)

// notificationHub fans out MCP notifications (tools/list_changed and, in
// principle, prompts/resources equivalents) to every connected streaming
// client, per spec.md §4.10's mention of notifications and the CLI-facing
// surface's optional push channel. This is additive to the MCP JSON-RPC
// transport itself, which delivers notifications over stdio/HTTP
// natively; /ws exists for browser-style consumers that want a plain
// WebSocket feed instead of holding an MCP session open.
type notificationHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*websocket.Conn
}

func newNotificationHub() *notificationHub {
	return &notificationHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*websocket.Conn),
	}
}

func (h *notificationHub) add(conn *websocket.Conn) string {
	id := uuid.New().String()
	h.mu.Lock()
	h.clients[id] = conn
	h.mu.Unlock()
	return id
}

func (h *notificationHub) remove(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

func (h *notificationHub) broadcast(msg interface{}) {
	h.mu.Lock()
	conns := make(map[string]*websocket.Conn, len(h.clients))
	for id, c := range h.clients {
		conns[id] = c
	}
	h.mu.Unlock()

	for id, c := range conns {
		if err := c.WriteJSON(msg); err != nil {
			logging.Debug("HTTPServer", "dropping websocket client %s: %v", id, err)
			h.remove(id)
			_ = c.Close()
		}
	}
}

// handleWebSocket upgrades the connection and keeps it registered until
// the client disconnects. The connection is write-only from the server's
// perspective; any inbound frame is drained and discarded.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("HTTPServer", "websocket upgrade failed: %v", err)
		return
	}
	id := s.hub.add(conn)
	defer func() {
		s.hub.remove(id)
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
