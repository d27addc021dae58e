// Package websocket pushes data-layer events to connected dashboards:
// connectivity transitions, mutations, and resync completions. Clients
// re-fetch through the API on receipt; no payload carries document data.
package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"studytrack-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Hub struct {
	mu          sync.RWMutex
	connections map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{connections: make(map[*websocket.Conn]bool)}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.registerConnection(conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[conn] = true
	log.Printf("WebSocket connected (total: %d)", len(h.connections))
}

func (h *Hub) unregisterConnection(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn.Close()
	delete(h.connections, conn)
	log.Printf("WebSocket disconnected (total: %d)", len(h.connections))
}

// Broadcast sends a message to every connected client.
func (h *Hub) Broadcast(msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.connections {
		conn.WriteMessage(websocket.TextMessage, data)
	}
}

// BroadcastConnectivity announces an online/offline transition.
func (h *Hub) BroadcastConnectivity(online bool) {
	h.Broadcast(models.WSMessage{
		Type:    "connectivity",
		Payload: models.ConnectivityEvent{Online: online},
	})
}

// BroadcastMutation announces a create/update/delete so open dashboards can
// refresh the affected kind.
func (h *Hub) BroadcastMutation(kind, op, id string) {
	h.Broadcast(models.WSMessage{
		Type:    "mutation",
		Payload: models.MutationEvent{Kind: kind, Op: op, ID: id},
	})
}
