package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"sentio/internal/report"
	"sentio/internal/session"
)

// Hub manages WebSocket connections for live session monitoring.
// It implements session.EventHandler so it can subscribe directly to
// the session event bus.
type Hub struct {
	// clients maps session_id -> set of connections
	clients map[string]map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewHub creates a new monitor hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*websocket.Conn]bool)}
}

// Register adds a connection for a session.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[sessionID] == nil {
		h.clients[sessionID] = make(map[*websocket.Conn]bool)
	}
	h.clients[sessionID][conn] = true
	log.Printf("[WS] Client registered for session %s (total: %d)", sessionID, len(h.clients[sessionID]))
}

// Unregister removes a connection for a session.
func (h *Hub) Unregister(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[sessionID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, sessionID)
		}
		log.Printf("[WS] Client unregistered for session %s", sessionID)
	}
}

// HasClients reports whether anyone is watching a session.
func (h *Hub) HasClients(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.clients[sessionID]
	return ok && len(conns) > 0
}

// OnSessionEvent forwards a session event to watching clients.
func (h *Hub) OnSessionEvent(event *session.Event) {
	if !h.HasClients(event.SessionID) {
		return
	}

	h.broadcastJSON(event.SessionID, NewFrameMessage(event.SessionID, event.Result))
	for _, rec := range event.Anomalies {
		h.broadcastJSON(event.SessionID, &AnomalyMessage{
			Type:      "anomaly",
			SessionID: event.SessionID,
			Record:    rec,
		})
	}
}

// PublishReport sends the final report to watching clients.
func (h *Hub) PublishReport(sessionID string, rep *report.Report) {
	h.broadcastJSON(sessionID, &ReportMessage{
		Type:      "report",
		SessionID: sessionID,
		Report:    rep,
	})
}

func (h *Hub) broadcastJSON(sessionID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Failed to marshal message: %v", err)
		return
	}
	h.broadcast(sessionID, data)
}

// broadcast sends a message to all clients watching a session. Dead
// connections are dropped on write failure.
func (h *Hub) broadcast(sessionID string, message []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients[sessionID]))
	for conn := range h.clients[sessionID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.Unregister(sessionID, conn)
			conn.Close()
		}
	}
}

var _ session.EventHandler = (*Hub)(nil)
