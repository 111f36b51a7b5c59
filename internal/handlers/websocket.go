package handlers

import (
	"encoding/json"
	"log"
	"time"

	"bountyboard/internal/models"
	"bountyboard/internal/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// WebSocketHandler pushes board and conversation events to connected
// clients. Events originate from Redis pub/sub so every instance sees
// them; delivery to a slow client is dropped, never buffered without
// bound.
type WebSocketHandler struct {
	connManager *services.ConnectionManager
	pubsub      *services.PubSubService // nil in single-instance setups
}

// NewWebSocketHandler creates a new WebSocket handler and registers the
// pub/sub fan-in.
func NewWebSocketHandler(connManager *services.ConnectionManager, pubsub *services.PubSubService) *WebSocketHandler {
	h := &WebSocketHandler{connManager: connManager, pubsub: pubsub}

	if pubsub != nil {
		pubsub.Subscribe("user:*:events", h.onUserEvent)
	}
	return h
}

// onUserEvent forwards a pub/sub event to the user's live connections.
func (h *WebSocketHandler) onUserEvent(channel string, event *services.PubSubEvent) {
	if event.UserID == "" {
		return
	}
	h.connManager.SendToUser(event.UserID, models.WSEvent{
		Type:    event.Type,
		Payload: event.Payload,
	})
}

// Handle runs one WebSocket connection until the client goes away.
func (h *WebSocketHandler) Handle(c *websocket.Conn) {
	connID := uuid.NewString()
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		c.Close()
		return
	}

	userConn := &models.UserConnection{
		ConnID:    connID,
		UserID:    userID,
		Conn:      c,
		WriteChan: make(chan []byte, 64),
		StopChan:  make(chan struct{}),
	}

	h.connManager.Add(userConn)
	services.GetMetrics().RecordWebSocketConnect()
	log.Printf("📡 [WS] User %s connected (%s), %d active", userID, connID, h.connManager.Count())

	// Remove owns channel teardown: it closes both StopChan and
	// WriteChan exactly once.
	defer func() {
		h.connManager.Remove(connID)
		services.GetMetrics().RecordWebSocketDisconnect()
		log.Printf("📡 [WS] User %s disconnected (%s)", userID, connID)
	}()

	c.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	go h.writeLoop(userConn)

	hello, _ := json.Marshal(models.WSEvent{Type: "connected"})
	userConn.WriteChan <- hello

	h.readLoop(userConn)
}

// writeLoop serializes all writes to the connection, including pings.
func (h *WebSocketHandler) writeLoop(userConn *models.UserConnection) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-userConn.StopChan:
			return
		case msg, ok := <-userConn.WriteChan:
			if !ok {
				// Remove closed the channel during teardown
				return
			}
			if err := userConn.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("⚠️  [WS] Write failed for %s: %v", userConn.ConnID, err)
				return
			}
			services.GetMetrics().RecordWebSocketMessage("event", "out")
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := userConn.Conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// readLoop drains client frames. The protocol is push-only; incoming
// frames only reset the read deadline.
func (h *WebSocketHandler) readLoop(userConn *models.UserConnection) {
	for {
		if _, _, err := userConn.Conn.ReadMessage(); err != nil {
			return
		}
		userConn.Conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		services.GetMetrics().RecordWebSocketMessage("event", "in")
	}
}
