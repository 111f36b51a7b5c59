package models

import "github.com/gofiber/contrib/websocket"

// UserConnection represents an active WebSocket connection for a user.
type UserConnection struct {
	ConnID    string
	UserID    string
	Conn      *websocket.Conn
	WriteChan chan []byte
	StopChan  chan struct{}
}

// WSEvent is the envelope pushed to clients over WebSocket.
type WSEvent struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Event types pushed to connected clients.
const (
	WSEventRequestAccepted = "request_accepted"
	WSEventRequestDeleted  = "request_deleted"
	WSEventBountyUpdated   = "bounty_updated"
	WSEventNewMessage      = "new_message"
	WSEventConversation    = "conversation_created"
)
