package services

import (
	"encoding/json"
	"log"
	"sync"

	"bountyboard/internal/models"
)

// ConnectionManager manages all active WebSocket connections
type ConnectionManager struct {
	connections map[string]*models.UserConnection
	byUser      map[string]map[string]*models.UserConnection
	mutex       sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*models.UserConnection),
		byUser:      make(map[string]map[string]*models.UserConnection),
	}
}

// Add adds a new connection
func (cm *ConnectionManager) Add(conn *models.UserConnection) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.connections[conn.ConnID] = conn
	if cm.byUser[conn.UserID] == nil {
		cm.byUser[conn.UserID] = make(map[string]*models.UserConnection)
	}
	cm.byUser[conn.UserID][conn.ConnID] = conn
	log.Printf("✅ Connection added: %s user=%s (Total: %d)", conn.ConnID, conn.UserID, len(cm.connections))
}

// Remove removes a connection
func (cm *ConnectionManager) Remove(connID string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if conn, exists := cm.connections[connID]; exists {
		close(conn.WriteChan)
		close(conn.StopChan)
		delete(cm.connections, connID)
		if userConns := cm.byUser[conn.UserID]; userConns != nil {
			delete(userConns, connID)
			if len(userConns) == 0 {
				delete(cm.byUser, conn.UserID)
			}
		}
		log.Printf("❌ Connection removed: %s (Total: %d)", connID, len(cm.connections))
	}
}

// Get retrieves a connection by ID
func (cm *ConnectionManager) Get(connID string) (*models.UserConnection, bool) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	conn, exists := cm.connections[connID]
	return conn, exists
}

// Count returns the number of active connections
func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.connections)
}

// SendToUser pushes an event to every connection the user holds.
// Slow consumers are skipped rather than blocked on.
func (cm *ConnectionManager) SendToUser(userID string, event models.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("⚠️  Failed to marshal WS event: %v", err)
		return
	}

	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	for _, conn := range cm.byUser[userID] {
		select {
		case conn.WriteChan <- data:
			GetMetrics().RecordWebSocketMessage(event.Type, "outbound")
		default:
			log.Printf("⚠️  Dropping WS event for slow connection %s", conn.ConnID)
		}
	}
}
