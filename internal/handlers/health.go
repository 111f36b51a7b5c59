package handlers

import (
	"time"

	"bountyboard/internal/database"
	"bountyboard/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db          *database.DB
	connManager *services.ConnectionManager
	network     *services.NetworkMonitor
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB, connManager *services.ConnectionManager, network *services.NetworkMonitor) *HealthHandler {
	return &HealthHandler{db: db, connManager: connManager, network: network}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"connections": h.connManager.Count(),
		"online":      h.network.Online(),
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}

// Ready reports whether the database answers. Load balancers poll this.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if err := h.db.PingContext(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}
