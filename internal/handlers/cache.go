package handlers

import (
	"log"

	"bountyboard/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CacheHandler exposes cache diagnostics. Admin only.
type CacheHandler struct {
	cache   *services.CacheService
	network *services.NetworkMonitor
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(cache *services.CacheService, network *services.NetworkMonitor) *CacheHandler {
	return &CacheHandler{cache: cache, network: network}
}

// Stats returns entry counts per tier and connectivity status.
// GET /api/admin/cache/stats
func (h *CacheHandler) Stats(c *fiber.Ctx) error {
	stats := h.cache.Stats()
	return c.JSON(fiber.Map{
		"memory_entries":  stats.MemoryEntries,
		"durable_entries": stats.DurableEntries,
		"online":          h.network.Online(),
	})
}

// Invalidate drops a single key from both tiers.
// DELETE /api/admin/cache/:key
func (h *CacheHandler) Invalidate(c *fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cache key is required",
		})
	}

	h.cache.Invalidate(key)
	return c.JSON(fiber.Map{"success": true})
}

// Clear wipes both cache tiers. Sign-out and account-switch flows call
// this so no data leaks across accounts.
// POST /api/admin/cache/clear
func (h *CacheHandler) Clear(c *fiber.Ctx) error {
	h.cache.ClearAll()
	log.Printf("🗑️ [CACHE] All cache tiers cleared")
	return c.JSON(fiber.Map{"success": true})
}
