package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"bountyboard/internal/config"
	"bountyboard/internal/models"
	"bountyboard/internal/services"

	"github.com/gofiber/fiber/v2"
)

// BountyHandler handles bounty CRUD and the public bounty feed. The
// feed read path goes through the cache layer so browsing stays usable
// on a flaky backend.
type BountyHandler struct {
	bounties   *services.BountyService
	cache      *services.CacheService
	categories *config.Categories
}

// NewBountyHandler creates a new bounty handler.
func NewBountyHandler(bounties *services.BountyService, cache *services.CacheService, categories *config.Categories) *BountyHandler {
	return &BountyHandler{bounties: bounties, cache: cache, categories: categories}
}

// Create posts a new bounty.
// POST /api/bounties
func (h *BountyHandler) Create(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req models.CreateBountyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if h.categories != nil && req.Category != "" {
		if h.categories.Current().FindCategory(req.Category) == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("Unknown category: %s", req.Category),
			})
		}
	}

	bounty, err := h.bounties.CreateBounty(c.Context(), models.ID(userID), &req)
	if err != nil {
		return backendError(c, err)
	}

	h.invalidateFeed(req.Category)
	return c.Status(fiber.StatusCreated).JSON(bounty)
}

// List returns the open bounty feed, served through the cache layer:
// fresh cached data comes back instantly with a background
// revalidation, and a backend outage degrades to stale data instead of
// an error.
// GET /api/bounties?category=...&force=true
func (h *BountyHandler) List(c *fiber.Ctx) error {
	category := c.Query("category")
	limit := c.QueryInt("limit", 50)

	data, err := h.cache.FetchWithCache(c.Context(), feedKey(category),
		func(ctx context.Context) ([]byte, error) {
			bounties, err := h.bounties.ListOpenBounties(ctx, category, limit)
			if err != nil {
				return nil, err
			}
			return marshalBounties(bounties)
		},
		services.FetchOptions{ForceRefresh: c.QueryBool("force")})
	if err != nil {
		if errors.Is(err, services.ErrOfflineNoCache) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Backend unreachable and no cached data available",
			})
		}
		return backendError(c, err)
	}

	c.Set("Content-Type", "application/json")
	return c.Send(data)
}

// Get returns one bounty.
// GET /api/bounties/:id
func (h *BountyHandler) Get(c *fiber.Ctx) error {
	bounty, err := h.bounties.GetBounty(c.Context(), models.ID(c.Params("id")))
	if err != nil {
		return backendError(c, err)
	}
	return c.JSON(bounty)
}

// Update applies a partial edit to a bounty.
// PUT /api/bounties/:id
func (h *BountyHandler) Update(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req models.UpdateBountyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	bounty, err := h.bounties.UpdateBounty(c.Context(), models.ID(userID), models.ID(c.Params("id")), &req)
	if err != nil {
		return backendError(c, err)
	}

	h.invalidateFeed(bounty.Category)
	return c.JSON(bounty)
}

// Delete soft-deletes a bounty.
// DELETE /api/bounties/:id
func (h *BountyHandler) Delete(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	if err := h.bounties.DeleteBounty(c.Context(), models.ID(userID), models.ID(c.Params("id"))); err != nil {
		return backendError(c, err)
	}

	log.Printf("🗑️ [BOUNTY] Deleted bounty %s", c.Params("id"))
	h.invalidateFeed("")
	return c.JSON(fiber.Map{"success": true})
}

// Categories returns the configured category list with fee schedules.
// GET /api/categories
func (h *BountyHandler) Categories(c *fiber.Ctx) error {
	if h.categories == nil {
		return c.JSON(fiber.Map{"categories": []models.Category{}})
	}
	return c.JSON(h.categories.Current())
}

func feedKey(category string) string {
	if category == "" {
		return "bounties:open"
	}
	return "bounties:open:" + category
}

// invalidateFeed drops the cached feed for the category and the
// all-categories feed.
func (h *BountyHandler) invalidateFeed(category string) {
	h.cache.Invalidate(feedKey(""))
	if category != "" {
		h.cache.Invalidate(feedKey(category))
	}
}

func marshalBounties(bounties []models.Bounty) ([]byte, error) {
	if bounties == nil {
		bounties = []models.Bounty{}
	}
	return json.Marshal(bounties)
}
