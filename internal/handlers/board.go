package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"bountyboard/internal/models"
	"bountyboard/internal/services"

	"github.com/gofiber/fiber/v2"
)

// BoardHandler serves the per-user board view. Reads go through the
// cache layer keyed per user; the in-memory view kept by the acceptance
// coordinator is preferred when present so optimistic patches are
// visible immediately.
type BoardHandler struct {
	bounties *services.BountyService
	board    *services.BoardService
	cache    *services.CacheService
}

// NewBoardHandler creates a new board handler.
func NewBoardHandler(bounties *services.BountyService, board *services.BoardService, cache *services.CacheService) *BoardHandler {
	return &BoardHandler{bounties: bounties, board: board, cache: cache}
}

func boardKey(userID string) string {
	return "board:" + userID
}

// Get returns the caller's board: pending requests on their postings,
// their postings, and their in-progress hunts.
// GET /api/board?force=true
func (h *BoardHandler) Get(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	// A live in-memory view exists while an acceptance is in flight or
	// recently completed; it already reflects optimistic patches.
	if h.board.Has(models.ID(userID)) {
		return c.JSON(h.board.Snapshot(models.ID(userID)))
	}

	data, err := h.cache.FetchWithCache(c.Context(), boardKey(userID),
		func(ctx context.Context) ([]byte, error) {
			view, err := h.bounties.LoadBoard(ctx, models.ID(userID))
			if err != nil {
				return nil, err
			}
			h.board.Replace(models.ID(userID), view)
			return json.Marshal(view)
		},
		services.FetchOptions{ForceRefresh: c.QueryBool("force")})
	if err != nil {
		if errors.Is(err, services.ErrOfflineNoCache) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Backend unreachable and no cached board available",
			})
		}
		return backendError(c, err)
	}

	c.Set("Content-Type", "application/json")
	return c.Send(data)
}

// Refresh forces a reload from source and drops the cached copy.
// POST /api/board/refresh
func (h *BoardHandler) Refresh(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	view, err := h.bounties.LoadBoard(c.Context(), models.ID(userID))
	if err != nil {
		return backendError(c, err)
	}

	h.board.Replace(models.ID(userID), view)
	h.cache.Invalidate(boardKey(userID))
	return c.JSON(view)
}
