package handlers

import (
	"errors"
	"log"

	"bountyboard/internal/models"
	"bountyboard/internal/services"

	"github.com/gofiber/fiber/v2"
)

// RequestHandler handles bounty-request filing, withdrawal and the
// acceptance endpoint.
type RequestHandler struct {
	bounties         *services.BountyService
	accept           *services.AcceptService
	escrow           *services.EscrowService // nil when payments are disabled
	users            *services.UserService
	depositProductID string
}

// NewRequestHandler creates a new request handler.
func NewRequestHandler(bounties *services.BountyService, accept *services.AcceptService,
	escrow *services.EscrowService, users *services.UserService, depositProductID string) *RequestHandler {
	return &RequestHandler{
		bounties:         bounties,
		accept:           accept,
		escrow:           escrow,
		users:            users,
		depositProductID: depositProductID,
	}
}

// Apply files a request against an open bounty.
// POST /api/requests
func (h *RequestHandler) Apply(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req models.ApplyRequest
	if err := c.BodyParser(&req); err != nil || req.BountyID.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Bounty ID is required",
		})
	}

	request, err := h.bounties.CreateRequest(c.Context(), models.ID(userID), &req)
	if err != nil {
		return backendError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(request)
}

// ListMine returns the caller's own requests.
// GET /api/requests/mine
func (h *RequestHandler) ListMine(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	requests, err := h.bounties.ListRequestsByHunter(c.Context(), models.ID(userID))
	if err != nil {
		return backendError(c, err)
	}
	if requests == nil {
		requests = []models.BountyRequest{}
	}
	return c.JSON(requests)
}

// Delete withdraws (hunter) or rejects (poster) a request.
// DELETE /api/requests/:id
func (h *RequestHandler) Delete(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	if err := h.bounties.DeleteRequest(c.Context(), models.ID(userID), models.ID(c.Params("id"))); err != nil {
		return backendError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Accept runs the acceptance workflow for a pending request. An
// insufficient balance on a paid bounty comes back as 402 with a
// checkout URL so the client can offer a deposit; a lost race against
// a competing acceptance comes back as 409.
// POST /api/requests/:id/accept
func (h *RequestHandler) Accept(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	result, err := h.accept.Accept(c.Context(), models.ID(userID), models.ID(c.Params("id")))
	if err != nil {
		var insufficient *services.ErrInsufficientBalance
		if errors.As(err, &insufficient) {
			return h.respondDepositOffer(c, models.ID(userID), insufficient)
		}

		var failed *services.ErrAcceptFailed
		if errors.As(err, &failed) {
			return c.Status(backendStatus(failed.Err)).JSON(fiber.Map{
				"error":    "Failed to accept the request. Your board may have been out of date and has been refreshed.",
				"detail":   failed.Err.Error(),
				"reloaded": true,
			})
		}

		return backendError(c, err)
	}

	return c.JSON(result)
}

// respondDepositOffer answers an aborted acceptance with the shortfall
// and, when payments are configured, a hosted checkout link.
func (h *RequestHandler) respondDepositOffer(c *fiber.Ctx, userID models.ID, e *services.ErrInsufficientBalance) error {
	offer := fiber.Map{
		"error":           "Insufficient balance to accept this bounty",
		"needed_cents":    e.NeededCents,
		"available_cents": e.AvailableCents,
	}

	if h.escrow != nil && h.depositProductID != "" {
		user, err := h.users.GetUser(c.Context(), userID)
		if err == nil {
			checkoutURL, err := h.escrow.CreateDepositCheckout(c.Context(), user, h.depositProductID)
			if err != nil {
				log.Printf("⚠️  [REQUEST] Failed to create deposit checkout: %v", err)
			} else {
				offer["checkout_url"] = checkoutURL
			}
		}
	}

	return c.Status(fiber.StatusPaymentRequired).JSON(offer)
}
