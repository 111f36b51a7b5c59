package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"

	"bountyboard/internal/models"
	"bountyboard/internal/services"

	"github.com/gofiber/fiber/v2"
)

// WalletHandler serves balances, deposit checkouts and the payment
// provider webhook.
type WalletHandler struct {
	users            *services.UserService
	escrow           *services.EscrowService
	depositProductID string
	webhookSecret    string
}

// NewWalletHandler creates a new wallet handler.
func NewWalletHandler(users *services.UserService, escrow *services.EscrowService,
	depositProductID, webhookSecret string) *WalletHandler {
	return &WalletHandler{
		users:            users,
		escrow:           escrow,
		depositProductID: depositProductID,
		webhookSecret:    webhookSecret,
	}
}

// Balance returns the caller's spendable and escrowed balance.
// GET /api/wallet
func (h *WalletHandler) Balance(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	balance, err := h.users.GetBalance(c.Context(), models.ID(userID))
	if err != nil {
		return backendError(c, err)
	}
	return c.JSON(balance)
}

// Deposit creates a hosted checkout session to top up the balance.
// POST /api/wallet/deposit
func (h *WalletHandler) Deposit(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	if h.escrow == nil || h.depositProductID == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Deposits are not configured",
		})
	}

	user, err := h.users.GetUser(c.Context(), models.ID(userID))
	if err != nil {
		return backendError(c, err)
	}

	checkoutURL, err := h.escrow.CreateDepositCheckout(c.Context(), user, h.depositProductID)
	if err != nil {
		log.Printf("❌ [WALLET] Failed to create deposit checkout: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to create checkout session",
		})
	}

	return c.JSON(fiber.Map{"checkout_url": checkoutURL})
}

// Webhook credits a completed deposit. The provider signs the raw body
// with HMAC-SHA256; an invalid signature is rejected before parsing.
// POST /api/webhooks/dodo
func (h *WalletHandler) Webhook(c *fiber.Ctx) error {
	body := c.Body()

	if h.webhookSecret != "" {
		signature := c.Get("webhook-signature")
		if !h.verifySignature(body, signature) {
			log.Printf("⚠️  [WALLET] Webhook signature verification failed")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}
	}

	var event struct {
		Type string `json:"type"`
		Data struct {
			Metadata    map[string]string `json:"metadata"`
			TotalAmount int64             `json:"total_amount"`
			Currency    string            `json:"currency"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	if event.Type != "payment.succeeded" {
		// Acknowledge everything else so the provider stops retrying
		return c.JSON(fiber.Map{"received": true})
	}

	userID := models.NormalizeID(event.Data.Metadata["bountyboard_user_id"])
	if userID.IsZero() || event.Data.TotalAmount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Payment is missing user metadata",
		})
	}

	if err := h.users.Credit(c.Context(), userID, event.Data.TotalAmount); err != nil {
		log.Printf("❌ [WALLET] Failed to credit deposit for user %s: %v", userID, err)
		return backendError(c, err)
	}

	log.Printf("💵 [WALLET] Credited %d cents to user %s", event.Data.TotalAmount, userID)
	return c.JSON(fiber.Map{"received": true})
}

func (h *WalletHandler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
