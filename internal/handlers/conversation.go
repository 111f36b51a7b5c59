package handlers

import (
	"bountyboard/internal/models"
	"bountyboard/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConversationHandler serves the per-bounty coordination channels.
type ConversationHandler struct {
	conversations *services.ConversationService
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(conversations *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// List returns the caller's conversations, most recently active first.
// GET /api/conversations
func (h *ConversationHandler) List(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	items, err := h.conversations.ListForUser(c.Context(), models.ID(userID))
	if err != nil {
		return backendError(c, err)
	}
	if items == nil {
		items = []models.ConversationListItem{}
	}
	return c.JSON(items)
}

// Get returns one conversation the caller participates in.
// GET /api/conversations/:id
func (h *ConversationHandler) Get(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid conversation ID",
		})
	}

	conv, err := h.conversations.GetConversation(c.Context(), id)
	if err != nil {
		return backendError(c, err)
	}
	if conv.PosterID != userID && conv.HunterID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied to this conversation",
		})
	}
	return c.JSON(conv)
}

// Messages returns the message history.
// GET /api/conversations/:id/messages?limit=100
func (h *ConversationHandler) Messages(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid conversation ID",
		})
	}

	messages, err := h.conversations.ListMessages(c.Context(), id, models.ID(userID), int64(c.QueryInt("limit", 100)))
	if err != nil {
		return backendError(c, err)
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return c.JSON(messages)
}

// Send posts a message to the conversation.
// POST /api/conversations/:id/messages
func (h *ConversationHandler) Send(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid conversation ID",
		})
	}

	var req models.SendMessageRequest
	if err := c.BodyParser(&req); err != nil || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message content is required",
		})
	}

	msg, err := h.conversations.SendMessage(c.Context(), id, models.ID(userID), req.Content)
	if err != nil {
		return backendError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}
