package handlers

import (
	"log"

	"bountyboard/internal/models"
	"bountyboard/internal/services"
	"bountyboard/pkg/auth"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles signup, login, token refresh and profile updates.
type AuthHandler struct {
	users *services.UserService
	jwt   *auth.JWTAuth
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users *services.UserService, jwt *auth.JWTAuth) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

// Signup creates a new account and returns a token pair.
// POST /api/auth/signup
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req models.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user, err := h.users.Signup(c.Context(), &req)
	if err != nil {
		if backendStatus(err) != fiber.StatusInternalServerError {
			return backendError(c, err)
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return h.respondWithTokens(c, user, fiber.StatusCreated)
}

// Login verifies credentials and returns a token pair.
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user, err := h.users.Authenticate(c.Context(), req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid email or password",
		})
	}

	return h.respondWithTokens(c, user, fiber.StatusOK)
}

// Refresh exchanges a refresh token for a new pair.
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Refresh token is required",
		})
	}

	claims, err := h.jwt.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid refresh token",
		})
	}

	user, err := h.users.GetUser(c.Context(), models.ID(claims.UserID))
	if err != nil {
		return backendError(c, err)
	}

	return h.respondWithTokens(c, user, fiber.StatusOK)
}

// Me returns the authenticated user.
// GET /api/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	user, err := h.users.GetUser(c.Context(), models.ID(userID))
	if err != nil {
		return backendError(c, err)
	}
	return c.JSON(user)
}

// UpdateProfile changes the display name and fans the new profile out
// to subscribers.
// PUT /api/auth/profile
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := c.BodyParser(&req); err != nil || req.DisplayName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Display name is required",
		})
	}

	user, err := h.users.UpdateProfile(c.Context(), models.ID(userID), req.DisplayName)
	if err != nil {
		return backendError(c, err)
	}
	return c.JSON(user)
}

// RegisterPushToken stores the device push token for the user.
// POST /api/auth/push-token
func (h *AuthHandler) RegisterPushToken(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Push token is required",
		})
	}

	if err := h.users.SetPushToken(c.Context(), models.ID(userID), req.Token); err != nil {
		return backendError(c, err)
	}

	log.Printf("📱 [AUTH] Registered push token for user %s", userID)
	return c.JSON(fiber.Map{"success": true})
}

func (h *AuthHandler) respondWithTokens(c *fiber.Ctx, user *models.User, status int) error {
	access, refresh, err := h.jwt.GenerateTokens(user.ID.String(), user.Email, user.Role)
	if err != nil {
		log.Printf("❌ Failed to generate tokens: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate tokens",
		})
	}

	return c.Status(status).JSON(models.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	})
}
