package handlers

import (
	"errors"

	"bountyboard/internal/database"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders handler errors as the JSON error shape the rest
// of the API uses. Installed in fiber.Config.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// backendStatus maps a backend error code to the HTTP status the
// client should see.
func backendStatus(err error) int {
	switch database.ErrCode(err) {
	case database.CodeNotFound:
		return fiber.StatusNotFound
	case database.CodeDuplicate:
		return fiber.StatusConflict
	case database.CodePermission:
		return fiber.StatusForbidden
	case database.CodeConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func backendError(c *fiber.Ctx, err error) error {
	return c.Status(backendStatus(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// requireUserID pulls the authenticated user id set by the auth
// middleware. Empty means the middleware was bypassed; the returned
// error is non-nil so the caller's guard always stops the handler.
func requireUserID(c *fiber.Ctx) (string, error) {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
	}
	return userID, nil
}
