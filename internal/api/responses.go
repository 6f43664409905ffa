package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/actiontracker/internal/services"
)

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// serviceErrorStatus maps a core failure to its HTTP status and public message.
// InvalidCredentials and EmailNotVerified keep separate codes and strings.
func serviceErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrDuplicateEmail):
		return fiber.StatusConflict, "email already registered"
	case errors.Is(err, services.ErrDuplicateUsername):
		return fiber.StatusConflict, "username already taken"
	case errors.Is(err, services.ErrAlreadyVerified):
		return fiber.StatusConflict, "email already verified"
	case errors.Is(err, services.ErrInvalidToken):
		return fiber.StatusBadRequest, "invalid verification token"
	case errors.Is(err, services.ErrInvalidOrExpiredToken):
		return fiber.StatusBadRequest, "invalid or expired reset token"
	case errors.Is(err, services.ErrEmptyItems):
		return fiber.StatusBadRequest, "items must not be empty"
	case errors.Is(err, services.ErrPasswordTooLong):
		return fiber.StatusBadRequest, "password too long"
	case errors.Is(err, services.ErrIncorrectPassword):
		return fiber.StatusBadRequest, "current password is incorrect"
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, services.ErrEmailNotVerified):
		return fiber.StatusForbidden, "email not verified"
	case errors.Is(err, services.ErrUserNotFound):
		return fiber.StatusNotFound, "user not found"
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, "not found"
	case errors.Is(err, services.ErrStorageUnavailable):
		return fiber.StatusServiceUnavailable, "storage unavailable"
	default:
		return fiber.StatusInternalServerError, "internal error"
	}
}

func (handler *Handler) respondServiceError(c *fiber.Ctx, err error) error {
	status, message := serviceErrorStatus(err)
	if status >= fiber.StatusInternalServerError {
		handler.requestLogger(c).WithError(err).Error("request failed")
	}
	return apiError(c, status, message)
}

func (handler *Handler) NotFound(c *fiber.Ctx) error {
	return apiError(c, fiber.StatusNotFound, "not found")
}

// ErrorHandler renders errors that escape handlers, including fiber's own 404/405.
func (handler *Handler) ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return apiError(c, fiberErr.Code, fiberErr.Message)
	}
	handler.requestLogger(c).WithError(err).Error("unhandled error")
	return apiError(c, fiber.StatusInternalServerError, "internal error")
}
