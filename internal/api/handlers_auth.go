package api

import (
	"github.com/gofiber/fiber/v2"
)

const forgotPasswordMessage = "if the email is registered, a reset link has been sent"

func (handler *Handler) Register(c *fiber.Ctx) error {
	input, message := parseRegisterInput(c)
	if message != "" {
		return apiError(c, fiber.StatusBadRequest, message)
	}

	user, err := handler.identity.Register(c.UserContext(), input)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user.Public()})
}

func (handler *Handler) VerifyEmail(c *fiber.Ctx) error {
	token, message := parseVerificationToken(c)
	if message != "" {
		return apiError(c, fiber.StatusBadRequest, message)
	}

	if err := handler.identity.VerifyEmail(c.UserContext(), token); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) Login(c *fiber.Ctx) error {
	input, message := parseLoginInput(c)
	if message != "" {
		return apiError(c, fiber.StatusBadRequest, message)
	}

	user, err := handler.identity.Login(c.UserContext(), input.Email, input.Password)
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	token, expiresAt, err := handler.buildToken(user)
	if err != nil {
		handler.requestLogger(c).WithError(err).Error("sign session token")
		return apiError(c, fiber.StatusInternalServerError, "failed to create session")
	}
	handler.setAuthCookie(c, token, expiresAt)

	return c.JSON(fiber.Map{
		"user":       user,
		"token":      token,
		"expires_at": expiresAt.UTC(),
	})
}

func (handler *Handler) Logout(c *fiber.Ctx) error {
	handler.clearAuthCookie(c)
	return c.JSON(fiber.Map{"ok": true})
}

// ForgotPassword answers the same way whether or not the email is known.
func (handler *Handler) ForgotPassword(c *fiber.Ctx) error {
	email, message := parseEmailInput(c)
	if message != "" {
		return apiError(c, fiber.StatusBadRequest, message)
	}

	if err := handler.identity.RequestPasswordReset(c.UserContext(), email); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "message": forgotPasswordMessage})
}

func (handler *Handler) ResetPassword(c *fiber.Ctx) error {
	input, message := parseResetPasswordInput(c)
	if message != "" {
		return apiError(c, fiber.StatusBadRequest, message)
	}

	if err := handler.identity.ResetPassword(c.UserContext(), input.Token, input.Password); err != nil {
		return handler.respondServiceError(c, err)
	}
	handler.clearAuthCookie(c)
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) ResendVerification(c *fiber.Ctx) error {
	email, message := parseEmailInput(c)
	if message != "" {
		return apiError(c, fiber.StatusBadRequest, message)
	}

	if err := handler.identity.ResendVerification(c.UserContext(), email); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) Me(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return c.JSON(fiber.Map{"user": user})
}

func (handler *Handler) ChangePassword(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	input, message := parseChangePasswordInput(c)
	if message != "" {
		return apiError(c, fiber.StatusBadRequest, message)
	}
	if input.CurrentPassword == input.NewPassword {
		return apiError(c, fiber.StatusBadRequest, "new password must differ")
	}

	if err := handler.identity.ChangePassword(c.UserContext(), user.ID, input.CurrentPassword, input.NewPassword); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
