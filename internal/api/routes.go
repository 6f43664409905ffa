package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/terraincognita07/actiontracker/internal/models"
)

// NewApp builds the fiber app with the shared middleware stack and all routes.
func NewApp(handler *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "ActionTracker",
		DisableStartupMessage: true,
		ErrorHandler:          handler.ErrorHandler,
		BodyLimit:             1 << 20,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		Generator:  uuid.NewString,
		ContextKey: contextRequestIDKey,
	}))
	app.Use(handler.AccessLog)

	RegisterRoutes(app, handler)
	app.Use(handler.NotFound)
	return app
}

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(handler.metrics.Handler()))

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", handler.RateLimitAuth, handler.Register)
	auth.Post("/login", handler.RateLimitAuth, handler.Login)
	auth.Post("/forgot-password", handler.RateLimitAuth, handler.ForgotPassword)
	auth.Post("/reset-password", handler.RateLimitAuth, handler.ResetPassword)
	auth.Post("/resend-verification", handler.RateLimitAuth, handler.ResendVerification)
	auth.Post("/verify-email", handler.RateLimitAuth, handler.VerifyEmail)
	auth.Get("/verify-email", handler.RateLimitAuth, handler.VerifyEmail)
	auth.Post("/logout", handler.Logout)
	auth.Get("/me", handler.AuthRequired, handler.Me)
	auth.Post("/change-password", handler.AuthRequired, handler.ChangePassword)

	templates := api.Group("/templates", handler.AuthRequired)
	templates.Get("", handler.ListTemplates)
	templates.Get("/:id", handler.GetTemplate)
	templates.Post("", handler.RequireRole(models.RoleAdmin), handler.CreateTemplate)
	templates.Patch("/:id", handler.RequireRole(models.RoleAdmin), handler.UpdateTemplate)
	templates.Delete("/:id", handler.RequireRole(models.RoleAdmin), handler.DeleteTemplate)

	trackers := api.Group("/trackers", handler.AuthRequired)
	trackers.Get("", handler.ListTrackers)
	trackers.Post("", handler.CreateTracker)
	trackers.Get("/:id", handler.GetTracker)
	trackers.Patch("/:id", handler.UpdateTracker)

	reports := api.Group("/reports", handler.AuthRequired)
	reports.Get("/center", handler.CenterReport)
}

func (handler *Handler) Health(c *fiber.Ctx) error {
	if handler.healthCheck != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := handler.healthCheck(ctx); err != nil {
			handler.requestLogger(c).WithError(err).Warn("health check failed")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
