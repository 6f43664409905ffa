package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/actiontracker/internal/models"
)

// ListTemplates returns active templates, optionally narrowed with ?role=.
func (handler *Handler) ListTemplates(c *fiber.Ctx) error {
	var (
		templates []models.ActionTrackerTemplate
		err       error
	)

	if raw := strings.TrimSpace(c.Query("role")); raw != "" {
		role, ok := parseStrictRole(raw)
		if !ok {
			return apiError(c, fiber.StatusBadRequest, "invalid role")
		}
		templates, err = handler.templates.ListTemplatesByRole(c.UserContext(), role)
	} else {
		templates, err = handler.templates.ListTemplates(c.UserContext())
	}
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"templates": templates})
}

func (handler *Handler) GetTemplate(c *fiber.Ctx) error {
	templateID, ok := parseIDParam(c, "id")
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid template id")
	}

	template, err := handler.templates.FindTemplate(c.UserContext(), templateID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"template": template})
}

func (handler *Handler) CreateTemplate(c *fiber.Ctx) error {
	input, message := parseTemplateCreateInput(c)
	if message != "" {
		return apiError(c, fiber.StatusBadRequest, message)
	}

	template, err := handler.templates.CreateTemplate(c.UserContext(), input)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"template": template})
}

func (handler *Handler) UpdateTemplate(c *fiber.Ctx) error {
	templateID, ok := parseIDParam(c, "id")
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid template id")
	}
	patch, message := parseTemplatePatchInput(c)
	if message != "" {
		return apiError(c, fiber.StatusBadRequest, message)
	}

	template, err := handler.templates.UpdateTemplate(c.UserContext(), templateID, patch)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"template": template})
}

// DeleteTemplate deactivates the template. Trackers keep pointing at it.
func (handler *Handler) DeleteTemplate(c *fiber.Ctx) error {
	templateID, ok := parseIDParam(c, "id")
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid template id")
	}

	if err := handler.templates.DeactivateTemplate(c.UserContext(), templateID); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
