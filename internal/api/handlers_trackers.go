package api

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/actiontracker/internal/services"
)

func (handler *Handler) CreateTracker(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	input, message := parseTrackerCreateInput(c, handler.now())
	if message != "" {
		return apiError(c, fiber.StatusBadRequest, message)
	}
	if input.UserID == 0 {
		input.UserID = user.ID
	}
	if !services.CanActForUser(user, input.UserID) {
		return apiError(c, fiber.StatusForbidden, "forbidden")
	}
	if input.CenterID == nil && input.UserID == user.ID {
		input.CenterID = user.CenterID
	}

	tracker, err := handler.trackers.CreateTracker(c.UserContext(), input)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"tracker": tracker})
}

func (handler *Handler) GetTracker(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	trackerID, ok := parseIDParam(c, "id")
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid tracker id")
	}

	tracker, err := handler.trackers.FindTracker(c.UserContext(), trackerID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	// Foreign trackers look missing so ids cannot be probed.
	if !services.CanAccessTracker(user, tracker) {
		return apiError(c, fiber.StatusNotFound, "not found")
	}
	return c.JSON(fiber.Map{"tracker": tracker})
}

func (handler *Handler) UpdateTracker(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	trackerID, ok := parseIDParam(c, "id")
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid tracker id")
	}
	patch, message := parseTrackerPatchInput(c)
	if message != "" {
		return apiError(c, fiber.StatusBadRequest, message)
	}

	existing, err := handler.trackers.FindTracker(c.UserContext(), trackerID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	if !services.CanAccessTracker(user, existing) {
		return apiError(c, fiber.StatusNotFound, "not found")
	}

	tracker, err := handler.trackers.UpdateTracker(c.UserContext(), trackerID, patch)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"tracker": tracker})
}

// ListTrackers serves ?date= with either ?user_id= or ?center_id=. Without a filter
// the caller's own trackers are listed.
func (handler *Handler) ListTrackers(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	date, message := parseDateQuery(c)
	if message != "" {
		return apiError(c, fiber.StatusBadRequest, message)
	}

	if centerID := strings.TrimSpace(c.Query("center_id")); centerID != "" {
		if !services.CanViewCenter(user, centerID) {
			return apiError(c, fiber.StatusForbidden, "forbidden")
		}
		trackers, err := handler.trackers.ListTrackersByCenterAndDate(c.UserContext(), centerID, date)
		if err != nil {
			return handler.respondServiceError(c, err)
		}
		return c.JSON(fiber.Map{"trackers": trackers})
	}

	userID := user.ID
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || parsed == 0 {
			return apiError(c, fiber.StatusBadRequest, "invalid user id")
		}
		userID = uint(parsed)
	}
	if !services.CanActForUser(user, userID) {
		return apiError(c, fiber.StatusForbidden, "forbidden")
	}

	trackers, err := handler.trackers.ListTrackersByUserAndDate(c.UserContext(), userID, date)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"trackers": trackers})
}
