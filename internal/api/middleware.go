package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

func (handler *Handler) requestLogger(c *fiber.Ctx) logrus.FieldLogger {
	fields := logrus.Fields{
		"method": c.Method(),
		"path":   c.Path(),
	}
	if requestID, ok := c.Locals(contextRequestIDKey).(string); ok && requestID != "" {
		fields["request_id"] = requestID
	}
	return handler.logger.WithFields(fields)
}

// AccessLog writes one structured line per request and feeds the HTTP metrics.
func (handler *Handler) AccessLog(c *fiber.Ctx) error {
	started := time.Now()
	err := c.Next()
	if err != nil {
		if handlerErr := c.App().Config().ErrorHandler(c, err); handlerErr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	status := c.Response().StatusCode()
	duration := time.Since(started)
	route := c.Route().Path
	if route == "" || route == "/" && c.Path() != "/" {
		route = "unmatched"
	}
	// Label values outlive the request; fiber reuses the buffers behind c.Method().
	handler.metrics.ObserveHTTPRequest(utils.CopyString(c.Method()), route, status, duration)

	entry := handler.requestLogger(c).WithFields(logrus.Fields{
		"status":      status,
		"duration_ms": duration.Milliseconds(),
		"ip":          c.IP(),
	})
	switch {
	case status >= fiber.StatusInternalServerError:
		entry.Error("request completed")
	case status >= fiber.StatusBadRequest:
		entry.Warn("request completed")
	default:
		entry.Info("request completed")
	}
	return nil
}
