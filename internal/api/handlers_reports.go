package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/actiontracker/internal/services"
)

// CenterReport serves ?center_id=&date= as JSON, or as a CSV attachment with ?format=csv.
func (handler *Handler) CenterReport(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	centerID := strings.TrimSpace(c.Query("center_id"))
	if centerID == "" && user.CenterID != nil {
		centerID = *user.CenterID
	}
	if centerID == "" {
		return apiError(c, fiber.StatusBadRequest, "center_id is required")
	}
	date, message := parseDateQuery(c)
	if message != "" {
		return apiError(c, fiber.StatusBadRequest, message)
	}
	if !services.CanViewCenter(user, centerID) {
		return apiError(c, fiber.StatusForbidden, "forbidden")
	}

	report, err := handler.reports.BuildCenterReport(c.UserContext(), centerID, date)
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	switch strings.ToLower(strings.TrimSpace(c.Query("format", "json"))) {
	case "json":
		return c.JSON(report)
	case "csv":
		return handler.sendCenterReportCSV(c, report)
	default:
		return apiError(c, fiber.StatusBadRequest, "unsupported format")
	}
}

func (handler *Handler) sendCenterReportCSV(c *fiber.Ctx, report services.CenterReport) error {
	var output bytes.Buffer
	writer := csv.NewWriter(&output)
	if err := writer.Write(services.CenterReportCSVHeaders); err != nil {
		return apiError(c, fiber.StatusInternalServerError, "failed to build report")
	}
	for _, row := range report.Rows {
		if err := writer.Write(spreadsheetSafe(row.Columns())); err != nil {
			return apiError(c, fiber.StatusInternalServerError, "failed to build report")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return apiError(c, fiber.StatusInternalServerError, "failed to build report")
	}

	filename := fmt.Sprintf("center-%s-%s.csv", sanitizeFilenamePart(report.Summary.CenterID), report.Summary.Date)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(output.Bytes())
}

func sanitizeFilenamePart(value string) string {
	return strings.Map(func(char rune) rune {
		switch {
		case char >= 'a' && char <= 'z', char >= 'A' && char <= 'Z', char >= '0' && char <= '9', char == '-', char == '_':
			return char
		default:
			return '_'
		}
	}, value)
}

// spreadsheetSafe quotes cells that a spreadsheet would evaluate as a formula.
func spreadsheetSafe(cells []string) []string {
	for index, cell := range cells {
		if cell == "" {
			continue
		}
		switch cell[0] {
		case '=', '+', '-', '@', '\t', '\r':
			cells[index] = "'" + cell
		}
	}
	return cells
}
