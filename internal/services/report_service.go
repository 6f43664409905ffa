package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/terraincognita07/actiontracker/internal/models"
	"github.com/terraincognita07/actiontracker/internal/store"
)

const reportDateLayout = "2006-01-02"

var CenterReportCSVHeaders = []string{
	"Date",
	"Tracker ID",
	"User ID",
	"Template",
	"Role",
	"Completed items",
	"Total items",
	"Completion %",
	"Completed at",
	"Notes",
}

type ReportTemplateReader interface {
	FindByID(ctx context.Context, templateID uint) (models.ActionTrackerTemplate, error)
}

type ReportTrackerReader interface {
	ListByCenterAndDay(ctx context.Context, centerID string, dayStart time.Time, dayEnd time.Time) ([]models.DailyActionTracker, error)
}

// ReportService builds the per-center daily completion report.
type ReportService struct {
	trackers  ReportTrackerReader
	templates ReportTemplateReader
}

type CenterReportSummary struct {
	CenterID          string  `json:"center_id"`
	Date              string  `json:"date"`
	Trackers          int     `json:"trackers"`
	Completed         int     `json:"completed"`
	AverageCompletion float64 `json:"average_completion"`
}

type CenterReportRow struct {
	Date           string      `json:"date"`
	TrackerID      uint        `json:"tracker_id"`
	UserID         uint        `json:"user_id"`
	Template       string      `json:"template"`
	Role           models.Role `json:"role"`
	CompletedItems int         `json:"completed_items"`
	TotalItems     int         `json:"total_items"`
	Completion     float64     `json:"completion"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	Notes          string      `json:"notes"`
}

type CenterReport struct {
	Summary CenterReportSummary `json:"summary"`
	Rows    []CenterReportRow   `json:"rows"`
}

func NewReportService(trackers ReportTrackerReader, templates ReportTemplateReader) *ReportService {
	return &ReportService{trackers: trackers, templates: templates}
}

// BuildCenterReport counts only completed items that still appear on the template, so
// a template edit cannot push completion past 100%.
func (service *ReportService) BuildCenterReport(ctx context.Context, centerID string, date time.Time) (CenterReport, error) {
	start, end := DayRange(date)
	trackers, err := service.trackers.ListByCenterAndDay(ctx, centerID, start, end)
	if err != nil {
		return CenterReport{}, storageError(err)
	}

	templates := make(map[uint]*models.ActionTrackerTemplate)
	rows := make([]CenterReportRow, 0, len(trackers))
	completedTrackers := 0
	completionTotal := 0.0

	for _, tracker := range trackers {
		template, ok := templates[tracker.TemplateID]
		if !ok {
			loaded, err := service.templates.FindByID(ctx, tracker.TemplateID)
			switch {
			case err == nil:
				template = &loaded
			case !errors.Is(err, store.ErrNotFound):
				return CenterReport{}, storageError(err)
			}
			templates[tracker.TemplateID] = template
		}

		row := buildCenterReportRow(tracker, template)
		if tracker.CompletedAt != nil {
			completedTrackers++
		}
		completionTotal += row.Completion
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].UserID != rows[j].UserID {
			return rows[i].UserID < rows[j].UserID
		}
		return rows[i].TrackerID < rows[j].TrackerID
	})

	summary := CenterReportSummary{
		CenterID:  centerID,
		Date:      start.Format(reportDateLayout),
		Trackers:  len(rows),
		Completed: completedTrackers,
	}
	if len(rows) > 0 {
		summary.AverageCompletion = roundPercent(completionTotal / float64(len(rows)))
	}
	return CenterReport{Summary: summary, Rows: rows}, nil
}

func buildCenterReportRow(tracker models.DailyActionTracker, template *models.ActionTrackerTemplate) CenterReportRow {
	row := CenterReportRow{
		Date:        TrackerDay(tracker.Date).Format(reportDateLayout),
		TrackerID:   tracker.ID,
		UserID:      tracker.UserID,
		Template:    fmt.Sprintf("template #%d", tracker.TemplateID),
		CompletedAt: tracker.CompletedAt,
	}
	if tracker.Notes != nil {
		row.Notes = *tracker.Notes
	}
	if template == nil {
		row.CompletedItems = len(tracker.CompletedItems)
		return row
	}

	row.Template = template.Title
	row.Role = template.Role
	row.TotalItems = len(template.Items)

	known := make(map[string]struct{}, len(template.Items))
	for _, item := range template.Items {
		known[strings.TrimSpace(item)] = struct{}{}
	}
	counted := make(map[string]struct{}, len(tracker.CompletedItems))
	for _, item := range tracker.CompletedItems {
		key := strings.TrimSpace(item)
		if _, ok := known[key]; !ok {
			continue
		}
		counted[key] = struct{}{}
	}
	row.CompletedItems = len(counted)
	if row.TotalItems > 0 {
		row.Completion = roundPercent(float64(row.CompletedItems) * 100 / float64(row.TotalItems))
	}
	return row
}

func (row CenterReportRow) Columns() []string {
	completedAt := ""
	if row.CompletedAt != nil {
		completedAt = row.CompletedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		row.Date,
		strconv.FormatUint(uint64(row.TrackerID), 10),
		strconv.FormatUint(uint64(row.UserID), 10),
		row.Template,
		string(row.Role),
		strconv.Itoa(row.CompletedItems),
		strconv.Itoa(row.TotalItems),
		strconv.FormatFloat(row.Completion, 'f', 1, 64),
		completedAt,
		row.Notes,
	}
}

func roundPercent(value float64) float64 {
	return float64(int(value*10+0.5)) / 10
}
