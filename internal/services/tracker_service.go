package services

import (
	"context"
	"time"

	"github.com/terraincognita07/actiontracker/internal/models"
)

type TrackerRepository interface {
	Create(ctx context.Context, tracker *models.DailyActionTracker) error
	FindByID(ctx context.Context, trackerID uint) (models.DailyActionTracker, error)
	Update(ctx context.Context, trackerID uint, mutate func(*models.DailyActionTracker) error) (models.DailyActionTracker, error)
	ListByUserAndDay(ctx context.Context, userID uint, dayStart time.Time, dayEnd time.Time) ([]models.DailyActionTracker, error)
	ListByCenterAndDay(ctx context.Context, centerID string, dayStart time.Time, dayEnd time.Time) ([]models.DailyActionTracker, error)
}

type TrackerInput struct {
	UserID         uint
	TemplateID     uint
	CenterID       *string
	Date           time.Time
	CompletedItems []string
	Notes          *string
}

// TrackerPatch merges present fields. The *Set flags let a caller clear an optional field.
type TrackerPatch struct {
	CompletedItems *[]string
	NotesSet       bool
	Notes          *string
	CompletedAtSet bool
	CompletedAt    *time.Time
	CenterIDSet    bool
	CenterID       *string
}

type TrackerService struct {
	trackers TrackerRepository
	now      func() time.Time
}

func NewTrackerService(trackers TrackerRepository) *TrackerService {
	return &TrackerService{trackers: trackers, now: time.Now}
}

// CreateTracker does not check that the user or template exist and allows several
// trackers for the same user, template and day.
func (service *TrackerService) CreateTracker(ctx context.Context, input TrackerInput) (models.DailyActionTracker, error) {
	completed := append([]string{}, input.CompletedItems...)

	now := service.now().UTC()
	tracker := models.DailyActionTracker{
		UserID:         input.UserID,
		TemplateID:     input.TemplateID,
		CenterID:       input.CenterID,
		Date:           TrackerDay(input.Date),
		CompletedItems: completed,
		Notes:          input.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := service.trackers.Create(ctx, &tracker); err != nil {
		return models.DailyActionTracker{}, storageError(err)
	}
	return tracker.Clone(), nil
}

func (service *TrackerService) FindTracker(ctx context.Context, trackerID uint) (models.DailyActionTracker, error) {
	tracker, err := service.trackers.FindByID(ctx, trackerID)
	if err != nil {
		return models.DailyActionTracker{}, mapRecordError(err)
	}
	return tracker, nil
}

func (service *TrackerService) UpdateTracker(ctx context.Context, trackerID uint, patch TrackerPatch) (models.DailyActionTracker, error) {
	updated, err := service.trackers.Update(ctx, trackerID, func(tracker *models.DailyActionTracker) error {
		if patch.CompletedItems != nil {
			tracker.CompletedItems = append([]string{}, (*patch.CompletedItems)...)
		}
		if patch.NotesSet {
			tracker.Notes = patch.Notes
		}
		if patch.CompletedAtSet {
			tracker.CompletedAt = patch.CompletedAt
		}
		if patch.CenterIDSet {
			tracker.CenterID = patch.CenterID
		}
		tracker.UpdatedAt = service.now().UTC()
		return nil
	})
	if err != nil {
		return models.DailyActionTracker{}, mapRecordError(err)
	}
	return updated, nil
}

func (service *TrackerService) ListTrackersByUserAndDate(ctx context.Context, userID uint, date time.Time) ([]models.DailyActionTracker, error) {
	start, end := DayRange(date)
	trackers, err := service.trackers.ListByUserAndDay(ctx, userID, start, end)
	if err != nil {
		return nil, storageError(err)
	}
	return trackers, nil
}

func (service *TrackerService) ListTrackersByCenterAndDate(ctx context.Context, centerID string, date time.Time) ([]models.DailyActionTracker, error) {
	start, end := DayRange(date)
	trackers, err := service.trackers.ListByCenterAndDay(ctx, centerID, start, end)
	if err != nil {
		return nil, storageError(err)
	}
	return trackers, nil
}
