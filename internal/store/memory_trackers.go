package store

import (
	"context"
	"time"

	"github.com/terraincognita07/actiontracker/internal/models"
)

type MemoryTrackerRepository struct {
	memory *Memory
}

func (repo *MemoryTrackerRepository) Create(_ context.Context, tracker *models.DailyActionTracker) error {
	repo.memory.mu.Lock()
	defer repo.memory.mu.Unlock()

	tracker.ID = repo.memory.trackers.Allocate()
	repo.memory.trackers.Put(tracker.ID, *tracker)
	return nil
}

func (repo *MemoryTrackerRepository) FindByID(_ context.Context, trackerID uint) (models.DailyActionTracker, error) {
	repo.memory.mu.Lock()
	defer repo.memory.mu.Unlock()

	tracker, ok := repo.memory.trackers.Get(trackerID)
	if !ok {
		return models.DailyActionTracker{}, ErrNotFound
	}
	return tracker, nil
}

func (repo *MemoryTrackerRepository) Update(_ context.Context, trackerID uint, mutate func(*models.DailyActionTracker) error) (models.DailyActionTracker, error) {
	return updateRow(repo.memory, repo.memory.trackers, trackerID, mutate)
}

func (repo *MemoryTrackerRepository) ListByUserAndDay(_ context.Context, userID uint, dayStart time.Time, dayEnd time.Time) ([]models.DailyActionTracker, error) {
	return filterRows(repo.memory, repo.memory.trackers, func(tracker models.DailyActionTracker) bool {
		return tracker.UserID == userID && withinDay(tracker.Date, dayStart, dayEnd)
	}), nil
}

func (repo *MemoryTrackerRepository) ListByCenterAndDay(_ context.Context, centerID string, dayStart time.Time, dayEnd time.Time) ([]models.DailyActionTracker, error) {
	return filterRows(repo.memory, repo.memory.trackers, func(tracker models.DailyActionTracker) bool {
		return tracker.CenterID != nil && *tracker.CenterID == centerID && withinDay(tracker.Date, dayStart, dayEnd)
	}), nil
}

func withinDay(value time.Time, dayStart time.Time, dayEnd time.Time) bool {
	return !value.Before(dayStart) && value.Before(dayEnd)
}
