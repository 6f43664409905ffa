package db

import (
	"context"
	"time"

	"github.com/terraincognita07/actiontracker/internal/models"
	"gorm.io/gorm"
)

type TrackerRepository struct {
	database *gorm.DB
}

func NewTrackerRepository(database *gorm.DB) *TrackerRepository {
	return &TrackerRepository{database: database}
}

func (repo *TrackerRepository) Create(ctx context.Context, tracker *models.DailyActionTracker) error {
	return translateError(repo.database.WithContext(ctx).Create(tracker).Error)
}

func (repo *TrackerRepository) FindByID(ctx context.Context, trackerID uint) (models.DailyActionTracker, error) {
	var tracker models.DailyActionTracker
	if err := repo.database.WithContext(ctx).First(&tracker, trackerID).Error; err != nil {
		return models.DailyActionTracker{}, translateError(err)
	}
	return tracker, nil
}

func (repo *TrackerRepository) Update(ctx context.Context, trackerID uint, mutate func(*models.DailyActionTracker) error) (models.DailyActionTracker, error) {
	var updated models.DailyActionTracker
	err := repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tracker models.DailyActionTracker
		if err := tx.First(&tracker, trackerID).Error; err != nil {
			return translateError(err)
		}
		if err := mutate(&tracker); err != nil {
			return err
		}
		tracker.ID = trackerID
		if err := tx.Save(&tracker).Error; err != nil {
			return translateError(err)
		}
		updated = tracker
		return nil
	})
	if err != nil {
		return models.DailyActionTracker{}, err
	}
	return updated, nil
}

func (repo *TrackerRepository) ListByUserAndDay(ctx context.Context, userID uint, dayStart time.Time, dayEnd time.Time) ([]models.DailyActionTracker, error) {
	trackers := make([]models.DailyActionTracker, 0)
	if err := repo.database.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date < ?", userID, dayStart, dayEnd).
		Order("id ASC").
		Find(&trackers).Error; err != nil {
		return nil, translateError(err)
	}
	return trackers, nil
}

func (repo *TrackerRepository) ListByCenterAndDay(ctx context.Context, centerID string, dayStart time.Time, dayEnd time.Time) ([]models.DailyActionTracker, error) {
	trackers := make([]models.DailyActionTracker, 0)
	if err := repo.database.WithContext(ctx).
		Where("center_id = ? AND date >= ? AND date < ?", centerID, dayStart, dayEnd).
		Order("id ASC").
		Find(&trackers).Error; err != nil {
		return nil, translateError(err)
	}
	return trackers, nil
}
