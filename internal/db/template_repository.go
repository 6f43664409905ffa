package db

import (
	"context"

	"github.com/terraincognita07/actiontracker/internal/models"
	"gorm.io/gorm"
)

type TemplateRepository struct {
	database *gorm.DB
}

func NewTemplateRepository(database *gorm.DB) *TemplateRepository {
	return &TemplateRepository{database: database}
}

func (repo *TemplateRepository) Create(ctx context.Context, template *models.ActionTrackerTemplate) error {
	return translateError(repo.database.WithContext(ctx).Create(template).Error)
}

func (repo *TemplateRepository) FindByID(ctx context.Context, templateID uint) (models.ActionTrackerTemplate, error) {
	var template models.ActionTrackerTemplate
	if err := repo.database.WithContext(ctx).First(&template, templateID).Error; err != nil {
		return models.ActionTrackerTemplate{}, translateError(err)
	}
	return template, nil
}

func (repo *TemplateRepository) List(ctx context.Context) ([]models.ActionTrackerTemplate, error) {
	return repo.list(repo.database.WithContext(ctx))
}

func (repo *TemplateRepository) ListActive(ctx context.Context) ([]models.ActionTrackerTemplate, error) {
	return repo.list(repo.database.WithContext(ctx).Where("is_active = ?", true))
}

func (repo *TemplateRepository) ListActiveByRole(ctx context.Context, role models.Role) ([]models.ActionTrackerTemplate, error) {
	return repo.list(repo.database.WithContext(ctx).Where("is_active = ? AND role = ?", true, string(role)))
}

func (repo *TemplateRepository) list(query *gorm.DB) ([]models.ActionTrackerTemplate, error) {
	templates := make([]models.ActionTrackerTemplate, 0)
	if err := query.Order("id ASC").Find(&templates).Error; err != nil {
		return nil, translateError(err)
	}
	return templates, nil
}

func (repo *TemplateRepository) Update(ctx context.Context, templateID uint, mutate func(*models.ActionTrackerTemplate) error) (models.ActionTrackerTemplate, error) {
	var updated models.ActionTrackerTemplate
	err := repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var template models.ActionTrackerTemplate
		if err := tx.First(&template, templateID).Error; err != nil {
			return translateError(err)
		}
		if err := mutate(&template); err != nil {
			return err
		}
		template.ID = templateID
		if err := tx.Save(&template).Error; err != nil {
			return translateError(err)
		}
		updated = template
		return nil
	})
	if err != nil {
		return models.ActionTrackerTemplate{}, err
	}
	return updated, nil
}
