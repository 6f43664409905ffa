package store

import (
	"context"

	"github.com/terraincognita07/actiontracker/internal/models"
)

type MemoryTemplateRepository struct {
	memory *Memory
}

func (repo *MemoryTemplateRepository) Create(_ context.Context, template *models.ActionTrackerTemplate) error {
	repo.memory.mu.Lock()
	defer repo.memory.mu.Unlock()

	template.ID = repo.memory.templates.Allocate()
	repo.memory.templates.Put(template.ID, *template)
	return nil
}

func (repo *MemoryTemplateRepository) FindByID(_ context.Context, templateID uint) (models.ActionTrackerTemplate, error) {
	repo.memory.mu.Lock()
	defer repo.memory.mu.Unlock()

	template, ok := repo.memory.templates.Get(templateID)
	if !ok {
		return models.ActionTrackerTemplate{}, ErrNotFound
	}
	return template, nil
}

func (repo *MemoryTemplateRepository) List(_ context.Context) ([]models.ActionTrackerTemplate, error) {
	return filterRows(repo.memory, repo.memory.templates, func(models.ActionTrackerTemplate) bool {
		return true
	}), nil
}

func (repo *MemoryTemplateRepository) ListActive(_ context.Context) ([]models.ActionTrackerTemplate, error) {
	return filterRows(repo.memory, repo.memory.templates, func(template models.ActionTrackerTemplate) bool {
		return template.IsActive
	}), nil
}

func (repo *MemoryTemplateRepository) ListActiveByRole(_ context.Context, role models.Role) ([]models.ActionTrackerTemplate, error) {
	return filterRows(repo.memory, repo.memory.templates, func(template models.ActionTrackerTemplate) bool {
		return template.IsActive && template.Role == role
	}), nil
}

func (repo *MemoryTemplateRepository) Update(_ context.Context, templateID uint, mutate func(*models.ActionTrackerTemplate) error) (models.ActionTrackerTemplate, error) {
	return updateRow(repo.memory, repo.memory.templates, templateID, mutate)
}
