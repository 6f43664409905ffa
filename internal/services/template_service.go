package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/terraincognita07/actiontracker/internal/models"
	"github.com/terraincognita07/actiontracker/internal/store"
)

type TemplateRepository interface {
	Create(ctx context.Context, template *models.ActionTrackerTemplate) error
	FindByID(ctx context.Context, templateID uint) (models.ActionTrackerTemplate, error)
	List(ctx context.Context) ([]models.ActionTrackerTemplate, error)
	ListActive(ctx context.Context) ([]models.ActionTrackerTemplate, error)
	ListActiveByRole(ctx context.Context, role models.Role) ([]models.ActionTrackerTemplate, error)
	Update(ctx context.Context, templateID uint, mutate func(*models.ActionTrackerTemplate) error) (models.ActionTrackerTemplate, error)
}

type TemplateInput struct {
	Role        models.Role
	Title       string
	Description *string
	Items       []string
}

// TemplatePatch carries only the fields a caller wants changed. DescriptionSet with a
// nil Description clears it.
type TemplatePatch struct {
	Role           *models.Role
	Title          *string
	DescriptionSet bool
	Description    *string
	Items          *[]string
	IsActive       *bool
}

type TemplateService struct {
	templates TemplateRepository
	now       func() time.Time
}

func NewTemplateService(templates TemplateRepository) *TemplateService {
	return &TemplateService{templates: templates, now: time.Now}
}

func (service *TemplateService) ListTemplates(ctx context.Context) ([]models.ActionTrackerTemplate, error) {
	templates, err := service.templates.ListActive(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	return templates, nil
}

func (service *TemplateService) ListTemplatesByRole(ctx context.Context, role models.Role) ([]models.ActionTrackerTemplate, error) {
	templates, err := service.templates.ListActiveByRole(ctx, role)
	if err != nil {
		return nil, storageError(err)
	}
	return templates, nil
}

func (service *TemplateService) FindTemplate(ctx context.Context, templateID uint) (models.ActionTrackerTemplate, error) {
	template, err := service.templates.FindByID(ctx, templateID)
	if err != nil {
		return models.ActionTrackerTemplate{}, mapRecordError(err)
	}
	return template, nil
}

func (service *TemplateService) CreateTemplate(ctx context.Context, input TemplateInput) (models.ActionTrackerTemplate, error) {
	if len(input.Items) == 0 {
		return models.ActionTrackerTemplate{}, ErrEmptyItems
	}

	now := service.now().UTC()
	template := models.ActionTrackerTemplate{
		Role:        input.Role,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Items:       append([]string(nil), input.Items...),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := service.templates.Create(ctx, &template); err != nil {
		return models.ActionTrackerTemplate{}, storageError(err)
	}
	return template.Clone(), nil
}

func (service *TemplateService) UpdateTemplate(ctx context.Context, templateID uint, patch TemplatePatch) (models.ActionTrackerTemplate, error) {
	if patch.Items != nil && len(*patch.Items) == 0 {
		return models.ActionTrackerTemplate{}, ErrEmptyItems
	}

	updated, err := service.templates.Update(ctx, templateID, func(template *models.ActionTrackerTemplate) error {
		if patch.Role != nil {
			template.Role = *patch.Role
		}
		if patch.Title != nil {
			template.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.DescriptionSet {
			template.Description = patch.Description
		}
		if patch.Items != nil {
			template.Items = append([]string(nil), (*patch.Items)...)
		}
		if patch.IsActive != nil {
			template.IsActive = *patch.IsActive
		}
		template.UpdatedAt = service.now().UTC()
		return nil
	})
	if err != nil {
		return models.ActionTrackerTemplate{}, mapRecordError(err)
	}
	return updated, nil
}

// DeactivateTemplate is the soft delete. Repeating it leaves the template inactive.
func (service *TemplateService) DeactivateTemplate(ctx context.Context, templateID uint) error {
	_, err := service.templates.Update(ctx, templateID, func(template *models.ActionTrackerTemplate) error {
		template.IsActive = false
		template.UpdatedAt = service.now().UTC()
		return nil
	})
	if err != nil {
		return mapRecordError(err)
	}
	return nil
}

func mapRecordError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return storageError(err)
}
