package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/actiontracker/internal/models"
)

type SeedService struct {
	templates TemplateRepository
	catalog   []models.BuiltinTemplate
	logger    logrus.FieldLogger
	now       func() time.Time
}

func NewSeedService(templates TemplateRepository, logger logrus.FieldLogger) *SeedService {
	return &SeedService{
		templates: templates,
		catalog:   models.DefaultBuiltinTemplates(),
		logger:    logger,
		now:       time.Now,
	}
}

// EnsureBuiltinTemplates creates the built-in templates that are missing. Matching is by
// role and title over every template, inactive ones included, so a deactivated built-in
// stays deactivated. It returns the number of templates created.
func (service *SeedService) EnsureBuiltinTemplates(ctx context.Context) (int, error) {
	existing, err := service.templates.List(ctx)
	if err != nil {
		return 0, storageError(err)
	}

	seen := make(map[string]struct{}, len(existing))
	for _, template := range existing {
		seen[builtinTemplateKey(template.Role, template.Title)] = struct{}{}
	}

	missing := MissingBuiltinTemplates(service.catalog, seen)
	for _, builtin := range missing {
		now := service.now().UTC()
		template := models.ActionTrackerTemplate{
			Role:        builtin.Role,
			Title:       builtin.Title,
			Description: optionalString(builtin.Description),
			Items:       append([]string(nil), builtin.Items...),
			IsActive:    true,
			IsBuiltin:   true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := service.templates.Create(ctx, &template); err != nil {
			return 0, storageError(err)
		}
		if service.logger != nil {
			service.logger.WithFields(logrus.Fields{
				"template_id": template.ID,
				"role":        template.Role,
			}).Info("seeded built-in template")
		}
	}
	return len(missing), nil
}

func MissingBuiltinTemplates(catalog []models.BuiltinTemplate, seen map[string]struct{}) []models.BuiltinTemplate {
	missing := make([]models.BuiltinTemplate, 0, len(catalog))
	for _, builtin := range catalog {
		key := builtinTemplateKey(builtin.Role, builtin.Title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		missing = append(missing, builtin)
	}
	return missing
}

func builtinTemplateKey(role models.Role, title string) string {
	return string(role) + "\x00" + strings.ToLower(strings.TrimSpace(title))
}

func optionalString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
