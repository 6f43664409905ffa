package services

import (
	"context"
	"testing"

	"github.com/terraincognita07/actiontracker/internal/models"
	"github.com/terraincognita07/actiontracker/internal/store"
)

func TestEnsureBuiltinTemplatesIsIdempotent(t *testing.T) {
	templates := store.NewMemory().Templates()
	service := NewSeedService(templates, nil)
	ctx := context.Background()

	created, err := service.EnsureBuiltinTemplates(ctx)
	if err != nil {
		t.Fatalf("EnsureBuiltinTemplates() unexpected error: %v", err)
	}
	if created != len(models.DefaultBuiltinTemplates()) {
		t.Fatalf("expected %d seeded templates, got %d", len(models.DefaultBuiltinTemplates()), created)
	}

	created, err = service.EnsureBuiltinTemplates(ctx)
	if err != nil {
		t.Fatalf("EnsureBuiltinTemplates() second run unexpected error: %v", err)
	}
	if created != 0 {
		t.Fatalf("expected no templates on second run, got %d", created)
	}

	all, err := templates.List(ctx)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	roles := map[models.Role]int{}
	for _, template := range all {
		if !template.IsBuiltin || !template.IsActive {
			t.Fatalf("expected active built-in template, got %#v", template)
		}
		roles[template.Role]++
	}
	if roles[models.RoleCOS] != 1 || roles[models.RolePM] != 1 {
		t.Fatalf("expected one cos and one pm template, got %#v", roles)
	}
}

func TestEnsureBuiltinTemplatesDoesNotResurrectDeactivated(t *testing.T) {
	templates := store.NewMemory().Templates()
	seed := NewSeedService(templates, nil)
	ctx := context.Background()

	if _, err := seed.EnsureBuiltinTemplates(ctx); err != nil {
		t.Fatalf("EnsureBuiltinTemplates() unexpected error: %v", err)
	}
	pm, err := NewTemplateService(templates).ListTemplatesByRole(ctx, models.RolePM)
	if err != nil || len(pm) != 1 {
		t.Fatalf("expected one pm template, got %d (%v)", len(pm), err)
	}
	if err := NewTemplateService(templates).DeactivateTemplate(ctx, pm[0].ID); err != nil {
		t.Fatalf("DeactivateTemplate() unexpected error: %v", err)
	}

	created, err := seed.EnsureBuiltinTemplates(ctx)
	if err != nil {
		t.Fatalf("EnsureBuiltinTemplates() unexpected error: %v", err)
	}
	if created != 0 {
		t.Fatalf("expected deactivated built-in to stay gone, got %d new", created)
	}
}

func TestMissingBuiltinTemplatesMatchesRoleAndTitle(t *testing.T) {
	catalog := models.DefaultBuiltinTemplates()
	seen := map[string]struct{}{
		builtinTemplateKey(catalog[0].Role, "  "+catalog[0].Title+" "): {},
		builtinTemplateKey(models.RoleAdmin, catalog[1].Title):         {},
	}

	missing := MissingBuiltinTemplates(catalog, seen)
	if len(missing) != 1 || missing[0].Title != catalog[1].Title {
		t.Fatalf("expected only the second built-in to be missing, got %#v", missing)
	}
}
