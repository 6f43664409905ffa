package api

import (
	"context"
	"encoding/csv"
	"net/http"
	"strings"
	"testing"

	"github.com/terraincognita07/actiontracker/internal/models"
	"github.com/terraincognita07/actiontracker/internal/services"
)

func TestCenterReportJSONAndCSV(t *testing.T) {
	env := newAPITestEnv(t)
	template, err := services.NewTemplateService(env.memory.Templates()).CreateTemplate(context.Background(), services.TemplateInput{
		Role:  models.RoleCOS,
		Title: "COS daily checklist",
		Items: []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	env.registerVerified(t, "cos", "cos@example.com", "StrongPass1", models.RoleCOS, stringPointer("c-1"))
	env.registerVerified(t, "stranger", "stranger@example.com", "StrongPass1", models.RolePM, stringPointer("c-2"))
	cos := env.login(t, "cos@example.com", "StrongPass1")
	stranger := env.login(t, "stranger@example.com", "StrongPass1")

	expectStatus(t, env.do(t, http.MethodPost, "/api/trackers", map[string]any{
		"template_id":     template.ID,
		"date":            "2024-05-01",
		"completed_items": []string{"a"},
	}, cos), http.StatusCreated)

	response := env.do(t, http.MethodGet, "/api/reports/center?date=2024-05-01", nil, cos)
	expectStatus(t, response, http.StatusOK)
	report := services.CenterReport{}
	decodeBody(t, response, &report)
	if report.Summary.CenterID != "c-1" || report.Summary.Trackers != 1 || report.Summary.AverageCompletion != 50 {
		t.Fatalf("unexpected summary: %#v", report.Summary)
	}

	response = env.do(t, http.MethodGet, "/api/reports/center?date=2024-05-01&center_id=c-1&format=csv", nil, cos)
	expectStatus(t, response, http.StatusOK)
	if !strings.HasPrefix(response.Header.Get("Content-Type"), "text/csv") {
		t.Fatalf("expected csv content type, got %q", response.Header.Get("Content-Type"))
	}
	if !strings.Contains(response.Header.Get("Content-Disposition"), "center-c-1-2024-05-01.csv") {
		t.Fatalf("unexpected content disposition %q", response.Header.Get("Content-Disposition"))
	}
	records, err := csv.NewReader(response.Body).ReadAll()
	response.Body.Close()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 || records[1][3] != "COS daily checklist" || records[1][7] != "50.0" {
		t.Fatalf("unexpected csv records %v", records)
	}

	expectError(t, env.do(t, http.MethodGet, "/api/reports/center?date=2024-05-01&center_id=c-1", nil, stranger), http.StatusForbidden, "forbidden")
	expectError(t, env.do(t, http.MethodGet, "/api/reports/center?date=2024-05-01&format=xml", nil, cos), http.StatusBadRequest, "unsupported format")
}

func TestCenterReportCSVNeutralizesFormulas(t *testing.T) {
	env := newAPITestEnv(t)
	template, err := services.NewTemplateService(env.memory.Templates()).CreateTemplate(context.Background(), services.TemplateInput{
		Role:  models.RolePM,
		Title: "@PM checklist",
		Items: []string{"a"},
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	env.registerVerified(t, "pm", "pm@example.com", "StrongPass1", models.RolePM, stringPointer("c-3"))
	session := env.login(t, "pm@example.com", "StrongPass1")
	expectStatus(t, env.do(t, http.MethodPost, "/api/trackers", map[string]any{
		"template_id": template.ID,
		"date":        "2024-05-01",
		"notes":       "=HYPERLINK(\"http://evil.example\")",
	}, session), http.StatusCreated)

	response := env.do(t, http.MethodGet, "/api/reports/center?date=2024-05-01&format=csv", nil, session)
	expectStatus(t, response, http.StatusOK)
	records, err := csv.NewReader(response.Body).ReadAll()
	response.Body.Close()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header and one row, got %v", records)
	}
	if records[1][3] != "'@PM checklist" {
		t.Fatalf("expected quoted template title, got %q", records[1][3])
	}
	if records[1][9] != "'=HYPERLINK(\"http://evil.example\")" {
		t.Fatalf("expected quoted notes, got %q", records[1][9])
	}
	if records[1][7] != "0.0" {
		t.Fatalf("expected numeric cells untouched, got %q", records[1][7])
	}
}
