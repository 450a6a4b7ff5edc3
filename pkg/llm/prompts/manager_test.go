package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hkexplorer/pkg/model"
)

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestManager_BuiltinTemplates(t *testing.T) {
	m, err := NewManager("")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	route := &model.Route{
		Challenges:          []model.RouteChallenge{{ID: "chlg_001", Title: "Star Ferry Sunset"}},
		TotalDuration:       "01:00:00",
		EstimatedTravelTime: "00:00:00",
	}

	tests := []struct {
		name string
		data any
		want []string
	}{
		{PlannerSystem, map[string]any{"Categories": model.Categories}, []string{"food, photo, culture", "available_time_hours"}},
		{PlannerUser, map[string]any{"Message": "3 hours of food"}, []string{"'3 hours of food'"}},
		{ResearchSystem, nil, []string{"route_order", "selected_challenges"}},
		{ResearchUser, map[string]any{
			"Preferences":  model.DefaultPreferences(),
			"PlannerNotes": "",
			"Hours":        4.0,
			"Budget":       "04:00:00",
			"Count":        1,
			"Catalog":      []model.Challenge{{ID: "chlg_001", Title: "Star Ferry Sunset"}},
		}, []string{"<start of catalog>", `"chlg_001"`, "04:00:00", "1 challenges"}},
		{GuideSystem, map[string]any{"StopCount": 2}, []string{"2 stops", `"response"`}},
		{GuideUser, map[string]any{
			"History":       "This is the start of the conversation.",
			"Message":       "food please",
			"Route":         route,
			"Social":        "- Star Ferry Sunset: 2 other traveler(s) already joined",
			"TotalDuration": "01:00:00",
			"TravelTime":    "00:00:00",
		}, []string{"Star Ferry Sunset", "2 other traveler(s)", "start of the conversation"}},
		{GuideGreeting, map[string]any{"Message": "hi"}, []string{"'hi'", "greeting"}},
		{GuideEmpty, map[string]any{"Message": "plan my day"}, []string{"no challenges loaded"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := m.Render(tt.name, tt.data)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestManager_Override(t *testing.T) {
	tmpDir := t.TempDir()

	if err := writeFile(filepath.Join(tmpDir, "common", "macros.tmpl"), `{{define "hello"}}Hello {{.Message}}{{end}}`); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(tmpDir, "guide", "greeting.tmpl"), `{{template "hello" .}}! Welcome to Hong Kong.`); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(tmpDir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	out, err := m.Render(GuideGreeting, map[string]string{"Message": "traveler"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if out != "Hello traveler! Welcome to Hong Kong." {
		t.Errorf("got %q", out)
	}

	if !m.Has(GuideUser) {
		t.Error("built-in templates should remain available")
	}
}

func TestManager_MissingDir(t *testing.T) {
	if _, err := NewManager(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing override directory")
	}
}

func TestManager_BadTemplate(t *testing.T) {
	tmpDir := t.TempDir()
	if err := writeFile(filepath.Join(tmpDir, "broken.tmpl"), `{{if}}`); err != nil {
		t.Fatal(err)
	}
	if _, err := NewManager(tmpDir); err == nil {
		t.Error("expected parse error")
	}
}

func TestFuncs(t *testing.T) {
	if got := categoriesFunc([]model.Category{model.CategoryFood, model.CategoryPhoto}); got != "food, photo" {
		t.Errorf("categories = %q", got)
	}
	if got := maybeFunc(100, "x"); got != "x" {
		t.Errorf("maybe(100) = %q", got)
	}
	if got := maybeFunc(0, "x"); got != "" {
		t.Errorf("maybe(0) = %q", got)
	}
	if got := pickFunc(" only "); got != "only" {
		t.Errorf("pick = %q", got)
	}
	got, err := jsonFunc(map[string]int{"a": 1})
	if err != nil || !strings.Contains(got, `"a": 1`) {
		t.Errorf("json = %q, %v", got, err)
	}
}
