package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hkexplorer/pkg/model"
)

func TestSample(t *testing.T) {
	cs := Sample()
	if len(cs) != 17 {
		t.Fatalf("got %d challenges, want 17", len(cs))
	}

	seen := make(map[string]bool)
	for _, c := range cs {
		if c.ID == "" {
			t.Errorf("challenge %q has no id", c.Title)
		}
		if seen[c.ID] {
			t.Errorf("duplicate id %s", c.ID)
		}
		seen[c.ID] = true
		if len(c.Location) != 2 {
			t.Errorf("%s: location %v", c.ID, c.Location)
		}
		if c.Type == model.CategoryOther {
			t.Errorf("%s: unrecognized type", c.ID)
		}
	}

	cs[0].Title = "mutated"
	if Sample()[0].Title == "mutated" {
		t.Error("Sample should return a fresh copy")
	}
}

func TestScenarios(t *testing.T) {
	sc := Scenarios()
	if len(sc) != 3 {
		t.Fatalf("got %d scenarios, want 3", len(sc))
	}
	for _, s := range sc {
		if s.Name == "" || s.Message == "" {
			t.Errorf("incomplete scenario %+v", s)
		}
	}
}

func TestLoad(t *testing.T) {
	in := `[{"id":"a","title":"A","type":"food"},{"title":"no id"},{"chlgID":"b","type":"Hiking"}]`
	cs, err := Load(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != 2 || cs[1].ID != "b" || cs[1].Type != model.CategoryHiking {
		t.Errorf("got %+v", cs)
	}

	if _, err := Load(strings.NewReader("not json")); err == nil {
		t.Error("expected decode error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, sampleJSON, 0o644); err != nil {
		t.Fatal(err)
	}
	cs, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != 17 {
		t.Errorf("got %d", len(cs))
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
