package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path"
	"strings"
	"text/template"

	"hkexplorer/pkg/model"
)

//go:embed templates
var embedded embed.FS

// Template names rendered by the planner.
const (
	PlannerSystem  = "planner/system.tmpl"
	PlannerUser    = "planner/user.tmpl"
	ResearchSystem = "research/system.tmpl"
	ResearchUser   = "research/user.tmpl"
	GuideSystem    = "guide/system.tmpl"
	GuideUser      = "guide/user.tmpl"
	GuideGreeting  = "guide/greeting.tmpl"
	GuideEmpty     = "guide/empty.tmpl"
)

// Names lists every template the planner renders.
var Names = []string{
	PlannerSystem, PlannerUser,
	ResearchSystem, ResearchUser,
	GuideSystem, GuideUser, GuideGreeting, GuideEmpty,
}

// Manager handles loading and rendering of prompt templates.
type Manager struct {
	root *template.Template
}

// NewManager loads the built-in templates and, when dir is set, lets any
// *.tmpl file under dir replace the built-in template with the same name.
func NewManager(dir string) (*Manager, error) {
	m := &Manager{}
	m.root = template.New("root").Funcs(template.FuncMap{
		"categories": categoriesFunc,
		"json":       jsonFunc,
		"maybe":      maybeFunc,
		"pick":       pickFunc,
	})

	builtin, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	if err := m.load(builtin); err != nil {
		return nil, fmt.Errorf("loading built-in templates: %w", err)
	}

	if dir == "" {
		return m, nil
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("prompt directory: %w", err)
	}
	if err := m.load(os.DirFS(dir)); err != nil {
		return nil, fmt.Errorf("loading templates from %s: %w", dir, err)
	}
	return m, nil
}

// load parses common/ partials first so named templates can use them.
func (m *Manager) load(fsys fs.FS) error {
	if err := m.walk(fsys, "common", func(name, content string) error {
		_, err := m.root.Parse(content)
		return err
	}); err != nil {
		return err
	}

	return m.walk(fsys, ".", func(name, content string) error {
		if strings.HasPrefix(name, "common/") {
			return nil
		}
		_, err := m.root.New(name).Parse(content)
		return err
	})
}

func (m *Manager) walk(fsys fs.FS, root string, fn func(name, content string) error) error {
	return fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if root != "." && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || path.Ext(p) != ".tmpl" {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		if err := fn(p, string(content)); err != nil {
			return fmt.Errorf("parsing %s: %w", p, err)
		}
		return nil
	})
}

// Render executes the named template with the provided data.
func (m *Manager) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.root.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// Has reports whether a template with the given name is loaded.
func (m *Manager) Has(name string) bool {
	return m.root.Lookup(name) != nil
}

// categoriesFunc renders categories as a comma-separated list.
// Usage: {{categories .Preferences.Interests}}
func categoriesFunc(cs []model.Category) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}

// jsonFunc renders a value as indented JSON.
func jsonFunc(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// maybeFunc includes content with a given probability (0-100).
// Usage: {{maybe 50 "This text appears 50% of the time"}}
func maybeFunc(percent int, content string) string {
	if percent <= 0 {
		return ""
	}
	if percent >= 100 {
		return content
	}
	if rand.Intn(100) < percent {
		return content
	}
	return ""
}

// pickFunc selects one random option from a list separated by "|||".
// Usage: {{pick "Option A|||Option B|||Option C"}}
func pickFunc(options string) string {
	parts := strings.Split(options, "|||")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts[rand.Intn(len(parts))]
}
