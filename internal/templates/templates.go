package templates

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/gallia-dev/gallia/internal/errors"
)

// Config contains template configuration.
type Config struct {
	// ProjectName is the name of the project.
	ProjectName string

	// Description is a short project description.
	Description string
}

// Template represents a project template.
type Template struct {
	// Name is the template name.
	Name string

	// Description describes the template.
	Description string

	// Files is a map of relative paths to file contents.
	Files map[string]string
}

// Available templates.
var templates = map[string]*Template{
	"minimal": minimalTemplate(),
	"todo":    todoTemplate(),
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.New("G043").
			WithDetail("Template '" + name + "' not found").
			WithSuggestion("Available templates: minimal, todo")
	}
	return tmpl, nil
}

// List returns all available template names, sorted.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create generates a project from the template.
func (t *Template) Create(dir string, cfg Config) error {
	for relPath, content := range t.Files {
		// Page expressions use ${...}, so only {{...}} is expanded.
		tmpl, err := template.New(relPath).Parse(content)
		if err != nil {
			return errors.Newf(errors.CategoryCLI, "invalid template %s: %v", relPath, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, cfg); err != nil {
			return errors.Newf(errors.CategoryCLI, "template execute error %s: %v", relPath, err)
		}

		fullPath := filepath.Join(dir, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return err
		}

		if err := os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
			return err
		}
	}

	return nil
}

const configFile = `name: {{.ProjectName}}
page: index.html
log_level: info
components:
  dir: components
  cache: true
dev:
  port: 3000
  hot_reload: true
`

const styleFile = `body { font-family: system-ui, sans-serif; max-width: 640px; margin: 0 auto; padding: 2rem; }
h1 { color: #2563eb; }
button { font-size: 1rem; padding: 0.25rem 0.75rem; }
`

// minimalTemplate returns the minimal template.
func minimalTemplate() *Template {
	return &Template{
		Name:        "minimal",
		Description: "One page with a counter component",
		Files: map[string]string{
			"gallia.yaml": configFile,
			"style.css":   styleFile,
			"index.html": `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.ProjectName}}</title>
  <link rel="stylesheet" href="style.css">
</head>
<body>
  <h1>{{.ProjectName}}</h1>
  <p>{{.Description}}</p>

  <div x-component="counter" x-model='{"step": 1}'>
    <p>Count: ${count}</p>
    <button .on-click="count -= step">-</button>
    <button .on-click="count += step">+</button>
    <template x-if="count > 9">
      <p>That is a lot of clicks.</p>
    </template>
  </div>
</body>
</html>
`,
			"components/counter.yaml": `data:
  count: 0
mounted: count = 0
`,
		},
	}
}

// todoTemplate returns the todo list template.
func todoTemplate() *Template {
	return &Template{
		Name:        "todo",
		Description: "A todo list with keyed items",
		Files: map[string]string{
			"gallia.yaml": configFile,
			"style.css": styleFile + `.done { text-decoration: line-through; color: #6b7280; }
`,
			"index.html": `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.ProjectName}}</title>
  <link rel="stylesheet" href="style.css">
</head>
<body>
  <h1>{{.ProjectName}}</h1>

  <div x-component="todo-list">
    <p>${len(items)} items</p>
    <label><input type="checkbox" .checked="showDone" .on-change="toggle()"> Show done</label>
    <ul>
      <template x-for="item of items" x-key="item.id">
        <template x-if="showDone || !item.done">
          <li @class="item.done ? 'done' : null">${item.text}</li>
        </template>
      </template>
    </ul>
  </div>
</body>
</html>
`,
			"components/todo-list.yaml": `data:
  showDone: true
  items:
    - {id: 1, text: Write the page, done: true}
    - {id: 2, text: Declare the component, done: false}
    - {id: 3, text: Run gallia serve, done: false}
methods:
  toggle: showDone = !showDone
`,
		},
	}
}
