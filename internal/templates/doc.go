// Package templates provides project scaffolding templates.
//
// A template holds the files of a working Gallia project: a gallia.yaml,
// a page and the component definitions it mounts.
//
// # Available Templates
//
//   - minimal: One page with a counter component
//   - todo: A todo list with keyed items
//
// # Usage
//
//	tmpl, err := templates.Get("todo")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := tmpl.Create(projectDir, config); err != nil {
//	    log.Fatal(err)
//	}
//
// # Template Variables
//
// Files are expanded with text/template. Binding expressions use ${...}
// and are left untouched:
//
//	{{.ProjectName}}     - Name of the project
//	{{.Description}}     - Project description
package templates
