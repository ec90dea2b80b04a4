package main

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/gallia-dev/gallia/internal/config"
	"github.com/gallia-dev/gallia/internal/errors"
	"github.com/gallia-dev/gallia/internal/templates"
)

var projectName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]*$`)

func initCmd() *cobra.Command {
	var (
		template    string
		description string
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a new Gallia project",
		Long: `Create a new Gallia project in dir (default: the working directory).

Templates:
  minimal   One page with a counter component (default)
  todo      A todo list with keyed items

Examples:
  gallia init
  gallia init my-site --template=todo`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(dir, template, description)
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "minimal", "Project template (minimal, todo)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")

	return cmd
}

func runInit(dir, templateName, description string) error {
	projectDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	name := filepath.Base(projectDir)
	if !projectName.MatchString(name) {
		return errors.New("G031").
			WithDetail("Project name '" + name + "' is not valid").
			WithSuggestion("Use letters, numbers, dots, and hyphens")
	}
	if config.Exists(projectDir) {
		return errors.New("G044").WithDetail(projectDir)
	}

	tmpl, err := templates.Get(templateName)
	if err != nil {
		return err
	}
	if description == "" {
		description = "A Gallia site"
	}

	printBanner()
	info("Creating project from '%s' template...", templateName)
	if err := tmpl.Create(projectDir, templates.Config{
		ProjectName: name,
		Description: description,
	}); err != nil {
		return err
	}

	fmt.Println()
	success("Created %s", projectDir)
	fmt.Println()
	fmt.Println("  To get started:")
	fmt.Println()
	if dir != "." {
		fmt.Printf("    cd %s\n", dir)
	}
	fmt.Println("    gallia serve")
	fmt.Println()
	return nil
}
