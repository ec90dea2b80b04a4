package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	gerrors "github.com/gallia-dev/gallia/internal/errors"
	"github.com/gallia-dev/gallia/pkg/bootstrap"
	"github.com/gallia-dev/gallia/pkg/reactive"
)

func renderCmd(configPath *string) *cobra.Command {
	var (
		output   string
		dataPath string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "render [page]",
		Short: "Render a page with its components mounted",
		Long: `Render a page with its root components mounted and print the
bound document.

The page defaults to the page of gallia.yaml. Page data, read from
a YAML or JSON file, is visible to every root component as $data.

Examples:
  gallia render
  gallia render about.html -o dist/about.html
  gallia render --data fixtures/user.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(*configPath)
			if err != nil {
				return err
			}
			page := p.cfg.PagePath()
			if len(args) == 1 {
				page = args[0]
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var out io.Writer = cmd.OutOrStdout()
			var buf bytes.Buffer
			if output != "" {
				out = &buf
			}
			renderErr := renderPage(ctx, p, page, dataPath, out)
			if output != "" {
				if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
					return err
				}
				if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
					return err
				}
			}
			return renderErr
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the document to a file instead of stdout")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "YAML or JSON file with the page data")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Maximum time to wait for components to load")

	return cmd
}

// renderPage mounts the roots of page and writes the bound document to w.
func renderPage(ctx context.Context, p *project, page, dataPath string, w io.Writer) error {
	src, err := os.Open(page)
	if err != nil {
		return gerrors.New("G040").WithDetail(page).Wrap(err)
	}
	defer src.Close()

	rt := reactive.NewRuntime(
		reactive.WithLogger(p.logger),
		reactive.WithMaxUpdateDepth(p.cfg.MaxUpdateDepth),
	)

	var data any
	if dataPath != "" {
		raw, err := os.ReadFile(dataPath)
		if err != nil {
			return fmt.Errorf("read page data: %w", err)
		}
		// YAML is a superset of JSON.
		fields := map[string]any{}
		if err := yaml.Unmarshal(raw, &fields); err != nil {
			return fmt.Errorf("parse page data %s: %w", dataPath, err)
		}
		data = rt.NewRecord(fields)
	}
	base, err := filepath.Rel(filepath.Dir(p.cfg.PagePath()), page)
	if err != nil {
		base = filepath.Base(page)
	}
	return bootstrap.RenderPage(ctx, w, src,
		bootstrap.WithRuntime(rt),
		bootstrap.WithLoader(p.loader),
		bootstrap.WithDirectives(p.cfg.BindDirectives()),
		bootstrap.WithBase(filepath.ToSlash(base)),
		bootstrap.WithData(data),
		bootstrap.WithPreload(p.cfg.Components.Preload),
		bootstrap.WithLogger(p.logger),
		bootstrap.WithMetrics(p.metrics),
	)
}
