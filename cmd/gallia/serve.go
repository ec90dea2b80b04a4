package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gallia-dev/gallia/internal/dev"
)

func serveCmd(configPath *string) *cobra.Command {
	var (
		port     int
		host     string
		noReload bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the preview server",
		Long: `Start the preview server with hot reload.

The preview server renders pages with their components mounted,
watches pages and component definitions, and automatically
refreshes connected browsers.

Features:
  • Hot reload on file change
  • Error overlay in browser
  • Component listing at /_gallia/components
  • Prometheus metrics at /metrics

Examples:
  gallia serve
  gallia serve --port=8080
  gallia serve --host=0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(*configPath)
			if err != nil {
				return err
			}
			if port > 0 {
				p.cfg.Dev.Port = port
			}
			if host != "" {
				p.cfg.Dev.Host = host
			}
			if noReload {
				p.cfg.Dev.HotReload = false
			}
			return runServe(cmd.Context(), p)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from gallia.yaml)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from gallia.yaml)")
	cmd.Flags().BoolVar(&noReload, "no-reload", false, "Disable hot reload")

	return cmd
}

func runServe(ctx context.Context, p *project) error {
	printBanner()
	fmt.Println("  serve")
	fmt.Println()

	server := dev.NewServer(dev.ServerOptions{
		Config:   p.cfg,
		Loader:   p.loader,
		Cache:    p.cache,
		Lister:   p.lister,
		Metrics:  p.metrics,
		Gatherer: p.registry,
		Logger:   p.logger,
		OnReload: func(clients int) {
			success("Reloaded %d browsers", clients)
		},
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	info("Page:       %s", p.cfg.PagePath())
	info("Components: %s", p.cfg.ComponentsPath())
	info("Listening:  %s", p.cfg.DevURL())
	fmt.Println()

	err := server.Start(ctx)
	fmt.Println("\n  Shutting down...")
	return err
}
