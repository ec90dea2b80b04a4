package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gallia-dev/gallia/internal/config"
	"github.com/gallia-dev/gallia/pkg/component"
	"github.com/gallia-dev/gallia/pkg/listdiff"
	"github.com/gallia-dev/gallia/pkg/metrics"
)

// project is a loaded configuration with the loader and instrumentation
// built from it.
type project struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	loader   component.Loader
	cache    *component.Cache
	lister   *sourceLister
}

func openProject(configPath string) (*project, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newProject(cfg), nil
}

func newProject(cfg *config.Config) *project {
	level := cfg.Level()
	if cfg.Debug {
		level = slog.LevelDebug
		listdiff.Debug = true
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	registry := prometheus.NewRegistry()
	p := &project{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics.New(metrics.WithRegistry(registry)),
		lister:   &sourceLister{},
	}

	files := &component.FileSource{
		FS:   os.DirFS(cfg.ComponentsPath()),
		Exts: cfg.Components.Extensions,
	}
	p.lister.files = files
	loaders := []component.Loader{files}

	if bucket := cfg.Components.S3.Bucket; bucket != "" {
		src := component.NewS3Source(component.NewS3Client(cfg.S3()), bucket, cfg.Components.S3.Prefix).
			WithExtensions(cfg.Components.Extensions...)
		p.lister.s3 = src
		loaders = append(loaders, src)
		logger.Debug("components from s3", "bucket", bucket, "prefix", cfg.Components.S3.Prefix)
	}

	p.loader = component.Traced(component.Chain(loaders...))
	if cfg.Components.Cache {
		p.cache = component.NewCache(p.loader)
		p.loader = p.cache
	}
	return p
}

// sourceLister lists the components of every configured source.
type sourceLister struct {
	files *component.FileSource
	s3    *component.S3Source
}

func (l *sourceLister) List() ([]string, error) {
	var errs *multierror.Error
	paths, err := l.files.List()
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	if l.s3 != nil {
		remote, err := l.s3.List(context.Background())
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		paths = append(paths, remote...)
	}
	return paths, errs.ErrorOrNil()
}
