package dev

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gallia-dev/gallia/internal/config"
	gerrors "github.com/gallia-dev/gallia/internal/errors"
	"github.com/gallia-dev/gallia/pkg/bootstrap"
	"github.com/gallia-dev/gallia/pkg/component"
	"github.com/gallia-dev/gallia/pkg/metrics"
	"github.com/gallia-dev/gallia/pkg/reactive"
)

// ComponentsPath lists the component paths the loader knows about.
const ComponentsPath = "/_gallia/components"

// Lister is implemented by loaders that can enumerate their components.
type Lister interface {
	List() ([]string, error)
}

// ServerOptions configures the preview server.
type ServerOptions struct {
	// Config is the project configuration.
	Config *config.Config

	// Loader loads the components of served pages.
	Loader component.Loader

	// Cache, when set, is emptied whenever a component file changes.
	Cache *component.Cache

	// Lister backs the component listing endpoint.
	Lister Lister

	// Metrics records binding activity. Gatherer, when set, is served on
	// /metrics.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// Logger receives request and reload logs.
	Logger *slog.Logger

	// OnReload is called when browsers are reloaded.
	OnReload func(clients int)
}

// Server is the preview server: it renders pages with their components
// mounted and reloads connected browsers when files change.
type Server struct {
	config       *config.Config
	options      ServerOptions
	logger       *slog.Logger
	watcher      *Watcher
	reloadServer *ReloadServer
	changeCh     chan Change
	httpServer   *http.Server
	mu           sync.Mutex
	running      bool
	hotReload    bool
}

// NewServer creates a new preview server.
func NewServer(options ServerOptions) *Server {
	cfg := options.Config
	if cfg == nil {
		cfg = config.New()
		options.Config = cfg
	}
	if options.Loader == nil {
		options.Loader = component.NewRegistry()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	watcher := NewWatcher(WatcherConfig{
		Paths:    WatchRoots(cfg),
		Ignore:   append(append([]string(nil), DefaultIgnore...), cfg.Dev.Ignore...),
		Debounce: 100 * time.Millisecond,
		Logger:   logger,
	})

	var reloadServer *ReloadServer
	if cfg.Dev.HotReload {
		reloadServer = NewReloadServer(logger)
	}

	return &Server{
		config:       cfg,
		options:      options,
		logger:       logger,
		watcher:      watcher,
		reloadServer: reloadServer,
		hotReload:    cfg.Dev.HotReload,
	}
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(s.logRequests)

	if s.reloadEnabled() {
		r.Get(ReloadPath, s.reloadServer.HandleWebSocket)
	}
	r.Get(ComponentsPath, s.handleComponents)
	if s.options.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.options.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/", s.handlePage)
	r.Get("/*", s.handlePage)
	return r
}

// Start starts the preview server and blocks until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	s.changeCh = make(chan Change, 64)
	s.watcher.OnChange(func(change Change) {
		select {
		case s.changeCh <- change:
		default:
		}
	})
	go s.watcher.Start(ctx)
	go s.processChanges(ctx)

	s.httpServer = &http.Server{
		Addr:              s.config.DevAddress(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("preview server running", "url", s.config.DevURL(), "page", s.config.PagePath())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		if err != nil {
			return gerrors.New("G042").Wrap(err)
		}
		return nil
	}
}

// Stop stops the preview server.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	s.watcher.Stop()
	if s.reloadServer != nil {
		s.reloadServer.Close()
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}
}

// processChanges serializes file change handling and coalesces bursts.
func (s *Server) processChanges(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-s.changeCh:
			changes := []Change{change}
			draining := true
			for draining {
				select {
				case next := <-s.changeCh:
					changes = append(changes, next)
				default:
					draining = false
				}
			}
			s.handleChanges(changes)
		}
	}
}

// handleChanges handles a batch of file changes. Component changes drop
// cached definitions; anything but a stylesheet reloads the page.
func (s *Server) handleChanges(changes []Change) {
	if len(changes) == 0 {
		return
	}

	var css []string
	full := false
	for _, change := range changes {
		s.logger.Info("changed", "path", change.Path, "type", change.Type)
		switch change.Type {
		case ChangeComponent:
			if s.options.Cache != nil {
				s.options.Cache.Reset()
			}
			full = true
		case ChangeCSS:
			css = append(css, change.Path)
		default:
			full = true
		}
	}

	if !s.reloadEnabled() {
		return
	}
	if full {
		s.reloadServer.NotifyReload()
		if s.options.OnReload != nil {
			s.options.OnReload(s.reloadServer.ClientCount())
		}
		return
	}
	for _, file := range css {
		s.reloadServer.NotifyCSS(filepath.Base(file))
	}
}

// handlePage renders an HTML page with its components mounted, and serves
// every other file of the page directory as is.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	root := filepath.Dir(s.config.PagePath())
	name := strings.TrimPrefix(r.URL.Path, "/")
	if name == "" {
		name = filepath.Base(s.config.PagePath())
	}
	file := filepath.Join(root, filepath.FromSlash(filepath.Clean("/"+name)))

	ext := strings.ToLower(filepath.Ext(file))
	if ext != ".html" && ext != ".htm" {
		http.ServeFile(w, r, file)
		return
	}

	src, err := os.Open(file)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer src.Close()

	var buf bytes.Buffer
	mountErr := bootstrap.RenderPage(r.Context(), &buf, src, s.pageOptions(name)...)
	if mountErr != nil {
		s.logger.Warn("page rendered with errors", "page", name,
			"error", gerrors.New("G041").WithDetail(name).Wrap(mountErr))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.inject(buf.Bytes(), gerrors.Split(mountErr)))
}

// pageOptions returns the mount options of one request. Every request
// renders in a runtime of its own.
func (s *Server) pageOptions(page string) []bootstrap.Option {
	rt := reactive.NewRuntime(
		reactive.WithLogger(s.logger),
		reactive.WithMaxUpdateDepth(s.config.MaxUpdateDepth),
	)
	return []bootstrap.Option{
		bootstrap.WithRuntime(rt),
		bootstrap.WithLoader(s.options.Loader),
		bootstrap.WithDirectives(s.config.BindDirectives()),
		bootstrap.WithBase(filepath.ToSlash(page)),
		bootstrap.WithPreload(s.config.Components.Preload),
		bootstrap.WithLogger(s.logger),
		bootstrap.WithMetrics(s.options.Metrics),
	}
}

// inject adds the reload client, preceded by the page's mount failures, before
// the closing body tag.
func (s *Server) inject(page []byte, failures []error) []byte {
	if !s.reloadEnabled() {
		return page
	}
	var extra bytes.Buffer
	if len(failures) > 0 {
		msgs := make([]string, len(failures))
		for i, err := range failures {
			msgs[i] = err.Error()
		}
		data, _ := json.Marshal(msgs)
		fmt.Fprintf(&extra, "<script>window.__galliaErrors = %s;</script>\n", data)
	}
	extra.WriteString(DevClientScript)

	i := bytes.LastIndex(page, []byte("</body>"))
	if i < 0 {
		return append(page, extra.Bytes()...)
	}
	out := make([]byte, 0, len(page)+extra.Len())
	out = append(out, page[:i]...)
	out = append(out, extra.Bytes()...)
	return append(out, page[i:]...)
}

func (s *Server) handleComponents(w http.ResponseWriter, r *http.Request) {
	paths := []string{}
	if s.options.Lister != nil {
		list, err := s.options.Lister.List()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		paths = append(paths, list...)
	}
	sort.Strings(paths)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"components": paths})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func (s *Server) reloadEnabled() bool {
	return s.hotReload && s.reloadServer != nil
}

// ReloadClients returns the number of connected browsers.
func (s *Server) ReloadClients() int {
	if s.reloadServer == nil {
		return 0
	}
	return s.reloadServer.ClientCount()
}
