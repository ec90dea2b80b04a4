package dev

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gallia-dev/gallia/internal/config"
	"github.com/gallia-dev/gallia/pkg/component"
	"github.com/gallia-dev/gallia/pkg/metrics"
)

func startWatcher(t *testing.T, dir string) <-chan Change {
	t.Helper()
	watcher := NewWatcher(WatcherConfig{
		Paths:    []string{dir},
		Debounce: 30 * time.Millisecond,
	})

	changes := make(chan Change, 10)
	watcher.OnChange(func(c Change) {
		changes <- c
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		watcher.Stop()
	})
	go watcher.Start(ctx)

	// Wait for the watches to be registered.
	time.Sleep(100 * time.Millisecond)
	return changes
}

func waitChange(t *testing.T, changes <-chan Change, want Change) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case change := <-changes:
			if change == want {
				return
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %+v", want)
		}
	}
}

func TestWatcher_Modify(t *testing.T) {
	tmpDir := t.TempDir()
	page := filepath.Join(tmpDir, "index.html")
	if err := os.WriteFile(page, []byte("<p>a</p>"), 0644); err != nil {
		t.Fatal(err)
	}

	changes := startWatcher(t, tmpDir)

	if err := os.WriteFile(page, []byte("<p>b</p>"), 0644); err != nil {
		t.Fatal(err)
	}
	waitChange(t, changes, Change{Path: page, Type: ChangePage})
}

func TestWatcher_NewFileInNewDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	changes := startWatcher(t, tmpDir)

	dir := filepath.Join(tmpDir, "components")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher time to pick up the new directory.
	time.Sleep(100 * time.Millisecond)

	def := filepath.Join(dir, "counter.yaml")
	if err := os.WriteFile(def, []byte("data: {}"), 0644); err != nil {
		t.Fatal(err)
	}
	waitChange(t, changes, Change{Path: def, Type: ChangeComponent})
}

func TestWatcher_Ignore(t *testing.T) {
	tmpDir := t.TempDir()

	watcher := NewWatcher(WatcherConfig{
		Paths:  []string{tmpDir},
		Ignore: []string{"*.swp", "vendor"},
	})

	if !watcher.ignored(filepath.Join(tmpDir, "index.html.swp")) {
		t.Error("Should ignore *.swp files")
	}
	if !watcher.ignored(filepath.Join(tmpDir, "vendor", "lib.yaml")) {
		t.Error("Should ignore vendor directory")
	}
	if watcher.ignored(filepath.Join(tmpDir, "index.html")) {
		t.Error("Should not ignore index.html")
	}
}

func TestWatcher_IgnoreIsRelativeToRoot(t *testing.T) {
	watcher := NewWatcher(WatcherConfig{
		Paths:  []string{filepath.Join("tmp", "project")},
		Ignore: []string{"tmp"},
	})

	if watcher.ignored(filepath.Join("tmp", "project", "index.html")) {
		t.Error("Should not ignore files because of the project location")
	}
	if !watcher.ignored(filepath.Join("tmp", "project", "tmp", "x.html")) {
		t.Error("Should ignore tmp directory inside the project")
	}
	if watcher.shouldIgnore(filepath.Join("foo", "attempt.html")) {
		t.Error("Should not ignore substring match")
	}
}

func TestClassifyChange(t *testing.T) {
	tests := []struct {
		path string
		want ChangeType
	}{
		{"index.html", ChangePage},
		{"about.HTM", ChangePage},
		{"counter.yaml", ChangeComponent},
		{"todo.yml", ChangeComponent},
		{"list.json", ChangeComponent},
		{"style.css", ChangeCSS},
		{"image.png", ChangeAsset},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := classifyChange(tt.path); got != tt.want {
				t.Errorf("classifyChange(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestWatcher_IsRunning(t *testing.T) {
	watcher := NewWatcher(WatcherConfig{
		Paths: []string{"."},
	})

	if watcher.IsRunning() {
		t.Error("Watcher should not be running initially")
	}
}

func TestWatchRoots(t *testing.T) {
	tests := []struct {
		name   string
		config string
		want   []string
	}{
		{
			name:   "separate directories",
			config: "page: site/index.html\ndev:\n  watch: [site, assets]\n",
			want:   []string{"assets", "components", "site"},
		},
		{
			name:   "components below the page directory",
			config: "page: index.html\ndev:\n  watch: [assets]\n",
			want:   []string{"."},
		},
		{
			name:   "nested watch entry",
			config: "page: site/index.html\ncomponents:\n  dir: site/components\ndev:\n  watch: [site/img, static]\n",
			want:   []string{"site", "static"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfgPath := filepath.Join(dir, "gallia.yaml")
			if err := os.WriteFile(cfgPath, []byte(tt.config), 0644); err != nil {
				t.Fatal(err)
			}
			cfg, err := config.LoadFile(cfgPath)
			if err != nil {
				t.Fatal(err)
			}

			want := make([]string, len(tt.want))
			for i, p := range tt.want {
				want[i] = filepath.Join(dir, p)
			}
			got := WatchRoots(cfg)
			if strings.Join(got, "|") != strings.Join(want, "|") {
				t.Errorf("WatchRoots() = %v, want %v", got, want)
			}
		})
	}
}

const counterDef = `
data:
  count: 0
methods:
  inc: count += 1
`

// newTestServer serves a project with one page and a counter component.
func newTestServer(t *testing.T, page string) (*Server, *httptest.Server, *component.Cache) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(page), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "style.css"), []byte("p{}"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.New()
	cfg.Page = filepath.Join(dir, "index.html")

	files := &component.FileSource{FS: fstest.MapFS{
		"counter.yaml": {Data: []byte(counterDef)},
	}}
	cache := component.NewCache(files)
	reg := prometheus.NewRegistry()

	srv := NewServer(ServerOptions{
		Config:   cfg,
		Loader:   cache,
		Cache:    cache,
		Lister:   files,
		Metrics:  metrics.New(metrics.WithRegistry(reg)),
		Gatherer: reg,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts, cache
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body)
}

func TestServer_RendersPage(t *testing.T) {
	_, ts, cache := newTestServer(t,
		`<html><body><div x-component="./counter"><b>${count}</b></div></body></html>`)

	status, body := get(t, ts.URL+"/")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(body, "<b>0</b>") {
		t.Errorf("page not bound:\n%s", body)
	}
	if !strings.Contains(body, ReloadPath) {
		t.Error("reload client not injected")
	}
	if strings.Contains(body, "window.__galliaErrors =") {
		t.Errorf("unexpected error overlay:\n%s", body)
	}
	if cache.Len() != 1 {
		t.Errorf("cache holds %d definitions, want 1", cache.Len())
	}

	_, metricsBody := get(t, ts.URL+"/metrics")
	if !strings.Contains(metricsBody, `gallia_bindings_total{kind="text"} 1`) {
		t.Errorf("metrics missing the text binding:\n%s", metricsBody)
	}
}

func TestServer_RenderErrorsAreShown(t *testing.T) {
	_, ts, _ := newTestServer(t,
		`<html><body><div x-component="nope"></div></body></html>`)

	status, body := get(t, ts.URL+"/index.html")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(body, "window.__galliaErrors = [") || !strings.Contains(body, "G020") {
		t.Errorf("error overlay missing:\n%s", body)
	}
}

func TestServer_StaticAndMissing(t *testing.T) {
	_, ts, _ := newTestServer(t, `<p></p>`)

	if status, body := get(t, ts.URL+"/style.css"); status != http.StatusOK || body != "p{}" {
		t.Errorf("style.css = %d %q", status, body)
	}
	if status, _ := get(t, ts.URL+"/missing.html"); status != http.StatusNotFound {
		t.Errorf("missing page status = %d, want 404", status)
	}
}

func TestServer_Components(t *testing.T) {
	_, ts, _ := newTestServer(t, `<p></p>`)

	_, body := get(t, ts.URL+ComponentsPath)
	var got struct {
		Components []string `json:"components"`
	}
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Components) != 1 || got.Components[0] != "counter" {
		t.Errorf("components = %v", got.Components)
	}
}

func TestServer_ReloadOnComponentChange(t *testing.T) {
	srv, ts, cache := newTestServer(t,
		`<html><body><div x-component="counter">${count}</div></body></html>`)
	get(t, ts.URL+"/")
	if cache.Len() != 1 {
		t.Fatalf("cache holds %d definitions, want 1", cache.Len())
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + ReloadPath
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.ReloadClients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("reload client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	srv.handleChanges([]Change{{Path: "components/counter.yaml", Type: ChangeComponent}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg ReloadMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != MsgReload {
		t.Errorf("message = %+v, want a full reload", msg)
	}
	if cache.Len() != 0 {
		t.Errorf("cache should be emptied, holds %d", cache.Len())
	}

	srv.handleChanges([]Change{{Path: "style.css", Type: ChangeCSS}})
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != MsgCSS || msg.File != "style.css" {
		t.Errorf("message = %+v, want a css reload", msg)
	}
}

func TestServer_NoHotReload(t *testing.T) {
	cfg := config.New()
	cfg.Dev.HotReload = false
	cfg.Page = filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(cfg.Page, []byte("<html><body></body></html>"), 0644); err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(NewServer(ServerOptions{Config: cfg}).Handler())
	defer ts.Close()

	_, body := get(t, ts.URL+"/")
	if strings.Contains(body, ReloadPath) {
		t.Error("reload client injected with hot reload disabled")
	}
	if status, _ := get(t, ts.URL+ReloadPath); status != http.StatusNotFound {
		t.Errorf("reload endpoint status = %d, want 404", status)
	}
}

func TestReloadServer_ClientCount(t *testing.T) {
	rs := NewReloadServer(nil)

	if rs.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", rs.ClientCount())
	}
}

func dialReload(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http")+ReloadPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, rs *ReloadServer, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for rs.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", rs.ClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestReloadServer_SendAndClose(t *testing.T) {
	rs := NewReloadServer(nil)
	ts := httptest.NewServer(http.HandlerFunc(rs.HandleWebSocket))
	defer ts.Close()

	first := dialReload(t, ts.URL)
	second := dialReload(t, ts.URL)
	waitClients(t, rs, 2)

	rs.NotifyCSS("site.css")
	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg ReloadMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatal(err)
		}
		if msg != (ReloadMessage{Type: MsgCSS, File: "site.css"}) {
			t.Errorf("message = %+v", msg)
		}
	}

	rs.Close()
	if rs.ClientCount() != 0 {
		t.Errorf("ClientCount() after Close = %d", rs.ClientCount())
	}
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Error("connection should be closed")
	}

	late := dialReload(t, ts.URL)
	late.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := late.ReadMessage(); err == nil {
		t.Error("a closed server should refuse new browsers")
	}
}

func TestReloadServer_DropsDisconnected(t *testing.T) {
	rs := NewReloadServer(nil)
	ts := httptest.NewServer(http.HandlerFunc(rs.HandleWebSocket))
	defer ts.Close()

	conn := dialReload(t, ts.URL)
	waitClients(t, rs, 1)
	conn.Close()
	waitClients(t, rs, 0)

	// Sending with nobody connected is a no-op.
	rs.NotifyReload()
}

func TestDevClientScript(t *testing.T) {
	for _, want := range []string{"WebSocket", ReloadPath, "location.reload", "__galliaErrors"} {
		if !strings.Contains(DevClientScript, want) {
			t.Errorf("DevClientScript should contain %q", want)
		}
	}
}
