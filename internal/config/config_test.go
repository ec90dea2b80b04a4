package config

import (
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/gallia-dev/gallia/internal/errors"
	"github.com/gallia-dev/gallia/pkg/bind"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Dev.Port != DefaultPort {
		t.Errorf("Dev.Port = %d, want %d", cfg.Dev.Port, DefaultPort)
	}
	if cfg.Dev.Host != DefaultHost {
		t.Errorf("Dev.Host = %q, want %q", cfg.Dev.Host, DefaultHost)
	}
	if cfg.Page != DefaultPage {
		t.Errorf("Page = %q, want %q", cfg.Page, DefaultPage)
	}
	if cfg.MaxUpdateDepth != 100 {
		t.Errorf("MaxUpdateDepth = %d, want 100", cfg.MaxUpdateDepth)
	}
	if diff := cmp.Diff(bind.DefaultDirectives(), cfg.BindDirectives()); diff != "" {
		t.Errorf("directives mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if !errors.HasCode(err, "G030") {
		t.Errorf("Load(empty dir) = %v, want G030", err)
	}

	writeFile(t, tmpDir, "gallia.yaml", `
name: todo
page: pages/home.html
debug: true
directives:
  attr: ":"
components:
  dir: defs
  s3:
    bucket: assets
    prefix: components/
dev:
  port: 8080
  host: 0.0.0.0
  watch: [pages, defs]
`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Name != "todo" {
		t.Errorf("Name = %q, want todo", cfg.Name)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if cfg.Dev.Port != 8080 || cfg.Dev.Host != "0.0.0.0" {
		t.Errorf("Dev = %+v", cfg.Dev)
	}
	if cfg.Directives.Attr != ":" || cfg.Directives.Prop != "." {
		t.Errorf("Directives = %+v, want attr overridden and prop defaulted", cfg.Directives)
	}
	if cfg.Components.S3.Bucket != "assets" || cfg.Components.S3.Prefix != "components/" {
		t.Errorf("Components.S3 = %+v", cfg.Components.S3)
	}
	if !cfg.Components.Cache {
		t.Error("Components.Cache should keep its default")
	}
	if got, want := cfg.PagePath(), filepath.Join(tmpDir, "pages/home.html"); got != want {
		t.Errorf("PagePath() = %q, want %q", got, want)
	}
	if got, want := cfg.ComponentsPath(), filepath.Join(tmpDir, "defs"); got != want {
		t.Errorf("ComponentsPath() = %q, want %q", got, want)
	}
	want := []string{filepath.Join(tmpDir, "pages"), filepath.Join(tmpDir, "defs")}
	if diff := cmp.Diff(want, cfg.WatchPaths()); diff != "" {
		t.Errorf("WatchPaths() mismatch (-want +got):\n%s", diff)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "gallia.json", `{"dev": {"port": 4000}, "log_level": "debug"}`},
		{"toml", "gallia.toml", "log_level = \"debug\"\n[dev]\nport = 4000\n"},
		{"yml", "gallia.yml", "log_level: debug\ndev:\n  port: 4000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, tt.file, tt.content)

			cfg, err := Load(dir)
			if err != nil {
				t.Fatal(err)
			}
			if cfg.Dev.Port != 4000 {
				t.Errorf("Dev.Port = %d, want 4000", cfg.Dev.Port)
			}
			if cfg.Level() != slog.LevelDebug {
				t.Errorf("Level() = %v, want debug", cfg.Level())
			}
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "gallia.yaml", "dev: [unclosed")

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "nope.yaml")},
		{"malformed", bad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFile(tt.path); !errors.HasCode(err, "G030") {
				t.Errorf("LoadFile = %v, want G030", err)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "gallia.yaml", "dev:\n  port: 8080\n")

	t.Setenv("GALLIA_DEV_PORT", "9090")
	t.Setenv("GALLIA_COMPONENTS_S3_ACCESS_KEY_ID", "AKID")
	t.Setenv("GALLIA_DEV_WATCH", "a,b")
	t.Setenv("GALLIA_DIRECTIVES_IF", "v-if")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dev.Port != 9090 {
		t.Errorf("Dev.Port = %d, want 9090 from the environment", cfg.Dev.Port)
	}
	if cfg.S3().AccessKeyID != "AKID" {
		t.Errorf("S3().AccessKeyID = %q", cfg.S3().AccessKeyID)
	}
	if diff := cmp.Diff([]string{"a", "b"}, cfg.Dev.Watch); diff != "" {
		t.Errorf("Dev.Watch mismatch (-want +got):\n%s", diff)
	}
	if cfg.BindDirectives().If != "v-if" {
		t.Errorf("If directive = %q", cfg.BindDirectives().If)
	}

	env, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if env.Dev.Port != 9090 || env.Page != DefaultPage {
		t.Errorf("FromEnv() = port %d page %q", env.Dev.Port, env.Page)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		detail string
	}{
		{"port", func(c *Config) { c.Dev.Port = 70000 }, "dev.port"},
		{"depth", func(c *Config) { c.MaxUpdateDepth = 0 }, "max_update_depth"},
		{"level", func(c *Config) { c.LogLevel = "loud" }, "loud"},
		{"empty directive", func(c *Config) { c.Directives.Key = "" }, "directives.key"},
		{"clashing prefixes", func(c *Config) { c.Directives.Prop = "@" }, "must differ"},
		{"prefix without bucket", func(c *Config) { c.Components.S3.Prefix = "x/" }, "bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.HasCode(err, "G031") {
				t.Fatalf("Validate() = %v, want G031", err)
			}
			var ge *errors.GalliaError
			if stderrors.As(err, &ge) && !strings.Contains(ge.Detail, tt.detail) {
				t.Errorf("Detail = %q, want it to mention %q", ge.Detail, tt.detail)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := New()
	cfg.Name = "saved"
	cfg.Dev.Port = 5050
	cfg.Components.S3 = S3Config{Bucket: "b", SecretAccessKey: "secret"}

	path := filepath.Join(dir, "gallia.yaml")
	if err := cfg.SaveTo(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret") {
		t.Errorf("credentials were written:\n%s", data)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Components.S3.SecretAccessKey = ""
	if diff := cmp.Diff(cfg, loaded, cmpopts.IgnoreUnexported(Config{}), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}

	if err := New().Save(); err == nil {
		t.Error("Save() without a path should fail")
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "gallia.json", `{}`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindProjectRoot = %q, want %q", got, want)
	}
	if !Exists(root) || Exists(nested) {
		t.Error("Exists reports the wrong directories")
	}
}

func TestDevAddress(t *testing.T) {
	cfg := New()
	cfg.Dev.Host = "127.0.0.1"
	cfg.Dev.Port = 4321
	if got := cfg.DevURL(); got != "http://127.0.0.1:4321" {
		t.Errorf("DevURL() = %q", got)
	}
}
