package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gallia-dev/gallia/internal/errors"
	"github.com/gallia-dev/gallia/pkg/bind"
	"github.com/gallia-dev/gallia/pkg/component"
	"github.com/gallia-dev/gallia/pkg/reactive"
)

const (
	// ConfigName is the base name of the configuration file. Any extension
	// viper understands may follow it.
	ConfigName = "gallia"

	// EnvPrefix prefixes environment variable overrides, as in
	// GALLIA_DEV_PORT.
	EnvPrefix = "GALLIA"

	// DefaultPort is the default preview server port.
	DefaultPort = 3000

	// DefaultHost is the default preview server host.
	DefaultHost = "localhost"

	// DefaultPage is the default page file.
	DefaultPage = "index.html"

	// DefaultComponentsDir is the default component definition directory.
	DefaultComponentsDir = "components"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"
)

// configExts are the configuration file extensions looked for, in order.
var configExts = []string{".yaml", ".yml", ".json", ".toml"}

// Config represents the complete gallia configuration.
type Config struct {
	// Name is the project name.
	Name string `mapstructure:"name" yaml:"name,omitempty"`

	// Page is the page file rendered and served by default.
	Page string `mapstructure:"page" yaml:"page,omitempty"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level,omitempty"`

	// Debug enables consistency checks of list reconciliation.
	Debug bool `mapstructure:"debug" yaml:"debug,omitempty"`

	// MaxUpdateDepth limits how deeply writes made by bindings may nest.
	MaxUpdateDepth int `mapstructure:"max_update_depth" yaml:"max_update_depth,omitempty"`

	// Directives renames the binding directives.
	Directives DirectivesConfig `mapstructure:"directives" yaml:"directives,omitempty"`

	// Components configures where component definitions come from.
	Components ComponentsConfig `mapstructure:"components" yaml:"components,omitempty"`

	// Dev contains preview server configuration.
	Dev DevConfig `mapstructure:"dev" yaml:"dev,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// DirectivesConfig holds the directive attribute names and prefixes.
type DirectivesConfig struct {
	Attr      string `mapstructure:"attr" yaml:"attr,omitempty"`
	Prop      string `mapstructure:"prop" yaml:"prop,omitempty"`
	Event     string `mapstructure:"event" yaml:"event,omitempty"`
	Component string `mapstructure:"component" yaml:"component,omitempty"`
	Model     string `mapstructure:"model" yaml:"model,omitempty"`
	For       string `mapstructure:"for" yaml:"for,omitempty"`
	Key       string `mapstructure:"key" yaml:"key,omitempty"`
	If        string `mapstructure:"if" yaml:"if,omitempty"`
}

// ComponentsConfig contains component loading settings.
type ComponentsConfig struct {
	// Dir is the directory holding definition files.
	Dir string `mapstructure:"dir" yaml:"dir,omitempty"`

	// Extensions are the definition file extensions tried, in order.
	Extensions []string `mapstructure:"extensions" yaml:"extensions,omitempty"`

	// Cache keeps loaded definitions in memory.
	Cache bool `mapstructure:"cache" yaml:"cache,omitempty"`

	// Preload loads every component of a page before mounting it.
	Preload bool `mapstructure:"preload" yaml:"preload,omitempty"`

	// S3 reads definitions from a bucket when a bucket is set. The
	// directory is still consulted first.
	S3 S3Config `mapstructure:"s3" yaml:"s3,omitempty"`
}

// S3Config locates component definitions in an S3 bucket.
type S3Config struct {
	Bucket   string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix,omitempty"`
	Region   string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`

	// Credentials are usually given through the environment
	// (GALLIA_COMPONENTS_S3_ACCESS_KEY_ID) rather than the file.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"-"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"-"`
}

// DevConfig contains preview server settings.
type DevConfig struct {
	// Port is the port to run the preview server on.
	Port int `mapstructure:"port" yaml:"port,omitempty"`

	// Host is the host to bind to.
	Host string `mapstructure:"host" yaml:"host,omitempty"`

	// Watch contains paths to watch for changes.
	Watch []string `mapstructure:"watch" yaml:"watch,omitempty"`

	// Ignore contains patterns to ignore during watch.
	Ignore []string `mapstructure:"ignore" yaml:"ignore,omitempty"`

	// HotReload reloads connected browsers when a watched file changes.
	HotReload bool `mapstructure:"hot_reload" yaml:"hot_reload,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	d := bind.DefaultDirectives()
	return &Config{
		Page:           DefaultPage,
		LogLevel:       DefaultLogLevel,
		MaxUpdateDepth: reactive.DefaultMaxUpdateDepth,
		Directives: DirectivesConfig{
			Attr:      d.Attr,
			Prop:      d.Prop,
			Event:     d.Event,
			Component: d.Component,
			Model:     d.Model,
			For:       d.For,
			Key:       d.Key,
			If:        d.If,
		},
		Components: ComponentsConfig{
			Dir:        DefaultComponentsDir,
			Extensions: append([]string(nil), component.DefaultExtensions...),
			Cache:      true,
		},
		Dev: DevConfig{
			Port:      DefaultPort,
			Host:      DefaultHost,
			Watch:     []string{"."},
			HotReload: true,
		},
	}
}

// newViper returns a viper instance holding the defaults and reading
// GALLIA_ environment overrides.
func newViper() *viper.Viper {
	v := viper.New()
	def := New()
	v.SetDefault("name", def.Name)
	v.SetDefault("page", def.Page)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("debug", def.Debug)
	v.SetDefault("max_update_depth", def.MaxUpdateDepth)

	v.SetDefault("directives.attr", def.Directives.Attr)
	v.SetDefault("directives.prop", def.Directives.Prop)
	v.SetDefault("directives.event", def.Directives.Event)
	v.SetDefault("directives.component", def.Directives.Component)
	v.SetDefault("directives.model", def.Directives.Model)
	v.SetDefault("directives.for", def.Directives.For)
	v.SetDefault("directives.key", def.Directives.Key)
	v.SetDefault("directives.if", def.Directives.If)

	v.SetDefault("components.dir", def.Components.Dir)
	v.SetDefault("components.extensions", def.Components.Extensions)
	v.SetDefault("components.cache", def.Components.Cache)
	v.SetDefault("components.preload", def.Components.Preload)
	v.SetDefault("components.s3.bucket", "")
	v.SetDefault("components.s3.prefix", "")
	v.SetDefault("components.s3.region", "")
	v.SetDefault("components.s3.endpoint", "")
	v.SetDefault("components.s3.access_key_id", "")
	v.SetDefault("components.s3.secret_access_key", "")

	v.SetDefault("dev.port", def.Dev.Port)
	v.SetDefault("dev.host", def.Dev.Host)
	v.SetDefault("dev.watch", def.Dev.Watch)
	v.SetDefault("dev.ignore", []string{})
	v.SetDefault("dev.hot_reload", def.Dev.HotReload)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New("G030").Wrap(err)
	}
	return cfg, nil
}

// FromEnv returns the defaults with environment overrides applied, for
// projects without a configuration file.
func FromEnv() (*Config, error) {
	return decode(newViper())
}

// Load reads configuration from the specified directory.
// It looks for gallia.yaml, gallia.yml, gallia.json or gallia.toml.
func Load(dir string) (*Config, error) {
	path, ok := find(dir)
	if !ok {
		return nil, errors.New("G030").
			WithDetail("No gallia configuration file found in " + dir).
			WithSuggestion("Create gallia.yaml or run without a configuration file")
	}
	return LoadFile(path)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.New("G030").Wrap(err)
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.New("G030").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check the syntax of the configuration file")
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.configPath = path
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration as YAML to the specified path.
// Credentials are never written.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.New("G030").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("G030").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Dev.Port < 0 || c.Dev.Port > 65535 {
		return errors.New("G031").
			WithDetail("dev.port must be between 0 and 65535")
	}
	if c.MaxUpdateDepth < 1 {
		return errors.New("G031").
			WithDetail("max_update_depth must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	d := c.Directives
	names := map[string]string{
		"attr": d.Attr, "prop": d.Prop, "event": d.Event, "component": d.Component,
		"model": d.Model, "for": d.For, "key": d.Key, "if": d.If,
	}
	for name, v := range names {
		if v == "" {
			return errors.New("G031").
				WithDetail("directives." + name + " must not be empty")
		}
	}
	if d.Attr == d.Prop {
		return errors.New("G031").
			WithDetail("directives.attr and directives.prop must differ").
			WithSuggestion("Keep the defaults \"@\" and \".\" unless they clash with your markup")
	}

	if c.Components.S3.Bucket == "" && c.Components.S3.Prefix != "" {
		return errors.New("G031").
			WithDetail("components.s3.prefix is set without components.s3.bucket")
	}
	return nil
}

// BindDirectives returns the directive names for the compiler.
func (c *Config) BindDirectives() bind.Directives {
	d := c.Directives
	return bind.Directives{
		Attr:      d.Attr,
		Prop:      d.Prop,
		Event:     d.Event,
		Component: d.Component,
		Model:     d.Model,
		For:       d.For,
		Key:       d.Key,
		If:        d.If,
	}
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, errors.New("G031").
			WithDetail("unknown log level " + strconv.Quote(s)).
			WithSuggestion("Use debug, info, warn or error")
	}
	return l, nil
}

// Level returns the configured log level, or info when it is invalid.
func (c *Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// S3 returns the client settings of the component bucket.
func (c *Config) S3() component.S3Config {
	s := c.Components.S3
	return component.S3Config{
		Region:          s.Region,
		Endpoint:        s.Endpoint,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
	}
}

// DevAddress returns the address string for the preview server.
func (c *Config) DevAddress() string {
	return c.Dev.Host + ":" + strconv.Itoa(c.Dev.Port)
}

// DevURL returns the full URL for the preview server.
func (c *Config) DevURL() string {
	return "http://" + c.DevAddress()
}

// PagePath returns the absolute path to the page file.
func (c *Config) PagePath() string {
	return c.resolve(c.Page, DefaultPage)
}

// ComponentsPath returns the absolute path to the components directory.
func (c *Config) ComponentsPath() string {
	return c.resolve(c.Components.Dir, DefaultComponentsDir)
}

// WatchPaths returns the absolute paths watched by the preview server.
func (c *Config) WatchPaths() []string {
	paths := make([]string, 0, len(c.Dev.Watch))
	for _, p := range c.Dev.Watch {
		paths = append(paths, c.resolve(p, "."))
	}
	return paths
}

func (c *Config) resolve(path, fallback string) string {
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

func find(dir string) (string, bool) {
	for _, ext := range configExts {
		path := filepath.Join(dir, ConfigName+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, ok := find(dir)
	return ok
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a gallia configuration file, or an
// error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("G030").
				WithDetail("No gallia configuration file found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the nearest project root
// above the working directory, or from the environment alone when there
// is none.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return FromEnv()
	}
	return Load(root)
}
