package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	gerrors "github.com/gallia-dev/gallia/internal/errors"
	"github.com/gallia-dev/gallia/pkg/listdiff"
	"github.com/gallia-dev/gallia/pkg/reactive"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "gallia").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for load duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "gallia",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors.
type Metrics struct {
	bindings     *prometheus.CounterVec
	listEdits    *prometheus.CounterVec
	loads        *prometheus.CounterVec
	loadDuration prometheus.Histogram
	mountErrors  prometheus.Counter
	reactionRuns prometheus.Counter
	liveScopes   prometheus.Gauge
}

// New creates and registers the collectors.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		bindings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bindings_total",
			Help:        "Total number of bindings opened, by directive kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		listEdits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "list_edits_total",
			Help:        "Total number of list reconciliation events, by operation",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		loads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "component_loads_total",
			Help:        "Total number of component loads",
			ConstLabels: config.ConstLabels,
		}, []string{"status", "code"}),

		loadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "component_load_duration_seconds",
			Help:        "Component load duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		mountErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "mount_errors_total",
			Help:        "Total number of root components that failed to mount",
			ConstLabels: config.ConstLabels,
		}),

		reactionRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reaction_runs_total",
			Help:        "Total number of reaction re-runs triggered by writes",
			ConstLabels: config.ConstLabels,
		}),

		liveScopes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_scopes",
			Help:        "Number of binding scopes not yet destroyed",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// BindingOpened records one binding of the given kind.
func (m *Metrics) BindingOpened(kind string) {
	if m == nil {
		return
	}
	m.bindings.WithLabelValues(kind).Inc()
}

// ListEdits records the events of one reconciliation pass.
func (m *Metrics) ListEdits(s listdiff.Stats) {
	if m == nil {
		return
	}
	add := func(op listdiff.Op, n int) {
		if n > 0 {
			m.listEdits.WithLabelValues(op.String()).Add(float64(n))
		}
	}
	add(listdiff.Noop, s.Noops)
	add(listdiff.Insert, s.Inserts)
	add(listdiff.Move, s.Moves)
	add(listdiff.Remove, s.Removes)
}

// ComponentLoaded records one component load and its outcome.
func (m *Metrics) ComponentLoaded(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.loadDuration.Observe(d.Seconds())
	if err != nil {
		m.loads.WithLabelValues("error", errorCode(err)).Inc()
		return
	}
	m.loads.WithLabelValues("success", "").Inc()
}

// MountFailed records a root component that failed to mount.
func (m *Metrics) MountFailed() {
	if m == nil {
		return
	}
	m.mountErrors.Inc()
}

// ObserveRuntime publishes the counters of a runtime that has settled.
// Call it once per runtime: the run counter is added, not set.
func (m *Metrics) ObserveRuntime(s reactive.Stats) {
	if m == nil {
		return
	}
	m.reactionRuns.Add(float64(s.Runs))
	m.liveScopes.Set(float64(s.LiveScopes()))
}

// errorCode returns the code of the outermost coded error in err's chain.
// Using the code instead of the message keeps label cardinality bounded.
func errorCode(err error) string {
	var ge *gerrors.GalliaError
	if errors.As(err, &ge) && ge.Code != "" {
		return ge.Code
	}
	return "internal"
}
