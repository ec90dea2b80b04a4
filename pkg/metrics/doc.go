// Package metrics exposes Prometheus collectors for the binding engine.
//
// A Metrics value is created once per process and handed to the components
// that report into it:
//
//	m := metrics.New(metrics.WithNamespace("myapp"), metrics.WithRegistry(reg))
//	c := bind.NewCompiler(bind.WithMetrics(m))
//
// Collected series (namespace "gallia" by default):
//
//   - bindings_total: bindings opened, by kind (text, attr, prop, event, if, for, component)
//   - list_edits_total: reconciler events applied, by op
//   - component_loads_total: component loads, by status and error code
//   - component_load_duration_seconds: component load latency
//   - mount_errors_total: root components that failed to mount
//   - reaction_runs_total, live_scopes: reactive runtime counters
//
// Every method is safe to call on a nil *Metrics, so instrumented code does
// not need to check whether metrics are enabled.
package metrics
