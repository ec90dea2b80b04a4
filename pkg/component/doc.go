// Package component loads the components that x-component elements mount.
//
// A Loader resolves a path to a Factory; the Factory creates one instance
// per element from the element's model (the decoded x-model attribute):
//
//	reg := component.NewRegistry()
//	reg.Register("counter", component.FactoryFunc(
//	    func(rt *reactive.Runtime, model any) (any, error) {
//	        return map[string]any{"count": 0}, nil
//	    }))
//
// # Sources
//
// Besides Go factories held in a Registry, components can be declared as
// definition files (YAML or JSON) that carry their initial data, methods
// and lifecycle hooks:
//
//	data:
//	  count: 0
//	methods:
//	  increment: count += 1
//	  add:
//	    params: [n]
//	    body: count += n
//	mounted: count = 1
//
// FileSource reads definitions from an fs.FS and S3Source from a bucket.
// Chain tries several loaders in order; Cache deduplicates concurrent loads
// of the same path; Traced wraps every load in an OpenTelemetry span.
//
// # Paths
//
// Paths starting with "./" or "../" are relative to the page that contains
// the element (see Resolve). Everything else is looked up as given.
//
// # Hooks
//
// Instances may implement Mounter and Unmounter. Definition instances expose
// their hooks as the $mounted and $unmounted methods instead.
package component
