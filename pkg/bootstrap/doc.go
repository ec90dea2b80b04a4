// Package bootstrap mounts the root components of a page.
//
// A root component is an element carrying the component directive that is
// neither inside another component element nor inside a template. Every
// root is compiled and bound under the runtime's root scope, and the loop
// is drained until all component loads have settled:
//
//	m := bootstrap.New(bootstrap.WithLoader(loader))
//	if err := m.Mount(ctx, doc); err != nil {
//	    // every root that failed is in err
//	}
//
// Failures of one root never prevent the others from mounting. Mount
// returns them all, aggregated with go-multierror.
//
// # Pages
//
// RenderPage parses an HTML document, mounts it and renders the result,
// which is how the command line tool and the preview server produce a
// static snapshot of a page.
package bootstrap
