package component

import (
	"context"
	"errors"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gallia-dev/gallia/pkg/reactive"
)

// ErrNotFound is returned by a Loader that has no component for a path.
var ErrNotFound = errors.New("component: not found")

// Factory creates component instances.
type Factory interface {
	// New creates an instance from the element's model, which is nil when
	// the element has no x-model attribute. The instance is wrapped as
	// observable by the caller.
	New(rt *reactive.Runtime, model any) (any, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(rt *reactive.Runtime, model any) (any, error)

// New implements Factory.
func (f FactoryFunc) New(rt *reactive.Runtime, model any) (any, error) {
	return f(rt, model)
}

// Loader resolves a component path to its factory.
//
// Load may be called from any goroutine; it must not touch a reactive
// runtime.
type Loader interface {
	Load(ctx context.Context, path string) (Factory, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, path string) (Factory, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, path string) (Factory, error) {
	return f(ctx, path)
}

// Mounter is implemented by instances that want to run code after their
// subtree is bound. The returned function, if any, runs when the subtree
// is torn down.
type Mounter interface {
	Mounted() func()
}

// Unmounter is implemented by instances that want to run code when their
// subtree is torn down.
type Unmounter interface {
	Unmounted()
}

// Chain tries each loader in order and returns the first factory found.
// Loaders answering ErrNotFound are skipped; any other error stops the
// search.
func Chain(loaders ...Loader) Loader {
	return LoaderFunc(func(ctx context.Context, p string) (Factory, error) {
		for _, l := range loaders {
			f, err := l.Load(ctx, p)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return f, err
		}
		return nil, ErrNotFound
	})
}

// Resolve returns p relative to base when p starts with "./" or "../".
// base is the path of the page or definition containing the reference.
func Resolve(base, p string) string {
	if !strings.HasPrefix(p, "./") && !strings.HasPrefix(p, "../") {
		return p
	}
	if base == "" {
		return path.Clean(p)
	}
	return path.Join(path.Dir(base), p)
}

// Preload loads paths concurrently so that later loads hit a Cache. It
// returns the first error encountered.
func Preload(ctx context.Context, l Loader, paths []string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range paths {
		p := p
		g.Go(func() error {
			_, err := l.Load(ctx, p)
			return err
		})
	}
	return g.Wait()
}
