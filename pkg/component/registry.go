package component

import (
	"context"
	"sort"
	"sync"
)

// Registry holds factories registered from Go code.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for path.
func (r *Registry) Register(path string, f Factory) {
	r.mu.Lock()
	r.factories[path] = f
	r.mu.Unlock()
}

// Load implements Loader.
func (r *Registry) Load(_ context.Context, path string) (Factory, error) {
	r.mu.RLock()
	f, ok := r.factories[path]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return f, nil
}

// Paths returns the registered paths, sorted.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for p := range r.factories {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
