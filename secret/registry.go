package secret

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
)

// Options configures the providers a Registry builds. The zero value reads
// the process environment and accepts absolute file paths only.
type Options struct {
	// FileRoot confines secretref:file references to a directory when set.
	FileRoot string

	// LookupEnv replaces os.LookupEnv for the env provider.
	LookupEnv func(string) (string, bool)
}

// ProviderFactory builds a Provider from Options.
type ProviderFactory func(opts Options) (Provider, error)

// Registry maps provider names, the middle segment of a secretref, to the
// factories that build them.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// Register adds a factory under name. Names are unique and may not contain
// the secretref separator.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, ":") || factory == nil {
		return fmt.Errorf("%w: provider registration %q", ErrInvalidRef, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("secret: provider %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create builds the provider registered as name.
func (r *Registry) Create(name string, opts Options) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return factory(opts)
}

// List returns the registered provider names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// NewResolver builds every registered provider with opts and returns a
// resolver over them. Providers already built are closed on failure.
func (r *Registry) NewResolver(strict bool, opts Options) (*Resolver, error) {
	res := NewResolver(strict)
	for _, name := range r.List() {
		p, err := r.Create(name, opts)
		if err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("secret: create provider %q: %w", name, err)
		}
		res.Register(p)
	}
	return res, nil
}

// DefaultRegistry has the env and file providers registered.
var DefaultRegistry = NewRegistry()

func init() {
	_ = DefaultRegistry.Register("env", func(opts Options) (Provider, error) {
		lookup := opts.LookupEnv
		if lookup == nil {
			lookup = os.LookupEnv
		}
		return &EnvProvider{lookup: lookup}, nil
	})
	_ = DefaultRegistry.Register("file", func(opts Options) (Provider, error) {
		return NewFileProvider(opts.FileRoot), nil
	})
}
