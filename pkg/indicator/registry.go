package indicator

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages moving-average engines by name
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

// NewRegistry creates a new engine registry
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]Engine),
	}
}

// DefaultRegistry returns a registry holding the native and techan engines
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(NativeEngine{})
	_ = r.Register(TechanEngine{})
	return r
}

// Register registers an engine with the registry
func (r *Registry) Register(engine Engine) error {
	if engine == nil {
		return fmt.Errorf("engine cannot be nil")
	}

	name := engine.Name()
	if name == "" {
		return fmt.Errorf("engine name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[name]; exists {
		return fmt.Errorf("engine with name %q already registered", name)
	}

	r.engines[name] = engine
	return nil
}

// Get retrieves an engine by name
func (r *Registry) Get(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engine, exists := r.engines[name]
	if !exists {
		return nil, fmt.Errorf("engine %q not found", name)
	}

	return engine, nil
}

// List returns the registered engine names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
