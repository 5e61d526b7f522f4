package catalog

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotFound is returned when a definition name is not registered.
	ErrNotFound = errors.New("relay/catalog: definition not found")

	// ErrDuplicate is returned when a definition name is registered twice.
	ErrDuplicate = errors.New("relay/catalog: definition already registered")
)

// Registry maps webhook definition names to their definitions.
// It is safe for concurrent use. Lookups return the stored value by copy
// so callers can never mutate the catalog through a Get result.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]WebhookDefinition
}

// NewRegistry creates an empty definition registry.
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[string]WebhookDefinition),
	}
}

// Register adds a definition to the registry. Registering a name twice is
// a configuration error and returns ErrDuplicate.
func (r *Registry) Register(def WebhookDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("relay/catalog: register: empty definition name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicate, def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// MustRegister is like Register but panics on error. Use at process start
// where a duplicate or empty name is a programming error.
func (r *Registry) MustRegister(def WebhookDefinition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Get returns the definition registered under name.
// Returns ErrNotFound if the name is unregistered.
func (r *Registry) Get(name string) (*WebhookDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	cp := def
	cp.RequiredFeatures = append([]string(nil), def.RequiredFeatures...)
	return &cp, nil
}

// Names returns all registered definition names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	return names
}
