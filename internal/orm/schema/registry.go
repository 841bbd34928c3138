package schema

import (
	"fmt"
	"sort"
	"sync"

	ormerrors "github.com/litemap/litemap/internal/orm/errors"
	"github.com/litemap/litemap/internal/orm/model"
)

// Registry manages the model definitions known to an application
type Registry struct {
	defs map[string]*model.Definition
	mu   sync.RWMutex
}

// NewRegistry creates a new definition registry
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[string]*model.Definition),
	}
}

// Register adds a definition. Names must be unique and the definition free of problems.
func (r *Registry) Register(def *model.Definition) error {
	if def == nil {
		return ormerrors.Configuration("registry", "nil definition")
	}
	if problems := def.Problems(); len(problems) > 0 {
		return fmt.Errorf("definition %s is invalid: %w", def.Name, problems[0])
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return ormerrors.Configuration(def.Name, "definition is already registered")
	}
	r.defs[def.Name] = def
	return nil
}

// MustRegister registers every definition and panics on the first failure
func (r *Registry) MustRegister(defs ...*model.Definition) *Registry {
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

// Get retrieves a definition by name
func (r *Registry) Get(name string) (*model.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.defs[name]
	return def, exists
}

// List returns the registered names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every definition sorted by name
func (r *Registry) All() []*model.Definition {
	names := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Definition, 0, len(names))
	for _, name := range names {
		out = append(out, r.defs[name])
	}
	return out
}

// Select returns the definitions named in names, in that order. An empty list selects
// everything; an unknown name is a configuration error.
func (r *Registry) Select(names []string) ([]*model.Definition, error) {
	if len(names) == 0 {
		return r.All(), nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Definition, 0, len(names))
	var missing []string
	for _, name := range names {
		def, ok := r.defs[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		out = append(out, def)
	}
	if len(missing) > 0 {
		return nil, ormerrors.Configuration("models", "no definition registered for %v", missing)
	}
	return out, nil
}

// Count returns the number of registered definitions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.defs)
}

// Exists checks if a definition is registered
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.defs[name]
	return exists
}

// Clear removes all registered definitions (useful for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.defs = make(map[string]*model.Definition)
}

// Build builds the schema of the selected definitions
func (r *Registry) Build(casing Casing, names []string) (*Schema, error) {
	defs, err := r.Select(names)
	if err != nil {
		return nil, err
	}
	return NewBuilder(casing).Build(defs)
}
