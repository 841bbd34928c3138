package hooks

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/litemap/litemap/internal/orm/model"
)

// Func is a hook. The entity is the one being saved or deleted.
type Func func(ctx context.Context, e model.Entity) error

// Registry holds the hooks of every definition, in registration order
type Registry struct {
	mu     sync.RWMutex
	hooks  map[string]map[Event][]Func
	logger *zap.Logger
}

// NewRegistry creates an empty registry. Failures of after hooks are logged to logger,
// which may be nil.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		hooks:  make(map[string]map[Event][]Func),
		logger: logger,
	}
}

// Register adds fn for the named definition
func (r *Registry) Register(definition string, event Event, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byEvent, ok := r.hooks[definition]
	if !ok {
		byEvent = make(map[Event][]Func)
		r.hooks[definition] = byEvent
	}
	byEvent[event] = append(byEvent[event], fn)
}

// Has reports whether any hook is registered for the definition and event
func (r *Registry) Has(definition string, event Event) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.hooks[definition][event]) > 0
}

func (r *Registry) get(definition string, event Event) []Func {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fns := r.hooks[definition][event]
	out := make([]Func, len(fns))
	copy(out, fns)
	return out
}

// Run executes the hooks in order and stops at the first error. A nil registry runs
// nothing.
func (r *Registry) Run(ctx context.Context, definition string, event Event, e model.Entity) error {
	if !r.Has(definition, event) {
		return nil
	}
	for _, fn := range r.get(definition, event) {
		if err := fn(ctx, e); err != nil {
			return fmt.Errorf("hook %s on %s failed: %w", event, definition, err)
		}
	}
	return nil
}

// Deferred returns a function running the after hooks, for transaction commit callbacks.
// Errors cannot undo a commit, so they are logged.
func (r *Registry) Deferred(ctx context.Context, definition string, event Event, e model.Entity) func() {
	return func() {
		if err := r.Run(ctx, definition, event, e); err != nil {
			r.logger.Warn("after hook failed",
				zap.String("definition", definition),
				zap.String("event", event.String()),
				zap.Error(err),
			)
		}
	}
}
