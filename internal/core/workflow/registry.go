package workflow

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Handler is a named, side-effecting operation a workflow action can invoke.
// Handlers are pure functions of (config, context); orchestration, retries and
// logging belong to the engine.
type Handler interface {
	Type() string
	Execute(ctx context.Context, config map[string]interface{}, execCtx *ExecutionContext) (map[string]interface{}, error)
}

// Registry maps action type names to handlers. New action types are added by
// registering, not by editing the engine.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty action handler registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler, replacing any previous handler of the same type
func (r *Registry) Register(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[handler.Type()] = handler
	log.Info().Str("action_type", handler.Type()).Msg("✅ Registered action handler")
}

// Get returns the handler for an action type
func (r *Registry) Get(actionType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[actionType]
	return handler, ok
}

// Types returns the registered action type names, sorted
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// HandlerFunc adapts a plain function into a Handler
type HandlerFunc struct {
	Name string
	Fn   func(ctx context.Context, config map[string]interface{}, execCtx *ExecutionContext) (map[string]interface{}, error)
}

func (h HandlerFunc) Type() string { return h.Name }

func (h HandlerFunc) Execute(ctx context.Context, config map[string]interface{}, execCtx *ExecutionContext) (map[string]interface{}, error) {
	return h.Fn(ctx, config, execCtx)
}
