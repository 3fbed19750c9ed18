package job

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Reporter lets a running operation push progress back to the executor.
// All methods are safe to call from the operation's goroutine; after the
// job reaches a terminal state they become no-ops.
type Reporter interface {
	// Progress records completion percentage (0–100) and a free-text
	// phase label, re-emitted to stream subscribers as a progress event.
	Progress(progress int, phase string)

	// Partial pushes an intermediate result, re-emitted to stream
	// subscribers as a result_partial event.
	Partial(data json.RawMessage)
}

// HandlerFunc is a type-erased operation handler. It receives the job
// record and a Reporter, and returns the final result payload or an
// error. The handler must honor ctx cancellation at its own safe points.
type HandlerFunc func(ctx context.Context, j *Job, report Reporter) (json.RawMessage, error)

// Registry maps job types to type-erased operation handlers.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Type]HandlerFunc
}

// NewRegistry creates an empty operation registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[Type]HandlerFunc),
	}
}

// Register registers a raw handler for a job type, replacing any
// previous registration.
func (r *Registry) Register(t Type, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
}

// RegisterDefinition registers a typed operation definition. The generic
// handler is wrapped in a closure that JSON-unmarshals the job's params
// into P before calling the typed handler.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func RegisterDefinition[P any](r *Registry, def *Definition[P]) {
	handler := func(ctx context.Context, j *Job, report Reporter) (json.RawMessage, error) {
		var p P
		if len(j.Params) > 0 {
			if err := json.Unmarshal(j.Params, &p); err != nil {
				return nil, fmt.Errorf("unmarshal params for job type %q: %w", def.Type, err)
			}
		}
		return def.Handler(ctx, j.Query, p, report)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[def.Type] = handler
}

// Get returns the handler for the given job type.
// Returns false if no handler is registered.
func (r *Registry) Get(t Type) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	return h, ok
}

// Types returns all registered job types.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]Type, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}
