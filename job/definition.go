package job

import (
	"context"
	"encoding/json"
)

// Definition is a typed operation definition with a handler function.
// P is the params type (must be JSON-serializable).
type Definition[P any] struct {
	// Type is the job type this operation handles.
	Type Type

	// Handler runs the operation. It receives the query, the decoded
	// params, and a Reporter for progress pushes.
	Handler func(ctx context.Context, query string, params P, report Reporter) (json.RawMessage, error)
}

// NewDefinition creates a typed operation definition.
func NewDefinition[P any](t Type, handler func(ctx context.Context, query string, params P, report Reporter) (json.RawMessage, error)) *Definition[P] {
	return &Definition[P]{
		Type:    t,
		Handler: handler,
	}
}
