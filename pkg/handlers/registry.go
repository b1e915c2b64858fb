package handlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/mrwa-ai/mrwa/pkg/domain"
	"github.com/mrwa-ai/mrwa/pkg/ports"
)

// Registry implements ports.HandlerRegistry. Registration happens at
// startup; the map is read-only afterwards and safe for concurrent
// use by many executions.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]ports.Handler
}

// NewRegistry creates an empty handler registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]ports.Handler),
	}
}

// Register binds an operation name to a handler
func (r *Registry) Register(operation string, handler ports.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[operation] = handler
}

// Invoke runs the named operation. An unknown operation is a
// permanent error: no retry can make it appear.
func (r *Registry) Invoke(ctx context.Context, operation string, params map[string]interface{}, execContext map[int]interface{}) (interface{}, error) {
	r.mu.RLock()
	handler, ok := r.handlers[operation]
	r.mu.RUnlock()

	if !ok {
		return nil, domain.NewPermanentError(operation, fmt.Errorf("unknown operation"))
	}

	return handler(ctx, params, execContext)
}

// IsTransient classifies an error returned by Invoke
func (r *Registry) IsTransient(err error) bool {
	return domain.IsTransient(err)
}
