// Package functions serves named request/response functions whose bodies
// carry an "action" discriminator.
package functions

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
)

// Handler serves one function. body is the raw JSON request including the
// action field.
type Handler func(ctx context.Context, body json.RawMessage) (interface{}, error)

type Registry struct {
	timeout time.Duration

	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{timeout: timeout, handlers: make(map[string]Handler)}
}

func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	r.handlers[name] = h
	r.mu.Unlock()
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs the named function under the registry timeout.
func (r *Registry) Call(ctx context.Context, name string, body json.RawMessage) (interface{}, error) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.UnknownFunction(name)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return h(ctx, body)
}

// Invoke is Call with the result encoded back to JSON.
func (r *Registry) Invoke(ctx context.Context, name string, body []byte) (json.RawMessage, error) {
	result, err := r.Call(ctx, name, body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}
