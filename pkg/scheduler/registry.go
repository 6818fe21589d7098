package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/fenwicklabs/pagesched/pkg/pagestate"
)

// FetchFunc performs one batch's fetch. params is caller-chosen and opaque
// to the scheduler (spec.md §6); members is the batch's ordered list of
// states, in insertion order (spec.md §4.5).
type FetchFunc func(ctx context.Context, params any, members []*pagestate.State) (response any, err error)

// Registry dispatches a batch's fetch to a handler registered for its
// entity type, per spec.md §9's "dynamic dispatch on entity_type" redesign
// note: a pluggable per-type handler table in place of a multimethod.
// It is the default FetchFn an EngineConfig uses when no monolithic one is
// supplied.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]FetchFunc
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]FetchFunc)}
}

// Register installs the handler for entityType, replacing any previous one.
func (r *Registry) Register(entityType string, fn FetchFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[entityType] = fn
}

// Dispatch implements FetchFunc: it looks up a handler by the batch's
// (shared) entity type and runs it, or fails with ErrUnknownDispatch if
// none was registered.
func (r *Registry) Dispatch(ctx context.Context, params any, members []*pagestate.State) (any, error) {
	if len(members) == 0 {
		// The scheduler never submits an empty batch; this guards against
		// a hypothetical future caller of Dispatch outside that path.
		return nil, nil
	}
	entityType := members[0].EntityType

	r.mu.RLock()
	fn, ok := r.handlers[entityType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDispatch, entityType)
	}
	return fn(ctx, params, members)
}
