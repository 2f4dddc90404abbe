// Package registry maps a node's type tag to the handler that executes
// it, and defines the uniform handler contract every node kind — built-in
// or integration — conforms to.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowforge/engine/internal/logging"
	"github.com/flowforge/engine/pkg/workflow"
)

// Clock supplies the current time; tests may substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the default, wall-clock Clock.
var SystemClock Clock = systemClock{}

// OutputTable is the read-only view of prior node outputs handlers may
// consult. The Run Coordinator is the only writer of the underlying map;
// handlers only ever see this narrower interface.
type OutputTable interface {
	Get(nodeID string) (workflow.NodeOutput, bool)
	All() map[string]workflow.NodeOutput
}

// Context is passed to every handler invocation. It exposes the four
// things §4.3 grants handlers: the read-only output table, the run-wide
// cancellation signal (via ctx.Done), a logger, and a clock; it also
// carries the id of the node being executed.
type Context struct {
	context.Context
	NodeID  string
	Outputs OutputTable
	Logger  logging.Logger
	Clock   Clock
}

// Inputs is the assembled per-node input bundle built by the Input
// Assembler (§4.4): values keyed by target handle (or "input" when
// unnamed), each either a single value or, for multi-edge groups, a
// slice preserving edge declaration order.
type Inputs map[string]interface{}

// Handler is the uniform contract every node type's implementation must
// satisfy: execute(ctx, params, inputs) -> result | error.
type Handler interface {
	Execute(ctx Context, params map[string]interface{}, inputs Inputs) (interface{}, *workflow.NodeError)
}

// HandlerFunc adapts a plain function to Handler, mirroring the registry
// pattern's preference for function-valued registrations over class
// hierarchies (see spec.md §9 design notes).
type HandlerFunc func(ctx Context, params map[string]interface{}, inputs Inputs) (interface{}, *workflow.NodeError)

func (f HandlerFunc) Execute(ctx Context, params map[string]interface{}, inputs Inputs) (interface{}, *workflow.NodeError) {
	return f(ctx, params, inputs)
}

// Registry maps type tags to handlers. A Registry is safe for concurrent
// Lookup once registration is complete; Register should happen at engine
// init, before any run starts.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a type tag, overwriting any prior binding.
func (r *Registry) Register(typeTag string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[typeTag] = h
}

// Lookup returns the handler bound to typeTag, or an unknown_node_type
// error if none is registered.
func (r *Registry) Lookup(typeTag string) (Handler, *workflow.NodeError) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[typeTag]
	if !ok {
		return nil, &workflow.NodeError{
			Kind:    workflow.ErrUnknownNodeType,
			Message: fmt.Sprintf("no handler registered for node type %q", typeTag),
		}
	}
	return h, nil
}

// RegisteredTypes returns all registered type tags.
func (r *Registry) RegisteredTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	return out
}

// HasHandler reports whether typeTag has a registered handler.
func (r *Registry) HasHandler(typeTag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[typeTag]
	return ok
}
