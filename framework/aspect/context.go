package aspect

import (
	"context"

	"github.com/google/uuid"
)

// ExecutionContext is the state of one chain execution: the call's
// parameters, the handlers still to run and the root method.
//
// It is created per call and confined to the calling goroutine. Once the call
// returns, its handler queue is dropped; a retained context can no longer
// proceed.
type ExecutionContext struct {
	id     uuid.UUID
	ctx    context.Context
	root   *RootMethod
	params *Parameters
	queue  []Handler
	next   int
	values map[string]any
}

func newExecutionContext(ctx context.Context, root *RootMethod, params *Parameters, queue []Handler) *ExecutionContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if params == nil {
		params = NewParameters()
	}
	return &ExecutionContext{
		id:     uuid.New(),
		ctx:    ctx,
		root:   root,
		params: params,
		queue:  queue,
	}
}

// Proceed runs the next handler and returns its result.
func (c *ExecutionContext) Proceed() (any, error) {
	if c.next >= len(c.queue) {
		return nil, &ChainStateError{Method: c.root, Position: c.next}
	}
	h := c.queue[c.next]
	c.next++
	return h.Process(c)
}

// ID identifies this invocation.
func (c *ExecutionContext) ID() uuid.UUID { return c.id }

// Context returns the call's context.Context.
func (c *ExecutionContext) Context() context.Context { return c.ctx }

// SetContext replaces the context seen by the handlers after this one.
func (c *ExecutionContext) SetContext(ctx context.Context) {
	if ctx != nil {
		c.ctx = ctx
	}
}

// Method returns the intercepted method.
func (c *ExecutionContext) Method() *RootMethod { return c.root }

// Parameters returns the call's parameters.
func (c *ExecutionContext) Parameters() *Parameters { return c.params }

// Remaining returns how many handlers, the root method included, have not
// run yet.
func (c *ExecutionContext) Remaining() int { return len(c.queue) - c.next }

// Set stores a value for later handlers of the same call.
func (c *ExecutionContext) Set(key string, value any) {
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[key] = value
}

// Value returns a value stored with Set.
func (c *ExecutionContext) Value(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c *ExecutionContext) release() {
	c.queue = nil
	c.next = 0
	c.values = nil
}
