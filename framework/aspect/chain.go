package aspect

import (
	"context"
	"slices"
	"sync"
)

// ExecutionChain is the ordered handler sequence of one intercepted method,
// always terminated by its RootMethod.
//
// Mutations (Prepend, Append, SetHandlers) take the write lock and install a
// new immutable slice. Executions take the read lock only long enough to grab
// the current slice, so a chain modified mid-call never affects a call already
// in flight.
type ExecutionChain struct {
	mu       sync.RWMutex
	root     *RootMethod
	handlers []Handler // root last; never mutated in place
}

// NewExecutionChain builds a chain running handlers, in the given order,
// before root.
func NewExecutionChain(root *RootMethod, handlers ...Handler) *ExecutionChain {
	c := &ExecutionChain{root: root}
	c.handlers = c.build(nil, clean(handlers), nil)
	return c
}

// Root returns the terminal method.
func (c *ExecutionChain) Root() *RootMethod { return c.root }

// Handlers returns the interceptors in execution order, root excluded.
func (c *ExecutionChain) Handlers() []Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.handlers[:len(c.handlers)-1])
}

// Len returns the number of interceptors, root excluded.
func (c *ExecutionChain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handlers) - 1
}

// Prepend inserts handlers at the head of the chain.
func (c *ExecutionChain) Prepend(handlers ...Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = c.build(clean(handlers), c.interceptors(), nil)
}

// Append inserts handlers right before the root method.
func (c *ExecutionChain) Append(handlers ...Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = c.build(nil, c.interceptors(), clean(handlers))
}

// SetHandlers replaces every interceptor.
func (c *ExecutionChain) SetHandlers(handlers ...Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = c.build(nil, clean(handlers), nil)
}

// Execute runs the chain with params.
func (c *ExecutionChain) Execute(params *Parameters) (any, error) {
	return c.ExecuteContext(context.Background(), params)
}

// ExecuteContext runs the chain with params, carrying ctx to the handlers.
func (c *ExecutionChain) ExecuteContext(ctx context.Context, params *Parameters) (any, error) {
	c.mu.RLock()
	snapshot := c.handlers
	c.mu.RUnlock()

	ec := newExecutionContext(ctx, c.root, params, snapshot)
	defer ec.release()
	return ec.Proceed()
}

// interceptors returns the current slice without the root. Callers hold mu.
func (c *ExecutionChain) interceptors() []Handler {
	return c.handlers[:len(c.handlers)-1]
}

func (c *ExecutionChain) build(head, middle, tail []Handler) []Handler {
	out := make([]Handler, 0, len(head)+len(middle)+len(tail)+1)
	out = append(out, head...)
	out = append(out, middle...)
	out = append(out, tail...)
	return append(out, c.root)
}

// clean drops nil handlers and root methods, which only belong at the tail.
func clean(handlers []Handler) []Handler {
	out := make([]Handler, 0, len(handlers))
	for _, h := range handlers {
		if h == nil {
			continue
		}
		if _, isRoot := h.(*RootMethod); isRoot {
			continue
		}
		out = append(out, h)
	}
	return out
}
