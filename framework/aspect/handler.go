package aspect

import (
	"github.com/km-arc/go-inject/framework/types"
)

// HandlerClass is the capability aspect handlers are registered under.
var HandlerClass = types.Declare("aspect.Handler")

// Handler is one interceptor of an execution chain.
//
// Process runs with the per-call context. To continue the chain it calls
// ctx.Proceed() and usually returns its result; a handler that returns
// without proceeding ends the call there and later handlers, the root method
// included, never run.
type Handler interface {
	// Order ranks handlers within a chain; lower runs first (outermost).
	Order() int

	// AppliesTo reports whether the handler takes part in m's chain. It is
	// asked once, when the chain is built.
	AppliesTo(m *RootMethod) bool

	Process(ctx *ExecutionContext) (any, error)
}

// ProcessFunc is the body of a FuncHandler.
type ProcessFunc func(ctx *ExecutionContext) (any, error)

// FuncHandler is a Handler built from functions.
//
//	timing := aspect.NewHandler(0, func(ctx *aspect.ExecutionContext) (any, error) {
//	    start := time.Now()
//	    defer func() { log.Println(ctx.Method(), time.Since(start)) }()
//	    return ctx.Proceed()
//	})
type FuncHandler struct {
	order   int
	applies func(*RootMethod) bool
	process ProcessFunc
}

// NewHandler builds a handler that applies to every method.
func NewHandler(order int, process ProcessFunc) *FuncHandler {
	return &FuncHandler{order: order, process: process}
}

// When restricts the handler to methods matching pred.
func (h *FuncHandler) When(pred func(*RootMethod) bool) *FuncHandler {
	h.applies = pred
	return h
}

// Order implements Handler.
func (h *FuncHandler) Order() int { return h.order }

// AppliesTo implements Handler.
func (h *FuncHandler) AppliesTo(m *RootMethod) bool {
	return h.applies == nil || h.applies(m)
}

// Process implements Handler.
func (h *FuncHandler) Process(ctx *ExecutionContext) (any, error) {
	return h.process(ctx)
}

// Annotated is an AppliesTo predicate matching methods carrying annotation
// name.
func Annotated(name string) func(*RootMethod) bool {
	return func(m *RootMethod) bool { return m.HasAnnotation(name) }
}
