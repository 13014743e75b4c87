package aspect

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/container"
)

// HandlerSource supplies the candidate handlers for new chains.
type HandlerSource interface {
	Handlers() ([]Handler, error)
}

// HandlerSourceFunc adapts a function to HandlerSource.
type HandlerSourceFunc func() ([]Handler, error)

// Handlers implements HandlerSource.
func (f HandlerSourceFunc) Handlers() ([]Handler, error) { return f() }

// StaticHandlers is a HandlerSource over a fixed list.
func StaticHandlers(handlers ...Handler) HandlerSource {
	list := slices.Clone(handlers)
	return HandlerSourceFunc(func() ([]Handler, error) { return list, nil })
}

// RegistrySource resolves handlers from a container: every eligible provider
// of HandlerClass.
func RegistrySource(r *container.Registry) HandlerSource {
	return HandlerSourceFunc(func() ([]Handler, error) {
		return container.GetAll[Handler](r, HandlerClass.Type())
	})
}

// Advisable is implemented by values that route their methods through
// execution chains. They receive the chain registry when resolved and should
// look their chains up lazily: Advise may run while a chain is being built.
type Advisable interface {
	Advise(chains *ChainRegistry) error
}

// ── ChainRegistry ─────────────────────────────────────────────────────────────

// ChainRegistry builds and caches one ExecutionChain per RootMethod.
//
// Each method has its own build slot: building one chain never blocks
// lookups of others, so handler factories may use the registry themselves.
type ChainRegistry struct {
	mu     sync.RWMutex
	chains map[*RootMethod]*slot
	source HandlerSource
	logger *zap.Logger
}

// slot holds the chain of one method. mu serializes its build.
type slot struct {
	mu    sync.Mutex
	chain atomic.Pointer[ExecutionChain]
}

// ChainOption configures a ChainRegistry.
type ChainOption func(*ChainRegistry)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ChainOption {
	return func(r *ChainRegistry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewChainRegistry creates a registry building chains from source.
func NewChainRegistry(source HandlerSource, opts ...ChainOption) *ChainRegistry {
	if source == nil {
		source = StaticHandlers()
	}
	r := &ChainRegistry{
		chains: make(map[*RootMethod]*slot),
		source: source,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetExecutionChain returns the chain for root, building it on first use.
// The chain holds every source handler whose AppliesTo(root) is true, sorted
// by Order (stable), followed by root.
func (r *ChainRegistry) GetExecutionChain(root *RootMethod) (*ExecutionChain, error) {
	if root == nil {
		return nil, fmt.Errorf("execution chain: nil root method")
	}

	s := r.slot(root)
	if chain := s.chain.Load(); chain != nil {
		return chain, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if chain := s.chain.Load(); chain != nil {
		return chain, nil
	}

	all, err := r.source.Handlers()
	if err != nil {
		return nil, fmt.Errorf("execution chain %s: %w", root, err)
	}

	applicable := make([]Handler, 0, len(all))
	for _, h := range all {
		if h != nil && h.AppliesTo(root) {
			applicable = append(applicable, h)
		}
	}
	slices.SortStableFunc(applicable, func(a, b Handler) int {
		return cmp.Compare(a.Order(), b.Order())
	})

	chain := NewExecutionChain(root, applicable...)
	s.chain.Store(chain)
	r.logger.Debug("execution chain built",
		zap.Stringer("method", root),
		zap.Int("handlers", chain.Len()),
	)
	return chain, nil
}

// slot returns the build slot of root, creating it if needed.
func (r *ChainRegistry) slot(root *RootMethod) *slot {
	r.mu.RLock()
	s, ok := r.chains[root]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.chains[root]; ok {
		return s
	}
	s = &slot{}
	r.chains[root] = s
	return s
}

// Invoke routes a call of root through its chain.
func (r *ChainRegistry) Invoke(ctx context.Context, root *RootMethod, params *Parameters) (any, error) {
	chain, err := r.GetExecutionChain(root)
	if err != nil {
		return nil, err
	}
	return chain.ExecuteContext(ctx, params)
}

// Invalidate drops the cached chain of root; the next lookup rebuilds it.
func (r *ChainRegistry) Invalidate(root *RootMethod) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.chains, root)
}

// Reset drops every cached chain.
func (r *ChainRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains = make(map[*RootMethod]*slot)
}

// Len returns the number of built chains.
func (r *ChainRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.chains {
		if s.chain.Load() != nil {
			n++
		}
	}
	return n
}

// Weave is a container.ResolvedHook handing the registry to Advisable
// instances.
func (r *ChainRegistry) Weave(p *container.Provider, instance any) (any, error) {
	a, ok := instance.(Advisable)
	if !ok {
		return instance, nil
	}
	if err := a.Advise(r); err != nil {
		return nil, fmt.Errorf("advise %s: %w", p, err)
	}
	return instance, nil
}
