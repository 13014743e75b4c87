package container

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/condition"
	"github.com/km-arc/go-inject/framework/types"
)

// ResolvedHook runs on every freshly produced instance before it is returned
// (and, for singletons, cached). It may return a decorated replacement.
type ResolvedHook func(p *Provider, instance any) (any, error)

// entry is a registered provider plus its singleton slot.
type entry struct {
	provider *Provider
	seq      int

	mu       sync.Mutex
	ready    atomic.Bool
	instance any
}

// ── Registry ──────────────────────────────────────────────────────────────────

// Registry indexes providers by type and resolves requests against them.
//
// Registration and resolution may overlap: the index is guarded by a
// read-write lock. Singleton slots have their own locks so a factory may
// resolve its dependencies from the same registry.
//
// Factories receive a view of the registry that remembers which providers
// are being produced, so a provider that needs itself fails with a
// *CycleError instead of blocking.
type Registry struct {
	*state
	stack []*entry // providers under construction, outermost first
}

type state struct {
	mu       sync.RWMutex
	entries  []*entry
	index    map[string][]*entry // raw class key → entries, registration order
	hooks    []ResolvedHook
	deferred []*deferral
	strategy Strategy
	env      condition.Environment
	logger   *zap.Logger

	createdMu sync.Mutex
	created   []*entry // singletons in creation order
}

// Option configures a Registry.
type Option func(*Registry)

// WithStrategy sets the default conflict-resolution strategy.
func WithStrategy(s Strategy) Option {
	return func(r *Registry) { r.strategy = s }
}

// WithEnvironment sets the environment conditions are evaluated against.
func WithEnvironment(env condition.Environment) Option {
	return func(r *Registry) {
		if env != nil {
			r.env = env
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates an empty registry using DirectMatch and an empty environment.
func New(opts ...Option) *Registry {
	r := &Registry{state: &state{
		index:    make(map[string][]*entry),
		strategy: DirectMatch,
		env:      condition.MapEnvironment{},
		logger:   zap.NewNop(),
	}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Strategy returns the default strategy.
func (r *Registry) Strategy() Strategy { return r.strategy }

// Environment returns the environment conditions are evaluated against.
func (r *Registry) Environment() condition.Environment { return r.env }

// ── Registration ──────────────────────────────────────────────────────────────

// Register validates and indexes a batch of providers. If any provider is
// malformed nothing from the batch is indexed and a *RegistrationError is
// returned.
//
// A provider is indexed under the raw class of each of its types and every
// supertype of those classes.
func (r *Registry) Register(providers ...*Provider) error {
	for i, p := range providers {
		if reason := p.validate(); reason != "" {
			return &RegistrationError{Index: i, Provider: p, Reason: reason}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range providers {
		e := &entry{provider: p, seq: len(r.entries)}
		r.entries = append(r.entries, e)
		for _, key := range indexKeys(p) {
			r.index[key] = append(r.index[key], e)
		}
		r.logger.Debug("provider registered",
			zap.Stringer("type", p.Type),
			zap.Int("order", p.Order),
			zap.Bool("singleton", p.Singleton),
			zap.String("origin", p.Origin),
		)
	}
	return nil
}

func indexKeys(p *Provider) []string {
	var keys []string
	seen := map[string]bool{}
	for _, t := range p.Types() {
		for _, c := range t.Raw().Ancestors() {
			if k := c.Key(); !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// OnResolved registers a hook run on every freshly produced instance.
func (r *Registry) OnResolved(hook ResolvedHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Providers returns every registered provider in registration order.
func (r *Registry) Providers() []*Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Provider, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.provider
	}
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Get resolves id to a single instance.
//
// Providers assignable to id are filtered by qualifier and condition. With no
// provider left the error matches ErrNotFound; with several the strategy
// decides, failing with ErrAmbiguous. A failing factory yields ErrInstantiation.
func (r *Registry) Get(id types.TypeIdentifier, opts ...ResolveOption) (any, error) {
	if err := r.loadDeferred(id); err != nil {
		return nil, err
	}
	o := r.options(opts)
	e, err := r.resolve(id, o)
	if err != nil {
		return nil, err
	}
	return r.instantiate(e, id)
}

// TryGet is Get that reports "nothing suitable" as ok == false instead of an
// error. Instantiation failures are still returned.
func (r *Registry) TryGet(id types.TypeIdentifier, opts ...ResolveOption) (any, bool, error) {
	inst, err := r.Get(id, opts...)
	switch {
	case err == nil:
		return inst, true, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAmbiguous):
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// GetAll instantiates every eligible provider for id, ordered by Order then
// registration. No strategy is applied. The first failure aborts the call.
func (r *Registry) GetAll(id types.TypeIdentifier, opts ...ResolveOption) ([]any, error) {
	if err := r.loadDeferred(id); err != nil {
		return nil, err
	}
	o := r.options(opts)
	eligible, _ := r.collect(id, o)
	out := make([]any, 0, len(eligible))
	for _, m := range eligible {
		inst, err := r.instantiate(m.entry, id)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// GetProvider returns a lazy handle that resolves id on each Get. The handle
// resolves from the top of the registry, not from inside the factory that
// asked for it, so holding a handle to a dependent type is not a cycle.
func (r *Registry) GetProvider(id types.TypeIdentifier, opts ...ResolveOption) *Lazy {
	return &Lazy{registry: &Registry{state: r.state}, id: id, opts: slices.Clone(opts)}
}

func (r *Registry) resolve(id types.TypeIdentifier, o resolveOptions) (*entry, error) {
	eligible, considered := r.collect(id, o)

	switch len(eligible) {
	case 0:
		return nil, &ResolutionError{Kind: ErrNotFound, Type: id, Strategy: o.strategy, Candidates: considered}
	case 1:
		return eligible[0].entry, nil
	}

	chosen, ok := o.strategy.choose(eligible)
	if !ok {
		r.logger.Warn("ambiguous providers",
			zap.Stringer("type", id),
			zap.Stringer("strategy", o.strategy),
			zap.Int("candidates", len(eligible)),
		)
		return nil, &ResolutionError{Kind: ErrAmbiguous, Type: id, Strategy: o.strategy, Candidates: considered}
	}
	r.logger.Debug("provider selected",
		zap.Stringer("type", id),
		zap.Stringer("strategy", o.strategy),
		zap.Stringer("provider", chosen.entry.provider),
	)
	return chosen.entry, nil
}

// collect returns the eligible providers for id sorted by (Order,
// registration), plus every assignable provider as a diagnostic Candidate.
func (r *Registry) collect(id types.TypeIdentifier, o resolveOptions) ([]match, []Candidate) {
	if id.IsZero() {
		return nil, nil
	}

	r.mu.RLock()
	entries := slices.Clone(r.index[id.Raw().Key()])
	r.mu.RUnlock()

	slices.SortStableFunc(entries, func(a, b *entry) int {
		if c := cmp.Compare(a.provider.Order, b.provider.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	var (
		eligible   []match
		considered []Candidate
	)
	for _, e := range entries {
		p := e.provider
		assignable, exact := false, false
		for _, t := range p.Types() {
			if id.IsAssignableFrom(t) {
				assignable = true
				exact = exact || id.ExactlyEquals(t)
			}
		}
		if !assignable {
			continue
		}

		c := Candidate{Type: p.Type, Order: p.Order, Origin: p.Origin, Exact: exact}
		switch {
		case o.qualifier != "" && !p.HasQualifier(o.qualifier):
			c.Reason = fmt.Sprintf("qualifier %q not declared", o.qualifier)
		case !condition.Matches(p.Condition, r.env):
			c.Reason = fmt.Sprintf("condition %s not met", p.Condition)
		default:
			c.Eligible = true
			eligible = append(eligible, match{entry: e, exact: exact})
		}
		considered = append(considered, c)
	}
	return eligible, considered
}

// ── Instantiation ─────────────────────────────────────────────────────────────

func (r *Registry) instantiate(e *entry, id types.TypeIdentifier) (any, error) {
	if e.provider.Singleton && e.ready.Load() {
		return e.instance, nil
	}

	if i := slices.Index(r.stack, e); i >= 0 {
		path := make([]*Provider, 0, len(r.stack)-i+1)
		for _, s := range r.stack[i:] {
			path = append(path, s.provider)
		}
		cycle := &CycleError{Path: append(path, e.provider)}
		r.logger.Error("dependency cycle", zap.Stringer("type", id), zap.Error(cycle))
		return nil, &ResolutionError{Kind: ErrInstantiation, Type: id, Provider: e.provider, Err: cycle}
	}

	if !e.provider.Singleton {
		return r.produce(e, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ready.Load() {
		return e.instance, nil
	}

	inst, err := r.produce(e, id)
	if err != nil {
		return nil, err
	}
	e.instance = inst
	e.ready.Store(true)

	r.createdMu.Lock()
	r.created = append(r.created, e)
	r.createdMu.Unlock()

	return inst, nil
}

// produce runs the factory and the resolved hooks. Panics are converted to
// errors.
func (r *Registry) produce(e *entry, id types.TypeIdentifier) (inst any, err error) {
	p := e.provider
	fail := func(cause error) error {
		r.logger.Error("provider failed",
			zap.Stringer("type", id),
			zap.Stringer("provider", p),
			zap.Error(cause),
		)
		return &ResolutionError{Kind: ErrInstantiation, Type: id, Provider: p, Err: cause}
	}

	defer func() {
		if rec := recover(); rec != nil {
			inst, err = nil, fail(fmt.Errorf("panic: %v", rec))
		}
	}()

	inst, err = p.Factory(r.within(e))
	if err != nil {
		return nil, fail(err)
	}
	if inst == nil {
		return nil, fail(errors.New("factory returned nil"))
	}

	r.mu.RLock()
	hooks := slices.Clone(r.hooks)
	r.mu.RUnlock()

	for _, hook := range hooks {
		inst, err = hook(p, inst)
		if err != nil {
			return nil, fail(err)
		}
		if inst == nil {
			return nil, fail(errors.New("resolved hook returned nil"))
		}
	}
	return inst, nil
}

// within returns the view handed to e's factory.
func (r *Registry) within(e *entry) *Registry {
	stack := make([]*entry, len(r.stack), len(r.stack)+1)
	copy(stack, r.stack)
	return &Registry{state: r.state, stack: append(stack, e)}
}

// ── Teardown ──────────────────────────────────────────────────────────────────

// Close drops every cached singleton, closing those that implement io.Closer
// in reverse creation order. Providers stay registered.
func (r *Registry) Close() error {
	r.createdMu.Lock()
	created := r.created
	r.created = nil
	r.createdMu.Unlock()

	var errs []error
	for i := len(created) - 1; i >= 0; i-- {
		e := created[i]
		e.mu.Lock()
		inst := e.instance
		e.instance = nil
		e.ready.Store(false)
		e.mu.Unlock()

		if c, ok := inst.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", e.provider, err))
			}
		}
	}
	r.logger.Debug("registry closed", zap.Int("singletons", len(created)))
	return errors.Join(errs...)
}
