package container

import (
	"fmt"
	"slices"
	"sync"

	"github.com/km-arc/go-inject/framework/condition"
	"github.com/km-arc/go-inject/framework/types"
)

// ── Provider ──────────────────────────────────────────────────────────────────

// Factory builds a value. It may resolve its own dependencies from r.
type Factory func(r *Registry) (any, error)

// Provider describes a factory and the capabilities it satisfies.
//
//	&container.Provider{
//	    Type:      Circle.Type(),
//	    AdditionalTypes: []types.TypeIdentifier{Drawable.Type()},
//	    Singleton: true,
//	    Order:     10,
//	    Condition: condition.Property("shapes.circle", "true"),
//	    Origin:    "shapes.Module",
//	    Factory: func(r *container.Registry) (any, error) {
//	        return &circle{radius: 1}, nil
//	    },
//	}
type Provider struct {
	// Type is the produced type. Required.
	Type types.TypeIdentifier

	// AdditionalTypes are further types the produced value satisfies.
	AdditionalTypes []types.TypeIdentifier

	// Singleton caches the first successful result for the registry's
	// lifetime.
	Singleton bool

	// Order ranks providers; lower comes first.
	Order int

	// Qualifiers narrow requests made WithQualifier.
	Qualifiers []string

	// Condition gates eligibility. Nil means always eligible.
	Condition condition.Condition

	// Origin names where the provider was declared, for diagnostics.
	Origin string

	Factory Factory
}

// Types returns the produced type followed by the additional types.
func (p *Provider) Types() []types.TypeIdentifier {
	out := make([]types.TypeIdentifier, 0, 1+len(p.AdditionalTypes))
	out = append(out, p.Type)
	return append(out, p.AdditionalTypes...)
}

// HasQualifier reports whether q is one of p's qualifiers.
func (p *Provider) HasQualifier(q string) bool {
	return slices.Contains(p.Qualifiers, q)
}

func (p *Provider) String() string {
	if p == nil {
		return "<nil>"
	}
	if p.Origin == "" {
		return fmt.Sprintf("%s(order=%d)", p.Type, p.Order)
	}
	return fmt.Sprintf("%s(order=%d, origin=%s)", p.Type, p.Order, p.Origin)
}

func (p *Provider) validate() string {
	switch {
	case p == nil:
		return "nil provider"
	case p.Type.IsZero():
		return "null produced type"
	case p.Factory == nil:
		return "nil factory"
	}
	for i, t := range p.AdditionalTypes {
		if t.IsZero() {
			return fmt.Sprintf("null additional type #%d", i)
		}
	}
	return ""
}

// ── Module ────────────────────────────────────────────────────────────────────

// Module contributes providers to a registry.
//
// Register is called once when the module is added. Boot is called after
// every module has been registered, so it is safe to resolve there.
type Module interface {
	Register(r *Registry) error
	Boot(r *Registry) error
}

// DeferredModule is a Module registered on first use: Register and Boot run
// when a type assignable from one of Provides is first requested.
//
//	func (m *ReportsModule) Provides() []types.TypeIdentifier {
//	    return []types.TypeIdentifier{Reporter.Type()}
//	}
//
// A module returning no types is registered immediately.
type DeferredModule interface {
	Module
	Provides() []types.TypeIdentifier
}

// BaseModule is an embeddable no-op Boot.
//
//	type ShapesModule struct{ container.BaseModule }
//	func (m *ShapesModule) Register(r *container.Registry) error { ... }
type BaseModule struct{}

// Boot implements Module.
func (BaseModule) Boot(*Registry) error { return nil }

// descriptors is the Module handed over by a discovery step.
type descriptors struct {
	BaseModule
	name      string
	providers []*Provider
}

// Descriptors wraps an already discovered provider list as a Module.
func Descriptors(name string, providers ...*Provider) Module {
	return &descriptors{name: name, providers: providers}
}

func (d *descriptors) Register(r *Registry) error {
	if err := r.Register(d.providers...); err != nil {
		return fmt.Errorf("module %s: %w", d.name, err)
	}
	return nil
}

// ── ModuleRegistry ────────────────────────────────────────────────────────────

// ModuleRegistry registers and boots Modules against one Registry.
type ModuleRegistry struct {
	registry   *Registry
	mu         sync.Mutex
	modules    []Module
	registered map[Module]bool
	deferred   map[Module]*deferral
	booted     bool
}

// NewModuleRegistry creates a module registry bound to r.
func NewModuleRegistry(r *Registry) *ModuleRegistry {
	return &ModuleRegistry{
		registry:   r,
		registered: make(map[Module]bool),
		deferred:   make(map[Module]*deferral),
	}
}

// Register adds a module and runs its Register phase. Adding the same module
// twice is a no-op; a module whose Register failed may be added again.
// Modules added after Boot are booted immediately. A DeferredModule is only
// recorded; it registers on the first request for one of its types.
func (m *ModuleRegistry) Register(mod Module) error {
	m.mu.Lock()
	if m.registered[mod] || m.deferred[mod] != nil {
		m.mu.Unlock()
		return nil
	}
	if dm, ok := mod.(DeferredModule); ok {
		if provides := dm.Provides(); len(provides) > 0 {
			d := &deferral{
				provides: slices.Clone(provides),
				register: func() (bool, error) { return m.add(mod) },
				boot:     func() error { return mod.Boot(m.registry) },
			}
			m.deferred[mod] = d
			m.mu.Unlock()
			m.registry.deferUntil(d)
			return nil
		}
	}
	m.mu.Unlock()

	booted, err := m.add(mod)
	if err != nil {
		return err
	}
	if booted {
		return mod.Boot(m.registry)
	}
	return nil
}

// add runs mod's Register phase and records it. It reports whether the
// registry is already booted, in which case the caller boots mod.
func (m *ModuleRegistry) add(mod Module) (bool, error) {
	if err := mod.Register(m.registry); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered[mod] = true
	m.modules = append(m.modules, mod)
	return m.booted, nil
}

// Boot runs the Boot phase of every registered module, in registration
// order. Deferred modules not loaded yet are booted when they load.
// Subsequent calls are no-ops.
func (m *ModuleRegistry) Boot() error {
	m.mu.Lock()
	if m.booted {
		m.mu.Unlock()
		return nil
	}
	m.booted = true
	modules := slices.Clone(m.modules)
	m.mu.Unlock()

	for _, mod := range modules {
		if err := mod.Boot(m.registry); err != nil {
			return err
		}
	}
	return nil
}

// Booted reports whether Boot has been called.
func (m *ModuleRegistry) Booted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.booted
}

// Modules returns the registered modules, deferred ones once loaded.
func (m *ModuleRegistry) Modules() []Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.modules)
}

// Pending returns the deferred modules still waiting for a request.
func (m *ModuleRegistry) Pending() []Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Module
	for mod, d := range m.deferred {
		if !d.loaded.Load() {
			out = append(out, mod)
		}
	}
	return out
}
