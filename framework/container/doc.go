// Package container provides the provider registry: the IoC core that maps
// requested types to the providers able to produce them.
//
// # Overview
//
// A Provider declares the types it produces, whether its result is a
// singleton, an Order, optional qualifiers and an optional load condition.
// Providers are handed to a Registry (directly or through a Module) at
// startup; the registry indexes them by type.
//
// # Lifecycle
//
//  1. Create:   r := container.New(container.WithStrategy(container.BestMatch))
//  2. Register: r.Register(providers...)   // a malformed provider rejects the batch
//  3. Resolve:  r.Get(Shape.Type())       // any goroutine, any time
//  4. Teardown: r.Close()                 // closes cached singletons
//
// # Resolution
//
//	shape, err := container.Get[Shape](r, ShapeType)
//	if errors.Is(err, container.ErrNotFound) { ... }
//
// For a request the registry
//
//  1. collects the providers whose declared types are assignable to it,
//  2. drops those whose qualifier or condition does not match,
//  3. fails with ErrNotFound when none remain,
//  4. uses the only one left, or
//  5. asks the Strategy to pick one, failing with ErrAmbiguous when it can't.
//
// Errors list every provider considered, with its order, origin and why it
// was excluded.
//
// # Strategies
//
//	DirectMatch       exactly one exact-type provider (default)
//	FirstDirectMatch  the first exact-type provider
//	BestMatch         exact before assignable, then lower Order, then registration
//	First             the first candidate
//	None              always fail
//
// # Singletons
//
// A singleton factory runs at most once even when many goroutines request it
// for the first time together. Failures are not cached: the next request
// runs the factory again.
//
// A factory that requests its own provider again, directly or through other
// factories, gets an error matching ErrCircularDependency.
//
// # Modules
//
//	type ShapesModule struct{ container.BaseModule }
//
//	func (m *ShapesModule) Register(r *container.Registry) error {
//	    return r.Register(&container.Provider{Type: ShapeType, Factory: newCircle})
//	}
//
//	modules := container.NewModuleRegistry(r)
//	modules.Register(&ShapesModule{})
//	modules.Boot()
//
// A module that also implements DeferredModule is registered on the first
// request for one of the types it provides.
package container
