// Package types describes capabilities as generic-aware type identifiers.
//
// The container never inspects Go values to decide what they are. Every
// provider declares the types it produces as TypeIdentifiers built from
// declared Classes, and every request names the type it wants the same way.
// Matching is then a pure function of the two identifiers:
//
//	Shape  := types.Declare("shapes.Shape")
//	Circle := types.Declare("shapes.Circle", types.Extends(Shape))
//
//	Shape.Type().IsAssignableFrom(Circle.Type()) // true
//	Circle.Type().IsAssignableFrom(Shape.Type()) // false
//
// Primitive classes and their boxed counterparts (types.Int / types.IntBox,
// ...) are interchangeable everywhere, including inside generic arguments, so
// callers never have to track boxing.
package types
