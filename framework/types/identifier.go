package types

import "strings"

// TypeIdentifier is the canonical, generic-aware description of a type: a raw
// Class plus its ordered generic arguments.
//
// It is an immutable value. The zero TypeIdentifier is the "null type"; it is
// equal only to itself and assignable from nothing.
//
//	listOfInts := types.Of(List, types.Int.Type())
//	listOfInts.Equals(types.Of(List, types.IntBox.Type())) // true
type TypeIdentifier struct {
	raw      *Class
	generics []TypeIdentifier
}

// Of builds an identifier for raw instantiated with generics.
func Of(raw *Class, generics ...TypeIdentifier) TypeIdentifier {
	t := TypeIdentifier{raw: raw}
	if len(generics) > 0 {
		t.generics = make([]TypeIdentifier, len(generics))
		copy(t.generics, generics)
	}
	return t
}

// Raw returns the raw class.
func (t TypeIdentifier) Raw() *Class { return t.raw }

// IsZero reports whether t is the null type.
func (t TypeIdentifier) IsZero() bool { return t.raw == nil }

// Generics returns a copy of the generic arguments.
func (t TypeIdentifier) Generics() []TypeIdentifier {
	out := make([]TypeIdentifier, len(t.generics))
	copy(out, t.generics)
	return out
}

// Arity returns the number of declared generic arguments.
func (t TypeIdentifier) Arity() int { return len(t.generics) }

// WithGeneric returns a copy of t with args appended to its generic arguments.
func (t TypeIdentifier) WithGeneric(args ...TypeIdentifier) TypeIdentifier {
	out := TypeIdentifier{raw: t.raw, generics: make([]TypeIdentifier, 0, len(t.generics)+len(args))}
	out.generics = append(out.generics, t.generics...)
	out.generics = append(out.generics, args...)
	return out
}

// ── Matching ──────────────────────────────────────────────────────────────────

// Equals reports whether t and other denote the same type. Generic arguments
// are compared positionally up to the shorter list: the side declaring fewer
// arguments matches any instantiation of the rest. Equals is symmetric.
func (t TypeIdentifier) Equals(other TypeIdentifier) bool {
	if t.IsZero() || other.IsZero() {
		return t.IsZero() && other.IsZero()
	}
	if !t.raw.Same(other.raw) {
		return false
	}
	n := min(len(t.generics), len(other.generics))
	for i := 0; i < n; i++ {
		if !t.generics[i].Equals(other.generics[i]) {
			return false
		}
	}
	return true
}

// ExactlyEquals is Equals without the wildcard fallback: both sides must
// declare the same number of generic arguments, recursively.
func (t TypeIdentifier) ExactlyEquals(other TypeIdentifier) bool {
	if t.IsZero() || other.IsZero() {
		return t.IsZero() && other.IsZero()
	}
	if !t.raw.Same(other.raw) || len(t.generics) != len(other.generics) {
		return false
	}
	for i := range t.generics {
		if !t.generics[i].ExactlyEquals(other.generics[i]) {
			return false
		}
	}
	return true
}

// IsAssignableFrom reports whether a value of type other can be used where t
// is expected.
//
// The raw class of other must be t's raw class or a subclass of it. Then:
//   - t without generic arguments accepts any instantiation (raw fallback);
//   - other declaring fewer arguments than t is rejected;
//   - otherwise t's arguments are compared positionally with Equals.
//
// Unlike Equals this is direction-sensitive: List is assignable from
// List[string] but List[string] is not assignable from List.
func (t TypeIdentifier) IsAssignableFrom(other TypeIdentifier) bool {
	if t.IsZero() || other.IsZero() {
		return false
	}
	if !other.raw.IsSubclassOf(t.raw) {
		return false
	}
	if len(t.generics) == 0 {
		return true
	}
	if len(other.generics) < len(t.generics) {
		return false
	}
	for i := range t.generics {
		if !t.generics[i].Equals(other.generics[i]) {
			return false
		}
	}
	return true
}

// IsInstanceOf reports whether t can be used where other is expected.
func (t TypeIdentifier) IsInstanceOf(other TypeIdentifier) bool {
	return other.IsAssignableFrom(t)
}

// ── Formatting ────────────────────────────────────────────────────────────────

// String renders t as Name[Arg, ...].
func (t TypeIdentifier) String() string {
	if t.IsZero() {
		return "<nil>"
	}
	if len(t.generics) == 0 {
		return t.raw.Name()
	}
	var b strings.Builder
	b.WriteString(t.raw.Name())
	b.WriteByte('[')
	for i, g := range t.generics {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(g.String())
	}
	b.WriteByte(']')
	return b.String()
}
