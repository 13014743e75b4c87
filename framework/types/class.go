package types

// ── Class ─────────────────────────────────────────────────────────────────────

// Class is a declared raw type: the part of a type that is left once its
// generic arguments are stripped.
//
// Classes are declared once, usually as package-level variables next to the
// capability they describe, and are compared by name. Names are expected to be
// unique within one registry, so qualify them the way Go qualifies types:
//
//	var (
//	    Shape  = types.Declare("shapes.Shape")
//	    Circle = types.Declare("shapes.Circle", types.Extends(Shape))
//	    List   = types.Declare("collections.List")
//	)
type Class struct {
	name   string
	kind   string // primitive kind, "" for reference classes
	boxed  bool
	supers []*Class
}

// ClassOption configures a Class at declaration time.
type ClassOption func(*Class)

// Extends declares the direct supertypes of a class. Assignability follows
// these edges transitively.
func Extends(supers ...*Class) ClassOption {
	return func(c *Class) {
		for _, s := range supers {
			if s != nil {
				c.supers = append(c.supers, s)
			}
		}
	}
}

// Declare creates a reference class.
func Declare(name string, opts ...ClassOption) *Class {
	c := &Class{name: name}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func primitive(kind string) *Class {
	return &Class{name: kind, kind: kind}
}

func boxed(name, kind string) *Class {
	return &Class{name: name, kind: kind, boxed: true}
}

// ── Primitive classes ─────────────────────────────────────────────────────────

// Primitive classes and their boxed counterparts. A primitive and its box are
// the same raw type for every matching operation, nested generics included.
var (
	Bool    = primitive("bool")
	Byte    = primitive("byte")
	Int     = primitive("int")
	Int16   = primitive("int16")
	Int32   = primitive("int32")
	Int64   = primitive("int64")
	Float32 = primitive("float32")
	Float64 = primitive("float64")
	Rune    = primitive("rune")

	BoolBox    = boxed("BoolBox", "bool")
	ByteBox    = boxed("ByteBox", "byte")
	IntBox     = boxed("IntBox", "int")
	Int16Box   = boxed("Int16Box", "int16")
	Int32Box   = boxed("Int32Box", "int32")
	Int64Box   = boxed("Int64Box", "int64")
	Float32Box = boxed("Float32Box", "float32")
	Float64Box = boxed("Float64Box", "float64")
	RuneBox    = boxed("RuneBox", "rune")
)

// ── Accessors ─────────────────────────────────────────────────────────────────

// Name returns the declared name.
func (c *Class) Name() string { return c.name }

// IsPrimitive reports whether c is an unboxed primitive.
func (c *Class) IsPrimitive() bool { return c.kind != "" && !c.boxed }

// IsBoxed reports whether c is the boxed counterpart of a primitive.
func (c *Class) IsBoxed() bool { return c.boxed }

// Supertypes returns the direct supertypes of c.
func (c *Class) Supertypes() []*Class {
	out := make([]*Class, len(c.supers))
	copy(out, c.supers)
	return out
}

// Key returns the canonical matching key of c. Primitives and boxes share the
// key of their primitive kind.
func (c *Class) Key() string {
	if c.kind != "" {
		return c.kind
	}
	return c.name
}

// Same reports whether a and b denote the same raw type.
func (c *Class) Same(other *Class) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Key() == other.Key()
}

// IsSubclassOf reports whether c is other or reaches other through its
// declared supertypes.
func (c *Class) IsSubclassOf(other *Class) bool {
	if c == nil || other == nil {
		return false
	}
	target := other.Key()
	found := false
	c.walk(func(k *Class) bool {
		if k.Key() == target {
			found = true
			return false
		}
		return true
	})
	return found
}

// Ancestors returns c followed by every transitive supertype, each once.
func (c *Class) Ancestors() []*Class {
	var out []*Class
	c.walk(func(k *Class) bool {
		out = append(out, k)
		return true
	})
	return out
}

// walk visits c and its supertypes breadth-first, once per key, until visit
// returns false. Cyclic declarations terminate.
func (c *Class) walk(visit func(*Class) bool) {
	seen := map[string]bool{}
	queue := []*Class{c}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		if seen[k.Key()] {
			continue
		}
		seen[k.Key()] = true
		if !visit(k) {
			return
		}
		queue = append(queue, k.supers...)
	}
}

// Type returns the non-generic identifier of c.
func (c *Class) Type() TypeIdentifier {
	return Of(c)
}

func (c *Class) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.name
}
