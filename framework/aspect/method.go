package aspect

import (
	"math"
	"strings"

	"github.com/km-arc/go-inject/framework/types"
)

// Annotation is a named marker on a method, with string attributes.
type Annotation struct {
	Name       string
	Attributes map[string]string
}

// Attr returns an attribute or fallback.
func (a Annotation) Attr(key, fallback string) string {
	if v, ok := a.Attributes[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Param declares one parameter of a method.
type Param struct {
	Name string
	Type types.TypeIdentifier
}

// Body is the real implementation of an intercepted method.
type Body func(ctx *ExecutionContext) (any, error)

// RootMethod is the terminal handler of a chain: the literal method body plus
// the signature handlers inspect to decide whether they apply.
//
// A RootMethod is immutable and identifies its chain: declare it once per
// intercepted method, typically as a field initialised next to the method.
type RootMethod struct {
	owner       string
	name        string
	params      []Param
	annotations []Annotation
	body        Body
}

// MethodOption configures a RootMethod.
type MethodOption func(*RootMethod)

// DeclaredBy names the type declaring the method.
func DeclaredBy(owner string) MethodOption {
	return func(m *RootMethod) { m.owner = owner }
}

// WithParams declares the method parameters.
func WithParams(params ...Param) MethodOption {
	return func(m *RootMethod) { m.params = append(m.params, params...) }
}

// Annotate attaches an annotation. Attributes are given as key, value pairs.
func Annotate(name string, kv ...string) MethodOption {
	return func(m *RootMethod) {
		a := Annotation{Name: name, Attributes: make(map[string]string, len(kv)/2)}
		for i := 0; i+1 < len(kv); i += 2 {
			a.Attributes[kv[i]] = kv[i+1]
		}
		m.annotations = append(m.annotations, a)
	}
}

// NewRootMethod declares an intercepted method.
//
//	render := aspect.NewRootMethod("Render", func(ctx *aspect.ExecutionContext) (any, error) {
//	    return c.render(ctx.Parameters())
//	}, aspect.DeclaredBy("shapes.Circle"), aspect.Annotate("secured", "roles", "admin"))
func NewRootMethod(name string, body Body, opts ...MethodOption) *RootMethod {
	m := &RootMethod{name: name, body: body}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the method name.
func (m *RootMethod) Name() string { return m.name }

// Owner returns the declaring type name.
func (m *RootMethod) Owner() string { return m.owner }

// FullName returns Owner.Name, or Name when the owner is unknown.
func (m *RootMethod) FullName() string {
	if m.owner == "" {
		return m.name
	}
	return m.owner + "." + m.name
}

// Params returns the declared parameters.
func (m *RootMethod) Params() []Param {
	out := make([]Param, len(m.params))
	copy(out, m.params)
	return out
}

// Annotations returns the method's annotations.
func (m *RootMethod) Annotations() []Annotation {
	out := make([]Annotation, len(m.annotations))
	copy(out, m.annotations)
	return out
}

// Annotation looks up an annotation by name.
func (m *RootMethod) Annotation(name string) (Annotation, bool) {
	for _, a := range m.annotations {
		if a.Name == name {
			return a, true
		}
	}
	return Annotation{}, false
}

// HasAnnotation reports whether the method carries annotation name.
func (m *RootMethod) HasAnnotation(name string) bool {
	_, ok := m.Annotation(name)
	return ok
}

// Order implements Handler. The root method always runs last.
func (m *RootMethod) Order() int { return math.MaxInt }

// AppliesTo implements Handler.
func (m *RootMethod) AppliesTo(*RootMethod) bool { return true }

// Process implements Handler by running the body.
func (m *RootMethod) Process(ctx *ExecutionContext) (any, error) {
	return m.body(ctx)
}

// String renders Owner.Name(param Type, ...).
func (m *RootMethod) String() string {
	var b strings.Builder
	b.WriteString(m.FullName())
	b.WriteByte('(')
	for i, p := range m.params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		if !p.Type.IsZero() {
			b.WriteByte(' ')
			b.WriteString(p.Type.String())
		}
	}
	b.WriteByte(')')
	return b.String()
}
