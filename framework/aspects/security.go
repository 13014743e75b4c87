package aspects

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/km-arc/go-inject/framework/aspect"
)

// SecuredAnnotation marks methods guarded by Security. Its "roles" attribute
// lists the accepted roles, comma separated; empty means any authenticated
// principal.
const SecuredAnnotation = "secured"

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Principal is the caller identity carried in the call's context.
type Principal struct {
	Name  string
	Roles []string
}

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role string) bool {
	return slices.ContainsFunc(p.Roles, func(r string) bool { return strings.EqualFold(r, role) })
}

type principalKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached to ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// AccessError reports a rejected call.
type AccessError struct {
	Method    string
	Principal string
	Required  []string
	Err       error
}

func (e *AccessError) Error() string {
	if e.Principal == "" {
		return fmt.Sprintf("call %s: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("call %s: %v: %s lacks roles %v", e.Method, e.Err, e.Principal, e.Required)
}

func (e *AccessError) Unwrap() error { return e.Err }

// Security rejects calls of secured methods whose principal lacks a
// required role. Rejected calls never reach later handlers.
type Security struct{}

// NewSecurity creates the security handler.
func NewSecurity() *Security { return &Security{} }

func (*Security) Order() int { return OrderSecurity }

func (*Security) AppliesTo(m *aspect.RootMethod) bool { return m.HasAnnotation(SecuredAnnotation) }

func (*Security) Process(ctx *aspect.ExecutionContext) (any, error) {
	m := ctx.Method()
	a, _ := m.Annotation(SecuredAnnotation)
	required := splitList(a.Attr("roles", ""))

	p, ok := PrincipalFrom(ctx.Context())
	if !ok {
		return nil, &AccessError{Method: m.FullName(), Required: required, Err: ErrUnauthenticated}
	}
	if len(required) > 0 && !slices.ContainsFunc(required, p.HasRole) {
		return nil, &AccessError{Method: m.FullName(), Principal: p.Name, Required: required, Err: ErrForbidden}
	}
	return ctx.Proceed()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
