package container

import (
	"errors"
	"fmt"
	"strings"

	"github.com/km-arc/go-inject/framework/types"
)

// ── Sentinels ─────────────────────────────────────────────────────────────────

// Sentinel errors, matched with errors.Is.
var (
	// ErrRegistration marks a malformed provider. The whole batch is rejected.
	ErrRegistration = errors.New("invalid provider registration")

	// ErrNotFound means no eligible provider exists for the requested type.
	ErrNotFound = errors.New("no eligible provider")

	// ErrAmbiguous means several providers are eligible and the strategy
	// could not pick one.
	ErrAmbiguous = errors.New("ambiguous providers")

	// ErrInstantiation means the chosen provider failed to produce a value.
	ErrInstantiation = errors.New("provider failed")

	// ErrTypeMismatch means the produced value is not of the Go type the
	// caller asked for.
	ErrTypeMismatch = errors.New("resolved value type mismatch")

	// ErrCircularDependency means a provider needs its own value, directly or
	// through the providers its factory resolves.
	ErrCircularDependency = errors.New("circular dependency")
)

// ── RegistrationError ─────────────────────────────────────────────────────────

// RegistrationError reports the first malformed provider of a batch.
type RegistrationError struct {
	Index    int
	Provider *Provider
	Reason   string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register provider #%d (%s): %s", e.Index, e.Provider, e.Reason)
}

// Is matches ErrRegistration.
func (e *RegistrationError) Is(target error) bool { return target == ErrRegistration }

// ── CycleError ────────────────────────────────────────────────────────────────

// CycleError lists the providers of a dependency cycle, outermost first. The
// last element is the provider requested again.
type CycleError struct {
	Path []*Provider
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, p := range e.Path {
		parts[i] = p.Type.String()
	}
	return fmt.Sprintf("%v: %s", ErrCircularDependency, strings.Join(parts, " -> "))
}

// Is matches ErrCircularDependency.
func (e *CycleError) Is(target error) bool { return target == ErrCircularDependency }

// ── ResolutionError ───────────────────────────────────────────────────────────

// Candidate describes one provider considered while resolving a request.
type Candidate struct {
	Type     types.TypeIdentifier
	Order    int
	Origin   string
	Exact    bool
	Eligible bool
	Reason   string // why an ineligible candidate was excluded
}

func (c Candidate) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (order=%d", c.Type, c.Order)
	if c.Origin != "" {
		fmt.Fprintf(&b, ", origin=%s", c.Origin)
	}
	if c.Exact {
		b.WriteString(", exact")
	}
	if !c.Eligible && c.Reason != "" {
		fmt.Fprintf(&b, ", excluded: %s", c.Reason)
	}
	b.WriteByte(')')
	return b.String()
}

// ResolutionError reports a failed Get. Kind is one of ErrNotFound,
// ErrAmbiguous, ErrInstantiation or ErrTypeMismatch.
type ResolutionError struct {
	Kind       error
	Type       types.TypeIdentifier
	Strategy   Strategy
	Provider   *Provider
	Candidates []Candidate
	Err        error
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "resolve %s: %v", e.Type, e.Kind)
	if e.Kind == ErrAmbiguous {
		fmt.Fprintf(&b, " under %s", e.Strategy)
	}
	if e.Provider != nil {
		fmt.Fprintf(&b, ": provider %s", e.Provider)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Candidates) > 0 {
		fmt.Fprintf(&b, "; candidates: [%s]", joinCandidates(e.Candidates))
	}
	return b.String()
}

// Is matches the error kind.
func (e *ResolutionError) Is(target error) bool { return target == e.Kind }

// Unwrap returns the provider's own error, if any.
func (e *ResolutionError) Unwrap() error { return e.Err }

func joinCandidates(cs []Candidate) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
