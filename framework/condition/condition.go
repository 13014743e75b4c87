package condition

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrImmutable is returned when a child is added to a leaf condition.
var ErrImmutable = errors.New("condition: cannot compose an immutable condition")

// ── Environment ───────────────────────────────────────────────────────────────

// Environment is the key-value view evaluators consult.
type Environment interface {
	Lookup(key string) (string, bool)
}

// MapEnvironment is an Environment backed by a plain map.
type MapEnvironment map[string]string

// Lookup implements Environment.
func (m MapEnvironment) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// ── Metadata / Evaluator ──────────────────────────────────────────────────────

// Metadata carries the attributes declared alongside an evaluator.
type Metadata map[string]string

// Get returns the attribute or fallback when it is absent or empty.
func (m Metadata) Get(key, fallback string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Evaluator decides one condition given its metadata.
type Evaluator interface {
	Evaluate(env Environment, meta Metadata) bool
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(env Environment, meta Metadata) bool

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(env Environment, meta Metadata) bool { return f(env, meta) }

// ── Condition ─────────────────────────────────────────────────────────────────

// Condition is a boolean expression gating a provider's eligibility. It is
// evaluated fresh on every resolution attempt.
type Condition interface {
	// Matches evaluates the expression against env.
	Matches(env Environment) bool

	// Add appends a child. Leaves return ErrImmutable.
	Add(child Condition) error

	String() string
}

// Matches evaluates c, treating nil as always eligible.
func Matches(c Condition, env Environment) bool {
	if c == nil {
		return true
	}
	return c.Matches(env)
}

// ── Constant ──────────────────────────────────────────────────────────────────

type constant bool

// True and False are the constant leaves.
var (
	True  Condition = constant(true)
	False Condition = constant(false)
)

// Constant returns True or False.
func Constant(v bool) Condition {
	if v {
		return True
	}
	return False
}

func (c constant) Matches(Environment) bool { return bool(c) }
func (c constant) Add(Condition) error      { return ErrImmutable }
func (c constant) String() string {
	if c {
		return "true"
	}
	return "false"
}

// ── Single ────────────────────────────────────────────────────────────────────

type single struct {
	evaluator Evaluator
	meta      Metadata
}

// Single wraps one evaluator and its metadata.
func Single(e Evaluator, meta Metadata) Condition {
	return &single{evaluator: e, meta: meta}
}

func (s *single) Matches(env Environment) bool {
	return s.evaluator.Evaluate(env, s.meta)
}

func (s *single) Add(Condition) error { return ErrImmutable }

func (s *single) String() string {
	return fmt.Sprintf("%s%s", evaluatorName(s.evaluator), formatMeta(s.meta))
}

// ── All / Any ─────────────────────────────────────────────────────────────────

// Group is a composite condition: All (logical AND) or Any (logical OR).
type Group struct {
	mu       sync.RWMutex
	or       bool
	children []Condition
}

// All matches when every child matches. It stops at the first child that
// does not. An empty All matches.
func All(children ...Condition) *Group {
	return newGroup(false, children)
}

// Any matches when at least one child matches. It stops at the first child
// that does. An empty Any does not match.
func Any(children ...Condition) *Group {
	return newGroup(true, children)
}

func newGroup(or bool, children []Condition) *Group {
	g := &Group{or: or}
	for _, c := range children {
		if c != nil {
			g.children = append(g.children, c)
		}
	}
	return g
}

// Matches implements Condition.
func (g *Group) Matches(env Environment) bool {
	g.mu.RLock()
	children := g.children
	g.mu.RUnlock()

	for _, c := range children {
		if c.Matches(env) == g.or {
			return g.or
		}
	}
	return !g.or
}

// Add implements Condition.
func (g *Group) Add(child Condition) error {
	if child == nil {
		return errors.New("condition: nil child")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	next := make([]Condition, len(g.children), len(g.children)+1)
	copy(next, g.children)
	g.children = append(next, child)
	return nil
}

// Len returns the number of children.
func (g *Group) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.children)
}

func (g *Group) String() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	op := "all"
	if g.or {
		op = "any"
	}
	parts := make([]string, len(g.children))
	for i, c := range g.children {
		parts[i] = c.String()
	}
	return op + "(" + strings.Join(parts, ", ") + ")"
}
