// Package app holds the demo modules: a few shapes whose selection is driven
// by load conditions, and a renderer whose methods run through the aspect
// chains.
package app

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/km-arc/go-inject/framework/aspect"
	"github.com/km-arc/go-inject/framework/aspects"
	"github.com/km-arc/go-inject/framework/condition"
	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/types"
)

// KindProperty selects the shape: circle (default), square or all.
const KindProperty = "shapes.kind"

var (
	ShapeClass    = types.Declare("shapes.Shape")
	CircleClass   = types.Declare("shapes.Circle", types.Extends(ShapeClass))
	SquareClass   = types.Declare("shapes.Square", types.Extends(ShapeClass))
	ListClass     = types.Declare("shapes.List")
	RendererClass = types.Declare("shapes.Renderer")
)

// GalleryType is List[Shape].
var GalleryType = ListClass.Type().WithGeneric(ShapeClass.Type())

type Shape interface {
	Name() string
	Area() float64
}

type Circle struct{ Radius float64 }

func (c *Circle) Name() string  { return "circle" }
func (c *Circle) Area() float64 { return math.Pi * c.Radius * c.Radius }

type Square struct{ Side float64 }

func (s *Square) Name() string  { return "square" }
func (s *Square) Area() float64 { return s.Side * s.Side }

// Gallery is every shape enabled by the current environment.
type Gallery []Shape

// Names returns the shape names in provider order.
func (g Gallery) Names() []string {
	out := make([]string, len(g))
	for i, s := range g {
		out[i] = s.Name()
	}
	return out
}

// ── ShapesModule ──────────────────────────────────────────────────────────────

// ShapesModule registers the shapes and the gallery.
//
// Bound capabilities:
//   - shapes.Circle, shapes.Shape   → *Circle   when shapes.kind is circle, all or unset
//   - shapes.Square, shapes.Shape   → *Square   when shapes.kind is square or all
//   - shapes.List[shapes.Shape]     → Gallery
type ShapesModule struct {
	container.BaseModule
	Radius float64 // default: 1
	Side   float64 // default: 1
}

func (m *ShapesModule) Register(r *container.Registry) error {
	radius, side := m.Radius, m.Side
	if radius == 0 {
		radius = 1
	}
	if side == 0 {
		side = 1
	}

	return r.Register(
		&container.Provider{
			Type:            CircleClass.Type(),
			AdditionalTypes: []types.TypeIdentifier{ShapeClass.Type()},
			Singleton:       true,
			Order:           0,
			Origin:          "circle",
			Condition: condition.Any(
				condition.PropertyOrMissing(KindProperty, "circle"),
				condition.Property(KindProperty, "all"),
			),
			Factory: func(*container.Registry) (any, error) { return &Circle{Radius: radius}, nil },
		},
		&container.Provider{
			Type:            SquareClass.Type(),
			AdditionalTypes: []types.TypeIdentifier{ShapeClass.Type()},
			Singleton:       true,
			Order:           1,
			Origin:          "square",
			Condition: condition.Any(
				condition.Property(KindProperty, "square"),
				condition.Property(KindProperty, "all"),
			),
			Factory: func(*container.Registry) (any, error) { return &Square{Side: side}, nil },
		},
		&container.Provider{
			Type:   GalleryType,
			Origin: "gallery",
			Factory: func(r *container.Registry) (any, error) {
				shapes, err := container.GetAll[Shape](r, ShapeClass.Type())
				if err != nil {
					return nil, err
				}
				return Gallery(shapes), nil
			},
		},
	)
}

// RendererModule binds shapes.Renderer → *Renderer (advised). It is deferred:
// nothing is registered until a renderer is first requested.
type RendererModule struct {
	container.BaseModule
}

// Provides implements container.DeferredModule.
func (m *RendererModule) Provides() []types.TypeIdentifier {
	return []types.TypeIdentifier{RendererClass.Type()}
}

func (m *RendererModule) Register(r *container.Registry) error {
	return r.Register(&container.Provider{
		Type:      RendererClass.Type(),
		Singleton: true,
		Origin:    "renderer",
		Factory: func(r *container.Registry) (any, error) {
			shape, err := container.Get[Shape](r, ShapeClass.Type())
			if err != nil {
				return nil, err
			}
			return NewRenderer(shape), nil
		},
	})
}

// ── Renderer ──────────────────────────────────────────────────────────────────

// Renderer draws one shape. Render and Purge run through execution chains
// once the renderer has been advised.
type Renderer struct {
	shape    Shape
	chains   *aspect.ChainRegistry
	methods  map[string]*aspect.RootMethod
	rendered atomic.Int64
}

func NewRenderer(shape Shape) *Renderer {
	r := &Renderer{shape: shape}
	r.methods = map[string]*aspect.RootMethod{
		"render": aspect.NewRootMethod("Render", r.render,
			aspect.DeclaredBy("shapes.Renderer"),
			aspect.WithParams(aspect.Param{Name: "scale", Type: types.Float64.Type()}),
			aspect.Annotate(aspects.ValidateAnnotation, "scale", "required|gt:0|lte:100"),
		),
		"purge": aspect.NewRootMethod("Purge", r.purge,
			aspect.DeclaredBy("shapes.Renderer"),
			aspect.Annotate(aspects.SecuredAnnotation, "roles", "admin"),
		),
	}
	return r
}

// Advise implements aspect.Advisable.
func (r *Renderer) Advise(chains *aspect.ChainRegistry) error {
	r.chains = chains
	return nil
}

// Shape returns the rendered shape.
func (r *Renderer) Shape() Shape { return r.shape }

// Method returns the intercepted method registered under name.
func (r *Renderer) Method(name string) (*aspect.RootMethod, bool) {
	m, ok := r.methods[strings.ToLower(name)]
	return m, ok
}

// MethodNames lists the intercepted methods.
func (r *Renderer) MethodNames() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Call invokes the named method through its chain.
func (r *Renderer) Call(ctx context.Context, name string, params *aspect.Parameters) (any, error) {
	m, ok := r.Method(name)
	if !ok {
		return nil, fmt.Errorf("renderer: unknown method %q", name)
	}
	if r.chains == nil {
		return nil, fmt.Errorf("renderer: not advised")
	}
	return r.chains.Invoke(ctx, m, params)
}

// Render describes the shape at scale.
func (r *Renderer) Render(ctx context.Context, scale float64) (string, error) {
	res, err := r.Call(ctx, "render", aspect.NewParameters().With("scale", scale))
	if err != nil {
		return "", err
	}
	out, ok := res.(string)
	if !ok {
		return "", fmt.Errorf("renderer: render returned %T", res)
	}
	return out, nil
}

// Purge resets the render counter and returns its previous value.
func (r *Renderer) Purge(ctx context.Context) (int, error) {
	res, err := r.Call(ctx, "purge", nil)
	if err != nil {
		return 0, err
	}
	n, ok := res.(int)
	if !ok {
		return 0, fmt.Errorf("renderer: purge returned %T", res)
	}
	return n, nil
}

func (r *Renderer) render(ctx *aspect.ExecutionContext) (any, error) {
	scale, err := aspect.Require[float64](ctx.Parameters(), "scale")
	if err != nil {
		return nil, err
	}
	r.rendered.Add(1)
	return fmt.Sprintf("%s area=%.2f", r.shape.Name(), r.shape.Area()*scale*scale), nil
}

func (r *Renderer) purge(*aspect.ExecutionContext) (any, error) {
	return int(r.rendered.Swap(0)), nil
}
