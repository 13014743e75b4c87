package container

// ResolveOption narrows or alters a single resolution.
type ResolveOption func(*resolveOptions)

type resolveOptions struct {
	qualifier string
	strategy  Strategy
}

// WithQualifier only considers providers declaring qualifier q.
//
//	primary, err := r.Get(DataSource.Type(), container.WithQualifier("primary"))
func WithQualifier(q string) ResolveOption {
	return func(o *resolveOptions) { o.qualifier = q }
}

// Using overrides the registry's strategy for one call.
//
//	shape, err := r.Get(Shape.Type(), container.Using(container.BestMatch))
func Using(s Strategy) ResolveOption {
	return func(o *resolveOptions) { o.strategy = s }
}

func (r *Registry) options(opts []ResolveOption) resolveOptions {
	o := resolveOptions{strategy: r.strategy}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
