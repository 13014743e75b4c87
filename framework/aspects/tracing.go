package aspects

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/km-arc/go-inject/framework/aspect"
)

// TracerName is the instrumentation scope of the tracing handler.
const TracerName = "github.com/km-arc/go-inject/framework/aspects"

// Tracing wraps every intercepted call in a span. Later handlers and the
// method body see the span through ExecutionContext.Context.
type Tracing struct {
	tracer trace.Tracer
}

// NewTracing creates the handler. A nil provider uses the global one.
func NewTracing(tp trace.TracerProvider) *Tracing {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracing{tracer: tp.Tracer(TracerName)}
}

func (*Tracing) Order() int                        { return OrderTracing }
func (*Tracing) AppliesTo(*aspect.RootMethod) bool { return true }

func (t *Tracing) Process(ctx *aspect.ExecutionContext) (any, error) {
	m := ctx.Method()
	parent := ctx.Context()

	spanCtx, span := t.tracer.Start(parent, m.FullName(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("code.namespace", m.Owner()),
			attribute.String("code.function", m.Name()),
			attribute.String("invocation.id", ctx.ID().String()),
		),
	)
	defer span.End()

	ctx.SetContext(spanCtx)
	defer ctx.SetContext(parent)

	res, err := ctx.Proceed()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}
