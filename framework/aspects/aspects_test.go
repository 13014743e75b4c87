package aspects_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-inject/framework/aspect"
	"github.com/km-arc/go-inject/framework/aspects"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

var errBoom = errors.New("boom")

type circle struct {
	calls int
	area  *aspect.RootMethod
	scale *aspect.RootMethod
	fail  *aspect.RootMethod
}

func newCircle() *circle {
	c := &circle{}
	c.area = aspect.NewRootMethod("Area", func(*aspect.ExecutionContext) (any, error) {
		c.calls++
		return 12.5, nil
	}, aspect.DeclaredBy("shapes.Circle"))
	c.scale = aspect.NewRootMethod("Scale", func(ctx *aspect.ExecutionContext) (any, error) {
		c.calls++
		return aspect.Require[float64](ctx.Parameters(), "factor")
	},
		aspect.DeclaredBy("shapes.Circle"),
		aspect.Annotate(aspects.SecuredAnnotation, "roles", "admin, editor"),
		aspect.Annotate(aspects.ValidateAnnotation, "factor", "required,gt=0"),
	)
	c.fail = aspect.NewRootMethod("Fail", func(*aspect.ExecutionContext) (any, error) {
		c.calls++
		return nil, errBoom
	}, aspect.DeclaredBy("shapes.Circle"))
	return c
}

func chainOf(t *testing.T, root *aspect.RootMethod, handlers ...aspect.Handler) *aspect.ExecutionChain {
	t.Helper()
	chains := aspect.NewChainRegistry(aspect.StaticHandlers(handlers...))
	chain, err := chains.GetExecutionChain(root)
	require.NoError(t, err)
	return chain
}

// ── Logging ───────────────────────────────────────────────────────────────────

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := newCircle()
	logging := aspects.NewLogging(zap.New(core))

	res, err := chainOf(t, c.area, logging).Execute(nil)
	require.NoError(t, err)
	assert.Equal(t, 12.5, res)

	_, err = chainOf(t, c.fail, logging).Execute(nil)
	require.ErrorIs(t, err, errBoom)

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "call started", entries[0].Message)
	assert.Equal(t, "call finished", entries[1].Message)
	assert.Equal(t, "shapes.Circle.Area", entries[1].ContextMap()["method"])
	assert.Equal(t, "call failed", entries[3].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[3].Level)
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
}

// ── Security ──────────────────────────────────────────────────────────────────

func TestSecurity(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		wantErr error
	}{
		{"no principal", context.Background(), aspects.ErrUnauthenticated},
		{"missing role", aspects.WithPrincipal(context.Background(), aspects.Principal{Name: "bob", Roles: []string{"viewer"}}), aspects.ErrForbidden},
		{"role matches", aspects.WithPrincipal(context.Background(), aspects.Principal{Name: "alice", Roles: []string{"Editor"}}), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCircle()
			chain := chainOf(t, c.scale, aspects.NewSecurity())

			_, err := chain.ExecuteContext(tt.ctx, aspect.NewParameters().With("factor", 2.0))
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, 1, c.calls)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, c.calls)
			var access *aspects.AccessError
			require.ErrorAs(t, err, &access)
			assert.Equal(t, []string{"admin", "editor"}, access.Required)
		})
	}
}

func TestSecurity_SkipsUnsecuredMethods(t *testing.T) {
	c := newCircle()
	chain := chainOf(t, c.area, aspects.NewSecurity())
	assert.Equal(t, 0, chain.Len())
}

func TestSecurity_ErrorSkipsLoggingSuccessPath(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := newCircle()
	chain := chainOf(t, c.scale, aspects.NewSecurity(), aspects.NewLogging(zap.New(core)))

	_, err := chain.Execute(aspect.NewParameters().With("factor", 2.0))
	require.ErrorIs(t, err, aspects.ErrUnauthenticated)
	assert.Equal(t, 0, c.calls)
	assert.Equal(t, 1, logs.FilterMessage("call failed").Len())
	assert.Equal(t, 0, logs.FilterMessage("call finished").Len())
}

// ── Validation ────────────────────────────────────────────────────────────────

type dimensions struct {
	Width  float64 `validate:"gt=0"`
	Height float64 `validate:"gt=0"`
	Unit   string  `validate:"oneof=cm mm in"`
}

func TestValidation_ParameterRules(t *testing.T) {
	tests := []struct {
		name    string
		params  *aspect.Parameters
		problem string
	}{
		{"valid", aspect.NewParameters().With("factor", 2.0), ""},
		{"missing", aspect.NewParameters(), "factor is required"},
		{"not positive", aspect.NewParameters().With("factor", -1.0), "factor must be greater than 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCircle()
			chain := chainOf(t, c.scale, aspects.NewValidation(nil))

			res, err := chain.Execute(tt.params)
			if tt.problem == "" {
				require.NoError(t, err)
				assert.Equal(t, 2.0, res)
				return
			}
			require.ErrorIs(t, err, aspects.ErrInvalidArgument)
			assert.Contains(t, err.Error(), tt.problem)
			assert.Equal(t, 0, c.calls)
		})
	}
}

func TestValidation_StructParameters(t *testing.T) {
	var called bool
	resize := aspect.NewRootMethod("Resize", func(*aspect.ExecutionContext) (any, error) {
		called = true
		return nil, nil
	}, aspect.DeclaredBy("shapes.Square"), aspect.Annotate(aspects.ValidateAnnotation))
	chain := chainOf(t, resize, aspects.NewValidation(nil))

	_, err := chain.Execute(aspect.NewParameters().With("dims", &dimensions{Width: 2, Height: 0, Unit: "ft"}))
	require.ErrorIs(t, err, aspects.ErrInvalidArgument)
	assert.False(t, called)

	var verr *aspects.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		"dims.Height must be greater than 0",
		"dims.Unit must be one of: cm mm in",
	}, verr.Problems)

	_, err = chain.Execute(aspect.NewParameters().With("dims", dimensions{Width: 2, Height: 3, Unit: "cm"}))
	require.NoError(t, err)
	assert.True(t, called)
}

// ── Metrics ───────────────────────────────────────────────────────────────────

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := aspects.NewMetrics(reg, "inject")
	require.NoError(t, err)

	c := newCircle()
	for range 2 {
		_, err := chainOf(t, c.area, metrics).Execute(nil)
		require.NoError(t, err)
	}
	_, err = chainOf(t, c.fail, metrics).Execute(nil)
	require.Error(t, err)

	expected := `
# HELP inject_aspect_calls_total Total number of intercepted method calls
# TYPE inject_aspect_calls_total counter
inject_aspect_calls_total{method="shapes.Circle.Area",outcome="ok"} 2
inject_aspect_calls_total{method="shapes.Circle.Fail",outcome="error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "inject_aspect_calls_total"))

	series, err := testutil.GatherAndCount(reg, "inject_aspect_call_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, series)
}

func TestMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := aspects.NewMetrics(reg, "inject")
	require.NoError(t, err)
	second, err := aspects.NewMetrics(reg, "inject")
	require.NoError(t, err)

	c := newCircle()
	_, err = chainOf(t, c.area, first).Execute(nil)
	require.NoError(t, err)
	_, err = chainOf(t, c.area, second).Execute(nil)
	require.NoError(t, err)

	series, err := testutil.GatherAndCount(reg, "inject_aspect_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

// ── Tracing ───────────────────────────────────────────────────────────────────

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	c := newCircle()
	var seen trace.SpanContext
	spy := aspect.NewHandler(aspects.OrderTracing+1, func(ctx *aspect.ExecutionContext) (any, error) {
		seen = trace.SpanContextFromContext(ctx.Context())
		return ctx.Proceed()
	})
	tracing := aspects.NewTracing(tp)

	_, err := chainOf(t, c.area, tracing, spy).Execute(nil)
	require.NoError(t, err)
	_, err = chainOf(t, c.fail, tracing).Execute(nil)
	require.ErrorIs(t, err, errBoom)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "shapes.Circle.Area", spans[0].Name())
	assert.Equal(t, spans[0].SpanContext().SpanID(), seen.SpanID(), "later handlers run inside the span")
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, "shapes.Circle.Fail", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "boom", spans[1].Status().Description)
	require.Len(t, spans[1].Events(), 1)
}

// ── Together ──────────────────────────────────────────────────────────────────

func TestBuiltinsComposeInOrder(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := aspects.NewMetrics(reg, "inject")
	require.NoError(t, err)

	handlers := []aspect.Handler{
		aspects.NewValidation(nil),
		aspects.NewSecurity(),
		metrics,
		aspects.NewLogging(nil),
		aspects.NewTracing(noop.NewTracerProvider()),
	}
	c := newCircle()
	chain := chainOf(t, c.scale, handlers...)

	orders := make([]int, 0, chain.Len())
	for _, h := range chain.Handlers() {
		orders = append(orders, h.Order())
	}
	assert.Equal(t, []int{
		aspects.OrderTracing, aspects.OrderLogging, aspects.OrderMetrics,
		aspects.OrderSecurity, aspects.OrderValidation,
	}, orders)

	ctx := aspects.WithPrincipal(context.Background(), aspects.Principal{Name: "alice", Roles: []string{"admin"}})
	res, err := chain.ExecuteContext(ctx, aspect.NewParameters().With("factor", 3.0))
	require.NoError(t, err)
	assert.Equal(t, 3.0, res)
}
