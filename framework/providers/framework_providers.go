package providers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/aspect"
	"github.com/km-arc/go-inject/framework/aspects"
	"github.com/km-arc/go-inject/framework/condition"
	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/types"
)

// Capabilities bound by the framework modules.
var (
	ConfigClass         = types.Declare("config.Config")
	LoggerClass         = types.Declare("zap.Logger")
	ChainsClass         = types.Declare("aspect.ChainRegistry")
	ValidatorClass      = types.Declare("validator.Validate")
	MetricsClass        = types.Declare("prometheus.Registry")
	TracerProviderClass = types.Declare("trace.TracerProvider")
)

// Properties switching the built-in aspects.
const (
	LoggingProperty    = "aspects.logging"
	ValidationProperty = "aspects.validation"
	SecurityProperty   = "aspects.security"
	MetricsProperty    = "aspects.metrics"
	TracingProperty    = "aspects.tracing"
)

// ── CoreModule ────────────────────────────────────────────────────────────────

// CoreModule binds the values the application bootstrapped before the
// container existed.
//
// Bound capabilities:
//   - config.Config          → *config.Config
//   - zap.Logger             → *zap.Logger
//   - aspect.ChainRegistry   → *aspect.ChainRegistry
type CoreModule struct {
	container.BaseModule
	Config *config.Config
	Logger *zap.Logger
	Chains *aspect.ChainRegistry
}

func (m *CoreModule) Register(r *container.Registry) error {
	var ps []*container.Provider
	if m.Config != nil {
		ps = append(ps, value(ConfigClass, m.Config))
	}
	if m.Logger != nil {
		ps = append(ps, value(LoggerClass, m.Logger))
	}
	if m.Chains != nil {
		ps = append(ps, value(ChainsClass, m.Chains))
	}
	return r.Register(ps...)
}

func value(c *types.Class, v any) *container.Provider {
	return &container.Provider{
		Type:      c.Type(),
		Singleton: true,
		Origin:    "core",
		Factory:   func(*container.Registry) (any, error) { return v, nil },
	}
}

// ── AspectsModule ─────────────────────────────────────────────────────────────

// AspectsModule registers the built-in handlers as aspect.Handler providers,
// each gated by its property:
//
//	aspects.logging     default on
//	aspects.validation  default on
//	aspects.security    default on
//	aspects.metrics     default off
//	aspects.tracing     default off
//
// Supporting services are bound alongside when their aspect is on:
//   - validator.Validate     → *validator.Validate
//   - prometheus.Registry    → *prometheus.Registry
//   - trace.TracerProvider   → *TracerProvider (SDK provider, shut down on Close)
type AspectsModule struct {
	Namespace string // metrics namespace, default: "inject"
}

func (m *AspectsModule) Register(r *container.Registry) error {
	namespace := m.Namespace
	if namespace == "" {
		namespace = "inject"
	}

	var (
		logging    = condition.PropertyOrMissing(LoggingProperty, "true")
		validation = condition.PropertyOrMissing(ValidationProperty, "true")
		security   = condition.PropertyOrMissing(SecurityProperty, "true")
		metrics    = condition.Property(MetricsProperty, "true")
		tracing    = condition.Property(TracingProperty, "true")
	)

	return r.Register(
		handler(LoggingProperty, aspects.OrderLogging, logging, func(r *container.Registry) (any, error) {
			logger, ok, err := container.TryGet[*zap.Logger](r, LoggerClass.Type())
			if err != nil {
				return nil, err
			}
			if !ok {
				logger = zap.NewNop()
			}
			return aspects.NewLogging(logger), nil
		}),

		service(ValidatorClass, validation, func(*container.Registry) (any, error) {
			return validator.New(validator.WithRequiredStructEnabled()), nil
		}),
		handler(ValidationProperty, aspects.OrderValidation, validation, func(r *container.Registry) (any, error) {
			v, err := container.Get[*validator.Validate](r, ValidatorClass.Type())
			if err != nil {
				return nil, err
			}
			return aspects.NewValidation(v), nil
		}),

		handler(SecurityProperty, aspects.OrderSecurity, security, func(*container.Registry) (any, error) {
			return aspects.NewSecurity(), nil
		}),

		service(MetricsClass, metrics, func(*container.Registry) (any, error) {
			return prometheus.NewRegistry(), nil
		}),
		handler(MetricsProperty, aspects.OrderMetrics, metrics, func(r *container.Registry) (any, error) {
			reg, err := container.Get[*prometheus.Registry](r, MetricsClass.Type())
			if err != nil {
				return nil, err
			}
			return aspects.NewMetrics(reg, namespace)
		}),

		service(TracerProviderClass, tracing, func(*container.Registry) (any, error) {
			return &TracerProvider{TracerProvider: sdktrace.NewTracerProvider()}, nil
		}),
		handler(TracingProperty, aspects.OrderTracing, tracing, func(r *container.Registry) (any, error) {
			tp, err := container.Get[trace.TracerProvider](r, TracerProviderClass.Type())
			if err != nil {
				return nil, err
			}
			return aspects.NewTracing(tp), nil
		}),
	)
}

// Boot resolves the enabled handlers so a broken aspect fails at startup
// rather than on the first intercepted call.
func (m *AspectsModule) Boot(r *container.Registry) error {
	_, err := container.GetAll[aspect.Handler](r, aspect.HandlerClass.Type())
	return err
}

func handler(origin string, order int, cond condition.Condition, f container.Factory) *container.Provider {
	return &container.Provider{
		Type:      aspect.HandlerClass.Type(),
		Singleton: true,
		Order:     order,
		Condition: cond,
		Origin:    origin,
		Factory:   f,
	}
}

func service(c *types.Class, cond condition.Condition, f container.Factory) *container.Provider {
	return &container.Provider{
		Type:      c.Type(),
		Singleton: true,
		Condition: cond,
		Origin:    "aspects",
		Factory:   f,
	}
}

// TracerProvider is the SDK tracer provider bound by AspectsModule. Close
// flushes and shuts it down.
type TracerProvider struct {
	*sdktrace.TracerProvider
}

func (tp *TracerProvider) Close() error {
	return tp.Shutdown(context.Background())
}
