// Package aspects provides the built-in interceptors.
//
//	Tracing     order 0    span per call (OpenTelemetry)
//	Logging     order 10   start / finish / failure (zap)
//	Metrics     order 20   call counter + duration histogram (Prometheus)
//	Security    order 30   role guard for methods annotated "secured"
//	Validation  order 40   parameter rules from the "validate" annotation
//
// Every handler is an aspect.Handler and is normally registered through
// providers.AspectsModule, which gates each one on an aspects.* property.
package aspects

// Default orders of the built-in handlers.
const (
	OrderTracing    = 0
	OrderLogging    = 10
	OrderMetrics    = 20
	OrderSecurity   = 30
	OrderValidation = 40
)
