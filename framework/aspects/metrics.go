package aspects

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/km-arc/go-inject/framework/aspect"
)

// Metrics counts intercepted calls and observes their duration, labelled by
// method and outcome ("ok" or "error").
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the metrics handler and registers its collectors with
// reg. Collectors already registered by an earlier instance are reused.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	calls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aspect_calls_total",
			Help:      "Total number of intercepted method calls",
		},
		[]string{"method", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aspect_call_duration_seconds",
			Help:      "Intercepted method call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	var err error
	if calls, err = register(reg, calls); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return &Metrics{calls: calls, duration: duration}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (*Metrics) Order() int                        { return OrderMetrics }
func (*Metrics) AppliesTo(*aspect.RootMethod) bool { return true }

func (m *Metrics) Process(ctx *aspect.ExecutionContext) (any, error) {
	method := ctx.Method().FullName()
	start := time.Now()

	res, err := ctx.Proceed()

	m.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.calls.WithLabelValues(method, outcome).Inc()
	return res, err
}
