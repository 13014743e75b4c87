package aspect_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-inject/framework/aspect"
	"github.com/km-arc/go-inject/framework/condition"
	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/types"
)

// countingSource reports how often chains asked for handlers.
type countingSource struct {
	calls    atomic.Int32
	handlers []aspect.Handler
	err      error
}

func (s *countingSource) Handlers() ([]aspect.Handler, error) {
	s.calls.Add(1)
	return s.handlers, s.err
}

func handlerProvider(origin string, h aspect.Handler, cond condition.Condition) *container.Provider {
	return &container.Provider{
		Type:      aspect.HandlerClass.Type(),
		Singleton: true,
		Origin:    origin,
		Condition: cond,
		Factory:   func(*container.Registry) (any, error) { return h, nil },
	}
}

func TestGetExecutionChain_BuiltOnceAndCached(t *testing.T) {
	src := &countingSource{handlers: []aspect.Handler{aspect.NewHandler(0, passThrough)}}
	chains := aspect.NewChainRegistry(src)
	root := rootMethod(nil, nil)

	first, err := chains.GetExecutionChain(root)
	require.NoError(t, err)
	second, err := chains.GetExecutionChain(root)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, 1, chains.Len())

	chains.Invalidate(root)
	third, err := chains.GetExecutionChain(root)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, int32(2), src.calls.Load())

	chains.Reset()
	assert.Equal(t, 0, chains.Len())
}

func TestGetExecutionChain_ConcurrentFirstUseBuildsOnce(t *testing.T) {
	src := &countingSource{}
	chains := aspect.NewChainRegistry(src)
	root := rootMethod(nil, nil)

	const workers = 32
	got := make([]*aspect.ExecutionChain, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := chains.GetExecutionChain(root)
			assert.NoError(t, err)
			got[i] = c
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for _, c := range got {
		assert.Same(t, got[0], c)
	}
}

func TestGetExecutionChain_SourceMayUseTheRegistry(t *testing.T) {
	outer := aspect.NewRootMethod("Outer", func(*aspect.ExecutionContext) (any, error) { return "outer", nil })
	inner := aspect.NewRootMethod("Inner", func(*aspect.ExecutionContext) (any, error) { return "inner", nil })

	var (
		chains *aspect.ChainRegistry
		builds atomic.Int32
	)
	chains = aspect.NewChainRegistry(aspect.HandlerSourceFunc(func() ([]aspect.Handler, error) {
		// The first build warms up another chain, as an Advise might.
		if builds.Add(1) == 1 {
			if _, err := chains.GetExecutionChain(inner); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}))

	done := make(chan error, 1)
	go func() {
		_, err := chains.Invoke(context.Background(), outer, nil)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("building a chain from inside a chain build did not return")
	}
	assert.Equal(t, 2, chains.Len())
}

func TestGetExecutionChain_FiltersAndSorts(t *testing.T) {
	rec := &recorder{}
	secured := aspect.NewRootMethod("delete", func(*aspect.ExecutionContext) (any, error) {
		rec.add("root")
		return nil, nil
	}, aspect.Annotate("secured", "roles", "admin"))
	plain := aspect.NewRootMethod("read", func(*aspect.ExecutionContext) (any, error) {
		rec.add("root")
		return nil, nil
	})

	chains := aspect.NewChainRegistry(aspect.StaticHandlers(
		around(rec, "late", 10),
		around(rec, "security", 1).When(aspect.Annotated("secured")),
		nil,
		around(rec, "early-a", 0),
		around(rec, "early-b", 0),
	))

	_, err := chains.Invoke(context.Background(), secured, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"early-a:before", "early-b:before", "security:before", "late:before", "root",
		"late:after", "security:after", "early-b:after", "early-a:after",
	}, rec.get())

	chain, err := chains.GetExecutionChain(plain)
	require.NoError(t, err)
	assert.Equal(t, 3, chain.Len(), "security does not apply to unannotated methods")
}

func TestGetExecutionChain_Errors(t *testing.T) {
	chains := aspect.NewChainRegistry(nil)
	_, err := chains.GetExecutionChain(nil)
	assert.Error(t, err)

	boom := errors.New("boom")
	failing := aspect.NewChainRegistry(&countingSource{err: boom})
	_, err = failing.Invoke(context.Background(), rootMethod(nil, nil), nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, failing.Len(), "failed builds are not cached")
}

func TestRegistrySource_ResolvesEligibleHandlers(t *testing.T) {
	rec := &recorder{}
	env := condition.MapEnvironment{"aspects.audit": "false"}
	reg := container.New(container.WithEnvironment(env))
	require.NoError(t, reg.Register(
		handlerProvider("logging", around(rec, "logging", 0), nil),
		handlerProvider("audit", around(rec, "audit", 1), condition.Property("aspects.audit", "true")),
		handlerProvider("security", around(rec, "security", 2), condition.True),
	))

	chains := aspect.NewChainRegistry(aspect.RegistrySource(reg))
	_, err := chains.Invoke(context.Background(), rootMethod(rec, nil), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"logging:before", "security:before", "root", "security:after", "logging:after",
	}, rec.get())
}

// widget routes Size through its chain once advised.
type widget struct {
	chains *aspect.ChainRegistry
	size   *aspect.RootMethod
}

func newWidget() *widget {
	w := &widget{}
	w.size = aspect.NewRootMethod("Size", func(*aspect.ExecutionContext) (any, error) {
		return 3, nil
	}, aspect.DeclaredBy("test.Widget"))
	return w
}

func (w *widget) Advise(chains *aspect.ChainRegistry) error {
	w.chains = chains
	return nil
}

func (w *widget) Size(ctx context.Context) (int, error) {
	res, err := w.chains.Invoke(ctx, w.size, nil)
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

type stubborn struct{}

func (stubborn) Advise(*aspect.ChainRegistry) error { return errors.New("refused") }

func TestWeave_AdvisesResolvedInstances(t *testing.T) {
	widgetClass := types.Declare("test.Widget")
	doubling := aspect.NewHandler(0, func(ctx *aspect.ExecutionContext) (any, error) {
		res, err := ctx.Proceed()
		if err != nil {
			return nil, err
		}
		return res.(int) * 2, nil
	})

	reg := container.New()
	chains := aspect.NewChainRegistry(aspect.RegistrySource(reg))
	reg.OnResolved(chains.Weave)
	require.NoError(t, reg.Register(
		handlerProvider("doubling", doubling, nil),
		&container.Provider{
			Type:      widgetClass.Type(),
			Singleton: true,
			Factory:   func(*container.Registry) (any, error) { return newWidget(), nil },
		},
	))

	w, err := container.Get[*widget](reg, widgetClass.Type())
	require.NoError(t, err)
	size, err := w.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, size)
}

func TestWeave_AdviseFailure(t *testing.T) {
	stubbornClass := types.Declare("test.Stubborn")
	reg := container.New()
	chains := aspect.NewChainRegistry(aspect.StaticHandlers())
	reg.OnResolved(chains.Weave)
	require.NoError(t, reg.Register(&container.Provider{
		Type:    stubbornClass.Type(),
		Factory: func(*container.Registry) (any, error) { return stubborn{}, nil },
	}))

	_, err := reg.Get(stubbornClass.Type())
	require.ErrorIs(t, err, container.ErrInstantiation)
	assert.Contains(t, err.Error(), "refused")
}

func passThrough(ctx *aspect.ExecutionContext) (any, error) { return ctx.Proceed() }
