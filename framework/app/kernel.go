package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/aspect"
	"github.com/km-arc/go-inject/framework/condition"
	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/log"
	"github.com/km-arc/go-inject/framework/providers"
)

// Version of the framework, reported at boot.
const Version = "0.2.0"

// Application is the top-level application container.
// It embeds the provider Registry so user code can call app.Get(),
// app.GetAll(), app.Register() directly, and owns the module lifecycle and
// the execution chains of intercepted methods.
type Application struct {
	*container.Registry
	Modules *container.ModuleRegistry
	Chains  *aspect.ChainRegistry

	config *config.Config
	logger *zap.Logger
}

// New loads the configuration (.env files, then the process environment),
// builds the logger and registers the framework modules.
//
//	application, err := app.New()
//	application.Use(&ShapesModule{})
//	application.Boot()
func New(envFiles ...string) (*Application, error) {
	cfg := config.Load(envFiles...)
	logger, err := log.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	return NewWith(cfg, logger, config.Env{})
}

// NewWith builds an application from explicit parts. Load conditions are
// evaluated against env.
func NewWith(cfg *config.Config, logger *zap.Logger, env condition.Environment) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if logger == nil {
		logger = log.Nop()
	}

	strategy, err := container.ParseStrategy(cfg.Container.Strategy)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	registry := container.New(
		container.WithStrategy(strategy),
		container.WithEnvironment(env),
		container.WithLogger(logger.Named("container")),
	)
	chains := aspect.NewChainRegistry(aspect.RegistrySource(registry), aspect.WithLogger(logger.Named("chain")))
	registry.OnResolved(chains.Weave)

	app := &Application{
		Registry: registry,
		Modules:  container.NewModuleRegistry(registry),
		Chains:   chains,
		config:   cfg,
		logger:   logger,
	}

	// Framework modules go in before any user module.
	if err := app.Use(&providers.CoreModule{Config: cfg, Logger: logger, Chains: chains}); err != nil {
		return nil, err
	}
	if err := app.Use(&providers.AspectsModule{Namespace: config.Get("METRICS_NAMESPACE", "inject")}); err != nil {
		return nil, err
	}
	return app, nil
}

// Use adds a Module to the application.
func (a *Application) Use(mod container.Module) error {
	if err := a.Modules.Register(mod); err != nil {
		return fmt.Errorf("app: register module %T: %w", mod, err)
	}
	return nil
}

// Boot runs the Boot phase on all modules.
func (a *Application) Boot() error {
	if err := a.Modules.Boot(); err != nil {
		return fmt.Errorf("app: boot: %w", err)
	}
	a.logger.Info("application booted",
		zap.String("name", a.config.App.Name),
		zap.String("version", a.Version()),
		zap.String("env", a.Environment()),
		zap.Bool("debug", a.IsDebug()),
		zap.Stringer("strategy", a.Strategy()),
		zap.Int("providers", a.Len()),
	)
	return nil
}

// Invoke routes a call of root through its execution chain, booting first if
// needed.
func (a *Application) Invoke(ctx context.Context, root *aspect.RootMethod, params *aspect.Parameters) (any, error) {
	if !a.Modules.Booted() {
		if err := a.Boot(); err != nil {
			return nil, err
		}
	}
	return a.Chains.Invoke(ctx, root, params)
}

// Shutdown closes cached singletons and drops the execution chains.
func (a *Application) Shutdown() error {
	err := a.Close()
	a.Chains.Reset()
	_ = a.logger.Sync()
	if err != nil {
		return fmt.Errorf("app: shutdown: %w", err)
	}
	return nil
}

// Config returns the loaded configuration.
func (a *Application) Config() *config.Config { return a.config }

// Logger returns the application logger.
func (a *Application) Logger() *zap.Logger { return a.logger }

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.config.App.Env }
func (a *Application) IsDebug() bool       { return a.config.App.Debug }
func (a *Application) Version() string     { return Version }
