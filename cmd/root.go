// Package cmd is the go-inject demo command line.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-inject/app"
	kernel "github.com/km-arc/go-inject/framework/app"
	"github.com/km-arc/go-inject/framework/condition"
	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/log"
)

type rootOptions struct {
	envFiles []string
	sets     []string
	strategy string
	verbose  bool
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "inject",
		Short: "go-inject demo: providers, conditions and aspect chains",
		Long: `inject boots the shapes demo application and lets you inspect it.

Properties:
  shapes.kind         circle (default) | square | all
  shapes.radius       circle radius, environment only (SHAPES_RADIUS)
  shapes.side         square side, environment only (SHAPES_SIDE)
  aspects.logging     on by default
  aspects.validation  on by default
  aspects.security    on by default
  aspects.metrics     off by default
  aspects.tracing     off by default

Set them with --set key=value or as environment variables
(shapes.kind → SHAPES_KIND).`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, ".env files to load (default: .env)")
	root.PersistentFlags().StringArrayVar(&opts.sets, "set", nil, "property override, key=value (repeatable)")
	root.PersistentFlags().StringVar(&opts.strategy, "strategy", "", "default resolution strategy (overrides CONTAINER_STRATEGY)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newProvidersCommand(opts),
		newResolveCommand(opts),
		newInvokeCommand(opts),
	)
	return root
}

// Execute runs the command line.
func Execute() error {
	return NewRootCommand().Execute()
}

// boot builds and boots the demo application.
func (o *rootOptions) boot() (*kernel.Application, error) {
	cfg := config.Load(o.envFiles...)
	if o.strategy != "" {
		cfg.Container.Strategy = o.strategy
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}

	overrides, err := parsePairs(o.sets, "=")
	if err != nil {
		return nil, fmt.Errorf("--set: %w", err)
	}

	logger, err := log.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	application, err := kernel.NewWith(cfg, logger, layered{overrides: overrides})
	if err != nil {
		return nil, err
	}
	shapes := &app.ShapesModule{
		Radius: float64(config.GetInt("SHAPES_RADIUS", 1)),
		Side:   float64(config.GetInt("SHAPES_SIDE", 1)),
	}
	for _, mod := range []container.Module{shapes, &app.RendererModule{}} {
		if err := application.Use(mod); err != nil {
			_ = application.Shutdown()
			return nil, err
		}
	}
	if err := application.Boot(); err != nil {
		_ = application.Shutdown()
		return nil, err
	}
	return application, nil
}

// shutdown closes application, reporting its error through err unless err
// already holds one.
//
//	defer shutdown(application, &err)
func shutdown(application *kernel.Application, err *error) {
	if cerr := application.Shutdown(); cerr != nil && *err == nil {
		*err = cerr
	}
}

// layered looks properties up in the --set overrides, then in the process
// environment.
type layered struct {
	overrides condition.MapEnvironment
}

func (l layered) Lookup(key string) (string, bool) {
	if v, ok := l.overrides.Lookup(key); ok {
		return v, true
	}
	return config.Env{}.Lookup(key)
}

func parsePairs(pairs []string, sep string) (condition.MapEnvironment, error) {
	out := condition.MapEnvironment{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, sep)
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%q is not key%svalue", p, sep)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}
