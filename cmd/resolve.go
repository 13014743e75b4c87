package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	kernel "github.com/km-arc/go-inject/framework/app"
	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/types"
)

func newResolveCommand(opts *rootOptions) *cobra.Command {
	var (
		strategy  string
		qualifier string
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "resolve TYPE",
		Short: "Resolve a capability and show which provider won",
		Example: `  inject resolve shapes.Shape
  inject resolve shapes.Shape --set shapes.kind=all --using best_match
  inject resolve "shapes.List[shapes.Shape]" --set shapes.kind=all`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			application, err := opts.boot()
			if err != nil {
				return err
			}
			defer shutdown(application, &err)

			id, ok := knownType(application, args[0])
			if !ok {
				return fmt.Errorf("unknown type %q, known: %v", args[0], knownTypeNames(application))
			}

			var ropts []container.ResolveOption
			if strategy != "" {
				s, err := container.ParseStrategy(strategy)
				if err != nil {
					return err
				}
				ropts = append(ropts, container.Using(s))
			}
			if qualifier != "" {
				ropts = append(ropts, container.WithQualifier(qualifier))
			}

			out := cmd.OutOrStdout()
			if all {
				instances, err := application.GetAll(id, ropts...)
				if err != nil {
					return err
				}
				for _, inst := range instances {
					fmt.Fprintf(out, "%s %s → %T\n", green("●"), id, inst)
				}
				return nil
			}

			inst, err := application.Get(id, ropts...)
			if err != nil {
				fmt.Fprintf(out, "%s %v\n", red("✗"), err)
				return err
			}
			fmt.Fprintf(out, "%s %s → %s\n", green("✓"), id, yellow(fmt.Sprintf("%T %+v", inst, inst)))
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "using", "", "strategy for this lookup only")
	cmd.Flags().StringVar(&qualifier, "qualifier", "", "only providers declaring this qualifier")
	cmd.Flags().BoolVar(&all, "all", false, "resolve every eligible provider")
	return cmd
}

// knownType finds the identifier named s among the registered provider types,
// the types of deferred modules, and their supertypes.
func knownType(application *kernel.Application, s string) (types.TypeIdentifier, bool) {
	for _, id := range knownTypes(application) {
		if id.String() == s {
			return id, true
		}
	}
	return types.TypeIdentifier{}, false
}

func knownTypeNames(application *kernel.Application) []string {
	var names []string
	for _, id := range knownTypes(application) {
		names = append(names, id.String())
	}
	slices.Sort(names)
	return names
}

func knownTypes(application *kernel.Application) []types.TypeIdentifier {
	seen := map[string]bool{}
	var out []types.TypeIdentifier
	add := func(id types.TypeIdentifier) {
		if !seen[id.String()] {
			seen[id.String()] = true
			out = append(out, id)
		}
	}
	addAll := func(ids []types.TypeIdentifier) {
		for _, t := range ids {
			add(t)
			for _, c := range t.Raw().Ancestors() {
				add(c.Type())
			}
		}
	}
	for _, p := range application.Providers() {
		addAll(p.Types())
	}
	for _, mod := range application.Modules.Pending() {
		if d, ok := mod.(container.DeferredModule); ok {
			addAll(d.Provides())
		}
	}
	return out
}
