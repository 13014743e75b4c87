package cmd

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/km-arc/go-inject/app"
	"github.com/km-arc/go-inject/framework/aspect"
	"github.com/km-arc/go-inject/framework/aspects"
	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/providers"
)

func newInvokeCommand(opts *rootOptions) *cobra.Command {
	var (
		params    []string
		principal string
	)

	cmd := &cobra.Command{
		Use:   "invoke METHOD",
		Short: "Call a renderer method through its execution chain",
		Example: `  inject invoke render --param scale=2
  inject invoke purge --principal ada:admin
  inject invoke render --param scale=0 --set aspects.metrics=true`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			application, err := opts.boot()
			if err != nil {
				return err
			}
			defer shutdown(application, &err)

			renderer, err := container.Get[*app.Renderer](application.Registry, app.RendererClass.Type())
			if err != nil {
				return err
			}
			method, ok := renderer.Method(args[0])
			if !ok {
				return fmt.Errorf("unknown method %q, known: %v", args[0], renderer.MethodNames())
			}

			values, err := parsePairs(params, "=")
			if err != nil {
				return fmt.Errorf("--param: %w", err)
			}
			p := aspect.NewParameters()
			for _, name := range sortedKeys(values) {
				p.Set(name, parseValue(values[name]))
			}

			ctx := context.Background()
			if principal != "" {
				ctx = aspects.WithPrincipal(ctx, parsePrincipal(principal))
			}

			out := cmd.OutOrStdout()
			chain, err := application.Chains.GetExecutionChain(method)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s\n", bold(method), gray(fmt.Sprintf("(%d handlers)", chain.Len())))

			res, callErr := renderer.Call(ctx, args[0], p)
			if callErr != nil {
				fmt.Fprintf(out, "%s %v\n", red("✗"), callErr)
			} else {
				fmt.Fprintf(out, "%s %v\n", green("✓"), res)
			}

			if err := printMetrics(cmd, application.Registry); err != nil {
				return err
			}
			return callErr
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "call parameter, name=value (repeatable)")
	cmd.Flags().StringVar(&principal, "principal", "", "caller identity, name:role1,role2")
	return cmd
}

// printMetrics prints the aspect counters when the metrics aspect is on.
func printMetrics(cmd *cobra.Command, r *container.Registry) error {
	reg, ok, err := container.TryGet[*prometheus.Registry](r, providers.MetricsClass.Type())
	if err != nil || !ok {
		return err
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, f := range families {
		if !strings.HasSuffix(f.GetName(), "_total") {
			continue
		}
		for _, m := range f.GetMetric() {
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			fmt.Fprintf(out, "  %s{%s} %v\n", gray(f.GetName()), strings.Join(labels, ","), m.GetCounter().GetValue())
		}
	}
	return nil
}

// parseValue turns numeric and boolean strings into float64 and bool.
func parseValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func parsePrincipal(s string) aspects.Principal {
	name, roles, _ := strings.Cut(s, ":")
	p := aspects.Principal{Name: strings.TrimSpace(name)}
	for _, r := range strings.Split(roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			p.Roles = append(p.Roles, r)
		}
	}
	return p
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
