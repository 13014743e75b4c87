package cmd

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	kernel "github.com/km-arc/go-inject/framework/app"
	"github.com/km-arc/go-inject/framework/condition"
)

func newProvidersCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List registered providers and whether their condition holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			application, err := opts.boot()
			if err != nil {
				return err
			}
			defer shutdown(application, &err)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s  env=%s  strategy=%s  providers=%d  deferred=%d\n",
				bold(application.Config().App.Name), gray("v"+application.Version()),
				application.Environment(), cyan(application.Strategy()),
				application.Len(), len(application.Modules.Pending()))
			if application.IsDebug() {
				fmt.Fprintln(out, yellow("debug mode"))
			}
			fmt.Fprintln(out)

			return providerTable(out, application)
		},
	}
}

// providerTable aligns the plain text first and colors it afterwards:
// tabwriter would count the escape sequences as cell width.
func providerTable(out io.Writer, application *kernel.Application) error {
	type row struct {
		ok   bool
		cond string
	}

	var (
		buf  bytes.Buffer
		rows []row
	)
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, " \tTYPE\tALSO\tORDER\tSCOPE\tORIGIN\tCONDITION")
	for _, p := range application.Providers() {
		var also []string
		for _, t := range p.AdditionalTypes {
			also = append(also, t.String())
		}
		scope := "prototype"
		if p.Singleton {
			scope = "singleton"
		}
		r := row{ok: condition.Matches(p.Condition, application.Registry.Environment()), cond: "-"}
		if p.Condition != nil {
			r.cond = p.Condition.String()
		}
		rows = append(rows, r)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			plainMark(r.ok), p.Type, dash(strings.Join(also, ", ")), strconv.Itoa(p.Order), scope, dash(p.Origin), r.cond)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	fmt.Fprintln(out, bold(lines[0]))
	for i, line := range lines[1:] {
		r := rows[i]
		body := strings.TrimPrefix(line, plainMark(r.ok))
		body = strings.TrimSuffix(body, r.cond)
		fmt.Fprintf(out, "%s%s%s\n", mark(r.ok), body, gray(r.cond))
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
