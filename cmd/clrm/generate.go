package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/thepwagner/clrm/commands"
	"github.com/thepwagner/clrm/generator"
	"github.com/thepwagner/clrm/system"
)

func (e *env) generate(ctx context.Context, systems []string) (*generator.Summary, error) {
	settings := e.cfg.Settings()
	settings.Timestamp = time.Now().Format(system.TimestampFormat)

	g := generator.New(e.log, commands.NewRegistry(), e.ws, e.jars, settings,
		generator.WithIgnoreErrors(e.ignoreErrors),
		generator.WithReporter(e.reporter),
	)
	for _, s := range systems {
		if err := g.Add(strings.TrimSuffix(s, generator.DefinitionSuffix)); err != nil {
			return nil, err
		}
	}
	return g.Generate(ctx)
}

func printCommands(cmd *cobra.Command) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	r := commands.NewRegistry()
	for _, c := range r.List() {
		src, _ := r.SourceFile(c.Name())
		fmt.Fprintf(w, "%s %s\t%s\t(%s)\n", c.Name(), c.Syntax(), c.Help(), filepath.Base(src))
	}
	return w.Flush()
}
