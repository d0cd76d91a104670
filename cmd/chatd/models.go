package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/gemini-chat/internal/ai"
)

func newModelsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List provider models and the one the resolver would pick",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.requireProvider(); err != nil {
				return err
			}
			return printModels(ctx, cmd.OutOrStdout(), a.provider, a.resolver, all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include models that cannot generate content")
	return cmd
}

func printModels(ctx context.Context, out io.Writer, catalog ai.Catalog, resolver *ai.Resolver, all bool) error {
	models, err := catalog.ListModels(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tINPUT\tOUTPUT\tMETHODS")
	for _, m := range models {
		if !all && !canGenerate(m) {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", m.ID, m.InputTokenLimit, m.OutputTokenLimit, strings.Join(m.Methods, ","))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	id, ok := ai.PickModel(models, resolver.Preferred())
	if !ok {
		fmt.Fprintln(out, "\nresolved: none")
		return nil
	}
	fmt.Fprintf(out, "\nresolved: %s\n", id)
	return nil
}

func canGenerate(m ai.ModelInfo) bool {
	_, ok := ai.PickModel([]ai.ModelInfo{m}, nil)
	return ok
}
