package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lherron/transplant/internal/cli/appctx"
	"github.com/lherron/transplant/internal/merge"
	"github.com/lherron/transplant/internal/render"
	"github.com/spf13/cobra"
)

func newOpsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ops",
		Short: "Inspect the configured merge operations",
	}

	var lsJSON bool
	ls := &cobra.Command{
		Use:   "ls",
		Short: "List configured operations in execution order",
		RunE: appctx.WithApp(appctx.Options{}, func(app *appctx.App, cmd *cobra.Command, args []string) error {
			r := render.NewRenderer(cmd.OutOrStdout(), render.Options{})
			if lsJSON {
				return r.RenderJSON(app.Config.Operations)
			}

			rows := make([][]string, 0, len(app.Config.Operations))
			for i, op := range app.Config.Operations {
				rows = append(rows, []string{strconv.Itoa(i + 1), op.Model, op.AccessorName(), op.FieldName(), op.Strategy})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No operations configured.")
				return nil
			}
			return r.RenderTable([]string{"#", "Model", "Accessor", "Field", "Strategy"}, rows)
		}),
	}
	ls.Flags().BoolVar(&lsJSON, "json", false, "Output as JSON")

	check := &cobra.Command{
		Use:   "check",
		Short: "Resolve every configured operation without merging",
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			resolver := merge.NewResolver(app.Store.Catalog(), nil)
			results, err := resolver.Validate(cmd.Context(), app.Store, app.Config.Operations)
			if err != nil {
				return exitError(1, err)
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, res := range results {
				if res.Err != nil {
					failed++
					fmt.Fprintf(out, "✗ %s\n    %v\n", res.Descriptor, res.Err)
					continue
				}
				fmt.Fprintf(out, "✓ %s\n", res.Descriptor)
			}
			if failed > 0 {
				return exitError(2, fmt.Errorf("%d of %d operation(s) cannot be resolved", failed, len(results)))
			}
			fmt.Fprintf(out, "\nAll %d operation(s) resolve.\n", len(results))
			return nil
		}),
	}

	catalog := &cobra.Command{
		Use:   "catalog",
		Short: "List record types, accessors, owner fields, and strategies",
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			var rows [][]string
			for _, rt := range app.Store.Catalog().Types() {
				accessors := make([]string, 0, len(rt.Accessors))
				for name := range rt.Accessors {
					accessors = append(accessors, name)
				}
				sort.Strings(accessors)
				rows = append(rows, []string{rt.Locator(), strings.Join(accessors, ","), strings.Join(rt.OwnerFields, ",")})
			}

			r := render.NewRenderer(cmd.OutOrStdout(), render.Options{})
			if err := r.RenderTable([]string{"Model", "Accessors", "Owner Fields"}, rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nStrategies: %s\n", strings.Join(merge.DefaultRegistry().Locators(), ", "))
			return nil
		}),
	}

	cmd.AddCommand(ls, check, catalog)
	return cmd
}
